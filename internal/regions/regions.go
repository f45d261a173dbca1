// Package regions reads the government legal-dong code list and derives the
// sigungu-level regions the trade API is queried with.
package regions

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ThiagoRGoveia/apt-trades/internal/models"
	"github.com/ThiagoRGoveia/apt-trades/pkg/checksum"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

const (
	legalDongCodeLen = 10
	regionCodeLen    = 5
	statusActive     = "존재"
)

var ErrNoRegions = errors.New("no sigungu-level regions found")

// LoadFile parses a legal-dong code file and returns its regions along with
// the file's checksum.
func LoadFile(path string) ([]models.Region, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read region file %s: %w", path, err)
	}

	regions, err := Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse region file %s: %w", path, err)
	}
	return regions, checksum.Sum(raw), nil
}

// Parse reads tab-separated code/name/status rows in UTF-8 or cp949. Only
// active sigungu-level codes are kept, in file order.
func Parse(r io.Reader) ([]models.Region, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text, err := decode(raw)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var (
		regions []models.Region
		seen    = make(map[string]bool)
		line    = 0
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) < 2 {
			continue
		}

		code := strings.TrimSpace(record[0])
		if !isDigits(code) {
			// header
			continue
		}
		if len(code) != legalDongCodeLen {
			slog.Warn("skipping malformed legal-dong code", "line", line, "code", code)
			continue
		}
		if len(record) > 2 && strings.TrimSpace(record[2]) != statusActive {
			continue
		}
		if !isSigungu(code) {
			continue
		}

		short := code[:regionCodeLen]
		if seen[short] {
			continue
		}
		seen[short] = true
		regions = append(regions, models.Region{
			Code:      short,
			Name:      strings.TrimSpace(record[1]),
			APIServed: true,
		})
	}

	if len(regions) == 0 {
		return nil, ErrNoRegions
	}
	markSubsumed(regions)
	return regions, nil
}

// isSigungu keeps codes below province level with no dong part.
func isSigungu(code string) bool {
	return code[regionCodeLen:] == "00000" && code[2:regionCodeLen] != "000"
}

// markSubsumed clears APIServed on cities split into districts, such as
// 41110 when 41111 and 41113 exist. The API only answers for the districts.
func markSubsumed(regions []models.Region) {
	hasChild := make(map[string]bool)
	for _, r := range regions {
		if r.Code[4] != '0' {
			hasChild[r.Code[:4]] = true
		}
	}
	for i := range regions {
		if regions[i].Code[4] == '0' && hasChild[regions[i].Code[:4]] {
			regions[i].APIServed = false
		}
	}
}

func decode(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	decoded, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode cp949 input: %w", err)
	}
	return string(decoded), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
