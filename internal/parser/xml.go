package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ThiagoRGoveia/apt-trades/internal/models"
)

// ErrMissingBody is returned when a response lacks the <body> container. The
// provider answers this way once the daily quota is spent, so it is not the
// same as a page with zero items.
var ErrMissingBody = errors.New("response has no body container")

type MissingBodyError struct {
	Reason string
}

func (e *MissingBodyError) Error() string {
	if e.Reason == "" {
		return ErrMissingBody.Error()
	}
	return fmt.Sprintf("%v: %s", ErrMissingBody, e.Reason)
}

func (e *MissingBodyError) Is(target error) bool {
	return target == ErrMissingBody
}

// Page is one decoded upstream response.
type Page struct {
	Records    []models.RawRecord
	ResultCode string
	ResultMsg  string
	// TotalCount is the provider's totalCount, or -1 when it was not sent.
	TotalCount int
}

type envelope struct {
	Header *struct {
		ResultCode string `xml:"resultCode"`
		ResultMsg  string `xml:"resultMsg"`
	} `xml:"header"`
	Body *struct {
		Items struct {
			Item []item `xml:"item"`
		} `xml:"items"`
		TotalCount string `xml:"totalCount"`
	} `xml:"body"`
	CmmMsgHeader *struct {
		ErrMsg           string `xml:"errMsg"`
		ReturnAuthMsg    string `xml:"returnAuthMsg"`
		ReturnReasonCode string `xml:"returnReasonCode"`
	} `xml:"cmmMsgHeader"`
}

type item struct {
	Fields []field `xml:",any"`
}

type field struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// DecodePage decodes an upstream XML response into raw records. Tags and
// values are whitespace-trimmed; every other byte is kept as sent.
func DecodePage(body []byte) (*Page, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &MissingBodyError{Reason: "empty response"}
	}

	var env envelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response xml: %w", err)
	}

	if env.Body == nil {
		return nil, &MissingBodyError{Reason: missingBodyReason(&env)}
	}

	page := &Page{
		Records:    make([]models.RawRecord, 0, len(env.Body.Items.Item)),
		TotalCount: -1,
	}
	if env.Header != nil {
		page.ResultCode = strings.TrimSpace(env.Header.ResultCode)
		page.ResultMsg = strings.TrimSpace(env.Header.ResultMsg)
	}
	if tc := strings.TrimSpace(env.Body.TotalCount); tc != "" {
		n, err := strconv.Atoi(tc)
		if err != nil {
			return nil, fmt.Errorf("invalid totalCount %q: %w", tc, err)
		}
		page.TotalCount = n
	}

	for _, it := range env.Body.Items.Item {
		record := make(models.RawRecord, len(it.Fields))
		for _, f := range it.Fields {
			record[strings.TrimSpace(f.XMLName.Local)] = strings.TrimSpace(f.Value)
		}
		page.Records = append(page.Records, record)
	}

	return page, nil
}

func missingBodyReason(env *envelope) string {
	if h := env.CmmMsgHeader; h != nil {
		for _, s := range []string{h.ReturnAuthMsg, h.ErrMsg, h.ReturnReasonCode} {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	if env.Header != nil {
		return strings.TrimSpace(env.Header.ResultCode + " " + env.Header.ResultMsg)
	}
	return ""
}
