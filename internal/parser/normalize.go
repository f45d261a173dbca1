package parser

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ThiagoRGoveia/apt-trades/internal/models"
	"github.com/ThiagoRGoveia/apt-trades/pkg/checksum"
	"github.com/shopspring/decimal"
)

// IDFunc produces the per-record identifier. seq is 1-based within the page.
type IDFunc func(unit models.Unit, seq int, raw models.RawRecord) string

// SequenceID builds YYYYMM_NNNN from the page position. It is only stable
// while the provider keeps its result ordering between requests.
func SequenceID(unit models.Unit, seq int, _ models.RawRecord) string {
	return fmt.Sprintf("%s_%04d", unit.Period, seq)
}

// Normalizer maps raw provider records onto CanonicalRecord.
type Normalizer struct {
	dialects []Dialect
	idFunc   IDFunc
	now      func() time.Time
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		dialects: DefaultDialects,
		idFunc:   SequenceID,
		now:      time.Now,
	}
}

func (n *Normalizer) WithDialects(dialects ...Dialect) *Normalizer {
	n.dialects = dialects
	return n
}

func (n *Normalizer) WithIDFunc(fn IDFunc) *Normalizer {
	n.idFunc = fn
	return n
}

func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	n.now = now
	return n
}

// Normalize converts every raw record of a unit. It returns either exactly
// len(raws) records or an error; there is no partial result. The dialect is
// chosen from the first record and must match every record of the page. A tag
// the dialect neither maps nor ignores fails the page.
func (n *Normalizer) Normalize(unit models.Unit, raws []models.RawRecord) ([]models.CanonicalRecord, error) {
	if len(raws) == 0 {
		return []models.CanonicalRecord{}, nil
	}

	dialect, ok := DetectDialect(n.dialects, raws[0])
	if !ok {
		return nil, &models.SchemaMismatchError{Seq: 1, Field: missingRequiredTags(n.dialects, raws[0]), Err: models.ErrUnknownDialect}
	}

	loadedAt := n.now()
	records := make([]models.CanonicalRecord, 0, len(raws))
	for i, raw := range raws {
		seq := i + 1
		rec, err := normalizeRecord(dialect, raw, seq)
		if err != nil {
			return nil, err
		}
		rec.ID = n.idFunc(unit, seq, raw)
		rec.RegionCode = unit.Region.Code
		rec.Period = unit.Period
		rec.LoadedAt = loadedAt
		records = append(records, rec)
	}

	return records, nil
}

type recordReader struct {
	dialect Dialect
	raw     models.RawRecord
	seq     int
	err     error
}

func (r *recordReader) fail(f Field, value string, err error) {
	if r.err == nil {
		r.err = &models.SchemaMismatchError{Dialect: r.dialect.Name, Field: r.dialect.Tag(f), Value: value, Seq: r.seq, Err: err}
	}
}

func (r *recordReader) required(f Field) string {
	tag := r.dialect.Tag(f)
	v, ok := r.raw[tag]
	if !ok {
		r.fail(f, "", fmt.Errorf("required field missing"))
		return ""
	}
	if v == "" {
		r.fail(f, "", fmt.Errorf("required field blank"))
	}
	return v
}

// optional returns nil for a blank or absent value.
func (r *recordReader) optional(f Field) *string {
	tag := r.dialect.Tag(f)
	if tag == "" {
		return nil
	}
	v := strings.TrimSpace(r.raw[tag])
	if v == "" {
		return nil
	}
	return &v
}

func (r *recordReader) requiredInt(f Field) int {
	v := r.required(f)
	if r.err != nil {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(f, v, err)
	}
	return n
}

func (r *recordReader) optionalInt(f Field) *int {
	v := r.optional(f)
	if v == nil {
		return nil
	}
	n, err := strconv.Atoi(*v)
	if err != nil {
		r.fail(f, *v, err)
		return nil
	}
	return &n
}

func (r *recordReader) amount(f Field) int64 {
	v := r.required(f)
	if r.err != nil {
		return 0
	}
	cleaned := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		r.fail(f, v, err)
	}
	return n
}

func (r *recordReader) area(f Field) decimal.Decimal {
	v := r.required(f)
	if r.err != nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", ""))
	if err != nil {
		r.fail(f, v, err)
	}
	return d
}

// flag maps the provider's O/X marker. Blank means no cancellation was
// registered, which the current API sends instead of X.
func (r *recordReader) flag(f Field) bool {
	v := r.optional(f)
	if v == nil {
		return false
	}
	switch strings.ToUpper(*v) {
	case "O":
		return true
	case "X":
		return false
	}
	r.fail(f, *v, fmt.Errorf("expected O or X"))
	return false
}

func (r *recordReader) date() time.Time {
	year := r.requiredInt(FieldDealYear)
	month := r.requiredInt(FieldDealMonth)
	day := r.requiredInt(FieldDealDay)
	if r.err != nil {
		return time.Time{}
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || int(d.Month()) != month || d.Day() != day {
		r.fail(FieldDealDay, fmt.Sprintf("%d-%d-%d", year, month, day), fmt.Errorf("invalid calendar date"))
		return time.Time{}
	}
	return d
}

func normalizeRecord(dialect Dialect, raw models.RawRecord, seq int) (models.CanonicalRecord, error) {
	if tag, ok := dialect.UnmappedTag(raw); ok {
		return models.CanonicalRecord{}, &models.SchemaMismatchError{Dialect: dialect.Name, Field: tag, Value: raw[tag], Seq: seq, Err: models.ErrUnmappedField}
	}
	r := &recordReader{dialect: dialect, raw: raw, seq: seq}

	rec := models.CanonicalRecord{
		DealAmount: r.amount(FieldDealAmount),
		DealDate:   r.date(),
		Size:       r.area(FieldSize),
		Floor:      r.optionalInt(FieldFloor),
		BuildYear:  r.optionalInt(FieldBuildYear),
		Cancelled:  r.flag(FieldCancelFlag),
		CancelDate: r.optional(FieldCancelDate),
		DealType:   r.optional(FieldDealType),

		ApartmentName:  r.optional(FieldApartmentName),
		Dong:           r.optional(FieldDong),
		Jibun:          r.optional(FieldJibun),
		RegNo:          r.optional(FieldRegNo),
		DealerLocation: r.optional(FieldDealerLocation),

		RoadName:             r.optional(FieldRoadName),
		RoadNameBonbun:       r.optional(FieldRoadNameBonbun),
		RoadNameBubun:        r.optional(FieldRoadNameBubun),
		RoadNameSigunguCode:  r.optional(FieldRoadNameSigunguCode),
		RoadNameSeq:          r.optional(FieldRoadNameSeq),
		RoadNameBasementCode: r.optional(FieldRoadNameBasementCode),
		RoadNameCode:         r.optional(FieldRoadNameCode),

		Bonbun:      r.optional(FieldBonbun),
		Bubun:       r.optional(FieldBubun),
		SigunguCode: r.optional(FieldSigunguCode),
		EmdCode:     r.optional(FieldEmdCode),
		LandCode:    r.optional(FieldLandCode),

		Dialect: dialect.Name,
		RowHash: rawHash(raw),
	}
	if r.err != nil {
		return models.CanonicalRecord{}, r.err
	}

	return rec, nil
}

// rawHash fingerprints the provider content independent of tag order.
func rawHash(raw models.RawRecord) string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]string, len(keys))
	for i, k := range keys {
		fields[i] = k + "=" + raw[k]
	}
	return checksum.CalculateHash(fields)
}

func missingRequiredTags(dialects []Dialect, raw models.RawRecord) string {
	var missing []string
	for _, d := range dialects {
		for _, f := range requiredFields {
			if _, ok := raw[d.Tag(f)]; !ok {
				missing = append(missing, d.Name+":"+d.Tag(f))
			}
		}
	}
	return strings.Join(missing, ",")
}
