package parser

import "sort"

// Field is a canonical record attribute that a dialect maps a provider tag onto.
type Field string

const (
	FieldDealAmount           Field = "deal_amount"
	FieldDealYear             Field = "deal_year"
	FieldDealMonth            Field = "deal_month"
	FieldDealDay              Field = "deal_day"
	FieldSize                 Field = "size"
	FieldFloor                Field = "floor"
	FieldBuildYear            Field = "build_year"
	FieldCancelFlag           Field = "cancel_deal_yn"
	FieldCancelDate           Field = "cancel_date"
	FieldDealType             Field = "deal_type"
	FieldApartmentName        Field = "apartment_name"
	FieldDong                 Field = "dong"
	FieldJibun                Field = "jibun"
	FieldRegNo                Field = "reg_no"
	FieldDealerLocation       Field = "dealer_location"
	FieldRoadName             Field = "road_name"
	FieldRoadNameBonbun       Field = "road_name_bonbun"
	FieldRoadNameBubun        Field = "road_name_bubun"
	FieldRoadNameSigunguCode  Field = "road_name_sigungu_code"
	FieldRoadNameSeq          Field = "road_name_seq"
	FieldRoadNameBasementCode Field = "road_name_basement_code"
	FieldRoadNameCode         Field = "road_name_code"
	FieldBonbun               Field = "bonbun"
	FieldBubun                Field = "bubun"
	FieldSigunguCode          Field = "sigungu_code"
	FieldEmdCode              Field = "emd_code"
	FieldLandCode             Field = "land_code"
)

// requiredFields must be present in every record, and are what dialect
// detection keys on.
var requiredFields = []Field{
	FieldDealAmount,
	FieldDealYear,
	FieldDealMonth,
	FieldDealDay,
	FieldSize,
}

// Dialect is one provider field-naming convention. Every tag a record
// carries must be either mapped in Tags or listed in Ignored.
type Dialect struct {
	Name    string
	Version int
	Tags    map[Field]string
	Ignored map[string]bool
}

// Tag returns the provider tag for a canonical field, or "" when the dialect
// does not carry it.
func (d Dialect) Tag(f Field) string {
	return d.Tags[f]
}

// Matches reports whether every required field of the dialect is present in
// the record's tag set. Values may be blank.
func (d Dialect) Matches(fields map[string]string) bool {
	for _, f := range requiredFields {
		tag, ok := d.Tags[f]
		if !ok {
			return false
		}
		if _, ok := fields[tag]; !ok {
			return false
		}
	}
	return true
}

// UnmappedTag returns the first tag, in sorted order, that the dialect
// neither maps nor ignores.
func (d Dialect) UnmappedTag(fields map[string]string) (string, bool) {
	mapped := make(map[string]bool, len(d.Tags))
	for _, tag := range d.Tags {
		mapped[tag] = true
	}

	var unknown []string
	for tag := range fields {
		if !mapped[tag] && !d.Ignored[tag] {
			unknown = append(unknown, tag)
		}
	}
	if len(unknown) == 0 {
		return "", false
	}
	sort.Strings(unknown)
	return unknown[0], true
}

// LegacyKorean is the Korean-labelled dialect served by the original
// openapi.molit.go.kr endpoints.
var LegacyKorean = Dialect{
	Name:    "legacy-ko",
	Version: 1,
	Tags: map[Field]string{
		FieldDealAmount:           "거래금액",
		FieldDealYear:             "년",
		FieldDealMonth:            "월",
		FieldDealDay:              "일",
		FieldSize:                 "전용면적",
		FieldFloor:                "층",
		FieldBuildYear:            "건축년도",
		FieldCancelFlag:           "해제여부",
		FieldCancelDate:           "해제사유발생일",
		FieldDealType:             "거래유형",
		FieldApartmentName:        "아파트",
		FieldDong:                 "법정동",
		FieldJibun:                "지번",
		FieldRegNo:                "일련번호",
		FieldDealerLocation:       "중개사소재지",
		FieldRoadName:             "도로명",
		FieldRoadNameBonbun:       "도로명건물본번호코드",
		FieldRoadNameBubun:        "도로명건물부번호코드",
		FieldRoadNameSigunguCode:  "도로명시군구코드",
		FieldRoadNameSeq:          "도로명일련번호코드",
		FieldRoadNameBasementCode: "도로명지상지하코드",
		FieldRoadNameCode:         "도로명코드",
		FieldBonbun:               "법정동본번코드",
		FieldBubun:                "법정동부번코드",
		FieldSigunguCode:          "법정동시군구코드",
		FieldEmdCode:              "법정동읍면동코드",
		FieldLandCode:             "법정동지번코드",
	},
	Ignored: map[string]bool{
		"지역코드": true,
		"등기일자": true,
	},
}

// APIEnglish is the camelCase dialect served by apis.data.go.kr.
var APIEnglish = Dialect{
	Name:    "api-en",
	Version: 2,
	Tags: map[Field]string{
		FieldDealAmount:           "dealAmount",
		FieldDealYear:             "dealYear",
		FieldDealMonth:            "dealMonth",
		FieldDealDay:              "dealDay",
		FieldSize:                 "excluUseAr",
		FieldFloor:                "floor",
		FieldBuildYear:            "buildYear",
		FieldCancelFlag:           "cdealType",
		FieldCancelDate:           "cdealDay",
		FieldDealType:             "dealingGbn",
		FieldApartmentName:        "aptNm",
		FieldDong:                 "umdNm",
		FieldJibun:                "jibun",
		FieldRegNo:                "aptSeq",
		FieldDealerLocation:       "estateAgentSggNm",
		FieldRoadName:             "roadNm",
		FieldRoadNameBonbun:       "roadNmBonbun",
		FieldRoadNameBubun:        "roadNmBubun",
		FieldRoadNameSigunguCode:  "roadNmSggCd",
		FieldRoadNameSeq:          "roadNmSeq",
		FieldRoadNameBasementCode: "roadNmbCd",
		FieldRoadNameCode:         "roadNmCd",
		FieldBonbun:               "bonbun",
		FieldBubun:                "bubun",
		FieldSigunguCode:          "sggCd",
		FieldEmdCode:              "umdCd",
		FieldLandCode:             "landCd",
	},
	// sggCd already carries the region; the rest are not stored.
	Ignored: map[string]bool{
		"aptDong":          true,
		"buyerGbn":         true,
		"slerGbn":          true,
		"rgstDate":         true,
		"landLeaseholdGbn": true,
	},
}

// DefaultDialects is tried newest first.
var DefaultDialects = []Dialect{APIEnglish, LegacyKorean}

// DetectDialect picks the first dialect whose required tags are all present.
func DetectDialect(dialects []Dialect, fields map[string]string) (Dialect, bool) {
	for _, d := range dialects {
		if d.Matches(fields) {
			return d, true
		}
	}
	return Dialect{}, false
}
