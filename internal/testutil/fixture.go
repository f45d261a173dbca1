// Package testutil builds upstream API responses for tests.
package testutil

import (
	"fmt"
	"strings"
)

// Item is one <item> as ordered tag/value pairs.
type Item [][2]string

// NewAPIItem returns a record in the current camelCase dialect.
func NewAPIItem(period string, day int, amount string) Item {
	return Item{
		{"aptDong", ""},
		{"aptNm", "경희궁의아침3단지"},
		{"aptSeq", "11110-2203"},
		{"bonbun", "0071"},
		{"bubun", "0000"},
		{"buildYear", "2004"},
		{"buyerGbn", "개인"},
		{"cdealDay", ""},
		{"cdealType", ""},
		{"dealAmount", amount},
		{"dealDay", fmt.Sprint(day)},
		{"dealMonth", strings.TrimLeft(period[4:], "0")},
		{"dealYear", period[:4]},
		{"dealingGbn", "중개거래"},
		{"estateAgentSggNm", "서울 종로구"},
		{"excluUseAr", "84.9775"},
		{"floor", "9"},
		{"jibun", "71"},
		{"landCd", "1"},
		{"rgstDate", ""},
		{"roadNm", "송월길"},
		{"roadNmBonbun", "00099"},
		{"roadNmBubun", "00000"},
		{"roadNmCd", "4100135"},
		{"roadNmSeq", "01"},
		{"roadNmSggCd", "11110"},
		{"roadNmbCd", "0"},
		{"sggCd", "11110"},
		{"umdCd", "11500"},
		{"umdNm", "평동"},
	}
}

// NewLegacyItem returns a record in the Korean-labelled dialect.
func NewLegacyItem(period string, day int, amount string) Item {
	return Item{
		{"거래금액", amount},
		{"거래유형", "중개거래"},
		{"건축년도", "2008"},
		{"년", period[:4]},
		{"도로명", "사직로8길"},
		{"도로명건물본번호코드", "00004"},
		{"도로명건물부번호코드", "00000"},
		{"도로명시군구코드", "11110"},
		{"도로명일련번호코드", "03"},
		{"도로명지상지하코드", "0"},
		{"도로명코드", "4100135"},
		{"법정동", "사직동"},
		{"법정동본번코드", "0009"},
		{"법정동부번코드", "0000"},
		{"법정동시군구코드", "11110"},
		{"법정동읍면동코드", "11500"},
		{"법정동지번코드", "1"},
		{"아파트", "광화문풍림스페이스본"},
		{"월", strings.TrimLeft(period[4:], "0")},
		{"일", fmt.Sprint(day)},
		{"일련번호", "11110-2203"},
		{"전용면적", "94.51"},
		{"중개사소재지", "서울 종로구"},
		{"지번", "9"},
		{"지역코드", "11110"},
		{"층", "11"},
		{"해제사유발생일", ""},
		{"해제여부", "X"},
		{"등기일자", ""},
	}
}

// With returns a copy of the item with tag set to value, appending it when
// absent.
func (it Item) With(tag, value string) Item {
	out := make(Item, 0, len(it)+1)
	found := false
	for _, kv := range it {
		if kv[0] == tag {
			kv[1] = value
			found = true
		}
		out = append(out, kv)
	}
	if !found {
		out = append(out, [2]string{tag, value})
	}
	return out
}

// Without returns a copy of the item without tag.
func (it Item) Without(tag string) Item {
	out := make(Item, 0, len(it))
	for _, kv := range it {
		if kv[0] != tag {
			out = append(out, kv)
		}
	}
	return out
}

// Map returns the item as a tag -> value map.
func (it Item) Map() map[string]string {
	m := make(map[string]string, len(it))
	for _, kv := range it {
		m[kv[0]] = kv[1]
	}
	return m
}

// PageXML renders a successful response. totalCount < 0 omits the element.
func PageXML(items []Item, numOfRows, totalCount int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	b.WriteString(`<response><header><resultCode>000</resultCode><resultMsg>OK</resultMsg></header><body><items>`)
	for _, it := range items {
		b.WriteString("<item>")
		for _, kv := range it {
			// the provider pads values with spaces
			fmt.Fprintf(&b, "<%s> %s </%s>", kv[0], escape(kv[1]), kv[0])
		}
		b.WriteString("</item>")
	}
	b.WriteString("</items>")
	fmt.Fprintf(&b, "<numOfRows>%d</numOfRows><pageNo>1</pageNo>", numOfRows)
	if totalCount >= 0 {
		fmt.Fprintf(&b, "<totalCount>%d</totalCount>", totalCount)
	}
	b.WriteString("</body></response>")
	return b.String()
}

// QuotaExceededXML is what the provider answers once the daily quota is spent.
const QuotaExceededXML = `<OpenAPI_ServiceResponse><cmmMsgHeader><errMsg>SERVICE ERROR</errMsg>` +
	`<returnAuthMsg>LIMITED_NUMBER_OF_SERVICE_REQUESTS_EXCEEDS_ERROR</returnAuthMsg>` +
	`<returnReasonCode>22</returnReasonCode></cmmMsgHeader></OpenAPI_ServiceResponse>`

// APIItems returns n current-dialect items for a period.
func APIItems(period string, n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = NewAPIItem(period, i%28+1, fmt.Sprintf("%d,%03d", 50+i%50, i%1000))
	}
	return items
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
