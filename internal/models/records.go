package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawRecord is one <item> of an upstream page: provider tag -> trimmed text.
type RawRecord map[string]string

// CanonicalRecord is a RawRecord after normalization. Pointer fields are nil
// when the provider sent a blank value.
type CanonicalRecord struct {
	ID         string    `json:"id"`
	RegionCode string    `json:"region_code"`
	Period     Period    `json:"deal_ym"`
	DealDate   time.Time `json:"deal_date"`
	// DealAmount is in units of 10,000 KRW, as published.
	DealAmount int64           `json:"deal_amount"`
	Size       decimal.Decimal `json:"size"`
	Floor      *int            `json:"floor,omitempty"`
	BuildYear  *int            `json:"build_year,omitempty"`
	Cancelled  bool            `json:"cancelled"`
	CancelDate *string         `json:"cancel_date,omitempty"`
	DealType   *string         `json:"deal_type,omitempty"`

	ApartmentName  *string `json:"apartment_name,omitempty"`
	Dong           *string `json:"dong,omitempty"`
	Jibun          *string `json:"jibun,omitempty"`
	RegNo          *string `json:"reg_no,omitempty"`
	DealerLocation *string `json:"dealer_location,omitempty"`

	RoadName             *string `json:"road_name,omitempty"`
	RoadNameBonbun       *string `json:"road_name_bonbun,omitempty"`
	RoadNameBubun        *string `json:"road_name_bubun,omitempty"`
	RoadNameSigunguCode  *string `json:"road_name_sigungu_code,omitempty"`
	RoadNameSeq          *string `json:"road_name_seq,omitempty"`
	RoadNameBasementCode *string `json:"road_name_basement_code,omitempty"`
	RoadNameCode         *string `json:"road_name_code,omitempty"`

	Bonbun      *string `json:"bonbun,omitempty"`
	Bubun       *string `json:"bubun,omitempty"`
	SigunguCode *string `json:"sigungu_code,omitempty"`
	EmdCode     *string `json:"emd_code,omitempty"`
	LandCode    *string `json:"land_code,omitempty"`

	Dialect  string    `json:"dialect"`
	RowHash  string    `json:"row_hash"`
	LoadedAt time.Time `json:"loaded_at"`
}

func (r *CanonicalRecord) IsValid() bool {
	return r.ID != "" &&
		r.RegionCode != "" &&
		!r.Period.IsZero() &&
		!r.DealDate.IsZero() &&
		!r.LoadedAt.IsZero()
}
