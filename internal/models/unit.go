package models

import "fmt"

// Region is a sigungu-level jurisdiction (5-digit LAWD_CD).
type Region struct {
	Code string `json:"code"`
	Name string `json:"name"`
	// APIServed is false for regions whose data is only served through their
	// finer sub-regions.
	APIServed bool `json:"api_served"`
}

// Unit is the fetch-and-load granularity: one region for one period.
type Unit struct {
	Region Region `json:"region"`
	Period Period `json:"period"`
}

func NewUnit(region Region, period Period) Unit {
	return Unit{Region: region, Period: period}
}

func (u Unit) String() string {
	if u.Region.Name != "" {
		return fmt.Sprintf("%s(%s)/%s", u.Region.Name, u.Region.Code, u.Period)
	}
	return fmt.Sprintf("%s/%s", u.Region.Code, u.Period)
}

// UnitCount is a unit with the number of rows the store holds for it.
type UnitCount struct {
	Unit Unit `json:"unit"`
	Rows int  `json:"rows"`
}
