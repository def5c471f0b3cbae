package model

import "time"

// State is the top-level jurisdiction. ExpirationDate nil means the state's
// fee data is open-ended.
type State struct {
	Code           string     `json:"state_code" db:"state_code"`
	Name           string     `json:"state_name" db:"state_name"`
	EffectiveDate  time.Time  `json:"effective_date" db:"effective_date"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty" db:"expiration_date"`
	HasRegions     bool       `json:"has_regions" db:"has_regions"`
	DataSource     *string    `json:"data_source,omitempty" db:"data_source"`
	DataURL        *string    `json:"data_url,omitempty" db:"data_url"`
	Notes          *string    `json:"notes,omitempty" db:"notes"`
}

// Region subdivides a state for rate purposes (county, locality, district).
// (state_code, region_type, region_code) is unique.
type Region struct {
	ID         int64   `json:"id" db:"region_id"`
	StateCode  string  `json:"state_code" db:"state_code"`
	RegionType string  `json:"region_type" db:"region_type"`
	RegionCode string  `json:"region_code" db:"region_code"`
	RegionName *string `json:"region_name,omitempty" db:"region_name"`
}

// ZipCode enriches a ZIP with geography. A ZIP maps to at most one region per
// region type within a state, via zip_region_map.
type ZipCode struct {
	Zip         string    `json:"zip_code" db:"zip_code"`
	City        *string   `json:"city,omitempty" db:"city"`
	StateCode   string    `json:"state_code" db:"state_code"`
	County      *string   `json:"county,omitempty" db:"county"`
	Latitude    *float64  `json:"latitude,omitempty" db:"latitude"`
	Longitude   *float64  `json:"longitude,omitempty" db:"longitude"`
	Active      bool      `json:"active" db:"active"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
}
