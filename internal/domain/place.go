package domain

// Place is a point of interest from the catalog.
// ExternalID is the natural key: globally unique and stable across sessions.
// A trip never changes a Place's fields, only which day it belongs to.
type Place struct {
	ExternalID  string  `json:"external_id" yaml:"external_id"`
	Name        string  `json:"name" yaml:"name"`
	Lat         float64 `json:"lat" yaml:"lat"`
	Lng         float64 `json:"lng" yaml:"lng"`
	PhotoURL    string  `json:"photo_url,omitempty" yaml:"photo_url"`
	Category    string  `json:"category,omitempty" yaml:"category"`
	City        string  `json:"city,omitempty" yaml:"city"`
	Region      string  `json:"region,omitempty" yaml:"region"`
	Rating      float64 `json:"rating,omitempty" yaml:"rating"`
	ReviewCount int     `json:"review_count,omitempty" yaml:"review_count"`
}

// Region is a named area a trip can be scoped to. Lat/Lng is its centre, used
// to centre the map and as the origin for radius suggestions.
type Region struct {
	Key  string  `json:"key" yaml:"key"`
	Name string  `json:"name" yaml:"name"`
	Lat  float64 `json:"lat" yaml:"lat"`
	Lng  float64 `json:"lng" yaml:"lng"`
}
