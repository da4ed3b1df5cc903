package place

import "github.com/dharsanguruparan/MapPoster/internal/model"

// Address holds the structured address components a geocoder reports.
type Address struct {
	Country      string
	City         string
	Town         string
	Village      string
	Municipality string
	County       string
	State        string
	Region       string
	Province     string
}

// Candidate is one geocoder response under evaluation.
type Candidate struct {
	// FormattedAddress is the free-text address line.
	FormattedAddress string
	DisplayName      string
	Address          Address
	// NameDetails holds alias names keyed by tag (name, name:en, official_name, ...).
	NameDetails map[string]string
	Point       model.Point
}

// nameFields returns every candidate field that may carry the place name, in
// the order they are compared.
func (c *Candidate) nameFields() []namedField {
	fields := []namedField{
		{"city", c.Address.City},
		{"town", c.Address.Town},
		{"village", c.Address.Village},
		{"municipality", c.Address.Municipality},
		{"county", c.Address.County},
		{"state", c.Address.State},
		{"region", c.Address.Region},
		{"province", c.Address.Province},
		{"address", c.FormattedAddress},
		{"display_name", c.DisplayName},
	}
	for _, key := range sortedKeys(c.NameDetails) {
		fields = append(fields, namedField{"namedetails." + key, c.NameDetails[key]})
	}
	return fields
}

type namedField struct {
	name  string
	value string
}
