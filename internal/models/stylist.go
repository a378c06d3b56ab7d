// internal/models/stylist.go
package models

import "time"

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PriceRange is the hourly price band a stylist charges. A stylist with a
// single fixed price carries Min == Max. Zero values mean "no price data".
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// IsZero reports whether no price data is present.
func (p PriceRange) IsZero() bool {
	return p.Min == 0 && p.Max == 0
}

// Stylist is a service provider record. Stylists are never deleted, only
// deactivated via the Available flag.
type Stylist struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Location        Coordinate `json:"location"`
	Specialties     []string   `json:"specialties"`
	Price           PriceRange `json:"price"`
	ExperienceYears int        `json:"experienceYears"`
	IsVerified      bool       `json:"isVerified"`
	AverageRating   float64    `json:"averageRating"` // 0-5 customer star rating
	SkillRating     int        `json:"skillRating"`   // Elo, default 1200
	Available       bool       `json:"available"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// HasSpecialty reports whether the stylist carries the given tag.
func (s *Stylist) HasSpecialty(tag string) bool {
	for _, t := range s.Specialties {
		if t == tag {
			return true
		}
	}
	return false
}
