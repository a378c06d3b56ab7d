// internal/models/customer.go
package models

// CustomerPreference is the per-request matching input for one customer.
// It is ephemeral: constructed for a matching run and discarded afterwards.
type CustomerPreference struct {
	CustomerID       string     `json:"customerId"`
	Location         Coordinate `json:"location"`
	Specialties      []string   `json:"specialties"`
	PriceMin         float64    `json:"priceMin"`
	PriceMax         float64    `json:"priceMax"`
	MinRating        float64    `json:"minRating"` // minimum acceptable 0-5 star rating
	PreferExperience bool       `json:"preferExperience"`
	PreferVerified   bool       `json:"preferVerified"`
	MaxDistanceKm    float64    `json:"maxDistanceKm"`

	// SubscriptionTier feeds the stylist-side tier preference strategy.
	// Non-paying customers share tier 0 and rank by arrival order.
	SubscriptionTier int `json:"subscriptionTier"`
}

// HasPriceRange reports whether the customer supplied a budget.
func (c *CustomerPreference) HasPriceRange() bool {
	return c.PriceMin != 0 || c.PriceMax != 0
}
