// internal/models/match.go
package models

import "time"

// MatchStatus is the lifecycle state of a produced pair. A match is created
// "proposed" by the engine; downstream booking collaborators move it to a
// terminal state. Terminal matches are immutable.
type MatchStatus string

const (
	MatchStatusProposed MatchStatus = "proposed"
	MatchStatusAccepted MatchStatus = "accepted"
	MatchStatusRejected MatchStatus = "rejected"
	MatchStatusExpired  MatchStatus = "expired"
)

// IsTerminal reports whether the status forbids further transitions.
func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusAccepted || s == MatchStatusRejected || s == MatchStatusExpired
}

// Match is one produced (customer, stylist) pair with its score as computed
// at assignment time. The score is never recomputed retroactively.
type Match struct {
	ID         string      `json:"id"`
	RunID      string      `json:"runId"`
	CustomerID string      `json:"customerId"`
	StylistID  string      `json:"stylistId"`
	Score      float64     `json:"score"` // 0-100
	Status     MatchStatus `json:"status"`
	Algorithm  string      `json:"algorithm"` // scoring/matching variant tag
	Reason     string      `json:"reason"`    // human-readable match reason
	CreatedAt  time.Time   `json:"createdAt"`
}

// RatingRecord is the stored Elo skill rating for one stylist.
type RatingRecord struct {
	StylistID string    `json:"stylistId"`
	Rating    int       `json:"rating"`
	UpdatedAt time.Time `json:"updatedAt"`
}
