package model

import "time"

// UserStats is the per-user derived summary embedded on the user
// entity. It is a projection over the user's score records: the score
// log stays authoritative and the projection is recomputed from a full
// scan on every ingestion, never patched incrementally.
type UserStats struct {
	TotalGamesPlayed int        `json:"totalGamesPlayed"`
	BestOverallScore float64    `json:"bestOverallScore"`
	AverageAccuracy  float64    `json:"averageAccuracy"`
	LastPlayed       *time.Time `json:"lastPlayed"`
}

// User is a player entity. Account management and authentication live
// outside this service; only the fields the score pipeline touches are
// modeled.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Stats     UserStats `json:"stats"`
	CreatedAt time.Time `json:"createdAt"`
}

// PublicProfile is the subset of user fields joined into rankings and
// dashboard listings.
type PublicProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Public returns the user's public profile fields.
func (u User) Public() PublicProfile {
	return PublicProfile{ID: u.ID, Name: u.Name, Email: u.Email}
}
