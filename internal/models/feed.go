package models

import "time"

// FeedToken is the persisted form of a feed capability; only the hash of the token is stored.
type FeedToken struct {
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the token is no longer valid at now.
func (t FeedToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IssuedToken is returned once to the caller at issuance time.
type IssuedToken struct {
	Token     string    `json:"token"`
	HTTPSURL  string    `json:"https_url"`
	WebcalURL string    `json:"webcal_url"`
	ExpiresAt time.Time `json:"expires_at"`
}
