// internal/model/tracking.go
package model

import "time"

// TrackingRecord is what a campaign keeps per tracking id.
type TrackingRecord struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Clicked bool   `json:"clicked"`
}

// TrackingEntry is one line of the flat tracking_info.json collection that a
// click-logging service reads.
type TrackingEntry struct {
	ID        string    `json:"id"`
	Campaign  string    `json:"campaign"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	URL       string    `json:"url"`
	Clicked   bool      `json:"clicked"`
	CreatedAt time.Time `json:"created_at"`
}

// OutcomeEvent is published after every send attempt.
type OutcomeEvent struct {
	Campaign    string    `json:"campaign"`
	Index       int       `json:"index"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Status      Status    `json:"status"`
	Channel     string    `json:"channel,omitempty"`
	Detail      string    `json:"detail"`
	TrackingID  string    `json:"tracking_id"`
	TrackingURL string    `json:"tracking_url"`
	At          time.Time `json:"at"`
}
