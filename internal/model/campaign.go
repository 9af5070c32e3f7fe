// internal/model/campaign.go
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Campaign is one named batch of personalized messages. The JSON names match
// the campaigns.json files written by earlier versions of the tool.
type Campaign struct {
	Name            string                     `json:"name"`
	CreatedAt       Timestamp                  `json:"date"`
	MessageTemplate string                     `json:"message_text"`
	Image           []byte                     `json:"image_data"`
	BaseURL         string                     `json:"base_url"`
	Recipients      []*Recipient               `json:"results"`
	Tracking        map[string]*TrackingRecord `json:"tracking_info"`
}

// Timestamp reads both RFC 3339 and the zone-less ISO-8601 form older files carry.
type Timestamp struct {
	time.Time
}

var legacyTimestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("campaign date: %w", err)
	}
	s = strings.TrimSpace(s)
	for _, layout := range legacyTimestampLayouts {
		parsed, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("campaign date: unrecognised timestamp %q", s)
}
