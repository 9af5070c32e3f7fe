// internal/model/recipient.go
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type Status string

const (
	StatusNotSent Status = "not_sent"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Column names every recipient list must carry.
const (
	ColumnPhone = "Phone"
	ColumnName  = "Name"
)

var RequiredColumns = []string{
	ColumnPhone, ColumnName, "Age", "Sex", "Party Last Primary", "Precinct Name", "Zip Code",
}

// NotSentResult is the display string of a recipient nobody has sent to yet.
const NotSentResult = "Not Sent"

// Result strings starting with one of these were failures in files written
// before the typed status existed.
var legacyFailurePrefixes = []string{"Error", "Failed"}

func (s Status) Valid() bool {
	switch s {
	case StatusNotSent, StatusSent, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further send is allowed from this status.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusFailed
}

// Recipient is one row of a campaign plus its send outcome.
type Recipient struct {
	Name       string            `json:"name"`
	Phone      string            `json:"phone"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Status     Status            `json:"status"`
	Channel    string            `json:"channel,omitempty"`
	Detail     string            `json:"detail,omitempty"`
	TrackingID *string           `json:"tracking_id"`
}

// Result is the legacy one-line outcome string kept in the file so older
// readers keep classifying records the same way.
func (r *Recipient) Result() string {
	switch r.Status {
	case StatusSent:
		if r.Detail != "" {
			return r.Detail
		}
		if r.Channel != "" {
			return "Sent via " + r.Channel
		}
		return "Sent"
	case StatusFailed:
		if hasFailurePrefix(r.Detail) {
			return r.Detail
		}
		if r.Detail == "" {
			return "Error"
		}
		return "Error: " + r.Detail
	default:
		return NotSentResult
	}
}

// MarkSent moves a pending recipient to Sent.
func (r *Recipient) MarkSent(channel, detail, trackingID string) {
	r.Status = StatusSent
	r.Channel = channel
	r.Detail = detail
	r.TrackingID = &trackingID
}

// MarkFailed moves a pending recipient to Failed.
func (r *Recipient) MarkFailed(detail, trackingID string) {
	r.Status = StatusFailed
	r.Channel = ""
	r.Detail = detail
	r.TrackingID = &trackingID
}

// ClassifyLegacyResult maps a pre-status result string to its status.
func ClassifyLegacyResult(result string) Status {
	switch {
	case result == "" || result == NotSentResult:
		return StatusNotSent
	case hasFailurePrefix(result):
		return StatusFailed
	default:
		return StatusSent
	}
}

func hasFailurePrefix(s string) bool {
	for _, p := range legacyFailurePrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

type recipientAlias Recipient

type recipientJSON struct {
	recipientAlias
	Phone  flexString `json:"phone"`
	Result string     `json:"result"`
}

func (r Recipient) MarshalJSON() ([]byte, error) {
	return json.Marshal(recipientJSON{
		recipientAlias: recipientAlias(r),
		Phone:          flexString(r.Phone),
		Result:         r.Result(),
	})
}

func (r *Recipient) UnmarshalJSON(data []byte) error {
	var in recipientJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = Recipient(in.recipientAlias)
	r.Phone = string(in.Phone)

	if r.Status == "" {
		r.Status = ClassifyLegacyResult(in.Result)
		if r.Status != StatusNotSent {
			r.Detail = in.Result
		}
		return nil
	}
	if !r.Status.Valid() {
		return fmt.Errorf("recipient %q: unknown status %q", r.Name, r.Status)
	}
	return nil
}

// flexString accepts a JSON string or number. Spreadsheet imports wrote
// phone numbers as integers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("phone: %w", err)
	}
	*f = flexString(n.String())
	return nil
}
