// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSendInProgress is returned when a send is attempted while another is in flight.
	ErrSendInProgress = errors.New("another send is in progress, wait for it to finish")

	// ErrRecipientNotPending is returned when re-sending to a recipient that already reached Sent or Failed.
	ErrRecipientNotPending = errors.New("recipient is no longer pending")

	// ErrResponsesUnsupported is returned when the configured channel cannot read replies.
	ErrResponsesUnsupported = errors.New("channel cannot read responses")
)

// ErrCampaignNotFound is returned when no campaign matches a name
type ErrCampaignNotFound struct {
	Name string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign %q not found", e.Name)
}

// Helper constructor
func NewCampaignNotFound(name string) error {
	return &ErrCampaignNotFound{Name: name}
}

// ValidationError reports malformed or missing campaign input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NewMissingColumns builds the error reported when the recipient header lacks required columns.
func NewMissingColumns(missing []string) error {
	return &ValidationError{
		Field:  "recipients",
		Reason: "missing required columns: " + strings.Join(missing, ", "),
	}
}

// ImportError reports a recipient file that could not be decoded in any of the tried encodings.
type ImportError struct {
	Tried []string
	Err   error
}

func (e *ImportError) Error() string {
	if len(e.Tried) == 0 {
		return fmt.Sprintf("import recipients: %v", e.Err)
	}
	return fmt.Sprintf("import recipients (tried %s): %v", strings.Join(e.Tried, ", "), e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// ChannelError is a channel failure for a single recipient. Op is empty for a send.
type ChannelError struct {
	Channel string
	Op      string
	Phone   string
	Detail  string
	Err     error
}

func (e *ChannelError) Error() string {
	msg := fmt.Sprintf("%s send to %s failed", e.Channel, e.Phone)
	if e.Op != "" {
		msg = fmt.Sprintf("%s %s for %s failed", e.Channel, e.Op, e.Phone)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ChannelError) Unwrap() error { return e.Err }

// StoreError is a persistence failure. A missing file is not a StoreError.
type StoreError struct {
	Op   string
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func NewStoreError(op, path string, err error) error {
	return &StoreError{Op: op, Path: path, Err: err}
}

// IsValidation reports whether err is a ValidationError or ImportError.
func IsValidation(err error) bool {
	var ve *ValidationError
	var ie *ImportError
	return errors.As(err, &ve) || errors.As(err, &ie)
}

// IsNotFound reports whether err is an ErrCampaignNotFound.
func IsNotFound(err error) bool {
	var nf *ErrCampaignNotFound
	return errors.As(err, &nf)
}

// IsConflict reports whether err means the send cannot proceed right now or ever.
func IsConflict(err error) bool {
	return errors.Is(err, ErrSendInProgress) || errors.Is(err, ErrRecipientNotPending)
}
