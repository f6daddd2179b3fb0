// Package audit records administrative events (cronjob runs, analytics
// linking changes) in an append-only, hash-chained log.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EventType names what happened.
type EventType string

// Event types.
const (
	EventCronjobRun    EventType = "cronjob_run"
	EventCronjobFailed EventType = "cronjob_failed"
	EventLinkSaved     EventType = "link_saved"
	EventLinkReset     EventType = "link_reset"
)

// Severity of an event.
type Severity string

// Severities.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Event is one audit record.
type Event struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	Type         EventType      `json:"event"`
	Severity     Severity       `json:"severity"`
	InvocationID string         `json:"invocation_id,omitempty"`
	Module       string         `json:"module,omitempty"`
	Action       string         `json:"action,omitempty"`
	Language     string         `json:"language,omitempty"`
	Duration     time.Duration  `json:"-"`
	Success      bool           `json:"success"`
	Error        string         `json:"error,omitempty"`
	Details      map[string]any `json:"details,omitempty"`

	// PreviousHash links to the event logged before this one.
	PreviousHash string `json:"previous_hash,omitempty"`
	EventHash    string `json:"event_hash,omitempty"`
}


// MarshalJSON encodes Duration as milliseconds.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	return json.Marshal(struct {
		plain
		DurationMs int64 `json:"duration_ms,omitempty"`
	}{plain: plain(e), DurationMs: e.Duration.Milliseconds()})
}

// UnmarshalJSON decodes duration_ms back into Duration.
func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	aux := struct {
		*plain
		DurationMs int64 `json:"duration_ms,omitempty"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.Duration = time.Duration(aux.DurationMs) * time.Millisecond
	return nil
}

// Validate checks the required fields.
func (e Event) Validate() error {
	switch {
	case e.ID == "":
		return errors.New("event ID is required")
	case e.Type == "":
		return errors.New("event type is required")
	case e.Timestamp.IsZero():
		return errors.New("event timestamp is required")
	case e.Severity == "":
		return errors.New("event severity is required")
	}
	return nil
}

// ComputeHash returns the SHA-256 of the event without its own hash.
func (e Event) ComputeHash() string {
	e.EventHash = ""
	data, err := json.Marshal(e)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyHash reports whether EventHash matches the content.
func (e Event) VerifyHash() bool {
	return e.EventHash == "" || e.EventHash == e.ComputeHash()
}

// Seal links e to previous and fills EventHash.
func (e *Event) Seal(previous string) {
	e.PreviousHash = previous
	e.EventHash = e.ComputeHash()
}

// Builder assembles an Event.
type Builder struct {
	event Event
}

// NewEvent starts an event of the given type, successful by default.
func NewEvent(t EventType) *Builder {
	return &Builder{event: Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Type:      t,
		Severity:  SeverityInfo,
		Success:   true,
	}}
}

// For sets invocation, module and action.
func (b *Builder) For(invocationID, module, action string) *Builder {
	b.event.InvocationID = invocationID
	b.event.Module = module
	b.event.Action = action
	return b
}

func (b *Builder) WithLanguage(lang string) *Builder {
	b.event.Language = lang
	return b
}

func (b *Builder) WithDuration(d time.Duration) *Builder {
	b.event.Duration = d
	return b
}

func (b *Builder) WithSeverity(s Severity) *Builder {
	b.event.Severity = s
	return b
}

// WithError marks the event failed when err is non-nil.
func (b *Builder) WithError(err error) *Builder {
	if err != nil {
		b.event.Success = false
		b.event.Error = err.Error()
		if b.event.Severity == SeverityInfo {
			b.event.Severity = SeverityError
		}
	}
	return b
}

// Detail adds one detail entry.
func (b *Builder) Detail(key string, value any) *Builder {
	if b.event.Details == nil {
		b.event.Details = make(map[string]any)
	}
	b.event.Details[key] = value
	return b
}

// Build returns the event.
func (b *Builder) Build() Event {
	return b.event
}
