package promo

import "time"

// AppliedEvent is emitted when the remote API accepted a code.
type AppliedEvent struct {
	SessionID  string
	Code       string
	Type       DiscountType
	OccurredAt time.Time
}

func (AppliedEvent) EventName() string { return "promo.applied" }

// RejectedEvent is emitted when the remote API refused a code or could not be reached.
type RejectedEvent struct {
	SessionID  string
	Code       string
	Reason     string
	OccurredAt time.Time
}

func (RejectedEvent) EventName() string { return "promo.rejected" }

func NewAppliedEvent(sessionID string, a *Applied) AppliedEvent {
	return AppliedEvent{SessionID: sessionID, Code: a.Code, Type: a.DiscountType, OccurredAt: time.Now().UTC()}
}

func NewRejectedEvent(sessionID, code, reason string) RejectedEvent {
	return RejectedEvent{SessionID: sessionID, Code: code, Reason: reason, OccurredAt: time.Now().UTC()}
}
