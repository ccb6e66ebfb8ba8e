// Package alerting tells clinicians about finished symptom checks that need
// attention.
package alerting

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"symptom-checker/internal/domain"
)

// Alert is the clinician-facing summary of one finished conversation.
type Alert struct {
	ConversationID string
	Level          domain.TriageLevel
	Records        []domain.TriageRecord
	At             time.Time
}

// NewAlert builds the alert for a conversation that reached a terminal phase.
func NewAlert(conversationID string, st domain.ConversationState, at time.Time) Alert {
	return Alert{
		ConversationID: conversationID,
		Level:          st.HighestTriageLevel,
		Records:        slices.Clone(st.TriageResults),
		At:             at.UTC(),
	}
}

func (a Alert) headline() string {
	switch a.Level {
	case domain.TriageCall911:
		return "[EMERGENCY] Patient was told to call 911"
	case domain.TriageNotifyCareTeam:
		return "[CARE TEAM] Patient needs follow-up"
	}
	return "[INFO] Symptom check finished"
}

// Text renders a as plain text for a chat message.
func (a Alert) Text() string {
	var b strings.Builder
	b.WriteString(a.headline())
	fmt.Fprintf(&b, "\nConversation: %s", a.ConversationID)
	fmt.Fprintf(&b, "\nLevel: %s", a.Level)
	if !a.At.IsZero() {
		fmt.Fprintf(&b, "\nFinished: %s", a.At.Format(time.RFC3339))
	}
	for _, rec := range a.Records {
		name := rec.SymptomName
		if name == "" {
			name = string(rec.SymptomID)
		}
		fmt.Fprintf(&b, "\n• %s [%s]", name, rec.Level)
		if rec.Message != "" {
			fmt.Fprintf(&b, ": %s", rec.Message)
		}
		if !rec.RecordedAt.IsZero() {
			fmt.Fprintf(&b, " (%s)", rec.RecordedAt.UTC().Format("15:04 MST"))
		}
	}
	return b.String()
}

// Notifier delivers alerts to the two clinical audiences.
type Notifier interface {
	CareTeam(ctx context.Context, a Alert) error
	Emergency(ctx context.Context, a Alert) error
}

// Dispatch routes a by level. None is never sent.
func Dispatch(ctx context.Context, n Notifier, a Alert) error {
	switch a.Level {
	case domain.TriageCall911:
		return n.Emergency(ctx, a)
	case domain.TriageNotifyCareTeam:
		return n.CareTeam(ctx, a)
	}
	return nil
}
