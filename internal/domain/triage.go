package domain

import (
	"fmt"
	"time"
)

// TriageLevel is the urgency of a symptom check outcome. Levels are totally
// ordered by their integer value; a higher value is more urgent.
type TriageLevel int

const (
	TriageNone TriageLevel = iota
	TriageNotifyCareTeam
	TriageCall911
)

var triageNames = [...]string{
	TriageNone:           "none",
	TriageNotifyCareTeam: "notify_care_team",
	TriageCall911:        "call_911",
}

func (l TriageLevel) String() string {
	if !l.Valid() {
		return fmt.Sprintf("TriageLevel(%d)", int(l))
	}
	return triageNames[l]
}

// Valid reports whether l is one of the declared levels.
func (l TriageLevel) Valid() bool {
	return l >= TriageNone && l <= TriageCall911
}

// Max returns the more urgent of l and other.
func (l TriageLevel) Max(other TriageLevel) TriageLevel {
	if other > l {
		return other
	}
	return l
}

func (l TriageLevel) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("domain: invalid triage level %d", int(l))
	}
	return []byte(triageNames[l]), nil
}

func (l *TriageLevel) UnmarshalText(b []byte) error {
	lvl, err := ParseTriageLevel(string(b))
	if err != nil {
		return err
	}
	*l = lvl
	return nil
}

// ParseTriageLevel converts the wire name of a level back to a TriageLevel.
func ParseTriageLevel(s string) (TriageLevel, error) {
	for i, name := range triageNames {
		if name == s {
			return TriageLevel(i), nil
		}
	}
	return TriageNone, fmt.Errorf("domain: unknown triage level %q", s)
}

// TriageRecord is one non-None result produced while evaluating a symptom.
type TriageRecord struct {
	SymptomID   SymptomID   `json:"symptom_id"`
	SymptomName string      `json:"symptom_name"`
	Level       TriageLevel `json:"level"`
	Message     string      `json:"message"`
	RecordedAt  time.Time   `json:"recorded_at"`
}
