package domain

import "slices"

// Phase is the coarse stage of a symptom check conversation.
type Phase string

const (
	PhaseSymptomSelection Phase = "symptom_selection"
	PhaseScreening        Phase = "screening"
	PhaseFollowUp         Phase = "follow_up"
	PhaseSummary          Phase = "summary"
	PhaseCompleted        Phase = "completed"
	PhaseEmergency        Phase = "emergency"
)

// Terminal reports whether no further input can change the conversation.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseEmergency
}

// SymptomStack holds symptoms queued by branching. The most recently pushed
// symptom is popped first.
type SymptomStack []SymptomID

func (s *SymptomStack) Push(id SymptomID) {
	*s = append(*s, id)
}

// Pop removes and returns the top of the stack.
func (s *SymptomStack) Pop() (SymptomID, bool) {
	n := len(*s)
	if n == 0 {
		return "", false
	}
	id := (*s)[n-1]
	*s = (*s)[:n-1]
	return id, true
}

func (s SymptomStack) Len() int { return len(s) }

// ConversationState is a complete, serializable snapshot of one conversation.
// The engine receives it by value and returns a new snapshot on every call.
type ConversationState struct {
	Phase Phase `json:"phase"`
	// CurrentSymptomID is empty when no symptom is being processed.
	CurrentSymptomID     SymptomID      `json:"current_symptom_id,omitempty"`
	CurrentQuestionIndex int            `json:"current_question_index"`
	IsFollowUp           bool           `json:"is_follow_up"`
	Answers              Answers        `json:"answers"`
	SelectedSymptoms     []SymptomID    `json:"selected_symptoms"`
	CompletedSymptoms    []SymptomID    `json:"completed_symptoms"`
	BranchStack          SymptomStack   `json:"branch_stack"`
	TriageResults        []TriageRecord `json:"triage_results"`
	HighestTriageLevel   TriageLevel    `json:"highest_triage_level"`
}

// NewConversationState returns the state of a conversation that has not
// selected any symptom yet.
func NewConversationState() ConversationState {
	return ConversationState{
		Phase:             PhaseSymptomSelection,
		Answers:           Answers{},
		SelectedSymptoms:  []SymptomID{},
		CompletedSymptoms: []SymptomID{},
		BranchStack:       SymptomStack{},
		TriageResults:     []TriageRecord{},
	}
}

// IsZero reports whether s was never initialised, e.g. a missing blob.
func (s ConversationState) IsZero() bool {
	return s.Phase == ""
}

// Clone returns a deep copy of s.
func (s ConversationState) Clone() ConversationState {
	out := s
	out.Answers = s.Answers.Clone()
	out.SelectedSymptoms = slices.Clone(s.SelectedSymptoms)
	out.CompletedSymptoms = slices.Clone(s.CompletedSymptoms)
	out.BranchStack = slices.Clone(s.BranchStack)
	out.TriageResults = slices.Clone(s.TriageResults)
	return out
}

// IsCompleted reports whether id has already been processed or skipped.
func (s ConversationState) IsCompleted(id SymptomID) bool {
	return slices.Contains(s.CompletedSymptoms, id)
}

// MarkCompleted appends id to the completed list. It returns false and
// leaves the list untouched when id is already present.
func (s *ConversationState) MarkCompleted(id SymptomID) bool {
	if s.IsCompleted(id) {
		return false
	}
	s.CompletedSymptoms = append(s.CompletedSymptoms, id)
	return true
}

// Record appends rec to the triage audit and raises the high-water mark.
// None results are not recorded.
func (s *ConversationState) Record(rec TriageRecord) {
	if rec.Level == TriageNone {
		return
	}
	s.TriageResults = append(s.TriageResults, rec)
	s.HighestTriageLevel = s.HighestTriageLevel.Max(rec.Level)
}

// RecordsAt returns the triage records at exactly level, in recording order.
func (s ConversationState) RecordsAt(level TriageLevel) []TriageRecord {
	var out []TriageRecord
	for _, rec := range s.TriageResults {
		if rec.Level == level {
			out = append(out, rec)
		}
	}
	return out
}
