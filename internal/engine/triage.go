package engine

import (
	"strings"

	"symptom-checker/internal/domain"
)

const (
	emergencyMessage = "Based on what you've told me, you may need emergency care. " +
		"Please call 911 or go to the nearest emergency room now."
	careTeamMessage = "Thank you for checking in. I've let your care team know about the following " +
		"so they can follow up with you:"
	reassuranceMessage = "Thank you for checking in. Based on your answers, nothing needs urgent " +
		"attention right now. Reach out to your care team if anything changes or gets worse."
	feelingFineMessage = "I'm glad you're feeling well today. Reach out to your care team if " +
		"anything changes."
)

// terminalResponse renders a conversation that has already finished.
func (e *Engine) terminalResponse(st domain.ConversationState) Response {
	if st.Phase == domain.PhaseEmergency || st.HighestTriageLevel == domain.TriageCall911 {
		records := st.RecordsAt(domain.TriageCall911)
		reasons := make([]string, 0, len(records))
		for _, rec := range records {
			if rec.Message != "" {
				reasons = append(reasons, rec.Message)
			}
		}
		msg := emergencyMessage
		detail := strings.Join(reasons, "; ")
		if detail != "" {
			msg += "\n\nReason: " + detail
		}
		return terminal(msg, domain.TriageCall911, detail, true)
	}
	return e.summaryResponse(st)
}

// summaryResponse aggregates the triage records of a drained conversation.
// The highest level recorded decides the message; an emergency always wins.
func (e *Engine) summaryResponse(st domain.ConversationState) Response {
	switch st.HighestTriageLevel {
	case domain.TriageCall911:
		return e.terminalResponse(domain.ConversationState{
			Phase:              domain.PhaseEmergency,
			TriageResults:      st.TriageResults,
			HighestTriageLevel: st.HighestTriageLevel,
		})
	case domain.TriageNotifyCareTeam:
		records := st.RecordsAt(domain.TriageNotifyCareTeam)
		lines := make([]string, 0, len(records))
		for _, rec := range records {
			lines = append(lines, "• "+alertLine(rec))
		}
		detail := strings.Join(lines, "\n")
		return terminal(careTeamMessage+"\n"+detail, domain.TriageNotifyCareTeam, detail, true)
	default:
		msg := reassuranceMessage
		if len(st.SelectedSymptoms) == 0 {
			msg = feelingFineMessage
		}
		return terminal(msg, domain.TriageNone, "", false)
	}
}

func alertLine(rec domain.TriageRecord) string {
	name := rec.SymptomName
	if name == "" {
		name = string(rec.SymptomID)
	}
	if rec.Message == "" {
		return name
	}
	return name + ": " + rec.Message
}

func terminal(msg string, level domain.TriageLevel, detail string, followUp bool) Response {
	resp := Response{
		Message:          msg,
		MessageType:      MessageTriageResult,
		Options:          []ResponseOption{},
		TriageLevel:      &level,
		IsComplete:       true,
		RequiresFollowUp: followUp,
	}
	if detail != "" {
		resp.TriageMessage = &detail
	}
	return resp
}
