package engine

import (
	"strings"

	"symptom-checker/internal/domain"
)

// MessageType tells the UI how to render a Response.
type MessageType string

const (
	MessageText          MessageType = "text"
	MessageYesNo         MessageType = "yes_no"
	MessageChoice        MessageType = "choice"
	MessageMultiSelect   MessageType = "multiselect"
	MessageNumber        MessageType = "number"
	MessageSymptomSelect MessageType = "symptom_select"
	MessageTriageResult  MessageType = "triage_result"
)

// ResponseOption is one button or checkbox offered to the patient. Group is
// set on symptom selection options only.
type ResponseOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Group string `json:"group,omitempty"`
}

// Response is the transport-agnostic result of one Evaluate call.
type Response struct {
	Message     string           `json:"message"`
	MessageType MessageType      `json:"message_type"`
	Options     []ResponseOption `json:"options"`
	// TriageLevel and TriageMessage are set on terminal responses only.
	TriageLevel      *domain.TriageLevel      `json:"triage_level,omitempty"`
	TriageMessage    *string                  `json:"triage_message,omitempty"`
	IsComplete       bool                     `json:"is_complete"`
	RequiresFollowUp bool                     `json:"requires_follow_up"`
	State            domain.ConversationState `json:"state"`
}

// NoneOption is the selection value meaning "no symptoms today".
const NoneOption = "none"

const (
	selectionPrompt = "Which symptoms are you having today? Choose all that apply."
	noneLabel       = "I'm feeling fine"
	fallbackMessage = "I'm sorry, I hit a problem with that part of the check. Let's continue."
	hintSelection   = "Please choose from the list, or let me know you're feeling fine."
)

var yesNoOptions = []ResponseOption{
	{Label: "Yes", Value: "yes"},
	{Label: "No", Value: "no"},
}

// selectableOptions lists the symptoms a patient may pick, matched by id or
// display name.
func (e *Engine) selectableOptions() []domain.Option {
	var options []domain.Option
	for _, g := range e.catalog.Visible() {
		for _, def := range g.Symptoms {
			options = append(options, domain.Option{Label: def.Name, Value: string(def.ID)})
		}
	}
	return options
}

func (e *Engine) selectionResponse(notes []string, hint string) Response {
	var options []ResponseOption
	for _, g := range e.catalog.Visible() {
		for _, def := range g.Symptoms {
			options = append(options, ResponseOption{Label: def.Name, Value: string(def.ID), Group: g.Name})
		}
	}
	options = append(options, ResponseOption{Label: noneLabel, Value: NoneOption})
	return Response{
		Message:     joinParts(notes, hint, selectionPrompt),
		MessageType: MessageSymptomSelect,
		Options:     options,
	}
}

func questionResponse(q domain.Question, message string) Response {
	resp := Response{Message: message, Options: []ResponseOption{}}
	switch q.Kind {
	case domain.KindYesNo:
		resp.MessageType = MessageYesNo
		resp.Options = append(resp.Options, yesNoOptions...)
	case domain.KindNumber:
		resp.MessageType = MessageNumber
	case domain.KindChoice, domain.KindMultiSelect:
		resp.MessageType = MessageChoice
		if q.Kind == domain.KindMultiSelect {
			resp.MessageType = MessageMultiSelect
		}
		for _, o := range q.Options {
			resp.Options = append(resp.Options, ResponseOption{Label: o.Label, Value: o.Value})
		}
	default:
		resp.MessageType = MessageText
	}
	return resp
}

// symptomIntro is shown ahead of the first question of a symptom.
func symptomIntro(def domain.SymptomDefinition) string {
	return "Let's talk about your " + strings.ToLower(def.Name) + "."
}

// joinParts joins the non-empty parts of a message with blank lines.
func joinParts(notes []string, parts ...string) string {
	all := make([]string, 0, len(notes)+len(parts))
	for _, p := range append(append([]string(nil), notes...), parts...) {
		if p = strings.TrimSpace(p); p != "" {
			all = append(all, p)
		}
	}
	return strings.Join(all, "\n\n")
}
