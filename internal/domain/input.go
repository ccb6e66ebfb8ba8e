package domain

import "slices"

// InputType tags the variant held by an Input.
type InputType string

const (
	InputBool        InputType = "bool"
	InputText        InputType = "text"
	InputNumber      InputType = "number"
	InputMultiChoice InputType = "multi_choice"
)

// Input is a typed user answer. Exactly one of the value fields is
// meaningful, selected by Type. The zero Input means "no input".
type Input struct {
	Type    InputType `json:"type"`
	Bool    bool      `json:"bool,omitempty"`
	Text    string    `json:"text,omitempty"`
	Number  float64   `json:"number,omitempty"`
	Choices []string  `json:"choices,omitempty"`
}

func BoolInput(v bool) Input { return Input{Type: InputBool, Bool: v} }

func TextInput(v string) Input { return Input{Type: InputText, Text: v} }

func NumberInput(v float64) Input { return Input{Type: InputNumber, Number: v} }

func MultiChoice(v ...string) Input { return Input{Type: InputMultiChoice, Choices: v} }

// Empty reports whether no input was supplied.
func (in Input) Empty() bool { return in.Type == "" }

// Answers holds the answers collected for the current symptom.
type Answers map[QuestionID]Input

// Has reports whether id was answered.
func (a Answers) Has(id QuestionID) bool {
	_, ok := a[id]
	return ok
}

// Bool returns the yes/no answer to id; unanswered questions read as false.
func (a Answers) Bool(id QuestionID) bool {
	in, ok := a[id]
	return ok && in.Type == InputBool && in.Bool
}

// Number returns the numeric answer to id.
func (a Answers) Number(id QuestionID) (float64, bool) {
	in, ok := a[id]
	if !ok || in.Type != InputNumber {
		return 0, false
	}
	return in.Number, true
}

// Text returns the text or single choice answer to id.
func (a Answers) Text(id QuestionID) string {
	in, ok := a[id]
	if !ok || in.Type != InputText {
		return ""
	}
	return in.Text
}

// Includes reports whether value was picked in the multi-select answer to id.
func (a Answers) Includes(id QuestionID, value string) bool {
	in, ok := a[id]
	if !ok || in.Type != InputMultiChoice {
		return false
	}
	return slices.Contains(in.Choices, value)
}

// Clone returns a copy of a that shares no backing storage.
func (a Answers) Clone() Answers {
	if a == nil {
		return nil
	}
	out := make(Answers, len(a))
	for k, v := range a {
		v.Choices = slices.Clone(v.Choices)
		out[k] = v
	}
	return out
}
