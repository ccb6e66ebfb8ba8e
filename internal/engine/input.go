package engine

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"symptom-checker/internal/domain"
)

// Chat payload kinds produced by the patient-facing UI.
const (
	PayloadText           = "text"
	PayloadButtonResponse = "button_response"
	PayloadMultiSelect    = "multi_select"
	PayloadNumber         = "number"
)

// ParseMessage maps a raw chat payload onto a typed Input. An empty value
// is "no input".
func ParseMessage(kind, value string) (domain.Input, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.Input{}, nil
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case PayloadButtonResponse:
		if b, ok := parseYesNo(value); ok {
			return domain.BoolInput(b), nil
		}
		return domain.TextInput(value), nil
	case PayloadMultiSelect:
		return domain.MultiChoice(splitList(value)...), nil
	case PayloadNumber:
		n, err := parseNumber(value)
		if err != nil {
			return domain.Input{}, fmt.Errorf("engine: parse number %q: %w", value, err)
		}
		return domain.NumberInput(n), nil
	case PayloadText, "":
		return domain.TextInput(value), nil
	default:
		return domain.Input{}, fmt.Errorf("engine: unknown payload kind %q", kind)
	}
}

// answerHint is a rejection of an answer, worded for the patient.
type answerHint string

func (h answerHint) Error() string { return string(h) }

// parseSelection reads the entries picked on the selection screen, symptom
// ids or display names. "none" on its own, an empty pick or a plain "no"
// all mean no symptoms.
func parseSelection(in domain.Input) ([]domain.SymptomID, error) {
	var raw []string
	switch in.Type {
	case domain.InputMultiChoice:
		raw = in.Choices
	case domain.InputText:
		raw = splitList(in.Text)
	case domain.InputBool:
		if !in.Bool {
			return nil, nil
		}
		return nil, answerHint(hintSelection)
	default:
		return nil, answerHint(hintSelection)
	}

	ids := make([]domain.SymptomID, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" || isNoneEntry(v) {
			continue
		}
		id := domain.SymptomID(v)
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func isNoneEntry(v string) bool {
	return strings.EqualFold(v, NoneOption) || strings.EqualFold(v, noneLabel) || strings.EqualFold(v, "no")
}

// coerce validates in against the kind of q and returns the normalized
// answer to store. The error text is shown to the patient.
func coerce(q domain.Question, in domain.Input) (domain.Input, error) {
	switch q.Kind {
	case domain.KindYesNo:
		switch in.Type {
		case domain.InputBool:
			return domain.BoolInput(in.Bool), nil
		case domain.InputText:
			if b, ok := parseYesNo(in.Text); ok {
				return domain.BoolInput(b), nil
			}
		}
		return domain.Input{}, answerHint("Please answer yes or no.")
	case domain.KindNumber:
		return coerceNumber(q, in)
	case domain.KindChoice:
		var v string
		switch {
		case in.Type == domain.InputText:
			v = in.Text
		case in.Type == domain.InputMultiChoice && len(in.Choices) == 1:
			v = in.Choices[0]
		}
		if opt, ok := matchOption(q.Options, v); ok {
			return domain.TextInput(opt.Value), nil
		}
		return domain.Input{}, answerHint("Please choose one of the options.")
	case domain.KindMultiSelect:
		return coerceMulti(q, in)
	default:
		if in.Type == domain.InputText && strings.TrimSpace(in.Text) != "" {
			return domain.TextInput(strings.TrimSpace(in.Text)), nil
		}
		return domain.Input{}, answerHint("Please type a short answer.")
	}
}

func coerceNumber(q domain.Question, in domain.Input) (domain.Input, error) {
	var (
		n   float64
		err error
	)
	switch in.Type {
	case domain.InputNumber:
		n = in.Number
		if math.IsNaN(n) || math.IsInf(n, 0) {
			err = errors.New("not finite")
		}
	case domain.InputText:
		n, err = parseNumber(in.Text)
	default:
		err = errors.New("not a number")
	}
	if err != nil {
		return domain.Input{}, answerHint(numberHint(q))
	}
	if (q.Min != nil && n < *q.Min) || (q.Max != nil && n > *q.Max) {
		return domain.Input{}, answerHint(numberHint(q))
	}
	return domain.NumberInput(n), nil
}

func numberHint(q domain.Question) string {
	switch {
	case q.Min != nil && q.Max != nil:
		return fmt.Sprintf("Please enter a number between %g and %g.", *q.Min, *q.Max)
	case q.Min != nil:
		return fmt.Sprintf("Please enter a number of at least %g.", *q.Min)
	case q.Max != nil:
		return fmt.Sprintf("Please enter a number no greater than %g.", *q.Max)
	}
	return "Please enter a number."
}

// coerceMulti keeps the picked values in option order with duplicates
// dropped.
func coerceMulti(q domain.Question, in domain.Input) (domain.Input, error) {
	var raw []string
	switch in.Type {
	case domain.InputMultiChoice:
		raw = in.Choices
	case domain.InputText:
		raw = splitList(in.Text)
	}
	picked := make(map[string]bool, len(raw))
	for _, v := range raw {
		opt, ok := matchOption(q.Options, v)
		if !ok {
			return domain.Input{}, answerHint("Please choose one or more of the options.")
		}
		picked[opt.Value] = true
	}
	if len(picked) == 0 {
		return domain.Input{}, answerHint("Please choose one or more of the options.")
	}
	values := make([]string, 0, len(picked))
	for _, o := range q.Options {
		if picked[o.Value] {
			values = append(values, o.Value)
		}
	}
	return domain.MultiChoice(values...), nil
}

// matchOption finds the option whose value or label equals v, ignoring case.
func matchOption(options []domain.Option, v string) (domain.Option, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return domain.Option{}, false
	}
	for _, o := range options {
		if strings.EqualFold(o.Value, v) || strings.EqualFold(o.Label, v) {
			return o, true
		}
	}
	return domain.Option{}, false
}

func parseYesNo(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true":
		return true, true
	case "no", "n", "false":
		return false, true
	}
	return false, false
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimSuffix(s, "F"), "°")
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, errors.New("not finite")
	}
	return n, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
