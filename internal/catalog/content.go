package catalog

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"

	"symptom-checker/internal/domain"
)

type contentFile struct {
	Version    int               `yaml:"version"`
	Categories []categoryContent `yaml:"categories"`
	Symptoms   []symptomContent  `yaml:"symptoms"`
}

type categoryContent struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type symptomContent struct {
	ID        string            `yaml:"id"`
	Name      string            `yaml:"name"`
	Category  string            `yaml:"category"`
	Hidden    bool              `yaml:"hidden"`
	Screening []questionContent `yaml:"screening"`
	FollowUp  []questionContent `yaml:"follow_up"`
}

type questionContent struct {
	ID      string            `yaml:"id"`
	Prompt  string            `yaml:"prompt"`
	Kind    string            `yaml:"kind"`
	Options []optionContent   `yaml:"options"`
	Min     *float64          `yaml:"min"`
	Max     *float64          `yaml:"max"`
	When    *conditionContent `yaml:"when"`
}

type optionContent struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
}

// conditionContent is a declarative predicate on one earlier answer.
// Exactly one operator field is set.
type conditionContent struct {
	Question string   `yaml:"question"`
	Equals   any      `yaml:"equals"`
	AnyOf    []string `yaml:"any_of"`
	AtLeast  *float64 `yaml:"at_least"`
	Below    *float64 `yaml:"below"`
	Includes string   `yaml:"includes"`
}

// Load decodes YAML content and pairs every symptom with its entry in
// logic. Content without logic, logic without content and follow-up sets
// missing either half are rejected.
func Load(r io.Reader, logic map[domain.SymptomID]Logic) (*Catalog, error) {
	if r == nil {
		return nil, errors.New("catalog: content reader must not be nil")
	}
	var file contentFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("catalog: decode content: %w", err)
	}

	categories := make([]CategoryInfo, 0, len(file.Categories))
	for _, c := range file.Categories {
		categories = append(categories, CategoryInfo{ID: domain.Category(c.ID), Name: c.Name})
	}

	used := make(map[domain.SymptomID]bool, len(file.Symptoms))
	defs := make([]domain.SymptomDefinition, 0, len(file.Symptoms))
	for _, sc := range file.Symptoms {
		id := domain.SymptomID(sc.ID)
		lg, ok := logic[id]
		if !ok {
			return nil, fmt.Errorf("catalog: symptom %q has no evaluation logic", id)
		}
		used[id] = true
		if len(sc.FollowUp) > 0 && lg.FollowUp == nil {
			return nil, fmt.Errorf("catalog: symptom %q has follow-up questions but no follow-up logic", id)
		}
		if len(sc.FollowUp) == 0 && lg.FollowUp != nil {
			return nil, fmt.Errorf("catalog: symptom %q has follow-up logic but no follow-up questions", id)
		}

		screening, err := buildQuestions(sc.Screening, nil)
		if err != nil {
			return nil, fmt.Errorf("catalog: symptom %q screening: %w", id, err)
		}
		followUp, err := buildQuestions(sc.FollowUp, screening)
		if err != nil {
			return nil, fmt.Errorf("catalog: symptom %q follow-up: %w", id, err)
		}
		defs = append(defs, domain.SymptomDefinition{
			ID:        id,
			Name:      sc.Name,
			Category:  domain.Category(sc.Category),
			Screening: screening,
			Screen:    lg.Screening,
			FollowUp:  followUp,
			Follow:    lg.FollowUp,
			Hidden:    sc.Hidden,
		})
	}
	for id := range logic {
		if !used[id] {
			return nil, fmt.Errorf("catalog: logic for %q has no content", id)
		}
	}
	return New(categories, defs)
}

// buildQuestions converts one question set. Conditions may only refer to
// questions in prior or to earlier questions of the same set.
func buildQuestions(in []questionContent, prior []domain.Question) ([]domain.Question, error) {
	available := slices.Clone(prior)
	out := make([]domain.Question, 0, len(in))
	for _, qc := range in {
		q := domain.Question{
			ID:     domain.QuestionID(qc.ID),
			Prompt: qc.Prompt,
			Kind:   domain.InputKind(qc.Kind),
			Min:    qc.Min,
			Max:    qc.Max,
		}
		for _, o := range qc.Options {
			q.Options = append(q.Options, domain.Option{Label: o.Label, Value: o.Value})
		}
		if qc.When != nil {
			cond, err := compileCondition(*qc.When, available)
			if err != nil {
				return nil, fmt.Errorf("question %q: %w", qc.ID, err)
			}
			q.Condition = cond
		}
		out = append(out, q)
		available = append(available, q)
	}
	return out, nil
}

func compileCondition(c conditionContent, available []domain.Question) (domain.Condition, error) {
	id := domain.QuestionID(c.Question)
	idx := slices.IndexFunc(available, func(q domain.Question) bool { return q.ID == id })
	if idx < 0 {
		return nil, fmt.Errorf("condition refers to unknown or later question %q", id)
	}
	ref := available[idx]

	ops := 0
	for _, set := range []bool{c.Equals != nil, len(c.AnyOf) > 0, c.AtLeast != nil, c.Below != nil, c.Includes != ""} {
		if set {
			ops++
		}
	}
	if ops != 1 {
		return nil, fmt.Errorf("condition on %q must set exactly one operator", id)
	}

	switch {
	case c.Equals != nil:
		switch want := c.Equals.(type) {
		case bool:
			if ref.Kind != domain.KindYesNo {
				return nil, fmt.Errorf("boolean condition on %s question %q", ref.Kind, id)
			}
			return func(a domain.Answers) bool {
				in, ok := a[id]
				return ok && in.Type == domain.InputBool && in.Bool == want
			}, nil
		case string:
			if err := requireOptionValue(ref, want); err != nil {
				return nil, err
			}
			return func(a domain.Answers) bool { return a.Has(id) && a.Text(id) == want }, nil
		default:
			return nil, fmt.Errorf("condition on %q: unsupported equals value %v", id, c.Equals)
		}
	case len(c.AnyOf) > 0:
		for _, v := range c.AnyOf {
			if err := requireOptionValue(ref, v); err != nil {
				return nil, err
			}
		}
		anyOf := slices.Clone(c.AnyOf)
		return func(a domain.Answers) bool { return a.Has(id) && slices.Contains(anyOf, a.Text(id)) }, nil
	case c.AtLeast != nil, c.Below != nil:
		if ref.Kind != domain.KindNumber {
			return nil, fmt.Errorf("numeric condition on %s question %q", ref.Kind, id)
		}
		if c.AtLeast != nil {
			limit := *c.AtLeast
			return func(a domain.Answers) bool {
				n, ok := a.Number(id)
				return ok && n >= limit
			}, nil
		}
		limit := *c.Below
		return func(a domain.Answers) bool {
			n, ok := a.Number(id)
			return ok && n < limit
		}, nil
	default:
		if ref.Kind != domain.KindMultiSelect {
			return nil, fmt.Errorf("includes condition on %s question %q", ref.Kind, id)
		}
		if !hasOption(ref, c.Includes) {
			return nil, fmt.Errorf("condition on %q: %q is not an option", id, c.Includes)
		}
		value := c.Includes
		return func(a domain.Answers) bool { return a.Includes(id, value) }, nil
	}
}

func requireOptionValue(q domain.Question, v string) error {
	switch q.Kind {
	case domain.KindText:
		return nil
	case domain.KindChoice:
		if !hasOption(q, v) {
			return fmt.Errorf("condition on %q: %q is not an option", q.ID, v)
		}
		return nil
	}
	return fmt.Errorf("text condition on %s question %q", q.Kind, q.ID)
}

func hasOption(q domain.Question, v string) bool {
	return slices.ContainsFunc(q.Options, func(o domain.Option) bool { return o.Value == v })
}
