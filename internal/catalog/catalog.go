// Package catalog is the read-only registry of symptom definitions.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"symptom-checker/internal/domain"
)

// CategoryInfo names a category for the selection screen.
type CategoryInfo struct {
	ID   domain.Category
	Name string
}

// Group is one category of visible symptoms.
type Group struct {
	Category domain.Category
	Name     string
	Symptoms []domain.SymptomDefinition
}

// Catalog holds every known symptom. It is built once and never mutated, so
// it is safe for concurrent use without locking.
type Catalog struct {
	byID       map[domain.SymptomID]domain.SymptomDefinition
	order      []domain.SymptomID
	categories []CategoryInfo
}

// New validates defs and builds a Catalog. Declaration order of defs is the
// display order within a category.
func New(categories []CategoryInfo, defs []domain.SymptomDefinition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, errors.New("catalog: at least one symptom is required")
	}
	known := make(map[domain.Category]bool, len(categories))
	for _, c := range categories {
		if strings.TrimSpace(string(c.ID)) == "" {
			return nil, errors.New("catalog: category id must not be empty")
		}
		if known[c.ID] {
			return nil, fmt.Errorf("catalog: duplicate category %q", c.ID)
		}
		known[c.ID] = true
	}

	c := &Catalog{
		byID:       make(map[domain.SymptomID]domain.SymptomDefinition, len(defs)),
		order:      make([]domain.SymptomID, 0, len(defs)),
		categories: append([]CategoryInfo(nil), categories...),
	}
	for _, def := range defs {
		if err := validateDefinition(def, known); err != nil {
			return nil, err
		}
		if _, dup := c.byID[def.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate symptom %q", def.ID)
		}
		c.byID[def.ID] = def
		c.order = append(c.order, def.ID)
	}
	return c, nil
}

func validateDefinition(def domain.SymptomDefinition, categories map[domain.Category]bool) error {
	if strings.TrimSpace(string(def.ID)) == "" {
		return errors.New("catalog: symptom id must not be empty")
	}
	if strings.TrimSpace(def.Name) == "" {
		return fmt.Errorf("catalog: symptom %q: name must not be empty", def.ID)
	}
	if !categories[def.Category] {
		return fmt.Errorf("catalog: symptom %q: unknown category %q", def.ID, def.Category)
	}
	if def.Screen == nil {
		return fmt.Errorf("catalog: symptom %q: screening evaluator must not be nil", def.ID)
	}
	if len(def.FollowUp) > 0 && def.Follow == nil {
		return fmt.Errorf("catalog: symptom %q: follow-up questions without a follow-up evaluator", def.ID)
	}
	seen := make(map[domain.QuestionID]bool)
	for _, q := range append(append([]domain.Question(nil), def.Screening...), def.FollowUp...) {
		if strings.TrimSpace(string(q.ID)) == "" {
			return fmt.Errorf("catalog: symptom %q: question id must not be empty", def.ID)
		}
		if seen[q.ID] {
			return fmt.Errorf("catalog: symptom %q: duplicate question %q", def.ID, q.ID)
		}
		seen[q.ID] = true
		if err := validateQuestion(q); err != nil {
			return fmt.Errorf("catalog: symptom %q: question %q: %w", def.ID, q.ID, err)
		}
	}
	return nil
}

func validateQuestion(q domain.Question) error {
	if strings.TrimSpace(q.Prompt) == "" {
		return errors.New("prompt must not be empty")
	}
	switch q.Kind {
	case domain.KindChoice, domain.KindMultiSelect:
		if len(q.Options) == 0 {
			return errors.New("options are required")
		}
	case domain.KindYesNo, domain.KindText, domain.KindNumber:
		if len(q.Options) > 0 {
			return fmt.Errorf("options are not allowed for %s", q.Kind)
		}
	default:
		return fmt.Errorf("unknown kind %q", q.Kind)
	}
	if q.Min != nil && q.Max != nil && *q.Min > *q.Max {
		return errors.New("min is greater than max")
	}
	return nil
}

// Get returns the definition of id.
func (c *Catalog) Get(id domain.SymptomID) (domain.SymptomDefinition, bool) {
	def, ok := c.byID[id]
	return def, ok
}

// Len returns the number of symptoms, hidden ones included.
func (c *Catalog) Len() int { return len(c.order) }

// Visible returns the user-selectable symptoms grouped by category. The
// emergency category always comes first; the remaining categories keep
// their declared order. Categories without a visible symptom are omitted.
func (c *Catalog) Visible() []Group {
	ordered := make([]CategoryInfo, 0, len(c.categories))
	for _, cat := range c.categories {
		if cat.ID == domain.CategoryEmergency {
			ordered = append(ordered, cat)
		}
	}
	for _, cat := range c.categories {
		if cat.ID != domain.CategoryEmergency {
			ordered = append(ordered, cat)
		}
	}

	groups := make([]Group, 0, len(ordered))
	for _, cat := range ordered {
		g := Group{Category: cat.ID, Name: cat.Name}
		for _, id := range c.order {
			def := c.byID[id]
			if def.Category == cat.ID && !def.Hidden {
				g.Symptoms = append(g.Symptoms, def)
			}
		}
		if len(g.Symptoms) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

// IsSelectable reports whether id may be picked on the selection screen.
func (c *Catalog) IsSelectable(id domain.SymptomID) bool {
	def, ok := c.byID[id]
	return ok && !def.Hidden
}
