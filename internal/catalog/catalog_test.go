package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"symptom-checker/internal/domain"
)

func continueAlways(domain.Answers) domain.LogicResult { return domain.Continue() }

func def(id string, cat domain.Category) domain.SymptomDefinition {
	return domain.SymptomDefinition{
		ID:        domain.SymptomID(id),
		Name:      "Name " + id,
		Category:  cat,
		Screening: []domain.Question{{ID: "q", Prompt: "Q?", Kind: domain.KindYesNo}},
		Screen:    domain.EvaluatorFunc(continueAlways),
	}
}

var testCategories = []CategoryInfo{
	{ID: "common", Name: "Common"},
	{ID: "rare", Name: "Rare"},
	{ID: domain.CategoryEmergency, Name: "Emergency"},
}

func TestNew_Validation(t *testing.T) {
	lo, hi := 5.0, 1.0

	tests := []struct {
		name   string
		mutate func(*domain.SymptomDefinition)
		errMsg string
	}{
		{name: "empty id", mutate: func(d *domain.SymptomDefinition) { d.ID = " " }, errMsg: "symptom id must not be empty"},
		{name: "empty name", mutate: func(d *domain.SymptomDefinition) { d.Name = "" }, errMsg: "name must not be empty"},
		{name: "unknown category", mutate: func(d *domain.SymptomDefinition) { d.Category = "other" }, errMsg: "unknown category"},
		{name: "nil screen", mutate: func(d *domain.SymptomDefinition) { d.Screen = nil }, errMsg: "screening evaluator must not be nil"},
		{
			name: "follow-up without evaluator",
			mutate: func(d *domain.SymptomDefinition) {
				d.FollowUp = []domain.Question{{ID: "f", Prompt: "F?", Kind: domain.KindYesNo}}
			},
			errMsg: "follow-up questions without a follow-up evaluator",
		},
		{
			name: "duplicate question across sets",
			mutate: func(d *domain.SymptomDefinition) {
				d.FollowUp = []domain.Question{{ID: "q", Prompt: "Again?", Kind: domain.KindYesNo}}
				d.Follow = domain.EvaluatorFunc(continueAlways)
			},
			errMsg: `duplicate question "q"`,
		},
		{name: "blank prompt", mutate: func(d *domain.SymptomDefinition) { d.Screening[0].Prompt = "" }, errMsg: "prompt must not be empty"},
		{name: "unknown kind", mutate: func(d *domain.SymptomDefinition) { d.Screening[0].Kind = "slider" }, errMsg: `unknown kind "slider"`},
		{name: "choice without options", mutate: func(d *domain.SymptomDefinition) { d.Screening[0].Kind = domain.KindChoice }, errMsg: "options are required"},
		{
			name: "options on yes no",
			mutate: func(d *domain.SymptomDefinition) {
				d.Screening[0].Options = []domain.Option{{Label: "A", Value: "a"}}
			},
			errMsg: "options are not allowed for yes_no",
		},
		{
			name: "inverted range",
			mutate: func(d *domain.SymptomDefinition) {
				d.Screening[0].Kind = domain.KindNumber
				d.Screening[0].Min, d.Screening[0].Max = &lo, &hi
			},
			errMsg: "min is greater than max",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := def("a", "common")
			tt.mutate(&d)
			_, err := New(testCategories, []domain.SymptomDefinition{d})
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNew_RejectsDuplicates(t *testing.T) {
	_, err := New(testCategories, []domain.SymptomDefinition{def("a", "common"), def("a", "rare")})
	require.ErrorContains(t, err, `duplicate symptom "a"`)

	_, err = New([]CategoryInfo{{ID: "common"}, {ID: "common"}}, []domain.SymptomDefinition{def("a", "common")})
	require.ErrorContains(t, err, `duplicate category "common"`)

	_, err = New(testCategories, nil)
	require.Error(t, err)
}

func TestVisible_EmergencyFirstHiddenExcluded(t *testing.T) {
	hidden := def("h", "rare")
	hidden.Hidden = true
	c, err := New(testCategories, []domain.SymptomDefinition{
		def("c1", "common"),
		def("e1", domain.CategoryEmergency),
		def("c2", "common"),
		hidden,
	})
	require.NoError(t, err)

	groups := c.Visible()
	require.Len(t, groups, 2)
	require.Equal(t, domain.CategoryEmergency, groups[0].Category)
	require.Equal(t, "Emergency", groups[0].Name)
	require.Equal(t, domain.Category("common"), groups[1].Category)

	var ids []domain.SymptomID
	for _, d := range groups[1].Symptoms {
		ids = append(ids, d.ID)
	}
	require.Equal(t, []domain.SymptomID{"c1", "c2"}, ids)

	require.Equal(t, 4, c.Len())
	require.False(t, c.IsSelectable("h"))
	require.False(t, c.IsSelectable("missing"))
	require.True(t, c.IsSelectable("c1"))
	got, ok := c.Get("h")
	require.True(t, ok)
	require.True(t, got.Hidden)
}

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	require.Equal(t, len(DefaultLogic()), c.Len())

	again, err := Default()
	require.NoError(t, err)
	require.Same(t, c, again)

	groups := c.Visible()
	require.Len(t, groups, 2)
	require.Equal(t, domain.CategoryEmergency, groups[0].Category)

	var visible []domain.SymptomID
	for _, g := range groups {
		for _, d := range g.Symptoms {
			visible = append(visible, d.ID)
		}
	}
	require.Equal(t, []domain.SymptomID{
		ChestPain, TroubleBreathing, Bleeding, Fever,
		Fatigue, Nausea, Diarrhea, Constipation, Pain, MouthSores,
	}, visible)
	require.False(t, c.IsSelectable(InfectionRisk))
	require.False(t, c.IsSelectable(Dehydration))
}
