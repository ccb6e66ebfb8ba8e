package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"symptom-checker/internal/domain"
)

const header = `
categories:
  - {id: common, name: Common}
symptoms:
  - id: a
    name: A
    category: common
`

func logicFor(ids ...string) map[domain.SymptomID]Logic {
	out := make(map[domain.SymptomID]Logic, len(ids))
	for _, id := range ids {
		out[domain.SymptomID(id)] = Logic{Screening: domain.EvaluatorFunc(continueAlways)}
	}
	return out
}

func load(t *testing.T, body string, logic map[domain.SymptomID]Logic) (*Catalog, error) {
	t.Helper()
	return Load(strings.NewReader(header+body), logic)
}

func TestLoad_MinimalContent(t *testing.T) {
	c, err := load(t, "    screening:\n      - {id: q, prompt: 'Q?', kind: yes_no}\n", logicFor("a"))
	require.NoError(t, err)
	_, ok := c.Get("a")
	require.True(t, ok)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		logic  map[domain.SymptomID]Logic
		errMsg string
	}{
		{
			name:   "unknown field",
			body:   "    colour: red\n    screening:\n      - {id: q, prompt: 'Q?', kind: yes_no}\n",
			logic:  logicFor("a"),
			errMsg: "field colour not found",
		},
		{
			name:   "missing logic",
			body:   "    screening:\n      - {id: q, prompt: 'Q?', kind: yes_no}\n",
			logic:  logicFor(),
			errMsg: `symptom "a" has no evaluation logic`,
		},
		{
			name:   "logic without content",
			body:   "    screening:\n      - {id: q, prompt: 'Q?', kind: yes_no}\n",
			logic:  logicFor("a", "b"),
			errMsg: `logic for "b" has no content`,
		},
		{
			name:   "follow-up content without logic",
			body:   "    screening:\n      - {id: q, prompt: 'Q?', kind: yes_no}\n    follow_up:\n      - {id: f, prompt: 'F?', kind: yes_no}\n",
			logic:  logicFor("a"),
			errMsg: "follow-up questions but no follow-up logic",
		},
		{
			name: "follow-up logic without content",
			body: "    screening:\n      - {id: q, prompt: 'Q?', kind: yes_no}\n",
			logic: map[domain.SymptomID]Logic{"a": {
				Screening: domain.EvaluatorFunc(continueAlways),
				FollowUp:  domain.EvaluatorFunc(continueAlways),
			}},
			errMsg: "follow-up logic but no follow-up questions",
		},
		{
			name:   "condition on later question",
			body:   "    screening:\n      - {id: q, prompt: 'Q?', kind: yes_no, when: {question: r, equals: true}}\n      - {id: r, prompt: 'R?', kind: yes_no}\n",
			logic:  logicFor("a"),
			errMsg: `unknown or later question "r"`,
		},
		{
			name:   "two operators",
			body:   "    screening:\n      - {id: n, prompt: 'N?', kind: number}\n      - {id: q, prompt: 'Q?', kind: yes_no, when: {question: n, at_least: 1, below: 5}}\n",
			logic:  logicFor("a"),
			errMsg: "exactly one operator",
		},
		{
			name:   "boolean condition on number",
			body:   "    screening:\n      - {id: n, prompt: 'N?', kind: number}\n      - {id: q, prompt: 'Q?', kind: yes_no, when: {question: n, equals: true}}\n",
			logic:  logicFor("a"),
			errMsg: "boolean condition on number question",
		},
		{
			name:   "equals unknown option",
			body:   "    screening:\n      - {id: c, prompt: 'C?', kind: choice, options: [{label: X, value: x}]}\n      - {id: q, prompt: 'Q?', kind: yes_no, when: {question: c, equals: y}}\n",
			logic:  logicFor("a"),
			errMsg: `"y" is not an option`,
		},
		{
			name:   "includes on choice",
			body:   "    screening:\n      - {id: c, prompt: 'C?', kind: choice, options: [{label: X, value: x}]}\n      - {id: q, prompt: 'Q?', kind: yes_no, when: {question: c, includes: x}}\n",
			logic:  logicFor("a"),
			errMsg: "includes condition on choice question",
		},
		{
			name:   "numeric condition on yes no",
			body:   "    screening:\n      - {id: b, prompt: 'B?', kind: yes_no}\n      - {id: q, prompt: 'Q?', kind: yes_no, when: {question: b, below: 2}}\n",
			logic:  logicFor("a"),
			errMsg: "numeric condition on yes_no question",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, tt.body, tt.logic)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_Conditions(t *testing.T) {
	body := `    screening:
      - {id: yn, prompt: 'YN?', kind: yes_no}
      - {id: n, prompt: 'N?', kind: number, min: 0, max: 10}
      - {id: c, prompt: 'C?', kind: choice, options: [{label: X, value: x}, {label: Y, value: y}, {label: Z, value: z}]}
      - {id: m, prompt: 'M?', kind: multiselect, options: [{label: P, value: p}, {label: Q, value: q}]}
      - {id: if_no, prompt: 'A?', kind: text, when: {question: yn, equals: false}}
      - {id: if_high, prompt: 'B?', kind: text, when: {question: n, at_least: 7}}
      - {id: if_low, prompt: 'C?', kind: text, when: {question: n, below: 3}}
      - {id: if_x, prompt: 'D?', kind: text, when: {question: c, equals: x}}
      - {id: if_yz, prompt: 'E?', kind: text, when: {question: c, any_of: [y, z]}}
      - {id: if_p, prompt: 'F?', kind: text, when: {question: m, includes: p}}
`
	c, err := load(t, body, logicFor("a"))
	require.NoError(t, err)
	d, ok := c.Get("a")
	require.True(t, ok)

	byID := make(map[domain.QuestionID]domain.Question)
	for _, q := range d.Screening {
		byID[q.ID] = q
	}
	require.Equal(t, 10.0, *byID["n"].Max)
	require.Len(t, byID["c"].Options, 3)

	answers := domain.Answers{
		"yn": domain.BoolInput(false),
		"n":  domain.NumberInput(7),
		"c":  domain.TextInput("z"),
		"m":  domain.MultiChoice("q"),
	}
	require.True(t, byID["if_no"].Applies(answers))
	require.True(t, byID["if_high"].Applies(answers))
	require.False(t, byID["if_low"].Applies(answers))
	require.False(t, byID["if_x"].Applies(answers))
	require.True(t, byID["if_yz"].Applies(answers))
	require.False(t, byID["if_p"].Applies(answers))

	require.False(t, byID["if_no"].Applies(domain.Answers{}), "unanswered question never satisfies a condition")
	require.True(t, byID["yn"].Applies(domain.Answers{}))
}

func TestLoad_FollowUpMaySeeScreening(t *testing.T) {
	body := `    screening:
      - {id: s, prompt: 'S?', kind: yes_no}
    follow_up:
      - {id: f, prompt: 'F?', kind: yes_no, when: {question: s, equals: true}}
`
	logic := map[domain.SymptomID]Logic{"a": {
		Screening: domain.EvaluatorFunc(continueAlways),
		FollowUp:  domain.EvaluatorFunc(continueAlways),
	}}
	c, err := load(t, body, logic)
	require.NoError(t, err)
	d, _ := c.Get("a")
	require.True(t, d.HasFollowUp())
	require.True(t, d.FollowUp[0].Applies(domain.Answers{"s": domain.BoolInput(true)}))
}

func TestLoadWithDefaultLogic_RejectsPartialContent(t *testing.T) {
	_, err := LoadWithDefaultLogic(strings.NewReader(header + "    screening:\n      - {id: q, prompt: 'Q?', kind: yes_no}\n"))
	require.ErrorContains(t, err, "has no evaluation logic")
}
