package domain

// SymptomID identifies a symptom module in the catalog.
type SymptomID string

// QuestionID identifies a question within a single symptom.
type QuestionID string

// Category groups visible symptoms on the selection screen.
type Category string

const CategoryEmergency Category = "emergency"

// InputKind is the kind of answer a question expects.
type InputKind string

const (
	KindYesNo       InputKind = "yes_no"
	KindText        InputKind = "text"
	KindNumber      InputKind = "number"
	KindChoice      InputKind = "choice"
	KindMultiSelect InputKind = "multiselect"
)

// Option is a selectable answer of a Choice or MultiSelect question.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Condition decides from the answers collected so far for the current
// symptom whether a question is asked at all.
type Condition func(Answers) bool

// Question is a single prompt of a screening or follow-up set.
type Question struct {
	ID      QuestionID
	Prompt  string
	Kind    InputKind
	Options []Option
	// Min and Max bound Number answers when non-nil.
	Min       *float64
	Max       *float64
	Condition Condition
}

// Applies reports whether q should be asked given answers.
func (q Question) Applies(answers Answers) bool {
	return q.Condition == nil || q.Condition(answers)
}

// Action tells the engine what to do after a question set has been evaluated.
type Action string

const (
	ActionContinue Action = "continue"
	ActionBranch   Action = "branch"
	ActionStop     Action = "stop"
)

// LogicResult is the outcome of evaluating a screening or follow-up set.
type LogicResult struct {
	Action   Action
	Level    TriageLevel
	Message  string
	BranchTo SymptomID
}

// Continue, Branch and Stop build the common LogicResult shapes.
func Continue() LogicResult { return LogicResult{Action: ActionContinue} }

func Branch(to SymptomID) LogicResult {
	return LogicResult{Action: ActionBranch, BranchTo: to}
}

func Stop(level TriageLevel, message string) LogicResult {
	return LogicResult{Action: ActionStop, Level: level, Message: message}
}

// WithTriage attaches a triage level and message to r.
func (r LogicResult) WithTriage(level TriageLevel, message string) LogicResult {
	r.Level = level
	r.Message = message
	return r
}

// Evaluator turns the answers of one question set into a LogicResult.
type Evaluator interface {
	Evaluate(answers Answers) LogicResult
}

// EvaluatorFunc adapts a plain function to Evaluator.
type EvaluatorFunc func(Answers) LogicResult

func (f EvaluatorFunc) Evaluate(answers Answers) LogicResult { return f(answers) }

// SymptomDefinition is the immutable description of one symptom module.
type SymptomDefinition struct {
	ID        SymptomID
	Name      string
	Category  Category
	Screening []Question
	Screen    Evaluator
	FollowUp  []Question
	// Follow is nil when the symptom has no follow-up set.
	Follow Evaluator
	Hidden bool
}

// HasFollowUp reports whether the symptom defines a follow-up set.
func (d SymptomDefinition) HasFollowUp() bool {
	return d.Follow != nil
}

// Questions returns the screening or follow-up set.
func (d SymptomDefinition) Questions(followUp bool) []Question {
	if followUp {
		return d.FollowUp
	}
	return d.Screening
}
