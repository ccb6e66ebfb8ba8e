// Package engine implements the symptom checker conversation state machine.
//
// The engine keeps no data between calls. Every call to Evaluate receives a
// full ConversationState snapshot and returns the next snapshot inside the
// Response; persisting it is the caller's job.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"symptom-checker/internal/catalog"
	"symptom-checker/internal/domain"
)

// Catalog is the read-only symptom registry consumed by the engine.
// *catalog.Catalog satisfies it.
type Catalog interface {
	Get(id domain.SymptomID) (domain.SymptomDefinition, bool)
	IsSelectable(id domain.SymptomID) bool
	Visible() []catalog.Group
}

// Engine evaluates one conversation step at a time. It is safe for
// concurrent use by any number of conversations.
type Engine struct {
	catalog Catalog
	now     func() time.Time
	log     *slog.Logger
	strict  bool
}

type Option func(*Engine)

// WithClock sets the clock used to timestamp triage records.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithStrictInvariants makes invariant violations panic instead of being
// logged. Tests run with it enabled.
func WithStrictInvariants() Option {
	return func(e *Engine) {
		e.strict = true
	}
}

// New creates an Engine backed by c.
func New(c Catalog, opts ...Option) (*Engine, error) {
	if c == nil {
		return nil, errors.New("engine: catalog must not be nil")
	}
	e := &Engine{
		catalog: c,
		now:     time.Now,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Start returns the opening symptom selection prompt of a new conversation.
func (e *Engine) Start() Response {
	return e.Evaluate(domain.ConversationState{}, domain.Input{})
}

// Evaluate applies in to state and returns the next message together with
// the new state. A zero state starts a new conversation. The state passed
// in is never modified.
func (e *Engine) Evaluate(state domain.ConversationState, in domain.Input) Response {
	var st domain.ConversationState
	if state.IsZero() {
		st = domain.NewConversationState()
	} else {
		st = state.Clone()
		normalize(&st)
	}

	t := &turn{e: e, st: &st}
	resp := t.run(in)
	e.checkInvariants(state, st)
	resp.State = st
	return resp
}

func normalize(st *domain.ConversationState) {
	if st.Answers == nil {
		st.Answers = domain.Answers{}
	}
	if st.SelectedSymptoms == nil {
		st.SelectedSymptoms = []domain.SymptomID{}
	}
	if st.CompletedSymptoms == nil {
		st.CompletedSymptoms = []domain.SymptomID{}
	}
	if st.BranchStack == nil {
		st.BranchStack = domain.SymptomStack{}
	}
	if st.TriageResults == nil {
		st.TriageResults = []domain.TriageRecord{}
	}
}

// turn carries the state being rewritten by a single Evaluate call.
type turn struct {
	e  *Engine
	st *domain.ConversationState
	// notes are shown ahead of the next prompt.
	notes []string
}

func (t *turn) run(in domain.Input) Response {
	switch t.st.Phase {
	case domain.PhaseSymptomSelection:
		return t.selectSymptoms(in)
	case domain.PhaseScreening, domain.PhaseFollowUp:
		return t.answer(in)
	case domain.PhaseSummary:
		return t.summarize()
	case domain.PhaseCompleted, domain.PhaseEmergency:
		return t.e.terminalResponse(*t.st)
	default:
		t.e.log.Warn("restarting conversation with unknown phase", "phase", t.st.Phase)
		t.restart()
		if t.st.HighestTriageLevel == domain.TriageCall911 {
			return t.emergency()
		}
		return t.e.selectionResponse(t.notes, "")
	}
}

// restart returns to symptom selection. Recorded triage results and the
// high-water mark survive.
func (t *turn) restart() {
	fresh := domain.NewConversationState()
	fresh.TriageResults = t.st.TriageResults
	fresh.HighestTriageLevel = t.st.HighestTriageLevel
	*t.st = fresh
}

func (t *turn) selectSymptoms(in domain.Input) Response {
	if in.Empty() {
		return t.e.selectionResponse(t.notes, "")
	}
	ids, err := parseSelection(in)
	if err != nil {
		return t.e.selectionResponse(t.notes, err.Error())
	}

	options := t.e.selectableOptions()
	selected := make([]domain.SymptomID, 0, len(ids))
	for _, raw := range ids {
		opt, ok := matchOption(options, string(raw))
		if !ok {
			if _, known := t.e.catalog.Get(raw); known {
				t.e.log.Warn("ignoring hidden symptom in selection", "symptom_id", raw)
				continue
			}
			// Unrecognized entries are asked again, never dropped.
			t.e.log.Info("unrecognized symptom in selection", "value", raw)
			return t.e.selectionResponse(t.notes, hintSelection)
		}
		id := domain.SymptomID(opt.Value)
		if !slices.Contains(selected, id) {
			selected = append(selected, id)
		}
	}
	if len(ids) > 0 && len(selected) == 0 {
		return t.e.selectionResponse(t.notes, hintSelection)
	}

	t.st.SelectedSymptoms = selected
	return t.advance()
}

func (t *turn) answer(in domain.Input) Response {
	def, ok := t.e.catalog.Get(t.st.CurrentSymptomID)
	if !ok {
		t.e.log.Warn("skipping unknown current symptom", "symptom_id", t.st.CurrentSymptomID)
		t.complete(t.st.CurrentSymptomID)
		return t.advance()
	}

	questions := def.Questions(t.st.IsFollowUp)
	idx := t.st.CurrentQuestionIndex
	if idx < 0 || idx >= len(questions) {
		return t.conclude(def)
	}
	q := questions[idx]
	if in.Empty() {
		return t.ask(def, q, "")
	}

	value, err := coerce(q, in)
	if err != nil {
		return t.ask(def, q, err.Error())
	}
	t.st.Answers[q.ID] = value

	next := nextAskable(questions, idx+1, t.st.Answers)
	if next < len(questions) {
		t.st.CurrentQuestionIndex = next
		return t.ask(def, questions[next], "")
	}
	return t.conclude(def)
}

// conclude evaluates the question set just finished and dispatches on the
// result.
func (t *turn) conclude(def domain.SymptomDefinition) Response {
	ev := def.Screen
	if t.st.IsFollowUp {
		ev = def.Follow
	}
	res, err := safeEvaluate(ev, t.st.Answers.Clone())
	if err != nil {
		t.e.log.Error("symptom evaluation failed",
			"symptom_id", def.ID, "follow_up", t.st.IsFollowUp, "err", err)
		t.notes = append(t.notes, fallbackMessage)
		t.complete(def.ID)
		return t.advance()
	}

	if res.Level != domain.TriageNone {
		t.st.Record(domain.TriageRecord{
			SymptomID:   def.ID,
			SymptomName: def.Name,
			Level:       res.Level,
			Message:     res.Message,
			RecordedAt:  t.e.now().UTC(),
		})
	}
	if res.Level == domain.TriageCall911 {
		t.complete(def.ID)
		return t.emergency()
	}

	switch res.Action {
	case domain.ActionContinue:
		if !t.st.IsFollowUp && def.HasFollowUp() {
			t.st.IsFollowUp = true
			t.st.Phase = domain.PhaseFollowUp
			first := nextAskable(def.FollowUp, 0, t.st.Answers)
			if first >= len(def.FollowUp) {
				return t.conclude(def)
			}
			t.st.CurrentQuestionIndex = first
			return t.ask(def, def.FollowUp[first], "")
		}
		t.complete(def.ID)
	case domain.ActionBranch:
		t.complete(def.ID)
		t.queueBranch(def.ID, res.BranchTo)
	case domain.ActionStop:
		t.complete(def.ID)
	}
	return t.advance()
}

// queueBranch pushes target ahead of everything still queued unless it was
// already completed or is already waiting on the branch stack.
func (t *turn) queueBranch(from, target domain.SymptomID) {
	if target == "" {
		t.e.log.Warn("branch without target", "symptom_id", from)
		return
	}
	if t.st.IsCompleted(target) {
		return
	}
	for _, id := range t.st.BranchStack {
		if id == target {
			return
		}
	}
	t.st.BranchStack.Push(target)
}

// advance starts the next queued symptom, or summarizes when none is left.
func (t *turn) advance() Response {
	for {
		id, ok := t.nextSymptom()
		if !ok {
			return t.summarize()
		}
		def, found := t.e.catalog.Get(id)
		if !found {
			t.e.log.Warn("skipping unknown symptom", "symptom_id", id)
			t.complete(id)
			continue
		}

		t.st.Phase = domain.PhaseScreening
		t.st.CurrentSymptomID = id
		t.st.IsFollowUp = false
		t.st.Answers = domain.Answers{}
		t.st.CurrentQuestionIndex = 0

		first := nextAskable(def.Screening, 0, t.st.Answers)
		if first >= len(def.Screening) {
			return t.conclude(def)
		}
		t.st.CurrentQuestionIndex = first
		return t.ask(def, def.Screening[first], "")
	}
}

// nextSymptom pops the branch stack first and only then falls back to the
// patient's own selection. Completed symptoms are never returned.
func (t *turn) nextSymptom() (domain.SymptomID, bool) {
	for {
		id, ok := t.st.BranchStack.Pop()
		if !ok {
			break
		}
		if !t.st.IsCompleted(id) {
			return id, true
		}
	}
	for _, id := range t.st.SelectedSymptoms {
		if !t.st.IsCompleted(id) {
			return id, true
		}
	}
	return "", false
}

func (t *turn) complete(id domain.SymptomID) {
	if !t.st.MarkCompleted(id) {
		t.e.violation("symptom completed twice", "symptom_id", id)
	}
}

func (t *turn) clearCurrent() {
	t.st.CurrentSymptomID = ""
	t.st.CurrentQuestionIndex = 0
	t.st.IsFollowUp = false
	t.st.Answers = domain.Answers{}
}

func (t *turn) emergency() Response {
	t.clearCurrent()
	t.st.Phase = domain.PhaseEmergency
	return t.e.terminalResponse(*t.st)
}

func (t *turn) summarize() Response {
	t.clearCurrent()
	if t.st.HighestTriageLevel == domain.TriageCall911 {
		return t.emergency()
	}
	t.st.Phase = domain.PhaseSummary
	resp := t.e.summaryResponse(*t.st)
	t.st.Phase = domain.PhaseCompleted
	resp.Message = joinParts(t.notes, resp.Message)
	return resp
}

func (t *turn) ask(def domain.SymptomDefinition, q domain.Question, hint string) Response {
	intro := ""
	if !t.st.IsFollowUp && len(t.st.Answers) == 0 {
		intro = symptomIntro(def)
	}
	return questionResponse(q, joinParts(t.notes, hint, intro, q.Prompt))
}

// nextAskable returns the index of the first question at or after from whose
// condition holds, or len(questions) when there is none.
func nextAskable(questions []domain.Question, from int, answers domain.Answers) int {
	for i := from; i < len(questions); i++ {
		if questions[i].Applies(answers) {
			return i
		}
	}
	return len(questions)
}

// safeEvaluate runs ev and turns a panic or a malformed result into an
// error so a faulty symptom module cannot end the session or invent a
// triage level.
func safeEvaluate(ev domain.Evaluator, answers domain.Answers) (res domain.LogicResult, err error) {
	if ev == nil {
		return domain.LogicResult{}, errors.New("engine: evaluator is nil")
	}
	defer func() {
		if r := recover(); r != nil {
			res = domain.LogicResult{}
			err = fmt.Errorf("engine: evaluator panic: %v", r)
		}
	}()
	res = ev.Evaluate(answers)
	if !res.Level.Valid() {
		return domain.LogicResult{}, fmt.Errorf("engine: evaluator returned invalid level %d", int(res.Level))
	}
	switch res.Action {
	case domain.ActionContinue, domain.ActionBranch, domain.ActionStop:
	default:
		return domain.LogicResult{}, fmt.Errorf("engine: evaluator returned unknown action %q", res.Action)
	}
	return res, nil
}

// checkInvariants compares the snapshot handed in with the one produced.
func (e *Engine) checkInvariants(before, after domain.ConversationState) {
	if after.HighestTriageLevel < before.HighestTriageLevel {
		e.violation("highest triage level decreased",
			"before", before.HighestTriageLevel, "after", after.HighestTriageLevel)
	}
	seen := make(map[domain.SymptomID]bool, len(after.CompletedSymptoms))
	for _, id := range after.CompletedSymptoms {
		if seen[id] {
			e.violation("duplicate completed symptom", "symptom_id", id)
		}
		seen[id] = true
	}
	for _, rec := range after.TriageResults {
		if rec.Level > after.HighestTriageLevel {
			e.violation("triage record above high-water mark", "symptom_id", rec.SymptomID, "level", rec.Level)
		}
	}
	if len(after.TriageResults) < len(before.TriageResults) {
		e.violation("triage results shrank", "before", len(before.TriageResults), "after", len(after.TriageResults))
	}
}

func (e *Engine) violation(msg string, kv ...any) {
	if e.strict {
		panic(fmt.Sprintf("engine: invariant violated: %s %v", msg, kv))
	}
	e.log.Error("invariant violated: "+msg, kv...)
}
