package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"symptom-checker/internal/alerting"
	"symptom-checker/internal/catalog"
	"symptom-checker/internal/domain"
	"symptom-checker/internal/engine"
	"symptom-checker/internal/repository"
)

type mockState struct {
	loadState   domain.ConversationState
	loadVersion int64
	loadErr     error
	saveErr     error

	loadCalls    int
	saveCalls    int
	savedID      string
	savedState   domain.ConversationState
	savedVersion int64
}

func (m *mockState) Load(_ context.Context, _ string) (domain.ConversationState, int64, error) {
	m.loadCalls++
	return m.loadState, m.loadVersion, m.loadErr
}

func (m *mockState) Save(_ context.Context, id string, st domain.ConversationState, expected int64) (int64, error) {
	m.saveCalls++
	m.savedID = id
	m.savedState = st
	m.savedVersion = expected
	if m.saveErr != nil {
		return 0, m.saveErr
	}
	return expected + 1, nil
}

type mockNotifier struct {
	careTeam  []alerting.Alert
	emergency []alerting.Alert
	err       error
}

func (m *mockNotifier) CareTeam(_ context.Context, a alerting.Alert) error {
	m.careTeam = append(m.careTeam, a)
	return m.err
}

func (m *mockNotifier) Emergency(_ context.Context, a alerting.Alert) error {
	m.emergency = append(m.emergency, a)
	return m.err
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	e, err := engine.New(c,
		engine.WithClock(func() time.Time { return fixedNow }),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithStrictInvariants(),
	)
	require.NoError(t, err)
	return e
}

func newTestService(t *testing.T, st *mockState, n *mockNotifier) *CheckService {
	t.Helper()
	e := newTestEngine(t)
	c, err := catalog.Default()
	require.NoError(t, err)
	svc, err := NewCheckService(e, c, st, n)
	require.NoError(t, err)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func stubUUID(t *testing.T, id string) {
	t.Helper()
	prev := newUUID
	newUUID = func() string { return id }
	t.Cleanup(func() { newUUID = prev })
}

func expectCheckError(t *testing.T, err error, code ErrorCode, reason string) {
	t.Helper()
	var uerr *Error
	require.True(t, errors.As(err, &uerr), "expected *usecase.Error, got %T", err)
	require.Equal(t, code, uerr.Code)
	require.Equal(t, reason, uerr.Reason)
}

// stateAt drives a fresh engine through inputs and returns the state.
func stateAt(t *testing.T, inputs ...domain.Input) domain.ConversationState {
	t.Helper()
	e := newTestEngine(t)
	resp := e.Start()
	for _, in := range inputs {
		resp = e.Evaluate(resp.State, in)
	}
	return resp.State
}

func TestNewCheckService_Validation(t *testing.T) {
	e := newTestEngine(t)
	c, err := catalog.Default()
	require.NoError(t, err)

	_, err = NewCheckService(nil, c, &mockState{}, &mockNotifier{})
	require.ErrorContains(t, err, "engine")
	_, err = NewCheckService(e, nil, &mockState{}, &mockNotifier{})
	require.ErrorContains(t, err, "catalog")
	_, err = NewCheckService(e, c, nil, &mockNotifier{})
	require.ErrorContains(t, err, "state store")
	_, err = NewCheckService(e, c, &mockState{}, nil)
	require.ErrorContains(t, err, "notifier")
}

func TestCheck_NewConversation(t *testing.T) {
	stubUUID(t, "conv-new")
	st := &mockState{}
	svc := newTestService(t, st, &mockNotifier{})

	out, err := svc.Check(context.Background(), CheckInput{})
	require.NoError(t, err)
	require.Equal(t, "conv-new", out.ConversationID)
	require.Equal(t, int64(1), out.Version)
	require.Equal(t, engine.MessageSymptomSelect, out.Response.MessageType)
	require.Zero(t, st.loadCalls)
	require.Equal(t, "conv-new", st.savedID)
	require.Equal(t, int64(0), st.savedVersion)
	require.Equal(t, domain.PhaseSymptomSelection, st.savedState.Phase)
}

func TestCheck_NewConversationWithFirstSelection(t *testing.T) {
	stubUUID(t, "conv-new")
	st := &mockState{}
	svc := newTestService(t, st, &mockNotifier{})

	out, err := svc.Check(context.Background(), CheckInput{Input: domain.MultiChoice("fever")})
	require.NoError(t, err)
	require.Equal(t, catalog.Fever, out.Response.State.CurrentSymptomID)
	require.Equal(t, domain.PhaseScreening, st.savedState.Phase)
}

func TestCheck_ExistingConversationAdvances(t *testing.T) {
	st := &mockState{
		loadState:   stateAt(t, domain.MultiChoice("fatigue")),
		loadVersion: 3,
	}
	n := &mockNotifier{}
	svc := newTestService(t, st, n)

	out, err := svc.Check(context.Background(), CheckInput{ConversationID: "conv-1", Input: domain.TextInput("mild")})
	require.NoError(t, err)
	require.Equal(t, "conv-1", out.ConversationID)
	require.Equal(t, int64(4), out.Version)
	require.Equal(t, int64(3), st.savedVersion)
	require.True(t, out.Response.IsComplete)
	require.Empty(t, n.careTeam)
	require.Empty(t, n.emergency)
}

func TestCheck_UnknownConversationStartsFresh(t *testing.T) {
	st := &mockState{loadErr: repository.ErrNotFound}
	svc := newTestService(t, st, &mockNotifier{})

	out, err := svc.Check(context.Background(), CheckInput{ConversationID: "client-chosen"})
	require.NoError(t, err)
	require.Equal(t, "client-chosen", out.ConversationID)
	require.Equal(t, int64(0), st.savedVersion)
	require.Equal(t, engine.MessageSymptomSelect, out.Response.MessageType)
}

func TestCheck_CorruptStateRestartsKeepingVersion(t *testing.T) {
	st := &mockState{loadErr: fmt.Errorf("%w: bad json", repository.ErrCorruptState), loadVersion: 7}
	svc := newTestService(t, st, &mockNotifier{})

	out, err := svc.Check(context.Background(), CheckInput{ConversationID: "conv-1", Input: domain.BoolInput(true)})
	require.NoError(t, err)
	require.Equal(t, int64(7), st.savedVersion)
	require.Equal(t, engine.MessageSymptomSelect, out.Response.MessageType)
	require.Equal(t, "Which symptoms are you having today? Choose all that apply.", out.Response.Message)
}

func TestCheck_LoadError(t *testing.T) {
	st := &mockState{loadErr: errors.New("throttled")}
	svc := newTestService(t, st, &mockNotifier{})

	_, err := svc.Check(context.Background(), CheckInput{ConversationID: "conv-1"})
	expectCheckError(t, err, ErrorInternal, "dynamodb_read_error")
	require.Zero(t, st.saveCalls)
}

func TestCheck_SaveConflict(t *testing.T) {
	st := &mockState{saveErr: fmt.Errorf("%w: conv-1", repository.ErrVersionConflict)}
	svc := newTestService(t, st, &mockNotifier{})

	_, err := svc.Check(context.Background(), CheckInput{ConversationID: "conv-1", Input: domain.TextInput("none")})
	expectCheckError(t, err, ErrorStateConflict, "conversation_updated_concurrently")
	require.ErrorIs(t, err, repository.ErrVersionConflict)
}

func TestCheck_SaveError(t *testing.T) {
	st := &mockState{saveErr: errors.New("boom")}
	svc := newTestService(t, st, &mockNotifier{})

	_, err := svc.Check(context.Background(), CheckInput{ConversationID: "conv-1"})
	expectCheckError(t, err, ErrorInternal, "dynamodb_write_error")
}

func TestCheck_SaveConflictSendsNoAlert(t *testing.T) {
	st := &mockState{
		loadState: stateAt(t, domain.MultiChoice("nausea"), domain.BoolInput(true), domain.NumberInput(3)),
		saveErr:   repository.ErrVersionConflict,
	}
	n := &mockNotifier{}
	svc := newTestService(t, st, n)

	_, err := svc.Check(context.Background(), CheckInput{ConversationID: "conv-1", Input: domain.BoolInput(true)})
	require.Error(t, err)
	require.Empty(t, n.careTeam)
}

func TestCheck_CareTeamAlertOnCompletion(t *testing.T) {
	st := &mockState{
		loadState:   stateAt(t, domain.MultiChoice("nausea"), domain.BoolInput(true), domain.NumberInput(3)),
		loadVersion: 4,
	}
	n := &mockNotifier{}
	svc := newTestService(t, st, n)

	out, err := svc.Check(context.Background(), CheckInput{ConversationID: "conv-1", Input: domain.BoolInput(true)})
	require.NoError(t, err)
	require.Equal(t, domain.TriageNotifyCareTeam, *out.Response.TriageLevel)
	require.Len(t, n.careTeam, 1)
	require.Empty(t, n.emergency)

	a := n.careTeam[0]
	require.Equal(t, "conv-1", a.ConversationID)
	require.Equal(t, fixedNow, a.At)
	require.Len(t, a.Records, 1)
	require.Equal(t, "Persistent vomiting for 2+ days", a.Records[0].Message)
}

func TestCheck_EmergencyAlert(t *testing.T) {
	st := &mockState{
		loadState: stateAt(t, domain.MultiChoice("trouble_breathing"), domain.BoolInput(true)),
	}
	n := &mockNotifier{}
	svc := newTestService(t, st, n)

	out, err := svc.Check(context.Background(), CheckInput{ConversationID: "conv-1", Input: domain.BoolInput(false)})
	require.NoError(t, err)
	require.Equal(t, domain.PhaseEmergency, out.Response.State.Phase)
	require.Len(t, n.emergency, 1)
	require.Empty(t, n.careTeam)
}

func TestCheck_AlertFailureDoesNotFailCheck(t *testing.T) {
	st := &mockState{loadState: stateAt(t, domain.MultiChoice("trouble_breathing"), domain.BoolInput(true))}
	n := &mockNotifier{err: errors.New("telegram down")}
	svc := newTestService(t, st, n)

	out, err := svc.Check(context.Background(), CheckInput{ConversationID: "conv-1", Input: domain.BoolInput(false)})
	require.NoError(t, err)
	require.True(t, out.Response.IsComplete)
	require.Equal(t, domain.PhaseEmergency, out.Response.State.Phase)
	require.Len(t, n.emergency, 1)
	require.Equal(t, 1, st.saveCalls)
}

func TestCheck_TerminalConversationIsNotSavedOrRealerted(t *testing.T) {
	done := stateAt(t, domain.MultiChoice("trouble_breathing"), domain.BoolInput(true), domain.BoolInput(false))
	require.Equal(t, domain.PhaseEmergency, done.Phase)
	st := &mockState{loadState: done, loadVersion: 2}
	n := &mockNotifier{}
	svc := newTestService(t, st, n)

	out, err := svc.Check(context.Background(), CheckInput{ConversationID: "conv-1", Input: domain.TextInput("hello")})
	require.NoError(t, err)
	require.True(t, out.Response.IsComplete)
	require.Equal(t, int64(2), out.Version)
	require.Zero(t, st.saveCalls)
	require.Empty(t, n.emergency)
}

func TestCheck_InvalidConversationID(t *testing.T) {
	svc := newTestService(t, &mockState{}, &mockNotifier{})

	for _, id := range []string{"conv/1", "a b", string(make([]byte, 129))} {
		_, err := svc.Check(context.Background(), CheckInput{ConversationID: id})
		expectCheckError(t, err, ErrorInvalidInput, "invalid_conversation_id")
	}
}

func TestCatalog(t *testing.T) {
	svc := newTestService(t, &mockState{}, &mockNotifier{})
	groups := svc.Catalog()
	require.Len(t, groups, 2)
	require.Equal(t, domain.CategoryEmergency, groups[0].Category)
}

func TestError_Format(t *testing.T) {
	err := newError(ErrorInternal, "dynamodb_write_error", errors.New("boom"))
	require.Equal(t, "usecase: INTERNAL_ERROR (dynamodb_write_error): boom", err.Error())
	require.Equal(t, "usecase: INVALID_INPUT (x)", newError(ErrorInvalidInput, "x", nil).Error())
	var nilErr *Error
	require.Equal(t, "", nilErr.Error())
	require.Nil(t, nilErr.Unwrap())
}
