package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"symptom-checker/internal/alerting"
	"symptom-checker/internal/catalog"
	"symptom-checker/internal/domain"
	"symptom-checker/internal/engine"
	"symptom-checker/internal/observability"
	"symptom-checker/internal/repository"
)

const maxConversationIDLen = 128

// Evaluator runs one step of the symptom check. *engine.Engine satisfies it.
type Evaluator interface {
	Evaluate(state domain.ConversationState, in domain.Input) engine.Response
}

type CatalogReader interface {
	Visible() []catalog.Group
}

type StateStore interface {
	Load(ctx context.Context, conversationID string) (domain.ConversationState, int64, error)
	Save(ctx context.Context, conversationID string, state domain.ConversationState, expectedVersion int64) (int64, error)
}

// CheckService loads a conversation, advances it by one answer, persists
// the result and alerts clinicians when the check ends with a triage need.
type CheckService struct {
	engine  Evaluator
	catalog CatalogReader
	state   StateStore
	alerts  alerting.Notifier
	now     func() time.Time
}

type CheckInput struct {
	// ConversationID is empty on the first call of a new conversation.
	ConversationID string
	Input          domain.Input
}

type CheckOutput struct {
	ConversationID string
	Version        int64
	Response       engine.Response
}

func NewCheckService(e Evaluator, c CatalogReader, s StateStore, n alerting.Notifier) (*CheckService, error) {
	if e == nil {
		return nil, errors.New("usecase: engine must not be nil")
	}
	if c == nil {
		return nil, errors.New("usecase: catalog must not be nil")
	}
	if s == nil {
		return nil, errors.New("usecase: state store must not be nil")
	}
	if n == nil {
		return nil, errors.New("usecase: notifier must not be nil")
	}
	return &CheckService{engine: e, catalog: c, state: s, alerts: n, now: time.Now}, nil
}

func (s *CheckService) Check(ctx context.Context, in CheckInput) (CheckOutput, error) {
	log := observability.LoggerFromContext(ctx)

	convID := strings.TrimSpace(in.ConversationID)
	if convID != "" && !validConversationID(convID) {
		return CheckOutput{}, newError(ErrorInvalidInput, "invalid_conversation_id", nil)
	}

	var (
		st      domain.ConversationState
		version int64
		input   = in.Input
	)
	if convID == "" {
		convID = newUUID()
	} else {
		loaded, v, err := s.state.Load(ctx, convID)
		switch {
		case err == nil:
			st, version = loaded, v
		case errors.Is(err, repository.ErrNotFound):
		case errors.Is(err, repository.ErrCorruptState):
			log.Warn("restarting conversation with unreadable state", "conversation_id", convID, "err", err)
			version = v
			input = domain.Input{}
		default:
			return CheckOutput{}, newError(ErrorInternal, "dynamodb_read_error", err)
		}
	}

	wasTerminal := st.Phase.Terminal()
	resp := s.engine.Evaluate(st, input)
	if wasTerminal {
		return CheckOutput{ConversationID: convID, Version: version, Response: resp}, nil
	}

	next, err := s.state.Save(ctx, convID, resp.State, version)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return CheckOutput{}, newError(ErrorStateConflict, "conversation_updated_concurrently", err)
		}
		return CheckOutput{}, newError(ErrorInternal, "dynamodb_write_error", err)
	}

	if resp.State.Phase.Terminal() {
		a := alerting.NewAlert(convID, resp.State, s.now())
		if err := alerting.Dispatch(ctx, s.alerts, a); err != nil {
			log.Error("failed to deliver triage alert",
				"conversation_id", convID, "level", a.Level, "err", err)
		}
		log.Info("symptom check finished",
			"conversation_id", convID, "phase", resp.State.Phase, "level", resp.State.HighestTriageLevel)
	}

	return CheckOutput{ConversationID: convID, Version: next, Response: resp}, nil
}

// Catalog returns the symptoms offered on the selection screen.
func (s *CheckService) Catalog() []catalog.Group {
	return s.catalog.Visible()
}

func validConversationID(id string) bool {
	if len(id) > maxConversationIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

var newUUID = func() string {
	return uuid.NewString()
}
