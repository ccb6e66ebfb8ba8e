package alerting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"symptom-checker/internal/integrations/paramstore"
)

// Sender posts a text message to a chat. *telegram.Client satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type chatIDs struct {
	careTeam int64
	onCall   int64
}

// TelegramNotifier sends alerts to Telegram chats whose ids are read from
// SSM on first use.
type TelegramNotifier struct {
	sender      Sender
	params      paramstore.BatchGetter
	paramPrefix string

	mu     sync.Mutex
	loaded bool
	chats  chatIDs
}

func NewTelegramNotifier(sender Sender, params paramstore.BatchGetter, paramPrefix string) (*TelegramNotifier, error) {
	if sender == nil {
		return nil, errors.New("alerting: sender must not be nil")
	}
	if params == nil {
		return nil, errors.New("alerting: paramstore must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("alerting: parameter prefix must not be empty")
	}
	return &TelegramNotifier{sender: sender, params: params, paramPrefix: paramPrefix}, nil
}

func (n *TelegramNotifier) careTeamParam() string {
	return n.paramPrefix + "/telegram/care_team_chat_id"
}

func (n *TelegramNotifier) onCallParam() string {
	return n.paramPrefix + "/telegram/on_call_chat_id"
}

// resolveChats keeps the chat ids after the first successful read. A failed
// read is retried on the next alert.
func (n *TelegramNotifier) resolveChats(ctx context.Context) (chatIDs, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.loaded {
		return n.chats, nil
	}
	chats, err := n.fetchChats(ctx)
	if err != nil {
		return chatIDs{}, err
	}
	n.chats, n.loaded = chats, true
	return chats, nil
}

func (n *TelegramNotifier) fetchChats(ctx context.Context) (chatIDs, error) {
	values, err := n.params.GetParameters(ctx, n.careTeamParam(), n.onCallParam())
	if err != nil {
		return chatIDs{}, fmt.Errorf("alerting: fetch chat ids: %w", err)
	}
	careTeam, err := paramstore.ParseInt64(n.careTeamParam(), values[n.careTeamParam()])
	if err != nil {
		return chatIDs{}, fmt.Errorf("alerting: %w", err)
	}
	onCall, err := paramstore.ParseInt64(n.onCallParam(), values[n.onCallParam()])
	if err != nil {
		return chatIDs{}, fmt.Errorf("alerting: %w", err)
	}
	return chatIDs{careTeam: careTeam, onCall: onCall}, nil
}

// CareTeam posts a to the care team chat.
func (n *TelegramNotifier) CareTeam(ctx context.Context, a Alert) error {
	chats, err := n.resolveChats(ctx)
	if err != nil {
		return err
	}
	if err := n.sender.SendMessage(ctx, chats.careTeam, a.Text()); err != nil {
		return fmt.Errorf("alerting: CareTeam: %w", err)
	}
	return nil
}

// Emergency posts a to the on-call chat and copies the care team. The copy
// is attempted even when the on-call delivery fails.
func (n *TelegramNotifier) Emergency(ctx context.Context, a Alert) error {
	chats, err := n.resolveChats(ctx)
	if err != nil {
		return err
	}
	text := a.Text()
	var errs []error
	if err := n.sender.SendMessage(ctx, chats.onCall, text); err != nil {
		errs = append(errs, fmt.Errorf("alerting: Emergency on-call: %w", err))
	}
	if chats.careTeam != chats.onCall {
		if err := n.sender.SendMessage(ctx, chats.careTeam, text); err != nil {
			errs = append(errs, fmt.Errorf("alerting: Emergency care team: %w", err))
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes alerts to a logger. The CLI uses it in place of a chat.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) logger() *slog.Logger {
	if n.Log != nil {
		return n.Log
	}
	return slog.Default()
}

func (n LogNotifier) CareTeam(ctx context.Context, a Alert) error {
	n.logger().InfoContext(ctx, "care team alert", "conversation_id", a.ConversationID, "text", a.Text())
	return nil
}

func (n LogNotifier) Emergency(ctx context.Context, a Alert) error {
	n.logger().WarnContext(ctx, "emergency alert", "conversation_id", a.ConversationID, "text", a.Text())
	return nil
}
