package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"symptom-checker/internal/domain"
)

const (
	skState    = "STATE#"
	DefaultTTL = 30 * 24 * time.Hour
)

var (
	// ErrNotFound is returned by Load when no state is stored for a conversation.
	ErrNotFound = errors.New("repository: conversation not found")
	// ErrVersionConflict is returned by Save when another writer got there first.
	ErrVersionConflict = errors.New("repository: version conflict")
	// ErrCorruptState is returned by Load when the stored blob does not decode.
	// The returned version is still valid for a subsequent Save.
	ErrCorruptState = errors.New("repository: corrupt conversation state")
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// StateStore defines the conversation state operations consumed by the use case.
type StateStore interface {
	Load(ctx context.Context, conversationID string) (domain.ConversationState, int64, error)
	Save(ctx context.Context, conversationID string, state domain.ConversationState, expectedVersion int64) (int64, error)
}

// Client stores one versioned state item per conversation in a DynamoDB table.
type Client struct {
	api       dynamodbAPI
	tableName string
	ttl       time.Duration
	now       func() time.Time
}

type Option func(*Client)

// WithTTL sets how long an idle conversation is kept before DynamoDB expires it.
func WithTTL(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.ttl = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	c := &Client{api: api, tableName: tableName, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// convPK returns the DynamoDB partition key for a conversation.
func convPK(conversationID string) string {
	return "CONV#" + conversationID
}

func stateKey(conversationID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: convPK(conversationID)},
		"SK": &types.AttributeValueMemberS{Value: skState},
	}
}

// Load reads the latest state snapshot of a conversation and its version.
func (c *Client) Load(ctx context.Context, conversationID string) (domain.ConversationState, int64, error) {
	if strings.TrimSpace(conversationID) == "" {
		return domain.ConversationState{}, 0, errors.New("repository: Load: conversation id is required")
	}
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            stateKey(conversationID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.ConversationState{}, 0, fmt.Errorf("repository: Load get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.ConversationState{}, 0, ErrNotFound
	}

	version, err := intAttr(out.Item, "version")
	if err != nil {
		return domain.ConversationState{}, 0, fmt.Errorf("repository: Load decode version: %w", err)
	}
	blob, err := strAttr(out.Item, "state")
	if err != nil {
		return domain.ConversationState{}, version, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	var st domain.ConversationState
	if err := json.Unmarshal([]byte(blob), &st); err != nil {
		return domain.ConversationState{}, version, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return st, version, nil
}

// Save writes state as version expectedVersion+1. expectedVersion 0 means
// the conversation must not exist yet.
func (c *Client) Save(ctx context.Context, conversationID string, state domain.ConversationState, expectedVersion int64) (int64, error) {
	if strings.TrimSpace(conversationID) == "" {
		return 0, errors.New("repository: Save: conversation id is required")
	}
	if expectedVersion < 0 {
		return 0, fmt.Errorf("repository: Save: invalid expected version %d", expectedVersion)
	}
	blob, err := json.Marshal(state)
	if err != nil {
		return 0, fmt.Errorf("repository: Save marshal state: %w", err)
	}

	next := expectedVersion + 1
	in := &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      c.stateItem(conversationID, state, string(blob), next),
	}
	if expectedVersion == 0 {
		in.ConditionExpression = aws.String("attribute_not_exists(PK)")
	} else {
		in.ConditionExpression = aws.String("version = :expected")
		in.ExpressionAttributeValues = map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(expectedVersion, 10)},
		}
	}

	if _, err := c.api.PutItem(ctx, in); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return 0, fmt.Errorf("%w: conversation %s at version %d", ErrVersionConflict, conversationID, expectedVersion)
		}
		return 0, fmt.Errorf("repository: Save: %w", err)
	}
	return next, nil
}

func (c *Client) stateItem(conversationID string, st domain.ConversationState, blob string, version int64) map[string]types.AttributeValue {
	now := c.now().UTC()
	item := stateKey(conversationID)
	item["conversationId"] = &types.AttributeValueMemberS{Value: conversationID}
	item["state"] = &types.AttributeValueMemberS{Value: blob}
	item["version"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(version, 10)}
	item["phase"] = &types.AttributeValueMemberS{Value: string(st.Phase)}
	item["highestTriage"] = &types.AttributeValueMemberS{Value: st.HighestTriageLevel.String()}
	item["updatedAt"] = &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)}
	item["ttl"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(c.ttl).Unix(), 10)}
	return item
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
