package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"symptom-checker/internal/catalog"
	"symptom-checker/internal/domain"
	"symptom-checker/internal/engine"
	"symptom-checker/internal/observability"
	"symptom-checker/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	maxBodyBytes      = 8 << 10

	routeCheck    = "/symptom-check"
	routeSymptoms = "/symptoms"
)

// CheckUseCase is the application surface served over API Gateway.
type CheckUseCase interface {
	Check(ctx context.Context, in usecase.CheckInput) (usecase.CheckOutput, error)
	Catalog() []catalog.Group
}

type Handler struct {
	uc CheckUseCase
}

type checkRequest struct {
	ConversationID string          `json:"conversationId"`
	Type           string          `json:"type"`
	Value          json.RawMessage `json:"value"`
}

type optionResponse struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Group string `json:"group,omitempty"`
}

type checkResponse struct {
	ConversationID   string              `json:"conversationId"`
	Message          string              `json:"message"`
	MessageType      engine.MessageType  `json:"messageType"`
	Options          []optionResponse    `json:"options"`
	TriageLevel      *domain.TriageLevel `json:"triageLevel,omitempty"`
	TriageMessage    *string             `json:"triageMessage,omitempty"`
	IsComplete       bool                `json:"isComplete"`
	RequiresFollowUp bool                `json:"requiresFollowUp"`
}

type symptomResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type categoryResponse struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Symptoms []symptomResponse `json:"symptoms"`
}

type catalogResponse struct {
	Categories []categoryResponse `json:"categories"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func NewHandler(uc CheckUseCase) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	return &Handler{uc: uc}, nil
}

// Handle serves API Gateway proxy requests.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := headerValue(event.Headers, correlationHeader)
	if corrID == "" {
		corrID = newCorrelationID()
	}
	ctx = observability.WithCorrelationID(ctx, corrID)
	log := observability.LoggerFromContext(ctx)

	path := strings.TrimRight(event.Path, "/")
	var resp events.APIGatewayProxyResponse
	switch {
	case strings.HasSuffix(path, routeCheck):
		if event.HTTPMethod != http.MethodPost {
			resp = jsonResponse(http.StatusMethodNotAllowed, errorResponse{Error: "METHOD_NOT_ALLOWED"})
			break
		}
		resp = h.check(ctx, event)
	case strings.HasSuffix(path, routeSymptoms):
		if event.HTTPMethod != http.MethodGet {
			resp = jsonResponse(http.StatusMethodNotAllowed, errorResponse{Error: "METHOD_NOT_ALLOWED"})
			break
		}
		resp = jsonResponse(http.StatusOK, toCatalogResponse(h.uc.Catalog()))
	default:
		resp = jsonResponse(http.StatusNotFound, errorResponse{Error: "NOT_FOUND"})
	}

	resp.Headers[correlationHeader] = corrID
	log.Info("request handled", "method", event.HTTPMethod, "path", event.Path, "status", resp.StatusCode)
	return resp, nil
}

func (h *Handler) check(ctx context.Context, event events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return badRequest("invalid_body_encoding")
		}
		body = string(decoded)
	}
	if len(body) > maxBodyBytes {
		return badRequest("body_too_large")
	}

	var req checkRequest
	if strings.TrimSpace(body) != "" {
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			return badRequest("invalid_json")
		}
	}
	kind, value, err := payloadValue(req.Type, req.Value)
	if err != nil {
		return badRequest("invalid_value")
	}
	in, err := engine.ParseMessage(kind, value)
	if err != nil {
		return badRequest("invalid_message")
	}

	out, err := h.uc.Check(ctx, usecase.CheckInput{ConversationID: req.ConversationID, Input: in})
	if err != nil {
		return h.errorResponse(ctx, err)
	}
	return jsonResponse(http.StatusOK, toCheckResponse(out))
}

// payloadValue flattens the JSON value of a chat payload to the string form
// ParseMessage expects. Numbers, booleans and string arrays are accepted
// alongside plain strings.
func payloadValue(kind string, raw json.RawMessage) (string, string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return kind, "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return kind, s, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if kind == "" {
			kind = engine.PayloadButtonResponse
		}
		if b {
			return kind, "yes", nil
		}
		return kind, "no", nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if kind == "" {
			kind = engine.PayloadNumber
		}
		return kind, strconv.FormatFloat(n, 'f', -1, 64), nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if kind == "" {
			kind = engine.PayloadMultiSelect
		}
		if len(list) == 0 {
			return kind, engine.NoneOption, nil
		}
		return kind, strings.Join(list, ","), nil
	}
	return "", "", errors.New("handler: unsupported value")
}

func toCheckResponse(out usecase.CheckOutput) checkResponse {
	r := out.Response
	options := make([]optionResponse, 0, len(r.Options))
	for _, o := range r.Options {
		options = append(options, optionResponse{Label: o.Label, Value: o.Value, Group: o.Group})
	}
	return checkResponse{
		ConversationID:   out.ConversationID,
		Message:          r.Message,
		MessageType:      r.MessageType,
		Options:          options,
		TriageLevel:      r.TriageLevel,
		TriageMessage:    r.TriageMessage,
		IsComplete:       r.IsComplete,
		RequiresFollowUp: r.RequiresFollowUp,
	}
}

func toCatalogResponse(groups []catalog.Group) catalogResponse {
	out := catalogResponse{Categories: make([]categoryResponse, 0, len(groups))}
	for _, g := range groups {
		c := categoryResponse{ID: string(g.Category), Name: g.Name, Symptoms: make([]symptomResponse, 0, len(g.Symptoms))}
		for _, def := range g.Symptoms {
			c.Symptoms = append(c.Symptoms, symptomResponse{ID: string(def.ID), Name: def.Name})
		}
		out.Categories = append(out.Categories, c)
	}
	return out
}

func (h *Handler) errorResponse(ctx context.Context, err error) events.APIGatewayProxyResponse {
	log := observability.LoggerFromContext(ctx)

	var uerr *usecase.Error
	if !errors.As(err, &uerr) {
		log.Error("unexpected error", "err", err)
		return jsonResponse(http.StatusInternalServerError, errorResponse{Error: string(usecase.ErrorInternal)})
	}

	status := http.StatusInternalServerError
	switch uerr.Code {
	case usecase.ErrorInvalidInput:
		status = http.StatusBadRequest
	case usecase.ErrorStateConflict:
		status = http.StatusConflict
	}
	if status >= http.StatusInternalServerError {
		log.Error("check failed", "code", uerr.Code, "reason", uerr.Reason, "err", uerr.Err)
	} else {
		log.Warn("check rejected", "code", uerr.Code, "reason", uerr.Reason)
	}
	return jsonResponse(status, errorResponse{Error: string(uerr.Code), Reason: uerr.Reason})
}

func badRequest(reason string) events.APIGatewayProxyResponse {
	return jsonResponse(http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: reason})
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

// headerValue looks up name ignoring case; API Gateway forwards header
// names as the client sent them.
func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

var newCorrelationID = func() string {
	return uuid.NewString()
}
