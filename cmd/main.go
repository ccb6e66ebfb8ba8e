package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"symptom-checker/handler"
	"symptom-checker/internal/alerting"
	"symptom-checker/internal/catalog"
	"symptom-checker/internal/engine"
	"symptom-checker/internal/integrations/paramstore"
	"symptom-checker/internal/integrations/telegram"
	"symptom-checker/internal/observability"
	"symptom-checker/internal/repository"
	"symptom-checker/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	stateTable := mustEnv("STATE_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	stateTTLDays := envInt("STATE_TTL_DAYS", 30)
	logger := observability.New(os.Getenv("LOG_LEVEL"))
	slog.SetDefault(logger)

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	dynamoClient := awsdynamodb.NewFromConfig(cfg)
	stateClient, err := repository.New(dynamoClient, stateTable,
		repository.WithTTL(time.Duration(stateTTLDays)*24*time.Hour))
	if err != nil {
		slog.Error("failed to create state client", "err", err)
		os.Exit(1)
	}

	telegramClient, err := telegram.NewClient(ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create Telegram client", "err", err)
		os.Exit(1)
	}
	notifier, err := alerting.NewTelegramNotifier(telegramClient, ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create notifier", "err", err)
		os.Exit(1)
	}

	// ---- Engine ----
	symptoms, err := catalog.Default()
	if err != nil {
		slog.Error("failed to load symptom catalog", "err", err)
		os.Exit(1)
	}
	eng, err := engine.New(symptoms, engine.WithLogger(logger))
	if err != nil {
		slog.Error("failed to create engine", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	checkService, err := usecase.NewCheckService(eng, symptoms, stateClient, notifier)
	if err != nil {
		slog.Error("failed to create check service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(checkService)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
