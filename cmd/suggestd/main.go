package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mealsuggest"
	"mealsuggest/llm"
	"mealsuggest/notify"
	"mealsuggest/profile"
	"mealsuggest/store"
	"mealsuggest/suggest"
	"mealsuggest/tdee"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		slog.Info("SETUP: No .env file loaded", "error", err)
	}

	var poolConfig mealsuggest.PoolConfig
	if err := envdecode.Decode(&poolConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	var pipelineConfig mealsuggest.PipelineConfig
	if err := envdecode.Decode(&pipelineConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	var storeConfig mealsuggest.StoreConfig
	if err := envdecode.Decode(&storeConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	st, err := store.NewSQLite(storeConfig.DBPath)
	if err != nil {
		slog.Error("SETUP: Failed to open suggestion store", "error", err, "path", storeConfig.DBPath)
		return
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("SETUP: Failed to close suggestion store", "error", err)
		}
	}()
	slog.Info("SETUP: Suggestion store ready", "path", storeConfig.DBPath)

	profiles, err := newProfileProvider(ctx, storeConfig)
	if err != nil {
		slog.Error("SETUP: Failed to create profile provider", "error", err)
		return
	}

	backend, err := newBackend(ctx, poolConfig)
	if err != nil {
		slog.Error("SETUP: Failed to create generation backend", "error", err)
		return
	}

	logger, cleanup := newGenerationLogger(poolConfig.BedrockModelID)
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("SETUP: Failed to flush generation log", "error", err)
		}
	}()

	tracerProvider, meterProvider, otelShutdown, err := mealsuggest.InitOtel(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
		return
	}
	defer func() {
		if err := otelShutdown(ctx); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	tracer := tracerProvider.Tracer(mealsuggest.TracerNameSuggest)
	meter := meterProvider.Meter(mealsuggest.TracerNameSuggest)
	ctx, span := tracer.Start(ctx, mealsuggest.TracerNameSuggest, trace.WithAttributes(
		attribute.String("model.id", poolConfig.BedrockModelID),
		attribute.String("compat.model.id", poolConfig.CompatModelID),
		attribute.Int("model.max_tokens", int(poolConfig.MaxTokens)),
	))
	defer span.End()

	targets := tdee.NewCachedTargets(st)
	orchestrator := suggest.NewInstrumentedOrchestrator(
		suggest.NewOrchestrator(backend, st, profiles, targets, pipelineConfig, logger),
		tracer,
		meter,
	)

	in := inputFromArgs()
	session, suggestions, err := orchestrator.Generate(ctx, in)
	if err != nil {
		slog.Error("RESULT: Generation failed", "error", err)
		notifyResult(ctx, storeConfig, nil, nil, err)
		return
	}

	slog.Info("RESULT: Generation complete",
		"session_id", session.ID,
		"suggestions", len(suggestions),
		"target_calories", session.TargetCalories,
	)
	if os.Getenv("DEBUG_DUMP") != "" {
		mealsuggest.Dump(session, suggestions)
	}

	notifyResult(ctx, storeConfig, session, suggestions, nil)
}

// inputFromArgs builds the generation request from CLI arguments, falling
// back to a demo request.
func inputFromArgs() mealsuggest.GenerateInput {
	return mealsuggest.GenerateInput{
		UserID:             argOr(1, "demo-user"),
		MealCategory:       argOr(2, "dinner"),
		PortionCategory:    mealsuggest.PortionCategory(argOr(3, string(mealsuggest.PortionMain))),
		Ingredients:        splitList(argOr(4, "chicken,rice,broccoli")),
		CookingTimeMinutes: intOr(5, 30),
		Language:           argOr(6, mealsuggest.WorkingLanguage),
		Servings:           intOr(7, 1),
	}
}

func newProfileProvider(ctx context.Context, cfg mealsuggest.StoreConfig) (profile.Provider, error) {
	if cfg.ProfileBucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		slog.Info("SETUP: Using S3 profile provider", "bucket", cfg.ProfileBucket, "key", cfg.ProfileKey)
		return profile.NewS3(s3.NewFromConfig(awsCfg), cfg.ProfileBucket, cfg.ProfileKey), nil
	}
	slog.Info("SETUP: Using file profile provider", "path", cfg.ProfilePath)
	return profile.NewFile(cfg.ProfilePath), nil
}

// newBackend wires both rate-limit pools behind one port: pool A is Bedrock
// Converse, pool B an OpenAI-compatible endpoint. Clients are built lazily
// and cached with TTL eviction.
func newBackend(ctx context.Context, cfg mealsuggest.PoolConfig) (*llm.PoolSet, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRetryMaxAttempts(5))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	brc := bedrockruntime.NewFromConfig(awsCfg)

	factory := func(key string) (llm.Backend, error) {
		switch llm.Pool(key) {
		case llm.PoolA:
			return llm.NewBedrockClient(brc, llm.BedrockOptions{
				ModelID:     cfg.BedrockModelID,
				MaxTokens:   cfg.MaxTokens,
				Temperature: cfg.Temperature,
				TopP:        cfg.TopP,
			}), nil
		case llm.PoolB:
			return llm.NewCompatClient(http.DefaultClient, llm.CompatOptions{
				BaseEndpoint: cfg.CompatEndpoint,
				ModelID:      cfg.CompatModelID,
				Temperature:  cfg.Temperature,
				TopP:         cfg.TopP,
			}), nil
		default:
			return nil, fmt.Errorf("unknown pool %q", key)
		}
	}

	return llm.NewPoolSet(llm.NewClientPool(factory, cfg.ClientPoolSize, cfg.ClientTTL)), nil
}

func newGenerationLogger(modelID string) (mealsuggest.GenerationLogger, func() error) {
	logFilePath := mealsuggest.NewGenerationLogFilePath(modelID)
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		slog.Warn("SETUP: Log file unavailable, logging phases to stdout", "path", logFilePath, "error", err)
		return mealsuggest.NewStdoutGenerationLogger(), func() error { return nil }
	}

	logger := mealsuggest.NewFileGenerationLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup
}

func notifyResult(ctx context.Context, cfg mealsuggest.StoreConfig, session *mealsuggest.Session, suggestions []mealsuggest.MealSuggestion, runErr error) {
	if cfg.NotifyWebhook == "" {
		return
	}
	client := notify.NewClient(cfg.NotifyWebhook, http.DefaultClient)
	if err := client.PostResult(ctx, cfg.NotifyChannel, session, suggestions, runErr); err != nil {
		slog.Error("FINAL: Failed to post result notification", "error", err)
	}
}

func argOr(i int, def string) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return def
}

func intOr(i int, def int) int {
	if len(os.Args) > i {
		if v, err := strconv.Atoi(os.Args[i]); err == nil {
			return v
		}
	}
	return def
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
