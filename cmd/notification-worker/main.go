// Package main is the entrypoint for the notification worker Lambda.
//
// The function is subscribed to the events queue. Each SQS batch is routed
// through the subscription router to the notification dispatcher; only
// messages whose dispatch failed before the ledger claim are reported as
// batch item failures and redelivered.
//
// With APP_ENV=local an SQS event is read from stdin:
//
//	echo '{"Records":[{"messageId":"1","body":"{...}"}]}' | go run ./cmd/notification-worker
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"taskpulse/internal/app"
	"taskpulse/internal/config"
	"taskpulse/internal/notifications/router"
)

// batchHandler is satisfied by *router.LambdaHandler.
type batchHandler interface {
	Handle(ctx context.Context, sqsEvent lambdaevents.SQSEvent) (lambdaevents.SQSEventResponse, error)
}

func main() {
	cfg, err := config.LoadConfig(config.NewEnvVarProvider())
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("notification worker initializing (cold start)", "version", cfg.Build.Version)

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	handler := router.NewLambdaHandler(a.Router)
	logger.Info("notification worker initialized",
		"delivery_endpoint_configured", cfg.Delivery.Endpoint != "",
		"dispatch_timeout", cfg.Delivery.Timeout,
	)

	if cfg.IsLocal() {
		code := runLocal(handler, os.Stdin, os.Stderr, logger)
		a.Close()
		os.Exit(code)
	}

	lambda.Start(handler.Handle)
}

// runLocal handles one SQS event read from in and returns the exit code.
// Partial failures are written to out as the Lambda response JSON.
func runLocal(h batchHandler, in io.Reader, out io.Writer, logger *slog.Logger) int {
	logger.Info("APP_ENV=local: reading SQS event from stdin")
	raw, err := io.ReadAll(in)
	if err != nil {
		logger.Error("failed to read stdin", "error", err)
		return 1
	}
	if len(raw) == 0 {
		logger.Error("no input received on stdin")
		return 1
	}

	var sqsEvent lambdaevents.SQSEvent
	if err := json.Unmarshal(raw, &sqsEvent); err != nil {
		logger.Error("failed to parse stdin as SQS event", "error", err)
		return 1
	}

	response, err := h.Handle(context.Background(), sqsEvent)
	if err != nil {
		logger.Error("handler execution failed", "error", err)
		return 1
	}
	if len(response.BatchItemFailures) > 0 {
		logger.Warn("handler reported partial failures", "failed_count", len(response.BatchItemFailures))
		respJSON, _ := json.MarshalIndent(response, "", "  ")
		fmt.Fprintln(out, string(respJSON))
	}
	logger.Info("handler execution completed",
		"records_processed", len(sqsEvent.Records),
		"failures", len(response.BatchItemFailures),
	)
	return 0
}

// newLogger creates a JSON slog.Logger for the given level name.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
