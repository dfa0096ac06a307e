// Command editor is a terminal front end for one editing session. It talks to
// the API server, or with -local runs the post and generation services in
// process.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/client"
	"inkwell/internal/config"
	"inkwell/internal/editor"
	"inkwell/internal/repository/memory"
	"inkwell/internal/service"
	"inkwell/internal/service/generation"

	"github.com/joho/godotenv"
)

const maxLogFiles = 10

func main() {
	_ = godotenv.Load()

	local := flag.Bool("local", false, "run the post store and generation service in process")
	user := flag.String("user", "dev-user", "user id for -local, or for minting a token from JWT_SECRET")
	logDir := flag.String("log-dir", "logs", "directory for session log files")
	flag.Parse()

	cfg := config.Load()

	logFile, err := config.SetupLogFile(*logDir, "editor", maxLogFiles)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: logLevel}))
	logger.Info("editor starting", "local", *local, "api_url", cfg.APIURL)

	posts, gen, err := newBackends(cfg, *local, *user, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	session := editor.New(posts, gen,
		editor.WithLogger(logger),
		editor.WithAutosaveDelay(cfg.AutosaveDelay),
	)
	defer session.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := newREPL(session, posts, os.Stdout)
	if err := r.Run(ctx, os.Stdin); err != nil {
		logger.Error("editor stopped", "error", err)
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	logger.Info("editor stopped")
}

// newBackends returns the post library and generator for the session.
func newBackends(cfg *config.Config, local bool, userID string, logger *slog.Logger) (library, editor.Generator, error) {
	if local {
		postService := service.NewPostService(memory.NewPostRepository(), memory.NewTransactionManager(), logger)

		modelInfo, err := generation.ParseModel(cfg.LLMModel, cfg.LLMProvider)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid LLM_MODEL: %w", err)
		}
		provider, err := generation.NewProvider(cfg, modelInfo)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to setup LLM provider: %w", err)
		}
		prompts, err := generation.NewPromptRegistry()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load prompts: %w", err)
		}
		genService := generation.NewService(provider, modelInfo.Model, prompts, nil, logger)

		return client.NewLocalStore(postService, userID), client.NewLocalGenerator(genService), nil
	}

	token := cfg.APIToken
	if token == "" && cfg.JWTSecret != "" {
		minted, err := auth.IssueToken(cfg.JWTSecret, userID, "", 12*time.Hour)
		if err != nil {
			return nil, nil, err
		}
		token = minted
	}
	if token == "" {
		logger.Warn("no INKWELL_TOKEN or JWT_SECRET, requests will be unauthenticated")
	}

	c := client.NewHTTPClient(cfg.APIURL, token, logger)
	return c, c, nil
}
