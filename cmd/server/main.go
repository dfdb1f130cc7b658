package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chatrix/chatrix/internal/api"
	"github.com/chatrix/chatrix/internal/assistant"
	"github.com/chatrix/chatrix/internal/config"
	"github.com/chatrix/chatrix/internal/database"
	"github.com/chatrix/chatrix/internal/server"
	"github.com/chatrix/chatrix/internal/stats"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr             string
	dsn              string
	signingKey       string
	allowedOrigins   stringSliceFlag
	assistantURL     string
	assistantModel   string
	assistantTimeout time.Duration
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.StringVar(&assistantURL, "assistant-url", "", "base URL of an OpenAI-compatible completions API (empty disables assistant replies)")
	flag.StringVar(&assistantModel, "assistant-model", "llama3-8b-8192", "assistant model name")
	flag.DurationVar(&assistantTimeout, "assistant-timeout", 10*time.Second, "per-message assistant reply timeout")
	flag.Parse()

	logger := log.New(os.Stderr, "[chatrix] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins, config.AssistantConfig{
		BaseURL: assistantURL,
		APIKey:  os.Getenv("ASSISTANT_API_KEY"),
		Model:   assistantModel,
		Timeout: assistantTimeout,
	})
	if err != nil {
		logger.Fatal("config: ", err)
	}

	dbConn, err := database.NewPgChatrixRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open: ", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Println("db close:", err)
		}
	}()

	if err := dbConn.Migrate(); err != nil {
		logger.Fatal("migrate: ", err)
	}

	mux := http.NewServeMux()

	su := stats.NewStatsUpdater(mux)
	su.Run()

	var replies assistant.ReplyGenerator
	if cfg.Assistant.Enabled() {
		replies = assistant.NewClient(logger, cfg.Assistant.BaseURL, cfg.Assistant.APIKey, cfg.Assistant.Model, cfg.Assistant.Timeout)
	}

	cs, err := server.NewChatServer(logger, dbConn, replies, su, cfg.Assistant.Timeout)
	if err != nil {
		logger.Fatal("chat server: ", err)
	}
	go cs.Run()

	app := api.NewChatrixApp(mux, logger, cs, dbConn, su, cfg)
	go func() {
		if err := app.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server: ", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.Shutdown(ctx); err != nil {
		logger.Println("shutdown:", err)
	}

	cs.Shutdown()
	su.Stop()
}
