package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/artifactchat/internal/config"
	ctxengine "github.com/user/artifactchat/internal/context"
	"github.com/user/artifactchat/internal/delivery"
	"github.com/user/artifactchat/internal/gateway"
	"github.com/user/artifactchat/internal/metrics"
	"github.com/user/artifactchat/internal/runtime"
	"github.com/user/artifactchat/internal/runtime/tools"
	"github.com/user/artifactchat/internal/state"
	"github.com/user/artifactchat/internal/types"
	"github.com/user/artifactchat/pkg/llm"
	"github.com/user/artifactchat/pkg/llm/openai"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "artifactchat",
	Short:         "Chat with an assistant that answers in artifacts",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(loadConfig())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig loads cfgPath or exits; every command needs a config.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// app is everything a frontend needs, built once from config.
type app struct {
	cfg      *config.Config
	chat     *gateway.Chat
	registry *runtime.Registry
	metrics  *metrics.Metrics
}

func newRegistry(cfg *config.Config) *runtime.Registry {
	registry := runtime.NewRegistry()
	registry.Register(tools.NewCreateArtifact())
	if cfg.Brave.APIKey != "" {
		registry.Register(tools.NewWebSearch(cfg.Brave.APIKey))
	}
	registry.Register(tools.NewReadURL())
	return registry
}

func newProvider(cfg *config.Config, registry *runtime.Registry) (types.ResponseProvider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "stub":
		return runtime.NewStub(
			runtime.WithLatency(time.Duration(cfg.Stub.LatencyMS)*time.Millisecond),
			runtime.WithToolProbability(cfg.Stub.ToolProbability),
		), nil
	case "openai":
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("provider openai needs llm.api_key or OPENAI_API_KEY")
		}
		client := openai.New(&llm.Config{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		})
		engine := ctxengine.New(cfg.LLM.Model, cfg.LLM.MaxContextTokens, cfg.LLM.OutputReserve)
		return runtime.New(client, engine, registry, cfg.MaxToolRounds), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want stub or openai)", cfg.Provider)
	}
}

func buildApp(cfg *config.Config) (*app, error) {
	policy, err := gateway.ParsePolicy(cfg.PendingPolicy)
	if err != nil {
		return nil, err
	}

	registry := newRegistry(cfg)
	provider, err := newProvider(cfg, registry)
	if err != nil {
		return nil, err
	}

	var seed []types.Message
	if cfg.SeedWelcome {
		seed = state.WelcomeMessages(time.Now())
	}
	store := state.NewConversation(seed...)

	m := metrics.New()
	chat := gateway.New(store, provider,
		gateway.WithPolicy(policy),
		gateway.WithMetrics(m),
		gateway.WithDelivery(delivery.NewRegistry()),
	)

	slog.Info("artifactchat ready",
		"provider", cfg.Provider,
		"pending_policy", string(policy),
		"tools", strings.Join(registry.Names(), ","),
		"seeded", len(seed),
	)
	return &app{cfg: cfg, chat: chat, registry: registry, metrics: m}, nil
}
