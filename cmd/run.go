package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lunavale/selene/internal/actions"
	"github.com/lunavale/selene/internal/behaviors"
	"github.com/lunavale/selene/internal/bus"
	"github.com/lunavale/selene/internal/config"
	"github.com/lunavale/selene/internal/decision"
	"github.com/lunavale/selene/internal/memory"
	"github.com/lunavale/selene/internal/pipeline"
	"github.com/lunavale/selene/internal/platform"
	"github.com/lunavale/selene/internal/plugin"
	"github.com/lunavale/selene/internal/providers"
	"github.com/lunavale/selene/internal/scheduler"
	"github.com/lunavale/selene/internal/store"
	"github.com/lunavale/selene/internal/telemetry"
	"github.com/lunavale/selene/internal/tools"
	"github.com/lunavale/selene/internal/vision"
)

func runBot() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfgPath := resolveConfigPath()
	manager, err := config.NewManager(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}
	cfg := manager.Snapshot()

	if cfg.Discord.Token == "" {
		slog.Error("no Discord token configured; set SELENE_DISCORD_TOKEN")
		os.Exit(1)
	}
	if cfg.LLM.APIKey == "" {
		slog.Error("no LLM API key configured; set SELENE_API_KEY")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint != "" {
		shutdown, err := telemetry.Setup(ctx, cfg.Telemetry.Endpoint, Version)
		if err != nil {
			slog.Warn("telemetry setup failed, continuing without traces", "error", err)
		} else {
			defer func() {
				shutdownCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
				defer c()
				shutdown(shutdownCtx)
			}()
		}
	}

	go func() {
		if err := manager.Watch(ctx); err != nil {
			slog.Warn("config watcher stopped", "error", err)
		}
	}()

	msgBus := bus.New(100)

	discord, err := platform.NewDiscord(cfg.Discord.Token, msgBus)
	if err != nil {
		slog.Error("failed to create discord client", "error", err)
		os.Exit(1)
	}

	provider := providers.NewOpenAIProvider(
		cfg.LLM.Provider, cfg.LLM.APIKey, cfg.LLM.APIBase, cfg.LLM.Model, cfg.LLM.RatePerMinute)

	memStore := memory.NewStore(memory.Options{
		PersonaName:  func() string { return manager.Snapshot().Persona.Name },
		ContextLimit: func() int { return manager.Snapshot().LLM.ContextLimit },
	})

	var activity *store.Activity
	if path := cfg.Activity.DBPath; path != "" {
		activity, err = store.OpenActivity(path)
		if err != nil {
			slog.Error("failed to open activity log", "path", path, "error", err)
			os.Exit(1)
		}
		defer activity.Close()
	}

	registry := plugin.NewRegistry()
	report := plugin.Load(registry, []plugin.Definition{
		tools.ProfileLookupDefinition(),
		tools.ServerInfoDefinition(),
		actions.ResponseDefinition(),
		actions.ReactionDefinition(),
		actions.StatusDefinition(),
		actions.IgnoreDefinition(),
		behaviors.IdleGreetingDefinition(),
	})
	for name, err := range report.Errors {
		slog.Warn("builtin plugin unavailable", "plugin", name, "error", err)
	}

	engine := decision.NewEngine(provider, registry,
		func() config.LLMConfig { return manager.Snapshot().LLM })

	deps := plugin.Dependencies{
		"platform":  platform.Client(discord),
		"memory":    memStore,
		"responder": actions.ReplyGenerator(engine),
		"persona":   func() config.PersonaConfig { return manager.Snapshot().Persona },
	}

	var analyzer vision.Analyzer = vision.Noop{}
	if cfg.Vision.Enabled {
		analyzer = vision.NewOpenAIAnalyzer(cfg.LLM.APIKey, cfg.LLM.APIBase, cfg.LLM.Model)
	}

	pipe := pipeline.New(pipeline.Options{
		Config:   manager,
		Bus:      msgBus,
		Client:   discord,
		Store:    memStore,
		Engine:   engine,
		Tools:    tools.NewExecutor(registry, deps),
		Router:   actions.NewRouter(registry, deps, engine.IsTool),
		Activity: activity,
		Analyzer: analyzer,
	})
	go pipe.Run(ctx)

	if err := discord.Start(ctx); err != nil {
		slog.Error("failed to start discord connection", "error", err)
		os.Exit(1)
	}

	if status := cfg.Discord.DefaultStatus; status != "" {
		if err := discord.SetStatus(ctx, status); err != nil {
			slog.Warn("failed to set initial status", "error", err)
		}
	}

	sched := scheduler.New(
		scheduler.Job{
			Name: "memory-cleanup",
			Expr: func() string { return manager.Snapshot().Memory.CleanupCron },
			Run: func(_ context.Context) {
				maxAge := time.Duration(manager.Snapshot().Memory.MaxAgeHours) * time.Hour
				if n := memStore.CleanupOlderThan(maxAge); n > 0 {
					slog.Info("memory cleanup evicted messages", "count", n)
				}
			},
		},
		scheduler.Job{
			Name: "behaviors",
			// Behaviors share the cleanup cadence check but gate themselves
			// on channel idleness, so an hourly tick is fine.
			Expr: func() string { return "0 * * * *" },
			Run: func(jobCtx context.Context) {
				for _, name := range registry.Names(plugin.TypeBehavior) {
					if _, err := registry.ExecuteBehavior(jobCtx, name, plugin.Context{}, deps); err != nil {
						slog.Warn("behavior run failed", "behavior", name, "error", err)
					}
				}
			},
		},
	)
	go sched.Start(ctx)

	slog.Info("selene running", "version", Version, "persona", cfg.Persona.Name)

	<-ctx.Done()
	slog.Info("shutting down")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := discord.Stop(stopCtx); err != nil {
		slog.Warn("discord shutdown error", "error", err)
	}
	msgBus.Close()
}
