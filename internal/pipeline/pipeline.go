// Package pipeline is the orchestrator: it consumes inbound messages
// from the bus, gates and filters them, batches bursts, and drives each
// flushed turn through tools, decision and action. Stages communicate
// through explicit context values only; nothing here mutates shared
// state besides the conversation store.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lunavale/selene/internal/actions"
	"github.com/lunavale/selene/internal/batch"
	"github.com/lunavale/selene/internal/bus"
	"github.com/lunavale/selene/internal/config"
	"github.com/lunavale/selene/internal/decision"
	"github.com/lunavale/selene/internal/filter"
	"github.com/lunavale/selene/internal/memory"
	"github.com/lunavale/selene/internal/platform"
	"github.com/lunavale/selene/internal/plugin"
	"github.com/lunavale/selene/internal/store"
	"github.com/lunavale/selene/internal/tools"
	"github.com/lunavale/selene/internal/vision"
)

// maxToolRounds caps tool-then-decide iterations per turn so a model
// that keeps asking for tools cannot loop forever.
const maxToolRounds = 2

// Options wires the pipeline's collaborators. Activity and Analyzer may
// be nil; those stages are then skipped.
type Options struct {
	Config   *config.Manager
	Bus      *bus.Bus
	Client   platform.Client
	Store    *memory.Store
	Engine   *decision.Engine
	Tools    *tools.Executor
	Router   *actions.Router
	Activity *store.Activity
	Analyzer vision.Analyzer
}

// processed carries the filter verdict alongside the original message
// through the batcher.
type processed struct {
	msg    bus.InboundMessage
	result filter.Result
}

// Pipeline drives messages from the bus to their action.
type Pipeline struct {
	cfg      *config.Manager
	bus      *bus.Bus
	client   platform.Client
	store    *memory.Store
	engine   *decision.Engine
	tools    *tools.Executor
	router   *actions.Router
	activity *store.Activity
	analyzer vision.Analyzer

	filter  *filter.Filter
	batcher *batch.Batcher
	tracer  trace.Tracer

	// base context for flush goroutines; set once in Run.
	runCtx context.Context
}

// New assembles a Pipeline. The mention resolver looks members up
// through the platform client, cached per (guild, user).
func New(opts Options) *Pipeline {
	p := &Pipeline{
		cfg:      opts.Config,
		bus:      opts.Bus,
		client:   opts.Client,
		store:    opts.Store,
		engine:   opts.Engine,
		tools:    opts.Tools,
		router:   opts.Router,
		activity: opts.Activity,
		analyzer: opts.Analyzer,
		tracer:   otel.Tracer("selene/pipeline"),
	}

	resolver := filter.NewCachingResolver(func(ctx context.Context, guildID, userID string) (string, error) {
		m, err := p.client.Member(ctx, guildID, userID)
		if err != nil {
			return "", err
		}
		if m.DisplayName != "" {
			return m.DisplayName, nil
		}
		return m.Username, nil
	})
	p.filter = filter.New(resolver)

	batchCfg := opts.Config.Snapshot().Batch
	p.batcher = batch.NewBatcher(
		time.Duration(batchCfg.WindowMS)*time.Millisecond,
		time.Duration(batchCfg.MaxWaitMS)*time.Millisecond,
		p.onFlush,
	)
	return p
}

// Run consumes the bus until ctx is canceled or the bus closes.
func (p *Pipeline) Run(ctx context.Context) {
	p.runCtx = ctx
	for {
		msg, ok := p.bus.Consume(ctx)
		if !ok {
			return
		}
		p.handleInbound(ctx, msg)
	}
}

// handleInbound applies the cheap gates and either answers a command,
// drops the message, or hands it to the batcher.
func (p *Pipeline) handleInbound(ctx context.Context, msg bus.InboundMessage) {
	cfg := p.cfg.Snapshot()

	// Bot authors never enter the pipeline: no loops with other bots.
	if msg.AuthorIsBot {
		return
	}

	if prefix := cfg.Discord.CommandPrefix; prefix != "" && strings.HasPrefix(msg.Content, prefix) {
		p.handleCommand(ctx, msg, strings.TrimPrefix(msg.Content, prefix))
		return
	}

	if !cfg.IsChannelActive(msg.ChannelID) {
		slog.Debug("message in inactive channel dropped", "channel_id", msg.ChannelID)
		return
	}

	res := p.filter.Process(ctx, msg)
	if !res.ShouldProcess {
		slog.Debug("message filtered out",
			"channel_id", msg.ChannelID, "author_id", msg.AuthorID, "reason", res.Reason)
		return
	}

	p.batcher.Add(batch.Item{
		ChannelID: msg.ChannelID,
		UserID:    msg.AuthorID,
		Content:   res.Cleaned,
		Payload:   processed{msg: msg, result: res},
	})
}

// onFlush receives one combined logical turn from the batcher and
// processes it on its own goroutine so slow LLM calls never block other
// channels' flushes.
func (p *Pipeline) onFlush(f batch.Flush) error {
	ctx := p.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	go p.processTurn(ctx, f)
	return nil
}

func (p *Pipeline) processTurn(ctx context.Context, f batch.Flush) {
	runID := uuid.NewString()
	start := time.Now()

	last, ok := f.Last.Payload.(processed)
	if !ok {
		slog.Error("flush payload has unexpected type", "channel_id", f.ChannelID)
		return
	}
	msg := last.msg

	ctx, span := p.tracer.Start(ctx, "pipeline.turn",
		trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.String("channel_id", f.ChannelID),
			attribute.Int("batched", len(f.Items)),
		))
	defer span.End()

	log := slog.With("run_id", runID, "channel_id", f.ChannelID, "author", msg.AuthorName)
	log.Info("processing turn", "batched", len(f.Items), "chars", len(f.Combined))

	cfg := p.cfg.Snapshot()

	p.ensureHistory(ctx, msg.ChannelID, cfg)

	// Record the user turn before deciding so the decision prompt and any
	// generated reply both see it.
	p.store.Append(memory.Message{
		Author:          displayAuthor(msg),
		Content:         f.Combined,
		Timestamp:       msg.Timestamp,
		ChannelID:       msg.ChannelID,
		ChannelName:     msg.ChannelName,
		GuildID:         msg.GuildID,
		GuildName:       msg.GuildName,
		UserID:          msg.AuthorID,
		UserDisplayName: msg.DisplayName,
		MessageID:       msg.MessageID,
	}, false)

	history := p.store.History(msg.ChannelID)

	imageSummary := p.describeImages(ctx, msg, last.result, cfg)

	pc := plugin.Context{
		Message:      msg,
		Cleaned:      f.Combined,
		History:      history,
		ImageSummary: imageSummary,
		EmbedSummary: last.result.EmbedSummary,
	}
	dctx := decision.Context{
		Message:      msg,
		Cleaned:      f.Combined,
		History:      history,
		ImageSummary: imageSummary,
		EmbedSummary: last.result.EmbedSummary,
		Persona:      cfg.Persona,
	}

	// Trigger-matched tools run up front; the decision may then name one
	// more explicitly.
	if p.tools.ShouldRun(f.Combined) {
		dctx.ToolResults = p.tools.Run(ctx, pc)
	}

	d, meta := p.engine.Decide(ctx, dctx, true)
	for round := 0; p.engine.IsTool(d.Action) && round < maxToolRounds; round++ {
		log.Info("decision requested tool", "tool", d.Action, "round", round+1)
		toolPC := pc
		toolPC.TargetUser = d.TargetUser
		dctx.ToolResults = append(dctx.ToolResults, p.tools.RunNamed(ctx, d.Action, toolPC))

		allowMore := round+1 < maxToolRounds
		d, meta = p.engine.Decide(ctx, dctx, allowMore)
	}
	if p.engine.IsTool(d.Action) {
		// Tool budget exhausted with the model still asking for tools.
		d = decision.Default("tool round limit reached")
	}

	// Whatever the tools found rides along to the action so the reply
	// prompt sees it too.
	for _, tr := range dctx.ToolResults {
		if tr.Success && tr.Summary != "" {
			pc.ToolResults = append(pc.ToolResults, plugin.ToolResult{Tool: tr.Tool, Summary: tr.Summary})
		}
	}

	log.Info("decision made",
		"action", d.Action, "confidence", d.Confidence,
		"prompt_tokens_est", meta.EstimatedTokens,
		"history_included", meta.MessagesIncluded, "history_available", meta.MessagesAvailable)

	out := p.router.Execute(ctx, d, pc)
	span.SetAttributes(
		attribute.String("action", d.Action),
		attribute.Bool("success", out.Success),
	)

	p.record(ctx, store.Entry{
		RunID:      runID,
		ChannelID:  f.ChannelID,
		UserID:     f.UserID,
		Action:     d.Action,
		Confidence: d.Confidence,
		Success:    out.Success,
		Error:      out.Error,
		Batched:    len(f.Items),
		Duration:   time.Since(start),
	})

	log.Info("turn complete", "action", d.Action, "success", out.Success,
		"duration", time.Since(start).Round(time.Millisecond))
}

// ensureHistory lazily backfills a stale channel from the platform.
func (p *Pipeline) ensureHistory(ctx context.Context, channelID string, cfg *config.Config) {
	freshness := time.Duration(cfg.Memory.FreshnessMinutes) * time.Minute
	if !p.store.NeedsBackfill(channelID, freshness) {
		return
	}

	fetch := func(ctx context.Context, channelID string, limit int) ([]memory.Message, error) {
		fetched, err := p.client.RecentMessages(ctx, channelID, limit)
		if err != nil {
			return nil, err
		}
		out := make([]memory.Message, 0, len(fetched))
		for _, m := range fetched {
			out = append(out, memory.Message{
				Author:          m.AuthorName,
				IsBot:           m.IsBot,
				Content:         m.Content,
				Timestamp:       m.Timestamp,
				ChannelID:       channelID,
				UserID:          m.AuthorID,
				UserDisplayName: m.DisplayName,
				MessageID:       m.MessageID,
			})
		}
		return out, nil
	}

	p.store.LoadRecent(ctx, channelID, fetch, memory.BackfillOptions{
		MaxAge:      time.Duration(cfg.Memory.MaxAgeHours) * time.Hour,
		MaxMessages: cfg.Memory.BackfillLimit,
		Freshness:   freshness,
		SelfUserID:  p.client.BotUser().ID,
	})
}

// describeImages analyzes image attachments when vision is enabled.
// Any failure degrades to the bare placeholder already in the cleaned
// text; image analysis is never load-bearing.
func (p *Pipeline) describeImages(ctx context.Context, msg bus.InboundMessage, res filter.Result, cfg *config.Config) string {
	if !res.HasImages || !cfg.Vision.Enabled || p.analyzer == nil {
		return ""
	}

	var summaries []string
	for _, att := range msg.Attachments {
		if !filter.IsImageAttachment(att) {
			continue
		}
		data, err := vision.Fetch(ctx, att.URL, cfg.Vision.MaxImageBytes)
		if err != nil {
			slog.Warn("image fetch failed", "channel_id", msg.ChannelID, "error", err)
			continue
		}
		prepared, err := vision.Prepare(data, cfg.Vision.MaxDimension)
		if err != nil {
			slog.Warn("image preprocessing failed", "channel_id", msg.ChannelID, "error", err)
			continue
		}
		desc, err := p.analyzer.AnalyzeImage(ctx, prepared, "")
		if err != nil {
			slog.Warn("image analysis failed", "channel_id", msg.ChannelID, "error", err)
			continue
		}
		if desc != "" {
			summaries = append(summaries, desc)
		}
	}
	return strings.Join(summaries, "\n")
}

func (p *Pipeline) record(ctx context.Context, e store.Entry) {
	if p.activity == nil {
		return
	}
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.activity.Record(recordCtx, e); err != nil {
		slog.Warn("activity record failed", "run_id", e.RunID, "error", err)
	}
}

func displayAuthor(msg bus.InboundMessage) string {
	if msg.DisplayName != "" {
		return msg.DisplayName
	}
	return msg.AuthorName
}
