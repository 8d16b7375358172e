package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lunavale/selene/internal/actions"
	"github.com/lunavale/selene/internal/batch"
	"github.com/lunavale/selene/internal/bus"
	"github.com/lunavale/selene/internal/config"
	"github.com/lunavale/selene/internal/decision"
	"github.com/lunavale/selene/internal/filter"
	"github.com/lunavale/selene/internal/memory"
	"github.com/lunavale/selene/internal/platform"
	"github.com/lunavale/selene/internal/plugin"
	"github.com/lunavale/selene/internal/providers"
	"github.com/lunavale/selene/internal/tools"
)

// fakeClient records outbound traffic for assertions.
type fakeClient struct {
	mu    sync.Mutex
	sends []string
}

func (f *fakeClient) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sends...)
}

func (f *fakeClient) BotUser() platform.User { return platform.User{ID: "bot", Username: "selene"} }
func (f *fakeClient) Send(_ context.Context, channelID, content string) (*platform.SentMessage, error) {
	f.mu.Lock()
	f.sends = append(f.sends, content)
	f.mu.Unlock()
	return &platform.SentMessage{MessageID: "sent", ChannelID: channelID, Timestamp: time.Now()}, nil
}
func (f *fakeClient) Reply(ctx context.Context, channelID, _ string, content string) (*platform.SentMessage, error) {
	return f.Send(ctx, channelID, content)
}
func (f *fakeClient) React(context.Context, string, string, string) error { return nil }
func (f *fakeClient) Typing(context.Context, string) error                { return nil }
func (f *fakeClient) SetStatus(context.Context, string) error             { return nil }
func (f *fakeClient) Member(context.Context, string, string) (*platform.Member, error) {
	return &platform.Member{Username: "someone"}, nil
}
func (f *fakeClient) ChannelInfo(context.Context, string) (*platform.ChannelInfo, error) {
	return &platform.ChannelInfo{}, nil
}
func (f *fakeClient) RecentMessages(context.Context, string, int) ([]platform.HistoryMessage, error) {
	return nil, nil
}

func testManager(t *testing.T, contents string) *config.Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json5")
	if contents != "" {
		if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	m, err := config.NewManager(path)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func newTestPipeline(t *testing.T, cfgContents string) (*Pipeline, *fakeClient) {
	t.Helper()
	client := &fakeClient{}
	mgr := testManager(t, cfgContents)
	store := memory.NewStore(memory.Options{})
	p := New(Options{
		Config: mgr,
		Bus:    bus.New(10),
		Client: client,
		Store:  store,
	})
	return p, client
}

func TestHandleInbound_BotAuthorDropped(t *testing.T) {
	p, client := newTestPipeline(t, "")

	p.handleInbound(context.Background(), bus.InboundMessage{
		ChannelID: "c1", AuthorID: "u1", AuthorIsBot: true, Content: "beep boop",
	})

	if p.batcher.PendingFor("c1", "u1") {
		t.Error("bot message entered the batcher")
	}
	if len(client.sent()) != 0 {
		t.Error("bot message produced output")
	}
}

func TestHandleInbound_InactiveChannelDropped(t *testing.T) {
	p, _ := newTestPipeline(t, `{discord: {active_channels: ["allowed"]}}`)

	p.handleInbound(context.Background(), bus.InboundMessage{
		ChannelID: "other", AuthorID: "u1", Content: "hello",
	})
	if p.batcher.PendingFor("other", "u1") {
		t.Error("inactive-channel message entered the batcher")
	}

	p.handleInbound(context.Background(), bus.InboundMessage{
		ChannelID: "allowed", AuthorID: "u1", Content: "hello",
	})
	if !p.batcher.PendingFor("allowed", "u1") {
		t.Error("active-channel message did not enter the batcher")
	}
}

func TestHandleInbound_EmoteOnlyDropped(t *testing.T) {
	p, _ := newTestPipeline(t, "")

	p.handleInbound(context.Background(), bus.InboundMessage{
		ChannelID: "c1", AuthorID: "u1", Content: "<:pog:12345>",
	})
	if p.batcher.PendingFor("c1", "u1") {
		t.Error("emote-only message entered the batcher")
	}
}

func TestCommands_Ping(t *testing.T) {
	p, client := newTestPipeline(t, "")

	p.handleInbound(context.Background(), bus.InboundMessage{
		ChannelID: "c1", AuthorID: "u1", AuthorName: "alice", Content: "!ping",
	})

	sent := client.sent()
	if len(sent) != 1 || sent[0] != "pong" {
		t.Errorf("sent = %v, want [pong]", sent)
	}
	if p.batcher.PendingFor("c1", "u1") {
		t.Error("command entered the batcher")
	}
}

func TestCommands_Clear(t *testing.T) {
	p, client := newTestPipeline(t, "")
	p.store.Append(memory.Message{ChannelID: "c1", Author: "alice", Content: "old"}, false)
	p.store.Append(memory.Message{ChannelID: "c1", Author: "alice", Content: "older"}, false)

	p.handleInbound(context.Background(), bus.InboundMessage{
		ChannelID: "c1", AuthorID: "u1", AuthorName: "alice", Content: "!clear",
	})

	if hist := p.store.History("c1"); len(hist) != 0 {
		t.Errorf("history after clear: %d messages", len(hist))
	}
	sent := client.sent()
	if len(sent) != 1 || !strings.Contains(sent[0], "2") {
		t.Errorf("clear reply = %v", sent)
	}
}

func TestCommands_Stats(t *testing.T) {
	p, client := newTestPipeline(t, "")
	p.store.Append(memory.Message{ChannelID: "c1", Author: "alice", Content: "hello world"}, false)

	p.handleInbound(context.Background(), bus.InboundMessage{
		ChannelID: "c1", AuthorID: "u1", AuthorName: "alice", Content: "!stats",
	})

	sent := client.sent()
	if len(sent) != 1 || !strings.Contains(sent[0], "Memory: 1 messages") {
		t.Errorf("stats reply = %v", sent)
	}
}

func TestCommands_UnknownIgnored(t *testing.T) {
	p, client := newTestPipeline(t, "")

	p.handleInbound(context.Background(), bus.InboundMessage{
		ChannelID: "c1", AuthorID: "u1", Content: "!frobnicate",
	})

	if len(client.sent()) != 0 {
		t.Errorf("unknown command answered: %v", client.sent())
	}
	if p.batcher.PendingFor("c1", "u1") {
		t.Error("unknown command entered the batcher")
	}
}

// scriptedProvider returns canned completions in order, repeating the
// last one once the script runs out.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func (p *scriptedProvider) Generate(_ context.Context, _ string, _ providers.GenerateOptions) (*providers.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.calls
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	p.calls++
	return &providers.Response{Content: p.responses[idx]}, nil
}

func (p *scriptedProvider) DefaultModel() string { return "test-model" }
func (p *scriptedProvider) Name() string         { return "scripted" }

// newFullPipeline wires a pipeline with real engine, tools and router
// around a scripted LLM, the way cmd/run assembles them.
func newFullPipeline(t *testing.T, provider *scriptedProvider) (*Pipeline, *fakeClient) {
	t.Helper()
	client := &fakeClient{}
	mgr := testManager(t, "")
	st := memory.NewStore(memory.Options{})

	reg := plugin.NewRegistry()
	for _, def := range []plugin.Definition{actions.ResponseDefinition(), actions.IgnoreDefinition()} {
		if err := reg.Register(def); err != nil {
			t.Fatal(err)
		}
	}

	engine := decision.NewEngine(provider, reg, func() config.LLMConfig { return mgr.Snapshot().LLM })
	deps := plugin.Dependencies{
		"platform":  client,
		"memory":    st,
		"responder": engine,
		"persona":   func() config.PersonaConfig { return mgr.Snapshot().Persona },
	}

	p := New(Options{
		Config: mgr,
		Bus:    bus.New(10),
		Client: client,
		Store:  st,
		Engine: engine,
		Tools:  tools.NewExecutor(reg, deps),
		Router: actions.NewRouter(reg, deps, engine.IsTool),
	})
	return p, client
}

func flushFor(msg bus.InboundMessage, res filter.Result) batch.Flush {
	item := batch.Item{
		ChannelID: msg.ChannelID,
		UserID:    msg.AuthorID,
		Content:   res.Cleaned,
		Payload:   processed{msg: msg, result: res},
	}
	return batch.Flush{
		ChannelID: msg.ChannelID,
		UserID:    msg.AuthorID,
		Items:     []batch.Item{item},
		Combined:  res.Cleaned,
		Last:      item,
	}
}

// One flushed turn yields exactly one decision and at most one outbound
// message, with both conversation turns recorded.
func TestProcessTurn_RespondEndToEnd(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"ACTION: respond\nCONFIDENCE: 0.9\nREASONING: greeted directly",
		"hey alice!",
	}}
	p, client := newFullPipeline(t, provider)

	msg := bus.InboundMessage{
		MessageID: "m1", ChannelID: "c1", AuthorID: "u1",
		AuthorName: "alice", Content: "hello selene",
		Timestamp: time.Now(),
	}
	p.processTurn(context.Background(), flushFor(msg, filter.Result{
		ShouldProcess: true, Cleaned: "hello selene",
	}))

	sent := client.sent()
	if len(sent) != 1 || sent[0] != "hey alice!" {
		t.Fatalf("sends = %v, want exactly [hey alice!]", sent)
	}
	if provider.calls != 2 {
		t.Errorf("provider calls = %d, want 2 (decide + reply)", provider.calls)
	}

	hist := p.store.History("c1")
	if len(hist) != 2 {
		t.Fatalf("history = %d messages, want user turn + bot turn", len(hist))
	}
	// Newest first.
	if !hist[0].IsBot || hist[0].Content != "hey alice!" {
		t.Errorf("bot turn = %+v", hist[0])
	}
	if hist[1].IsBot || hist[1].Content != "hello selene" {
		t.Errorf("user turn = %+v", hist[1])
	}
}

func TestProcessTurn_IgnoreSendsNothing(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"ACTION: ignore\nCONFIDENCE: 0.8\nREASONING: not talking to me",
	}}
	p, client := newFullPipeline(t, provider)

	msg := bus.InboundMessage{
		MessageID: "m1", ChannelID: "c1", AuthorID: "u1",
		AuthorName: "alice", Content: "talking to bob",
		Timestamp: time.Now(),
	}
	p.processTurn(context.Background(), flushFor(msg, filter.Result{
		ShouldProcess: true, Cleaned: "talking to bob",
	}))

	if sent := client.sent(); len(sent) != 0 {
		t.Errorf("ignore decision produced output: %v", sent)
	}
	// The user turn is still remembered for future context.
	if hist := p.store.History("c1"); len(hist) != 1 {
		t.Errorf("history = %d messages, want 1", len(hist))
	}
}

type fakeAnalyzer struct {
	mu    sync.Mutex
	calls int
	desc  string
}

func (a *fakeAnalyzer) AnalyzeImage(context.Context, []byte, string) (string, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	return a.desc, nil
}

// Discord omits the MIME type on some uploads; an attachment the filter
// counts as an image by extension must still reach the analyzer.
func TestDescribeImages_ExtensionMatchedAttachment(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	analyzer := &fakeAnalyzer{desc: "a tiny test square"}
	mgr := testManager(t, `{vision: {enabled: true}}`)
	p := New(Options{
		Config:   mgr,
		Bus:      bus.New(10),
		Client:   &fakeClient{},
		Store:    memory.NewStore(memory.Options{}),
		Analyzer: analyzer,
	})

	msg := bus.InboundMessage{
		ChannelID: "c1",
		Attachments: []bus.Attachment{
			{URL: srv.URL + "/shot.png", Filename: "shot.png"}, // no ContentType
		},
	}
	summary := p.describeImages(context.Background(), msg, filter.Result{HasImages: true}, mgr.Snapshot())

	if summary != "a tiny test square" {
		t.Errorf("summary = %q", summary)
	}
	if analyzer.calls != 1 {
		t.Errorf("analyzer calls = %d, want 1", analyzer.calls)
	}
}
