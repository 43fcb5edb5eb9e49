package application_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"voice-assistant/internal/application"
	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra/trigger"
)

type mockCapture struct {
	calls   int
	err     error
	started chan struct{}
	block   bool
}

func (m *mockCapture) Name() string { return "mock" }

func (m *mockCapture) Capture(ctx context.Context, duration time.Duration, path string) (*domain.AudioClip, error) {
	m.calls++
	if m.started != nil {
		close(m.started)
		m.started = nil
	}
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return &domain.AudioClip{
		Path:       path,
		SampleRate: domain.SampleRate,
		Channels:   2,
		BitDepth:   domain.BitDepth,
		Frames:     int(duration.Seconds() * domain.SampleRate),
	}, nil
}

type mockNormalizer struct{}

func (m *mockNormalizer) ToMono(in, out string) (*domain.AudioClip, error) {
	return &domain.AudioClip{Path: out, SampleRate: domain.SampleRate, Channels: 1, BitDepth: domain.BitDepth}, nil
}

type mockTranscriber struct {
	text  string
	calls int
	wait  bool
}

func (m *mockTranscriber) Transcribe(ctx context.Context, clip *domain.AudioClip) (domain.Transcript, error) {
	m.calls++
	if m.wait {
		<-ctx.Done()
		return domain.Transcript{}, domain.Wrap(domain.ErrService, "recognize", ctx.Err())
	}
	if !clip.IsMono() {
		return domain.Transcript{}, domain.Wrap(domain.ErrDecode, "recognize", nil)
	}
	return domain.Transcript{Text: m.text}, nil
}

type mockGenerator struct {
	reply      string
	transcript string
	prompt     string
	calls      int
}

func (m *mockGenerator) Generate(_ context.Context, transcript, systemPrompt string) (string, error) {
	m.calls++
	m.transcript = transcript
	m.prompt = systemPrompt
	return m.reply, nil
}

type mockSynthesizer struct {
	texts []string
	err   error
}

func (m *mockSynthesizer) Synthesize(_ context.Context, text, path string) (*domain.SynthesizedAudio, error) {
	m.texts = append(m.texts, text)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.SynthesizedAudio{Path: path, Bytes: 2 * len(text)}, nil
}

type mockPlayer struct {
	played []string
}

func (m *mockPlayer) Play(_ context.Context, path string) error {
	m.played = append(m.played, path)
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingNotifier) Notify(_ context.Context, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

type scriptedTrigger struct {
	commands []domain.Command
	index    int
	started  bool
	stopped  bool
}

func (s *scriptedTrigger) Start(_ context.Context) error { s.started = true; return nil }
func (s *scriptedTrigger) Stop() error                   { s.stopped = true; return nil }
func (s *scriptedTrigger) Name() string                  { return "scripted" }

func (s *scriptedTrigger) Next(_ context.Context) (domain.Command, error) {
	if s.index >= len(s.commands) {
		return domain.CommandNone, io.ErrUnexpectedEOF
	}
	cmd := s.commands[s.index]
	s.index++
	return cmd, nil
}

type fixture struct {
	capture     *mockCapture
	transcriber *mockTranscriber
	generator   *mockGenerator
	synthesizer *mockSynthesizer
	player      *mockPlayer
	notifier    *recordingNotifier
}

func newFixture(transcript string) *fixture {
	return &fixture{
		capture:     &mockCapture{},
		transcriber: &mockTranscriber{text: transcript},
		generator:   &mockGenerator{reply: "The lights are on."},
		synthesizer: &mockSynthesizer{},
		player:      &mockPlayer{},
		notifier:    &recordingNotifier{},
	}
}

func (f *fixture) controller(echo bool, cfg application.TurnConfig) *application.TurnController {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pipeline := application.Pipeline{
		Capture:     f.capture,
		Normalizer:  &mockNormalizer{},
		Transcriber: f.transcriber,
		Synthesizer: f.synthesizer,
		Player:      f.player,
	}
	if !echo {
		pipeline.Generator = f.generator
	}
	return application.NewTurnController(pipeline, cfg, f.notifier, nil, logger)
}

func defaultTurnConfig() application.TurnConfig {
	return application.TurnConfig{
		CaptureDuration: 3 * time.Second,
		RawPath:         "output.wav",
		MonoPath:        "output_mono.wav",
		OutputPath:      "result.wav",
		SystemPrompt:    "Answer briefly.",
	}
}

func TestRunTurn_EchoModeSpeaksTranscriptVerbatim(t *testing.T) {
	transcript := "  turn on the lights, por favor ✨ "
	f := newFixture(transcript)
	c := f.controller(true, defaultTurnConfig())

	turn, err := c.RunTurn(context.Background())
	if err != nil {
		t.Fatalf("RunTurn error: %v", err)
	}

	if turn.Response != transcript {
		t.Errorf("Response: got %q, want %q", turn.Response, transcript)
	}
	if len(f.synthesizer.texts) != 1 || f.synthesizer.texts[0] != transcript {
		t.Errorf("synthesized texts: got %q, want [%q]", f.synthesizer.texts, transcript)
	}
	if f.generator.calls != 0 {
		t.Errorf("generator called %d times in echo mode", f.generator.calls)
	}
	if len(f.player.played) != 1 || f.player.played[0] != "result.wav" {
		t.Errorf("played: got %v, want [result.wav]", f.player.played)
	}
}

func TestRunTurn_AssistantModeUsesGenerator(t *testing.T) {
	f := newFixture("turn on the lights")
	c := f.controller(false, defaultTurnConfig())

	turn, err := c.RunTurn(context.Background())
	if err != nil {
		t.Fatalf("RunTurn error: %v", err)
	}

	if f.generator.transcript != "turn on the lights" {
		t.Errorf("generator transcript: got %q", f.generator.transcript)
	}
	if f.generator.prompt != "Answer briefly." {
		t.Errorf("generator prompt: got %q", f.generator.prompt)
	}
	if turn.Response != "The lights are on." {
		t.Errorf("Response: got %q", turn.Response)
	}
	if f.synthesizer.texts[0] != "The lights are on." {
		t.Errorf("synthesized text: got %q", f.synthesizer.texts[0])
	}
	if c.State() != domain.StateIdle {
		t.Errorf("state after turn: got %s, want idle", c.State())
	}
}

func TestRunTurn_SynthesisFailureSkipsPlayer(t *testing.T) {
	f := newFixture("hello")
	f.synthesizer.err = domain.Wrap(domain.ErrService, "synthesize", errors.New("quota exceeded"))
	c := f.controller(true, defaultTurnConfig())

	_, err := c.RunTurn(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}

	var stageErr *domain.StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %T", err)
	}
	if stageErr.Stage != domain.StateSynthesizing {
		t.Errorf("stage: got %s, want synthesizing", stageErr.Stage)
	}
	if !errors.Is(err, domain.ErrService) {
		t.Error("expected ErrService")
	}
	if len(f.player.played) != 0 {
		t.Errorf("player invoked %d times after synthesis failure", len(f.player.played))
	}
	if c.State() != domain.StateIdle {
		t.Errorf("state after failure: got %s, want idle", c.State())
	}
}

func TestRunTurn_EmptyTranscriptEndsTurn(t *testing.T) {
	f := newFixture("")
	c := f.controller(false, defaultTurnConfig())

	turn, err := c.RunTurn(context.Background())
	if err != nil {
		t.Fatalf("RunTurn error: %v", err)
	}
	if !turn.Transcript.Empty() {
		t.Errorf("transcript: got %q, want empty", turn.Transcript.Text)
	}
	if f.generator.calls != 0 || len(f.synthesizer.texts) != 0 || len(f.player.played) != 0 {
		t.Error("later stages should not run for an empty transcript")
	}
}

func TestRunTurn_StageTimeout(t *testing.T) {
	f := newFixture("hello")
	f.transcriber.wait = true
	cfg := defaultTurnConfig()
	cfg.StageTimeout = 20 * time.Millisecond
	c := f.controller(true, cfg)

	_, err := c.RunTurn(context.Background())
	if !errors.Is(err, domain.ErrService) {
		t.Fatalf("expected ErrService, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestRunTurn_RejectsConcurrentTurn(t *testing.T) {
	f := newFixture("hello")
	started := make(chan struct{})
	f.capture.started = started
	f.capture.block = true
	c := f.controller(true, defaultTurnConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := c.RunTurn(ctx)
		done <- err
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first turn never started capturing")
	}

	if _, err := c.RunTurn(context.Background()); !errors.Is(err, domain.ErrTurnInProgress) {
		t.Errorf("second turn: got %v, want ErrTurnInProgress", err)
	}
	if c.State() != domain.StateCapturing {
		t.Errorf("state during capture: got %s, want capturing", c.State())
	}

	cancel()
	<-done
}

func TestRun_FailureReturnsToLoop(t *testing.T) {
	f := newFixture("hello")
	f.synthesizer.err = domain.Wrap(domain.ErrService, "synthesize", errors.New("unavailable"))
	c := f.controller(true, defaultTurnConfig())

	trig := &scriptedTrigger{commands: []domain.Command{domain.CommandRun, domain.CommandRun, domain.CommandExit}}

	if err := c.Run(context.Background(), trig); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(f.synthesizer.texts) != 2 {
		t.Errorf("synthesize calls: got %d, want 2", len(f.synthesizer.texts))
	}
	if len(f.player.played) != 0 {
		t.Errorf("player calls: got %d, want 0", len(f.player.played))
	}
	if len(f.notifier.messages) != 2 {
		t.Errorf("notifications: got %d, want 2", len(f.notifier.messages))
	}
	if !trig.started || !trig.stopped {
		t.Error("trigger source should be started and stopped")
	}
}

func TestRun_UnexpectedErrorEndsLoop(t *testing.T) {
	f := newFixture("hello")
	f.capture.err = errors.New("something unexpected")
	c := f.controller(true, defaultTurnConfig())

	trig := &scriptedTrigger{commands: []domain.Command{domain.CommandRun, domain.CommandExit}}

	err := c.Run(context.Background(), trig)
	if err == nil {
		t.Fatal("expected error to escape the loop")
	}
	if trig.index != 1 {
		t.Errorf("commands consumed: got %d, want 1", trig.index)
	}
}

type interruptingTrigger struct {
	scriptedTrigger
	interrupts chan struct{}
}

func (i *interruptingTrigger) Interrupts() <-chan struct{} { return i.interrupts }

func TestRun_InterruptAbortsTurn(t *testing.T) {
	f := newFixture("hello")
	started := make(chan struct{})
	f.capture.started = started
	f.capture.block = true
	c := f.controller(true, defaultTurnConfig())

	trig := &interruptingTrigger{
		scriptedTrigger: scriptedTrigger{commands: []domain.Command{domain.CommandRun, domain.CommandExit}},
		interrupts:      make(chan struct{}),
	}

	go func() {
		<-started
		close(trig.interrupts)
	}()

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background(), trig) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("interrupt did not abort the turn")
	}

	if len(f.notifier.messages) != 0 {
		t.Errorf("interrupted turn should not be reported as a failure: %v", f.notifier.messages)
	}
}

func TestRun_ConsoleScenario(t *testing.T) {
	f := newFixture("turn on the lights")
	c := f.controller(true, defaultTurnConfig())

	var out bytes.Buffer
	console := trigger.NewConsole(strings.NewReader("bogus\nr\nx\n"), &out)

	if err := c.Run(context.Background(), console); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if f.capture.calls != 1 {
		t.Errorf("turns executed: got %d, want 1", f.capture.calls)
	}
	if got := strings.Count(out.String(), trigger.UsageMessage); got != 1 {
		t.Errorf("usage messages: got %d, want 1", got)
	}
	if got := strings.Count(out.String(), trigger.Prompt); got != 3 {
		t.Errorf("prompts: got %d, want 3", got)
	}
	if !strings.HasSuffix(out.String(), trigger.Prompt) {
		t.Errorf("output should end at the last prompt, got %q", out.String())
	}
}
