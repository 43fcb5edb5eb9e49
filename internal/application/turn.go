package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"voice-assistant/internal/domain"
	"voice-assistant/internal/observe"
)

// Pipeline holds the stage implementations for one controller. Generator may
// be nil, which selects echo mode.
type Pipeline struct {
	Capture     AudioCapture
	Normalizer  ChannelNormalizer
	Transcriber Transcriber
	Generator   ResponseGenerator
	Synthesizer Synthesizer
	Player      Player
}

type TurnConfig struct {
	CaptureDuration time.Duration
	RawPath         string
	MonoPath        string
	OutputPath      string
	SystemPrompt    string
	// StageTimeout bounds each external service call. Zero means no limit.
	StageTimeout time.Duration
}

type TurnController struct {
	pipeline Pipeline
	cfg      TurnConfig
	notifier Notifier
	metrics  *observe.Metrics
	logger   *slog.Logger

	sem *semaphore.Weighted

	mu    sync.Mutex
	state domain.TurnState
}

func NewTurnController(
	pipeline Pipeline,
	cfg TurnConfig,
	notifier Notifier,
	metrics *observe.Metrics,
	logger *slog.Logger,
) *TurnController {
	if notifier == nil {
		notifier = &NoopNotifier{}
	}
	return &TurnController{
		pipeline: pipeline,
		cfg:      cfg,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		sem:      semaphore.NewWeighted(1),
	}
}

func (c *TurnController) EchoMode() bool {
	return c.pipeline.Generator == nil
}

func (c *TurnController) State() domain.TurnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *TurnController) setState(s domain.TurnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run waits for commands from trigger and runs one turn per run command until
// an exit command arrives. Stage failures are reported and the loop keeps
// going; errors outside the failure taxonomy end the loop.
func (c *TurnController) Run(ctx context.Context, trigger TriggerSource) error {
	c.logger.Info("starting trigger source", "source", trigger.Name())
	if err := trigger.Start(ctx); err != nil {
		return fmt.Errorf("starting trigger: %w", err)
	}
	defer trigger.Stop()

	var interrupts <-chan struct{}
	if in, ok := trigger.(Interrupter); ok {
		interrupts = in.Interrupts()
	}

	c.logger.Info("assistant ready", "echo_mode", c.EchoMode())

	for {
		cmd, err := trigger.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("waiting for trigger: %w", err)
		}

		switch cmd {
		case domain.CommandExit:
			c.logger.Info("exit requested")
			return nil
		case domain.CommandRun:
			if err := c.runInterruptible(ctx, interrupts); err != nil {
				return err
			}
		}
	}
}

func (c *TurnController) runInterruptible(ctx context.Context, interrupts <-chan struct{}) error {
	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if interrupts != nil {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-interrupts:
				cancel()
			case <-stop:
			}
		}()
	}

	_, err := c.RunTurn(turnCtx)
	if err == nil {
		return nil
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.Canceled) {
		c.logger.Info("turn interrupted")
		return nil
	}

	kind := domain.Kind(err)
	if kind == nil && !errors.Is(err, domain.ErrTurnInProgress) {
		return fmt.Errorf("running turn: %w", err)
	}

	c.logger.Error("turn failed", "error", err)
	if notifyErr := c.notifier.Notify(ctx, fmt.Sprintf("Error: %s", err.Error())); notifyErr != nil {
		c.logger.Error("notifying error", "error", notifyErr)
	}
	return nil
}

// RunTurn executes one full turn. Only one turn may run at a time; a
// concurrent call fails with domain.ErrTurnInProgress.
func (c *TurnController) RunTurn(ctx context.Context) (*domain.Turn, error) {
	if !c.sem.TryAcquire(1) {
		return nil, domain.ErrTurnInProgress
	}
	defer c.sem.Release(1)
	defer c.setState(domain.StateIdle)

	started := time.Now()
	turn, err := c.runStages(ctx)
	if err != nil {
		c.metrics.RecordTurn(ctx, "failed")
		return nil, err
	}

	turn.Duration = time.Since(started)
	c.metrics.RecordTurn(ctx, "ok")
	c.logger.Info("turn complete", "duration", turn.Duration)
	return turn, nil
}

func (c *TurnController) runStages(ctx context.Context) (*domain.Turn, error) {
	turn := &domain.Turn{}

	var raw *domain.AudioClip
	err := c.stage(ctx, domain.StateCapturing, func(ctx context.Context) error {
		var err error
		raw, err = c.pipeline.Capture.Capture(ctx, c.cfg.CaptureDuration, c.cfg.RawPath)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("recording done", "path", raw.Path, "channels", raw.Channels, "duration", raw.Duration())

	var mono *domain.AudioClip
	err = c.stage(ctx, domain.StateNormalizing, func(context.Context) error {
		var err error
		mono, err = c.pipeline.Normalizer.ToMono(raw.Path, c.cfg.MonoPath)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = c.serviceStage(ctx, domain.StateTranscribing, func(ctx context.Context) error {
		var err error
		turn.Transcript, err = c.pipeline.Transcriber.Transcribe(ctx, mono)
		return err
	})
	if err != nil {
		return nil, err
	}

	if turn.Transcript.Empty() {
		c.logger.Info("no speech detected")
		return turn, nil
	}
	c.logger.Info("transcribed", "text", turn.Transcript.Text)

	if c.EchoMode() {
		turn.Response = turn.Transcript.Text
	} else {
		err = c.serviceStage(ctx, domain.StateGenerating, func(ctx context.Context) error {
			var err error
			turn.Response, err = c.pipeline.Generator.Generate(ctx, turn.Transcript.Text, c.cfg.SystemPrompt)
			return err
		})
		if err != nil {
			return nil, err
		}
		c.logger.Info("generated response", "text", turn.Response)
	}

	err = c.serviceStage(ctx, domain.StateSynthesizing, func(ctx context.Context) error {
		var err error
		turn.Audio, err = c.pipeline.Synthesizer.Synthesize(ctx, turn.Response, c.cfg.OutputPath)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = c.stage(ctx, domain.StatePlaying, func(ctx context.Context) error {
		return c.pipeline.Player.Play(ctx, turn.Audio.Path)
	})
	if err != nil {
		return nil, err
	}

	return turn, nil
}

func (c *TurnController) serviceStage(ctx context.Context, state domain.TurnState, fn func(context.Context) error) error {
	return c.stage(ctx, state, func(ctx context.Context) error {
		if c.cfg.StageTimeout <= 0 {
			return fn(ctx)
		}
		ctx, cancel := context.WithTimeout(ctx, c.cfg.StageTimeout)
		defer cancel()
		return fn(ctx)
	})
}

func (c *TurnController) stage(ctx context.Context, state domain.TurnState, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.setState(state)
	c.logger.Debug("stage started", "stage", state.String())

	started := time.Now()
	err := fn(ctx)
	c.metrics.RecordStage(ctx, state.String(), time.Since(started))

	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return err
		}
		kind := "unknown"
		if k := domain.Kind(err); k != nil {
			kind = k.Error()
		}
		c.metrics.RecordStageError(ctx, state.String(), kind)
		return &domain.StageError{Stage: state, Err: err}
	}
	return nil
}
