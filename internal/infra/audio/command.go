package audio

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"voice-assistant/internal/domain"
)

// CommandPlayer plays files through an external program such as aplay or
// afplay, passing the file path as the last argument.
type CommandPlayer struct {
	command string
	args    []string
	logger  *slog.Logger
}

func NewCommandPlayer(command []string, logger *slog.Logger) (*CommandPlayer, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, fmt.Errorf("player command is empty")
	}
	return &CommandPlayer{
		command: command[0],
		args:    command[1:],
		logger:  logger,
	}, nil
}

func (p *CommandPlayer) Play(ctx context.Context, path string) error {
	if _, _, err := decodeWAV(path); err != nil {
		return domain.Wrap(domain.ErrPlayback, "play", err)
	}

	args := append(append([]string{}, p.args...), path)
	cmd := exec.CommandContext(ctx, p.command, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	p.logger.Info("playing", "path", path, "command", p.command)

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return domain.Wrap(domain.ErrPlayback, "play",
			fmt.Errorf("%s failed: %w: %s", p.command, err, strings.TrimSpace(stderr.String())))
	}
	return nil
}
