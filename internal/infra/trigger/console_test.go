package trigger_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra/trigger"
)

func TestConsole_Commands(t *testing.T) {
	var out bytes.Buffer
	console := trigger.NewConsole(strings.NewReader("hello\n R \nx\n"), &out)
	ctx := context.Background()

	cmd, err := console.Next(ctx)
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if cmd != domain.CommandRun {
		t.Errorf("first command: got %s, want run", cmd)
	}
	if strings.Count(out.String(), trigger.UsageMessage) != 1 {
		t.Errorf("expected one usage message, got %q", out.String())
	}

	cmd, err = console.Next(ctx)
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if cmd != domain.CommandExit {
		t.Errorf("second command: got %s, want exit", cmd)
	}
}

func TestConsole_EOFExits(t *testing.T) {
	console := trigger.NewConsole(strings.NewReader(""), io.Discard)

	cmd, err := console.Next(context.Background())
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if cmd != domain.CommandExit {
		t.Errorf("command: got %s, want exit", cmd)
	}
}

func TestConsole_ContextCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	console := trigger.NewConsole(pr, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := console.Next(ctx); err != context.DeadlineExceeded {
		t.Fatalf("Next error: got %v, want deadline exceeded", err)
	}

	// The line that was being waited for is still delivered afterwards.
	go pw.Write([]byte("r\n"))

	cmd, err := console.Next(context.Background())
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if cmd != domain.CommandRun {
		t.Errorf("command: got %s, want run", cmd)
	}
}
