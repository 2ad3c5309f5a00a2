// Package subprocess implements SubprocessRunner: it
// launches an external code-assistant process for one prompt in a given
// working directory, streams its structured output chunks, and honors a
// hard deadline.
package subprocess

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/aosanya/agentforge/internal/domainerr"
)

const (
	// DefaultTimeout is the per-call deadline ceiling when the caller
	// does not request a stricter one.
	DefaultTimeout = 300 * time.Second
	// MaxTimeout is the hard ceiling no deadline may exceed.
	MaxTimeout = 600 * time.Second
	// DefaultMaxTurns bounds the assistant's turn count; always small
	// for cost.3.
	DefaultMaxTurns = 2
	// maxAggregatedTextLen truncates the aggregated text reported as
	// agent_response.3.
	maxAggregatedTextLen = 1000
)

// Chunk is one structured line of output streamed from the subprocess.
// The code-assistant binary is expected to emit newline-delimited JSON
// objects of the shape {"type": "text", "text": "..."}; any other line is
// counted but contributes no text.
type Chunk struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Request describes one subprocess invocation.
type Request struct {
	// Prompt is the instruction given to the code assistant.
	Prompt string
	// WorkingDirectory is created if it does not exist.
	WorkingDirectory string
	// MaxTurns bounds the assistant's turn count; 0 uses DefaultMaxTurns.
	MaxTurns int
	// Timeout is the per-call deadline; 0 uses DefaultTimeout, and any
	// value above MaxTimeout is clamped down to it.
	Timeout time.Duration
	// NonInteractive requests the assistant run without prompting for
	// permission (the equivalent of the source's "bypassPermissions").
	NonInteractive bool
}

// Result is the successful output of a subprocess run.
type Result struct {
	AggregatedText  string
	MessagesCount   int
	WorkDirectory   string
	ExecutionMethod string
}

// Runner launches the configured code-assistant binary per Request.
type Runner struct {
	// BinaryPath is the code-assistant executable to invoke. Defaults to
	// "claude" if empty.
	BinaryPath string
	// Args are additional fixed arguments prepended before the per-call flags.
	Args   []string
	logger *log.Logger
}

// NewRunner constructs a Runner for the given binary (empty uses "claude").
func NewRunner(binaryPath string, logger *log.Logger) *Runner {
	if binaryPath == "" {
		binaryPath = "claude"
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Runner{BinaryPath: binaryPath, logger: logger}
}

// Run executes one subprocess call, streaming its chunks until the process
// exits or the context/deadline elapses, whichever first. ctx cancellation
// (e.g. from ExecutionEngine.Pause) signals and reaps the subprocess before
// returning.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}
	maxTurns := req.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	if err := os.MkdirAll(req.WorkingDirectory, 0o755); err != nil {
		return nil, domainerr.NewSubprocessFailure(fmt.Errorf("create work directory: %w", err))
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append([]string{}, r.Args...)
	args = append(args, "--max-turns", fmt.Sprintf("%d", maxTurns), "--output-format", "stream-json")
	if req.NonInteractive {
		args = append(args, "--permission-mode", "bypassPermissions")
	}

	cmd := exec.CommandContext(runCtx, r.BinaryPath, args...)
	cmd.Dir = req.WorkingDirectory
	cmd.Stdin = strings.NewReader(req.Prompt)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, domainerr.NewSubprocessFailure(fmt.Errorf("open stdout pipe: %w", err))
	}

	if err := cmd.Start(); err != nil {
		return nil, domainerr.NewSubprocessFailure(fmt.Errorf("start subprocess: %w", err))
	}

	// Closing the pipe on cancellation ends the scan below even when a
	// child of the killed process still holds its stdout open.
	go func() {
		<-runCtx.Done()
		stdout.Close()
	}()

	var aggregated strings.Builder
	messagesCount := 0

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		messagesCount++

		var chunk Chunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			continue
		}
		if chunk.Type == "text" {
			aggregated.WriteString(chunk.Text)
		}
	}

	waitErr := cmd.Wait()

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		r.logger.WithField("work_directory", req.WorkingDirectory).Warn("subprocess deadline elapsed")
		return nil, domainerr.NewTimeout(timeout.Seconds())
	}
	if errors.Is(runCtx.Err(), context.Canceled) {
		return nil, context.Canceled
	}
	if waitErr != nil {
		return nil, domainerr.NewSubprocessFailure(fmt.Errorf("subprocess exited: %w", waitErr))
	}

	text := aggregated.String()
	if len(text) > maxAggregatedTextLen {
		text = text[:maxAggregatedTextLen]
	}

	return &Result{
		AggregatedText:  text,
		MessagesCount:   messagesCount,
		WorkDirectory:   req.WorkingDirectory,
		ExecutionMethod: "subprocess",
	}, nil
}
