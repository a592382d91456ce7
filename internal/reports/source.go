package reports

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Source triggers generation of a report export. The export itself is
// picked up from the download dir by the waiter.
type Source interface {
	Generate(ctx context.Context, report ReportConfig) error
	// Close releases the session held by the source, it is called once per batch.
	Close() error
}

// ExternalSource is used when another process drives the portal, it does nothing.
type ExternalSource struct{}

func (ExternalSource) Generate(context.Context, ReportConfig) error {
	return nil
}

func (ExternalSource) Close() error {
	return nil
}

// CommandSource runs a command once per report.
type CommandSource struct {
	command []string
	timeout time.Duration
}

func NewCommandSource(config GeneratorConfig) (CommandSource, error) {
	if len(config.Command) == 0 {
		return CommandSource{}, fmt.Errorf("generator command is empty")
	}
	return CommandSource{
		command: config.Command,
		timeout: time.Duration(config.TimeoutSeconds * float64(time.Second)),
	}, nil
}

func (s CommandSource) args(report ReportConfig) []string {
	replacer := strings.NewReplacer("{report}", report.Name, "{locator}", report.Locator)
	out := make([]string, len(s.command))
	for i, arg := range s.command {
		out[i] = replacer.Replace(arg)
	}
	return out
}

func (s CommandSource) Generate(ctx context.Context, report ReportConfig) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	args := s.args(report)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", args[0], err, msg)
		}
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return nil
}

func (s CommandSource) Close() error {
	return nil
}

// NewSource returns a CommandSource if a generator command is configured
// and an ExternalSource otherwise.
func NewSource(config GeneratorConfig) (Source, error) {
	if len(config.Command) == 0 {
		return ExternalSource{}, nil
	}
	return NewCommandSource(config)
}
