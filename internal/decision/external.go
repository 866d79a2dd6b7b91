package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"etfbot/internal/logger"
)

const defaultExternalTimeout = 30 * time.Second

// ExternalSource runs a configured collaborator command once per instrument.
// The command receives {"code": ..., "closes": [...]} on stdin and must answer
// with one JSON decision object on stdout; the raw output goes through schema
// validation and the tolerant parser before anything acts on it.
type ExternalSource struct {
	command string
	args    []string
	timeout time.Duration
}

func NewExternalSource(command string, args []string, timeout time.Duration) *ExternalSource {
	if timeout <= 0 {
		timeout = defaultExternalTimeout
	}
	return &ExternalSource{command: command, args: args, timeout: timeout}
}

func (s *ExternalSource) Name() string { return "external(" + s.command + ")" }

type externalRequest struct {
	Code   string    `json:"code"`
	Closes []float64 `json:"closes"`
}

func (s *ExternalSource) Decide(ctx context.Context, code string, closes []float64) (Decision, error) {
	payload, err := json.Marshal(externalRequest{Code: code, Closes: closes})
	if err != nil {
		return Decision{}, fmt.Errorf("encode request for %s: %w", code, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.command, s.args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return Decision{}, fmt.Errorf("decision command for %s: %w (%s)", code, err, msg)
		}
		return Decision{}, fmt.Errorf("decision command for %s: %w", code, err)
	}

	raw := stripFences(stdout.String())
	if err := ValidateSchema(raw); err != nil {
		logger.Warnf("external decision for %s rejected: %v", code, err)
		return Decision{}, err
	}
	return Parse(raw)
}
