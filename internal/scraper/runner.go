// Package scraper runs the external Python lead scraper as a subprocess.
// The scraper is a black box that writes newline-delimited JSON lead
// records to an output file and prints progress on stdout.
package scraper

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/threesixtyvue/outreach/internal/config"
	"github.com/threesixtyvue/outreach/internal/outreach"
	"github.com/threesixtyvue/outreach/internal/pkg/logger"
)

// Params describes one scrape run.
type Params struct {
	Query    string `json:"query"`
	Location string `json:"location"`
	Limit    int    `json:"limit"`
}

// Runner spawns the scraper process.
type Runner struct {
	pythonBin  string
	scriptPath string
	workDir    string
	timeout    time.Duration
}

// NewRunner creates a runner from config.
func NewRunner(cfg config.ScraperConfig) *Runner {
	return &Runner{
		pythonBin:  cfg.PythonBin,
		scriptPath: cfg.ScriptPath,
		workDir:    cfg.WorkDir,
		timeout:    cfg.Timeout(),
	}
}

func (r *Runner) command(ctx context.Context, p Params, outFile string) *exec.Cmd {
	limit := p.Limit
	if limit <= 0 {
		limit = 30
	}
	cmd := exec.CommandContext(ctx, r.pythonBin, r.scriptPath,
		"--query", p.Query,
		"--location", p.Location,
		"--limit", strconv.Itoa(limit),
		"--out", outFile)
	cmd.Dir = r.workDir
	cmd.Env = os.Environ()
	return cmd
}

// Run executes the scraper to completion and returns the parsed records.
// The intermediate output file is removed afterwards.
func (r *Runner) Run(ctx context.Context, p Params) ([]outreach.ImportRecord, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	outFile := fmt.Sprintf("scrape_%d.jsonl", time.Now().UnixMilli())
	outPath := filepath.Join(r.workDir, outFile)
	defer os.Remove(outPath)

	cmd := r.command(ctx, p, outFile)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("scraper failed: %w: %s", err, tail(stderr.String(), 500))
	}

	f, err := os.Open(outPath)
	if err != nil {
		return nil, fmt.Errorf("scraper produced no output: %w", err)
	}
	defer f.Close()
	return ParseResults(f)
}

// ParseResults reads newline-delimited JSON lead records. Blank and
// malformed lines are skipped so one bad record cannot sink a batch.
func ParseResults(r io.Reader) ([]outreach.ImportRecord, error) {
	var records []outreach.ImportRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec outreach.ImportRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			logger.Warn("skipping malformed scraper line", "error", err.Error())
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("read scraper output: %w", err)
	}
	return records, nil
}

// Event is one server-sent progress update from a streaming run.
type Event struct {
	Type       string `json:"type"` // progress | error | complete | failed
	Message    string `json:"message,omitempty"`
	OutputFile string `json:"outputFile,omitempty"`
	Code       int    `json:"code,omitempty"`
}

// RunStream executes the scraper while forwarding stdout lines as
// progress events and stderr lines as error events. A final complete or
// failed event carries the outcome. emit is called from multiple
// goroutines and must be safe for that.
func (r *Runner) RunStream(ctx context.Context, p Params, emit func(Event)) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	outFile := fmt.Sprintf("scrape_%d.jsonl", time.Now().UnixMilli())
	cmd := r.command(ctx, p, outFile)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		emit(Event{Type: "failed", Message: err.Error(), Code: -1})
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		emit(Event{Type: "failed", Message: err.Error(), Code: -1})
		return err
	}
	// Emit failed even when the process never starts (bad python path,
	// missing script) so stream consumers always see a terminal event.
	if err := cmd.Start(); err != nil {
		emit(Event{Type: "failed", Message: err.Error(), Code: -1})
		return fmt.Errorf("start scraper: %w", err)
	}

	done := make(chan struct{}, 2)
	go func() {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				emit(Event{Type: "progress", Message: line})
			}
		}
		done <- struct{}{}
	}()
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				emit(Event{Type: "error", Message: line})
			}
		}
		done <- struct{}{}
	}()

	<-done
	<-done
	err = cmd.Wait()
	if err != nil {
		code := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		emit(Event{Type: "failed", Code: code})
		return fmt.Errorf("scraper failed: %w", err)
	}
	emit(Event{Type: "complete", OutputFile: outFile})
	return nil
}

// Results parses the output file left behind by a streaming run and
// removes it.
func (r *Runner) Results(outputFile string) ([]outreach.ImportRecord, error) {
	outPath := filepath.Join(r.workDir, filepath.Base(outputFile))
	defer os.Remove(outPath)

	f, err := os.Open(outPath)
	if err != nil {
		return nil, fmt.Errorf("scraper produced no output: %w", err)
	}
	defer f.Close()
	return ParseResults(f)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
