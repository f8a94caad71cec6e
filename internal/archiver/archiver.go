// Package archiver renders articles to PDF files within a deadline.
package archiver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"oski/internal/logger"
	"oski/pkg/utils"
)

// Archive errors.
var (
	ErrTimeout       = errors.New("archive deadline exceeded")
	ErrMissingOutput = errors.New("renderer reported success but wrote no file")
	ErrRendererPanic = errors.New("renderer panicked")
)

// Status is the terminal state of one archive attempt.
type Status int

// Archive states.
const (
	StatusPending Status = iota
	StatusSaved
	StatusTimedOut
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSaved:
		return "saved"
	case StatusTimedOut:
		return "timed-out"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is the outcome of one Save call.
type Result struct {
	Err      error
	Path     string
	Status   Status
	Duration time.Duration
}

// Renderer converts the page at url into a PDF at dest.
type Renderer interface {
	Render(ctx context.Context, url, dest string, options map[string]string) error
}

// Archiver saves articles through a Renderer.
type Archiver struct {
	renderer Renderer
	options  map[string]string
	logger   *logger.Logger
}

// New creates an archiver. options are passed to the renderer unchanged.
func New(renderer Renderer, options map[string]string, log *logger.Logger) *Archiver {
	if log == nil {
		log = logger.Discard()
	}

	return &Archiver{
		renderer: renderer,
		options:  options,
		logger:   log,
	}
}

// Save renders url into dir/<title>.pdf. It never returns an error or
// panics; the outcome is reported in the Result. When the deadline passes
// first the render is abandoned and any partial file is left in place.
func (a *Archiver) Save(ctx context.Context, url, title, dir string, deadline time.Duration) Result {
	start := time.Now()
	dest := filepath.Join(dir, utils.SafeFilename(title)+".pdf")
	log := a.logger.With("title", utils.TruncateString(title, 60), "path", dest)

	result := a.save(ctx, url, dest, dir, deadline)
	result.Path = dest
	result.Duration = time.Since(start)

	switch result.Status {
	case StatusSaved:
		log.Debug("Saved PDF", "duration", result.Duration)
	case StatusTimedOut:
		log.Warn("PDF save timed out", "deadline", deadline)
	default:
		log.Warn("PDF save failed", "error", result.Err)
	}

	return result
}

func (a *Archiver) save(ctx context.Context, url, dest, dir string, deadline time.Duration) Result {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("failed to create %s: %w", dir, err)}
	}

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: %v", ErrRendererPanic, r)
			}
		}()

		done <- a.renderer.Render(ctx, url, dest, a.options)
	}()

	select {
	case err := <-done:
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return Result{Status: StatusTimedOut, Err: ErrTimeout}
			}

			return Result{Status: StatusFailed, Err: err}
		}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{Status: StatusTimedOut, Err: ErrTimeout}
		}

		return Result{Status: StatusFailed, Err: ctx.Err()}
	}

	if _, err := os.Stat(dest); err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: %w", ErrMissingOutput, err)}
	}

	return Result{Status: StatusSaved}
}
