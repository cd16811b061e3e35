package bake

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Status reports the progress of a running bake. It is safe to poll from any
// goroutine. Phase and progress are written by the bake driver only; worker
// tasks add to the ray counter.
type Status struct {
	ID uuid.UUID

	mu         sync.Mutex
	phase      string
	phaseStart time.Time
	started    time.Time
	finished   time.Time
	output     *Output
	err        error

	progress    atomic.Int64
	progressMax atomic.Int64
	rays        atomic.Int64

	done chan struct{}
}

func newStatus() *Status {
	now := time.Now()
	return &Status{
		ID:         uuid.New(),
		phase:      "Idle",
		phaseStart: now,
		started:    now,
		done:       make(chan struct{}),
	}
}

func (s *Status) setPhase(phase string, total int) {
	s.mu.Lock()
	s.phase = phase
	s.phaseStart = time.Now()
	s.mu.Unlock()
	s.progress.Store(0)
	s.progressMax.Store(int64(total))
	s.rays.Store(0)
}

func (s *Status) addProgress(n int) {
	s.progress.Add(int64(n))
}

func (s *Status) addRays(n int64) {
	s.rays.Add(n)
}

func (s *Status) finish(out *Output, err error) {
	s.mu.Lock()
	s.output = out
	s.err = err
	s.finished = time.Now()
	s.mu.Unlock()
	close(s.done)
}

// Phase returns the human readable description of the current phase.
func (s *Status) Phase() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// ProgressCount returns the finished and total work units of the phase.
func (s *Status) ProgressCount() (count, total int64) {
	return s.progress.Load(), s.progressMax.Load()
}

// Progress returns the fraction of the current phase that is done, in [0, 1].
func (s *Status) Progress() float64 {
	count, total := s.ProgressCount()
	if total <= 0 {
		return 0
	}
	return min(float64(count)/float64(total), 1)
}

// Rays returns the number of rays cast in the current phase.
func (s *Status) Rays() int64 {
	return s.rays.Load()
}

// RaysPerSecond returns the ray throughput of the current phase.
func (s *Status) RaysPerSecond() float64 {
	s.mu.Lock()
	elapsed := time.Since(s.phaseStart)
	s.mu.Unlock()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.rays.Load()) / elapsed.Seconds()
}

// Remaining estimates the time left in the current phase from its progress
// so far. It is zero when nothing has been done yet.
func (s *Status) Remaining() time.Duration {
	count, total := s.ProgressCount()
	if count <= 0 || total <= count {
		return 0
	}
	s.mu.Lock()
	elapsed := time.Since(s.phaseStart)
	s.mu.Unlock()
	return time.Duration(float64(elapsed) / float64(count) * float64(total-count))
}

// Elapsed returns the time since the bake started, or its total duration
// once it has finished.
func (s *Status) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished.IsZero() {
		return s.finished.Sub(s.started)
	}
	return time.Since(s.started)
}

// ProgressBar renders the phase progress as [####......] with width cells.
func (s *Status) ProgressBar(width int) string {
	if width <= 0 {
		return "[]"
	}
	filled := int(s.Progress() * float64(width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// String formats the status as a single log line.
func (s *Status) String() string {
	return fmt.Sprintf("%s %s %5.1f%% %.0f rays/s", s.Phase(), s.ProgressBar(20), s.Progress()*100, s.RaysPerSecond())
}

// Done is closed when the bake finishes, successfully or not.
func (s *Status) Done() <-chan struct{} {
	return s.done
}

// IsDone reports whether the bake has finished.
func (s *Status) IsDone() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Err returns the error that stopped the bake, or nil.
func (s *Status) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Output returns the bake result once it finished successfully.
func (s *Status) Output() *Output {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output
}

// Wait blocks until the bake finishes or ctx is done.
func (s *Status) Wait(ctx context.Context) (*Output, error) {
	select {
	case <-s.done:
		return s.Output(), s.Err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
