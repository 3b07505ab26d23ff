// Package pipeline validates finished group metrics and hands them to CSV
// and JSONL writers off the probing path.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/mvdvldn03/ATLPublicTransit/models"
)

var (
	// ErrPipelineClosed is returned when Write is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
	// ErrPipelineCloseTimeout is returned when pending metrics could not be
	// flushed within drainTimeout.
	ErrPipelineCloseTimeout = errors.New("pipeline: close timed out")
)

// drainTimeout bounds how long Close waits for the worker to flush.
var drainTimeout = 10 * time.Second

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(metrics []*models.GroupMetric) error
	Close() error
	Validate() error
}

// Pipeline buffers group metrics, drops invalid or repeated ones and writes
// the rest in batches. A single worker keeps output in submission order.
// Pipeline itself satisfies OutputWriter.
type Pipeline struct {
	writer    OutputWriter
	metricCh  chan *models.GroupMetric
	batchSize int
	logger    *slog.Logger

	wg sync.WaitGroup

	seen map[int]struct{}

	stats stats

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error

	startOnce    sync.Once
	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline in front of writer. Call Start before Write.
func NewPipeline(writer OutputWriter, batchSize int, logger *slog.Logger) *Pipeline {
	if batchSize <= 0 {
		batchSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		writer:    writer,
		metricCh:  make(chan *models.GroupMetric, 128),
		batchSize: batchSize,
		logger:    logger,
		seen:      make(map[int]struct{}),
		stats:     newStats(),
		shutdown:  make(chan struct{}),
	}
}

// Start launches the writer goroutine. Repeated calls are no-ops.
func (p *Pipeline) Start() {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}

	p.startOnce.Do(func() {
		p.wg.Add(1)
		go p.worker()
	})
}

// Write enqueues metrics for validation and output.
func (p *Pipeline) Write(metrics []*models.GroupMetric) error {
	if len(metrics) == 0 {
		return nil
	}

	closed, err := p.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrPipelineClosed
	}

	for _, m := range metrics {
		if m == nil {
			continue
		}
		if err := p.enqueue(m); err != nil {
			return err
		}
	}
	return nil
}

// Close stops accepting metrics, waits for pending ones to be written and
// closes the underlying writer. If the worker does not finish within
// drainTimeout the writer is left open and ErrPipelineCloseTimeout is
// returned.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.metricCh)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(drainTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		return fmt.Errorf("%w after %v", ErrPipelineCloseTimeout, drainTimeout)
	}

	return errors.Join(p.Err(), p.writer.Close())
}

// Validate delegates to the underlying writer.
func (p *Pipeline) Validate() error {
	return p.writer.Validate()
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stats returns the number of written metrics and the rejection counts by
// reason.
func (p *Pipeline) Stats() (written int, rejected map[string]int) {
	return p.stats.snapshot()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	batch := make([]*models.GroupMetric, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.writer.Write(batch); err != nil {
			return err
		}
		p.stats.addWritten(len(batch))
		batch = batch[:0]
		return nil
	}

	for m := range p.metricCh {
		if !p.accept(m) {
			continue
		}
		batch = append(batch, m)
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				p.setErr(fmt.Errorf("write batch: %w", err))
				return
			}
		}
	}

	if err := flush(); err != nil {
		p.setErr(fmt.Errorf("write batch: %w", err))
	}
}

func (p *Pipeline) accept(m *models.GroupMetric) bool {
	if err := ValidateMetric(m); err != nil {
		p.stats.addRejected("invalid_metric")
		p.logger.Warn("pipeline: dropping invalid metric", slog.Int("index", m.Index), slog.Any("error", err))
		return false
	}

	if _, ok := p.seen[m.Index]; ok {
		p.stats.addRejected("duplicate_index")
		p.logger.Warn("pipeline: dropping duplicate metric", slog.Int("index", m.Index))
		return false
	}
	p.seen[m.Index] = struct{}{}
	return true
}

// ValidateMetric reports whether a group metric is internally consistent.
func ValidateMetric(m *models.GroupMetric) error {
	if m == nil {
		return errors.New("metric is nil")
	}
	if m.Index < 1 {
		return fmt.Errorf("index %d must be positive", m.Index)
	}
	if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
		return fmt.Errorf("value %v is not finite", m.Value)
	}
	if m.Successes < 0 || m.Failures < 0 {
		return errors.New("probe counts cannot be negative")
	}
	if m.Failures != len(m.Failed) {
		return fmt.Errorf("failures=%d but %d failed areas listed", m.Failures, len(m.Failed))
	}
	if m.Successes == 0 && m.Value != 0 {
		return fmt.Errorf("group without successes has value %v", m.Value)
	}
	return nil
}

func (p *Pipeline) enqueue(m *models.GroupMetric) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case p.metricCh <- m:
		return nil
	}
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.metricCh)
	})
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type stats struct {
	mu       sync.Mutex
	written  int
	rejected map[string]int
}

func newStats() stats {
	return stats{
		rejected: make(map[string]int),
	}
}

func (s *stats) addWritten(n int) {
	s.mu.Lock()
	s.written += n
	s.mu.Unlock()
}

func (s *stats) addRejected(kind string) {
	s.mu.Lock()
	s.rejected[kind]++
	s.mu.Unlock()
}

func (s *stats) snapshot() (int, map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int, len(s.rejected))
	for k, v := range s.rejected {
		out[k] = v
	}
	return s.written, out
}
