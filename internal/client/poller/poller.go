// Package poller runs a task on a fixed interval with exponential
// backoff on failure. It is the scheduling core of the seat-status
// sync loop but knows nothing about seats; it runs any Task.
package poller

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"concert-booking/internal/pkg/errs"
)

// Task is one polling cycle. A non-nil error counts as a failure and
// triggers backoff; the context carries the per-cycle deadline.
type Task func(ctx context.Context) error

// State of the polling loop.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StatePaused   State = "paused"
	StateTerminal State = "terminal"
	StateStopped  State = "stopped"
)

// Trigger feeds pause/resume transitions into the poller from an
// external signal source such as page visibility or network
// reachability. True means pause, false means resume.
type Trigger interface {
	Events() <-chan bool
}

type Config struct {
	Interval          time.Duration
	BackoffMultiplier float64
	MaxRetries        int
}

var ErrClosed = errs.New("poller closed")

// Poller drives a Task on Config.Interval. Consecutive failures back
// off as Interval * BackoffMultiplier^(n-1); after MaxRetries
// consecutive failures the loop goes terminal and stays parked until
// ForceRun or Stop. Exactly one cycle is in flight at any time.
type Poller struct {
	cfg     Config
	task    Task
	onFatal func(err error)

	mu      sync.Mutex
	state   State
	retries int
	cancel  context.CancelFunc
	done    chan struct{}

	forceCh  chan struct{}
	pauseCh  chan bool
	triggers []Trigger
}

type Option func(*Poller)

// WithTerminalCallback is invoked once when the retry budget is
// exhausted, with the last failure.
func WithTerminalCallback(fn func(err error)) Option {
	return func(p *Poller) { p.onFatal = fn }
}

// WithTrigger attaches a pause/resume signal source. Triggers are
// consumed for the lifetime of the run loop.
func WithTrigger(t Trigger) Option {
	return func(p *Poller) { p.triggers = append(p.triggers, t) }
}

func New(cfg Config, task Task, opts ...Option) *Poller {
	p := &Poller{
		cfg:     cfg,
		task:    task,
		state:   StateIdle,
		forceCh: make(chan struct{}, 1),
		pauseCh: make(chan bool, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the run loop. The first cycle fires immediately.
// Starting an already started or stopped poller is an error.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateStopped {
		return ErrClosed
	}
	if p.state != StateIdle {
		return errs.New("poller already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.state = StateRunning

	for _, t := range p.triggers {
		go p.forward(runCtx, t)
	}
	go p.run(runCtx)
	return nil
}

// Stop tears the loop down and waits for the in-flight cycle to
// finish. Safe to call more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.state == StateStopped || p.state == StateIdle {
		p.state = StateStopped
		p.mu.Unlock()
		return
	}
	p.state = StateStopped
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	<-done
}

// ForceRun schedules an immediate cycle, resetting the retry count.
// It is the retry affordance after a terminal failure. No-op while
// paused or stopped.
func (p *Poller) ForceRun() {
	select {
	case p.forceCh <- struct{}{}:
	default:
	}
}

func (p *Poller) Pause()  { p.signalPause(true) }
func (p *Poller) Resume() { p.signalPause(false) }

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Retries reports the current consecutive-failure count.
func (p *Poller) Retries() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.retries
}

func (p *Poller) signalPause(paused bool) {
	select {
	case p.pauseCh <- paused:
	default:
	}
}

func (p *Poller) forward(ctx context.Context, t Trigger) {
	for {
		select {
		case <-ctx.Done():
			return
		case paused, ok := <-t.Events():
			if !ok {
				return
			}
			p.signalPause(paused)
		}
	}
}

func (p *Poller) newBackoff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.cfg.Interval
	bo.Multiplier = p.cfg.BackoffMultiplier
	// Delays must follow the configured schedule exactly; jitter would
	// make retry timing unverifiable.
	bo.RandomizationFactor = 0
	// No interval ceiling; the retry budget bounds the schedule.
	bo.MaxInterval = time.Duration(math.MaxInt64)
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	bo := p.newBackoff()
	timer := time.NewTimer(0)
	defer timer.Stop()

	paused := false
	terminal := false

	for {
		select {
		case <-ctx.Done():
			return

		case next := <-p.pauseCh:
			if next == paused {
				continue
			}
			paused = next
			if paused {
				p.setState(StatePaused)
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
			} else if !terminal {
				// Resume runs a cycle immediately so the snapshot
				// catches up after a hidden tab or offline gap.
				p.setState(StateRunning)
				timer.Reset(0)
			}

		case <-p.forceCh:
			if paused {
				continue
			}
			terminal = false
			p.resetRetries()
			bo.Reset()
			p.setState(StateRunning)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(0)

		case <-timer.C:
			if paused || terminal {
				continue
			}
			if err := p.task(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				// The budget is checked before incrementing so a
				// MaxRetries of 3 yields exactly three backoff
				// retries before the loop goes terminal.
				if p.Retries() >= p.cfg.MaxRetries {
					terminal = true
					p.setState(StateTerminal)
					slog.Warn("ポーリングがリトライ上限に達しました",
						"retries", p.Retries(), "error", err)
					if p.onFatal != nil {
						p.onFatal(err)
					}
					continue
				}
				retries := p.bumpRetries()
				delay := bo.NextBackOff()
				slog.Debug("ポーリング失敗、バックオフ待機",
					"retries", retries, "delay", delay, "error", err)
				timer.Reset(delay)
				continue
			}
			p.resetRetries()
			bo.Reset()
			timer.Reset(p.cfg.Interval)
		}
	}
}

func (p *Poller) setState(s State) {
	p.mu.Lock()
	if p.state != StateStopped {
		p.state = s
	}
	p.mu.Unlock()
}

func (p *Poller) bumpRetries() int {
	p.mu.Lock()
	p.retries++
	n := p.retries
	p.mu.Unlock()
	return n
}

func (p *Poller) resetRetries() {
	p.mu.Lock()
	p.retries = 0
	p.mu.Unlock()
}
