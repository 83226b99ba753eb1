// Package startup starts the dependencies of a process in dependency order,
// retrying with a Fibonacci backoff, and stops them in reverse.
package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
)

type Dependency interface {
	Name() string
	DependsOn() []string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Status int

const (
	StatusPending Status = iota
	StatusStarted
	StatusStopped
	StatusFailed
)

// Func adapts plain functions to a Dependency.
type Func struct {
	ID       string
	Requires []string
	OnStart  func(ctx context.Context) error
	OnStop   func(ctx context.Context) error
}

func (f Func) Name() string        { return f.ID }
func (f Func) DependsOn() []string { return f.Requires }

func (f Func) Start(ctx context.Context) error {
	if f.OnStart == nil {
		return nil
	}
	return f.OnStart(ctx)
}

func (f Func) Stop(ctx context.Context) error {
	if f.OnStop == nil {
		return nil
	}
	return f.OnStop(ctx)
}

type Startup struct {
	logger      ectologger.Logger
	order       []string
	deps        map[string]Dependency
	statuses    map[string]Status
	maxAttempts int
	backoff     time.Duration
}

// New builds a Startup that tries at most maxAttempts times. The first retry
// waits one second.
func New(logger ectologger.Logger, maxAttempts int) *Startup {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Startup{
		logger:      logger,
		deps:        make(map[string]Dependency),
		statuses:    make(map[string]Status),
		maxAttempts: maxAttempts,
		backoff:     time.Second,
	}
}

func (s *Startup) Add(deps ...Dependency) {
	for _, dep := range deps {
		if _, ok := s.deps[dep.Name()]; !ok {
			s.order = append(s.order, dep.Name())
		}
		s.deps[dep.Name()] = dep
	}
}

func (s *Startup) Status(name string) Status {
	return s.statuses[name]
}

// Start starts every dependency after the ones it depends on. A failed
// attempt is retried from the first dependency that is not started.
func (s *Startup) Start(ctx context.Context) error {
	var lastErr error
	a, b := 1, 1
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		s.logger.WithContext(ctx).WithField("attempt", attempt).Infof("Beginning startup attempt %d", attempt)

		lastErr = nil
		for _, name := range s.order {
			if err := s.start(ctx, name, nil); err != nil {
				s.logger.WithContext(ctx).WithError(err).Errorf("Startup dependency '%s' attempt %d failed", name, attempt)
				lastErr = err
				break
			}
		}
		if lastErr == nil {
			return nil
		}
		if attempt == s.maxAttempts {
			break
		}

		wait := time.Duration(a) * s.backoff
		s.logger.WithContext(ctx).Infof("Retrying in %s (attempt %d/%d)", wait, attempt, s.maxAttempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		a, b = b, a+b
	}

	return fmt.Errorf("startup failed after %d attempts: %w", s.maxAttempts, lastErr)
}

func (s *Startup) start(ctx context.Context, name string, visiting []string) error {
	if s.statuses[name] == StatusStarted {
		return nil
	}
	for _, seen := range visiting {
		if seen == name {
			return fmt.Errorf("dependency cycle through '%s'", name)
		}
	}
	dep, ok := s.deps[name]
	if !ok {
		return fmt.Errorf("unknown dependency '%s'", name)
	}

	for _, required := range dep.DependsOn() {
		if err := s.start(ctx, required, append(visiting, name)); err != nil {
			return err
		}
	}

	log := s.logger.WithContext(ctx).WithField("dependency", name)
	log.Infof("Starting dependency '%s'", name)
	s.statuses[name] = StatusPending
	if err := dep.Start(ctx); err != nil {
		s.statuses[name] = StatusFailed
		return err
	}
	s.statuses[name] = StatusStarted
	return nil
}

// Stop stops the started dependencies, dependents first.
func (s *Startup) Stop(ctx context.Context) error {
	for idx := len(s.order) - 1; idx >= 0; idx-- {
		if err := s.stop(ctx, s.order[idx]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Startup) stop(ctx context.Context, name string) error {
	if s.statuses[name] != StatusStarted {
		return nil
	}
	for _, other := range s.order {
		if s.statuses[other] != StatusStarted {
			continue
		}
		for _, required := range s.deps[other].DependsOn() {
			if required == name {
				if err := s.stop(ctx, other); err != nil {
					return err
				}
			}
		}
	}

	log := s.logger.WithContext(ctx).WithField("dependency", name)
	log.Infof("Stopping dependency '%s'", name)
	if err := s.deps[name].Stop(ctx); err != nil {
		log.WithError(err).Errorf("Failed to stop dependency '%s'", name)
		return err
	}
	s.statuses[name] = StatusStopped
	return nil
}
