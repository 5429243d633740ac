package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
)

type Dependency interface {
	GetName() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Func adapts a pair of closures to Dependency. Either may be nil.
type Func struct {
	Name    string
	StartFn func(ctx context.Context) error
	StopFn  func(ctx context.Context) error
}

func (f Func) GetName() string { return f.Name }

func (f Func) Start(ctx context.Context) error {
	if f.StartFn == nil {
		return nil
	}
	return f.StartFn(ctx)
}

func (f Func) Stop(ctx context.Context) error {
	if f.StopFn == nil {
		return nil
	}
	return f.StopFn(ctx)
}

// Startup starts dependencies in registration order, retrying the whole
// sequence with Fibonacci backoff, and stops them in reverse order.
type Startup struct {
	dependencies []Dependency
	started      map[string]bool
	logger       ectologger.Logger
	maxAttempts  int
	unit         time.Duration
}

func NewStartup(logger ectologger.Logger, maxAttempts int) *Startup {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Startup{
		logger:      logger,
		started:     make(map[string]bool),
		maxAttempts: maxAttempts,
		unit:        time.Second,
	}
}

func (s *Startup) Add(dependency Dependency) {
	s.dependencies = append(s.dependencies, dependency)
}

func (s *Startup) Start(ctx context.Context) error {
	var lastErr error
	a, b := 1, 1
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		s.logger.WithField("attempt", attempt).Infof("Beginning startup attempt %d", attempt)

		lastErr = s.startAll(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == s.maxAttempts {
			break
		}

		s.logger.Infof("Retrying in %d units (attempt %d/%d)", a, attempt, s.maxAttempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(a) * s.unit):
		}
		a, b = b, a+b
	}

	return fmt.Errorf("startup failed after %d attempts: %w", s.maxAttempts, lastErr)
}

func (s *Startup) startAll(ctx context.Context) error {
	for _, dependency := range s.dependencies {
		name := dependency.GetName()
		if s.started[name] {
			continue
		}
		s.logger.WithField("dependency", name).Infof("Starting dependency '%s'", name)
		if err := dependency.Start(ctx); err != nil {
			s.logger.WithError(err).WithField("dependency", name).Errorf("Failed to start dependency '%s'", name)
			return err
		}
		s.started[name] = true
	}
	return nil
}

// Stop stops every started dependency, newest first, and returns the first error.
func (s *Startup) Stop(ctx context.Context) error {
	var firstErr error
	for i := len(s.dependencies) - 1; i >= 0; i-- {
		dependency := s.dependencies[i]
		name := dependency.GetName()
		if !s.started[name] {
			continue
		}
		if err := dependency.Stop(ctx); err != nil {
			s.logger.WithError(err).WithField("dependency", name).Errorf("Failed to stop dependency '%s'", name)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.started[name] = false
		s.logger.WithField("dependency", name).Infof("Dependency '%s' stopped", name)
	}
	return firstErr
}
