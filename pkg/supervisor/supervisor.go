/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package supervisor is the Lifecycle Supervisor (spec §4.P): it starts
// registered components in dependency order, restarts any that exit
// unexpectedly, and stops everything in reverse order on shutdown.
//
// No ecosystem dependency in the corpus offers a process-group/supervisor
// abstraction (controller-runtime's manager.Manager couples starting to
// its own Reconciler/cache wiring, which this module's hand-rolled
// ticker-based controllers don't use), so this is plain goroutines and
// channels.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Start is a component's blocking entry point: it runs until ctx is
// cancelled or it hits an unrecoverable error, and returns that error (nil
// on a clean ctx-cancelled stop).
type Start func(ctx context.Context) error

type component struct {
	name    string
	start   Start
	cancel  context.CancelFunc
	done    chan error
	healthy bool
	enabled bool
}

// Status is a point-in-time snapshot of one component, for the admin
// surface's /statusz.
type Status struct {
	Name    string
	Healthy bool
	Enabled bool
}

// Supervisor owns the lifetime of every registered component.
type Supervisor struct {
	mu                  sync.Mutex
	components          []*component
	healthcheckInterval time.Duration
	stopGrace           time.Duration
	stopping            bool
	// baseCtx is the context Run was called with, kept as the parent for
	// components (re)launched outside Run's own start loop (Enable), so
	// an admin request's own, shorter-lived context never becomes a
	// component's lifetime.
	baseCtx context.Context
}

// New builds a Supervisor. healthcheckInterval bounds how often exited
// components are noticed and restarted; stopGrace bounds how long Stop
// waits for a component to exit before moving on (spec §4.P).
func New(healthcheckInterval, stopGrace time.Duration) *Supervisor {
	return &Supervisor{healthcheckInterval: healthcheckInterval, stopGrace: stopGrace}
}

// Register adds a component, to be started in registration order (spec
// §4.P: "as listed in §2, A before B, and so on").
func (s *Supervisor) Register(name string, start Start) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.components = append(s.components, &component{name: name, start: start, enabled: true})
}

// Enable (re)starts a disabled component in place. A no-op if the named
// component is already enabled; an error if no component has that name.
func (s *Supervisor) Enable(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.find(name)
	if c == nil {
		return fmt.Errorf("supervisor: no such component %q", name)
	}
	if c.enabled {
		return nil
	}
	c.enabled = true
	launchCtx := s.baseCtx
	if launchCtx == nil {
		launchCtx = ctx
	}
	s.launch(launchCtx, c)
	log.FromContext(ctx).Info("supervisor enabled component", "component", name)
	return nil
}

// Disable stops a running component and prevents the healthcheck loop
// from restarting it until Enable is called again (spec §6: "per
// component it exposes enable/disable").
func (s *Supervisor) Disable(ctx context.Context, name string) error {
	s.mu.Lock()
	c := s.find(name)
	if c == nil {
		s.mu.Unlock()
		return fmt.Errorf("supervisor: no such component %q", name)
	}
	if !c.enabled {
		s.mu.Unlock()
		return nil
	}
	c.enabled = false
	c.healthy = false
	cancel, done := c.cancel, c.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-time.After(s.stopGrace):
			log.FromContext(ctx).Info("supervisor component did not stop within grace period", "component", name)
		}
	}
	log.FromContext(ctx).Info("supervisor disabled component", "component", name)
	return nil
}

// find must be called with s.mu held.
func (s *Supervisor) find(name string) *component {
	for _, c := range s.components {
		if c.name == name {
			return c
		}
	}
	return nil
}

// Status returns a snapshot of every registered component.
func (s *Supervisor) Status() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Status, len(s.components))
	for i, c := range s.components {
		out[i] = Status{Name: c.name, Healthy: c.healthy, Enabled: c.enabled}
	}
	return out
}

func (s *Supervisor) launch(ctx context.Context, c *component) {
	cctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan error, 1)
	c.healthy = true
	go func() {
		c.done <- c.start(cctx)
	}()
}

// Run starts every registered component in order, then blocks running the
// healthcheck loop until ctx is cancelled, at which point it stops
// everything in reverse order.
func (s *Supervisor) Run(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	for _, c := range s.components {
		s.launch(ctx, c)
		log.FromContext(ctx).Info("supervisor started component", "component", c.name)
	}
	s.mu.Unlock()

	ticker := time.NewTicker(s.healthcheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Stop(context.Background())
			return nil
		case <-ticker.C:
			s.healthcheck(ctx)
		}
	}
}

// healthcheck restarts in place any component whose goroutine has exited
// on its own (spec §4.P: "a component reporting unhealthy is restarted
// in-place").
func (s *Supervisor) healthcheck(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return
	}
	for _, c := range s.components {
		if !c.enabled {
			continue
		}
		select {
		case err := <-c.done:
			c.healthy = false
			log.FromContext(ctx).Error(err, "supervisor component exited, restarting", "component", c.name)
			s.launch(ctx, c)
		default:
		}
	}
}

// Healthy reports whether every component is currently running.
func (s *Supervisor) Healthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.components {
		if c.enabled && !c.healthy {
			return false
		}
	}
	return true
}

// Stop cancels every component in reverse registration order, waiting up
// to stopGrace per component for it to exit.
func (s *Supervisor) Stop(ctx context.Context) {
	s.mu.Lock()
	s.stopping = true
	components := append([]*component(nil), s.components...)
	s.mu.Unlock()

	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		if c.cancel == nil {
			continue
		}
		c.cancel()
		select {
		case <-c.done:
		case <-time.After(s.stopGrace):
			log.FromContext(ctx).Info("supervisor component did not stop within grace period", "component", c.name)
		}
		log.FromContext(ctx).Info("supervisor stopped component", "component", c.name)
	}
}
