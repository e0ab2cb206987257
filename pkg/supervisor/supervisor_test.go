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

package supervisor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunStartsEveryRegisteredComponent(t *testing.T) {
	s := New(50*time.Millisecond, 100*time.Millisecond)
	started := make(chan string, 2)
	s.Register("a", func(ctx context.Context) error {
		started <- "a"
		<-ctx.Done()
		return nil
	})
	s.Register("b", func(ctx context.Context) error {
		started <- "b"
		<-ctx.Done()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case name := <-started:
			seen[name] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for components to start")
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after ctx cancellation")
	}

	if !seen["a"] || !seen["b"] {
		t.Fatalf("expected both components to start, got %v", seen)
	}
}

func TestHealthcheckRestartsExitedComponent(t *testing.T) {
	s := New(10*time.Millisecond, 100*time.Millisecond)
	var starts atomic.Int32
	s.Register("flaky", func(ctx context.Context) error {
		starts.Add(1)
		if starts.Load() == 1 {
			return nil // exits immediately on first start
		}
		<-ctx.Done()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(60 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after ctx cancellation")
	}

	if starts.Load() < 2 {
		t.Fatalf("expected the healthcheck to restart the exited component at least once, got %d starts", starts.Load())
	}
}

func TestDisableStopsAndExcludesFromHealthcheck(t *testing.T) {
	s := New(10*time.Millisecond, 200*time.Millisecond)
	started := make(chan struct{}, 4)
	var starts atomic.Int32
	s.Register("steady", func(ctx context.Context) error {
		starts.Add(1)
		started <- struct{}{}
		<-ctx.Done()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial start")
	}

	if err := s.Disable(ctx, "steady"); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	time.Sleep(50 * time.Millisecond) // let a healthcheck tick pass
	if starts.Load() != 1 {
		t.Fatalf("expected disabled component not to be restarted, got %d starts", starts.Load())
	}
	status := s.Status()
	if len(status) != 1 || status[0].Enabled || status[0].Healthy {
		t.Fatalf("expected disabled/unhealthy status, got %+v", status)
	}

	if err := s.Enable(ctx, "steady"); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for re-enabled start")
	}
	if starts.Load() != 2 {
		t.Fatalf("expected Enable to restart the component once more, got %d starts", starts.Load())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after ctx cancellation")
	}
}
