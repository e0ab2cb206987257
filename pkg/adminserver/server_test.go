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

package adminserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DarsheeeGamer/kos/pkg/supervisor"
)

type fakeSupervisor struct {
	healthy     bool
	status      []supervisor.Status
	lastEnable  string
	lastDisable string
	enableErr   error
	disableErr  error
}

func (f *fakeSupervisor) Healthy() bool               { return f.healthy }
func (f *fakeSupervisor) Status() []supervisor.Status { return f.status }
func (f *fakeSupervisor) Enable(_ context.Context, name string) error {
	f.lastEnable = name
	return f.enableErr
}
func (f *fakeSupervisor) Disable(_ context.Context, name string) error {
	f.lastDisable = name
	return f.disableErr
}

func TestHealthzReflectsSupervisorHealth(t *testing.T) {
	fake := &fakeSupervisor{healthy: true}
	s := New(fake, nil)

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	fake.healthy = false
	rr = httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestStatuszReportsComponents(t *testing.T) {
	fake := &fakeSupervisor{healthy: true, status: []supervisor.Status{{Name: "scheduler", Healthy: true, Enabled: true}}}
	s := New(fake, nil)

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/statusz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["healthy"] != true {
		t.Fatalf("expected healthy=true in body, got %v", body)
	}
}

func TestEnableDisableRoutesToSupervisor(t *testing.T) {
	fake := &fakeSupervisor{healthy: true}
	s := New(fake, nil)

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/components/scheduler/disable", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if fake.lastDisable != "scheduler" {
		t.Fatalf("expected Disable called with scheduler, got %q", fake.lastDisable)
	}

	rr = httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/components/scheduler/enable", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if fake.lastEnable != "scheduler" {
		t.Fatalf("expected Enable called with scheduler, got %q", fake.lastEnable)
	}
}

func TestStopInvokesShutdown(t *testing.T) {
	fake := &fakeSupervisor{healthy: true}
	called := make(chan struct{})
	s := New(fake, func() { close(called) })

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/stop", nil))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("expected shutdown to be invoked")
	}
}
