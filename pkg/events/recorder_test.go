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

package events

import (
	"context"
	"testing"
	"time"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return st
}

func newPod(t *testing.T, st *store.Store) *v1.Pod {
	t.Helper()
	p := &v1.Pod{
		ObjectMeta: v1.ObjectMeta{Namespace: "default", Name: "web-a"},
		Spec:       v1.PodSpec{Containers: []v1.Container{{Name: "c", Image: "img"}}},
	}
	if err := st.Create(context.Background(), p); err != nil {
		t.Fatalf("create pod: %v", err)
	}
	return p
}

func TestRecordCoalescesWithinWindow(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	r := New(st, 5*time.Minute, time.Hour, 24*time.Hour)
	now := time.Unix(1000, 0)
	r.now = func() time.Time { return now }
	pod := newPod(t, st)

	if err := r.Record(ctx, pod, v1.EventWarning, "BackOff", "first"); err != nil {
		t.Fatalf("record 1: %v", err)
	}
	now = now.Add(time.Minute)
	if err := r.Record(ctx, pod, v1.EventWarning, "BackOff", "second"); err != nil {
		t.Fatalf("record 2: %v", err)
	}

	evs, err := store.List[v1.Event](ctx, st, v1.KindEvent, "default", nil)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(evs) != 1 {
		t.Fatalf("expected coalesced into 1 event, got %d", len(evs))
	}
	if evs[0].Count != 2 {
		t.Fatalf("expected count=2, got %d", evs[0].Count)
	}
	if evs[0].Message != "second" {
		t.Fatalf("expected message updated to latest, got %q", evs[0].Message)
	}
}

func TestRecordCreatesNewEventOutsideWindow(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	r := New(st, 5*time.Minute, time.Hour, 24*time.Hour)
	now := time.Unix(1000, 0)
	r.now = func() time.Time { return now }
	pod := newPod(t, st)

	if err := r.Record(ctx, pod, v1.EventWarning, "BackOff", "first"); err != nil {
		t.Fatalf("record 1: %v", err)
	}
	now = now.Add(10 * time.Minute)
	if err := r.Record(ctx, pod, v1.EventWarning, "BackOff", "second"); err != nil {
		t.Fatalf("record 2: %v", err)
	}

	evs, err := store.List[v1.Event](ctx, st, v1.KindEvent, "default", nil)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("expected 2 distinct events outside the coalescing window, got %d", len(evs))
	}
}

func TestPruneOnceRemovesExpiredEvents(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	r := New(st, 5*time.Minute, time.Hour, 24*time.Hour)
	now := time.Unix(100000, 0)
	r.now = func() time.Time { return now }
	pod := newPod(t, st)

	if err := r.Record(ctx, pod, v1.EventNormal, "Scheduled", "scheduled ok"); err != nil {
		t.Fatalf("record: %v", err)
	}
	now = now.Add(2 * time.Hour) // past the 1h Normal TTL, under the 24h Warning TTL

	pruned, err := r.PruneOnce(ctx)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected 1 expired Normal event pruned, got %d", pruned)
	}
}
