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

package replicaset

import (
	"context"
	"testing"

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

func newRS(t *testing.T, st *store.Store, replicas int32) *v1.ReplicaSet {
	t.Helper()
	rs := &v1.ReplicaSet{
		ObjectMeta: v1.ObjectMeta{Namespace: "default", Name: "web"},
		Spec: v1.ReplicaSetSpec{
			Replicas: replicas,
			Selector: map[string]string{"app": "web"},
			Template: v1.PodTemplateSpec{
				Labels: map[string]string{"app": "web"},
				Spec:   v1.PodSpec{Containers: []v1.Container{{Name: "c", Image: "img"}}},
			},
		},
	}
	if err := st.Create(context.Background(), rs); err != nil {
		t.Fatalf("create rs: %v", err)
	}
	return rs
}

func TestReconcileScalesUpToDesired(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	c := New(st, 0)
	rs := newRS(t, st, 3)

	if _, err := c.reconcile(ctx, rs); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	pods, err := Matched(ctx, st, rs)
	if err != nil {
		t.Fatalf("matched: %v", err)
	}
	if len(pods) != 3 {
		t.Fatalf("expected 3 pods, got %d", len(pods))
	}
	if rs.Status.Replicas != 3 {
		t.Fatalf("status.replicas = %d, want 3", rs.Status.Replicas)
	}
}

var names3 = []string{"web-aaaaa", "web-bbbbb", "web-ccccc"}

func TestReconcileScalesDownNewestFirst(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	c := New(st, 0)
	rs := newRS(t, st, 0)

	for i, ts := range []float64{300, 100, 200} {
		p := &v1.Pod{
			ObjectMeta: v1.ObjectMeta{
				Namespace: "default", Name: names3[i], CreationTimestamp: ts,
				Labels:          map[string]string{"app": "web"},
				OwnerReferences: []v1.OwnerReference{{Kind: v1.KindReplicaSet, Name: rs.ObjectMeta.Name, UID: rs.ObjectMeta.UID, Controller: true}},
			},
			Spec: v1.PodSpec{Containers: []v1.Container{{Name: "c", Image: "img"}}},
		}
		if err := st.Create(ctx, p); err != nil {
			t.Fatalf("create pod: %v", err)
		}
	}

	rs.Spec.Replicas = 1
	if err := st.Update(ctx, rs); err != nil {
		t.Fatalf("update rs: %v", err)
	}
	if _, err := c.reconcile(ctx, rs); err != nil {
		t.Fatalf("reconcile down: %v", err)
	}

	remaining, err := Matched(ctx, st, rs)
	if err != nil {
		t.Fatalf("matched: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected 1 pod remaining, got %d", len(remaining))
	}
	if remaining[0].ObjectMeta.CreationTimestamp != 100 {
		t.Fatalf("expected oldest pod (ts=100) to survive, kept ts=%v", remaining[0].ObjectMeta.CreationTimestamp)
	}
}

func TestUpdateStatusSetsReplicaFailure(t *testing.T) {
	c := &Controller{}
	rs := &v1.ReplicaSet{}
	pods := []*v1.Pod{{Status: v1.PodStatus{Phase: v1.PodFailed}}}
	if !c.updateStatus(rs, pods) {
		t.Fatal("expected status change")
	}
	cond, ok := rs.Status.Conditions.Get(conditionReplicaFailure)
	if !ok || cond.Status != v1.ConditionTrue {
		t.Fatalf("expected ReplicaFailure=True, got %+v ok=%v", cond, ok)
	}
}
