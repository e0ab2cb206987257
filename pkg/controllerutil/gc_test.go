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

package controllerutil

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

func TestSweepDeletesPodWithMissingOwner(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	orphan := &v1.Pod{
		ObjectMeta: v1.ObjectMeta{
			Namespace: "default",
			Name:      "orphan",
			OwnerReferences: []v1.OwnerReference{{
				Kind:       v1.KindReplicaSet,
				Name:       "gone",
				UID:        "missing-uid",
				Controller: true,
			}},
		},
		Spec: v1.PodSpec{Containers: []v1.Container{{Name: "c", Image: "img"}}},
	}
	if err := st.Create(ctx, orphan); err != nil {
		t.Fatalf("create pod: %v", err)
	}

	n, err := Sweep[v1.Pod](ctx, st, v1.KindPod)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 deletion, got %d", n)
	}
	if exists, _ := st.Exists(v1.KindPod, "default", "orphan"); exists {
		t.Fatal("expected orphaned pod to be deleted")
	}
}

func TestSweepKeepsPodWithLiveOwner(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	rs := &v1.ReplicaSet{
		ObjectMeta: v1.ObjectMeta{Namespace: "default", Name: "rs-a"},
		Spec: v1.ReplicaSetSpec{
			Replicas: 1,
			Selector: map[string]string{"app": "web"},
			Template: v1.PodTemplateSpec{
				Labels: map[string]string{"app": "web"},
				Spec:   v1.PodSpec{Containers: []v1.Container{{Name: "c", Image: "img"}}},
			},
		},
	}
	if err := st.Create(ctx, rs); err != nil {
		t.Fatalf("create replicaset: %v", err)
	}
	p := &v1.Pod{
		ObjectMeta: v1.ObjectMeta{
			Namespace: "default",
			Name:      "owned",
			OwnerReferences: []v1.OwnerReference{{
				Kind:       v1.KindReplicaSet,
				Name:       rs.ObjectMeta.Name,
				UID:        rs.ObjectMeta.UID,
				Controller: true,
			}},
		},
		Spec: v1.PodSpec{Containers: []v1.Container{{Name: "c", Image: "img"}}},
	}
	if err := st.Create(ctx, p); err != nil {
		t.Fatalf("create pod: %v", err)
	}

	n, err := Sweep[v1.Pod](ctx, st, v1.KindPod)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 deletions, got %d", n)
	}
	if exists, _ := st.Exists(v1.KindPod, "default", "owned"); !exists {
		t.Fatal("expected owned pod to survive the sweep")
	}
}

func TestSweepIgnoresPodWithNoControllerRef(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	p := &v1.Pod{
		ObjectMeta: v1.ObjectMeta{Namespace: "default", Name: "standalone"},
		Spec:       v1.PodSpec{Containers: []v1.Container{{Name: "c", Image: "img"}}},
	}
	if err := st.Create(ctx, p); err != nil {
		t.Fatalf("create pod: %v", err)
	}

	n, err := Sweep[v1.Pod](ctx, st, v1.KindPod)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 deletions for a pod with no controller owner, got %d", n)
	}
}

func TestRunOnceSweepsAllRegisteredKinds(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	orphanPod := &v1.Pod{
		ObjectMeta: v1.ObjectMeta{
			Namespace:       "default",
			Name:            "orphan-pod",
			OwnerReferences: []v1.OwnerReference{{Kind: v1.KindReplicaSet, Name: "gone", Controller: true}},
		},
		Spec: v1.PodSpec{Containers: []v1.Container{{Name: "c", Image: "img"}}},
	}
	orphanRS := &v1.ReplicaSet{
		ObjectMeta: v1.ObjectMeta{
			Namespace:       "default",
			Name:            "orphan-rs",
			OwnerReferences: []v1.OwnerReference{{Kind: v1.KindDeployment, Name: "gone", Controller: true}},
		},
		Spec: v1.ReplicaSetSpec{Replicas: 1, Selector: map[string]string{"app": "x"}},
	}
	if err := st.Create(ctx, orphanPod); err != nil {
		t.Fatalf("create pod: %v", err)
	}
	if err := st.Create(ctx, orphanRS); err != nil {
		t.Fatalf("create replicaset: %v", err)
	}

	g := New(st, 0)
	total, err := g.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 deletions across kinds, got %d", total)
	}
}
