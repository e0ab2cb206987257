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

package statefulset

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

func newSTS(t *testing.T, st *store.Store, replicas int32, policy v1.PodManagementPolicy) *v1.StatefulSet {
	t.Helper()
	sts := &v1.StatefulSet{
		ObjectMeta: v1.ObjectMeta{Namespace: "default", Name: "db"},
		Spec: v1.StatefulSetSpec{
			Replicas:            replicas,
			Selector:            map[string]string{"app": "db"},
			ServiceName:         "db",
			PodManagementPolicy: policy,
			Template: v1.PodTemplateSpec{
				Labels: map[string]string{"app": "db"},
				Spec:   v1.PodSpec{Containers: []v1.Container{{Name: "c", Image: "img"}}},
			},
		},
	}
	if err := st.Create(context.Background(), sts); err != nil {
		t.Fatalf("create sts: %v", err)
	}
	return sts
}

func TestOrderedReadyCreatesOneOrdinalPerTick(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	c := New(st, 0)
	sts := newSTS(t, st, 3, v1.PodManagementOrderedReady)

	if _, err := c.reconcile(ctx, sts); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	byOrd, err := c.byOrdinal(ctx, sts)
	if err != nil {
		t.Fatalf("byOrdinal: %v", err)
	}
	if len(byOrd) != 1 {
		t.Fatalf("expected exactly 1 pod created under OrderedReady, got %d", len(byOrd))
	}
	if _, ok := byOrd[0]; !ok {
		t.Fatal("expected ordinal 0 created first")
	}
}

func TestParallelCreatesAllOrdinals(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	c := New(st, 0)
	sts := newSTS(t, st, 3, v1.PodManagementParallel)

	if _, err := c.reconcile(ctx, sts); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	byOrd, err := c.byOrdinal(ctx, sts)
	if err != nil {
		t.Fatalf("byOrdinal: %v", err)
	}
	if len(byOrd) != 3 {
		t.Fatalf("expected 3 pods created under Parallel, got %d", len(byOrd))
	}
}

func TestPodHostnameAndSubdomainSetFromOrdinal(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	c := New(st, 0)
	sts := newSTS(t, st, 1, v1.PodManagementOrderedReady)

	if _, err := c.reconcile(ctx, sts); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	pod, err := store.Get[v1.Pod](ctx, st, v1.KindPod, "default", "db-0")
	if err != nil {
		t.Fatalf("get pod: %v", err)
	}
	if pod.Spec.Hostname != "db-0" || pod.Spec.Subdomain != "db" {
		t.Fatalf("got hostname=%s subdomain=%s", pod.Spec.Hostname, pod.Spec.Subdomain)
	}
}
