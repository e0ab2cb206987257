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

package job

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

func newJob(t *testing.T, st *store.Store, parallelism, completions, backoff int32) *v1.Job {
	t.Helper()
	j := &v1.Job{
		ObjectMeta: v1.ObjectMeta{Namespace: "default", Name: "batch"},
		Spec: v1.JobSpec{
			Parallelism:  parallelism,
			Completions:  completions,
			BackoffLimit: backoff,
			Template: v1.PodTemplateSpec{
				Spec: v1.PodSpec{Containers: []v1.Container{{Name: "c", Image: "img"}}},
			},
		},
	}
	if err := st.Create(context.Background(), j); err != nil {
		t.Fatalf("create job: %v", err)
	}
	return j
}

func TestReconcileLaunchesUpToParallelism(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	c := New(st, 0)
	j := newJob(t, st, 2, 5, 3)

	if _, err := c.reconcile(ctx, j); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	pods, err := Owned(ctx, st, j)
	if err != nil {
		t.Fatalf("owned: %v", err)
	}
	if len(pods) != 2 {
		t.Fatalf("expected 2 active pods (parallelism), got %d", len(pods))
	}
	for _, p := range pods {
		if p.Spec.RestartPolicy != v1.RestartPolicyNever {
			t.Fatal("expected restartPolicy=Never on job pods")
		}
	}
}

func TestReconcileMarksCompleteWhenSucceededMeetsCompletions(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	c := New(st, 0)
	j := newJob(t, st, 1, 1, 3)

	if _, err := c.reconcile(ctx, j); err != nil {
		t.Fatalf("reconcile 1: %v", err)
	}
	pods, _ := Owned(ctx, st, j)
	pods[0].Status.Phase = v1.PodSucceeded
	if err := st.Update(ctx, pods[0]); err != nil {
		t.Fatalf("update pod: %v", err)
	}

	if _, err := c.reconcile(ctx, j); err != nil {
		t.Fatalf("reconcile 2: %v", err)
	}
	if !conditionTrue(j.Status.Conditions, v1.JobComplete) {
		t.Fatal("expected Complete condition")
	}
}

func TestReconcileMarksFailedOnDeadlineExceeded(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	c := New(st, 0)
	c.now = func() time.Time { return time.Unix(1000, 0) }
	j := newJob(t, st, 1, 1, 3)
	j.Spec.ActiveDeadlineSeconds = 10
	if err := st.Update(ctx, j); err != nil {
		t.Fatalf("update job: %v", err)
	}

	if _, err := c.reconcile(ctx, j); err != nil {
		t.Fatalf("reconcile 1: %v", err)
	}

	c.now = func() time.Time { return time.Unix(1020, 0) }
	if _, err := c.reconcile(ctx, j); err != nil {
		t.Fatalf("reconcile 2: %v", err)
	}
	if !conditionTrue(j.Status.Conditions, v1.JobFailed) {
		t.Fatal("expected Failed condition after deadline exceeded")
	}
}
