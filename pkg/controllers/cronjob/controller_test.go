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

package cronjob

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

func newCronJob(t *testing.T, st *store.Store, schedule string, policy v1.ConcurrencyPolicy) *v1.CronJob {
	t.Helper()
	cj := &v1.CronJob{
		ObjectMeta: v1.ObjectMeta{Namespace: "default", Name: "sweep"},
		Spec: v1.CronJobSpec{
			Schedule:                   schedule,
			ConcurrencyPolicy:          policy,
			SuccessfulJobsHistoryLimit: 3,
			FailedJobsHistoryLimit:     1,
			JobTemplate: v1.JobTemplateSpec{
				Spec: v1.JobSpec{
					Parallelism: 1,
					Completions: 1,
					Template: v1.PodTemplateSpec{
						Spec: v1.PodSpec{Containers: []v1.Container{{Name: "c", Image: "img"}}},
					},
				},
			},
		},
	}
	if err := st.Create(context.Background(), cj); err != nil {
		t.Fatalf("create cronjob: %v", err)
	}
	return cj
}

func TestReconcileStartsJobWhenDue(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	c := New(st, 0)
	c.now = func() time.Time { return time.Unix(0, 0).Add(2 * time.Minute) }
	cj := newCronJob(t, st, "@every 1m", v1.ConcurrencyAllow)

	started, err := c.reconcile(ctx, cj)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !started {
		t.Fatal("expected a job to start")
	}
	jobs, err := c.ownedJobs(ctx, cj)
	if err != nil {
		t.Fatalf("ownedJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 owned job, got %d", len(jobs))
	}
}

func TestReconcileForbidSkipsWhileActive(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	c := New(st, 0)
	c.now = func() time.Time { return time.Unix(0, 0).Add(2 * time.Minute) }
	cj := newCronJob(t, st, "@every 1m", v1.ConcurrencyForbid)

	if _, err := c.reconcile(ctx, cj); err != nil {
		t.Fatalf("reconcile 1: %v", err)
	}

	c.now = func() time.Time { return time.Unix(0, 0).Add(4 * time.Minute) }
	started, err := c.reconcile(ctx, cj)
	if err != nil {
		t.Fatalf("reconcile 2: %v", err)
	}
	if started {
		t.Fatal("expected Forbid to skip while previous job still active")
	}
	jobs, err := c.ownedJobs(ctx, cj)
	if err != nil {
		t.Fatalf("ownedJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected still only 1 owned job, got %d", len(jobs))
	}
}

func TestReconcileReplacePolicyDeletesActiveJob(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	c := New(st, 0)
	c.now = func() time.Time { return time.Unix(0, 0).Add(2 * time.Minute) }
	cj := newCronJob(t, st, "@every 1m", v1.ConcurrencyReplace)

	if _, err := c.reconcile(ctx, cj); err != nil {
		t.Fatalf("reconcile 1: %v", err)
	}
	first, err := c.ownedJobs(ctx, cj)
	if err != nil || len(first) != 1 {
		t.Fatalf("expected 1 job after first reconcile, err=%v len=%d", err, len(first))
	}

	c.now = func() time.Time { return time.Unix(0, 0).Add(4 * time.Minute) }
	started, err := c.reconcile(ctx, cj)
	if err != nil {
		t.Fatalf("reconcile 2: %v", err)
	}
	if !started {
		t.Fatal("expected Replace to start a new job")
	}
	second, err := c.ownedJobs(ctx, cj)
	if err != nil {
		t.Fatalf("ownedJobs: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("expected old active job replaced, leaving 1 owned job, got %d", len(second))
	}
	if second[0].ObjectMeta.Name == first[0].ObjectMeta.Name {
		t.Fatal("expected the replacement job to be a new object")
	}
}

func TestPruneHistoryKeepsOnlyLimit(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	c := New(st, 0)
	cj := newCronJob(t, st, "@every 1m", v1.ConcurrencyAllow)
	cj.Spec.SuccessfulJobsHistoryLimit = 1

	for i := 0; i < 3; i++ {
		j := &v1.Job{
			ObjectMeta: v1.ObjectMeta{
				Namespace: "default",
				Name:      cj.ObjectMeta.Name + "-finished-" + string(rune('a'+i)),
				Labels:    map[string]string{cronJobNameLabel: cj.ObjectMeta.Name},
				OwnerReferences: []v1.OwnerReference{
					{Kind: v1.KindCronJob, Name: cj.ObjectMeta.Name, UID: cj.ObjectMeta.UID, Controller: true},
				},
			},
			Spec: v1.JobSpec{Template: v1.PodTemplateSpec{Spec: v1.PodSpec{Containers: []v1.Container{{Name: "c", Image: "img"}}}}},
		}
		if err := st.Create(ctx, j); err != nil {
			t.Fatalf("create job %d: %v", i, err)
		}
		j.Status.Conditions = j.Status.Conditions.Set(v1.Condition{Type: v1.JobComplete, Status: v1.ConditionTrue}, float64(i))
		j.Status.CompletionTime = float64(i)
		if err := st.Update(ctx, j); err != nil {
			t.Fatalf("update job %d: %v", i, err)
		}
	}

	if err := c.pruneHistory(ctx, cj); err != nil {
		t.Fatalf("pruneHistory: %v", err)
	}
	jobs, err := c.ownedJobs(ctx, cj)
	if err != nil {
		t.Fatalf("ownedJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected history pruned to 1 job, got %d", len(jobs))
	}
}
