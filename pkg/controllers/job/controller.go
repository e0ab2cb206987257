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

// Package job tracks active/succeeded/failed Pod counts for a Job and
// launches new Pods to keep parallelism satisfied (spec §4.L).
package job

import (
	"context"
	"time"

	"github.com/samber/lo"
	"sigs.k8s.io/controller-runtime/pkg/log"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/controllerutil"
	"github.com/DarsheeeGamer/kos/pkg/names"
	"github.com/DarsheeeGamer/kos/pkg/store"
)

const jobNameLabel = "job-name"

// Controller reconciles every Job on a timer.
type Controller struct {
	st       *store.Store
	interval time.Duration
	now      func() time.Time
}

// New builds a Controller polling st every interval.
func New(st *store.Store, interval time.Duration) *Controller {
	return &Controller{st: st, interval: interval, now: time.Now}
}

// RunOnce reconciles every Job once, returning the number changed.
func (c *Controller) RunOnce(ctx context.Context) (int, error) {
	jobs, err := store.List[v1.Job](ctx, c.st, v1.KindJob, "", nil)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, j := range jobs {
		did, err := c.reconcile(ctx, j)
		if err != nil {
			return changed, err
		}
		if did {
			changed++
		}
	}
	return changed, nil
}

// Owned returns every Pod owned by j via a controller ownerReference.
func Owned(ctx context.Context, st *store.Store, j *v1.Job) ([]*v1.Pod, error) {
	podList, err := store.List[v1.Pod](ctx, st, v1.KindPod, j.ObjectMeta.Namespace, map[string]string{jobNameLabel: j.ObjectMeta.Name})
	if err != nil {
		return nil, err
	}
	var out []*v1.Pod
	for _, p := range podList {
		if owner, ok := p.ObjectMeta.ControllerRef(); ok && owner.Kind == v1.KindJob && owner.UID == j.ObjectMeta.UID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *Controller) reconcile(ctx context.Context, j *v1.Job) (bool, error) {
	logger := log.FromContext(ctx).WithValues("namespace", j.ObjectMeta.Namespace, "job", j.ObjectMeta.Name)
	now := c.now()

	changed := false
	if j.Status.StartTime == 0 {
		j.Status.StartTime = float64(now.Unix())
		changed = true
	}

	pods, err := Owned(ctx, c.st, j)
	if err != nil {
		return changed, err
	}

	succeeded := int32(lo.CountBy(pods, func(p *v1.Pod) bool { return p.Status.Phase == v1.PodSucceeded }))
	failed := int32(lo.CountBy(pods, func(p *v1.Pod) bool { return p.Status.Phase == v1.PodFailed }))
	active := int32(len(pods)) - succeeded - failed

	completions := j.Spec.Completions
	if completions == 0 {
		completions = 1
	}

	isComplete := conditionTrue(j.Status.Conditions, v1.JobComplete)
	isFailed := conditionTrue(j.Status.Conditions, v1.JobFailed)

	if !isComplete && !isFailed {
		if j.Spec.ActiveDeadlineSeconds > 0 && now.Sub(time.Unix(int64(j.Status.StartTime), 0)) >= time.Duration(j.Spec.ActiveDeadlineSeconds)*time.Second {
			j.Status.Conditions = j.Status.Conditions.Set(v1.Condition{Type: v1.JobFailed, Status: v1.ConditionTrue, Reason: "DeadlineExceeded"}, float64(now.Unix()))
			isFailed = true
			changed = true
		} else if succeeded >= completions {
			j.Status.Conditions = j.Status.Conditions.Set(v1.Condition{Type: v1.JobComplete, Status: v1.ConditionTrue}, float64(now.Unix()))
			j.Status.CompletionTime = float64(now.Unix())
			isComplete = true
			changed = true
		} else if failed > j.Spec.BackoffLimit {
			j.Status.Conditions = j.Status.Conditions.Set(v1.Condition{Type: v1.JobFailed, Status: v1.ConditionTrue, Reason: "BackoffLimitExceeded"}, float64(now.Unix()))
			isFailed = true
			changed = true
		} else {
			parallelism := j.Spec.Parallelism
			if parallelism == 0 {
				parallelism = 1
			}
			want := min32(parallelism, completions-succeeded)
			for active < want {
				if err := c.createPod(ctx, j); err != nil {
					return changed, err
				}
				active++
				changed = true
			}
		}
	}

	if j.Status.Active != active || j.Status.Succeeded != succeeded || j.Status.Failed != failed {
		j.Status.Active, j.Status.Succeeded, j.Status.Failed = active, succeeded, failed
		changed = true
	}

	if isComplete && j.Spec.TTLSecondsAfterFinished != nil {
		deadline := time.Unix(int64(j.Status.CompletionTime), 0).Add(time.Duration(*j.Spec.TTLSecondsAfterFinished) * time.Second)
		if !now.Before(deadline) {
			return c.deleteCascade(ctx, j, pods)
		}
	}

	if changed {
		if err := c.st.Update(ctx, j); err != nil {
			return false, err
		}
		logger.V(1).Info("job reconciled", "active", active, "succeeded", succeeded, "failed", failed)
	}
	return changed, nil
}

// deleteCascade removes a TTL-expired Job and every Pod it owns (spec
// §4.L: "delete the Job (cascades to child Pods)").
func (c *Controller) deleteCascade(ctx context.Context, j *v1.Job, pods []*v1.Pod) (bool, error) {
	for _, p := range pods {
		if err := c.st.Delete(ctx, v1.KindPod, j.ObjectMeta.Namespace, p.ObjectMeta.Name); err != nil {
			return true, err
		}
	}
	if err := c.st.Delete(ctx, v1.KindJob, j.ObjectMeta.Namespace, j.ObjectMeta.Name); err != nil {
		return true, err
	}
	log.FromContext(ctx).Info("ttl-expired job deleted", "namespace", j.ObjectMeta.Namespace, "job", j.ObjectMeta.Name)
	return true, nil
}

func (c *Controller) createPod(ctx context.Context, j *v1.Job) error {
	labels := map[string]string{}
	for k, v := range j.Spec.Template.Labels {
		labels[k] = v
	}
	labels[jobNameLabel] = j.ObjectMeta.Name

	spec := j.Spec.Template.Spec
	spec.RestartPolicy = v1.RestartPolicyNever

	pod := &v1.Pod{
		ObjectMeta: v1.ObjectMeta{
			Name:      names.Generate(j.ObjectMeta.Name),
			Namespace: j.ObjectMeta.Namespace,
			Labels:    labels,
			OwnerReferences: []v1.OwnerReference{
				{Kind: v1.KindJob, Name: j.ObjectMeta.Name, UID: j.ObjectMeta.UID, Controller: true, BlockOwnerDeletion: true},
			},
		},
		Spec: spec,
	}
	return c.st.Create(ctx, pod)
}

func conditionTrue(cs v1.Conditions, t string) bool {
	c, ok := cs.Get(t)
	return ok && c.Status == v1.ConditionTrue
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

// Run loops RunOnce at the configured interval until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	controllerutil.Forever(ctx, c.interval, "job", c.RunOnce)
}
