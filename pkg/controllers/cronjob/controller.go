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

// Package cronjob fires Jobs on a cron schedule (spec §4.M), parsing the
// standard five-field expression (plus the @hourly/@daily-style shortcuts)
// with github.com/robfig/cron/v3.
package cronjob

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	"sigs.k8s.io/controller-runtime/pkg/log"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/controllerutil"
	"github.com/DarsheeeGamer/kos/pkg/store"
)

const cronJobNameLabel = "cronjob-name"

// parser accepts the standard five-field cron grammar plus the
// "@every"/"@daily"-style shortcuts (spec §4.M: "the shortcuts
// ... expand to the canonical form").
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Controller reconciles every CronJob on a timer.
type Controller struct {
	st       *store.Store
	interval time.Duration
	now      func() time.Time
}

// New builds a Controller polling st every interval.
func New(st *store.Store, interval time.Duration) *Controller {
	return &Controller{st: st, interval: interval, now: time.Now}
}

// RunOnce reconciles every CronJob once, returning the number of Jobs
// started.
func (c *Controller) RunOnce(ctx context.Context) (int, error) {
	cronJobs, err := store.List[v1.CronJob](ctx, c.st, v1.KindCronJob, "", nil)
	if err != nil {
		return 0, err
	}
	started := 0
	for _, cj := range cronJobs {
		did, err := c.reconcile(ctx, cj)
		if err != nil {
			return started, err
		}
		if did {
			started++
		}
	}
	return started, nil
}

// ownedJobs returns every Job this CronJob created.
func (c *Controller) ownedJobs(ctx context.Context, cj *v1.CronJob) ([]*v1.Job, error) {
	jobs, err := store.List[v1.Job](ctx, c.st, v1.KindJob, cj.ObjectMeta.Namespace, map[string]string{cronJobNameLabel: cj.ObjectMeta.Name})
	if err != nil {
		return nil, err
	}
	var out []*v1.Job
	for _, j := range jobs {
		if owner, ok := j.ObjectMeta.ControllerRef(); ok && owner.Kind == v1.KindCronJob && owner.UID == cj.ObjectMeta.UID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (c *Controller) reconcile(ctx context.Context, cj *v1.CronJob) (bool, error) {
	if cj.Spec.Suspend {
		return false, nil
	}
	logger := log.FromContext(ctx).WithValues("namespace", cj.ObjectMeta.Namespace, "cronjob", cj.ObjectMeta.Name)

	sched, err := parser.Parse(cj.Spec.Schedule)
	if err != nil {
		logger.Error(err, "invalid cron schedule")
		return false, nil
	}

	now := c.now()
	last := cj.ObjectMeta.CreationTime()
	if cj.Status.LastScheduleTime != 0 {
		last = time.Unix(int64(cj.Status.LastScheduleTime), 0)
	}

	// The controller ticks at most once per minute, so walking the
	// schedule forward from the last fire is bounded the same way a
	// literal minute-by-minute scan would be; sched.Next gives the exact
	// next matching minute without re-deriving cron field matching here.
	next := sched.Next(last)
	if next.After(now) {
		return false, nil
	}

	started := false
	if cj.Spec.StartingDeadlineSeconds == nil || now.Sub(next) <= time.Duration(*cj.Spec.StartingDeadlineSeconds)*time.Second {
		owned, err := c.ownedJobs(ctx, cj)
		if err != nil {
			return false, err
		}
		active := lo.Filter(owned, func(j *v1.Job, _ int) bool { return !jobFinished(j) })

		switch cj.Spec.ConcurrencyPolicy {
		case v1.ConcurrencyForbid:
			if len(active) > 0 {
				break
			}
			if err := c.startJob(ctx, cj, next); err != nil {
				return false, err
			}
			started = true
		case v1.ConcurrencyReplace:
			for _, j := range active {
				if err := c.st.Delete(ctx, v1.KindJob, cj.ObjectMeta.Namespace, j.ObjectMeta.Name); err != nil {
					return false, err
				}
			}
			if err := c.startJob(ctx, cj, next); err != nil {
				return false, err
			}
			started = true
		default: // Allow
			if err := c.startJob(ctx, cj, next); err != nil {
				return false, err
			}
			started = true
		}
	}

	cj.Status.LastScheduleTime = float64(next.Unix())
	if err := c.pruneHistory(ctx, cj); err != nil {
		return started, err
	}
	if err := c.st.Update(ctx, cj); err != nil {
		return false, err
	}
	if started {
		logger.Info("cronjob started job", "scheduledFor", next)
	}
	return started, nil
}

func jobFinished(j *v1.Job) bool {
	return conditionTrue(j.Status.Conditions, v1.JobComplete) || conditionTrue(j.Status.Conditions, v1.JobFailed)
}

func conditionTrue(cs v1.Conditions, t string) bool {
	c, ok := cs.Get(t)
	return ok && c.Status == v1.ConditionTrue
}

func (c *Controller) startJob(ctx context.Context, cj *v1.CronJob, scheduledFor time.Time) error {
	name := fmt.Sprintf("%s-%d", cj.ObjectMeta.Name, scheduledFor.Unix())
	labels := map[string]string{cronJobNameLabel: cj.ObjectMeta.Name}
	j := &v1.Job{
		ObjectMeta: v1.ObjectMeta{
			Name:      name,
			Namespace: cj.ObjectMeta.Namespace,
			Labels:    labels,
			OwnerReferences: []v1.OwnerReference{
				{Kind: v1.KindCronJob, Name: cj.ObjectMeta.Name, UID: cj.ObjectMeta.UID, Controller: true, BlockOwnerDeletion: true},
			},
		},
		Spec: cj.Spec.JobTemplate.Spec,
	}
	return c.st.Create(ctx, j)
}

// pruneHistory keeps at most successfulJobsHistoryLimit finished-
// successful and failedJobsHistoryLimit finished-failed owned Jobs,
// oldest completionTime first (spec §4.M).
func (c *Controller) pruneHistory(ctx context.Context, cj *v1.CronJob) error {
	owned, err := c.ownedJobs(ctx, cj)
	if err != nil {
		return err
	}
	var succeeded, failed []*v1.Job
	for _, j := range owned {
		switch {
		case conditionTrue(j.Status.Conditions, v1.JobComplete):
			succeeded = append(succeeded, j)
		case conditionTrue(j.Status.Conditions, v1.JobFailed):
			failed = append(failed, j)
		}
	}
	if err := pruneOldest(ctx, c.st, cj.ObjectMeta.Namespace, succeeded, cj.Spec.SuccessfulJobsHistoryLimit); err != nil {
		return err
	}
	return pruneOldest(ctx, c.st, cj.ObjectMeta.Namespace, failed, cj.Spec.FailedJobsHistoryLimit)
}

func pruneOldest(ctx context.Context, st *store.Store, namespace string, jobs []*v1.Job, limit int32) error {
	if int32(len(jobs)) <= limit {
		return nil
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Status.CompletionTime < jobs[j].Status.CompletionTime })
	excess := int32(len(jobs)) - limit
	for i := int32(0); i < excess; i++ {
		if err := st.Delete(ctx, v1.KindJob, namespace, jobs[i].ObjectMeta.Name); err != nil {
			return err
		}
	}
	return nil
}

// Run loops RunOnce at the configured interval until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	controllerutil.Forever(ctx, c.interval, "cronjob", c.RunOnce)
}
