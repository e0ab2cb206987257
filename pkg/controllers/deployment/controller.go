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

// Package deployment manages the ReplicaSets backing a Deployment,
// switching revisions on template change and driving Recreate/
// RollingUpdate rollout (spec §4.J).
package deployment

import (
	"context"
	"sort"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/controllerutil"
	"github.com/DarsheeeGamer/kos/pkg/hashutil"
	"github.com/DarsheeeGamer/kos/pkg/kerrors"
	"github.com/DarsheeeGamer/kos/pkg/names"
	"github.com/DarsheeeGamer/kos/pkg/store"
)

const podTemplateHashLabel = "pod-template-hash"

// Controller reconciles every Deployment on a timer.
type Controller struct {
	st       *store.Store
	interval time.Duration
}

// New builds a Controller polling st every interval.
func New(st *store.Store, interval time.Duration) *Controller {
	return &Controller{st: st, interval: interval}
}

// RunOnce reconciles every Deployment once, returning the number changed.
func (c *Controller) RunOnce(ctx context.Context) (int, error) {
	deps, err := store.List[v1.Deployment](ctx, c.st, v1.KindDeployment, "", nil)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, d := range deps {
		did, err := c.reconcile(ctx, d)
		if err != nil {
			return changed, err
		}
		if did {
			changed++
		}
	}
	return changed, nil
}

// owned returns every ReplicaSet owned by d, newest-hash-first is not
// assumed; callers sort as needed.
func (c *Controller) owned(ctx context.Context, d *v1.Deployment) ([]*v1.ReplicaSet, error) {
	rsList, err := store.List[v1.ReplicaSet](ctx, c.st, v1.KindReplicaSet, d.ObjectMeta.Namespace, nil)
	if err != nil {
		return nil, err
	}
	var out []*v1.ReplicaSet
	for _, rs := range rsList {
		if owner, ok := rs.ObjectMeta.ControllerRef(); ok && owner.Kind == v1.KindDeployment && owner.UID == d.ObjectMeta.UID {
			out = append(out, rs)
		}
	}
	return out, nil
}

func (c *Controller) reconcile(ctx context.Context, d *v1.Deployment) (bool, error) {
	logger := log.FromContext(ctx).WithValues("namespace", d.ObjectMeta.Namespace, "deployment", d.ObjectMeta.Name)

	owned, err := c.owned(ctx, d)
	if err != nil {
		return false, err
	}

	hash := hashutil.PodTemplate(d.Spec.Template)
	current, changed, err := c.currentRS(ctx, d, owned, hash)
	if err != nil {
		return false, err
	}

	old := make([]*v1.ReplicaSet, 0, len(owned))
	for _, rs := range owned {
		if rs.ObjectMeta.Name != current.ObjectMeta.Name {
			old = append(old, rs)
		}
	}

	if !d.Spec.Paused {
		var err error
		var scaled bool
		if d.Spec.Strategy.Type == v1.DeploymentRecreate {
			scaled, err = c.stepRecreate(ctx, d, current, old)
		} else {
			scaled, err = c.stepRollingUpdate(ctx, d, current, old)
		}
		if err != nil {
			return false, err
		}
		changed = changed || scaled
	}

	if err := c.pruneOld(ctx, d, old, &changed); err != nil {
		return changed, err
	}

	if c.updateStatus(ctx, d, current, old) {
		changed = true
	}
	if changed {
		if err := c.st.Update(ctx, d); err != nil {
			return false, err
		}
		logger.V(1).Info("deployment reconciled", "currentRS", current.ObjectMeta.Name)
	}
	return changed, nil
}

// currentRS finds the RS matching hash among owned, creating one with 0
// replicas if missing (spec §4.J: "find current RS ... create if missing,
// with 0 replicas").
func (c *Controller) currentRS(ctx context.Context, d *v1.Deployment, owned []*v1.ReplicaSet, hash string) (*v1.ReplicaSet, bool, error) {
	for _, rs := range owned {
		if rs.ObjectMeta.Labels[podTemplateHashLabel] == hash {
			return rs, false, nil
		}
	}

	labels := map[string]string{}
	for k, v := range d.Spec.Selector {
		labels[k] = v
	}
	labels[podTemplateHashLabel] = hash

	tmplLabels := map[string]string{}
	for k, v := range d.Spec.Template.Labels {
		tmplLabels[k] = v
	}
	tmplLabels[podTemplateHashLabel] = hash

	rs := &v1.ReplicaSet{
		ObjectMeta: v1.ObjectMeta{
			Name:      names.Generate(d.ObjectMeta.Name),
			Namespace: d.ObjectMeta.Namespace,
			Labels:    labels,
			OwnerReferences: []v1.OwnerReference{
				{Kind: v1.KindDeployment, Name: d.ObjectMeta.Name, UID: d.ObjectMeta.UID, Controller: true, BlockOwnerDeletion: true},
			},
		},
		Spec: v1.ReplicaSetSpec{
			Replicas: 0,
			Selector: labels,
			Template: v1.PodTemplateSpec{Labels: tmplLabels, Annotations: d.Spec.Template.Annotations, Spec: d.Spec.Template.Spec},
		},
	}
	if err := c.st.Create(ctx, rs); err != nil {
		return nil, false, err
	}
	return rs, true, nil
}

// stepRecreate implements spec §4.J's Recreate strategy: drain every
// other RS to 0 first, then scale current up once they report 0 observed
// replicas.
func (c *Controller) stepRecreate(ctx context.Context, d *v1.Deployment, current *v1.ReplicaSet, old []*v1.ReplicaSet) (bool, error) {
	changed := false
	for _, rs := range old {
		if rs.Spec.Replicas != 0 {
			rs.Spec.Replicas = 0
			if err := c.st.Update(ctx, rs); err != nil {
				return changed, err
			}
			changed = true
		}
	}
	for _, rs := range old {
		if rs.Status.Replicas != 0 {
			return changed, nil // wait for old RSes to drain before scaling up
		}
	}
	if current.Spec.Replicas != d.Spec.Replicas {
		current.Spec.Replicas = d.Spec.Replicas
		if err := c.st.Update(ctx, current); err != nil {
			return changed, err
		}
		changed = true
	}
	return changed, nil
}

// stepRollingUpdate implements spec §4.J's RollingUpdate budget math:
// each tick, grow current by the largest increment preserving the surge
// budget, then shrink old RSes by the largest decrement preserving the
// availability budget.
func (c *Controller) stepRollingUpdate(ctx context.Context, d *v1.Deployment, current *v1.ReplicaSet, old []*v1.ReplicaSet) (bool, error) {
	maxSurge := d.Spec.Strategy.RollingUpdate.MaxSurge
	maxUnavailable := d.Spec.Strategy.RollingUpdate.MaxUnavailable
	if maxSurge == 0 && maxUnavailable == 0 {
		maxSurge, maxUnavailable = 1, 1
	}

	changed := false

	totalSpec := current.Spec.Replicas
	for _, rs := range old {
		totalSpec += rs.Spec.Replicas
	}
	totalAvailable := current.Status.AvailableReplicas
	for _, rs := range old {
		totalAvailable += rs.Status.AvailableReplicas
	}

	surgeBudget := d.Spec.Replicas + maxSurge - totalSpec
	if surgeBudget > 0 && current.Spec.Replicas < d.Spec.Replicas {
		room := d.Spec.Replicas - current.Spec.Replicas
		inc := min32(surgeBudget, room)
		if inc > 0 {
			current.Spec.Replicas += inc
			if err := c.st.Update(ctx, current); err != nil {
				return changed, err
			}
			changed = true
		}
	}

	availabilityBudget := totalAvailable - (d.Spec.Replicas - maxUnavailable)
	for _, rs := range old {
		if availabilityBudget <= 0 || rs.Spec.Replicas == 0 {
			continue
		}
		dec := min32(availabilityBudget, rs.Spec.Replicas)
		if dec <= 0 {
			continue
		}
		rs.Spec.Replicas -= dec
		if err := c.st.Update(ctx, rs); err != nil {
			return changed, err
		}
		availabilityBudget -= dec
		changed = true
	}

	return changed, nil
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

// pruneOld deletes exhausted old RSes beyond spec.revisionHistoryLimit,
// oldest first (spec §4.J: "older RSes are kept up to
// spec.revisionHistoryLimit").
func (c *Controller) pruneOld(ctx context.Context, d *v1.Deployment, old []*v1.ReplicaSet, changed *bool) error {
	limit := d.Spec.RevisionHistoryLimit
	var retired []*v1.ReplicaSet
	for _, rs := range old {
		if rs.Spec.Replicas == 0 && rs.Status.Replicas == 0 {
			retired = append(retired, rs)
		}
	}
	if int32(len(retired)) <= limit {
		return nil
	}
	sort.Slice(retired, func(i, j int) bool { return retired[i].ObjectMeta.CreationTimestamp < retired[j].ObjectMeta.CreationTimestamp })
	excess := int32(len(retired)) - limit
	for i := int32(0); i < excess; i++ {
		if err := c.st.Delete(ctx, v1.KindReplicaSet, d.ObjectMeta.Namespace, retired[i].ObjectMeta.Name); err != nil {
			return err
		}
		*changed = true
	}
	return nil
}

// updateStatus recomputes status counts and the Progressing/Available/
// ReplicaFailure conditions (spec §4.J).
func (c *Controller) updateStatus(ctx context.Context, d *v1.Deployment, current *v1.ReplicaSet, old []*v1.ReplicaSet) bool {
	var replicas, updated, available int32
	failed := false
	replicas += current.Status.Replicas
	updated += current.Status.Replicas
	available += current.Status.AvailableReplicas
	if cond, ok := current.Status.Conditions.Get("ReplicaFailure"); ok && cond.Status == v1.ConditionTrue {
		failed = true
	}
	for _, rs := range old {
		replicas += rs.Status.Replicas
		available += rs.Status.AvailableReplicas
		if cond, ok := rs.Status.Conditions.Get("ReplicaFailure"); ok && cond.Status == v1.ConditionTrue {
			failed = true
		}
	}

	progressing := current.Spec.Replicas != current.Status.Replicas || current.Status.AvailableReplicas < current.Spec.Replicas
	availableCond := available >= d.Spec.Replicas

	now := float64(time.Now().Unix())
	prevConds := d.Status.Conditions
	nextConds := prevConds
	nextConds = nextConds.Set(v1.Condition{Type: v1.ConditionProgressing, Status: boolStatus(progressing)}, now)
	nextConds = nextConds.Set(v1.Condition{Type: v1.ConditionAvailable, Status: boolStatus(availableCond)}, now)
	nextConds = nextConds.Set(v1.Condition{Type: v1.ConditionReplicaFailure, Status: boolStatus(failed)}, now)

	unchanged := d.Status.Replicas == replicas && d.Status.UpdatedReplicas == updated && d.Status.AvailableReplicas == available && conditionsEqual(prevConds, nextConds)
	if unchanged {
		return false
	}
	d.Status.Replicas = replicas
	d.Status.UpdatedReplicas = updated
	d.Status.AvailableReplicas = available
	d.Status.Conditions = nextConds
	return true
}

func boolStatus(b bool) v1.ConditionStatus {
	if b {
		return v1.ConditionTrue
	}
	return v1.ConditionFalse
}

func conditionsEqual(a, b v1.Conditions) bool {
	if len(a) != len(b) {
		return false
	}
	for _, c := range b {
		prev, ok := a.Get(c.Type)
		if !ok || prev.Status != c.Status {
			return false
		}
	}
	return true
}

// reconcileKey reconciles the single Deployment namespace/name names, for
// use as controllerutil.WatchQueue's per-key reconcile.
func (c *Controller) reconcileKey(ctx context.Context, namespace, name string) error {
	d, err := store.Get[v1.Deployment](ctx, c.st, v1.KindDeployment, namespace, name)
	if err != nil {
		if kerrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	_, err = c.reconcile(ctx, d)
	return err
}

// Run reacts to Deployment changes through a rate-limited watch queue
// (spec §4.J), with a full RunOnce resync every interval as a backstop
// against a missed or coalesced watch event.
func (c *Controller) Run(ctx context.Context) {
	go controllerutil.WatchQueue(ctx, c.st, v1.KindDeployment, 2, c.reconcileKey)
	controllerutil.Forever(ctx, c.interval, "deployment", c.RunOnce)
}
