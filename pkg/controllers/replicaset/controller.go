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

// Package replicaset reconciles ReplicaSets to their desired replica
// count (spec §4.I).
package replicaset

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"
	"sigs.k8s.io/controller-runtime/pkg/log"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/controllerutil"
	"github.com/DarsheeeGamer/kos/pkg/kerrors"
	"github.com/DarsheeeGamer/kos/pkg/names"
	"github.com/DarsheeeGamer/kos/pkg/store"
)

const conditionReplicaFailure = "ReplicaFailure"

// Controller reconciles every ReplicaSet on a timer.
type Controller struct {
	st       *store.Store
	interval time.Duration
}

// New builds a Controller polling st every interval.
func New(st *store.Store, interval time.Duration) *Controller {
	return &Controller{st: st, interval: interval}
}

// RunOnce reconciles every ReplicaSet once, returning the number whose
// Pod set or status changed.
func (c *Controller) RunOnce(ctx context.Context) (int, error) {
	rsList, err := store.List[v1.ReplicaSet](ctx, c.st, v1.KindReplicaSet, "", nil)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, rs := range rsList {
		did, err := c.reconcile(ctx, rs)
		if err != nil {
			return changed, err
		}
		if did {
			changed++
		}
	}
	return changed, nil
}

// Matched returns every Pod belonging to rs: label-selector matches, or a
// controller ownerReference pointing at rs's uid (spec §4.I: "pods whose
// labels match selector (or whose ownerReferences contain this RS's
// uid)").
func Matched(ctx context.Context, st *store.Store, rs *v1.ReplicaSet) ([]*v1.Pod, error) {
	podList, err := store.List[v1.Pod](ctx, st, v1.KindPod, rs.ObjectMeta.Namespace, nil)
	if err != nil {
		return nil, err
	}
	var out []*v1.Pod
	for _, p := range podList {
		if p.ObjectMeta.MatchesSelector(rs.Spec.Selector) {
			out = append(out, p)
			continue
		}
		if owner, ok := p.ObjectMeta.ControllerRef(); ok && owner.Kind == v1.KindReplicaSet && owner.UID == rs.ObjectMeta.UID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *Controller) reconcile(ctx context.Context, rs *v1.ReplicaSet) (bool, error) {
	logger := log.FromContext(ctx).WithValues("namespace", rs.ObjectMeta.Namespace, "replicaset", rs.ObjectMeta.Name)

	matched, err := Matched(ctx, c.st, rs)
	if err != nil {
		return false, err
	}
	live := liveOnly(matched)

	changed := false
	switch {
	case int32(len(live)) < rs.Spec.Replicas:
		n := rs.Spec.Replicas - int32(len(live))
		for i := int32(0); i < n; i++ {
			if err := c.createPod(ctx, rs); err != nil {
				return changed, err
			}
			changed = true
		}
		logger.Info("scaled up replicaset", "created", n)

	case int32(len(live)) > rs.Spec.Replicas:
		excess := int32(len(live)) - rs.Spec.Replicas
		sort.Slice(live, func(i, j int) bool { return live[i].ObjectMeta.CreationTimestamp > live[j].ObjectMeta.CreationTimestamp })
		for i := int32(0); i < excess; i++ {
			if err := c.st.Delete(ctx, v1.KindPod, rs.ObjectMeta.Namespace, live[i].ObjectMeta.Name); err != nil {
				return changed, err
			}
			changed = true
		}
		logger.Info("scaled down replicaset", "deleted", excess)
	}

	if changed {
		if matched, err = Matched(ctx, c.st, rs); err != nil {
			return false, err
		}
	}
	if c.updateStatus(rs, matched) {
		changed = true
	}
	if changed {
		if err := c.st.Update(ctx, rs); err != nil {
			return false, err
		}
	}
	return changed, nil
}

// liveOnly filters out terminal Pods, since a Failed/Succeeded Pod no
// longer counts toward the observed replica count.
func liveOnly(pods []*v1.Pod) []*v1.Pod {
	return lo.Filter(pods, func(p *v1.Pod, _ int) bool { return !p.Status.Phase.Terminal() })
}

// reconcileKey reconciles the single ReplicaSet namespace/name names, for
// use as controllerutil.WatchQueue's per-key reconcile.
func (c *Controller) reconcileKey(ctx context.Context, namespace, name string) error {
	rs, err := store.Get[v1.ReplicaSet](ctx, c.st, v1.KindReplicaSet, namespace, name)
	if err != nil {
		if kerrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	_, err = c.reconcile(ctx, rs)
	return err
}

func (c *Controller) createPod(ctx context.Context, rs *v1.ReplicaSet) error {
	labels := map[string]string{}
	for k, v := range rs.Spec.Template.Labels {
		labels[k] = v
	}
	for k, v := range rs.Spec.Selector {
		labels[k] = v
	}
	pod := &v1.Pod{
		ObjectMeta: v1.ObjectMeta{
			Name:        names.Generate(rs.ObjectMeta.Name),
			Namespace:   rs.ObjectMeta.Namespace,
			Labels:      labels,
			Annotations: rs.Spec.Template.Annotations,
			OwnerReferences: []v1.OwnerReference{
				{Kind: v1.KindReplicaSet, Name: rs.ObjectMeta.Name, UID: rs.ObjectMeta.UID, Controller: true, BlockOwnerDeletion: true},
			},
		},
		Spec: rs.Spec.Template.Spec,
	}
	return c.st.Create(ctx, pod)
}

// updateStatus recomputes status counts and the ReplicaFailure condition,
// reporting whether anything changed (spec §4.I: "total, ready ..., available
// ...", "ReplicaFailure=True if any Pod in the matched set is in phase Failed").
func (c *Controller) updateStatus(rs *v1.ReplicaSet, matched []*v1.Pod) bool {
	var ready, available int32
	failed := false
	for _, p := range matched {
		if p.Status.AllReady() {
			ready++
		}
		if p.Status.Phase == v1.PodRunning {
			available++
		}
		if p.Status.Phase == v1.PodFailed {
			failed = true
		}
	}
	total := int32(len(matched))

	failureStatus := v1.ConditionFalse
	if failed {
		failureStatus = v1.ConditionTrue
	}
	nextConditions := rs.Status.Conditions.Set(v1.Condition{Type: conditionReplicaFailure, Status: failureStatus}, float64(time.Now().Unix()))

	unchanged := rs.Status.Replicas == total && rs.Status.ReadyReplicas == ready && rs.Status.AvailableReplicas == available
	if prev, ok := rs.Status.Conditions.Get(conditionReplicaFailure); ok {
		unchanged = unchanged && prev.Status == failureStatus
	} else {
		unchanged = unchanged && !failed
	}
	if unchanged {
		return false
	}

	rs.Status.Replicas = total
	rs.Status.ReadyReplicas = ready
	rs.Status.AvailableReplicas = available
	rs.Status.Conditions = nextConditions
	return true
}

// Run reacts to ReplicaSet changes through a rate-limited watch queue
// (spec §4.I), with a full RunOnce resync every interval as a backstop
// against a missed or coalesced watch event.
func (c *Controller) Run(ctx context.Context) {
	go controllerutil.WatchQueue(ctx, c.st, v1.KindReplicaSet, 2, c.reconcileKey)
	controllerutil.Forever(ctx, c.interval, "replicaset", c.RunOnce)
}
