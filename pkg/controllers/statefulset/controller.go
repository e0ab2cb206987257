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

// Package statefulset gives each managed Pod a stable ordinal identity
// and per-ordinal storage (spec §4.K).
package statefulset

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/controllerutil"
	"github.com/DarsheeeGamer/kos/pkg/hashutil"
	"github.com/DarsheeeGamer/kos/pkg/store"
)

// Controller reconciles every StatefulSet on a timer.
type Controller struct {
	st       *store.Store
	interval time.Duration
}

// New builds a Controller polling st every interval.
func New(st *store.Store, interval time.Duration) *Controller {
	return &Controller{st: st, interval: interval}
}

// RunOnce reconciles every StatefulSet once, returning the number changed.
func (c *Controller) RunOnce(ctx context.Context) (int, error) {
	stsList, err := store.List[v1.StatefulSet](ctx, c.st, v1.KindStatefulSet, "", nil)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, sts := range stsList {
		did, err := c.reconcile(ctx, sts)
		if err != nil {
			return changed, err
		}
		if did {
			changed++
		}
	}
	return changed, nil
}

func podName(sts *v1.StatefulSet, ordinal int32) string {
	return fmt.Sprintf("%s-%d", sts.ObjectMeta.Name, ordinal)
}

// byOrdinal indexes every Pod owned by sts by its ordinal suffix.
func (c *Controller) byOrdinal(ctx context.Context, sts *v1.StatefulSet) (map[int32]*v1.Pod, error) {
	podList, err := store.List[v1.Pod](ctx, c.st, v1.KindPod, sts.ObjectMeta.Namespace, nil)
	if err != nil {
		return nil, err
	}
	prefix := sts.ObjectMeta.Name + "-"
	out := map[int32]*v1.Pod{}
	for _, p := range podList {
		owner, ok := p.ObjectMeta.ControllerRef()
		if !ok || owner.Kind != v1.KindStatefulSet || owner.UID != sts.ObjectMeta.UID {
			continue
		}
		if !strings.HasPrefix(p.ObjectMeta.Name, prefix) {
			continue
		}
		ord, err := strconv.ParseInt(strings.TrimPrefix(p.ObjectMeta.Name, prefix), 10, 32)
		if err != nil {
			continue
		}
		out[int32(ord)] = p
	}
	return out, nil
}

func (c *Controller) reconcile(ctx context.Context, sts *v1.StatefulSet) (bool, error) {
	logger := log.FromContext(ctx).WithValues("namespace", sts.ObjectMeta.Namespace, "statefulset", sts.ObjectMeta.Name)
	byOrd, err := c.byOrdinal(ctx, sts)
	if err != nil {
		return false, err
	}

	parallel := sts.Spec.PodManagementPolicy == v1.PodManagementParallel
	changed := false

	for ord := int32(0); ord < sts.Spec.Replicas; ord++ {
		existing, exists := byOrd[ord]
		if exists {
			if !parallel && !existing.Status.AllReady() {
				break // OrderedReady: this ordinal isn't Ready yet, don't create the next
			}
			continue
		}
		if err := c.createOrdinal(ctx, sts, ord); err != nil {
			return changed, err
		}
		changed = true
		logger.Info("created statefulset pod", "ordinal", ord)
		if !parallel {
			break // OrderedReady: wait for this one to become Ready before the next tick
		}
	}

	if sts.Spec.UpdateStrategy.Type != v1.StatefulSetOnDelete {
		did, err := c.rollOutdated(ctx, sts, byOrd)
		if err != nil {
			return changed, err
		}
		changed = changed || did
	}

	var excess []int32
	for ord := range byOrd {
		if ord >= sts.Spec.Replicas {
			excess = append(excess, ord)
		}
	}
	sort.Slice(excess, func(i, j int) bool { return excess[i] > excess[j] })
	for _, ord := range excess {
		if err := c.st.Delete(ctx, v1.KindPod, sts.ObjectMeta.Namespace, podName(sts, ord)); err != nil {
			return changed, err
		}
		changed = true
		logger.Info("deleted excess statefulset pod", "ordinal", ord)
		if !parallel {
			break
		}
	}

	if c.updateStatus(sts, byOrd) {
		changed = true
	}
	if changed {
		if err := c.st.Update(ctx, sts); err != nil {
			return false, err
		}
	}
	return changed, nil
}

// ensureVolumeClaims creates the per-ordinal PVCs a Pod's volumeMounts
// reference, named "<template>-<sts>-<ordinal>" (spec §4.K.4).
func (c *Controller) ensureVolumeClaims(ctx context.Context, sts *v1.StatefulSet, ordinal int32, podUID string) ([]v1.VolumeMount, error) {
	mounts := make([]v1.VolumeMount, 0, len(sts.Spec.VolumeClaimTemplates))
	for _, vct := range sts.Spec.VolumeClaimTemplates {
		pvcName := fmt.Sprintf("%s-%s-%d", vct.Name, sts.ObjectMeta.Name, ordinal)
		_, err := store.Get[v1.PersistentVolumeClaim](ctx, c.st, v1.KindPersistentVolumeClaim, sts.ObjectMeta.Namespace, pvcName)
		if err != nil {
			pvc := &v1.PersistentVolumeClaim{
				ObjectMeta: v1.ObjectMeta{
					Name: pvcName, Namespace: sts.ObjectMeta.Namespace,
					OwnerReferences: []v1.OwnerReference{
						{Kind: v1.KindPod, Name: podName(sts, ordinal), UID: podUID, Controller: true},
					},
				},
				Spec:   vct.Spec,
				Status: v1.PersistentVolumeClaimStatus{Phase: v1.ClaimPending},
			}
			if err := c.st.Create(ctx, pvc); err != nil {
				return nil, err
			}
		}
		mounts = append(mounts, v1.VolumeMount{Name: vct.Name, MountPath: vct.MountPath})
	}
	return mounts, nil
}

const templateHashLabel = "statefulset-template-hash"

// rollOutdated deletes the highest-ordinal Pod at or above
// spec.updateStrategy.partition whose template hash is stale, one at a
// time (spec §4.K: "only ordinals ≥ P are re-created on template change,
// highest-ordinal first, one at a time under OrderedReady"). The next
// tick's createOrdinal pass recreates it with the current template.
func (c *Controller) rollOutdated(ctx context.Context, sts *v1.StatefulSet, byOrd map[int32]*v1.Pod) (bool, error) {
	hash := hashutil.PodTemplate(sts.Spec.Template)
	partition := sts.Spec.UpdateStrategy.Partition

	var stale []int32
	for ord, p := range byOrd {
		if ord < partition || ord >= sts.Spec.Replicas {
			continue
		}
		if p.ObjectMeta.Labels[templateHashLabel] != hash {
			stale = append(stale, ord)
		}
	}
	if len(stale) == 0 {
		return false, nil
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i] > stale[j] })
	target := stale[0]
	if err := c.st.Delete(ctx, v1.KindPod, sts.ObjectMeta.Namespace, podName(sts, target)); err != nil {
		return false, err
	}
	log.FromContext(ctx).WithValues("namespace", sts.ObjectMeta.Namespace, "statefulset", sts.ObjectMeta.Name).
		Info("rolling statefulset pod to current template", "ordinal", target)
	return true, nil
}

func (c *Controller) createOrdinal(ctx context.Context, sts *v1.StatefulSet, ordinal int32) error {
	labels := map[string]string{}
	for k, v := range sts.Spec.Template.Labels {
		labels[k] = v
	}
	for k, v := range sts.Spec.Selector {
		labels[k] = v
	}
	labels[templateHashLabel] = hashutil.PodTemplate(sts.Spec.Template)

	spec := sts.Spec.Template.Spec
	spec.Hostname = podName(sts, ordinal)
	spec.Subdomain = sts.Spec.ServiceName

	pod := &v1.Pod{
		ObjectMeta: v1.ObjectMeta{
			Name:      podName(sts, ordinal),
			Namespace: sts.ObjectMeta.Namespace,
			Labels:    labels,
			OwnerReferences: []v1.OwnerReference{
				{Kind: v1.KindStatefulSet, Name: sts.ObjectMeta.Name, UID: sts.ObjectMeta.UID, Controller: true, BlockOwnerDeletion: true},
			},
		},
		Spec: spec,
	}
	if err := c.st.Create(ctx, pod); err != nil {
		return err
	}

	mounts, err := c.ensureVolumeClaims(ctx, sts, ordinal, pod.ObjectMeta.UID)
	if err != nil {
		return err
	}
	if len(mounts) == 0 {
		return nil
	}
	for i := range pod.Spec.Containers {
		pod.Spec.Containers[i].VolumeMounts = append(pod.Spec.Containers[i].VolumeMounts, mounts...)
	}
	return c.st.Update(ctx, pod)
}

func (c *Controller) updateStatus(sts *v1.StatefulSet, byOrd map[int32]*v1.Pod) bool {
	var ready, current int32
	for ord, p := range byOrd {
		if ord >= sts.Spec.Replicas {
			continue
		}
		if p.Status.AllReady() {
			ready++
		}
		current++
	}
	total := int32(len(byOrd))

	unchanged := sts.Status.Replicas == total && sts.Status.ReadyReplicas == ready && sts.Status.CurrentReplicas == current
	if unchanged {
		return false
	}
	sts.Status.Replicas = total
	sts.Status.ReadyReplicas = ready
	sts.Status.CurrentReplicas = current
	return true
}

// Run loops RunOnce at the configured interval until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	controllerutil.Forever(ctx, c.interval, "statefulset", c.RunOnce)
}
