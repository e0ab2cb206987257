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

// Package hpa scales a Deployment/StatefulSet/ReplicaSet's replica count
// from sampled per-Pod resource metrics (spec §4.N).
package hpa

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/samber/lo"
	"sigs.k8s.io/controller-runtime/pkg/log"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/controllerutil"
	"github.com/DarsheeeGamer/kos/pkg/kerrors"
	"github.com/DarsheeeGamer/kos/pkg/quantity"
	"github.com/DarsheeeGamer/kos/pkg/store"
)

// Controller reconciles every HorizontalPodAutoscaler on a timer.
type Controller struct {
	st       *store.Store
	interval time.Duration
	now      func() time.Time
}

// New builds a Controller polling st every interval.
func New(st *store.Store, interval time.Duration) *Controller {
	return &Controller{st: st, interval: interval, now: time.Now}
}

// RunOnce reconciles every HPA once, returning the number that scaled
// their target.
func (c *Controller) RunOnce(ctx context.Context) (int, error) {
	hpas, err := store.List[v1.HorizontalPodAutoscaler](ctx, c.st, v1.KindHorizontalPodAutoscaler, "", nil)
	if err != nil {
		return 0, err
	}
	scaled := 0
	for _, h := range hpas {
		did, err := c.reconcile(ctx, h)
		if err != nil {
			return scaled, err
		}
		if did {
			scaled++
		}
	}
	return scaled, nil
}

// target bundles the information needed to read/write a scalable
// workload's replica count regardless of its concrete kind.
type target struct {
	replicas int32
	selector map[string]string
	setScale func(ctx context.Context, replicas int32) error
}

func (c *Controller) resolveTarget(ctx context.Context, h *v1.HorizontalPodAutoscaler) (*target, error) {
	ns := h.ObjectMeta.Namespace
	name := h.Spec.ScaleTargetRef.Name
	switch h.Spec.ScaleTargetRef.Kind {
	case v1.KindDeployment:
		d, err := store.Get[v1.Deployment](ctx, c.st, v1.KindDeployment, ns, name)
		if err != nil {
			return nil, err
		}
		return &target{
			replicas: d.Spec.Replicas,
			selector: d.Spec.Selector,
			setScale: func(ctx context.Context, r int32) error {
				d.Spec.Replicas = r
				return c.st.Update(ctx, d)
			},
		}, nil
	case v1.KindStatefulSet:
		s, err := store.Get[v1.StatefulSet](ctx, c.st, v1.KindStatefulSet, ns, name)
		if err != nil {
			return nil, err
		}
		return &target{
			replicas: s.Spec.Replicas,
			selector: s.Spec.Selector,
			setScale: func(ctx context.Context, r int32) error {
				s.Spec.Replicas = r
				return c.st.Update(ctx, s)
			},
		}, nil
	case v1.KindReplicaSet:
		rs, err := store.Get[v1.ReplicaSet](ctx, c.st, v1.KindReplicaSet, ns, name)
		if err != nil {
			return nil, err
		}
		return &target{
			replicas: rs.Spec.Replicas,
			selector: rs.Spec.Selector,
			setScale: func(ctx context.Context, r int32) error {
				rs.Spec.Replicas = r
				return c.st.Update(ctx, rs)
			},
		}, nil
	default:
		return nil, kerrors.Invalid("scaleTargetRef.kind", fmt.Sprintf("unsupported scaleTargetRef.kind %q", h.Spec.ScaleTargetRef.Kind))
	}
}

func (c *Controller) reconcile(ctx context.Context, h *v1.HorizontalPodAutoscaler) (bool, error) {
	logger := log.FromContext(ctx).WithValues("namespace", h.ObjectMeta.Namespace, "hpa", h.ObjectMeta.Name)

	tgt, err := c.resolveTarget(ctx, h)
	if err != nil {
		if kerrors.IsNotFound(err) {
			logger.V(1).Info("scale target not found, skipping")
			return false, nil
		}
		return false, err
	}

	pods, err := store.List[v1.Pod](ctx, c.st, v1.KindPod, h.ObjectMeta.Namespace, nil)
	if err != nil {
		return false, err
	}
	matched := lo.Filter(pods, func(p *v1.Pod, _ int) bool {
		return p.ObjectMeta.MatchesSelector(tgt.selector) && p.Status.Phase == v1.PodRunning
	})

	current := tgt.replicas
	if current == 0 {
		current = int32(len(matched))
	}

	currentUtil, err := averageUtilization(matched, h.Spec.Metric)
	if err != nil {
		return false, err
	}

	desired := current
	if len(matched) > 0 && h.Spec.TargetUtilizationPercentage > 0 {
		ratio := float64(currentUtil) / float64(h.Spec.TargetUtilizationPercentage)
		desired = int32(math.Ceil(float64(current) * ratio))
	}
	if h.Spec.MinReplicas > 0 && desired < h.Spec.MinReplicas {
		desired = h.Spec.MinReplicas
	}
	if h.Spec.MaxReplicas > 0 && desired > h.Spec.MaxReplicas {
		desired = h.Spec.MaxReplicas
	}

	now := c.now()
	desired = c.stabilize(h, current, desired, now)

	changed := false
	if h.Status.CurrentReplicas != current || h.Status.DesiredReplicas != desired || h.Status.CurrentUtilizationPercentage != currentUtil {
		h.Status.CurrentReplicas = current
		h.Status.DesiredReplicas = desired
		h.Status.CurrentUtilizationPercentage = currentUtil
		changed = true
	}

	scaled := false
	if desired != current {
		if err := tgt.setScale(ctx, desired); err != nil {
			return false, err
		}
		h.Status.LastScaleTime = float64(now.Unix())
		if desired > current {
			h.Status.LastScaleUpTime = float64(now.Unix())
		} else {
			h.Status.LastScaleDownTime = float64(now.Unix())
		}
		changed = true
		scaled = true
		logger.Info("hpa scaled target", "from", current, "to", desired, "utilization", currentUtil)
	}

	if changed {
		if err := c.st.Update(ctx, h); err != nil {
			return false, err
		}
	}
	return scaled, nil
}

// stabilize suppresses a scale-up or scale-down if one of the same
// direction was recorded within that direction's stabilization window
// (spec §4.N step 5).
func (c *Controller) stabilize(h *v1.HorizontalPodAutoscaler, current, desired int32, now time.Time) int32 {
	if desired > current && h.Spec.ScaleUpStabilizationSeconds > 0 && h.Status.LastScaleUpTime > 0 {
		since := now.Sub(time.Unix(int64(h.Status.LastScaleUpTime), 0))
		if since < time.Duration(h.Spec.ScaleUpStabilizationSeconds)*time.Second {
			return current
		}
	}
	if desired < current && h.Spec.ScaleDownStabilizationSeconds > 0 && h.Status.LastScaleDownTime > 0 {
		since := now.Sub(time.Unix(int64(h.Status.LastScaleDownTime), 0))
		if since < time.Duration(h.Spec.ScaleDownStabilizationSeconds)*time.Second {
			return current
		}
	}
	return desired
}

// averageUtilization samples each Pod's observed usage for the metric
// and returns the average utilization percentage against each Pod's own
// requested amount (spec §4.N step 2). Pods with no reported usage, or
// no request to normalize against, are skipped.
func averageUtilization(pods []*v1.Pod, metric v1.MetricTargetType) (int32, error) {
	var total, samples int64
	for _, p := range pods {
		switch metric {
		case v1.MetricMemoryUtilization:
			req := sumMemoryRequests(p)
			if req == 0 {
				continue
			}
			used, err := quantity.ParseMemory(p.Status.ResourceUsage.Memory)
			if err != nil {
				continue
			}
			total += int64(used) * 100 / int64(req)
			samples++
		default: // cpu
			req := sumCPURequests(p)
			if req == 0 {
				continue
			}
			used, err := quantity.ParseCPU(p.Status.ResourceUsage.CPU)
			if err != nil {
				continue
			}
			total += int64(used) * 100 / int64(req)
			samples++
		}
	}
	if samples == 0 {
		return 0, nil
	}
	return int32(total / samples), nil
}

func sumCPURequests(p *v1.Pod) quantity.MilliCPU {
	var sum quantity.MilliCPU
	for _, ctr := range p.Spec.Containers {
		if ctr.Resources.Requests.CPU == "" {
			continue
		}
		if m, err := quantity.ParseCPU(ctr.Resources.Requests.CPU); err == nil {
			sum = quantity.AddCPU(sum, m)
		}
	}
	return sum
}

func sumMemoryRequests(p *v1.Pod) quantity.Bytes {
	var sum quantity.Bytes
	for _, ctr := range p.Spec.Containers {
		if ctr.Resources.Requests.Memory == "" {
			continue
		}
		if b, err := quantity.ParseMemory(ctr.Resources.Requests.Memory); err == nil {
			sum = quantity.AddMemory(sum, b)
		}
	}
	return sum
}

// Run loops RunOnce at the configured interval until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	controllerutil.Forever(ctx, c.interval, "hpa", c.RunOnce)
}
