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

package scheduler

import (
	"context"
	"sort"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/controllerutil"
	"github.com/DarsheeeGamer/kos/pkg/store"
)

// Scheduler binds Pending, unbound Pods to Nodes each cycle (spec §4.D).
type Scheduler struct {
	st       *store.Store
	policy   Policy
	interval time.Duration
}

// New builds a Scheduler using policy, retrying unschedulable Pods every
// interval (spec §4.D: "retries every interval (default 10s)").
func New(st *store.Store, policy Policy, interval time.Duration) *Scheduler {
	if policy == "" {
		policy = PolicySpread
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Scheduler{st: st, policy: policy, interval: interval}
}

// RunOnce performs one scheduling pass over a snapshot of the store,
// returning how many Pods were bound.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	logger := log.FromContext(ctx)

	nodeList, err := store.List[v1.Node](ctx, s.st, v1.KindNode, "", nil)
	if err != nil {
		return 0, err
	}
	podList, err := store.List[v1.Pod](ctx, s.st, v1.KindPod, "", nil)
	if err != nil {
		return 0, err
	}

	usageByNode := snapshotUsage(podList)

	pending := pendingUnbound(podList)
	sort.Slice(pending, func(i, j int) bool { return pending[i].ObjectMeta.Name < pending[j].ObjectMeta.Name })

	bound := 0
	for _, pod := range pending {
		req := sumPodRequest(pod)
		candidates := filter(nodeList, pod, usageByNode, req)
		if len(candidates) == 0 {
			if err := s.markFailedScheduling(ctx, pod); err != nil {
				logger.Error(err, "failed to record FailedScheduling", "pod", pod.ObjectMeta.Name)
			}
			continue
		}

		winner := selectNode(candidates, pod, usageByNode, req, s.policy)
		if err := s.bind(ctx, pod, winner); err != nil {
			logger.Error(err, "bind failed", "pod", pod.ObjectMeta.Name, "node", winner.ObjectMeta.Name)
			continue
		}

		u := usageByNode[winner.Status.Address()]
		u.cpu += req.cpu
		u.mem += req.mem
		u.pods++
		usageByNode[winner.Status.Address()] = u
		bound++
	}
	return bound, nil
}

// Run loops RunOnce at s.interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	controllerutil.Forever(ctx, s.interval, "scheduler", s.RunOnce)
}

func pendingUnbound(podList []*v1.Pod) []*v1.Pod {
	var out []*v1.Pod
	for _, p := range podList {
		if p.Status.Phase == v1.PodPending && p.Status.HostIP == "" {
			out = append(out, p)
		}
	}
	return out
}

// snapshotUsage sums already-placed Pods' requests per Node, taken once
// at the start of the cycle (spec §4.D: "single-threaded over a snapshot
// ... to avoid double-accounting"). Keyed by Node address since that's
// exactly what Bind writes into pod.status.hostIP.
func snapshotUsage(podList []*v1.Pod) map[string]usage {
	byNode := map[string]usage{}
	for _, p := range podList {
		if p.Status.HostIP == "" || p.Status.Phase.Terminal() {
			continue
		}
		u := byNode[p.Status.HostIP]
		req := sumPodRequest(p)
		u.cpu += req.cpu
		u.mem += req.mem
		u.pods++
		byNode[p.Status.HostIP] = u
	}
	return byNode
}

// bind writes pod.status.hostIP (spec §4.D.4). The scheduler never
// advances phase itself; that happens once the external container
// runtime reports the pod started.
func (s *Scheduler) bind(ctx context.Context, pod *v1.Pod, node *v1.Node) error {
	pod.Status.HostIP = node.Status.Address()
	pod.Status.Reason = ""
	return s.st.Update(ctx, pod)
}

func (s *Scheduler) markFailedScheduling(ctx context.Context, pod *v1.Pod) error {
	if pod.Status.Reason == "FailedScheduling" {
		return nil
	}
	pod.Status.Reason = "FailedScheduling"
	return s.st.Update(ctx, pod)
}
