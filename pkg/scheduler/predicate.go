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

// Package scheduler implements the filter/score/select/bind pipeline of
// spec §4.D: assigning every Pending, unbound Pod to exactly one Node.
package scheduler

import (
	"strconv"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/quantity"
)

// usage is the already-placed resource consumption on one Node, computed
// once per scheduling cycle from a store snapshot (spec §4.D: "runs
// single-threaded over a snapshot of the store per cycle to avoid
// double-accounting").
type usage struct {
	cpu  quantity.MilliCPU
	mem  quantity.Bytes
	pods int64
}

// podRequest is the resolved, defaulted resource request of a Pod (spec
// §4.D.1.e: "Requests default to zero if unspecified").
type podRequest struct {
	cpu quantity.MilliCPU
	mem quantity.Bytes
}

func sumPodRequest(pod *v1.Pod) podRequest {
	var req podRequest
	for _, c := range pod.Spec.Containers {
		if c.Resources.Requests.CPU != "" {
			if v, err := quantity.ParseCPU(c.Resources.Requests.CPU); err == nil {
				req.cpu += v
			}
		}
		if c.Resources.Requests.Memory != "" {
			if v, err := quantity.ParseMemory(c.Resources.Requests.Memory); err == nil {
				req.mem += v
			}
		}
	}
	return req
}

// predicate is a single filter step; all must pass for a Node to survive
// (spec §4.D.1).
type predicate func(node *v1.Node, pod *v1.Pod, used usage, req podRequest) bool

func predicates() []predicate {
	return []predicate{
		predicateReady,
		predicateSchedulable,
		predicateNodeSelector,
		predicateTaints,
		predicateCapacity,
	}
}

func predicateReady(node *v1.Node, _ *v1.Pod, _ usage, _ podRequest) bool {
	return node.Status.Ready()
}

func predicateSchedulable(node *v1.Node, _ *v1.Pod, _ usage, _ podRequest) bool {
	return !node.Spec.Unschedulable
}

func predicateNodeSelector(node *v1.Node, pod *v1.Pod, _ usage, _ podRequest) bool {
	for k, v := range pod.Spec.NodeSelector {
		if node.ObjectMeta.Labels[k] != v {
			return false
		}
	}
	return true
}

func predicateTaints(node *v1.Node, pod *v1.Pod, _ usage, _ podRequest) bool {
	untolerated := node.Spec.Taints.Untolerated(v1.TaintEffectNoSchedule, pod.Spec.Tolerations)
	return len(untolerated) == 0
}

func predicateCapacity(node *v1.Node, _ *v1.Pod, used usage, req podRequest) bool {
	allocCPU, err := quantity.ParseCPU(node.Status.Allocatable.CPU)
	if err != nil {
		return false
	}
	allocMem, err := quantity.ParseMemory(node.Status.Allocatable.Memory)
	if err != nil {
		return false
	}
	maxPods, err := strconv.ParseInt(node.Status.Allocatable.Pods, 10, 64)
	if err != nil {
		return false
	}

	if used.cpu+req.cpu > allocCPU {
		return false
	}
	if used.mem+req.mem > allocMem {
		return false
	}
	if used.pods+1 > maxPods {
		return false
	}
	return true
}

// filter returns the subset of nodes that pass every predicate for pod.
// usageByNode is keyed by Node address, matching how it's stored into
// pod.status.hostIP at Bind time (see snapshotUsage).
func filter(nodeList []*v1.Node, pod *v1.Pod, usageByNode map[string]usage, req podRequest) []*v1.Node {
	var out []*v1.Node
	for _, node := range nodeList {
		ok := true
		for _, p := range predicates() {
			if !p(node, pod, usageByNode[node.Status.Address()], req) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, node)
		}
	}
	return out
}
