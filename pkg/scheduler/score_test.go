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
	"testing"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
)

func node(name, address string, ready bool) *v1.Node {
	status := v1.ConditionFalse
	if ready {
		status = v1.ConditionTrue
	}
	return &v1.Node{
		ObjectMeta: v1.ObjectMeta{Name: name},
		Status: v1.NodeStatus{
			Allocatable: v1.NodeResourceList{CPU: "4", Memory: "8Gi", Pods: "110"},
			Addresses:   []v1.NodeAddress{{Type: "InternalIP", Address: address}},
			Conditions:  []v1.NodeCondition{{Type: v1.NodeReady, Status: status}},
		},
	}
}

func pod(name string) *v1.Pod {
	return &v1.Pod{
		ObjectMeta: v1.ObjectMeta{Name: name},
		Status:     v1.PodStatus{Phase: v1.PodPending},
		Spec: v1.PodSpec{Containers: []v1.Container{{
			Resources: v1.ResourceRequirements{Requests: v1.ResourceList{CPU: "500m", Memory: "256Mi"}},
		}}},
	}
}

func TestFilterExcludesNotReady(t *testing.T) {
	nodes := []*v1.Node{node("a", "10.0.0.1", true), node("b", "10.0.0.2", false)}
	out := filter(nodes, pod("p"), map[string]usage{}, sumPodRequest(pod("p")))
	if len(out) != 1 || out[0].ObjectMeta.Name != "a" {
		t.Fatalf("expected only node a to survive, got %v", out)
	}
}

func TestSelectNodeSpreadPrefersEmptier(t *testing.T) {
	nodes := []*v1.Node{node("a", "10.0.0.1", true), node("b", "10.0.0.2", true)}
	usageByNode := map[string]usage{"10.0.0.1": {pods: 5}, "10.0.0.2": {pods: 1}}
	winner := selectNode(nodes, pod("p"), usageByNode, sumPodRequest(pod("p")), PolicySpread)
	if winner.ObjectMeta.Name != "b" {
		t.Fatalf("expected spread to prefer emptier node b, got %s", winner.ObjectMeta.Name)
	}
}

func TestSelectNodeBinPackPrefersFuller(t *testing.T) {
	nodes := []*v1.Node{node("a", "10.0.0.1", true), node("b", "10.0.0.2", true)}
	usageByNode := map[string]usage{"10.0.0.1": {pods: 5}, "10.0.0.2": {pods: 1}}
	winner := selectNode(nodes, pod("p"), usageByNode, sumPodRequest(pod("p")), PolicyBinPack)
	if winner.ObjectMeta.Name != "a" {
		t.Fatalf("expected binpack to prefer fuller node a, got %s", winner.ObjectMeta.Name)
	}
}

func TestSelectNodeTieBreaksByNameAscending(t *testing.T) {
	nodes := []*v1.Node{node("z", "10.0.0.9", true), node("a", "10.0.0.1", true)}
	winner := selectNode(nodes, pod("p"), map[string]usage{}, sumPodRequest(pod("p")), PolicySpread)
	if winner.ObjectMeta.Name != "a" {
		t.Fatalf("expected tie-break to pick node a, got %s", winner.ObjectMeta.Name)
	}
}
