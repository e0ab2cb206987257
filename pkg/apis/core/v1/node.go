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

package v1

import "time"

// NodeConditionType enumerates the condition kinds tracked on a Node
// (spec §3, §4.C).
type NodeConditionType string

const (
	NodeReady               NodeConditionType = "Ready"
	NodeMemoryPressure      NodeConditionType = "MemoryPressure"
	NodeDiskPressure        NodeConditionType = "DiskPressure"
	NodePIDPressure         NodeConditionType = "PIDPressure"
	NodeNetworkUnavailable  NodeConditionType = "NetworkUnavailable"
)

// ConditionStatus is the tri-state value of a condition, matching the
// Ready=True/False/Unknown shape spec §4.C and §4.D rely on.
type ConditionStatus string

const (
	ConditionTrue    ConditionStatus = "True"
	ConditionFalse   ConditionStatus = "False"
	ConditionUnknown ConditionStatus = "Unknown"
)

// NodeCondition is one observed condition with its last heartbeat time.
type NodeCondition struct {
	Type               NodeConditionType `json:"type"`
	Status             ConditionStatus   `json:"status"`
	LastHeartbeatTime  float64           `json:"lastHeartbeatTime"`
	LastTransitionTime float64           `json:"lastTransitionTime,omitempty"`
	Reason             string            `json:"reason,omitempty"`
}

// NodeSpec is the declared intent of a Node (spec §3).
type NodeSpec struct {
	PodCIDR        string `json:"podCIDR,omitempty"`
	Unschedulable  bool   `json:"unschedulable,omitempty"`
	Taints         Taints `json:"taints,omitempty"`
}

// NodeResourceList is the set of resources tracked in capacity/allocatable
// (spec §3): cpu, memory, pods, ephemeral-storage.
type NodeResourceList struct {
	CPU              string `json:"cpu"`
	Memory           string `json:"memory"`
	Pods             string `json:"pods"`
	EphemeralStorage string `json:"ephemeral-storage,omitempty"`
}

// NodeAddress is a single address the scheduler/DNS can reach the node at.
type NodeAddress struct {
	Type    string `json:"type"` // InternalIP, Hostname, ...
	Address string `json:"address"`
}

// NodeInfo carries informational (not scheduling-relevant) node facts.
type NodeInfo struct {
	KernelVersion   string `json:"kernelVersion,omitempty"`
	OSImage         string `json:"osImage,omitempty"`
	Architecture    string `json:"architecture,omitempty"`
}

// NodeStatus is the observed state of a Node (spec §3). Ready=True is
// required for the scheduler to consider the node (spec §4.C).
type NodeStatus struct {
	Capacity    NodeResourceList `json:"capacity"`
	Allocatable NodeResourceList `json:"allocatable"`
	Addresses   []NodeAddress    `json:"addresses,omitempty"`
	Conditions  []NodeCondition  `json:"conditions,omitempty"`
	NodeInfo    NodeInfo         `json:"nodeInfo,omitempty"`
}

// Condition returns the condition of the given type, if present.
func (s NodeStatus) Condition(t NodeConditionType) (NodeCondition, bool) {
	for _, c := range s.Conditions {
		if c.Type == t {
			return c, true
		}
	}
	return NodeCondition{}, false
}

// Ready reports whether the Node's Ready condition is True, which the
// scheduler requires before placing any Pod on it (spec §4.C, §4.D).
func (s NodeStatus) Ready() bool {
	c, ok := s.Condition(NodeReady)
	return ok && c.Status == ConditionTrue
}

// Address returns the node's primary (first) address string, used by the
// scheduler's Bind step to populate pod.status.hostIP (spec §4.D.4).
func (s NodeStatus) Address() string {
	if len(s.Addresses) == 0 {
		return ""
	}
	return s.Addresses[0].Address
}

// Node is the Schema for the Node kind (spec §3). Cluster-scoped.
type Node struct {
	TypeMeta   TypeMeta   `json:"-"`
	ObjectMeta ObjectMeta `json:"metadata"`
	Spec       NodeSpec   `json:"spec"`
	Status     NodeStatus `json:"status,omitempty"`
}

func (n *Node) GetTypeMeta() TypeMeta      { return TypeMeta{Kind: KindNode, APIVersion: "v1"} }
func (n *Node) GetObjectMeta() *ObjectMeta { return &n.ObjectMeta }

// HeartbeatStale reports whether the node's Ready condition hasn't been
// refreshed within staleAfter of now, the trigger for Ready->Unknown
// (spec §4.C: ">3x cadence").
func (n *Node) HeartbeatStale(now time.Time, staleAfter time.Duration) bool {
	c, ok := n.Status.Condition(NodeReady)
	if !ok {
		return true
	}
	last := time.Unix(int64(c.LastHeartbeatTime), 0)
	return now.Sub(last) > staleAfter
}
