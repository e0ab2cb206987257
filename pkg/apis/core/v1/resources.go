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

// ResourceList is the cpu/memory quantities attached to a container's
// requests or limits (spec §3 Pod.spec.containers[].resources). Values
// are kept as the raw quantity strings the admission pipeline validated;
// pkg/quantity is the single place that parses them.
type ResourceList struct {
	CPU    string `json:"cpu,omitempty"`
	Memory string `json:"memory,omitempty"`
}

// ResourceRequirements bundles a container's requests and limits.
type ResourceRequirements struct {
	Requests ResourceList `json:"requests,omitempty"`
	Limits   ResourceList `json:"limits,omitempty"`
}

// TaintEffect is one of the three effects recognised on a Node taint
// (spec §3).
type TaintEffect string

const (
	TaintEffectNoSchedule       TaintEffect = "NoSchedule"
	TaintEffectPreferNoSchedule TaintEffect = "PreferNoSchedule"
	TaintEffectNoExecute        TaintEffect = "NoExecute"
)

// Taint is applied to a Node to repel Pods that do not carry a matching
// Toleration (spec §3, §4.D).
type Taint struct {
	Key    string      `json:"key"`
	Value  string      `json:"value,omitempty"`
	Effect TaintEffect `json:"effect"`
}

// Toleration allows a Pod to schedule onto a Node carrying a matching
// Taint.
type Toleration struct {
	Key      string      `json:"key,omitempty"`
	Operator string      `json:"operator,omitempty"` // "Equal" (default) or "Exists"
	Value    string      `json:"value,omitempty"`
	Effect   TaintEffect `json:"effect,omitempty"` // empty tolerates all effects
}

// Tolerates reports whether t tolerates taint.
func (t Toleration) Tolerates(taint Taint) bool {
	if t.Effect != "" && t.Effect != taint.Effect {
		return false
	}
	if t.Key != "" && t.Key != taint.Key {
		return false
	}
	if t.Operator == "Exists" {
		return true
	}
	return t.Value == taint.Value
}

// Taints is a decorated slice of Taint, grounded on the teacher's
// v1alpha5.Taints helper type (read from
// pkg/apis/provisioning/v1alpha5/taints.go), adapted from "does the pod
// tolerate the provisioner's taints" to "does the pod tolerate this
// node's NoSchedule taints" (spec §4.D.1.d).
type Taints []Taint

// Untolerated filters ts down to the taints whose effect equals effect and
// that are NOT tolerated by any of the given tolerations. Called with
// NoSchedule, a Pod is schedulable onto the node only when this returns
// empty.
func (ts Taints) Untolerated(effect TaintEffect, tolerations []Toleration) []Taint {
	var untolerated []Taint
	for _, t := range ts {
		if t.Effect != effect {
			continue
		}
		tolerated := false
		for _, tol := range tolerations {
			if tol.Tolerates(t) {
				tolerated = true
				break
			}
		}
		if !tolerated {
			untolerated = append(untolerated, t)
		}
	}
	return untolerated
}
