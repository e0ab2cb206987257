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

// PodTemplateSpec is the embedded PodSpec plus labels/annotations shared
// by every controller kind (spec §3: "each has a pod template").
type PodTemplateSpec struct {
	Labels      map[string]string `json:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
	Spec        PodSpec           `json:"spec"`
}

// Condition is the generic {Type, Status, Reason} triple controllers
// report on Deployments/ReplicaSets/Jobs (spec §4.I, §4.J, §4.L).
type Condition struct {
	Type               string          `json:"type"`
	Status             ConditionStatus `json:"status"`
	Reason             string          `json:"reason,omitempty"`
	Message            string          `json:"message,omitempty"`
	LastTransitionTime float64         `json:"lastTransitionTime,omitempty"`
}

// Conditions is a list of Condition with lookup/set helpers used
// identically by ReplicaSet, Deployment, and Job statuses.
type Conditions []Condition

// Get returns the condition of the given type, if present.
func (cs Conditions) Get(t string) (Condition, bool) {
	for _, c := range cs {
		if c.Type == t {
			return c, true
		}
	}
	return Condition{}, false
}

// Set upserts a condition by type, updating LastTransitionTime only when
// the Status actually changes, matching standard Kubernetes condition
// semantics.
func (cs Conditions) Set(c Condition, now float64) Conditions {
	for i := range cs {
		if cs[i].Type == c.Type {
			if cs[i].Status != c.Status {
				c.LastTransitionTime = now
			} else {
				c.LastTransitionTime = cs[i].LastTransitionTime
			}
			cs[i] = c
			return cs
		}
	}
	c.LastTransitionTime = now
	return append(cs, c)
}
