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

// ResourceQuotaList is the set of hard limits a namespace is bound by
// (spec §4.G). Kept as strings in the object model; pkg/quota parses
// them into exact MilliCPU/Bytes counters before comparing.
type ResourceQuotaList struct {
	Pods                 string `json:"pods,omitempty"`
	RequestsCPU          string `json:"requests.cpu,omitempty"`
	RequestsMemory       string `json:"requests.memory,omitempty"`
	LimitsCPU            string `json:"limits.cpu,omitempty"`
	LimitsMemory         string `json:"limits.memory,omitempty"`
}

// ResourceQuotaSpec is the declared intent of a ResourceQuota (spec §3,
// §4.G).
type ResourceQuotaSpec struct {
	Hard ResourceQuotaList `json:"hard"`
}

// ResourceQuotaStatus mirrors Spec.Hard with the currently observed
// usage (spec §4.G).
type ResourceQuotaStatus struct {
	Hard ResourceQuotaList `json:"hard"`
	Used ResourceQuotaList `json:"used"`
}

// ResourceQuota is the Schema for the ResourceQuota kind.
type ResourceQuota struct {
	TypeMeta   TypeMeta            `json:"-"`
	ObjectMeta ObjectMeta          `json:"metadata"`
	Spec       ResourceQuotaSpec   `json:"spec"`
	Status     ResourceQuotaStatus `json:"status,omitempty"`
}

func (q *ResourceQuota) GetTypeMeta() TypeMeta      { return TypeMeta{Kind: KindResourceQuota, APIVersion: "v1"} }
func (q *ResourceQuota) GetObjectMeta() *ObjectMeta { return &q.ObjectMeta }
