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

// ReplicaSetSpec is the declared intent of a ReplicaSet (spec §3, §4.I).
type ReplicaSetSpec struct {
	Replicas int32             `json:"replicas"`
	Selector map[string]string `json:"selector"`
	Template PodTemplateSpec   `json:"template"`
}

// ReplicaSetStatus is the observed state of a ReplicaSet (spec §4.I).
type ReplicaSetStatus struct {
	Replicas          int32      `json:"replicas"`
	ReadyReplicas     int32      `json:"readyReplicas"`
	AvailableReplicas int32      `json:"availableReplicas"`
	Conditions        Conditions `json:"conditions,omitempty"`
}

// ReplicaSet is the Schema for the ReplicaSet kind.
type ReplicaSet struct {
	TypeMeta   TypeMeta         `json:"-"`
	ObjectMeta ObjectMeta       `json:"metadata"`
	Spec       ReplicaSetSpec   `json:"spec"`
	Status     ReplicaSetStatus `json:"status,omitempty"`
}

func (r *ReplicaSet) GetTypeMeta() TypeMeta      { return TypeMeta{Kind: KindReplicaSet, APIVersion: "v1"} }
func (r *ReplicaSet) GetObjectMeta() *ObjectMeta { return &r.ObjectMeta }
