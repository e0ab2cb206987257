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

// PodManagementPolicy governs StatefulSet Pod creation/deletion ordering
// (spec §4.K).
type PodManagementPolicy string

const (
	PodManagementOrderedReady PodManagementPolicy = "OrderedReady"
	PodManagementParallel     PodManagementPolicy = "Parallel"
)

// StatefulSetUpdateStrategyType is RollingUpdate or OnDelete (spec §4.K).
type StatefulSetUpdateStrategyType string

const (
	StatefulSetRollingUpdate StatefulSetUpdateStrategyType = "RollingUpdate"
	StatefulSetOnDelete      StatefulSetUpdateStrategyType = "OnDelete"
)

// StatefulSetUpdateStrategy carries the partition parameter for a
// partitioned RollingUpdate (spec §4.K).
type StatefulSetUpdateStrategy struct {
	Type      StatefulSetUpdateStrategyType `json:"type"`
	Partition int32                         `json:"partition,omitempty"`
}

// PersistentVolumeClaimTemplate is a per-ordinal PVC blueprint (spec §3,
// §4.K.4).
type PersistentVolumeClaimTemplate struct {
	Name      string                    `json:"name"`
	MountPath string                    `json:"mountPath"`
	Spec      PersistentVolumeClaimSpec `json:"spec"`
}

// StatefulSetSpec is the declared intent of a StatefulSet (spec §3, §4.K).
type StatefulSetSpec struct {
	Replicas             int32                           `json:"replicas"`
	Selector             map[string]string                `json:"selector"`
	ServiceName          string                            `json:"serviceName,omitempty"`
	Template             PodTemplateSpec                   `json:"template"`
	VolumeClaimTemplates []PersistentVolumeClaimTemplate    `json:"volumeClaimTemplates,omitempty"`
	PodManagementPolicy  PodManagementPolicy               `json:"podManagementPolicy,omitempty"`
	UpdateStrategy       StatefulSetUpdateStrategy          `json:"updateStrategy,omitempty"`
}

// StatefulSetStatus is the observed state of a StatefulSet (spec §4.K).
type StatefulSetStatus struct {
	Replicas        int32      `json:"replicas"`
	ReadyReplicas   int32      `json:"readyReplicas"`
	CurrentReplicas int32      `json:"currentReplicas"`
	UpdatedReplicas int32      `json:"updatedReplicas"`
	Conditions      Conditions `json:"conditions,omitempty"`
}

// StatefulSet is the Schema for the StatefulSet kind.
type StatefulSet struct {
	TypeMeta   TypeMeta          `json:"-"`
	ObjectMeta ObjectMeta        `json:"metadata"`
	Spec       StatefulSetSpec   `json:"spec"`
	Status     StatefulSetStatus `json:"status,omitempty"`
}

func (s *StatefulSet) GetTypeMeta() TypeMeta      { return TypeMeta{Kind: KindStatefulSet, APIVersion: "v1"} }
func (s *StatefulSet) GetObjectMeta() *ObjectMeta { return &s.ObjectMeta }
