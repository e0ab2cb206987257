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

// DeploymentStrategyType is Recreate or RollingUpdate (spec §4.J).
type DeploymentStrategyType string

const (
	DeploymentRecreate      DeploymentStrategyType = "Recreate"
	DeploymentRollingUpdate DeploymentStrategyType = "RollingUpdate"
)

// RollingUpdateDeployment carries the surge/unavailability budget
// parameters of spec §4.J. Values are plain integers (the spec fixes
// "each an integer"; percentage surge is not modeled).
type RollingUpdateDeployment struct {
	MaxSurge       int32 `json:"maxSurge"`
	MaxUnavailable int32 `json:"maxUnavailable"`
}

// DeploymentStrategy selects Recreate or RollingUpdate.
type DeploymentStrategy struct {
	Type          DeploymentStrategyType   `json:"type"`
	RollingUpdate RollingUpdateDeployment  `json:"rollingUpdate,omitempty"`
}

// DeploymentSpec is the declared intent of a Deployment (spec §3, §4.J).
type DeploymentSpec struct {
	Replicas               int32               `json:"replicas"`
	Selector               map[string]string   `json:"selector"`
	Template               PodTemplateSpec     `json:"template"`
	Strategy               DeploymentStrategy  `json:"strategy,omitempty"`
	RevisionHistoryLimit   int32               `json:"revisionHistoryLimit,omitempty"`
	Paused                 bool                `json:"paused,omitempty"`
}

// DeploymentStatus is the observed state of a Deployment (spec §4.J).
type DeploymentStatus struct {
	Replicas          int32      `json:"replicas"`
	UpdatedReplicas   int32      `json:"updatedReplicas"`
	AvailableReplicas int32      `json:"availableReplicas"`
	Conditions        Conditions `json:"conditions,omitempty"`
}

// Deployment is the Schema for the Deployment kind.
type Deployment struct {
	TypeMeta   TypeMeta         `json:"-"`
	ObjectMeta ObjectMeta       `json:"metadata"`
	Spec       DeploymentSpec   `json:"spec"`
	Status     DeploymentStatus `json:"status,omitempty"`
}

func (d *Deployment) GetTypeMeta() TypeMeta      { return TypeMeta{Kind: KindDeployment, APIVersion: "v1"} }
func (d *Deployment) GetObjectMeta() *ObjectMeta { return &d.ObjectMeta }

const (
	// ConditionProgressing is True while the current RS is being scaled
	// (spec §4.J).
	ConditionProgressing = "Progressing"
	// ConditionAvailable is True once availableReplicas >= spec.replicas.
	ConditionAvailable = "Available"
	// ConditionReplicaFailure is propagated from the owned ReplicaSets.
	ConditionReplicaFailure = "ReplicaFailure"
)
