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

// RestartPolicy governs container restart behavior (spec §3, §9 open
// question): Always restarts on any exit, OnFailure restarts only on a
// nonzero exit code, Never never restarts.
type RestartPolicy string

const (
	RestartPolicyAlways    RestartPolicy = "Always"
	RestartPolicyOnFailure RestartPolicy = "OnFailure"
	RestartPolicyNever     RestartPolicy = "Never"
)

// PodPhase is the coarse lifecycle phase of a Pod (spec §3). Succeeded
// and Failed are terminal and are never re-entered.
type PodPhase string

const (
	PodPending   PodPhase = "Pending"
	PodRunning   PodPhase = "Running"
	PodSucceeded PodPhase = "Succeeded"
	PodFailed    PodPhase = "Failed"
	PodUnknown   PodPhase = "Unknown"
)

func (p PodPhase) Terminal() bool { return p == PodSucceeded || p == PodFailed }

// ContainerPort declares a named/numbered port a container listens on.
type ContainerPort struct {
	Name          string `json:"name,omitempty"`
	ContainerPort int32  `json:"containerPort"`
	Protocol      string `json:"protocol,omitempty"`
}

// VolumeMount attaches a Volume into a container's filesystem.
type VolumeMount struct {
	Name      string `json:"name"`
	MountPath string `json:"mountPath"`
	ReadOnly  bool   `json:"readOnly,omitempty"`
}

// EnvVar is a container environment variable.
type EnvVar struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

// Container is one container within a Pod template (spec §3).
type Container struct {
	Name         string               `json:"name"`
	Image        string               `json:"image"`
	Command      []string             `json:"command,omitempty"`
	Env          []EnvVar             `json:"env,omitempty"`
	Ports        []ContainerPort      `json:"ports,omitempty"`
	VolumeMounts []VolumeMount        `json:"volumeMounts,omitempty"`
	Resources    ResourceRequirements `json:"resources,omitempty"`
}

// VolumeSource describes where a Volume's backing data lives. Exactly
// one field should be set.
type VolumeSource struct {
	EmptyDir              *struct{} `json:"emptyDir,omitempty"`
	HostPath              *string   `json:"hostPath,omitempty"`
	Secret                *string   `json:"secret,omitempty"` // Secret name
	PersistentVolumeClaim *string   `json:"persistentVolumeClaim,omitempty"` // PVC name
}

// Volume is a named storage source a Pod's containers may mount.
type Volume struct {
	Name         string `json:"name"`
	VolumeSource `json:",inline"`
}

// PodSpec is the declared intent of a Pod (spec §3).
type PodSpec struct {
	Containers     []Container       `json:"containers"`
	Volumes        []Volume          `json:"volumes,omitempty"`
	RestartPolicy  RestartPolicy     `json:"restartPolicy,omitempty"`
	NodeSelector   map[string]string `json:"nodeSelector,omitempty"`
	Tolerations    []Toleration      `json:"tolerations,omitempty"`
	Hostname       string            `json:"hostname,omitempty"`
	Subdomain      string            `json:"subdomain,omitempty"`
}

// ContainerStateWaiting/Running/Terminated describe the observed state of
// a single container (spec §3).
type ContainerState string

const (
	ContainerWaiting    ContainerState = "Waiting"
	ContainerRunning    ContainerState = "Running"
	ContainerTerminated ContainerState = "Terminated"
)

// ContainerStatus is the observed state of one container.
type ContainerStatus struct {
	Name         string         `json:"name"`
	State        ContainerState `json:"state"`
	Ready        bool           `json:"ready"`
	RestartCount int32          `json:"restartCount"`
	ExitCode     int32          `json:"exitCode,omitempty"`
}

// PodCondition is a boolean observation about a Pod at a point in time.
type PodCondition struct {
	Type   string `json:"type"`
	Status bool   `json:"status"`
}

// PodStatus is the observed state of a Pod (spec §3). HostIP, once set,
// never changes for the life of the object.
type PodStatus struct {
	Phase             PodPhase          `json:"phase,omitempty"`
	Reason            string            `json:"reason,omitempty"`
	HostIP            string            `json:"hostIP,omitempty"`
	PodIP             string            `json:"podIP,omitempty"`
	ContainerStatuses []ContainerStatus `json:"containerStatuses,omitempty"`
	Conditions        []PodCondition    `json:"conditions,omitempty"`
	ResourceUsage     ResourceList      `json:"resourceUsage,omitempty"`
}

// AllReady reports whether every container status is Ready=true, used by
// the ReplicaSet controller's "ready" count (spec §4.I).
func (s PodStatus) AllReady() bool {
	if len(s.ContainerStatuses) == 0 {
		return false
	}
	for _, cs := range s.ContainerStatuses {
		if !cs.Ready {
			return false
		}
	}
	return true
}

// Pod is the Schema for the Pod kind (spec §3).
type Pod struct {
	TypeMeta   TypeMeta   `json:"-"`
	ObjectMeta ObjectMeta `json:"metadata"`
	Spec       PodSpec    `json:"spec"`
	Status     PodStatus  `json:"status,omitempty"`
}

func (p *Pod) GetTypeMeta() TypeMeta      { return TypeMeta{Kind: KindPod, APIVersion: "v1"} }
func (p *Pod) GetObjectMeta() *ObjectMeta { return &p.ObjectMeta }
