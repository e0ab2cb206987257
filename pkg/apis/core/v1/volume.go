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

// PersistentVolumeReclaimPolicy governs what happens to a PV once its
// claim is released (spec §4.H).
type PersistentVolumeReclaimPolicy string

const (
	ReclaimRetain  PersistentVolumeReclaimPolicy = "Retain"
	ReclaimDelete  PersistentVolumeReclaimPolicy = "Delete"
	ReclaimRecycle PersistentVolumeReclaimPolicy = "Recycle"
)

// PersistentVolumePhase is the observed lifecycle state of a PV (spec §4.H).
type PersistentVolumePhase string

const (
	VolumeAvailable PersistentVolumePhase = "Available"
	VolumeBound     PersistentVolumePhase = "Bound"
	VolumeReleased  PersistentVolumePhase = "Released"
	VolumeFailed    PersistentVolumePhase = "Failed"
)

// AccessMode is one of the modes a PV/PVC may request (spec §4.H).
type AccessMode string

const (
	ReadWriteOnce AccessMode = "ReadWriteOnce"
	ReadOnlyMany  AccessMode = "ReadOnlyMany"
	ReadWriteMany AccessMode = "ReadWriteMany"
)

// VolumeMode distinguishes a PV/PVC backed by a filesystem path from a
// raw block device (spec §4.H: "volumeMode matches"). This implementation
// only ever creates Filesystem volumes; Block exists so a PVC requesting
// it is correctly refused a Filesystem PV rather than silently bound.
type VolumeMode string

const (
	VolumeModeFilesystem VolumeMode = "Filesystem"
	VolumeModeBlock       VolumeMode = "Block"
)

// PersistentVolumeSpec is the declared intent of a PersistentVolume
// (spec §3, §4.H).
type PersistentVolumeSpec struct {
	Capacity         string                        `json:"capacity"`
	AccessModes      []AccessMode                  `json:"accessModes"`
	VolumeMode       VolumeMode                    `json:"volumeMode,omitempty"`
	StorageClassName string                        `json:"storageClassName,omitempty"`
	ReclaimPolicy    PersistentVolumeReclaimPolicy `json:"reclaimPolicy,omitempty"`
	HostPath         string                        `json:"hostPath,omitempty"`
	ClaimRef         *ObjectReference              `json:"claimRef,omitempty"`
}

// PersistentVolumeStatus is the observed state of a PersistentVolume.
type PersistentVolumeStatus struct {
	Phase PersistentVolumePhase `json:"phase,omitempty"`
}

// PersistentVolume is the Schema for the PersistentVolume kind (cluster-
// scoped, spec §3).
type PersistentVolume struct {
	TypeMeta   TypeMeta                `json:"-"`
	ObjectMeta ObjectMeta              `json:"metadata"`
	Spec       PersistentVolumeSpec    `json:"spec"`
	Status     PersistentVolumeStatus  `json:"status,omitempty"`
}

func (v *PersistentVolume) GetTypeMeta() TypeMeta      { return TypeMeta{Kind: KindPersistentVolume, APIVersion: "v1"} }
func (v *PersistentVolume) GetObjectMeta() *ObjectMeta { return &v.ObjectMeta }

// ObjectReference is a minimal cross-kind pointer, used by a bound PV to
// name its claim and vice versa.
type ObjectReference struct {
	Kind      Kind   `json:"kind"`
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name"`
	UID       string `json:"uid,omitempty"`
}

// PersistentVolumeClaimPhase is the observed lifecycle state of a PVC.
type PersistentVolumeClaimPhase string

const (
	ClaimPending PersistentVolumeClaimPhase = "Pending"
	ClaimBound   PersistentVolumeClaimPhase = "Bound"
	ClaimLost    PersistentVolumeClaimPhase = "Lost"
)

// PersistentVolumeClaimSpec is the declared intent of a PVC (spec §3,
// §4.H).
type PersistentVolumeClaimSpec struct {
	AccessModes      []AccessMode `json:"accessModes"`
	VolumeMode       VolumeMode   `json:"volumeMode,omitempty"`
	Resources        ResourceList `json:"resources"`
	StorageClassName string       `json:"storageClassName,omitempty"`
	VolumeName       string       `json:"volumeName,omitempty"`
}

// PersistentVolumeClaimStatus is the observed state of a PVC.
type PersistentVolumeClaimStatus struct {
	Phase       PersistentVolumeClaimPhase `json:"phase,omitempty"`
	VolumeName  string                     `json:"volumeName,omitempty"`
	AccessModes []AccessMode               `json:"accessModes,omitempty"`
	Capacity    string                     `json:"capacity,omitempty"`
}

// PersistentVolumeClaim is the Schema for the PersistentVolumeClaim kind.
type PersistentVolumeClaim struct {
	TypeMeta   TypeMeta                     `json:"-"`
	ObjectMeta ObjectMeta                   `json:"metadata"`
	Spec       PersistentVolumeClaimSpec    `json:"spec"`
	Status     PersistentVolumeClaimStatus  `json:"status,omitempty"`
}

func (c *PersistentVolumeClaim) GetTypeMeta() TypeMeta {
	return TypeMeta{Kind: KindPersistentVolumeClaim, APIVersion: "v1"}
}
func (c *PersistentVolumeClaim) GetObjectMeta() *ObjectMeta { return &c.ObjectMeta }

// StorageClass names a provisioner and its parameters for dynamic
// provisioning (spec §4.H, SPEC_FULL.md §C.2).
type StorageClass struct {
	TypeMeta      TypeMeta          `json:"-"`
	ObjectMeta    ObjectMeta        `json:"metadata"`
	Provisioner   string            `json:"provisioner"`
	Parameters    map[string]string `json:"parameters,omitempty"`
	ReclaimPolicy PersistentVolumeReclaimPolicy `json:"reclaimPolicy,omitempty"`
}

func (s *StorageClass) GetTypeMeta() TypeMeta      { return TypeMeta{Kind: KindStorageClass, APIVersion: "v1"} }
func (s *StorageClass) GetObjectMeta() *ObjectMeta { return &s.ObjectMeta }
