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

// Package v1 defines the object model of spec §3: a shared envelope
// (TypeMeta/ObjectMeta) plus one Go struct per kind carrying spec and
// status. Duck-typed dict[str, Any] objects in the Python source become
// one tagged variant per kind here (spec §9 design note); the on-disk
// form stays JSON so the envelope round-trips byte-for-byte.
package v1

import "time"

// Kind enumerates the object kinds the core manages.
type Kind string

const (
	KindPod                   Kind = "Pod"
	KindNode                  Kind = "Node"
	KindService               Kind = "Service"
	KindReplicaSet            Kind = "ReplicaSet"
	KindDeployment            Kind = "Deployment"
	KindStatefulSet           Kind = "StatefulSet"
	KindJob                   Kind = "Job"
	KindCronJob               Kind = "CronJob"
	KindResourceQuota         Kind = "ResourceQuota"
	KindPersistentVolume      Kind = "PersistentVolume"
	KindPersistentVolumeClaim Kind = "PersistentVolumeClaim"
	KindStorageClass          Kind = "StorageClass"
	KindHorizontalPodAutoscaler Kind = "HorizontalPodAutoscaler"
	KindEvent                 Kind = "Event"
	KindSecret                Kind = "Secret"
)

// NamespacedKinds are kinds that live under a namespace directory on disk;
// the remainder are cluster-scoped (spec §3: "metadata.namespace absent
// for cluster-scoped").
var NamespacedKinds = map[Kind]bool{
	KindPod:                     true,
	KindService:                 true,
	KindReplicaSet:              true,
	KindDeployment:              true,
	KindStatefulSet:             true,
	KindJob:                     true,
	KindCronJob:                 true,
	KindResourceQuota:           true,
	KindPersistentVolumeClaim:   true,
	KindHorizontalPodAutoscaler: true,
	KindEvent:                   true,
	KindSecret:                  true,
}

// OwnerReference points from a child object back to the owner that
// created it (spec §3). Controller is true for exactly the owner that
// drives garbage collection of this object.
type OwnerReference struct {
	Kind               Kind   `json:"kind"`
	Name               string `json:"name"`
	UID                string `json:"uid"`
	Controller         bool   `json:"controller,omitempty"`
	BlockOwnerDeletion bool   `json:"blockOwnerDeletion,omitempty"`
}

// ObjectMeta is the metadata envelope shared by every kind (spec §3).
type ObjectMeta struct {
	Name              string            `json:"name"`
	Namespace         string            `json:"namespace,omitempty"`
	UID               string            `json:"uid,omitempty"`
	Generation        int64             `json:"generation,omitempty"`
	ResourceVersion   int64             `json:"resourceVersion,omitempty"`
	CreationTimestamp float64           `json:"creationTimestamp,omitempty"`
	Labels            map[string]string `json:"labels,omitempty"`
	Annotations       map[string]string `json:"annotations,omitempty"`
	OwnerReferences   []OwnerReference  `json:"ownerReferences,omitempty"`
}

// CreationTime returns the CreationTimestamp as a time.Time.
func (m ObjectMeta) CreationTime() time.Time {
	sec := int64(m.CreationTimestamp)
	nsec := int64((m.CreationTimestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

// Age reports how long ago the object was created, for display helpers
// that mirror the original kubectl_core.py "AGE" column (SPEC_FULL.md §C.3).
func (m ObjectMeta) Age(now time.Time) time.Duration {
	return now.Sub(m.CreationTime())
}

// ControllerRef returns the owner reference with Controller=true, if any.
func (m ObjectMeta) ControllerRef() (OwnerReference, bool) {
	for _, o := range m.OwnerReferences {
		if o.Controller {
			return o, true
		}
	}
	return OwnerReference{}, false
}

// MatchesSelector reports whether every key/value pair of selector is
// present in the object's labels (spec §4.E endpoints, §4.I RS matching).
func (m ObjectMeta) MatchesSelector(selector map[string]string) bool {
	for k, v := range selector {
		if m.Labels[k] != v {
			return false
		}
	}
	return true
}

// TypeMeta identifies the kind/apiVersion of a decoded object (spec §3).
type TypeMeta struct {
	Kind       Kind   `json:"kind"`
	APIVersion string `json:"apiVersion"`
}

// Object is implemented by every kind so store code can operate on
// metadata generically without reflecting into concrete types.
type Object interface {
	GetTypeMeta() TypeMeta
	GetObjectMeta() *ObjectMeta
}
