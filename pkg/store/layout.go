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

package store

import (
	"path/filepath"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
)

// kindDirs names the on-disk directory for each kind explicitly rather
// than pluralizing at runtime, since naive pluralization mangles
// StorageClass/Endpoints-shaped names.
var kindDirs = map[v1.Kind]string{
	v1.KindPod:                     "pods",
	v1.KindNode:                    "nodes",
	v1.KindService:                 "services",
	v1.KindReplicaSet:              "replicasets",
	v1.KindDeployment:              "deployments",
	v1.KindStatefulSet:             "statefulsets",
	v1.KindJob:                     "jobs",
	v1.KindCronJob:                 "cronjobs",
	v1.KindResourceQuota:           "resourcequotas",
	v1.KindPersistentVolume:        "persistentvolumes",
	v1.KindPersistentVolumeClaim:   "persistentvolumeclaims",
	v1.KindStorageClass:            "storageclasses",
	v1.KindHorizontalPodAutoscaler: "horizontalpodautoscalers",
	v1.KindEvent:                   "events",
	v1.KindSecret:                  "secrets",
}

// objectDir returns the directory an object of the given kind/namespace
// lives under. Cluster-scoped kinds omit the namespace segment (spec §3:
// "metadata.namespace absent for cluster-scoped").
func (s *Store) objectDir(kind v1.Kind, namespace string) string {
	dir := filepath.Join(s.root, kindDirs[kind])
	if v1.NamespacedKinds[kind] {
		dir = filepath.Join(dir, namespace)
	}
	return dir
}

// objectPath returns the JSON file an object is persisted to.
func (s *Store) objectPath(kind v1.Kind, namespace, name string) string {
	return filepath.Join(s.objectDir(kind, namespace), name+".json")
}

// secretDataDir returns the sibling directory a Secret's binary values
// are written under (SPEC_FULL.md §C.1), one file per key, mode 0600.
func (s *Store) secretDataDir(namespace, name string) string {
	return filepath.Join(s.objectDir(v1.KindSecret, namespace), name+"_data")
}

// Root returns the store's root directory, for callers (the PV binder)
// that need to place on-disk state alongside the object tree rather than
// inside it.
func (s *Store) Root() string { return s.root }

// VolumeDataDir returns the directory a dynamically-provisioned
// PersistentVolume's hostPath points at (spec §4.H: "synthesize a new PV
// of the requested size").
func (s *Store) VolumeDataDir(name string) string {
	return filepath.Join(s.root, "volumes", name)
}
