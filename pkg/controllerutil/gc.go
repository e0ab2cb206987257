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

// Package controllerutil holds small pieces of reconciler logic shared
// across more than one controller package, starting with the ownership
// garbage collection invariant (spec §3.4): an object whose controller
// owner reference no longer resolves is deleted.
package controllerutil

import (
	"context"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/store"
)

// sweepFunc is a per-kind closure built by RegisterKind, erasing the
// generic type parameter so GC can hold a flat list of them.
type sweepFunc func(ctx context.Context) (int, error)

// GC periodically deletes objects whose controller owner reference
// points at an owner that no longer exists.
type GC struct {
	st       *store.Store
	interval time.Duration
	sweeps   []sweepFunc
}

// New builds a GC with the default set of kinds that carry controller
// owner references in this module: Pod, ReplicaSet, Job, and
// PersistentVolumeClaim (owned respectively by ReplicaSet/StatefulSet/Job,
// Deployment, CronJob, and Pod).
func New(st *store.Store, interval time.Duration) *GC {
	g := &GC{st: st, interval: interval}
	RegisterKind[v1.Pod](g, v1.KindPod)
	RegisterKind[v1.ReplicaSet](g, v1.KindReplicaSet)
	RegisterKind[v1.Job](g, v1.KindJob)
	RegisterKind[v1.PersistentVolumeClaim](g, v1.KindPersistentVolumeClaim)
	return g
}

// RegisterKind adds kind T to the set GC sweeps. Exported so a caller
// wiring an unusual deployment can extend coverage to a kind this
// module doesn't default to. T must be the concrete object type for
// kind (e.g. v1.Pod for v1.KindPod), the same convention store.List
// uses.
func RegisterKind[T any](g *GC, kind v1.Kind) {
	g.sweeps = append(g.sweeps, func(ctx context.Context) (int, error) {
		return Sweep[T](ctx, g.st, kind)
	})
}

// Sweep lists every object of kind T and deletes those whose controller
// owner reference no longer resolves to an existing object.
func Sweep[T any](ctx context.Context, st *store.Store, kind v1.Kind) (int, error) {
	objs, err := store.List[T](ctx, st, kind, "", nil)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, obj := range objs {
		o := any(obj).(v1.Object)
		meta := o.GetObjectMeta()
		owner, ok := meta.ControllerRef()
		if !ok {
			continue
		}
		exists, err := st.Exists(owner.Kind, meta.Namespace, owner.Name)
		if err != nil {
			return deleted, err
		}
		if exists {
			continue
		}
		if err := st.Delete(ctx, kind, meta.Namespace, meta.Name); err != nil {
			return deleted, err
		}
		deleted++
		log.FromContext(ctx).Info("garbage collected orphaned object", "kind", kind, "namespace", meta.Namespace, "name", meta.Name, "missingOwnerKind", owner.Kind, "missingOwnerName", owner.Name)
	}
	return deleted, nil
}

// RunOnce sweeps every registered kind once, returning the total deleted.
func (g *GC) RunOnce(ctx context.Context) (int, error) {
	total := 0
	for _, sweep := range g.sweeps {
		n, err := sweep(ctx)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Run loops RunOnce at the configured interval until ctx is cancelled.
func (g *GC) Run(ctx context.Context) {
	Forever(ctx, g.interval, "gc-sweep", g.RunOnce)
}
