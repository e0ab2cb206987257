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

// Package volumes implements the PersistentVolume binder of spec §4.H:
// matching Pending PersistentVolumeClaims to an Available
// PersistentVolume and dynamically provisioning one when a StorageClass
// allows it. Reclaim applies a PV's reclaim policy once its claim is
// gone; no component in this module runs it automatically on PVC delete.
package volumes

import (
	"context"
	"os"
	"sort"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/controllerutil"
	"github.com/DarsheeeGamer/kos/pkg/quantity"
	"github.com/DarsheeeGamer/kos/pkg/store"
)

const dynamicProvisioner = "kos.local"

// Binder runs the periodic PVC-to-PV matching pass.
type Binder struct {
	st       *store.Store
	interval time.Duration
}

// New builds a Binder polling st every interval.
func New(st *store.Store, interval time.Duration) *Binder {
	return &Binder{st: st, interval: interval}
}

// RunOnce binds every Pending PVC it can, returning the number bound.
func (b *Binder) RunOnce(ctx context.Context) (int, error) {
	claims, err := store.List[v1.PersistentVolumeClaim](ctx, b.st, v1.KindPersistentVolumeClaim, "", nil)
	if err != nil {
		return 0, err
	}

	bound := 0
	for _, pvc := range claims {
		if pvc.Status.Phase != "" && pvc.Status.Phase != v1.ClaimPending {
			continue
		}
		ok, err := b.bindOne(ctx, pvc)
		if err != nil {
			return bound, err
		}
		if ok {
			bound++
		}
	}
	return bound, nil
}

// bindOne attempts to bind a single PVC following spec §4.H's three-step
// search order: named volume, first compatible Available PV, then
// dynamic provisioning.
func (b *Binder) bindOne(ctx context.Context, pvc *v1.PersistentVolumeClaim) (bool, error) {
	logger := log.FromContext(ctx).WithValues("namespace", pvc.ObjectMeta.Namespace, "pvc", pvc.ObjectMeta.Name)

	if pvc.Spec.VolumeName != "" {
		pv, err := store.Get[v1.PersistentVolume](ctx, b.st, v1.KindPersistentVolume, "", pvc.Spec.VolumeName)
		if err != nil {
			return false, nil // unresolved named volume: stays Pending, no silent reassignment
		}
		if !compatible(pv, pvc) {
			return false, nil
		}
		return true, b.bind(ctx, pv, pvc)
	}

	pvs, err := store.List[v1.PersistentVolume](ctx, b.st, v1.KindPersistentVolume, "", nil)
	if err != nil {
		return false, err
	}
	sort.Slice(pvs, func(i, j int) bool { return pvs[i].ObjectMeta.Name < pvs[j].ObjectMeta.Name })
	for _, pv := range pvs {
		if pv.Status.Phase != v1.VolumeAvailable {
			continue
		}
		if compatible(pv, pvc) {
			return true, b.bind(ctx, pv, pvc)
		}
	}

	if sc, err := b.storageClassFor(ctx, pvc); err == nil && sc != nil && sc.Provisioner == dynamicProvisioner {
		pv, err := b.provision(ctx, sc, pvc)
		if err != nil {
			return false, err
		}
		logger.Info("dynamically provisioned volume", "pv", pv.ObjectMeta.Name)
		return true, b.bind(ctx, pv, pvc)
	}

	return false, nil
}

func (b *Binder) storageClassFor(ctx context.Context, pvc *v1.PersistentVolumeClaim) (*v1.StorageClass, error) {
	if pvc.Spec.StorageClassName == "" {
		return nil, nil
	}
	return store.Get[v1.StorageClass](ctx, b.st, v1.KindStorageClass, "", pvc.Spec.StorageClassName)
}

// compatible implements spec §4.H's binding compatibility check: phase,
// storageClass, volumeMode, accessModes subset, and capacity.
func compatible(pv *v1.PersistentVolume, pvc *v1.PersistentVolumeClaim) bool {
	if pv.Spec.StorageClassName != pvc.Spec.StorageClassName {
		return false
	}
	pvMode := pv.Spec.VolumeMode
	if pvMode == "" {
		pvMode = v1.VolumeModeFilesystem
	}
	pvcMode := pvc.Spec.VolumeMode
	if pvcMode == "" {
		pvcMode = v1.VolumeModeFilesystem
	}
	if pvMode != pvcMode {
		return false
	}
	if !accessModesSubset(pvc.Spec.AccessModes, pv.Spec.AccessModes) {
		return false
	}
	pvCap, err := quantity.ParseMemory(pv.Spec.Capacity)
	if err != nil {
		return false
	}
	reqCap, err := quantity.ParseMemory(pvc.Spec.Resources.Memory)
	if err != nil {
		return false
	}
	return pvCap >= reqCap
}

func accessModesSubset(want, have []v1.AccessMode) bool {
	haveSet := map[v1.AccessMode]bool{}
	for _, m := range have {
		haveSet[m] = true
	}
	for _, m := range want {
		if !haveSet[m] {
			return false
		}
	}
	return true
}

// bind writes the Bound phase onto both sides of the pair (spec §4.H:
// "binding writes PV.status.phase=Bound with claimRef and
// PVC.status.phase=Bound with volumeName+accessModes+capacity copies").
func (b *Binder) bind(ctx context.Context, pv *v1.PersistentVolume, pvc *v1.PersistentVolumeClaim) error {
	pv.Status.Phase = v1.VolumeBound
	pv.Spec.ClaimRef = &v1.ObjectReference{
		Kind: v1.KindPersistentVolumeClaim, Namespace: pvc.ObjectMeta.Namespace, Name: pvc.ObjectMeta.Name, UID: pvc.ObjectMeta.UID,
	}
	if err := b.st.Update(ctx, pv); err != nil {
		return err
	}

	pvc.Status.Phase = v1.ClaimBound
	pvc.Status.VolumeName = pv.ObjectMeta.Name
	pvc.Status.AccessModes = pv.Spec.AccessModes
	pvc.Status.Capacity = pv.Spec.Capacity
	return b.st.Update(ctx, pvc)
}

// provision synthesizes a new PersistentVolume of the PVC's requested
// size in sc's class, backed by a fresh directory under the store's data
// root (spec §4.H step 3).
func (b *Binder) provision(ctx context.Context, sc *v1.StorageClass, pvc *v1.PersistentVolumeClaim) (*v1.PersistentVolume, error) {
	name := pvc.ObjectMeta.Namespace + "-" + pvc.ObjectMeta.Name + "-dynamic"
	dir := b.st.VolumeDataDir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	reclaim := sc.ReclaimPolicy
	if reclaim == "" {
		reclaim = v1.ReclaimDelete
	}
	pv := &v1.PersistentVolume{
		ObjectMeta: v1.ObjectMeta{Name: name},
		Spec: v1.PersistentVolumeSpec{
			Capacity:         pvc.Spec.Resources.Memory,
			AccessModes:      pvc.Spec.AccessModes,
			VolumeMode:       pvc.Spec.VolumeMode,
			StorageClassName: sc.ObjectMeta.Name,
			ReclaimPolicy:    reclaim,
			HostPath:         dir,
		},
		Status: v1.PersistentVolumeStatus{Phase: v1.VolumeAvailable},
	}
	if err := b.st.Create(ctx, pv); err != nil {
		return nil, err
	}
	return pv, nil
}

// Run loops RunOnce at the configured interval until ctx is cancelled.
func (b *Binder) Run(ctx context.Context) {
	controllerutil.Forever(ctx, b.interval, "volume-binder", b.RunOnce)
}
