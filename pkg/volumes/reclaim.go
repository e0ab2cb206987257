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

package volumes

import (
	"context"
	"os"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/store"
)

// Reclaim runs the unbind path for a PV whose claim has just been deleted
// (spec §4.H: "Unbind (on PVC delete): follow reclaimPolicy"). No code in
// this module calls it: deleting a PVC from the store leaves its bound PV
// as it was until Reclaim is run for that PV.
func Reclaim(ctx context.Context, st *store.Store, pvName string) error {
	pv, err := store.Get[v1.PersistentVolume](ctx, st, v1.KindPersistentVolume, "", pvName)
	if err != nil {
		return nil // PV already gone: nothing to reclaim
	}
	if pv.Status.Phase != v1.VolumeBound {
		return nil
	}

	switch pv.Spec.ReclaimPolicy {
	case v1.ReclaimDelete:
		if pv.Spec.HostPath != "" {
			if err := os.RemoveAll(pv.Spec.HostPath); err != nil {
				return err
			}
		}
		return st.Delete(ctx, v1.KindPersistentVolume, "", pvName)

	case v1.ReclaimRecycle:
		if pv.Spec.HostPath != "" {
			if err := emptyDir(pv.Spec.HostPath); err != nil {
				return err
			}
		}
		pv.Status.Phase = v1.VolumeAvailable
		pv.Spec.ClaimRef = nil
		return st.Update(ctx, pv)

	default: // Retain, and the empty-string default
		pv.Status.Phase = v1.VolumeReleased
		pv.Spec.ClaimRef = nil
		return st.Update(ctx, pv)
	}
}

// emptyDir removes every entry under dir without removing dir itself,
// so a Recycled PV's hostPath is reusable immediately.
func emptyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(dir + "/" + e.Name()); err != nil {
			return err
		}
	}
	return nil
}
