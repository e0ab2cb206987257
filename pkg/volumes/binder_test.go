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
	"testing"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return st
}

func TestCompatibleRejectsSmallerCapacity(t *testing.T) {
	pv := &v1.PersistentVolume{Spec: v1.PersistentVolumeSpec{Capacity: "1Gi", AccessModes: []v1.AccessMode{v1.ReadWriteOnce}}}
	pvc := &v1.PersistentVolumeClaim{Spec: v1.PersistentVolumeClaimSpec{
		AccessModes: []v1.AccessMode{v1.ReadWriteOnce}, Resources: v1.ResourceList{Memory: "2Gi"},
	}}
	if compatible(pv, pvc) {
		t.Fatal("expected incompatible: PV smaller than requested")
	}
}

func TestCompatibleRequiresAccessModeSubset(t *testing.T) {
	pv := &v1.PersistentVolume{Spec: v1.PersistentVolumeSpec{Capacity: "1Gi", AccessModes: []v1.AccessMode{v1.ReadOnlyMany}}}
	pvc := &v1.PersistentVolumeClaim{Spec: v1.PersistentVolumeClaimSpec{
		AccessModes: []v1.AccessMode{v1.ReadWriteOnce}, Resources: v1.ResourceList{Memory: "512Mi"},
	}}
	if compatible(pv, pvc) {
		t.Fatal("expected incompatible: access mode not offered by PV")
	}
}

func TestBindOneBindsFirstCompatibleAvailablePV(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	b := New(st, 0)

	pvA := &v1.PersistentVolume{ObjectMeta: v1.ObjectMeta{Name: "pv-b"}, Spec: v1.PersistentVolumeSpec{Capacity: "1Gi", AccessModes: []v1.AccessMode{v1.ReadWriteOnce}}, Status: v1.PersistentVolumeStatus{Phase: v1.VolumeAvailable}}
	pvB := &v1.PersistentVolume{ObjectMeta: v1.ObjectMeta{Name: "pv-a"}, Spec: v1.PersistentVolumeSpec{Capacity: "1Gi", AccessModes: []v1.AccessMode{v1.ReadWriteOnce}}, Status: v1.PersistentVolumeStatus{Phase: v1.VolumeAvailable}}
	if err := st.Create(ctx, pvA); err != nil {
		t.Fatal(err)
	}
	if err := st.Create(ctx, pvB); err != nil {
		t.Fatal(err)
	}

	pvc := &v1.PersistentVolumeClaim{
		ObjectMeta: v1.ObjectMeta{Namespace: "default", Name: "claim"},
		Spec:       v1.PersistentVolumeClaimSpec{AccessModes: []v1.AccessMode{v1.ReadWriteOnce}, Resources: v1.ResourceList{Memory: "512Mi"}},
	}
	if err := st.Create(ctx, pvc); err != nil {
		t.Fatal(err)
	}

	ok, err := b.bindOne(ctx, pvc)
	if err != nil {
		t.Fatalf("bindOne: %v", err)
	}
	if !ok {
		t.Fatal("expected a bind")
	}
	if pvc.Status.VolumeName != "pv-a" {
		t.Fatalf("expected ascending-name tie-break to pick pv-a, got %s", pvc.Status.VolumeName)
	}
}
