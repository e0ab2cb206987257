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

package deployment

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

func newDeployment(t *testing.T, st *store.Store, replicas int32) *v1.Deployment {
	t.Helper()
	d := &v1.Deployment{
		ObjectMeta: v1.ObjectMeta{Namespace: "default", Name: "web"},
		Spec: v1.DeploymentSpec{
			Replicas: replicas,
			Selector: map[string]string{"app": "web"},
			Template: v1.PodTemplateSpec{
				Labels: map[string]string{"app": "web"},
				Spec:   v1.PodSpec{Containers: []v1.Container{{Name: "c", Image: "img:v1"}}},
			},
			RevisionHistoryLimit: 2,
		},
	}
	if err := st.Create(context.Background(), d); err != nil {
		t.Fatalf("create deployment: %v", err)
	}
	return d
}

func TestReconcileCreatesCurrentRS(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	c := New(st, 0)
	d := newDeployment(t, st, 3)

	if _, err := c.reconcile(ctx, d); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	owned, err := c.owned(ctx, d)
	if err != nil {
		t.Fatalf("owned: %v", err)
	}
	if len(owned) != 1 {
		t.Fatalf("expected 1 owned RS, got %d", len(owned))
	}
	if owned[0].Spec.Replicas != 3 {
		t.Fatalf("expected current RS scaled to 3, got %d", owned[0].Spec.Replicas)
	}
}

func TestReconcileCreatesNewRSOnTemplateChange(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	c := New(st, 0)
	d := newDeployment(t, st, 2)

	if _, err := c.reconcile(ctx, d); err != nil {
		t.Fatalf("reconcile 1: %v", err)
	}

	d.Spec.Template.Spec.Containers[0].Image = "img:v2"
	if err := st.Update(ctx, d); err != nil {
		t.Fatalf("update deployment: %v", err)
	}
	if _, err := c.reconcile(ctx, d); err != nil {
		t.Fatalf("reconcile 2: %v", err)
	}

	owned, err := c.owned(ctx, d)
	if err != nil {
		t.Fatalf("owned: %v", err)
	}
	if len(owned) != 2 {
		t.Fatalf("expected 2 owned RSes (old + new), got %d", len(owned))
	}
}

func TestMin32(t *testing.T) {
	if min32(3, 5) != 3 {
		t.Fatal("min32(3,5) should be 3")
	}
	if min32(5, 3) != 3 {
		t.Fatal("min32(5,3) should be 3")
	}
}
