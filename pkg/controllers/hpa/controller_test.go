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

package hpa

import (
	"context"
	"testing"
	"time"

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
				Spec:   v1.PodSpec{Containers: []v1.Container{{Name: "c", Image: "img"}}},
			},
		},
	}
	if err := st.Create(context.Background(), d); err != nil {
		t.Fatalf("create deployment: %v", err)
	}
	return d
}

func newRunningPod(t *testing.T, st *store.Store, name, cpuRequest, cpuUsage string) *v1.Pod {
	t.Helper()
	p := &v1.Pod{
		ObjectMeta: v1.ObjectMeta{Namespace: "default", Name: name, Labels: map[string]string{"app": "web"}},
		Spec: v1.PodSpec{
			Containers: []v1.Container{{
				Name:  "c",
				Image: "img",
				Resources: v1.ResourceRequirements{
					Requests: v1.ResourceList{CPU: cpuRequest},
				},
			}},
		},
	}
	if err := st.Create(context.Background(), p); err != nil {
		t.Fatalf("create pod: %v", err)
	}
	p.Status.Phase = v1.PodRunning
	p.Status.ResourceUsage = v1.ResourceList{CPU: cpuUsage}
	if err := st.Update(context.Background(), p); err != nil {
		t.Fatalf("update pod: %v", err)
	}
	return p
}

func newHPA(t *testing.T, st *store.Store, min, max, targetPercent int32) *v1.HorizontalPodAutoscaler {
	t.Helper()
	h := &v1.HorizontalPodAutoscaler{
		ObjectMeta: v1.ObjectMeta{Namespace: "default", Name: "web-hpa"},
		Spec: v1.HorizontalPodAutoscalerSpec{
			ScaleTargetRef:              v1.ScaleTargetRef{Kind: v1.KindDeployment, Name: "web"},
			MinReplicas:                 min,
			MaxReplicas:                 max,
			Metric:                      v1.MetricCPUUtilization,
			TargetUtilizationPercentage: targetPercent,
		},
	}
	if err := st.Create(context.Background(), h); err != nil {
		t.Fatalf("create hpa: %v", err)
	}
	return h
}

func TestReconcileScalesUpOnHighUtilization(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	newDeployment(t, st, 1)
	newRunningPod(t, st, "web-a", "500m", "450m") // 90% utilization
	c := New(st, 0)
	h := newHPA(t, st, 1, 5, 50)

	scaled, err := c.reconcile(ctx, h)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !scaled {
		t.Fatal("expected hpa to scale up")
	}
	d, err := store.Get[v1.Deployment](ctx, st, v1.KindDeployment, "default", "web")
	if err != nil {
		t.Fatalf("get deployment: %v", err)
	}
	if d.Spec.Replicas != 2 {
		t.Fatalf("expected replicas scaled to 2 (ceil(1*90/50)), got %d", d.Spec.Replicas)
	}
}

func TestReconcileClampsToMaxReplicas(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	newDeployment(t, st, 4)
	newRunningPod(t, st, "web-a", "500m", "450m")
	c := New(st, 0)
	h := newHPA(t, st, 1, 5, 50)

	if _, err := c.reconcile(ctx, h); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	d, err := store.Get[v1.Deployment](ctx, st, v1.KindDeployment, "default", "web")
	if err != nil {
		t.Fatalf("get deployment: %v", err)
	}
	if d.Spec.Replicas != 5 {
		t.Fatalf("expected replicas clamped to max 5, got %d", d.Spec.Replicas)
	}
}

func TestStabilizationWindowSuppressesScaleUp(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	newDeployment(t, st, 1)
	newRunningPod(t, st, "web-a", "500m", "450m")
	c := New(st, 0)
	c.now = func() time.Time { return time.Unix(1000, 0) }
	h := newHPA(t, st, 1, 5, 50)
	h.Spec.ScaleUpStabilizationSeconds = 60
	h.Status.LastScaleUpTime = 970 // 30s ago, inside the 60s window
	if err := st.Update(ctx, h); err != nil {
		t.Fatalf("update hpa: %v", err)
	}

	scaled, err := c.reconcile(ctx, h)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if scaled {
		t.Fatal("expected stabilization window to suppress the scale-up")
	}
}
