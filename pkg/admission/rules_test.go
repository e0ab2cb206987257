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

package admission

import (
	"context"
	"testing"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
)

func TestCheckNameDNS1123(t *testing.T) {
	cases := []struct {
		name  string
		allow bool
	}{
		{"web-server", true},
		{"a", true},
		{"Web-Server", false},
		{"-leading-dash", false},
		{"trailing-dash-", false},
		{"", false},
	}
	for _, tc := range cases {
		pod := &v1.Pod{ObjectMeta: v1.ObjectMeta{Name: tc.name}}
		allow, reason := checkNameDNS1123(pod)
		if allow != tc.allow {
			t.Errorf("name %q: got allow=%v reason=%q, want allow=%v", tc.name, allow, reason, tc.allow)
		}
	}
}

func TestCheckPodResources(t *testing.T) {
	cases := []struct {
		name  string
		cpu   string
		mem   string
		allow bool
	}{
		{"valid", "500m", "256Mi", true},
		{"zero cpu", "0", "256Mi", false},
		{"garbage mem", "100m", "lots", false},
		{"empty is ok", "", "", true},
	}
	for _, tc := range cases {
		pod := &v1.Pod{Spec: v1.PodSpec{Containers: []v1.Container{{
			Name: "c",
			Resources: v1.ResourceRequirements{
				Requests: v1.ResourceList{CPU: tc.cpu, Memory: tc.mem},
			},
		}}}}
		allow, reason := checkPodResources(pod)
		if allow != tc.allow {
			t.Errorf("%s: got allow=%v reason=%q, want allow=%v", tc.name, allow, reason, tc.allow)
		}
	}
}

func TestCheckServicePorts(t *testing.T) {
	svc := &v1.Service{Spec: v1.ServiceSpec{Ports: []v1.ServicePort{
		{Name: "http", Port: 80, TargetPort: "8080"},
		{Name: "named", Port: 81, TargetPort: "http"},
	}}}
	if allow, reason := checkServicePorts(svc); !allow {
		t.Fatalf("expected valid ports to pass, got reason %q", reason)
	}

	bad := &v1.Service{Spec: v1.ServiceSpec{Ports: []v1.ServicePort{{Name: "bad", Port: 70000}}}}
	if allow, _ := checkServicePorts(bad); allow {
		t.Fatal("expected out-of-range port to fail")
	}
}

func TestPipelineAdmitStopsOnFirstFailure(t *testing.T) {
	p := New()
	pod := &v1.Pod{
		ObjectMeta: v1.ObjectMeta{Name: "Bad_Name"},
		Spec:       v1.PodSpec{Containers: []v1.Container{{Name: "c", Image: "nginx"}}},
	}
	err := p.Admit(context.Background(), pod)
	if err == nil {
		t.Fatal("expected admission to reject an invalid name")
	}
}
