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

package quota

import (
	"testing"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
)

func pod(phase v1.PodPhase, cpuReq, memReq string) *v1.Pod {
	return &v1.Pod{
		Status: v1.PodStatus{Phase: phase},
		Spec: v1.PodSpec{Containers: []v1.Container{
			{Resources: v1.ResourceRequirements{Requests: v1.ResourceList{CPU: cpuReq, Memory: memReq}}},
		}},
	}
}

func TestSumNamespaceSkipsTerminalPods(t *testing.T) {
	pods := []*v1.Pod{
		pod(v1.PodRunning, "500m", "128Mi"),
		pod(v1.PodPending, "250m", "64Mi"),
		pod(v1.PodSucceeded, "1000m", "1Gi"),
		pod(v1.PodFailed, "1000m", "1Gi"),
	}
	u := sumNamespace(pods)
	if u.pods != 2 {
		t.Fatalf("pods = %d, want 2", u.pods)
	}
	if u.requestsCPU != 750 {
		t.Fatalf("requestsCPU = %d, want 750m", u.requestsCPU)
	}
	if u.requestsMemory != 192<<20 {
		t.Fatalf("requestsMemory = %d, want %d", u.requestsMemory, 192<<20)
	}
}

func TestToResourceQuotaListFormatsLargestUnit(t *testing.T) {
	u := usage{pods: 3, requestsMemory: 2 << 30}
	list := u.toResourceQuotaList()
	if list.Pods != "3" {
		t.Fatalf("Pods = %s", list.Pods)
	}
	if list.RequestsMemory != "2Gi" {
		t.Fatalf("RequestsMemory = %s", list.RequestsMemory)
	}
}

func TestCheckHardRejectsExceededCPU(t *testing.T) {
	hard := v1.ResourceQuotaList{RequestsCPU: "1"}
	used := usage{requestsCPU: 1500}
	if err := checkHard(hard, used); err == nil {
		t.Fatal("expected quota error")
	}
}

func TestCheckHardAllowsWithinLimit(t *testing.T) {
	hard := v1.ResourceQuotaList{RequestsCPU: "2"}
	used := usage{requestsCPU: 1500}
	if err := checkHard(hard, used); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
