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

// Package quota implements the ResourceQuota controller and admission-time
// trial-sum check of spec §4.G. All arithmetic is integer millicores/bytes
// via pkg/quantity so usage never drifts from repeated float rounding
// (SPEC_FULL.md §C.5).
package quota

import (
	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/quantity"
)

// usage is the summed consumption of one namespace's Pods.
type usage struct {
	pods           int64
	requestsCPU    quantity.MilliCPU
	requestsMemory quantity.Bytes
	limitsCPU      quantity.MilliCPU
	limitsMemory   quantity.Bytes
}

// sumNamespace walks every non-terminal Pod in podList (already filtered
// to one namespace) and returns the total usage (spec §4.G: "every Pod
// ... whose phase is Running or Pending").
func sumNamespace(podList []*v1.Pod) usage {
	var u usage
	for _, p := range podList {
		if p.Status.Phase != v1.PodRunning && p.Status.Phase != v1.PodPending {
			continue
		}
		u.pods++
		for _, c := range p.Spec.Containers {
			if v, err := quantity.ParseCPU(c.Resources.Requests.CPU); err == nil {
				u.requestsCPU += v
			}
			if v, err := quantity.ParseMemory(c.Resources.Requests.Memory); err == nil {
				u.requestsMemory += v
			}
			if v, err := quantity.ParseCPU(c.Resources.Limits.CPU); err == nil {
				u.limitsCPU += v
			}
			if v, err := quantity.ParseMemory(c.Resources.Limits.Memory); err == nil {
				u.limitsMemory += v
			}
		}
	}
	return u
}

// toResourceQuotaList formats usage back into the string-keyed shape
// ResourceQuota.status.used carries, using the largest exact IEC unit
// (spec §4.G: "emission formats memory back with the largest IEC unit
// that divides evenly").
func (u usage) toResourceQuotaList() v1.ResourceQuotaList {
	return v1.ResourceQuotaList{
		Pods:           formatInt(u.pods),
		RequestsCPU:    quantity.FormatCPU(u.requestsCPU),
		RequestsMemory: quantity.FormatMemory(u.requestsMemory),
		LimitsCPU:      quantity.FormatCPU(u.limitsCPU),
		LimitsMemory:   quantity.FormatMemory(u.limitsMemory),
	}
}

func formatInt(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
