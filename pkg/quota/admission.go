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
	"context"
	"strconv"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/kerrors"
	"github.com/DarsheeeGamer/kos/pkg/quantity"
	"github.com/DarsheeeGamer/kos/pkg/store"
)

// Checker is called from the admission pipeline for every incoming Pod
// (spec §4.G: "on each admission of a Pod in a namespace that has at
// least one quota, a trial sum is computed"). It is kept separate from
// the built-in rule set in pkg/admission since it needs store access,
// unlike the pure per-object rules there.
type Checker struct {
	st *store.Store
}

// NewChecker builds a Checker reading quotas and Pods from st.
func NewChecker(st *store.Store) *Checker {
	return &Checker{st: st}
}

// Admit returns a Quota error if admitting pod would push any
// ResourceQuota in its namespace over spec.hard. Namespaces with no
// ResourceQuota objects are unconstrained.
func (c *Checker) Admit(ctx context.Context, pod *v1.Pod) error {
	quotas, err := store.List[v1.ResourceQuota](ctx, c.st, v1.KindResourceQuota, pod.ObjectMeta.Namespace, nil)
	if err != nil {
		return err
	}
	if len(quotas) == 0 {
		return nil
	}

	podList, err := store.List[v1.Pod](ctx, c.st, v1.KindPod, pod.ObjectMeta.Namespace, nil)
	if err != nil {
		return err
	}
	trial := append(podList, pod)
	used := sumNamespace(trial)

	for _, q := range quotas {
		if err := checkHard(q.Spec.Hard, used); err != nil {
			return err
		}
	}
	return nil
}

// checkHard compares used against one quota's hard limits, returning the
// first exceeded resource as a kerrors.Quota error.
func checkHard(hard v1.ResourceQuotaList, used usage) error {
	if hard.Pods != "" {
		if limit, err := strconv.ParseInt(hard.Pods, 10, 64); err == nil && used.pods > limit {
			return kerrors.Quota("pods", formatInt(used.pods), hard.Pods)
		}
	}
	if hard.RequestsCPU != "" {
		if limit, err := quantity.ParseCPU(hard.RequestsCPU); err == nil && used.requestsCPU > limit {
			return kerrors.Quota("requests.cpu", quantity.FormatCPU(used.requestsCPU), hard.RequestsCPU)
		}
	}
	if hard.RequestsMemory != "" {
		if limit, err := quantity.ParseMemory(hard.RequestsMemory); err == nil && used.requestsMemory > limit {
			return kerrors.Quota("requests.memory", quantity.FormatMemory(used.requestsMemory), hard.RequestsMemory)
		}
	}
	if hard.LimitsCPU != "" {
		if limit, err := quantity.ParseCPU(hard.LimitsCPU); err == nil && used.limitsCPU > limit {
			return kerrors.Quota("limits.cpu", quantity.FormatCPU(used.limitsCPU), hard.LimitsCPU)
		}
	}
	if hard.LimitsMemory != "" {
		if limit, err := quantity.ParseMemory(hard.LimitsMemory); err == nil && used.limitsMemory > limit {
			return kerrors.Quota("limits.memory", quantity.FormatMemory(used.limitsMemory), hard.LimitsMemory)
		}
	}
	return nil
}
