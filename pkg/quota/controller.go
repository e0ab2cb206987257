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
	"time"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/controllerutil"
	"github.com/DarsheeeGamer/kos/pkg/store"
)

// Controller recomputes status.used for every ResourceQuota on a timer
// (spec §4.G).
type Controller struct {
	st       *store.Store
	interval time.Duration
}

// New builds a Controller polling st every interval.
func New(st *store.Store, interval time.Duration) *Controller {
	return &Controller{st: st, interval: interval}
}

// RunOnce recomputes status.used for every ResourceQuota in the store,
// returning the number updated.
func (c *Controller) RunOnce(ctx context.Context) (int, error) {
	quotas, err := store.List[v1.ResourceQuota](ctx, c.st, v1.KindResourceQuota, "", nil)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, q := range quotas {
		podList, err := store.List[v1.Pod](ctx, c.st, v1.KindPod, q.ObjectMeta.Namespace, nil)
		if err != nil {
			return updated, err
		}
		used := sumNamespace(podList).toResourceQuotaList()
		if used == q.Status.Used {
			continue
		}
		q.Status.Used = used
		if err := c.st.Update(ctx, q); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// Run loops RunOnce at the configured interval until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	controllerutil.Forever(ctx, c.interval, "quota", c.RunOnce)
}
