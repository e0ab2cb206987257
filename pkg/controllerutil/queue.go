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

package controllerutil

import (
	"context"
	"sync"

	"k8s.io/client-go/util/workqueue"
	"sigs.k8s.io/controller-runtime/pkg/log"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/store"
)

// ReconcileKey reconciles the single object identified by namespace/name.
// A deleted object (reconcile finds nothing left to do) is not an error.
type ReconcileKey func(ctx context.Context, namespace, name string) error

// objKey is a queue item: a namespace/name pair, independent of kind since
// each WatchQueue call only ever watches one kind.
type objKey struct{ namespace, name string }

// WatchQueue feeds a rate-limited workqueue from a store watch on kind, so
// a burst of Create/Update against the same object collapses into one
// reconcile of its key instead of one per event, and a failing reconcile
// backs off instead of wedging the whole queue behind it (spec §4.I/§4.J:
// the ReplicaSet and Deployment controllers react to changes of their own
// objects between full-resync ticks). Only kind itself is watched, not
// child Pods. Deleted events carry no object and are not queued. Blocks
// until ctx is cancelled.
func WatchQueue(ctx context.Context, st *store.Store, kind v1.Kind, workers int, reconcile ReconcileKey) {
	q := workqueue.NewRateLimitingQueue(workqueue.DefaultControllerRateLimiter())
	go func() {
		<-ctx.Done()
		q.ShutDown()
	}()

	events := st.Watch(ctx, kind)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.Object == nil {
					continue
				}
				meta := ev.Object.GetObjectMeta()
				q.Add(objKey{namespace: meta.Namespace, name: meta.Name})
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for processNextQueueItem(ctx, q, reconcile) {
			}
		}()
	}
	wg.Wait()
}

func processNextQueueItem(ctx context.Context, q workqueue.RateLimitingInterface, reconcile ReconcileKey) bool {
	item, shutdown := q.Get()
	if shutdown {
		return false
	}
	defer q.Done(item)

	k := item.(objKey)
	if err := reconcile(ctx, k.namespace, k.name); err != nil {
		log.FromContext(ctx).Error(err, "queued reconcile failed, requeuing", "namespace", k.namespace, "name", k.name)
		q.AddRateLimited(item)
		return true
	}
	q.Forget(item)
	return true
}
