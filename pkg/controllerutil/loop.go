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
	"time"

	"github.com/avast/retry-go"
	"k8s.io/apimachinery/pkg/util/wait"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/DarsheeeGamer/kos/pkg/kerrors"
)

// Reconcile is one controller's full-resync pass, returning the number of
// objects it changed.
type Reconcile func(ctx context.Context) (int, error)

// Forever runs fn every interval until ctx's done channel closes. A tick
// that fails with a retryable error (spec §7: Conflict, Timeout, Internal)
// is retried a few times with backoff before the controller just waits for
// the next tick, rather than either looping tightly on a transient error
// or silently dropping it for a whole interval.
func Forever(ctx context.Context, interval time.Duration, name string, fn Reconcile) {
	wait.Until(func() {
		var changed int
		err := retry.Do(
			func() error {
				n, err := fn(ctx)
				changed = n
				return err
			},
			retry.Context(ctx),
			retry.Attempts(3),
			retry.Delay(100*time.Millisecond),
			retry.LastErrorOnly(true),
			retry.RetryIf(kerrors.Retryable),
		)
		if err != nil {
			log.FromContext(ctx).Error(err, name+" reconcile failed")
			return
		}
		if changed > 0 {
			log.FromContext(ctx).V(1).Info(name+" reconcile tick", "changed", changed)
		}
	}, interval, ctx.Done())
}
