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

// Package events implements the Event Recorder (spec §4.O): it coalesces
// repeated (involvedObject, reason, type) occurrences into a single Event
// with an incrementing count, and prunes old Events on a timer.
package events

import (
	"context"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/controllerutil"
	"github.com/DarsheeeGamer/kos/pkg/names"
	"github.com/DarsheeeGamer/kos/pkg/store"
)

// Recorder records Events against objects, coalescing repeats within a
// window and pruning them on a separate timer.
type Recorder struct {
	st             *store.Store
	coalesceWindow time.Duration
	normalTTL      time.Duration
	warningTTL     time.Duration
	now            func() time.Time
}

// New builds a Recorder. coalesceWindow bounds how recently a matching
// Event must have fired to be incremented rather than re-created;
// normalTTL/warningTTL bound how long Prune keeps finished Events of
// each severity (spec §4.O).
func New(st *store.Store, coalesceWindow, normalTTL, warningTTL time.Duration) *Recorder {
	return &Recorder{st: st, coalesceWindow: coalesceWindow, normalTTL: normalTTL, warningTTL: warningTTL, now: time.Now}
}

// Record coalesces an occurrence against an existing Event on the same
// (involvedObject.uid, reason, type) within the coalescing window, or
// creates a new one (spec §4.O).
func (r *Recorder) Record(ctx context.Context, obj v1.Object, eventType v1.EventType, reason, message string) error {
	meta := obj.GetObjectMeta()
	involved := v1.ObjectReference{
		Kind:      obj.GetTypeMeta().Kind,
		Namespace: meta.Namespace,
		Name:      meta.Name,
		UID:       meta.UID,
	}
	now := r.now()

	existing, err := store.List[v1.Event](ctx, r.st, v1.KindEvent, meta.Namespace, nil)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.InvolvedObject.UID != involved.UID || e.Reason != reason || e.Type != eventType {
			continue
		}
		if now.Sub(time.Unix(int64(e.LastTimestamp), 0)) > r.coalesceWindow {
			continue
		}
		e.Count++
		e.LastTimestamp = float64(now.Unix())
		e.Message = message
		if err := r.st.Update(ctx, e); err != nil {
			return err
		}
		log.FromContext(ctx).V(1).Info("event coalesced", "kind", involved.Kind, "name", involved.Name, "reason", reason, "count", e.Count)
		return nil
	}

	e := &v1.Event{
		ObjectMeta:     v1.ObjectMeta{Namespace: meta.Namespace, Name: names.Generate(reason)},
		InvolvedObject: involved,
		Type:           eventType,
		Reason:         reason,
		Message:        message,
		Count:          1,
		FirstTimestamp: float64(now.Unix()),
		LastTimestamp:  float64(now.Unix()),
	}
	if err := r.st.Create(ctx, e); err != nil {
		return err
	}
	log.FromContext(ctx).V(1).Info("event recorded", "kind", involved.Kind, "name", involved.Name, "reason", reason, "type", eventType)
	return nil
}

// PruneOnce deletes every Event past its severity's TTL, measured from
// lastTimestamp (spec §4.O: Normal events older than 1h, Warning/Error
// events older than 24h).
func (r *Recorder) PruneOnce(ctx context.Context) (int, error) {
	all, err := store.List[v1.Event](ctx, r.st, v1.KindEvent, "", nil)
	if err != nil {
		return 0, err
	}
	now := r.now()
	pruned := 0
	for _, e := range all {
		ttl := r.warningTTL
		if e.Type == v1.EventNormal {
			ttl = r.normalTTL
		}
		if now.Sub(time.Unix(int64(e.LastTimestamp), 0)) < ttl {
			continue
		}
		if err := r.st.Delete(ctx, v1.KindEvent, e.ObjectMeta.Namespace, e.ObjectMeta.Name); err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}

// Run prunes expired Events at the given interval until ctx is cancelled.
func (r *Recorder) Run(ctx context.Context, interval time.Duration) {
	controllerutil.Forever(ctx, interval, "event-prune", r.PruneOnce)
}
