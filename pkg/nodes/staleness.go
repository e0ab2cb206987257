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

package nodes

import (
	"context"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/controllerutil"
	"github.com/DarsheeeGamer/kos/pkg/store"
)

// StalenessScanner periodically flips Ready to Unknown for any Node
// (potentially registered by a different process sharing the same
// store) whose Ready condition hasn't been heartbeat-refreshed in
// heartbeatInterval * staleMultiplier (spec §4.C: "not heartbeat-updated
// for >3x cadence transitions Ready to Unknown").
type StalenessScanner struct {
	st                *store.Store
	heartbeatInterval time.Duration
	staleMultiplier   int
}

// NewStalenessScanner builds a scanner with the given heartbeat cadence
// and multiplier.
func NewStalenessScanner(st *store.Store, heartbeatInterval time.Duration, staleMultiplier int) *StalenessScanner {
	return &StalenessScanner{st: st, heartbeatInterval: heartbeatInterval, staleMultiplier: staleMultiplier}
}

// ScanOnce lists every Node and marks Ready=Unknown for the ones that
// have gone stale, returning how many were updated.
func (s *StalenessScanner) ScanOnce(ctx context.Context, now time.Time) (int, error) {
	nodeList, err := store.List[v1.Node](ctx, s.st, v1.KindNode, "", nil)
	if err != nil {
		return 0, err
	}

	staleAfter := s.heartbeatInterval * time.Duration(s.staleMultiplier)
	updated := 0
	for _, node := range nodeList {
		if !node.HeartbeatStale(now, staleAfter) {
			continue
		}
		ready, ok := node.Status.Condition(v1.NodeReady)
		if ok && ready.Status == v1.ConditionUnknown {
			continue
		}
		for i := range node.Status.Conditions {
			if node.Status.Conditions[i].Type == v1.NodeReady {
				node.Status.Conditions[i].Status = v1.ConditionUnknown
				node.Status.Conditions[i].Reason = "NodeStatusUnknown"
				node.Status.Conditions[i].LastTransitionTime = float64(now.Unix())
			}
		}
		if err := s.st.Update(ctx, node); err != nil {
			return updated, err
		}
		log.FromContext(ctx).WithValues("node", node.ObjectMeta.Name).Info("node heartbeat stale, marking Ready=Unknown")
		updated++
	}
	return updated, nil
}

// Run loops ScanOnce at heartbeatInterval until ctx is cancelled.
func (s *StalenessScanner) Run(ctx context.Context) {
	controllerutil.Forever(ctx, s.heartbeatInterval, "node-staleness", func(ctx context.Context) (int, error) {
		return s.ScanOnce(ctx, time.Now())
	})
}
