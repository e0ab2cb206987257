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

package store

import (
	"context"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
)

// WatchEventType classifies a WatchEvent (spec §4.A: "watch(kind) ->
// stream (optional; polling is acceptable)"). This implementation chooses
// a push-based stream driven directly off Create/Update/Delete rather
// than polling, since it costs little and controllers react faster.
type WatchEventType string

const (
	watchAdded    WatchEventType = "Added"
	watchModified WatchEventType = "Modified"
	watchDeleted  WatchEventType = "Deleted"
)

// WatchEvent is delivered to a Watch subscriber. Object is nil for
// Deleted events.
type WatchEvent struct {
	Type   WatchEventType
	Object v1.Object
}

// watcher is one subscriber's channel, closed and dropped when its
// context is done.
type watcher struct {
	ch chan WatchEvent
}

// Watch returns a channel of events for the given kind. The channel is
// closed when ctx is cancelled. Sends are non-blocking: a slow consumer
// misses events rather than stalling Create/Update/Delete, matching the
// "polling is acceptable" tolerance for a lossy stream.
func (s *Store) Watch(ctx context.Context, kind v1.Kind) <-chan WatchEvent {
	w := &watcher{ch: make(chan WatchEvent, 64)}

	unlock := s.watchersMu.lock(string(kind))
	s.watchers[kind] = append(s.watchers[kind], w)
	unlock()

	go func() {
		<-ctx.Done()
		unlock := s.watchersMu.lock(string(kind))
		defer unlock()
		list := s.watchers[kind]
		for i, cur := range list {
			if cur == w {
				s.watchers[kind] = append(list[:i], list[i+1:]...)
				break
			}
		}
		close(w.ch)
	}()

	return w.ch
}

func (s *Store) notify(kind v1.Kind, typ WatchEventType, obj v1.Object) {
	unlock := s.watchersMu.lock(string(kind))
	subs := append([]*watcher(nil), s.watchers[kind]...)
	unlock()

	for _, w := range subs {
		select {
		case w.ch <- WatchEvent{Type: typ, Object: obj}:
		default:
		}
	}
}
