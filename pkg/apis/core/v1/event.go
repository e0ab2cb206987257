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

package v1

// EventType is Normal, Warning, or Error (spec §3, §4.O).
type EventType string

const (
	EventNormal  EventType = "Normal"
	EventWarning EventType = "Warning"
	EventError   EventType = "Error"
)

// Event records a single thing that happened to an object, coalesced by
// (involvedObject, reason, type) within a window (spec §3, §4.O).
type Event struct {
	TypeMeta       TypeMeta        `json:"-"`
	ObjectMeta     ObjectMeta      `json:"metadata"`
	InvolvedObject ObjectReference `json:"involvedObject"`
	Type           EventType       `json:"type"`
	Reason         string          `json:"reason"`
	Message        string          `json:"message"`
	Source         string          `json:"source,omitempty"`
	Count          int32           `json:"count"`
	FirstTimestamp float64         `json:"firstTimestamp"`
	LastTimestamp  float64         `json:"lastTimestamp"`
}

func (e *Event) GetTypeMeta() TypeMeta      { return TypeMeta{Kind: KindEvent, APIVersion: "v1"} }
func (e *Event) GetObjectMeta() *ObjectMeta { return &e.ObjectMeta }
