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

// SecretType loosely mirrors the upstream convention; this implementation
// only interprets "Opaque" specially (SPEC_FULL.md §C.1).
type SecretType string

const SecretOpaque SecretType = "Opaque"

// Secret holds small amounts of sensitive data referenced by Pod
// envFrom/volumeMounts (SPEC_FULL.md §C.1, supplemented from
// kos/core/orchestration/secret.py). StringData is write-only convenience
// that the store folds into Data on create/update; Data values are never
// round-tripped back out through the object's JSON encoding and instead
// live in a sibling directory (pkg/store).
type Secret struct {
	TypeMeta   TypeMeta          `json:"-"`
	ObjectMeta ObjectMeta        `json:"metadata"`
	Type       SecretType        `json:"type,omitempty"`
	StringData map[string]string `json:"stringData,omitempty"`
	Data       map[string][]byte `json:"-"`
}

func (s *Secret) GetTypeMeta() TypeMeta      { return TypeMeta{Kind: KindSecret, APIVersion: "v1"} }
func (s *Secret) GetObjectMeta() *ObjectMeta { return &s.ObjectMeta }
