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

// Package names generates the short-random child object names the
// ReplicaSet, StatefulSet, and Job controllers assign (spec §4.I: "a name
// `<rs>-<short-random>`").
package names

import "k8s.io/apimachinery/pkg/util/rand"

// suffixLength matches the five-character random suffix convention the
// controllers use.
const suffixLength = 5

// Generate returns "<prefix>-<suffix>" with a short lowercase-alphanumeric
// random suffix.
func Generate(prefix string) string {
	return prefix + "-" + rand.String(suffixLength)
}
