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

// Package hashutil computes the deterministic template-hash the
// Deployment controller uses to decide whether a new ReplicaSet revision
// is needed (spec §4.J: "a deterministic short digest of the Pod template
// after normalising key order").
package hashutil

import (
	"github.com/mitchellh/hashstructure/v2"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"k8s.io/apimachinery/pkg/util/rand"
)

// PodTemplate hashes a PodTemplateSpec to a short lowercase alphanumeric
// string (one character per decimal digit of the 32-bit sum, so 1 to 10
// characters), via hashstructure.Hash with SlicesAsSets so two
// templates whose slice-valued fields (env vars, volume mounts, ...) carry
// the same elements in a different order still hash equal.
func PodTemplate(tmpl v1.PodTemplateSpec) string {
	sum, err := hashstructure.Hash(tmpl, hashstructure.FormatV2, &hashstructure.HashOptions{SlicesAsSets: true})
	if err != nil {
		// Hash of a well-formed PodTemplateSpec cannot fail; treat it as an
		// internal invariant rather than plumbing an error return through
		// every call site.
		panic(err)
	}
	return rand.SafeEncodeString(uint32ToString(uint32(sum)))
}

func uint32ToString(n uint32) string {
	const digits = "0123456789"
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = digits[n%10]
		n /= 10
	}
	return string(buf[i:])
}
