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

// Package quantity is the single shared parser/formatter for the two
// quantity grammars used throughout admission, quota accounting, and the
// HPA control law (spec §9 design note): cpu (integer millicores or a
// decimal core count) and memory (integer bytes, or integer with an IEC
// Ki/Mi/Gi/Ti suffix). Every call site routes through here so the two
// grammars are parsed and rendered exactly one way.
package quantity

import (
	"fmt"

	"k8s.io/apimachinery/pkg/api/resource"
)

// MilliCPU is a CPU quantity expressed in millicores (1000 == 1 core).
// Representing CPU as an integer millicore count, rather than a float,
// keeps quota accounting exact (SPEC_FULL.md §C.5).
type MilliCPU int64

// Bytes is a memory quantity expressed in bytes.
type Bytes int64

// ParseCPU parses a cpu quantity ("500m" or "0.5" or "2") into millicores.
// Returns an error for non-positive or unparsable values, matching the
// PodResources admission rule (spec §4.B).
func ParseCPU(s string) (MilliCPU, error) {
	q, err := resource.ParseQuantity(s)
	if err != nil {
		return 0, fmt.Errorf("invalid cpu quantity %q: %w", s, err)
	}
	milli := q.MilliValue()
	if milli <= 0 {
		return 0, fmt.Errorf("cpu quantity %q must be positive", s)
	}
	return MilliCPU(milli), nil
}

// ParseMemory parses a memory quantity ("128Mi", "2Gi", "1048576") into
// bytes. Returns an error for non-positive or unparsable values.
func ParseMemory(s string) (Bytes, error) {
	q, err := resource.ParseQuantity(s)
	if err != nil {
		return 0, fmt.Errorf("invalid memory quantity %q: %w", s, err)
	}
	b, ok := q.AsInt64()
	if !ok || b <= 0 {
		return 0, fmt.Errorf("memory quantity %q must be a positive integer byte count", s)
	}
	return Bytes(b), nil
}

// FormatCPU renders millicores back as a cpu quantity string: a plain core
// count for whole cores, and the millicore suffix otherwise.
func FormatCPU(m MilliCPU) string {
	if m%1000 == 0 {
		return fmt.Sprintf("%d", m/1000)
	}
	return fmt.Sprintf("%dm", m)
}

// iecUnits lists the IEC suffixes from largest to smallest so FormatMemory
// can pick the largest unit the byte count divides evenly by.
var iecUnits = []struct {
	suffix string
	size   int64
}{
	{"Ti", 1 << 40},
	{"Gi", 1 << 30},
	{"Mi", 1 << 20},
	{"Ki", 1 << 10},
}

// FormatMemory renders bytes back using the largest IEC unit that divides
// the value evenly, falling back to a plain byte count (spec §4.G).
func FormatMemory(b Bytes) string {
	for _, u := range iecUnits {
		if int64(b) != 0 && int64(b)%u.size == 0 {
			return fmt.Sprintf("%d%s", int64(b)/u.size, u.suffix)
		}
	}
	return fmt.Sprintf("%d", int64(b))
}

// AddCPU and AddMemory exist so call sites summing requests across
// containers/pods don't need to know the underlying representation.
func AddCPU(a, b MilliCPU) MilliCPU       { return a + b }
func AddMemory(a, b Bytes) Bytes          { return a + b }
func SubCPU(a, b MilliCPU) MilliCPU       { return a - b }
func SubMemory(a, b Bytes) Bytes          { return a - b }
