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

package hashutil

import (
	"testing"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
)

func TestPodTemplateIsDeterministic(t *testing.T) {
	tmpl := v1.PodTemplateSpec{
		Labels: map[string]string{"app": "web"},
		Spec:   v1.PodSpec{Containers: []v1.Container{{Name: "c", Image: "img:v1"}}},
	}
	if PodTemplate(tmpl) != PodTemplate(tmpl) {
		t.Fatal("expected identical templates to hash identically")
	}
}

func TestPodTemplateChangesWithImage(t *testing.T) {
	a := v1.PodTemplateSpec{Spec: v1.PodSpec{Containers: []v1.Container{{Name: "c", Image: "img:v1"}}}}
	b := v1.PodTemplateSpec{Spec: v1.PodSpec{Containers: []v1.Container{{Name: "c", Image: "img:v2"}}}}
	if PodTemplate(a) == PodTemplate(b) {
		t.Fatal("expected differing templates to hash differently")
	}
}
