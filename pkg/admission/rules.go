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

// Package admission implements the admission pipeline of spec §4.B: an
// ordered, kind-grouped rule chain followed by an optional webhook stage,
// called on every Create/Update before the Object Store mutates.
package admission

import (
	"fmt"
	"regexp"
	"strconv"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/quantity"
)

var (
	dns1123Label = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)
	imagePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._/-]*(:[a-zA-Z0-9._-]+)?$`)
)

// Rule validates one object, returning a non-empty reason on rejection
// (spec §4.B: "{allow, reason?}").
type Rule struct {
	Name  string
	Kinds []v1.Kind
	Check func(obj v1.Object) (allow bool, reason string)
}

// Builtins is the normative rule list of spec §4.B, in the order they
// run.
func Builtins() []Rule {
	return []Rule{
		{Name: "NameDNS1123", Kinds: []v1.Kind{v1.KindPod, v1.KindService, v1.KindDeployment, v1.KindStatefulSet, v1.KindPersistentVolumeClaim}, Check: checkNameDNS1123},
		{Name: "PodResources", Kinds: []v1.Kind{v1.KindPod}, Check: checkPodResources},
		{Name: "PodImage", Kinds: []v1.Kind{v1.KindPod}, Check: checkPodImage},
		{Name: "ServicePorts", Kinds: []v1.Kind{v1.KindService}, Check: checkServicePorts},
		{Name: "DeploymentReplicas", Kinds: []v1.Kind{v1.KindDeployment}, Check: checkDeploymentReplicas},
		{Name: "StatefulSetService", Kinds: []v1.Kind{v1.KindStatefulSet}, Check: checkStatefulSetService},
		{Name: "PVCSize", Kinds: []v1.Kind{v1.KindPersistentVolumeClaim}, Check: checkPVCSize},
	}
}

func checkNameDNS1123(obj v1.Object) (bool, string) {
	name := obj.GetObjectMeta().Name
	if len(name) > 253 || !dns1123Label.MatchString(name) {
		return false, fmt.Sprintf("name %q is not a valid DNS-1123 label", name)
	}
	return true, ""
}

func podContainers(obj v1.Object) ([]v1.Container, bool) {
	pod, ok := obj.(*v1.Pod)
	if !ok {
		return nil, false
	}
	return pod.Spec.Containers, true
}

func checkPodResources(obj v1.Object) (bool, string) {
	containers, ok := podContainers(obj)
	if !ok {
		return true, ""
	}
	for _, c := range containers {
		if cpu := c.Resources.Requests.CPU; cpu != "" {
			if _, err := quantity.ParseCPU(cpu); err != nil {
				return false, fmt.Sprintf("container %q: invalid cpu request %q: %v", c.Name, cpu, err)
			}
		}
		if mem := c.Resources.Requests.Memory; mem != "" {
			if _, err := quantity.ParseMemory(mem); err != nil {
				return false, fmt.Sprintf("container %q: invalid memory request %q: %v", c.Name, mem, err)
			}
		}
		if cpu := c.Resources.Limits.CPU; cpu != "" {
			if _, err := quantity.ParseCPU(cpu); err != nil {
				return false, fmt.Sprintf("container %q: invalid cpu limit %q: %v", c.Name, cpu, err)
			}
		}
		if mem := c.Resources.Limits.Memory; mem != "" {
			if _, err := quantity.ParseMemory(mem); err != nil {
				return false, fmt.Sprintf("container %q: invalid memory limit %q: %v", c.Name, mem, err)
			}
		}
	}
	return true, ""
}

func checkPodImage(obj v1.Object) (bool, string) {
	containers, ok := podContainers(obj)
	if !ok {
		return true, ""
	}
	for _, c := range containers {
		if c.Image == "" || !imagePattern.MatchString(c.Image) {
			return false, fmt.Sprintf("container %q: invalid image %q", c.Name, c.Image)
		}
	}
	return true, ""
}

func checkServicePorts(obj v1.Object) (bool, string) {
	svc, ok := obj.(*v1.Service)
	if !ok {
		return true, ""
	}
	for _, p := range svc.Spec.Ports {
		if p.Port < 1 || p.Port > 65535 {
			return false, fmt.Sprintf("port %q: port %d out of range", p.Name, p.Port)
		}
		if p.TargetPort != "" {
			if n, err := strconv.Atoi(p.TargetPort); err == nil {
				if n < 1 || n > 65535 {
					return false, fmt.Sprintf("port %q: targetPort %d out of range", p.Name, n)
				}
			}
			// A non-numeric targetPort names a container port; resolving
			// that reference against the backing Pods happens in
			// pkg/services at Endpoints-computation time, not here.
		}
		if p.NodePort != 0 && (p.NodePort < 1 || p.NodePort > 65535) {
			return false, fmt.Sprintf("port %q: nodePort %d out of range", p.Name, p.NodePort)
		}
	}
	return true, ""
}

func checkDeploymentReplicas(obj v1.Object) (bool, string) {
	d, ok := obj.(*v1.Deployment)
	if !ok {
		return true, ""
	}
	if d.Spec.Replicas < 0 {
		return false, fmt.Sprintf("replicas %d must be >= 0", d.Spec.Replicas)
	}
	return true, ""
}

func checkStatefulSetService(obj v1.Object) (bool, string) {
	ss, ok := obj.(*v1.StatefulSet)
	if !ok {
		return true, ""
	}
	if ss.Spec.Replicas < 0 {
		return false, fmt.Sprintf("replicas %d must be >= 0", ss.Spec.Replicas)
	}
	if ss.Spec.ServiceName != "" && !dns1123Label.MatchString(ss.Spec.ServiceName) {
		return false, fmt.Sprintf("serviceName %q is not a valid DNS label", ss.Spec.ServiceName)
	}
	return true, ""
}

// checkPVCSize validates requests.storage. PersistentVolumeClaimSpec
// reuses ResourceList's Memory field to carry the storage quantity: both
// are IEC byte amounts parsed the same way, and a PVC has no cpu/memory
// requests of its own to need a separate field for.
func checkPVCSize(obj v1.Object) (bool, string) {
	pvc, ok := obj.(*v1.PersistentVolumeClaim)
	if !ok {
		return true, ""
	}
	storage := pvc.Spec.Resources.Memory
	if _, err := quantity.ParseMemory(storage); err != nil {
		return false, fmt.Sprintf("requests.storage %q: %v", storage, err)
	}
	return true, ""
}
