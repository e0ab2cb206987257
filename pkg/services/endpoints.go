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

package services

import (
	"context"
	"sort"
	"strconv"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/store"
)

// ComputeEndpoints derives the live Endpoints for svc (spec §4.E:
// "recomputed on every Service/Pod change"). Endpoints are never
// persisted as a distinct stored kind (spec §3); callers (the DNS zone,
// an admin-surface lookup) call this on demand instead of reading it back
// from the store.
func ComputeEndpoints(ctx context.Context, st *store.Store, svc *v1.Service) (*v1.Endpoints, error) {
	if svc.Spec.Type == v1.ServiceExternalName {
		return &v1.Endpoints{ServiceName: svc.ObjectMeta.Name, Namespace: svc.ObjectMeta.Namespace}, nil
	}

	podList, err := store.List[v1.Pod](ctx, st, v1.KindPod, svc.ObjectMeta.Namespace, svc.Spec.Selector)
	if err != nil {
		return nil, err
	}

	matching := make([]*v1.Pod, 0, len(podList))
	for _, p := range podList {
		if p.Status.Phase == v1.PodRunning && p.Status.PodIP != "" {
			matching = append(matching, p)
		}
	}
	sort.Slice(matching, func(i, j int) bool { return matching[i].ObjectMeta.Name < matching[j].ObjectMeta.Name })

	ports := map[string][]v1.EndpointAddress{}
	for _, svcPort := range svc.Spec.Ports {
		for _, pod := range matching {
			targetPort, ok := resolveTargetPort(pod, svcPort.TargetPort)
			if !ok {
				continue
			}
			ports[svcPort.Name] = append(ports[svcPort.Name], v1.EndpointAddress{
				PodIP:      pod.Status.PodIP,
				PodName:    pod.ObjectMeta.Name,
				TargetPort: targetPort,
				Ready:      pod.Status.AllReady(),
			})
		}
	}

	return &v1.Endpoints{ServiceName: svc.ObjectMeta.Name, Namespace: svc.ObjectMeta.Namespace, Ports: ports}, nil
}

// resolveTargetPort resolves a Service's targetPort (an integer, or a
// name referencing a container port) against one Pod.
func resolveTargetPort(pod *v1.Pod, targetPort string) (int32, bool) {
	if n, err := strconv.Atoi(targetPort); err == nil {
		return int32(n), true
	}
	for _, c := range pod.Spec.Containers {
		for _, p := range c.Ports {
			if p.Name == targetPort {
				return p.ContainerPort, true
			}
		}
	}
	return 0, false
}
