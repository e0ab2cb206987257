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

package dnszone

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/controllerutil"
	"github.com/DarsheeeGamer/kos/pkg/services"
	"github.com/DarsheeeGamer/kos/pkg/store"
)

// Zone holds the current derived record set, safe for concurrent lookup
// while a refresh is in flight.
type Zone struct {
	st         *store.Store
	domain     string
	defaultTTL time.Duration

	mu      sync.RWMutex
	records map[string][]Record
}

// New builds a Zone deriving records under domain (e.g. "cluster.local"),
// stamping defaultTTL on every record absent a more specific one (spec
// §4.F: "TTL is the configured default (60s)").
func New(st *store.Store, domain string, defaultTTL time.Duration) *Zone {
	return &Zone{st: st, domain: domain, defaultTTL: defaultTTL, records: map[string][]Record{}}
}

// Lookup returns the records for a fully-qualified name, if any.
func (z *Zone) Lookup(name string) []Record {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.records[name]
}

// Refresh recomputes the entire record set from Services and Pods,
// removing records for a Service/Pod that no longer exists in the same
// pass (spec §4.F: "stale records ... are removed in the same pass").
func (z *Zone) Refresh(ctx context.Context) error {
	svcList, err := store.List[v1.Service](ctx, z.st, v1.KindService, "", nil)
	if err != nil {
		return err
	}
	podList, err := store.List[v1.Pod](ctx, z.st, v1.KindPod, "", nil)
	if err != nil {
		return err
	}

	ttl := int(z.defaultTTL.Seconds())
	next := map[string][]Record{}

	for _, pod := range podList {
		if pod.Status.PodIP == "" {
			continue
		}
		name := podFQDN(pod.ObjectMeta.Name, pod.ObjectMeta.Namespace, z.domain)
		next[name] = append(next[name], Record{Name: name, Type: RecordA, TTL: ttl, Target: pod.Status.PodIP})

		if pod.Spec.Hostname != "" && pod.Spec.Subdomain != "" {
			hn := hostnameSubdomainFQDN(pod.Spec.Hostname, pod.Spec.Subdomain, pod.ObjectMeta.Namespace, z.domain)
			next[hn] = append(next[hn], Record{Name: hn, Type: RecordA, TTL: ttl, Target: pod.Status.PodIP})
		}
	}

	for _, svc := range svcList {
		if svc.Spec.Type == v1.ServiceExternalName {
			continue
		}
		svcName := svcFQDN(svc.ObjectMeta.Name, svc.ObjectMeta.Namespace, z.domain)
		if svc.Spec.ClusterIP != "" {
			next[svcName] = append(next[svcName], Record{Name: svcName, Type: RecordA, TTL: ttl, Target: svc.Spec.ClusterIP})
		}
		next[svcName] = append(next[svcName], Record{
			Name: svcName, Type: RecordTXT, TTL: ttl,
			Target: fmt.Sprintf("name=%s namespace=%s uid=%s", svc.ObjectMeta.Name, svc.ObjectMeta.Namespace, svc.ObjectMeta.UID),
		})

		endpoints, err := services.ComputeEndpoints(ctx, z.st, svc)
		if err != nil {
			return err
		}
		for portName, addrs := range endpoints.Ports {
			if portName == "" {
				continue
			}
			srvName := srvFQDN(portName, svc.ObjectMeta.Name, svc.ObjectMeta.Namespace, z.domain)
			for _, a := range addrs {
				target := fmt.Sprintf("%s.%s.pod.%s", podDottedIP(a.PodIP), svc.ObjectMeta.Namespace, z.domain)
				next[srvName] = append(next[srvName], Record{
					Name: srvName, Type: RecordSRV, TTL: ttl,
					Priority: 0, Weight: 10, Port: a.TargetPort, Target: target,
				})
			}
		}
	}

	z.mu.Lock()
	z.records = next
	z.mu.Unlock()

	log.FromContext(ctx).V(1).Info("dns zone refreshed", "names", len(next))
	return nil
}

// Run loops Refresh at the configured interval until ctx is cancelled
// (spec §4.F: "refreshed every 30s").
func (z *Zone) Run(ctx context.Context, interval time.Duration) {
	controllerutil.Forever(ctx, interval, "dns-zone", func(ctx context.Context) (int, error) {
		return 0, z.Refresh(ctx)
	})
}
