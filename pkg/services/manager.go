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
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/controllerutil"
	"github.com/DarsheeeGamer/kos/pkg/store"
)

// Manager allocates ClusterIPs/NodePorts/external IPs on Service create
// and persists through the Object Store (spec §4.E). It also runs a
// periodic reconciler, in the shape of the PV binder's RunOnce, catching
// any Service written straight to the store (bypassing Create) that is
// still missing the addresses its Type requires.
type Manager struct {
	st           *store.Store
	serviceCIDR  string
	externalCIDR string
	nodePortLow  int32
	nodePortHigh int32
	interval     time.Duration
}

// NewManager builds a Manager with the CIDRs/NodePort range from config,
// reconciling unallocated Services every interval.
func NewManager(st *store.Store, serviceCIDR, externalCIDR string, nodePortLow, nodePortHigh int32, interval time.Duration) *Manager {
	return &Manager{st: st, serviceCIDR: serviceCIDR, externalCIDR: externalCIDR, nodePortLow: nodePortLow, nodePortHigh: nodePortHigh, interval: interval}
}

// Create allocates addresses for svc according to its Type, then creates
// it in the store. Only a stable allocation once; Update never reassigns
// (spec §4.E: "clusterIP is allocated once ... and is stable").
func (m *Manager) Create(ctx context.Context, svc *v1.Service) error {
	if svc.Spec.Type == v1.ServiceExternalName {
		return m.st.Create(ctx, svc)
	}

	existing, err := store.List[v1.Service](ctx, m.st, v1.KindService, "", nil)
	if err != nil {
		return err
	}
	if err := m.allocate(svc, existing); err != nil {
		return err
	}

	log.FromContext(ctx).WithValues("service", svc.ObjectMeta.Name, "clusterIP", svc.Spec.ClusterIP).Info("allocated service addresses")
	return m.st.Create(ctx, svc)
}

// allocate fills in whatever svc's Type still needs, given existing as
// the already-allocated addresses to avoid colliding with. It is a no-op
// for a Service that already carries everything its Type requires, so
// Create and RunOnce can share it without double-allocating.
func (m *Manager) allocate(svc *v1.Service, existing []*v1.Service) error {
	if svc.Spec.Type == v1.ServiceExternalName {
		return nil
	}

	if svc.Spec.ClusterIP == "" {
		ip, err := allocateIP(m.serviceCIDR, usedClusterIPs(existing))
		if err != nil {
			return err
		}
		svc.Spec.ClusterIP = ip
	}

	used := usedNodePorts(existing)
	for i, p := range svc.Spec.Ports {
		needsNodePort := svc.Spec.Type == v1.ServiceNodePort || svc.Spec.Type == v1.ServiceLoadBalancer
		if needsNodePort && p.NodePort == 0 {
			np, err := allocateNodePort(m.nodePortLow, m.nodePortHigh, used)
			if err != nil {
				return err
			}
			svc.Spec.Ports[i].NodePort = np
			used[np] = true
		}
	}

	if svc.Spec.Type == v1.ServiceLoadBalancer && svc.Status.ExternalIP == "" {
		ip, err := allocateIP(m.externalCIDR, usedExternalIPs(existing))
		if err != nil {
			return err
		}
		svc.Status.ExternalIP = ip
	}
	return nil
}

// needsAllocation reports whether svc is missing an address its Type
// requires.
func needsAllocation(svc *v1.Service) bool {
	if svc.Spec.Type == v1.ServiceExternalName {
		return false
	}
	if svc.Spec.ClusterIP == "" {
		return true
	}
	if svc.Spec.Type == v1.ServiceLoadBalancer && svc.Status.ExternalIP == "" {
		return true
	}
	needsNodePort := svc.Spec.Type == v1.ServiceNodePort || svc.Spec.Type == v1.ServiceLoadBalancer
	if needsNodePort {
		for _, p := range svc.Spec.Ports {
			if p.NodePort == 0 {
				return true
			}
		}
	}
	return false
}

// RunOnce allocates addresses for every Service still missing one,
// returning the number updated.
func (m *Manager) RunOnce(ctx context.Context) (int, error) {
	all, err := store.List[v1.Service](ctx, m.st, v1.KindService, "", nil)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, svc := range all {
		if !needsAllocation(svc) {
			continue
		}
		if err := m.allocate(svc, all); err != nil {
			return updated, err
		}
		if err := m.st.Update(ctx, svc); err != nil {
			return updated, err
		}
		log.FromContext(ctx).WithValues("service", svc.ObjectMeta.Name, "clusterIP", svc.Spec.ClusterIP).Info("reconciled service addresses")
		updated++
	}
	return updated, nil
}

// Run loops RunOnce at the configured interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	controllerutil.Forever(ctx, m.interval, "service-addresses", m.RunOnce)
}
