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

// Package nodes implements the Node Registry of spec §4.C: local
// self-registration with host-derived capacity, a periodic heartbeat
// that updates condition timestamps, and staleness detection that flips
// Ready to Unknown for any node (not just the local one) that has gone
// quiet.
package nodes

import (
	"context"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	"sigs.k8s.io/controller-runtime/pkg/log"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/kerrors"
	"github.com/DarsheeeGamer/kos/pkg/quantity"
	"github.com/DarsheeeGamer/kos/pkg/store"
)

// Prober reports whether a local condition is currently true. Registered
// per NodeConditionType so a deployment can plug in real disk/PID probes
// without Registry knowing about them.
type Prober func() (pressure bool, reason string)

// Registry owns the heartbeat lifecycle for the local Node object.
type Registry struct {
	st        *store.Store
	nodeName  string
	address   string
	storeRoot string
	probes    map[v1.NodeConditionType]Prober
}

// New returns a Registry for nodeName, reachable at address, backed by
// st. storeRoot feeds the disk-free probe used for DiskPressure.
func New(st *store.Store, nodeName, address, storeRoot string) *Registry {
	return &Registry{
		st:        st,
		nodeName:  nodeName,
		address:   address,
		storeRoot: storeRoot,
		probes:    map[v1.NodeConditionType]Prober{},
	}
}

// SetProbe overrides the default (always-healthy) probe for a condition
// type, e.g. a real PID-table check for PIDPressure.
func (r *Registry) SetProbe(t v1.NodeConditionType, p Prober) {
	r.probes[t] = p
}

// Register self-registers the local Node with host-derived capacity if
// it doesn't already exist (spec §4.C: "self-registered on start with
// host-derived capacity").
func (r *Registry) Register(ctx context.Context, now time.Time) error {
	cpuMilli, memBytes, ephemeral := hostDerivedCapacity(r.storeRoot)
	resources := v1.NodeResourceList{
		CPU:              quantity.FormatCPU(quantity.MilliCPU(cpuMilli)),
		Memory:           quantity.FormatMemory(quantity.Bytes(memBytes)),
		Pods:             "110",
		EphemeralStorage: quantity.FormatMemory(quantity.Bytes(ephemeral)),
	}

	existing, err := store.Get[v1.Node](ctx, r.st, v1.KindNode, "", r.nodeName)
	if err == nil {
		existing.Status.Capacity = resources
		existing.Status.Allocatable = resources
		return r.st.Update(ctx, existing)
	}
	if !kerrors.IsNotFound(err) {
		return err
	}

	node := &v1.Node{
		ObjectMeta: v1.ObjectMeta{
			Name:              r.nodeName,
			CreationTimestamp: float64(now.Unix()),
		},
		Spec: v1.NodeSpec{},
		Status: v1.NodeStatus{
			Capacity:    resources,
			Allocatable: resources,
			Addresses:   []v1.NodeAddress{{Type: "InternalIP", Address: r.address}},
			Conditions:  initialConditions(now),
		},
	}
	log.FromContext(ctx).WithValues("node", r.nodeName).Info("registering node", "cpu", resources.CPU, "memory", resources.Memory)
	return r.st.Create(ctx, node)
}

func initialConditions(now time.Time) []v1.NodeCondition {
	ts := float64(now.Unix())
	conditions := make([]v1.NodeCondition, 0, len(allConditionTypes))
	for _, t := range allConditionTypes {
		status := v1.ConditionFalse
		if t == v1.NodeReady {
			status = v1.ConditionTrue
		}
		conditions = append(conditions, v1.NodeCondition{
			Type:               t,
			Status:             status,
			LastHeartbeatTime:  ts,
			LastTransitionTime: ts,
		})
	}
	return conditions
}

var allConditionTypes = []v1.NodeConditionType{
	v1.NodeReady,
	v1.NodeMemoryPressure,
	v1.NodeDiskPressure,
	v1.NodePIDPressure,
	v1.NodeNetworkUnavailable,
}

// Heartbeat refreshes every condition's LastHeartbeatTime and re-runs
// probes, transitioning status on change (spec §4.C: "updates Ready /
// MemoryPressure / DiskPressure / PIDPressure / NetworkUnavailable based
// on local probes every 60s").
func (r *Registry) Heartbeat(ctx context.Context, now time.Time) error {
	node, err := store.Get[v1.Node](ctx, r.st, v1.KindNode, "", r.nodeName)
	if err != nil {
		return err
	}

	ts := float64(now.Unix())
	updated := make([]v1.NodeCondition, 0, len(node.Status.Conditions))
	for _, c := range node.Status.Conditions {
		next := c
		next.LastHeartbeatTime = ts
		if probe, ok := r.probes[c.Type]; ok {
			pressure, reason := probe()
			status := conditionStatusFor(c.Type, pressure)
			if status != c.Status {
				next.Status = status
				next.Reason = reason
				next.LastTransitionTime = ts
			}
		} else if c.Type == v1.NodeReady && c.Status != v1.ConditionTrue {
			next.Status = v1.ConditionTrue
			next.LastTransitionTime = ts
		}
		updated = append(updated, next)
	}
	node.Status.Conditions = updated

	log.FromContext(ctx).WithValues("node", r.nodeName).V(1).Info("heartbeat")
	return r.st.Update(ctx, node)
}

// conditionStatusFor maps a boolean probe result to the condition's
// polarity: Ready is "good when true", the *Pressure conditions are
// "bad when true".
func conditionStatusFor(t v1.NodeConditionType, asserted bool) v1.ConditionStatus {
	if t == v1.NodeReady {
		if asserted {
			return v1.ConditionTrue
		}
		return v1.ConditionFalse
	}
	if asserted {
		return v1.ConditionTrue
	}
	return v1.ConditionFalse
}

// Run starts the self-registration + periodic heartbeat loop, blocking
// until ctx is cancelled. It is the component pkg/supervisor starts for
// the local node.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	if err := r.Register(ctx, time.Now()); err != nil {
		return fmt.Errorf("registering node %s: %w", r.nodeName, err)
	}
	wait.Until(func() {
		if err := r.Heartbeat(ctx, time.Now()); err != nil {
			log.FromContext(ctx).Error(err, "heartbeat failed", "node", r.nodeName)
		}
	}, interval, ctx.Done())
	return nil
}
