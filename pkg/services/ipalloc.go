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

// Package services implements Service IP/NodePort allocation and
// Endpoints derivation of spec §4.E.
package services

import (
	"fmt"
	"net"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
)

// allocateIP scans cidr host-address-first and returns the lowest address
// not present in used (spec §4.E: "scanning the configured ... CIDR and
// choosing the lowest unused host IP").
func allocateIP(cidr string, used map[string]bool) (string, error) {
	_, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return "", fmt.Errorf("invalid CIDR %q: %w", cidr, err)
	}
	for ip := firstHost(ipnet); ipnet.Contains(ip); incIP(ip) {
		if !used[ip.String()] {
			return ip.String(), nil
		}
	}
	return "", fmt.Errorf("no free address in %s", cidr)
}

// firstHost returns the first usable host address in ipnet (network
// address + 1), mirroring how the service CIDR's .0/.1 reservations work
// in practice.
func firstHost(ipnet *net.IPNet) net.IP {
	ip := make(net.IP, len(ipnet.IP))
	copy(ip, ipnet.IP)
	incIP(ip)
	return ip
}

func incIP(ip net.IP) {
	for i := len(ip) - 1; i >= 0; i-- {
		ip[i]++
		if ip[i] != 0 {
			return
		}
	}
}

// allocateNodePort returns the lowest integer in [low, high] not present
// in used (spec §4.E: "lowest unused integer in [30000, 32767]").
func allocateNodePort(low, high int32, used map[int32]bool) (int32, error) {
	for p := low; p <= high; p++ {
		if !used[p] {
			return p, nil
		}
	}
	return 0, fmt.Errorf("no free nodePort in [%d, %d]", low, high)
}

// usedClusterIPs collects every already-allocated ClusterIP among svcs.
func usedClusterIPs(svcList []*v1.Service) map[string]bool {
	used := map[string]bool{}
	for _, s := range svcList {
		if s.Spec.ClusterIP != "" {
			used[s.Spec.ClusterIP] = true
		}
	}
	return used
}

// usedExternalIPs collects every already-allocated external IP among svcs.
func usedExternalIPs(svcList []*v1.Service) map[string]bool {
	used := map[string]bool{}
	for _, s := range svcList {
		if s.Status.ExternalIP != "" {
			used[s.Status.ExternalIP] = true
		}
	}
	return used
}

// usedNodePorts collects every already-allocated NodePort among svcs.
func usedNodePorts(svcList []*v1.Service) map[int32]bool {
	used := map[int32]bool{}
	for _, s := range svcList {
		for _, p := range s.Spec.Ports {
			if p.NodePort != 0 {
				used[p.NodePort] = true
			}
		}
	}
	return used
}
