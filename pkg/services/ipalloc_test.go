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
	"net"
	"testing"
)

func TestAllocateIPPicksLowestUnused(t *testing.T) {
	used := map[string]bool{"10.96.0.1": true, "10.96.0.2": true}
	ip, err := allocateIP("10.96.0.0/24", used)
	if err != nil {
		t.Fatal(err)
	}
	if ip != "10.96.0.3" {
		t.Fatalf("expected 10.96.0.3, got %s", ip)
	}
}

func TestAllocateIPExhausted(t *testing.T) {
	used := map[string]bool{}
	_, ipnet, _ := net.ParseCIDR("10.0.0.0/31")
	for ip := firstHost(ipnet); ipnet.Contains(ip); incIP(ip) {
		used[ip.String()] = true
	}
	if _, err := allocateIP("10.0.0.0/31", used); err == nil {
		t.Fatal("expected exhaustion error")
	}
}

func TestAllocateNodePortPicksLowest(t *testing.T) {
	used := map[int32]bool{30000: true, 30001: true}
	p, err := allocateNodePort(30000, 32767, used)
	if err != nil {
		t.Fatal(err)
	}
	if p != 30002 {
		t.Fatalf("expected 30002, got %d", p)
	}
}
