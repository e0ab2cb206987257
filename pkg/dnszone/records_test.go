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

import "testing"

func TestSvcFQDN(t *testing.T) {
	if got := svcFQDN("web", "default", "cluster.local"); got != "web.default.svc.cluster.local" {
		t.Fatalf("got %s", got)
	}
}

func TestSRVFQDN(t *testing.T) {
	if got := srvFQDN("http", "web", "default", "cluster.local"); got != "_http._tcp.web.default.svc.cluster.local" {
		t.Fatalf("got %s", got)
	}
}

func TestPodDottedIP(t *testing.T) {
	if got := podDottedIP("10.1.2.3"); got != "10-1-2-3" {
		t.Fatalf("got %s", got)
	}
}
