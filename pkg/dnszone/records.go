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

// Package dnszone derives DNS records from Services and Pods (spec
// §4.F), refreshing on a timer and optionally serving them over UDP via
// github.com/miekg/dns.
package dnszone

import "fmt"

// RecordType enumerates the record shapes spec §4.F names.
type RecordType string

const (
	RecordA   RecordType = "A"
	RecordSRV RecordType = "SRV"
	RecordTXT RecordType = "TXT"
)

// Record is one derived DNS record, keyed by its fully-qualified name.
type Record struct {
	Name     string
	Type     RecordType
	TTL      int
	Target   string // A: IP; SRV: target host name; TXT: raw text
	Priority int
	Weight   int
	Port     int32
}

// svcFQDN is "<svc>.<ns>.svc.<domain>" (spec §4.F).
func svcFQDN(svc, ns, domain string) string {
	return fmt.Sprintf("%s.%s.svc.%s", svc, ns, domain)
}

// podFQDN is "<pod>.<ns>.pod.<domain>" (spec §4.F).
func podFQDN(pod, ns, domain string) string {
	return fmt.Sprintf("%s.%s.pod.%s", pod, ns, domain)
}

// srvFQDN is "_<port-name>._tcp.<svc>.<ns>.svc.<domain>" (spec §4.F).
func srvFQDN(portName, svc, ns, domain string) string {
	return fmt.Sprintf("_%s._tcp.%s.%s.svc.%s", portName, svc, ns, domain)
}

// hostnameSubdomainFQDN is "<hostname>.<subdomain>.<ns>.svc.<domain>"
// for Pods that set spec.hostname/spec.subdomain (spec §4.F).
func hostnameSubdomainFQDN(hostname, subdomain, ns, domain string) string {
	return fmt.Sprintf("%s.%s.%s.svc.%s", hostname, subdomain, ns, domain)
}

// podDottedIP turns "10.1.2.3" into "10-1-2-3" for the SRV target form
// spec §4.F names: "<podIP-dotted>.<ns>.pod.<domain>".
func podDottedIP(ip string) string {
	out := make([]byte, 0, len(ip))
	for _, r := range ip {
		if r == '.' {
			out = append(out, '-')
		} else {
			out = append(out, byte(r))
		}
	}
	return string(out)
}
