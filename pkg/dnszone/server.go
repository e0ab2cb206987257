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
	"net"
	"strings"

	"github.com/miekg/dns"
)

// Server answers DNS queries over UDP directly from a Zone's current
// record set (SPEC_FULL.md §B: "this implementation ships one"). It is
// optional; cmd/kos-controller only starts it when KOS_DNS_LISTEN_ADDR
// is set.
type Server struct {
	zone *Zone
	srv  *dns.Server
}

// NewServer builds a Server bound to addr, not yet listening.
func NewServer(zone *Zone, addr string) *Server {
	s := &Server{zone: zone}
	mux := dns.NewServeMux()
	mux.HandleFunc(".", s.handle)
	s.srv = &dns.Server{Addr: addr, Net: "udp", Handler: mux}
	return s
}

// ListenAndServe blocks serving UDP queries until the server is shut down.
func (s *Server) ListenAndServe() error { return s.srv.ListenAndServe() }

// Shutdown stops the server.
func (s *Server) Shutdown() error { return s.srv.Shutdown() }

func (s *Server) handle(w dns.ResponseWriter, r *dns.Msg) {
	msg := new(dns.Msg)
	msg.SetReply(r)
	msg.Authoritative = true

	for _, q := range r.Question {
		name := strings.TrimSuffix(q.Name, ".")
		for _, rec := range s.zone.Lookup(name) {
			if rr := toRR(q.Name, rec); rr != nil {
				msg.Answer = append(msg.Answer, rr)
			}
		}
	}
	if len(msg.Answer) == 0 {
		msg.Rcode = dns.RcodeNameError
	}
	_ = w.WriteMsg(msg)
}

func toRR(name string, rec Record) dns.RR {
	switch rec.Type {
	case RecordA:
		ip := net.ParseIP(rec.Target)
		if ip == nil {
			return nil
		}
		if v4 := ip.To4(); v4 != nil {
			return &dns.A{Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: uint32(rec.TTL)}, A: v4}
		}
		return &dns.AAAA{Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypeAAAA, Class: dns.ClassINET, Ttl: uint32(rec.TTL)}, AAAA: ip}
	case RecordSRV:
		return &dns.SRV{
			Hdr:      dns.RR_Header{Name: name, Rrtype: dns.TypeSRV, Class: dns.ClassINET, Ttl: uint32(rec.TTL)},
			Priority: uint16(rec.Priority), Weight: uint16(rec.Weight), Port: uint16(rec.Port), Target: dns.Fqdn(rec.Target),
		}
	case RecordTXT:
		return &dns.TXT{Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: uint32(rec.TTL)}, Txt: []string{rec.Target}}
	default:
		return nil
	}
}
