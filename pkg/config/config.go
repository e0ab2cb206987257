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

// Package config carries the single environment-derived settings struct
// of SPEC_FULL.md §A ("Configuration"). There is no other configuration
// source; pflag-bound CLI flags in cmd/kos-controller overlay these
// defaults rather than replace them.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full set of tunables spec §6/§8 calls out by name.
type Config struct {
	// Root is the directory the Object Store persists objects under
	// (spec §8: "default /tmp/kos").
	Root string `env:"KOS_ROOT" envDefault:"/tmp/kos"`

	// ServiceCIDR is scanned, lowest-address-first, to allocate
	// ClusterIPs (spec §4.E).
	ServiceCIDR string `env:"KOS_SERVICE_CIDR" envDefault:"10.96.0.0/16"`
	// ExternalCIDR backs LoadBalancer Services' externalIP allocation
	// (spec §4.E).
	ExternalCIDR string `env:"KOS_EXTERNAL_CIDR" envDefault:"203.0.113.0/24"`
	// NodePortRangeLow/High bound the NodePort allocator (spec §4.E:
	// "[30000, 32767]").
	NodePortRangeLow  int32 `env:"KOS_NODEPORT_LOW" envDefault:"30000"`
	NodePortRangeHigh int32 `env:"KOS_NODEPORT_HIGH" envDefault:"32767"`

	// NodeHeartbeatInterval is the cadence a registered node refreshes
	// its conditions at (spec §4.C).
	NodeHeartbeatInterval time.Duration `env:"KOS_NODE_HEARTBEAT_INTERVAL" envDefault:"60s"`
	// NodeStaleMultiplier is how many missed heartbeats flips Ready to
	// Unknown (spec §4.C: "heartbeat-updated for >3x cadence").
	NodeStaleMultiplier int `env:"KOS_NODE_STALE_MULTIPLIER" envDefault:"3"`

	// SchedulerInterval is the retry cadence for Pods stuck in
	// FailedScheduling (spec §4.D: "default 10s").
	SchedulerInterval time.Duration `env:"KOS_SCHEDULER_INTERVAL" envDefault:"10s"`

	// DNSDomain is the root zone derived records are served under (spec
	// §4.F), e.g. "cluster.local".
	DNSDomain string `env:"KOS_DNS_DOMAIN" envDefault:"cluster.local"`
	// DNSDefaultTTL is the TTL stamped on derived zone records absent an
	// override (spec §4.F: "default 60s").
	DNSDefaultTTL time.Duration `env:"KOS_DNS_DEFAULT_TTL" envDefault:"60s"`
	// DNSRefreshInterval is how often the zone is recomputed from
	// Services/Endpoints (spec §4.F: "every 30s").
	DNSRefreshInterval time.Duration `env:"KOS_DNS_REFRESH_INTERVAL" envDefault:"30s"`
	// DNSListenAddr, when non-empty, starts the optional UDP DNS server
	// (SPEC_FULL.md §B).
	DNSListenAddr string `env:"KOS_DNS_LISTEN_ADDR" envDefault:""`

	// ControllerResyncInterval is the default full-resync cadence for
	// controllers that don't name a more specific one (spec §4.I-M:
	// "default 10-30s, 60s for ...").
	ControllerResyncInterval time.Duration `env:"KOS_CONTROLLER_RESYNC_INTERVAL" envDefault:"15s"`
	// HPASyncInterval is the HorizontalPodAutoscaler's metric-sampling
	// cadence (spec §4.N: "at most once per minute").
	HPASyncInterval time.Duration `env:"KOS_HPA_SYNC_INTERVAL" envDefault:"60s"`
	// GCInterval is the ownership garbage collection sweep cadence
	// (spec §3.4).
	GCInterval time.Duration `env:"KOS_GC_INTERVAL" envDefault:"30s"`

	// SupervisorHealthcheckInterval is the Lifecycle Supervisor's
	// healthcheck tick (spec §5: "default 60s").
	SupervisorHealthcheckInterval time.Duration `env:"KOS_SUPERVISOR_HEALTHCHECK_INTERVAL" envDefault:"60s"`
	// SupervisorStopGrace bounds graceful shutdown (spec §5).
	SupervisorStopGrace time.Duration `env:"KOS_SUPERVISOR_STOP_GRACE" envDefault:"5s"`

	// WebhookTimeout bounds each admission webhook call (spec §4.B:
	// "default 10s").
	WebhookTimeout time.Duration `env:"KOS_WEBHOOK_TIMEOUT" envDefault:"10s"`

	// EventCoalesceWindow is the (involvedObject,reason,type) coalescing
	// window (spec §4.O).
	EventCoalesceWindow time.Duration `env:"KOS_EVENT_COALESCE_WINDOW" envDefault:"5m"`
	// EventNormalTTL/EventWarningTTL bound how long stored Events survive
	// pruning (spec §4.O).
	EventNormalTTL  time.Duration `env:"KOS_EVENT_NORMAL_TTL" envDefault:"1h"`
	EventWarningTTL time.Duration `env:"KOS_EVENT_WARNING_TTL" envDefault:"24h"`
	// EventPruneInterval is how often expired Events are swept.
	EventPruneInterval time.Duration `env:"KOS_EVENT_PRUNE_INTERVAL" envDefault:"5m"`

	// NodeName/NodeAddress identify the local Node the Node Registry
	// self-registers (spec §4.C).
	NodeName    string `env:"KOS_NODE_NAME" envDefault:""`
	NodeAddress string `env:"KOS_NODE_ADDRESS" envDefault:""`

	// AdminListenAddr serves health/status/metrics (SPEC_FULL.md §A).
	AdminListenAddr string `env:"KOS_ADMIN_LISTEN_ADDR" envDefault:":8080"`
}

// Load parses Config from the process environment, applying the defaults
// above for anything unset.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
