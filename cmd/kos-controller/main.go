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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/DarsheeeGamer/kos/pkg/admission"
	"github.com/DarsheeeGamer/kos/pkg/adminserver"
	"github.com/DarsheeeGamer/kos/pkg/config"
	"github.com/DarsheeeGamer/kos/pkg/controllers/cronjob"
	"github.com/DarsheeeGamer/kos/pkg/controllers/deployment"
	"github.com/DarsheeeGamer/kos/pkg/controllers/hpa"
	"github.com/DarsheeeGamer/kos/pkg/controllers/job"
	"github.com/DarsheeeGamer/kos/pkg/controllers/replicaset"
	"github.com/DarsheeeGamer/kos/pkg/controllers/statefulset"
	"github.com/DarsheeeGamer/kos/pkg/controllerutil"
	"github.com/DarsheeeGamer/kos/pkg/dnszone"
	"github.com/DarsheeeGamer/kos/pkg/events"
	"github.com/DarsheeeGamer/kos/pkg/nodes"
	"github.com/DarsheeeGamer/kos/pkg/quota"
	"github.com/DarsheeeGamer/kos/pkg/scheduler"
	"github.com/DarsheeeGamer/kos/pkg/services"
	"github.com/DarsheeeGamer/kos/pkg/store"
	"github.com/DarsheeeGamer/kos/pkg/supervisor"
	"github.com/DarsheeeGamer/kos/pkg/volumes"
)

// flagOverlay holds the subset of config.Config a deployment most
// commonly wants to override at the command line without exporting one
// pflag per field (spec §6: env is the source of truth, flags overlay).
type flagOverlay struct {
	root            string
	adminListenAddr string
	dnsListenAddr   string
	nodeName        string
	nodeAddress     string
	verbose         bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	overlay := &flagOverlay{}

	root := &cobra.Command{
		Use:   "kos-controller",
		Short: "The kos orchestration service: store, controllers, scheduler and admin surface",
	}
	root.PersistentFlags().StringVar(&overlay.root, "root", "", "object store data directory (overrides KOS_ROOT)")
	root.PersistentFlags().StringVar(&overlay.adminListenAddr, "admin-listen-addr", "", "admin HTTP surface bind address (overrides KOS_ADMIN_LISTEN_ADDR)")
	root.PersistentFlags().StringVar(&overlay.dnsListenAddr, "dns-listen-addr", "", "optional UDP DNS server bind address (overrides KOS_DNS_LISTEN_ADDR)")
	root.PersistentFlags().StringVar(&overlay.nodeName, "node-name", "", "local node name (overrides KOS_NODE_NAME)")
	root.PersistentFlags().StringVar(&overlay.nodeAddress, "node-address", "", "local node address (overrides KOS_NODE_ADDRESS)")
	root.PersistentFlags().BoolVarP(&overlay.verbose, "verbose", "v", false, "enable debug-level logging")

	root.AddCommand(newRunCmd(overlay))
	root.AddCommand(newStatusCmd(overlay))
	return root
}

func newRunCmd(overlay *flagOverlay) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the orchestration service and block until shutdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(overlay)
			if err != nil {
				return err
			}
			return run(cfg, overlay.verbose)
		},
	}
}

func newStatusCmd(overlay *flagOverlay) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Query a running instance's /statusz over the admin HTTP surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(overlay)
			if err != nil {
				return err
			}
			return printStatus(cfg.AdminListenAddr)
		},
	}
}

func loadConfig(overlay *flagOverlay) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if overlay.root != "" {
		cfg.Root = overlay.root
	}
	if overlay.adminListenAddr != "" {
		cfg.AdminListenAddr = overlay.adminListenAddr
	}
	if overlay.dnsListenAddr != "" {
		cfg.DNSListenAddr = overlay.dnsListenAddr
	}
	if overlay.nodeName != "" {
		cfg.NodeName = overlay.nodeName
	}
	if overlay.nodeAddress != "" {
		cfg.NodeAddress = overlay.nodeAddress
	}
	return cfg, nil
}

func printStatus(adminAddr string) error {
	resp, err := http.Get(fmt.Sprintf("http://%s/statusz", dialableAddr(adminAddr)))
	if err != nil {
		return fmt.Errorf("querying %s: %w", adminAddr, err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decoding status response: %w", err)
	}
	out, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// dialableAddr turns a bind address like ":8080" into one a local client
// can actually connect to.
func dialableAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "127.0.0.1" + addr
	}
	return addr
}

func run(cfg *config.Config, verbose bool) error {
	logger := newLogger(verbose)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = log.IntoContext(ctx, logger)

	notifyCtx, stopNotify := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopNotify()
	go func() {
		<-notifyCtx.Done()
		cancel()
	}()

	st, err := store.New(cfg.Root)
	if err != nil {
		return fmt.Errorf("opening object store at %s: %w", cfg.Root, err)
	}

	pipeline := admission.New().WithQuotaChecker(quota.NewChecker(st))
	st.SetAdmitter(pipeline)

	svcManager := services.NewManager(st, cfg.ServiceCIDR, cfg.ExternalCIDR, cfg.NodePortRangeLow, cfg.NodePortRangeHigh, cfg.ControllerResyncInterval)

	sup := supervisor.New(cfg.SupervisorHealthcheckInterval, cfg.SupervisorStopGrace)
	registerComponents(sup, st, svcManager, cfg)

	admin := adminserver.New(sup, cancel)
	go func() {
		if err := admin.ListenAndServe(cfg.AdminListenAddr); err != nil && err != http.ErrServerClosed {
			logger.Error(err, "admin surface exited", "addr", cfg.AdminListenAddr)
		}
	}()

	logger.Info("kos-controller starting", "root", cfg.Root, "admin", cfg.AdminListenAddr)
	return sup.Run(ctx)
}

// registerComponents wires every long-running piece in spec §2's
// leaves-first order (A before B, and so on), so the Lifecycle
// Supervisor starts and stops them in the dependency order the spec
// requires.
func registerComponents(sup *supervisor.Supervisor, st *store.Store, svcManager *services.Manager, cfg *config.Config) {
	nodeRegistry := nodes.New(st, cfg.NodeName, cfg.NodeAddress, cfg.Root)
	sup.Register("node-registry", func(ctx context.Context) error {
		return nodeRegistry.Run(ctx, cfg.NodeHeartbeatInterval)
	})

	staleness := nodes.NewStalenessScanner(st, cfg.NodeHeartbeatInterval, cfg.NodeStaleMultiplier)
	sup.Register("node-staleness", func(ctx context.Context) error {
		staleness.Run(ctx)
		return nil
	})

	sched := scheduler.New(st, scheduler.PolicySpread, cfg.SchedulerInterval)
	sup.Register("scheduler", func(ctx context.Context) error {
		sched.Run(ctx)
		return nil
	})

	sup.Register("service-addresses", func(ctx context.Context) error {
		svcManager.Run(ctx)
		return nil
	})

	zone := dnszone.New(st, cfg.DNSDomain, cfg.DNSDefaultTTL)
	sup.Register("dns-zone", func(ctx context.Context) error {
		zone.Run(ctx, cfg.DNSRefreshInterval)
		return nil
	})
	if cfg.DNSListenAddr != "" {
		dnsServer := dnszone.NewServer(zone, cfg.DNSListenAddr)
		sup.Register("dns-server", func(ctx context.Context) error {
			errCh := make(chan error, 1)
			go func() { errCh <- dnsServer.ListenAndServe() }()
			select {
			case <-ctx.Done():
				return dnsServer.Shutdown()
			case err := <-errCh:
				return err
			}
		})
	}

	quotaCtrl := quota.New(st, cfg.ControllerResyncInterval)
	sup.Register("quota", func(ctx context.Context) error {
		quotaCtrl.Run(ctx)
		return nil
	})

	binder := volumes.New(st, cfg.ControllerResyncInterval)
	sup.Register("volume-binder", func(ctx context.Context) error {
		binder.Run(ctx)
		return nil
	})

	rsCtrl := replicaset.New(st, cfg.ControllerResyncInterval)
	sup.Register("replicaset", func(ctx context.Context) error {
		rsCtrl.Run(ctx)
		return nil
	})

	deployCtrl := deployment.New(st, cfg.ControllerResyncInterval)
	sup.Register("deployment", func(ctx context.Context) error {
		deployCtrl.Run(ctx)
		return nil
	})

	stsCtrl := statefulset.New(st, cfg.ControllerResyncInterval)
	sup.Register("statefulset", func(ctx context.Context) error {
		stsCtrl.Run(ctx)
		return nil
	})

	jobCtrl := job.New(st, cfg.ControllerResyncInterval)
	sup.Register("job", func(ctx context.Context) error {
		jobCtrl.Run(ctx)
		return nil
	})

	cronCtrl := cronjob.New(st, cfg.ControllerResyncInterval)
	sup.Register("cronjob", func(ctx context.Context) error {
		cronCtrl.Run(ctx)
		return nil
	})

	hpaCtrl := hpa.New(st, cfg.HPASyncInterval)
	sup.Register("hpa", func(ctx context.Context) error {
		hpaCtrl.Run(ctx)
		return nil
	})

	gc := controllerutil.New(st, cfg.GCInterval)
	sup.Register("gc", func(ctx context.Context) error {
		gc.Run(ctx)
		return nil
	})

	recorder := events.New(st, cfg.EventCoalesceWindow, cfg.EventNormalTTL, cfg.EventWarningTTL)
	sup.Register("event-recorder", func(ctx context.Context) error {
		recorder.Run(ctx, cfg.EventPruneInterval)
		return nil
	})
}

func newLogger(verbose bool) logr.Logger {
	zc := zap.NewProductionConfig()
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zl, err := zc.Build()
	if err != nil {
		panic(fmt.Sprintf("building logger: %v", err))
	}
	return zapr.NewLogger(zl)
}
