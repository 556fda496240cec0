// hsched runs the hybrid-staging placement scheduler.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dataspaces/hsched/common"
	"github.com/dataspaces/hsched/common/endpoints"
	"github.com/dataspaces/hsched/common/errors"
	"github.com/dataspaces/hsched/common/log/hooks"
	"github.com/dataspaces/hsched/common/stats"
	"github.com/dataspaces/hsched/messages"
	"github.com/dataspaces/hsched/scheduler/config"
	"github.com/dataspaces/hsched/scheduler/server"
	"github.com/dataspaces/hsched/transport"
	"github.com/dataspaces/hsched/transport/memory"
	"github.com/dataspaces/hsched/transport/thrifttcp"
	"github.com/dataspaces/hsched/workflow/static"
)

type options struct {
	configSelector string
	logLevel       string
	addr           string
	httpAddr       string
	peers          string
	servers        int
	computeNodes   int
	stagingConf    string
}

func main() {
	log.AddHook(hooks.NewContextHook())
	if err := newRootCmd().Execute(); err != nil {
		log.Error(err)
		os.Exit(int(errors.ExitCodeOf(err)))
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "hsched",
		Short:         "hsched places workflow tasks on registered executor buckets",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			return run(opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.configSelector, "config", "default", "Config preset name, path to a json file, or literal json")
	flags.StringVar(&opts.logLevel, "log_level", "info", "Log everything at this level and above (error|info|debug)")
	flags.StringVar(&opts.addr, "addr", "", "Transport listen address, overrides the config")
	flags.StringVar(&opts.httpAddr, "http_addr", "", "Admin http address, overrides the config")
	flags.StringVar(&opts.peers, "peers", "", "Comma separated peer table, e.g. 1=host:port,2=host:port")
	flags.IntVarP(&opts.servers, "server", "s", 0, "Number of staging servers")
	flags.IntVarP(&opts.computeNodes, "cnodes", "c", 0, "Number of compute nodes")
	flags.StringVarP(&opts.stagingConf, "conf", "f", "", "Staging config file")
	return cmd
}

func run(opts *options) error {
	level, err := log.ParseLevel(opts.logLevel)
	if err != nil {
		return errors.NewError(err, errors.ConfigFailureExitCode)
	}
	log.SetLevel(level)

	cfg, err := config.GetConfig(opts.configSelector)
	if err != nil {
		return errors.NewError(err, errors.ConfigFailureExitCode)
	}
	applyFlags(cfg, opts)
	log.Infof("Scheduler config: %s", cfg)
	log.WithFields(log.Fields{
		"servers":     cfg.Transport.Servers,
		"cnodes":      cfg.Transport.ComputeNodes,
		"stagingConf": cfg.Transport.StagingConf,
	}).Info("Starting placement scheduler")

	schedConfig, err := cfg.Scheduler.CreateSchedulerConfig()
	if err != nil {
		return errors.NewError(err, errors.ConfigFailureExitCode)
	}

	tr, err := createTransport(cfg, opts)
	if err != nil {
		return err
	}
	defer tr.Close()

	stat := stats.DefaultStatsReceiver().Precision(time.Millisecond)
	sched := server.NewStatefulScheduler(tr, static.NewEngine(), *schedConfig, stat)
	defer sched.Close()

	admin := startAdmin(cfg, sched, stat)
	if admin != nil {
		defer admin.Shutdown(context.Background())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := sched.Run(ctx); err != nil {
		return errors.NewError(err, errors.SchedulerFailureExitCode)
	}
	return nil
}

func applyFlags(cfg *config.JSONConfigs, opts *options) {
	if opts.addr != "" {
		cfg.Transport.Addr = opts.addr
	}
	if opts.httpAddr != "" {
		cfg.Admin.Addr = opts.httpAddr
	}
	if opts.servers != 0 {
		cfg.Transport.Servers = opts.servers
	}
	if opts.computeNodes != 0 {
		cfg.Transport.ComputeNodes = opts.computeNodes
	}
	if opts.stagingConf != "" {
		cfg.Transport.StagingConf = opts.stagingConf
	}
}

func createTransport(cfg *config.JSONConfigs, opts *options) (transport.Transport, error) {
	switch cfg.Transport.Type {
	case "memory":
		return memory.NewHub().Endpoint(messages.PeerID(cfg.Transport.Self)), nil
	case "thrift":
		tc, err := cfg.Transport.CreateThriftConfig()
		if err != nil {
			return nil, errors.NewError(err, errors.ConfigFailureExitCode)
		}
		extra, err := common.ParsePeerMap(opts.peers)
		if err != nil {
			return nil, errors.NewError(err, errors.ConfigFailureExitCode)
		}
		for id, addr := range extra {
			tc.Peers[messages.PeerID(id)] = addr
		}
		tr, err := thrifttcp.Listen(*tc)
		if err != nil {
			return nil, errors.NewError(err, errors.TransportFailureExitCode)
		}
		return tr, nil
	default:
		return nil, errors.NewError(fmt.Errorf("unknown transport type %q", cfg.Transport.Type), errors.ConfigFailureExitCode)
	}
}

func startAdmin(cfg *config.JSONConfigs, sched server.Scheduler, stat stats.StatsReceiver) *endpoints.TwitterServer {
	if cfg.Admin.Type != "http" || cfg.Admin.Addr == "" {
		return nil
	}
	admin := endpoints.NewTwitterServer(cfg.Admin.Addr, cfg.Admin.MaxConns, stat, map[string]http.Handler{
		"/admin/scheduler.json": server.NewSnapshotHandler(sched),
	})
	go func() {
		if err := admin.Serve(); err != nil {
			log.Errorf("Admin server stopped: %v", err)
		}
	}()
	return admin
}
