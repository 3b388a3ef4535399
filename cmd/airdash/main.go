package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/cortexproject/cortex/pkg/util/flagext"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	lokiconfig "github.com/grafana/loki/pkg/cfg"
	"github.com/prometheus/common/version"
	"golang.org/x/sync/errgroup"

	"github.com/slim-bean/airdash/pkg/aggregator"
	"github.com/slim-bean/airdash/pkg/aircraft"
	"github.com/slim-bean/airdash/pkg/api"
	"github.com/slim-bean/airdash/pkg/cfg"
	"github.com/slim-bean/airdash/pkg/forward"
	"github.com/slim-bean/airdash/pkg/refdb"
	"github.com/slim-bean/airdash/pkg/store"
)

type Config struct {
	cfg.Config   `yaml:",inline"`
	printVersion bool
	configFile   string
}

func (c *Config) RegisterFlags(f *flag.FlagSet) {
	f.BoolVar(&c.printVersion, "version", false, "Print this builds version information")
	f.StringVar(&c.configFile, "config.file", "", "yaml file to load")
	c.Config.RegisterFlags(f)
}

// Clone takes advantage of pass-by-value semantics to return a distinct *Config.
// This is primarily used to parse a different flag set without mutating the original *Config.
func (c *Config) Clone() flagext.Registerer {
	return func(c Config) *Config {
		return &c
	}(*c)
}

func main() {

	var config Config

	if err := lokiconfig.Parse(&config); err != nil {
		fmt.Fprintf(os.Stderr, "failed parsing config: %v\n", err)
		os.Exit(1)
	}
	if config.printVersion {
		fmt.Println(version.Print("airdash"))
		os.Exit(0)
	}
	config.ApplyEnvironment(os.Getenv)

	logger, err := newLogger(config.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init the logger: %v\n", err)
		os.Exit(1)
	}

	shutdown := make(chan struct{})
	go sig(logger, shutdown)

	am, err := aircraft.NewManager(logger, config.Aircraft)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init the aircraft manager: %v\n", err)
		os.Exit(1)
	}
	defer am.Stop()

	tables, err := refdb.Load(logger, config.RefDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load the reference tables: %v\n", err)
		os.Exit(1)
	}

	opts := []aggregator.Option{
		aggregator.WithDebug(config.Debug),
		aggregator.WithReference(refdb.NewReference(am, tables)),
	}
	if config.Store.Path != "" {
		st, err := store.Open(config.Store.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open the store: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()
		opts = append(opts, aggregator.WithStore(st))
	}
	agg := aggregator.New(logger, config.Aggregator, opts...)

	if len(config.ClientConfigs) > 0 {
		fwd, err := forward.NewFromConfig(logger, config.ClientConfigs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to init the forwarder: %v\n", err)
			os.Exit(1)
		}
		defer fwd.Stop()
		agg.OnUpdate(fwd.Enqueue)
	}

	restored := agg.Restore()
	level.Info(logger).Log("msg", "restored data sources", "count", restored)
	for _, uri := range config.DataSources {
		if _, err := agg.AddDataSource(uri); err != nil {
			if aggregator.KindOf(err) == aggregator.KindAlreadyConnected {
				level.Debug(logger).Log("msg", "configured data source already restored", "source", uri)
				continue
			}
			level.Error(logger).Log("msg", "failed to add configured data source", "source", uri, "err", err)
		}
	}

	srv := &http.Server{
		Addr:    config.ListenAddress,
		Handler: api.New(logger, agg).Router(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return agg.Run(gctx)
	})
	g.Go(func() error {
		level.Info(logger).Log("msg", "http server listening", "addr", config.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-shutdown:
		case <-gctx.Done():
		}
		cancel()
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		level.Error(logger).Log("msg", "shutting down after error", "err", err)
	}
	agg.Stop()
	level.Info(logger).Log("msg", "shutdown complete")
}

func newLogger(lvl string) (log.Logger, error) {
	var logger log.Logger
	logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))

	var opt level.Option
	switch lvl {
	case "debug":
		opt = level.AllowDebug()
	case "info", "":
		opt = level.AllowInfo()
	case "warn":
		opt = level.AllowWarn()
	case "error":
		opt = level.AllowError()
	default:
		return nil, fmt.Errorf("unknown log level %q", lvl)
	}
	logger = level.NewFilter(logger, opt)
	logger = log.With(logger, "ts", log.DefaultTimestamp, "caller", log.DefaultCaller)
	return logger, nil
}

func sig(logger log.Logger, shutdown chan struct{}) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	buf := make([]byte, 1<<20)
	for {
		select {
		case sig := <-sigs:
			switch sig {
			case syscall.SIGINT, syscall.SIGTERM:
				level.Info(logger).Log("msg", "=== received SIGINT/SIGTERM ===")
				close(shutdown)
				return
			case syscall.SIGQUIT:
				stacklen := runtime.Stack(buf, true)
				level.Info(logger).Log("msg", fmt.Sprintf("=== received SIGQUIT ===\n*** goroutine dump...\n%s\n*** end", buf[:stacklen]))
			}
		}
	}
}
