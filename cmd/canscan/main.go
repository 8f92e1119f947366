package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/canscan/internal/application"
	appprofile "github.com/bryanwahyu/canscan/internal/application/profile"
	appscans "github.com/bryanwahyu/canscan/internal/application/scans"
	"github.com/bryanwahyu/canscan/internal/config"
	"github.com/bryanwahyu/canscan/internal/infra/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "canscan: %v\n", err)
		os.Exit(1)
	}
}

// app holds the services a command runs against. It is built once the
// flags are parsed.
type app struct {
	configPath string
	owner      string
	verbose    int

	cfg      *config.Config
	log      logr.Logger
	store    *bootstrap.Store
	scans    *appscans.Service
	profiles *appprofile.Service
	flush    func()
}

func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "canscan",
		Short: "CanScan screening CLI",
		Long: `CanScan runs the screening wizard locally: upload an image, let the oracle
look at it, pick symptoms and get a risk assessment. Results are kept in the
configured record store.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.Path(), "Config file to use")
	cmd.PersistentFlags().StringVar(&a.owner, "owner", "local", "Owner whose records are used")
	cmd.PersistentFlags().CountVarP(&a.verbose, "verbose", "v", "Increase log verbosity")
	cmd.AddCommand(
		newScanCmd(a),
		newResultsCmd(a),
		newSymptomsCmd(),
		newProfileCmd(a),
	)
	return cmd
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}
	// An in-memory store would forget everything between invocations.
	if cfg.Store.Driver == config.DriverMemory {
		cfg.Store.Driver = config.DriverFile
	}
	if a.verbose > cfg.Log.Verbosity {
		cfg.Log.Verbosity = a.verbose
	}
	cfg.Log.Development = true
	a.cfg = cfg

	log, flush, err := bootstrap.NewLogger(cfg)
	if err != nil {
		return err
	}
	a.log, a.flush = log, flush

	store, err := bootstrap.OpenStore(ctx, cfg, log.V(1))
	if err != nil {
		return err
	}
	a.store = store

	opts := appscans.Options{
		Clock:         application.SystemClock{},
		Log:           log.WithName("scans"),
		SessionTTL:    cfg.Session.TTL,
		MaxImageBytes: cfg.Session.MaxImageBytes,
	}
	images, err := bootstrap.NewImageStore(ctx, cfg)
	if err != nil {
		return err
	}
	if images != nil {
		opts.Images = images
	}
	a.scans = appscans.NewService(store, bootstrap.NewOracle(cfg, log.V(1)), opts)
	a.profiles = appprofile.NewService(store, log.WithName("profile"))
	return nil
}

func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.flush != nil {
		a.flush()
	}
}
