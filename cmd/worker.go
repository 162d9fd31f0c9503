package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/hr-approval/internal/authority"
	authorityPostgres "github.com/frahmantamala/hr-approval/internal/authority/postgres"
	"github.com/frahmantamala/hr-approval/internal/core/events"
	"github.com/frahmantamala/hr-approval/internal/delegation"
	delegationPostgres "github.com/frahmantamala/hr-approval/internal/delegation/postgres"
	"github.com/frahmantamala/hr-approval/pkg/keylock"
	"github.com/frahmantamala/hr-approval/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers that keep stored state in line with time, such as expiring delegations.`,
}

var delegationWorkerCmd = &cobra.Command{
	Use:   "delegations",
	Short: "Expire delegations whose window has ended",
	Long:  `Periodically mark active delegations with an elapsed validity window as expired.`,
	Run: func(cmd *cobra.Command, args []string) {
		startDelegationWorker()
	},
}

var (
	sweepInterval time.Duration
	sweepOnce     bool
)

func startDelegationWorker() {
	cfg, err := loadConfig(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(appEnv(), cfg.Observability.Logging.Level)
	lg := logger.LoggerWrapper()

	db, err := initDB(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	gdb, err := openGorm(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := authorityPostgres.NewStore(gdb)
	holder := authority.NewSnapshotHolder(store)
	if err := holder.Reload(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load reference data: %v\n", err)
		os.Exit(1)
	}
	manager := delegation.NewManager(
		delegationPostgres.NewDelegationRepository(gdb),
		store, holder, keylock.New(), events.NewEventBus(lg),
		cfg.Delegation.MaxWindow, lg,
	)

	interval := cfg.Delegation.SweepInterval
	if sweepInterval > 0 {
		interval = sweepInterval
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	if sweepOnce {
		if _, err := manager.ExpireElapsed(ctx); err != nil {
			os.Exit(1)
		}
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	lg.Info("delegation worker started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		// errors are logged by the manager; the next tick retries
		_, _ = manager.ExpireElapsed(ctx)

		select {
		case sig := <-sigChan:
			lg.Info("received signal, shutting down delegation worker", "signal", sig)
			return
		case <-ticker.C:
		}
	}
}

func init() {
	delegationWorkerCmd.Flags().DurationVar(&sweepInterval, "interval", 0, "Sweep interval (overrides config)")
	delegationWorkerCmd.Flags().BoolVar(&sweepOnce, "once", false, "Run a single sweep and exit")

	workerCmd.AddCommand(delegationWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
