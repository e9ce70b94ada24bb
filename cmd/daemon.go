package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kosavsech/SchoolDiary-sub000/internal/appversion"
	"github.com/kosavsech/SchoolDiary-sub000/internal/eventstream"
	"github.com/kosavsech/SchoolDiary-sub000/internal/features"
	"github.com/kosavsech/SchoolDiary-sub000/internal/jobs"
	"github.com/kosavsech/SchoolDiary-sub000/internal/scheduler"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	Short:   "Run background sync until interrupted",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runDaemon(ctx)
	},
}

func runDaemon(ctx context.Context) error {
	a, err := newApp(cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if a.client == nil {
		slog.Warn("not logged in; portal jobs will fail until `diary login`")
	}

	if features.IsEnabled(cfg, features.EventStream.Name) && cfg.EventStreamAddr != "" {
		stream := eventstream.NewServer(eventstream.Config{Addr: cfg.EventStreamAddr, Bus: a.bus})
		if err := stream.Start(); err != nil {
			return fmt.Errorf("event stream: %w", err)
		}
		defer func() {
			if err := stream.Stop(); err != nil {
				slog.Warn("stop event stream", "err", err)
			}
		}()
	}

	versions, unsubscribe := a.versions.Subscribe()
	defer unsubscribe()
	go logVersions(ctx, versions)

	schedCfg := scheduler.DefaultConfig()
	schedCfg.Connectivity = scheduler.DialCheck{Address: cfg.PortalHost(), Timeout: 5 * time.Second}
	sched := scheduler.New(a.runner, schedCfg)
	sched.Start(ctx)
	defer sched.Stop()

	for _, req := range jobs.Requests(a.registry, cfg.Intervals) {
		if err := sched.Enqueue(req); err != nil {
			return fmt.Errorf("enqueue %s: %w", req.JobName, err)
		}
	}
	slog.Info("daemon started", "jobs", sched.Pending(), "data_dir", cfg.DataDir)

	<-ctx.Done()
	slog.Info("daemon stopping")
	return nil
}

func logVersions(ctx context.Context, ch <-chan appversion.Status) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-ch:
			if !ok {
				return
			}
			switch s.State {
			case appversion.MustUpdate:
				slog.Error("critical update required", "remote", s.RemoteName, "url", s.UpdateURL)
			case appversion.ShouldUpdate:
				slog.Warn("update available", "remote", s.RemoteName, "url", s.UpdateURL)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
