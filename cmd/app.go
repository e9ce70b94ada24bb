package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/kosavsech/SchoolDiary-sub000/internal/appversion"
	"github.com/kosavsech/SchoolDiary-sub000/internal/auth"
	"github.com/kosavsech/SchoolDiary-sub000/internal/config"
	"github.com/kosavsech/SchoolDiary-sub000/internal/db"
	"github.com/kosavsech/SchoolDiary-sub000/internal/events"
	"github.com/kosavsech/SchoolDiary-sub000/internal/features"
	"github.com/kosavsech/SchoolDiary-sub000/internal/jobs"
	"github.com/kosavsech/SchoolDiary-sub000/internal/notify"
	"github.com/kosavsech/SchoolDiary-sub000/internal/output"
	"github.com/kosavsech/SchoolDiary-sub000/internal/portal"
	"github.com/kosavsech/SchoolDiary-sub000/internal/scheduler"
)

// app holds the collaborators shared by the daemon and one-shot sync runs.
type app struct {
	cfg      *config.Config
	store    *db.DB
	bus      *events.Bus
	client   *portal.Client // nil when logged out
	notifier *notify.Notifier
	versions *appversion.Holder
	registry *scheduler.Registry
	runner   *scheduler.Runner
}

// appOptions tweak wiring per command
type appOptions struct {
	// console also prints notifications to this writer
	console io.Writer
}

func openStore(c *config.Config) (*db.DB, error) {
	store, err := db.OpenWithDriver(c.DataDir, c.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return store, nil
}

// portalClient builds a client from the saved session. It returns nil
// when there is no session.
func portalClient(c *config.Config) (*portal.Client, error) {
	creds, err := auth.Load(c.DataDir)
	if err != nil {
		return nil, err
	}
	if !creds.LoggedIn() {
		return nil, nil
	}
	if creds.PortalURL != "" && creds.PortalURL != c.PortalURL {
		slog.Warn("session was created for another portal", "session_portal", creds.PortalURL, "portal", c.PortalURL)
	}
	client := portal.New(c.PortalURL, creds.SessionID)
	client.Timeout = c.FetchTimeout
	return client, nil
}

func notificationSink(c *config.Config, opts appOptions) notify.Sink {
	sinks := notify.MultiSink{notify.LogSink{}}
	if c.WebhookURL != "" && features.IsEnabled(c, features.WebhookNotifications.Name) {
		sinks = append(sinks, notify.NewWebhookSink(c.WebhookURL, c.WebhookSecret))
	}
	if opts.console != nil {
		sinks = append(sinks, output.NewConsoleSink(opts.console))
	}
	return sinks
}

func newApp(c *config.Config, opts appOptions) (*app, error) {
	store, err := openStore(c)
	if err != nil {
		return nil, err
	}
	client, err := portalClient(c)
	if err != nil {
		store.Close()
		return nil, err
	}

	a := &app{
		cfg:      c,
		store:    store,
		bus:      events.NewBus(),
		client:   client,
		versions: appversion.NewHolder(),
		registry: scheduler.NewRegistry(),
	}
	a.notifier = notify.New(notificationSink(c, opts), notify.PermissionFunc(func() bool {
		return c.NotificationsEnabled
	}))

	jobCfg := jobs.DefaultConfig()
	jobCfg.UpcomingDays = c.UpcomingDays
	jobCfg.TaskTitleMaxLen = c.TaskTitleMaxLen
	jobCfg.BuildVersionCode = c.BuildVersionCode

	deps := &jobs.Deps{
		Store:        store,
		Notifier:     a.notifier,
		Events:       a.bus,
		Versions:     appversion.NewChecker(c.VersionURL),
		VersionState: a.versions,
		Config:       jobCfg,
	}
	// A nil *portal.Client must not become a non-nil Fetcher.
	if client != nil {
		deps.Fetcher = client
	}
	jobs.RegisterAll(a.registry, deps, features.IsEnabled(c, features.PerformanceSync.Name))

	a.runner = scheduler.NewRunner(a.registry)
	a.runner.Recorder = store
	a.runner.LockDir = filepath.Join(c.DataDir, "locks")
	a.runner.Events = a.bus
	return a, nil
}

func (a *app) Close() {
	a.bus.Close()
	if err := a.store.Close(); err != nil {
		slog.Warn("close database", "err", err)
	}
}
