// Command herbtrace captures field records offline and reconciles them with
// the remote authority when the network allows.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/herbtrace/internal/adapters/driven/config/file"
	"github.com/custodia-labs/herbtrace/internal/adapters/driven/platform"
	"github.com/custodia-labs/herbtrace/internal/adapters/driven/remote/httpapi"
	"github.com/custodia-labs/herbtrace/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/herbtrace/internal/adapters/driving/cli"
	"github.com/custodia-labs/herbtrace/internal/adapters/driving/inbox"
	"github.com/custodia-labs/herbtrace/internal/core/domain"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driven"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driving"
	"github.com/custodia-labs/herbtrace/internal/core/services"
	"github.com/custodia-labs/herbtrace/internal/logger"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	if err := cli.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: reading .env: %v\n", err)
		return 1
	}
	logger.SetVerbose(cli.VerboseRequested(os.Args[1:]))

	app, err := wire(cli.ConfigDir(), cli.DataDir(), cli.InboxDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer app.close()

	cli.SetVersion(version)
	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}

// application holds every constructed component so it can be shut down in
// reverse order.
type application struct {
	store       *sqlite.Store
	monitor     *services.ConnectivityMonitor
	coordinator *services.SyncCoordinator
	publisher   *services.StatusPublisher
	scheduler   *services.Scheduler
}

// wire builds the services and injects them into the CLI.
func wire(configDir, dataDir, inboxDir string) (*application, error) {
	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		logger.Warn("Settings: %v", err)
	}

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening record store: %w", err)
	}
	records := store.RecordStore()
	clock := services.SystemClock{}

	monitor := services.NewConnectivityMonitor(
		platform.NewProbe(settings.Connectivity, settings.Remote), clock, settings.Connectivity)

	remote, err := newRemote(settings)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	coordinator := services.NewSyncCoordinator(records, remote, monitor, clock, settings.Sync)
	publisher := services.NewStatusPublisher(records, monitor, coordinator, func() int {
		return coordinator.Settings().MaxAttempts
	})

	provider, err := platform.NewLocationProvider(settings.Geolocation)
	if err != nil {
		logger.Warn("Location provider: %v", err)
		provider = platform.UnsupportedProvider{}
	}
	acquirer := services.NewGeolocationAcquirer(provider, clock, settings.Geolocation)

	capture := services.NewCaptureService(records, monitor, coordinator)
	drafts := services.NewDraftService(store.DraftStore(), capture, clock)
	scheduler := services.NewScheduler(settingsService.GetSchedulerConfig(), store.SchedulerStore(), coordinator, clock)
	drop := inbox.New(inboxDir, capture)

	archive, _ := records.(driving.RecordArchive)
	cli.SetServices(cli.Services{
		Capture:      capture,
		Drafts:       drafts,
		Status:       publisher,
		Queue:        publisher,
		Archive:      archive,
		Sync:         coordinator,
		Geolocation:  acquirer,
		Settings:     settingsService,
		Connectivity: monitor,
	})

	cli.SetBackgroundTasks(
		cli.Task{Name: "connectivity monitor", Run: monitor.Run},
		cli.Task{Name: "sync coordinator", Run: coordinator.Run},
		cli.Task{Name: "scheduler", Run: scheduler.Start},
		cli.Task{Name: "inbox", Run: drop.Run},
		cli.Task{Name: "config watcher", Run: func(ctx context.Context) error {
			return configStore.Watch(ctx, func() {
				reloaded, err := settingsService.Get()
				if err != nil {
					logger.Warn("Reloading settings: %v", err)
					return
				}
				coordinator.UpdateSettings(reloaded.Sync)
				logger.Info("Settings reloaded")
			})
		}},
	)

	return &application{
		store:       store,
		monitor:     monitor,
		coordinator: coordinator,
		publisher:   publisher,
		scheduler:   scheduler,
	}, nil
}

// newRemote returns nil when no remote authority is configured; sync then
// reports domain.ErrRemoteNotConfigured and capture keeps queueing.
func newRemote(settings *domain.AppSettings) (driven.RemoteSubmitter, error) {
	submitter, err := httpapi.NewSubmitter(settings.Remote, httpapi.WithDeviceID(settings.DeviceID))
	if errors.Is(err, domain.ErrRemoteNotConfigured) {
		logger.Debug("No remote authority configured")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("configuring remote: %w", err)
	}
	return submitter, nil
}

func (a *application) close() {
	_ = a.scheduler.Stop()
	_ = a.coordinator.Close()
	_ = a.publisher.Close()
	_ = a.monitor.Close()
	if err := a.store.Close(); err != nil {
		logger.Error("Closing record store: %v", err)
	}
}
