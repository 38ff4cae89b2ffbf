package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nerrad567/ir-emitter/internal/boot"
	"github.com/nerrad567/ir-emitter/internal/camera"
	"github.com/nerrad567/ir-emitter/internal/discovery"
	"github.com/nerrad567/ir-emitter/internal/driver"
	"github.com/nerrad567/ir-emitter/internal/emitter"
	"github.com/nerrad567/ir-emitter/internal/history"
	"github.com/nerrad567/ir-emitter/internal/infrastructure/config"
	"github.com/nerrad567/ir-emitter/internal/infrastructure/database"
	"github.com/nerrad567/ir-emitter/internal/infrastructure/logging"
	"github.com/nerrad567/ir-emitter/internal/lifecycle"
	"github.com/nerrad567/ir-emitter/internal/process"
	"github.com/nerrad567/ir-emitter/internal/telemetry"
)

// Lifecycle is the operation surface of lifecycle.Service.
type Lifecycle interface {
	Configure(ctx context.Context, req lifecycle.ConfigureRequest) lifecycle.Outcome
	Run(ctx context.Context, device string) lifecycle.Outcome
	Test(ctx context.Context, device string) lifecycle.Outcome
	Delete(ctx context.Context, device string) lifecycle.Outcome
	Boot(ctx context.Context, action string) lifecycle.Outcome
}

// DeviceResolver maps user device paths to by-path names.
type DeviceResolver interface {
	Resolve(device string) (string, error)
	List() ([]string, error)
}

// HistoryReader lists recorded lifecycle events.
type HistoryReader interface {
	List(ctx context.Context, filter history.Filter) ([]history.Event, error)
}

// App is a wired lifecycle service plus the resources it holds open.
type App struct {
	Service  Lifecycle
	Resolver DeviceResolver

	closers []io.Closer
}

// Close releases telemetry connections and the history database.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildApp wires the production collaborators for cfg.
func BuildApp(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, error) {
	runner := process.NewExecRunner()
	runner.SetLogger(logger.With("component", "process"))

	store := driver.NewStore(cfg.Paths.DriverDir)
	store.SetLogger(logger.With("component", "driver"))

	resolver := camera.NewResolver(cfg.Paths.ByPathDir, runner)
	resolver.SetLogger(logger.With("component", "camera"))

	invoker, err := discovery.NewInvoker(discovery.Config{
		Binary:     cfg.Discovery.Binary,
		DriverDir:  cfg.Paths.DriverDir,
		Exhaustive: cfg.Discovery.Exhaustive,
	}, runner)
	if err != nil {
		return nil, err
	}
	invoker.SetLogger(logger.With("component", "discovery"))

	applier := emitter.NewApplier(store, emitter.OpenUVC)
	applier.SetLogger(logger.With("component", "emitter"))

	kind, err := boot.Resolve(ctx, cfg.Boot.Backend)
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(cfg.Boot.CommandTimeout) * time.Second
	backend, err := boot.NewBackend(boot.BackendConfig{
		Kind:           kind,
		ServiceName:    cfg.Boot.ServiceName,
		Executable:     cfg.Paths.Executable,
		UnitDir:        cfg.Boot.SystemdUnitDir,
		InitDir:        cfg.Boot.OpenRCInitDir,
		CommandTimeout: timeout,
	}, runner)
	if err != nil {
		return nil, err
	}
	bootLogger := logger.With("component", "boot", "backend", string(kind))
	backend.SetLogger(bootLogger)

	manager, err := boot.NewManager(boot.Config{
		RuleFile:       cfg.Paths.RuleFile,
		Executable:     cfg.Paths.Executable,
		CommandTimeout: timeout,
	}, backend, runner)
	if err != nil {
		return nil, err
	}
	manager.SetLogger(bootLogger)

	events := telemetry.DefaultOpener().Open(ctx, cfg, telemetry.Hostname(), logger.With("component", "telemetry"))

	svc, err := lifecycle.NewService(lifecycle.Deps{
		Store:      store,
		Discoverer: invoker,
		Identifier: resolver,
		Applier:    applier,
		Boot:       manager,
		Recorder:   events,
	})
	if err != nil {
		events.Close() //nolint:errcheck // already failing
		return nil, err
	}
	svc.SetLogger(logger.With("component", "lifecycle"))

	return &App{
		Service:  svc,
		Resolver: resolver,
		closers:  []io.Closer{events},
	}, nil
}

// openHistory opens the history database read side.
func openHistory(ctx context.Context, cfg *config.Config) (HistoryReader, io.Closer, error) {
	if !cfg.History.Enabled {
		return nil, nil, fmt.Errorf("history is disabled in the configuration")
	}
	store, err := history.Open(ctx, database.Config{
		Path:        cfg.History.Path,
		WALMode:     cfg.History.WALMode,
		BusyTimeout: cfg.History.BusyTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return store, store, nil
}
