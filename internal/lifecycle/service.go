package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/ir-emitter/internal/boot"
	"github.com/nerrad567/ir-emitter/internal/camera"
	"github.com/nerrad567/ir-emitter/internal/discovery"
	"github.com/nerrad567/ir-emitter/internal/driver"
	"github.com/nerrad567/ir-emitter/internal/fileutil"
	"github.com/nerrad567/ir-emitter/internal/history"
	"github.com/nerrad567/ir-emitter/internal/telemetry"
)

// DocsURL is where users are sent when a driver search fails.
const DocsURL = "https://github.com/EmixamPP/linux-enable-ir-emitter/blob/master/docs/README.md"

// Boot actions accepted by Service.Boot.
const (
	BootEnable  = "enable"
	BootDisable = "disable"
	BootStatus  = "status"
)

// Store is the part of driver.Store the service uses.
type Store interface {
	Exists(device string) bool
	List() ([]driver.Record, error)
	SetIdentity(device string, id camera.Identity) error
	Delete(device string) error
	DeleteAll() (int, error)
	Lock() (*fileutil.Lock, error)
}

// Discoverer runs the external driver search.
type Discoverer interface {
	Discover(ctx context.Context, req discovery.Request) (discovery.Result, error)
}

// Identifier looks up the udev identity of a device.
type Identifier interface {
	Identify(ctx context.Context, device string) (camera.Identity, error)
}

// Applier replays stored drivers.
type Applier interface {
	Apply(ctx context.Context, device string) error
	ApplyAll(ctx context.Context) (int, error)
}

// BootManager owns the udev rule file and the init system service.
type BootManager interface {
	Enable(ctx context.Context, ids []camera.Identity) boot.Report
	Disable(ctx context.Context) boot.Report
	Status(ctx context.Context) boot.StatusReport
}

// Recorder receives one event per completed operation.
type Recorder interface {
	Record(ctx context.Context, ev telemetry.Event)
}

// Logger defines the logging interface for the service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, telemetry.Event) {}

// Deps are the collaborators of a Service. Recorder is optional.
type Deps struct {
	Store      Store
	Discoverer Discoverer
	Identifier Identifier
	Applier    Applier
	Boot       BootManager
	Recorder   Recorder
}

// Outcome is the result of one orchestrated operation. ExitCode becomes
// the process exit code.
type Outcome struct {
	ExitCode int
	Err      error

	// Report is set by operations that touched boot registration.
	Report *boot.Report

	// Status is set by Boot(ctx, "status").
	Status *boot.StatusReport
}

func failed(err error) Outcome {
	return Outcome{ExitCode: 1, Err: err}
}

// Service sequences discovery, persistence, boot registration and runtime
// application. Each method performs one complete operation.
type Service struct {
	store      Store
	discoverer Discoverer
	identifier Identifier
	applier    Applier
	boot       BootManager
	recorder   Recorder
	logger     Logger
}

// NewService creates a service. Every dependency except Recorder is required.
func NewService(d Deps) (*Service, error) {
	switch {
	case d.Store == nil:
		return nil, errors.New("lifecycle: store is required")
	case d.Discoverer == nil:
		return nil, errors.New("lifecycle: discoverer is required")
	case d.Identifier == nil:
		return nil, errors.New("lifecycle: identifier is required")
	case d.Applier == nil:
		return nil, errors.New("lifecycle: applier is required")
	case d.Boot == nil:
		return nil, errors.New("lifecycle: boot manager is required")
	}

	s := &Service{
		store:      d.Store,
		discoverer: d.Discoverer,
		identifier: d.Identifier,
		applier:    d.Applier,
		boot:       d.Boot,
		recorder:   d.Recorder,
		logger:     noopLogger{},
	}
	if s.recorder == nil {
		s.recorder = noopRecorder{}
	}
	return s, nil
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// ConfigureRequest holds the parameters of a driver search.
type ConfigureRequest struct {
	Device         string
	Emitters       int
	NegAnswerLimit int
	Manual         bool
	Verbose        bool
}

// Configure searches a driver for req.Device and, on success, registers
// every configured device for activation at boot.
//
// A failed search leaves the store and the rule file as they were and
// returns the generator's exit code.
func (s *Service) Configure(ctx context.Context, req ConfigureRequest) Outcome {
	start := time.Now()
	out := s.configure(ctx, req)

	ev := telemetry.Since(history.ActionConfigure, req.Device, start, out.ExitCode, out.Err)
	ev.Details = map[string]any{
		"emitters":         req.Emitters,
		"neg_answer_limit": req.NegAnswerLimit,
		"manual":           req.Manual,
	}
	s.recorder.Record(ctx, ev)
	return out
}

func (s *Service) configure(ctx context.Context, req ConfigureRequest) Outcome {
	lock, err := s.store.Lock()
	if err != nil {
		return failed(fmt.Errorf("configuring %s: %w", req.Device, err))
	}
	defer lock.Release() //nolint:errcheck // Released on exit anyway

	s.logger.Info("stand in front of and close to the camera and make sure the room is well lit")
	s.logger.Info("do not use the camera or interrupt the process during the search")

	res, err := s.discoverer.Discover(ctx, discovery.Request{
		Device:         req.Device,
		Emitters:       req.Emitters,
		NegAnswerLimit: req.NegAnswerLimit,
		Manual:         req.Manual,
		Verbose:        req.Verbose,
	})
	if err != nil {
		code := res.ExitCode
		if code <= 0 {
			code = 1
		}
		s.logger.Error("the configuration has failed", "device", req.Device, "error", err)
		if !req.Manual {
			s.logger.Info("retry in manual mode by adding the --manual option")
		}
		s.logger.Info("documentation: " + DocsURL)
		return Outcome{ExitCode: code, Err: err}
	}

	if !s.store.Exists(req.Device) {
		err := fmt.Errorf("%w: %s", ErrNoDriverWritten, req.Device)
		s.logger.Error("the configuration has failed", "device", req.Device, "error", err)
		s.logger.Info("documentation: " + DocsURL)
		return failed(err)
	}
	s.logger.Info("the driver has been successfully generated", "device", req.Device)

	// The identity is refreshed on every configure since the camera may have
	// moved to another port. A failure still rebuilds registration for the
	// other devices.
	var identifyErr error
	id, err := s.identifier.Identify(ctx, req.Device)
	switch {
	case err != nil:
		identifyErr = err
		s.logger.Error("cannot register the device for boot", "device", req.Device, "error", err)
	default:
		if err := s.store.SetIdentity(req.Device, id); err != nil {
			identifyErr = fmt.Errorf("recording identity of %s: %w", req.Device, err)
			s.logger.Error("cannot register the device for boot", "device", req.Device, "error", identifyErr)
		}
	}

	out := s.enableBoot(ctx, req.Device)
	if identifyErr != nil {
		return worse(failed(identifyErr), out)
	}
	return out
}

// Run applies the stored driver of device, or of every configured device
// when device is empty. It takes no lock; udev may run it at any time.
func (s *Service) Run(ctx context.Context, device string) Outcome {
	start := time.Now()
	out := s.apply(ctx, device)
	s.recorder.Record(ctx, telemetry.Since(history.ActionRun, device, start, out.ExitCode, out.Err))
	return out
}

// Test applies the driver like Run but records nothing, so it can be used
// to try a driver without polluting the history.
func (s *Service) Test(ctx context.Context, device string) Outcome {
	out := s.apply(ctx, device)
	if out.Err == nil {
		s.logger.Info("the emitter should now be flashing; check the camera image")
	}
	return out
}

func (s *Service) apply(ctx context.Context, device string) Outcome {
	if device != "" {
		if err := s.applier.Apply(ctx, device); err != nil {
			return failed(err)
		}
		return Outcome{}
	}

	applied, err := s.applier.ApplyAll(ctx)
	if err != nil {
		return failed(err)
	}
	s.logger.Debug("drivers applied", "count", applied)
	return Outcome{}
}

// Delete removes the driver of device, or every driver when device is
// empty. The rule file is not regenerated; "boot enable" refreshes it.
func (s *Service) Delete(ctx context.Context, device string) Outcome {
	start := time.Now()
	out := s.delete(device)
	s.recorder.Record(ctx, telemetry.Since(history.ActionDelete, device, start, out.ExitCode, out.Err))
	return out
}

func (s *Service) delete(device string) Outcome {
	lock, err := s.store.Lock()
	if err != nil {
		return failed(fmt.Errorf("deleting drivers: %w", err))
	}
	defer lock.Release() //nolint:errcheck // Released on exit anyway

	if device == "" {
		n, err := s.store.DeleteAll()
		if err != nil {
			return failed(err)
		}
		s.logger.Info("drivers deleted", "count", n)
	} else {
		if err := s.store.Delete(device); err != nil {
			return failed(err)
		}
		s.logger.Info("driver deleted", "device", device)
	}

	s.logger.Info("run 'boot enable' to refresh the udev rules")
	return Outcome{}
}

// Boot enables, disables or reports boot registration.
func (s *Service) Boot(ctx context.Context, action string) Outcome {
	switch action {
	case BootStatus:
		st := s.boot.Status(ctx)
		return Outcome{ExitCode: st.ExitCode(), Err: st.BackendErr, Status: &st}
	case BootEnable, BootDisable:
	default:
		return failed(fmt.Errorf("%w: %q", ErrUnknownBootAction, action))
	}

	start := time.Now()
	var out Outcome
	lock, err := s.store.Lock()
	if err != nil {
		out = failed(fmt.Errorf("boot %s: %w", action, err))
	} else {
		if action == BootEnable {
			out = s.enableBoot(ctx, "")
		} else {
			report := s.boot.Disable(ctx)
			out = Outcome{ExitCode: report.ExitCode(), Err: report.Err(), Report: &report}
		}
		lock.Release() //nolint:errcheck // Released on exit anyway
	}

	evAction := history.ActionBootEnable
	if action == BootDisable {
		evAction = history.ActionBootDisable
	}
	s.recorder.Record(ctx, telemetry.Since(evAction, "", start, out.ExitCode, out.Err))
	return out
}

// enableBoot regenerates boot registration from every stored record.
// Records without a cached identity are identified now and the identity is
// written back; skip names a device whose identification already failed
// during this operation. The caller holds the store lock.
func (s *Service) enableBoot(ctx context.Context, skip string) Outcome {
	ids, missing, err := s.identities(ctx, skip)
	if err != nil {
		return failed(err)
	}
	if len(ids) == 0 {
		s.logger.Warn("no configured device has a udev identity; the rule file will be empty")
	}

	report := s.boot.Enable(ctx, ids)
	out := Outcome{ExitCode: report.ExitCode(), Err: report.Err(), Report: &report}
	if missing != nil {
		return worse(failed(missing), out)
	}
	return out
}

// identities returns the udev identity of every stored record. Devices that
// cannot be identified are left out of the result and reported in missing.
func (s *Service) identities(ctx context.Context, skip string) (ids []camera.Identity, missing, err error) {
	records, err := s.store.List()
	if err != nil {
		return nil, nil, fmt.Errorf("listing drivers: %w", err)
	}

	ids = make([]camera.Identity, 0, len(records))
	var errs []error
	for _, rec := range records {
		if rec.Identity != nil {
			ids = append(ids, *rec.Identity)
			continue
		}
		if rec.Device == skip {
			errs = append(errs, fmt.Errorf("%w: %s", ErrNoIdentity, rec.Device))
			continue
		}

		id, err := s.identifier.Identify(ctx, rec.Device)
		if err != nil {
			s.logger.Warn("driver has no udev identity and the device cannot be identified", "device", rec.Device, "error", err)
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrNoIdentity, rec.Device, err))
			continue
		}
		if err := s.store.SetIdentity(rec.Device, id); err != nil {
			s.logger.Warn("cannot record udev identity", "device", rec.Device, "error", err)
		}
		ids = append(ids, id)
	}
	return ids, errors.Join(errs...), nil
}

// worse combines two outcomes: the higher exit code wins and both errors
// are kept. The boot report and status come from b.
func worse(a, b Outcome) Outcome {
	out := b
	if a.ExitCode > out.ExitCode {
		out.ExitCode = a.ExitCode
	}
	out.Err = errors.Join(a.Err, b.Err)
	return out
}
