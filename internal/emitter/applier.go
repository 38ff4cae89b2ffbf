package emitter

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/ir-emitter/internal/driver"
)

// RecordSource is the read side of the driver store.
type RecordSource interface {
	Load(device string) (driver.Record, error)
	List() ([]driver.Record, error)
}

// Logger defines the logging interface for the applier.
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

// Applier replays stored activation patterns against devices.
type Applier struct {
	records RecordSource
	open    Opener
	logger  Logger
}

// NewApplier creates an applier reading records from records and opening
// devices with open.
func NewApplier(records RecordSource, open Opener) *Applier {
	return &Applier{
		records: records,
		open:    open,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the applier.
func (a *Applier) SetLogger(logger Logger) {
	a.logger = logger
}

// Apply loads the record of device and executes its pattern in order.
// Without a successful record it returns ErrNoDriverConfigured and never
// touches the device. The first rejected instruction aborts with
// ErrApplyFailed. Applying the same record twice is harmless.
func (a *Applier) Apply(ctx context.Context, device string) error {
	rec, err := a.records.Load(device)
	if err != nil {
		if errors.Is(err, driver.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNoDriverConfigured, device)
		}
		return fmt.Errorf("loading driver for %s: %w", device, err)
	}
	return a.applyRecord(ctx, rec)
}

// ApplyAll applies every stored record and returns how many succeeded.
// Failures do not stop the remaining devices; they are joined in the
// returned error. With no records at all it returns ErrNoDriverConfigured.
func (a *Applier) ApplyAll(ctx context.Context) (int, error) {
	records, err := a.records.List()
	if err != nil {
		return 0, fmt.Errorf("listing drivers: %w", err)
	}
	if len(records) == 0 {
		return 0, ErrNoDriverConfigured
	}

	var errs []error
	applied := 0
	for _, rec := range records {
		if err := a.applyRecord(ctx, rec); err != nil {
			a.logger.Error("applying driver failed", "device", rec.Device, "error", err)
			errs = append(errs, err)
			continue
		}
		applied++
	}
	return applied, errors.Join(errs...)
}

func (a *Applier) applyRecord(ctx context.Context, rec driver.Record) error {
	dev, err := a.open(rec.Device)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrApplyFailed, err)
	}
	defer dev.Close() //nolint:errcheck // Nothing useful to do with a close error after writing controls

	for i, in := range rec.Pattern {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := dev.SetControl(in.Unit, in.Selector, in.Control); err != nil {
			return fmt.Errorf("%w: %s instruction %d: %v", ErrApplyFailed, rec.Device, i, err)
		}
		a.logger.Debug("control set",
			"device", rec.Device,
			"unit", in.Unit,
			"selector", in.Selector,
			"control", in.Control.String(),
		)
	}

	a.logger.Info("driver applied", "device", rec.Device, "instructions", len(rec.Pattern))
	return nil
}
