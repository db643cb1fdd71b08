package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bnema/classroom/internal/domain"
	"github.com/bnema/classroom/internal/ports"
)

// DeviceReadinessTracker owns one participant's ReadinessRecord.
type DeviceReadinessTracker struct {
	devices ports.DeviceTester
	logger  *slog.Logger

	mu       sync.Mutex
	record   domain.ReadinessRecord
	onChange func(domain.ReadinessRecord)
}

func NewDeviceReadinessTracker(devices ports.DeviceTester, logger *slog.Logger) *DeviceReadinessTracker {
	return &DeviceReadinessTracker{
		devices: devices,
		logger:  loggerOrDefault(logger).With("component", "readiness"),
	}
}

// OnChange registers a hook called with every new record.
func (t *DeviceReadinessTracker) OnChange(fn func(domain.ReadinessRecord)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

func (t *DeviceReadinessTracker) Record() domain.ReadinessRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.record
}

func (t *DeviceReadinessTracker) RequestPermissions(ctx context.Context) (domain.ReadinessRecord, error) {
	err := t.devices.RequestPermissions(ctx)
	record := t.apply(domain.CheckPermissions, err == nil)
	if err != nil {
		t.logger.Warn("device permissions refused", "error", err)
		return record, fmt.Errorf("request permissions: %w", errors.Join(domain.ErrPermissionDenied, err))
	}
	return record, nil
}

func (t *DeviceReadinessTracker) TestMicrophone(ctx context.Context) (domain.ReadinessRecord, error) {
	return t.runCheck(ctx, domain.CheckMicrophone, t.devices.TestMicrophone)
}

func (t *DeviceReadinessTracker) TestSpeaker(ctx context.Context) (domain.ReadinessRecord, error) {
	return t.runCheck(ctx, domain.CheckSpeaker, t.devices.TestSpeaker)
}

func (t *DeviceReadinessTracker) PreviewCamera(ctx context.Context) (domain.ReadinessRecord, error) {
	return t.runCheck(ctx, domain.CheckCamera, t.devices.PreviewCamera)
}

// ConfirmReady only requires granted permissions. Calling it again once
// confirmed returns the current record unchanged.
func (t *DeviceReadinessTracker) ConfirmReady() (domain.ReadinessRecord, error) {
	t.mu.Lock()
	before := t.record
	confirmed, err := before.Confirm()
	t.record = confirmed
	hook := t.onChange
	t.mu.Unlock()

	if err != nil {
		return confirmed, fmt.Errorf("confirm ready: %w", err)
	}
	if hook != nil && confirmed != before {
		hook(confirmed)
	}
	return confirmed, nil
}

// RunChecks runs every device check in order. Only a permission refusal is
// returned as an error; device test failures are logged and skipped.
func (t *DeviceReadinessTracker) RunChecks(ctx context.Context) (domain.ReadinessRecord, error) {
	record, err := t.RequestPermissions(ctx)
	if err != nil {
		return record, err
	}

	for _, check := range []func(context.Context) (domain.ReadinessRecord, error){
		t.TestMicrophone,
		t.TestSpeaker,
		t.PreviewCamera,
	} {
		if record, err = check(ctx); err != nil {
			t.logger.Info("device check failed, continuing", "error", err)
		}
	}

	return record, nil
}

func (t *DeviceReadinessTracker) runCheck(ctx context.Context, check domain.DeviceCheck, fn func(context.Context) error) (domain.ReadinessRecord, error) {
	err := fn(ctx)
	record := t.apply(check, err == nil)
	if err != nil {
		return record, fmt.Errorf("%s check: %w", check, err)
	}
	return record, nil
}

func (t *DeviceReadinessTracker) apply(check domain.DeviceCheck, ok bool) domain.ReadinessRecord {
	t.mu.Lock()
	before := t.record
	t.record = before.Mark(check, ok)
	record := t.record
	hook := t.onChange
	t.mu.Unlock()

	if hook != nil && record != before {
		hook(record)
	}
	return record
}
