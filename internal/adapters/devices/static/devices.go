package static

import (
	"context"
	"fmt"

	"github.com/bnema/classroom/internal/domain"
	"github.com/bnema/classroom/internal/ports"
)

// Devices answers device checks from a fixed set of failing checks.
type Devices struct {
	failing map[domain.DeviceCheck]bool
}

var _ ports.DeviceTester = Devices{}

func NewDevices(failing ...domain.DeviceCheck) Devices {
	devices := Devices{failing: map[domain.DeviceCheck]bool{}}
	for _, check := range failing {
		devices.failing[check] = true
	}
	return devices
}

func (p Devices) RequestPermissions(ctx context.Context) error {
	return p.check(ctx, domain.CheckPermissions)
}

func (p Devices) TestMicrophone(ctx context.Context) error {
	return p.check(ctx, domain.CheckMicrophone)
}

func (p Devices) TestSpeaker(ctx context.Context) error {
	return p.check(ctx, domain.CheckSpeaker)
}

func (p Devices) PreviewCamera(ctx context.Context) error {
	return p.check(ctx, domain.CheckCamera)
}

func (p Devices) check(ctx context.Context, check domain.DeviceCheck) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.failing[check] {
		return fmt.Errorf("%s unavailable", check)
	}
	return nil
}

// ParseChecks maps check names, as used on the command line, to checks.
func ParseChecks(names []string) ([]domain.DeviceCheck, error) {
	checks := make([]domain.DeviceCheck, 0, len(names))
	for _, name := range names {
		check := domain.DeviceCheck(name)
		switch check {
		case domain.CheckPermissions, domain.CheckMicrophone, domain.CheckSpeaker, domain.CheckCamera:
			checks = append(checks, check)
		default:
			return nil, fmt.Errorf("unknown device check %q", name)
		}
	}
	return checks, nil
}
