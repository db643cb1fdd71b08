package ports

import "context"

// DeviceTester checks local media devices. A nil error means the check passed.
type DeviceTester interface {
	RequestPermissions(ctx context.Context) error
	TestMicrophone(ctx context.Context) error
	TestSpeaker(ctx context.Context) error
	PreviewCamera(ctx context.Context) error
}
