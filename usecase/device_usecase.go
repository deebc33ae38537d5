package usecase

import (
	"context"
	"time"
)

// DeviceUsecase defines the interface for device identity registration.
type DeviceUsecase interface {
	// Register creates or refreshes the device identity with the server. A
	// fresh identity goes through the uniqueness check first and adopts the
	// id the server returns before signing in.
	Register(ctx context.Context) error

	// FirstRegisteredTime returns when the server first saw this device, if
	// a registration round trip has reported it.
	FirstRegisteredTime() *time.Time
}
