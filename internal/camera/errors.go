package camera

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFrame means the surface has nothing renderable yet. Callers treat
	// it as "try again on the next trigger", not as a failure.
	ErrNoFrame = errors.New("no frame available")

	ErrPermissionDenied = errors.New("camera permission denied")
	ErrNoDevice         = errors.New("camera device not found")
	ErrDeviceBusy       = errors.New("camera device busy")
	ErrInsecureContext  = errors.New("camera requires a secure context")

	// ErrPlaybackBlocked is returned by Stream.Play when playback may only
	// begin after a user interaction.
	ErrPlaybackBlocked = errors.New("playback blocked until user interaction")
)

// Describe turns an acquisition error into the single message shown to the user.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return "camera permission denied, allow camera access in the browser or system settings"
	case errors.Is(err, ErrNoDevice):
		return "no camera device found, check the hardware"
	case errors.Is(err, ErrDeviceBusy):
		return "camera is in use by another application, close it and retry"
	case errors.Is(err, ErrInsecureContext):
		return "camera access requires a secure (HTTPS) connection"
	default:
		return fmt.Sprintf("unable to access camera: %v", err)
	}
}
