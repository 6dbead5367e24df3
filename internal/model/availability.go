package model

import "fmt"

// Availability is the lifecycle state of the language-model capability.
type Availability int

const (
	// AvailabilityUnavailable means the capability is absent or a check failed.
	AvailabilityUnavailable Availability = iota
	// AvailabilityDownloadable means a session can be created after a download.
	AvailabilityDownloadable
	// AvailabilityDownloading means a download is in progress.
	AvailabilityDownloading
	// AvailabilityAvailable means sessions can be created immediately.
	AvailabilityAvailable
)

// String returns the platform spelling of the state.
func (a Availability) String() string {
	switch a {
	case AvailabilityUnavailable:
		return "unavailable"
	case AvailabilityDownloadable:
		return "downloadable"
	case AvailabilityDownloading:
		return "downloading"
	case AvailabilityAvailable:
		return "available"
	default:
		return "unknown"
	}
}

// ParseAvailability converts the platform spelling back into an Availability.
func ParseAvailability(s string) (Availability, error) {
	switch s {
	case "unavailable":
		return AvailabilityUnavailable, nil
	case "downloadable":
		return AvailabilityDownloadable, nil
	case "downloading":
		return AvailabilityDownloading, nil
	case "available":
		return AvailabilityAvailable, nil
	default:
		return AvailabilityUnavailable, fmt.Errorf("unknown availability %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Availability) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Availability) UnmarshalText(text []byte) error {
	v, err := ParseAvailability(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ClampProgress bounds a download percentage to [0, 100].
func ClampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
