package model

import "fmt"

// MonitoringMode selects how chatbot messages are screened.
type MonitoringMode string

const (
	// MonitoringPromptGuard blocks messages that leak sensitive data.
	MonitoringPromptGuard MonitoringMode = "promptguard"
	// MonitoringFamilyCenter reports distress signals without blocking.
	MonitoringFamilyCenter MonitoringMode = "familycenter"
	// MonitoringNone disables interception.
	MonitoringNone MonitoringMode = "none"
)

// DefaultMonitoringMode is used when no mode was ever stored.
const DefaultMonitoringMode = MonitoringPromptGuard

// ParseMonitoringMode validates s. An empty string yields the default mode.
func ParseMonitoringMode(s string) (MonitoringMode, error) {
	switch MonitoringMode(s) {
	case "":
		return DefaultMonitoringMode, nil
	case MonitoringPromptGuard, MonitoringFamilyCenter, MonitoringNone:
		return MonitoringMode(s), nil
	default:
		return "", fmt.Errorf("unknown monitoring mode %q", s)
	}
}

// InferenceMode selects where scam analysis runs.
type InferenceMode string

const (
	// InferenceOnDevice only uses the local model.
	InferenceOnDevice InferenceMode = "on-device"
	// InferenceAllowCloud prefers the cloud model.
	InferenceAllowCloud InferenceMode = "allow-cloud"
	// InferenceCloud only uses the cloud model.
	InferenceCloud InferenceMode = "cloud"
)

// ParseInferenceMode validates s. An empty string yields InferenceOnDevice.
func ParseInferenceMode(s string) (InferenceMode, error) {
	switch InferenceMode(s) {
	case "":
		return InferenceOnDevice, nil
	case InferenceOnDevice, InferenceAllowCloud, InferenceCloud:
		return InferenceMode(s), nil
	default:
		return "", fmt.Errorf("unknown inference mode %q", s)
	}
}
