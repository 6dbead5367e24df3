package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrMissingListen is returned when the API listen address is empty.
	ErrMissingListen = errors.New("listen address must not be empty")

	// ErrMissingModel is returned when no local model name is configured.
	ErrMissingModel = errors.New("model name must not be empty")

	// ErrInvalidMonitoringMode is returned for a monitoring mode other than
	// promptguard, familycenter or none.
	ErrInvalidMonitoringMode = errors.New("invalid monitoring mode")

	// ErrInvalidInferenceMode is returned for an inference mode other than
	// on-device, allow-cloud or cloud.
	ErrInvalidInferenceMode = errors.New("invalid inference mode")

	// ErrCloudNotConfigured is returned when cloud inference is selected
	// without a cloud endpoint.
	ErrCloudNotConfigured = errors.New("cloud inference requires cloud_url and cloud_model")

	// ErrInvalidDuration is returned when a delay is negative.
	ErrInvalidDuration = errors.New("invalid duration: must be non-negative")

	// ErrInvalidRate is returned when the fact-check rate is not positive.
	ErrInvalidRate = errors.New("invalid fact-check rate: must be positive")

	// ErrInvalidLogLimit is returned when a rolling log limit is not positive.
	ErrInvalidLogLimit = errors.New("invalid log limit: must be positive")

	// ErrConfigNotFound is returned when an explicitly named configuration
	// file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
