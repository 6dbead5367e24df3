package llm

import "errors"

var (
	// ErrModelUnavailable is returned when the model cannot be used on this device.
	ErrModelUnavailable = errors.New("language model is unavailable on this device")

	// ErrModelBusy is returned while the model download is in progress.
	ErrModelBusy = errors.New("language model is currently downloading, please wait")

	// ErrTranslatorUnavailable is returned when translation cannot be performed.
	ErrTranslatorUnavailable = errors.New("translator is unavailable")
)
