package dispatch

import (
	"context"
	"fmt"

	"github.com/nao1215/swiftguard/internal/model"
)

func (d *Dispatcher) getSettings(ctx context.Context) (Settings, error) {
	mode, err := d.deps.Store.MonitoringMode(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read monitoring mode: %w", err)
	}
	inference, err := d.deps.Store.InferenceMode(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read inference mode: %w", err)
	}
	enrollment, err := d.deps.Store.Enrollment(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read enrollment: %w", err)
	}
	availability, progress, err := d.deps.Store.Availability(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read model availability: %w", err)
	}
	return Settings{
		MonitoringMode:   mode,
		InferenceMode:    inference,
		FamilyID:         enrollment.FamilyID,
		FamilyUserID:     enrollment.FamilyUserID,
		Availability:     availability.String(),
		DownloadProgress: progress,
	}, nil
}

// setSettings validates every field before storing any of them and
// returns the resulting settings.
func (d *Dispatcher) setSettings(ctx context.Context, req Request) (Settings, error) {
	u := req.Settings
	if u == nil {
		return Settings{}, fmt.Errorf("%w: set-settings needs settings", ErrInvalidRequest)
	}

	var (
		mode      model.MonitoringMode
		inference model.InferenceMode
		err       error
	)
	if u.MonitoringMode != nil {
		if mode, err = model.ParseMonitoringMode(*u.MonitoringMode); err != nil {
			return Settings{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}
	if u.InferenceMode != nil {
		if inference, err = model.ParseInferenceMode(*u.InferenceMode); err != nil {
			return Settings{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}
	if u.SignedInUID != nil && d.deps.Identity == nil {
		return Settings{}, fmt.Errorf("%w: no identity to sign in", ErrInvalidRequest)
	}

	if u.MonitoringMode != nil {
		if err := d.deps.Store.SetMonitoringMode(ctx, mode); err != nil {
			return Settings{}, fmt.Errorf("failed to store monitoring mode: %w", err)
		}
	}
	if u.InferenceMode != nil {
		if err := d.deps.Store.SetInferenceMode(ctx, inference); err != nil {
			return Settings{}, fmt.Errorf("failed to store inference mode: %w", err)
		}
	}
	if u.FamilyID != nil || u.FamilyUserID != nil {
		enrollment, err := d.deps.Store.Enrollment(ctx)
		if err != nil {
			return Settings{}, fmt.Errorf("failed to read enrollment: %w", err)
		}
		if u.FamilyID != nil {
			enrollment.FamilyID = *u.FamilyID
		}
		if u.FamilyUserID != nil {
			enrollment.FamilyUserID = *u.FamilyUserID
		}
		if err := d.deps.Store.SetEnrollment(ctx, enrollment); err != nil {
			return Settings{}, fmt.Errorf("failed to store enrollment: %w", err)
		}
	}
	if u.SignedInUID != nil {
		if uid := *u.SignedInUID; uid != "" {
			d.deps.Identity.SignIn(uid)
		} else {
			d.deps.Identity.SignOut()
		}
	}
	return d.getSettings(ctx)
}
