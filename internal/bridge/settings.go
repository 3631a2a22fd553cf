package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pt-trader/internal/bus"
	"pt-trader/internal/model"
	"pt-trader/internal/store"
)

var defaultAppSettings = model.AppSettings{
	AppName:        "PT Trader",
	PrimaryColor:   "#1976d2",
	SecondaryColor: "#121212",
}

// GetAppSettings reads the branding record; a missing key reads as the
// defaults.
func (b *Bridge) GetAppSettings(ctx context.Context) (model.AppSettings, error) {
	raw, err := b.store.Get(ctx, store.KeyAppSettings)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return defaultAppSettings, nil
		}
		return model.AppSettings{}, err
	}
	var settings model.AppSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return model.AppSettings{}, fmt.Errorf("corrupt app settings: %w", err)
	}
	return settings, nil
}

// AppSettingsUpdate carries the partial fields an admin may merge into the
// branding record.
type AppSettingsUpdate struct {
	AppName        *string
	LogoURL        *string
	PrimaryColor   *string
	SecondaryColor *string
}

func (b *Bridge) UpdateAppSettings(ctx context.Context, upd AppSettingsUpdate) (model.AppSettings, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	settings, err := b.GetAppSettings(ctx)
	if err != nil {
		return model.AppSettings{}, err
	}
	if upd.AppName != nil {
		settings.AppName = *upd.AppName
	}
	if upd.LogoURL != nil {
		settings.LogoURL = *upd.LogoURL
	}
	if upd.PrimaryColor != nil {
		settings.PrimaryColor = *upd.PrimaryColor
	}
	if upd.SecondaryColor != nil {
		settings.SecondaryColor = *upd.SecondaryColor
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return model.AppSettings{}, err
	}
	if err := b.store.Set(ctx, store.KeyAppSettings, raw); err != nil {
		return model.AppSettings{}, err
	}
	b.bus.Publish(bus.Event{Type: bus.EventSettingsUpdated})
	return settings, nil
}
