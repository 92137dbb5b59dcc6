package conf

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/GoProxyGuard/GoProxyGuard/internal/db/models"
)

// Get reconstructs the effective configuration from the stored layers as a
// flat key to value mapping. See GetWithMethods for the resolution order.
func Get(db *gorm.DB) (map[string]string, error) {
	projected, err := GetWithMethods(db)
	if err != nil {
		return nil, err
	}

	config := make(map[string]string, len(projected))
	for key, v := range projected {
		config[key] = v.Value
	}

	return config, nil
}

// GetWithMethods reconstructs the effective configuration, keeping the owning
// method of every value. Resolution per (service, setting, suffix):
//
//  1. the global value, else the setting default (suffix 0 only),
//  2. for multisite-context settings, a per-service key seeded from 1,
//  3. a stored service override, which wins for that service's key.
//
// Suffixes are probed while the setting is multiple and either layer still
// has a row at that suffix.
func GetWithMethods(db *gorm.DB) (map[string]Value, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var services []models.Service
	if err := db.Find(&services).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list services")
	}

	var settings []models.Setting
	if err := db.Find(&settings).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list settings")
	}

	config := make(map[string]Value)

	for _, service := range services {
		for i := range settings {
			if err := projectSetting(db, config, service.ID, &settings[i]); err != nil {
				return nil, err
			}
		}
	}

	return config, nil
}

// projectSetting resolves one setting for one service across all suffixes.
func projectSetting(db *gorm.DB, config map[string]Value, serviceID string, setting *models.Setting) error {
	for suffix := uint(0); ; suffix++ {
		globalID := suffixedKey(setting.ID, suffix)

		var global models.GlobalValue

		err := db.Where("setting_id = ? AND suffix = ?", setting.ID, suffix).First(&global).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if suffix == 0 {
				config[setting.ID] = Value{Value: setting.Default, Method: models.MethodDefault}
			}
		case err != nil:
			return pkgerrors.Wrap(err, "failed to look up global value")
		default:
			config[globalID] = Value{Value: global.Value, Method: global.Method}
		}

		if setting.Context != models.ContextMultisite {
			return nil
		}

		// seed the per-service key from the resolved global or default value
		serviceKey := serviceID + "_" + globalID
		if suffix == 0 {
			config[serviceKey] = Value{Value: config[setting.ID].Value, Method: models.MethodDefault}
		} else if seeded, ok := config[globalID]; ok {
			config[serviceKey] = Value{Value: seeded.Value, Method: models.MethodDefault}
		}

		var override models.ServiceSetting

		err = db.Where("service_id = ? AND setting_id = ? AND suffix = ?", serviceID, setting.ID, suffix).First(&override).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if suffix > 0 {
				// no global and no override at this suffix: stop probing
				return nil
			}
		case err != nil:
			return pkgerrors.Wrap(err, "failed to look up service setting")
		default:
			config[serviceKey] = Value{Value: override.Value, Method: override.Method}
		}

		if !setting.Multiple {
			return nil
		}
	}
}

// ServicesSettings returns one flat settings mapping per service, where every
// key prefixed with the service id is overlaid onto the global projection
// with the prefix stripped.
func ServicesSettings(db *gorm.DB) ([]map[string]string, error) {
	projected, err := ServicesSettingsWithMethods(db)
	if err != nil {
		return nil, err
	}

	services := make([]map[string]string, 0, len(projected))

	for _, view := range projected {
		flat := make(map[string]string, len(view))
		for key, v := range view {
			flat[key] = v.Value
		}

		services = append(services, flat)
	}

	return services, nil
}

// ServicesSettingsWithMethods is ServicesSettings keeping the owning method
// of every value.
func ServicesSettingsWithMethods(db *gorm.DB) ([]map[string]Value, error) {
	config, err := GetWithMethods(db)
	if err != nil {
		return nil, err
	}

	var services []models.Service
	if err := db.Find(&services).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list services")
	}

	views := make([]map[string]Value, 0, len(services))

	for _, service := range services {
		view := make(map[string]Value, len(config))
		for key, v := range config {
			view[key] = v
		}

		prefix := service.ID + "_"

		for key, v := range config {
			if len(key) > len(prefix) && key[:len(prefix)] == prefix {
				view[key[len(prefix):]] = v
			}
		}

		views = append(views, view)
	}

	return views, nil
}
