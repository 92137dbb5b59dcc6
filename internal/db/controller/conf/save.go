package conf

import (
	"errors"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/GoProxyGuard/GoProxyGuard/internal/db/models"
)

// Save reconciles a submitted desired configuration against the stored
// global and per-service values, attributed to the given writer method.
//
// The writer's previous contribution is fully retired before the submission
// is merged, so an empty config is a pure wipe of that writer's rows. Values
// equal to their setting default are never stored; unknown keys are silently
// ignored. The whole operation runs in one transaction.
func Save(db *gorm.DB, config map[string]string, method string) error {
	if db == nil {
		return ErrDBNil
	}

	if method == "" {
		return ErrMethodEmpty
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("method = ?", method).Delete(&models.GlobalValue{}).Error; err != nil {
			return pkgerrors.Wrap(err, "failed to retire previous global values")
		}

		if err := tx.Where("method = ?", method).Delete(&models.ServiceSetting{}).Error; err != nil {
			return pkgerrors.Wrap(err, "failed to retire previous service settings")
		}

		if len(config) > 0 {
			var err error
			if config[KeyMultisite] == multisiteEnabled {
				err = saveMultisite(tx, config, method)
			} else {
				err = saveSingleSite(tx, config, method)
			}

			if err != nil {
				return err
			}
		}

		return markFirstConfigSaved(tx)
	})
}

// saveMultisite merges a multisite submission: keys prefixed with one of the
// submitted service names become per-service overrides, everything else is
// merged into the global layer. Global keys do not depend on any service
// being submitted, so a submission without SERVER_NAME still merges them.
func saveMultisite(tx *gorm.DB, config map[string]string, method string) error {
	serverNames := strings.Fields(config[KeyServerName])

	for _, serverName := range serverNames {
		if err := ensureService(tx, serverName); err != nil {
			return err
		}
	}

	for rawKey, value := range config {
		key, suffix := parseSuffix(rawKey)

		merged, err := mergeServicePrefixed(tx, config, serverNames, key, suffix, value, method)
		if err != nil {
			return err
		}

		if merged {
			continue
		}

		setting, err := lookupSetting(tx, key)
		if err != nil {
			return err
		}

		if setting == nil {
			// forward-compatible: unknown keys are dropped
			continue
		}

		if err := mergeGlobalValue(tx, setting, suffix, value, method, false); err != nil {
			return err
		}
	}

	return nil
}

// mergeServicePrefixed merges key as a per-service override when it carries
// the prefix of a submitted service name followed by a known setting id. It
// reports whether the key was consumed.
func mergeServicePrefixed(tx *gorm.DB, config map[string]string, serverNames []string, key string, suffix uint, value, method string) (bool, error) {
	for _, serverName := range serverNames {
		prefix := serverName + "_"
		if !strings.HasPrefix(key, prefix) {
			continue
		}

		setting, err := lookupSetting(tx, strings.TrimPrefix(key, prefix))
		if err != nil {
			return false, err
		}

		if setting == nil {
			continue
		}

		return true, mergeServiceValue(tx, config, serverName, setting, suffix, value, method)
	}

	return false, nil
}

// saveSingleSite merges a single-site submission: the first SERVER_NAME
// entry is the only service and every key is global-scoped.
func saveSingleSite(tx *gorm.DB, config map[string]string, method string) error {
	if names := strings.Fields(config[KeyServerName]); len(names) > 0 {
		if err := ensureService(tx, names[0]); err != nil {
			return err
		}
	}

	for rawKey, value := range config {
		key, suffix := parseSuffix(rawKey)

		setting, err := lookupSetting(tx, key)
		if err != nil {
			return err
		}

		if setting == nil || value == setting.Default {
			continue
		}

		if err := mergeGlobalValue(tx, setting, suffix, value, method, true); err != nil {
			return err
		}
	}

	return nil
}

// mergeServiceValue applies the ownership rules to one per-service override.
func mergeServiceValue(tx *gorm.DB, config map[string]string, serviceID string, setting *models.Setting, suffix uint, value, method string) error {
	// A service value equal to the setting default or to the pending global
	// submission of the same key is redundant. SERVER_NAME itself is exempt
	// so the service list always round-trips.
	redundant := setting.ID != KeyServerName && (value == setting.Default || pendingGlobalEquals(config, setting.ID, suffix, value))

	var row models.ServiceSetting

	err := tx.Where("service_id = ? AND setting_id = ? AND suffix = ?", serviceID, setting.ID, suffix).First(&row).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if redundant {
			return nil
		}

		row = models.ServiceSetting{
			ServiceID: serviceID,
			SettingID: setting.ID,
			Suffix:    suffix,
			Value:     value,
			Method:    method,
		}

		return pkgerrors.Wrap(tx.Create(&row).Error, "failed to create service setting")
	case err != nil:
		return pkgerrors.Wrap(err, "failed to look up service setting")
	case method == models.MethodAutoconf:
		if redundant {
			return pkgerrors.Wrap(tx.Delete(&row).Error, "failed to delete service setting")
		}

		if row.Value != value {
			// gorm.Save would INSERT here: Suffix 0 reads as an empty
			// primary key field, so update on the full compound key instead
			err := tx.Model(&models.ServiceSetting{}).
				Where("service_id = ? AND setting_id = ? AND suffix = ?", serviceID, setting.ID, suffix).
				Updates(map[string]any{"value": value, "method": method}).Error

			return pkgerrors.Wrap(err, "failed to update service setting")
		}

		return nil
	default:
		// the row belongs to another writer, leave it untouched
		return nil
	}
}

// mergeGlobalValue applies the ownership rules to one global value. In
// single-site mode a row already owned by the writer is updated in place,
// since the writer's rows were not prefix-scoped away during the wipe of an
// earlier partial submission.
func mergeGlobalValue(tx *gorm.DB, setting *models.Setting, suffix uint, value, method string, ownerUpdates bool) error {
	var row models.GlobalValue

	err := tx.Where("setting_id = ? AND suffix = ?", setting.ID, suffix).First(&row).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if value == setting.Default {
			return nil
		}

		row = models.GlobalValue{
			SettingID: setting.ID,
			Suffix:    suffix,
			Value:     value,
			Method:    method,
		}

		return pkgerrors.Wrap(tx.Create(&row).Error, "failed to create global value")
	case err != nil:
		return pkgerrors.Wrap(err, "failed to look up global value")
	case ownerUpdates && row.Method == method:
		if row.Value != value {
			err := tx.Model(&models.GlobalValue{}).
				Where("setting_id = ? AND suffix = ?", setting.ID, suffix).
				Update("value", value).Error

			return pkgerrors.Wrap(err, "failed to update global value")
		}

		return nil
	case method == models.MethodAutoconf:
		if value == setting.Default {
			return pkgerrors.Wrap(tx.Delete(&row).Error, "failed to delete global value")
		}

		if row.Value != value {
			// gorm.Save would INSERT here: Suffix 0 reads as an empty
			// primary key field, so update on the full compound key instead
			err := tx.Model(&models.GlobalValue{}).
				Where("setting_id = ? AND suffix = ?", setting.ID, suffix).
				Updates(map[string]any{"value": value, "method": method}).Error

			return pkgerrors.Wrap(err, "failed to update global value")
		}

		return nil
	default:
		// the row belongs to another writer, leave it untouched
		return nil
	}
}

// pendingGlobalEquals reports whether the submission itself carries a global
// value for the same setting instance equal to value.
func pendingGlobalEquals(config map[string]string, settingID string, suffix uint, value string) bool {
	global, ok := config[suffixedKey(settingID, suffix)]
	return ok && global == value
}

// ensureService creates the service row if it does not exist yet.
func ensureService(tx *gorm.DB, serviceID string) error {
	if serviceID == "" {
		return nil
	}

	var service models.Service

	err := tx.Where("id = ?", serviceID).First(&service).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(tx.Create(&models.Service{ID: serviceID}).Error, "failed to create service")
	}

	return pkgerrors.Wrap(err, "failed to look up service")
}

// lookupSetting returns the setting definition or nil when the id is not a
// known setting.
func lookupSetting(tx *gorm.DB, settingID string) (*models.Setting, error) {
	var setting models.Setting

	err := tx.Where("id = ?", settingID).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil //nolint:nilnil // absence is a policy, not an error
	}

	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to look up setting")
	}

	return &setting, nil
}

// markFirstConfigSaved flips the metadata flag on the first successful save.
func markFirstConfigSaved(tx *gorm.DB) error {
	var meta models.Metadata

	err := tx.First(&meta, 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}

	if err != nil {
		return pkgerrors.Wrap(err, "failed to load metadata")
	}

	if meta.FirstConfigSaved {
		return nil
	}

	meta.FirstConfigSaved = true

	return pkgerrors.Wrap(tx.Save(&meta).Error, "failed to update metadata")
}
