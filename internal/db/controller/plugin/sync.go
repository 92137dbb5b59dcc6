package plugin

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoProxyGuard/GoProxyGuard/internal/db/models"
)

// UpdateExternal reconciles the complete desired set of external plugins
// against the store. External plugins absent from the desired set are
// deleted with their whole graph; present ones are diffed collection by
// collection so the operation converges and is safe to retry. Builtin
// plugins claimed by a manifest are skipped with a warning, never modified.
// The reconciliation runs in one transaction.
func UpdateExternal(db *gorm.DB, manifests []Manifest) error {
	if db == nil {
		return ErrDBNil
	}

	if err := validateManifests(manifests); err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := deleteRetired(tx, manifests); err != nil {
			return err
		}

		for i := range manifests {
			if err := syncOne(tx, &manifests[i]); err != nil {
				return err
			}
		}

		return nil
	})
}

// deleteRetired removes stored external plugins that are no longer desired.
func deleteRetired(tx *gorm.DB, manifests []Manifest) error {
	desired := make(map[string]bool, len(manifests))
	for i := range manifests {
		desired[manifests[i].ID] = true
	}

	var stored []models.Plugin
	if err := tx.Where("external = ?", true).Find(&stored).Error; err != nil {
		return pkgerrors.Wrap(err, "failed to list external plugins")
	}

	for _, p := range stored {
		if !desired[p.ID] {
			if err := deleteGraph(tx, p.ID); err != nil {
				return err
			}
		}
	}

	return nil
}

// deleteGraph removes a plugin and everything it owns.
func deleteGraph(tx *gorm.DB, pluginID string) error {
	var settings []models.Setting
	if err := tx.Where("plugin_id = ?", pluginID).Find(&settings).Error; err != nil {
		return pkgerrors.Wrap(err, "failed to list plugin settings")
	}

	for _, s := range settings {
		if err := tx.Where("setting_id = ?", s.ID).Delete(&models.Select{}).Error; err != nil {
			return pkgerrors.Wrap(err, "failed to delete select values")
		}
	}

	if err := tx.Where("plugin_id = ?", pluginID).Delete(&models.Setting{}).Error; err != nil {
		return pkgerrors.Wrap(err, "failed to delete plugin settings")
	}

	var jobs []models.Job
	if err := tx.Where("plugin_id = ?", pluginID).Find(&jobs).Error; err != nil {
		return pkgerrors.Wrap(err, "failed to list plugin jobs")
	}

	for _, j := range jobs {
		if err := tx.Where("job_name = ?", j.Name).Delete(&models.JobCache{}).Error; err != nil {
			return pkgerrors.Wrap(err, "failed to delete job cache")
		}
	}

	if err := tx.Where("plugin_id = ?", pluginID).Delete(&models.Job{}).Error; err != nil {
		return pkgerrors.Wrap(err, "failed to delete plugin jobs")
	}

	if err := tx.Where("plugin_id = ?", pluginID).Delete(&models.PluginPage{}).Error; err != nil {
		return pkgerrors.Wrap(err, "failed to delete plugin page")
	}

	return pkgerrors.Wrap(tx.Where("id = ?", pluginID).Delete(&models.Plugin{}).Error, "failed to delete plugin")
}

// syncOne reconciles one desired manifest against the store.
func syncOne(tx *gorm.DB, m *Manifest) error {
	var stored models.Plugin

	err := tx.Where("id = ?", m.ID).First(&stored).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return insertGraph(tx, m, true)
	case err != nil:
		return pkgerrors.Wrap(err, "failed to look up plugin")
	case !stored.External:
		// updating a builtin plugin via the external path is forbidden
		log.Warn().Str("plugin", m.ID).Msg("plugin is not external, skipping update")
		return nil
	}

	if err := diffScalars(tx, m, &stored); err != nil {
		return err
	}

	if err := diffSettings(tx, m); err != nil {
		return err
	}

	if err := diffJobs(tx, m); err != nil {
		return err
	}

	return diffPage(tx, m)
}

func diffScalars(tx *gorm.DB, m *Manifest, stored *models.Plugin) error {
	changed := false

	if m.Order != stored.Order {
		stored.Order = m.Order
		changed = true
	}

	if m.Name != stored.Name {
		stored.Name = m.Name
		changed = true
	}

	if m.Description != stored.Description {
		stored.Description = m.Description
		changed = true
	}

	if m.Version != stored.Version {
		stored.Version = m.Version
		changed = true
	}

	if !changed {
		return nil
	}

	return pkgerrors.Wrap(tx.Save(stored).Error, "failed to update plugin")
}

func diffSettings(tx *gorm.DB, m *Manifest) error {
	var stored []models.Setting
	if err := tx.Where("plugin_id = ?", m.ID).Find(&stored).Error; err != nil {
		return pkgerrors.Wrap(err, "failed to list plugin settings")
	}

	storedByID := make(map[string]*models.Setting, len(stored))
	for i := range stored {
		storedByID[stored[i].ID] = &stored[i]
	}

	// retire settings no longer declared
	for id := range storedByID {
		if _, ok := m.Settings[id]; ok {
			continue
		}

		if err := tx.Where("setting_id = ?", id).Delete(&models.Select{}).Error; err != nil {
			return pkgerrors.Wrap(err, "failed to delete select values")
		}

		if err := tx.Where("id = ?", id).Delete(&models.Setting{}).Error; err != nil {
			return pkgerrors.Wrap(err, "failed to delete setting")
		}
	}

	for id, spec := range m.Settings {
		existing, ok := storedByID[id]
		if !ok {
			if err := insertSetting(tx, m.ID, id, spec); err != nil {
				return err
			}

			continue
		}

		if err := updateSetting(tx, existing, spec); err != nil {
			return err
		}

		if err := diffSelects(tx, id, spec.Select); err != nil {
			return err
		}
	}

	return nil
}

func updateSetting(tx *gorm.DB, existing *models.Setting, spec SettingSpec) error {
	changed := false

	if spec.ID != existing.Name {
		existing.Name = spec.ID
		changed = true
	}

	if spec.Context != existing.Context {
		existing.Context = spec.Context
		changed = true
	}

	if spec.Default != existing.Default {
		existing.Default = spec.Default
		changed = true
	}

	if spec.Help != existing.Help {
		existing.Help = spec.Help
		changed = true
	}

	if spec.Label != existing.Label {
		existing.Label = spec.Label
		changed = true
	}

	if spec.Regex != existing.Regex {
		existing.Regex = spec.Regex
		changed = true
	}

	if spec.Type != existing.Type {
		existing.Type = spec.Type
		changed = true
	}

	if spec.Multiple != existing.Multiple {
		existing.Multiple = spec.Multiple
		changed = true
	}

	if !changed {
		return nil
	}

	return pkgerrors.Wrap(tx.Save(existing).Error, "failed to update setting")
}

func diffSelects(tx *gorm.DB, settingID string, desired []string) error {
	var stored []models.Select
	if err := tx.Where("setting_id = ?", settingID).Find(&stored).Error; err != nil {
		return pkgerrors.Wrap(err, "failed to list select values")
	}

	desiredValues := make(map[string]bool, len(desired))
	for _, v := range desired {
		desiredValues[v] = true
	}

	storedValues := make(map[string]bool, len(stored))

	for _, s := range stored {
		storedValues[s.Value] = true

		if !desiredValues[s.Value] {
			err := tx.Where("setting_id = ? AND value = ?", settingID, s.Value).Delete(&models.Select{}).Error
			if err != nil {
				return pkgerrors.Wrap(err, "failed to delete select value")
			}
		}
	}

	for _, v := range desired {
		if !storedValues[v] {
			if err := tx.Create(&models.Select{SettingID: settingID, Value: v}).Error; err != nil {
				return pkgerrors.Wrap(err, "failed to create select value")
			}
		}
	}

	return nil
}

func diffJobs(tx *gorm.DB, m *Manifest) error {
	var stored []models.Job
	if err := tx.Where("plugin_id = ?", m.ID).Find(&stored).Error; err != nil {
		return pkgerrors.Wrap(err, "failed to list plugin jobs")
	}

	storedByName := make(map[string]*models.Job, len(stored))
	for i := range stored {
		storedByName[stored[i].Name] = &stored[i]
	}

	desiredNames := make(map[string]bool, len(m.Jobs))
	for _, j := range m.Jobs {
		desiredNames[j.Name] = true
	}

	// retire jobs no longer declared, with their cached artifacts
	for name := range storedByName {
		if desiredNames[name] {
			continue
		}

		if err := tx.Where("job_name = ?", name).Delete(&models.JobCache{}).Error; err != nil {
			return pkgerrors.Wrap(err, "failed to delete job cache")
		}

		if err := tx.Where("plugin_id = ? AND name = ?", m.ID, name).Delete(&models.Job{}).Error; err != nil {
			return pkgerrors.Wrap(err, "failed to delete job")
		}
	}

	for _, spec := range m.Jobs {
		existing, ok := storedByName[spec.Name]
		if !ok {
			if err := insertJob(tx, m.ID, spec); err != nil {
				return err
			}

			continue
		}

		if err := updateJob(tx, existing, spec); err != nil {
			return err
		}
	}

	return nil
}

func updateJob(tx *gorm.DB, existing *models.Job, spec JobSpec) error {
	changed := false

	if spec.File != existing.File {
		existing.File = spec.File
		changed = true
	}

	if spec.Every != existing.Every {
		existing.Every = spec.Every
		changed = true
	}

	if spec.Reload != existing.Reload {
		existing.Reload = spec.Reload
		changed = true
	}

	if !changed {
		return nil
	}

	// a changed job definition must re-run from scratch
	if err := tx.Where("job_name = ?", existing.Name).Delete(&models.JobCache{}).Error; err != nil {
		return pkgerrors.Wrap(err, "failed to invalidate job cache")
	}

	existing.LastRun = nil

	return pkgerrors.Wrap(tx.Save(existing).Error, "failed to update job")
}

func diffPage(tx *gorm.DB, m *Manifest) error {
	if m.Page == nil {
		return nil
	}

	templateChecksum, actionsChecksum := m.Page.Checksums()

	var stored models.PluginPage

	err := tx.Where("plugin_id = ?", m.ID).First(&stored).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return insertPage(tx, m.ID, m.Page)
	case err != nil:
		return pkgerrors.Wrap(err, "failed to look up plugin page")
	}

	changed := false

	if templateChecksum != stored.TemplateChecksum {
		stored.TemplateFile = m.Page.Template
		stored.TemplateChecksum = templateChecksum
		changed = true
	}

	if actionsChecksum != stored.ActionsChecksum {
		stored.ActionsFile = m.Page.Actions
		stored.ActionsChecksum = actionsChecksum
		changed = true
	}

	if !changed {
		return nil
	}

	return pkgerrors.Wrap(tx.Save(&stored).Error, "failed to update plugin page")
}
