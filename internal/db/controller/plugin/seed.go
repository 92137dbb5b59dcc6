package plugin

import (
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/GoProxyGuard/GoProxyGuard/internal/db/models"
)

// Seed inserts the given plugin descriptors as builtin plugins. It is called
// once, right after the schema was created on a fresh store.
func Seed(db *gorm.DB, manifests []Manifest) error {
	if db == nil {
		return ErrDBNil
	}

	if err := validateManifests(manifests); err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for i := range manifests {
			if err := insertGraph(tx, &manifests[i], false); err != nil {
				return err
			}
		}

		return nil
	})
}

// insertGraph inserts a plugin with its full settings/selects/jobs/page
// graph.
func insertGraph(tx *gorm.DB, m *Manifest, external bool) error {
	row := models.Plugin{
		ID:          m.ID,
		Order:       m.Order,
		Name:        m.Name,
		Description: m.Description,
		Version:     m.Version,
		External:    external,
	}

	if err := tx.Create(&row).Error; err != nil {
		return pkgerrors.Wrap(err, "failed to create plugin")
	}

	for settingID, spec := range m.Settings {
		if err := insertSetting(tx, m.ID, settingID, spec); err != nil {
			return err
		}
	}

	for _, job := range m.Jobs {
		if err := insertJob(tx, m.ID, job); err != nil {
			return err
		}
	}

	if m.Page != nil {
		if err := insertPage(tx, m.ID, m.Page); err != nil {
			return err
		}
	}

	return nil
}

func insertSetting(tx *gorm.DB, pluginID, settingID string, spec SettingSpec) error {
	row := models.Setting{
		ID:       settingID,
		PluginID: pluginID,
		Name:     spec.ID,
		Context:  spec.Context,
		Default:  spec.Default,
		Help:     spec.Help,
		Label:    spec.Label,
		Regex:    spec.Regex,
		Type:     spec.Type,
		Multiple: spec.Multiple,
	}

	if err := tx.Create(&row).Error; err != nil {
		return pkgerrors.Wrap(err, "failed to create setting")
	}

	for _, value := range spec.Select {
		if err := tx.Create(&models.Select{SettingID: settingID, Value: value}).Error; err != nil {
			return pkgerrors.Wrap(err, "failed to create select value")
		}
	}

	return nil
}

func insertJob(tx *gorm.DB, pluginID string, spec JobSpec) error {
	row := models.Job{
		PluginID: pluginID,
		Name:     spec.Name,
		File:     spec.File,
		Every:    spec.Every,
		Reload:   spec.Reload,
	}

	return pkgerrors.Wrap(tx.Create(&row).Error, "failed to create job")
}

func insertPage(tx *gorm.DB, pluginID string, page *PageAssets) error {
	templateChecksum, actionsChecksum := page.Checksums()

	row := models.PluginPage{
		PluginID:         pluginID,
		TemplateFile:     page.Template,
		TemplateChecksum: templateChecksum,
		ActionsFile:      page.Actions,
		ActionsChecksum:  actionsChecksum,
	}

	return pkgerrors.Wrap(tx.Create(&row).Error, "failed to create plugin page")
}
