package plugin

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GoProxyGuard/GoProxyGuard/internal/db/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(
		&models.Plugin{},
		&models.Setting{},
		&models.Select{},
		&models.Job{},
		&models.JobCache{},
		&models.PluginPage{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func antibotManifest() Manifest {
	return Manifest{
		ID:          "antibot",
		Order:       10,
		Name:        "Antibot",
		Description: "Bot protection",
		Version:     "1.0",
		Settings: map[string]SettingSpec{
			"USE_ANTIBOT": {
				ID:      "use-antibot",
				Context: "multisite",
				Default: "no",
				Type:    "select",
				Select:  []string{"no", "cookie", "javascript"},
			},
		},
		Jobs: []JobSpec{
			{Name: "antibot-cleanup", File: "cleanup.py", Every: "day", Reload: false},
		},
	}
}

func pluginByID(t *testing.T, db *gorm.DB, id string) *models.Plugin {
	t.Helper()

	var p models.Plugin

	err := db.Where("id = ?", id).First(&p).Error
	if err != nil {
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)
		return nil
	}

	return &p
}

func TestUpdateExternalValidation(t *testing.T) {
	db := setupTestDB(t)

	require.ErrorIs(t, UpdateExternal(nil, nil), ErrDBNil)

	err := UpdateExternal(db, []Manifest{{Name: "no id", Version: "1.0"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid plugin manifest")

	// a failed validation must not touch the store
	var count int64
	require.NoError(t, db.Model(&models.Plugin{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateExternalInsertsGraph(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, UpdateExternal(db, []Manifest{antibotManifest()}))

	p := pluginByID(t, db, "antibot")
	require.NotNil(t, p)
	assert.True(t, p.External)
	assert.Equal(t, "Antibot", p.Name)

	var setting models.Setting
	require.NoError(t, db.Where("id = ?", "USE_ANTIBOT").First(&setting).Error)
	assert.Equal(t, "antibot", setting.PluginID)
	assert.Equal(t, "no", setting.Default)

	var selects []models.Select
	require.NoError(t, db.Where("setting_id = ?", "USE_ANTIBOT").Find(&selects).Error)
	assert.Len(t, selects, 3)

	var job models.Job
	require.NoError(t, db.Where("plugin_id = ? AND name = ?", "antibot", "antibot-cleanup").First(&job).Error)
	assert.Equal(t, "cleanup.py", job.File)
	assert.Nil(t, job.LastRun)
}

func TestUpdateExternalConverges(t *testing.T) {
	db := setupTestDB(t)

	desired := []Manifest{antibotManifest()}

	require.NoError(t, UpdateExternal(db, desired))
	require.NoError(t, UpdateExternal(db, desired))

	var plugins int64
	require.NoError(t, db.Model(&models.Plugin{}).Count(&plugins).Error)
	assert.Equal(t, int64(1), plugins)

	var settings int64
	require.NoError(t, db.Model(&models.Setting{}).Count(&settings).Error)
	assert.Equal(t, int64(1), settings)

	var selects int64
	require.NoError(t, db.Model(&models.Select{}).Count(&selects).Error)
	assert.Equal(t, int64(3), selects)

	var jobs int64
	require.NoError(t, db.Model(&models.Job{}).Count(&jobs).Error)
	assert.Equal(t, int64(1), jobs)
}

func TestUpdateExternalSkipsBuiltin(t *testing.T) {
	db := setupTestDB(t)

	builtin := antibotManifest()
	builtin.ID = "general"
	builtin.Name = "General"
	require.NoError(t, Seed(db, []Manifest{builtin}))

	claim := builtin
	claim.Name = "Hijacked"
	claim.Version = "9.9"

	require.NoError(t, UpdateExternal(db, []Manifest{claim}))

	p := pluginByID(t, db, "general")
	require.NotNil(t, p)
	assert.False(t, p.External)
	assert.Equal(t, "General", p.Name)
	assert.Equal(t, "1.0", p.Version)
}

func TestUpdateExternalRetiresAbsentPlugins(t *testing.T) {
	db := setupTestDB(t)

	// setting ids are globally unique, so each fixture plugin declares its own
	builtin := antibotManifest()
	builtin.ID = "general"
	builtin.Settings = map[string]SettingSpec{
		"LOG_LEVEL": {ID: "log-level", Context: "multisite", Default: "info", Type: "text"},
	}
	builtin.Jobs = []JobSpec{{Name: "general-cleanup", File: "cleanup.py", Every: "day"}}
	require.NoError(t, Seed(db, []Manifest{builtin}))

	other := antibotManifest()
	other.ID = "limit"
	other.Name = "Limit"
	other.Settings = map[string]SettingSpec{
		"USE_LIMIT": {ID: "use-limit", Context: "multisite", Default: "no", Type: "check"},
	}
	other.Jobs = []JobSpec{{Name: "limit-cleanup", File: "cleanup.py", Every: "day"}}

	require.NoError(t, UpdateExternal(db, []Manifest{antibotManifest(), other}))

	now := time.Now()
	require.NoError(t, db.Create(&models.JobCache{
		JobName:    "antibot-cleanup",
		FileName:   "blacklist.txt",
		LastUpdate: &now,
	}).Error)

	// antibot disappears from the desired set: its whole graph goes
	require.NoError(t, UpdateExternal(db, []Manifest{other}))

	assert.Nil(t, pluginByID(t, db, "antibot"))
	assert.NotNil(t, pluginByID(t, db, "limit"))

	// builtins are never retired by the external sync
	assert.NotNil(t, pluginByID(t, db, "general"))

	var count int64
	require.NoError(t, db.Model(&models.Setting{}).Where("plugin_id = ?", "antibot").Count(&count).Error)
	assert.Zero(t, count)

	require.NoError(t, db.Model(&models.JobCache{}).Where("job_name = ?", "antibot-cleanup").Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateExternalJobChangeInvalidatesCache(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, UpdateExternal(db, []Manifest{antibotManifest()}))

	lastRun := time.Now()
	err := db.Model(&models.Job{}).
		Where("plugin_id = ? AND name = ?", "antibot", "antibot-cleanup").
		Updates(map[string]any{"last_run": lastRun, "success": true}).Error
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.JobCache{
		JobName:    "antibot-cleanup",
		FileName:   "state.json",
		LastUpdate: &lastRun,
	}).Error)

	changed := antibotManifest()
	changed.Jobs[0].Every = "hour"

	require.NoError(t, UpdateExternal(db, []Manifest{changed}))

	var job models.Job
	require.NoError(t, db.Where("plugin_id = ? AND name = ?", "antibot", "antibot-cleanup").First(&job).Error)
	assert.Equal(t, "hour", job.Every)
	assert.Nil(t, job.LastRun)

	var count int64
	require.NoError(t, db.Model(&models.JobCache{}).Where("job_name = ?", "antibot-cleanup").Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateExternalSettingDiff(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, UpdateExternal(db, []Manifest{antibotManifest()}))

	changed := antibotManifest()
	changed.Settings["USE_ANTIBOT"] = SettingSpec{
		ID:      "use-antibot",
		Context: "multisite",
		Default: "cookie",
		Type:    "select",
		Select:  []string{"no", "cookie"},
	}
	changed.Settings["ANTIBOT_TIMEOUT"] = SettingSpec{
		ID:      "antibot-timeout",
		Context: "global",
		Default: "60",
		Type:    "text",
	}

	require.NoError(t, UpdateExternal(db, []Manifest{changed}))

	// a fresh dest per lookup, reusing one would leak its primary key into
	// the next query's conditions
	var useAntibot models.Setting
	require.NoError(t, db.Where("id = ?", "USE_ANTIBOT").First(&useAntibot).Error)
	assert.Equal(t, "cookie", useAntibot.Default)

	var selects []models.Select
	require.NoError(t, db.Where("setting_id = ?", "USE_ANTIBOT").Find(&selects).Error)
	assert.Len(t, selects, 2)

	var timeout models.Setting
	require.NoError(t, db.Where("id = ?", "ANTIBOT_TIMEOUT").First(&timeout).Error)
	assert.Equal(t, "antibot", timeout.PluginID)

	// dropping the new setting again retires it with its selects
	require.NoError(t, UpdateExternal(db, []Manifest{antibotManifest()}))

	err := db.Where("id = ?", "ANTIBOT_TIMEOUT").First(&models.Setting{}).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUpdateExternalPageDiff(t *testing.T) {
	db := setupTestDB(t)

	withPage := antibotManifest()
	withPage.Page = &PageAssets{
		Template: []byte("<html>v1</html>"),
		Actions:  []byte("-- v1"),
	}

	require.NoError(t, UpdateExternal(db, []Manifest{withPage}))

	var page models.PluginPage
	require.NoError(t, db.Where("plugin_id = ?", "antibot").First(&page).Error)

	templateChecksum := page.TemplateChecksum

	// only the changed asset is rewritten
	withPage.Page = &PageAssets{
		Template: []byte("<html>v1</html>"),
		Actions:  []byte("-- v2"),
	}

	require.NoError(t, UpdateExternal(db, []Manifest{withPage}))

	require.NoError(t, db.Where("plugin_id = ?", "antibot").First(&page).Error)
	assert.Equal(t, templateChecksum, page.TemplateChecksum)
	assert.Equal(t, []byte("-- v2"), page.ActionsFile)

	// a manifest without assets leaves the stored page untouched
	require.NoError(t, UpdateExternal(db, []Manifest{antibotManifest()}))

	require.NoError(t, db.Where("plugin_id = ?", "antibot").First(&page).Error)
	assert.Equal(t, []byte("-- v2"), page.ActionsFile)
}

func TestSeedInsertsBuiltins(t *testing.T) {
	db := setupTestDB(t)

	require.ErrorIs(t, Seed(nil, nil), ErrDBNil)

	require.NoError(t, Seed(db, []Manifest{antibotManifest()}))

	p := pluginByID(t, db, "antibot")
	require.NotNil(t, p)
	assert.False(t, p.External)
}
