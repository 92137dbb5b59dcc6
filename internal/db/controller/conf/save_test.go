package conf

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GoProxyGuard/GoProxyGuard/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database seeded with a small
// setting catalog.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(
		&models.Metadata{},
		&models.Service{},
		&models.Plugin{},
		&models.Setting{},
		&models.GlobalValue{},
		&models.ServiceSetting{},
	)
	require.NoError(t, err, "failed to migrate test database")

	seedCatalog(t, db)

	return db
}

// seedCatalog inserts the setting definitions used by the tests.
func seedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()

	settings := []models.Setting{
		{ID: "MULTISITE", PluginID: "general", Name: "multisite", Context: models.ContextGlobal, Default: "no", Type: "check"},
		{ID: "SERVER_NAME", PluginID: "general", Name: "server-name", Context: models.ContextMultisite, Default: "", Type: "text"},
		{ID: "LOG_LEVEL", PluginID: "general", Name: "log-level", Context: models.ContextMultisite, Default: "info", Type: "select"},
		{ID: "HTTP_PORT", PluginID: "general", Name: "http-port", Context: models.ContextGlobal, Default: "8080", Type: "text"},
		{ID: "REVERSE_PROXY_URL", PluginID: "general", Name: "reverse-proxy-url", Context: models.ContextMultisite, Default: "", Type: "text", Multiple: true},
	}

	for _, setting := range settings {
		require.NoError(t, db.Create(&setting).Error, "failed to seed setting definition")
	}

	require.NoError(t, db.Create(&models.Metadata{
		ID:            1,
		IsInitialized: true,
		Version:       "test",
		Integration:   "test",
	}).Error, "failed to seed metadata")
}

func globalValues(t *testing.T, db *gorm.DB) []models.GlobalValue {
	t.Helper()

	var rows []models.GlobalValue
	require.NoError(t, db.Order("setting_id, suffix").Find(&rows).Error)

	return rows
}

func serviceSettings(t *testing.T, db *gorm.DB) []models.ServiceSetting {
	t.Helper()

	var rows []models.ServiceSetting
	require.NoError(t, db.Order("service_id, setting_id, suffix").Find(&rows).Error)

	return rows
}

func TestSaveValidation(t *testing.T) {
	db := setupTestDB(t)

	require.ErrorIs(t, Save(nil, nil, "manual"), ErrDBNil)
	require.ErrorIs(t, Save(db, nil, ""), ErrMethodEmpty)
}

func TestSaveMultisiteScenario(t *testing.T) {
	db := setupTestDB(t)

	err := Save(db, map[string]string{
		"MULTISITE":   "yes",
		"SERVER_NAME": "a b",
		"LOG_LEVEL":   "warn",
	}, "manual")
	require.NoError(t, err)

	var services []models.Service
	require.NoError(t, db.Order("id").Find(&services).Error)
	require.Len(t, services, 2)
	assert.Equal(t, "a", services[0].ID)
	assert.Equal(t, "b", services[1].ID)

	rows := globalValues(t, db)
	require.Len(t, rows, 3)

	byID := make(map[string]models.GlobalValue, len(rows))
	for _, row := range rows {
		byID[row.SettingID] = row
	}

	assert.Equal(t, "warn", byID["LOG_LEVEL"].Value)
	assert.Equal(t, "manual", byID["LOG_LEVEL"].Method)
	assert.Equal(t, uint(0), byID["LOG_LEVEL"].Suffix)
	assert.Equal(t, "yes", byID["MULTISITE"].Value)
	assert.Equal(t, "a b", byID["SERVER_NAME"].Value)

	assert.Empty(t, serviceSettings(t, db))

	config, err := Get(db)
	require.NoError(t, err)
	assert.Equal(t, "warn", config["LOG_LEVEL"])
	assert.Equal(t, "warn", config["a_LOG_LEVEL"])
	assert.Equal(t, "warn", config["b_LOG_LEVEL"])
}

func TestSaveIdempotence(t *testing.T) {
	db := setupTestDB(t)

	config := map[string]string{
		"MULTISITE":   "yes",
		"SERVER_NAME": "a",
		"LOG_LEVEL":   "warn",
		"a_LOG_LEVEL": "debug",
	}

	require.NoError(t, Save(db, config, "manual"))
	first := globalValues(t, db)
	firstOverrides := serviceSettings(t, db)

	require.NoError(t, Save(db, config, "manual"))
	assert.Equal(t, first, globalValues(t, db))
	assert.Equal(t, firstOverrides, serviceSettings(t, db))
}

func TestSaveOwnershipProtection(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Save(db, map[string]string{
		"MULTISITE":   "yes",
		"SERVER_NAME": "a",
		"LOG_LEVEL":   "warn",
	}, "manual"))

	// a non-privileged writer cannot steal another writer's row
	require.NoError(t, Save(db, map[string]string{
		"MULTISITE":   "yes",
		"SERVER_NAME": "a",
		"LOG_LEVEL":   "error",
	}, "scheduler"))

	var row models.GlobalValue
	require.NoError(t, db.Where("setting_id = ? AND suffix = 0", "LOG_LEVEL").First(&row).Error)
	assert.Equal(t, "warn", row.Value)
	assert.Equal(t, "manual", row.Method)
}

func TestSaveAutoconfOverride(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Save(db, map[string]string{
		"MULTISITE":   "yes",
		"SERVER_NAME": "a",
		"LOG_LEVEL":   "warn",
	}, "manual"))

	// autoconf always wins
	require.NoError(t, Save(db, map[string]string{
		"MULTISITE":   "yes",
		"SERVER_NAME": "a",
		"LOG_LEVEL":   "error",
	}, "autoconf"))

	var row models.GlobalValue
	require.NoError(t, db.Where("setting_id = ? AND suffix = 0", "LOG_LEVEL").First(&row).Error)
	assert.Equal(t, "error", row.Value)
	assert.Equal(t, "autoconf", row.Method)

	// an empty autoconf submission wipes its rows again
	require.NoError(t, Save(db, map[string]string{}, "autoconf"))

	err := db.Where("setting_id = ? AND suffix = 0", "LOG_LEVEL").First(&row).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSaveAutoconfRevertsToDefault(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Save(db, map[string]string{
		"MULTISITE":   "yes",
		"SERVER_NAME": "a",
		"LOG_LEVEL":   "warn",
	}, "manual"))

	// autoconf submitting the default deletes the foreign row
	require.NoError(t, Save(db, map[string]string{
		"MULTISITE":   "yes",
		"SERVER_NAME": "a",
		"LOG_LEVEL":   "info",
	}, "autoconf"))

	var row models.GlobalValue
	err := db.Where("setting_id = ? AND suffix = 0", "LOG_LEVEL").First(&row).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSaveAutoconfServiceOverride(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Save(db, map[string]string{
		"MULTISITE":   "yes",
		"SERVER_NAME": "a",
		"a_LOG_LEVEL": "debug",
	}, "manual"))

	// autoconf resubmitting a different value takes over the service row
	require.NoError(t, Save(db, map[string]string{
		"MULTISITE":   "yes",
		"SERVER_NAME": "a",
		"a_LOG_LEVEL": "error",
	}, "autoconf"))

	overrides := serviceSettings(t, db)
	require.Len(t, overrides, 1)
	assert.Equal(t, "error", overrides[0].Value)
	assert.Equal(t, "autoconf", overrides[0].Method)
	assert.Equal(t, uint(0), overrides[0].Suffix)
}

func TestSaveMultisiteWithoutServices(t *testing.T) {
	db := setupTestDB(t)

	// global keys merge even when no service name is submitted
	require.NoError(t, Save(db, map[string]string{
		"MULTISITE":   "yes",
		"SERVER_NAME": "",
		"LOG_LEVEL":   "warn",
	}, "manual"))

	var services []models.Service
	require.NoError(t, db.Find(&services).Error)
	assert.Empty(t, services)

	var row models.GlobalValue
	require.NoError(t, db.Where("setting_id = ? AND suffix = 0", "LOG_LEVEL").First(&row).Error)
	assert.Equal(t, "warn", row.Value)
	assert.Equal(t, "manual", row.Method)
}

func TestSaveDefaultElision(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Save(db, map[string]string{
		"MULTISITE":   "yes",
		"SERVER_NAME": "a",
		"LOG_LEVEL":   "info",
	}, "manual"))

	var count int64
	require.NoError(t, db.Model(&models.GlobalValue{}).Where("setting_id = ?", "LOG_LEVEL").Count(&count).Error)
	assert.Zero(t, count)

	projected, err := GetWithMethods(db)
	require.NoError(t, err)
	assert.Equal(t, Value{Value: "info", Method: models.MethodDefault}, projected["LOG_LEVEL"])
}

func TestSaveServiceOverride(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Save(db, map[string]string{
		"MULTISITE":   "yes",
		"SERVER_NAME": "a b",
		"LOG_LEVEL":   "warn",
		"a_LOG_LEVEL": "debug",
	}, "manual"))

	overrides := serviceSettings(t, db)
	require.Len(t, overrides, 1)
	assert.Equal(t, "a", overrides[0].ServiceID)
	assert.Equal(t, "LOG_LEVEL", overrides[0].SettingID)
	assert.Equal(t, "debug", overrides[0].Value)
	assert.Equal(t, "manual", overrides[0].Method)

	config, err := Get(db)
	require.NoError(t, err)
	assert.Equal(t, "debug", config["a_LOG_LEVEL"])
	assert.Equal(t, "warn", config["b_LOG_LEVEL"])
}

func TestSaveRedundantOverrideElision(t *testing.T) {
	db := setupTestDB(t)

	// override equal to the pending global submission is not stored
	require.NoError(t, Save(db, map[string]string{
		"MULTISITE":   "yes",
		"SERVER_NAME": "a",
		"LOG_LEVEL":   "warn",
		"a_LOG_LEVEL": "warn",
	}, "manual"))

	assert.Empty(t, serviceSettings(t, db))

	// override equal to the setting default is not stored either
	require.NoError(t, Save(db, map[string]string{
		"MULTISITE":   "yes",
		"SERVER_NAME": "a",
		"LOG_LEVEL":   "warn",
		"a_LOG_LEVEL": "info",
	}, "manual"))

	assert.Empty(t, serviceSettings(t, db))
}

func TestSaveSuffixedKeys(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Save(db, map[string]string{
		"MULTISITE":           "yes",
		"SERVER_NAME":         "a",
		"REVERSE_PROXY_URL":   "/",
		"REVERSE_PROXY_URL_1": "/api",
	}, "manual"))

	var rows []models.GlobalValue
	require.NoError(t, db.Where("setting_id = ?", "REVERSE_PROXY_URL").Order("suffix").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, uint(0), rows[0].Suffix)
	assert.Equal(t, "/", rows[0].Value)
	assert.Equal(t, uint(1), rows[1].Suffix)
	assert.Equal(t, "/api", rows[1].Value)

	config, err := Get(db)
	require.NoError(t, err)
	assert.Equal(t, "/", config["REVERSE_PROXY_URL"])
	assert.Equal(t, "/api", config["REVERSE_PROXY_URL_1"])
	assert.Equal(t, "/", config["a_REVERSE_PROXY_URL"])
	assert.Equal(t, "/api", config["a_REVERSE_PROXY_URL_1"])
}

func TestSaveUnknownKeyIgnored(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Save(db, map[string]string{
		"MULTISITE":   "yes",
		"SERVER_NAME": "a",
		"NO_SUCH_KEY": "x",
	}, "manual"))

	var count int64
	require.NoError(t, db.Model(&models.GlobalValue{}).Where("setting_id = ?", "NO_SUCH_KEY").Count(&count).Error)
	assert.Zero(t, count)
}

func TestSaveSingleSite(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Save(db, map[string]string{
		"MULTISITE":   "no",
		"SERVER_NAME": "site1",
		"LOG_LEVEL":   "warn",
		"HTTP_PORT":   "8080",
	}, "manual"))

	var services []models.Service
	require.NoError(t, db.Find(&services).Error)
	require.Len(t, services, 1)
	assert.Equal(t, "site1", services[0].ID)

	rows := globalValues(t, db)
	byID := make(map[string]models.GlobalValue, len(rows))
	for _, row := range rows {
		byID[row.SettingID] = row
	}

	// HTTP_PORT equals its default and is elided, MULTISITE=no as well
	assert.NotContains(t, byID, "HTTP_PORT")
	assert.NotContains(t, byID, "MULTISITE")
	assert.Equal(t, "warn", byID["LOG_LEVEL"].Value)
	assert.Equal(t, "site1", byID["SERVER_NAME"].Value)

	// keys with a service prefix are globals in single-site mode, and a_...
	// matches no definition, so it is dropped
	require.NoError(t, Save(db, map[string]string{
		"SERVER_NAME":     "site1",
		"site1_LOG_LEVEL": "debug",
	}, "manual"))

	assert.Empty(t, serviceSettings(t, db))
}

func TestSaveEmptyConfigWipesWriter(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Save(db, map[string]string{
		"MULTISITE":   "yes",
		"SERVER_NAME": "a",
		"LOG_LEVEL":   "warn",
		"a_LOG_LEVEL": "debug",
	}, "manual"))

	require.NotEmpty(t, globalValues(t, db))
	require.NotEmpty(t, serviceSettings(t, db))

	require.NoError(t, Save(db, map[string]string{}, "manual"))

	assert.Empty(t, globalValues(t, db))
	assert.Empty(t, serviceSettings(t, db))
}

func TestSaveWipeSparesOtherWriters(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Save(db, map[string]string{
		"MULTISITE":   "yes",
		"SERVER_NAME": "a",
		"LOG_LEVEL":   "warn",
	}, "manual"))

	require.NoError(t, Save(db, map[string]string{
		"MULTISITE":   "yes",
		"SERVER_NAME": "a",
		"HTTP_PORT":   "9090",
	}, "scheduler"))

	require.NoError(t, Save(db, map[string]string{}, "scheduler"))

	rows := globalValues(t, db)
	for _, row := range rows {
		assert.Equal(t, "manual", row.Method)
	}

	var row models.GlobalValue
	require.NoError(t, db.Where("setting_id = ?", "LOG_LEVEL").First(&row).Error)
	assert.Equal(t, "warn", row.Value)
}

func TestSaveMarksFirstConfigSaved(t *testing.T) {
	db := setupTestDB(t)

	var meta models.Metadata
	require.NoError(t, db.First(&meta, 1).Error)
	require.False(t, meta.FirstConfigSaved)

	require.NoError(t, Save(db, map[string]string{
		"MULTISITE":   "yes",
		"SERVER_NAME": "a",
	}, "manual"))

	require.NoError(t, db.First(&meta, 1).Error)
	assert.True(t, meta.FirstConfigSaved)
}

func TestSaveRoundTripMethods(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Save(db, map[string]string{
		"MULTISITE":   "yes",
		"SERVER_NAME": "a",
		"LOG_LEVEL":   "warn",
		"a_LOG_LEVEL": "debug",
	}, "scheduler"))

	projected, err := GetWithMethods(db)
	require.NoError(t, err)

	assert.Equal(t, Value{Value: "warn", Method: "scheduler"}, projected["LOG_LEVEL"])
	assert.Equal(t, Value{Value: "debug", Method: "scheduler"}, projected["a_LOG_LEVEL"])
	assert.Equal(t, Value{Value: "8080", Method: models.MethodDefault}, projected["HTTP_PORT"])
}
