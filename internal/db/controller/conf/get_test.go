package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetValidation(t *testing.T) {
	_, err := Get(nil)
	require.ErrorIs(t, err, ErrDBNil)

	_, err = ServicesSettings(nil)
	require.ErrorIs(t, err, ErrDBNil)
}

func TestGetEmptyStore(t *testing.T) {
	db := setupTestDB(t)

	config, err := Get(db)
	require.NoError(t, err)
	assert.Empty(t, config)
}

func TestGetSeedsMultisiteDefaults(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Save(db, map[string]string{
		"MULTISITE":   "yes",
		"SERVER_NAME": "a",
	}, "manual"))

	projected, err := GetWithMethods(db)
	require.NoError(t, err)

	// global-context settings get no per-service key
	assert.Contains(t, projected, "HTTP_PORT")
	assert.NotContains(t, projected, "a_HTTP_PORT")

	// multisite-context settings are seeded per service from the default
	assert.Equal(t, Value{Value: "info", Method: "default"}, projected["LOG_LEVEL"])
	assert.Equal(t, Value{Value: "info", Method: "default"}, projected["a_LOG_LEVEL"])
}

func TestServicesSettings(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Save(db, map[string]string{
		"MULTISITE":     "yes",
		"SERVER_NAME":   "a b",
		"a_SERVER_NAME": "a",
		"b_SERVER_NAME": "b",
		"LOG_LEVEL":     "warn",
		"a_LOG_LEVEL":   "debug",
	}, "manual"))

	views, err := ServicesSettings(db)
	require.NoError(t, err)
	require.Len(t, views, 2)

	byName := make(map[string]map[string]string, len(views))
	for _, view := range views {
		byName[view["SERVER_NAME"]] = view
	}

	require.Contains(t, byName, "a")
	require.Contains(t, byName, "b")

	// the service prefix is stripped onto the base key per service
	assert.Equal(t, "debug", byName["a"]["LOG_LEVEL"])
	assert.Equal(t, "warn", byName["b"]["LOG_LEVEL"])
}
