// Package plugin seeds builtin plugins and reconciles external plugin
// manifests against the stored plugin graph (settings, selects, jobs, page
// assets) as a declarative desired-state sync.
package plugin

import (
	"errors"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// validate checks manifests before they reach the store.
var validate = validator.New() //nolint:gochecknoglobals

// Manifest is one plugin descriptor as supplied by a plugin catalog. The
// Settings map key is the setting id; jobs and the optional page asset pair
// complete the plugin graph.
type Manifest struct {
	ID          string                 `json:"id"          validate:"required"`
	Order       uint                   `json:"order"`
	Name        string                 `json:"name"        validate:"required"`
	Description string                 `json:"description"`
	Version     string                 `json:"version"     validate:"required"`
	Settings    map[string]SettingSpec `json:"settings"    validate:"dive"`
	Jobs        []JobSpec              `json:"jobs"        validate:"dive"`
	Page        *PageAssets            `json:"-"`
}

// SettingSpec declares one setting of a plugin. ID is the setting's slug
// name; the map key in Manifest.Settings is the setting id itself.
type SettingSpec struct {
	ID       string   `json:"id"       validate:"required"`
	Context  string   `json:"context"  validate:"required,oneof=global multisite"`
	Default  string   `json:"default"`
	Help     string   `json:"help"`
	Label    string   `json:"label"`
	Regex    string   `json:"regex"`
	Type     string   `json:"type"`
	Multiple bool     `json:"multiple"`
	Select   []string `json:"select"`
}

// JobSpec declares one scheduled job of a plugin.
type JobSpec struct {
	Name   string `json:"name"   validate:"required"`
	File   string `json:"file"   validate:"required"`
	Every  string `json:"every"`
	Reload bool   `json:"reload"`
}

// validateManifests rejects malformed manifests before any row is touched.
func validateManifests(manifests []Manifest) error {
	for i := range manifests {
		if err := validate.Struct(&manifests[i]); err != nil {
			return pkgerrors.Wrapf(err, "invalid plugin manifest %q", manifests[i].ID)
		}
	}

	return nil
}
