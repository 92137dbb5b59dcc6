package plugin

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/GoProxyGuard/GoProxyGuard/internal/checksum"
)

// UI asset file names inside a plugin's ui directory.
const (
	templateFileName = "template.html"
	actionsFileName  = "actions.lua"
)

// PageAssets is the UI asset pair of a plugin.
type PageAssets struct {
	Template []byte
	Actions  []byte
}

// Checksums returns the content checksums of the asset pair.
func (p *PageAssets) Checksums() (template, actions string) {
	return checksum.Sum(p.Template), checksum.Sum(p.Actions)
}

// LoadPageAssets reads the UI asset pair from a plugin's ui directory. A
// plugin without a complete pair has no page; that is reported as (nil, nil).
func LoadPageAssets(dir string) (*PageAssets, error) {
	templatePath := filepath.Join(dir, templateFileName)
	actionsPath := filepath.Join(dir, actionsFileName)

	if !fileExists(templatePath) || !fileExists(actionsPath) {
		return nil, nil //nolint:nilnil // the page is optional
	}

	template, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read page template")
	}

	actions, err := os.ReadFile(actionsPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read page actions")
	}

	return &PageAssets{Template: template, Actions: actions}, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
