// Package customconf provides content-addressed storage of custom
// configuration snippets keyed by (service, type, name).
package customconf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/GoProxyGuard/GoProxyGuard/internal/checksum"
	"github.com/GoProxyGuard/GoProxyGuard/internal/db/models"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrMethodEmpty is returned when a save carries no writer identity.
	ErrMethodEmpty = errors.New("method cannot be empty")
)

// Entry is one submitted custom configuration snippet. ServiceID is empty
// for global snippets. Data may be text or binary.
type Entry struct {
	ServiceID string
	Type      string
	Name      string
	Data      []byte
}

// Save stores the submitted snippets attributed to the given writer method,
// retiring the writer's previous snippets first. The content checksum is
// recomputed on every write and a snippet whose checksum did not change, or
// that is owned by a different writer, is left untouched.
//
// A snippet referencing an unknown service is stored anyway; the returned
// warning string lists such references. An empty warning means a fully clean
// save. Hard failures roll back the whole transaction.
func Save(db *gorm.DB, entries []Entry, method string) (string, error) {
	if db == nil {
		return "", ErrDBNil
	}

	if method == "" {
		return "", ErrMethodEmpty
	}

	var warnings []string

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("method = ?", method).Delete(&models.CustomConfig{}).Error; err != nil {
			return pkgerrors.Wrap(err, "failed to retire previous custom configs")
		}

		for _, entry := range entries {
			warning, err := saveEntry(tx, entry, method)
			if err != nil {
				return err
			}

			if warning != "" {
				warnings = append(warnings, warning)
			}
		}

		return nil
	})

	return strings.Join(warnings, "\n"), err
}

func saveEntry(tx *gorm.DB, entry Entry, method string) (string, error) {
	// undo line continuations before hashing so equivalent content always
	// yields the same checksum
	data := bytes.ReplaceAll(entry.Data, []byte("\\\n"), []byte("\n"))

	row := models.CustomConfig{
		Type:     normalizeType(entry.Type),
		Name:     entry.Name,
		Data:     data,
		Checksum: checksum.Sum(data),
		Method:   method,
	}

	var warning string

	if entry.ServiceID != "" {
		row.ServiceID = &entry.ServiceID

		var service models.Service
		if err := tx.Where("id = ?", entry.ServiceID).First(&service).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return "", pkgerrors.Wrap(err, "failed to look up service")
			}

			warning = fmt.Sprintf("Service %s not found, please check your config", entry.ServiceID)
		}
	}

	query := tx.Where("type = ? AND name = ?", row.Type, row.Name)
	if row.ServiceID == nil {
		query = query.Where("service_id IS NULL")
	} else {
		query = query.Where("service_id = ?", *row.ServiceID)
	}

	var existing models.CustomConfig

	err := query.First(&existing).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return warning, pkgerrors.Wrap(tx.Create(&row).Error, "failed to create custom config")
	case err != nil:
		return "", pkgerrors.Wrap(err, "failed to look up custom config")
	case row.Checksum != existing.Checksum && (method == existing.Method || method == models.MethodAutoconf):
		existing.Data = row.Data
		existing.Checksum = row.Checksum

		if method == models.MethodAutoconf {
			existing.Method = models.MethodAutoconf
		}

		return warning, pkgerrors.Wrap(tx.Save(&existing).Error, "failed to update custom config")
	default:
		// unchanged content or foreign owner: no-op
		return warning, nil
	}
}

// GetAll returns every stored custom configuration snippet.
func GetAll(db *gorm.DB) ([]models.CustomConfig, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var configs []models.CustomConfig
	if err := db.Find(&configs).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list custom configs")
	}

	return configs, nil
}

// normalizeType maps submitted snippet categories to their canonical form.
func normalizeType(configType string) string {
	return strings.ToLower(strings.ReplaceAll(configType, "-", "_"))
}
