// Package metadata manages the singleton lifecycle record of the store.
package metadata

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/GoProxyGuard/GoProxyGuard/internal/db/models"
)

// metadataID is the fixed primary key of the singleton row.
const metadataID = 1

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrMetadataNotSet is returned when the singleton row does not exist yet.
	ErrMetadataNotSet = errors.New("the metadata are not set yet, try again")
)

// Init creates the singleton metadata row, marking the store initialized.
func Init(db *gorm.DB, version, integration string) error {
	if db == nil {
		return ErrDBNil
	}

	row := models.Metadata{
		ID:               metadataID,
		IsInitialized:    true,
		FirstConfigSaved: false,
		Version:          version,
		Integration:      integration,
	}

	return pkgerrors.Wrap(db.Create(&row).Error, "failed to initialize metadata")
}

// IsInitialized reports whether the store has been initialized. An
// unreachable or empty store answers false, never an error.
func IsInitialized(db *gorm.DB) bool {
	row, err := load(db)
	return err == nil && row.IsInitialized
}

// IsFirstConfigSaved reports whether the first configuration has been saved.
func IsFirstConfigSaved(db *gorm.DB) bool {
	row, err := load(db)
	return err == nil && row.FirstConfigSaved
}

// IsAutoconfLoaded reports whether the autoconf writer has loaded its state.
func IsAutoconfLoaded(db *gorm.DB) bool {
	row, err := load(db)
	return err == nil && row.AutoconfLoaded
}

// SetAutoconfLoaded records whether the autoconf writer has loaded its state.
func SetAutoconfLoaded(db *gorm.DB, value bool) error {
	if db == nil {
		return ErrDBNil
	}

	row, err := load(db)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMetadataNotSet
		}

		return pkgerrors.Wrap(err, "failed to load metadata")
	}

	row.AutoconfLoaded = value

	return pkgerrors.Wrap(db.Save(row).Error, "failed to update metadata")
}

func load(db *gorm.DB) (*models.Metadata, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var row models.Metadata
	if err := db.First(&row, metadataID).Error; err != nil {
		return nil, err //nolint:wrapcheck
	}

	return &row, nil
}
