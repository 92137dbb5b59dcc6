// Package models contains database model definitions.
package models

// Metadata is the singleton lifecycle record of the store (always id 1).
type Metadata struct {
	ID               int    `gorm:"primaryKey"`
	IsInitialized    bool   `gorm:"not null"`
	FirstConfigSaved bool   `gorm:"not null"`
	AutoconfLoaded   bool   `gorm:"not null"`
	Version          string `gorm:"size:32;not null"`
	Integration      string `gorm:"size:32;not null;default:'Unknown'"`
}
