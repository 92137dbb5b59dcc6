package models

// CustomConfig is an opaque named configuration snippet (e.g. a server
// block). ServiceID is nil for global snippets. Checksum is derived from the
// normalized content on every write, never set independently.
type CustomConfig struct {
	ID        uint    `gorm:"primaryKey"`
	ServiceID *string `gorm:"size:255;uniqueIndex:uq_custom_configs"`
	Type      string  `gorm:"size:64;not null;uniqueIndex:uq_custom_configs"`
	Name      string  `gorm:"size:255;not null;uniqueIndex:uq_custom_configs"`
	Data      []byte  `gorm:"type:blob;not null"`
	Checksum  string  `gorm:"size:64;not null"`
	Method    string  `gorm:"size:32;not null"`
}
