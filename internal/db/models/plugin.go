package models

// Plugin is a registered plugin. Builtin plugins (External=false) are
// immutable to the external sync path.
type Plugin struct {
	ID          string `gorm:"primaryKey;size:64"`
	Order       uint   `gorm:"not null"`
	Name        string `gorm:"size:128;not null"`
	Description string `gorm:"size:255;not null"`
	Version     string `gorm:"size:32;not null"`
	External    bool   `gorm:"not null"`
}

// PluginPage is the optional UI asset pair of a plugin. Checksums are used
// to detect changed assets without comparing blobs.
type PluginPage struct {
	PluginID         string `gorm:"primaryKey;size:64"`
	TemplateFile     []byte `gorm:"type:blob;not null"`
	TemplateChecksum string `gorm:"size:64;not null"`
	ActionsFile      []byte `gorm:"type:blob;not null"`
	ActionsChecksum  string `gorm:"size:64;not null"`
}
