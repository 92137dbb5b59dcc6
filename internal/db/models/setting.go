package models

// Setting contexts. A multisite setting may be overridden per service,
// a global setting only has one value system-wide.
const (
	ContextGlobal    = "global"
	ContextMultisite = "multisite"
)

// Setting is the definition of a known configuration setting. Rows are owned
// by the plugin that declared them and are immutable outside plugin sync.
type Setting struct {
	ID       string `gorm:"primaryKey;size:255"`
	PluginID string `gorm:"size:64;not null;index"`
	Name     string `gorm:"size:255;not null"`
	Context  string `gorm:"size:16;not null"`
	Default  string `gorm:"size:1024;not null"`
	Help     string `gorm:"size:255;not null"`
	Label    string `gorm:"size:255;not null"`
	Regex    string `gorm:"size:1024;not null"`
	Type     string `gorm:"size:16;not null"`
	Multiple bool   `gorm:"not null"`
}

// Select is one enumerated choice value of a select-typed setting.
type Select struct {
	SettingID string `gorm:"primaryKey;size:255"`
	Value     string `gorm:"primaryKey;size:255"`
}
