package models

// GlobalValue is the single active non-default global value of a setting
// instance. Method records the writer that currently owns the row; only that
// writer or the privileged autoconf writer may mutate or delete it.
type GlobalValue struct {
	SettingID string `gorm:"primaryKey;size:255"`
	Suffix    uint   `gorm:"primaryKey"`
	Value     string `gorm:"size:4096;not null"`
	Method    string `gorm:"size:32;not null"`
}

// ServiceSetting is a per-service override of a setting instance, with the
// same ownership semantics as GlobalValue, scoped to one service.
type ServiceSetting struct {
	ServiceID string `gorm:"primaryKey;size:255"`
	SettingID string `gorm:"primaryKey;size:255"`
	Suffix    uint   `gorm:"primaryKey"`
	Value     string `gorm:"size:4096;not null"`
	Method    string `gorm:"size:32;not null"`
}
