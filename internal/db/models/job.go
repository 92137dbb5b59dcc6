package models

import "time"

// Job is a scheduled background job declared by a plugin.
type Job struct {
	PluginID string     `gorm:"primaryKey;size:64"`
	Name     string     `gorm:"primaryKey;size:128"`
	File     string     `gorm:"size:255;not null"`
	Every    string     `gorm:"size:16;not null"`
	Reload   bool       `gorm:"not null"`
	LastRun  *time.Time
	Success  bool `gorm:"not null"`
}

// JobCache is a cached artifact produced by a job run, optionally scoped to
// one service.
type JobCache struct {
	ID         uint    `gorm:"primaryKey"`
	JobName    string  `gorm:"size:128;not null;uniqueIndex:uq_job_cache"`
	ServiceID  *string `gorm:"size:255;uniqueIndex:uq_job_cache"`
	FileName   string  `gorm:"size:255;not null;uniqueIndex:uq_job_cache"`
	Data       []byte  `gorm:"type:blob"`
	LastUpdate *time.Time
	Checksum   *string `gorm:"size:64"`
}
