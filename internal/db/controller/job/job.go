// Package job records scheduled job runs and their cached artifacts. It is
// the narrow bookkeeping interface the scheduler talks to; job execution
// itself lives outside the store.
package job

import (
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/GoProxyGuard/GoProxyGuard/internal/db/models"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrJobNotFound is returned when recording a run of an unknown job.
	ErrJobNotFound = errors.New("job not found")
)

// UpdateRun records the outcome of a job run.
func UpdateRun(db *gorm.DB, pluginID, name string, success bool) error {
	if db == nil {
		return ErrDBNil
	}

	var row models.Job

	err := db.Where("plugin_id = ? AND name = ?", pluginID, name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrJobNotFound
	}

	if err != nil {
		return pkgerrors.Wrap(err, "failed to look up job")
	}

	now := time.Now()
	row.LastRun = &now
	row.Success = success

	return pkgerrors.Wrap(db.Save(&row).Error, "failed to update job")
}

// UpsertCache stores a cached artifact produced by a job run, replacing a
// previous artifact with the same (job, service, file) key.
func UpsertCache(db *gorm.DB, jobName string, serviceID *string, fileName string, data []byte, checksum string) error {
	if db == nil {
		return ErrDBNil
	}

	query := db.Where("job_name = ? AND file_name = ?", jobName, fileName)
	if serviceID == nil {
		query = query.Where("service_id IS NULL")
	} else {
		query = query.Where("service_id = ?", *serviceID)
	}

	now := time.Now()

	var row models.JobCache

	err := query.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = models.JobCache{
			JobName:    jobName,
			ServiceID:  serviceID,
			FileName:   fileName,
			Data:       data,
			LastUpdate: &now,
			Checksum:   &checksum,
		}

		return pkgerrors.Wrap(db.Create(&row).Error, "failed to create job cache")
	}

	if err != nil {
		return pkgerrors.Wrap(err, "failed to look up job cache")
	}

	row.Data = data
	row.LastUpdate = &now
	row.Checksum = &checksum

	return pkgerrors.Wrap(db.Save(&row).Error, "failed to update job cache")
}
