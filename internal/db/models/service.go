package models

// Service represents a proxied site, identified by its server name.
// Services are created implicitly the first time a submitted configuration
// references them; the core never deletes them.
type Service struct {
	ID string `gorm:"primaryKey;size:255"`
}
