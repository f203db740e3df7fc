// Package settings serves the administrative system settings snapshot.
package settings

import (
	"sync"
	"time"
)

// Settings is the operator-tunable configuration of the reporting backend.
type Settings struct {
	SiteName          string    `json:"site_name" validate:"required,max=100"`
	MaintenanceMode   bool      `json:"maintenance_mode"`
	ReportAutoApprove bool      `json:"report_auto_approve"`
	MaxUploadMB       int       `json:"max_upload_mb" validate:"min=1,max=100"`
	SupportEmail      string    `json:"support_email" validate:"omitempty,email"`
	UpdatedAt         time.Time `json:"updated_at"`
	UpdatedBy         string    `json:"updated_by,omitempty"`
}

// Defaults returns the settings a fresh process starts with.
func Defaults() Settings {
	return Settings{SiteName: "Disaster Reporting", MaxUploadMB: 10}
}

// Store holds the current snapshot in memory.
type Store struct {
	mu      sync.RWMutex
	current Settings
	now     func() time.Time
}

// NewStore seeds a Store with initial.
func NewStore(initial Settings) *Store {
	return &Store{current: initial, now: time.Now}
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Replace swaps in next, stamping who changed it.
func (s *Store) Replace(next Settings, actor string) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	next.UpdatedAt = s.now().UTC()
	next.UpdatedBy = actor
	s.current = next
	return next
}
