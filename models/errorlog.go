package models

import (
	"gorm.io/gorm"
)

// ErrorLog records command and job errors that were reported to users or
// logged and skipped, for later inspection.
type ErrorLog struct {
	gorm.Model
	ID      uint   `gorm:"primaryKey"`
	GuildID string `gorm:"size:64"`
	Message string
}
