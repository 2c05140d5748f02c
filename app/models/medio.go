package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Medio is an audio, video or document file stored verbatim on the remote media store
type Medio struct {
	ID          uint64         `gorm:"primaryKey" json:"id"`
	UUID        string         `gorm:"type:char(36);uniqueIndex;not null" json:"uuid"`
	Titulo      string         `gorm:"type:varchar(255)" json:"titulo"`
	FileName    string         `gorm:"type:varchar(255);not null" json:"file_name"`
	ObjectKey   string         `gorm:"type:varchar(512);not null" json:"object_key"`
	ContentType string         `gorm:"type:varchar(100)" json:"content_type"`
	FileSize    int64          `gorm:"type:bigint" json:"file_size"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Medio model
func (Medio) TableName() string {
	return "medios"
}

// BeforeCreate generates the UUID if it is missing
func (m *Medio) BeforeCreate(tx *gorm.DB) error {
	if m.UUID == "" {
		m.UUID = uuid.New().String()
	}
	return nil
}
