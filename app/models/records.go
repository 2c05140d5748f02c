package models

import (
	"time"

	"gorm.io/gorm"
)

// Estandarte is a historical standard (flag or banner) with a main image and a gallery
type Estandarte struct {
	ID          uint64         `gorm:"primaryKey" json:"id"`
	Nombre      string         `gorm:"type:varchar(255);not null" json:"nombre" validate:"required,max=255"`
	Descripcion string         `gorm:"type:text" json:"descripcion"`
	Imagen      *string        `gorm:"type:varchar(512)" json:"imagen"`
	Galeria     StringList     `gorm:"type:json" json:"galeria"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Estandarte model
func (Estandarte) TableName() string {
	return "estandartes"
}

// Presidente is a former president of the organization
type Presidente struct {
	ID        uint64         `gorm:"primaryKey" json:"id"`
	Nombre    string         `gorm:"type:varchar(255);not null" json:"nombre" validate:"required,max=255"`
	Periodo   string         `gorm:"type:varchar(100)" json:"periodo"`
	Foto      *string        `gorm:"type:varchar(512)" json:"foto"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Presidente model
func (Presidente) TableName() string {
	return "presidentes"
}

// Publicacion is a publication of the organization
type Publicacion struct {
	ID        uint64         `gorm:"primaryKey" json:"id"`
	Titulo    string         `gorm:"type:varchar(255);not null" json:"titulo" validate:"required,max=255"`
	Anio      *int           `gorm:"type:int" json:"anio"`
	Portada   *string        `gorm:"type:varchar(512)" json:"portada"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Publicacion model
func (Publicacion) TableName() string {
	return "publicaciones"
}

// Distincion is an award granted by or to the organization
type Distincion struct {
	ID        uint64         `gorm:"primaryKey" json:"id"`
	Nombre    string         `gorm:"type:varchar(255);not null" json:"nombre" validate:"required,max=255"`
	Otorgada  *time.Time     `gorm:"type:date" json:"otorgada"`
	Imagen    *string        `gorm:"type:varchar(512)" json:"imagen"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Distincion model
func (Distincion) TableName() string {
	return "distinciones"
}
