package model

import (
	"time"
)

// Source types for a DataModel.
const (
	SourceTypeInternal = "INTERNAL"
	SourceTypeExternal = "EXTERNAL"
)

// Slug provenance values. While a model's slug is "auto" it is re-derived
// from the name on every rename; once a caller supplies a slug explicitly
// it flips to "user" and renames leave it alone.
const (
	SlugSourceAuto = "auto"
	SlugSourceUser = "user"
)

// DataModel represents one user-defined entity type. Its fields are not
// fixed columns; they are Attribute rows owned by the model.
type DataModel struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	DisplayName string    `json:"display_name" gorm:"type:varchar(255)"`
	Description string    `json:"description" gorm:"type:text"`
	Slug        string    `json:"slug" gorm:"type:varchar(120);index"`
	SlugSource  string    `json:"slug_source" gorm:"type:varchar(10);not null;default:'auto'"`
	SourceType  string    `json:"source_type" gorm:"type:varchar(20);not null;default:'INTERNAL'"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`
	CreatedBy   uint      `json:"created_by" gorm:"index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DataModelSpace links a DataModel to a Space for visibility. Spaces
// themselves live in the identity service; only the ids are stored here.
type DataModelSpace struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	DataModelID uint      `json:"data_model_id" gorm:"not null;uniqueIndex:idx_model_space"`
	SpaceID     uint      `json:"space_id" gorm:"not null;index;uniqueIndex:idx_model_space"`
	CreatedAt   time.Time `json:"created_at"`
}
