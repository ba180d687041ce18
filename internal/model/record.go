package model

import (
	"time"
)

// DataRecord is one instance of a DataModel. Its field values are
// DataRecordValue rows, one per attribute that has been written.
type DataRecord struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	DataModelID uint      `json:"data_model_id" gorm:"not null;index"`
	Name        string    `json:"name" gorm:"type:varchar(255)"`
	CreatedBy   uint      `json:"created_by" gorm:"index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DataRecordValue is the entity-attribute-value cell. Value is always
// stored as text; the owning attribute's type governs interpretation.
// Multi-valued kinds (MULTI_SELECT, MULTI_USER, ATTACHMENT) store a JSON
// string array in the single row. COMBO attributes never have a row here.
type DataRecordValue struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	RecordID    uint      `json:"record_id" gorm:"not null;index;uniqueIndex:idx_record_attr"`
	AttributeID uint      `json:"attribute_id" gorm:"not null;index;uniqueIndex:idx_record_attr"`
	Value       string    `json:"value" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
