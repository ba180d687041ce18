package model

import (
	"time"
)

// Combo strategies. LEFT_RIGHT joins exactly two members with the
// separator; GROUPING joins one or more members in member order.
const (
	ComboStrategyLeftRight = "LEFT_RIGHT"
	ComboStrategyGrouping  = "GROUPING"
)

// Attribute is one field definition owned by a DataModel. The Type column
// holds one of the attrtype kinds; type-specific metadata (options, file
// limits, combo strategy/members) lives in the optional columns and the
// associated rows below.
type Attribute struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	DataModelID uint   `json:"data_model_id" gorm:"not null;index;uniqueIndex:idx_attr_code"`
	Code        string `json:"code" gorm:"type:varchar(100);not null;uniqueIndex:idx_attr_code"`
	DisplayName string `json:"display_name" gorm:"type:varchar(255)"`
	Type        string `json:"type" gorm:"type:varchar(20);not null"`
	IsRequired  bool   `json:"is_required" gorm:"default:false"`
	IsUnique    bool   `json:"is_unique" gorm:"default:false"`
	// DisplayOrder defines the default column order; ties break on id.
	DisplayOrder int `json:"display_order" gorm:"default:0"`

	// Attachment metadata.
	AllowedFileTypes string `json:"allowed_file_types,omitempty" gorm:"type:varchar(255)"`
	MaxFileSize      int64  `json:"max_file_size,omitempty"`

	// Combo metadata; empty unless Type is COMBO.
	ComboStrategy  string `json:"combo_strategy,omitempty" gorm:"type:varchar(20)"`
	ComboSeparator string `json:"combo_separator,omitempty" gorm:"type:varchar(20)"`

	Options      []AttributeOption `json:"options,omitempty" gorm:"foreignKey:AttributeID"`
	ComboMembers []ComboMember     `json:"combo_members,omitempty" gorm:"foreignKey:AttributeID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AttributeOption is one selectable value for a SELECT / MULTI_SELECT
// attribute. Deleted together with its attribute.
type AttributeOption struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	AttributeID  uint      `json:"attribute_id" gorm:"not null;index"`
	Value        string    `json:"value" gorm:"type:varchar(255);not null"`
	Label        string    `json:"label" gorm:"type:varchar(255)"`
	DisplayOrder int       `json:"display_order" gorm:"default:0"`
	CreatedAt    time.Time `json:"created_at"`
}

// ComboMember is one ordered member reference of a COMBO attribute.
// MemberAttributeID may point at a plain attribute or at another COMBO of
// the same model. The row deliberately survives deletion of the member
// attribute so that rendering can report the dangling reference.
type ComboMember struct {
	ID                uint `json:"id" gorm:"primaryKey"`
	AttributeID       uint `json:"attribute_id" gorm:"not null;index"`
	MemberAttributeID uint `json:"member_attribute_id" gorm:"not null;index"`
	Position          int  `json:"position" gorm:"not null;default:0"`
}
