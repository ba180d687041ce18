package model

import (
	"encoding/json"
	"time"
)

// TableView holds one viewer's table presentation for one DataModel:
// column order and hidden columns, each stored as a JSON array of
// attribute ids. It references attributes by id but its lifecycle is
// independent of the schema; stale ids are dropped on the next write.
type TableView struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	DataModelID   uint      `json:"data_model_id" gorm:"not null;index;uniqueIndex:idx_view_owner"`
	OwnerID       uint      `json:"owner_id" gorm:"not null;index;uniqueIndex:idx_view_owner"`
	ColumnOrder   string    `json:"column_order" gorm:"type:text;default:'[]'"`
	HiddenColumns string    `json:"hidden_columns" gorm:"type:text;default:'[]'"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ColumnIDs decodes the stored column order. A malformed or empty column
// blob decodes to nil rather than failing the read.
func (v *TableView) ColumnIDs() []uint {
	return decodeIDs(v.ColumnOrder)
}

// SetColumnIDs replaces the stored column order.
func (v *TableView) SetColumnIDs(ids []uint) {
	v.ColumnOrder = encodeIDs(ids)
}

// HiddenIDs decodes the stored hidden-column set.
func (v *TableView) HiddenIDs() []uint {
	return decodeIDs(v.HiddenColumns)
}

// SetHiddenIDs replaces the stored hidden-column set.
func (v *TableView) SetHiddenIDs(ids []uint) {
	v.HiddenColumns = encodeIDs(ids)
}

func decodeIDs(blob string) []uint {
	if blob == "" {
		return nil
	}
	var ids []uint
	if err := json.Unmarshal([]byte(blob), &ids); err != nil {
		return nil
	}
	return ids
}

func encodeIDs(ids []uint) string {
	if ids == nil {
		ids = []uint{}
	}
	out, _ := json.Marshal(ids)
	return string(out)
}
