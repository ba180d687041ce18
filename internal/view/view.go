// Package view persists per-viewer table presentation: column order,
// hidden columns, and combo-column authoring. Authoring a combination
// column is simultaneously a schema change and a view change, so both
// sides of that operation commit or roll back together.
package view

import (
	"errors"

	"gorm.io/gorm"

	"github.com/24ep/mdm-sub019/internal/apperr"
	"github.com/24ep/mdm-sub019/internal/attrtype"
	"github.com/24ep/mdm-sub019/internal/model"
	"github.com/24ep/mdm-sub019/internal/schema"
)

// Service provides table-view operations over a gorm handle.
type Service struct {
	db *gorm.DB
}

// NewService creates a Service on the given database handle.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GetView returns the caller's view of a model, creating a default one
// (every attribute in display order, nothing hidden) on first read.
func (s *Service) GetView(dataModelID, ownerID uint) (*model.TableView, error) {
	var v model.TableView
	result := s.db.Where("data_model_id = ? AND owner_id = ?", dataModelID, ownerID).First(&v)
	if result.Error == nil {
		return &v, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	reg := schema.NewRegistry(s.db)
	if _, err := reg.GetDataModel(dataModelID); err != nil {
		return nil, err
	}
	attrs, err := reg.ListAttributes(dataModelID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(attrs))
	for i, a := range attrs {
		ids[i] = a.ID
	}

	v = model.TableView{DataModelID: dataModelID, OwnerID: ownerID}
	v.SetColumnIDs(ids)
	v.SetHiddenIDs(nil)
	if result := s.db.Create(&v); result.Error != nil {
		return nil, result.Error
	}
	return &v, nil
}

// GetByID fetches one view row.
func (s *Service) GetByID(viewID uint) (*model.TableView, error) {
	var v model.TableView
	if result := s.db.First(&v, viewID); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("view %d not found", viewID)
		}
		return nil, result.Error
	}
	return &v, nil
}

// ReorderColumns replaces the stored column order. Ids that no longer
// resolve to an attribute of the owning model are dropped silently; the
// view must stay usable after schema edits it did not see.
func (s *Service) ReorderColumns(viewID uint, orderedIDs []uint) (*model.TableView, error) {
	v, err := s.GetByID(viewID)
	if err != nil {
		return nil, err
	}
	live, err := s.liveAttributeIDs(v.DataModelID)
	if err != nil {
		return nil, err
	}

	kept := make([]uint, 0, len(orderedIDs))
	for _, id := range orderedIDs {
		if live[id] {
			kept = append(kept, id)
		}
	}
	v.SetColumnIDs(kept)
	if result := s.db.Save(v); result.Error != nil {
		return nil, result.Error
	}
	return v, nil
}

// SetColumnHidden shows or hides one column.
func (s *Service) SetColumnHidden(viewID, attributeID uint, hidden bool) (*model.TableView, error) {
	v, err := s.GetByID(viewID)
	if err != nil {
		return nil, err
	}
	live, err := s.liveAttributeIDs(v.DataModelID)
	if err != nil {
		return nil, err
	}
	if !live[attributeID] {
		return nil, apperr.NotFound("attribute %d not found on this data model", attributeID)
	}

	ids := v.HiddenIDs()
	kept := make([]uint, 0, len(ids)+1)
	for _, id := range ids {
		if id != attributeID && live[id] {
			kept = append(kept, id)
		}
	}
	if hidden {
		kept = append(kept, attributeID)
	}
	v.SetHiddenIDs(kept)
	if result := s.db.Save(v); result.Error != nil {
		return nil, result.Error
	}
	return v, nil
}

// ComboColumnInput is the authoring payload for a combination column.
// AttributeID zero creates a new column; non-zero edits an existing one.
type ComboColumnInput struct {
	AttributeID  uint   `json:"attribute_id"`
	Code         string `json:"code"`
	DisplayName  string `json:"display_name"`
	Strategy     string `json:"strategy"`
	Separator    string `json:"separator"`
	MemberIDs    []uint `json:"members"`
	DisplayOrder int    `json:"display_order"`
}

// UpsertComboSpec validates the spec and materializes it as a COMBO
// attribute through the registry, appending new columns to the view's
// order. Both writes share one transaction, so a rejected spec leaves
// schema and view unchanged.
func (s *Service) UpsertComboSpec(viewID uint, in ComboColumnInput) (*model.Attribute, error) {
	v, err := s.GetByID(viewID)
	if err != nil {
		return nil, err
	}

	spec := schema.AttributeInput{
		Code:         in.Code,
		DisplayName:  in.DisplayName,
		Type:         string(attrtype.Combo),
		DisplayOrder: in.DisplayOrder,
		Combo: &schema.ComboInput{
			Strategy:  in.Strategy,
			Separator: in.Separator,
			MemberIDs: in.MemberIDs,
		},
	}

	var attr *model.Attribute
	err = s.db.Transaction(func(tx *gorm.DB) error {
		reg := schema.NewRegistry(tx)

		if in.AttributeID == 0 {
			attr, err = reg.AddAttribute(v.DataModelID, spec)
		} else {
			var existing *model.Attribute
			existing, err = reg.GetAttribute(in.AttributeID)
			if err == nil && existing.DataModelID != v.DataModelID {
				err = apperr.NotFound("attribute %d not found on this data model", in.AttributeID)
			}
			if err == nil && attrtype.Kind(existing.Type) != attrtype.Combo {
				err = apperr.Validation(existing.Code, "type", "attribute %q is not a combination column", existing.Code)
			}
			if err == nil {
				attr, err = reg.UpdateAttribute(in.AttributeID, spec)
			}
		}
		if err != nil {
			return err
		}

		if in.AttributeID == 0 {
			v.SetColumnIDs(append(v.ColumnIDs(), attr.ID))
			if result := tx.Save(v); result.Error != nil {
				return result.Error
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return attr, nil
}

// RemoveComboColumn deletes the combo attribute from the schema and
// scrubs it from the view's order and hidden set atomically.
func (s *Service) RemoveComboColumn(viewID, attributeID uint) error {
	v, err := s.GetByID(viewID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		reg := schema.NewRegistry(tx)

		attr, err := reg.GetAttribute(attributeID)
		if err == nil && attr.DataModelID != v.DataModelID {
			err = apperr.NotFound("attribute %d not found on this data model", attributeID)
		}
		if err == nil && attrtype.Kind(attr.Type) != attrtype.Combo {
			err = apperr.Validation(attr.Code, "type", "attribute %q is not a combination column", attr.Code)
		}
		if err == nil {
			err = reg.DeleteAttribute(attributeID)
		}
		if err != nil {
			return err
		}

		v.SetColumnIDs(without(v.ColumnIDs(), attributeID))
		v.SetHiddenIDs(without(v.HiddenIDs(), attributeID))
		if result := tx.Save(v); result.Error != nil {
			return result.Error
		}
		return nil
	})
}

func (s *Service) liveAttributeIDs(dataModelID uint) (map[uint]bool, error) {
	var ids []uint
	result := s.db.Model(&model.Attribute{}).
		Where("data_model_id = ?", dataModelID).
		Pluck("id", &ids)
	if result.Error != nil {
		return nil, result.Error
	}
	live := make(map[uint]bool, len(ids))
	for _, id := range ids {
		live[id] = true
	}
	return live, nil
}

func without(ids []uint, drop uint) []uint {
	kept := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			kept = append(kept, id)
		}
	}
	return kept
}
