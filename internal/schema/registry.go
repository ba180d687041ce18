// Package schema is the registry for data models and their attributes.
// It owns the naming/typing invariants: unique model names, unique
// attribute codes per model, valid combo specs with acyclic member
// graphs.
package schema

import (
	"errors"

	"gorm.io/gorm"

	"github.com/24ep/mdm-sub019/internal/apperr"
	"github.com/24ep/mdm-sub019/internal/attrtype"
	"github.com/24ep/mdm-sub019/internal/combo"
	"github.com/24ep/mdm-sub019/internal/model"
)

// Registry provides schema CRUD over a gorm handle. The handle may be a
// transaction, which lets callers compose registry operations into their
// own atomic units.
type Registry struct {
	db *gorm.DB
}

// NewRegistry creates a Registry on the given database handle.
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// CreateDataModelInput carries the fields for a new data model.
type CreateDataModelInput struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Slug        string `json:"slug"`
	SourceType  string `json:"source_type"`
	SpaceIDs    []uint `json:"space_ids"`
	CreatedBy   uint   `json:"-"`
}

// CreateDataModel creates the model and its space links in one
// transaction. The slug derives from the name unless supplied, in which
// case provenance flips to user-owned and later renames leave it alone.
func (r *Registry) CreateDataModel(in CreateDataModelInput) (*model.DataModel, error) {
	if in.Name == "" {
		return nil, apperr.Validation("name", "required", "name is required")
	}

	var count int64
	r.db.Model(&model.DataModel{}).Where("name = ?", in.Name).Count(&count)
	if count > 0 {
		return nil, apperr.Validation("name", "duplicate", "a data model named %q already exists", in.Name)
	}

	sourceType := in.SourceType
	if sourceType == "" {
		sourceType = model.SourceTypeInternal
	}
	if sourceType != model.SourceTypeInternal && sourceType != model.SourceTypeExternal {
		return nil, apperr.Validation("source_type", "invalid", "unknown source type %q", in.SourceType)
	}

	dm := model.DataModel{
		Name:        in.Name,
		DisplayName: in.DisplayName,
		Description: in.Description,
		Slug:        in.Slug,
		SlugSource:  model.SlugSourceUser,
		SourceType:  sourceType,
		IsActive:    true,
		CreatedBy:   in.CreatedBy,
	}
	if dm.Slug == "" {
		dm.Slug = DeriveSlug(in.Name)
		dm.SlugSource = model.SlugSourceAuto
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if result := tx.Create(&dm); result.Error != nil {
			return result.Error
		}
		for _, spaceID := range in.SpaceIDs {
			link := model.DataModelSpace{DataModelID: dm.ID, SpaceID: spaceID}
			if result := tx.Create(&link); result.Error != nil {
				return result.Error
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dm, nil
}

// GetDataModel fetches one model by id.
func (r *Registry) GetDataModel(id uint) (*model.DataModel, error) {
	var dm model.DataModel
	if result := r.db.First(&dm, id); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("data model %d not found", id)
		}
		return nil, result.Error
	}
	return &dm, nil
}

// ListDataModels returns models visible in any of the given spaces. An
// empty space set returns all models.
func (r *Registry) ListDataModels(spaceIDs []uint) ([]model.DataModel, error) {
	var models []model.DataModel
	query := r.db.Order("data_models.id")
	if len(spaceIDs) > 0 {
		query = query.
			Joins("JOIN data_model_spaces ON data_model_spaces.data_model_id = data_models.id").
			Where("data_model_spaces.space_id IN ?", spaceIDs).
			Distinct("data_models.*")
	}
	if result := query.Find(&models); result.Error != nil {
		return nil, result.Error
	}
	return models, nil
}

// UpdateDataModelInput is a partial patch; nil fields are untouched.
type UpdateDataModelInput struct {
	Name        *string `json:"name"`
	DisplayName *string `json:"display_name"`
	Description *string `json:"description"`
	Slug        *string `json:"slug"`
	SourceType  *string `json:"source_type"`
	IsActive    *bool   `json:"is_active"`
}

// UpdateDataModel applies a partial update. While slug provenance is
// auto, a rename re-derives the slug; an explicit slug (non-empty) makes
// it user-owned, and an explicit empty slug resets provenance to auto.
func (r *Registry) UpdateDataModel(id uint, in UpdateDataModelInput) (*model.DataModel, error) {
	dm, err := r.GetDataModel(id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil && *in.Name != dm.Name {
		if *in.Name == "" {
			return nil, apperr.Validation("name", "required", "name is required")
		}
		var count int64
		r.db.Model(&model.DataModel{}).Where("name = ? AND id != ?", *in.Name, id).Count(&count)
		if count > 0 {
			return nil, apperr.Validation("name", "duplicate", "a data model named %q already exists", *in.Name)
		}
		dm.Name = *in.Name
	}
	if in.DisplayName != nil {
		dm.DisplayName = *in.DisplayName
	}
	if in.Description != nil {
		dm.Description = *in.Description
	}
	if in.SourceType != nil {
		if *in.SourceType != model.SourceTypeInternal && *in.SourceType != model.SourceTypeExternal {
			return nil, apperr.Validation("source_type", "invalid", "unknown source type %q", *in.SourceType)
		}
		dm.SourceType = *in.SourceType
	}
	if in.IsActive != nil {
		dm.IsActive = *in.IsActive
	}
	if in.Slug != nil {
		if *in.Slug == "" {
			dm.SlugSource = model.SlugSourceAuto
		} else {
			dm.Slug = *in.Slug
			dm.SlugSource = model.SlugSourceUser
		}
	}
	if dm.SlugSource == model.SlugSourceAuto {
		dm.Slug = DeriveSlug(dm.Name)
	}

	if result := r.db.Save(dm); result.Error != nil {
		return nil, result.Error
	}
	return dm, nil
}

// DeleteDataModel removes the model and everything it owns: attributes,
// options, combo members, records, values, space links, and table views.
func (r *Registry) DeleteDataModel(id uint) error {
	if _, err := r.GetDataModel(id); err != nil {
		return err
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		attrIDs := tx.Model(&model.Attribute{}).Select("id").Where("data_model_id = ?", id)
		recordIDs := tx.Model(&model.DataRecord{}).Select("id").Where("data_model_id = ?", id)

		steps := []*gorm.DB{
			tx.Where("record_id IN (?)", recordIDs).Delete(&model.DataRecordValue{}),
			tx.Where("data_model_id = ?", id).Delete(&model.DataRecord{}),
			tx.Where("attribute_id IN (?)", attrIDs).Delete(&model.AttributeOption{}),
			tx.Where("attribute_id IN (?)", attrIDs).Delete(&model.ComboMember{}),
			tx.Where("data_model_id = ?", id).Delete(&model.Attribute{}),
			tx.Where("data_model_id = ?", id).Delete(&model.DataModelSpace{}),
			tx.Where("data_model_id = ?", id).Delete(&model.TableView{}),
			tx.Delete(&model.DataModel{}, id),
		}
		for _, step := range steps {
			if step.Error != nil {
				return step.Error
			}
		}
		return nil
	})
}

// OptionInput is one selectable value for an enumerated attribute.
type OptionInput struct {
	Value        string `json:"value"`
	Label        string `json:"label"`
	DisplayOrder int    `json:"display_order"`
}

// ComboInput is the declarative combo definition carried on an
// attribute of type COMBO.
type ComboInput struct {
	Strategy  string `json:"strategy"`
	Separator string `json:"separator"`
	MemberIDs []uint `json:"members"`
}

// AttributeInput carries the fields for a new or updated attribute.
type AttributeInput struct {
	Code             string        `json:"code"`
	DisplayName      string        `json:"display_name"`
	Type             string        `json:"type"`
	IsRequired       bool          `json:"is_required"`
	IsUnique         bool          `json:"is_unique"`
	DisplayOrder     int           `json:"display_order"`
	AllowedFileTypes string        `json:"allowed_file_types"`
	MaxFileSize      int64         `json:"max_file_size"`
	Options          []OptionInput `json:"options"`
	Combo            *ComboInput   `json:"combo"`
}

func (in *AttributeInput) validateShape() error {
	if in.Code == "" {
		return apperr.Validation("code", "required", "attribute code is required")
	}
	if !attrtype.Valid(attrtype.Kind(in.Type)) {
		return apperr.Validation(in.Code, "type", "unknown attribute type %q", in.Type)
	}
	if attrtype.Kind(in.Type) == attrtype.Combo && in.Combo == nil {
		return apperr.Validation(in.Code, "combo", "COMBO attributes require a combo definition")
	}
	if attrtype.Kind(in.Type) != attrtype.Combo && in.Combo != nil {
		return apperr.Validation(in.Code, "combo", "only COMBO attributes may carry a combo definition")
	}
	return nil
}

// AddAttribute validates code uniqueness and, for COMBO, the spec's
// arity and acyclicity, then inserts the attribute with its options and
// member rows in one transaction.
func (r *Registry) AddAttribute(dataModelID uint, in AttributeInput) (*model.Attribute, error) {
	if _, err := r.GetDataModel(dataModelID); err != nil {
		return nil, err
	}
	if err := in.validateShape(); err != nil {
		return nil, err
	}

	var count int64
	r.db.Model(&model.Attribute{}).
		Where("data_model_id = ? AND code = ?", dataModelID, in.Code).
		Count(&count)
	if count > 0 {
		return nil, apperr.Validation(in.Code, "duplicate", "attribute code %q already exists on this data model", in.Code)
	}

	if in.Combo != nil {
		existing, err := r.ListAttributes(dataModelID)
		if err != nil {
			return nil, err
		}
		graph := combo.NewGraph(existing)
		candidate := combo.Spec{
			Code:      in.Code,
			Strategy:  in.Combo.Strategy,
			Separator: in.Combo.Separator,
			MemberIDs: in.Combo.MemberIDs,
		}
		if err := graph.ValidateSpec(candidate); err != nil {
			return nil, err
		}
	}

	attr := model.Attribute{
		DataModelID:      dataModelID,
		Code:             in.Code,
		DisplayName:      in.DisplayName,
		Type:             in.Type,
		IsRequired:       in.IsRequired,
		IsUnique:         in.IsUnique,
		DisplayOrder:     in.DisplayOrder,
		AllowedFileTypes: in.AllowedFileTypes,
		MaxFileSize:      in.MaxFileSize,
	}
	if in.Combo != nil {
		attr.ComboStrategy = in.Combo.Strategy
		attr.ComboSeparator = in.Combo.Separator
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		return createAttribute(tx, &attr, in)
	})
	if err != nil {
		return nil, err
	}
	return r.GetAttribute(attr.ID)
}

func createAttribute(tx *gorm.DB, attr *model.Attribute, in AttributeInput) error {
	if result := tx.Create(attr); result.Error != nil {
		return result.Error
	}
	for _, opt := range in.Options {
		row := model.AttributeOption{
			AttributeID:  attr.ID,
			Value:        opt.Value,
			Label:        opt.Label,
			DisplayOrder: opt.DisplayOrder,
		}
		if result := tx.Create(&row); result.Error != nil {
			return result.Error
		}
	}
	if in.Combo != nil {
		for i, memberID := range in.Combo.MemberIDs {
			row := model.ComboMember{
				AttributeID:       attr.ID,
				MemberAttributeID: memberID,
				Position:          i,
			}
			if result := tx.Create(&row); result.Error != nil {
				return result.Error
			}
		}
	}
	return nil
}

// GetAttribute fetches one attribute with its options and combo members.
func (r *Registry) GetAttribute(id uint) (*model.Attribute, error) {
	var attr model.Attribute
	result := r.db.Preload("Options").Preload("ComboMembers").First(&attr, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("attribute %d not found", id)
		}
		return nil, result.Error
	}
	return &attr, nil
}

// UpdateAttribute applies a full update of the attribute definition.
// Options and combo members are replaced; the new combo spec is
// re-validated against the graph before anything is written.
func (r *Registry) UpdateAttribute(id uint, in AttributeInput) (*model.Attribute, error) {
	attr, err := r.GetAttribute(id)
	if err != nil {
		return nil, err
	}
	if err := in.validateShape(); err != nil {
		return nil, err
	}

	if in.Code != attr.Code {
		var count int64
		r.db.Model(&model.Attribute{}).
			Where("data_model_id = ? AND code = ? AND id != ?", attr.DataModelID, in.Code, id).
			Count(&count)
		if count > 0 {
			return nil, apperr.Validation(in.Code, "duplicate", "attribute code %q already exists on this data model", in.Code)
		}
	}

	if in.Combo != nil {
		existing, err := r.ListAttributes(attr.DataModelID)
		if err != nil {
			return nil, err
		}
		graph := combo.NewGraph(existing)
		candidate := combo.Spec{
			AttributeID: id,
			Code:        in.Code,
			Strategy:    in.Combo.Strategy,
			Separator:   in.Combo.Separator,
			MemberIDs:   in.Combo.MemberIDs,
		}
		if err := graph.ValidateSpec(candidate); err != nil {
			return nil, err
		}
	}

	attr.Code = in.Code
	attr.DisplayName = in.DisplayName
	attr.Type = in.Type
	attr.IsRequired = in.IsRequired
	attr.IsUnique = in.IsUnique
	attr.DisplayOrder = in.DisplayOrder
	attr.AllowedFileTypes = in.AllowedFileTypes
	attr.MaxFileSize = in.MaxFileSize
	attr.ComboStrategy = ""
	attr.ComboSeparator = ""
	if in.Combo != nil {
		attr.ComboStrategy = in.Combo.Strategy
		attr.ComboSeparator = in.Combo.Separator
	}
	attr.Options = nil
	attr.ComboMembers = nil

	err = r.db.Transaction(func(tx *gorm.DB) error {
		steps := []*gorm.DB{
			tx.Where("attribute_id = ?", id).Delete(&model.AttributeOption{}),
			tx.Where("attribute_id = ?", id).Delete(&model.ComboMember{}),
			tx.Save(attr),
		}
		for _, step := range steps {
			if step.Error != nil {
				return step.Error
			}
		}
		for _, opt := range in.Options {
			row := model.AttributeOption{
				AttributeID:  id,
				Value:        opt.Value,
				Label:        opt.Label,
				DisplayOrder: opt.DisplayOrder,
			}
			if result := tx.Create(&row); result.Error != nil {
				return result.Error
			}
		}
		if in.Combo != nil {
			for i, memberID := range in.Combo.MemberIDs {
				row := model.ComboMember{AttributeID: id, MemberAttributeID: memberID, Position: i}
				if result := tx.Create(&row); result.Error != nil {
					return result.Error
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetAttribute(id)
}

// DeleteAttribute removes the attribute, its options, its own member
// rows, and its stored values. Member rows of other combos that point at
// it are kept: they become dangling references that rendering reports as
// diagnostics.
func (r *Registry) DeleteAttribute(id uint) error {
	if _, err := r.GetAttribute(id); err != nil {
		return err
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		steps := []*gorm.DB{
			tx.Where("attribute_id = ?", id).Delete(&model.AttributeOption{}),
			tx.Where("attribute_id = ?", id).Delete(&model.ComboMember{}),
			tx.Where("attribute_id = ?", id).Delete(&model.DataRecordValue{}),
			tx.Delete(&model.Attribute{}, id),
		}
		for _, step := range steps {
			if step.Error != nil {
				return step.Error
			}
		}
		return nil
	})
}

// ListAttributes returns the model's attributes ordered by display_order
// ascending, ties broken by id, with options and combo members loaded.
func (r *Registry) ListAttributes(dataModelID uint) ([]model.Attribute, error) {
	var attrs []model.Attribute
	result := r.db.
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("display_order, id") }).
		Preload("ComboMembers", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("data_model_id = ?", dataModelID).
		Order("display_order, id").
		Find(&attrs)
	if result.Error != nil {
		return nil, result.Error
	}
	return attrs, nil
}

// LinkSpaces associates the model with the given spaces. Re-linking an
// already-linked space is a no-op.
func (r *Registry) LinkSpaces(dataModelID uint, spaceIDs []uint) error {
	if _, err := r.GetDataModel(dataModelID); err != nil {
		return err
	}
	for _, spaceID := range spaceIDs {
		var count int64
		r.db.Model(&model.DataModelSpace{}).
			Where("data_model_id = ? AND space_id = ?", dataModelID, spaceID).
			Count(&count)
		if count > 0 {
			continue
		}
		link := model.DataModelSpace{DataModelID: dataModelID, SpaceID: spaceID}
		if result := r.db.Create(&link); result.Error != nil {
			return result.Error
		}
	}
	return nil
}

// UnlinkSpaces removes the given space associations; absent links are
// ignored.
func (r *Registry) UnlinkSpaces(dataModelID uint, spaceIDs []uint) error {
	if len(spaceIDs) == 0 {
		return nil
	}
	result := r.db.
		Where("data_model_id = ? AND space_id IN ?", dataModelID, spaceIDs).
		Delete(&model.DataModelSpace{})
	return result.Error
}

// ReplaceSpaces swaps the model's space set atomically.
func (r *Registry) ReplaceSpaces(dataModelID uint, spaceIDs []uint) error {
	if _, err := r.GetDataModel(dataModelID); err != nil {
		return err
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if result := tx.Where("data_model_id = ?", dataModelID).Delete(&model.DataModelSpace{}); result.Error != nil {
			return result.Error
		}
		for _, spaceID := range spaceIDs {
			link := model.DataModelSpace{DataModelID: dataModelID, SpaceID: spaceID}
			if result := tx.Create(&link); result.Error != nil {
				return result.Error
			}
		}
		return nil
	})
}

// ListSpaces returns the ids of spaces the model is linked to.
func (r *Registry) ListSpaces(dataModelID uint) ([]uint, error) {
	var links []model.DataModelSpace
	if result := r.db.Where("data_model_id = ?", dataModelID).Order("space_id").Find(&links); result.Error != nil {
		return nil, result.Error
	}
	ids := make([]uint, len(links))
	for i, l := range links {
		ids[i] = l.SpaceID
	}
	return ids, nil
}
