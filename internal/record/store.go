// Package record is the entity-attribute-value store for data records.
// Writes are validated against the attribute type system and committed
// all-or-nothing; reads resolve combination columns on the fly so that
// source attributes stay the single source of truth.
package record

import (
	"errors"

	"gorm.io/gorm"

	"github.com/24ep/mdm-sub019/internal/apperr"
	"github.com/24ep/mdm-sub019/internal/attrtype"
	"github.com/24ep/mdm-sub019/internal/combo"
	"github.com/24ep/mdm-sub019/internal/model"
	"github.com/24ep/mdm-sub019/internal/schema"
)

// Store provides record CRUD over a gorm handle.
type Store struct {
	db  *gorm.DB
	reg *schema.Registry
}

// NewStore creates a Store on the given database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, reg: schema.NewRegistry(db)}
}

// Resolved is a record read: stored values by attribute code, plus
// combination columns computed for this read under Derived. Diagnostics
// lists dangling combo members encountered while resolving; they never
// fail the read.
type Resolved struct {
	Record      model.DataRecord   `json:"record"`
	Values      map[string]string  `json:"values"`
	Derived     map[string]string  `json:"derived"`
	Diagnostics []combo.Diagnostic `json:"diagnostics,omitempty"`
}

// CreateRecord validates the provided values and persists the record and
// its value rows in one transaction.
func (s *Store) CreateRecord(dataModelID uint, name string, values map[string]string, createdBy uint) (*model.DataRecord, error) {
	if _, err := s.reg.GetDataModel(dataModelID); err != nil {
		return nil, err
	}
	attrs, err := s.reg.ListAttributes(dataModelID)
	if err != nil {
		return nil, err
	}

	coerced, err := s.checkValues(attrs, values, true, dataModelID, 0)
	if err != nil {
		return nil, err
	}

	rec := model.DataRecord{DataModelID: dataModelID, Name: name, CreatedBy: createdBy}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if result := tx.Create(&rec); result.Error != nil {
			return result.Error
		}
		for attrID, value := range coerced {
			row := model.DataRecordValue{RecordID: rec.ID, AttributeID: attrID, Value: value}
			if result := tx.Create(&row); result.Error != nil {
				return result.Error
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateRecord applies a partial value update: only supplied codes are
// touched, omitted attributes keep their prior value. A non-nil name
// renames the record.
func (s *Store) UpdateRecord(recordID uint, name *string, values map[string]string) (*model.DataRecord, error) {
	rec, err := s.getRecordRow(recordID)
	if err != nil {
		return nil, err
	}
	attrs, err := s.reg.ListAttributes(rec.DataModelID)
	if err != nil {
		return nil, err
	}

	coerced, err := s.checkValues(attrs, values, false, rec.DataModelID, recordID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if name != nil {
			rec.Name = *name
		}
		if result := tx.Save(rec); result.Error != nil {
			return result.Error
		}
		for attrID, value := range coerced {
			var existing model.DataRecordValue
			result := tx.Where("record_id = ? AND attribute_id = ?", recordID, attrID).First(&existing)
			switch {
			case result.Error == nil:
				existing.Value = value
				if result := tx.Save(&existing); result.Error != nil {
					return result.Error
				}
			case errors.Is(result.Error, gorm.ErrRecordNotFound):
				row := model.DataRecordValue{RecordID: recordID, AttributeID: attrID, Value: value}
				if result := tx.Create(&row); result.Error != nil {
					return result.Error
				}
			default:
				return result.Error
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// DeleteRecord removes the record and its values.
func (s *Store) DeleteRecord(recordID uint) error {
	if _, err := s.getRecordRow(recordID); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if result := tx.Where("record_id = ?", recordID).Delete(&model.DataRecordValue{}); result.Error != nil {
			return result.Error
		}
		if result := tx.Delete(&model.DataRecord{}, recordID); result.Error != nil {
			return result.Error
		}
		return nil
	})
}

// GetRecord returns the record with stored values keyed by code and every
// combination column of its model resolved for this read.
func (s *Store) GetRecord(recordID uint) (*Resolved, error) {
	rec, err := s.getRecordRow(recordID)
	if err != nil {
		return nil, err
	}
	attrs, err := s.reg.ListAttributes(rec.DataModelID)
	if err != nil {
		return nil, err
	}
	rows, err := s.valueRows([]uint{recordID})
	if err != nil {
		return nil, err
	}
	return resolveOne(*rec, attrs, rows[recordID]), nil
}

// ListRecords returns all records of a model with combos resolved,
// ordered by id.
func (s *Store) ListRecords(dataModelID uint) ([]Resolved, error) {
	if _, err := s.reg.GetDataModel(dataModelID); err != nil {
		return nil, err
	}
	attrs, err := s.reg.ListAttributes(dataModelID)
	if err != nil {
		return nil, err
	}

	var recs []model.DataRecord
	if result := s.db.Where("data_model_id = ?", dataModelID).Order("id").Find(&recs); result.Error != nil {
		return nil, result.Error
	}
	ids := make([]uint, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	rows, err := s.valueRows(ids)
	if err != nil {
		return nil, err
	}

	out := make([]Resolved, len(recs))
	for i, r := range recs {
		out[i] = *resolveOne(r, attrs, rows[r.ID])
	}
	return out, nil
}

func (s *Store) getRecordRow(recordID uint) (*model.DataRecord, error) {
	var rec model.DataRecord
	if result := s.db.First(&rec, recordID); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("record %d not found", recordID)
		}
		return nil, result.Error
	}
	return &rec, nil
}

func (s *Store) valueRows(recordIDs []uint) (map[uint]map[uint]string, error) {
	out := make(map[uint]map[uint]string, len(recordIDs))
	if len(recordIDs) == 0 {
		return out, nil
	}
	var rows []model.DataRecordValue
	if result := s.db.Where("record_id IN ?", recordIDs).Find(&rows); result.Error != nil {
		return nil, result.Error
	}
	for _, row := range rows {
		if out[row.RecordID] == nil {
			out[row.RecordID] = map[uint]string{}
		}
		out[row.RecordID][row.AttributeID] = row.Value
	}
	return out, nil
}

func resolveOne(rec model.DataRecord, attrs []model.Attribute, values map[uint]string) *Resolved {
	graph := combo.NewGraph(attrs)
	derivedByID, diagnostics := graph.ResolveAll(values)

	res := &Resolved{
		Record:      rec,
		Values:      map[string]string{},
		Derived:     map[string]string{},
		Diagnostics: diagnostics,
	}
	for i := range attrs {
		a := &attrs[i]
		if attrtype.Kind(a.Type) == attrtype.Combo {
			res.Derived[a.Code] = derivedByID[a.ID]
			continue
		}
		if v, ok := values[a.ID]; ok {
			res.Values[a.Code] = v
		}
	}
	return res
}

// checkValues coerces the supplied raw values and enforces the
// unknown-code, required, and unique rules. enforceRequired is true for
// creates, where every required attribute must be supplied; updates only
// reject explicitly emptied required attributes. excludeRecordID scopes
// the uniqueness query away from the record being updated.
func (s *Store) checkValues(attrs []model.Attribute, values map[string]string, enforceRequired bool, dataModelID, excludeRecordID uint) (map[uint]string, error) {
	byCode := make(map[string]*model.Attribute, len(attrs))
	for i := range attrs {
		byCode[attrs[i].Code] = &attrs[i]
	}

	coerced := make(map[uint]string, len(values))
	for code, raw := range values {
		attr, ok := byCode[code]
		if !ok {
			return nil, apperr.UnknownAttribute(code)
		}
		value, err := attrtype.Coerce(attr, raw)
		if err != nil {
			return nil, err
		}
		if attr.IsRequired && attrtype.EmptyValue(attr, value) {
			return nil, apperr.Validation(code, "required", "attribute %q is required", code)
		}
		coerced[attr.ID] = value
	}

	if enforceRequired {
		for i := range attrs {
			a := &attrs[i]
			if !a.IsRequired || attrtype.Kind(a.Type) == attrtype.Combo {
				continue
			}
			if _, supplied := coerced[a.ID]; !supplied {
				return nil, apperr.Validation(a.Code, "required", "attribute %q is required", a.Code)
			}
		}
	}

	for i := range attrs {
		a := &attrs[i]
		if !a.IsUnique {
			continue
		}
		value, supplied := coerced[a.ID]
		if !supplied || attrtype.EmptyValue(a, value) {
			continue
		}
		var count int64
		query := s.db.Model(&model.DataRecordValue{}).
			Joins("JOIN data_records ON data_records.id = data_record_values.record_id").
			Where("data_records.data_model_id = ?", dataModelID).
			Where("data_record_values.attribute_id = ? AND data_record_values.value = ?", a.ID, value)
		if excludeRecordID != 0 {
			query = query.Where("data_record_values.record_id != ?", excludeRecordID)
		}
		query.Count(&count)
		if count > 0 {
			return nil, apperr.Validation(a.Code, "duplicate", "value for %q must be unique across records", a.Code)
		}
	}

	return coerced, nil
}
