package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/24ep/mdm-sub019/internal/apperr"
	"github.com/24ep/mdm-sub019/internal/attrtype"
	"github.com/24ep/mdm-sub019/internal/model"
	"github.com/24ep/mdm-sub019/internal/schema"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.DataModel{},
		&model.DataModelSpace{},
		&model.Attribute{},
		&model.AttributeOption{},
		&model.ComboMember{},
		&model.DataRecord{},
		&model.DataRecordValue{},
		&model.TableView{},
	))
	return db
}

// companyFixture builds a "Company" model with the attribute shapes the
// store has to enforce: required text, enumerated select, unique email,
// numeric, multi-select, and a combo over name and industry.
func companyFixture(t *testing.T, db *gorm.DB) (uint, map[string]uint) {
	t.Helper()
	reg := schema.NewRegistry(db)

	dm, err := reg.CreateDataModel(schema.CreateDataModelInput{Name: "Company"})
	require.NoError(t, err)

	ids := map[string]uint{}
	add := func(in schema.AttributeInput) {
		attr, err := reg.AddAttribute(dm.ID, in)
		require.NoError(t, err)
		ids[in.Code] = attr.ID
	}

	add(schema.AttributeInput{Code: "name", Type: string(attrtype.Text), IsRequired: true, DisplayOrder: 1})
	add(schema.AttributeInput{
		Code: "industry", Type: string(attrtype.Select), DisplayOrder: 2,
		Options: []schema.OptionInput{
			{Value: "Technology"}, {Value: "Finance"},
		},
	})
	add(schema.AttributeInput{Code: "email", Type: string(attrtype.Email), IsUnique: true, DisplayOrder: 3})
	add(schema.AttributeInput{Code: "employees", Type: string(attrtype.Number), DisplayOrder: 4})
	add(schema.AttributeInput{
		Code: "tags", Type: string(attrtype.MultiSelect), DisplayOrder: 5,
		Options: []schema.OptionInput{
			{Value: "saas"}, {Value: "b2b"},
		},
	})
	add(schema.AttributeInput{
		Code: "display", Type: string(attrtype.Combo), DisplayOrder: 6,
		Combo: &schema.ComboInput{
			Strategy:  model.ComboStrategyLeftRight,
			Separator: " / ",
			MemberIDs: []uint{ids["name"], ids["industry"]},
		},
	})
	return dm.ID, ids
}

func TestCreateAndGetRecord(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	dmID, _ := companyFixture(t, db)

	rec, err := store.CreateRecord(dmID, "Acme", map[string]string{
		"name":      "Acme Corp",
		"industry":  "Technology",
		"email":     "hello@acme.example",
		"employees": "250",
		"tags":      `["saas","b2b"]`,
	}, 1)
	require.NoError(t, err)

	got, err := store.GetRecord(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.Values["name"])
	assert.Equal(t, "Technology", got.Values["industry"])
	assert.Equal(t, "250", got.Values["employees"])
	assert.Equal(t, "Acme Corp / Technology", got.Derived["display"])
	assert.Empty(t, got.Diagnostics)

	tags, err := attrtype.DecodeMulti(got.Values["tags"])
	require.NoError(t, err)
	assert.Equal(t, []string{"saas", "b2b"}, tags)
}

func TestCreateRecordValidation(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	dmID, _ := companyFixture(t, db)

	t.Run("missing required field creates nothing", func(t *testing.T) {
		_, err := store.CreateRecord(dmID, "r", map[string]string{"industry": "Finance"}, 1)
		require.Error(t, err)
		var appErr *apperr.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperr.KindValidation, appErr.Kind)
		assert.Equal(t, "name", appErr.Attribute)
		assert.Equal(t, "required", appErr.Reason)

		var count int64
		db.Model(&model.DataRecord{}).Count(&count)
		assert.EqualValues(t, 0, count, "failed create must not leave a record behind")
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := store.CreateRecord(dmID, "r", map[string]string{"name": "X", "bogus": "1"}, 1)
		assert.Equal(t, apperr.KindUnknownAttribute, apperr.KindOf(err))
	})

	t.Run("combo is not writable", func(t *testing.T) {
		_, err := store.CreateRecord(dmID, "r", map[string]string{"name": "X", "display": "forced"}, 1)
		assert.Equal(t, apperr.KindImmutable, apperr.KindOf(err))
	})

	t.Run("type errors", func(t *testing.T) {
		for code, raw := range map[string]string{
			"employees": "lots",
			"email":     "not-an-email",
			"tags":      `saas`,
		} {
			_, err := store.CreateRecord(dmID, "r", map[string]string{"name": "X", code: raw}, 1)
			assert.Equal(t, apperr.KindType, apperr.KindOf(err), code)
		}

		_, err := store.CreateRecord(dmID, "r", map[string]string{"name": "X", "industry": "Agriculture"}, 1)
		var appErr *apperr.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperr.KindValidation, appErr.Kind)
		assert.Equal(t, "unknown_option", appErr.Reason)

		var count int64
		db.Model(&model.DataRecordValue{}).Count(&count)
		assert.EqualValues(t, 0, count, "no partial writes")
	})
}

func TestRequiredMultiValued(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	reg := schema.NewRegistry(db)

	dm, err := reg.CreateDataModel(schema.CreateDataModelInput{Name: "Tagged"})
	require.NoError(t, err)
	_, err = reg.AddAttribute(dm.ID, schema.AttributeInput{
		Code: "tags", Type: string(attrtype.MultiSelect), IsRequired: true,
		Options: []schema.OptionInput{{Value: "saas"}, {Value: "b2b"}},
	})
	require.NoError(t, err)

	// An empty array satisfies the type but not the requirement.
	for name, raw := range map[string]string{"empty array": `[]`, "empty string": ""} {
		_, err := store.CreateRecord(dm.ID, "r", map[string]string{"tags": raw}, 1)
		var appErr *apperr.Error
		require.ErrorAs(t, err, &appErr, name)
		assert.Equal(t, apperr.KindValidation, appErr.Kind, name)
		assert.Equal(t, "required", appErr.Reason, name)
	}

	rec, err := store.CreateRecord(dm.ID, "r", map[string]string{"tags": `["saas"]`}, 1)
	require.NoError(t, err)

	t.Run("update cannot empty it either", func(t *testing.T) {
		_, err := store.UpdateRecord(rec.ID, nil, map[string]string{"tags": `[]`})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestUniqueAttribute(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	dmID, _ := companyFixture(t, db)

	first, err := store.CreateRecord(dmID, "a", map[string]string{
		"name": "A", "email": "same@example.com",
	}, 1)
	require.NoError(t, err)

	_, err = store.CreateRecord(dmID, "b", map[string]string{
		"name": "B", "email": "same@example.com",
	}, 1)
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Equal(t, "duplicate", appErr.Reason)

	t.Run("rewriting a record's own value is not a collision", func(t *testing.T) {
		_, err := store.UpdateRecord(first.ID, nil, map[string]string{"email": "same@example.com"})
		assert.NoError(t, err)
	})
}

func TestUpdateRecordPartial(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	dmID, _ := companyFixture(t, db)

	rec, err := store.CreateRecord(dmID, "Acme", map[string]string{
		"name": "Acme Corp", "industry": "Technology",
	}, 1)
	require.NoError(t, err)

	newName := "Acme Inc"
	_, err = store.UpdateRecord(rec.ID, &newName, map[string]string{"industry": "Finance"})
	require.NoError(t, err)

	got, err := store.GetRecord(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Inc", got.Record.Name)
	assert.Equal(t, "Acme Corp", got.Values["name"], "omitted attributes keep their value")
	assert.Equal(t, "Finance", got.Values["industry"])
	assert.Equal(t, "Acme Corp / Finance", got.Derived["display"], "combos follow the stored values")

	t.Run("emptying a required attribute rejected", func(t *testing.T) {
		_, err := store.UpdateRecord(rec.ID, nil, map[string]string{"name": ""})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("updating a missing record", func(t *testing.T) {
		_, err := store.UpdateRecord(99999, nil, nil)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}

func TestListRecords(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	dmID, _ := companyFixture(t, db)

	for _, name := range []string{"One", "Two", "Three"} {
		_, err := store.CreateRecord(dmID, name, map[string]string{"name": name}, 1)
		require.NoError(t, err)
	}

	out, err := store.ListRecords(dmID)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "One", out[0].Values["name"])
	assert.Equal(t, "Three", out[2].Values["name"])
	assert.Equal(t, "Two / ", out[1].Derived["display"], "separator is kept when one side is empty")
}

func TestDeleteRecord(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	dmID, _ := companyFixture(t, db)

	rec, err := store.CreateRecord(dmID, "gone", map[string]string{"name": "Gone"}, 1)
	require.NoError(t, err)
	require.NoError(t, store.DeleteRecord(rec.ID))

	_, err = store.GetRecord(rec.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	var count int64
	db.Model(&model.DataRecordValue{}).Where("record_id = ?", rec.ID).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestDanglingComboMember(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	reg := schema.NewRegistry(db)
	dmID, ids := companyFixture(t, db)

	rec, err := store.CreateRecord(dmID, "Acme", map[string]string{
		"name": "Acme Corp", "industry": "Technology",
	}, 1)
	require.NoError(t, err)

	require.NoError(t, reg.DeleteAttribute(ids["industry"]))

	got, err := store.GetRecord(rec.ID)
	require.NoError(t, err, "dangling members never fail the read")
	assert.Equal(t, "Acme Corp / ", got.Derived["display"])
	require.Len(t, got.Diagnostics, 1)
	assert.Equal(t, ids["display"], got.Diagnostics[0].AttributeID)
	assert.Equal(t, ids["industry"], got.Diagnostics[0].MemberID)
}
