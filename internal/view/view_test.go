package view

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

func personFixture(t *testing.T, db *gorm.DB) (dmID uint, attrIDs []uint) {
	t.Helper()
	reg := schema.NewRegistry(db)

	dm, err := reg.CreateDataModel(schema.CreateDataModelInput{Name: "Person"})
	require.NoError(t, err)

	for i, code := range []string{"first", "last", "title"} {
		attr, err := reg.AddAttribute(dm.ID, schema.AttributeInput{
			Code: code, Type: string(attrtype.Text), DisplayOrder: i + 1,
		})
		require.NoError(t, err)
		attrIDs = append(attrIDs, attr.ID)
	}
	return dm.ID, attrIDs
}

func TestGetViewDefault(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	dmID, attrIDs := personFixture(t, db)

	v, err := svc.GetView(dmID, 7)
	require.NoError(t, err)
	assert.Equal(t, attrIDs, v.ColumnIDs(), "first read defaults to schema display order")
	assert.Empty(t, v.HiddenIDs())

	t.Run("second read returns the same row", func(t *testing.T) {
		again, err := svc.GetView(dmID, 7)
		require.NoError(t, err)
		assert.Equal(t, v.ID, again.ID)
	})

	t.Run("views are per owner", func(t *testing.T) {
		other, err := svc.GetView(dmID, 8)
		require.NoError(t, err)
		assert.NotEqual(t, v.ID, other.ID)
	})

	t.Run("unknown model", func(t *testing.T) {
		_, err := svc.GetView(99999, 7)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}

func TestReorderColumns(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	dmID, attrIDs := personFixture(t, db)

	v, err := svc.GetView(dmID, 1)
	require.NoError(t, err)

	// 99999 never existed; views submitted against stale schemas still apply.
	v, err = svc.ReorderColumns(v.ID, []uint{attrIDs[2], 99999, attrIDs[0], attrIDs[1]})
	require.NoError(t, err)
	assert.Equal(t, []uint{attrIDs[2], attrIDs[0], attrIDs[1]}, v.ColumnIDs())
}

func TestSetColumnHidden(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	dmID, attrIDs := personFixture(t, db)

	v, err := svc.GetView(dmID, 1)
	require.NoError(t, err)

	v, err = svc.SetColumnHidden(v.ID, attrIDs[1], true)
	require.NoError(t, err)
	assert.Equal(t, []uint{attrIDs[1]}, v.HiddenIDs())

	t.Run("hiding twice keeps one entry", func(t *testing.T) {
		v, err := svc.SetColumnHidden(v.ID, attrIDs[1], true)
		require.NoError(t, err)
		assert.Equal(t, []uint{attrIDs[1]}, v.HiddenIDs())
	})

	t.Run("unhide", func(t *testing.T) {
		v, err := svc.SetColumnHidden(v.ID, attrIDs[1], false)
		require.NoError(t, err)
		assert.Empty(t, v.HiddenIDs())
	})

	t.Run("unknown attribute", func(t *testing.T) {
		_, err := svc.SetColumnHidden(v.ID, 99999, true)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}

func TestUpsertComboSpec(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	reg := schema.NewRegistry(db)
	dmID, attrIDs := personFixture(t, db)

	v, err := svc.GetView(dmID, 1)
	require.NoError(t, err)

	attr, err := svc.UpsertComboSpec(v.ID, ComboColumnInput{
		Code: "full_name", Strategy: model.ComboStrategyLeftRight, Separator: " ",
		MemberIDs: []uint{attrIDs[0], attrIDs[1]},
	})
	require.NoError(t, err)
	assert.Equal(t, string(attrtype.Combo), attr.Type)

	v, err = svc.GetByID(v.ID)
	require.NoError(t, err)
	assert.Equal(t, append(attrIDs, attr.ID), v.ColumnIDs(), "new column lands at the end of the order")

	t.Run("edit keeps the order", func(t *testing.T) {
		edited, err := svc.UpsertComboSpec(v.ID, ComboColumnInput{
			AttributeID: attr.ID,
			Code:        "full_name", Strategy: model.ComboStrategyGrouping, Separator: ", ",
			MemberIDs: []uint{attrIDs[2], attrIDs[0], attrIDs[1]},
		})
		require.NoError(t, err)
		assert.Equal(t, attr.ID, edited.ID)
		assert.Equal(t, model.ComboStrategyGrouping, edited.ComboStrategy)

		after, err := svc.GetByID(v.ID)
		require.NoError(t, err)
		assert.Equal(t, v.ColumnIDs(), after.ColumnIDs())
	})

	t.Run("cyclic edit rolls back schema and view", func(t *testing.T) {
		badge, err := svc.UpsertComboSpec(v.ID, ComboColumnInput{
			Code: "badge", Strategy: model.ComboStrategyGrouping, Separator: "-",
			MemberIDs: []uint{attr.ID},
		})
		require.NoError(t, err)

		before, err := svc.GetByID(v.ID)
		require.NoError(t, err)

		// full_name -> badge -> full_name would be a loop.
		_, err = svc.UpsertComboSpec(v.ID, ComboColumnInput{
			AttributeID: attr.ID,
			Code:        "full_name", Strategy: model.ComboStrategyLeftRight, Separator: " ",
			MemberIDs: []uint{attrIDs[0], badge.ID},
		})
		assert.Equal(t, apperr.KindCyclic, apperr.KindOf(err))

		kept, err := reg.GetAttribute(attr.ID)
		require.NoError(t, err)
		memberIDs := make([]uint, len(kept.ComboMembers))
		for i, m := range kept.ComboMembers {
			memberIDs[i] = m.MemberAttributeID
		}
		assert.ElementsMatch(t, []uint{attrIDs[2], attrIDs[0], attrIDs[1]}, memberIDs,
			"rejected edit must leave the stored members alone")

		after, err := svc.GetByID(v.ID)
		require.NoError(t, err)
		assert.Equal(t, before.ColumnIDs(), after.ColumnIDs())
	})

	t.Run("invalid spec leaves schema and view untouched", func(t *testing.T) {
		before, err := svc.GetByID(v.ID)
		require.NoError(t, err)

		_, err = svc.UpsertComboSpec(v.ID, ComboColumnInput{
			Code: "broken", Strategy: model.ComboStrategyLeftRight, Separator: "-",
			MemberIDs: []uint{attrIDs[0]},
		})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

		var count int64
		db.Model(&model.Attribute{}).Where("code = ?", "broken").Count(&count)
		assert.EqualValues(t, 0, count)

		after, err := svc.GetByID(v.ID)
		require.NoError(t, err)
		assert.Equal(t, before.ColumnIDs(), after.ColumnIDs())
	})

	t.Run("editing a non-combo attribute rejected", func(t *testing.T) {
		_, err := svc.UpsertComboSpec(v.ID, ComboColumnInput{
			AttributeID: attrIDs[0],
			Code:        "first", Strategy: model.ComboStrategyGrouping, Separator: "-",
			MemberIDs: []uint{attrIDs[1]},
		})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestRemoveComboColumn(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	dmID, attrIDs := personFixture(t, db)

	v, err := svc.GetView(dmID, 1)
	require.NoError(t, err)

	attr, err := svc.UpsertComboSpec(v.ID, ComboColumnInput{
		Code: "full_name", Strategy: model.ComboStrategyLeftRight, Separator: " ",
		MemberIDs: []uint{attrIDs[0], attrIDs[1]},
	})
	require.NoError(t, err)

	_, err = svc.SetColumnHidden(v.ID, attr.ID, true)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveComboColumn(v.ID, attr.ID))

	v, err = svc.GetByID(v.ID)
	require.NoError(t, err)
	assert.Equal(t, attrIDs, v.ColumnIDs())
	assert.Empty(t, v.HiddenIDs())

	var count int64
	db.Model(&model.Attribute{}).Where("id = ?", attr.ID).Count(&count)
	assert.EqualValues(t, 0, count)

	t.Run("removing a plain attribute rejected", func(t *testing.T) {
		err := svc.RemoveComboColumn(v.ID, attrIDs[0])
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}
