package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/24ep/mdm-sub019/internal/middleware"
	"github.com/24ep/mdm-sub019/internal/view"
	"github.com/24ep/mdm-sub019/pkg/database"
	"github.com/24ep/mdm-sub019/pkg/logger"
	"github.com/24ep/mdm-sub019/prometheus"
)

// GetView handles retrieving the caller's table view of a data model,
// creating the default view on first read
func GetView(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordViewOperation("get")
	modelID := paramID(c, "id")

	defer prometheus.TrackDBOperation("select")(time.Now())

	v, err := view.NewService(database.GetDB()).GetView(modelID, middleware.CallerID(c))
	if err != nil {
		return respondError(c, log, err)
	}

	return c.JSON(http.StatusOK, v)
}

// ReorderColumns handles replacing a view's column order. Ids that no
// longer exist on the model are dropped silently.
func ReorderColumns(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordViewOperation("reorder")
	viewID := paramID(c, "id")

	var req struct {
		ColumnOrder []uint `json:"column_order"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	v, err := view.NewService(database.GetDB()).ReorderColumns(viewID, req.ColumnOrder)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("View columns reordered",
		zap.Uint("view_id", viewID),
		zap.Int("requested", len(req.ColumnOrder)),
		zap.Int("kept", len(v.ColumnIDs())))
	return c.JSON(http.StatusOK, v)
}

// SetColumnHidden handles showing or hiding one column
func SetColumnHidden(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordViewOperation("set_hidden")
	viewID := paramID(c, "id")
	attributeID := paramID(c, "attribute_id")

	var req struct {
		Hidden bool `json:"hidden"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	v, err := view.NewService(database.GetDB()).SetColumnHidden(viewID, attributeID, req.Hidden)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("View column visibility changed",
		zap.Uint("view_id", viewID),
		zap.Uint("attribute_id", attributeID),
		zap.Bool("hidden", req.Hidden))
	return c.JSON(http.StatusOK, v)
}

// UpsertComboColumn handles authoring a combination column: the spec is
// validated, materialized as a COMBO attribute, and added to the view in
// one transaction
func UpsertComboColumn(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordViewOperation("upsert_combo")
	viewID := paramID(c, "id")

	var req view.ComboColumnInput
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	log.Info("Combo column upsert request",
		zap.Uint("view_id", viewID),
		zap.String("code", req.Code),
		zap.String("strategy", req.Strategy),
		zap.Int("member_count", len(req.MemberIDs)))

	defer prometheus.TrackDBOperation("insert")(time.Now())

	attr, err := view.NewService(database.GetDB()).UpsertComboSpec(viewID, req)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Combo column materialized",
		zap.Uint("view_id", viewID),
		zap.Uint("attribute_id", attr.ID),
		zap.String("code", attr.Code))
	return c.JSON(http.StatusCreated, attr)
}

// RemoveComboColumn handles removing a combination column from both the
// schema and the view atomically
func RemoveComboColumn(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordViewOperation("remove_combo")
	viewID := paramID(c, "id")
	attributeID := paramID(c, "attribute_id")
	log.Info("Removing combo column",
		zap.Uint("view_id", viewID),
		zap.Uint("attribute_id", attributeID))

	defer prometheus.TrackDBOperation("delete")(time.Now())

	if err := view.NewService(database.GetDB()).RemoveComboColumn(viewID, attributeID); err != nil {
		return respondError(c, log, err)
	}

	log.Info("Combo column removed",
		zap.Uint("view_id", viewID),
		zap.Uint("attribute_id", attributeID))
	return c.JSON(http.StatusOK, echo.Map{"message": "combination column removed"})
}
