package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/24ep/mdm-sub019/internal/middleware"
	"github.com/24ep/mdm-sub019/internal/record"
	"github.com/24ep/mdm-sub019/pkg/database"
	"github.com/24ep/mdm-sub019/pkg/logger"
	"github.com/24ep/mdm-sub019/prometheus"
)

// RecordRequest is the payload for record creation and update. Values
// are keyed by attribute code; multi-valued attributes take a JSON
// string array as the raw value.
type RecordRequest struct {
	Name   *string           `json:"name"`
	Values map[string]string `json:"values"`
}

// CreateRecord handles creating a record with its values
func CreateRecord(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordRecordOperation("create")
	modelID := paramID(c, "id")

	var req RecordRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	name := ""
	if req.Name != nil {
		name = *req.Name
	}
	log.Info("Record creation request",
		zap.Uint("data_model_id", modelID),
		zap.Int("value_count", len(req.Values)))

	defer prometheus.TrackDBOperation("insert")(time.Now())

	rec, err := record.NewStore(database.GetDB()).CreateRecord(modelID, name, req.Values, middleware.CallerID(c))
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Record created", zap.Uint("id", rec.ID), zap.Uint("data_model_id", modelID))
	return c.JSON(http.StatusCreated, rec)
}

// ListRecords handles retrieving all records of a model with combination
// columns resolved
func ListRecords(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordRecordOperation("list")
	modelID := paramID(c, "id")

	defer prometheus.TrackDBOperation("select")(time.Now())
	resolveStart := time.Now()

	records, err := record.NewStore(database.GetDB()).ListRecords(modelID)
	if err != nil {
		return respondError(c, log, err)
	}
	prometheus.ComboResolutionDuration.Observe(time.Since(resolveStart).Seconds())

	dangling := 0
	for _, r := range records {
		dangling += len(r.Diagnostics)
	}
	if dangling > 0 {
		prometheus.RecordDanglingReferences(dangling)
		log.Warn("Dangling combo references while rendering records",
			zap.Uint("data_model_id", modelID),
			zap.Int("count", dangling))
	}

	log.Info("Records retrieved", zap.Uint("data_model_id", modelID), zap.Int("count", len(records)))
	return c.JSON(http.StatusOK, records)
}

// GetRecord handles retrieving a record with combination columns resolved
func GetRecord(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordRecordOperation("get")
	id := paramID(c, "id")

	defer prometheus.TrackDBOperation("select")(time.Now())
	resolveStart := time.Now()

	res, err := record.NewStore(database.GetDB()).GetRecord(id)
	if err != nil {
		return respondError(c, log, err)
	}
	prometheus.ComboResolutionDuration.Observe(time.Since(resolveStart).Seconds())

	if len(res.Diagnostics) > 0 {
		prometheus.RecordDanglingReferences(len(res.Diagnostics))
		log.Warn("Dangling combo references while rendering record",
			zap.Uint("record_id", id),
			zap.Int("count", len(res.Diagnostics)))
	}

	return c.JSON(http.StatusOK, res)
}

// UpdateRecord handles a partial update of a record's values
func UpdateRecord(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordRecordOperation("update")
	id := paramID(c, "id")

	var req RecordRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	rec, err := record.NewStore(database.GetDB()).UpdateRecord(id, req.Name, req.Values)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Record updated", zap.Uint("id", rec.ID), zap.Int("value_count", len(req.Values)))
	return c.JSON(http.StatusOK, rec)
}

// DeleteRecord handles deleting a record and its values
func DeleteRecord(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordRecordOperation("delete")
	id := paramID(c, "id")
	log.Info("Deleting record", zap.Uint("id", id))

	defer prometheus.TrackDBOperation("delete")(time.Now())

	if err := record.NewStore(database.GetDB()).DeleteRecord(id); err != nil {
		return respondError(c, log, err)
	}

	log.Info("Record deleted", zap.Uint("id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "record deleted"})
}
