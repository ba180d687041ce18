package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/24ep/mdm-sub019/internal/middleware"
	"github.com/24ep/mdm-sub019/internal/model"
	"github.com/24ep/mdm-sub019/internal/schema"
	"github.com/24ep/mdm-sub019/pkg/database"
	"github.com/24ep/mdm-sub019/pkg/logger"
	"github.com/24ep/mdm-sub019/prometheus"
)

// ListDataModels handles retrieving data models visible to the caller.
// An explicit ?space_id narrows the list to one space, which must be in
// the caller's allowed set; otherwise the full allowed set applies. A
// caller with no space grants sees nothing.
func ListDataModels(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordSchemaOperation("list_models")

	spaceIDs := middleware.CallerSpaces(c)
	var one uint
	if err := echo.QueryParamsBinder(c).Uint("space_id", &one).BindError(); err == nil && one != 0 {
		if !middleware.CallerInSpace(c, one) {
			log.Warn("Space filter outside caller's grants", zap.Uint("space_id", one))
			return c.JSON(http.StatusForbidden, echo.Map{"error": "space not allowed"})
		}
		spaceIDs = []uint{one}
		log.Info("Filtering data models by space", zap.Uint("space_id", one))
	}
	if len(spaceIDs) == 0 {
		log.Info("Caller has no space grants")
		return c.JSON(http.StatusOK, []model.DataModel{})
	}

	defer prometheus.TrackDBOperation("select")(time.Now())

	models, err := schema.NewRegistry(database.GetDB()).ListDataModels(spaceIDs)
	if err != nil {
		log.Error("Failed to list data models", zap.Error(err))
		return respondError(c, log, err)
	}

	log.Info("Data models retrieved", zap.Int("count", len(models)))
	return c.JSON(http.StatusOK, models)
}

// GetDataModel handles retrieving a single data model by ID
func GetDataModel(c echo.Context) error {
	log := logger.FromContext(c)
	id := paramID(c, "id")

	reg := schema.NewRegistry(database.GetDB())
	dm, err := reg.GetDataModel(id)
	if err != nil {
		return respondError(c, log, err)
	}
	spaces, err := reg.ListSpaces(id)
	if err != nil {
		return respondError(c, log, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"data_model": dm, "space_ids": spaces})
}

// CreateDataModel handles creating a new data model with its space links
func CreateDataModel(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordSchemaOperation("create_model")

	var req schema.CreateDataModelInput
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	req.CreatedBy = middleware.CallerID(c)

	log.Info("Data model creation request",
		zap.String("name", req.Name),
		zap.Int("space_count", len(req.SpaceIDs)))

	defer prometheus.TrackDBOperation("insert")(time.Now())

	dm, err := schema.NewRegistry(database.GetDB()).CreateDataModel(req)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Data model created",
		zap.Uint("id", dm.ID),
		zap.String("name", dm.Name),
		zap.String("slug", dm.Slug))
	return c.JSON(http.StatusCreated, dm)
}

// UpdateDataModel handles a partial update of a data model
func UpdateDataModel(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordSchemaOperation("update_model")
	id := paramID(c, "id")

	var req schema.UpdateDataModelInput
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	dm, err := schema.NewRegistry(database.GetDB()).UpdateDataModel(id, req)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Data model updated",
		zap.Uint("id", dm.ID),
		zap.String("name", dm.Name),
		zap.String("slug", dm.Slug),
		zap.String("slug_source", dm.SlugSource))
	return c.JSON(http.StatusOK, dm)
}

// DeleteDataModel handles deleting a data model and everything it owns
func DeleteDataModel(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordSchemaOperation("delete_model")
	id := paramID(c, "id")
	log.Info("Deleting data model", zap.Uint("id", id))

	defer prometheus.TrackDBOperation("delete")(time.Now())

	if err := schema.NewRegistry(database.GetDB()).DeleteDataModel(id); err != nil {
		return respondError(c, log, err)
	}

	log.Info("Data model deleted", zap.Uint("id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "data model deleted"})
}

// ReplaceSpaces handles replacing a data model's space associations
func ReplaceSpaces(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordSchemaOperation("replace_spaces")
	id := paramID(c, "id")

	var req struct {
		SpaceIDs []uint `json:"space_ids"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	reg := schema.NewRegistry(database.GetDB())
	if err := reg.ReplaceSpaces(id, req.SpaceIDs); err != nil {
		return respondError(c, log, err)
	}

	log.Info("Data model spaces replaced",
		zap.Uint("id", id),
		zap.Int("space_count", len(req.SpaceIDs)))
	return c.JSON(http.StatusOK, echo.Map{"space_ids": req.SpaceIDs})
}
