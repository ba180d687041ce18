package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/24ep/mdm-sub019/internal/schema"
	"github.com/24ep/mdm-sub019/pkg/database"
	"github.com/24ep/mdm-sub019/pkg/logger"
	"github.com/24ep/mdm-sub019/prometheus"
)

// ListAttributes handles retrieving a model's attributes in display order
func ListAttributes(c echo.Context) error {
	log := logger.FromContext(c)
	id := paramID(c, "id")

	defer prometheus.TrackDBOperation("select")(time.Now())

	reg := schema.NewRegistry(database.GetDB())
	if _, err := reg.GetDataModel(id); err != nil {
		return respondError(c, log, err)
	}
	attrs, err := reg.ListAttributes(id)
	if err != nil {
		log.Error("Failed to list attributes", zap.Uint("data_model_id", id), zap.Error(err))
		return respondError(c, log, err)
	}

	log.Info("Attributes retrieved", zap.Uint("data_model_id", id), zap.Int("count", len(attrs)))
	return c.JSON(http.StatusOK, attrs)
}

// CreateAttribute handles adding an attribute to a data model
func CreateAttribute(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordSchemaOperation("create_attribute")
	id := paramID(c, "id")

	var req schema.AttributeInput
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	log.Info("Attribute creation request",
		zap.Uint("data_model_id", id),
		zap.String("code", req.Code),
		zap.String("type", req.Type))

	defer prometheus.TrackDBOperation("insert")(time.Now())

	attr, err := schema.NewRegistry(database.GetDB()).AddAttribute(id, req)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Attribute created",
		zap.Uint("id", attr.ID),
		zap.String("code", attr.Code),
		zap.String("type", attr.Type))
	return c.JSON(http.StatusCreated, attr)
}

// UpdateAttribute handles a full update of an attribute definition
func UpdateAttribute(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordSchemaOperation("update_attribute")
	id := paramID(c, "id")

	var req schema.AttributeInput
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	attr, err := schema.NewRegistry(database.GetDB()).UpdateAttribute(id, req)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Attribute updated", zap.Uint("id", attr.ID), zap.String("code", attr.Code))
	return c.JSON(http.StatusOK, attr)
}

// DeleteAttribute handles deleting an attribute; combo members of other
// attributes that reference it are left to surface as dangling
// diagnostics on render.
func DeleteAttribute(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordSchemaOperation("delete_attribute")
	id := paramID(c, "id")
	log.Info("Deleting attribute", zap.Uint("id", id))

	defer prometheus.TrackDBOperation("delete")(time.Now())

	if err := schema.NewRegistry(database.GetDB()).DeleteAttribute(id); err != nil {
		return respondError(c, log, err)
	}

	log.Info("Attribute deleted", zap.Uint("id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "attribute deleted"})
}
