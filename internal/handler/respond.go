package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/24ep/mdm-sub019/internal/apperr"
)

// respondError maps an engine error to an HTTP status and a field-level
// JSON body. Structural errors surface the attribute code and reason so
// the UI can attach feedback to the right field.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	var e *apperr.Error
	if !errors.As(err, &e) {
		log.Error("Unhandled engine error", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	status := http.StatusBadRequest
	switch e.Kind {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindCyclic:
		status = http.StatusConflict
	case apperr.KindValidation:
		if e.Reason == "duplicate" {
			status = http.StatusConflict
		}
	}

	body := echo.Map{"error": e.Message, "kind": e.Kind}
	if e.Attribute != "" {
		body["attribute"] = e.Attribute
	}
	if e.Reason != "" {
		body["reason"] = e.Reason
	}

	log.Warn("Request rejected",
		zap.String("kind", string(e.Kind)),
		zap.String("attribute", e.Attribute),
		zap.String("reason", e.Reason))
	return c.JSON(status, body)
}

// paramID parses a numeric path parameter, answering 0 when malformed.
func paramID(c echo.Context, name string) uint {
	var id uint
	if err := echo.PathParamsBinder(c).Uint(name, &id).BindError(); err != nil {
		return 0
	}
	return id
}
