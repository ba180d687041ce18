package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/24ep/mdm-sub019/pkg/logger"
	"github.com/24ep/mdm-sub019/pkg/provider"
)

// StorageClient is the global storage collaborator instance
var StorageClient *provider.StorageClient

// DirectoryClient is the global user directory collaborator instance
var DirectoryClient *provider.DirectoryClient

// InitProviders initializes the global collaborator clients
func InitProviders(storage *provider.StorageClient, directory *provider.DirectoryClient) {
	StorageClient = storage
	DirectoryClient = directory
}

// ListSpaceUsers proxies the user directory for USER / MULTI_USER pickers
func ListSpaceUsers(c echo.Context) error {
	log := logger.FromContext(c)
	spaceID := paramID(c, "id")

	if DirectoryClient == nil {
		log.Error("Directory client not initialized")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "directory service not configured"})
	}

	users, err := DirectoryClient.ListUsers(c.Request().Context(), spaceID)
	if err != nil {
		log.Error("Failed to list space users", zap.Uint("space_id", spaceID), zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to reach directory service"})
	}

	log.Info("Space users retrieved", zap.Uint("space_id", spaceID), zap.Int("count", len(users)))
	return c.JSON(http.StatusOK, users)
}

// UploadAttachment streams an uploaded file to the storage collaborator
// and returns the reference to store in an ATTACHMENT value
func UploadAttachment(c echo.Context) error {
	log := logger.FromContext(c)

	if StorageClient == nil {
		log.Error("Storage client not initialized")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage service not configured"})
	}

	file, err := c.FormFile("file")
	if err != nil {
		log.Error("Missing file in upload request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file is required"})
	}
	src, err := file.Open()
	if err != nil {
		log.Error("Failed to open uploaded file", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable file"})
	}
	defer src.Close()

	ref, err := StorageClient.Upload(c.Request().Context(), file.Filename, file.Header.Get("Content-Type"), src)
	if err != nil {
		log.Error("Failed to upload attachment", zap.String("name", file.Filename), zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to reach storage service"})
	}

	log.Info("Attachment uploaded",
		zap.String("key", ref.Key),
		zap.String("name", ref.Name),
		zap.Int64("size", ref.Size))
	return c.JSON(http.StatusCreated, ref)
}
