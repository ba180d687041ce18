// Package provider holds the HTTP clients for the engine's external
// collaborators: the file storage service backing ATTACHMENT values and
// the user directory backing USER / MULTI_USER values. Both are opaque
// to the engine; only references and ids cross the boundary.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StorageClient talks to the file storage service. The engine stores only
// the returned reference keys; bytes never touch the value store.
type StorageClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// FileReference identifies one stored file.
type FileReference struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// NewStorageClient creates a storage client instance
func NewStorageClient(baseURL string, logger *zap.Logger) *StorageClient {
	return &StorageClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     logger,
	}
}

// Upload streams a file to the storage service and returns its reference.
func (c *StorageClient) Upload(ctx context.Context, name, contentType string, body io.Reader) (*FileReference, error) {
	key := uuid.New().String()
	c.Logger.Info("Uploading file to storage service",
		zap.String("key", key),
		zap.String("name", name))

	endpoint := fmt.Sprintf("%s/files/%s?name=%s", c.BaseURL, key, url.QueryEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Error("Storage upload request failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("storage service returned status %d", resp.StatusCode)
	}

	var ref FileReference
	if err := json.NewDecoder(resp.Body).Decode(&ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// Download fetches the bytes of a stored file. The caller must close the
// returned reader.
func (c *StorageClient) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	endpoint := fmt.Sprintf("%s/files/%s", c.BaseURL, url.PathEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Error("Storage download request failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("storage service returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// Delete removes a stored file.
func (c *StorageClient) Delete(ctx context.Context, key string) error {
	endpoint := fmt.Sprintf("%s/files/%s", c.BaseURL, url.PathEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Error("Storage delete request failed", zap.String("key", key), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("storage service returned status %d", resp.StatusCode)
	}
	return nil
}
