package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DirectoryClient talks to the user directory service. USER and
// MULTI_USER values store opaque user ids; this client is how the UI
// layer turns them into names and emails.
type DirectoryClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// DirectoryUser is one user as the directory service reports it.
type DirectoryUser struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// NewDirectoryClient creates a directory client instance
func NewDirectoryClient(baseURL string, logger *zap.Logger) *DirectoryClient {
	return &DirectoryClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Logger:     logger,
	}
}

// ListUsers fetches the members of a space from the directory service.
func (c *DirectoryClient) ListUsers(ctx context.Context, spaceID uint) ([]DirectoryUser, error) {
	c.Logger.Info("Fetching users from directory service", zap.Uint("space_id", spaceID))

	endpoint := fmt.Sprintf("%s/api/spaces/%d/users", c.BaseURL, spaceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Error("Directory request failed", zap.Uint("space_id", spaceID), zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory service returned status %d", resp.StatusCode)
	}

	var users []DirectoryUser
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, err
	}
	return users, nil
}
