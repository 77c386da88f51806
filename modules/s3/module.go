// Package s3 uploads build artifacts to pre-signed object storage URLs.
package s3

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/vk/buildgridgo/internal/buildctx"
	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/registry"
	"github.com/vk/buildgridgo/modules/http_client"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Client overrides the shared client, mostly for tests.
	Client *http.Client
}

var sharedClient = http_client.New(0)

// Input defines the arguments for the s3_upload action.
type Input struct {
	SourcePath  string `bggo:"source_path"`
	UploadURL   string `bggo:"upload_url"`
	ContentType string `bggo:"content_type,optional"`
}

// Output defines the data structure returned by the action.
type Output struct {
	Success bool   `cty:"success" mapstructure:"success"`
	Status  string `cty:"status" mapstructure:"status"`
}

// Upload PUTs the file at SourcePath to UploadURL. Without an explicit
// content type one is derived from the file extension.
func (m *Module) Upload(ctx context.Context, _ *buildctx.Context, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx)

	file, err := os.Open(input.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file '%s': %w", input.SourcePath, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file stats for '%s': %w", input.SourcePath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, input.UploadURL, file)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 upload request: %w", err)
	}

	contentType := input.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(input.SourcePath))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = stat.Size()

	logger.Info("Uploading file to S3", "source", input.SourcePath, "size", stat.Size(), "contentType", contentType)

	client := m.Client
	if client == nil {
		client = sharedClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute S3 upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("S3 upload failed with status: %s", resp.Status)
	}

	logger.Info("Successfully uploaded file", "status", resp.Status)
	return &Output{Success: true, Status: resp.Status}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("s3_upload", registry.Typed("Uploads a file to a pre-signed URL.", m.Upload))
}
