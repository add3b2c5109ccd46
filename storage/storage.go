// Package storage holds the remote object-storage providers used by the upload
// pipeline and the transient directory uploads are staged in.
package storage

import (
	"context"
	"fmt"
	"strings"
)

// Transformation asks the provider to fit stored images inside a bounding box.
type Transformation struct {
	Crop   string // "limit": shrink only, keep aspect ratio
	Width  int
	Height int
}

// String renders the transformation in Cloudinary URL syntax, e.g. "c_limit,w_500,h_500".
func (t Transformation) String() string {
	if t.Width <= 0 && t.Height <= 0 {
		return ""
	}
	parts := make([]string, 0, 3)
	if t.Crop != "" {
		parts = append(parts, "c_"+t.Crop)
	}
	if t.Width > 0 {
		parts = append(parts, fmt.Sprintf("w_%d", t.Width))
	}
	if t.Height > 0 {
		parts = append(parts, fmt.Sprintf("h_%d", t.Height))
	}
	return strings.Join(parts, ",")
}

// UploadOptions are passed to a Provider together with the staged file path.
type UploadOptions struct {
	Folder         string
	ResourceType   string
	AllowedFormats []string
	Transformation Transformation
	ContentType    string
}

// UploadResult is the provider-issued public reference of a stored asset.
type UploadResult struct {
	SecureURL string
	PublicID  string
}

// Provider uploads a local file to remote object storage.
type Provider interface {
	Upload(ctx context.Context, localPath string, opts UploadOptions) (*UploadResult, error)
}

// formatAllowed reports whether ext (without dot) is in formats. An empty list allows everything.
func formatAllowed(ext string, formats []string) bool {
	if len(formats) == 0 {
		return true
	}
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, f := range formats {
		if strings.EqualFold(f, ext) {
			return true
		}
	}
	return false
}
