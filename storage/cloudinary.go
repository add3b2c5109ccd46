package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryProvider uploads staged files to Cloudinary, which applies the
// transformation server side before storing the asset.
type CloudinaryProvider struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryProvider builds a client from account credentials.
func NewCloudinaryProvider(cloudName, apiKey, apiSecret string) (*CloudinaryProvider, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, errors.New("cloudinary credentials not configured")
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("create cloudinary client: %w", err)
	}
	return &CloudinaryProvider{cld: cld}, nil
}

// Upload sends the file at localPath. Provider-side rejections come back in the
// response body rather than as a transport error and are turned into errors here.
func (c *CloudinaryProvider) Upload(ctx context.Context, localPath string, opts UploadOptions) (*UploadResult, error) {
	res, err := c.cld.Upload.Upload(ctx, localPath, uploadParams(opts))
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	return &UploadResult{SecureURL: res.SecureURL, PublicID: res.PublicID}, nil
}

func uploadParams(opts UploadOptions) uploader.UploadParams {
	return uploader.UploadParams{
		Folder:         opts.Folder,
		ResourceType:   opts.ResourceType,
		AllowedFormats: opts.AllowedFormats,
		Transformation: opts.Transformation.String(),
	}
}
