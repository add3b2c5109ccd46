package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/MrN7King/BookstorePhase1-sub001/ingest"
	"github.com/MrN7King/BookstorePhase1-sub001/utils"
)

// ConfigController serves public, environment-driven UI configuration.
type ConfigController struct {
	upload ingest.Config
}

func NewConfigController(upload ingest.Config) *ConfigController {
	return &ConfigController{upload: upload}
}

// GetUploadLimits lets the storefront pre-validate files before posting them.
func (c *ConfigController) GetUploadLimits(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"field":          c.upload.FieldName,
		"max_size_bytes": c.upload.MaxSizeBytes,
		"allowed_types":  c.upload.AllowedTypes,
		"max_width":      c.upload.MaxWidth,
		"max_height":     c.upload.MaxHeight,
	})
}
