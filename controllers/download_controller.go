package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MrN7King/BookstorePhase1-sub001/storage"
	"github.com/MrN7King/BookstorePhase1-sub001/utils"
)

// DownloadController hands out short-lived links to purchased files.
type DownloadController struct {
	signer storage.URLSigner
	ttl    time.Duration
}

// NewDownloadController creates a new DownloadController instance.
func NewDownloadController(signer storage.URLSigner, ttl time.Duration) *DownloadController {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &DownloadController{signer: signer, ttl: ttl}
}

// GetDownloadURL signs the object named by the file query parameter.
func (d *DownloadController) GetDownloadURL(ctx *gin.Context) {
	key := ctx.Query("file")
	if key == "" {
		utils.Error(ctx, http.StatusBadRequest, "Missing file parameter")
		return
	}
	if err := storage.ValidateObjectKey(key); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid file parameter")
		return
	}

	u, err := d.signer.SignedURL(ctx.Request.Context(), key, d.ttl)
	if errors.Is(err, storage.ErrInvalidKey) {
		utils.Error(ctx, http.StatusBadRequest, "Invalid file parameter")
		return
	}
	if err != nil {
		utils.ErrorDetails(ctx, http.StatusInternalServerError, "Failed to generate download URL", err.Error())
		return
	}
	utils.Success(ctx, gin.H{"url": u, "expires_in": int(d.ttl / time.Second)})
}
