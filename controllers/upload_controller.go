package controllers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MrN7King/BookstorePhase1-sub001/ingest"
	"github.com/MrN7King/BookstorePhase1-sub001/middleware"
	"github.com/MrN7King/BookstorePhase1-sub001/utils"
)

// UploadController exposes the ingest pipeline over multipart HTTP.
type UploadController struct {
	pipeline *ingest.Pipeline
	logger   *zap.Logger
}

// NewUploadController creates a new UploadController instance.
func NewUploadController(pipeline *ingest.Pipeline, logger *zap.Logger) *UploadController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadController{pipeline: pipeline, logger: logger}
}

// Upload stores one image and answers with its public URL and id.
func (u *UploadController) Upload(ctx *gin.Context) {
	maxSize := u.pipeline.Config().MaxSizeBytes

	// Normally parsed by middleware.UploadFilter; parse here when mounted without it.
	form, tooLarge, err := middleware.ParseUploadForm(ctx, maxSize)
	if err != nil {
		if tooLarge {
			utils.Error(ctx, http.StatusRequestEntityTooLarge, utils.TooLargeMessage(maxSize))
			return
		}
		utils.Error(ctx, http.StatusBadRequest, utils.MsgNoFile)
		return
	}
	defer func() { _ = form.RemoveAll() }()

	reqCtx := ingest.WithRequestID(ctx.Request.Context(), ctx.Writer.Header().Get(utils.RequestIDHeader))
	res, err := u.pipeline.Ingest(reqCtx, incomingFiles(form))
	if err != nil {
		u.writeIngestError(ctx, err)
		return
	}
	utils.Success(ctx, utils.UploadBody{Success: true, URL: res.SecureURL, PublicID: res.PublicID})
}

func (u *UploadController) writeIngestError(ctx *gin.Context, err error) {
	var verr *ingest.ValidationError
	if errors.As(err, &verr) {
		switch verr.Kind {
		case ingest.KindNoFile:
			utils.Error(ctx, http.StatusBadRequest, utils.MsgNoFile)
		case ingest.KindTooManyFiles:
			utils.Error(ctx, http.StatusBadRequest, utils.MsgTooManyFiles)
		case ingest.KindTypeNotAllowed:
			utils.Error(ctx, http.StatusBadRequest, utils.MsgInvalidType)
		case ingest.KindTooLarge:
			utils.Error(ctx, http.StatusRequestEntityTooLarge, utils.TooLargeMessage(verr.Limit))
		default:
			utils.ErrorDetails(ctx, http.StatusBadRequest, utils.MsgNoFile, verr.Error())
		}
		return
	}

	details := err.Error()
	var terr *ingest.TransferError
	if errors.As(err, &terr) {
		details = terr.Err.Error()
	}
	u.logger.Error("upload failed", zap.String("request_id", ctx.Writer.Header().Get(utils.RequestIDHeader)), zap.Error(err))
	utils.ErrorDetails(ctx, http.StatusInternalServerError, utils.MsgUploadFailed, details)
}

// incomingFiles flattens every file part of the form, ordered by field name.
func incomingFiles(form *multipart.Form) []ingest.IncomingFile {
	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var files []ingest.IncomingFile
	for _, field := range fields {
		for _, h := range form.File[field] {
			files = append(files, ingest.IncomingFile{
				FieldName: field,
				Filename:  h.Filename,
				MimeType:  h.Header.Get("Content-Type"),
				SizeBytes: h.Size,
				Open:      func() (io.ReadCloser, error) { return h.Open() },
			})
		}
	}
	return files
}
