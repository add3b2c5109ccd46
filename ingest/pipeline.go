// Package ingest validates a single uploaded image, stages it on local disk,
// forwards it to remote object storage and always releases the staged copy.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MrN7King/BookstorePhase1-sub001/storage"
)

// Config is the fixed contract of the upload endpoint.
type Config struct {
	FieldName    string
	MaxFiles     int
	MaxSizeBytes int64
	AllowedTypes []string
	Folder       string
	MaxWidth     int
	MaxHeight    int
	Timeout      time.Duration
}

// DefaultConfig matches the storefront thumbnail endpoint.
func DefaultConfig() Config {
	return Config{
		FieldName:    "thumbnail",
		MaxFiles:     1,
		MaxSizeBytes: 2 << 20,
		AllowedTypes: []string{"image/jpeg", "image/png", "image/webp", "image/svg+xml"},
		Folder:       "bookstore",
		MaxWidth:     500,
		MaxHeight:    500,
		Timeout:      30 * time.Second,
	}
}

// formatsByType maps allowed content types to the file extensions the provider accepts.
var formatsByType = map[string][]string{
	"image/jpeg":    {"jpg", "jpeg"},
	"image/png":     {"png"},
	"image/webp":    {"webp"},
	"image/svg+xml": {"svg"},
	"image/gif":     {"gif"},
}

// IncomingFile is one file part of a multipart request.
type IncomingFile struct {
	FieldName string
	Filename  string
	MimeType  string
	SizeBytes int64
	Open      func() (io.ReadCloser, error)
}

// Stager writes uploads to transient storage and deletes them again.
// Release must treat an already deleted path as success.
type Stager interface {
	Stage(ctx context.Context, ext string, r io.Reader) (string, error)
	Release(path string) error
}

// Pipeline runs validate, stage, upload and cleanup for each request.
// It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	cfg      Config
	allowed  map[string]struct{}
	stager   Stager
	provider storage.Provider
	logger   *zap.Logger
}

// NewPipeline wires a pipeline. Zero values in cfg fall back to DefaultConfig.
func NewPipeline(cfg Config, stager Stager, provider storage.Provider, logger *zap.Logger) *Pipeline {
	def := DefaultConfig()
	if cfg.FieldName == "" {
		cfg.FieldName = def.FieldName
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = def.MaxFiles
	}
	if cfg.MaxSizeBytes <= 0 {
		cfg.MaxSizeBytes = def.MaxSizeBytes
	}
	if len(cfg.AllowedTypes) == 0 {
		cfg.AllowedTypes = def.AllowedTypes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		allowed[normalizeType(t)] = struct{}{}
	}

	return &Pipeline{
		cfg:      cfg,
		allowed:  allowed,
		stager:   stager,
		provider: provider,
		logger:   logger,
	}
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// IsAllowedType reports whether a declared content type is on the allow-list.
// Parameters such as "; charset=utf-8" are ignored.
func (p *Pipeline) IsAllowedType(contentType string) bool {
	_, ok := p.allowed[normalizeType(contentType)]
	return ok
}

// AllowedFormats lists the file extensions matching the allowed content types.
func (p *Pipeline) AllowedFormats() []string {
	var formats []string
	for _, t := range p.cfg.AllowedTypes {
		formats = append(formats, formatsByType[normalizeType(t)]...)
	}
	return formats
}

// Ingest processes the files of one request. On success the staged copy has been
// deleted and the provider reference is returned. Errors are one of
// *ValidationError, *StagingError or *TransferError.
func (p *Pipeline) Ingest(ctx context.Context, files []IncomingFile) (*storage.UploadResult, error) {
	log := p.logger.With(zap.String("request_id", requestIDFrom(ctx)))
	st := newTracker(log)

	file, err := p.validate(files)
	if err != nil {
		return nil, err
	}
	data, contentType, err := p.readContent(file)
	if err != nil {
		return nil, err
	}
	st.advance(StateValidated)

	path, err := p.stager.Stage(ctx, extensionFor(contentType), bytes.NewReader(data))
	if err != nil {
		return nil, &StagingError{Err: err}
	}
	st.advance(StateStaged)
	defer func() {
		if err := p.stager.Release(path); err != nil {
			log.Warn("staged upload not released", zap.Error(&CleanupError{Path: path, Err: err}))
		}
		st.advance(StateCleaned)
	}()

	st.advance(StateUploading)
	res, err := p.transfer(ctx, path, contentType)
	if err != nil {
		st.advance(StateFailed)
		log.Error("upload transfer failed", zap.String("file", file.Filename), zap.Error(err))
		return nil, &TransferError{Err: err}
	}
	st.advance(StateSucceeded)
	log.Info("upload stored",
		zap.String("file", file.Filename),
		zap.Int("bytes", len(data)),
		zap.String("public_id", res.PublicID),
	)
	return res, nil
}

func (p *Pipeline) validate(files []IncomingFile) (IncomingFile, error) {
	var matched []IncomingFile
	for _, f := range files {
		if f.FieldName == p.cfg.FieldName {
			matched = append(matched, f)
		}
	}
	if len(matched) == 0 {
		return IncomingFile{}, &ValidationError{Kind: KindNoFile, Field: p.cfg.FieldName}
	}
	if len(files) > p.cfg.MaxFiles {
		return IncomingFile{}, &ValidationError{Kind: KindTooManyFiles, Field: p.cfg.FieldName, Size: int64(len(files))}
	}

	f := matched[0]
	if !p.IsAllowedType(f.MimeType) {
		return IncomingFile{}, &ValidationError{Kind: KindTypeNotAllowed, Field: f.FieldName, MimeType: f.MimeType}
	}
	if f.SizeBytes > p.cfg.MaxSizeBytes {
		return IncomingFile{}, p.tooLarge(f, f.SizeBytes)
	}
	return f, nil
}

// readContent loads at most MaxSizeBytes+1 bytes. The declared type has already
// been accepted; sniffing only refines the content type handed to the provider.
func (p *Pipeline) readContent(f IncomingFile) ([]byte, string, error) {
	if f.Open == nil {
		return nil, "", &StagingError{Err: errors.New("file content unavailable")}
	}
	rc, err := f.Open()
	if err != nil {
		return nil, "", &StagingError{Err: fmt.Errorf("open upload: %w", err)}
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, p.cfg.MaxSizeBytes+1))
	if err != nil {
		return nil, "", &StagingError{Err: fmt.Errorf("read upload: %w", err)}
	}
	if int64(len(data)) > p.cfg.MaxSizeBytes {
		return nil, "", p.tooLarge(f, int64(len(data)))
	}

	return data, p.contentTypeOf(f, data), nil
}

// contentTypeOf prefers the sniffed type when it is on the allow-list and falls
// back to the declared type when detection is inconclusive or disagrees.
func (p *Pipeline) contentTypeOf(f IncomingFile, data []byte) string {
	detected := mimetype.Detect(data)
	for t := range p.allowed {
		if detected.Is(t) {
			return t
		}
	}
	return normalizeType(f.MimeType)
}

// transfer calls the provider under the upload timeout. A panicking provider is
// reported as an error so the response stays a classified failure.
func (p *Pipeline) transfer(ctx context.Context, path, contentType string) (res *storage.UploadResult, err error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("provider panic: %v", r)
		}
	}()

	res, err = p.provider.Upload(ctx, path, storage.UploadOptions{
		Folder:         p.cfg.Folder,
		ResourceType:   "image",
		AllowedFormats: p.AllowedFormats(),
		Transformation: storage.Transformation{Crop: "limit", Width: p.cfg.MaxWidth, Height: p.cfg.MaxHeight},
		ContentType:    contentType,
	})
	if err != nil {
		return nil, err
	}
	if res == nil || res.SecureURL == "" || res.PublicID == "" {
		return nil, errors.New("provider returned an empty reference")
	}
	return res, nil
}

func (p *Pipeline) tooLarge(f IncomingFile, size int64) error {
	return &ValidationError{Kind: KindTooLarge, Field: f.FieldName, MimeType: f.MimeType, Size: size, Limit: p.cfg.MaxSizeBytes}
}

type requestIDKey struct{}

// WithRequestID attaches the request id that Ingest logs with every state change.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

func normalizeType(contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

func extensionFor(contentType string) string {
	if formats := formatsByType[contentType]; len(formats) > 0 {
		return "." + formats[0]
	}
	return ""
}
