package middleware

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MrN7King/BookstorePhase1-sub001/utils"
)

// multipartOverhead is the body allowance on top of the file ceiling for
// boundaries, part headers and small text fields.
const multipartOverhead = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

// ceilingBody reads at most limit bytes and records whether the client sent more.
type ceilingBody struct {
	io.ReadCloser
	remaining int64
	exceeded  bool
}

func (b *ceilingBody) Read(p []byte) (int, error) {
	if b.exceeded {
		return 0, errBodyTooLarge
	}
	if int64(len(p)) > b.remaining+1 {
		p = p[:b.remaining+1]
	}
	n, err := b.ReadCloser.Read(p)
	if int64(n) > b.remaining {
		b.exceeded = true
		n = int(b.remaining)
		b.remaining = 0
		return n, errBodyTooLarge
	}
	b.remaining -= int64(n)
	return n, err
}

// ParseUploadForm parses the request as multipart under a body ceiling of
// maxFileSize plus multipartOverhead. Parts are held in memory only. It is a
// no-op when the form was already parsed. tooLarge reports a body overflow.
func ParseUploadForm(c *gin.Context, maxFileSize int64) (form *multipart.Form, tooLarge bool, err error) {
	if c.Request.MultipartForm != nil {
		return c.Request.MultipartForm, false, nil
	}
	limit := maxFileSize + multipartOverhead
	body := &ceilingBody{ReadCloser: c.Request.Body, remaining: limit}
	c.Request.Body = body

	// maxMemory above the body ceiling keeps every part off disk.
	if err := c.Request.ParseMultipartForm(limit + 1); err != nil {
		return nil, body.exceeded, err
	}
	return c.Request.MultipartForm, false, nil
}

// UploadFilter accepts a single-field image upload before the handler runs.
// Requests whose body exceeds the ceiling get 413; requests with no file under
// field, or with a declared type that isAllowed rejects, get 400. The parsed
// form is released after the rest of the chain has run.
func UploadFilter(field string, maxFileSize int64, isAllowed func(contentType string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, tooLarge, err := ParseUploadForm(c, maxFileSize)
		if err != nil {
			if tooLarge {
				utils.Error(c, http.StatusRequestEntityTooLarge, utils.TooLargeMessage(maxFileSize))
				return
			}
			utils.Error(c, http.StatusBadRequest, utils.MsgNoFile)
			return
		}
		defer func() { _ = form.RemoveAll() }()

		headers := form.File[field]
		if len(headers) == 0 {
			utils.Error(c, http.StatusBadRequest, utils.MsgNoFile)
			return
		}
		for _, h := range headers {
			if !isAllowed(h.Header.Get("Content-Type")) {
				utils.Error(c, http.StatusBadRequest, utils.MsgNoFile)
				return
			}
		}
		c.Next()
	}
}
