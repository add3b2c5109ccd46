package middleware

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/MrN7King/BookstorePhase1-sub001/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func isImage(ct string) bool {
	return ct == "image/jpeg" || ct == "image/png"
}

func uploadBody(t *testing.T, field, contentType string, size int) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="f.bin"`)
		hdr.Set("Content-Type", contentType)
		w, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = w.Write(bytes.Repeat([]byte{0xAB}, size))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func filterRouter(reached *bool) *gin.Engine {
	r := gin.New()
	r.POST("/upload", UploadFilter("thumbnail", 1<<20, isImage), func(c *gin.Context) {
		*reached = true
		form := c.Request.MultipartForm
		c.JSON(http.StatusOK, gin.H{"files": len(form.File["thumbnail"])})
	})
	return r
}

func TestUploadFilter(t *testing.T) {
	tests := []struct {
		name        string
		field       string
		contentType string
		size        int
		wantStatus  int
		wantBody    string
		wantReached bool
	}{
		{name: "accepted", field: "thumbnail", contentType: "image/png", size: 1024, wantStatus: http.StatusOK, wantBody: `{"files":1}`, wantReached: true},
		{name: "declared pdf", field: "thumbnail", contentType: "application/pdf", size: 1024, wantStatus: http.StatusBadRequest, wantBody: `{"error":"No file uploaded or invalid file type"}`},
		{name: "no file", wantStatus: http.StatusBadRequest, wantBody: `{"error":"No file uploaded or invalid file type"}`},
		{name: "other field", field: "avatar", contentType: "image/png", size: 10, wantStatus: http.StatusBadRequest, wantBody: `{"error":"No file uploaded or invalid file type"}`},
		{name: "body over ceiling", field: "thumbnail", contentType: "image/png", size: 2<<20 + 1, wantStatus: http.StatusRequestEntityTooLarge, wantBody: `{"error":"File too large. Max size is 1MB"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			body, ct := uploadBody(t, tt.field, tt.contentType, tt.size)
			req := httptest.NewRequest(http.MethodPost, "/upload", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()

			filterRouter(&reached).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, tt.wantReached, reached)
		})
	}
}

func TestCeilingBody(t *testing.T) {
	within := &ceilingBody{ReadCloser: io.NopCloser(strings.NewReader("abcd")), remaining: 4}
	got, err := io.ReadAll(within)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(got))
	assert.False(t, within.exceeded)

	over := &ceilingBody{ReadCloser: io.NopCloser(strings.NewReader("abcdef")), remaining: 4}
	got, err = io.ReadAll(over)
	assert.ErrorIs(t, err, errBodyTooLarge)
	assert.Equal(t, "abcd", string(got))
	assert.True(t, over.exceeded)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(4)) // burst of 2
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// another client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.9:5000"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLimiterStoreSweepsIdleBuckets(t *testing.T) {
	store := &limiterStore{limiters: map[string]*rateLimiter{}, limit: rate.Every(time.Second), burst: 1}
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	at := func(m int) time.Time { return t0.Add(time.Duration(m) * time.Minute) }

	a := store.get("203.0.113.1", at(0))
	store.get("203.0.113.2", at(1))
	assert.Same(t, a, store.get("203.0.113.1", at(0)))

	store.get("203.0.113.3", at(5)) // sweep runs, nothing idle past the TTL yet
	assert.Len(t, store.limiters, 3)

	// .1 and .2 are idle past the TTL but the next sweep is not due
	store.get("203.0.113.4", at(7))
	assert.Len(t, store.limiters, 4)

	store.get("203.0.113.5", at(10))
	assert.Len(t, store.limiters, 3)
	assert.NotContains(t, store.limiters, "203.0.113.1")
	assert.NotContains(t, store.limiters, "203.0.113.2")
	assert.Contains(t, store.limiters, "203.0.113.3")
	assert.Contains(t, store.limiters, "203.0.113.4")
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(utils.RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(utils.RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(utils.RequestIDHeader))
}
