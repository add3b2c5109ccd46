package utils

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MrN7King/BookstorePhase1-sub001/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestTooLargeMessage(t *testing.T) {
	assert.Equal(t, "File too large. Max size is 2MB", TooLargeMessage(2<<20))
	assert.Equal(t, "File too large. Max size is 512KB", TooLargeMessage(512<<10))
	assert.Equal(t, "File too large. Max size is 1500 bytes", TooLargeMessage(1500))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Hello world", SanitizePlain("  <b>Hello</b> <img src=x onerror=alert(1)>world "))
	assert.Equal(t, "Tom & Jerry", SanitizePlain("Tom &amp; Jerry"))
	assert.Equal(t, "Order 42 Bcc: a@b.c", SanitizeHeader("Order 42\r\nBcc: a@b.c"))
}

func TestComposeMail(t *testing.T) {
	m := NewSMTPMailer(config.AppConfig{SMTPHost: "smtp.example.com", SMTPPort: 587, SMTPFrom: "noreply@example.com", SMTPFromName: "Bookstore"})

	raw := string(m.compose(Mail{
		To:      "shop@example.com",
		ReplyTo: "ann@example.com",
		Subject: "Where is my order?",
		Body:    "line one\nline two\r\nline three",
	}))

	head, body, ok := strings.Cut(raw, "\r\n\r\n")
	require.True(t, ok)
	head += "\r\n"
	assert.Contains(t, head, "To: shop@example.com\r\n")
	assert.Contains(t, head, "Reply-To: ann@example.com\r\n")
	assert.Contains(t, head, "From: Bookstore <noreply@example.com>\r\n")
	assert.Contains(t, head, "Subject: Where is my order?\r\n")
	assert.Contains(t, head, "Content-Type: text/plain; charset=UTF-8")
	assert.Equal(t, "line one\r\nline two\r\nline three", body)
}

func TestComposeMailEncodesNonASCIISubject(t *testing.T) {
	m := NewSMTPMailer(config.AppConfig{SMTPFrom: "noreply@example.com"})
	raw := string(m.compose(Mail{To: "a@example.com", Subject: "Bücher"}))
	assert.Contains(t, raw, "Subject: =?UTF-8?b?")
	assert.NotContains(t, raw, "Reply-To:")
}

func TestSendWithoutConfiguration(t *testing.T) {
	err := NewSMTPMailer(config.AppConfig{}).Send(context.Background(), Mail{To: "a@example.com"})
	assert.ErrorIs(t, err, ErrMailNotConfigured)
}

// fakeSMTP accepts one session on a loopback listener and returns the DATA it received.
func fakeSMTP(t *testing.T) (host string, port int, received <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
		tp := textproto.NewConn(conn)
		_ = tp.PrintfLine("220 fake ESMTP")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			switch cmd := strings.ToUpper(strings.SplitN(line, " ", 2)[0]); cmd {
			case "EHLO", "HELO":
				_ = tp.PrintfLine("250 fake")
			case "MAIL", "RCPT":
				_ = tp.PrintfLine("250 ok")
			case "DATA":
				_ = tp.PrintfLine("354 go ahead")
				data, err := tp.ReadDotBytes()
				if err != nil {
					return
				}
				out <- string(data)
				_ = tp.PrintfLine("250 queued")
			case "QUIT":
				_ = tp.PrintfLine("221 bye")
				return
			default:
				_ = tp.PrintfLine("502 unsupported")
			}
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port, out
}

func TestSendPlainSMTP(t *testing.T) {
	host, port, received := fakeSMTP(t)
	m := NewSMTPMailer(config.AppConfig{SMTPHost: host, SMTPPort: port, SMTPFrom: "noreply@example.com"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Send(ctx, Mail{To: "shop@example.com", Subject: "Order", Body: "hello"}))

	select {
	case data := <-received:
		assert.Contains(t, data, "To: shop@example.com\n")
		assert.Contains(t, data, "Subject: Order\n")
		assert.True(t, strings.HasSuffix(data, "hello\n"), data)
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}

func TestSendPlainSMTPHonoursContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		// accept and never greet
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = io.Copy(io.Discard, conn)
	}()

	addr := ln.Addr().(*net.TCPAddr)
	m := NewSMTPMailer(config.AppConfig{SMTPHost: addr.IP.String(), SMTPPort: addr.Port, SMTPFrom: "noreply@example.com"})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	err = m.Send(ctx, Mail{To: "shop@example.com", Subject: "Order", Body: "hello"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestGinzapLogsRequest(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set(RequestIDHeader, "rid-1")
		c.Next()
	})
	r.Use(Ginzap(zap.New(core), "2006-01-02T15:04:05Z07:00", true))
	r.GET("/genres", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/genres?x=1", nil))

	entries := logs.FilterMessage("/genres").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "x=1", fields["query"])
	assert.Equal(t, "rid-1", fields["request_id"])
}

func TestRecoveryWithZap(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := gin.New()
	r.Use(RecoveryWithZap(zap.New(core), true))
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("[Recovery from panic]").Len())
}

func TestNewRollingFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "gin.log")
	l, err := NewRollingFileLogger(path, "warn", RotateOptions{MaxSizeMB: 1})
	require.NoError(t, err)

	l.Info("dropped")
	l.Warn("kept", zap.String("k", "v"))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"msg":"kept"`)
	assert.Contains(t, string(data), `"k":"v"`)

	nop, err := NewRollingFileLogger("", "info", RotateOptions{})
	require.NoError(t, err)
	assert.NotNil(t, nop)
}

func TestServerRunStopsOnContextCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	srv := NewServer(ln.Addr().String(), handler, time.Second, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
