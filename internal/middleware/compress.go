package middleware

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

const defaultMinCompressLength = 1024

type bufferedWriter struct {
	gin.ResponseWriter
	body   bytes.Buffer
	status int
}

func (w *bufferedWriter) WriteHeader(code int) {
	w.status = code
}

func (w *bufferedWriter) WriteHeaderNow() {}

func (w *bufferedWriter) Write(data []byte) (int, error) {
	return w.body.Write(data)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	return w.body.WriteString(s)
}

func (w *bufferedWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *bufferedWriter) Size() int {
	return w.body.Len()
}

func (w *bufferedWriter) Written() bool {
	return w.status != 0 || w.body.Len() > 0
}

// Compress brotli-encodes JSON responses of at least minLength bytes for
// clients that accept br. Streaming endpoints (WebSocket, SSE) pass through.
func Compress(quality, minLength int) gin.HandlerFunc {
	if quality < brotli.BestSpeed || quality > brotli.BestCompression {
		quality = brotli.DefaultCompression
	}
	if minLength <= 0 {
		minLength = defaultMinCompressLength
	}

	return func(c *gin.Context) {
		if isStream(c) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		original := c.Writer
		bw := &bufferedWriter{ResponseWriter: original}
		c.Writer = bw
		c.Next()
		c.Writer = original

		body := bw.body.Bytes()
		header := original.Header()
		header.Add("Vary", "Accept-Encoding")

		if len(body) < minLength || !strings.HasPrefix(header.Get("Content-Type"), "application/json") {
			original.WriteHeader(bw.Status())
			_, _ = original.Write(body)
			return
		}

		var out bytes.Buffer
		enc := brotli.NewWriterLevel(&out, quality)
		if _, err := enc.Write(body); err != nil || enc.Close() != nil {
			original.WriteHeader(bw.Status())
			_, _ = original.Write(body)
			return
		}

		header.Set("Content-Encoding", "br")
		header.Set("Content-Length", strconv.Itoa(out.Len()))
		original.WriteHeader(bw.Status())
		_, _ = original.Write(out.Bytes())
	}
}

func isStream(c *gin.Context) bool {
	if strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		return true
	}
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(name, "br") {
			return true
		}
	}
	return false
}
