package debugbar

import (
	"bytes"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const contextKey = "querybar.debugbar"

// Inject gives every request its own Bar and appends the rendered bar to
// HTML responses, just before </body>. Other responses, and pages whose
// bar has no panels, go out untouched.
func Inject() gin.HandlerFunc {
	return func(c *gin.Context) {
		bar := NewBar()
		c.Set(contextKey, bar)

		w := &bufferWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()
		c.Writer = w.ResponseWriter

		if w.mode != modeBuffer {
			return
		}
		body := w.buf.Bytes()
		if len(bar.IDs()) > 0 {
			body = injectBar(body, []byte(bar.Render()))
		}
		w.Header().Del("Content-Length")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		if _, err := w.ResponseWriter.Write(body); err != nil {
			log.Printf("debugbar: write response: %v", err)
		}
	}
}

// FromContext returns the request's bar, or nil when Inject is not
// installed.
func FromContext(c *gin.Context) *Bar {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil
	}
	bar, _ := v.(*Bar)
	return bar
}

// injectBar inserts fragment before the last </body>, or appends it when
// the page has none.
func injectBar(page, fragment []byte) []byte {
	idx := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if idx < 0 {
		return append(page, fragment...)
	}
	out := make([]byte, 0, len(page)+len(fragment))
	out = append(out, page[:idx]...)
	out = append(out, fragment...)
	return append(out, page[idx:]...)
}

type writeMode int

const (
	modeUndecided writeMode = iota
	modeBuffer
	modePassthrough
)

// bufferWriter holds back HTML bodies so the bar can be inserted.
type bufferWriter struct {
	gin.ResponseWriter
	buf  bytes.Buffer
	mode writeMode
}

func (w *bufferWriter) decide() {
	if w.mode != modeUndecided {
		return
	}
	ct := w.Header().Get("Content-Type")
	if strings.HasPrefix(ct, "text/html") {
		w.mode = modeBuffer
		return
	}
	w.mode = modePassthrough
}

func (w *bufferWriter) Write(p []byte) (int, error) {
	w.decide()
	if w.mode == modeBuffer {
		return w.buf.Write(p)
	}
	return w.ResponseWriter.Write(p)
}

func (w *bufferWriter) WriteString(s string) (int, error) {
	w.decide()
	if w.mode == modeBuffer {
		return w.buf.WriteString(s)
	}
	return w.ResponseWriter.WriteString(s)
}

func (w *bufferWriter) Written() bool {
	return w.buf.Len() > 0 || w.ResponseWriter.Written()
}

func (w *bufferWriter) Size() int {
	if w.mode == modeBuffer {
		return w.buf.Len()
	}
	return w.ResponseWriter.Size()
}

func (w *bufferWriter) Flush() {
	if w.mode == modeBuffer {
		return
	}
	w.ResponseWriter.Flush()
}

var _ http.Flusher = (*bufferWriter)(nil)
