package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const HTMLContentType = "text/html"

func withRecoverPanic(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				serverError(w, log, fmt.Errorf("%v", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// withRequestCancel ends the request when ctx is done, which lets long-lived
// event streams return during shutdown.
func withRequestCancel(ctx context.Context, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqCtx, reqCancel := context.WithCancel(r.Context())
		defer reqCancel()

		go func() {
			select {
			case <-ctx.Done():
				reqCancel()
			case <-reqCtx.Done():
			}
		}()

		next.ServeHTTP(w, r.WithContext(reqCtx))
	})
}

func withNoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func withRequestLog(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sr, r)

		log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sr.status,
			"elapsed", time.Since(start),
		)
	})
}

// withInjectReload appends injection before the closing body tag of HTML
// responses. Range requests pass through untouched.
func withInjectReload(next http.Handler, injection string, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bw := newBufferedResponseWriter(w)
		defer func() {
			if _, err := bw.bufferFlush(); err != nil {
				log.Debug("write response", "path", r.URL.Path, "err", err)
			}
		}()

		next.ServeHTTP(bw, r)

		if r.Header.Get("Range") != "" {
			return
		}
		if !strings.Contains(bw.Header().Get("Content-Type"), HTMLContentType) {
			return
		}

		body := bw.buf.String()
		idx := strings.LastIndex(body, "</body>")
		if idx < 0 {
			return
		}
		body = body[:idx] + injection + body[idx:]
		bw.replaceBody(body)

		if bw.Header().Get("Content-Length") != "" {
			bw.Header().Set("Content-Length", strconv.Itoa(len(body)))
		}
	})
}
