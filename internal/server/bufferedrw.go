package server

import (
	"bytes"
	"io"
	"net/http"
)

// bufferedResponseWriter holds the whole response so it can be rewritten
// before anything reaches the client.
type bufferedResponseWriter struct {
	http.ResponseWriter
	buf    bytes.Buffer
	status int
}

func newBufferedResponseWriter(w http.ResponseWriter) *bufferedResponseWriter {
	return &bufferedResponseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (bw *bufferedResponseWriter) Write(b []byte) (int, error) {
	return bw.buf.Write(b)
}

func (bw *bufferedResponseWriter) WriteHeader(statusCode int) {
	bw.status = statusCode
}

// Flush is a no-op: output is held until bufferFlush.
func (bw *bufferedResponseWriter) Flush() {}

func (bw *bufferedResponseWriter) replaceBody(body string) {
	bw.buf.Reset()
	bw.buf.WriteString(body)
}

func (bw *bufferedResponseWriter) bufferFlush() (written int64, err error) {
	bw.ResponseWriter.WriteHeader(bw.status)
	return io.Copy(bw.ResponseWriter, &bw.buf)
}
