package middleware

import (
	"fmt"
	"mime"
	"net/http"

	"github.com/cloo-solutions/testcopilot/internal/api"
)

// MaxBodyBytes caps non-multipart request bodies at limit bytes. Multipart
// uploads pass through untouched; the upload handler enforces its own limit.
// A declared Content-Length over the limit is refused with 413 before the
// handler runs; a streamed body fails on read with *http.MaxBytesError.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody || isMultipart(r) {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", limit))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}
