package middleware

import (
	"fmt"
	"net/http"
)

// DefaultMaxRequestSize is the body limit applied to API requests
const DefaultMaxRequestSize = 1 << 20 // 1MB

// RequestSizeLimitMiddleware rejects bodies larger than maxRequestSize bytes.
// A declared Content-Length over the limit is refused up front; streamed bodies
// are cut by http.MaxBytesReader, which handlers report as 413 while decoding.
func RequestSizeLimitMiddleware(maxRequestSize int64) func(http.Handler) http.Handler {
	message := fmt.Sprintf("request body exceeds %d bytes", maxRequestSize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxRequestSize {
				writeJSONError(w, http.StatusRequestEntityTooLarge, message)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
			next.ServeHTTP(w, r)
		})
	}
}
