// internal/app/system/limits/limits.go
package limits

import "net/http"

// Request body size limits. These limits help prevent memory exhaustion
// from oversized requests.
const (
	// MaxJSONBodySize is the maximum size for JSON request bodies. Task
	// descriptions are the largest field and stay well under this.
	MaxJSONBodySize = 256 << 10 // 256 KB
)

// JSONBody caps request bodies at MaxJSONBodySize. Decoders downstream
// see an error once the cap is exceeded.
func JSONBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)
		}
		next.ServeHTTP(w, r)
	})
}
