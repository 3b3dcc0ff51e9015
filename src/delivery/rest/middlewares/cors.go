package middlewares

import "net/http"

// CORS sets permissive cross-origin headers so a tenant's frontend
// application (the caller this system is multi-tenant for) can call
// the API directly from the browser; fine-grained origin enforcement
// happens in the Identity Gate's per-tenant allowed-origins check, not
// here.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, x-tenant-id, x-tenant-secret, x-external-user-id, x-external-user-email, x-external-user-name")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
