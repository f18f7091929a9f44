package middleware

import "net/http"

// corsAllowHeaders covers the standard set plus the platform client headers
// the site's frontend sends alongside form submissions.
const corsAllowHeaders = "authorization, x-client-info, apikey, content-type"

// CORS allows all origins and short-circuits preflight with an empty 200.
// The relay endpoints are public by design; origin restrictions live at the
// edge if a deployment wants them.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
