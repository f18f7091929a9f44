package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name string
		xff  string
		want string
	}{
		{"missing header shares the unknown bucket", "", UnknownClient},
		{"single address", "203.0.113.9", "203.0.113.9"},
		{"first hop wins behind multiple proxies", "203.0.113.9, 10.0.0.1, 10.0.0.2", "203.0.113.9"},
		{"whitespace trimmed", "  203.0.113.9 ,10.0.0.1", "203.0.113.9"},
		{"empty first entry falls back to unknown", " ,10.0.0.1", UnknownClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/notify/contact", nil)
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(r))
		})
	}
}

func TestClientMetadata(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/notify/contact", nil)
	r.Header.Set("X-Forwarded-For", "198.51.100.4")

	var got string
	handler := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetClientIP(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "198.51.100.4", got)
}

func TestCORS(t *testing.T) {
	handler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("preflight short-circuits with 200", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodOptions, "/notify/contact", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Body.String())
	})

	t.Run("headers set on normal responses too", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/notify/contact", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "x-client-info")
	})
}
