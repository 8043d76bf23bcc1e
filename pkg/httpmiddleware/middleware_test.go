package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrap_Order(t *testing.T) {
	var calls []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Wrap(okHandler(), mark("outer"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner"}, calls)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, strings.Repeat("x", 200))
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Len(t, seen, 36)
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := Wrap(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		InjectLogger(zap.New(core)),
		Recovery(),
	)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	code, message := decodeError(t, w.Body.Bytes())
	assert.Equal(t, 500, code)
	assert.Equal(t, "internal server error", message)
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}

func TestInjectLoggerAndLogRequests(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := Wrap(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			zctx.From(r.Context()).Info("Inside")
			w.WriteHeader(http.StatusNotFound)
		}),
		RequestID(),
		InjectLogger(zap.New(core)),
		LogRequests(),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/stores/x", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	inside := logs.FilterMessage("Inside").All()
	require.Len(t, inside, 1)
	assert.Equal(t, "req-1", inside[0].ContextMap()["request_id"])

	reqs := logs.FilterMessage("Request").All()
	require.Len(t, reqs, 1)
	assert.Equal(t, zap.WarnLevel, reqs[0].Level)
	fields := reqs[0].ContextMap()
	assert.Equal(t, int64(404), fields["status"])
	assert.Equal(t, "/api/stores/x", fields["path"])
	assert.Equal(t, "req-1", fields["request_id"])
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		cfg        CORSConfig
		method     string
		origin     string
		preflight  bool
		wantOrigin string
		wantStatus int
	}{
		{
			name:       "wildcard",
			cfg:        CORSConfig{AllowOrigins: []string{"*"}},
			method:     http.MethodGet,
			origin:     "https://shop.example",
			wantOrigin: "*",
			wantStatus: http.StatusOK,
		},
		{
			name:       "listed origin matched case-insensitively",
			cfg:        CORSConfig{AllowOrigins: []string{"https://Shop.example"}},
			method:     http.MethodGet,
			origin:     "https://shop.example",
			wantOrigin: "https://Shop.example",
			wantStatus: http.StatusOK,
		},
		{
			name:       "unlisted origin",
			cfg:        CORSConfig{AllowOrigins: []string{"https://shop.example"}},
			method:     http.MethodGet,
			origin:     "https://evil.example",
			wantStatus: http.StatusOK,
		},
		{
			name:       "credentials echo origin",
			cfg:        CORSConfig{AllowCredentials: true},
			method:     http.MethodGet,
			origin:     "https://shop.example",
			wantOrigin: "https://shop.example",
			wantStatus: http.StatusOK,
		},
		{
			name:       "preflight",
			cfg:        CORSConfig{AllowOrigins: []string{"*"}, MaxAge: 600},
			method:     http.MethodOptions,
			origin:     "https://shop.example",
			preflight:  true,
			wantOrigin: "*",
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORS(tt.cfg)(okHandler())
			req := httptest.NewRequest(tt.method, "/", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
				req.Header.Set("Access-Control-Request-Headers", "Content-Type")
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			if tt.preflight {
				assert.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
				assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
			}
		})
	}
}
