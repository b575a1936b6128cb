package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/threadloom/storefront-backend/pkg/logger"
	"github.com/threadloom/storefront-backend/pkg/metrics"
	"github.com/threadloom/storefront-backend/pkg/types"
)

func TestRequestIDKeepsSaneCallerID(t *testing.T) {
	handler := RequestID(nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(types.RequestIDHeader, "edge-7f3a.01")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(types.RequestIDHeader); got != "edge-7f3a.01" {
		t.Fatalf("expected caller id echoed, got %q", got)
	}
}

func TestRequestIDReplacesUnsafeCallerID(t *testing.T) {
	handler := RequestID(nil)(okHandler())

	for _, bad := range []string{"", "has space", "<script>", strings.Repeat("a", maxRequestIDLen+1)} {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(types.RequestIDHeader, bad)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if _, err := uuid.Parse(rec.Header().Get(types.RequestIDHeader)); err != nil {
			t.Fatalf("expected minted uuid for %q, got %q", bad, rec.Header().Get(types.RequestIDHeader))
		}
	}
}

func TestRecovererWritesInternalEnvelope(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("size chart missing")
	})
	handler := RequestID(nil)(Recoverer(nil)(panicking))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
	var body types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "INTERNAL_ERROR" || strings.Contains(body.Error.Message, "size chart") {
		t.Fatalf("unexpected envelope %+v", body.Error)
	}
	if body.Error.RequestID == "" {
		t.Fatalf("expected request id on the envelope")
	}
}

func TestRecovererRepanicsOnAbort(t *testing.T) {
	aborting := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	})
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	Recoverer(nil)(aborting).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestLoggingRecordsRouteAndBytes(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf, Format: logger.FormatJSON})
	reg := prometheus.NewRegistry()

	handler := Logging(logg, metrics.NewHTTPMetrics(reg))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	}))
	req := httptest.NewRequest(http.MethodPost, "/cart/add", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	out := buf.String()
	for _, want := range []string{`"status":201`, `"bytes":5`, `"remote_ip":"203.0.113.9"`, `"level":"info"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}

func TestLoggingQuietsHealthChecks(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf, Format: logger.FormatJSON})

	handler := Logging(logg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if buf.Len() != 0 {
		t.Fatalf("expected health check to log below info, got %s", buf.String())
	}
}

func TestCORSAdmitsLocalOriginOnlyInDev(t *testing.T) {
	handler := func(dev bool) http.Handler {
		return CORS(dev, " https://preview.threadloom.in/ ")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
	}
	allowed := func(h http.Handler, origin string) bool {
		req := httptest.NewRequest(http.MethodGet, "/cart/items", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Header().Get("Access-Control-Allow-Origin") == origin
	}

	if allowed(handler(false), "http://localhost:3000") {
		t.Fatal("local origin must be rejected outside dev")
	}
	if !allowed(handler(true), "http://localhost:3000") {
		t.Fatal("local origin must be allowed in dev")
	}
	if !allowed(handler(false), "https://preview.threadloom.in") {
		t.Fatal("configured origin must be allowed")
	}
	if !allowed(handler(false), "https://www.threadloom.in") {
		t.Fatal("storefront origin must be allowed")
	}
}
