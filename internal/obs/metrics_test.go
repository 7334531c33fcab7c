package obs

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                     "/",
		"/metrics":                             "/metrics",
		"/poetry":                              "/poetry",
		"/poetry?page=2":                       "/poetry",
		"/poetry/42":                           "/poetry/:id",
		"/poetry/01HZX3K5T6B0S4M7Q9V2C8N1DE":   "/poetry/:id",
		"/author/01HZX3K5T6B0S4M7Q9V2C8N1DE":   "/author/:id",
		"/auth/login":                          "/auth/login",
		"/auth/refresh":                        "/auth/refresh",
		"/poetry/01HZX3K5T6B0S4M7Q9V2C8N1DE/x": "/poetry/:id/x",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

func TestInstrumentCountsRequests(t *testing.T) {
	Init()
	h := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/poetry/:id", "418"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/poetry/7", nil))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/poetry/:id", "418"))

	if after-before != 1 {
		t.Fatalf("expected counter to grow by 1, got %v", after-before)
	}
	if v := testutil.ToFloat64(httpInFlight); v != 0 {
		t.Fatalf("in-flight gauge not released: %v", v)
	}
}

func TestRecordAuthEvent(t *testing.T) {
	Init()
	RecordAuthEvent("login", "failure")
	if got := testutil.ToFloat64(authEventsTotal.WithLabelValues("login", "failure")); got < 1 {
		t.Fatalf("expected auth event to be counted, got %v", got)
	}
}
