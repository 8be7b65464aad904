package handler

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func timeRangeFromQuery(t *testing.T, query string) (time.Time, time.Time, error) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/history?"+query, nil)
	return parseTimeRange(c)
}

func TestParseTimeRange_DefaultsToLastHour(t *testing.T) {
	from, to, err := timeRangeFromQuery(t, "")
	if err != nil {
		t.Fatalf("parseTimeRange: %v", err)
	}

	got := to.Sub(from)
	if got != time.Hour {
		t.Errorf("range = %v, want 1h", got)
	}
}

func TestParseTimeRange_RFC3339(t *testing.T) {
	from, to, err := timeRangeFromQuery(t, "from=2026-08-26T10:00:00Z&to=2026-08-26T12:00:00Z")
	if err != nil {
		t.Fatalf("parseTimeRange: %v", err)
	}

	wantFrom := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	wantTo := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	if !from.Equal(wantFrom) {
		t.Errorf("from = %v, want %v", from, wantFrom)
	}
	if !to.Equal(wantTo) {
		t.Errorf("to = %v, want %v", to, wantTo)
	}
}

func TestParseTimeRange_UnixTimestamps(t *testing.T) {
	base := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	query := "from=" + strconv.FormatInt(base.Unix(), 10) + "&to=" + strconv.FormatInt(base.Add(time.Hour).Unix(), 10)

	from, to, err := timeRangeFromQuery(t, query)
	if err != nil {
		t.Fatalf("parseTimeRange: %v", err)
	}

	if !from.Equal(base) {
		t.Errorf("from = %v, want %v", from, base)
	}
	if !to.Equal(base.Add(time.Hour)) {
		t.Errorf("to = %v, want %v", to, base.Add(time.Hour))
	}
}

func TestParseTimeRange_InvalidFrom(t *testing.T) {
	if _, _, err := timeRangeFromQuery(t, "from=yesterday"); err == nil {
		t.Error("expected an error for an unparseable 'from'")
	}
}

func TestHistoryHandler_PruneRequiresBefore(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Validation failures never reach the repository
	h := NewHistoryHandler(nil)

	router := gin.New()
	router.DELETE("/admin/history", h.PruneHistory)

	for _, query := range []string{"", "before=not-a-time"} {
		req := httptest.NewRequest(http.MethodDelete, "/admin/history?"+query, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("query %q: status = %d, want %d", query, w.Code, http.StatusBadRequest)
		}
	}
}

func TestHistoryHandler_BadTimeRange(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewHistoryHandler(nil)

	router := gin.New()
	router.GET("/api/v1/history", h.GetHistory)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history?from=banana", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
