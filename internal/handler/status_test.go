package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aman-churiwal/exchange-governor/internal/config"
	"github.com/aman-churiwal/exchange-governor/internal/governor"
	"github.com/aman-churiwal/exchange-governor/internal/service"
	"github.com/gin-gonic/gin"
)

func newStatusRouter(t *testing.T, gov *governor.Governor, profiles []config.RequestProfile) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	// nil redis: the service reads live governor state on every call
	snapshots := service.NewSnapshotService(gov, nil)
	h := NewStatusHandler(snapshots, profiles)

	router := gin.New()
	router.GET("/api/v1/ratelimit/status", h.GetStatus)
	router.GET("/api/v1/ratelimit/usage", h.GetUsage)
	router.GET("/api/v1/ratelimit/queue", h.GetQueue)
	router.GET("/api/v1/ratelimit/capacity", h.GetCapacity)
	router.GET("/api/v1/ratelimit/recommendations", h.GetRecommendations)
	router.GET("/api/v1/ratelimit/profiles", h.GetProfiles)
	return router
}

func doGet(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestStatusHandler_GetStatus(t *testing.T) {
	gov := governor.New(governor.Config{
		WeightLimit:  100,
		WeightWindow: time.Minute,
		OrderLimit:   10,
		OrderWindow:  10 * time.Second,
	}, nil)
	defer gov.Stop()

	h, err := gov.Submit(governor.TierHigh, 40, 2, time.Time{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("ticket was not granted")
	}

	router := newStatusRouter(t, gov, nil)
	w := doGet(t, router, "/api/v1/ratelimit/status")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var snap governor.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if snap.Usage.Weight != 40 {
		t.Errorf("usage.weight = %d, want 40", snap.Usage.Weight)
	}
	if snap.Usage.Orders != 2 {
		t.Errorf("usage.orders = %d, want 2", snap.Usage.Orders)
	}
	if snap.Usage.WeightLimit != 100 || snap.Usage.OrderLimit != 10 {
		t.Errorf("limits = %d/%d, want 100/10", snap.Usage.WeightLimit, snap.Usage.OrderLimit)
	}
	if snap.Capacity.AvailableWeight != 60 {
		t.Errorf("capacity.availableWeight = %d, want 60", snap.Capacity.AvailableWeight)
	}
	if snap.Capacity.Status != "healthy" {
		t.Errorf("capacity.status = %q, want healthy", snap.Capacity.Status)
	}
}

func TestStatusHandler_GetQueueReportsWaiters(t *testing.T) {
	gov := governor.New(governor.Config{
		WeightLimit:  50,
		WeightWindow: time.Minute,
		OrderLimit:   10,
		OrderWindow:  time.Minute,
	}, nil)
	defer gov.Stop()

	// First ticket consumes the window, the second has to wait
	if _, err := gov.Submit(governor.TierHigh, 50, 0, time.Time{}); err != nil {
		t.Fatalf("Submit blocker: %v", err)
	}
	if _, err := gov.Submit(governor.TierLow, 10, 0, time.Time{}); err != nil {
		t.Fatalf("Submit waiter: %v", err)
	}

	router := newStatusRouter(t, gov, nil)
	w := doGet(t, router, "/api/v1/ratelimit/queue")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var queue governor.QueueSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &queue); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if queue.Total != 1 {
		t.Errorf("queue.total = %d, want 1", queue.Total)
	}
	if queue.ByPriority["low"] != 1 {
		t.Errorf("queue.byPriority[low] = %d, want 1", queue.ByPriority["low"])
	}
}

func TestStatusHandler_GetRecommendationsNearCapacity(t *testing.T) {
	gov := governor.New(governor.Config{
		WeightLimit:  100,
		WeightWindow: time.Minute,
		OrderLimit:   100,
		OrderWindow:  time.Minute,
	}, nil)
	defer gov.Stop()

	h, err := gov.Submit(governor.TierCritical, 95, 0, time.Time{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("ticket was not granted")
	}

	router := newStatusRouter(t, gov, nil)
	w := doGet(t, router, "/api/v1/ratelimit/recommendations")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body struct {
		Recommendations []governor.Recommendation `json:"recommendations"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(body.Recommendations) == 0 {
		t.Fatal("expected recommendations at 95% usage, got none")
	}
	found := false
	for _, rec := range body.Recommendations {
		if rec.Level == "critical" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a critical recommendation, got %+v", body.Recommendations)
	}
}

func TestStatusHandler_GetProfiles(t *testing.T) {
	gov := governor.New(governor.Config{
		WeightLimit:  100,
		WeightWindow: time.Minute,
		OrderLimit:   10,
		OrderWindow:  time.Minute,
	}, nil)
	defer gov.Stop()

	profiles := []config.RequestProfile{
		{Name: "place_order", Tier: "high", Weight: 1, Orders: 1},
		{Name: "account_info", Tier: "medium", Weight: 10, Orders: 0},
	}

	router := newStatusRouter(t, gov, profiles)
	w := doGet(t, router, "/api/v1/ratelimit/profiles")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body struct {
		Profiles []config.RequestProfile `json:"profiles"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Profiles) != 2 {
		t.Fatalf("profiles = %d, want 2", len(body.Profiles))
	}
	if body.Profiles[0].Name != "place_order" {
		t.Errorf("profiles[0].name = %q, want place_order", body.Profiles[0].Name)
	}
}
