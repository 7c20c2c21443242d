package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckLivenessAlwaysOK(t *testing.T) {
	checker := New(0)
	checker.RegisterCheck("broken", func(ctx context.Context) error {
		return errors.New("down")
	})

	status := checker.CheckLiveness(context.Background())
	if status.Status != "ok" {
		t.Errorf("liveness = %s, want ok", status.Status)
	}
}

func TestCheckReadinessNoChecks(t *testing.T) {
	checker := New(0)
	status := checker.CheckReadiness(context.Background())
	if status.Status != "ready" {
		t.Errorf("readiness with no checks = %s, want ready", status.Status)
	}
}

func TestCheckReadinessAggregates(t *testing.T) {
	checker := New(0)
	checker.RegisterCheck("policy_store", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("verdict_store", func(ctx context.Context) error { return nil })

	status := checker.CheckReadiness(context.Background())
	if status.Status != "ready" {
		t.Errorf("readiness = %s, want ready", status.Status)
	}
	if len(status.Checks) != 2 {
		t.Errorf("checks = %d, want 2", len(status.Checks))
	}

	checker.RegisterCheck("verdict_store", func(ctx context.Context) error {
		return errors.New("database is locked")
	})
	status = checker.CheckReadiness(context.Background())
	if status.Status != "degraded" {
		t.Errorf("readiness with failing check = %s, want degraded", status.Status)
	}
	if status.Checks["verdict_store"].Message != "database is locked" {
		t.Errorf("failing check message = %q", status.Checks["verdict_store"].Message)
	}
}

func TestCheckTimeout(t *testing.T) {
	checker := New(50 * time.Millisecond)
	checker.RegisterCheck("slow", func(ctx context.Context) error {
		select {
		case <-time.After(5 * time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	status := checker.CheckReadiness(context.Background())
	if status.Status != "degraded" {
		t.Errorf("readiness with hung check = %s, want degraded", status.Status)
	}
}

func TestUnregisterCheck(t *testing.T) {
	checker := New(0)
	checker.RegisterCheck("tmp", func(ctx context.Context) error { return nil })
	checker.UnregisterCheck("tmp")
	if names := checker.ListChecks(); len(names) != 0 {
		t.Errorf("ListChecks after unregister = %v", names)
	}
}

func TestReadinessHandlerStatusCodes(t *testing.T) {
	checker := New(0)
	checker.RegisterCheck("ok", func(ctx context.Context) error { return nil })

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	checker.ReadinessHandler()(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	checker.RegisterCheck("bad", func(ctx context.Context) error { return errors.New("down") })
	rec = httptest.NewRecorder()
	checker.ReadinessHandler()(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	var status Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if status.Status != "degraded" {
		t.Errorf("body status = %s, want degraded", status.Status)
	}
}

func TestLivenessHandlerRejectsPost(t *testing.T) {
	checker := New(0)
	req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	rec := httptest.NewRecorder()
	checker.LivenessHandler()(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestVersionHandler(t *testing.T) {
	handler := VersionHandler("1.2.3", "abc123", "2026-01-01")
	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	var info VersionInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc123" {
		t.Errorf("version info = %+v", info)
	}
	if info.GoVersion == "" {
		t.Error("GoVersion is empty")
	}
}
