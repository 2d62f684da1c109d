package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/fsms-platform/fsms-service/internal/risk/application"
	"github.com/fsms-platform/fsms-service/internal/risk/domain"
	"github.com/fsms-platform/fsms-service/pkg/logging"
)

type fakeRiskRepo struct {
	saveFn         func(ctx context.Context, item *domain.RiskRegisterItem) error
	findByIDFn     func(ctx context.Context, riskID string) (*domain.RiskRegisterItem, error)
	findByNumberFn func(ctx context.Context, riskNumber string) (*domain.RiskRegisterItem, error)
	listFn         func(ctx context.Context, filter domain.RiskFilter, pagination domain.Pagination) ([]*domain.RiskRegisterItem, error)
	countFn        func(ctx context.Context, filter domain.RiskFilter) (int64, error)
}

func (f *fakeRiskRepo) Save(ctx context.Context, item *domain.RiskRegisterItem) error {
	if f.saveFn == nil {
		return nil
	}
	return f.saveFn(ctx, item)
}

func (f *fakeRiskRepo) FindByRiskID(ctx context.Context, riskID string) (*domain.RiskRegisterItem, error) {
	if f.findByIDFn == nil {
		return nil, nil
	}
	return f.findByIDFn(ctx, riskID)
}

func (f *fakeRiskRepo) FindByRiskNumber(ctx context.Context, riskNumber string) (*domain.RiskRegisterItem, error) {
	if f.findByNumberFn == nil {
		return nil, nil
	}
	return f.findByNumberFn(ctx, riskNumber)
}

func (f *fakeRiskRepo) List(ctx context.Context, filter domain.RiskFilter, pagination domain.Pagination) ([]*domain.RiskRegisterItem, error) {
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(ctx, filter, pagination)
}

func (f *fakeRiskRepo) Count(ctx context.Context, filter domain.RiskFilter) (int64, error) {
	if f.countFn == nil {
		return 0, nil
	}
	return f.countFn(ctx, filter)
}

func newRiskRouter(repo domain.RiskRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	cfg := logging.DefaultConfig("handlers-test")
	cfg.Output = io.Discard
	logger := logging.New(cfg)
	service := application.NewRiskService(repo, logger)
	NewRiskHandlers(service, logger).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func performRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registeredRisk(t *testing.T) *domain.RiskRegisterItem {
	t.Helper()
	item, err := domain.NewRiskRegisterItem(
		"RSK-2026-003",
		domain.ItemTypeRisk,
		"Glass breakage at filling line",
		"",
		"equipment",
		domain.SeverityHigh,
		domain.LikelihoodUnlikely,
		"USR-FSTL-01",
	)
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	item.ClearDomainEvents()
	return item
}

func TestRiskHandlers_RegisterRisk(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router := newRiskRouter(&fakeRiskRepo{})
		body := `{"riskNumber":"RSK-2026-003","itemType":"risk","title":"Glass breakage at filling line","severity":"high","likelihood":"unlikely","registeredBy":"USR-FSTL-01"}`
		rec := performRequest(router, http.MethodPost, "/api/v1/risks", body)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"riskScore":8`) {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("bad json", func(t *testing.T) {
		router := newRiskRouter(&fakeRiskRepo{})
		rec := performRequest(router, http.MethodPost, "/api/v1/risks", `{"riskNumber":}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("duplicate number", func(t *testing.T) {
		existing := registeredRisk(t)
		router := newRiskRouter(&fakeRiskRepo{
			findByNumberFn: func(ctx context.Context, riskNumber string) (*domain.RiskRegisterItem, error) {
				return existing, nil
			},
		})
		body := `{"riskNumber":"RSK-2026-003","itemType":"risk","title":"Duplicate","severity":"high","likelihood":"unlikely","registeredBy":"USR-FSTL-01"}`
		rec := performRequest(router, http.MethodPost, "/api/v1/risks", body)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestRiskHandlers_GetRisk(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		item := registeredRisk(t)
		router := newRiskRouter(&fakeRiskRepo{
			findByIDFn: func(ctx context.Context, riskID string) (*domain.RiskRegisterItem, error) {
				if riskID != item.RiskID {
					t.Fatalf("riskID = %s", riskID)
				}
				return item, nil
			},
		})
		rec := performRequest(router, http.MethodGet, "/api/v1/risks/"+item.RiskID, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"riskNumber":"RSK-2026-003"`) {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("not found", func(t *testing.T) {
		router := newRiskRouter(&fakeRiskRepo{})
		rec := performRequest(router, http.MethodGet, "/api/v1/risks/RISK-404", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestRiskHandlers_AssessRisk(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		item := registeredRisk(t)
		router := newRiskRouter(&fakeRiskRepo{
			findByIDFn: func(ctx context.Context, riskID string) (*domain.RiskRegisterItem, error) {
				return item, nil
			},
		})
		body := `{"severity":"very_high","likelihood":"possible","assessedBy":"USR-FSTL-02"}`
		rec := performRequest(router, http.MethodPost, "/api/v1/risks/"+item.RiskID+"/assess", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"riskScore":15`) {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("invalid severity", func(t *testing.T) {
		item := registeredRisk(t)
		router := newRiskRouter(&fakeRiskRepo{
			findByIDFn: func(ctx context.Context, riskID string) (*domain.RiskRegisterItem, error) {
				return item, nil
			},
		})
		body := `{"severity":"catastrophic","likelihood":"possible","assessedBy":"USR-FSTL-02"}`
		rec := performRequest(router, http.MethodPost, "/api/v1/risks/"+item.RiskID+"/assess", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestRiskHandlers_ListRisks(t *testing.T) {
	item := registeredRisk(t)
	router := newRiskRouter(&fakeRiskRepo{
		listFn: func(ctx context.Context, filter domain.RiskFilter, pagination domain.Pagination) ([]*domain.RiskRegisterItem, error) {
			return []*domain.RiskRegisterItem{item}, nil
		},
		countFn: func(ctx context.Context, filter domain.RiskFilter) (int64, error) {
			return 1, nil
		},
	})
	rec := performRequest(router, http.MethodGet, "/api/v1/risks?itemType=risk&page=1&pageSize=20", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"totalItems":1`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
