package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/fsms-platform/fsms-service/internal/change/application"
	"github.com/fsms-platform/fsms-service/internal/change/domain"
	"github.com/fsms-platform/fsms-service/pkg/logging"
)

type fakeChangeRepo struct {
	saveFn            func(ctx context.Context, change *domain.ChangeRequest) error
	saveWithPendingFn func(ctx context.Context, change *domain.ChangeRequest, sequence int) error
	findByIDFn        func(ctx context.Context, changeID string) (*domain.ChangeRequest, error)
	findByNumberFn    func(ctx context.Context, changeNumber string) (*domain.ChangeRequest, error)
	listFn            func(ctx context.Context, filter domain.ChangeFilter, pagination domain.Pagination) ([]*domain.ChangeRequest, error)
	countFn           func(ctx context.Context, filter domain.ChangeFilter) (int64, error)
}

func (f *fakeChangeRepo) Save(ctx context.Context, change *domain.ChangeRequest) error {
	if f.saveFn == nil {
		return nil
	}
	return f.saveFn(ctx, change)
}

func (f *fakeChangeRepo) SaveWithPendingStep(ctx context.Context, change *domain.ChangeRequest, sequence int) error {
	if f.saveWithPendingFn == nil {
		return nil
	}
	return f.saveWithPendingFn(ctx, change, sequence)
}

func (f *fakeChangeRepo) FindByChangeID(ctx context.Context, changeID string) (*domain.ChangeRequest, error) {
	if f.findByIDFn == nil {
		return nil, nil
	}
	return f.findByIDFn(ctx, changeID)
}

func (f *fakeChangeRepo) FindByChangeNumber(ctx context.Context, changeNumber string) (*domain.ChangeRequest, error) {
	if f.findByNumberFn == nil {
		return nil, nil
	}
	return f.findByNumberFn(ctx, changeNumber)
}

func (f *fakeChangeRepo) List(ctx context.Context, filter domain.ChangeFilter, pagination domain.Pagination) ([]*domain.ChangeRequest, error) {
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(ctx, filter, pagination)
}

func (f *fakeChangeRepo) Count(ctx context.Context, filter domain.ChangeFilter) (int64, error) {
	if f.countFn == nil {
		return 0, nil
	}
	return f.countFn(ctx, filter)
}

func newChangeRouter(repo domain.ChangeRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	cfg := logging.DefaultConfig("handlers-test")
	cfg.Output = io.Discard
	logger := logging.New(cfg)
	service := application.NewChangeService(repo, logger, nil)
	NewChangeHandlers(service, logger).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func submittedChange(t *testing.T) *domain.ChangeRequest {
	t.Helper()
	change, err := domain.NewChangeRequest(
		"CHG-2026-021",
		"Raise pasteurization hold time",
		"Extend HTST hold from 15s to 25s",
		"Verification trend shows marginal lethality at 15s",
		"USR-PROD-04",
		[]domain.ApproverSpec{
			{Sequence: 1, ApproverID: "USR-QA-01"},
			{Sequence: 2, ApproverID: "USR-FSTL-01"},
		},
	)
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	change.ClearDomainEvents()
	return change
}

func TestChangeHandlers_CreateChange(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router := newChangeRouter(&fakeChangeRepo{})
		body := `{"changeNumber":"CHG-2026-021","title":"Raise pasteurization hold time","requestedBy":"USR-PROD-04","approvers":[{"sequence":1,"approverId":"USR-QA-01"},{"sequence":2,"approverId":"USR-FSTL-01"}]}`
		rec := performRequest(router, http.MethodPost, "/api/v1/changes", body)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"status":"assessing"`) {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("no approvers", func(t *testing.T) {
		router := newChangeRouter(&fakeChangeRepo{})
		body := `{"changeNumber":"CHG-2026-021","title":"No chain","requestedBy":"USR-PROD-04","approvers":[]}`
		rec := performRequest(router, http.MethodPost, "/api/v1/changes", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("duplicate number", func(t *testing.T) {
		existing := submittedChange(t)
		router := newChangeRouter(&fakeChangeRepo{
			findByNumberFn: func(ctx context.Context, changeNumber string) (*domain.ChangeRequest, error) {
				return existing, nil
			},
		})
		body := `{"changeNumber":"CHG-2026-021","title":"Duplicate","requestedBy":"USR-PROD-04","approvers":[{"sequence":1,"approverId":"USR-QA-01"}]}`
		rec := performRequest(router, http.MethodPost, "/api/v1/changes", body)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestChangeHandlers_ApproveStep(t *testing.T) {
	t.Run("chain completes", func(t *testing.T) {
		change := submittedChange(t)
		router := newChangeRouter(&fakeChangeRepo{
			findByIDFn: func(ctx context.Context, changeID string) (*domain.ChangeRequest, error) {
				return change, nil
			},
		})

		rec := performRequest(router, http.MethodPost, "/api/v1/changes/"+change.ChangeID+"/approve",
			`{"approverId":"USR-QA-01","decision":"approved"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"status":"assessing"`) {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}

		rec = performRequest(router, http.MethodPost, "/api/v1/changes/"+change.ChangeID+"/approve",
			`{"approverId":"USR-FSTL-01","decision":"approved"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"status":"approved"`) {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("wrong approver", func(t *testing.T) {
		change := submittedChange(t)
		router := newChangeRouter(&fakeChangeRepo{
			findByIDFn: func(ctx context.Context, changeID string) (*domain.ChangeRequest, error) {
				return change, nil
			},
		})

		rec := performRequest(router, http.MethodPost, "/api/v1/changes/"+change.ChangeID+"/approve",
			`{"approverId":"USR-INTRUDER","decision":"approved"}`)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("concurrent decision", func(t *testing.T) {
		change := submittedChange(t)
		router := newChangeRouter(&fakeChangeRepo{
			findByIDFn: func(ctx context.Context, changeID string) (*domain.ChangeRequest, error) {
				return change, nil
			},
			saveWithPendingFn: func(ctx context.Context, c *domain.ChangeRequest, sequence int) error {
				return domain.ErrConcurrentDecision
			},
		})

		rec := performRequest(router, http.MethodPost, "/api/v1/changes/"+change.ChangeID+"/approve",
			`{"approverId":"USR-QA-01","decision":"approved"}`)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("invalid decision", func(t *testing.T) {
		router := newChangeRouter(&fakeChangeRepo{})
		rec := performRequest(router, http.MethodPost, "/api/v1/changes/CHG-001/approve",
			`{"approverId":"USR-QA-01","decision":"maybe"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestChangeHandlers_GetChange(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		change := submittedChange(t)
		router := newChangeRouter(&fakeChangeRepo{
			findByIDFn: func(ctx context.Context, changeID string) (*domain.ChangeRequest, error) {
				if changeID != change.ChangeID {
					t.Fatalf("changeID = %s", changeID)
				}
				return change, nil
			},
		})
		rec := performRequest(router, http.MethodGet, "/api/v1/changes/"+change.ChangeID, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"changeNumber":"CHG-2026-021"`) {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("not found", func(t *testing.T) {
		router := newChangeRouter(&fakeChangeRepo{})
		rec := performRequest(router, http.MethodGet, "/api/v1/changes/CHG-404", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestChangeHandlers_ListChanges(t *testing.T) {
	change := submittedChange(t)
	router := newChangeRouter(&fakeChangeRepo{
		listFn: func(ctx context.Context, filter domain.ChangeFilter, pagination domain.Pagination) ([]*domain.ChangeRequest, error) {
			return []*domain.ChangeRequest{change}, nil
		},
		countFn: func(ctx context.Context, filter domain.ChangeFilter) (int64, error) {
			return 1, nil
		},
	})
	rec := performRequest(router, http.MethodGet, "/api/v1/changes?status=assessing&page=1&pageSize=20", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"totalItems":1`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
