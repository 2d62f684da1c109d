package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsms-platform/fsms-service/internal/risk/domain"
	"github.com/fsms-platform/fsms-service/internal/risk/infrastructure/mongodb"
	"github.com/fsms-platform/fsms-service/pkg/cloudevents"
	fsmstesting "github.com/fsms-platform/fsms-service/pkg/testing"
)

func registerItem(t *testing.T, riskNumber string, severity domain.Severity) *domain.RiskRegisterItem {
	t.Helper()
	item, err := domain.NewRiskRegisterItem(
		riskNumber,
		domain.ItemTypeRisk,
		"Condensate drip over open vats",
		"Ceiling condensation above the curd preparation area",
		"environment",
		severity,
		domain.LikelihoodPossible,
		"USR-FSTL-01",
	)
	require.NoError(t, err)
	return item
}

func setupRiskRepository(t *testing.T) (*mongodb.RiskRepository, func()) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()

	mongoContainer, err := fsmstesting.NewMongoDBContainer(ctx)
	require.NoError(t, err)

	client, err := mongoContainer.GetClient(ctx)
	require.NoError(t, err)

	db := client.Database("fsms_integration_test")
	factory := cloudevents.NewEventFactory("fsms-service-test")
	repo := mongodb.NewRiskRepository(db, factory)

	cleanup := func() {
		if err := client.Disconnect(ctx); err != nil {
			t.Logf("failed to disconnect client: %v", err)
		}
		if err := mongoContainer.Close(ctx); err != nil {
			t.Logf("failed to close container: %v", err)
		}
	}
	return repo, cleanup
}

func TestRiskRepository_SaveAndFind(t *testing.T) {
	repo, cleanup := setupRiskRepository(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	item := registerItem(t, "RSK-INT-001", domain.SeverityHigh)
	require.NoError(t, repo.Save(ctx, item))

	found, err := repo.FindByRiskID(ctx, item.RiskID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "RSK-INT-001", found.RiskNumber)
	assert.Equal(t, 12, found.RiskScore)
	assert.Empty(t, found.DomainEvents())

	byNumber, err := repo.FindByRiskNumber(ctx, "RSK-INT-001")
	require.NoError(t, err)
	require.NotNil(t, byNumber)
	assert.Equal(t, item.RiskID, byNumber.RiskID)

	missing, err := repo.FindByRiskID(ctx, "RISK-absent")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRiskRepository_SaveUpsertsReassessment(t *testing.T) {
	repo, cleanup := setupRiskRepository(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	item := registerItem(t, "RSK-INT-002", domain.SeverityHigh)
	require.NoError(t, repo.Save(ctx, item))

	require.NoError(t, item.Reassess(domain.SeverityLow, domain.LikelihoodRare, "USR-FSTL-02"))
	require.NoError(t, repo.Save(ctx, item))

	found, err := repo.FindByRiskID(ctx, item.RiskID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, domain.SeverityLow, found.Severity)
	assert.Equal(t, 2, found.RiskScore)

	count, err := repo.Count(ctx, domain.RiskFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRiskRepository_ListSortsByScore(t *testing.T) {
	repo, cleanup := setupRiskRepository(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	low := registerItem(t, "RSK-INT-010", domain.SeverityVeryLow)
	high := registerItem(t, "RSK-INT-011", domain.SeverityVeryHigh)
	require.NoError(t, repo.Save(ctx, low))
	require.NoError(t, repo.Save(ctx, high))

	items, err := repo.List(ctx, domain.RiskFilter{}, domain.Pagination{Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, high.RiskID, items[0].RiskID)
	assert.Equal(t, low.RiskID, items[1].RiskID)

	minScore := 10
	filtered, err := repo.List(ctx, domain.RiskFilter{MinScore: &minScore}, domain.Pagination{Limit: 10})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, high.RiskID, filtered[0].RiskID)
}
