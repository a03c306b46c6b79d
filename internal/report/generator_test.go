package report

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/internal/contracts/mocks"
	"github.com/wonny/folio/backend/pkg/logger"
)

type generatorTestComponents struct {
	generator *Generator
	users     *mocks.UserRepository
	positions *mocks.PositionRepository
	reports   *mocks.ReportRepository
	market    *mocks.MarketData
}

func setupGeneratorTest(t *testing.T) generatorTestComponents {
	t.Helper()
	c := generatorTestComponents{
		users:     new(mocks.UserRepository),
		positions: new(mocks.PositionRepository),
		reports:   new(mocks.ReportRepository),
		market:    new(mocks.MarketData),
	}
	c.generator = NewGenerator(c.users, c.positions, c.reports, c.market, logger.NewNop())
	return c
}

var testUser = &contracts.EligibleUser{ID: "u1", Email: "a@example.com", AlertThreshold: 5}

func TestGenerateDailyReportCreates(t *testing.T) {
	c := setupGeneratorTest(t)
	ctx := context.Background()

	c.users.On("GetUser", ctx, "u1").Return(testUser, nil)
	c.reports.On("FindDailyReport", ctx, "u1", reportDay).Return(nil, nil)
	c.positions.On("ListPositions", ctx, "u1").Return(samplePositions(), nil)
	c.market.On("GetQuotes", ctx, []string{"AAPL", "MSFT", "XOM", "TSLA"}).Return(sampleQuotes(), nil)
	c.reports.On("CreateDailyReport", ctx, mock.MatchedBy(func(r *contracts.DailyReport) bool {
		return r.UserID == "u1" && r.ReportDate.Equal(reportDay) && len(r.SignificantMovers) == 2
	})).Return(func() *contracts.DailyReportRecord {
		rec := &contracts.DailyReportRecord{ID: "r1"}
		rec.UserID = "u1"
		rec.ReportDate = reportDay
		return rec
	}(), nil)

	rec, err := c.generator.GenerateDailyReport(ctx, "u1", reportDay)
	require.NoError(t, err)
	assert.Equal(t, "r1", rec.ID)

	c.users.AssertExpectations(t)
	c.reports.AssertExpectations(t)
	c.positions.AssertExpectations(t)
	c.market.AssertExpectations(t)
}

func TestGenerateDailyReportReusesExisting(t *testing.T) {
	c := setupGeneratorTest(t)
	ctx := context.Background()

	existing := &contracts.DailyReportRecord{ID: "r0"}
	c.users.On("GetUser", ctx, "u1").Return(testUser, nil)
	c.reports.On("FindDailyReport", ctx, "u1", reportDay).Return(existing, nil)

	rec, err := c.generator.GenerateDailyReport(ctx, "u1", reportDay)
	require.NoError(t, err)
	assert.Same(t, existing, rec)

	c.positions.AssertNotCalled(t, "ListPositions", mock.Anything, mock.Anything)
	c.reports.AssertNotCalled(t, "CreateDailyReport", mock.Anything, mock.Anything)
}

func TestGenerateDailyReportLosesRace(t *testing.T) {
	c := setupGeneratorTest(t)
	ctx := context.Background()

	winner := &contracts.DailyReportRecord{ID: "r-winner"}
	c.users.On("GetUser", ctx, "u1").Return(testUser, nil)
	c.reports.On("FindDailyReport", ctx, "u1", reportDay).Return(nil, nil).Once()
	c.positions.On("ListPositions", ctx, "u1").Return(samplePositions(), nil)
	c.market.On("GetQuotes", ctx, mock.Anything).Return(sampleQuotes(), nil)
	c.reports.On("CreateDailyReport", ctx, mock.Anything).
		Return(nil, fmt.Errorf("%w: u1", contracts.ErrReportExists))
	c.reports.On("FindDailyReport", ctx, "u1", reportDay).Return(winner, nil).Once()

	rec, err := c.generator.GenerateDailyReport(ctx, "u1", reportDay)
	require.NoError(t, err)
	assert.Equal(t, "r-winner", rec.ID)
	c.reports.AssertExpectations(t)
}

func TestGenerateDailyReportUserNotFound(t *testing.T) {
	c := setupGeneratorTest(t)
	ctx := context.Background()

	c.users.On("GetUser", ctx, "ghost").Return(nil, contracts.ErrUserNotFound)

	_, err := c.generator.GenerateDailyReport(ctx, "ghost", reportDay)
	assert.ErrorIs(t, err, contracts.ErrUserNotFound)
	c.reports.AssertNotCalled(t, "FindDailyReport", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateDailyReportQuoteFailure(t *testing.T) {
	c := setupGeneratorTest(t)
	ctx := context.Background()

	c.users.On("GetUser", ctx, "u1").Return(testUser, nil)
	c.reports.On("FindDailyReport", ctx, "u1", reportDay).Return(nil, nil)
	c.positions.On("ListPositions", ctx, "u1").Return(samplePositions(), nil)
	c.market.On("GetQuotes", ctx, mock.Anything).Return(nil, errors.New("quote batch interrupted"))

	_, err := c.generator.GenerateDailyReport(ctx, "u1", reportDay)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch quotes")
	c.reports.AssertNotCalled(t, "CreateDailyReport", mock.Anything, mock.Anything)
}

func TestGenerateDailyReportUsesCallerDate(t *testing.T) {
	c := setupGeneratorTest(t)
	ctx := context.Background()

	// 08:00 on March 16 in Tokyo is still March 15 in New York
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	day := contracts.ReportDate(time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC), tokyo)
	require.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), day)

	c.users.On("GetUser", ctx, "u1").Return(testUser, nil)
	c.reports.On("FindDailyReport", ctx, "u1", day).Return(nil, nil)
	c.positions.On("ListPositions", ctx, "u1").Return(samplePositions(), nil)
	c.market.On("GetQuotes", ctx, mock.Anything).Return(sampleQuotes(), nil)
	c.reports.On("CreateDailyReport", ctx, mock.MatchedBy(func(r *contracts.DailyReport) bool {
		return r.ReportDate.Equal(day)
	})).Return(&contracts.DailyReportRecord{ID: "r1"}, nil)

	rec, err := c.generator.GenerateDailyReport(ctx, "u1", day)
	require.NoError(t, err)
	assert.Equal(t, "r1", rec.ID)
	c.reports.AssertExpectations(t)
}
