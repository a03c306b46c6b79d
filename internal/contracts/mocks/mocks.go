// Package mocks holds testify mocks of the collaborator interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/wonny/folio/backend/internal/contracts"
)

// UserRepository mocks contracts.UserRepository
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) FindEligibleUsers(ctx context.Context, isWeekend bool) ([]contracts.EligibleUser, error) {
	args := m.Called(ctx, isWeekend)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]contracts.EligibleUser), args.Error(1)
}

func (m *UserRepository) GetUser(ctx context.Context, userID string) (*contracts.EligibleUser, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contracts.EligibleUser), args.Error(1)
}

// ReportRepository mocks contracts.ReportRepository
type ReportRepository struct {
	mock.Mock
}

func (m *ReportRepository) FindDailyReport(ctx context.Context, userID string, date time.Time) (*contracts.DailyReportRecord, error) {
	args := m.Called(ctx, userID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contracts.DailyReportRecord), args.Error(1)
}

func (m *ReportRepository) CreateDailyReport(ctx context.Context, report *contracts.DailyReport) (*contracts.DailyReportRecord, error) {
	args := m.Called(ctx, report)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contracts.DailyReportRecord), args.Error(1)
}

func (m *ReportRepository) ClaimEmailSend(ctx context.Context, reportID string, at, staleBefore time.Time) (bool, error) {
	args := m.Called(ctx, reportID, at, staleBefore)
	return args.Bool(0), args.Error(1)
}

func (m *ReportRepository) ReleaseEmailClaim(ctx context.Context, reportID string) error {
	args := m.Called(ctx, reportID)
	return args.Error(0)
}

func (m *ReportRepository) MarkEmailSent(ctx context.Context, reportID string, at time.Time) error {
	args := m.Called(ctx, reportID, at)
	return args.Error(0)
}

// PositionRepository mocks contracts.PositionRepository
type PositionRepository struct {
	mock.Mock
}

func (m *PositionRepository) ListPositions(ctx context.Context, userID string) ([]contracts.Position, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]contracts.Position), args.Error(1)
}

// ReportGenerator mocks contracts.ReportGenerator
type ReportGenerator struct {
	mock.Mock
}

func (m *ReportGenerator) GenerateDailyReport(ctx context.Context, userID string, date time.Time) (*contracts.DailyReportRecord, error) {
	args := m.Called(ctx, userID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contracts.DailyReportRecord), args.Error(1)
}

// DeliveryChannel mocks contracts.DeliveryChannel
type DeliveryChannel struct {
	mock.Mock
}

func (m *DeliveryChannel) Send(ctx context.Context, user *contracts.EligibleUser, record *contracts.DailyReportRecord) error {
	args := m.Called(ctx, user, record)
	return args.Error(0)
}

// MarketData mocks contracts.MarketData
type MarketData struct {
	mock.Mock
}

func (m *MarketData) GetQuote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contracts.Quote), args.Error(1)
}

func (m *MarketData) GetQuotes(ctx context.Context, symbols []string) ([]contracts.Quote, error) {
	args := m.Called(ctx, symbols)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]contracts.Quote), args.Error(1)
}

func (m *MarketData) ValidateSymbol(ctx context.Context, symbol string) bool {
	args := m.Called(ctx, symbol)
	return args.Bool(0)
}

func (m *MarketData) GetHistory(ctx context.Context, symbol string, period contracts.Period) ([]contracts.HistoricalPoint, error) {
	args := m.Called(ctx, symbol, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]contracts.HistoricalPoint), args.Error(1)
}

var (
	_ contracts.UserRepository     = (*UserRepository)(nil)
	_ contracts.ReportRepository   = (*ReportRepository)(nil)
	_ contracts.PositionRepository = (*PositionRepository)(nil)
	_ contracts.ReportGenerator    = (*ReportGenerator)(nil)
	_ contracts.DeliveryChannel    = (*DeliveryChannel)(nil)
	_ contracts.MarketData         = (*MarketData)(nil)
)
