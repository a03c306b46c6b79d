// Package report builds and persists users' daily portfolio reports.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/pkg/logger"
)

// Generator implements contracts.ReportGenerator
// ⭐ SSOT: 일일 리포트 생성은 여기서만
type Generator struct {
	users     contracts.UserRepository
	positions contracts.PositionRepository
	reports   contracts.ReportRepository
	market    contracts.MarketData
	logger    *logger.Logger
}

// NewGenerator creates a generator. Report dates come from the caller,
// which owns the run's timezone and start instant.
func NewGenerator(
	users contracts.UserRepository,
	positions contracts.PositionRepository,
	reports contracts.ReportRepository,
	market contracts.MarketData,
	log *logger.Logger,
) *Generator {
	return &Generator{
		users:     users,
		positions: positions,
		reports:   reports,
		market:    market,
		logger:    log.WithComponent("report"),
	}
}

var _ contracts.ReportGenerator = (*Generator)(nil)

// GenerateDailyReport returns the record for (userID, date), creating it if
// needed. date is a report date as produced by contracts.ReportDate; an
// existing record is returned as is.
func (g *Generator) GenerateDailyReport(ctx context.Context, userID string, date time.Time) (*contracts.DailyReportRecord, error) {
	user, err := g.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := g.reports.FindDailyReport(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to look up daily report: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	positions, err := g.positions.ListPositions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}

	quotes, err := g.market.GetQuotes(ctx, symbols(positions))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quotes: %w", err)
	}
	if len(quotes) < len(positions) {
		g.logger.WithFields(map[string]interface{}{
			"user_id":   userID,
			"positions": len(positions),
			"quotes":    len(quotes),
		}).Warn("Missing quotes, valuing at average cost")
	}

	report := Build(userID, date, user.AlertThreshold, positions, quotes)

	record, err := g.reports.CreateDailyReport(ctx, report)
	if errors.Is(err, contracts.ErrReportExists) {
		// another writer won the race for (user, date)
		existing, findErr := g.reports.FindDailyReport(ctx, userID, date)
		if findErr != nil {
			return nil, fmt.Errorf("failed to reload daily report: %w", findErr)
		}
		if existing == nil {
			return nil, err
		}
		return existing, nil
	}
	if err != nil {
		return nil, err
	}

	g.logger.WithFields(map[string]interface{}{
		"user_id":         userID,
		"report_id":       record.ID,
		"portfolio_value": record.PortfolioValue,
		"movers":          len(record.SignificantMovers),
	}).Info("Daily report generated")

	return record, nil
}

func symbols(positions []contracts.Position) []string {
	out := make([]string, 0, len(positions))
	for _, p := range positions {
		out = append(out, p.Symbol)
	}
	return out
}
