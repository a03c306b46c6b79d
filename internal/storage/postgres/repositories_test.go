package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/folio/backend/internal/contracts"
)

func setupStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewStore(mockPool), mockPool
}

var userColumns = []string{"id", "email", "name", "email_enabled", "daily_update_enabled", "weekends_enabled", "alert_threshold"}

func TestFindEligibleUsers(t *testing.T) {
	store, mockPool := setupStore(t)

	rows := mockPool.NewRows(userColumns).
		AddRow("u1", "a@example.com", "Ann", true, true, false, 5.0).
		AddRow("u2", "b@example.com", "Bob", true, true, true, 2.5)

	mockPool.ExpectQuery(`FROM users u\s+JOIN notification_preferences p`).
		WithArgs(false).
		WillReturnRows(rows)

	users, err := store.Users.FindEligibleUsers(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u1", users[0].ID)
	assert.Equal(t, 2.5, users[1].AlertThreshold)
	assert.True(t, users[1].WeekendsEnabled)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestFindEligibleUsersDBError(t *testing.T) {
	store, mockPool := setupStore(t)

	mockPool.ExpectQuery(`FROM users u`).WithArgs(true).WillReturnError(errors.New("connection reset"))

	_, err := store.Users.FindEligibleUsers(context.Background(), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetUser(t *testing.T) {
	store, mockPool := setupStore(t)

	t.Run("Found", func(t *testing.T) {
		mockPool.ExpectQuery(`LEFT JOIN notification_preferences`).
			WithArgs("u1").
			WillReturnRows(mockPool.NewRows(userColumns).AddRow("u1", "a@example.com", "Ann", true, false, false, 5.0))

		u, err := store.Users.GetUser(context.Background(), "u1")
		require.NoError(t, err)
		assert.False(t, u.DailyUpdateEnabled)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mockPool.ExpectQuery(`LEFT JOIN notification_preferences`).
			WithArgs("ghost").
			WillReturnError(pgx.ErrNoRows)

		_, err := store.Users.GetUser(context.Background(), "ghost")
		assert.ErrorIs(t, err, contracts.ErrUserNotFound)
		assert.Contains(t, err.Error(), "not found")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestListPositions(t *testing.T) {
	store, mockPool := setupStore(t)

	mockPool.ExpectQuery(`FROM positions`).
		WithArgs("u1").
		WillReturnRows(mockPool.NewRows([]string{"id", "user_id", "symbol", "quantity", "avg_cost", "sector"}).
			AddRow("p1", "u1", "AAPL", 10.0, 150.0, "Technology").
			AddRow("p2", "u1", "XOM", 5.0, 100.0, ""))

	positions, err := store.Positions.ListPositions(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, "Technology", positions[0].Sector)
	assert.Equal(t, 5.0, positions[1].Quantity)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

var reportColumns = []string{
	"id", "user_id", "report_date", "portfolio_value", "change", "change_percent",
	"significant_movers", "sector_performance", "summary", "email_sent", "email_sent_at", "created_at",
}

func TestFindDailyReport(t *testing.T) {
	store, mockPool := setupStore(t)
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	sentAt := date.Add(13 * time.Hour)

	t.Run("Found", func(t *testing.T) {
		mockPool.ExpectQuery(`FROM daily_reports`).
			WithArgs("u1", date).
			WillReturnRows(mockPool.NewRows(reportColumns).AddRow(
				"r1", "u1", date, 10500.0, 500.0, 5.0,
				[]byte(`[{"symbol":"AAPL","price":190,"change":10,"change_percent":5.5,"value":1900}]`),
				[]byte(`[{"sector":"Technology","value":1900,"change":100,"change_percent":5.5,"weight":0.18}]`),
				"Up 5%", true, &sentAt, date,
			))

		rec, err := store.Reports.FindDailyReport(context.Background(), "u1", date)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.True(t, rec.EmailSent)
		require.NotNil(t, rec.EmailSentAt)
		assert.Equal(t, sentAt, *rec.EmailSentAt)
		require.Len(t, rec.SignificantMovers, 1)
		assert.Equal(t, "AAPL", rec.SignificantMovers[0].Symbol)
		assert.Equal(t, "Technology", rec.SectorPerformance[0].Sector)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Absent", func(t *testing.T) {
		mockPool.ExpectQuery(`FROM daily_reports`).
			WithArgs("u2", date).
			WillReturnError(pgx.ErrNoRows)

		rec, err := store.Reports.FindDailyReport(context.Background(), "u2", date)
		require.NoError(t, err)
		assert.Nil(t, rec)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestCreateDailyReport(t *testing.T) {
	store, mockPool := setupStore(t)
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	report := &contracts.DailyReport{
		UserID:         "u1",
		ReportDate:     date,
		PortfolioValue: 10500,
		Change:         500,
		ChangePercent:  5,
		Summary:        "Up 5%",
	}

	t.Run("Created", func(t *testing.T) {
		created := time.Now().UTC()
		mockPool.ExpectQuery(`INSERT INTO daily_reports`).
			WithArgs("u1", date, 10500.0, 500.0, 5.0, pgxmock.AnyArg(), pgxmock.AnyArg(), "Up 5%").
			WillReturnRows(mockPool.NewRows([]string{"id", "created_at"}).AddRow("r1", created))

		rec, err := store.Reports.CreateDailyReport(context.Background(), report)
		require.NoError(t, err)
		assert.Equal(t, "r1", rec.ID)
		assert.False(t, rec.EmailSent)
		assert.Equal(t, created, rec.CreatedAt)
		assert.Equal(t, "u1", rec.UserID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Duplicate", func(t *testing.T) {
		mockPool.ExpectQuery(`INSERT INTO daily_reports`).
			WithArgs("u1", date, 10500.0, 500.0, 5.0, pgxmock.AnyArg(), pgxmock.AnyArg(), "Up 5%").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "daily_reports_user_date_uidx"})

		_, err := store.Reports.CreateDailyReport(context.Background(), report)
		assert.ErrorIs(t, err, contracts.ErrReportExists)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestMarkEmailSent(t *testing.T) {
	store, mockPool := setupStore(t)
	at := time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC)

	mockPool.ExpectExec(`UPDATE daily_reports`).
		WithArgs("r1", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, store.Reports.MarkEmailSent(context.Background(), "r1", at))

	mockPool.ExpectExec(`UPDATE daily_reports`).
		WithArgs("missing", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err := store.Reports.MarkEmailSent(context.Background(), "missing", at)
	assert.ErrorIs(t, err, contracts.ErrReportNotFound)

	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestClaimEmailSend(t *testing.T) {
	store, mockPool := setupStore(t)
	at := time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC)
	stale := at.Add(-10 * time.Minute)

	t.Run("Claimed", func(t *testing.T) {
		mockPool.ExpectExec(`UPDATE daily_reports\s+SET email_claimed_at = \$2`).
			WithArgs("r1", at, stale).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		ok, err := store.Reports.ClaimEmailSend(context.Background(), "r1", at, stale)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("HeldElsewhere", func(t *testing.T) {
		mockPool.ExpectExec(`UPDATE daily_reports\s+SET email_claimed_at = \$2`).
			WithArgs("r1", at, stale).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		ok, err := store.Reports.ClaimEmailSend(context.Background(), "r1", at, stale)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Release", func(t *testing.T) {
		mockPool.ExpectExec(`SET email_claimed_at = NULL`).
			WithArgs("r1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, store.Reports.ReleaseEmailClaim(context.Background(), "r1"))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestEnsureSchema(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectBegin()
	for range Schema {
		mockPool.ExpectExec(`CREATE|ALTER`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}
	mockPool.ExpectCommit()

	require.NoError(t, EnsureSchema(context.Background(), mockPool))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
