package contracts

import "errors"

// Sentinel errors shared by collaborators.
// Messages matter: the orchestrator classifies by message text.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrReportNotFound = errors.New("daily report not found")
	ErrReportExists   = errors.New("daily report already exists")
	ErrInvalidEmail   = errors.New("invalid email address")
	ErrEmailDisabled  = errors.New("email notifications disabled")
	ErrInvalidPeriod  = errors.New("invalid history period")

	// ErrDeliveryClaimed means another worker holds the send lease
	ErrDeliveryClaimed = errors.New("daily report delivery already claimed")
)
