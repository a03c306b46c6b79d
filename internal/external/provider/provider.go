// Package provider defines the quote provider contract and its error taxonomy.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/pkg/httputil"
)

// Provider is one upstream market data source
// ⭐ SSOT: 시세 공급자 인터페이스
type Provider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (*contracts.Quote, error)
	Search(ctx context.Context, query string) ([]Match, error)
	History(ctx context.Context, symbol string, period contracts.Period) ([]contracts.HistoricalPoint, error)
}

// Match is one symbol search hit
type Match struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Region   string `json:"region,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// Kind separates failures a second provider could fix from those it could not
type Kind int

const (
	// KindSoft covers network failures, timeouts and unexpected payloads
	KindSoft Kind = iota
	// KindHard covers explicit error payloads and rate-limit signals
	KindHard
)

func (k Kind) String() string {
	if k == KindHard {
		return "hard"
	}
	return "soft"
}

// Error is a classified provider failure
type Error struct {
	Provider   string
	Op         string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s (%s, status %d): %v", e.Provider, e.Op, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s (%s): %v", e.Provider, e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrRateLimited marks an explicit upstream throttling signal
var ErrRateLimited = errors.New("rate limited")

// ErrNoData marks an empty payload for a symbol
var ErrNoData = errors.New("no data returned")

// Hard wraps err as an explicit provider failure
func Hard(provider, op string, err error) *Error {
	return &Error{Provider: provider, Op: op, Kind: KindHard, Err: err}
}

// Soft wraps err as a transient or shape failure
func Soft(provider, op string, err error) *Error {
	return &Error{Provider: provider, Op: op, Kind: KindSoft, Err: err}
}

// FromHTTP classifies a transport error from httputil. 429 is a rate-limit
// signal and therefore hard; everything else (network, 5xx after retries,
// other 4xx) is soft.
func FromHTTP(provider, op string, err error) *Error {
	status := httputil.StatusCode(err)
	kind := KindSoft
	if status == http.StatusTooManyRequests {
		kind = KindHard
		err = fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return &Error{Provider: provider, Op: op, Kind: kind, StatusCode: status, Err: err}
}

// IsHard reports whether err carries a hard provider failure
func IsHard(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindHard
}
