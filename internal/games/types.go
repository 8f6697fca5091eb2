// Package games persists recognised positions per user.
package games

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/park285/fenscan/internal/fen"
)

var (
	ErrNotFound   = errors.New("game not found")
	ErrInvalidFEN = errors.New("invalid piece placement")
	ErrDuplicate  = errors.New("game already exists")
)

const (
	defaultListLimit = 20
	maxTitleLen      = 120
)

type Game struct {
	ID        int64     `json:"id"`
	UUID      string    `json:"uuid"`
	OwnerID   string    `json:"-"`
	Title     string    `json:"title"`
	FEN       string    `json:"fen"`
	ScanID    string    `json:"scan_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository interface {
	Insert(ctx context.Context, g *Game) (int64, error)
	List(ctx context.Context, ownerID string, limit int) ([]*Game, error)
	Get(ctx context.Context, id int64, ownerID string) (*Game, error)
	Close() error
}

// NewGame validates the placement and fills identity fields. Only the
// placement field of a full FEN record is kept.
func NewGame(ownerID, title, placement, scanID string) (*Game, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, errors.New("owner is required")
	}
	placement = strings.TrimSpace(placement)
	if i := strings.IndexByte(placement, ' '); i >= 0 {
		placement = placement[:i]
	}
	grid, err := fen.Decode(placement)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	normalized, err := fen.Encode(grid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	title = strings.TrimSpace(title)
	if r := []rune(title); len(r) > maxTitleLen {
		title = string(r[:maxTitleLen])
	}
	return &Game{
		UUID:      uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		FEN:       normalized,
		ScanID:    strings.TrimSpace(scanID),
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return defaultListLimit
	}
	return limit
}
