package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Listing is a post on the community board.
type Listing struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"ownerId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *Store) CreateListing(ctx context.Context, ownerID int64, title, description, category string) (Listing, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Listing{}, fmt.Errorf("listing title is required")
	}

	now := s.stamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO listings (owner_id, title, description, category, created_at) VALUES (?, ?, ?, ?, ?)`,
		ownerID, title, description, category, now)
	if err != nil {
		return Listing{}, fmt.Errorf("failed to create listing: %w", err)
	}
	id, _ := res.LastInsertId()

	s.log.Info("listing created", zap.Int64("listing_id", id), zap.Int64("owner", ownerID))
	return Listing{
		ID:          id,
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Category:    category,
		CreatedAt:   fromStamp(now),
	}, nil
}

func (s *Store) ListListings(ctx context.Context, ownerID int64) ([]Listing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, title, description, category, created_at
		   FROM listings WHERE owner_id = ? ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	var out []Listing
	for rows.Next() {
		var l Listing
		var created int64
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.Title, &l.Description, &l.Category, &created); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		l.CreatedAt = fromStamp(created)
		out = append(out, l)
	}
	return out, rows.Err()
}
