package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
)

// FriendRequest is a request between two users, named by username.
type FriendRequest struct {
	ID        int64     `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func areFriends(ctx context.Context, q querier, a, b int64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM friendships WHERE user_id = ? AND friend_id = ?`, a, b).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check friendship: %w", err)
	}
	return n > 0, nil
}

// SendFriendRequest records a pending request from senderID to receiverID.
// A pending request in either direction counts as a duplicate, which keeps
// replays of the same confirmed action from creating a second row.
func (s *Store) SendFriendRequest(ctx context.Context, senderID, receiverID int64) (FriendRequest, error) {
	if senderID == receiverID {
		return FriendRequest{}, ErrSelfTarget
	}

	var req FriendRequest
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		friends, err := areFriends(ctx, tx, senderID, receiverID)
		if err != nil {
			return err
		}
		if friends {
			return ErrAlreadyFriends
		}

		var pending int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM friend_requests
			  WHERE status = 'pending'
			    AND ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))`,
			senderID, receiverID, receiverID, senderID).Scan(&pending)
		if err != nil {
			return fmt.Errorf("failed to check pending requests: %w", err)
		}
		if pending > 0 {
			return ErrDuplicateRequest
		}

		now := s.stamp()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO friend_requests (sender_id, receiver_id, status, created_at) VALUES (?, ?, 'pending', ?)`,
			senderID, receiverID, now)
		if err != nil {
			return fmt.Errorf("failed to create friend request: %w", err)
		}
		req.ID, _ = res.LastInsertId()
		req.Status = StatusPending
		req.CreatedAt = fromStamp(now)
		return nil
	})
	if err != nil {
		return FriendRequest{}, err
	}

	s.log.Info("friend request sent", zap.Int64("from", senderID), zap.Int64("to", receiverID))
	return req, nil
}

// AcceptFriendRequest accepts the pending request senderID sent to
// receiverID and records the friendship in both directions.
func (s *Store) AcceptFriendRequest(ctx context.Context, receiverID, senderID int64) error {
	if senderID == receiverID {
		return ErrSelfTarget
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM friend_requests WHERE sender_id = ? AND receiver_id = ? AND status = 'pending'`,
			senderID, receiverID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			friends, ferr := areFriends(ctx, tx, receiverID, senderID)
			if ferr != nil {
				return ferr
			}
			if friends {
				return ErrAlreadyFriends
			}
			return fmt.Errorf("friend request: %w", ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load friend request: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE friend_requests SET status = 'accepted' WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to accept friend request: %w", err)
		}
		now := s.stamp()
		for _, pair := range [][2]int64{{receiverID, senderID}, {senderID, receiverID}} {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO friendships (user_id, friend_id, created_at) VALUES (?, ?, ?)`,
				pair[0], pair[1], now); err != nil {
				return fmt.Errorf("failed to record friendship: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) ListFriends(ctx context.Context, userID int64) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.username, u.display_name, u.created_at
		   FROM friendships f JOIN users u ON u.id = f.friend_id
		  WHERE f.user_id = ?
		  ORDER BY u.username`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	return collectUsers(rows)
}

// PendingRequests returns the pending requests addressed to userID and those
// userID has sent.
func (s *Store) PendingRequests(ctx context.Context, userID int64) (incoming, outgoing []FriendRequest, err error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, su.username, ru.username, r.status, r.created_at, r.receiver_id = ?
		   FROM friend_requests r
		   JOIN users su ON su.id = r.sender_id
		   JOIN users ru ON ru.id = r.receiver_id
		  WHERE r.status = 'pending' AND (r.sender_id = ? OR r.receiver_id = ?)
		  ORDER BY r.created_at, r.id`, userID, userID, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list friend requests: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r FriendRequest
		var created int64
		var mine bool
		if err := rows.Scan(&r.ID, &r.From, &r.To, &r.Status, &created, &mine); err != nil {
			return nil, nil, fmt.Errorf("scan failed: %w", err)
		}
		r.CreatedAt = fromStamp(created)
		if mine {
			incoming = append(incoming, r)
		} else {
			outgoing = append(outgoing, r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return incoming, outgoing, nil
}
