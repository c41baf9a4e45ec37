package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/AEY-IP/aey-estimate-app-sub001/internal/pricing"
)

// CreateBlock appends a block, with its lines, to an estimate. RoomID is required for
// rooms estimates and rejected otherwise; ParentID is only allowed for designer estimates.
func (s *Store) CreateBlock(ctx context.Context, estimateID, roomID string, b pricing.Block) (pricing.Block, error) {
	e, err := s.LoadEstimate(ctx, estimateID)
	if err != nil {
		return pricing.Block{}, err
	}

	b.ID = ensureID(b.ID)
	b.Title = strings.TrimSpace(b.Title)
	seen := make(map[string]struct{}, len(b.Items))
	for i := range b.Items {
		b.Items[i].ID = ensureID(b.Items[i].ID)
		if _, err := pricing.PriceLine(b.Items[i], pricing.IdentityFactors()); err != nil {
			return pricing.Block{}, err
		}
		if _, dup := seen[b.Items[i].ID]; dup {
			return pricing.Block{}, fmt.Errorf("%w: duplicate line %s", ErrInvalidEstimate, b.Items[i].ID)
		}
		seen[b.Items[i].ID] = struct{}{}
	}

	switch {
	case e.Type == TypeRooms && roomID == "":
		return pricing.Block{}, fmt.Errorf("%w: rooms estimate blocks need a room", ErrInvalidEstimate)
	case e.Type != TypeRooms && roomID != "":
		return pricing.Block{}, fmt.Errorf("%w: only rooms estimates have rooms", ErrInvalidEstimate)
	case e.Type.Contractor() && b.ParentID != "":
		return pricing.Block{}, fmt.Errorf("block %s: %w", b.ID, ErrFlatEstimate)
	}

	if roomID != "" && !hasRoom(e.Rooms, roomID) {
		return pricing.Block{}, fmt.Errorf("room %s: %w", roomID, ErrNotFound)
	}
	if e.Type == TypeDesigner {
		if _, err := pricing.NewTree(append(e.PricingBlocks(), b)); err != nil {
			return pricing.Block{}, err
		}
	}

	var room any
	if roomID != "" {
		room = roomID
	}
	ids := make(map[string][]string)
	blockIDs(ids, []pricing.Block{b})
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureUnused(ctx, tx, ids); err != nil {
			return err
		}
		return insertBlock(ctx, tx, estimateID, room, b)
	})
	if err != nil {
		return pricing.Block{}, err
	}
	return b, nil
}

func hasRoom(rooms []pricing.Room, id string) bool {
	for _, r := range rooms {
		if r.ID == id {
			return true
		}
	}
	return false
}

// MoveBlock reparents a designer block. An empty newParentID makes it a root.
// A move that would place the block under itself or one of its descendants
// fails with pricing.ErrBlockCycle and leaves the tree unchanged.
func (s *Store) MoveBlock(ctx context.Context, blockID, newParentID string) error {
	var estimateID string
	err := s.db.QueryRowContext(ctx, `SELECT estimate_id FROM blocks WHERE id = ?`, blockID).Scan(&estimateID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("block %s: %w", blockID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("query block: %w", err)
	}

	e, err := s.LoadEstimate(ctx, estimateID)
	if err != nil {
		return err
	}
	if e.Type != TypeDesigner {
		return fmt.Errorf("block %s: %w", blockID, ErrFlatEstimate)
	}

	tree, err := pricing.NewTree(e.PricingBlocks())
	if err != nil {
		return fmt.Errorf("load block tree: %w", err)
	}
	if err := tree.CheckReparent(blockID, newParentID); err != nil {
		return err
	}

	var parent any
	if newParentID != "" {
		parent = newParentID
	}
	if _, err := s.db.ExecContext(ctx, `
		UPDATE blocks SET parent_id = ? WHERE id = ?
	`, parent, blockID); err != nil {
		return fmt.Errorf("move block: %w", err)
	}
	return nil
}

// DeleteBlock removes a block together with its descendants and their lines.
func (s *Store) DeleteBlock(ctx context.Context, blockID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM blocks WHERE id = ?`, blockID)
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	return requireAffected(result, "delete block "+blockID)
}
