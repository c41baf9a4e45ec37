package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/AEY-IP/aey-estimate-app-sub001/internal/pricing"
	"github.com/AEY-IP/aey-estimate-app-sub001/internal/snapshot"
)

// EstimateType is the estimate variant. Apartment and rooms estimates are
// contractor estimates with flat blocks; designer estimates nest blocks freely.
type EstimateType string

const (
	TypeApartment EstimateType = "apartment"
	TypeRooms     EstimateType = "rooms"
	TypeDesigner  EstimateType = "designer"
)

func (t EstimateType) Valid() bool {
	switch t {
	case TypeApartment, TypeRooms, TypeDesigner:
		return true
	}
	return false
}

func (t EstimateType) Contractor() bool {
	return t == TypeApartment || t == TypeRooms
}

// Estimate is the persisted estimate with its full structure loaded.
type Estimate struct {
	ID           string
	Title        string
	ClientName   string
	Type         EstimateType
	Category     string
	Notes        string
	CreatedAt    time.Time
	Coefficients []string
	ManualPrices []string
	// Rooms is used by contractor estimates of type rooms.
	Rooms []pricing.Room
	// Blocks holds apartment blocks (flat) and designer blocks (nested).
	Blocks []pricing.Block
}

// PricingBlocks flattens the estimate into the block list the pricing engine
// consumes, with manual-price flags applied to the lines.
func (e Estimate) PricingBlocks() []pricing.Block {
	manual := make(map[string]struct{}, len(e.ManualPrices))
	for _, id := range e.ManualPrices {
		manual[id] = struct{}{}
	}

	var blocks []pricing.Block
	switch e.Type {
	case TypeRooms:
		blocks = pricing.RoomBlocks(e.Rooms)
	case TypeApartment:
		for _, b := range e.Blocks {
			b.ParentID = ""
			blocks = append(blocks, b)
		}
	default:
		blocks = append(blocks, e.Blocks...)
	}

	out := make([]pricing.Block, len(blocks))
	for i, b := range blocks {
		items := make([]pricing.LineItem, len(b.Items))
		for j, item := range b.Items {
			_, item.ManualPrice = manual[item.ID]
			items[j] = item
		}
		b.Items = items
		out[i] = b
	}
	return out
}

// PricingInput bundles the estimate with the live catalog.
func (e Estimate) PricingInput(catalog []pricing.Coefficient) pricing.Input {
	return pricing.Input{
		Catalog:  catalog,
		Selected: e.Coefficients,
		Blocks:   e.PricingBlocks(),
	}
}

// EstimateSummary is a list row. Total is the frozen export total when a snapshot exists.
type EstimateSummary struct {
	ID          string
	Title       string
	ClientName  string
	Type        EstimateType
	CreatedAt   time.Time
	Total       float64
	HasSnapshot bool
}

func validateEstimate(e Estimate) error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidEstimate)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEstimate, e.Type)
	}
	if e.Type == TypeRooms && len(e.Blocks) > 0 {
		return fmt.Errorf("%w: rooms estimate keeps its blocks inside rooms", ErrInvalidEstimate)
	}
	if e.Type != TypeRooms && len(e.Rooms) > 0 {
		return fmt.Errorf("%w: only rooms estimates have rooms", ErrInvalidEstimate)
	}
	if e.Type.Contractor() {
		for _, b := range e.Blocks {
			if b.ParentID != "" {
				return fmt.Errorf("block %s: %w", b.ID, ErrFlatEstimate)
			}
		}
		for _, r := range e.Rooms {
			for _, b := range r.Blocks {
				if b.ParentID != "" {
					return fmt.Errorf("block %s: %w", b.ID, ErrFlatEstimate)
				}
			}
		}
	}

	blocks := e.PricingBlocks()
	tree, err := pricing.NewTree(blocks)
	if err != nil {
		return err
	}
	// Pricing at identity factors rejects invalid numbers and totals that overflow.
	if _, err := pricing.Aggregate(tree, pricing.IdentityFactors()); err != nil {
		return err
	}

	roomIDs := make(map[string]struct{}, len(e.Rooms))
	for _, r := range e.Rooms {
		if _, dup := roomIDs[r.ID]; dup {
			return fmt.Errorf("%w: duplicate room %s", ErrInvalidEstimate, r.ID)
		}
		roomIDs[r.ID] = struct{}{}
	}
	lineIDs := make(map[string]struct{})
	for _, b := range blocks {
		for _, item := range b.Items {
			if _, dup := lineIDs[item.ID]; dup {
				return fmt.Errorf("%w: duplicate line %s", ErrInvalidEstimate, item.ID)
			}
			lineIDs[item.ID] = struct{}{}
		}
	}
	for _, id := range e.ManualPrices {
		if _, ok := lineIDs[id]; !ok {
			return fmt.Errorf("%w: manual price for unknown line %s", ErrInvalidEstimate, id)
		}
	}
	return nil
}

// estimateIDs lists the stored IDs an estimate would claim, by table.
func (e Estimate) estimateIDs() map[string][]string {
	ids := map[string][]string{"estimates": {e.ID}}
	for _, r := range e.Rooms {
		ids["rooms"] = append(ids["rooms"], r.ID)
		blockIDs(ids, r.Blocks)
	}
	blockIDs(ids, e.Blocks)
	return ids
}

func blockIDs(ids map[string][]string, blocks []pricing.Block) {
	for _, b := range blocks {
		ids["blocks"] = append(ids["blocks"], b.ID)
		for _, item := range b.Items {
			ids["line_items"] = append(ids["line_items"], item.ID)
		}
	}
}

// ensureUnused rejects client-supplied IDs already taken by another estimate.
func ensureUnused(ctx context.Context, tx *sql.Tx, ids map[string][]string) error {
	for _, table := range []string{"estimates", "rooms", "blocks", "line_items"} {
		for _, id := range ids[table] {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = ?)`, id,
			).Scan(&exists); err != nil {
				return fmt.Errorf("check %s id: %w", table, err)
			}
			if exists {
				return fmt.Errorf("%w: id %s is already used in %s", ErrInvalidEstimate, id, table)
			}
		}
	}
	return nil
}

// CreateEstimate stores an estimate with its rooms, blocks, lines and selections
// in one transaction. Empty IDs are generated.
func (s *Store) CreateEstimate(ctx context.Context, e Estimate) (Estimate, error) {
	e.ID = ensureID(e.ID)
	e.Title = strings.TrimSpace(e.Title)
	for i := range e.Rooms {
		e.Rooms[i].ID = ensureID(e.Rooms[i].ID)
		assignBlockIDs(e.Rooms[i].Blocks)
	}
	assignBlockIDs(e.Blocks)

	if err := validateEstimate(e); err != nil {
		return Estimate{}, err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureUnused(ctx, tx, e.estimateIDs()); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO estimates (id, title, client_name, type, category, notes)
			VALUES (?, ?, ?, ?, ?, ?)
		`, e.ID, e.Title, e.ClientName, string(e.Type), e.Category, e.Notes); err != nil {
			return fmt.Errorf("insert estimate: %w", err)
		}

		for _, r := range e.Rooms {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO rooms (id, estimate_id, name, sort_order)
				VALUES (?, ?, ?, ?)
			`, r.ID, e.ID, r.Name, r.SortOrder); err != nil {
				return fmt.Errorf("insert room %s: %w", r.ID, err)
			}
			if err := insertBlocks(ctx, tx, e.ID, r.ID, r.Blocks); err != nil {
				return err
			}
		}
		if err := insertBlocks(ctx, tx, e.ID, "", e.Blocks); err != nil {
			return err
		}

		if err := replaceSelection(ctx, tx, e.ID, e.Coefficients); err != nil {
			return err
		}
		for _, lineID := range e.ManualPrices {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO estimate_manual_prices (estimate_id, line_id)
				VALUES (?, ?)
			`, e.ID, lineID); err != nil {
				return fmt.Errorf("insert manual price %s: %w", lineID, err)
			}
		}
		return nil
	})
	if err != nil {
		return Estimate{}, err
	}

	return s.LoadEstimate(ctx, e.ID)
}

func assignBlockIDs(blocks []pricing.Block) {
	for i := range blocks {
		blocks[i].ID = ensureID(blocks[i].ID)
		for j := range blocks[i].Items {
			blocks[i].Items[j].ID = ensureID(blocks[i].Items[j].ID)
		}
	}
}

// insertBlocks writes parents before children so the self-referencing key holds.
func insertBlocks(ctx context.Context, tx *sql.Tx, estimateID, roomID string, blocks []pricing.Block) error {
	if len(blocks) == 0 {
		return nil
	}
	tree, err := pricing.NewTree(blocks)
	if err != nil {
		return err
	}

	var room any
	if roomID != "" {
		room = roomID
	}

	var walk func(parent string) error
	walk = func(parent string) error {
		for _, b := range tree.Children(parent) {
			if err := insertBlock(ctx, tx, estimateID, room, b); err != nil {
				return err
			}
			if err := walk(b.ID); err != nil {
				return err
			}
		}
		return nil
	}
	return walk("")
}

func insertBlock(ctx context.Context, tx *sql.Tx, estimateID string, room any, b pricing.Block) error {
	var parent any
	if b.ParentID != "" {
		parent = b.ParentID
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO blocks (id, estimate_id, room_id, parent_id, title, sort_order)
		VALUES (?, ?, ?, ?, ?, ?)
	`, b.ID, estimateID, room, parent, b.Title, b.SortOrder); err != nil {
		return fmt.Errorf("insert block %s: %w", b.ID, err)
	}
	for i, item := range b.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO line_items (id, block_id, kind, name, unit, quantity, unit_price, sort_order)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, item.ID, b.ID, string(item.Kind), item.Name, item.Unit, item.Quantity, item.UnitPrice, i); err != nil {
			return fmt.Errorf("insert line %s: %w", item.ID, err)
		}
	}
	return nil
}

// LoadEstimate reads an estimate and its whole structure. Stored values are
// returned as they are; validation happens when the estimate is priced.
func (s *Store) LoadEstimate(ctx context.Context, id string) (Estimate, error) {
	var e Estimate
	var kind, createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, client_name, type, category, notes, created_at
		FROM estimates
		WHERE id = ?
	`, id).Scan(&e.ID, &e.Title, &e.ClientName, &kind, &e.Category, &e.Notes, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Estimate{}, fmt.Errorf("estimate %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Estimate{}, fmt.Errorf("query estimate: %w", err)
	}
	e.Type = EstimateType(kind)
	e.CreatedAt = parseTime(createdAt)

	if e.Coefficients, err = s.queryIDs(ctx, `
		SELECT coefficient_id FROM estimate_coefficients WHERE estimate_id = ? ORDER BY coefficient_id
	`, id); err != nil {
		return Estimate{}, fmt.Errorf("query selected coefficients: %w", err)
	}
	if e.ManualPrices, err = s.queryIDs(ctx, `
		SELECT line_id FROM estimate_manual_prices WHERE estimate_id = ? ORDER BY line_id
	`, id); err != nil {
		return Estimate{}, fmt.Errorf("query manual prices: %w", err)
	}

	items, err := s.loadItems(ctx, id)
	if err != nil {
		return Estimate{}, err
	}
	rooms, err := s.loadRooms(ctx, id)
	if err != nil {
		return Estimate{}, err
	}
	byRoom, loose, err := s.loadBlocks(ctx, id, items)
	if err != nil {
		return Estimate{}, err
	}

	for i := range rooms {
		rooms[i].Blocks = byRoom[rooms[i].ID]
	}
	e.Rooms = rooms
	e.Blocks = loose

	return e, nil
}

func (s *Store) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) loadRooms(ctx context.Context, estimateID string) ([]pricing.Room, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, sort_order
		FROM rooms
		WHERE estimate_id = ?
		ORDER BY sort_order, id
	`, estimateID)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []pricing.Room
	for rows.Next() {
		var r pricing.Room
		if err := rows.Scan(&r.ID, &r.Name, &r.SortOrder); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}
	return rooms, nil
}

func (s *Store) loadBlocks(ctx context.Context, estimateID string, items map[string][]pricing.LineItem) (map[string][]pricing.Block, []pricing.Block, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(room_id, ''), COALESCE(parent_id, ''), title, sort_order
		FROM blocks
		WHERE estimate_id = ?
		ORDER BY sort_order, id
	`, estimateID)
	if err != nil {
		return nil, nil, fmt.Errorf("query blocks: %w", err)
	}
	defer rows.Close()

	byRoom := make(map[string][]pricing.Block)
	var loose []pricing.Block
	for rows.Next() {
		var b pricing.Block
		var roomID string
		if err := rows.Scan(&b.ID, &roomID, &b.ParentID, &b.Title, &b.SortOrder); err != nil {
			return nil, nil, fmt.Errorf("scan block: %w", err)
		}
		b.Items = items[b.ID]
		if roomID != "" {
			byRoom[roomID] = append(byRoom[roomID], b)
		} else {
			loose = append(loose, b)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate blocks: %w", err)
	}
	return byRoom, loose, nil
}

func (s *Store) loadItems(ctx context.Context, estimateID string) (map[string][]pricing.LineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT li.id, li.block_id, li.kind, li.name, li.unit, li.quantity, li.unit_price
		FROM line_items li
		JOIN blocks b ON b.id = li.block_id
		WHERE b.estimate_id = ?
		ORDER BY li.block_id, li.sort_order, li.id
	`, estimateID)
	if err != nil {
		return nil, fmt.Errorf("query line items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]pricing.LineItem)
	for rows.Next() {
		var item pricing.LineItem
		var blockID, kind string
		if err := rows.Scan(&item.ID, &blockID, &kind, &item.Name, &item.Unit, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		item.Kind = pricing.LineKind(kind)
		items[blockID] = append(items[blockID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate line items: %w", err)
	}
	return items, nil
}

// ListEstimates returns estimates whose title or client matches query, newest first.
func (s *Store) ListEstimates(ctx context.Context, query string) ([]EstimateSummary, error) {
	like := "%" + strings.TrimSpace(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			e.id,
			e.title,
			e.client_name,
			e.type,
			e.created_at,
			COALESCE(es.payload, '')
		FROM estimates e
		LEFT JOIN export_snapshots es ON es.estimate_id = e.id
		WHERE e.title LIKE ? OR e.client_name LIKE ?
		ORDER BY e.created_at DESC, e.id
	`, like, like)
	if err != nil {
		return nil, fmt.Errorf("query estimates: %w", err)
	}
	defer rows.Close()

	list := make([]EstimateSummary, 0)
	for rows.Next() {
		var row EstimateSummary
		var kind, createdAt, payload string
		if err := rows.Scan(&row.ID, &row.Title, &row.ClientName, &kind, &createdAt, &payload); err != nil {
			return nil, fmt.Errorf("scan estimate: %w", err)
		}
		row.Type = EstimateType(kind)
		row.CreatedAt = parseTime(createdAt)
		if payload != "" {
			row.Total, row.HasSnapshot = snapshot.PeekGrandTotal([]byte(payload))
		}
		list = append(list, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate estimates: %w", err)
	}
	return list, nil
}

// SelectCoefficients replaces the estimate's coefficient selection. IDs are
// stored even when absent from the catalog.
func (s *Store) SelectCoefficients(ctx context.Context, estimateID string, ids []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := estimateExists(ctx, tx, estimateID); err != nil {
			return err
		}
		return replaceSelection(ctx, tx, estimateID, ids)
	})
}

func replaceSelection(ctx context.Context, tx *sql.Tx, estimateID string, ids []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM estimate_coefficients WHERE estimate_id = ?`, estimateID); err != nil {
		return fmt.Errorf("clear coefficient selection: %w", err)
	}
	unique := append([]string(nil), ids...)
	sort.Strings(unique)
	for i, id := range unique {
		if id == "" || (i > 0 && unique[i-1] == id) {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO estimate_coefficients (estimate_id, coefficient_id)
			VALUES (?, ?)
		`, estimateID, id); err != nil {
			return fmt.Errorf("select coefficient %s: %w", id, err)
		}
	}
	return nil
}

// SetManualPrice overrides a line's unit price and marks it manual.
func (s *Store) SetManualPrice(ctx context.Context, estimateID, lineID string, price float64) error {
	if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return &pricing.LineError{LineID: lineID, Field: "unitPrice", Value: price, Err: pricing.ErrInvalidPrice}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE line_items
			SET unit_price = ?
			WHERE id = ?
				AND block_id IN (SELECT id FROM blocks WHERE estimate_id = ?)
		`, price, lineID, estimateID)
		if err != nil {
			return fmt.Errorf("update line price: %w", err)
		}
		if err := requireAffected(result, "line "+lineID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO estimate_manual_prices (estimate_id, line_id)
			VALUES (?, ?)
		`, estimateID, lineID); err != nil {
			return fmt.Errorf("mark manual price: %w", err)
		}
		return nil
	})
}

func estimateExists(ctx context.Context, tx *sql.Tx, id string) error {
	var found int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM estimates WHERE id = ?`, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("estimate %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("query estimate: %w", err)
	}
	return nil
}
