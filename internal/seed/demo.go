package seed

import (
	"database/sql"
	"fmt"
)

type demoLine struct {
	id, kind, name, unit string
	quantity, unitPrice  float64
	manual               bool
}

type demoBlock struct {
	id, parentID, roomID, title string
	sortOrder                   int
	lines                       []demoLine
}

type demoRoom struct {
	id, name  string
	sortOrder int
}

type demoEstimate struct {
	id, title, client, kind, category string
	coefficients                      []string
	rooms                             []demoRoom
	// blocks are listed parents first.
	blocks []demoBlock
}

func demoEstimates() []demoEstimate {
	return []demoEstimate{
		{
			id:           "demo-rooms",
			title:        "Ремонт двухкомнатной квартиры",
			client:       "Петров П.",
			kind:         "rooms",
			category:     "Капитальный ремонт",
			coefficients: []string{"contractor-markup", "client-discount"},
			rooms: []demoRoom{
				{id: "demo-rooms-kitchen", name: "Кухня", sortOrder: 1},
				{id: "demo-rooms-bath", name: "Санузел", sortOrder: 2},
			},
			blocks: []demoBlock{
				{id: "demo-rooms-kitchen-walls", roomID: "demo-rooms-kitchen", title: "Стены", lines: []demoLine{
					{id: "demo-rooms-l1", kind: "work", name: "Штукатурка стен", unit: "м2", quantity: 32, unitPrice: 650},
					{id: "demo-rooms-l2", kind: "material", name: "Штукатурная смесь", unit: "мешок", quantity: 12, unitPrice: 480},
				}},
				{id: "demo-rooms-bath-tile", roomID: "demo-rooms-bath", title: "Плитка", lines: []demoLine{
					{id: "demo-rooms-l3", kind: "work", name: "Укладка плитки", unit: "м2", quantity: 18, unitPrice: 1800, manual: true},
					{id: "demo-rooms-l4", kind: "material", name: "Плиточный клей", unit: "мешок", quantity: 6, unitPrice: 520},
				}},
			},
		},
		{
			id:           "demo-designer",
			title:        "Дизайн-проект студии",
			client:       "Сидорова А.",
			kind:         "designer",
			category:     "Дизайн",
			coefficients: []string{"complex-object"},
			blocks: []demoBlock{
				{id: "demo-designer-prep", title: "Подготовительные работы", sortOrder: 1, lines: []demoLine{
					{id: "demo-designer-l1", kind: "work", name: "Демонтаж перегородок", unit: "м2", quantity: 14, unitPrice: 900},
				}},
				{id: "demo-designer-floor", parentID: "demo-designer-prep", title: "Пол", sortOrder: 1, lines: []demoLine{
					{id: "demo-designer-l2", kind: "work", name: "Стяжка пола", unit: "м2", quantity: 28, unitPrice: 750},
					{id: "demo-designer-l3", kind: "material", name: "Пескобетон", unit: "мешок", quantity: 40, unitPrice: 310},
				}},
				{id: "demo-designer-finish", title: "Чистовая отделка", sortOrder: 2, lines: []demoLine{
					{id: "demo-designer-l4", kind: "work", name: "Покраска стен", unit: "м2", quantity: 60, unitPrice: 420},
				}},
			},
		},
	}
}

func ensureEstimate(tx *sql.Tx, e demoEstimate, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM estimates WHERE id = ? LIMIT 1)`, e.id).Scan(&exists); err != nil {
		return fmt.Errorf("check demo estimate %s existence: %w", e.id, err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO estimates (id, title, client_name, type, category)
		VALUES (?, ?, ?, ?, ?)
	`, e.id, e.title, e.client, e.kind, e.category); err != nil {
		return fmt.Errorf("insert demo estimate %s: %w", e.id, err)
	}
	stats.Inserts++

	for _, id := range e.coefficients {
		if _, err := tx.Exec(`
			INSERT INTO estimate_coefficients (estimate_id, coefficient_id) VALUES (?, ?)
		`, e.id, id); err != nil {
			return fmt.Errorf("select demo coefficient %s: %w", id, err)
		}
	}

	for _, r := range e.rooms {
		if _, err := tx.Exec(`
			INSERT INTO rooms (id, estimate_id, name, sort_order) VALUES (?, ?, ?, ?)
		`, r.id, e.id, r.name, r.sortOrder); err != nil {
			return fmt.Errorf("insert demo room %s: %w", r.id, err)
		}
	}

	for _, b := range e.blocks {
		if _, err := tx.Exec(`
			INSERT INTO blocks (id, estimate_id, room_id, parent_id, title, sort_order)
			VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?)
		`, b.id, e.id, b.roomID, b.parentID, b.title, b.sortOrder); err != nil {
			return fmt.Errorf("insert demo block %s: %w", b.id, err)
		}
		for i, l := range b.lines {
			if _, err := tx.Exec(`
				INSERT INTO line_items (id, block_id, kind, name, unit, quantity, unit_price, sort_order)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, l.id, b.id, l.kind, l.name, l.unit, l.quantity, l.unitPrice, i); err != nil {
				return fmt.Errorf("insert demo line %s: %w", l.id, err)
			}
			if !l.manual {
				continue
			}
			if _, err := tx.Exec(`
				INSERT INTO estimate_manual_prices (estimate_id, line_id) VALUES (?, ?)
			`, e.id, l.id); err != nil {
				return fmt.Errorf("mark demo manual price %s: %w", l.id, err)
			}
		}
	}

	return nil
}
