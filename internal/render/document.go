// Package render turns a frozen snapshot into client paperwork. Renderers only
// format numbers already present in the snapshot; they never price anything.
package render

import (
	"github.com/AEY-IP/aey-estimate-app-sub001/internal/snapshot"
)

// Document is everything a renderer needs.
type Document struct {
	Title       string
	Client      string
	Category    string
	CreatedDate string
	Currency    string
	Snapshot    snapshot.Snapshot
}

func (d Document) title() string {
	if d.Title == "" {
		return "Estimate"
	}
	return d.Title
}

type table struct {
	Name  string
	Rows  []snapshot.Row
	Total float64
}

func (d Document) tables() []table {
	return []table{
		{Name: "Works", Rows: d.Snapshot.WorksData, Total: d.Snapshot.TotalWorksPrice},
		{Name: "Materials", Rows: d.Snapshot.MaterialsData, Total: d.Snapshot.TotalMaterialsPrice},
	}
}
