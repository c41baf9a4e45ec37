package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCorrupt marks a stored payload that cannot be trusted as a snapshot.
var ErrCorrupt = errors.New("corrupt export snapshot")

// Encode serialises a snapshot. Struct field order fixes the key order, so equal
// snapshots encode to identical bytes.
func Encode(s Snapshot) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return raw, nil
}

// Decode parses a stored payload and checks it is internally consistent.
func Decode(raw []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := s.check(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

func (s Snapshot) check() error {
	switch {
	case s.Version < 1 || s.Version > CurrentVersion:
		return fmt.Errorf("%w: unsupported version %d", ErrCorrupt, s.Version)
	case s.EstimateID == "":
		return fmt.Errorf("%w: missing estimateId", ErrCorrupt)
	case s.WorksData == nil || s.MaterialsData == nil:
		return fmt.Errorf("%w: missing worksData or materialsData", ErrCorrupt)
	case s.TotalWorksPrice+s.TotalMaterialsPrice != s.GrandTotal:
		return fmt.Errorf("%w: grandTotal %v does not match %v + %v",
			ErrCorrupt, s.GrandTotal, s.TotalWorksPrice, s.TotalMaterialsPrice)
	}
	return nil
}

// PeekGrandTotal reads only the grand total of a stored payload, for listings.
func PeekGrandTotal(raw []byte) (float64, bool) {
	var head struct {
		GrandTotal *float64 `json:"grandTotal"`
	}
	if err := json.Unmarshal(raw, &head); err != nil || head.GrandTotal == nil {
		return 0, false
	}
	return *head.GrandTotal, true
}
