package dashboard

import (
	"context"
	"fmt"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
)

// EquipmentView is the formatted per-block equipment summary.
type EquipmentView struct {
	Plant      string            `json:"plant"`
	Technology domain.Technology `json:"technology"`
	Range      Range             `json:"range"`
	Table      domain.Table      `json:"table"`
}

// EquipmentSummary aggregates inverter (solar) or turbine (wind) metrics per
// block, with column labels and rounding from the catalog.
func (s *Service) EquipmentSummary(ctx context.Context, req Request) (_ *EquipmentView, err error) {
	defer func() { s.observeBuild("equipment", err) }()

	if req.Technology == "" {
		req.Technology = domain.Solar
	}
	q, err := s.query(req)
	if err != nil {
		return nil, err
	}

	t, err := s.repo.EquipmentSummary(ctx, q, q.Technology)
	if err != nil {
		return nil, fmt.Errorf("equipment summary: %w", err)
	}
	if t.Empty() {
		return nil, fmt.Errorf("%w: plant %s has no %s equipment data from %s to %s",
			ErrNoData, q.Plant, q.Technology, q.FromKey(), q.ToKey())
	}
	return &EquipmentView{
		Plant:      q.Plant,
		Technology: q.Technology,
		Range:      rangeOf(q),
		Table:      s.catalog.FormatTable(t),
	}, nil
}
