package domain

import (
	"fmt"
	"strings"
	"time"
)

// Technology is the generation technology of a plant.
type Technology string

const (
	Solar Technology = "solar"
	Wind  Technology = "wind"
)

// ParseTechnology accepts "solar" or "wind" in any case. An empty string
// defaults to solar.
func ParseTechnology(s string) (Technology, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "solar", "pv":
		return Solar, nil
	case "wind":
		return Wind, nil
	default:
		return "", fmt.Errorf("%w: unknown technology %q", ErrInvalidQuery, s)
	}
}

// PlantLevel is the block or station key of plant-wide rows.
const PlantLevel = "ALL"

// Station is one weather station as registered in the warehouse.
type Station struct {
	ID         string     `json:"id" db:"station_id"`
	Plant      string     `json:"plant" db:"plant"`
	Block      string     `json:"block" db:"block"`
	PCS        string     `json:"pcs,omitempty" db:"pcs"`
	WS         string     `json:"ws" db:"ws"`
	PITag      string     `json:"pi_tag" db:"pi_tag"`
	Label      string     `json:"label" db:"label"`
	Technology Technology `json:"technology" db:"technology"`
	Lat        *float64   `json:"lat,omitempty" db:"lat"`
	Lon        *float64   `json:"lon,omitempty" db:"lon"`
}

// RefreshEvent announces that an analytic table was rebuilt upstream.
type RefreshEvent struct {
	Table       string    `json:"table"`
	Plant       string    `json:"plant,omitempty"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Validate checks that the event names a table that can be cached.
func (e RefreshEvent) Validate() error {
	if !ValidIdentifier(e.Table) {
		return fmt.Errorf("refresh event: invalid table %q", e.Table)
	}
	return nil
}
