package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidPITag is returned when a string does not follow the PI tag layout.
var ErrInvalidPITag = errors.New("invalid PI tag")

// piTagRe matches "<plant>-B<block>-[PCS<pcs>-]WS<ws>-<measurement>" with
// '-', '_' or '.' as separators, e.g. "SUN1-B02-PCS05-WS01-GHI".
var piTagRe = regexp.MustCompile(`(?i)^([a-z0-9]+)[-_.]b(\d{1,3})[-_.](?:pcs(\d{1,3})[-_.])?ws(\d{1,3})[-_.]([a-z0-9][a-z0-9_]*)$`)

// PITag is a parsed sensor identifier.
type PITag struct {
	Raw         string `json:"raw"`
	Plant       string `json:"plant"`
	Block       string `json:"block"`
	PCS         string `json:"pcs,omitempty"`
	WS          string `json:"ws"`
	Measurement string `json:"measurement"`
}

// ParsePITag splits a PI tag into its hierarchy parts. Plant and measurement
// are upper-cased and numeric parts are zero-padded to two digits.
func ParsePITag(s string) (PITag, error) {
	raw := strings.TrimSpace(s)
	m := piTagRe.FindStringSubmatch(raw)
	if m == nil {
		return PITag{}, fmt.Errorf("%w: %q", ErrInvalidPITag, s)
	}
	tag := PITag{
		Raw:         raw,
		Plant:       strings.ToUpper(m[1]),
		Block:       padNumber(m[2]),
		WS:          padNumber(m[4]),
		Measurement: strings.ToUpper(m[5]),
	}
	if m[3] != "" {
		tag.PCS = padNumber(m[3])
	}
	return tag, nil
}

// StationID returns the canonical station key, e.g. "B02-PCS05-WS01".
func (t PITag) StationID() string {
	return StationID(t.Block, t.PCS, t.WS)
}

// Label returns the display label, e.g. "B02 / PCS05 / WS01".
func (t PITag) Label() string {
	parts := []string{"B" + t.Block}
	if t.PCS != "" {
		parts = append(parts, "PCS"+t.PCS)
	}
	parts = append(parts, "WS"+t.WS)
	return strings.Join(parts, " / ")
}

// BlockKey returns the block as stored in the warehouse, e.g. "B02".
func (t PITag) BlockKey() string { return "B" + t.Block }

// PCSKey returns the PCS as stored in the warehouse, e.g. "PCS05", or "".
func (t PITag) PCSKey() string {
	if t.PCS == "" {
		return ""
	}
	return "PCS" + t.PCS
}

// StationID builds the canonical station key from hierarchy parts. The
// parts may be given with or without their prefixes ("2", "02", "B02").
func StationID(block, pcs, ws string) string {
	parts := []string{"B" + padNumber(trimPrefixFold(block, "B"))}
	if pcs = strings.TrimSpace(pcs); pcs != "" {
		parts = append(parts, "PCS"+padNumber(trimPrefixFold(pcs, "PCS")))
	}
	parts = append(parts, "WS"+padNumber(trimPrefixFold(ws, "WS")))
	return strings.Join(parts, "-")
}

func trimPrefixFold(s, prefix string) string {
	s = strings.TrimSpace(s)
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):]
	}
	return s
}

func padNumber(s string) string {
	n, err := strconv.Atoi(s)
	if err != nil {
		return strings.ToUpper(s)
	}
	return fmt.Sprintf("%02d", n)
}
