package tracking

import (
	"github.com/relabs-tech/fusion_tracker/internal/geo"
)

// OriginEvent is published when a GPS fix establishes or moves the
// reference origin.
type OriginEvent struct {
	Origin geo.Point `json:"origin"`
	Anchor geo.Point `json:"anchor"`
}

// PositionEvent is published for every accepted indoor displacement sample.
type PositionEvent struct {
	Position   geo.Point `json:"position"`
	HeadingDeg float64   `json:"heading_deg"`
}
