// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package tracking

import (
	"math"
	"sync"

	"github.com/relabs-tech/fusion_tracker/internal/geo"
	"github.com/relabs-tech/fusion_tracker/internal/telemetry"
)

// State of a tracking session.
type State int

const (
	StateIdle State = iota
	StateAwaitingFix
	StateTracking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingFix:
		return "awaiting_fix"
	case StateTracking:
		return "tracking"
	default:
		return "unknown"
	}
}

// anchorEpsilon is the latitude delta below which two successive fixes are
// treated as the same anchor and no re-origin happens.
const anchorEpsilon = 1e-6

// Offset is the operator-configured static offset between the GPS anchor and
// the indoor reference origin.
type Offset struct {
	DistanceM  float64
	BearingDeg float64
}

// Anchor is the latest trusted absolute fix. Locked is explicit: a real fix
// at exactly (0,0) is a valid anchor, not "unset".
type Anchor struct {
	Position geo.Point
	Locked   bool
}

// Sink receives tracking events. Callbacks run synchronously while the
// session lock is held; implementations must not call back into the session.
type Sink interface {
	OnOriginEstablished(origin, anchor geo.Point)
	OnPositionUpdated(position geo.Point, headingDeg float64)
}

// Session fuses absolute GPS fixes with relative indoor displacement into
// one continuous path. It is the only owner of the anchor, origin and path;
// both pollers feed it through Submit* and every transition happens under
// one mutex.
//
// Each Start bumps an epoch and submissions must carry it, so a result from
// a request that was in flight when the session stopped is discarded instead
// of resurrecting state.
type Session struct {
	mu    sync.Mutex
	sink  Sink
	state State
	epoch uint64

	offset Offset
	anchor Anchor
	origin geo.Point
	path   []geo.Point
}

// Snapshot is a copy of the session state for display layers.
type Snapshot struct {
	State  State
	Anchor Anchor
	Origin geo.Point
	Path   []geo.Point
}

func NewSession(sink Sink) *Session {
	return &Session{sink: sink}
}

// Start resets the session and begins waiting for the first fix. It returns
// the new epoch, which every subsequent Submit* call must present.
func (s *Session) Start(offset Offset) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.state = StateAwaitingFix
	s.offset = offset
	s.anchor = Anchor{}
	s.origin = geo.Point{}
	s.path = nil
	return s.epoch
}

// Stop returns the session to idle and clears all positional state. Late
// submissions from the stopped epoch are rejected from here on.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.state = StateIdle
	s.anchor = Anchor{}
	s.origin = geo.Point{}
	s.path = nil
}

// SubmitGPSFix applies an absolute fix. The first fix locks the anchor,
// derives the origin from the configured offset, reseeds the path and emits
// OnOriginEstablished. Later fixes do the same only when the latitude moved
// by more than anchorEpsilon; unchanged fixes are a no-op.
func (s *Session) SubmitGPSFix(epoch uint64, fix telemetry.Fix) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch || s.state == StateIdle {
		return
	}
	if s.anchor.Locked && math.Abs(fix.Lat-s.anchor.Position.Lat) <= anchorEpsilon {
		return
	}

	s.anchor = Anchor{Position: geo.Point{Lat: fix.Lat, Lon: fix.Lon}, Locked: true}
	s.origin = geo.OffsetPoint(s.anchor.Position, s.offset.DistanceM, s.offset.BearingDeg)
	s.path = append(s.path[:0], s.origin)
	s.state = StateTracking

	if s.sink != nil {
		s.sink.OnOriginEstablished(s.origin, s.anchor.Position)
	}
}

// SubmitIMUSample advances the current position by a displacement from the
// origin, appends it to the path and emits OnPositionUpdated. Samples
// arriving before an origin exists are ignored.
func (s *Session) SubmitIMUSample(epoch uint64, sample telemetry.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch || s.state != StateTracking {
		return
	}

	pos := geo.DisplacementPoint(s.origin, sample.NorthM, sample.EastM)
	s.path = append(s.path, pos)

	if s.sink != nil {
		s.sink.OnPositionUpdated(pos, sample.HeadingDeg)
	}
}

// Ready reports whether an origin is established for the given epoch, i.e.
// whether indoor polling is worth doing this cycle.
func (s *Session) Ready(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return epoch == s.epoch && s.state == StateTracking
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot copies the current state; the returned path is detached.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := make([]geo.Point, len(s.path))
	copy(path, s.path)
	return Snapshot{State: s.state, Anchor: s.anchor, Origin: s.origin, Path: path}
}
