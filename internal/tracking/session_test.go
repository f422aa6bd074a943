package tracking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/fusion_tracker/internal/geo"
	"github.com/relabs-tech/fusion_tracker/internal/telemetry"
)

// recordingSink captures emitted events for assertions.
type recordingSink struct {
	origins   []OriginEvent
	positions []PositionEvent
}

func (r *recordingSink) OnOriginEstablished(origin, anchor geo.Point) {
	r.origins = append(r.origins, OriginEvent{Origin: origin, Anchor: anchor})
}

func (r *recordingSink) OnPositionUpdated(position geo.Point, headingDeg float64) {
	r.positions = append(r.positions, PositionEvent{Position: position, HeadingDeg: headingDeg})
}

func TestFirstFixEstablishesOrigin(t *testing.T) {
	sink := &recordingSink{}
	s := NewSession(sink)

	epoch := s.Start(Offset{})
	require.Equal(t, StateAwaitingFix, s.State())
	require.False(t, s.Ready(epoch))

	s.SubmitGPSFix(epoch, telemetry.Fix{Lat: 12.9, Lon: 77.6})

	require.Equal(t, StateTracking, s.State())
	require.True(t, s.Ready(epoch))
	require.Len(t, sink.origins, 1)

	// Zero offset means the origin sits exactly on the anchor.
	require.Equal(t, geo.Point{Lat: 12.9, Lon: 77.6}, sink.origins[0].Origin)
	require.Equal(t, sink.origins[0].Anchor, sink.origins[0].Origin)

	snap := s.Snapshot()
	require.True(t, snap.Anchor.Locked)
	require.Equal(t, []geo.Point{{Lat: 12.9, Lon: 77.6}}, snap.Path)
}

func TestOffsetAppliedToOrigin(t *testing.T) {
	sink := &recordingSink{}
	s := NewSession(sink)

	epoch := s.Start(Offset{DistanceM: 10, BearingDeg: 90})
	s.SubmitGPSFix(epoch, telemetry.Fix{Lat: 12.9, Lon: 77.6})

	require.Len(t, sink.origins, 1)
	origin := sink.origins[0].Origin
	wantDLon := 10 / (111132.0 * math.Cos(12.9*math.Pi/180))
	require.InDelta(t, 77.6+wantDLon, origin.Lon, 1e-9)
	require.InDelta(t, 12.9, origin.Lat, 1e-9)
}

func TestDuplicateFixIsNoOp(t *testing.T) {
	sink := &recordingSink{}
	s := NewSession(sink)

	epoch := s.Start(Offset{})
	s.SubmitGPSFix(epoch, telemetry.Fix{Lat: 12.9, Lon: 77.6})
	s.SubmitIMUSample(epoch, telemetry.Sample{NorthM: 5})

	// Latitude moved by less than 1e-6: same anchor, no reseed, no event.
	s.SubmitGPSFix(epoch, telemetry.Fix{Lat: 12.9 + 5e-7, Lon: 77.6})

	require.Len(t, sink.origins, 1)
	require.Len(t, s.Snapshot().Path, 2)
}

func TestChangedFixReseedsPath(t *testing.T) {
	sink := &recordingSink{}
	s := NewSession(sink)

	epoch := s.Start(Offset{})
	s.SubmitGPSFix(epoch, telemetry.Fix{Lat: 12.9, Lon: 77.6})
	s.SubmitIMUSample(epoch, telemetry.Sample{NorthM: 5})
	s.SubmitIMUSample(epoch, telemetry.Sample{NorthM: 6})
	require.Len(t, s.Snapshot().Path, 3)

	s.SubmitGPSFix(epoch, telemetry.Fix{Lat: 12.901, Lon: 77.6})

	require.Equal(t, StateTracking, s.State())
	require.Len(t, sink.origins, 2)

	snap := s.Snapshot()
	require.Equal(t, []geo.Point{sink.origins[1].Origin}, snap.Path)
}

func TestIMUSampleBeforeFixIgnored(t *testing.T) {
	sink := &recordingSink{}
	s := NewSession(sink)

	epoch := s.Start(Offset{})
	s.SubmitIMUSample(epoch, telemetry.Sample{NorthM: 5, EastM: 5})

	require.Empty(t, sink.positions)
	require.Empty(t, s.Snapshot().Path)
	require.Equal(t, StateAwaitingFix, s.State())
}

func TestIMUSampleAdvancesPosition(t *testing.T) {
	sink := &recordingSink{}
	s := NewSession(sink)

	epoch := s.Start(Offset{})
	s.SubmitGPSFix(epoch, telemetry.Fix{Lat: 12.9, Lon: 77.6})
	s.SubmitIMUSample(epoch, telemetry.Sample{HeadingDeg: 45, NorthM: 5, EastM: 0})

	require.Len(t, sink.positions, 1)
	ev := sink.positions[0]
	require.InDelta(t, 12.9+5/111132.0, ev.Position.Lat, 1e-12)
	require.InDelta(t, 77.6, ev.Position.Lon, 1e-12)
	require.Equal(t, 45.0, ev.HeadingDeg)

	snap := s.Snapshot()
	require.Len(t, snap.Path, 2)
	require.Equal(t, ev.Position, snap.Path[1])
}

func TestStaleEpochRejected(t *testing.T) {
	sink := &recordingSink{}
	s := NewSession(sink)

	old := s.Start(Offset{})
	s.Stop()

	// A poll result that was in flight when the session stopped.
	s.SubmitGPSFix(old, telemetry.Fix{Lat: 12.9, Lon: 77.6})
	require.Empty(t, sink.origins)
	require.Equal(t, StateIdle, s.State())

	// And one arriving after a fresh session started.
	fresh := s.Start(Offset{})
	s.SubmitGPSFix(old, telemetry.Fix{Lat: 12.9, Lon: 77.6})
	require.Empty(t, sink.origins)

	s.SubmitGPSFix(fresh, telemetry.Fix{Lat: 12.9, Lon: 77.6})
	require.Len(t, sink.origins, 1)
}

func TestStopResetsState(t *testing.T) {
	sink := &recordingSink{}
	s := NewSession(sink)

	epoch := s.Start(Offset{DistanceM: 10, BearingDeg: 45})
	s.SubmitGPSFix(epoch, telemetry.Fix{Lat: 12.9, Lon: 77.6})
	s.SubmitIMUSample(epoch, telemetry.Sample{NorthM: 1, EastM: 1})

	s.Stop()

	snap := s.Snapshot()
	require.Equal(t, StateIdle, snap.State)
	require.False(t, snap.Anchor.Locked)
	require.Empty(t, snap.Path)
	require.False(t, s.Ready(epoch))
}

func TestAnchorAtZeroZeroIsValid(t *testing.T) {
	sink := &recordingSink{}
	s := NewSession(sink)

	epoch := s.Start(Offset{})
	s.SubmitGPSFix(epoch, telemetry.Fix{Lat: 0, Lon: 0})

	// An explicit lock flag keeps a real (0,0) fix distinguishable from
	// "no fix yet".
	require.Equal(t, StateTracking, s.State())
	require.True(t, s.Snapshot().Anchor.Locked)
	require.Len(t, sink.origins, 1)

	s.SubmitGPSFix(epoch, telemetry.Fix{Lat: 0, Lon: 0})
	require.Len(t, sink.origins, 1)
}
