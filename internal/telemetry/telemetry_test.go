package telemetry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// nmeaLine appends the checksum so hand-written sentences parse.
func nmeaLine(payload string) string {
	ck := byte(0)
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return fmt.Sprintf("$%s*%02X", payload, ck)
}

func TestParseGPSFixLabelVariants(t *testing.T) {
	bodies := []string{
		"Lat: 12.9, Lon:77.6",
		"LATITUDE=12.9 LONGITUDE=77.6",
		"lon 77.6 lat 12.9",
		"Longitude: 77.6\nLatitude: 12.9\n",
	}
	for _, body := range bodies {
		fix, ok := ParseGPSFix(body)
		require.True(t, ok, "body %q", body)
		require.Equal(t, Fix{Lat: 12.9, Lon: 77.6}, fix, "body %q", body)
	}
}

func TestParseGPSFixNegativeCoordinates(t *testing.T) {
	fix, ok := ParseGPSFix("Lat: -33.8688 Lon: 151.2093")
	require.True(t, ok)
	require.Equal(t, Fix{Lat: -33.8688, Lon: 151.2093}, fix)
}

func TestParseGPSFixMiss(t *testing.T) {
	for _, body := range []string{
		"",
		"hello world",
		"Lat: 12.9",        // longitude missing
		"Longitude: 77.6",  // latitude missing
		"<html>404</html>", // proxy error page
	} {
		_, ok := ParseGPSFix(body)
		require.False(t, ok, "body %q", body)
	}
}

func TestParseGPSFixNMEAFallback(t *testing.T) {
	rmc := nmeaLine("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W")
	body := "some banner text\r\n" + rmc + "\r\n"

	fix, ok := ParseGPSFix(body)
	require.True(t, ok)
	require.InDelta(t, 48.1173, fix.Lat, 1e-4)
	require.InDelta(t, 11.5167, fix.Lon, 1e-4)
}

func TestParseGPSFixNMEAVoidRejected(t *testing.T) {
	rmc := nmeaLine("GPRMC,123519,V,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W")
	_, ok := ParseGPSFix(rmc)
	require.False(t, ok)
}

func TestParseIMUSample(t *testing.T) {
	sample, ok := ParseIMUSample("HEADING: 45.0\nNORTH: 5.0\nEAST: 0.0\n")
	require.True(t, ok)
	require.Equal(t, Sample{HeadingDeg: 45, NorthM: 5, EastM: 0}, sample)
}

func TestParseIMUSampleShortLabels(t *testing.T) {
	sample, ok := ParseIMUSample("H=120 N=-2.5 E=3.75")
	require.True(t, ok)
	require.Equal(t, Sample{HeadingDeg: 120, NorthM: -2.5, EastM: 3.75}, sample)
}

func TestParseIMUSampleHeadingOptional(t *testing.T) {
	sample, ok := ParseIMUSample("North: 1.5 East: -0.5")
	require.True(t, ok)
	require.Equal(t, Sample{HeadingDeg: 0, NorthM: 1.5, EastM: -0.5}, sample)
}

func TestParseIMUSampleMiss(t *testing.T) {
	for _, body := range []string{
		"",
		"HEADING: 45",       // displacement missing
		"NORTH: 5.0",        // east missing
		"EAST: 5.0",         // north missing
		"connection refused",
	} {
		_, ok := ParseIMUSample(body)
		require.False(t, ok, "body %q", body)
	}
}
