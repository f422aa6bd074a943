// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package telemetry

import (
	"regexp"
	"strconv"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

// Fix is an absolute GPS position scraped from an outdoor sensor response.
type Fix struct {
	Lat float64 `json:"lat"` // decimal degrees
	Lon float64 `json:"lon"` // decimal degrees
}

// Sample is a relative displacement reading from the indoor sensor.
// North/East are meters from the reference origin; Heading is compass
// degrees and defaults to 0 when the sensor does not report it.
type Sample struct {
	HeadingDeg float64 `json:"heading_deg"`
	NorthM     float64 `json:"north_m"`
	EastM      float64 `json:"east_m"`
}

// The sensor endpoints return free-form text, not a fixed protocol, so the
// fields are scraped with case-insensitive label synonyms and arbitrary
// separators. Field order in the body is irrelevant.
var (
	latRe = regexp.MustCompile(`(?i)\b(?:latitude|lat)\b[^0-9-]*(-?[0-9]+(?:\.[0-9]+)?)`)
	lonRe = regexp.MustCompile(`(?i)\b(?:longitude|lon|lng)\b[^0-9-]*(-?[0-9]+(?:\.[0-9]+)?)`)

	headingRe = regexp.MustCompile(`(?i)\b(?:heading|hdg|h)\b[:=\s]*([0-9]+(?:\.[0-9]+)?)`)
	northRe   = regexp.MustCompile(`(?i)\b(?:north|n)\b[:=\s]*(-?[0-9]+(?:\.[0-9]+)?)`)
	eastRe    = regexp.MustCompile(`(?i)\b(?:east|e)\b[:=\s]*(-?[0-9]+(?:\.[0-9]+)?)`)
)

func scrape(re *regexp.Regexp, text string) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseGPSFix extracts latitude and longitude from an outdoor sensor
// response. Plain labeled text is tried first; if that misses and the body
// contains NMEA sentences, a valid RMC sentence is accepted instead.
// Returns ok=false when neither form yields both coordinates.
func ParseGPSFix(text string) (Fix, bool) {
	lat, okLat := scrape(latRe, text)
	lon, okLon := scrape(lonRe, text)
	if okLat && okLon {
		return Fix{Lat: lat, Lon: lon}, true
	}
	return parseNMEAFix(text)
}

// parseNMEAFix scans the body for NMEA sentences and takes the position from
// the first valid RMC. Bad lines are skipped, same as the serial reader.
func parseNMEAFix(text string) (Fix, bool) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			continue
		}

		if sentence.DataType() != nmea.TypeRMC {
			continue
		}
		m := sentence.(nmea.RMC)
		if m.Validity != nmea.ValidRMC {
			continue
		}
		return Fix{Lat: m.Latitude, Lon: m.Longitude}, true
	}
	return Fix{}, false
}

// ParseIMUSample extracts a displacement sample from an indoor sensor
// response. North and east are both required; heading is optional and
// defaults to 0. Returns ok=false on a miss, never an error.
func ParseIMUSample(text string) (Sample, bool) {
	north, okN := scrape(northRe, text)
	east, okE := scrape(eastRe, text)
	if !okN || !okE {
		return Sample{}, false
	}

	heading, _ := scrape(headingRe, text)
	return Sample{HeadingDeg: heading, NorthM: north, EastM: east}, true
}
