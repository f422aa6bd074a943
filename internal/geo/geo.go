// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package geo

import (
	"math"
)

// Point is a WGS84 coordinate in decimal degrees, suitable for JSON and MQTT.
type Point struct {
	Lat float64 `json:"lat"` // decimal degrees
	Lon float64 `json:"lon"` // decimal degrees
}

// metersPerDegLat is the flat local-tangent-plane scale: one degree of
// latitude spans ~111132 meters. Longitude shrinks with cos(lat).
const metersPerDegLat = 111132.0

// minCosLat keeps the longitude divisor away from zero near the poles.
const minCosLat = 1e-4

// lonScale returns cos(lat) clamped to a minimum magnitude of minCosLat.
func lonScale(latDeg float64) float64 {
	c := math.Cos(latDeg * math.Pi / 180.0)
	if math.Abs(c) < minCosLat {
		c = minCosLat
	}
	return c
}

// OffsetPoint moves origin by distanceMeters along bearingDeg (compass
// degrees, 0 = north, clockwise positive) on the local tangent plane:
//
//	dLat = d·cos(b) / 111132
//	dLon = d·sin(b) / (111132·cos(lat))
//
// A zero distance returns origin unchanged and the bearing is ignored.
func OffsetPoint(origin Point, distanceMeters, bearingDeg float64) Point {
	if distanceMeters == 0 {
		return origin
	}

	rad := bearingDeg * math.Pi / 180.0
	return Point{
		Lat: origin.Lat + distanceMeters*math.Cos(rad)/metersPerDegLat,
		Lon: origin.Lon + distanceMeters*math.Sin(rad)/(metersPerDegLat*lonScale(origin.Lat)),
	}
}

// DisplacementPoint moves origin by a north/east displacement in meters.
// The cosine factor uses the origin's latitude, not the destination's.
func DisplacementPoint(origin Point, northMeters, eastMeters float64) Point {
	return Point{
		Lat: origin.Lat + northMeters/metersPerDegLat,
		Lon: origin.Lon + eastMeters/(metersPerDegLat*lonScale(origin.Lat)),
	}
}
