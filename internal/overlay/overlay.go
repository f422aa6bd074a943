// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package overlay

import (
	"encoding/xml"
	"log"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// The overlay source is a plain OSM XML extract: nodes carry coordinates,
// ways reference nodes by id and carry descriptive tags.
type osmFile struct {
	XMLName xml.Name  `xml:"osm"`
	Nodes   []osmNode `xml:"node"`
	Ways    []osmWay  `xml:"way"`
}

type osmNode struct {
	ID  string  `xml:"id,attr"`
	Lat float64 `xml:"lat,attr"`
	Lon float64 `xml:"lon,attr"`
}

type osmWay struct {
	Refs []osmRef `xml:"nd"`
	Tags []osmTag `xml:"tag"`
}

type osmRef struct {
	Ref string `xml:"ref,attr"`
}

type osmTag struct {
	K string `xml:"k,attr"`
	V string `xml:"v,attr"`
}

// Convert reads an OSM file and resolves its ways into typed map features:
// ways tagged "building" become single-ring polygons with property
// type=building, ways tagged "highway" become linestrings with type=road,
// everything else type=other. Node references that do not resolve are
// dropped; ways left with fewer than 2 coordinates are discarded. Any read
// or parse failure returns nil so the caller can run without an overlay.
func Convert(path string) *geojson.FeatureCollection {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("overlay: %v", err)
		return nil
	}

	var doc osmFile
	if err := xml.Unmarshal(data, &doc); err != nil {
		log.Printf("overlay: parse %s: %v", path, err)
		return nil
	}

	nodes := make(map[string]orb.Point, len(doc.Nodes))
	for _, n := range doc.Nodes {
		nodes[n.ID] = orb.Point{n.Lon, n.Lat}
	}

	fc := geojson.NewFeatureCollection()
	for _, way := range doc.Ways {
		var coords []orb.Point
		for _, nd := range way.Refs {
			if pt, ok := nodes[nd.Ref]; ok {
				coords = append(coords, pt)
			}
		}
		if len(coords) < 2 {
			continue
		}

		tags := make(map[string]string, len(way.Tags))
		for _, t := range way.Tags {
			tags[t.K] = t.V
		}

		kind := "other"
		if _, ok := tags["building"]; ok {
			kind = "building"
		} else if _, ok := tags["highway"]; ok {
			kind = "road"
		}

		var feature *geojson.Feature
		if kind == "building" {
			feature = geojson.NewFeature(orb.Polygon{orb.Ring(coords)})
		} else {
			feature = geojson.NewFeature(orb.LineString(coords))
		}
		feature.Properties["type"] = kind
		fc.Append(feature)
	}

	return fc
}
