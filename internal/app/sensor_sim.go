// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package app

import (
	"fmt"
	"log"
	"math"
	"net/http"
	"time"
)

// simWalk produces a smooth synthetic displacement so the full pipeline can
// be exercised on a desk, without either sensor module powered on.
type simWalk struct {
	start time.Time
}

func (s *simWalk) sample() (headingDeg, northM, eastM float64) {
	elapsed := time.Since(s.start).Seconds()

	northM = 8 * math.Sin(elapsed*0.2)
	eastM = 12 * math.Sin(elapsed*0.13)
	headingDeg = math.Mod(elapsed*15, 360)
	return
}

// RunSensorSim serves fake outdoor and indoor sensor endpoints in the same
// free-text shape the real modules use: the outdoor listener answers
// /data with a labeled lat/lon, the indoor one answers /data (and the bare
// root, to exercise the tracker's fallback) with heading/north/east.
func RunSensorSim(outdoorAddr, indoorAddr string) error {
	const anchorLat, anchorLon = 12.962322, 77.655222

	walk := &simWalk{start: time.Now()}

	outdoorMux := http.NewServeMux()
	outdoorMux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "Latitude: %.6f\nLongitude: %.6f\n", anchorLat, anchorLon)
	})

	indoor := func(w http.ResponseWriter, r *http.Request) {
		heading, north, east := walk.sample()
		fmt.Fprintf(w, "HEADING: %.1f\nNORTH: %.2f\nEAST: %.2f\n", heading, north, east)
	}
	indoorMux := http.NewServeMux()
	indoorMux.HandleFunc("/data", indoor)
	indoorMux.HandleFunc("/", indoor)

	errCh := make(chan error, 2)
	go func() {
		log.Printf("sensor-sim: outdoor endpoint on %s", outdoorAddr)
		errCh <- http.ListenAndServe(outdoorAddr, outdoorMux)
	}()
	go func() {
		log.Printf("sensor-sim: indoor endpoint on %s", indoorAddr)
		errCh <- http.ListenAndServe(indoorAddr, indoorMux)
	}()

	return <-errCh
}
