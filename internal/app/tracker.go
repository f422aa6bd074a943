// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package app

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/fusion_tracker/internal/config"
	"github.com/relabs-tech/fusion_tracker/internal/geo"
	"github.com/relabs-tech/fusion_tracker/internal/telemetry"
	"github.com/relabs-tech/fusion_tracker/internal/tracking"
)

// maxBodyBytes bounds how much of a sensor response we read. The endpoints
// return a few lines of text; anything bigger is garbage.
const maxBodyBytes = 64 << 10

// mqttSink publishes tracking events as retained JSON messages, one topic
// per event kind. Sink callbacks run while the session lock is held, so the
// publish is fire-and-forget: waiting on the token here would stall both
// pollers on a slow broker.
type mqttSink struct {
	client        mqtt.Client
	topicOrigin   string
	topicPosition string
}

func (s *mqttSink) OnOriginEstablished(origin, anchor geo.Point) {
	payload, err := json.Marshal(tracking.OriginEvent{Origin: origin, Anchor: anchor})
	if err != nil {
		log.Printf("tracker: origin marshal error: %v", err)
		return
	}
	s.client.Publish(s.topicOrigin, 0, true, payload)
	log.Printf("tracker: origin established at %.6f, %.6f (anchor %.6f, %.6f)",
		origin.Lat, origin.Lon, anchor.Lat, anchor.Lon)
}

func (s *mqttSink) OnPositionUpdated(position geo.Point, headingDeg float64) {
	payload, err := json.Marshal(tracking.PositionEvent{Position: position, HeadingDeg: headingDeg})
	if err != nil {
		log.Printf("tracker: position marshal error: %v", err)
		return
	}
	s.client.Publish(s.topicPosition, 0, true, payload)
}

// RunTracker starts the fused position tracker: an outdoor fix source and an
// indoor displacement poller feed one tracking session, and the session's
// events go out over MQTT. Runs until SIGINT/SIGTERM.
func RunTracker() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDTracker)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("tracker: connected to MQTT broker at %s", cfg.MQTTBroker)

	session := tracking.NewSession(&mqttSink{
		client:        client,
		topicOrigin:   cfg.TopicOrigin,
		topicPosition: cfg.TopicPosition,
	})
	epoch := session.Start(tracking.Offset{
		DistanceM:  cfg.OffsetDistanceM,
		BearingDeg: cfg.OffsetBearingDeg,
	})
	log.Printf("tracker: session active (offset %.1fm @ %.1f°), waiting for outdoor signal",
		cfg.OffsetDistanceM, cfg.OffsetBearingDeg)

	httpc := &http.Client{Timeout: time.Duration(cfg.HTTPTimeout) * time.Millisecond}

	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	if cfg.OutdoorSource == "serial" {
		go func() {
			defer wg.Done()
			runSerialSource(stop, session, epoch)
		}()
	} else {
		outdoorURL := strings.TrimRight(cfg.OutdoorBaseURL, "/") + "/data"
		go func() {
			defer wg.Done()
			pollOutdoor(stop, httpc, outdoorURL, session, epoch)
		}()
	}

	wg.Add(1)
	indoorBase := strings.TrimRight(cfg.IndoorBaseURL, "/")
	go func() {
		defer wg.Done()
		pollIndoor(stop, httpc, indoorBase, session, epoch)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("tracker: shutting down")
	close(stop)
	wg.Wait()
	session.Stop()
	return nil
}

// pollOutdoor scrapes the outdoor endpoint once per interval and submits
// whatever parses as a fix. Failed cycles are logged and skipped; the next
// tick proceeds on its own.
func pollOutdoor(stop <-chan struct{}, client *http.Client, url string, session *tracking.Session, epoch uint64) {
	cfg := config.Get()
	ticker := time.NewTicker(time.Duration(cfg.OutdoorPollInterval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			body, err := fetchBody(client, url)
			if err != nil {
				log.Printf("tracker: outdoor poll: %v", err)
				continue
			}
			fix, ok := telemetry.ParseGPSFix(body)
			if !ok {
				// parse miss is normal network jitter, not an error
				continue
			}
			session.SubmitGPSFix(epoch, fix)
		}
	}
}

// pollIndoor polls the indoor endpoint at the fast interval. The primary
// path is <base>/data; when that response is unparseable, one fallback
// request to the bare base URL is made before giving up for the cycle.
// Polling is skipped entirely until an origin is established.
func pollIndoor(stop <-chan struct{}, client *http.Client, base string, session *tracking.Session, epoch uint64) {
	cfg := config.Get()
	ticker := time.NewTicker(time.Duration(cfg.IndoorPollInterval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !session.Ready(epoch) {
				continue
			}
			sample, ok := fetchIMUSample(client, base)
			if !ok {
				continue
			}
			session.SubmitIMUSample(epoch, sample)
		}
	}
}

// fetchIMUSample tries the primary <base>/data path and falls back to the
// bare base URL once when the primary response is unparseable.
func fetchIMUSample(client *http.Client, base string) (telemetry.Sample, bool) {
	if sample, ok := requestIMU(client, base+"/data"); ok {
		return sample, true
	}
	return requestIMU(client, base)
}

// requestIMU fetches one indoor response and scrapes a displacement sample
// from it. Transport errors and parse misses both come back as ok=false.
func requestIMU(client *http.Client, url string) (telemetry.Sample, bool) {
	body, err := fetchBody(client, url)
	if err != nil {
		log.Printf("tracker: indoor poll: %v", err)
		return telemetry.Sample{}, false
	}
	return telemetry.ParseIMUSample(body)
}

func fetchBody(client *http.Client, url string) (string, error) {
	resp, err := client.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
