package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/fusion_tracker/internal/config"
	"github.com/relabs-tech/fusion_tracker/internal/tracking"
)

// RunConsole subscribes to the tracking topics and prints each event as a
// single line. Useful when bringing up the sensors without the web UI.
func RunConsole() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to origin events
	originToken := client.Subscribe(cfg.TopicOrigin, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var ev tracking.OriginEvent
		if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
			log.Printf("console: origin unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[ORIG]  origin=%.6f,%.6f  anchor=%.6f,%.6f\n",
			ev.Origin.Lat, ev.Origin.Lon, ev.Anchor.Lat, ev.Anchor.Lon,
		)
	})
	originToken.Wait()
	if originToken.Error() != nil {
		return originToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicOrigin)

	// Subscribe to position events
	positionToken := client.Subscribe(cfg.TopicPosition, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var ev tracking.PositionEvent
		if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
			log.Printf("console: position unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[POS ]  lat=%.6f lon=%.6f heading=%.1f°\n",
			ev.Position.Lat, ev.Position.Lon, ev.HeadingDeg,
		)
	})
	positionToken.Wait()
	if positionToken.Error() != nil {
		return positionToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicPosition)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
