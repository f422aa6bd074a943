package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	"github.com/paulmach/orb/geojson"

	"github.com/relabs-tech/fusion_tracker/internal/config"
	"github.com/relabs-tech/fusion_tracker/internal/geo"
	"github.com/relabs-tech/fusion_tracker/internal/overlay"
	"github.com/relabs-tech/fusion_tracker/internal/tracking"
)

// wsEnvelope wraps an event for websocket clients so the page can tell
// origin resets apart from position updates.
type wsEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// wsHub fans broadcast payloads out to connected websocket clients.
// Clients that fail a write are dropped.
type wsHub struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{
		upgrader: websocket.Upgrader{
			// The map page is served from this same process; local tools
			// connect without an Origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

func (h *wsHub) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade: %v", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	// Clients only listen; the read loop exists to notice disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		conn.Close()
	}()
}

func (h *wsHub) broadcast(eventType string, payload []byte) {
	msg, err := json.Marshal(wsEnvelope{Type: eventType, Data: payload})
	if err != nil {
		log.Printf("web: envelope marshal error: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

// trackState mirrors the tracker's visible state on the web side, rebuilt
// from the event stream: the path reseeds on every origin event and grows
// with every position event.
type trackState struct {
	mu           sync.RWMutex
	lastOrigin   tracking.OriginEvent
	haveOrigin   bool
	lastPosition tracking.PositionEvent
	havePosition bool
	path         []geo.Point
}

// RunWeb subscribes to the tracker's MQTT events and serves the map page:
// JSON APIs for the latest origin/position, the map overlay as GeoJSON, a
// PNG snapshot of the track, and a websocket that pushes events live.
func RunWeb() error {
	cfg := config.Get()

	state := &trackState{}
	hub := newWSHub()

	// Overlay is loaded once at startup; a missing or corrupt file means we
	// run without one, it never aborts the server.
	fc := overlay.Convert(cfg.OverlayFile)
	if fc == nil {
		log.Printf("web: overlay unavailable (%s), serving empty collection", cfg.OverlayFile)
		fc = geojson.NewFeatureCollection()
	}
	overlayJSON, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("overlay marshal: %w", err)
	}
	log.Printf("web: overlay ready with %d features", len(fc.Features))

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Subscribe to tracking events
	originToken := client.Subscribe(cfg.TopicOrigin, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var ev tracking.OriginEvent
		if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
			log.Printf("web: origin unmarshal error: %v", err)
			return
		}
		state.mu.Lock()
		state.lastOrigin = ev
		state.haveOrigin = true
		state.havePosition = false
		state.path = append(state.path[:0], ev.Origin)
		state.mu.Unlock()

		hub.broadcast("origin", msg.Payload())
	})
	originToken.Wait()
	if originToken.Error() != nil {
		return originToken.Error()
	}
	log.Printf("web: subscribed to %s", cfg.TopicOrigin)

	positionToken := client.Subscribe(cfg.TopicPosition, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var ev tracking.PositionEvent
		if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
			log.Printf("web: position unmarshal error: %v", err)
			return
		}
		state.mu.Lock()
		state.lastPosition = ev
		state.havePosition = true
		state.path = append(state.path, ev.Position)
		state.mu.Unlock()

		hub.broadcast("position", msg.Payload())
	})
	positionToken.Wait()
	if positionToken.Error() != nil {
		return positionToken.Error()
	}
	log.Printf("web: subscribed to %s", cfg.TopicPosition)

	// 3) JSON APIs
	http.HandleFunc("/api/origin", func(w http.ResponseWriter, r *http.Request) {
		state.mu.RLock()
		defer state.mu.RUnlock()

		if !state.haveOrigin {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(state.lastOrigin); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	http.HandleFunc("/api/position", func(w http.ResponseWriter, r *http.Request) {
		state.mu.RLock()
		defer state.mu.RUnlock()

		if !state.havePosition {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(state.lastPosition); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	http.HandleFunc("/api/overlay", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(overlayJSON); err != nil {
			log.Printf("web: overlay write error: %v", err)
		}
	})

	http.HandleFunc("/api/track.png", func(w http.ResponseWriter, r *http.Request) {
		state.mu.RLock()
		path := make([]geo.Point, len(state.path))
		copy(path, state.path)
		heading := state.lastPosition.HeadingDeg
		state.mu.RUnlock()

		w.Header().Set("Content-Type", "image/png")
		if err := renderSnapshot(w, path, heading, cfg.SnapshotWidth, cfg.SnapshotHeight); err != nil {
			log.Printf("web: snapshot render error: %v", err)
		}
	})

	// 4) Websocket push + static files from ./web as the root
	http.HandleFunc("/ws", hub.handle)
	http.Handle("/", http.FileServer(http.Dir("web")))

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}
