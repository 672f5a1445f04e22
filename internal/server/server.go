// ABOUTME: WebSocket control server for the soundboard
// ABOUTME: Manages client connections, command dispatch and event pushes
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/soundbridge/soundbridge-go/internal/board"
	"github.com/soundbridge/soundbridge-go/internal/device"
	"github.com/soundbridge/soundbridge-go/internal/discovery"
	"github.com/soundbridge/soundbridge-go/pkg/audio"
)

// Devices is the device-control surface the server drives. Implemented
// by the device manager; tests supply a fake.
type Devices interface {
	ListDevices() ([]device.Info, error)
	SelectOutputDevice(kind audio.SinkKind, deviceName string) error
	SelectInputDevice(deviceName string) error
	OutputDeviceName(kind audio.SinkKind) string
	SetSinkVolume(kind audio.SinkKind, volume float32)
	SinkVolume(kind audio.SinkKind) float32
	SetCaptureEnabled(enabled bool) error
	SetCaptureGain(gain float32)
	CaptureEnabled() bool
}

// Config holds server configuration
type Config struct {
	Port       int
	Name       string
	EnableMDNS bool
}

// Server exposes the board and device manager over a WebSocket control
// socket. Every connected client receives now-playing event pushes.
type Server struct {
	config   Config
	serverID string

	board   *board.Board
	devices Devices

	upgrader websocket.Upgrader

	httpServer *http.Server
	mux        *http.ServeMux

	clients   map[string]*client
	clientsMu sync.RWMutex

	mdnsManager *discovery.Manager

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// client is one connected control client
type client struct {
	id       string
	conn     *websocket.Conn
	sendChan chan Message
}

// New creates a server. It subscribes to the board so events reach
// clients as they happen.
func New(config Config, b *board.Board, devices Devices) *Server {
	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		board:    b,
		devices:  devices,
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Local-network control surface; no origin allowlist
				return true
			},
		},
		clients:  make(map[string]*client),
		stopChan: make(chan struct{}),
	}

	s.mux.HandleFunc("/control", s.handleWebSocket)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	b.Subscribe(func(ev board.Event) {
		s.broadcast("event", EventPayload{Event: string(ev.Type), SoundID: ev.SoundID})
	})

	return s
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the server until Stop is called or the listener fails
func (s *Server) Start() error {
	log.Printf("Control server starting: %s (ID: %s)", s.config.Name, s.serverID)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
		})
		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("Control socket listening on %s", addr)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-s.stopChan:
		log.Printf("Control server shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
	}

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.wg.Wait()
	log.Printf("Control server stopped")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// handleWebSocket upgrades and manages one control connection
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	c := &client{
		id:       uuid.New().String(),
		conn:     conn,
		sendChan: make(chan Message, 64),
	}

	s.clientsMu.Lock()
	s.clients[c.id] = c
	s.clientsMu.Unlock()
	log.Printf("Control client connected from %s", r.RemoteAddr)

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c.id)
		s.clientsMu.Unlock()
		close(c.sendChan)
		log.Printf("Control client disconnected")
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(c)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
		s.handleClientMessage(c, data)
	}
}

// clientWriter drains a client's send channel onto the wire
func (s *Server) clientWriter(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case msg, ok := <-c.sendChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("Error marshaling message: %v", err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}

// handleClientMessage dispatches one command
func (s *Server) handleClientMessage(c *client, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(c, "bad_message", err.Error())
		return
	}

	switch msg.Type {
	case "play":
		var req PlayRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			s.sendError(c, "bad_payload", err.Error())
			return
		}
		err := s.board.Play(req.SoundID, board.PlayOptions{
			LocalOnly:         req.LocalOnly,
			Monitor:           req.Monitor,
			ConcurrentAllowed: req.Concurrent,
			StartSeconds:      req.Start,
			Gain:              req.Gain,
		})
		if err != nil {
			kind := "play_failed"
			if board.IsNotFound(err) {
				kind = "not_found"
			}
			s.sendError(c, kind, err.Error())
			return
		}
		s.send(c, "ok", nil)

	case "stop":
		var req StopRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			s.sendError(c, "bad_payload", err.Error())
			return
		}
		s.board.Stop(req.SoundID)
		s.send(c, "ok", nil)

	case "stop_all":
		s.board.StopAll()
		s.send(c, "ok", nil)

	case "seek":
		var req SeekRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			s.sendError(c, "bad_payload", err.Error())
			return
		}
		s.board.Seek(req.SoundID, req.Position)
		s.send(c, "ok", nil)

	case "set_gain":
		var req GainRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			s.sendError(c, "bad_payload", err.Error())
			return
		}
		s.board.SetSoundGain(req.SoundID, req.Gain)
		s.send(c, "ok", nil)

	case "list_playing":
		var entries []PlayingEntry
		for _, id := range s.board.ListPlaying() {
			pos, ok := s.board.Position(id)
			if !ok {
				continue
			}
			entries = append(entries, PlayingEntry{SoundID: id, Position: pos})
		}
		s.send(c, "playing", entries)

	case "list_sounds":
		s.send(c, "sounds", s.board.Sounds())

	case "list_devices":
		devices, err := s.devices.ListDevices()
		if err != nil {
			s.sendError(c, "enumerate_failed", err.Error())
			return
		}
		entries := make([]DeviceEntry, 0, len(devices))
		for _, d := range devices {
			entries = append(entries, DeviceEntry{
				Name:      d.Name,
				Kind:      d.Kind.String(),
				IsDefault: d.IsDefault,
			})
		}
		s.send(c, "devices", entries)

	case "select_output":
		var req SelectOutputRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			s.sendError(c, "bad_payload", err.Error())
			return
		}
		kind, err := sinkFromString(req.Sink)
		if err != nil {
			s.sendError(c, "bad_sink", err.Error())
			return
		}
		if err := s.devices.SelectOutputDevice(kind, req.Device); err != nil {
			s.sendError(c, "device_unavailable", err.Error())
			return
		}
		s.send(c, "ok", nil)

	case "select_input":
		var req SelectInputRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			s.sendError(c, "bad_payload", err.Error())
			return
		}
		if err := s.devices.SelectInputDevice(req.Device); err != nil {
			s.sendError(c, "device_unavailable", err.Error())
			return
		}
		s.send(c, "ok", nil)

	case "set_sink_volume":
		var req SinkVolumeRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			s.sendError(c, "bad_payload", err.Error())
			return
		}
		kind, err := sinkFromString(req.Sink)
		if err != nil {
			s.sendError(c, "bad_sink", err.Error())
			return
		}
		s.devices.SetSinkVolume(kind, req.Volume)
		s.send(c, "ok", nil)

	case "set_capture":
		var req CaptureRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			s.sendError(c, "bad_payload", err.Error())
			return
		}
		if err := s.devices.SetCaptureEnabled(req.Enabled); err != nil {
			s.sendError(c, "device_unavailable", err.Error())
			return
		}
		if req.Gain > 0 {
			s.devices.SetCaptureGain(req.Gain)
		}
		s.send(c, "ok", nil)

	default:
		s.sendError(c, "unknown_command", msg.Type)
	}
}

// send queues a typed message for one client, dropping on backpressure
func (s *Server) send(c *client, msgType string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error marshaling payload: %v", err)
		return
	}
	select {
	case c.sendChan <- Message{Type: msgType, Payload: raw}:
	default:
		log.Printf("Client send buffer full, dropping %s", msgType)
	}
}

// sendError reports a failed command
func (s *Server) sendError(c *client, kind, detail string) {
	s.send(c, "error", ErrorPayload{Error: kind, Message: detail})
}

// broadcast queues a message for every connected client
func (s *Server) broadcast(msgType string, payload interface{}) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, c := range s.clients {
		s.send(c, msgType, payload)
	}
}

// sinkFromString parses a wire sink name
func sinkFromString(name string) (audio.SinkKind, error) {
	switch name {
	case "virtual", "":
		return audio.SinkVirtual, nil
	case "speaker":
		return audio.SinkSpeaker, nil
	default:
		return 0, fmt.Errorf("unknown sink %q", name)
	}
}
