package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/imu_adapter/internal/config"
	"github.com/relabs-tech/imu_adapter/internal/imu"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the monitor is read-only and serves any dashboard origin
	},
}

// monitor keeps the latest adapted sample and fans it out to websocket
// clients.
type monitor struct {
	mu      sync.RWMutex
	last    imu.Sample
	have    bool
	clients map[chan imu.Sample]struct{}
}

func newMonitor() *monitor {
	return &monitor{clients: make(map[chan imu.Sample]struct{})}
}

// update records s and offers it to every client. Slow clients miss
// samples rather than stall the subscriber.
func (m *monitor) update(s imu.Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = s
	m.have = true
	for ch := range m.clients {
		select {
		case ch <- s:
		default:
		}
	}
}

func (m *monitor) addClient() chan imu.Sample {
	ch := make(chan imu.Sample, 16)
	m.mu.Lock()
	m.clients[ch] = struct{}{}
	m.mu.Unlock()
	return ch
}

func (m *monitor) removeClient(ch chan imu.Sample) {
	m.mu.Lock()
	delete(m.clients, ch)
	m.mu.Unlock()
}

// handleLatest serves the latest sample as JSON.
func (m *monitor) handleLatest(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.have {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(m.last); err != nil {
		log.Printf("monitor: json encode error: %v", err)
	}
}

// handleWS streams every sample received after the upgrade.
func (m *monitor) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("monitor: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ch := m.addClient()
	defer m.removeClient(ch)

	// Reader goroutine notices the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case s := <-ch:
			conn.SetWriteDeadline(time.Now().Add(time.Second))
			if err := conn.WriteJSON(s); err != nil {
				log.Printf("monitor: websocket write error: %v", err)
				return
			}
		}
	}
}

func (m *monitor) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/imu", m.handleLatest)
	mux.HandleFunc("/ws", m.handleWS)
	return mux
}

// RunMonitor subscribes to the adapted topic and serves the latest sample
// on /api/imu and a live stream on /ws.
func RunMonitor(ctx context.Context) error {
	cfg := config.Get()

	bus, err := connect(cfg, cfg.MQTTClientIDMonitor, "imu-monitor")
	if err != nil {
		return err
	}
	defer bus.Close()

	m := newMonitor()
	if err := bus.Subscribe(cfg.TopicIMUOut, m.update); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: m.routes(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("monitor: web server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
