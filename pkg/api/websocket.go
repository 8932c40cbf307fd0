package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/NVIDIA/nvnmos/pkg/resource"
)

// handleWebSocket upgrades the connection and registers it for
// change-event pushes; it blocks reading (and discarding) inbound
// frames purely to detect client disconnects, the same pattern the
// teacher's server uses for its dashboard feed.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("websocket upgrade failed", err)
		}
		return
	}

	s.wsClientsMux.Lock()
	s.wsClients[conn] = true
	s.wsClientsMux.Unlock()

	defer func() {
		s.wsClientsMux.Lock()
		delete(s.wsClients, conn)
		s.wsClientsMux.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// broadcast fans a single event out to every connected client as a
// JSON envelope, matching the teacher's Broadcast(messageType, payload).
func (s *Server) broadcast(messageType string, payload interface{}) {
	msg := map[string]interface{}{
		"type":      messageType,
		"payload":   payload,
		"timestamp": time.Now().Format(time.RFC3339Nano),
	}

	s.wsClientsMux.RLock()
	defer s.wsClientsMux.RUnlock()
	for conn := range s.wsClients {
		if err := conn.WriteJSON(msg); err != nil && s.logger != nil {
			s.logger.Warn("websocket write failed, dropping client", "error", err.Error())
		}
	}
}

// watchStoreChanges subscribes to both the node and connection stores
// and pushes each ChangeEvent to connected WebSocket clients.
func (s *Server) watchStoreChanges() {
	nodeCh := s.nodeStore.Watch(32)
	connCh := s.connStore.Watch(32)

	for {
		select {
		case ev, ok := <-nodeCh:
			if !ok {
				return
			}
			s.broadcast("resource_changed", changeEventPayload(ev))
		case ev, ok := <-connCh:
			if !ok {
				return
			}
			s.broadcast("connection_changed", changeEventPayload(ev))
		}
	}
}

func changeEventPayload(ev resource.ChangeEvent) map[string]string {
	return map[string]string{
		"id":   ev.ID.String(),
		"type": string(ev.Type),
	}
}
