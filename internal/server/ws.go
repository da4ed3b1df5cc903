package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const streamWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The frontend is served from another origin, matching the CORS policy.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleTaskStream pushes a task snapshot whenever it changes and closes the
// socket once the task is terminal.
func (s *Server) handleTaskStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	if _, err := s.Store.Get(id); err != nil {
		respondError(w, http.StatusNotFound, "Task not found")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		s.Log.Debug().Err(err).Str("task_id", id).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// The client never sends anything meaningful; reading only notices when
	// it goes away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	var last *taskResponse
	for {
		task, err := s.Store.Get(id)
		if err != nil {
			closeStream(conn, websocket.CloseGoingAway, "task expired")
			return
		}
		resp := newTaskResponse(task)
		if last == nil || changed(*last, resp) {
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
			last = &resp
		}
		if task.Status.Terminal() {
			closeStream(conn, websocket.CloseNormalClosure, string(task.Status))
			return
		}
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func changed(a, b taskResponse) bool {
	return a.Status != b.Status || a.Progress != b.Progress
}

func closeStream(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
