package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/fingerspell/internal/display"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: sameOrigin,
}

// PredictionsHandler pushes display state to WebSocket clients whenever it
// changes.
type PredictionsHandler struct {
	board *display.Board
}

// NewPredictionsHandler creates a new PredictionsHandler.
func NewPredictionsHandler(board *display.Board) *PredictionsHandler {
	return &PredictionsHandler{board: board}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *PredictionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.board.Subscribe()
	defer unsubscribe()

	// Reading detects the client going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case state, ok := <-updates:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(state); err != nil {
				return
			}
		}
	}
}
