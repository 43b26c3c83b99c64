package websocket

import (
	"encoding/json"
	"errors"
	"net/http"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced at the HTTP layer
	},
}

// Authenticator resolves the user behind a handshake request.
type Authenticator func(r *http.Request) (*domain.User, error)

// clientMessage is what clients send over the socket.
type clientMessage struct {
	Type      string `json:"type"`
	AuctionID string `json:"auction_id"`
}

type serverMessage struct {
	Type      string `json:"type"`
	AuctionID string `json:"auction_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

type WebSocketHandler struct {
	authenticate Authenticator
	connManager  domain.ConnectionManager
	log          logger.Logger
}

func NewWebSocketHandler(authenticate Authenticator, connManager domain.ConnectionManager, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		authenticate: authenticate,
		connManager:  connManager,
		log:          log,
	}
}

// Router serves /ws and /ws/auctions/{auctionID}; the latter joins the
// auction's group on connect.
func (h *WebSocketHandler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", h.HandleConnection).Methods(http.MethodGet)
	r.HandleFunc("/ws/auctions/{auctionID}", h.HandleConnection).Methods(http.MethodGet)
	return r
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["auctionID"]

	user, err := h.authenticate(r)
	if errors.Is(err, domain.ErrPersistence) {
		h.log.Error("Failed to authenticate websocket connection", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if err != nil {
		h.log.Info("Rejected websocket connection", "error", err, "remote_addr", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	wsConn := NewConnection(conn, user.ID)
	log := h.log.With("conn_id", wsConn.ID(), "user_id", user.ID)
	if err := wsConn.prepareRead(); err != nil {
		log.Error("Failed to prepare connection", "error", err)
		_ = wsConn.Close()
		return
	}
	if err := h.connManager.RegisterConnection(wsConn); err != nil {
		log.Error("Failed to register connection", "error", err)
		_ = wsConn.Close()
		return
	}
	if auctionID != "" {
		if err := h.connManager.JoinGroup(wsConn.ID(), auctionID); err != nil {
			log.Error("Failed to join auction group", "auction_id", auctionID, "error", err)
		}
	}

	go wsConn.writePump()
	go h.readPump(wsConn, log)
}

func (h *WebSocketHandler) readPump(conn *Connection, log logger.Logger) {
	defer func() {
		_ = h.connManager.UnregisterConnection(conn.ID())
		_ = conn.Close()
	}()

	for {
		var msg clientMessage
		if err := conn.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Info("Connection read ended", "error", err)
			}
			return
		}

		switch msg.Type {
		case "join_auction":
			if msg.AuctionID == "" {
				h.reply(conn, serverMessage{Type: "error", Message: "auction_id required"})
				continue
			}
			if err := h.connManager.JoinGroup(conn.ID(), msg.AuctionID); err != nil {
				log.Error("Failed to join auction group", "auction_id", msg.AuctionID, "error", err)
				h.reply(conn, serverMessage{Type: "error", Message: "failed to join auction"})
				continue
			}
			h.reply(conn, serverMessage{Type: "joined", AuctionID: msg.AuctionID})
		case "leave_auction":
			_ = h.connManager.LeaveGroup(conn.ID(), msg.AuctionID)
			h.reply(conn, serverMessage{Type: "left", AuctionID: msg.AuctionID})
		case "ping":
			h.reply(conn, serverMessage{Type: "pong"})
		default:
			h.reply(conn, serverMessage{Type: "error", Message: "unknown message type"})
		}
	}
}

func (h *WebSocketHandler) reply(conn *Connection, msg serverMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := conn.Send(data); err != nil {
		h.log.Debug("Failed to reply", "conn_id", conn.ID(), "error", err)
	}
}
