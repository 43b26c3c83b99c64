package websocket

import (
	"fmt"
	"sync"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"
)

type ConnectionManager struct {
	connections map[string]domain.WebSocketConnection // connID -> connection
	groups      map[string]map[string]struct{}        // auctionID -> connIDs
	memberOf    map[string]map[string]struct{}        // connID -> auctionIDs
	userConns   map[string]map[string]struct{}        // userID -> connIDs
	mutex       sync.RWMutex
	log         logger.Logger
}

var _ domain.ConnectionManager = (*ConnectionManager)(nil)

func NewConnectionManager(log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]domain.WebSocketConnection),
		groups:      make(map[string]map[string]struct{}),
		memberOf:    make(map[string]map[string]struct{}),
		userConns:   make(map[string]map[string]struct{}),
		log:         log,
	}
}

func (cm *ConnectionManager) RegisterConnection(conn domain.WebSocketConnection) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if _, exists := cm.connections[conn.ID()]; exists {
		return fmt.Errorf("connection %s already registered", conn.ID())
	}
	cm.connections[conn.ID()] = conn
	cm.memberOf[conn.ID()] = make(map[string]struct{})
	addTo(cm.userConns, conn.UserID(), conn.ID())

	cm.log.Info("Connection registered", "conn_id", conn.ID(), "user_id", conn.UserID())
	return nil
}

func (cm *ConnectionManager) UnregisterConnection(connID string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	cm.unregisterLocked(connID)
	return nil
}

func (cm *ConnectionManager) unregisterLocked(connID string) {
	conn, exists := cm.connections[connID]
	if !exists {
		return
	}

	for auctionID := range cm.memberOf[connID] {
		removeFrom(cm.groups, auctionID, connID)
	}
	removeFrom(cm.userConns, conn.UserID(), connID)
	delete(cm.memberOf, connID)
	delete(cm.connections, connID)

	cm.log.Info("Connection unregistered", "conn_id", connID, "user_id", conn.UserID())
}

// JoinGroup subscribes the connection to an auction's events.
func (cm *ConnectionManager) JoinGroup(connID, auctionID string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	groups, exists := cm.memberOf[connID]
	if !exists {
		return fmt.Errorf("connection %s not registered", connID)
	}
	groups[auctionID] = struct{}{}
	addTo(cm.groups, auctionID, connID)

	cm.log.Debug("Joined auction group", "conn_id", connID, "auction_id", auctionID)
	return nil
}

func (cm *ConnectionManager) LeaveGroup(connID, auctionID string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if groups, exists := cm.memberOf[connID]; exists {
		delete(groups, auctionID)
	}
	removeFrom(cm.groups, auctionID, connID)

	cm.log.Debug("Left auction group", "conn_id", connID, "auction_id", auctionID)
	return nil
}

func (cm *ConnectionManager) BroadcastAll(message []byte) error {
	cm.mutex.RLock()
	connections := make([]domain.WebSocketConnection, 0, len(cm.connections))
	for _, conn := range cm.connections {
		connections = append(connections, conn)
	}
	cm.mutex.RUnlock()

	cm.send(connections, message)
	return nil
}

func (cm *ConnectionManager) BroadcastToGroup(auctionID string, message []byte) error {
	cm.send(cm.snapshot(cm.groups, auctionID), message)
	return nil
}

func (cm *ConnectionManager) NotifyUser(userID string, message []byte) error {
	cm.send(cm.snapshot(cm.userConns, userID), message)
	return nil
}

// Sweep pings every connection and drops those that fail. It returns the
// number of connections dropped.
func (cm *ConnectionManager) Sweep() int {
	cm.mutex.RLock()
	connections := make([]domain.WebSocketConnection, 0, len(cm.connections))
	for _, conn := range cm.connections {
		connections = append(connections, conn)
	}
	cm.mutex.RUnlock()

	var dead []domain.WebSocketConnection
	for _, conn := range connections {
		if err := conn.Ping(); err != nil {
			cm.log.Debug("Ping failed", "conn_id", conn.ID(), "error", err)
			dead = append(dead, conn)
		}
	}
	if len(dead) == 0 {
		return 0
	}

	cm.mutex.Lock()
	for _, conn := range dead {
		cm.unregisterLocked(conn.ID())
	}
	cm.mutex.Unlock()

	for _, conn := range dead {
		_ = conn.Close()
	}
	return len(dead)
}

// snapshot resolves the connections indexed under key. Sends happen after the
// lock is released.
func (cm *ConnectionManager) snapshot(index map[string]map[string]struct{}, key string) []domain.WebSocketConnection {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	ids := index[key]
	connections := make([]domain.WebSocketConnection, 0, len(ids))
	for id := range ids {
		if conn, ok := cm.connections[id]; ok {
			connections = append(connections, conn)
		}
	}
	return connections
}

func (cm *ConnectionManager) send(connections []domain.WebSocketConnection, message []byte) {
	for _, conn := range connections {
		if err := conn.Send(message); err != nil {
			// Continue to other connections
			cm.log.Error("Failed to send message", "conn_id", conn.ID(), "user_id", conn.UserID(), "error", err)
		}
	}
}

func addTo(index map[string]map[string]struct{}, key, connID string) {
	set, ok := index[key]
	if !ok {
		set = make(map[string]struct{})
		index[key] = set
	}
	set[connID] = struct{}{}
}

func removeFrom(index map[string]map[string]struct{}, key, connID string) {
	set, ok := index[key]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(index, key)
	}
}
