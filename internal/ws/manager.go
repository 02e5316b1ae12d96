package ws

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"stayalive/internal/domain"
)

type clientKey struct {
	role domain.Role
	id   uuid.UUID
}

// PositionSink receives live position reports pushed over a rescuer socket.
type PositionSink interface {
	Set(ctx context.Context, pos domain.RescuerPosition) error
}

// Manager is the connection registry: at most one live client per
// (account id, role). A new registration for the same key supersedes the
// previous session, which gets closed. Lookup is a direct map access.
type Manager struct {
	logger    *slog.Logger
	positions PositionSink

	mu      sync.RWMutex
	clients map[clientKey]*Client

	ctx    context.Context
	cancel context.CancelFunc
}

func NewManager(ctx context.Context, logger *slog.Logger, positions PositionSink) *Manager {
	ctx, cancel := context.WithCancel(ctx)
	return &Manager{
		logger:    logger,
		positions: positions,
		clients:   make(map[clientKey]*Client),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// HandleNewConnection registers the client for an accepted websocket and
// starts its pumps.
func (m *Manager) HandleNewConnection(c *Client) {
	m.Register(c)
	c.Start()
}

// Register binds the client as the account's live session without starting
// its pumps. HandleNewConnection is the usual entry point.
func (m *Manager) Register(c *Client) {
	key := clientKey{role: c.Role, id: c.ID}
	m.mu.Lock()
	old := m.clients[key]
	m.clients[key] = c
	m.mu.Unlock()

	if old != nil {
		m.logger.Info("superseding live session", "accountID", c.ID, "role", c.Role)
		old.Close()
	}
	m.logger.Info("client connected", "accountID", c.ID, "role", c.Role)
}

// unregister removes the binding only if it still points at this exact
// client, so a superseded session cannot evict its replacement.
func (m *Manager) unregister(c *Client) {
	key := clientKey{role: c.Role, id: c.ID}
	m.mu.Lock()
	if m.clients[key] == c {
		delete(m.clients, key)
		m.logger.Info("client disconnected", "accountID", c.ID, "role", c.Role)
	}
	m.mu.Unlock()
}

// Lookup returns the live client for the account, or nil.
func (m *Manager) Lookup(role domain.Role, id uuid.UUID) *Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clients[clientKey{role: role, id: id}]
}

// SendTo queues a message for the account's live session. Returns false when
// the account has no live session or its buffer is full; either way the
// message is dropped silently, delivery is best effort.
func (m *Manager) SendTo(role domain.Role, id uuid.UUID, msg Message) bool {
	c := m.Lookup(role, id)
	if c == nil {
		return false
	}
	return c.Send(msg)
}

// Clients returns a snapshot of the live clients for one role.
func (m *Manager) Clients(role domain.Role) []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]*Client, 0, len(m.clients))
	for key, c := range m.clients {
		if key.role == role {
			res = append(res, c)
		}
	}
	return res
}

func (m *Manager) forceDisconnect(c *Client) {
	c.Close()
}

// Shutdown closes every live connection and stops the manager.
func (m *Manager) Shutdown() {
	m.cancel()
	m.mu.Lock()
	for _, client := range m.clients {
		client.Close()
	}
	m.clients = make(map[clientKey]*Client)
	m.mu.Unlock()
}
