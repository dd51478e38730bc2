package chat

import (
	"sort"
	"sync"

	"ChatRelay/tools/errs"
)

// Registry is the single source of truth for live connections. A connection
// exists here from acceptance until explicit removal and is never duplicated
// under the same ConnID. All presence and routing reads go through it.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]*WsConn            // conn_id -> conn
	byUser map[string]map[string]*WsConn // user -> conn_id -> conn
}

func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]*WsConn),
		byUser: make(map[string]map[string]*WsConn),
	}
}

// Add registers an anonymous connection.
func (r *Registry) Add(c *WsConn) error {
	if c == nil || c.ConnID == "" {
		return errs.New("nil conn or empty conn_id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byConn[c.ConnID]; exists {
		return errs.New("conn_id exists")
	}
	r.byConn[c.ConnID] = c
	return nil
}

// BindUser attaches an identity to a registered connection. Calling it again
// with the same identity is a no-op; a different identity overwrites (last
// write wins). 不做同用户多连接去重。
func (r *Registry) BindUser(connID, userID, username string) error {
	if connID == "" || userID == "" {
		return errs.New("conn_id/user empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byConn[connID]
	if !ok {
		return errs.New("conn_id not found")
	}

	// 已绑定其他用户：先从旧索引摘除
	if prev, _, bound := c.Identity(); bound && prev != userID {
		r.unindexLocked(prev, connID)
	}

	c.BindIdentity(userID, username)
	m := r.byUser[userID]
	if m == nil {
		m = make(map[string]*WsConn)
		r.byUser[userID] = m
	}
	m[connID] = c
	return nil
}

// Remove deletes a connection unconditionally. Safe to call on an already
// removed conn_id.
func (r *Registry) Remove(connID string) {
	if connID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byConn[connID]
	if !ok {
		return
	}
	delete(r.byConn, connID)
	if userID, _, bound := c.Identity(); bound {
		r.unindexLocked(userID, connID)
	}
}

func (r *Registry) unindexLocked(userID, connID string) {
	if m := r.byUser[userID]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(r.byUser, userID)
		}
	}
}

// ListAll returns a point-in-time copy of every live connection. Mutations
// after the call do not change the returned slice.
func (r *Registry) ListAll() []*WsConn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*WsConn, 0, len(r.byConn))
	for _, c := range r.byConn {
		out = append(out, c)
	}
	return out
}

// ListByUser returns a snapshot of the connections bound to userID.
func (r *Registry) ListByUser(userID string) []*WsConn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byUser[userID]
	if len(m) == 0 {
		return nil
	}
	out := make([]*WsConn, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

// Get returns the connection for connID, nil when absent.
func (r *Registry) Get(connID string) *WsConn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byConn[connID]
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

// Roster computes the presence snapshot: one entry per identity-bound
// connection, sorted so repeated broadcasts are byte-stable.
func (r *Registry) Roster() []RosterEntry {
	r.mu.RLock()
	out := make([]RosterEntry, 0, len(r.byConn))
	for _, c := range r.byConn {
		if userID, username, ok := c.Identity(); ok {
			out = append(out, RosterEntry{UserID: userID, Username: username})
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}
