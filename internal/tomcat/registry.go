package tomcat

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// defaultCheckLimit bounds the number of concurrent requests made by CheckAll.
const defaultCheckLimit = 8

// Connection is a registered Manager client.
type Connection struct {
	ID        string
	Index     int
	Alias     string
	Client    *Client
	CreatedAt time.Time
}

// ConnectionInfo is a credential-free view of a Connection.
type ConnectionInfo struct {
	ID        string        `json:"id"`
	Index     int           `json:"index"`
	Alias     string        `json:"alias,omitempty"`
	BaseURL   string        `json:"baseUrl"`
	Host      string        `json:"host"`
	Port      int           `json:"port"`
	Username  string        `json:"username"`
	Timeout   time.Duration `json:"timeout"`
	Current   bool          `json:"current"`
	CreatedAt time.Time     `json:"createdAt"`
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithClientOptions sets options applied to every client the registry creates.
func WithClientOptions(opts ...ClientOption) RegistryOption {
	return func(r *Registry) {
		r.clientOpts = append(r.clientOpts, opts...)
	}
}

// WithCheckLimit sets how many connections CheckAll contacts at once.
func WithCheckLimit(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.checkLimit = n
		}
	}
}

// WithConnectionHook registers a callback invoked with +1 when a connection
// is added and -1 when one is removed.
func WithConnectionHook(hook func(delta int)) RegistryOption {
	return func(r *Registry) {
		r.hook = hook
	}
}

// Registry maps aliases and 1-based indexes to Manager connections and
// tracks the current connection. It is safe for concurrent use.
//
// Re-connecting an alias that is already registered replaces the previous
// connection (last write wins); the old session is closed.
type Registry struct {
	mu        sync.RWMutex
	byIndex   map[int]*Connection
	byAlias   map[string]int
	current   int
	nextIndex int

	clientOpts []ClientOption
	checkLimit int
	hook       func(delta int)
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byIndex:    make(map[int]*Connection),
		byAlias:    make(map[string]int),
		nextIndex:  1,
		checkLimit: defaultCheckLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect creates a client for cfg, registers it under alias and makes it
// the current connection. It returns the connection index. No request is
// sent to Tomcat.
func (r *Registry) Connect(alias string, cfg ClientConfig) (int, error) {
	client, err := NewClient(cfg, r.clientOpts...)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if alias != "" {
		if old, ok := r.byAlias[alias]; ok {
			r.removeLocked(old)
		}
	}

	conn := &Connection{
		ID:        uuid.NewString(),
		Index:     r.nextIndex,
		Alias:     alias,
		Client:    client,
		CreatedAt: time.Now(),
	}
	r.nextIndex++

	r.byIndex[conn.Index] = conn
	if alias != "" {
		r.byAlias[alias] = conn.Index
	}
	r.current = conn.Index
	r.notify(1)

	return conn.Index, nil
}

// Get returns the connection identified by alias or numeric index. An empty
// string selects the current connection.
func (r *Registry) Get(indexOrAlias string) (*Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if indexOrAlias == "" {
		return r.currentLocked()
	}
	idx, err := r.resolveLocked(indexOrAlias)
	if err != nil {
		return nil, err
	}
	return r.byIndex[idx], nil
}

// Current returns the current connection.
func (r *Registry) Current() (*Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentLocked()
}

// Switch makes the connection identified by alias or numeric index current
// and returns the index of the previously current connection (0 if none).
func (r *Registry) Switch(indexOrAlias string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.resolveLocked(indexOrAlias)
	if err != nil {
		return 0, err
	}
	previous := r.current
	r.current = idx
	return previous, nil
}

// Close closes and removes the connection identified by alias or numeric
// index. An empty string closes the current connection.
func (r *Registry) Close(indexOrAlias string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if indexOrAlias == "" {
		conn, err := r.currentLocked()
		if err != nil {
			return err
		}
		r.removeLocked(conn.Index)
		return nil
	}

	idx, err := r.resolveLocked(indexOrAlias)
	if err != nil {
		return err
	}
	r.removeLocked(idx)
	return nil
}

// CloseCurrent closes the current connection.
func (r *Registry) CloseCurrent() error {
	return r.Close("")
}

// CloseAll closes every connection and resets index numbering to 1. It
// returns the number of connections closed.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.byIndex)
	for _, conn := range r.byIndex {
		conn.Client.Close()
	}
	r.byIndex = make(map[int]*Connection)
	r.byAlias = make(map[string]int)
	r.current = 0
	r.nextIndex = 1
	r.notify(-n)
	return n
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byIndex)
}

// List returns all connections ordered by index.
func (r *Registry) List() []ConnectionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ConnectionInfo, 0, len(r.byIndex))
	for _, conn := range r.byIndex {
		cfg := conn.Client.Config()
		infos = append(infos, ConnectionInfo{
			ID:        conn.ID,
			Index:     conn.Index,
			Alias:     conn.Alias,
			BaseURL:   conn.Client.BaseURL(),
			Host:      cfg.Host,
			Port:      cfg.Port,
			Username:  cfg.Username,
			Timeout:   cfg.Timeout,
			Current:   conn.Index == r.current,
			CreatedAt: conn.CreatedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Index < infos[j].Index })
	return infos
}

// CheckAll asks every registered server for its server info and returns the
// result keyed by alias (or "#<index>" for connections without alias).
// A nil value means the server answered correctly.
func (r *Registry) CheckAll(ctx context.Context) map[string]error {
	r.mu.RLock()
	conns := make([]*Connection, 0, len(r.byIndex))
	for _, conn := range r.byIndex {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	results := make(map[string]error, len(conns))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.checkLimit)
	for _, conn := range conns {
		g.Go(func() error {
			_, err := conn.Client.ServerInfo(gctx)
			mu.Lock()
			results[conn.key()] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (c *Connection) key() string {
	if c.Alias != "" {
		return c.Alias
	}
	return "#" + strconv.Itoa(c.Index)
}

func (r *Registry) currentLocked() (*Connection, error) {
	if r.current == 0 {
		return nil, ErrNoConnection
	}
	conn, ok := r.byIndex[r.current]
	if !ok {
		return nil, ErrNoConnection
	}
	return conn, nil
}

func (r *Registry) resolveLocked(indexOrAlias string) (int, error) {
	if idx, ok := r.byAlias[indexOrAlias]; ok {
		return idx, nil
	}
	if idx, err := strconv.Atoi(indexOrAlias); err == nil {
		if _, ok := r.byIndex[idx]; ok {
			return idx, nil
		}
	}
	return 0, fmt.Errorf("%w: index or alias %q", ErrConnectionNotFound, indexOrAlias)
}

func (r *Registry) removeLocked(idx int) {
	conn, ok := r.byIndex[idx]
	if !ok {
		return
	}
	conn.Client.Close()
	delete(r.byIndex, idx)
	if conn.Alias != "" && r.byAlias[conn.Alias] == idx {
		delete(r.byAlias, conn.Alias)
	}
	if r.current == idx {
		r.current = 0
	}
	r.notify(-1)
}

func (r *Registry) notify(delta int) {
	if r.hook != nil && delta != 0 {
		r.hook(delta)
	}
}
