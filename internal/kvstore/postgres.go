package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// notifyChannel carries change fan-out between processes sharing one store.
const notifyChannel = "kv_changes"

// Postgres is the shared-store environment for multi-process deployments:
// several agent processes on one database observe each other's writes
// through LISTEN/NOTIFY. Propagation is asynchronous; readers may see a
// write with a small delay, which callers must tolerate.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[int]func(Change)
	nextID int

	cancelListen context.CancelFunc
	listenDone   chan struct{}
}

// OpenPostgres connects to databaseURL, creates the kv table if needed, and
// starts the notification listener.
func OpenPostgres(ctx context.Context, databaseURL string, logger *slog.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to store database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping store database: %w", err)
	}

	if _, err := pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS kv (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize store schema: %w", err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	p := &Postgres{
		pool:         pool,
		logger:       logger,
		subs:         make(map[int]func(Change)),
		cancelListen: cancel,
		listenDone:   make(chan struct{}),
	}
	go p.listen(listenCtx)
	return p, nil
}

// Get returns the value for key.
func (p *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.pool.QueryRow(ctx, `SELECT value FROM kv WHERE key = $1`, key).Scan(&value)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts key and broadcasts the change over the notification channel.
func (p *Postgres) Set(ctx context.Context, key, value string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO kv (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	p.broadcast(ctx, Change{Key: key, Value: value})
	return nil
}

// Delete removes key and broadcasts the deletion.
func (p *Postgres) Delete(ctx context.Context, key string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM kv WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	if tag.RowsAffected() > 0 {
		p.broadcast(ctx, Change{Key: key, Deleted: true})
	}
	return nil
}

// Keys returns all keys with the given prefix, sorted.
func (p *Postgres) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT key FROM kv WHERE left(key, length($1)) = $1 ORDER BY key`, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Subscribe registers fn for change notifications, including changes made
// by other processes sharing the same database.
func (p *Postgres) Subscribe(fn func(Change)) (cancel func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// Close stops the listener and closes the pool.
func (p *Postgres) Close() error {
	p.cancelListen()
	<-p.listenDone
	p.pool.Close()
	return nil
}

// broadcast sends the change to other processes. Notify failures are logged
// only; the write itself already succeeded.
func (p *Postgres) broadcast(ctx context.Context, c Change) {
	payload, err := json.Marshal(c)
	if err != nil {
		return
	}
	if _, err := p.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, string(payload)); err != nil {
		p.logger.Warn("store notify failed", "key", c.Key, "err", err)
	}
}

// listen holds a dedicated connection on LISTEN and fans incoming changes
// out to local subscribers. The connection is re-acquired after errors
// until the context ends.
func (p *Postgres) listen(ctx context.Context) {
	defer close(p.listenDone)
	for ctx.Err() == nil {
		conn, err := p.pool.Acquire(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.logger.Warn("store listener acquire failed", "err", err)
			}
			return
		}
		if _, err := conn.Exec(ctx, `LISTEN `+notifyChannel); err != nil {
			conn.Release()
			p.logger.Warn("store listen failed", "err", err)
			return
		}
		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				conn.Release()
				break
			}
			var c Change
			if err := json.Unmarshal([]byte(n.Payload), &c); err != nil {
				continue
			}
			p.mu.Lock()
			fns := make([]func(Change), 0, len(p.subs))
			for _, fn := range p.subs {
				fns = append(fns, fn)
			}
			p.mu.Unlock()
			for _, fn := range fns {
				fn(c)
			}
		}
	}
}
