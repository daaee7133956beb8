// Package fake provides hand-made stand-ins for the pool interfaces,
// recording statements so tests can assert on issued SQL.
package fake

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	kpool "github.com/YounessBoumeshouli/MLOps/pkg/conn/db/postgres/pool"
)

// Statement is one Exec call observed by a Conn.
type Statement struct {
	SQL  string
	Args []interface{}
}

type Pool struct {
	// Conn is handed out by every Acquire. Assigned on first use when
	// left nil.
	Conn *Conn

	// AcquireErr, when set, fails Acquire.
	AcquireErr error

	// PingErr is returned by Ping.
	PingErr error

	mu       sync.Mutex
	acquired uint
	closed   bool
}

var _ kpool.Pool = &Pool{}

func (p *Pool) Acquire(ctx context.Context) (kpool.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.acquired += 1
	if p.AcquireErr != nil {
		return nil, p.AcquireErr
	}
	if p.Conn == nil {
		p.Conn = &Conn{}
	}
	return p.Conn, nil
}

func (p *Pool) Ping(ctx context.Context) error {
	return p.PingErr
}

func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// Acquired counts Acquire calls, failed ones included.
func (p *Pool) Acquired() uint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquired
}

func (p *Pool) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type Conn struct {
	// ExecErr, when set, fails every Exec after recording it.
	ExecErr error

	// PingErr is returned by Ping.
	PingErr error

	mu         sync.Mutex
	statements []Statement
	released   uint
}

var _ kpool.Conn = &Conn{}

func (c *Conn) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statements = append(c.statements, Statement{SQL: sql, Args: arguments})
	if c.ExecErr != nil {
		return nil, c.ExecErr
	}
	return pgconn.CommandTag("INSERT 0 1"), nil
}

func (c *Conn) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	panic(errors.New("it should not be called"))
}

func (c *Conn) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	panic(errors.New("it should not be called"))
}

func (c *Conn) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released += 1
}

func (c *Conn) Ping(ctx context.Context) error {
	return c.PingErr
}

// Statements snapshots the Exec calls observed so far.
func (c *Conn) Statements() []Statement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Statement{}, c.statements...)
}

// Released counts Release calls.
func (c *Conn) Released() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}
