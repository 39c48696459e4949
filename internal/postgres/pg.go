package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/fyrsmithlabs/docgateway/internal/errcode"
	"github.com/fyrsmithlabs/docgateway/internal/request"
	"github.com/fyrsmithlabs/docgateway/internal/response"
	"github.com/fyrsmithlabs/docgateway/internal/session"
	"github.com/fyrsmithlabs/docgateway/internal/telemetry"
)

// Client executes gateway commands through a pgx connection pool.
type Client struct {
	pool    *pgxpool.Pool
	catalog QueryCatalog
}

var _ DataClient = (*Client)(nil)

// NewClient creates a data client on an existing pool.
func NewClient(pool *pgxpool.Pool, catalog QueryCatalog) *Client {
	return &Client{pool: pool, catalog: catalog}
}

// NewPool builds a pgx pool from a connection URI. maxConns <= 0 keeps
// the pgx default.
func NewPool(ctx context.Context, uri string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(uri)
	if err != nil {
		return nil, fmt.Errorf("parsing pool config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	return pool, nil
}

// Connection is a pooled connection pinned to a live cursor, with the
// open transaction holding the cursor's snapshot.
type Connection struct {
	conn *pgxpool.Conn
	tx   pgx.Tx
}

var _ session.BackendConnection = (*Connection)(nil)

// Close rolls back the cursor transaction and releases the connection.
func (c *Connection) Close(ctx context.Context) error {
	var err error
	if c.tx != nil {
		if rbErr := c.tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = rbErr
		}
	}
	if c.conn != nil {
		c.conn.Release()
	}
	return err
}

// runSimple executes a single documentdb_api call on a pooled connection
// and wraps the returned document.
func (c *Client) runSimple(ctx context.Context, reqCtx *request.RequestContext, sql string, args ...any) (*response.PgResponse, error) {
	sql = telemetry.TraceCommentFromContext(ctx, sql)

	reqCtx.Tracker.Start(request.IntervalProcessRequest)
	var doc []byte
	err := c.pool.QueryRow(ctx, sql, args...).Scan(&doc)
	reqCtx.Tracker.Stop(request.IntervalProcessRequest)
	if err != nil {
		return nil, wrapPgError(err)
	}
	return response.NewPgResponse(bson.Raw(doc)), nil
}

// runWrite executes a write call inside an explicit transaction so the
// begin/execute/commit phases are individually attributable.
func (c *Client) runWrite(ctx context.Context, reqCtx *request.RequestContext, sql string, args ...any) (*response.PgResponse, error) {
	sql = telemetry.TraceCommentFromContext(ctx, sql)
	tracker := reqCtx.Tracker

	tracker.Start(request.IntervalPostgresBeginTransaction)
	tx, err := c.pool.Begin(ctx)
	tracker.Stop(request.IntervalPostgresBeginTransaction)
	if err != nil {
		return nil, wrapPgError(err)
	}

	tracker.Start(request.IntervalProcessRequest)
	var doc []byte
	err = tx.QueryRow(ctx, sql, args...).Scan(&doc)
	tracker.Stop(request.IntervalProcessRequest)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, wrapPgError(err)
	}

	tracker.Start(request.IntervalPostgresCommitTransaction)
	err = tx.Commit(ctx)
	tracker.Stop(request.IntervalPostgresCommitTransaction)
	if err != nil {
		return nil, wrapPgError(err)
	}
	return response.NewPgResponse(bson.Raw(doc)), nil
}

// runFirstPage executes a cursor-producing call on a dedicated connection
// and returns the connection with its transaction still open so the
// cursor survives for follow-up batches.
func (c *Client) runFirstPage(ctx context.Context, reqCtx *request.RequestContext, sql string, args ...any) (*response.PgResponse, session.BackendConnection, error) {
	sql = telemetry.TraceCommentFromContext(ctx, sql)
	tracker := reqCtx.Tracker

	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, wrapPgError(err)
	}

	tracker.Start(request.IntervalPostgresBeginTransaction)
	tx, err := conn.Begin(ctx)
	tracker.Stop(request.IntervalPostgresBeginTransaction)
	if err != nil {
		conn.Release()
		return nil, nil, wrapPgError(err)
	}

	tracker.Start(request.IntervalProcessRequest)
	var doc []byte
	err = tx.QueryRow(ctx, sql, args...).Scan(&doc)
	tracker.Stop(request.IntervalProcessRequest)
	if err != nil {
		_ = tx.Rollback(ctx)
		conn.Release()
		return nil, nil, wrapPgError(err)
	}

	return response.NewPgResponse(bson.Raw(doc)), &Connection{conn: conn, tx: tx}, nil
}

func (c *Client) db(reqCtx *request.RequestContext) (string, error) {
	return reqCtx.Info.DB()
}

func (c *Client) spec(reqCtx *request.RequestContext) []byte {
	return []byte(reqCtx.Request.Document())
}

func (c *Client) ExecuteDelete(ctx context.Context, reqCtx *request.RequestContext, _ *session.ConnectionContext) (*response.PgResponse, error) {
	db, err := c.db(reqCtx)
	if err != nil {
		return nil, err
	}
	return c.runWrite(ctx, reqCtx, c.catalog.Delete, db, c.spec(reqCtx))
}

func (c *Client) ExecuteInsert(ctx context.Context, reqCtx *request.RequestContext, _ *session.ConnectionContext) (*response.PgResponse, error) {
	db, err := c.db(reqCtx)
	if err != nil {
		return nil, err
	}
	return c.runWrite(ctx, reqCtx, c.catalog.Insert, db, c.spec(reqCtx))
}

func (c *Client) ExecuteUpdate(ctx context.Context, reqCtx *request.RequestContext, _ *session.ConnectionContext) (*response.PgResponse, error) {
	db, err := c.db(reqCtx)
	if err != nil {
		return nil, err
	}
	return c.runWrite(ctx, reqCtx, c.catalog.Update, db, c.spec(reqCtx))
}

func (c *Client) ExecuteFind(ctx context.Context, reqCtx *request.RequestContext, _ *session.ConnectionContext) (*response.PgResponse, session.BackendConnection, error) {
	db, err := c.db(reqCtx)
	if err != nil {
		return nil, nil, err
	}
	return c.runFirstPage(ctx, reqCtx, c.catalog.Find, db, c.spec(reqCtx))
}

func (c *Client) ExecuteAggregate(ctx context.Context, reqCtx *request.RequestContext, _ *session.ConnectionContext) (*response.PgResponse, session.BackendConnection, error) {
	db, err := c.db(reqCtx)
	if err != nil {
		return nil, nil, err
	}
	return c.runFirstPage(ctx, reqCtx, c.catalog.Aggregate, db, c.spec(reqCtx))
}

func (c *Client) ExecuteListCollections(ctx context.Context, reqCtx *request.RequestContext, _ *session.ConnectionContext) (*response.PgResponse, session.BackendConnection, error) {
	db, err := c.db(reqCtx)
	if err != nil {
		return nil, nil, err
	}
	return c.runFirstPage(ctx, reqCtx, c.catalog.ListCollections, db, c.spec(reqCtx))
}

func (c *Client) ExecuteFindAndModify(ctx context.Context, reqCtx *request.RequestContext, _ *session.ConnectionContext) (*response.PgResponse, error) {
	db, err := c.db(reqCtx)
	if err != nil {
		return nil, err
	}
	return c.runWrite(ctx, reqCtx, c.catalog.FindAndModify, db, c.spec(reqCtx))
}

func (c *Client) ExecuteListDatabases(ctx context.Context, reqCtx *request.RequestContext, _ *session.ConnectionContext) (*response.PgResponse, error) {
	return c.runSimple(ctx, reqCtx, c.catalog.ListDatabases, c.spec(reqCtx))
}

func (c *Client) ExecuteDistinctQuery(ctx context.Context, reqCtx *request.RequestContext, _ *session.ConnectionContext) (*response.PgResponse, error) {
	db, err := c.db(reqCtx)
	if err != nil {
		return nil, err
	}
	return c.runSimple(ctx, reqCtx, c.catalog.Distinct, db, c.spec(reqCtx))
}

func (c *Client) ExecuteCountQuery(ctx context.Context, reqCtx *request.RequestContext, _ *session.ConnectionContext) (*response.PgResponse, error) {
	db, err := c.db(reqCtx)
	if err != nil {
		return nil, err
	}
	return c.runSimple(ctx, reqCtx, c.catalog.Count, db, c.spec(reqCtx))
}

func (c *Client) ExecuteValidate(ctx context.Context, reqCtx *request.RequestContext, _ *session.ConnectionContext) (*response.PgResponse, error) {
	db, err := c.db(reqCtx)
	if err != nil {
		return nil, err
	}
	return c.runSimple(ctx, reqCtx, c.catalog.Validate, db, c.spec(reqCtx))
}

func (c *Client) ExecuteCurrentOp(ctx context.Context, reqCtx *request.RequestContext, _ *session.ConnectionContext) (*response.PgResponse, error) {
	return c.runSimple(ctx, reqCtx, c.catalog.CurrentOp, c.spec(reqCtx))
}

func (c *Client) ExecuteCompact(ctx context.Context, reqCtx *request.RequestContext, _ *session.ConnectionContext) (*response.PgResponse, error) {
	return c.runSimple(ctx, reqCtx, c.catalog.Compact, c.spec(reqCtx))
}

func (c *Client) ExecuteCollStats(ctx context.Context, reqCtx *request.RequestContext, scale float64, _ *session.ConnectionContext) (*response.PgResponse, error) {
	db, err := c.db(reqCtx)
	if err != nil {
		return nil, err
	}
	coll, err := reqCtx.Info.Collection()
	if err != nil {
		return nil, err
	}
	return c.runSimple(ctx, reqCtx, c.catalog.CollStats, db, coll, scale)
}

func (c *Client) ExecuteDbStats(ctx context.Context, reqCtx *request.RequestContext, scale float64, _ *session.ConnectionContext) (*response.PgResponse, error) {
	db, err := c.db(reqCtx)
	if err != nil {
		return nil, err
	}
	return c.runSimple(ctx, reqCtx, c.catalog.DbStats, db, scale)
}

func (c *Client) ExecuteGetParameter(ctx context.Context, reqCtx *request.RequestContext, _ *session.ConnectionContext, allParameters, showDetails bool, params []string) (*response.PgResponse, error) {
	return c.runSimple(ctx, reqCtx, c.catalog.GetParameter, allParameters, showDetails, params)
}

func (c *Client) ExecuteKillOp(ctx context.Context, reqCtx *request.RequestContext, _ *session.ConnectionContext, opID string) (*response.PgResponse, error) {
	return c.runSimple(ctx, reqCtx, c.catalog.KillOp, opID)
}

// wrapPgError maps driver failures into domain errors so the classifier
// can produce protocol status codes from them.
func wrapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return errcode.New(errcode.DuplicateKey, pgErr.Message)
		case pgErr.Code == "57014":
			return errcode.New(errcode.ExceededTimeLimit, pgErr.Message)
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "28":
			return errcode.New(errcode.AuthenticationFailed, pgErr.Message)
		case pgErr.Code == "40001":
			return errcode.New(errcode.WriteConflict, pgErr.Message)
		}
	}
	return errcode.NewInternalf("backend request failed: %v", err)
}
