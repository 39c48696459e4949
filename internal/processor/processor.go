// Package processor executes one parsed command against the backend
// execution client, applying per-command preconditions and
// post-processing before the response heads back to the client.
package processor

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docgateway/internal/errcode"
	"github.com/fyrsmithlabs/docgateway/internal/postgres"
	"github.com/fyrsmithlabs/docgateway/internal/request"
	"github.com/fyrsmithlabs/docgateway/internal/response"
	"github.com/fyrsmithlabs/docgateway/internal/session"
)

// Processor dispatches parsed commands to the backend execution client.
type Processor struct {
	client postgres.DataClient
	logger *zap.Logger
}

// New builds a processor over a backend execution client.
func New(client postgres.DataClient, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{client: client, logger: logger}
}

// Process executes one command and returns its response. Protocol-level
// failures (bad field types, authorization, unresolvable namespaces) are
// raised before any backend call; backend write failures surface inside
// the response document instead of failing the command.
func (p *Processor) Process(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.Response, error) {
	switch reqCtx.Request.Type() {
	case request.TypeDelete:
		return p.processWrite(ctx, reqCtx, connCtx, p.client.ExecuteDelete)
	case request.TypeInsert:
		return p.processWrite(ctx, reqCtx, connCtx, p.client.ExecuteInsert)
	case request.TypeUpdate:
		return p.processWrite(ctx, reqCtx, connCtx, p.client.ExecuteUpdate)

	case request.TypeFind:
		return p.processFirstPage(ctx, reqCtx, connCtx, p.client.ExecuteFind)
	case request.TypeAggregate:
		return p.processFirstPage(ctx, reqCtx, connCtx, p.client.ExecuteAggregate)
	case request.TypeListCollections:
		return p.processFirstPage(ctx, reqCtx, connCtx, p.client.ExecuteListCollections)

	case request.TypeFindAndModify:
		return p.processSimple(ctx, reqCtx, connCtx, p.client.ExecuteFindAndModify)
	case request.TypeListDatabases:
		return p.processSimple(ctx, reqCtx, connCtx, p.client.ExecuteListDatabases)
	case request.TypeDistinct:
		return p.processSimple(ctx, reqCtx, connCtx, p.client.ExecuteDistinctQuery)
	case request.TypeValidate:
		return p.processSimple(ctx, reqCtx, connCtx, p.client.ExecuteValidate)
	case request.TypeCurrentOp:
		return p.processSimple(ctx, reqCtx, connCtx, p.client.ExecuteCurrentOp)
	case request.TypeCompact:
		return p.processSimple(ctx, reqCtx, connCtx, p.client.ExecuteCompact)

	case request.TypeCount:
		if _, err := reqCtx.Info.Collection(); err != nil {
			return nil, err
		}
		return p.processSimple(ctx, reqCtx, connCtx, p.client.ExecuteCountQuery)

	case request.TypeCollStats:
		return p.processStats(ctx, reqCtx, connCtx, p.client.ExecuteCollStats)
	case request.TypeDbStats:
		return p.processStats(ctx, reqCtx, connCtx, p.client.ExecuteDbStats)

	case request.TypeGetParameter:
		return p.processGetParameter(ctx, reqCtx, connCtx)
	case request.TypeKillOp:
		return p.processKillOp(ctx, reqCtx, connCtx)

	default:
		return nil, errcode.Newf(errcode.CommandNotFound, "no such command: '%s'", reqCtx.Info.CommandName())
	}
}

type simpleExec func(context.Context, *request.RequestContext, *session.ConnectionContext) (*response.PgResponse, error)

type firstPageExec func(context.Context, *request.RequestContext, *session.ConnectionContext) (*response.PgResponse, session.BackendConnection, error)

type statsExec func(context.Context, *request.RequestContext, float64, *session.ConnectionContext) (*response.PgResponse, error)

func (p *Processor) processSimple(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext, exec simpleExec) (*response.Response, error) {
	resp, err := exec(ctx, reqCtx, connCtx)
	if err != nil {
		return nil, err
	}
	return response.NewResult(resp), nil
}

// processWrite runs a write command and rewrites backend per-document
// failures into the gateway error shape before returning.
func (p *Processor) processWrite(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext, exec simpleExec) (*response.Response, error) {
	resp, err := exec(ctx, reqCtx, connCtx)
	if err != nil {
		return nil, err
	}
	transformed, err := transformWriteErrors(resp.Document(), reqCtx.ActivityID)
	if err != nil {
		return nil, err
	}
	return response.NewResult(response.NewPgResponse(transformed)), nil
}

// processFirstPage runs a streaming command and saves the resulting
// cursor, with its pinned backend connection, before returning the
// first batch.
func (p *Processor) processFirstPage(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext, exec firstPageExec) (*response.Response, error) {
	resp, conn, err := exec(ctx, reqCtx, connCtx)
	if err != nil {
		return nil, err
	}
	p.saveCursor(ctx, reqCtx, connCtx, resp, conn)
	return response.NewResult(resp), nil
}

func (p *Processor) processStats(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext, exec statsExec) (*response.Response, error) {
	scale, err := convertToScale(reqCtx.Request)
	if err != nil {
		return nil, err
	}
	resp, err := exec(ctx, reqCtx, scale, connCtx)
	if err != nil {
		return nil, err
	}
	return response.NewResult(resp), nil
}

// requireAdmin enforces the admin-database guard before any backend
// call is made.
func requireAdmin(reqCtx *request.RequestContext) error {
	db, err := reqCtx.Info.DB()
	if err != nil {
		return err
	}
	if db != "admin" {
		return errcode.Newf(errcode.Unauthorized, "%s may only be run against the admin database", reqCtx.Info.CommandName())
	}
	return nil
}
