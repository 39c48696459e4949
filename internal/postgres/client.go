// Package postgres is the backend execution client: it turns gateway
// commands into documentdb_api calls over a pgx connection pool. The
// command processor consumes it through the DataClient interface so tests
// and alternate backends can substitute their own implementation.
package postgres

import (
	"context"

	"github.com/fyrsmithlabs/docgateway/internal/request"
	"github.com/fyrsmithlabs/docgateway/internal/response"
	"github.com/fyrsmithlabs/docgateway/internal/session"
)

// DataClient executes commands against the backend data store. Methods
// that produce streaming results also return the live backend connection
// pinned to the cursor so the caller can save it.
type DataClient interface {
	ExecuteDelete(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, error)
	ExecuteInsert(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, error)
	ExecuteUpdate(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, error)

	ExecuteFind(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, session.BackendConnection, error)
	ExecuteAggregate(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, session.BackendConnection, error)
	ExecuteListCollections(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, session.BackendConnection, error)

	ExecuteFindAndModify(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, error)
	ExecuteListDatabases(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, error)
	ExecuteDistinctQuery(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, error)
	ExecuteCountQuery(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, error)
	ExecuteValidate(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, error)
	ExecuteCurrentOp(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, error)
	ExecuteCompact(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, error)

	ExecuteCollStats(ctx context.Context, reqCtx *request.RequestContext, scale float64, connCtx *session.ConnectionContext) (*response.PgResponse, error)
	ExecuteDbStats(ctx context.Context, reqCtx *request.RequestContext, scale float64, connCtx *session.ConnectionContext) (*response.PgResponse, error)

	ExecuteGetParameter(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext, allParameters, showDetails bool, params []string) (*response.PgResponse, error)
	ExecuteKillOp(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext, opID string) (*response.PgResponse, error)
}
