package processor

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docgateway/internal/request"
	"github.com/fyrsmithlabs/docgateway/internal/response"
	"github.com/fyrsmithlabs/docgateway/internal/session"
)

// saveCursor pins a streaming command's live backend connection under
// the cursor id the backend allocated. An exhausted first batch (cursor
// id 0) has nothing to continue, so the connection is released instead.
func (p *Processor) saveCursor(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext, resp *response.PgResponse, conn session.BackendConnection) {
	id, ok := resp.CursorID()
	if !ok {
		if conn != nil {
			if err := conn.Close(ctx); err != nil {
				p.logger.Warn("failed to release backend connection", zap.Error(err))
			}
		}
		return
	}

	db, _ := reqCtx.Info.DB()
	collection, _ := reqCtx.Info.Collection()
	connCtx.Cursors.Save(&session.Cursor{
		ID:        id,
		Namespace: db + "." + collection,
		Conn:      conn,
	})
}
