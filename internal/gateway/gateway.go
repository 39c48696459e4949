// Package gateway glues one command execution into an atomic unit: it
// assigns the activity id, times the request, carries trace context in
// and out, runs the processor, and emits the completion event. The
// connection layer hands it parsed requests and serializes whatever
// response comes back.
package gateway

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docgateway/internal/errcode"
	"github.com/fyrsmithlabs/docgateway/internal/protocol"
	"github.com/fyrsmithlabs/docgateway/internal/request"
	"github.com/fyrsmithlabs/docgateway/internal/response"
	"github.com/fyrsmithlabs/docgateway/internal/session"
	"github.com/fyrsmithlabs/docgateway/internal/telemetry"
)

const tracerScopeName = "github.com/fyrsmithlabs/docgateway"

// CommandProcessor executes one parsed command. Satisfied by
// processor.Processor.
type CommandProcessor interface {
	Process(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.Response, error)
}

// Handler is the per-request unit of work.
type Handler struct {
	processor CommandProcessor
	provider  telemetry.Provider
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewHandler builds the unit of work. provider may be nil when no
// completion events are wanted.
func NewHandler(proc CommandProcessor, provider telemetry.Provider, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		processor: proc,
		provider:  provider,
		logger:    logger,
		tracer:    otel.Tracer(tracerScopeName),
	}
}

// Handle executes one command end to end and returns the response to
// serialize. Errors never escape: a failed command becomes an error
// response, and telemetry emission cannot affect the data path.
func (h *Handler) Handle(ctx context.Context, connCtx *session.ConnectionContext, header *protocol.Header, req *request.Request, info *request.Info) *response.Response {
	reqCtx := &request.RequestContext{
		Request:    req,
		Info:       info,
		ActivityID: uuid.NewString(),
		Tracker:    request.NewTracker(),
	}
	reqCtx.Tracker.Start(request.IntervalHandleRequest)

	var span trace.Span
	if telemetry.IsTracingEnabled() {
		if sc := telemetry.ExtractContextFromComment(req.Comment()); sc.IsValid() {
			ctx = trace.ContextWithRemoteSpanContext(ctx, sc)
		}
		ctx, span = h.tracer.Start(ctx, info.CommandName(),
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
	}

	resp, err := h.processor.Process(ctx, reqCtx, connCtx)
	reqCtx.Tracker.Stop(request.IntervalHandleRequest)

	var outcome telemetry.Outcome
	if err != nil {
		resp, outcome = h.errorResponse(reqCtx, err)
		if span != nil {
			span.SetStatus(codes.Error, err.Error())
		}
	} else {
		outcome = telemetry.SuccessOutcome(resp)
	}

	if h.provider != nil {
		h.provider.EmitRequestEvent(ctx, connCtx, header, reqCtx, info.CollectionOrUnknown(), outcome)
	}
	return resp
}

// errorResponse converts a command failure into its wire-visible form
// and the matching telemetry outcome.
func (h *Handler) errorResponse(reqCtx *request.RequestContext, err error) (*response.Response, telemetry.Outcome) {
	cmdErr := response.CommandErrorFromErr(err)
	h.logger.Debug("command failed",
		zap.String("command", reqCtx.Info.CommandName()),
		zap.String("activity_id", reqCtx.ActivityID),
		zap.Int32("code", int32(cmdErr.Code)),
		zap.String("errmsg", cmdErr.Message),
	)

	errSize := 0
	if doc, derr := cmdErr.Document(); derr == nil {
		errSize = len(doc)
	} else {
		h.logger.Warn("failed to render error document", zap.Error(derr))
	}
	return response.NewError(cmdErr), telemetry.ErrorOutcome(errcode.New(cmdErr.Code, cmdErr.Message), errSize)
}
