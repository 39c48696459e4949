package processor

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/fyrsmithlabs/docgateway/internal/bsonutil"
	"github.com/fyrsmithlabs/docgateway/internal/errcode"
	"github.com/fyrsmithlabs/docgateway/internal/request"
	"github.com/fyrsmithlabs/docgateway/internal/response"
	"github.com/fyrsmithlabs/docgateway/internal/session"
)

// convertToScale reads the optional `scale` field of a stats command.
// Numeric types narrow to float64, absent/Undefined/Null default to 1.0,
// anything else is a TypeMismatch naming the offending type.
func convertToScale(req *request.Request) (float64, error) {
	v, err := req.Document().LookupErr("scale")
	if err != nil {
		return 1.0, nil
	}
	switch v.Type {
	case bsontype.Double:
		f, _ := v.DoubleOK()
		return f, nil
	case bsontype.Int32:
		i, _ := v.Int32OK()
		return float64(i), nil
	case bsontype.Int64:
		i, _ := v.Int64OK()
		return float64(i), nil
	case bsontype.Undefined, bsontype.Null:
		return 1.0, nil
	default:
		return 0, errcode.Newf(errcode.TypeMismatch, "scale has invalid type %s", v.Type)
	}
}

func (p *Processor) processGetParameter(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.Response, error) {
	if err := requireAdmin(reqCtx); err != nil {
		return nil, err
	}

	var (
		star          bool
		allParameters bool
		showDetails   bool
		params        []string
	)
	err := reqCtx.Request.ExtractFields(func(key string, value bson.RawValue) error {
		switch {
		case key == "getParameter":
			if s, ok := value.StringValueOK(); ok && s == "*" {
				star = true
				return nil
			}
			opts, ok := value.DocumentOK()
			if !ok {
				return nil
			}
			// Unknown option keys are ignored.
			if v, lerr := opts.LookupErr("allParameters"); lerr == nil {
				b, bok := bsonutil.ConvertToBool(v)
				if !bok {
					return errcode.NewTypeMismatch("allParameters should be a bool")
				}
				allParameters = b
			}
			if v, lerr := opts.LookupErr("showDetails"); lerr == nil {
				b, bok := bsonutil.ConvertToBool(v)
				if !bok {
					return errcode.NewTypeMismatch("showDetails should be a bool")
				}
				showDetails = b
			}
		case strings.HasPrefix(key, "$") || key == "comment":
			// Not parameter names.
		default:
			params = append(params, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if star {
		// Wildcard means every parameter without details, whatever else
		// the document carries.
		allParameters = true
		showDetails = false
		params = nil
	}

	resp, err := p.client.ExecuteGetParameter(ctx, reqCtx, connCtx, allParameters, showDetails, params)
	if err != nil {
		return nil, err
	}
	return response.NewResult(resp), nil
}

func (p *Processor) processKillOp(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.Response, error) {
	if err := requireAdmin(reqCtx); err != nil {
		return nil, err
	}

	v, err := reqCtx.Request.Document().LookupErr("op")
	if err != nil {
		return nil, errcode.NewBadValue("required field: op")
	}
	opID, ok := v.StringValueOK()
	if !ok {
		return nil, errcode.NewTypeMismatch("op must be a string")
	}

	resp, err := p.client.ExecuteKillOp(ctx, reqCtx, connCtx, opID)
	if err != nil {
		return nil, err
	}
	return response.NewResult(resp), nil
}
