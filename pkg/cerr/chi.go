package cerr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kazz187/taskgraph/pkg/clog"
)

// REST handlers under the chi router never write the response themselves.
// They hand the value or the error to the receiver installed by
// NewConvertConnectErrorChiMiddleware, which encodes it once they return.
type responseReceiver struct {
	response any
	err      error
	set      bool
}

type responseReceiverKey struct{}

func receiverFrom(ctx context.Context) *responseReceiver {
	rr, _ := ctx.Value(responseReceiverKey{}).(*responseReceiver)
	return rr
}

func SetJSONResponse(ctx context.Context, response any) {
	if rr := receiverFrom(ctx); rr != nil {
		rr.response, rr.err, rr.set = response, nil, true
	}
}

func SetJSONError(ctx context.Context, err error) {
	if rr := receiverFrom(ctx); rr != nil {
		rr.response, rr.err, rr.set = nil, err, true
	}
}

func SetNewJSONError(ctx context.Context, code Code, msg string, err error) {
	SetJSONError(ctx, NewError(code, msg, err))
}

func NewConvertConnectErrorChiMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			rr := &responseReceiver{}
			ctx := context.WithValue(r.Context(), responseReceiverKey{}, rr)
			next.ServeHTTP(rw, r.WithContext(ctx))
			if !rr.set {
				// the handler wrote its own response
				return
			}
			if rr.err != nil {
				writeJSONError(ctx, rw, resolve(ctx, rr.err))
				return
			}
			writeJSON(ctx, rw, http.StatusOK, rr.response)
		})
	}
}

type httpError struct {
	Code    string            `json:"code"`
	Kind    string            `json:"kind,omitempty"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSONError(ctx context.Context, rw http.ResponseWriter, e *Error) {
	writeJSON(ctx, rw, e.Code.HTTPCode(), httpError{
		Code:    e.Code.String(),
		Kind:    string(e.Kind),
		Message: e.Msg,
		Fields:  e.Fields,
	})
}

func writeJSON(ctx context.Context, rw http.ResponseWriter, status int, body any) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(body); err != nil {
		clog.AddError(ctx, err)
		status = http.StatusInternalServerError
		buf = bytes.NewBufferString(`{"code":"internal","message":"server error"}` + "\n")
	}
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(status)
	if _, err := rw.Write(buf.Bytes()); err != nil {
		clog.AddError(ctx, errors.Join(clog.GetError(ctx), err))
	}
}
