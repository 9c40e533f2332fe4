package cerr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime"

	"buf.build/gen/go/bufbuild/protovalidate/protocolbuffers/go/buf/validate"
	"connectrpc.com/connect"
	"google.golang.org/protobuf/proto"

	"github.com/kazz187/taskgraph/pkg/clog"
)

// Connect errors carry Kind and Fields as response metadata under these names.
const (
	KindHeader        = "Error-Kind"
	FieldHeaderPrefix = "Error-Field-"
)

type Error struct {
	Code    Code
	Kind    Kind              // rejection reason, empty for generic failures
	Msg     string            // returned to the caller together with Code
	Fields  map[string]string // ids of the tasks or edges involved
	Err     error             // logged, never returned
	Stack   string            // captured for errors logged at error level
	Details []proto.Message   // returned as connect error details
}

func NewError(code Code, msg string, underlying error) *Error {
	err := &Error{
		Code: code,
		Msg:  msg,
		Err:  underlying,
	}
	if clog.ConnectCodeToLevel(code.ConnectCode()) == clog.LevelError {
		stackTrace := make([]byte, 2048)
		n := runtime.Stack(stackTrace, false)
		err.Stack = string(stackTrace[0:n])
	}
	return err
}

func (e *Error) Error() string {
	label := e.Code.String()
	if e.Kind != "" {
		label = string(e.Kind)
	}
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s%s", label, e.Msg, formatFields(e.Fields))
	}
	return fmt.Sprintf("[%s] %s%s: %s", label, e.Msg, formatFields(e.Fields), e.Err.Error())
}

// Field returns the identifier recorded under key, or "".
func (e *Error) Field(key string) string {
	return e.Fields[key]
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AddViolation attaches a protovalidate violation so connect clients can
// read the failed rule without parsing the message.
func (e *Error) AddViolation(msg, rule string) *Error {
	e.Details = append(e.Details, &validate.Violation{
		Message: &msg,
		RuleId:  &rule,
	})
	return e
}

func (e *Error) ConnectError() *connect.Error {
	connectErr := connect.NewError(e.Code.ConnectCode(), errors.New(e.Msg))
	if e.Kind != "" {
		connectErr.Meta().Set(KindHeader, string(e.Kind))
	}
	for k, v := range e.Fields {
		connectErr.Meta().Set(FieldHeaderPrefix+k, v)
	}
	for _, detailMsg := range e.Details {
		detail, err := connect.NewErrorDetail(detailMsg)
		if err != nil {
			continue
		}
		connectErr.AddDetail(detail)
	}
	return connectErr
}

func asError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// resolve turns any handler error into an *Error and records it on the
// request log context. Client disconnects are reported as Canceled.
func resolve(ctx context.Context, err error) *Error {
	if errors.Is(err, context.Canceled) {
		return NewError(Canceled, "connection closed", err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.Err == "operation was canceled" {
		return NewError(Canceled, "connection closed", err)
	}

	clog.AddError(ctx, err)
	e, ok := asError(err)
	if !ok {
		e = NewError(Unknown, "unknown error", err)
	}
	if e.Stack != "" {
		clog.AddStack(ctx, e.Stack)
	}
	clog.AddErrorKind(ctx, string(e.Kind))
	return e
}
