package cerr

import (
	"net/http"

	"connectrpc.com/connect"
)

// Code is the transport-neutral status of an Error. Values follow the gRPC
// numbering so that ConnectCode is a direct conversion.
type Code int

const (
	OK                 = Code(0)
	Canceled           = Code(1)
	Unknown            = Code(2)
	InvalidArgument    = Code(3)
	DeadlineExceeded   = Code(4)
	NotFound           = Code(5)
	AlreadyExists      = Code(6)
	PermissionDenied   = Code(7)
	ResourceExhausted  = Code(8)
	FailedPrecondition = Code(9)
	Aborted            = Code(10)
	OutOfRange         = Code(11)
	Unimplemented      = Code(12)
	Internal           = Code(13)
	Unavailable        = Code(14)
	DataLoss           = Code(15)
	Unauthenticated    = Code(16)
)

type codeInfo struct {
	name   string
	status int
}

// A rejected graph change (cycle, deadlock, blocked completion) conflicts
// with the current state of the project, hence 409 for FailedPrecondition.
var codeTable = [...]codeInfo{
	OK:                 {"ok", http.StatusOK},
	Canceled:           {"canceled", 499},
	Unknown:            {"unknown", http.StatusInternalServerError},
	InvalidArgument:    {"invalid_argument", http.StatusBadRequest},
	DeadlineExceeded:   {"deadline_exceeded", http.StatusGatewayTimeout},
	NotFound:           {"not_found", http.StatusNotFound},
	AlreadyExists:      {"already_exists", http.StatusConflict},
	PermissionDenied:   {"permission_denied", http.StatusForbidden},
	ResourceExhausted:  {"resource_exhausted", http.StatusTooManyRequests},
	FailedPrecondition: {"failed_precondition", http.StatusConflict},
	Aborted:            {"aborted", http.StatusConflict},
	OutOfRange:         {"out_of_range", http.StatusBadRequest},
	Unimplemented:      {"unimplemented", http.StatusNotImplemented},
	Internal:           {"internal", http.StatusInternalServerError},
	Unavailable:        {"unavailable", http.StatusServiceUnavailable},
	DataLoss:           {"data_loss", http.StatusInternalServerError},
	Unauthenticated:    {"unauthenticated", http.StatusUnauthorized},
}

func (c Code) valid() bool {
	return c >= 0 && int(c) < len(codeTable)
}

func (c Code) String() string {
	if !c.valid() {
		return "unknown"
	}
	return codeTable[c].name
}

func (c Code) ConnectCode() connect.Code {
	if c == OK {
		return 0
	}
	if !c.valid() {
		return connect.CodeUnknown
	}
	return connect.Code(c)
}

func (c Code) HTTPCode() int {
	if !c.valid() {
		return http.StatusInternalServerError
	}
	return codeTable[c].status
}

// CodeOf returns the Code carried by err, reading connect errors as well.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	if e, ok := asError(err); ok {
		return e.Code
	}
	cc := connect.CodeOf(err)
	if c := Code(cc); cc != connect.CodeUnknown && c.valid() {
		return c
	}
	return Unknown
}
