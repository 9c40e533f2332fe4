package cerr

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Kind is the stable, machine-readable reason of a graph or workflow rejection.
// Upstream layers map it to transport status codes through Code.
type Kind string

const (
	KindNotFound               Kind = "NotFound"
	KindCrossProjectDependency Kind = "CrossProjectDependency"
	KindSelfDependency         Kind = "SelfDependency"
	KindCircularDependency     Kind = "CircularDependency"
	KindParentSubtaskDeadlock  Kind = "ParentSubtaskDeadlock"
	KindDuplicateDependency    Kind = "DuplicateDependency"
	KindBlockedByDependency    Kind = "BlockedByDependency"
	KindIncompleteSubtasks     Kind = "IncompleteSubtasks"
	KindConstraintViolation    Kind = "ConstraintViolation"
	KindUnavailable            Kind = "Unavailable"
	KindInvalidArgument        Kind = "InvalidArgument"
	KindInternal               Kind = "Internal"
)

var kindToCodeMap = map[Kind]Code{
	KindNotFound:               NotFound,
	KindCrossProjectDependency: InvalidArgument,
	KindSelfDependency:         InvalidArgument,
	KindCircularDependency:     FailedPrecondition,
	KindParentSubtaskDeadlock:  FailedPrecondition,
	KindDuplicateDependency:    AlreadyExists,
	KindBlockedByDependency:    FailedPrecondition,
	KindIncompleteSubtasks:     FailedPrecondition,
	KindConstraintViolation:    FailedPrecondition,
	KindUnavailable:            Unavailable,
	KindInvalidArgument:        InvalidArgument,
	KindInternal:               Internal,
}

func (k Kind) Code() Code {
	c, ok := kindToCodeMap[k]
	if !ok {
		return Unknown
	}
	return c
}

// Retryable reports whether the same request may succeed when repeated unchanged.
func (k Kind) Retryable() bool {
	return k == KindUnavailable
}

// NewKindError builds an error for a rejected operation. fields identifies the
// tasks or edges involved, e.g. {"blocking_id": "...", "blocked_id": "..."}.
func NewKindError(kind Kind, msg string, fields map[string]string) *Error {
	err := NewError(kind.Code(), msg, nil)
	err.Kind = kind
	err.Fields = fields
	err.AddViolation(msg, string(kind))
	return err
}

// WrapKind is NewKindError with an underlying cause kept for logging.
func WrapKind(kind Kind, msg string, underlying error) *Error {
	err := NewError(kind.Code(), msg, underlying)
	err.Kind = kind
	err.AddViolation(msg, string(kind))
	return err
}

func NotFoundError(target, id string) *Error {
	return NewKindError(KindNotFound, fmt.Sprintf("%s not found", target), map[string]string{target + "_id": id})
}

func InvalidArgumentError(msg string, fields map[string]string) *Error {
	return NewKindError(KindInvalidArgument, msg, fields)
}

func UnavailableError(msg string, underlying error) *Error {
	return WrapKind(KindUnavailable, msg, underlying)
}

// KindOf returns the Kind carried by err, or "" when err is nil or carries no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var cerr *Error
	if errors.As(err, &cerr) {
		if cerr.Kind != "" {
			return cerr.Kind
		}
		if cerr.Code == Internal || cerr.Code == Unknown {
			return KindInternal
		}
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func JoinIDs(ids []string) string {
	return strings.Join(ids, ",")
}

func formatFields(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	keys := slices.Sorted(maps.Keys(fields))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+fields[k])
	}
	return " (" + strings.Join(parts, " ") + ")"
}
