package clog

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
)

type Level int

const (
	LevelDebug Level = iota + 1
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) Slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	}
	return slog.LevelError
}

// Log writes msg at l through the default logger.
func (l Level) Log(ctx context.Context, msg string) {
	slog.Log(ctx, l.Slog(), msg)
}

// HTTPStatusToLevel logs rejected requests (bad input, missing task,
// conflicting graph change) at Info. Authentication problems and throttling
// are Warn, server faults Error.
func HTTPStatusToLevel(status int) Level {
	switch {
	case status >= 100 && status < 400:
		return LevelInfo
	case status == 499:
		return LevelInfo
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusTooManyRequests:
		return LevelWarn
	case status >= 400 && status < 500:
		return LevelInfo
	case status == http.StatusServiceUnavailable:
		return LevelWarn
	}
	return LevelError
}

func ConnectCodeToLevel(code connect.Code) Level {
	switch code {
	case connect.CodeCanceled,
		connect.CodeInvalidArgument,
		connect.CodeDeadlineExceeded,
		connect.CodeNotFound,
		connect.CodeAlreadyExists,
		connect.CodeFailedPrecondition,
		connect.CodeAborted,
		connect.CodeOutOfRange:
		return LevelInfo
	case connect.CodePermissionDenied,
		connect.CodeUnauthenticated,
		connect.CodeResourceExhausted,
		// lock contention or a closing store; the caller may retry
		connect.CodeUnavailable:
		return LevelWarn
	}
	return LevelError
}
