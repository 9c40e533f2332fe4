package cerr

import (
	"context"
	"errors"
	"fmt"

	"github.com/kazz187/taskgraph/pkg/storage"
)

// WrapStorageError classifies a failed storage call on path. op names the
// call ("read", "append", "list") for the log.
func WrapStorageError(op, path string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		e := WrapKind(KindNotFound, fmt.Sprintf("%s not found", path), err)
		e.Fields = map[string]string{"path": path}
		return e
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return UnavailableError(fmt.Sprintf("storage %s interrupted", op), err)
	}
	return WrapKind(KindInternal, "server error", fmt.Errorf("failed to %s %s: %w", op, path, err))
}
