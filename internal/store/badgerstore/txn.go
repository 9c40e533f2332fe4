package badgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"gopkg.in/yaml.v3"

	"github.com/kazz187/taskgraph/pkg/cerr"
)

var errNotFound = badger.ErrKeyNotFound

func getYAML(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		if err := yaml.Unmarshal(val, v); err != nil {
			return fmt.Errorf("failed to unmarshal %s: %w", key, err)
		}
		return nil
	})
}

func setYAML(txn *badger.Txn, key []byte, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return txn.Set(key, data)
}

func setIndex(txn *badger.Txn, key []byte) error {
	return txn.Set(key, []byte{})
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, errNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// scanSuffixes returns the part of every key under prefix that follows it, in
// key order. The iterator is closed before returning so callers may write.
func scanSuffixes(txn *badger.Txn, prefix []byte) ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []string
	for it.Rewind(); it.Valid(); it.Next() {
		key := it.Item().Key()
		out = append(out, string(key[len(prefix):]))
	}
	return out, nil
}

func scanValues[T any](txn *badger.Txn, prefix []byte) ([]*T, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []*T
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		v := new(T)
		err := item.Value(func(val []byte) error {
			return yaml.Unmarshal(val, v)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", item.Key(), err)
		}
		out = append(out, v)
	}
	return out, nil
}

func deleteKeys(txn *badger.Txn, keys [][]byte) error {
	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func readError(target, id string, err error) error {
	if errors.Is(err, errNotFound) {
		return cerr.NotFoundError(target, id)
	}
	return wrapInfraError(fmt.Sprintf("failed to read %s", target), err)
}

func writeError(target string, err error) error {
	return wrapInfraError(fmt.Sprintf("failed to write %s", target), err)
}

// wrapInfraError leaves kind-carrying errors untouched and maps Badger's
// transient failures to Unavailable.
func wrapInfraError(msg string, err error) error {
	if err == nil {
		return nil
	}
	if cerr.KindOf(err) != "" {
		return err
	}
	switch {
	case errors.Is(err, badger.ErrConflict),
		errors.Is(err, badger.ErrDBClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, badger.ErrBlockedWrites):
		return cerr.UnavailableError("storage temporarily unavailable, retry later", fmt.Errorf("%s: %w", msg, err))
	case errors.Is(err, badger.ErrTxnTooBig):
		return cerr.WrapKind(cerr.KindConstraintViolation, "operation touches too many records", err)
	}
	return cerr.WrapKind(cerr.KindInternal, "server error", fmt.Errorf("%s: %w", msg, err))
}
