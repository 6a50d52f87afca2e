package blobstore

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/dshills/gitscout-mcp/pkg/types"
)

// Key prefixes. Blob bytes and reference counts live under separate
// prefixes so iteration over one never touches the other.
var (
	blobPrefix = []byte("b:")
	refPrefix  = []byte("r:")
)

// Store is a content-addressed blob store. It exclusively owns blob bytes;
// chunks and embeddings reference blobs by hash only.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// Options configures a Store.
type Options struct {
	// Path is the on-disk directory for the store. Ignored when InMemory
	// is set.
	Path string

	// InMemory runs the store without persistence, for tests.
	InMemory bool

	// Logger receives store and BadgerDB log output. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens a blob store, creating the directory if needed.
func Open(opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(opts.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create blob store directory: %w", err)
		}
		bopts = badger.DefaultOptions(opts.Path)
	}

	bopts.Logger = &badgerLoggerAdapter{logger: logger}
	bopts.Compression = options.None

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores content under its hash. Idempotent: inserting identical
// content twice returns the same hash and performs no duplicate write
// beyond a reference-count bump used for garbage-collection accounting.
func (s *Store) Put(content []byte) (types.Hash, error) {
	h := types.HashBytes(content)
	bk := blobKey(h)
	rk := refKey(h)

	err := s.db.Update(func(txn *badger.Txn) error {
		refs := uint64(0)
		item, err := txn.Get(rk)
		switch err {
		case nil:
			if err := item.Value(func(val []byte) error {
				if len(val) == 8 {
					refs = binary.LittleEndian.Uint64(val)
				}
				return nil
			}); err != nil {
				return err
			}
		case badger.ErrKeyNotFound:
			// First sighting, write the bytes.
			if err := txn.Set(bk, content); err != nil {
				return err
			}
		default:
			return err
		}

		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, refs+1)
		return txn.Set(rk, buf)
	})
	if err != nil {
		return types.Hash{}, fmt.Errorf("put blob %s: %w", h.Short(), err)
	}
	return h, nil
}

// Exists reports whether content with the given hash is stored.
func (s *Store) Exists(h types.Hash) (bool, error) {
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(blobKey(h))
		switch err {
		case nil:
			found = true
			return nil
		case badger.ErrKeyNotFound:
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return false, fmt.Errorf("check blob %s: %w", h.Short(), err)
	}
	return found, nil
}

// Get returns the content stored under the hash, or types.ErrNotFound.
func (s *Store) Get(h types.Hash) ([]byte, error) {
	var content []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blobKey(h))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("blob %s: %w", h.Short(), types.ErrNotFound)
		}
		if err != nil {
			return err
		}
		content, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return content, nil
}

// RefCount returns the number of times content with the given hash has
// been put. Zero with no error means the blob is absent.
func (s *Store) RefCount(h types.Hash) (uint64, error) {
	var refs uint64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(refKey(h))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) == 8 {
				refs = binary.LittleEndian.Uint64(val)
			}
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("refcount blob %s: %w", h.Short(), err)
	}
	return refs, nil
}

// Len returns the number of distinct blobs in the store.
func (s *Store) Len() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		iopts := badger.DefaultIteratorOptions
		iopts.PrefetchValues = false
		iopts.Prefix = blobPrefix
		it := txn.NewIterator(iopts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count blobs: %w", err)
	}
	return count, nil
}

func blobKey(h types.Hash) []byte {
	return append(append([]byte{}, blobPrefix...), h[:]...)
}

func refKey(h types.Hash) []byte {
	return append(append([]byte{}, refPrefix...), h[:]...)
}
