package storage

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDB is the default persistent Store.
type LevelDB struct {
	db *leveldb.DB
	wo *opt.WriteOptions
}

// OpenLevelDB creates or opens a LevelDB database at path. Writes are synced
// to disk before Write returns.
func OpenLevelDB(path string) (*LevelDB, error) {
	if path == "" {
		return nil, errors.New("leveldb path is required")
	}
	db, err := leveldb.OpenFile(filepath.Clean(path), &opt.Options{
		Compression: opt.SnappyCompression,
	})
	if err != nil {
		return nil, fmt.Errorf("open leveldb: %w", err)
	}
	return &LevelDB{db: db, wo: &opt.WriteOptions{Sync: true}}, nil
}

func (l *LevelDB) Get(key []byte) ([]byte, error) {
	v, err := l.db.Get(key, nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		return nil, ErrNotFound
	case errors.Is(err, leveldb.ErrClosed):
		return nil, ErrClosed
	case err != nil:
		return nil, fmt.Errorf("leveldb get: %w", err)
	}
	return v, nil
}

func (l *LevelDB) Has(key []byte) (bool, error) {
	ok, err := l.db.Has(key, nil)
	if errors.Is(err, leveldb.ErrClosed) {
		return false, ErrClosed
	}
	if err != nil {
		return false, fmt.Errorf("leveldb has: %w", err)
	}
	return ok, nil
}

func (l *LevelDB) Write(b *Batch) error {
	lb := new(leveldb.Batch)
	_ = b.Replay(
		func(key, value []byte) error { lb.Put(key, value); return nil },
		func(key []byte) error { lb.Delete(key); return nil },
	)
	if err := l.db.Write(lb, l.wo); err != nil {
		if errors.Is(err, leveldb.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("leveldb write: %w", err)
	}
	return nil
}

func (l *LevelDB) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	it := l.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()

	for it.Next() {
		if err := fn(it.Key(), it.Value()); err != nil {
			if errors.Is(err, ErrStopIteration) {
				return nil
			}
			return err
		}
	}
	if err := it.Error(); err != nil {
		if errors.Is(err, leveldb.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("leveldb iterate: %w", err)
	}
	return nil
}

func (l *LevelDB) Close() error {
	return l.db.Close()
}
