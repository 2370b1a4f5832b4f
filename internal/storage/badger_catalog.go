package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v3"
)

const catalogPrefix = "record:"

// BadgerCatalog хранит каталог записей в BadgerDB
type BadgerCatalog struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerCatalog открывает (или создаёт) каталог в dbPath
func NewBadgerCatalog(dbPath string) (*BadgerCatalog, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &BadgerCatalog{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
	}, nil
}

// Close закрывает хранилище данных
func (bc *BadgerCatalog) Close() error {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()

	if !bc.isReady {
		return nil
	}

	bc.isReady = false
	return bc.db.Close()
}

func (bc *BadgerCatalog) Put(ctx context.Context, entry RecordEntry) error {
	if entry.Name == "" {
		return fmt.Errorf("пустое имя записи")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	bc.mutex.RLock()
	defer bc.mutex.RUnlock()

	if !bc.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("ошибка сериализации записи: %w", err)
	}

	err = bc.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(catalogPrefix+entry.Name), data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

func (bc *BadgerCatalog) Get(ctx context.Context, name string) (RecordEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return RecordEntry{}, false, err
	}

	bc.mutex.RLock()
	defer bc.mutex.RUnlock()

	if !bc.isReady {
		return RecordEntry{}, false, fmt.Errorf("хранилище не готово")
	}

	var data []byte
	err := bc.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(catalogPrefix + name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})

	// Если запись не найдена, это не ошибка
	if errors.Is(err, badger.ErrKeyNotFound) {
		return RecordEntry{}, false, nil
	}
	if err != nil {
		return RecordEntry{}, false, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	var entry RecordEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return RecordEntry{}, false, fmt.Errorf("ошибка десериализации записи: %w", err)
	}
	return entry, true, nil
}

func (bc *BadgerCatalog) Delete(ctx context.Context, name string) error {
	bc.mutex.RLock()
	defer bc.mutex.RUnlock()

	if !bc.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	return bc.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(catalogPrefix + name))
	})
}

// List перебирает записи по префиксу; Badger отдаёт ключи в лексикографическом порядке
func (bc *BadgerCatalog) List(ctx context.Context) ([]RecordEntry, error) {
	bc.mutex.RLock()
	defer bc.mutex.RUnlock()

	if !bc.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var out []RecordEntry
	err := bc.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(catalogPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var entry RecordEntry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				return fmt.Errorf("ошибка десериализации %s: %w", it.Item().Key(), err)
			}
			out = append(out, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения каталога: %w", err)
	}
	return out, nil
}
