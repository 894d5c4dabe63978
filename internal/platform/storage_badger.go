// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package platform

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/vigialabs/vigia-go/internal/logging"
)

// DefaultStorageTimeoutMs bounds each storage operation.
const DefaultStorageTimeoutMs = 10_000

// storageKeyPrefix namespaces SDK keys inside a possibly shared database.
const storageKeyPrefix = "vigia:"

// BadgerStorage implements Storage over BadgerDB. Operations run on their
// own goroutine and resolve the callback exactly once, with a timeout
// failure if badger stalls.
type BadgerStorage struct {
	db        *badger.DB
	sched     Scheduler
	timeoutMs int64
}

// OpenBadger opens (or creates) a badger database at dir with logging
// routed through the SDK logger. An empty dir opens an in-memory database,
// used by tests and by hosts without a writable data directory.
func OpenBadger(dir string) (*badger.DB, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}
	return db, nil
}

// NewBadgerStorage wraps db as the SDK's Storage. A non-positive timeout
// falls back to DefaultStorageTimeoutMs.
func NewBadgerStorage(db *badger.DB, sched Scheduler, timeoutMs int64) *BadgerStorage {
	if timeoutMs <= 0 {
		timeoutMs = DefaultStorageTimeoutMs
	}
	return &BadgerStorage{db: db, sched: sched, timeoutMs: timeoutMs}
}

// Load reads the value at key. A missing key resolves ok with an empty
// value, matching first-run behavior where nothing was persisted yet.
func (s *BadgerStorage) Load(key string, cb Callback) {
	done := WithTimeout(s.sched, cb, s.timeoutMs, "storage load timed out")
	go func() {
		var value string
		err := s.db.View(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(storageKeyPrefix + key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			return item.Value(func(val []byte) error {
				value = string(val)
				return nil
			})
		})
		if err != nil {
			logging.Err(err).Str("key", key).Msg("storage load failed")
			done(false, err.Error())
			return
		}
		done(true, value)
	}()
}

// Save writes value at key.
func (s *BadgerStorage) Save(key, value string, cb Callback) {
	done := WithTimeout(s.sched, cb, s.timeoutMs, "storage save timed out")
	go func() {
		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Set([]byte(storageKeyPrefix+key), []byte(value))
		})
		if err != nil {
			logging.Err(err).Str("key", key).Msg("storage save failed")
			done(false, err.Error())
			return
		}
		done(true, "")
	}()
}

// Delete removes key. Deleting a missing key succeeds.
func (s *BadgerStorage) Delete(key string, cb Callback) {
	done := WithTimeout(s.sched, cb, s.timeoutMs, "storage delete timed out")
	go func() {
		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete([]byte(storageKeyPrefix + key))
		})
		if err != nil {
			logging.Err(err).Str("key", key).Msg("storage delete failed")
			done(false, err.Error())
			return
		}
		done(true, "")
	}()
}
