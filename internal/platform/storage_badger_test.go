// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package platform

import (
	"testing"
)

func newTestStorage(t *testing.T) *BadgerStorage {
	t.Helper()
	db, err := OpenBadger("") // in-memory
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewBadgerStorage(db, NewTimeScheduler(), 0)
}

// wait synchronously collects a callback result.
func wait(t *testing.T, op func(cb Callback)) (bool, string) {
	t.Helper()
	type result struct {
		ok   bool
		data string
	}
	ch := make(chan result, 1)
	op(func(ok bool, data string) {
		ch <- result{ok, data}
	})
	r := <-ch
	return r.ok, r.data
}

func TestBadgerStorageRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	if ok, _ := wait(t, func(cb Callback) { s.Save("sdkConfig", `{"clId":"abc"}`, cb) }); !ok {
		t.Fatal("save failed")
	}
	ok, data := wait(t, func(cb Callback) { s.Load("sdkConfig", cb) })
	if !ok {
		t.Fatal("load failed")
	}
	if data != `{"clId":"abc"}` {
		t.Errorf("loaded %q", data)
	}
}

func TestBadgerStorageMissingKeyIsEmpty(t *testing.T) {
	s := newTestStorage(t)

	ok, data := wait(t, func(cb Callback) { s.Load("sdkConfig", cb) })
	if !ok {
		t.Fatal("load of missing key must succeed")
	}
	if data != "" {
		t.Errorf("loaded %q, want empty", data)
	}
}

func TestBadgerStorageDelete(t *testing.T) {
	s := newTestStorage(t)

	wait(t, func(cb Callback) { s.Save("sdkConfig", "x", cb) })
	if ok, _ := wait(t, func(cb Callback) { s.Delete("sdkConfig", cb) }); !ok {
		t.Fatal("delete failed")
	}
	ok, data := wait(t, func(cb Callback) { s.Load("sdkConfig", cb) })
	if !ok || data != "" {
		t.Errorf("after delete: ok=%v data=%q", ok, data)
	}

	// deleting again still succeeds
	if ok, _ := wait(t, func(cb Callback) { s.Delete("sdkConfig", cb) }); !ok {
		t.Error("delete of missing key must succeed")
	}
}
