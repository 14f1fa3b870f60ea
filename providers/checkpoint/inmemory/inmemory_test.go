package inmemory

import (
	"context"
	"sync"
	"testing"
)

func TestGetSet_RoundTrip(testCase *testing.T) {
	store := New()
	ctx := context.Background()

	if err := store.Set(ctx, "run-1", []byte(`{"step":3}`)); err != nil {
		testCase.Fatalf("set: %v", err)
	}

	data, found, err := store.Get(ctx, "run-1")
	if err != nil {
		testCase.Fatalf("get: %v", err)
	}
	if !found {
		testCase.Fatal("expected snapshot to be found")
	}
	if string(data) != `{"step":3}` {
		testCase.Errorf("unexpected snapshot: %s", data)
	}
}

func TestGet_MissingID(testCase *testing.T) {
	store := New()

	data, found, err := store.Get(context.Background(), "never-stored")
	if err != nil {
		testCase.Fatalf("get: %v", err)
	}
	if found || data != nil {
		testCase.Errorf("expected not-found, got (%v, %v)", data, found)
	}
}

func TestSet_Overwrites(testCase *testing.T) {
	store := New()
	ctx := context.Background()

	store.Set(ctx, "run-1", []byte("old")) //nolint:errcheck
	store.Set(ctx, "run-1", []byte("new")) //nolint:errcheck

	data, _, _ := store.Get(ctx, "run-1")
	if string(data) != "new" {
		testCase.Errorf("expected overwrite, got %s", data)
	}
	if store.Len() != 1 {
		testCase.Errorf("expected a single snapshot, got %d", store.Len())
	}
}

func TestGetSet_CopiesBytes(testCase *testing.T) {
	store := New()
	ctx := context.Background()

	original := []byte("snapshot")
	store.Set(ctx, "run-1", original) //nolint:errcheck
	original[0] = 'X'

	stored, _, _ := store.Get(ctx, "run-1")
	if string(stored) != "snapshot" {
		testCase.Errorf("stored bytes must be isolated from the caller, got %s", stored)
	}

	stored[0] = 'Y'
	again, _, _ := store.Get(ctx, "run-1")
	if string(again) != "snapshot" {
		testCase.Errorf("returned bytes must be isolated from the store, got %s", again)
	}
}

func TestDelete(testCase *testing.T) {
	store := New()
	ctx := context.Background()

	store.Set(ctx, "run-1", []byte("snapshot")) //nolint:errcheck
	store.Delete(ctx, "run-1")

	if _, found, _ := store.Get(ctx, "run-1"); found {
		testCase.Error("expected snapshot to be deleted")
	}
}

func TestConcurrentAccess(testCase *testing.T) {
	store := New()
	ctx := context.Background()

	var waitGroup sync.WaitGroup
	for i := 0; i < 8; i++ {
		waitGroup.Add(1)
		go func(id byte) {
			defer waitGroup.Done()
			key := string([]byte{'r', 'u', 'n', '-', '0' + id})
			store.Set(ctx, key, []byte{id})       //nolint:errcheck
			if _, found, _ := store.Get(ctx, key); !found {
				testCase.Errorf("snapshot %s lost", key)
			}
		}(byte(i))
	}
	waitGroup.Wait()

	if store.Len() != 8 {
		testCase.Errorf("expected 8 snapshots, got %d", store.Len())
	}
}
