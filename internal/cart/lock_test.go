package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
)

func TestRedisLockerFailsFastWhenHeld(t *testing.T) {
	kv := newFakeKV()
	locker, err := NewRedisLocker(kv, 0)
	if err != nil {
		t.Fatalf("new locker: %v", err)
	}
	customer := uuid.New()

	unlock, err := locker.Lock(context.Background(), customer)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := locker.Lock(context.Background(), customer); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict while held, got %v", err)
	}

	unlock()
	again, err := locker.Lock(context.Background(), customer)
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	again()
}

func TestRedisLockerReleaseKeepsForeignLock(t *testing.T) {
	kv := newFakeKV()
	locker, _ := NewRedisLocker(kv, 0)
	customer := uuid.New()

	unlock, err := locker.Lock(context.Background(), customer)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	key := kv.LockKey("cart", customer.String())
	kv.values[key] = "someone-else"

	unlock()
	if kv.values[key] != "someone-else" {
		t.Fatal("release removed a lock it did not own")
	}
}
