package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"gorm.io/gorm"

	"agentdeck-server/internal/domain/session/model"
	"agentdeck-server/internal/platform/storage"
)

func newTestSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:test-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := storage.Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = storage.Close(db) })
	return db
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, Store) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	s, err := NewRedis(Config{Redis: &RedisConfig{Addr: mr.Addr()}})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return mr, s
}

// drivers returns one fresh store per driver.
func drivers(t *testing.T) map[string]Store {
	t.Helper()
	mem := NewMemory(Config{})
	t.Cleanup(func() { _ = mem.Close(context.Background()) })

	sqlite, err := NewSQLite(newTestSQLiteDB(t), Config{})
	if err != nil {
		t.Fatalf("NewSQLite error: %v", err)
	}

	_, redisStore := newTestRedis(t)

	return map[string]Store{
		DriverMemory: mem,
		DriverSQLite: sqlite,
		DriverRedis:  redisStore,
	}
}

func TestStoreLifecycle(t *testing.T) {
	for name, s := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := s.Get(ctx, 1); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound before login, got %v", err)
			}

			first := model.LoginRecord{UserID: 1, SessionToken: "T1", LoginTime: time.UnixMilli(1000)}
			if err := s.Put(ctx, first); err != nil {
				t.Fatalf("Put error: %v", err)
			}
			got, err := s.Get(ctx, 1)
			if err != nil {
				t.Fatalf("Get error: %v", err)
			}
			if got.SessionToken != "T1" || got.LoginTime.UnixMilli() != 1000 {
				t.Fatalf("unexpected record: %+v", got)
			}

			second := model.LoginRecord{UserID: 1, SessionToken: "T2", LoginTime: time.UnixMilli(2000)}
			if err := s.Put(ctx, second); err != nil {
				t.Fatalf("Put overwrite error: %v", err)
			}
			got, err = s.Get(ctx, 1)
			if err != nil {
				t.Fatalf("Get error: %v", err)
			}
			if got.SessionToken != "T2" || got.LoginTime.UnixMilli() != 2000 {
				t.Fatalf("record not overwritten: %+v", got)
			}

			stats, err := s.Stats(ctx)
			if err != nil {
				t.Fatalf("Stats error: %v", err)
			}
			if fmt.Sprint(stats["total"]) != "1" {
				t.Fatalf("expected one record, stats=%v", stats)
			}

			if err := s.Delete(ctx, 1); err != nil {
				t.Fatalf("Delete error: %v", err)
			}
			if _, err := s.Get(ctx, 1); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestStoreDeleteIfCurrent(t *testing.T) {
	for name, s := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			deleted, err := s.DeleteIfCurrent(ctx, 4, "T1")
			if err != nil || deleted {
				t.Fatalf("expected no-op without a record, got deleted=%v err=%v", deleted, err)
			}

			if err := s.Put(ctx, model.LoginRecord{UserID: 4, SessionToken: "T1", LoginTime: time.UnixMilli(1000)}); err != nil {
				t.Fatalf("Put error: %v", err)
			}
			if err := s.Put(ctx, model.LoginRecord{UserID: 4, SessionToken: "T2", LoginTime: time.UnixMilli(2000)}); err != nil {
				t.Fatalf("Put error: %v", err)
			}

			// the superseded token must not remove the newer login
			deleted, err = s.DeleteIfCurrent(ctx, 4, "T1")
			if err != nil || deleted {
				t.Fatalf("stale token deleted=%v err=%v", deleted, err)
			}
			got, err := s.Get(ctx, 4)
			if err != nil || got.SessionToken != "T2" {
				t.Fatalf("current record lost: %+v err=%v", got, err)
			}

			deleted, err = s.DeleteIfCurrent(ctx, 4, "T2")
			if err != nil || !deleted {
				t.Fatalf("current token deleted=%v err=%v", deleted, err)
			}
			if _, err := s.Get(ctx, 4); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestStoreRejectsZeroUser(t *testing.T) {
	for name, s := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Put(context.Background(), model.LoginRecord{SessionToken: "x"}); err == nil {
				t.Fatalf("expected error for zero user id")
			}
		})
	}
}

func TestStoreConcurrentOverwriteKeepsOneRecord(t *testing.T) {
	for name, s := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var wg sync.WaitGroup
			for i := 1; i <= 20; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					rec := model.LoginRecord{
						UserID:       7,
						SessionToken: fmt.Sprintf("T%d", i),
						LoginTime:    time.UnixMilli(int64(i)),
					}
					if err := s.Put(ctx, rec); err != nil {
						t.Errorf("Put error: %v", err)
					}
				}(i)
			}
			wg.Wait()

			got, err := s.Get(ctx, 7)
			if err != nil {
				t.Fatalf("Get error: %v", err)
			}
			// token and time always come from the same write
			if got.SessionToken != fmt.Sprintf("T%d", got.LoginTime.UnixMilli()) {
				t.Fatalf("torn record: %+v", got)
			}
		})
	}
}

func TestMemoryStoreExpiration(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(Config{
		TTL:    50 * time.Millisecond,
		Memory: &MemoryConfig{GCInterval: 5 * time.Millisecond},
	})
	t.Cleanup(func() { _ = s.Close(ctx) })

	if err := s.Put(ctx, model.LoginRecord{UserID: 2, SessionToken: "T", LoginTime: time.Now()}); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if _, err := s.Get(ctx, 2); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}

	time.Sleep(80 * time.Millisecond)
	if _, err := s.Get(ctx, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
	stats, _ := s.Stats(ctx)
	if stats["total"] != 0 {
		t.Fatalf("expected gc loop to purge record, stats=%v", stats)
	}
}

func TestRedisStoreTTL(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	s, err := NewRedis(Config{TTL: time.Minute, Redis: &RedisConfig{Addr: mr.Addr(), Prefix: "test:"}})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	defer s.Close(ctx)

	if err := s.Put(ctx, model.LoginRecord{UserID: 3, SessionToken: "T", LoginTime: time.Now()}); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if !mr.Exists("test:3") {
		t.Fatalf("expected key test:3")
	}
	if ttl := mr.TTL("test:3"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := s.Get(ctx, 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after ttl, got %v", err)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	s, err := NewRedis(Config{Redis: &RedisConfig{Addr: mr.Addr()}})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	defer s.Close(ctx)
	mr.Close()

	if _, err := s.Get(ctx, 1); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected transport error, got %v", err)
	}
}
