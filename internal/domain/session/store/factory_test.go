package store

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestFactoryMemory(t *testing.T) {
	s, err := New(Config{Driver: DriverMemory}, Dependencies{})
	if err != nil {
		t.Fatalf("New memory store: %v", err)
	}
	defer s.Close(context.Background())
}

func TestFactoryDefaultsToMemory(t *testing.T) {
	s, err := New(Config{}, Dependencies{})
	if err != nil {
		t.Fatalf("New default store: %v", err)
	}
	defer s.Close(context.Background())

	stats, _ := s.Stats(context.Background())
	if stats["type"] != "memory" {
		t.Fatalf("expected memory store, got %v", stats["type"])
	}
}

func TestFactorySQLite(t *testing.T) {
	s, err := New(Config{Driver: DriverSQLite}, Dependencies{SQLiteDB: newTestSQLiteDB(t)})
	if err != nil {
		t.Fatalf("New sqlite store: %v", err)
	}
	defer s.Close(context.Background())
}

func TestFactorySQLiteRequiresDB(t *testing.T) {
	if _, err := New(Config{Driver: DriverSQLite}, Dependencies{}); err == nil {
		t.Fatalf("expected error without database handle")
	}
}

func TestFactoryRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	s, err := New(Config{
		Driver: DriverRedis,
		Redis:  &RedisConfig{Addr: mr.Addr()},
	}, Dependencies{})
	if err != nil {
		t.Fatalf("New redis store: %v", err)
	}
	defer s.Close(context.Background())
}

func TestFactoryUnknownDriver(t *testing.T) {
	if _, err := New(Config{Driver: "etcd"}, Dependencies{}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
