//go:build integration

package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"stayalive/internal/domain"
)

var (
	testClient *goredis.Client
	tc         testcontainers.Container
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("6379/tcp"),
			wait.ForLog("Ready to accept connections"),
		).WithDeadline(60 * time.Second),
	}

	var err error
	tc, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Println("cannot start container:", err)
		os.Exit(1)
	}

	host, _ := tc.Host(ctx)
	mappedPort, _ := tc.MappedPort(ctx, "6379/tcp")

	testClient = goredis.NewClient(&goredis.Options{
		Addr: fmt.Sprintf("%s:%s", host, mappedPort.Port()),
	})
	if err := testClient.Ping(ctx).Err(); err != nil {
		fmt.Println("redis ping:", err)
		_ = tc.Terminate(ctx)
		os.Exit(1)
	}

	code := m.Run()

	_ = testClient.Close()
	_ = tc.Terminate(ctx)
	os.Exit(code)
}

func testStore(t *testing.T, ttl time.Duration) *PositionStore {
	t.Helper()
	if err := testClient.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("flushdb: %v", err)
	}
	return &PositionStore{client: testClient, ttl: ttl}
}

func TestPositionStore_SetGetDelete(t *testing.T) {
	store := testStore(t, time.Minute)
	rescuerID := uuid.New()

	got, err := store.Get(context.Background(), rescuerID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil position, got %+v", got)
	}

	pos := domain.RescuerPosition{RescuerID: rescuerID, Lat: 48.85, Lng: 2.35}
	if err := store.Set(context.Background(), pos); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err = store.Get(context.Background(), rescuerID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Lat != pos.Lat || got.Lng != pos.Lng || got.RescuerID != rescuerID {
		t.Fatalf("unexpected position: %+v", got)
	}

	if err := store.Delete(context.Background(), rescuerID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err = store.Get(context.Background(), rescuerID)
	if err != nil {
		t.Fatalf("Get after delete: %v", err)
	}
	if got != nil {
		t.Fatalf("expected deleted position, got %+v", got)
	}
}

func TestPositionStore_SetOverwritesPrevious(t *testing.T) {
	store := testStore(t, time.Minute)
	rescuerID := uuid.New()

	if err := store.Set(context.Background(), domain.RescuerPosition{RescuerID: rescuerID, Lat: 1, Lng: 1}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(context.Background(), domain.RescuerPosition{RescuerID: rescuerID, Lat: 2, Lng: 3}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := store.Get(context.Background(), rescuerID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Lat != 2 || got.Lng != 3 {
		t.Fatalf("expected the latest report, got %+v", got)
	}

	all, err := store.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one entry per rescuer, got %d", len(all))
	}
}

func TestPositionStore_All(t *testing.T) {
	store := testStore(t, time.Minute)

	ids := map[uuid.UUID]bool{}
	for i := 0; i < 3; i++ {
		id := uuid.New()
		ids[id] = true
		pos := domain.RescuerPosition{RescuerID: id, Lat: float64(i), Lng: float64(i)}
		if err := store.Set(context.Background(), pos); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	// unrelated keys must not show up
	if err := testClient.Set(context.Background(), "something:else", "x", 0).Err(); err != nil {
		t.Fatalf("set unrelated key: %v", err)
	}

	all, err := store.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 positions, got %d", len(all))
	}
	for _, pos := range all {
		if !ids[pos.RescuerID] {
			t.Fatalf("unexpected rescuer in listing: %s", pos.RescuerID)
		}
	}
}

func TestPositionStore_TTLExpiry(t *testing.T) {
	store := testStore(t, 100*time.Millisecond)
	rescuerID := uuid.New()

	if err := store.Set(context.Background(), domain.RescuerPosition{RescuerID: rescuerID, Lat: 1, Lng: 1}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	got, err := store.Get(context.Background(), rescuerID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected stale position to expire, got %+v", got)
	}

	all, err := store.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty listing after expiry, got %d", len(all))
	}
}
