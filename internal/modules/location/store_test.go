package location

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestRouteStore(t *testing.T) {
	redisAddr := os.Getenv("DROPTAXI_REDIS_ADDR")
	if redisAddr == "" {
		t.Skip("DROPTAXI_REDIS_ADDR not set; skipping integration test")
	}
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	ctx := context.Background()
	store := NewStore(rdb, time.Minute)
	origin := "place_id:" + uuid.NewString()
	dest := "place_id:mdu"

	if _, ok, err := store.Get(ctx, origin, dest); err != nil || ok {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}
	want := Route{DistanceKm: 462.35, DurationMinutes: 450}
	if err := store.Put(ctx, origin, dest, want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := store.Get(ctx, origin, dest)
	if err != nil || !ok {
		t.Fatalf("cached route: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Errorf("route = %+v, want %+v", got, want)
	}
	if _, ok, _ := store.Get(ctx, dest, origin); ok {
		t.Error("reverse direction shares the cached route")
	}
	if ttl := rdb.TTL(ctx, routeKey(origin, dest)).Val(); ttl <= 0 || ttl > time.Minute {
		t.Errorf("ttl = %v", ttl)
	}
}
