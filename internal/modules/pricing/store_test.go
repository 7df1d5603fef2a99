package pricing

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestLoadRateTable(t *testing.T) {
	dsn := os.Getenv("DROPTAXI_TEST_DSN")
	if dsn == "" {
		t.Skip("DROPTAXI_TEST_DSN not set; skipping DB-backed test")
	}
	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, `CREATE TABLE IF NOT EXISTS fare_rates (
		vehicle_type TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		seats INTEGER NOT NULL,
		per_km_single DOUBLE PRECISION NOT NULL,
		per_km_round DOUBLE PRECISION NOT NULL
	)`); err != nil {
		t.Fatal(err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM fare_rates`); err != nil {
		t.Fatal(err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO fare_rates VALUES ('sedan', 'Sedan', 4, 15, 14)`); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _, _ = db.Exec(context.Background(), `DELETE FROM fare_rates WHERE vehicle_type = 'sedan'`) })

	table, err := NewStore(db).LoadRateTable(ctx)
	if err != nil {
		t.Fatalf("LoadRateTable() error = %v", err)
	}
	if r, _ := table.Rate(VehicleSedan, TripOneWay); r != 15 {
		t.Errorf("sedan one-way = %v, want override 15", r)
	}
	if r, _ := table.Rate(VehicleInnova, TripRoundTrip); r != 18 {
		t.Errorf("innova round = %v, want default 18", r)
	}
	if len(table.Vehicles()) != 3 {
		t.Errorf("vehicles = %d", len(table.Vehicles()))
	}
}
