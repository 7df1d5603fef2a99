// README: Pricing store backed by PostgreSQL; loads optional rate overrides at startup.
package pricing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// LoadRateTable merges rows of fare_rates over the default table. An empty
// table yields the defaults unchanged.
func (s *Store) LoadRateTable(ctx context.Context) (RateTable, error) {
	def := DefaultRateTable()
	rows, err := s.db.Query(ctx, `
		SELECT vehicle_type, label, seats, per_km_single, per_km_round
		FROM fare_rates`)
	if err != nil {
		return def, fmt.Errorf("query fare_rates: %w", err)
	}
	defer rows.Close()

	merged := make(map[VehicleClass]VehicleRate)
	for _, v := range def.Vehicles() {
		merged[v.Class] = v
	}
	for rows.Next() {
		var (
			class string
			v     VehicleRate
		)
		if err := rows.Scan(&class, &v.Label, &v.Seats, &v.PerKm.OneWay, &v.PerKm.RoundTrip); err != nil {
			return def, fmt.Errorf("scan fare_rates: %w", err)
		}
		c, err := ParseVehicleClass(class)
		if err != nil {
			return def, err
		}
		v.Class = c
		merged[c] = v
	}
	if err := rows.Err(); err != nil {
		return def, err
	}

	out := make([]VehicleRate, 0, len(merged))
	for _, v := range merged {
		out = append(out, v)
	}
	return NewRateTable(out, def.MinDistance())
}
