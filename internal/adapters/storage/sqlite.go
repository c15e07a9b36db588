package storage

// sqlite.go — persistencia del ladder en SQLite (pure Go, sin CGo).
//
// Tablas:
//   orders  — una fila por orden trackeada, clave por order ref.
//             UPSERT en el alta (la reconciliación puede re-adoptar),
//             DELETE en cancel/fill.
//   markets — metadata por mercado: título cacheado + contadores de
//             cooldown, para que un reinicio no resetee el estado.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/ladderbot/internal/domain"
	"github.com/alejandrodnm/ladderbot/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id         TEXT NOT NULL,          -- UUID local
    order_ref  TEXT PRIMARY KEY,       -- id asignado por el gateway
    market_id  TEXT NOT NULL,
    price      REAL NOT NULL,
    neg_risk   INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_market ON orders(market_id);

CREATE TABLE IF NOT EXISTS markets (
    market_id      TEXT PRIMARY KEY,
    title          TEXT NOT NULL DEFAULT '',
    cancel_count   INTEGER NOT NULL DEFAULT 0,
    cooldown_until DATETIME
);
`

// SQLiteStore implementa ports.OrderStore usando SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ ports.OrderStore = (*SQLiteStore)(nil)

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// SaveOrder inserta (o sobreescribe) una orden trackeada.
func (s *SQLiteStore) SaveOrder(ctx context.Context, rec domain.OrderRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (id, order_ref, market_id, price, neg_risk, created_at)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(order_ref) DO UPDATE SET
		  market_id=excluded.market_id,
		  price=excluded.price,
		  neg_risk=excluded.neg_risk`,
		rec.ID, rec.Ref, rec.MarketID, rec.Price, boolToInt(rec.NegRisk), rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveOrder %s: %w", rec.Ref, err)
	}
	return nil
}

// DeleteOrder elimina una orden por su ref. Borrar un ref inexistente no es error.
func (s *SQLiteStore) DeleteOrder(ctx context.Context, ref string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE order_ref=?`, ref); err != nil {
		return fmt.Errorf("storage.DeleteOrder %s: %w", ref, err)
	}
	return nil
}

// LoadOrders devuelve todas las órdenes trackeadas.
func (s *SQLiteStore) LoadOrders(ctx context.Context) ([]domain.OrderRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_ref, market_id, price, neg_risk, created_at
		FROM orders ORDER BY market_id, price DESC`)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadOrders: query: %w", err)
	}
	defer rows.Close()

	var records []domain.OrderRecord
	for rows.Next() {
		var rec domain.OrderRecord
		var negRiskInt int
		if err := rows.Scan(&rec.ID, &rec.Ref, &rec.MarketID, &rec.Price, &negRiskInt, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage.LoadOrders: scan: %w", err)
		}
		rec.NegRisk = negRiskInt != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveMarket hace upsert de la metadata de un mercado.
func (s *SQLiteStore) SaveMarket(ctx context.Context, state domain.MarketState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO markets (market_id, title, cancel_count, cooldown_until)
		VALUES (?,?,?,?)
		ON CONFLICT(market_id) DO UPDATE SET
		  title=excluded.title,
		  cancel_count=excluded.cancel_count,
		  cooldown_until=excluded.cooldown_until`,
		state.MarketID, state.Title, state.CancelCount, nullTimeVal(state.CooldownUntil),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveMarket %s: %w", state.MarketID, err)
	}
	return nil
}

// LoadMarkets devuelve la metadata persistida de todos los mercados.
func (s *SQLiteStore) LoadMarkets(ctx context.Context) ([]domain.MarketState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT market_id, title, cancel_count, cooldown_until FROM markets`)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadMarkets: query: %w", err)
	}
	defer rows.Close()

	var states []domain.MarketState
	for rows.Next() {
		var st domain.MarketState
		var cooldown sql.NullString
		if err := rows.Scan(&st.MarketID, &st.Title, &st.CancelCount, &cooldown); err != nil {
			return nil, fmt.Errorf("storage.LoadMarkets: scan: %w", err)
		}
		if cooldown.Valid && cooldown.String != "" {
			st.CooldownUntil = parseStoredTime(cooldown.String)
		}
		states = append(states, st)
	}
	return states, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func parseStoredTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, _ = time.Parse("2006-01-02 15:04:05", s)
	}
	return t
}

func nullTimeVal(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
