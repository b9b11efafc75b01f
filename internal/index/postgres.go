package index

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/efreitasn/arcclear/internal/domain"
)

// PostgresIndex persists quotes in a PostgreSQL table so several engine
// instances can share one index.
type PostgresIndex struct {
	pool *pgxpool.Pool
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS intent_quotes (
    intent_id BYTEA PRIMARY KEY,
    side TEXT NOT NULL,
    asset TEXT NOT NULL,
    price NUMERIC(78, 0) NOT NULL,
    quantity NUMERIC(20, 0) NOT NULL,
    salt BYTEA NOT NULL
);
`

// NewPostgresIndex connects using dsn and ensures the table exists.
func NewPostgresIndex(ctx context.Context, dsn string) (*PostgresIndex, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect index: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping index: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create index table: %w", err)
	}
	return &PostgresIndex{pool: pool}, nil
}

// Close releases the connection pool.
func (p *PostgresIndex) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// Ping checks the database connection.
func (p *PostgresIndex) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresIndex) Put(ctx context.Context, q Quote) error {
	price := "0"
	if q.Payload.Price != nil {
		price = q.Payload.Price.Dec()
	}
	_, err := p.pool.Exec(ctx, `
INSERT INTO intent_quotes (intent_id, side, asset, price, quantity, salt)
VALUES ($1, $2, $3, $4::text::numeric, $5::text::numeric, $6)
ON CONFLICT (intent_id) DO UPDATE
SET side = EXCLUDED.side,
    asset = EXCLUDED.asset,
    price = EXCLUDED.price,
    quantity = EXCLUDED.quantity,
    salt = EXCLUDED.salt
`, q.IntentID.Bytes(), string(q.Payload.Side), q.Payload.Asset, price,
		strconv.FormatUint(q.Payload.Quantity, 10), q.Payload.Salt.Bytes())
	if err != nil {
		return fmt.Errorf("put quote: %w", err)
	}
	return nil
}

func (p *PostgresIndex) Get(ctx context.Context, id common.Hash) (Quote, error) {
	row := p.pool.QueryRow(ctx, `
SELECT intent_id, side, asset, price::text, quantity::text, salt
FROM intent_quotes
WHERE intent_id = $1
`, id.Bytes())

	q, err := scanQuote(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quote{}, domain.ErrQuoteNotFound
		}
		return Quote{}, fmt.Errorf("get quote: %w", err)
	}
	return q, nil
}

func (p *PostgresIndex) List(ctx context.Context) ([]Quote, error) {
	rows, err := p.pool.Query(ctx, `
SELECT intent_id, side, asset, price::text, quantity::text, salt
FROM intent_quotes
ORDER BY intent_id
`)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()

	out := []Quote{}
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	return out, nil
}

func (p *PostgresIndex) Delete(ctx context.Context, id common.Hash) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM intent_quotes WHERE intent_id = $1`, id.Bytes()); err != nil {
		return fmt.Errorf("delete quote: %w", err)
	}
	return nil
}

func scanQuote(row pgx.Row) (Quote, error) {
	var (
		id, salt        []byte
		side, asset     string
		price, quantity string
	)
	if err := row.Scan(&id, &side, &asset, &price, &quantity, &salt); err != nil {
		return Quote{}, err
	}

	p, err := uint256.FromDecimal(price)
	if err != nil {
		return Quote{}, fmt.Errorf("price %q: %w", price, err)
	}
	qty, err := strconv.ParseUint(quantity, 10, 64)
	if err != nil {
		return Quote{}, fmt.Errorf("quantity %q: %w", quantity, err)
	}
	return Quote{
		IntentID: common.BytesToHash(id),
		Payload: domain.Payload{
			Side:     domain.Side(side),
			Asset:    asset,
			Price:    p,
			Quantity: qty,
			Salt:     common.BytesToHash(salt),
		},
	}, nil
}
