// Command seed-db loads the product catalog, a set of users, and an admin
// API key into the database. The catalog is read from a gzip-compressed JSON
// file so large catalogs ship as a single small artifact.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/bloomhaus/orderflow/internal/repository"
)

type productJSON struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
}

type userJSON struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	ChatHandle string `json:"chat_handle"`
	IsStaff    bool   `json:"is_staff"`
}

type seedFile struct {
	Products []productJSON `json:"products"`
	Users    []userJSON    `json:"users"`
}

func main() {
	var (
		databaseURL  string
		catalogFile  string
		apiKey       string
		apiKeyPepper string
		apiKeyUser   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json.gz", "path to gzipped catalog JSON file")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or ORDERFLOW_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or ORDERFLOW_API_KEY_PEPPER env)")
	flag.StringVar(&apiKeyUser, "api-key-user", "", "user id the seeded key acts as in the audit trail")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("ORDERFLOW_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or ORDERFLOW_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("ORDERFLOW_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, apiKey, apiKeyPepper, apiKeyUser); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, apiKey, pepper, apiKeyUser string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	seed, err := readCatalog(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog")
	}

	if err := seedProducts(ctx, pool, seed.Products); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedUsers(ctx, pool, seed.Users); err != nil {
		return errors.Wrap(err, "seed users")
	}
	if err := seedAPIKey(ctx, pool, apiKey, pepper, apiKeyUser); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func readCatalog(path string) (*seedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog file")
	}
	defer f.Close()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "open gzip stream")
	}
	defer gz.Close()

	var seed seedFile
	if err := json.NewDecoder(gz).Decode(&seed); err != nil {
		return nil, errors.Wrap(err, "parse catalog JSON")
	}
	return &seed, nil
}

const upsertProductSQL = `
INSERT INTO products (id, name, price, available)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name, price = EXCLUDED.price, available = EXCLUDED.available`

func seedProducts(ctx context.Context, pool *pgxpool.Pool, products []productJSON) error {
	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Price, p.Available); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
	}
	return nil
}

const upsertUserSQL = `
INSERT INTO users (id, username, email, chat_handle, is_staff)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET username = EXCLUDED.username, email = EXCLUDED.email,
    chat_handle = EXCLUDED.chat_handle, is_staff = EXCLUDED.is_staff`

func seedUsers(ctx context.Context, pool *pgxpool.Pool, users []userJSON) error {
	slog.Info("upserting users", slog.Int("count", len(users)))

	for _, u := range users {
		if _, err := pool.Exec(ctx, upsertUserSQL, u.ID, u.Username, u.Email, u.ChatHandle, u.IsStaff); err != nil {
			return errors.Wrapf(err, "upsert user %s", u.ID)
		}
	}
	return nil
}

const upsertAPIKeySQL = `
INSERT INTO api_keys (id, key_hash, name, user_id, scopes, active)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, TRUE)
ON CONFLICT (id) DO UPDATE
SET key_hash = EXCLUDED.key_hash, name = EXCLUDED.name,
    user_id = EXCLUDED.user_id, scopes = EXCLUDED.scopes, active = TRUE`

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper, userID string) error {
	slog.Info("seeding admin API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if _, err := pool.Exec(ctx, upsertAPIKeySQL,
		"admin", keyHash, "Admin key", userID, []string{"admin"},
	); err != nil {
		return errors.Wrap(err, "upsert admin API key")
	}

	slog.Info("upserted API key", slog.String("id", "admin"))
	return nil
}
