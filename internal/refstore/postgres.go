package refstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/AA-Fatima/599-cal/internal/db"
	"github.com/AA-Fatima/599-cal/internal/model"
	"github.com/AA-Fatima/599-cal/internal/textutil"
	"github.com/AA-Fatima/599-cal/internal/units"
)

// dishSimilarityFloor is the pg_trgm cutoff below which a dish candidate
// is noise rather than a near-miss. Callers apply their own acceptance
// threshold on the returned 0-100 score.
const dishSimilarityFloor = 0.3

// PostgresStore implements Store using pgxpool with pg_trgm similarity.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot lookup paths.
var preparedStatements = map[string]string{
	"find_dish_exact": `SELECT id, name, country FROM dishes WHERE lower(name) = $1 LIMIT 1`,
	"find_dish_similar": `SELECT id, name, country, similarity(lower(name), $1) AS sim
		FROM dishes WHERE similarity(lower(name), $1) > $2 ORDER BY sim DESC LIMIT 1`,
	"get_ingredients": `SELECT name, external_id, default_weight_g FROM dish_ingredients WHERE dish_id = $1 ORDER BY id`,
	"nutrition_exact": `SELECT external_id, name, calories, protein_g, fat_g, carbs_g
		FROM nutrition_records WHERE lower(name) = $1 LIMIT 1`,
	"nutrition_similar": `SELECT external_id, name, calories, protein_g, fat_g, carbs_g, similarity(lower(name), $1) AS sim
		FROM nutrition_records WHERE similarity(lower(name), $1) > $2 ORDER BY sim DESC LIMIT 1`,
	"nutrition_substring": `SELECT external_id, name, calories, protein_g, fat_g, carbs_g
		FROM nutrition_records WHERE lower(name) LIKE '%' || $1 || '%' ORDER BY length(name) LIMIT 1`,
	"nutrition_by_id": `SELECT external_id, name, calories, protein_g, fat_g, carbs_g
		FROM nutrition_records WHERE external_id = $1`,
	"record_missing": `INSERT INTO missing_queries (session_id, query, reason) VALUES ($1, $2, $3)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, cfg Config) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if cfg.MaxConns > 0 {
		maxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		minConns = cfg.MinConns
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Tests use this with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS pg_trgm;

CREATE TABLE IF NOT EXISTS dishes (
	id      BIGINT PRIMARY KEY,
	name    TEXT NOT NULL,
	country TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS dish_ingredients (
	id               BIGSERIAL PRIMARY KEY,
	dish_id          BIGINT NOT NULL REFERENCES dishes(id) ON DELETE CASCADE,
	name             TEXT NOT NULL,
	external_id      BIGINT,
	default_weight_g DOUBLE PRECISION NOT NULL DEFAULT 100
);

CREATE TABLE IF NOT EXISTS nutrition_records (
	external_id BIGINT PRIMARY KEY,
	name        TEXT NOT NULL,
	calories    DOUBLE PRECISION NOT NULL,
	protein_g   DOUBLE PRECISION,
	fat_g       DOUBLE PRECISION,
	carbs_g     DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS synonyms (
	term      TEXT PRIMARY KEY,
	canonical TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS unit_rates (
	item  TEXT NOT NULL,
	unit  TEXT NOT NULL,
	grams DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (item, unit)
);

CREATE TABLE IF NOT EXISTS missing_queries (
	id         BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL DEFAULT '',
	query      TEXT NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_dishes_name_trgm ON dishes USING gin (lower(name) gin_trgm_ops);
CREATE INDEX IF NOT EXISTS idx_nutrition_name_trgm ON nutrition_records USING gin (lower(name) gin_trgm_ops);
CREATE INDEX IF NOT EXISTS idx_dish_ingredients_dish_id ON dish_ingredients(dish_id);
CREATE INDEX IF NOT EXISTS idx_missing_queries_created_at ON missing_queries(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.closeFn()
	return nil
}

func (s *PostgresStore) FindDishByName(ctx context.Context, name string) (*model.Dish, float64, error) {
	key := textutil.NormalizeKey(name)

	var d model.Dish
	err := s.pool.QueryRow(ctx, "find_dish_exact", key).Scan(&d.ID, &d.Name, &d.Country)
	if err == nil {
		return &d, 100, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, eris.Wrap(err, "postgres: find dish exact")
	}

	var sim float64
	err = s.pool.QueryRow(ctx, "find_dish_similar", key, dishSimilarityFloor).Scan(&d.ID, &d.Name, &d.Country, &sim)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, eris.Wrap(err, "postgres: find dish similar")
	}
	return &d, sim * 100, nil
}

func (s *PostgresStore) GetIngredients(ctx context.Context, dishID int64) ([]model.IngredientRef, error) {
	rows, err := s.pool.Query(ctx, "get_ingredients", dishID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get ingredients")
	}
	defer rows.Close()

	var refs []model.IngredientRef
	for rows.Next() {
		var ref model.IngredientRef
		if err := rows.Scan(&ref.Name, &ref.ExternalID, &ref.DefaultWeightG); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ingredient")
		}
		refs = append(refs, ref)
	}
	return refs, eris.Wrap(rows.Err(), "postgres: iterate ingredients")
}

func (s *PostgresStore) ListDishNames(ctx context.Context) ([]string, error) {
	return s.listNames(ctx, `SELECT name FROM dishes ORDER BY name`)
}

func (s *PostgresStore) ListNutritionNames(ctx context.Context) ([]string, error) {
	return s.listNames(ctx, `SELECT name FROM nutrition_records ORDER BY name`)
}

func (s *PostgresStore) listNames(ctx context.Context, sql string) ([]string, error) {
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list names")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan name")
		}
		names = append(names, name)
	}
	return names, eris.Wrap(rows.Err(), "postgres: iterate names")
}

func (s *PostgresStore) FindNutritionByName(ctx context.Context, name string) (*model.NutritionRecord, error) {
	return s.scanNutrition(ctx, "nutrition_exact", textutil.NormalizeKey(name))
}

func (s *PostgresStore) FindNutritionBySimilarity(ctx context.Context, name string, threshold float64) (*model.NutritionRecord, float64, error) {
	var (
		rec model.NutritionRecord
		sim float64
	)
	err := s.pool.QueryRow(ctx, "nutrition_similar", textutil.NormalizeKey(name), threshold).
		Scan(&rec.ExternalID, &rec.Name, &rec.Calories, &rec.ProteinG, &rec.FatG, &rec.CarbsG, &sim)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, eris.Wrap(err, "postgres: nutrition similarity")
	}
	return &rec, sim * 100, nil
}

func (s *PostgresStore) FindNutritionBySubstring(ctx context.Context, name string) (*model.NutritionRecord, error) {
	return s.scanNutrition(ctx, "nutrition_substring", textutil.NormalizeKey(name))
}

func (s *PostgresStore) FindNutritionByID(ctx context.Context, externalID int64) (*model.NutritionRecord, error) {
	return s.scanNutrition(ctx, "nutrition_by_id", externalID)
}

func (s *PostgresStore) scanNutrition(ctx context.Context, stmt string, arg any) (*model.NutritionRecord, error) {
	var rec model.NutritionRecord
	err := s.pool.QueryRow(ctx, stmt, arg).
		Scan(&rec.ExternalID, &rec.Name, &rec.Calories, &rec.ProteinG, &rec.FatG, &rec.CarbsG)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: %s", stmt)
	}
	return &rec, nil
}

func (s *PostgresStore) SupportsSimilarity() bool { return true }

func (s *PostgresStore) LoadSynonyms(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT term, canonical FROM synonyms`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load synonyms")
	}
	defer rows.Close()

	table := make(map[string]string)
	for rows.Next() {
		var term, canonical string
		if err := rows.Scan(&term, &canonical); err != nil {
			return nil, eris.Wrap(err, "postgres: scan synonym")
		}
		table[term] = canonical
	}
	return table, eris.Wrap(rows.Err(), "postgres: iterate synonyms")
}

func (s *PostgresStore) LoadUnitRates(ctx context.Context) ([]units.Rate, error) {
	rows, err := s.pool.Query(ctx, `SELECT item, unit, grams FROM unit_rates`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load unit rates")
	}
	defer rows.Close()

	var rates []units.Rate
	for rows.Next() {
		var r units.Rate
		if err := rows.Scan(&r.Item, &r.Unit, &r.Grams); err != nil {
			return nil, eris.Wrap(err, "postgres: scan unit rate")
		}
		rates = append(rates, r)
	}
	return rates, eris.Wrap(rows.Err(), "postgres: iterate unit rates")
}

func (s *PostgresStore) RecordMissing(ctx context.Context, sessionID, query, reason string) error {
	_, err := s.pool.Exec(ctx, "record_missing", sessionID, query, reason)
	return eris.Wrap(err, "postgres: record missing")
}

func (s *PostgresStore) ListMissing(ctx context.Context, limit int) ([]model.MissingQuery, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, query, reason, created_at FROM missing_queries ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list missing")
	}
	defer rows.Close()

	var entries []model.MissingQuery
	for rows.Next() {
		var m model.MissingQuery
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Query, &m.Reason, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan missing query")
		}
		entries = append(entries, m)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: iterate missing queries")
}

// SeedDishes replaces the dish catalog wholesale inside one transaction.
func (s *PostgresStore) SeedDishes(ctx context.Context, dishes []model.Dish) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: seed dishes: begin tx")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM dish_ingredients`); err != nil {
		return eris.Wrap(err, "postgres: seed dishes: clear ingredients")
	}
	if _, err := tx.Exec(ctx, `DELETE FROM dishes`); err != nil {
		return eris.Wrap(err, "postgres: seed dishes: clear dishes")
	}

	dishRows := make([][]any, 0, len(dishes))
	var ingredientRows [][]any
	for _, d := range dishes {
		dishRows = append(dishRows, []any{d.ID, d.Name, d.Country})
		for _, ref := range d.Ingredients {
			ingredientRows = append(ingredientRows, []any{d.ID, ref.Name, ref.ExternalID, ref.DefaultWeightG})
		}
	}

	if len(dishRows) > 0 {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"dishes"}, []string{"id", "name", "country"}, pgx.CopyFromRows(dishRows)); err != nil {
			return eris.Wrap(err, "postgres: seed dishes: copy dishes")
		}
	}
	if len(ingredientRows) > 0 {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"dish_ingredients"},
			[]string{"dish_id", "name", "external_id", "default_weight_g"}, pgx.CopyFromRows(ingredientRows)); err != nil {
			return eris.Wrap(err, "postgres: seed dishes: copy ingredients")
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: seed dishes: commit")
}

func (s *PostgresStore) SeedNutrition(ctx context.Context, records []model.NutritionRecord) error {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{r.ExternalID, r.Name, r.Calories, r.ProteinG, r.FatG, r.CarbsG})
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "nutrition_records",
		Columns:      []string{"external_id", "name", "calories", "protein_g", "fat_g", "carbs_g"},
		ConflictKeys: []string{"external_id"},
	}, rows)
	return err
}

func (s *PostgresStore) SeedSynonyms(ctx context.Context, synonyms map[string]string) error {
	rows := make([][]any, 0, len(synonyms))
	for term, canonical := range synonyms {
		rows = append(rows, []any{term, canonical})
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "synonyms",
		Columns:      []string{"term", "canonical"},
		ConflictKeys: []string{"term"},
	}, rows)
	return err
}

func (s *PostgresStore) SeedUnitRates(ctx context.Context, rates []units.Rate) error {
	rows := make([][]any, 0, len(rates))
	for _, r := range rates {
		rows = append(rows, []any{r.Item, r.Unit, r.Grams})
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "unit_rates",
		Columns:      []string{"item", "unit", "grams"},
		ConflictKeys: []string{"item", "unit"},
	}, rows)
	return err
}
