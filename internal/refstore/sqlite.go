package refstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/AA-Fatima/599-cal/internal/model"
	"github.com/AA-Fatima/599-cal/internal/textutil"
	"github.com/AA-Fatima/599-cal/internal/units"
)

// SQLiteStore implements Store using modernc.org/sqlite. It has no
// trigram similarity; SupportsSimilarity reports false and callers fall
// back to in-process fuzzy matching over ListNutritionNames.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS dishes (
	id      INTEGER PRIMARY KEY,
	name    TEXT NOT NULL,
	country TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS dish_ingredients (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	dish_id          INTEGER NOT NULL REFERENCES dishes(id) ON DELETE CASCADE,
	name             TEXT NOT NULL,
	external_id      INTEGER,
	default_weight_g REAL NOT NULL DEFAULT 100
);

CREATE TABLE IF NOT EXISTS nutrition_records (
	external_id INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	calories    REAL NOT NULL,
	protein_g   REAL,
	fat_g       REAL,
	carbs_g     REAL
);

CREATE TABLE IF NOT EXISTS synonyms (
	term      TEXT PRIMARY KEY,
	canonical TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS unit_rates (
	item  TEXT NOT NULL,
	unit  TEXT NOT NULL,
	grams REAL NOT NULL,
	PRIMARY KEY (item, unit)
);

CREATE TABLE IF NOT EXISTS missing_queries (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL DEFAULT '',
	query      TEXT NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_dishes_name ON dishes(name);
CREATE INDEX IF NOT EXISTS idx_nutrition_name ON nutrition_records(name);
CREATE INDEX IF NOT EXISTS idx_dish_ingredients_dish_id ON dish_ingredients(dish_id);
CREATE INDEX IF NOT EXISTS idx_missing_queries_created_at ON missing_queries(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// FindDishByName tries an exact match, then in-process fuzzy matching
// over the full dish list.
func (s *SQLiteStore) FindDishByName(ctx context.Context, name string) (*model.Dish, float64, error) {
	key := textutil.NormalizeKey(name)

	var d model.Dish
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, country FROM dishes WHERE lower(name) = ? LIMIT 1`, key).
		Scan(&d.ID, &d.Name, &d.Country)
	if err == nil {
		return &d, 100, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, 0, eris.Wrap(err, "sqlite: find dish exact")
	}

	names, err := s.ListDishNames(ctx)
	if err != nil {
		return nil, 0, err
	}
	best, score := textutil.BestMatch(key, names)
	if best == "" {
		return nil, 0, nil
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, country FROM dishes WHERE name = ? LIMIT 1`, best).
		Scan(&d.ID, &d.Name, &d.Country)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, eris.Wrap(err, "sqlite: find dish fuzzy")
	}
	return &d, score, nil
}

func (s *SQLiteStore) GetIngredients(ctx context.Context, dishID int64) ([]model.IngredientRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, external_id, default_weight_g FROM dish_ingredients WHERE dish_id = ? ORDER BY id`, dishID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get ingredients")
	}
	defer rows.Close()

	var refs []model.IngredientRef
	for rows.Next() {
		var (
			ref        model.IngredientRef
			externalID sql.NullInt64
		)
		if err := rows.Scan(&ref.Name, &externalID, &ref.DefaultWeightG); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ingredient")
		}
		if externalID.Valid {
			id := externalID.Int64
			ref.ExternalID = &id
		}
		refs = append(refs, ref)
	}
	return refs, eris.Wrap(rows.Err(), "sqlite: iterate ingredients")
}

func (s *SQLiteStore) ListDishNames(ctx context.Context) ([]string, error) {
	return s.listNames(ctx, `SELECT name FROM dishes ORDER BY name`)
}

func (s *SQLiteStore) ListNutritionNames(ctx context.Context) ([]string, error) {
	return s.listNames(ctx, `SELECT name FROM nutrition_records ORDER BY name`)
}

func (s *SQLiteStore) listNames(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list names")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan name")
		}
		names = append(names, name)
	}
	return names, eris.Wrap(rows.Err(), "sqlite: iterate names")
}

func (s *SQLiteStore) FindNutritionByName(ctx context.Context, name string) (*model.NutritionRecord, error) {
	return s.scanNutrition(ctx,
		`SELECT external_id, name, calories, protein_g, fat_g, carbs_g
		 FROM nutrition_records WHERE lower(name) = ? LIMIT 1`, textutil.NormalizeKey(name))
}

// FindNutritionBySimilarity always reports no match: SQLite has no
// trigram support.
func (s *SQLiteStore) FindNutritionBySimilarity(_ context.Context, _ string, _ float64) (*model.NutritionRecord, float64, error) {
	return nil, 0, nil
}

func (s *SQLiteStore) FindNutritionBySubstring(ctx context.Context, name string) (*model.NutritionRecord, error) {
	return s.scanNutrition(ctx,
		`SELECT external_id, name, calories, protein_g, fat_g, carbs_g
		 FROM nutrition_records WHERE lower(name) LIKE '%' || ? || '%' ORDER BY length(name) LIMIT 1`,
		textutil.NormalizeKey(name))
}

func (s *SQLiteStore) FindNutritionByID(ctx context.Context, externalID int64) (*model.NutritionRecord, error) {
	return s.scanNutrition(ctx,
		`SELECT external_id, name, calories, protein_g, fat_g, carbs_g
		 FROM nutrition_records WHERE external_id = ?`, externalID)
}

func (s *SQLiteStore) scanNutrition(ctx context.Context, query string, arg any) (*model.NutritionRecord, error) {
	var rec model.NutritionRecord
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&rec.ExternalID, &rec.Name, &rec.Calories, &rec.ProteinG, &rec.FatG, &rec.CarbsG)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: nutrition lookup")
	}
	return &rec, nil
}

func (s *SQLiteStore) SupportsSimilarity() bool { return false }

func (s *SQLiteStore) LoadSynonyms(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT term, canonical FROM synonyms`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load synonyms")
	}
	defer rows.Close()

	table := make(map[string]string)
	for rows.Next() {
		var term, canonical string
		if err := rows.Scan(&term, &canonical); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan synonym")
		}
		table[term] = canonical
	}
	return table, eris.Wrap(rows.Err(), "sqlite: iterate synonyms")
}

func (s *SQLiteStore) LoadUnitRates(ctx context.Context) ([]units.Rate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT item, unit, grams FROM unit_rates`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load unit rates")
	}
	defer rows.Close()

	var rates []units.Rate
	for rows.Next() {
		var r units.Rate
		if err := rows.Scan(&r.Item, &r.Unit, &r.Grams); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan unit rate")
		}
		rates = append(rates, r)
	}
	return rates, eris.Wrap(rows.Err(), "sqlite: iterate unit rates")
}

func (s *SQLiteStore) RecordMissing(ctx context.Context, sessionID, query, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO missing_queries (session_id, query, reason, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, query, reason, time.Now().UTC())
	return eris.Wrap(err, "sqlite: record missing")
}

func (s *SQLiteStore) ListMissing(ctx context.Context, limit int) ([]model.MissingQuery, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, query, reason, created_at FROM missing_queries ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list missing")
	}
	defer rows.Close()

	var entries []model.MissingQuery
	for rows.Next() {
		var m model.MissingQuery
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Query, &m.Reason, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan missing query")
		}
		entries = append(entries, m)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: iterate missing queries")
}

func (s *SQLiteStore) SeedDishes(ctx context.Context, dishes []model.Dish) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: seed dishes: begin tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM dish_ingredients`); err != nil {
		return eris.Wrap(err, "sqlite: seed dishes: clear ingredients")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dishes`); err != nil {
		return eris.Wrap(err, "sqlite: seed dishes: clear dishes")
	}

	for _, d := range dishes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO dishes (id, name, country) VALUES (?, ?, ?)`, d.ID, d.Name, d.Country); err != nil {
			return eris.Wrapf(err, "sqlite: seed dishes: insert %s", d.Name)
		}
		for _, ref := range d.Ingredients {
			var externalID any
			if ref.ExternalID != nil {
				externalID = *ref.ExternalID
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO dish_ingredients (dish_id, name, external_id, default_weight_g) VALUES (?, ?, ?, ?)`,
				d.ID, ref.Name, externalID, ref.DefaultWeightG); err != nil {
				return eris.Wrapf(err, "sqlite: seed dishes: insert ingredient %s", ref.Name)
			}
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: seed dishes: commit")
}

func (s *SQLiteStore) SeedNutrition(ctx context.Context, records []model.NutritionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: seed nutrition: begin tx")
	}
	defer tx.Rollback()

	for _, r := range records {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO nutrition_records (external_id, name, calories, protein_g, fat_g, carbs_g)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(external_id) DO UPDATE SET
			   name = excluded.name, calories = excluded.calories,
			   protein_g = excluded.protein_g, fat_g = excluded.fat_g, carbs_g = excluded.carbs_g`,
			r.ExternalID, r.Name, r.Calories, r.ProteinG, r.FatG, r.CarbsG); err != nil {
			return eris.Wrapf(err, "sqlite: seed nutrition: upsert %s", r.Name)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: seed nutrition: commit")
}

func (s *SQLiteStore) SeedSynonyms(ctx context.Context, synonyms map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: seed synonyms: begin tx")
	}
	defer tx.Rollback()

	for term, canonical := range synonyms {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO synonyms (term, canonical) VALUES (?, ?)
			 ON CONFLICT(term) DO UPDATE SET canonical = excluded.canonical`,
			term, canonical); err != nil {
			return eris.Wrapf(err, "sqlite: seed synonyms: upsert %s", term)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: seed synonyms: commit")
}

func (s *SQLiteStore) SeedUnitRates(ctx context.Context, rates []units.Rate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: seed unit rates: begin tx")
	}
	defer tx.Rollback()

	for _, r := range rates {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO unit_rates (item, unit, grams) VALUES (?, ?, ?)
			 ON CONFLICT(item, unit) DO UPDATE SET grams = excluded.grams`,
			r.Item, r.Unit, r.Grams); err != nil {
			return eris.Wrapf(err, "sqlite: seed unit rates: upsert %s/%s", r.Item, r.Unit)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: seed unit rates: commit")
}
