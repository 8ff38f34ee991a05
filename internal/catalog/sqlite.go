package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/keithneurodog/az-dcm-poc-sub000/internal/logger"
)

// SQLiteCatalog loads the catalog from a SQLite database once at startup and
// serves every read from an embedded Memory catalog. The database is only
// written by Seed (used by the import command); the running service never
// mutates it.
type SQLiteCatalog struct {
	*Memory
	db *sqlx.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS datasets (
	position          INTEGER NOT NULL,
	id                TEXT PRIMARY KEY,
	code              TEXT NOT NULL DEFAULT '',
	name              TEXT NOT NULL DEFAULT '',
	description       TEXT NOT NULL DEFAULT '',
	therapeutic_area  TEXT NOT NULL DEFAULT '[]',
	phase             TEXT NOT NULL DEFAULT '',
	patient_count     INTEGER NOT NULL DEFAULT 0,
	categories        TEXT NOT NULL DEFAULT '[]',
	already_open      INTEGER NOT NULL DEFAULT 0,
	ready_to_grant    INTEGER NOT NULL DEFAULT 0,
	needs_approval    INTEGER NOT NULL DEFAULT 0,
	missing_location  INTEGER NOT NULL DEFAULT 0,
	has_aot           INTEGER NOT NULL DEFAULT 0,
	restrict_ml           INTEGER NOT NULL DEFAULT 0,
	restrict_software_dev INTEGER NOT NULL DEFAULT 0,
	restrict_publication  INTEGER NOT NULL DEFAULT 0,
	restriction_reason    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS collections (
	position INTEGER NOT NULL,
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS collection_datasets (
	collection_id TEXT NOT NULL,
	dataset_id    TEXT NOT NULL,
	position      INTEGER NOT NULL,
	PRIMARY KEY (collection_id, position)
);

CREATE TABLE IF NOT EXISTS default_selection (
	position   INTEGER PRIMARY KEY,
	dataset_id TEXT NOT NULL
);
`

type datasetRow struct {
	Position        int    `db:"position"`
	ID              string `db:"id"`
	Code            string `db:"code"`
	Name            string `db:"name"`
	Description     string `db:"description"`
	TherapeuticArea string `db:"therapeutic_area"`
	Phase           string `db:"phase"`
	PatientCount    int    `db:"patient_count"`
	Categories      string `db:"categories"`
	AccessBreakdown
	HasAOT bool `db:"has_aot"`
	AOTMetadata
}

type collectionRow struct {
	Position int    `db:"position"`
	ID       string `db:"id"`
	Name     string `db:"name"`
}

type collectionDatasetRow struct {
	CollectionID string `db:"collection_id"`
	DatasetID    string `db:"dataset_id"`
}

func openSQLite(dbPath string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}

// NewSQLiteCatalog opens the database, creates the schema if needed and
// loads the full catalog into memory.
func NewSQLiteCatalog(dbPath string, log *logger.Logger) (*SQLiteCatalog, error) {
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	snap, err := loadSnapshot(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return &SQLiteCatalog{Memory: NewMemory(snap, log), db: db}, nil
}

func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

func loadSnapshot(db *sqlx.DB) (Snapshot, error) {
	var snap Snapshot

	var rows []datasetRow
	if err := db.Select(&rows, "SELECT * FROM datasets ORDER BY position"); err != nil {
		return snap, fmt.Errorf("select datasets: %w", err)
	}
	for _, r := range rows {
		ds := Dataset{
			ID:              r.ID,
			Code:            r.Code,
			Name:            r.Name,
			Description:     r.Description,
			Phase:           r.Phase,
			PatientCount:    r.PatientCount,
			AccessBreakdown: r.AccessBreakdown,
		}
		if err := json.Unmarshal([]byte(r.TherapeuticArea), &ds.TherapeuticArea); err != nil {
			return snap, fmt.Errorf("decode dataset %s therapeutic_area: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(r.Categories), &ds.Categories); err != nil {
			return snap, fmt.Errorf("decode dataset %s categories: %w", r.ID, err)
		}
		if r.HasAOT {
			aot := r.AOTMetadata
			ds.AOT = &aot
		}
		snap.Datasets = append(snap.Datasets, ds)
	}

	var colls []collectionRow
	if err := db.Select(&colls, "SELECT position, id, name FROM collections ORDER BY position"); err != nil {
		return snap, fmt.Errorf("select collections: %w", err)
	}
	var members []collectionDatasetRow
	if err := db.Select(&members, "SELECT collection_id, dataset_id FROM collection_datasets ORDER BY collection_id, position"); err != nil {
		return snap, fmt.Errorf("select collection members: %w", err)
	}
	byColl := map[string][]string{}
	for _, m := range members {
		byColl[m.CollectionID] = append(byColl[m.CollectionID], m.DatasetID)
	}
	for _, c := range colls {
		snap.Collections = append(snap.Collections, Collection{ID: c.ID, Name: c.Name, DatasetIDs: byColl[c.ID]})
	}

	if err := db.Select(&snap.DefaultSelection, "SELECT dataset_id FROM default_selection ORDER BY position"); err != nil {
		return snap, fmt.Errorf("select default selection: %w", err)
	}
	return snap, nil
}

// Seed replaces the catalog stored at dbPath with snap.
func Seed(dbPath string, snap Snapshot) error {
	db, err := openSQLite(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := seedTx(tx, snap); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func seedTx(tx *sqlx.Tx, snap Snapshot) error {
	for _, table := range []string{"datasets", "collections", "collection_datasets", "default_selection"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for i, ds := range snap.Datasets {
		row := datasetRow{
			Position:        i,
			ID:              ds.ID,
			Code:            ds.Code,
			Name:            ds.Name,
			Description:     ds.Description,
			TherapeuticArea: marshalJSON(ds.TherapeuticArea),
			Phase:           ds.Phase,
			PatientCount:    ds.PatientCount,
			Categories:      marshalJSON(ds.Categories),
			AccessBreakdown: ds.AccessBreakdown,
		}
		if ds.AOT != nil {
			row.HasAOT = true
			row.AOTMetadata = *ds.AOT
		}
		if _, err := tx.NamedExec(`INSERT INTO datasets (position, id, code, name, description, therapeutic_area, phase,
			patient_count, categories, already_open, ready_to_grant, needs_approval, missing_location,
			has_aot, restrict_ml, restrict_software_dev, restrict_publication, restriction_reason)
			VALUES (:position, :id, :code, :name, :description, :therapeutic_area, :phase,
			:patient_count, :categories, :already_open, :ready_to_grant, :needs_approval, :missing_location,
			:has_aot, :restrict_ml, :restrict_software_dev, :restrict_publication, :restriction_reason)`, row); err != nil {
			return fmt.Errorf("insert dataset %s: %w", ds.ID, err)
		}
	}
	for i, c := range snap.Collections {
		if _, err := tx.Exec("INSERT INTO collections (position, id, name) VALUES (?, ?, ?)", i, c.ID, c.Name); err != nil {
			return fmt.Errorf("insert collection %s: %w", c.ID, err)
		}
		for j, dsID := range c.DatasetIDs {
			if _, err := tx.Exec("INSERT INTO collection_datasets (collection_id, dataset_id, position) VALUES (?, ?, ?)", c.ID, dsID, j); err != nil {
				return fmt.Errorf("insert collection member %s/%s: %w", c.ID, dsID, err)
			}
		}
	}
	for i, id := range snap.DefaultSelection {
		if _, err := tx.Exec("INSERT INTO default_selection (position, dataset_id) VALUES (?, ?)", i, id); err != nil {
			return fmt.Errorf("insert default selection: %w", err)
		}
	}
	return nil
}

func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return "[]"
	}
	return string(b)
}

var _ Reader = (*SQLiteCatalog)(nil)
var _ Reader = (*Memory)(nil)
