// Package sqlite persists the derived index so cold starts can skip a
// full log replay. The cache is keyed by the journal head version and is
// never authoritative: anything but an exact version match is a miss,
// and the only repair for a stale cache is a full rebuild.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/braid/internal/index"
	"github.com/example/braid/internal/models"
)

// FileName is the cache file inside a data directory. The dot prefix
// keeps it out of the backend's logical file listing.
const FileName = ".index.db"

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	k TEXT PRIMARY KEY,
	v TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS entities (
	id     TEXT PRIMARY KEY,
	family TEXT NOT NULL,
	doc    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS edges (
	id  TEXT PRIMARY KEY,
	doc TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS latest_runs (
	test_id TEXT PRIMARY KEY,
	doc     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS notes (
	entity_id TEXT NOT NULL,
	seq       INTEGER NOT NULL,
	doc       TEXT NOT NULL,
	PRIMARY KEY (entity_id, seq)
);
CREATE TABLE IF NOT EXISTS commit_links (
	entity_id TEXT NOT NULL,
	seq       INTEGER NOT NULL,
	doc       TEXT NOT NULL,
	PRIMARY KEY (entity_id, seq)
);
`

// Cache implements secondary.IndexCache with SQLite.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index cache: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Load returns the cached snapshot when its stored version equals
// headVersion. A version mismatch or any decode problem is a miss, not
// an error: the caller rebuilds from the log either way.
func (c *Cache) Load(headVersion int64) (*index.Snapshot, bool, error) {
	var stored string
	err := c.db.QueryRow("SELECT v FROM meta WHERE k = 'version'").Scan(&stored)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache version: %w", err)
	}
	version, err := strconv.ParseInt(stored, 10, 64)
	if err != nil || version != headVersion {
		return nil, false, nil
	}

	snap := index.New()
	snap.SetVersion(version)

	if miss := c.loadEntities(snap); miss {
		return nil, false, nil
	}
	if miss := c.loadEdges(snap); miss {
		return nil, false, nil
	}
	if miss := c.loadRuns(snap); miss {
		return nil, false, nil
	}
	if miss := c.loadNotes(snap); miss {
		return nil, false, nil
	}
	if miss := c.loadCommits(snap); miss {
		return nil, false, nil
	}
	return snap, true, nil
}

func (c *Cache) loadEntities(snap *index.Snapshot) bool {
	rows, err := c.db.Query("SELECT doc FROM entities")
	if err != nil {
		return true
	}
	defer rows.Close()
	for rows.Next() {
		var doc string
		if rows.Scan(&doc) != nil {
			return true
		}
		var e models.Entity
		if json.Unmarshal([]byte(doc), &e) != nil {
			return true
		}
		snap.PutEntity(&e)
	}
	return rows.Err() != nil
}

func (c *Cache) loadEdges(snap *index.Snapshot) bool {
	rows, err := c.db.Query("SELECT doc FROM edges")
	if err != nil {
		return true
	}
	defer rows.Close()
	for rows.Next() {
		var doc string
		if rows.Scan(&doc) != nil {
			return true
		}
		var e models.Edge
		if json.Unmarshal([]byte(doc), &e) != nil {
			return true
		}
		snap.PutEdge(&e)
	}
	return rows.Err() != nil
}

func (c *Cache) loadRuns(snap *index.Snapshot) bool {
	rows, err := c.db.Query("SELECT doc FROM latest_runs")
	if err != nil {
		return true
	}
	defer rows.Close()
	for rows.Next() {
		var doc string
		if rows.Scan(&doc) != nil {
			return true
		}
		var r models.TestRun
		if json.Unmarshal([]byte(doc), &r) != nil {
			return true
		}
		snap.PutLatestRun(&r)
	}
	return rows.Err() != nil
}

func (c *Cache) loadNotes(snap *index.Snapshot) bool {
	rows, err := c.db.Query("SELECT doc FROM notes ORDER BY entity_id, seq")
	if err != nil {
		return true
	}
	defer rows.Close()
	for rows.Next() {
		var doc string
		if rows.Scan(&doc) != nil {
			return true
		}
		var n models.Note
		if json.Unmarshal([]byte(doc), &n) != nil {
			return true
		}
		snap.PutNote(&n)
	}
	return rows.Err() != nil
}

func (c *Cache) loadCommits(snap *index.Snapshot) bool {
	rows, err := c.db.Query("SELECT doc FROM commit_links ORDER BY entity_id, seq")
	if err != nil {
		return true
	}
	defer rows.Close()
	for rows.Next() {
		var doc string
		if rows.Scan(&doc) != nil {
			return true
		}
		var l models.CommitLink
		if json.Unmarshal([]byte(doc), &l) != nil {
			return true
		}
		snap.PutCommit(&l)
	}
	return rows.Err() != nil
}

// Store replaces the cache contents with the given snapshot in one
// transaction.
func (c *Cache) Store(snap *index.Snapshot) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin cache transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"meta", "entities", "edges", "latest_runs", "notes", "commit_links"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear cache table %s: %w", table, err)
		}
	}

	for _, e := range snap.Entities() {
		doc, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode entity %s: %w", e.ID, err)
		}
		if _, err := tx.Exec("INSERT INTO entities (id, family, doc) VALUES (?, ?, ?)", e.ID, e.Type, string(doc)); err != nil {
			return fmt.Errorf("failed to store entity %s: %w", e.ID, err)
		}
	}
	for _, e := range snap.Edges() {
		doc, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode edge %s: %w", e.ID, err)
		}
		if _, err := tx.Exec("INSERT INTO edges (id, doc) VALUES (?, ?)", e.ID, string(doc)); err != nil {
			return fmt.Errorf("failed to store edge %s: %w", e.ID, err)
		}
	}
	for _, e := range snap.Entities() {
		if e.Type == models.TypeTest {
			if r := snap.LatestRun(e.ID); r != nil {
				doc, err := json.Marshal(r)
				if err != nil {
					return fmt.Errorf("failed to encode run for %s: %w", e.ID, err)
				}
				if _, err := tx.Exec("INSERT INTO latest_runs (test_id, doc) VALUES (?, ?)", r.TestID, string(doc)); err != nil {
					return fmt.Errorf("failed to store run for %s: %w", e.ID, err)
				}
			}
		}
		for seq, n := range snap.Notes(e.ID) {
			doc, err := json.Marshal(n)
			if err != nil {
				return fmt.Errorf("failed to encode note %s: %w", n.ID, err)
			}
			if _, err := tx.Exec("INSERT INTO notes (entity_id, seq, doc) VALUES (?, ?, ?)", e.ID, seq, string(doc)); err != nil {
				return fmt.Errorf("failed to store note %s: %w", n.ID, err)
			}
		}
		for seq, l := range snap.Commits(e.ID) {
			doc, err := json.Marshal(l)
			if err != nil {
				return fmt.Errorf("failed to encode commit link for %s: %w", e.ID, err)
			}
			if _, err := tx.Exec("INSERT INTO commit_links (entity_id, seq, doc) VALUES (?, ?, ?)", e.ID, seq, string(doc)); err != nil {
				return fmt.Errorf("failed to store commit link for %s: %w", e.ID, err)
			}
		}
	}

	if _, err := tx.Exec("INSERT INTO meta (k, v) VALUES ('version', ?)", strconv.FormatInt(snap.Version, 10)); err != nil {
		return fmt.Errorf("failed to store cache version: %w", err)
	}
	return tx.Commit()
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}
