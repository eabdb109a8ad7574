package store

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/cognitive-core/internal/core"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS snapshot_versions (
	version_id     TEXT PRIMARY KEY,
	parent_id      TEXT,
	tick           INTEGER NOT NULL,
	latent_vector  BLOB NOT NULL,
	snapshot_json  TEXT NOT NULL,
	created_at     TEXT NOT NULL,
	metrics_json   TEXT,
	FOREIGN KEY (parent_id) REFERENCES snapshot_versions(version_id)
);

CREATE TABLE IF NOT EXISTS tick_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id    TEXT,
	tick          INTEGER NOT NULL,
	surprise      REAL NOT NULL,
	confidence    REAL NOT NULL,
	safe_mode     INTEGER NOT NULL,
	decision_id   TEXT,
	record_json   TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES snapshot_versions(version_id)
);

CREATE TABLE IF NOT EXISTS active_snapshot (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES snapshot_versions(version_id)
);
`

// #endregion schema

// #region record

// SnapshotRecord is one versioned row of persisted core state.
type SnapshotRecord struct {
	VersionID   string
	ParentID    string
	Tick        int
	Latent      []float64
	Snapshot    core.Snapshot
	CreatedAt   time.Time
	MetricsJSON string
}

// TickEntry is one row of the tick provenance log.
type TickEntry struct {
	VersionID  string
	Tick       int
	Surprise   float64
	Confidence float64
	SafeMode   bool
	DecisionID string
	RecordJSON string
	CreatedAt  time.Time
}

// #endregion record

// #region store-struct

// Store persists versioned core snapshots and a tick provenance log in
// SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region save

// Save inserts a new snapshot version and moves the active pointer
// atomically. parentID may be empty for the first version.
func (s *Store) Save(snap core.Snapshot, parentID, metricsJSON string) (SnapshotRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("marshal snapshot: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parentPtr interface{}
	if parentID != "" {
		parentPtr = parentID
	}
	var metricsPtr interface{}
	if metricsJSON != "" {
		metricsPtr = metricsJSON
	}

	_, err = tx.Exec(
		`INSERT INTO snapshot_versions (version_id, parent_id, tick, latent_vector, snapshot_json, created_at, metrics_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, parentPtr, snap.Tick, encodeVector(snap.Cortex.Z), string(snapJSON),
		now.Format(time.RFC3339Nano), metricsPtr,
	)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_snapshot (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		id,
	)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return SnapshotRecord{}, fmt.Errorf("commit: %w", err)
	}

	return SnapshotRecord{
		VersionID:   id,
		ParentID:    parentID,
		Tick:        snap.Tick,
		Latent:      append([]float64(nil), snap.Cortex.Z...),
		Snapshot:    snap,
		CreatedAt:   now,
		MetricsJSON: metricsJSON,
	}, nil
}

// #endregion save

// #region load

// LoadCurrent reads the active snapshot version.
func (s *Store) LoadCurrent() (SnapshotRecord, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_snapshot WHERE id = 1`).Scan(&versionID)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("get active: %w", err)
	}
	return s.LoadVersion(versionID)
}

// LoadVersion retrieves a specific snapshot version by ID.
func (s *Store) LoadVersion(id string) (SnapshotRecord, error) {
	var rec SnapshotRecord
	var parentID sql.NullString
	var vecBlob []byte
	var snapJSON string
	var createdStr string
	var metricsJSON sql.NullString

	err := s.db.QueryRow(
		`SELECT version_id, parent_id, tick, latent_vector, snapshot_json, created_at, metrics_json
		 FROM snapshot_versions WHERE version_id = ?`, id,
	).Scan(&rec.VersionID, &parentID, &rec.Tick, &vecBlob, &snapJSON, &createdStr, &metricsJSON)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("get version %s: %w", id, err)
	}

	if parentID.Valid {
		rec.ParentID = parentID.String
	}
	rec.Latent = decodeVector(vecBlob)
	if err := json.Unmarshal([]byte(snapJSON), &rec.Snapshot); err != nil {
		return SnapshotRecord{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	if metricsJSON.Valid {
		rec.MetricsJSON = metricsJSON.String
	}
	return rec, nil
}

// Rollback moves the active pointer to a previous version.
func (s *Store) Rollback(targetVersionID string) error {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM snapshot_versions WHERE version_id = ?`, targetVersionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s not found", targetVersionID)
	}

	_, err = s.db.Exec(`UPDATE active_snapshot SET version_id = ? WHERE id = 1`, targetVersionID)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// ListVersions returns the most recent snapshot versions, newest first.
func (s *Store) ListVersions(limit int) ([]SnapshotRecord, error) {
	rows, err := s.db.Query(
		`SELECT version_id, parent_id, tick, latent_vector, snapshot_json, created_at, metrics_json
		 FROM snapshot_versions ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var records []SnapshotRecord
	for rows.Next() {
		var rec SnapshotRecord
		var parentID sql.NullString
		var vecBlob []byte
		var snapJSON string
		var createdStr string
		var metricsJSON sql.NullString

		if err := rows.Scan(&rec.VersionID, &parentID, &rec.Tick, &vecBlob, &snapJSON, &createdStr, &metricsJSON); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if parentID.Valid {
			rec.ParentID = parentID.String
		}
		rec.Latent = decodeVector(vecBlob)
		if err := json.Unmarshal([]byte(snapJSON), &rec.Snapshot); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		if metricsJSON.Valid {
			rec.MetricsJSON = metricsJSON.String
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion load

// #region tick-log

// LogTick appends one tick record to the provenance log. versionID may
// be empty when no snapshot has been persisted yet.
func (s *Store) LogTick(versionID string, out core.TickOutput) error {
	recordJSON, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal tick record: %w", err)
	}

	var versionPtr interface{}
	if versionID != "" {
		versionPtr = versionID
	}
	var decisionPtr interface{}
	if out.Decision != nil {
		decisionPtr = out.Decision.SelectedID
	}
	safeMode := 0
	if out.SafeMode {
		safeMode = 1
	}

	_, err = s.db.Exec(
		`INSERT INTO tick_log (version_id, tick, surprise, confidence, safe_mode, decision_id, record_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		versionPtr, out.Tick, out.Surprise, out.Confidence, safeMode, decisionPtr,
		string(recordJSON), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log tick: %w", err)
	}
	return nil
}

// ListTicks returns the most recent tick entries, newest first.
func (s *Store) ListTicks(limit int) ([]TickEntry, error) {
	rows, err := s.db.Query(
		`SELECT version_id, tick, surprise, confidence, safe_mode, decision_id, record_json, created_at
		 FROM tick_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list ticks: %w", err)
	}
	defer rows.Close()

	var entries []TickEntry
	for rows.Next() {
		var e TickEntry
		var versionID, decisionID, recordJSON sql.NullString
		var safeMode int
		var createdStr string

		if err := rows.Scan(&versionID, &e.Tick, &e.Surprise, &e.Confidence, &safeMode, &decisionID, &recordJSON, &createdStr); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		e.VersionID = versionID.String
		e.DecisionID = decisionID.String
		e.RecordJSON = recordJSON.String
		e.SafeMode = safeMode == 1
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion tick-log

// #region vector-encoding

func encodeVector(v []float64) []byte {
	buf := make([]byte, len(v)*8)
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float64 {
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return v
}

// #endregion vector-encoding
