// Package store provides SQLite-backed persistence for solve runs and
// simulated episodes.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ecotner/pydata-mdp/mdp"
	"github.com/ecotner/pydata-mdp/results"
	"github.com/ecotner/pydata-mdp/sim"

	_ "modernc.org/sqlite"
)

// Store handles SQLite database operations for run and episode records.
type Store struct {
	db *sql.DB
}

// Run summarizes a persisted solve run. The full results document is kept
// alongside and retrieved with GetRun.
type Run struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Game       string    `json:"game"`
	NSides     int       `json:"n_sides"`
	MaxScore   int       `json:"max_score"`
	Discount   float64   `json:"discount"`
	Solver     string    `json:"solver"`
	Status     string    `json:"status"`
	Iterations int       `json:"iterations"`
	Converged  bool      `json:"converged"`
	Residual   float64   `json:"residual"`
	StartValue float64   `json:"start_value"`
	Threshold  *int      `json:"threshold,omitempty"`
}

// Episode is one persisted playout of a simulation batch. Outcome is the
// score the episode banked, or the terminal index for busts, or the last
// state reached for truncated episodes.
type Episode struct {
	ID        int64   `json:"id"`
	RunID     string  `json:"run_id"`
	Index     int     `json:"index"`
	Start     int     `json:"start"`
	Seed      int64   `json:"seed"`
	Steps     int     `json:"steps"`
	Payout    float64 `json:"payout"`
	Outcome   int     `json:"outcome"`
	Banked    bool    `json:"banked"`
	Truncated bool    `json:"truncated"`
}

// EpisodeStats aggregates the episodes of one run.
type EpisodeStats struct {
	Episodes   int     `json:"episodes"`
	MeanPayout float64 `json:"mean_payout"`
	MeanSteps  float64 `json:"mean_steps"`
	MinPayout  float64 `json:"min_payout"`
	MaxPayout  float64 `json:"max_payout"`
	Banked     int     `json:"banked"`
	Truncated  int     `json:"truncated"`
	BankRate   float64 `json:"bank_rate"`
}

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// New creates a new Store backed by the database at the given path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = filepath.Clean(dbPath) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		game TEXT NOT NULL DEFAULT '',
		n_sides INTEGER NOT NULL,
		max_score INTEGER NOT NULL,
		discount REAL NOT NULL,
		solver TEXT NOT NULL DEFAULT 'standard',
		status TEXT NOT NULL DEFAULT 'success',
		iterations INTEGER DEFAULT 0,
		converged INTEGER DEFAULT 0,
		residual REAL DEFAULT 0,
		start_value REAL DEFAULT 0,
		threshold INTEGER,
		document TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS episodes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		episode INTEGER NOT NULL,
		start INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		steps INTEGER NOT NULL,
		payout REAL NOT NULL,
		outcome INTEGER NOT NULL,
		banked INTEGER DEFAULT 0,
		truncated INTEGER DEFAULT 0,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_episodes_run ON episodes(run_id);
	CREATE INDEX IF NOT EXISTS idx_episodes_run_episode ON episodes(run_id, episode);
	CREATE INDEX IF NOT EXISTS idx_runs_game ON runs(game);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for custom queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SaveRun persists a results document and its summary columns.
func (s *Store) SaveRun(r *results.Results) error {
	if r == nil {
		return fmt.Errorf("save run: nil results")
	}
	document, err := results.ToJSON(r)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	var threshold any
	if r.Analysis != nil && r.Analysis.SwitchPoint != nil && r.Analysis.SwitchPoint.Found {
		threshold = r.Analysis.SwitchPoint.Threshold
	}

	_, err = s.db.Exec(
		`INSERT INTO runs (id, created_at, game, n_sides, max_score, discount,
		 solver, status, iterations, converged, residual, start_value,
		 threshold, document)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, toMillis(r.Metadata.Timestamp), r.Game.Name,
		r.Game.NSides, r.Game.MaxScore, r.Solve.Discount,
		r.Metadata.Solver, r.Metadata.Status,
		r.Results.Summary.Iterations, r.Results.Summary.Converged,
		r.Results.Summary.Residual, r.Results.Summary.StartValue,
		threshold, document,
	)
	return err
}

// GetRun retrieves the full results document for a run.
func (s *Store) GetRun(id string) (*results.Results, error) {
	row := s.db.QueryRow(`SELECT document FROM runs WHERE id = ?`, id)

	var document string
	if err := row.Scan(&document); err != nil {
		return nil, err
	}

	r, err := results.FromJSON(document)
	if err != nil {
		return nil, fmt.Errorf("unmarshal results: %w", err)
	}
	return r, nil
}

const runColumns = `id, created_at, game, n_sides, max_score, discount,
	 solver, status, iterations, converged, residual, start_value, threshold`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var r Run
	var createdAt int64
	var threshold sql.NullInt64
	err := row.Scan(&r.ID, &createdAt, &r.Game, &r.NSides, &r.MaxScore,
		&r.Discount, &r.Solver, &r.Status, &r.Iterations, &r.Converged,
		&r.Residual, &r.StartValue, &threshold)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = fromMillis(createdAt)
	if threshold.Valid {
		t := int(threshold.Int64)
		r.Threshold = &t
	}
	return &r, nil
}

// GetRunInfo retrieves the summary record for a run.
func (s *Store) GetRunInfo(id string) (*Run, error) {
	row := s.db.QueryRow(
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, id,
	)
	return scanRun(row)
}

// ListRuns returns the most recent runs.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	rows, err := s.db.Query(
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunsForGame returns runs for a named game, most recent first.
func (s *Store) RunsForGame(game string) ([]*Run, error) {
	rows, err := s.db.Query(
		`SELECT `+runColumns+` FROM runs WHERE game = ? ORDER BY created_at DESC`, game,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its episodes.
func (s *Store) DeleteRun(id string) error {
	if _, err := s.db.Exec(`DELETE FROM episodes WHERE run_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	return err
}

// SaveEpisodes persists every episode of a simulation batch under the given
// run. Episodes are written in one transaction.
func (s *Store) SaveEpisodes(runID string, batch *sim.Batch) error {
	if batch == nil {
		return fmt.Errorf("save episodes: nil batch")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO episodes (run_id, episode, start, seed, steps, payout,
		 outcome, banked, truncated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i, ep := range batch.Episodes {
		banked := !ep.Truncated && len(ep.Actions) > 0 &&
			ep.Actions[len(ep.Actions)-1] == int(mdp.Stop)
		// Banked episodes report the score they stopped on, everything
		// else reports the last state reached.
		outcome := ep.Final()
		if banked {
			outcome = ep.States[len(ep.States)-2]
		}
		_, err := stmt.Exec(runID, i, batch.Start, batch.Seed, ep.Steps,
			ep.Return, outcome, banked, ep.Truncated)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert episode %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetEpisodes retrieves all episodes for a run in batch order.
func (s *Store) GetEpisodes(runID string) ([]*Episode, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, episode, start, seed, steps, payout, outcome,
		 banked, truncated
		 FROM episodes WHERE run_id = ? ORDER BY episode`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var episodes []*Episode
	for rows.Next() {
		var ep Episode
		err := rows.Scan(&ep.ID, &ep.RunID, &ep.Index, &ep.Start, &ep.Seed,
			&ep.Steps, &ep.Payout, &ep.Outcome, &ep.Banked, &ep.Truncated)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, &ep)
	}
	return episodes, rows.Err()
}

// EpisodeStats returns aggregated stats for a run's episodes.
func (s *Store) EpisodeStats(runID string) (*EpisodeStats, error) {
	row := s.db.QueryRow(
		`SELECT COUNT(*), AVG(payout), AVG(steps), MIN(payout), MAX(payout),
		 SUM(banked), SUM(truncated)
		 FROM episodes WHERE run_id = ?`, runID,
	)

	var st EpisodeStats
	var meanPayout, meanSteps, minPayout, maxPayout sql.NullFloat64
	var banked, truncated sql.NullInt64
	err := row.Scan(&st.Episodes, &meanPayout, &meanSteps, &minPayout,
		&maxPayout, &banked, &truncated)
	if err != nil {
		return nil, err
	}
	if st.Episodes == 0 {
		return &st, nil
	}
	st.MeanPayout = meanPayout.Float64
	st.MeanSteps = meanSteps.Float64
	st.MinPayout = minPayout.Float64
	st.MaxPayout = maxPayout.Float64
	st.Banked = int(banked.Int64)
	st.Truncated = int(truncated.Int64)
	st.BankRate = float64(st.Banked) / float64(st.Episodes)
	return &st, nil
}

// OutcomeCounts returns how many episodes banked each score. Busts count
// under the terminal index.
func (s *Store) OutcomeCounts(runID string) (map[int]int, error) {
	rows, err := s.db.Query(
		`SELECT outcome, COUNT(*) FROM episodes
		 WHERE run_id = ? GROUP BY outcome`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var state, count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		counts[state] = count
	}
	return counts, rows.Err()
}

// ExportRunJSON exports a run, its results document, and episode aggregates
// as JSON.
func (s *Store) ExportRunJSON(runID string) ([]byte, error) {
	info, err := s.GetRunInfo(runID)
	if err != nil {
		return nil, err
	}

	doc, err := s.GetRun(runID)
	if err != nil {
		return nil, err
	}

	stats, err := s.EpisodeStats(runID)
	if err != nil {
		return nil, err
	}

	outcomes, err := s.OutcomeCounts(runID)
	if err != nil {
		return nil, err
	}

	export := map[string]any{
		"run":      info,
		"results":  doc,
		"stats":    stats,
		"outcomes": outcomes,
	}

	return json.MarshalIndent(export, "", "  ")
}
