package rundb

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/aimstack/aimstore/pkg/local_storage/common"
	storagelog "github.com/aimstack/aimstore/pkg/local_storage/internal/storagelog"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// FileName is a name of the database file in the repository root.
const FileName = "run_metadata.sqlite"

// ErrRunNotFound is returned when the run is missing in the database.
var ErrRunNotFound = errors.New("run not found")

// Run is a record of the run.
type Run struct {
	Hash       string
	Name       string
	Experiment string
	Archived   bool
	CreatedAt  time.Time
}

// DB is a side database of the run metadata.
type DB struct {
	*cfg

	path string

	// nil for read-only database which does not exist yet
	db *sql.DB
}

// Option is an option of DB constructor.
type Option func(*cfg)

type cfg struct {
	log      *zap.Logger
	readOnly bool
}

func defaultCfg() *cfg {
	return &cfg{
		log: zap.L(),
	}
}

// WithLogger returns option to specify DB's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *cfg) {
		c.log = l.With(zap.String("component", "RunDB"))
	}
}

// WithReadOnly returns option to open DB in read-only mode.
func WithReadOnly(ro bool) Option {
	return func(c *cfg) {
		c.readOnly = ro
	}
}

const schema = `CREATE TABLE IF NOT EXISTS run (
	hash       TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	experiment TEXT NOT NULL DEFAULT '',
	archived   INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
)`

// FromPath opens the database in the repository root and migrates its
// schema. Read-only database which does not exist yet is empty.
func FromPath(root string, opts ...Option) (*DB, error) {
	c := defaultCfg()

	for i := range opts {
		opts[i](c)
	}

	d := &DB{
		cfg:  c,
		path: filepath.Join(root, FileName),
	}

	d.log.Debug("opening run database", storagelog.PathField(d.path))

	dsn := "file:" + d.path + "?_pragma=busy_timeout(5000)"

	// read-only mode is enforced by DB methods: the connection may need to
	// create WAL index files
	if c.readOnly {
		if _, err := os.Stat(d.path); errors.Is(err, fs.ErrNotExist) {
			return d, nil
		}
	} else {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open run database %s: %w", d.path, err)
	}

	if !c.readOnly {
		if _, err := db.Exec(schema); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate run database %s: %w", d.path, err)
		}
	}

	d.db = db

	runtime.AddCleanup(d, func(db *sql.DB) { _ = db.Close() }, db)

	return d, nil
}

// Path returns the path of the database file.
func (d *DB) Path() string {
	return d.path
}

// CreateRun inserts the run. Name and experiment of the existing run are
// updated.
func (d *DB) CreateRun(r Run) error {
	if d.readOnly {
		return common.ErrReadOnly
	}

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	_, err := d.db.Exec(`INSERT INTO run (hash, name, experiment, archived, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET name = excluded.name, experiment = excluded.experiment`,
		r.Hash, r.Name, r.Experiment, r.Archived, r.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.Hash, err)
	}

	return nil
}

const selectRun = `SELECT hash, name, experiment, archived, created_at FROM run`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r       Run
		created int64
	)

	if err := s.Scan(&r.Hash, &r.Name, &r.Experiment, &r.Archived, &created); err != nil {
		return Run{}, err
	}

	r.CreatedAt = time.Unix(0, created)

	return r, nil
}

// Run returns the run by hash. Returns ErrRunNotFound if it is missing.
func (d *DB) Run(hash string) (Run, error) {
	if d.db == nil {
		return Run{}, fmt.Errorf("run %s: %w", hash, ErrRunNotFound)
	}

	r, err := scanRun(d.db.QueryRow(selectRun+` WHERE hash = ?`, hash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, fmt.Errorf("run %s: %w", hash, ErrRunNotFound)
		}
		return Run{}, fmt.Errorf("select run %s: %w", hash, err)
	}

	return r, nil
}

// Runs returns all runs in creation order.
func (d *DB) Runs() ([]Run, error) {
	if d.db == nil {
		return nil, nil
	}

	rows, err := d.db.Query(selectRun + ` ORDER BY created_at, hash`)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer rows.Close()

	var res []Run

	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		res = append(res, r)
	}

	return res, rows.Err()
}

// SetArchived updates archived flag of the run. Returns ErrRunNotFound if
// it is missing.
func (d *DB) SetArchived(hash string, archived bool) error {
	if d.readOnly {
		return common.ErrReadOnly
	}

	res, err := d.db.Exec(`UPDATE run SET archived = ? WHERE hash = ?`, archived, hash)
	if err != nil {
		return fmt.Errorf("update run %s: %w", hash, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run %s: %w", hash, err)
	}

	if n == 0 {
		return fmt.Errorf("run %s: %w", hash, ErrRunNotFound)
	}

	return nil
}

// Close closes the database.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}

	d.log.Debug("closing run database", storagelog.PathField(d.path))

	return d.db.Close()
}
