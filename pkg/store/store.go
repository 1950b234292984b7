// Package store keeps named selections in a SQLite database so a machine's
// configuration can be recalled and rebuilt later.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"ufwcfg/pkg/errors"
	"ufwcfg/pkg/log"
	"ufwcfg/pkg/resolve"
	"ufwcfg/pkg/selection"
)

// DefaultFile is the database name used under the user config directory.
const DefaultFile = "profiles.db"

var logger = log.GetLogger("store")

// Profile is a saved selection.
type Profile struct {
	ID        string              `yaml:"id" json:"id"`
	Name      string              `yaml:"name" json:"name"`
	Printer   string              `yaml:"printer" json:"printer"`
	Digest    string              `yaml:"digest" json:"digest"`
	Selection selection.Selection `yaml:"selection" json:"selection"`
	CreatedAt time.Time           `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time           `yaml:"updated_at" json:"updated_at"`
}

// Stale reports whether the selection no longer resolves to the constants
// it was saved with, which happens when the resolver's tables change.
func (p *Profile) Stale() (bool, error) {
	c, err := resolve.Resolve(p.Selection)
	if err != nil {
		return true, err
	}
	d, err := c.Digest()
	if err != nil {
		return true, err
	}
	return d != p.Digest, nil
}

// Store manages the profile database.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex

	now func() time.Time
}

// DefaultPath returns the database location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, errors.ErrStoreIO, "no user config directory")
	}
	return filepath.Join(dir, "ufwcfg", DefaultFile), nil
}

// Open creates or opens the profile database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreIO, "create store directory").SetFile(path)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreIO, "open database").SetFile(path)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrStoreIO, "initialize schema: "+err.Error()).SetFile(path)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		printer TEXT NOT NULL,
		digest TEXT NOT NULL,
		selection_yaml TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_profiles_printer ON profiles(printer);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save stores sel under name, replacing an existing profile of that name
// while keeping its id and creation time. The selection must resolve.
func (s *Store) Save(ctx context.Context, name string, sel selection.Selection) (*Profile, error) {
	if name == "" {
		return nil, errors.New(errors.ErrSelectionRequired, "profile name must not be empty")
	}
	c, err := resolve.Resolve(sel)
	if err != nil {
		return nil, err
	}
	digest, err := c.Digest()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreIO, "digest constants")
	}
	data, err := sel.YAML()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreIO, "encode selection")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	p := &Profile{
		ID:        uuid.NewString(),
		Name:      name,
		Printer:   string(c.Printer),
		Digest:    digest,
		Selection: sel.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	var id, created string
	err = s.db.QueryRowContext(ctx, `SELECT id, created_at FROM profiles WHERE name = ?`, name).Scan(&id, &created)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO profiles (id, name, printer, digest, selection_yaml, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Printer, p.Digest, string(data), formatTime(now), formatTime(now))
	case err == nil:
		p.ID = id
		if p.CreatedAt, err = parseTime(created); err != nil {
			return nil, errors.Wrap(err, errors.ErrStoreIO, "corrupt created_at for profile "+name)
		}
		_, err = s.db.ExecContext(ctx,
			`UPDATE profiles SET printer = ?, digest = ?, selection_yaml = ?, updated_at = ? WHERE id = ?`,
			p.Printer, p.Digest, string(data), formatTime(now), p.ID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreIO, "save profile "+name)
	}

	logger.WithFields(log.Fields{"name": name, "id": p.ID, "printer": p.Printer}).Info("profile saved")
	return p, nil
}

// Get returns the profile with the given name.
func (s *Store) Get(ctx context.Context, name string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, printer, digest, selection_yaml, created_at, updated_at
		 FROM profiles WHERE name = ?`, name)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrStoreNotFound, fmt.Sprintf("no profile named %q", name))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreIO, "get profile "+name+": "+err.Error())
	}
	return p, nil
}

// List returns every profile ordered by name.
func (s *Store) List(ctx context.Context) ([]*Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, printer, digest, selection_yaml, created_at, updated_at
		 FROM profiles ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreIO, "list profiles")
	}
	defer rows.Close()

	var out []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrStoreIO, "list profiles: "+err.Error())
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreIO, "list profiles")
	}
	return out, nil
}

// Delete removes the named profile.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE name = ?`, name)
	if err != nil {
		return errors.Wrap(err, errors.ErrStoreIO, "delete profile "+name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrStoreIO, "delete profile "+name)
	}
	if n == 0 {
		return errors.New(errors.ErrStoreNotFound, fmt.Sprintf("no profile named %q", name))
	}
	logger.WithField("name", name).Info("profile deleted")
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*Profile, error) {
	var (
		p                Profile
		data             string
		created, updated string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Printer, &p.Digest, &data, &created, &updated); err != nil {
		return nil, err
	}
	sel, err := selection.LoadYAML(bytes.NewReader([]byte(data)))
	if err != nil {
		return nil, err
	}
	p.Selection = sel
	if p.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &p, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
