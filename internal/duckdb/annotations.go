package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/inodb/chc2go/internal/goa"
	"github.com/inodb/chc2go/internal/ontology"
)

const gafSource = "gaf"

// FileFingerprint identifies an imported source file by its stat data.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile fingerprints an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// modTimeKey renders the modification time as stored in import_sources.
func (fp FileFingerprint) modTimeKey() string {
	return fp.ModTime.UTC().Format(time.RFC3339Nano)
}

// ImportStats describes one GAF import.
type ImportStats struct {
	Rows    int // annotations stored
	Skipped int // lines dropped by the filters
}

// optionsKey renders parse options so a cache built with different filters
// is never reused.
func optionsKey(opts goa.Options) string {
	ev := make([]string, len(opts.ExcludeEvidence))
	for i, e := range opts.ExcludeEvidence {
		ev[i] = strings.ToUpper(e)
	}
	sort.Strings(ev)
	return "exclude=" + strings.Join(ev, ",") + ";negated=" + strconv.FormatBool(opts.IncludeNegated)
}

// ImportGAF replaces the stored annotations with the contents of a GAF file,
// streamed through the DuckDB Appender API, and records its fingerprint.
// The replacement runs in one transaction: a failed import leaves the
// previous annotations and their fingerprint in place.
func (s *Store) ImportGAF(path string, opts goa.Options) (stats ImportStats, err error) {
	fp, err := StatFile(path)
	if err != nil {
		return ImportStats{}, &ontology.MissingSourceError{Kind: "annotation", Path: path, Err: err}
	}

	p, err := goa.NewParser(path, opts)
	if err != nil {
		return ImportStats{}, err
	}
	defer p.Close()

	// The appender writes through the driver connection, so the whole
	// import is pinned to one connection and its transaction.
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return ImportStats{}, fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		return ImportStats{}, fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if err != nil {
			if _, rbErr := conn.ExecContext(ctx, "ROLLBACK"); rbErr != nil {
				s.logger.Warn("rollback annotation import", zap.Error(rbErr))
			}
		}
	}()

	if _, err := conn.ExecContext(ctx, "DELETE FROM import_sources WHERE kind = ?", gafSource); err != nil {
		return ImportStats{}, fmt.Errorf("clear import source: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "DELETE FROM go_annotations"); err != nil {
		return ImportStats{}, fmt.Errorf("clear annotations: %w", err)
	}

	stats, err = appendAnnotations(conn, p)
	if err != nil {
		return stats, err
	}

	if _, err := conn.ExecContext(ctx, `INSERT OR REPLACE INTO import_sources VALUES (?, ?, ?, ?, ?, ?, ?)`,
		gafSource, fp.Path, fp.Size, fp.modTimeKey(), optionsKey(opts), int64(stats.Rows), time.Now().UTC(),
	); err != nil {
		return stats, fmt.Errorf("record import source: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return stats, fmt.Errorf("commit import: %w", err)
	}

	s.logger.Info("imported GO annotations",
		zap.String("path", path),
		zap.Int("rows", stats.Rows),
		zap.Int("filtered", stats.Skipped))
	return stats, nil
}

// appendAnnotations streams every parsed annotation into go_annotations
// within the connection's open transaction.
func appendAnnotations(conn *sql.Conn, p *goa.Parser) (ImportStats, error) {
	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "go_annotations")
		return err
	}); err != nil {
		return ImportStats{}, fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	var stats ImportStats
	for {
		a, err := p.Next()
		if err != nil {
			return stats, err
		}
		if a == nil {
			break
		}
		if err := appender.AppendRow(
			int64(stats.Rows), a.Symbol, a.DB, a.ObjectID, a.Qualifier,
			string(a.TermID), a.Evidence, a.Aspect,
		); err != nil {
			return stats, fmt.Errorf("append annotation: %w", err)
		}
		stats.Rows++
	}
	if err := appender.Flush(); err != nil {
		return stats, fmt.Errorf("flush annotations: %w", err)
	}
	stats.Skipped = p.Skipped()
	return stats, nil
}

// Fresh reports whether the stored annotations were imported from a file
// with this fingerprint using the same options.
func (s *Store) Fresh(fp FileFingerprint, opts goa.Options) (bool, error) {
	var size int64
	var modTime, options string
	err := s.db.QueryRow(`SELECT size, mod_time, options FROM import_sources WHERE kind = ?`, gafSource).
		Scan(&size, &modTime, &options)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query import source: %w", err)
	}
	return size == fp.Size && modTime == fp.modTimeKey() && options == optionsKey(opts), nil
}

// Associations loads every stored annotation in import order.
func (s *Store) Associations() (*goa.Associations, error) {
	rows, err := s.db.Query(`SELECT symbol, db, object_id, term_id FROM go_annotations ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query annotations: %w", err)
	}
	defer rows.Close()

	assoc := goa.NewAssociations()
	for rows.Next() {
		var a goa.Annotation
		var term string
		if err := rows.Scan(&a.Symbol, &a.DB, &a.ObjectID, &term); err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		a.TermID = ontology.TermID(term)
		assoc.AddAnnotation(&a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate annotations: %w", err)
	}
	return assoc, nil
}

// LoadAssociations returns the annotations of a GAF file, importing it first
// unless the store already holds an import of the same file and options.
func (s *Store) LoadAssociations(path string, opts goa.Options) (*goa.Associations, error) {
	fp, err := StatFile(path)
	if err != nil {
		return nil, &ontology.MissingSourceError{Kind: "annotation", Path: path, Err: err}
	}

	fresh, err := s.Fresh(fp, opts)
	if err != nil {
		return nil, err
	}
	if fresh {
		s.logger.Info("using cached GO annotations", zap.String("db", s.path), zap.String("path", path))
	} else if _, err := s.ImportGAF(path, opts); err != nil {
		return nil, err
	}
	return s.Associations()
}
