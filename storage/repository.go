// Package storage persists built pings in a local sqlite database until an
// upload pass drains them. The store caps pings per type and discards the
// oldest first, so an unreachable endpoint never grows the database
// unboundedly.
package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	_ "github.com/mattn/go-sqlite3"

	"codeberg.org/mutker/telemetry/errors"
	"codeberg.org/mutker/telemetry/internal/logger"
	"codeberg.org/mutker/telemetry/ping"
)

type sqliteRepository struct {
	db         *sql.DB
	logger     logger.Logger
	cfg        Config
	serializer ping.Serializer
	mu         sync.Mutex
}

type storedPing struct {
	id         int64
	documentID string
	uploadPath string
	payload    []byte
}

func NewRepository(cfg Config, serializer ping.Serializer, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if serializer == nil {
		return nil, errFactory.WithMessage(errors.ErrInvalidArgument, "ping serializer is required")
	}

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	// Open database with specific pragmas for better performance and safety
	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	if err := validateSchema(db, log); err != nil {
		db.Close()

		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	log.Debug().
		Str("path", cfg.DBPath).
		Int("schema_version", schemaVersion).
		Int("max_pings_per_type", cfg.MaxPingsPerType).
		Msg("Ping repository initialized")

	return &sqliteRepository{
		db:         db,
		logger:     log,
		cfg:        cfg,
		serializer: serializer,
	}, nil
}

func (r *sqliteRepository) Store(ctx context.Context, p *ping.Ping) error {
	errFactory := errors.New()

	if p == nil {
		return errFactory.WithMessage(errors.ErrInvalidArgument, "ping is required")
	}

	payload, err := r.serializer.Serialize(p)
	if err != nil {
		return errFactory.Wrap(ErrSerializeFailed, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	// Track transaction state
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				r.logger.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.ExecContext(ctx, insertPingSQL,
		p.DocumentID, p.Type, p.UploadPath, payload, time.Now().Unix()); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	if _, err := tx.ExecContext(ctx, prunePingsSQL,
		p.Type, p.Type, r.cfg.MaxPingsPerType); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	committed = true

	r.logger.Debug().
		Str("type", p.Type).
		Str("document", p.DocumentID).
		Msg("Ping stored")

	return nil
}

func (r *sqliteRepository) Count(ctx context.Context, pingType string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pings WHERE ping_type = ?`, pingType).Scan(&count)
	if err != nil {
		return 0, errors.New().Wrap(ErrStorageAccess, err)
	}

	return count, nil
}

func (r *sqliteRepository) Types(ctx context.Context) ([]string, error) {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT ping_type FROM pings ORDER BY ping_type`)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	var types []string
	for rows.Next() {
		var pingType string
		if err := rows.Scan(&pingType); err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}
		types = append(types, pingType)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	return types, nil
}

// Process runs the callback without the repository lock held, so the
// callback may upload. Deleting each ping right after its callback keeps a
// crash mid-pass from re-sending more than one already-uploaded ping.
func (r *sqliteRepository) Process(ctx context.Context, pingType string,
	process func(documentID, uploadPath string, payload []byte) bool,
) (bool, error) {
	errFactory := errors.New()

	if process == nil {
		return false, errFactory.WithMessage(errors.ErrInvalidArgument, "process callback is required")
	}

	batch, err := r.loadBatch(ctx, pingType)
	if err != nil {
		return false, err
	}

	for i, stored := range batch {
		if !process(stored.documentID, stored.uploadPath, stored.payload) {
			r.logger.Debug().
				Str("type", pingType).
				Int("remaining", len(batch)-i).
				Msg("Upload pass stopped")

			return false, nil
		}
		if err := r.delete(ctx, stored.id); err != nil {
			return false, err
		}
	}

	return true, nil
}

func (r *sqliteRepository) loadBatch(ctx context.Context, pingType string) ([]storedPing, error) {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `
        SELECT id, document_id, upload_path, payload
        FROM pings
        WHERE ping_type = ?
        ORDER BY id ASC
    `, pingType)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	var batch []storedPing
	for rows.Next() {
		var stored storedPing
		if err := rows.Scan(&stored.id, &stored.documentID, &stored.uploadPath, &stored.payload); err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}
		batch = append(batch, stored)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	return batch, nil
}

func (r *sqliteRepository) delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM pings WHERE id = ?`, id); err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (r *sqliteRepository) Close() error {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Checkpoint WAL and cleanup on close
	var errs *multierror.Error
	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := r.db.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}

	r.logger.Debug().Msg("Ping repository closed")

	return nil
}
