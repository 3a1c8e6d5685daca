package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/rbroggi/gatherly/internal/core/ports"
)

// PostgresDB is a postgress adapter for persistance. It implements every repository port and the
// attendance ledger.
type PostgresDB struct {
	db      *pg.DB
	nowFunc func() time.Time
}

var (
	_ ports.UserRepository     = (*PostgresDB)(nil)
	_ ports.CategoryRepository = (*PostgresDB)(nil)
	_ ports.EventRepository    = (*PostgresDB)(nil)
	_ ports.AttendanceLedger   = (*PostgresDB)(nil)
	_ ports.Pinger             = (*PostgresDB)(nil)
)

// PostgresDBArgs are the mandatory arguments for the creation of a PostgresDB
type PostgresDBArgs struct {
	// DB is a postgres database handle
	DB *pg.DB
}

// PostgresDBOptArgs are the optional arguments for building a PostgresDB
type PostgresDBOptArgs = func(*PostgresDB)

// WithNowFunc can be used to override the nowFunc. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) PostgresDBOptArgs {
	return func(p *PostgresDB) {
		p.nowFunc = nowFunc
	}
}

// NewPostgresDB creates a new PostgresDB.
func NewPostgresDB(args PostgresDBArgs, optArgs ...PostgresDBOptArgs) (*PostgresDB, error) {
	if args.DB == nil {
		return nil, errors.New("nil database handle")
	}
	pg := &PostgresDB{db: args.DB, nowFunc: func() time.Time { return time.Now().UTC() }}
	for _, opt := range optArgs {
		opt(pg)
	}
	return pg, nil
}

// Ping checks the database is reachable.
func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

// isUniqueViolation tells whether err is a unique_violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr pg.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching s as a literal substring.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
