package migrations

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	ordernotify "github.com/goliatone/go-order-notify"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const rootDir = "data/sql/migrations"

// DialectForDriver maps a database/sql driver name onto a migration dialect.
func DialectForDriver(driver string) (string, error) {
	switch strings.TrimSpace(strings.ToLower(driver)) {
	case "postgres", "pgx", "postgresql":
		return DialectPostgres, nil
	case "sqlite3", "sqlite":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("migrations: unsupported driver %q", driver)
	}
}

// ForDialect returns the ledger migrations of one dialect from the embedded
// tree. Postgres files sit at the root, sqlite files under sqlite/.
func ForDialect(dialect string) (fs.FS, error) {
	return forDialect(ordernotify.GetMigrationsFS(), dialect)
}

func forDialect(root fs.FS, dialect string) (fs.FS, error) {
	dir := rootDir
	switch strings.TrimSpace(strings.ToLower(dialect)) {
	case DialectPostgres:
	case DialectSQLite:
		dir = path.Join(rootDir, "sqlite")
	default:
		return nil, fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}
	sub, err := fs.Sub(root, dir)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve %s: %w", dir, err)
	}
	if err := validatePairs(sub, dir); err != nil {
		return nil, err
	}
	return sub, nil
}

// validatePairs requires at least one up migration and a down file for each.
func validatePairs(fsys fs.FS, dir string) error {
	ups, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return fmt.Errorf("migrations: glob %s: %w", dir, err)
	}
	if len(ups) == 0 {
		return fmt.Errorf("migrations: %s has no *.up.sql files", dir)
	}
	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		if _, err := fs.Stat(fsys, down); err != nil {
			return fmt.Errorf("migrations: %s/%s has no matching %s", dir, up, down)
		}
	}
	return nil
}
