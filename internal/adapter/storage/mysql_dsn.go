package storage

import (
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQLDSN forces the options the adapter depends on: DATETIME columns scan
// into time.Time and are read and written in UTC.
func MySQLDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}
