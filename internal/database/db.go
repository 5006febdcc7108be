// Package database opens the MySQL connection pool shared by all
// repositories.
package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Open builds the DSN, opens the pool and verifies connectivity with a
// ping. Timestamps are parsed into time.Time in UTC so due-date math never
// crosses a server-local timezone.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	dc := mysql.NewConfig()
	dc.User = user
	dc.Passwd = pass
	dc.Net = "tcp"
	dc.Addr = host + ":" + port
	dc.DBName = name
	dc.ParseTime = true
	dc.Loc = time.UTC
	dc.Params = map[string]string{"charset": "utf8mb4"}

	db, err := sql.Open("mysql", dc.FormatDSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
