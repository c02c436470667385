package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection with a ping.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = pass
	cfg.Net = "tcp"
	cfg.Addr = host + ":" + port
	cfg.DBName = name
	cfg.ParseTime = true // DATETIME columns scan into time.Time
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}

	db, err := sql.Open("mysql", cfg.FormatDSN())
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

// Migrate creates the tables this service owns. The flights catalog is
// reference data provisioned outside the service and is deliberately not
// touched here.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			username      VARCHAR(64)  NOT NULL PRIMARY KEY,
			password_hash VARCHAR(255) NOT NULL,
			balance       BIGINT       NOT NULL,
			created_at    TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT chk_balance_non_negative CHECK (balance >= 0)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS reservations (
			rid        BIGINT      NOT NULL PRIMARY KEY,
			username   VARCHAR(64) NOT NULL,
			paid       TINYINT(1)  NOT NULL DEFAULT 0,
			flight1_id BIGINT      NOT NULL,
			flight2_id BIGINT      NULL,
			created_at TIMESTAMP   NOT NULL DEFAULT CURRENT_TIMESTAMP,
			KEY idx_reservations_username (username),
			KEY idx_reservations_flight1 (flight1_id),
			KEY idx_reservations_flight2 (flight2_id),
			CONSTRAINT fk_reservations_user FOREIGN KEY (username) REFERENCES users (username)
		) ENGINE=InnoDB`,
	}
	for _, q := range stmts {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
