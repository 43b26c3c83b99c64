package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id       VARCHAR(64)  NOT NULL PRIMARY KEY,
    username VARCHAR(255) NOT NULL
) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS auctions (
    id          VARCHAR(36)   NOT NULL PRIMARY KEY,
    title       VARCHAR(255)  NOT NULL,
    description TEXT          NOT NULL,
    image_url   VARCHAR(512)  NULL,
    status      VARCHAR(16)   NOT NULL,
    owner_id    VARCHAR(64)   NOT NULL,
    winner_id   VARCHAR(64)   NULL,
    price       DECIMAL(18,2) NULL,
    created_at  DATETIME(6)   NOT NULL,
    updated_at  DATETIME(6)   NOT NULL,
    INDEX idx_auctions_status_created (status, created_at),
    INDEX idx_auctions_owner (owner_id),
    CONSTRAINT fk_auctions_owner FOREIGN KEY (owner_id) REFERENCES users(id),
    CONSTRAINT fk_auctions_winner FOREIGN KEY (winner_id) REFERENCES users(id)
) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS bids (
    id         VARCHAR(36)   NOT NULL PRIMARY KEY,
    auction_id VARCHAR(36)   NOT NULL,
    user_id    VARCHAR(64)   NOT NULL,
    amount     DECIMAL(18,2) NOT NULL,
    bid_time   DATETIME(6)   NOT NULL,
    INDEX idx_bids_auction (auction_id, bid_time),
    INDEX idx_bids_user (user_id),
    CONSTRAINT fk_bids_auction FOREIGN KEY (auction_id) REFERENCES auctions(id) ON DELETE CASCADE,
    CONSTRAINT fk_bids_user FOREIGN KEY (user_id) REFERENCES users(id)
) ENGINE=InnoDB`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id       TEXT PRIMARY KEY,
    username TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS auctions (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL,
    description TEXT NOT NULL,
    image_url   TEXT,
    status      TEXT NOT NULL CHECK (status IN ('Open', 'Closing', 'Sold')),
    owner_id    TEXT NOT NULL REFERENCES users(id),
    winner_id   TEXT REFERENCES users(id),
    price       DECIMAL(18,2),
    created_at  DATETIME NOT NULL,
    updated_at  DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_auctions_status_created ON auctions(status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_auctions_owner ON auctions(owner_id)`,
	`CREATE TABLE IF NOT EXISTS bids (
    id         TEXT PRIMARY KEY,
    auction_id TEXT NOT NULL REFERENCES auctions(id) ON DELETE CASCADE,
    user_id    TEXT NOT NULL REFERENCES users(id),
    amount     DECIMAL(18,2) NOT NULL CHECK (amount > 0),
    bid_time   DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_bids_auction ON bids(auction_id, bid_time)`,
	`CREATE INDEX IF NOT EXISTS idx_bids_user ON bids(user_id)`,
}

// Migrate creates all tables and indexes if they don't already exist.
// Statements run one at a time since the MySQL driver rejects multi-statement
// execs by default.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	for _, stmt := range dialect.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying %s schema: %w", dialect.Name, err)
		}
	}
	return nil
}
