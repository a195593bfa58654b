package db

import (
	"context"
	"database/sql"
	"fmt"
)

// 起動時に適用するスキーマ。既存テーブルには手を付けない
// (IF NOT EXISTS)。マイグレーションは扱わない。
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS items (
		barcode            VARCHAR(64) NOT NULL,
		status             ENUM('in','out') NOT NULL DEFAULT 'in',
		checked_out_by     VARCHAR(255) NULL,
		expected_return_on DATE NULL,
		description        VARCHAR(255) NULL,
		updated_at         DATETIME(6) NOT NULL,
		PRIMARY KEY (barcode)
	)`,
	`CREATE TABLE IF NOT EXISTS checkout_logs (
		log_id    BIGINT NOT NULL AUTO_INCREMENT,
		log_ulid  CHAR(26) NOT NULL,
		barcode   VARCHAR(64) NOT NULL,
		action    ENUM('create','checkout','checkin') NOT NULL,
		actor     VARCHAR(255) NOT NULL,
		logged_at DATETIME(6) NOT NULL,
		PRIMARY KEY (log_id),
		UNIQUE KEY uq_checkout_logs_ulid (log_ulid),
		KEY idx_checkout_logs_barcode (barcode, log_id)
	)`,
	`CREATE TABLE IF NOT EXISTS employees (
		employee_id BIGINT NOT NULL AUTO_INCREMENT,
		name        VARCHAR(255) NOT NULL,
		email       VARCHAR(255) NOT NULL,
		active      TINYINT(1) NOT NULL DEFAULT 1,
		PRIMARY KEY (employee_id),
		UNIQUE KEY uq_employees_email (email)
	)`,
}

// EnsureSchema: 必要なテーブルを揃える。初回起動を
// schema.sql の手動適用なしで済ませるためのもの。
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("スキーマ適用に失敗しました: %w", err)
		}
	}
	return nil
}
