package db

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

const (
	driverName = "mysql"
)

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

// ScannerConfig: バーコードスキャナ（キーボードエミュレーション型）の設定
type ScannerConfig struct {
	// 空なら自動検出（最初に見つかったキー入力デバイスを使う）
	Device  string `yaml:"device"`
	Enabled bool   `yaml:"enabled"`
}

// MailgunConfig: 返却期限超過メール通知の設定
// domain が空なら通知機能は無効
type MailgunConfig struct {
	Domain string `yaml:"domain"`
	APIKey string `yaml:"api_key"`
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	// チェック間隔（例: "1h"）。空なら1時間
	SweepInterval string `yaml:"sweep_interval"`
}

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type Config struct {
	Version string `yaml:"version"`
	Mode    string `yaml:"mode"`
	// "mysql" または "memory"（デモ・開発用）
	Storage     string         `yaml:"storage"`
	Addr        string         `yaml:"addr"`
	DB          DatabaseConfig `yaml:"database"`
	Scanner     ScannerConfig  `yaml:"scanner"`
	Mailgun     MailgunConfig  `yaml:"mailgun"`
	Certificate Certs          `yaml:"certificate"`
}

func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込み失敗: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルのパース失敗: %w", err)
	}
	if cfg.Storage == "" {
		cfg.Storage = "mysql"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8443"
	}
	return &cfg, nil
}

func Connect(c DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=false&timeout=3s&readTimeout=5s&writeTimeout=5s&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.DBName)

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("接続準備に失敗: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("DB接続に失敗: %w", err)
	}

	// 接続プール（合算がMySQLの max_connections を超えないよう配分する）
	db.SetMaxOpenConns(80)
	db.SetMaxIdleConns(20)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}
