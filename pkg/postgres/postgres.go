package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/finthetix/sidecar/internal/config"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultSSLMode = "disable"

var validSSLModes = []string{
	"disable",
	"require",
	"verify-ca",
	"verify-full",
}

type PostgresConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	DbName     string
	SchemaName string
	SSLMode    string
}

type Postgres struct {
	Db *sql.DB
}

func PostgresConfigFromDbConfig(dbCfg *config.DatabaseConfig) *PostgresConfig {
	return &PostgresConfig{
		Host:       dbCfg.Host,
		Port:       dbCfg.Port,
		Username:   dbCfg.User,
		Password:   dbCfg.Password,
		DbName:     dbCfg.DbName,
		SchemaName: dbCfg.SchemaName,
		SSLMode:    dbCfg.SSLMode,
	}
}

func getPostgresConnectionString(cfg *PostgresConfig) (string, error) {
	authString := ""
	sslMode := defaultSSLMode

	if cfg.Username != "" {
		authString = fmt.Sprintf("%s user=%s", authString, cfg.Username)
	}
	if cfg.Password != "" {
		authString = fmt.Sprintf("%s password=%s", authString, cfg.Password)
	}

	if cfg.SSLMode != "" {
		if !slices.Contains(validSSLModes, cfg.SSLMode) {
			return "", fmt.Errorf("invalid ssl mode: %s. Must be one of: %s", cfg.SSLMode, strings.Join(validSSLModes, ", "))
		}
		sslMode = cfg.SSLMode
	}

	baseString := fmt.Sprintf("host=%s %s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		cfg.Host,
		authString,
		cfg.DbName,
		cfg.Port,
		sslMode,
	)

	if cfg.SchemaName != "" {
		baseString = fmt.Sprintf("%s search_path=%s", baseString, cfg.SchemaName)
	}
	return baseString, nil
}

// The snapshot store issues one short transaction per reward read, so a small pool is enough.
const (
	maxOpenConns    = 10
	maxIdleConns    = 2
	connMaxLifetime = 30 * time.Minute
	pingTimeout     = 5 * time.Second
)

// NewPostgres opens the pool and pings the server so a bad host or credentials fail at startup.
func NewPostgres(cfg *PostgresConfig) (*Postgres, error) {
	connectString, err := getPostgresConnectionString(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", connectString)
	if err != nil {
		return nil, fmt.Errorf("Failed to setup database %+v", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach postgres at %s: %w", Redacted(cfg), err)
	}

	return &Postgres{
		Db: db,
	}, nil
}

// Redacted describes the target database without credentials, for logs and errors.
func Redacted(cfg *PostgresConfig) string {
	target := fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.DbName)
	if cfg.SchemaName != "" {
		target = fmt.Sprintf("%s?schema=%s", target, cfg.SchemaName)
	}
	if cfg.Username != "" {
		target = fmt.Sprintf("%s@%s", cfg.Username, target)
	}
	return target
}

func NewGormFromPostgresConnection(pgDb *sql.DB) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn: pgDb,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("Failed to setup database %+v", err)
	}

	return db, nil
}

// duplicateKeyRegex matches unique violations from both lib/pq and sqlite.
var duplicateKeyRegex = regexp.MustCompile(`duplicate key value violates unique constraint|UNIQUE constraint failed`)

func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	return duplicateKeyRegex.MatchString(err.Error())
}
