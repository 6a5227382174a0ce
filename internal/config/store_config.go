package config

import (
	"encoding/hex"
	"fmt"
)

type StoreConfig interface {
	GetStoreDriver() string
	GetDatabaseURL() string
	GetSQLitePath() string
	GetTokenEncryptionKey() ([]byte, error)
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"
)

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetStoreDriver() string {
	return GetEnv("STORE_DRIVER", StoreDriverSQLite)
}

// GetDatabaseURL is the Postgres (Supabase) connection string.
func (Store) GetDatabaseURL() string {
	return GetEnv("DATABASE_URL", "")
}

func (Store) GetSQLitePath() string {
	return GetEnv("SQLITE_PATH", "./data/credentials.db")
}

// GetTokenEncryptionKey returns the 32-byte key used to seal token columns at rest,
// or nil when TOKEN_ENCRYPTION_KEY is unset (tokens stored in plaintext).
func (Store) GetTokenEncryptionKey() ([]byte, error) {
	raw := GetEnv("TOKEN_ENCRYPTION_KEY", "")
	if raw == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("TOKEN_ENCRYPTION_KEY is not hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("TOKEN_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}
