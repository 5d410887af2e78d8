package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-api/pkg/config"
)

func TestConfigurePool(t *testing.T) {
	raw, _, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "postgres")
	defer db.Close()

	configurePool(db, config.DatabaseConfig{MaxOpenConns: 7, MaxIdleConns: 3, ConnLifetime: time.Minute})
	assert.Equal(t, 7, db.Stats().MaxOpenConnections)
}
