package database

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsDSN(t *testing.T) {
	dsn := Options{
		Host:     "db",
		Port:     "3306",
		User:     "app",
		Password: "secret",
		Name:     "ads",
	}.DSN()

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)

	assert.Equal(t, "app", cfg.User)
	assert.Equal(t, "secret", cfg.Passwd)
	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "ads", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.True(t, cfg.ClientFoundRows)
}
