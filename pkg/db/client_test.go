package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/angelmondragon/calorielens-backend/pkg/config"
	"github.com/angelmondragon/calorielens-backend/pkg/logger"
	"github.com/stretchr/testify/require"
)

type testModel struct {
	ID   int
	Name string
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := config.DBConfig{SQLitePath: filepath.Join(t.TempDir(), "test.db")}
	client, err := New(context.Background(), cfg, Options{
		UseSQLite:         true,
		AutoMigrateModels: []any{&testModel{}},
	}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewAutoMigratesModels(t *testing.T) {
	client := newTestClient(t)
	db := client.DB()

	require.True(t, db.Migrator().HasTable(&testModel{}))
	require.NoError(t, db.Create(&testModel{Name: "first"}).Error)

	var count int64
	require.NoError(t, db.Model(&testModel{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestPing(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.Ping(context.Background()))
}

func TestNewRequiresDSNForPostgres(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{}, Options{}, nil)
	require.ErrorContains(t, err, "DSN is required")
}

func TestNewRequiresSQLitePath(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{}, Options{UseSQLite: true}, nil)
	require.ErrorContains(t, err, "sqlite path is required")
}
