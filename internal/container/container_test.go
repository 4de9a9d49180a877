package container

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"tribeboard/internal/apperr"
	"tribeboard/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DatabaseType: "sqlite",
		DatabasePath: filepath.Join(t.TempDir(), "tribeboard.db"),
		CloudMode:    config.CloudModeOff,
	}
}

func badPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing", "dir", "tribeboard.db")
}

func TestOpenFallbackChain(t *testing.T) {
	tests := []struct {
		name      string
		configure func(t *testing.T, cfg *config.Config)
		wantMode  Mode
		wantCloud bool
		wantWarns int
	}{
		{
			name:     "local when cloud is off",
			wantMode: ModeLocal,
		},
		{
			name: "cloud with memory record database",
			configure: func(t *testing.T, cfg *config.Config) {
				cfg.CloudMode = config.CloudModeMemory
			},
			wantMode:  ModeCloud,
			wantCloud: true,
		},
		{
			name: "cloud with sql record database",
			configure: func(t *testing.T, cfg *config.Config) {
				cfg.CloudMode = config.CloudModeSQL
				cfg.CloudDatabaseType = "sqlite"
				cfg.CloudDatabaseURL = filepath.Join(t.TempDir(), "cloud.db")
			},
			wantMode:  ModeCloud,
			wantCloud: true,
		},
		{
			name: "local when cloud database is unreachable",
			configure: func(t *testing.T, cfg *config.Config) {
				cfg.CloudMode = config.CloudModeSQL
				cfg.CloudDatabaseType = "sqlite"
				cfg.CloudDatabaseURL = badPath(t)
			},
			wantMode:  ModeLocal,
			wantWarns: 1,
		},
		{
			name: "memory when local store fails",
			configure: func(t *testing.T, cfg *config.Config) {
				cfg.DatabasePath = badPath(t)
			},
			wantMode:  ModeMemory,
			wantWarns: 1,
		},
		{
			name: "memory when cloud and local fail",
			configure: func(t *testing.T, cfg *config.Config) {
				cfg.CloudMode = config.CloudModeMemory
				cfg.DatabasePath = badPath(t)
			},
			wantMode:  ModeMemory,
			wantWarns: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			if tt.configure != nil {
				tt.configure(t, cfg)
			}
			core, logs := observer.New(zap.WarnLevel)

			c, err := Open(context.Background(), cfg, zap.New(core))
			require.NoError(t, err)
			defer c.Close()

			assert.Equal(t, tt.wantMode, c.Mode)
			assert.Equal(t, tt.wantCloud, c.CloudEnabled())
			assert.Equal(t, tt.wantWarns, logs.Len())

			var count int
			require.NoError(t, c.DB.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM families").Scan(&count))
		})
	}
}

func TestOpenChainAllStagesFail(t *testing.T) {
	failing := func(kind apperr.ModelContainerKind) func(context.Context) (*Container, error) {
		return func(context.Context) (*Container, error) {
			return nil, apperr.NewModelContainerError(kind, errors.New("boom"))
		}
	}
	stages := []stage{
		{mode: ModeCloud, open: failing(apperr.CloudUnavailable)},
		{mode: ModeLocal, open: failing(apperr.LocalStoreFailed)},
		{mode: ModeMemory, open: failing(apperr.InMemoryFailed)},
	}

	core, logs := observer.New(zap.WarnLevel)
	c, err := openChain(context.Background(), stages, zap.New(core))
	require.Error(t, err)
	assert.Nil(t, c)
	assert.Equal(t, 3, logs.Len())

	for _, entry := range logs.All() {
		assert.Contains(t, entry.ContextMap(), "stage")
	}

	var containerErr *apperr.ModelContainerError
	require.ErrorAs(t, err, &containerErr)
	assert.Equal(t, apperr.CloudUnavailable, containerErr.Kind, "errors.As finds the first stage error")
	for _, kind := range []string{"cloud_unavailable", "local_store_failed", "in_memory_failed"} {
		assert.Contains(t, err.Error(), kind)
	}
}

func TestOpenChainStopsAtFirstSuccess(t *testing.T) {
	var calls []Mode
	mk := func(mode Mode, fail bool) stage {
		return stage{mode: mode, open: func(ctx context.Context) (*Container, error) {
			calls = append(calls, mode)
			if fail {
				return nil, errors.New("unavailable")
			}
			return openMemory(ctx)
		}}
	}

	c, err := openChain(context.Background(), []stage{
		mk(ModeCloud, true),
		mk(ModeLocal, false),
		mk(ModeMemory, false),
	}, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, ModeLocal, c.Mode)
	assert.Equal(t, []Mode{ModeCloud, ModeLocal}, calls)
}
