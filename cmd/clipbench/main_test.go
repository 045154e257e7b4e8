package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klejdi94/clipbench/config"
	"github.com/klejdi94/clipbench/results"
)

func TestResolveStore_ConfigSelectsBackend(t *testing.T) {
	opts := storeOptions{kind: "file", dir: ".clipbench"}
	got := resolveStore(opts, config.StoreConfig{Kind: "memory"})
	assert.Equal(t, "memory", got.kind)
}

func TestResolveStore_ConfigCarriesSettings(t *testing.T) {
	opts := storeOptions{kind: "file", dir: ".clipbench"}
	got := resolveStore(opts, config.StoreConfig{
		Kind: "postgres",
		DSN:  "postgres://localhost/clipbench",
	})
	assert.Equal(t, "postgres", got.kind)
	assert.Equal(t, "postgres://localhost/clipbench", got.dsn)
}

func TestResolveStore_ExplicitFlagsWin(t *testing.T) {
	opts := storeOptions{kind: "memory", explicit: true}
	got := resolveStore(opts, config.StoreConfig{Kind: "postgres", DSN: "x"})
	assert.Equal(t, "memory", got.kind)
}

func TestResolveStore_EmptyConfigUsesFlags(t *testing.T) {
	opts := storeOptions{kind: "file", dir: "reports"}
	got := resolveStore(opts, config.StoreConfig{})
	assert.Equal(t, opts, got)
}

func TestResolveStore_ConfigFallsBackToFlagDefaults(t *testing.T) {
	opts := storeOptions{kind: "memory", dir: ".clipbench", dsn: "env-dsn"}
	got := resolveStore(opts, config.StoreConfig{Kind: "file"})
	assert.Equal(t, "file", got.kind)
	assert.Equal(t, ".clipbench", got.dir)
	assert.Equal(t, "env-dsn", got.dsn)
}

func TestOpenStore_FileFromConfig(t *testing.T) {
	opts := resolveStore(
		storeOptions{kind: "memory"},
		config.StoreConfig{Kind: "file", Path: t.TempDir()},
	)
	store, cleanup, err := openStore(context.Background(), opts)
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &results.FileStore{}, store)
}

func TestOpenStore_UnknownKind(t *testing.T) {
	_, _, err := openStore(context.Background(), storeOptions{kind: "dynamo"})
	assert.Error(t, err)
}
