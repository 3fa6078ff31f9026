// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/ordwiz/internal/domain/pricing"
	"github.com/ManuGH/ordwiz/internal/persistence/sqlite"
)

func TestParseModifier(t *testing.T) {
	tests := []struct {
		in      string
		kind    pricing.ModifierKind
		value   string
		qty     int
		wantErr bool
	}{
		{in: "pct:20", kind: pricing.KindPercentage, value: "20", qty: 1},
		{in: "RANGE:35.5", kind: pricing.KindRangePercentage, value: "35.5", qty: 1},
		{in: "fixed:500x3", kind: pricing.KindFixed, value: "500", qty: 3},
		{in: "add:1500", kind: pricing.KindAddition, value: "1500", qty: 1},
		{in: "pct", wantErr: true},
		{in: "bogus:10", wantErr: true},
		{in: "pct:abc", wantErr: true},
		{in: "fixed:500xmany", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := parseModifier(tt.in, 2)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, m.Kind)
			assert.True(t, m.Value.Equal(decimal.RequireFromString(tt.value)), m.Value.String())
			assert.Equal(t, tt.qty, m.EffectiveQuantity())
			assert.Equal(t, 2, m.Sequence)
			assert.True(t, m.Selected)
		})
	}
}

func TestQuoteCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"quote", "--base", "10000", "--qty", "2", "--modifier", "pct:20", "--urgency", "hours_48", "--discount", "10"})
	require.NoError(t, root.Execute())

	var br map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &br), out.String())
	assert.EqualValues(t, 24000, br["subtotalAfterModifiers"])
	assert.EqualValues(t, 32400, br["finalTotalPrice"])
}

func TestQuoteCommand_RejectsBadInput(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"quote", "--base", "10000", "--qty", "0"})
	assert.Error(t, root.Execute())
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "commit:")
}

func TestVerifyCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "orders.sqlite")
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	require.NoError(t, err)
	_, err = sqlite.NewRepository(context.Background(), db)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"verify-db", "--db", dbPath})
	require.NoError(t, root.Execute())
	assert.Equal(t, "ok\n", out.String())

	root = newRootCmd()
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"verify-db", "--db", filepath.Join(t.TempDir(), "missing.sqlite")})
	assert.Error(t, root.Execute())
}
