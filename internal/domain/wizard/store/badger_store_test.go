// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBadgerStore_Conformance(t *testing.T) {
	runConformance(t, func(t *testing.T) Store {
		s, err := OpenBadgerStore("")
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestBadgerStore_OnDisk(t *testing.T) {
	s, err := OpenBadgerStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Create(t.Context(), "s1")
	require.NoError(t, err)
	got, err := s.Get(t.Context(), "s1")
	require.NoError(t, err)
	require.Equal(t, "s1", got.ID)
}
