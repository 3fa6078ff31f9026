// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"encoding/json"
	"fmt"
)

// Encode serializes a session for storage.
func Encode(s *Session) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	return b, nil
}

// Decode restores a session written by Encode.
func Decode(b []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

// Clone returns a deep copy of s.
func Clone(s *Session) (*Session, error) {
	if s == nil {
		return nil, nil
	}
	b, err := Encode(s)
	if err != nil {
		return nil, err
	}
	return Decode(b)
}
