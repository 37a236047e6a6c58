// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package common

import (
	"errors"

	"golang.org/x/crypto/blake2b"
)

var (
	// ErrNoPrefix is returned when a hex string is missing its 0x prefix
	ErrNoPrefix = errors.New("could not byteify non 0x prefixed string")
	// ErrInvalidHashLength is returned when a hex string decodes to a
	// length other than 32 bytes
	ErrInvalidHashLength = errors.New("invalid hash length")
)

// Blake2bHash returns the 256-bit blake2b hash of the input data
func Blake2bHash(in []byte) (Hash, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return Hash{}, err
	}

	_, err = h.Write(in)
	if err != nil {
		return Hash{}, err
	}

	return NewHash(h.Sum(nil)), nil
}

// MustBlake2bHash returns the 256-bit blake2b hash of the input data.
// It panics on hasher instantiation failure, which cannot happen for a
// keyless blake2b instance.
func MustBlake2bHash(in []byte) Hash {
	hash, err := Blake2bHash(in)
	if err != nil {
		panic(err)
	}

	return hash
}
