// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package fragmenttree

import (
	"errors"
	"fmt"
)

var (
	// ErrCandidateAlreadyKnown is returned when introducing a candidate
	// which is already present in the storage.
	ErrCandidateAlreadyKnown = errors.New("candidate already known")
	// ErrPersistedValidationDataMismatch is returned when a supplied candidate
	// doesn't match the persisted validation data provided alongside it.
	ErrPersistedValidationDataMismatch = errors.New(
		"candidate does not match the persisted validation data provided alongside it")
)

// ErrUnexpectedAncestor indicates that ancestors provided to a scope
// had an unexpected order.
type ErrUnexpectedAncestor struct {
	// The block number that this error occurred at.
	Number uint
	// The previous seen block number, which did not match `Number`.
	Prev uint
}

func (e ErrUnexpectedAncestor) Error() string {
	return fmt.Sprintf("unexpected ancestor %d, expected %d", e.Number, e.Prev)
}
