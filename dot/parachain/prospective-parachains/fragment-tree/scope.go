// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package fragmenttree

import (
	"iter"

	"github.com/tidwall/btree"

	parachaintypes "github.com/ChainSafe/prospective-parachains/dot/parachain/types"
	inclusionemulator "github.com/ChainSafe/prospective-parachains/dot/parachain/util/inclusion-emulator"
	"github.com/ChainSafe/prospective-parachains/lib/common"
)

// PendingAvailability is a candidate on-chain but pending availability,
// for special treatment in the Scope.
type PendingAvailability struct {
	// The candidate hash.
	CandidateHash parachaintypes.CandidateHash
	// The block info of the relay parent.
	RelayParent inclusionemulator.RelayChainBlockInfo
}

// Scope is the scope of a fragment tree.
type Scope struct {
	// the parachain the tree is for
	paraID parachaintypes.ParaID
	// the relay parent we're currently building on top of
	relayParent inclusionemulator.RelayChainBlockInfo
	// the other relay parents candidates are allowed to build upon,
	// mapped by the block number
	ancestors *btree.Map[uint, inclusionemulator.RelayChainBlockInfo]
	// the other relay parents candidates are allowed to build upon,
	// mapped by hash
	ancestorsByHash map[common.Hash]inclusionemulator.RelayChainBlockInfo
	// candidates pending availability at this block
	pendingAvailability []*PendingAvailability
	// the base constraints derived from the latest included candidate
	baseConstraints *parachaintypes.Constraints
	// equal to the configured maximum candidate depth
	maxDepth uint
}

// NewScopeWithAncestors defines a new scope. All arguments are straightforward
// except the ancestors. Ancestors should be in reverse order, starting with the
// parent of the relayParent and proceeding backwards in block number decrements
// of 1. Ancestors not following these conditions are rejected.
//
// This function will only consume ancestors up to the MinRelayParentNumber of
// the baseConstraints.
//
// Only ancestors whose children have the same session id as the relay parent's
// children should be provided. It is allowed to provide zero ancestors.
func NewScopeWithAncestors(
	paraID parachaintypes.ParaID,
	relayParent inclusionemulator.RelayChainBlockInfo,
	baseConstraints *parachaintypes.Constraints,
	pendingAvailability []*PendingAvailability,
	maxDepth uint,
	ancestors iter.Seq[inclusionemulator.RelayChainBlockInfo],
) (*Scope, error) {
	ancestorsMap := btree.NewMap[uint, inclusionemulator.RelayChainBlockInfo](100)
	ancestorsByHash := make(map[common.Hash]inclusionemulator.RelayChainBlockInfo)

	prev := relayParent.Number
	for ancestor := range ancestors {
		if prev == 0 {
			return nil, ErrUnexpectedAncestor{Number: ancestor.Number, Prev: prev}
		}

		if ancestor.Number != prev-1 {
			return nil, ErrUnexpectedAncestor{Number: ancestor.Number, Prev: prev}
		}

		if prev == baseConstraints.MinRelayParentNumber {
			break
		}

		prev = ancestor.Number
		ancestorsByHash[ancestor.Hash] = ancestor
		ancestorsMap.Set(ancestor.Number, ancestor)
	}

	return &Scope{
		paraID:              paraID,
		relayParent:         relayParent,
		ancestors:           ancestorsMap,
		ancestorsByHash:     ancestorsByHash,
		pendingAvailability: pendingAvailability,
		baseConstraints:     baseConstraints,
		maxDepth:            maxDepth,
	}, nil
}

// ParaID returns the parachain id of the scope.
func (s *Scope) ParaID() parachaintypes.ParaID {
	return s.paraID
}

// RelayParent returns the relay parent block info the scope builds on top of.
func (s *Scope) RelayParent() inclusionemulator.RelayChainBlockInfo {
	return s.relayParent
}

// BaseConstraints returns the base constraints of the scope.
func (s *Scope) BaseConstraints() *parachaintypes.Constraints {
	return s.baseConstraints
}

// MaxDepth returns the maximum candidate depth of the scope.
func (s *Scope) MaxDepth() uint {
	return s.maxDepth
}

// EarliestRelayParent returns the earliest relay parent allowed
// in the scope of the fragment tree.
func (s *Scope) EarliestRelayParent() inclusionemulator.RelayChainBlockInfo {
	if iter := s.ancestors.Iter(); iter.First() {
		return iter.Value()
	}
	return s.relayParent
}

// AncestorByHash returns the relay parent or an ancestor of the
// fragment tree by hash.
func (s *Scope) AncestorByHash(hash common.Hash) *inclusionemulator.RelayChainBlockInfo {
	if hash == s.relayParent.Hash {
		relayParent := s.relayParent
		return &relayParent
	}

	if blockInfo, ok := s.ancestorsByHash[hash]; ok {
		return &blockInfo
	}

	return nil
}

// GetPendingAvailability returns the pending availability candidate
// in this scope with the given hash, if any.
func (s *Scope) GetPendingAvailability(candidateHash parachaintypes.CandidateHash) *PendingAvailability {
	for _, pending := range s.pendingAvailability {
		if pending.CandidateHash == candidateHash {
			return pending
		}
	}
	return nil
}
