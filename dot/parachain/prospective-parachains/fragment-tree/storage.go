// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package fragmenttree

import (
	"bytes"
	"fmt"
	"iter"
	"sort"

	parachaintypes "github.com/ChainSafe/prospective-parachains/dot/parachain/types"
	inclusionemulator "github.com/ChainSafe/prospective-parachains/dot/parachain/util/inclusion-emulator"
	"github.com/ChainSafe/prospective-parachains/lib/common"
)

// CandidateState is the state of a candidate.
// Candidates aren't even considered until they've at least been seconded.
type CandidateState int

const (
	// Introduced means the candidate has been introduced in a spam-protected
	// way but is not necessarily backed.
	Introduced CandidateState = iota
	// Seconded means the candidate has been seconded.
	Seconded
	// Backed means the candidate has been completely backed by the group.
	Backed
)

// CandidateEntry is a candidate in the CandidateStorage along with the
// information needed to index and validate it.
type CandidateEntry struct {
	candidateHash      parachaintypes.CandidateHash
	relayParent        common.Hash
	parentHeadDataHash common.Hash
	outputHeadDataHash common.Hash
	candidate          *inclusionemulator.ProspectiveCandidate
	state              CandidateState
}

// Hash returns the candidate hash of the entry.
func (c *CandidateEntry) Hash() parachaintypes.CandidateHash {
	return c.candidateHash
}

// CandidateStorage stores candidates and information about them such as their
// relay-parents and their backing states. This does not assume any restriction
// on whether or not the candidates form a chain.
type CandidateStorage struct {
	// index from head data hash to candidate hashes with that head data as a parent
	byParentHead map[common.Hash]map[parachaintypes.CandidateHash]struct{}
	// index from head data hash to candidate hashes outputting that head data
	byOutputHead map[common.Hash]map[parachaintypes.CandidateHash]struct{}
	// index from candidate hash to candidate entry
	byCandidateHash map[parachaintypes.CandidateHash]*CandidateEntry
}

// NewCandidateStorage creates an empty CandidateStorage.
func NewCandidateStorage() *CandidateStorage {
	return &CandidateStorage{
		byParentHead:    make(map[common.Hash]map[parachaintypes.CandidateHash]struct{}),
		byOutputHead:    make(map[common.Hash]map[parachaintypes.CandidateHash]struct{}),
		byCandidateHash: make(map[parachaintypes.CandidateHash]*CandidateEntry),
	}
}

// AddCandidate introduces a new candidate in the given backing state.
func (c *CandidateStorage) AddCandidate(
	candidate parachaintypes.CommittedCandidateReceipt,
	persistedValidationData parachaintypes.PersistedValidationData,
	state CandidateState,
) (parachaintypes.CandidateHash, error) {
	hash, err := candidate.Hash()
	if err != nil {
		return parachaintypes.CandidateHash{}, fmt.Errorf("hashing candidate receipt: %w", err)
	}
	candidateHash := parachaintypes.CandidateHash{Value: hash}

	if _, ok := c.byCandidateHash[candidateHash]; ok {
		return parachaintypes.CandidateHash{}, fmt.Errorf("%w: %s", ErrCandidateAlreadyKnown, candidateHash)
	}

	pvdHash, err := persistedValidationData.Hash()
	if err != nil {
		return parachaintypes.CandidateHash{}, fmt.Errorf("hashing persisted validation data: %w", err)
	}

	if pvdHash != candidate.Descriptor.PersistedValidationDataHash {
		return parachaintypes.CandidateHash{}, ErrPersistedValidationDataMismatch
	}

	parentHeadDataHash, err := persistedValidationData.ParentHead.Hash()
	if err != nil {
		return parachaintypes.CandidateHash{}, fmt.Errorf("hashing parent head data: %w", err)
	}

	outputHeadDataHash, err := candidate.Commitments.HeadData.Hash()
	if err != nil {
		return parachaintypes.CandidateHash{}, fmt.Errorf("hashing output head data: %w", err)
	}

	entry := &CandidateEntry{
		candidateHash:      candidateHash,
		relayParent:        candidate.Descriptor.RelayParent,
		parentHeadDataHash: parentHeadDataHash,
		outputHeadDataHash: outputHeadDataHash,
		state:              state,
		candidate: &inclusionemulator.ProspectiveCandidate{
			Commitments:             candidate.Commitments,
			CollatorID:              candidate.Descriptor.Collator,
			CollatorSignature:       candidate.Descriptor.Signature,
			PersistedValidationData: persistedValidationData,
			PoVHash:                 candidate.Descriptor.PovHash,
			ValidationCodeHash:      candidate.Descriptor.ValidationCodeHash,
		},
	}

	setOfCandidates := c.byParentHead[parentHeadDataHash]
	if setOfCandidates == nil {
		setOfCandidates = make(map[parachaintypes.CandidateHash]struct{})
	}
	setOfCandidates[candidateHash] = struct{}{}
	c.byParentHead[parentHeadDataHash] = setOfCandidates

	setOfCandidates = c.byOutputHead[outputHeadDataHash]
	if setOfCandidates == nil {
		setOfCandidates = make(map[parachaintypes.CandidateHash]struct{})
	}
	setOfCandidates[candidateHash] = struct{}{}
	c.byOutputHead[outputHeadDataHash] = setOfCandidates

	c.byCandidateHash[candidateHash] = entry

	return candidateHash, nil
}

// RemoveCandidate removes a candidate from the storage and cleans up
// the secondary indexes.
func (c *CandidateStorage) RemoveCandidate(candidateHash parachaintypes.CandidateHash) {
	entry, ok := c.byCandidateHash[candidateHash]
	if !ok {
		return
	}

	delete(c.byCandidateHash, candidateHash)

	if setOfCandidates, ok := c.byParentHead[entry.parentHeadDataHash]; ok {
		delete(setOfCandidates, candidateHash)
		if len(setOfCandidates) == 0 {
			delete(c.byParentHead, entry.parentHeadDataHash)
		}
	}

	if setOfCandidates, ok := c.byOutputHead[entry.outputHeadDataHash]; ok {
		delete(setOfCandidates, candidateHash)
		if len(setOfCandidates) == 0 {
			delete(c.byOutputHead, entry.outputHeadDataHash)
		}
	}
}

// MarkSeconded notes that an existing candidate has been seconded.
// A backed candidate is never downgraded.
func (c *CandidateStorage) MarkSeconded(candidateHash parachaintypes.CandidateHash) {
	entry, ok := c.byCandidateHash[candidateHash]
	if !ok {
		return
	}

	if entry.state != Backed {
		entry.state = Seconded
	}
}

// MarkBacked notes that an existing candidate has been backed.
func (c *CandidateStorage) MarkBacked(candidateHash parachaintypes.CandidateHash) {
	entry, ok := c.byCandidateHash[candidateHash]
	if !ok {
		logger.Tracef("candidate %s not found while marking as backed", candidateHash)
		return
	}

	entry.state = Backed
	logger.Tracef("candidate %s marked as backed", candidateHash)
}

// IsBacked returns whether a candidate is recorded as being backed.
func (c *CandidateStorage) IsBacked(candidateHash parachaintypes.CandidateHash) bool {
	entry, ok := c.byCandidateHash[candidateHash]
	return ok && entry.state == Backed
}

// Contains returns whether a candidate is contained within the storage.
func (c *CandidateStorage) Contains(candidateHash parachaintypes.CandidateHash) bool {
	_, ok := c.byCandidateHash[candidateHash]
	return ok
}

// Len returns the number of stored candidates.
func (c *CandidateStorage) Len() int {
	return len(c.byCandidateHash)
}

// Retain keeps only the candidates which pass the predicate and cleans up
// the secondary indexes.
func (c *CandidateStorage) Retain(pred func(parachaintypes.CandidateHash) bool) {
	for candidateHash := range c.byCandidateHash {
		if !pred(candidateHash) {
			delete(c.byCandidateHash, candidateHash)
		}
	}

	for parentHeadHash, candidates := range c.byParentHead {
		for candidateHash := range candidates {
			if !pred(candidateHash) {
				delete(candidates, candidateHash)
			}
		}
		if len(candidates) == 0 {
			delete(c.byParentHead, parentHeadHash)
		}
	}

	for outputHeadHash, candidates := range c.byOutputHead {
		for candidateHash := range candidates {
			if !pred(candidateHash) {
				delete(candidates, candidateHash)
			}
		}
		if len(candidates) == 0 {
			delete(c.byOutputHead, outputHeadHash)
		}
	}
}

// Candidates returns an iterator over the hashes of the stored candidates,
// in arbitrary order.
func (c *CandidateStorage) Candidates() iter.Seq[parachaintypes.CandidateHash] {
	return func(yield func(parachaintypes.CandidateHash) bool) {
		for candidateHash := range c.byCandidateHash {
			if !yield(candidateHash) {
				return
			}
		}
	}
}

// HeadDataByHash returns the head data corresponding to the given hash, if any
// candidate in the storage produces or builds on it.
func (c *CandidateStorage) HeadDataByHash(hash common.Hash) *parachaintypes.HeadData {
	// first, search for candidates outputting this head data and extract the
	// head data from their commitments if they exist.
	// otherwise, search for candidates building upon this head data and extract
	// the head data from their persisted validation data if they exist.
	if setOfCandidateHashes, ok := c.byOutputHead[hash]; ok {
		for candidateHash := range setOfCandidateHashes {
			if entry, ok := c.byCandidateHash[candidateHash]; ok {
				return &entry.candidate.Commitments.HeadData
			}
		}
	}

	if setOfCandidateHashes, ok := c.byParentHead[hash]; ok {
		for candidateHash := range setOfCandidateHashes {
			if entry, ok := c.byCandidateHash[candidateHash]; ok {
				return &entry.candidate.PersistedValidationData.ParentHead
			}
		}
	}

	return nil
}

// RelayParentByCandidateHash returns the relay parent of a candidate, if present.
func (c *CandidateStorage) RelayParentByCandidateHash(
	candidateHash parachaintypes.CandidateHash) (common.Hash, bool) {
	entry, ok := c.byCandidateHash[candidateHash]
	if !ok {
		return common.EmptyHash, false
	}
	return entry.relayParent, true
}

func (c *CandidateStorage) get(candidateHash parachaintypes.CandidateHash) *CandidateEntry {
	return c.byCandidateHash[candidateHash]
}

// iterParaChildren yields the stored candidates which build on the given
// parent head data hash, ordered by candidate hash so that tree population
// is deterministic.
func (c *CandidateStorage) iterParaChildren(parentHeadHash common.Hash) iter.Seq[*CandidateEntry] {
	return func(yield func(*CandidateEntry) bool) {
		setOfCandidateHashes, ok := c.byParentHead[parentHeadHash]
		if !ok {
			return
		}

		hashes := make([]parachaintypes.CandidateHash, 0, len(setOfCandidateHashes))
		for candidateHash := range setOfCandidateHashes {
			hashes = append(hashes, candidateHash)
		}
		sort.Slice(hashes, func(i, j int) bool {
			return bytes.Compare(hashes[i].Value.ToBytes(), hashes[j].Value.ToBytes()) < 0
		})

		for _, candidateHash := range hashes {
			if entry, ok := c.byCandidateHash[candidateHash]; ok {
				if !yield(entry) {
					return
				}
			}
		}
	}
}
