// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package fragmenttree implements a tree of prospective parachain candidates
// on top of a shared candidate storage.
//
// Each node in the tree is a fragment, a candidate checked against the
// constraints derived from the relay chain state at the tree's scope. Paths
// through the tree represent chains of unincluded candidates which could be
// backed one after the other. The tree bounds its depth, so cycles in the
// candidate graph are accepted but unrolled only up to the maximum depth.
package fragmenttree

import (
	"bytes"
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/bits-and-blooms/bitset"
	"github.com/disiqueira/gotree"

	parachaintypes "github.com/ChainSafe/prospective-parachains/dot/parachain/types"
	inclusionemulator "github.com/ChainSafe/prospective-parachains/dot/parachain/util/inclusion-emulator"
	"github.com/ChainSafe/prospective-parachains/internal/log"
	"github.com/ChainSafe/prospective-parachains/lib/common"
)

var logger = log.NewFromGlobal(log.AddContext("pkg", "fragment-tree"))

// Ancestors is a set of candidate hashes laying out a path
// through the tree which was already backed on-chain.
type Ancestors map[parachaintypes.CandidateHash]struct{}

// nodePointer refers to a node in the tree's flat storage.
// Every tree has an implicit root.
type nodePointer int

const rootNodePointer nodePointer = -1

type childEdge struct {
	pointer       nodePointer
	candidateHash parachaintypes.CandidateHash
}

type fragmentNode struct {
	// a pointer to the parent node
	parent                  nodePointer
	fragment                *inclusionemulator.Fragment
	candidateHash           parachaintypes.CandidateHash
	depth                   uint
	cumulativeModifications *inclusionemulator.ConstraintModifications
	children                []childEdge
}

func (f *fragmentNode) relayParent() common.Hash {
	return f.fragment.RelayParent().Hash
}

func (f *fragmentNode) candidateChild(candidateHash parachaintypes.CandidateHash) (nodePointer, bool) {
	for _, child := range f.children {
		if child.candidateHash == candidateHash {
			return child.pointer, true
		}
	}
	return 0, false
}

// HypotheticalCandidate is a candidate which may or may not exist in the
// fragment tree already.
type HypotheticalCandidate interface {
	relayParentHash() common.Hash
	parentHeadDataHash() (common.Hash, error)
}

var (
	_ HypotheticalCandidate = HypotheticalCandidateComplete{}
	_ HypotheticalCandidate = HypotheticalCandidateIncomplete{}
)

// HypotheticalCandidateComplete is a complete candidate, with the full receipt
// and persisted validation data available for checks.
type HypotheticalCandidateComplete struct {
	Receipt                 parachaintypes.CommittedCandidateReceipt
	PersistedValidationData parachaintypes.PersistedValidationData
}

func (h HypotheticalCandidateComplete) relayParentHash() common.Hash {
	return h.Receipt.Descriptor.RelayParent
}

func (h HypotheticalCandidateComplete) parentHeadDataHash() (common.Hash, error) {
	return h.PersistedValidationData.ParentHead.Hash()
}

// HypotheticalCandidateIncomplete is a candidate of which only the relay
// parent and the parent head data hash are known.
type HypotheticalCandidateIncomplete struct {
	RelayParent        common.Hash
	ParentHeadDataHash common.Hash
}

func (h HypotheticalCandidateIncomplete) relayParentHash() common.Hash {
	return h.RelayParent
}

func (h HypotheticalCandidateIncomplete) parentHeadDataHash() (common.Hash, error) {
	return h.ParentHeadDataHash, nil
}

// FragmentTree is a tree of candidates built on some underlying storage of
// candidates and a scope.
//
// All nodes in the tree must be either pending availability or within the
// scope. Within the scope means it's built off of the relay parent or an
// ancestor.
type FragmentTree struct {
	scope *Scope

	// invariant: a contiguous prefix of the nodes storage
	// contains the top-level children.
	nodes []*fragmentNode

	// the candidates stored in this tree, mapped to a bitset indicating
	// the depths where the candidate is stored
	candidates map[parachaintypes.CandidateHash]*bitset.BitSet
}

// NewFragmentTree creates a new FragmentTree with the given scope, populated
// recursively from the storage: candidates building on other candidates are
// picked up.
func NewFragmentTree(scope *Scope, storage *CandidateStorage) *FragmentTree {
	logger.Tracef("instantiating fragment tree relay parent %s para id %d ancestors %d",
		scope.relayParent.Hash, scope.paraID, scope.ancestors.Len())

	tree := &FragmentTree{
		scope:      scope,
		candidates: make(map[parachaintypes.CandidateHash]*bitset.BitSet),
	}

	tree.populateFromBases(storage, []nodePointer{rootNodePointer})

	return tree
}

// Scope returns the scope of the fragment tree.
func (t *FragmentTree) Scope() *Scope {
	return t.scope
}

// Candidates returns an iterator over the hashes of the candidates
// contained in the tree, in arbitrary order.
func (t *FragmentTree) Candidates() iter.Seq[parachaintypes.CandidateHash] {
	return func(yield func(parachaintypes.CandidateHash) bool) {
		for candidateHash := range t.candidates {
			if !yield(candidateHash) {
				return
			}
		}
	}
}

// Candidate returns the depths a candidate occupies in the tree,
// and whether the candidate is in the tree at all.
func (t *FragmentTree) Candidate(candidateHash parachaintypes.CandidateHash) ([]uint, bool) {
	depths, ok := t.candidates[candidateHash]
	if !ok {
		return nil, false
	}
	return bitsetOnes(depths), true
}

// ContainsCandidate returns whether the candidate is present in the tree.
func (t *FragmentTree) ContainsCandidate(candidateHash parachaintypes.CandidateHash) bool {
	_, ok := t.candidates[candidateHash]
	return ok
}

func bitsetOnes(bs *bitset.BitSet) []uint {
	ones := make([]uint, 0, bs.Count())
	for i, ok := bs.NextSet(0); ok; i, ok = bs.NextSet(i + 1) {
		ones = append(ones, i)
	}
	return ones
}

// rootChildren returns the top-level children of the implicit root, which
// occupy a contiguous prefix of the node storage.
func (t *FragmentTree) rootChildren() []childEdge {
	var children []childEdge
	for i, node := range t.nodes {
		if node.parent != rootNodePointer {
			break
		}
		children = append(children, childEdge{
			pointer:       nodePointer(i),
			candidateHash: node.candidateHash,
		})
	}
	return children
}

// insertNode inserts a node and updates child references in a non-root parent.
func (t *FragmentTree) insertNode(node *fragmentNode) {
	pointer := nodePointer(len(t.nodes))
	parentPointer := node.parent
	candidateHash := node.candidateHash

	depths, ok := t.candidates[candidateHash]
	if !ok {
		depths = bitset.New(t.scope.maxDepth + 1)
		t.candidates[candidateHash] = depths
	}
	depths.Set(node.depth)

	if parentPointer != rootNodePointer {
		t.nodes = append(t.nodes, node)
		t.nodes[parentPointer].children = append(t.nodes[parentPointer].children, childEdge{
			pointer:       pointer,
			candidateHash: candidateHash,
		})
		return
	}

	// maintain the invariant of node storage beginning with depth-0
	if len(t.nodes) == 0 || t.nodes[len(t.nodes)-1].parent == rootNodePointer {
		t.nodes = append(t.nodes, node)
		return
	}

	pos := 0
	for _, n := range t.nodes {
		if n.parent != rootNodePointer {
			break
		}
		pos++
	}
	t.nodes = slices.Insert(t.nodes, pos, node)
}

func (t *FragmentTree) nodeCandidateChild(
	pointer nodePointer,
	candidateHash parachaintypes.CandidateHash,
) (nodePointer, bool) {
	if pointer == rootNodePointer {
		for i, node := range t.nodes {
			if node.parent != rootNodePointer {
				break
			}
			if node.candidateHash == candidateHash {
				return nodePointer(i), true
			}
		}
		return 0, false
	}

	if int(pointer) >= len(t.nodes) {
		return 0, false
	}
	return t.nodes[pointer].candidateChild(candidateHash)
}

func (t *FragmentTree) nodeHasCandidateChild(
	pointer nodePointer,
	candidateHash parachaintypes.CandidateHash,
) bool {
	_, ok := t.nodeCandidateChild(pointer, candidateHash)
	return ok
}

// AddAndPopulate adds a candidate and recursively populates from storage.
// Candidates can be added either as children of the root or children
// of other candidates.
func (t *FragmentTree) AddAndPopulate(
	candidateHash parachaintypes.CandidateHash,
	storage *CandidateStorage,
) {
	entry := storage.get(candidateHash)
	if entry == nil {
		return
	}

	candidateParent := entry.candidate.PersistedValidationData.ParentHead

	// select an initial set of bases whose required relay parent
	// matches that of the candidate.
	var bases []nodePointer
	if bytes.Equal(t.scope.baseConstraints.RequiredParent.Data, candidateParent.Data) {
		bases = append(bases, rootNodePointer)
	}

	for i, node := range t.nodes {
		requiredParent := node.cumulativeModifications.RequiredParent
		if requiredParent != nil && bytes.Equal(requiredParent.Data, candidateParent.Data) {
			bases = append(bases, nodePointer(i))
		}
	}

	// population sanity-checks depth, fragment validity and such,
	// then recursively populates.
	t.populateFromBases(storage, bases)
}

// Repopulate clears the tree and populates it again from the given storage,
// keeping the same scope. Useful when candidates have been removed from
// the storage.
func (t *FragmentTree) Repopulate(storage *CandidateStorage) {
	t.nodes = nil
	t.candidates = make(map[parachaintypes.CandidateHash]*bitset.BitSet)
	t.populateFromBases(storage, []nodePointer{rootNodePointer})
}

// parentContext is the position a child candidate would be added under:
// the constraint modifications accumulated on the path from the root, the
// depth of the child and the relay parent of the parent node.
type parentContext struct {
	modifications *inclusionemulator.ConstraintModifications
	childDepth    uint
	earliestRP    inclusionemulator.RelayChainBlockInfo
}

func (t *FragmentTree) populateFromBases(storage *CandidateStorage, initialBases []nodePointer) {
	// populate the tree breadth-first.
	lastSweepStart := -1

	for {
		sweepStart := len(t.nodes)
		if sweepStart == lastSweepStart {
			break
		}

		var parents []nodePointer
		if lastSweepStart == -1 {
			parents = initialBases
		} else {
			parents = make([]nodePointer, 0, len(t.nodes)-lastSweepStart)
			for i := lastSweepStart; i < len(t.nodes); i++ {
				parents = append(parents, nodePointer(i))
			}
		}

		// 1. get parent head and find constraints
		// 2. iterate all candidates building on the right head and viable relay parent
		// 3. add new node
		for _, parentPointer := range parents {
			ctx, ok := t.parentContextForPopulation(parentPointer)
			if !ok {
				continue
			}

			if ctx.childDepth > t.scope.maxDepth {
				continue
			}

			childConstraints, err := inclusionemulator.ApplyModifications(t.scope.baseConstraints, ctx.modifications)
			if err != nil {
				logger.Debugf("failed to apply modifications: %s", err)
				continue
			}

			// add nodes to tree wherever
			// 1. parent hash is correct
			// 2. relay parent does not move backwards
			// 3. all non-pending-availability candidates have relay parent in scope
			// 4. candidate outputs fulfil constraints
			requiredHeadHash, err := childConstraints.RequiredParent.Hash()
			if err != nil {
				logger.Debugf("failed to hash required parent head data: %s", err)
				continue
			}

			for candidate := range storage.iterParaChildren(requiredHeadHash) {
				pending := t.scope.GetPendingAvailability(candidate.candidateHash)

				var relayParent *inclusionemulator.RelayChainBlockInfo
				if pending != nil {
					relayParentInfo := pending.RelayParent
					relayParent = &relayParentInfo
				} else {
					relayParent = t.scope.AncestorByHash(candidate.relayParent)
				}
				if relayParent == nil {
					continue
				}

				// require: pending availability candidates don't move backwards
				// and only those can be out-of-scope.
				//
				// the earliest relay parent can be before the earliest relay parent
				// in the scope when the parent is a pending availability candidate
				// as well, but only other pending candidates can have a relay
				// parent out of scope.
				var minRelayParentNumber uint
				if pending != nil {
					if parentPointer == rootNodePointer {
						minRelayParentNumber = pending.RelayParent.Number
					} else {
						minRelayParentNumber = ctx.earliestRP.Number
					}
				} else {
					minRelayParentNumber = max(ctx.earliestRP.Number, t.scope.EarliestRelayParent().Number)
				}

				if relayParent.Number < minRelayParentNumber {
					continue // relay parent moved backwards
				}

				// don't add candidates where the parent already has it as a child.
				if t.nodeHasCandidateChild(parentPointer, candidate.candidateHash) {
					continue
				}

				constraints := childConstraints
				if pending != nil {
					// overwrite for candidates pending availability as a special case.
					constraints = childConstraints.Clone()
					constraints.MinRelayParentNumber = pending.RelayParent.Number
				}

				fragment, err := inclusionemulator.NewFragment(*relayParent, constraints, candidate.candidate)
				if err != nil {
					logger.Debugf("failed to instantiate fragment for candidate %s relay parent %s: %s",
						candidate.candidateHash, relayParent.Hash, err)
					continue
				}

				cumulativeModifications := ctx.modifications.Clone()
				cumulativeModifications.Stack(fragment.ConstraintModifications())

				t.insertNode(&fragmentNode{
					parent:                  parentPointer,
					fragment:                fragment,
					candidateHash:           candidate.candidateHash,
					depth:                   ctx.childDepth,
					cumulativeModifications: cumulativeModifications,
				})
			}
		}

		lastSweepStart = sweepStart
	}
}

// parentContextForPopulation resolves the parent position for population
// sweeps. The relay parent of pending availability candidates is taken from
// the pending availability record, since only those may be out of scope.
func (t *FragmentTree) parentContextForPopulation(parentPointer nodePointer) (parentContext, bool) {
	if parentPointer == rootNodePointer {
		return parentContext{
			modifications: inclusionemulator.NewConstraintModificationsIdentity(),
			childDepth:    0,
			earliestRP:    t.scope.EarliestRelayParent(),
		}, true
	}

	node := t.nodes[parentPointer]
	parentRP := t.scope.AncestorByHash(node.relayParent())
	if parentRP == nil {
		if pending := t.scope.GetPendingAvailability(node.candidateHash); pending != nil {
			relayParent := pending.RelayParent
			parentRP = &relayParent
		}
	}
	if parentRP == nil {
		// all nodes in the tree are either pending availability or within scope
		logger.Errorf("node for candidate %s neither pending availability nor within scope", node.candidateHash)
		return parentContext{}, false
	}

	return parentContext{
		modifications: node.cumulativeModifications.Clone(),
		childDepth:    node.depth + 1,
		earliestRP:    *parentRP,
	}, true
}

// pathContainsBackedOnlyCandidates returns true if the path from the root to
// the node's parent (inclusive) only contains backed candidates.
func (t *FragmentTree) pathContainsBackedOnlyCandidates(
	parentPointer nodePointer,
	storage *CandidateStorage,
) bool {
	for parentPointer != rootNodePointer {
		node := t.nodes[parentPointer]

		entry := storage.get(node.candidateHash)
		if entry == nil || entry.state != Backed {
			return false
		}

		parentPointer = node.parent
	}

	return true
}

// HypotheticalDepths returns the hypothetical depths where a candidate with
// the given hash and parent head data would be added to the tree, without
// applying other candidates recursively on top of it.
//
// If the candidate is already known, this returns the actual depths where
// this candidate is part of the tree.
//
// Setting backedInPathOnly to true ensures this function only returns such
// membership that every candidate in the path from the root is backed.
func (t *FragmentTree) HypotheticalDepths(
	candidateHash parachaintypes.CandidateHash,
	candidate HypotheticalCandidate,
	storage *CandidateStorage,
	backedInPathOnly bool,
) []uint {
	// if backedInPathOnly, we always have to traverse the tree.
	if !backedInPathOnly {
		// if known.
		if depths, ok := t.candidates[candidateHash]; ok {
			return bitsetOnes(depths)
		}
	}

	// if out of scope.
	candidateRelayParent := t.scope.AncestorByHash(candidate.relayParentHash())
	if candidateRelayParent == nil {
		return nil
	}

	maxDepth := t.scope.maxDepth
	depths := bitset.New(maxDepth + 1)

	// iterate over all nodes where the parent head data matches, the relay
	// parent number is <= candidate's and the depth < max depth.
	pointers := make([]nodePointer, 0, len(t.nodes)+1)
	pointers = append(pointers, rootNodePointer)
	for i := range t.nodes {
		pointers = append(pointers, nodePointer(i))
	}

	for _, parentPointer := range pointers {
		ctx, ok := t.parentContextForHypothetical(parentPointer)
		if !ok {
			continue
		}

		if ctx.childDepth > maxDepth {
			continue
		}

		if ctx.earliestRP.Number > candidateRelayParent.Number {
			continue
		}

		childConstraints, err := inclusionemulator.ApplyModifications(t.scope.baseConstraints, ctx.modifications)
		if err != nil {
			logger.Debugf("failed to apply modifications: %s", err)
			continue
		}

		requiredParentHash, err := childConstraints.RequiredParent.Hash()
		if err != nil {
			logger.Debugf("failed to hash required parent head data: %s", err)
			continue
		}

		parentHeadHash, err := candidate.parentHeadDataHash()
		if err != nil {
			logger.Debugf("failed to hash parent head data: %s", err)
			continue
		}

		if parentHeadHash != requiredParentHash {
			continue
		}

		// we do additional checks for complete candidates.
		if complete, ok := candidate.(HypotheticalCandidateComplete); ok {
			prospectiveCandidate := &inclusionemulator.ProspectiveCandidate{
				Commitments:             complete.Receipt.Commitments,
				CollatorID:              complete.Receipt.Descriptor.Collator,
				CollatorSignature:       complete.Receipt.Descriptor.Signature,
				PersistedValidationData: complete.PersistedValidationData,
				PoVHash:                 complete.Receipt.Descriptor.PovHash,
				ValidationCodeHash:      complete.Receipt.Descriptor.ValidationCodeHash,
			}

			_, err := inclusionemulator.NewFragment(*candidateRelayParent, childConstraints, prospectiveCandidate)
			if err != nil {
				continue
			}
		}

		// check that the path only contains backed candidates, if necessary.
		if !backedInPathOnly || t.pathContainsBackedOnlyCandidates(parentPointer, storage) {
			depths.Set(ctx.childDepth)
		}
	}

	return bitsetOnes(depths)
}

// parentContextForHypothetical resolves the parent position for hypothetical
// membership queries. Unlike population, the relay parent of a pending
// availability parent collapses to the earliest relay parent of the scope.
func (t *FragmentTree) parentContextForHypothetical(parentPointer nodePointer) (parentContext, bool) {
	if parentPointer == rootNodePointer {
		return parentContext{
			modifications: inclusionemulator.NewConstraintModificationsIdentity(),
			childDepth:    0,
			earliestRP:    t.scope.EarliestRelayParent(),
		}, true
	}

	node := t.nodes[parentPointer]
	parentRP := t.scope.AncestorByHash(node.relayParent())
	if parentRP == nil {
		if pending := t.scope.GetPendingAvailability(node.candidateHash); pending != nil {
			earliest := t.scope.EarliestRelayParent()
			parentRP = &earliest
		}
	}
	if parentRP == nil {
		logger.Errorf("node for candidate %s neither pending availability nor within scope", node.candidateHash)
		return parentContext{}, false
	}

	return parentContext{
		modifications: node.cumulativeModifications.Clone(),
		childDepth:    node.depth + 1,
		earliestRP:    *parentRP,
	}, true
}

// FindBackableChain selects count candidates after the given ancestors which
// pass the predicate and have not already been backed on chain.
//
// Does an exhaustive search into the tree after traversing the ancestors path.
// If the ancestors draw out a path that can be traversed in multiple ways, no
// candidates will be returned. If the ancestors do not draw out a full path
// (the path contains holes), candidates will be suggested that may fill these
// holes. If the ancestors don't draw out a valid path, no candidates will be
// returned. If there are multiple possibilities of the same size, this will
// select the first one. If there is no chain of size count that matches the
// criteria, this will return the largest chain it could find with the
// criteria. If there are no candidates meeting those criteria, returns an
// empty slice.
//
// Cycles are accepted, however this code expects that the runtime will
// deduplicate identical candidates when occupying the cores (when proposing
// to back A->B->A, only A will be backed on chain).
func (t *FragmentTree) FindBackableChain(
	ancestors Ancestors,
	count uint32,
	pred func(parachaintypes.CandidateHash) bool,
) []parachaintypes.CandidateHash {
	if count == 0 {
		return nil
	}

	// order the ancestors in a viable path first. The returned node is the
	// one from which we can start finding new backable candidates.
	// the ancestors set is consumed along the way, so work on a copy.
	baseNode, ok := t.findAncestorPath(maps.Clone(ancestors))
	if !ok {
		return nil
	}

	accumulator := make([]parachaintypes.CandidateHash, 0, count)
	return t.findBackableChainInner(baseNode, count, count, pred, accumulator)
}

// findBackableChainInner tries to find a candidate chain starting from
// baseNode of length expectedCount. If not possible, returns the longest one
// it could find.
//
// Does a depth-first search, since we're optimistic that there won't be more
// than one such chain (parachains shouldn't usually have forks), so in the
// usual case this concludes in O(expectedCount). Cycles are accepted, but
// this doesn't allow for infinite execution time, because the maximum depth
// we'll reach is expectedCount.
func (t *FragmentTree) findBackableChainInner(
	baseNode nodePointer,
	expectedCount, remainingCount uint32,
	pred func(parachaintypes.CandidateHash) bool,
	accumulator []parachaintypes.CandidateHash,
) []parachaintypes.CandidateHash {
	if remainingCount == 0 {
		// the best option is the chain we've accumulated so far.
		return slices.Clone(accumulator)
	}

	var allChildren []childEdge
	if baseNode == rootNodePointer {
		allChildren = t.rootChildren()
	} else {
		allChildren = t.nodes[baseNode].children
	}

	children := make([]childEdge, 0, len(allChildren))
	for _, child := range allChildren {
		if t.scope.GetPendingAvailability(child.candidateHash) != nil {
			continue
		}
		if !pred(child.candidateHash) {
			continue
		}
		children = append(children, child)
	}

	bestResult := slices.Clone(accumulator)
	for _, child := range children {
		accumulator = append(accumulator, child.candidateHash)

		result := t.findBackableChainInner(
			child.pointer,
			expectedCount,
			remainingCount-1,
			pred,
			accumulator,
		)

		accumulator = accumulator[:len(accumulator)-1]

		// short-circuit the search if we've found the right length.
		// otherwise, we'll search for a max.
		if len(result) == int(expectedCount) {
			return result
		} else if len(bestResult) < len(result) {
			bestResult = result
		}
	}

	return bestResult
}

// findAncestorPath orders the ancestors into a viable path from the root to
// the last one, consuming the ancestors set. Returns a pointer to the last
// node in the path.
//
// We assume that the ancestors form a chain (that the availability cores do
// not back parachain forks), false is returned otherwise. If we cannot use
// all ancestors, stop at the first found hole in the chain. This usually
// translates to a timed out candidate.
func (t *FragmentTree) findAncestorPath(ancestors Ancestors) (nodePointer, bool) {
	depth := uint(0)
	lastNode := rootNodePointer

	next := rootNodePointer
	hasNext := true

	for hasNext {
		if depth > t.scope.maxDepth {
			return 0, false
		}

		lastNode = next

		var children []childEdge
		if next == rootNodePointer {
			children = t.rootChildren()
		} else {
			children = t.nodes[next].children
		}

		child, ok := t.findValidChild(ancestors, children)
		if !ok {
			return 0, false
		}

		if child == nil {
			hasNext = false
		} else {
			next = *child
		}

		depth++
	}

	return lastNode, true
}

// findValidChild finds a node among the children which is present in the
// ancestors collection, removing it from the collection. If there are
// multiple such nodes a fork was backed, which we don't accept: the supplied
// ancestors should all form a chain.
func (t *FragmentTree) findValidChild(ancestors Ancestors, children []childEdge) (*nodePointer, bool) {
	var possibleChildren []nodePointer
	for _, child := range children {
		if _, ok := ancestors[child.candidateHash]; !ok {
			continue
		}
		delete(ancestors, child.candidateHash)
		possibleChildren = append(possibleChildren, child.pointer)
	}

	switch len(possibleChildren) {
	case 0:
		return nil, true
	case 1:
		return &possibleChildren[0], true
	default:
		logger.Errorf(
			"found backed candidates with the same parent %s and %s for para id %d, "+
				"tried to find new backable candidates for a parachain fork",
			t.nodes[possibleChildren[0]].candidateHash,
			t.nodes[possibleChildren[1]].candidateHash,
			t.scope.paraID,
		)
		return nil, false
	}
}

// String renders the tree rooted at the implicit root for debugging.
func (t *FragmentTree) String() string {
	root := gotree.New(fmt.Sprintf("root (relay parent %s)", t.scope.relayParent.Hash.Short()))
	for _, child := range t.rootChildren() {
		sub := root.Add(t.nodeString(child.pointer))
		t.createTree(sub, child.pointer)
	}
	return root.Print()
}

func (t *FragmentTree) createTree(tree gotree.Tree, pointer nodePointer) {
	for _, child := range t.nodes[pointer].children {
		sub := tree.Add(t.nodeString(child.pointer))
		t.createTree(sub, child.pointer)
	}
}

func (t *FragmentTree) nodeString(pointer nodePointer) string {
	node := t.nodes[pointer]
	return fmt.Sprintf("{candidate: %s, depth: %d}", node.candidateHash.Value.Short(), node.depth)
}
