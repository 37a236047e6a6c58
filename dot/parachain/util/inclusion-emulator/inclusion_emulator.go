// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package inclusionemulator emulates the relay chain's inclusion rules for
// prospective parachain blocks. The `Fragment` type wraps a candidate together
// with the modifications it makes to the parachain's constraints, so that
// chains of not yet included candidates can be validated against the
// constraints derived from the relay chain state.
package inclusionemulator

import (
	"maps"
	"slices"

	"github.com/ethereum/go-ethereum/common/math"

	parachaintypes "github.com/ChainSafe/prospective-parachains/dot/parachain/types"
	"github.com/ChainSafe/prospective-parachains/lib/common"
)

// ProspectiveCandidate includes key information that represents a candidate
// without pinning it to a particular session. For example, commitments are
// represented here, but the erasure-root is not. This means that prospective
// candidates are not correlated to any session in particular.
type ProspectiveCandidate struct {
	Commitments             parachaintypes.CandidateCommitments
	CollatorID              parachaintypes.CollatorID
	CollatorSignature       parachaintypes.CollatorSignature
	PersistedValidationData parachaintypes.PersistedValidationData
	PoVHash                 common.Hash
	ValidationCodeHash      parachaintypes.ValidationCodeHash
}

// RelayChainBlockInfo contains minimum information about a relay-chain block.
type RelayChainBlockInfo struct {
	Hash        common.Hash
	StorageRoot common.Hash
	Number      uint
}

// OutboundHrmpChannelModification represents modifications to outbound HRMP channels.
type OutboundHrmpChannelModification struct {
	BytesSubmitted    uint32
	MessagesSubmitted uint32
}

// HrmpWatermarkUpdate represents an update to the HRMP watermark.
type HrmpWatermarkUpdate struct {
	Type  HrmpWatermarkUpdateType
	Block uint
}

// HrmpWatermarkUpdateType defines the type of HrmpWatermarkUpdate.
type HrmpWatermarkUpdateType int

const (
	// Head indicates an update to the head of the relay chain.
	Head HrmpWatermarkUpdateType = iota
	// Trunk indicates an update to a block below the head of the relay chain.
	Trunk
)

// Watermark returns the block number of the HRMP watermark update.
func (h HrmpWatermarkUpdate) Watermark() uint {
	return h.Block
}

// ConstraintModifications represents modifications to constraints
// as a result of prospective candidates.
type ConstraintModifications struct {
	// The required parent head to build upon.
	RequiredParent *parachaintypes.HeadData
	// The new HRMP watermark.
	HrmpWatermark *HrmpWatermarkUpdate
	// Outbound HRMP channel modifications.
	OutboundHrmp map[parachaintypes.ParaID]OutboundHrmpChannelModification
	// The amount of UMP messages sent.
	UmpMessagesSent uint32
	// The amount of UMP bytes sent.
	UmpBytesSent uint32
	// The amount of DMP messages processed.
	DmpMessagesProcessed uint32
	// Whether a pending code upgrade has been applied.
	CodeUpgradeApplied bool
}

// NewConstraintModificationsIdentity returns the 'identity' modifications: these
// can be applied to any constraints and yield the exact same result.
func NewConstraintModificationsIdentity() *ConstraintModifications {
	return &ConstraintModifications{
		OutboundHrmp: make(map[parachaintypes.ParaID]OutboundHrmpChannelModification),
	}
}

// Clone returns a deep copy of the constraint modifications.
func (cm *ConstraintModifications) Clone() *ConstraintModifications {
	return &ConstraintModifications{
		RequiredParent:       cm.RequiredParent,
		HrmpWatermark:        cm.HrmpWatermark,
		OutboundHrmp:         maps.Clone(cm.OutboundHrmp),
		UmpMessagesSent:      cm.UmpMessagesSent,
		UmpBytesSent:         cm.UmpBytesSent,
		DmpMessagesProcessed: cm.DmpMessagesProcessed,
		CodeUpgradeApplied:   cm.CodeUpgradeApplied,
	}
}

// Stack stacks other modifications on top of these. This does no sanity-checking, so if
// `other` is garbage relative to `cm`, then the new value will be garbage as well.
// This is an addition which is not commutative.
func (cm *ConstraintModifications) Stack(other *ConstraintModifications) {
	if other.RequiredParent != nil {
		cm.RequiredParent = other.RequiredParent
	}

	if other.HrmpWatermark != nil {
		cm.HrmpWatermark = other.HrmpWatermark
	}

	for id, mods := range other.OutboundHrmp {
		record := cm.OutboundHrmp[id]
		record.BytesSubmitted += mods.BytesSubmitted
		record.MessagesSubmitted += mods.MessagesSubmitted
		cm.OutboundHrmp[id] = record
	}

	cm.UmpMessagesSent += other.UmpMessagesSent
	cm.UmpBytesSent += other.UmpBytesSent
	cm.DmpMessagesProcessed += other.DmpMessagesProcessed
	cm.CodeUpgradeApplied = cm.CodeUpgradeApplied || other.CodeUpgradeApplied
}

// CheckModifications checks whether the modifications are valid under
// the given constraints without applying them.
func CheckModifications(c *parachaintypes.Constraints, modifications *ConstraintModifications) ModificationError {
	if modifications.HrmpWatermark != nil && modifications.HrmpWatermark.Type == Trunk {
		if !slices.Contains(c.HrmpInbound.ValidWatermarks, modifications.HrmpWatermark.Watermark()) {
			return &ErrDisallowedHrmpWatermark{BlockNumber: modifications.HrmpWatermark.Watermark()}
		}
	}

	for id, outboundHrmpMod := range modifications.OutboundHrmp {
		outbound, ok := c.HrmpChannelsOut[id]
		if !ok {
			return &ErrNoSuchHrmpChannel{ParaID: id}
		}

		_, overflow := math.SafeSub(uint64(outbound.BytesRemaining), uint64(outboundHrmpMod.BytesSubmitted))
		if overflow {
			return &ErrHrmpBytesOverflow{
				ParaID:         id,
				BytesRemaining: outbound.BytesRemaining,
				BytesSubmitted: outboundHrmpMod.BytesSubmitted,
			}
		}

		_, overflow = math.SafeSub(uint64(outbound.MessagesRemaining), uint64(outboundHrmpMod.MessagesSubmitted))
		if overflow {
			return &ErrHrmpMessagesOverflow{
				ParaID:            id,
				MessagesRemaining: outbound.MessagesRemaining,
				MessagesSubmitted: outboundHrmpMod.MessagesSubmitted,
			}
		}
	}

	_, overflow := math.SafeSub(uint64(c.UmpRemaining), uint64(modifications.UmpMessagesSent))
	if overflow {
		return &ErrUmpMessagesOverflow{
			MessagesRemaining: c.UmpRemaining,
			MessagesSubmitted: modifications.UmpMessagesSent,
		}
	}

	_, overflow = math.SafeSub(uint64(c.UmpRemainingBytes), uint64(modifications.UmpBytesSent))
	if overflow {
		return &ErrUmpBytesOverflow{
			BytesRemaining: c.UmpRemainingBytes,
			BytesSubmitted: modifications.UmpBytesSent,
		}
	}

	_, overflow = math.SafeSub(uint64(len(c.DmpRemainingMessages)), uint64(modifications.DmpMessagesProcessed))
	if overflow {
		return &ErrDmpMessagesUnderflow{
			MessagesRemaining: uint32(len(c.DmpRemainingMessages)),
			MessagesProcessed: modifications.DmpMessagesProcessed,
		}
	}

	if c.FutureValidationCode == nil && modifications.CodeUpgradeApplied {
		return &ErrAppliedNonexistentCodeUpgrade{}
	}

	return nil
}

// ApplyModifications applies the modifications to the given constraints and
// returns the new constraints. Fails if the modifications are not valid.
func ApplyModifications(c *parachaintypes.Constraints, modifications *ConstraintModifications) (
	*parachaintypes.Constraints, error) {
	newConstraints := c.Clone()

	if modifications.RequiredParent != nil {
		newConstraints.RequiredParent = *modifications.RequiredParent
	}

	if modifications.HrmpWatermark != nil {
		pos, found := slices.BinarySearch(
			newConstraints.HrmpInbound.ValidWatermarks,
			modifications.HrmpWatermark.Watermark())

		if found {
			// Exact match, so this is OK in all cases.
			newConstraints.HrmpInbound.ValidWatermarks = newConstraints.HrmpInbound.ValidWatermarks[pos+1:]
		} else {
			switch modifications.HrmpWatermark.Type {
			case Head:
				// Updates to Head are always OK.
				newConstraints.HrmpInbound.ValidWatermarks = newConstraints.HrmpInbound.ValidWatermarks[pos:]
			case Trunk:
				// Trunk update landing on disallowed watermark is not OK.
				return nil, &ErrDisallowedHrmpWatermark{BlockNumber: modifications.HrmpWatermark.Block}
			}
		}
	}

	for id, outboundHrmpMod := range modifications.OutboundHrmp {
		outbound, ok := newConstraints.HrmpChannelsOut[id]
		if !ok {
			return nil, &ErrNoSuchHrmpChannel{ParaID: id}
		}

		if outboundHrmpMod.BytesSubmitted > outbound.BytesRemaining {
			return nil, &ErrHrmpBytesOverflow{
				ParaID:         id,
				BytesRemaining: outbound.BytesRemaining,
				BytesSubmitted: outboundHrmpMod.BytesSubmitted,
			}
		}

		if outboundHrmpMod.MessagesSubmitted > outbound.MessagesRemaining {
			return nil, &ErrHrmpMessagesOverflow{
				ParaID:            id,
				MessagesRemaining: outbound.MessagesRemaining,
				MessagesSubmitted: outboundHrmpMod.MessagesSubmitted,
			}
		}

		outbound.BytesRemaining -= outboundHrmpMod.BytesSubmitted
		outbound.MessagesRemaining -= outboundHrmpMod.MessagesSubmitted
		newConstraints.HrmpChannelsOut[id] = outbound
	}

	if modifications.UmpMessagesSent > newConstraints.UmpRemaining {
		return nil, &ErrUmpMessagesOverflow{
			MessagesRemaining: newConstraints.UmpRemaining,
			MessagesSubmitted: modifications.UmpMessagesSent,
		}
	}
	newConstraints.UmpRemaining -= modifications.UmpMessagesSent

	if modifications.UmpBytesSent > newConstraints.UmpRemainingBytes {
		return nil, &ErrUmpBytesOverflow{
			BytesRemaining: newConstraints.UmpRemainingBytes,
			BytesSubmitted: modifications.UmpBytesSent,
		}
	}
	newConstraints.UmpRemainingBytes -= modifications.UmpBytesSent

	if modifications.DmpMessagesProcessed > uint32(len(newConstraints.DmpRemainingMessages)) {
		return nil, &ErrDmpMessagesUnderflow{
			MessagesRemaining: uint32(len(newConstraints.DmpRemainingMessages)),
			MessagesProcessed: modifications.DmpMessagesProcessed,
		}
	}
	newConstraints.DmpRemainingMessages = newConstraints.DmpRemainingMessages[modifications.DmpMessagesProcessed:]

	if modifications.CodeUpgradeApplied {
		if newConstraints.FutureValidationCode == nil {
			return nil, &ErrAppliedNonexistentCodeUpgrade{}
		}

		newConstraints.ValidationCodeHash = newConstraints.FutureValidationCode.ValidationCodeHash
		newConstraints.FutureValidationCode = nil
	}

	return newConstraints, nil
}

// Fragment represents another prospective parachain block. This is a type
// which guarantees that the candidate is valid under the operating constraints.
type Fragment struct {
	relayParent          RelayChainBlockInfo
	operatingConstraints *parachaintypes.Constraints
	candidate            *ProspectiveCandidate
	modifications        *ConstraintModifications
}

// RelayParent returns the relay parent block info of the fragment.
func (f *Fragment) RelayParent() RelayChainBlockInfo {
	return f.relayParent
}

// Candidate returns the prospective candidate of the fragment.
func (f *Fragment) Candidate() *ProspectiveCandidate {
	return f.candidate
}

// ConstraintModifications returns the modifications the fragment
// makes to the operating constraints.
func (f *Fragment) ConstraintModifications() *ConstraintModifications {
	return f.modifications
}

// NewFragment creates a new Fragment. This fails if the fragment isn't in line
// with the operating constraints. That is, either its inputs or outputs fail
// checks against the constraints.
// This does not check that the collator signature is valid or whether the PoV
// is small enough.
func NewFragment(
	relayParent RelayChainBlockInfo,
	operatingConstraints *parachaintypes.Constraints,
	candidate *ProspectiveCandidate,
) (*Fragment, error) {
	modifications, err := checkAgainstConstraints(
		relayParent,
		operatingConstraints,
		candidate.Commitments,
		candidate.ValidationCodeHash,
		candidate.PersistedValidationData,
	)
	if err != nil {
		return nil, err
	}

	return &Fragment{
		relayParent:          relayParent,
		operatingConstraints: operatingConstraints,
		candidate:            candidate,
		modifications:        modifications,
	}, nil
}

func checkAgainstConstraints(
	relayParent RelayChainBlockInfo,
	operatingConstraints *parachaintypes.Constraints,
	commitments parachaintypes.CandidateCommitments,
	validationCodeHash parachaintypes.ValidationCodeHash,
	persistedValidationData parachaintypes.PersistedValidationData,
) (*ConstraintModifications, FragmentValidityError) {
	umpMessagesSent := len(commitments.UpwardMessages)
	umpBytesSent := 0
	for _, message := range commitments.UpwardMessages {
		umpBytesSent += len(message)
	}

	hrmpWatermark := HrmpWatermarkUpdate{
		Type:  Trunk,
		Block: uint(commitments.HrmpWatermark),
	}
	if uint(commitments.HrmpWatermark) == relayParent.Number {
		hrmpWatermark.Type = Head
	}

	outboundHrmp := make(map[parachaintypes.ParaID]OutboundHrmpChannelModification)
	var lastRecipient *parachaintypes.ParaID

	for i, message := range commitments.HorizontalMessages {
		recipient := parachaintypes.ParaID(message.Recipient)
		if lastRecipient != nil && *lastRecipient >= recipient {
			return nil, &ErrHrmpMessagesDescendingOrDuplicate{Index: uint(i)}
		}

		lastRecipient = &recipient
		record := outboundHrmp[recipient]
		record.BytesSubmitted += uint32(len(message.Data))
		record.MessagesSubmitted++
		outboundHrmp[recipient] = record
	}

	codeUpgradeApplied := false
	if operatingConstraints.FutureValidationCode != nil {
		codeUpgradeApplied = relayParent.Number >= operatingConstraints.FutureValidationCode.BlockNumber
	}

	modifications := &ConstraintModifications{
		RequiredParent:       &commitments.HeadData,
		HrmpWatermark:        &hrmpWatermark,
		OutboundHrmp:         outboundHrmp,
		UmpMessagesSent:      uint32(umpMessagesSent),
		UmpBytesSent:         uint32(umpBytesSent),
		DmpMessagesProcessed: commitments.ProcessedDownwardMessages,
		CodeUpgradeApplied:   codeUpgradeApplied,
	}

	err := validateAgainstConstraints(
		operatingConstraints,
		relayParent,
		commitments,
		persistedValidationData,
		validationCodeHash,
		modifications,
	)
	if err != nil {
		return nil, err
	}

	return modifications, nil
}

func validateAgainstConstraints(
	constraints *parachaintypes.Constraints,
	relayParent RelayChainBlockInfo,
	commitments parachaintypes.CandidateCommitments,
	persistedValidationData parachaintypes.PersistedValidationData,
	validationCodeHash parachaintypes.ValidationCodeHash,
	modifications *ConstraintModifications,
) FragmentValidityError {
	expectedPVD := parachaintypes.PersistedValidationData{
		ParentHead:             constraints.RequiredParent,
		RelayParentNumber:      uint32(relayParent.Number),
		RelayParentStorageRoot: relayParent.StorageRoot,
		MaxPovSize:             constraints.MaxPoVSize,
	}

	if !expectedPVD.Equal(persistedValidationData) {
		return &ErrPersistedValidationDataMismatch{
			Expected: expectedPVD,
			Got:      persistedValidationData,
		}
	}

	if constraints.ValidationCodeHash != validationCodeHash {
		return &ErrValidationCodeMismatch{
			Expected: constraints.ValidationCodeHash,
			Got:      validationCodeHash,
		}
	}

	if relayParent.Number < constraints.MinRelayParentNumber {
		return &ErrRelayParentTooOld{
			MinAllowed: constraints.MinRelayParentNumber,
			Current:    relayParent.Number,
		}
	}

	if commitments.NewValidationCode != nil {
		if _, ok := constraints.UpgradeRestriction.(*parachaintypes.Present); ok {
			return &ErrCodeUpgradeRestricted{}
		}
	}

	announcedCodeSize := 0
	if commitments.NewValidationCode != nil {
		announcedCodeSize = len(*commitments.NewValidationCode)
	}

	if uint32(announcedCodeSize) > constraints.MaxCodeSize {
		return &ErrCodeSizeTooLarge{
			MaxAllowed: constraints.MaxCodeSize,
			NewSize:    uint32(announcedCodeSize),
		}
	}

	if modifications.DmpMessagesProcessed == 0 {
		if len(constraints.DmpRemainingMessages) > 0 && constraints.DmpRemainingMessages[0] <= relayParent.Number {
			return &ErrDmpAdvancementRule{}
		}
	}

	if len(commitments.HorizontalMessages) > int(constraints.MaxHrmpNumPerCandidate) {
		return &ErrHrmpMessagesPerCandidateOverflow{
			MessagesAllowed:   constraints.MaxHrmpNumPerCandidate,
			MessagesSubmitted: uint32(len(commitments.HorizontalMessages)),
		}
	}

	if modifications.UmpMessagesSent > constraints.MaxUmpNumPerCandidate {
		return &ErrUmpMessagesPerCandidateOverflow{
			MessagesAllowed:   constraints.MaxUmpNumPerCandidate,
			MessagesSubmitted: modifications.UmpMessagesSent,
		}
	}

	if err := CheckModifications(constraints, modifications); err != nil {
		return &ErrOutputsInvalid{ModificationError: err}
	}

	return nil
}
