// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package inclusionemulator

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	parachaintypes "github.com/ChainSafe/prospective-parachains/dot/parachain/types"
	"github.com/ChainSafe/prospective-parachains/lib/common"
)

func repeatHash(b byte) common.Hash {
	return common.BytesToHash(bytes.Repeat([]byte{b}, 32))
}

const testChannelParaID = parachaintypes.ParaID(100)

func makeTestConstraints() *parachaintypes.Constraints {
	return &parachaintypes.Constraints{
		MinRelayParentNumber:  5,
		MaxPoVSize:            1_000_000,
		MaxCodeSize:           1_000,
		UmpRemaining:          10,
		UmpRemainingBytes:     1_000,
		MaxUmpNumPerCandidate: 5,
		DmpRemainingMessages:  []uint{},
		HrmpInbound: parachaintypes.InboundHrmpLimitations{
			ValidWatermarks: []uint{6, 8},
		},
		HrmpChannelsOut: map[parachaintypes.ParaID]parachaintypes.OutboundHrmpChannelLimitations{
			0: {
				BytesRemaining:    30,
				MessagesRemaining: 3,
			},
			testChannelParaID: {
				BytesRemaining:    100,
				MessagesRemaining: 10,
			},
		},
		MaxHrmpNumPerCandidate: 2,
		RequiredParent:         parachaintypes.HeadData{Data: []byte{0x0a}},
		ValidationCodeHash:     parachaintypes.ValidationCodeHash(repeatHash(42)),
	}
}

func makeTestFragmentInputs() (RelayChainBlockInfo, *parachaintypes.Constraints, *ProspectiveCandidate) {
	relayParent := RelayChainBlockInfo{
		Number:      6,
		Hash:        repeatHash(10),
		StorageRoot: repeatHash(69),
	}

	constraints := makeTestConstraints()

	candidate := &ProspectiveCandidate{
		Commitments: parachaintypes.CandidateCommitments{
			UpwardMessages:            []parachaintypes.UpwardMessage{},
			HorizontalMessages:        []parachaintypes.OutboundHrmpMessage{},
			HeadData:                  parachaintypes.HeadData{Data: []byte{0x0b}},
			ProcessedDownwardMessages: 0,
			HrmpWatermark:             6,
		},
		PersistedValidationData: parachaintypes.PersistedValidationData{
			ParentHead:             constraints.RequiredParent,
			RelayParentNumber:      uint32(relayParent.Number),
			RelayParentStorageRoot: relayParent.StorageRoot,
			MaxPovSize:             constraints.MaxPoVSize,
		},
		PoVHash:            repeatHash(1),
		ValidationCodeHash: constraints.ValidationCodeHash,
	}

	return relayParent, constraints, candidate
}

func TestConstraintModificationsIdentity(t *testing.T) {
	t.Parallel()

	constraints := makeTestConstraints()
	identity := NewConstraintModificationsIdentity()

	require.NoError(t, CheckModifications(constraints, identity))

	applied, err := ApplyModifications(constraints, identity)
	require.NoError(t, err)
	assert.Equal(t, constraints, applied)
}

func TestConstraintModificationsStack(t *testing.T) {
	t.Parallel()

	modifications := NewConstraintModificationsIdentity()
	newParent := parachaintypes.HeadData{Data: []byte{0x0c}}
	other := &ConstraintModifications{
		RequiredParent: &newParent,
		HrmpWatermark:  &HrmpWatermarkUpdate{Type: Head, Block: 8},
		OutboundHrmp: map[parachaintypes.ParaID]OutboundHrmpChannelModification{
			testChannelParaID: {BytesSubmitted: 10, MessagesSubmitted: 1},
		},
		UmpMessagesSent:      2,
		UmpBytesSent:         20,
		DmpMessagesProcessed: 1,
	}

	modifications.Stack(other)
	modifications.Stack(other)

	assert.Equal(t, &newParent, modifications.RequiredParent)
	assert.Equal(t, &HrmpWatermarkUpdate{Type: Head, Block: 8}, modifications.HrmpWatermark)
	assert.Equal(t,
		OutboundHrmpChannelModification{BytesSubmitted: 20, MessagesSubmitted: 2},
		modifications.OutboundHrmp[testChannelParaID])
	assert.Equal(t, uint32(4), modifications.UmpMessagesSent)
	assert.Equal(t, uint32(40), modifications.UmpBytesSent)
	assert.Equal(t, uint32(2), modifications.DmpMessagesProcessed)
	assert.False(t, modifications.CodeUpgradeApplied)
}

func TestConstraintModificationsClone(t *testing.T) {
	t.Parallel()

	modifications := NewConstraintModificationsIdentity()
	modifications.OutboundHrmp[testChannelParaID] = OutboundHrmpChannelModification{
		BytesSubmitted: 1, MessagesSubmitted: 1,
	}

	cloned := modifications.Clone()
	cloned.OutboundHrmp[testChannelParaID] = OutboundHrmpChannelModification{
		BytesSubmitted: 99, MessagesSubmitted: 99,
	}
	cloned.UmpMessagesSent = 5

	assert.Equal(t,
		OutboundHrmpChannelModification{BytesSubmitted: 1, MessagesSubmitted: 1},
		modifications.OutboundHrmp[testChannelParaID])
	assert.Zero(t, modifications.UmpMessagesSent)
}

func TestCheckModificationsErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		modifications *ConstraintModifications
		expected      ModificationError
	}{
		{
			name: "disallowed_trunk_watermark",
			modifications: &ConstraintModifications{
				HrmpWatermark: &HrmpWatermarkUpdate{Type: Trunk, Block: 7},
			},
			expected: &ErrDisallowedHrmpWatermark{BlockNumber: 7},
		},
		{
			name: "no_such_hrmp_channel",
			modifications: &ConstraintModifications{
				OutboundHrmp: map[parachaintypes.ParaID]OutboundHrmpChannelModification{
					30: {MessagesSubmitted: 1},
				},
			},
			expected: &ErrNoSuchHrmpChannel{ParaID: 30},
		},
		{
			name: "hrmp_bytes_overflow",
			modifications: &ConstraintModifications{
				OutboundHrmp: map[parachaintypes.ParaID]OutboundHrmpChannelModification{
					testChannelParaID: {BytesSubmitted: 101, MessagesSubmitted: 1},
				},
			},
			expected: &ErrHrmpBytesOverflow{
				ParaID:         testChannelParaID,
				BytesRemaining: 100,
				BytesSubmitted: 101,
			},
		},
		{
			name: "hrmp_messages_overflow",
			modifications: &ConstraintModifications{
				OutboundHrmp: map[parachaintypes.ParaID]OutboundHrmpChannelModification{
					testChannelParaID: {BytesSubmitted: 1, MessagesSubmitted: 11},
				},
			},
			expected: &ErrHrmpMessagesOverflow{
				ParaID:            testChannelParaID,
				MessagesRemaining: 10,
				MessagesSubmitted: 11,
			},
		},
		{
			name:          "ump_messages_overflow",
			modifications: &ConstraintModifications{UmpMessagesSent: 11},
			expected: &ErrUmpMessagesOverflow{
				MessagesRemaining: 10,
				MessagesSubmitted: 11,
			},
		},
		{
			name:          "ump_bytes_overflow",
			modifications: &ConstraintModifications{UmpBytesSent: 1001},
			expected: &ErrUmpBytesOverflow{
				BytesRemaining: 1000,
				BytesSubmitted: 1001,
			},
		},
		{
			name:          "dmp_messages_underflow",
			modifications: &ConstraintModifications{DmpMessagesProcessed: 1},
			expected: &ErrDmpMessagesUnderflow{
				MessagesRemaining: 0,
				MessagesProcessed: 1,
			},
		},
		{
			name:          "applied_nonexistent_code_upgrade",
			modifications: &ConstraintModifications{CodeUpgradeApplied: true},
			expected:      &ErrAppliedNonexistentCodeUpgrade{},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			constraints := makeTestConstraints()
			err := CheckModifications(constraints, testCase.modifications)
			assert.Equal(t, testCase.expected, err)

			_, err2 := ApplyModifications(constraints, testCase.modifications)
			assert.Equal(t, testCase.expected, err2)
		})
	}
}

func TestApplyModifications(t *testing.T) {
	t.Parallel()

	newParent := parachaintypes.HeadData{Data: []byte{0x0b}}
	modifications := &ConstraintModifications{
		RequiredParent: &newParent,
		HrmpWatermark:  &HrmpWatermarkUpdate{Type: Trunk, Block: 6},
		OutboundHrmp: map[parachaintypes.ParaID]OutboundHrmpChannelModification{
			testChannelParaID: {BytesSubmitted: 40, MessagesSubmitted: 4},
		},
		UmpMessagesSent: 3,
		UmpBytesSent:    30,
	}

	constraints := makeTestConstraints()
	applied, err := ApplyModifications(constraints, modifications)
	require.NoError(t, err)

	assert.Equal(t, newParent, applied.RequiredParent)
	// the exact watermark match is consumed along with everything below it
	assert.Equal(t, []uint{8}, applied.HrmpInbound.ValidWatermarks)
	assert.Equal(t,
		parachaintypes.OutboundHrmpChannelLimitations{BytesRemaining: 60, MessagesRemaining: 6},
		applied.HrmpChannelsOut[testChannelParaID])
	assert.Equal(t, uint32(7), applied.UmpRemaining)
	assert.Equal(t, uint32(970), applied.UmpRemainingBytes)

	// the original constraints are untouched
	assert.Equal(t, makeTestConstraints(), constraints)
}

func TestApplyModificationsHeadWatermark(t *testing.T) {
	t.Parallel()

	constraints := makeTestConstraints()

	// a head update is fine even when not in the valid watermarks, and
	// drops every watermark below it.
	modifications := &ConstraintModifications{
		HrmpWatermark: &HrmpWatermarkUpdate{Type: Head, Block: 7},
	}
	applied, err := ApplyModifications(constraints, modifications)
	require.NoError(t, err)
	assert.Equal(t, []uint{8}, applied.HrmpInbound.ValidWatermarks)

	modifications = &ConstraintModifications{
		HrmpWatermark: &HrmpWatermarkUpdate{Type: Head, Block: 9},
	}
	applied, err = ApplyModifications(constraints, modifications)
	require.NoError(t, err)
	assert.Empty(t, applied.HrmpInbound.ValidWatermarks)
}

func TestApplyModificationsCodeUpgrade(t *testing.T) {
	t.Parallel()

	futureCodeHash := parachaintypes.ValidationCodeHash(repeatHash(43))

	constraints := makeTestConstraints()
	constraints.FutureValidationCode = &parachaintypes.FutureValidationCode{
		BlockNumber:        7,
		ValidationCodeHash: futureCodeHash,
	}

	modifications := &ConstraintModifications{CodeUpgradeApplied: true}
	applied, err := ApplyModifications(constraints, modifications)
	require.NoError(t, err)

	assert.Equal(t, futureCodeHash, applied.ValidationCodeHash)
	assert.Nil(t, applied.FutureValidationCode)
}

func TestNewFragment(t *testing.T) {
	t.Parallel()

	relayParent, constraints, candidate := makeTestFragmentInputs()

	fragment, err := NewFragment(relayParent, constraints, candidate)
	require.NoError(t, err)

	assert.Equal(t, relayParent, fragment.RelayParent())
	assert.Equal(t, candidate, fragment.Candidate())

	modifications := fragment.ConstraintModifications()
	assert.Equal(t, &candidate.Commitments.HeadData, modifications.RequiredParent)
	// the watermark equals the relay parent number, so it is a head update
	assert.Equal(t, &HrmpWatermarkUpdate{Type: Head, Block: 6}, modifications.HrmpWatermark)
	assert.Zero(t, modifications.UmpMessagesSent)
	assert.Zero(t, modifications.UmpBytesSent)

	require.NoError(t, CheckModifications(constraints, modifications))
}

func TestNewFragmentValidationErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		mutate   func(*RelayChainBlockInfo, *parachaintypes.Constraints, *ProspectiveCandidate)
		expected FragmentValidityError
	}{
		{
			name: "persisted_validation_data_mismatch",
			mutate: func(_ *RelayChainBlockInfo, _ *parachaintypes.Constraints, candidate *ProspectiveCandidate) {
				candidate.PersistedValidationData.MaxPovSize = 0
			},
			expected: &ErrPersistedValidationDataMismatch{},
		},
		{
			name: "validation_code_mismatch",
			mutate: func(_ *RelayChainBlockInfo, _ *parachaintypes.Constraints, candidate *ProspectiveCandidate) {
				candidate.ValidationCodeHash = parachaintypes.ValidationCodeHash(repeatHash(1))
			},
			expected: &ErrValidationCodeMismatch{
				Expected: parachaintypes.ValidationCodeHash(repeatHash(42)),
				Got:      parachaintypes.ValidationCodeHash(repeatHash(1)),
			},
		},
		{
			name: "relay_parent_too_old",
			mutate: func(relayParent *RelayChainBlockInfo, _ *parachaintypes.Constraints, candidate *ProspectiveCandidate) {
				relayParent.Number = 4
				candidate.PersistedValidationData.RelayParentNumber = 4
				candidate.Commitments.HrmpWatermark = 4
			},
			expected: &ErrRelayParentTooOld{MinAllowed: 5, Current: 4},
		},
		{
			name: "code_upgrade_restricted",
			mutate: func(_ *RelayChainBlockInfo, constraints *parachaintypes.Constraints, candidate *ProspectiveCandidate) {
				constraints.UpgradeRestriction = &parachaintypes.Present{}
				newCode := parachaintypes.ValidationCode{1, 2, 3}
				candidate.Commitments.NewValidationCode = &newCode
			},
			expected: &ErrCodeUpgradeRestricted{},
		},
		{
			name: "code_size_too_large",
			mutate: func(_ *RelayChainBlockInfo, _ *parachaintypes.Constraints, candidate *ProspectiveCandidate) {
				newCode := parachaintypes.ValidationCode(bytes.Repeat([]byte{0}, 1001))
				candidate.Commitments.NewValidationCode = &newCode
			},
			expected: &ErrCodeSizeTooLarge{MaxAllowed: 1000, NewSize: 1001},
		},
		{
			name: "dmp_advancement_rule",
			mutate: func(_ *RelayChainBlockInfo, constraints *parachaintypes.Constraints, _ *ProspectiveCandidate) {
				// the queue head was sent at a relay parent at or below ours,
				// so at least one message must be processed.
				constraints.DmpRemainingMessages = []uint{6}
			},
			expected: &ErrDmpAdvancementRule{},
		},
		{
			name: "hrmp_messages_per_candidate_overflow",
			mutate: func(_ *RelayChainBlockInfo, _ *parachaintypes.Constraints, candidate *ProspectiveCandidate) {
				candidate.Commitments.HorizontalMessages = []parachaintypes.OutboundHrmpMessage{
					{Recipient: 0, Data: []byte{1}},
					{Recipient: 1, Data: []byte{2}},
					{Recipient: 2, Data: []byte{3}},
				}
			},
			expected: &ErrHrmpMessagesPerCandidateOverflow{
				MessagesAllowed:   2,
				MessagesSubmitted: 3,
			},
		},
		{
			name: "ump_messages_per_candidate_overflow",
			mutate: func(_ *RelayChainBlockInfo, _ *parachaintypes.Constraints, candidate *ProspectiveCandidate) {
				for i := 0; i < 6; i++ {
					candidate.Commitments.UpwardMessages = append(
						candidate.Commitments.UpwardMessages,
						parachaintypes.UpwardMessage{byte(i)})
				}
			},
			expected: &ErrUmpMessagesPerCandidateOverflow{
				MessagesAllowed:   5,
				MessagesSubmitted: 6,
			},
		},
		{
			name: "hrmp_messages_descending",
			mutate: func(_ *RelayChainBlockInfo, _ *parachaintypes.Constraints, candidate *ProspectiveCandidate) {
				candidate.Commitments.HorizontalMessages = []parachaintypes.OutboundHrmpMessage{
					{Recipient: 1, Data: []byte{1}},
					{Recipient: 0, Data: []byte{2}},
				}
			},
			expected: &ErrHrmpMessagesDescendingOrDuplicate{Index: 1},
		},
		{
			name: "hrmp_messages_duplicate",
			mutate: func(_ *RelayChainBlockInfo, _ *parachaintypes.Constraints, candidate *ProspectiveCandidate) {
				candidate.Commitments.HorizontalMessages = []parachaintypes.OutboundHrmpMessage{
					{Recipient: 0, Data: []byte{1}},
					{Recipient: 0, Data: []byte{2}},
				}
			},
			expected: &ErrHrmpMessagesDescendingOrDuplicate{Index: 1},
		},
		{
			name: "outputs_invalid_disallowed_watermark",
			mutate: func(_ *RelayChainBlockInfo, _ *parachaintypes.Constraints, candidate *ProspectiveCandidate) {
				// a trunk watermark which is not in the valid set
				candidate.Commitments.HrmpWatermark = 5
			},
			expected: &ErrOutputsInvalid{
				ModificationError: &ErrDisallowedHrmpWatermark{BlockNumber: 5},
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			relayParent, constraints, candidate := makeTestFragmentInputs()
			testCase.mutate(&relayParent, constraints, candidate)

			fragment, err := NewFragment(relayParent, constraints, candidate)
			require.Error(t, err)
			assert.Nil(t, fragment)

			if _, isPVDMismatch := testCase.expected.(*ErrPersistedValidationDataMismatch); isPVDMismatch {
				assert.IsType(t, testCase.expected, err)
			} else {
				assert.Equal(t, testCase.expected, err)
			}
		})
	}
}
