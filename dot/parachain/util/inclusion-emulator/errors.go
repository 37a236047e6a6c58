// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package inclusionemulator

import (
	"fmt"

	parachaintypes "github.com/ChainSafe/prospective-parachains/dot/parachain/types"
)

// ModificationError is the kind of error that can happen when modifying constraints.
type ModificationError interface {
	error
	isModificationError()
}

var (
	_ ModificationError = (*ErrDisallowedHrmpWatermark)(nil)
	_ ModificationError = (*ErrNoSuchHrmpChannel)(nil)
	_ ModificationError = (*ErrHrmpMessagesOverflow)(nil)
	_ ModificationError = (*ErrHrmpBytesOverflow)(nil)
	_ ModificationError = (*ErrUmpMessagesOverflow)(nil)
	_ ModificationError = (*ErrUmpBytesOverflow)(nil)
	_ ModificationError = (*ErrDmpMessagesUnderflow)(nil)
	_ ModificationError = (*ErrAppliedNonexistentCodeUpgrade)(nil)
)

// ErrDisallowedHrmpWatermark means the HRMP watermark is not allowed.
type ErrDisallowedHrmpWatermark struct {
	BlockNumber uint
}

func (*ErrDisallowedHrmpWatermark) isModificationError() {}

func (e *ErrDisallowedHrmpWatermark) Error() string {
	return fmt.Sprintf("disallowed HRMP watermark: %d", e.BlockNumber)
}

// ErrNoSuchHrmpChannel means the outbound HRMP channel is not registered.
type ErrNoSuchHrmpChannel struct {
	ParaID parachaintypes.ParaID
}

func (*ErrNoSuchHrmpChannel) isModificationError() {}

func (e *ErrNoSuchHrmpChannel) Error() string {
	return fmt.Sprintf("no such HRMP channel: %d", e.ParaID)
}

// ErrHrmpMessagesOverflow means more messages than allowed were submitted to
// an outbound HRMP channel.
type ErrHrmpMessagesOverflow struct {
	ParaID            parachaintypes.ParaID
	MessagesRemaining uint32
	MessagesSubmitted uint32
}

func (*ErrHrmpMessagesOverflow) isModificationError() {}

func (e *ErrHrmpMessagesOverflow) Error() string {
	return fmt.Sprintf("HRMP messages overflow for channel %d: remaining %d, submitted %d",
		e.ParaID, e.MessagesRemaining, e.MessagesSubmitted)
}

// ErrHrmpBytesOverflow means more bytes than allowed were submitted to an
// outbound HRMP channel.
type ErrHrmpBytesOverflow struct {
	ParaID         parachaintypes.ParaID
	BytesRemaining uint32
	BytesSubmitted uint32
}

func (*ErrHrmpBytesOverflow) isModificationError() {}

func (e *ErrHrmpBytesOverflow) Error() string {
	return fmt.Sprintf("HRMP bytes overflow for channel %d: remaining %d, submitted %d",
		e.ParaID, e.BytesRemaining, e.BytesSubmitted)
}

// ErrUmpMessagesOverflow means more UMP messages than allowed were sent.
type ErrUmpMessagesOverflow struct {
	MessagesRemaining uint32
	MessagesSubmitted uint32
}

func (*ErrUmpMessagesOverflow) isModificationError() {}

func (e *ErrUmpMessagesOverflow) Error() string {
	return fmt.Sprintf("UMP messages overflow: remaining %d, submitted %d",
		e.MessagesRemaining, e.MessagesSubmitted)
}

// ErrUmpBytesOverflow means more UMP bytes than allowed were sent.
type ErrUmpBytesOverflow struct {
	BytesRemaining uint32
	BytesSubmitted uint32
}

func (*ErrUmpBytesOverflow) isModificationError() {}

func (e *ErrUmpBytesOverflow) Error() string {
	return fmt.Sprintf("UMP bytes overflow: remaining %d, submitted %d",
		e.BytesRemaining, e.BytesSubmitted)
}

// ErrDmpMessagesUnderflow means more DMP messages were processed than are in the queue.
type ErrDmpMessagesUnderflow struct {
	MessagesRemaining uint32
	MessagesProcessed uint32
}

func (*ErrDmpMessagesUnderflow) isModificationError() {}

func (e *ErrDmpMessagesUnderflow) Error() string {
	return fmt.Sprintf("DMP messages underflow: remaining %d, processed %d",
		e.MessagesRemaining, e.MessagesProcessed)
}

// ErrAppliedNonexistentCodeUpgrade means a code upgrade was applied
// while none was scheduled.
type ErrAppliedNonexistentCodeUpgrade struct{}

func (*ErrAppliedNonexistentCodeUpgrade) isModificationError() {}

func (e *ErrAppliedNonexistentCodeUpgrade) Error() string {
	return "applied nonexistent code upgrade"
}

// FragmentValidityError is the kind of error with the validity of a fragment.
type FragmentValidityError interface {
	error
	isFragmentValidityError()
}

var (
	_ FragmentValidityError = (*ErrValidationCodeMismatch)(nil)
	_ FragmentValidityError = (*ErrPersistedValidationDataMismatch)(nil)
	_ FragmentValidityError = (*ErrOutputsInvalid)(nil)
	_ FragmentValidityError = (*ErrCodeSizeTooLarge)(nil)
	_ FragmentValidityError = (*ErrRelayParentTooOld)(nil)
	_ FragmentValidityError = (*ErrDmpAdvancementRule)(nil)
	_ FragmentValidityError = (*ErrUmpMessagesPerCandidateOverflow)(nil)
	_ FragmentValidityError = (*ErrHrmpMessagesPerCandidateOverflow)(nil)
	_ FragmentValidityError = (*ErrCodeUpgradeRestricted)(nil)
	_ FragmentValidityError = (*ErrHrmpMessagesDescendingOrDuplicate)(nil)
)

// ErrValidationCodeMismatch means the validation code hash of the candidate does
// not match the one expected by the constraints.
type ErrValidationCodeMismatch struct {
	Expected parachaintypes.ValidationCodeHash
	Got      parachaintypes.ValidationCodeHash
}

func (*ErrValidationCodeMismatch) isFragmentValidityError() {}

func (e *ErrValidationCodeMismatch) Error() string {
	return fmt.Sprintf("validation code mismatch: expected %s, got %s", e.Expected, e.Got)
}

// ErrPersistedValidationDataMismatch means the persisted validation data provided
// alongside the candidate does not match the one expected by the constraints.
type ErrPersistedValidationDataMismatch struct {
	Expected parachaintypes.PersistedValidationData
	Got      parachaintypes.PersistedValidationData
}

func (*ErrPersistedValidationDataMismatch) isFragmentValidityError() {}

func (e *ErrPersistedValidationDataMismatch) Error() string {
	return fmt.Sprintf("persisted validation data mismatch: expected %+v, got %+v", e.Expected, e.Got)
}

// ErrOutputsInvalid means the outputs of the candidate are invalid under
// the operating constraints.
type ErrOutputsInvalid struct {
	ModificationError ModificationError
}

func (*ErrOutputsInvalid) isFragmentValidityError() {}

func (e *ErrOutputsInvalid) Error() string {
	return fmt.Sprintf("invalid outputs: %s", e.ModificationError)
}

func (e *ErrOutputsInvalid) Unwrap() error {
	return e.ModificationError
}

// ErrCodeSizeTooLarge means the new validation code is too large.
type ErrCodeSizeTooLarge struct {
	MaxAllowed uint32
	NewSize    uint32
}

func (*ErrCodeSizeTooLarge) isFragmentValidityError() {}

func (e *ErrCodeSizeTooLarge) Error() string {
	return fmt.Sprintf("code size too large: max allowed %d, new size %d", e.MaxAllowed, e.NewSize)
}

// ErrRelayParentTooOld means the relay parent of the candidate is too old.
type ErrRelayParentTooOld struct {
	MinAllowed uint
	Current    uint
}

func (*ErrRelayParentTooOld) isFragmentValidityError() {}

func (e *ErrRelayParentTooOld) Error() string {
	return fmt.Sprintf("relay parent too old: min allowed %d, current %d", e.MinAllowed, e.Current)
}

// ErrDmpAdvancementRule means the candidate did not process at least one DMP
// message although the first message in the queue was sent at an earlier relay parent.
type ErrDmpAdvancementRule struct{}

func (*ErrDmpAdvancementRule) isFragmentValidityError() {}

func (e *ErrDmpAdvancementRule) Error() string {
	return "DMP advancement rule: new candidates require processing at least one DMP message"
}

// ErrUmpMessagesPerCandidateOverflow means the candidate sent more UMP messages
// than allowed per candidate.
type ErrUmpMessagesPerCandidateOverflow struct {
	MessagesAllowed   uint32
	MessagesSubmitted uint32
}

func (*ErrUmpMessagesPerCandidateOverflow) isFragmentValidityError() {}

func (e *ErrUmpMessagesPerCandidateOverflow) Error() string {
	return fmt.Sprintf("too many UMP messages: allowed %d, submitted %d",
		e.MessagesAllowed, e.MessagesSubmitted)
}

// ErrHrmpMessagesPerCandidateOverflow means the candidate sent more HRMP messages
// than allowed per candidate.
type ErrHrmpMessagesPerCandidateOverflow struct {
	MessagesAllowed   uint32
	MessagesSubmitted uint32
}

func (*ErrHrmpMessagesPerCandidateOverflow) isFragmentValidityError() {}

func (e *ErrHrmpMessagesPerCandidateOverflow) Error() string {
	return fmt.Sprintf("too many HRMP messages: allowed %d, submitted %d",
		e.MessagesAllowed, e.MessagesSubmitted)
}

// ErrCodeUpgradeRestricted means the candidate announced a code upgrade while
// the constraints signal an upgrade restriction.
type ErrCodeUpgradeRestricted struct{}

func (*ErrCodeUpgradeRestricted) isFragmentValidityError() {}

func (e *ErrCodeUpgradeRestricted) Error() string {
	return "code upgrade restricted"
}

// ErrHrmpMessagesDescendingOrDuplicate means the HRMP messages of the candidate
// are not sorted ascending by recipient or contain duplicate recipients.
type ErrHrmpMessagesDescendingOrDuplicate struct {
	Index uint
}

func (*ErrHrmpMessagesDescendingOrDuplicate) isFragmentValidityError() {}

func (e *ErrHrmpMessagesDescendingOrDuplicate) Error() string {
	return fmt.Sprintf("HRMP messages descending or duplicate at index %d", e.Index)
}
