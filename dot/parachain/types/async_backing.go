// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package parachaintypes

import "maps"

// AsyncBackingParams contains the parameters for the async backing.
type AsyncBackingParams struct {
	// The maximum number of para blocks between the para head in a relay parent
	// and a new candidate. Restricts nodes from building arbitrary long chains
	// and spamming other validators.
	//
	// When async backing is disabled, the only valid value is 0.
	MaxCandidateDepth uint32 `scale:"1"`
	// How many ancestors of a relay parent are allowed to build candidates on top of.
	//
	// When async backing is disabled, the only valid value is 0.
	AllowedAncestryLen uint32 `scale:"2"`
}

// InboundHrmpLimitations constraints on inbound HRMP channels.
type InboundHrmpLimitations struct {
	// An exhaustive set of all valid watermarks, sorted in ascending order.
	ValidWatermarks []uint
}

// OutboundHrmpChannelLimitations constraints on outbound HRMP channels.
type OutboundHrmpChannelLimitations struct {
	// The maximum bytes that can be written to the channel.
	BytesRemaining uint32
	// The maximum messages that can be written to the channel.
	MessagesRemaining uint32
}

// Constraints on the actions that can be taken by a new parachain block. These
// limitations are implicitly associated with some particular parachain, which should
// be apparent from usage.
type Constraints struct {
	// The minimum relay-parent number accepted under these constraints.
	MinRelayParentNumber uint
	// The maximum Proof-of-Validity size allowed, in bytes.
	MaxPoVSize uint32
	// The maximum new validation code size allowed, in bytes.
	MaxCodeSize uint32
	// The amount of UMP messages remaining.
	UmpRemaining uint32
	// The amount of UMP bytes remaining.
	UmpRemainingBytes uint32
	// The maximum number of UMP messages allowed per candidate.
	MaxUmpNumPerCandidate uint32
	// Remaining DMP queue. Only includes sent-at block numbers.
	DmpRemainingMessages []uint
	// The limitations of all registered inbound HRMP channels.
	HrmpInbound InboundHrmpLimitations
	// The limitations of all registered outbound HRMP channels.
	HrmpChannelsOut map[ParaID]OutboundHrmpChannelLimitations
	// The maximum number of HRMP messages allowed per candidate.
	MaxHrmpNumPerCandidate uint32
	// The required parent head-data of the parachain.
	RequiredParent HeadData
	// The expected validation-code-hash of this parachain.
	ValidationCodeHash ValidationCodeHash
	// The code upgrade restriction signal as-of this parachain.
	UpgradeRestriction UpgradeRestriction
	// The future validation code hash, if any, and at what relay-parent
	// number the upgrade would be minimally applied.
	FutureValidationCode *FutureValidationCode
}

// Clone returns a deep copy of the constraints.
func (c *Constraints) Clone() *Constraints {
	cloned := *c

	cloned.DmpRemainingMessages = make([]uint, len(c.DmpRemainingMessages))
	copy(cloned.DmpRemainingMessages, c.DmpRemainingMessages)

	cloned.HrmpInbound.ValidWatermarks = make([]uint, len(c.HrmpInbound.ValidWatermarks))
	copy(cloned.HrmpInbound.ValidWatermarks, c.HrmpInbound.ValidWatermarks)

	cloned.HrmpChannelsOut = maps.Clone(c.HrmpChannelsOut)

	cloned.RequiredParent = HeadData{Data: make([]byte, len(c.RequiredParent.Data))}
	copy(cloned.RequiredParent.Data, c.RequiredParent.Data)

	if c.FutureValidationCode != nil {
		futureValidationCode := *c.FutureValidationCode
		cloned.FutureValidationCode = &futureValidationCode
	}

	return &cloned
}

// FutureValidationCode represents the future validation code hash, if any, and at
// what relay-parent number the upgrade would be minimally applied.
type FutureValidationCode struct {
	BlockNumber        uint
	ValidationCodeHash ValidationCodeHash
}
