// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package parachaintypes

import (
	"bytes"
	"fmt"

	cscale "github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"

	"github.com/ChainSafe/prospective-parachains/lib/common"
)

// ParaID is the type used to identify a parachain.
type ParaID uint32

// UpwardMessage is a message from a parachain to its relay chain.
type UpwardMessage []byte

// OutboundHrmpMessage is an HRMP message seen from the perspective of a sender.
type OutboundHrmpMessage struct {
	Recipient uint32 `scale:"1"`
	Data      []byte `scale:"2"`
}

// ValidationCode is parachain validation code.
type ValidationCode []byte

// ValidationCodeHash is the blake2-256 hash of the validation code bytes.
type ValidationCodeHash common.Hash

func (vch ValidationCodeHash) String() string {
	return common.Hash(vch).String()
}

// HeadData is parachain head data included in the chain.
type HeadData struct {
	Data []byte `scale:"1"`
}

// Hash returns the blake2-256 hash of the head data bytes.
func (hd HeadData) Hash() (common.Hash, error) {
	return common.Blake2bHash(hd.Data)
}

// CollatorID is the collator's sr25519 public key.
type CollatorID [32]byte

// CollatorSignature is the signature on a candidate's block data signed by a collator.
type CollatorSignature [64]byte

// CandidateHash makes it easy to enforce that a hash is a candidate hash on the type level.
type CandidateHash struct {
	Value common.Hash `scale:"1"`
}

func (ch CandidateHash) String() string {
	return ch.Value.String()
}

// CandidateDescriptor is a unique descriptor of the candidate receipt.
type CandidateDescriptor struct {
	// The ID of the para this is a candidate for.
	ParaID ParaID `scale:"1"`
	// RelayParent is the hash of the relay-chain block this candidate should be executed in
	// the context of.
	RelayParent common.Hash `scale:"2"`
	// Collator is the collator's relay-chain account ID
	Collator CollatorID `scale:"3"`
	// PersistedValidationDataHash is the blake2-256 hash of the persisted validation data.
	// This is extra data derived from relay-chain state that may vary based on bitfields
	// included before the candidate. Therefore, it cannot be derived entirely from the relay-parent.
	PersistedValidationDataHash common.Hash `scale:"4"`
	// PovHash is the hash of the proof of validity.
	PovHash common.Hash `scale:"5"`
	// ErasureRoot is the root of a block's erasure encoding Merkle tree.
	ErasureRoot common.Hash `scale:"6"`
	// Signature on blake2-256 of components of this receipt:
	// The parachain index, the relay parent, the validation data hash, and the `pov_hash`.
	Signature CollatorSignature `scale:"7"`
	// ParaHead is the hash of the para header that is being generated by this candidate.
	ParaHead common.Hash `scale:"8"`
	// ValidationCodeHash is the blake2-256 hash of the validation code bytes.
	ValidationCodeHash ValidationCodeHash `scale:"9"`
}

// CandidateCommitments are the commitments of a candidate to the relay chain,
// namely the messages and state transition outputs produced by its execution.
type CandidateCommitments struct {
	// Messages destined to be interpreted by the relay chain itself.
	UpwardMessages []UpwardMessage `scale:"1"`
	// Horizontal messages sent by the parachain.
	HorizontalMessages []OutboundHrmpMessage `scale:"2"`
	// New validation code, if any.
	NewValidationCode *ValidationCode `scale:"3"`
	// The head data produced as a result of execution.
	HeadData HeadData `scale:"4"`
	// The number of messages processed from the DMQ.
	ProcessedDownwardMessages uint32 `scale:"5"`
	// The mark which specifies the block number up to which all inbound HRMP
	// messages are processed.
	HrmpWatermark uint32 `scale:"6"`
}

// Encode implements scale.Encodeable so that the optional new validation code
// is written as a SCALE option.
func (cc CandidateCommitments) Encode(encoder cscale.Encoder) error {
	if err := encoder.Encode(cc.UpwardMessages); err != nil {
		return err
	}
	if err := encoder.Encode(cc.HorizontalMessages); err != nil {
		return err
	}
	if err := encoder.EncodeOption(cc.NewValidationCode != nil, cc.NewValidationCode); err != nil {
		return err
	}
	if err := encoder.Encode(cc.HeadData); err != nil {
		return err
	}
	if err := encoder.Encode(cc.ProcessedDownwardMessages); err != nil {
		return err
	}
	return encoder.Encode(cc.HrmpWatermark)
}

// Decode implements scale.Decodeable.
func (cc *CandidateCommitments) Decode(decoder cscale.Decoder) error {
	if err := decoder.Decode(&cc.UpwardMessages); err != nil {
		return err
	}
	if err := decoder.Decode(&cc.HorizontalMessages); err != nil {
		return err
	}
	var hasValue bool
	cc.NewValidationCode = new(ValidationCode)
	if err := decoder.DecodeOption(&hasValue, cc.NewValidationCode); err != nil {
		return err
	}
	if !hasValue {
		cc.NewValidationCode = nil
	}
	if err := decoder.Decode(&cc.HeadData); err != nil {
		return err
	}
	if err := decoder.Decode(&cc.ProcessedDownwardMessages); err != nil {
		return err
	}
	return decoder.Decode(&cc.HrmpWatermark)
}

// CommittedCandidateReceipt is a candidate receipt along with the commitments it makes.
type CommittedCandidateReceipt struct {
	Descriptor  CandidateDescriptor  `scale:"1"`
	Commitments CandidateCommitments `scale:"2"`
}

// Hash returns the blake2-256 hash of the SCALE encoded receipt.
func (ccr CommittedCandidateReceipt) Hash() (common.Hash, error) {
	encoded, err := codec.Encode(ccr)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encoding committed candidate receipt: %w", err)
	}

	return common.Blake2bHash(encoded)
}

// PersistedValidationData provides information about how to create the inputs for
// the validation of a candidate by calling the Runtime.
// This information is derived from the chain state and will vary from para to para,
// although some fields may be the same for every para.
type PersistedValidationData struct {
	// The parent head data.
	ParentHead HeadData `scale:"1"`
	// The relay-chain block number this is in the context of.
	RelayParentNumber uint32 `scale:"2"`
	// The relay-chain block storage root this is in the context of.
	RelayParentStorageRoot common.Hash `scale:"3"`
	// The maximum legal size of a POV block, in bytes.
	MaxPovSize uint32 `scale:"4"`
}

// Hash returns the blake2-256 hash of the SCALE encoded persisted validation data.
func (pvd PersistedValidationData) Hash() (common.Hash, error) {
	encoded, err := codec.Encode(pvd)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encoding persisted validation data: %w", err)
	}

	return common.Blake2bHash(encoded)
}

// Equal returns true if both persisted validation data are equal.
func (pvd PersistedValidationData) Equal(other PersistedValidationData) bool {
	if !bytes.Equal(pvd.ParentHead.Data, other.ParentHead.Data) {
		return false
	}

	return pvd.RelayParentNumber == other.RelayParentNumber &&
		pvd.RelayParentStorageRoot == other.RelayParentStorageRoot &&
		pvd.MaxPovSize == other.MaxPovSize
}

// UpgradeRestriction is a possible restriction that prevents a parachain
// from performing an upgrade.
type UpgradeRestriction interface {
	isUpgradeRestriction()
}

var _ UpgradeRestriction = (*Present)(nil)

// Present means there is an upgrade restriction and there are no details
// about its specifics nor how long it could last.
type Present struct{}

func (*Present) isUpgradeRestriction() {}
