package types

import (
	"encoding/binary"
	"errors"
)

// MessageType enumerates the Add/Remove/compact-state variants for every
// message class, plus the two non-CRDT classes (UserData, UsernameProof).
type MessageType uint8

const (
	MessageTypeNone MessageType = iota
	MessageTypeCastAdd
	MessageTypeCastRemove
	MessageTypeReactionAdd
	MessageTypeReactionRemove
	MessageTypeLinkAdd
	MessageTypeLinkRemove
	MessageTypeVerificationAddAddress
	MessageTypeVerificationRemove
	MessageTypeUserDataAdd
	MessageTypeUsernameProof
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeCastAdd:
		return "CastAdd"
	case MessageTypeCastRemove:
		return "CastRemove"
	case MessageTypeReactionAdd:
		return "ReactionAdd"
	case MessageTypeReactionRemove:
		return "ReactionRemove"
	case MessageTypeLinkAdd:
		return "LinkAdd"
	case MessageTypeLinkRemove:
		return "LinkRemove"
	case MessageTypeVerificationAddAddress:
		return "VerificationAddAddress"
	case MessageTypeVerificationRemove:
		return "VerificationRemove"
	case MessageTypeUserDataAdd:
		return "UserDataAdd"
	case MessageTypeUsernameProof:
		return "UsernameProof"
	default:
		return "Unknown"
	}
}

// HashScheme and SignatureScheme identify the algorithms used to produce
// Message.Hash and Message.Signature. Blake3_20 and Ed25519 are the only
// schemes user messages use today; the enums leave room for migration.
type HashScheme uint8

const HashSchemeBlake3 HashScheme = 1

type SignatureScheme uint8

const SignatureSchemeEd25519 SignatureScheme = 1

// Network identifies which Farcaster network a message targets, preventing
// cross-network replay.
type Network uint8

const (
	NetworkMainnet Network = 1
	NetworkTestnet Network = 2
	NetworkDevnet  Network = 3
)

// Body is implemented by every MessageData payload variant.
type Body interface {
	bodyMarker()
}

// MessageData is the signed payload of a Message.
type MessageData struct {
	Fid       Fid
	Type      MessageType
	Timestamp uint32 // Farcaster epoch seconds
	Network   Network
	Body      Body
}

// Message is the wire envelope: exactly one of Data or DataBytes is
// authoritative. When DataBytes is present and non-empty it is canonical for
// hashing and signing; Data is then a read-through cache populated on load.
type Message struct {
	Data            *MessageData
	DataBytes       []byte
	Hash            [20]byte
	HashScheme      HashScheme
	Signature       [64]byte
	SignatureScheme SignatureScheme
	Signer          [32]byte
}

// CanonicalBytes returns the bytes that were (or must be) hashed and signed:
// DataBytes if set, else a canonical re-encoding of Data.
func (m *Message) CanonicalBytes() ([]byte, error) {
	if len(m.DataBytes) > 0 {
		return m.DataBytes, nil
	}
	if m.Data == nil {
		return nil, errors.New("message has neither data nor data_bytes")
	}
	return EncodeMessageData(m.Data)
}

// TsHash is the 24-byte time-ordered key used throughout the typed stores:
// timestamp_be(4) ∥ hash(20).
func TsHash(timestamp uint32, hash [20]byte) [24]byte {
	var out [24]byte
	binary.BigEndian.PutUint32(out[:4], timestamp)
	copy(out[4:], hash[:])
	return out
}

// ---- Body variants ----

type CastAdd struct {
	Text              string
	ParentFid         *Fid
	ParentHash        *[20]byte
	ParentURL         string
	Mentions          []Fid
	MentionsPositions []uint32
	Embeds            []string
}

func (CastAdd) bodyMarker() {}

type CastRemove struct {
	TargetHash [20]byte
}

func (CastRemove) bodyMarker() {}

// ReactionType distinguishes likes from recasts.
type ReactionType uint8

const (
	ReactionTypeLike ReactionType = iota + 1
	ReactionTypeRecast
)

type ReactionAdd struct {
	Type       ReactionType
	TargetFid  *Fid
	TargetHash *[20]byte
	TargetURL  string
}

func (ReactionAdd) bodyMarker() {}

type ReactionRemove struct {
	Type       ReactionType
	TargetFid  *Fid
	TargetHash *[20]byte
	TargetURL  string
}

func (ReactionRemove) bodyMarker() {}

type LinkAdd struct {
	Type        string
	TargetFid   Fid
	DisplayTime *uint32
}

func (LinkAdd) bodyMarker() {}

type LinkRemove struct {
	Type      string
	TargetFid Fid
}

func (LinkRemove) bodyMarker() {}

// VerificationProtocol identifies the chain family a verification claim
// targets. Only Ethereum claims are actually recovered and checked; Solana
// is accepted and stored opaquely (see SPEC_FULL.md Non-goals).
type VerificationProtocol uint8

const (
	VerificationProtocolEthereum VerificationProtocol = iota
	VerificationProtocolSolana
)

type VerificationAddAddress struct {
	Address          []byte
	ClaimSignature   []byte
	BlockHash        []byte
	Protocol         VerificationProtocol
	VerificationType uint8
	ChainID          uint32
}

func (VerificationAddAddress) bodyMarker() {}

type VerificationRemove struct {
	Address []byte
}

func (VerificationRemove) bodyMarker() {}

// UserDataType enumerates the single-valued profile fields.
type UserDataType uint8

const (
	UserDataTypePfp UserDataType = iota + 1
	UserDataTypeDisplay
	UserDataTypeBio
	UserDataTypeURL
	UserDataTypeUsername
	UserDataTypeLocation
	UserDataTypeTwitter
	UserDataTypeGithub
)

type UserDataAdd struct {
	Type  UserDataType
	Value string
}

func (UserDataAdd) bodyMarker() {}

// UsernameProofType distinguishes fname (off-chain) from ENS (on-chain)
// proofs.
type UsernameProofType uint8

const (
	UsernameProofTypeFname UsernameProofType = iota + 1
	UsernameProofTypeENS
)

type UsernameProof struct {
	Type      UsernameProofType
	Name      []byte
	Owner     []byte
	Signature []byte
	Fid       Fid
}

func (UsernameProof) bodyMarker() {}
