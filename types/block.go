package types

// ShardHash is a content hash of a proposed value (Block or ShardChunk),
// 32 bytes, blake3.
type ShardHash [32]byte

// ValidatorMessage wraps an OnChainEvent or an fname transfer so it can be
// merged ahead of user messages in the same transaction (§4.2).
type ValidatorMessage struct {
	OnChainEvent  *OnChainEvent
	FnameTransfer *FnameTransfer
}

// FnameTransfer represents an off-chain fname registry transfer, merged the
// same way an on-chain event is.
type FnameTransfer struct {
	ID        uint64
	From      Fid
	To        Fid
	Username  string
	Timestamp uint32
	Signature []byte
	Owner     [20]byte
}

// Transaction is the per-fid unit of a ShardChunk: one fid's system
// messages (on-chain events / fname transfers, applied first) followed by
// its user messages, applied in input order.
type Transaction struct {
	Fid            Fid
	UserMessages   []*Message
	SystemMessages []*ValidatorMessage
	AccountRoot    [32]byte
}

// ShardHeader carries a shard's height, timestamp, and the roots that make
// the chunk authenticatable.
type ShardHeader struct {
	Height     Height
	Timestamp  int64
	ShardRoot  [32]byte
	ParentHash [32]byte
}

// ShardChunk is a committed batch of per-fid transactions for one shard at
// one height.
type ShardChunk struct {
	Header       ShardHeader
	Transactions []*Transaction
	Hash         [32]byte
	Commits      *Commits
}

// Vote is the canonical (height, round, value) tuple that validators sign
// over to certify a decision.
type Vote struct {
	Height Height
	Round  uint64
	Value  ShardHash
}

// Signature pairs a validator identity with its signature over a Vote.
type Signature struct {
	Signer    [32]byte
	Signature [64]byte
}

// Commits certifies that a value was decided: it is valid iff it carries at
// least 2f+1 signatures over Vote(height, round, value) from the validator
// set effective at that height.
type Commits struct {
	Height     Height
	Round      uint64
	Value      ShardHash
	Signatures []Signature
}

// BlockHeader is shard 0's header: it binds per-shard headers by hash and
// height only, with no further cross-shard ordering guarantee.
type BlockHeader struct {
	Height     Height
	Timestamp  int64
	ShardRoot  [32]byte
	ParentHash [32]byte
}

// ShardWitness is the (height, hash) pair that a Block uses to witness one
// shard's chunk without embedding its contents.
type ShardWitness struct {
	ShardIndex ShardIndex
	Height     uint64
	ChunkHash  [32]byte
}

// Block is shard 0's committed value: a header plus the set of per-shard
// headers it witnesses.
type Block struct {
	Header  BlockHeader
	Shards  []ShardWitness
	Hash    [32]byte
	Commits *Commits
}

// FullProposal is the broadcast form of a proposed value, streamed as
// proposal parts over the gossip adapter.
type FullProposal struct {
	Height        Height
	Round         uint64
	Proposer      [32]byte
	ProposedBlock *Block
	ProposedChunk *ShardChunk
}

// ValueID returns the content hash identifying the proposed value, used to
// look up a buffered FullProposal on Decided.
func (p *FullProposal) ValueID() ShardHash {
	if p.Height.ShardIndex.IsBlockShard() && p.ProposedBlock != nil {
		return p.ProposedBlock.Hash
	}
	if p.ProposedChunk != nil {
		return p.ProposedChunk.Hash
	}
	return ShardHash{}
}
