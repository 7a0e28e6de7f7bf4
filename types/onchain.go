package types

// OnChainEventType enumerates the five body variants an EVM watcher can
// observe on the registry contracts.
type OnChainEventType uint8

const (
	OnChainEventTypeStorageRent OnChainEventType = iota + 1
	OnChainEventTypeIDRegister
	OnChainEventTypeSigner
	OnChainEventTypeSignerMigrated
	OnChainEventTypeTierPurchase
)

// ChainID identifies the source L2.
type ChainID uint32

const (
	ChainIDOptimism ChainID = 10
	ChainIDBase     ChainID = 8453
)

// OnChainBody is implemented by every OnChainEvent payload variant.
type OnChainBody interface {
	onChainBodyMarker()
}

// OnChainEvent is a deterministic translation of a single EVM log into a
// validator-applied event. Idempotence key is (ChainID, BlockHash, LogIndex).
type OnChainEvent struct {
	Fid            Fid
	ChainID        ChainID
	BlockNumber    uint64
	BlockHash      [32]byte
	TxHash         [32]byte
	LogIndex       uint32
	TxIndex        uint32
	BlockTimestamp uint64
	Type           OnChainEventType
	Body           OnChainBody
}

// IdempotenceKey is the replay-dedup key for this event.
func (e *OnChainEvent) IdempotenceKey() [40]byte {
	var k [40]byte
	copy(k[:32], e.BlockHash[:])
	k[32] = byte(e.LogIndex >> 24)
	k[33] = byte(e.LogIndex >> 16)
	k[34] = byte(e.LogIndex >> 8)
	k[35] = byte(e.LogIndex)
	k[36] = byte(e.ChainID >> 24)
	k[37] = byte(e.ChainID >> 16)
	k[38] = byte(e.ChainID >> 8)
	k[39] = byte(e.ChainID)
	return k
}

// StorageRentExpirySeconds is the fixed one-year rent duration.
const StorageRentExpirySeconds uint64 = 365 * 24 * 60 * 60

type StorageRent struct {
	Payer  [20]byte
	Units  uint32
	Expiry uint64
}

func (StorageRent) onChainBodyMarker() {}

// IDRegisterEventType distinguishes registration, transfer, and recovery
// changes on the IdRegistry contract.
type IDRegisterEventType uint8

const (
	IDRegisterEventTypeRegister IDRegisterEventType = iota + 1
	IDRegisterEventTypeTransfer
	IDRegisterEventTypeChangeRecovery
)

type IDRegister struct {
	EventType IDRegisterEventType
	To        [20]byte
	From      [20]byte
	Recovery  [20]byte
}

func (IDRegister) onChainBodyMarker() {}

// SignerEventType distinguishes add/remove/admin-reset on the KeyRegistry
// contract.
type SignerEventType uint8

const (
	SignerEventTypeAdd SignerEventType = iota + 1
	SignerEventTypeRemove
	SignerEventTypeAdminReset
)

type Signer struct {
	Key          [32]byte
	KeyType      uint32
	EventType    SignerEventType
	Metadata     []byte
	MetadataType uint8
}

func (Signer) onChainBodyMarker() {}

type SignerMigrated struct {
	MigratedAt uint64
}

func (SignerMigrated) onChainBodyMarker() {}

type TierPurchase struct {
	TierType uint8
	ForDays  uint32
	Payer    [20]byte
}

func (TierPurchase) onChainBodyMarker() {}
