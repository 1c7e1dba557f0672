package domain

// MaintenanceEvent is a push notification of an onchain state change,
// delivered by the webhook endpoint.
type MaintenanceEvent struct {
	EventKind       EventKind `json:"eventKind"`
	TokenID         uint64    `json:"tokenId"`
	ActorAddress    string    `json:"actorAddress"`
	ContractAddress string    `json:"contractAddress"`
	ChainID         uint64    `json:"chainId"`
	ActionType      string    `json:"actionType,omitempty"`
	Level           *int      `json:"level,omitempty"`
	TransactionHash string    `json:"transactionHash,omitempty"`
	BlockNumber     uint64    `json:"blockNumber,omitempty"`
	Timestamp       int64     `json:"timestamp,omitempty"`
}

type EventKind string

const (
	EventMaintenancePerformed EventKind = "MaintenancePerformed"
	EventCleaningPerformed    EventKind = "CleaningPerformed"
	EventRestorationPerformed EventKind = "RestorationPerformed"
	EventTransfer             EventKind = "Transfer"
)

// KnownEventKinds lists the kinds the invalidator reacts to. Anything else is
// accepted and ignored for forward compatibility.
var KnownEventKinds = map[EventKind]bool{
	EventMaintenancePerformed: true,
	EventCleaningPerformed:    true,
	EventRestorationPerformed: true,
	EventTransfer:             true,
}
