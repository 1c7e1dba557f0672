package domain

import (
	"fmt"
	"strings"
	"time"
)

// ContractRef identifies a deployed collection: chain + contract address.
type ContractRef struct {
	ChainID uint64 `json:"chainId"`
	Address string `json:"address"`
}

// NewContractRef normalizes the address to lowercase.
func NewContractRef(chainID uint64, address string) ContractRef {
	return ContractRef{ChainID: chainID, Address: strings.ToLower(address)}
}

// String returns the composite id form "chainId:address".
func (c ContractRef) String() string {
	return fmt.Sprintf("%d:%s", c.ChainID, c.Address)
}

// StaticData holds the fields that only change when the onchain metadata
// document changes. It is always overwritten wholesale on refresh.
type StaticData struct {
	Owner        string            `json:"owner"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Image        string            `json:"image"`
	AnimationURL string            `json:"animationUrl,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

// DynamicData holds the aging state that drifts over time onchain.
type DynamicData struct {
	DirtLevel         int        `json:"dirtLevel"`
	AgingLevel        int        `json:"agingLevel"`
	Owner             string     `json:"owner"`
	LastMaintenanceAt time.Time  `json:"lastMaintenanceAt"`
	MaintenanceCount  int        `json:"maintenanceCount"`
	LastCleanedAt     time.Time  `json:"lastCleanedAt"`
	CleaningCount     int        `json:"cleaningCount"`
	LastRestoredAt    *time.Time `json:"lastRestoredAt,omitempty"`
	RestorationCount  int        `json:"restorationCount,omitempty"`
}

// Rug is the canonical, cache-independent record of one collectible.
type Rug struct {
	Contract      ContractRef `json:"contract"`
	TokenID       uint64      `json:"tokenId"`
	Static        StaticData  `json:"static"`
	Dynamic       DynamicData `json:"dynamic"`
	TokenURI      string      `json:"tokenUri"`
	ContentHash   string      `json:"contentHash"`
	LastRefreshAt time.Time   `json:"lastRefreshAt"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// PartialView is what the read-through path returns: whatever sub-records the
// cache currently holds, with explicit markers for the absent ones.
type PartialView struct {
	TokenID  uint64       `json:"tokenId"`
	Static   *StaticData  `json:"static,omitempty"`
	Dynamic  *DynamicData `json:"dynamic,omitempty"`
	TokenURI string       `json:"tokenUri,omitempty"`
	Hash     string       `json:"hash,omitempty"`
	Missing  []string     `json:"missing,omitempty"`
	Loading  bool         `json:"loading,omitempty"`
}

// Empty reports whether no sub-record at all was found in the cache.
func (v PartialView) Empty() bool {
	return v.Static == nil && v.Dynamic == nil && v.TokenURI == "" && v.Hash == ""
}

// PageEntry is one row of a collection page. Failed fallback fetches produce a
// row with both sub-records nil and Cached=false, never a hole.
type PageEntry struct {
	TokenID  uint64       `json:"tokenId"`
	Static   *StaticData  `json:"static"`
	Dynamic  *DynamicData `json:"dynamic"`
	TokenURI string       `json:"tokenUri,omitempty"`
	Cached   bool         `json:"cached"`
}

// Page is a full collection page, aligned 1:1 with the requested id range.
type Page struct {
	Page         int         `json:"page"`
	TotalPages   int         `json:"totalPages"`
	TotalSupply  uint64      `json:"totalSupply"`
	ItemsPerPage int         `json:"itemsPerPage"`
	Rugs         []PageEntry `json:"rugs"`
	HasMore      bool        `json:"hasMore"`
}
