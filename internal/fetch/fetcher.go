package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/innovinitylabs/onchain-rug-sub004/internal/core/domain"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/infra/chain/evm"
)

// Trait names that live in the dynamic sub-record rather than the static one.
// The contract surfaces aging state through the same attributes array as the
// permanent traits.
const (
	traitDirtLevel        = "Dirt Level"
	traitAgingLevel       = "Aging Level"
	traitMaintenanceCount = "Maintenance Count"
	traitCleaningCount    = "Cleaning Count"
	traitRestorationCount = "Restoration Count"
	traitLastMaintenance  = "Last Maintenance"
	traitLastCleaned      = "Last Cleaned"
	traitLastRestored     = "Last Restored"
)

// ContractReader is the chain read surface the fetcher needs.
// Implemented by evm.Reader.
type ContractReader interface {
	Contract() domain.ContractRef
	OwnerOf(ctx context.Context, tokenID uint64) (string, error)
	TokenURI(ctx context.Context, tokenID uint64) (string, error)
	TotalSupply(ctx context.Context) (uint64, error)
}

// Fetcher resolves one token's authoritative state from the chain and
// normalizes it into the canonical record shape. It knows nothing about
// caching or TTLs.
type Fetcher struct {
	reader ContractReader
	log    *slog.Logger
}

// NewFetcher creates a fetcher over a contract reader.
func NewFetcher(reader ContractReader) *Fetcher {
	return &Fetcher{
		reader: reader,
		log:    slog.Default().With("component", "fetch", "contract", reader.Contract().String()),
	}
}

// FetchRug performs the full authoritative read for one token: owner check,
// tokenURI read, document decode. Failures come back as classified
// FetchErrors; "does not exist" is a NotFound result, never a panic.
func (f *Fetcher) FetchRug(ctx context.Context, tokenID uint64) (*domain.Rug, error) {
	owner, err := f.reader.OwnerOf(ctx, tokenID)
	if err != nil {
		if errors.Is(err, evm.ErrTokenNotFound) {
			return nil, domain.NewFetchError(domain.FetchNotFound, tokenID, err)
		}
		return nil, domain.NewFetchError(domain.FetchTransient, tokenID, err)
	}

	tokenURI, err := f.reader.TokenURI(ctx, tokenID)
	if err != nil {
		if errors.Is(err, evm.ErrTokenNotFound) {
			return nil, domain.NewFetchError(domain.FetchNotFound, tokenID, err)
		}
		return nil, domain.NewFetchError(domain.FetchTransient, tokenID, err)
	}

	doc, rawJSON, err := DecodeMetadataDocument(tokenURI)
	if err != nil {
		return nil, domain.NewFetchError(domain.FetchDecode, tokenID, err)
	}

	hash := sha256.Sum256(rawJSON)
	now := time.Now().UTC()

	rug := &domain.Rug{
		Contract:      f.reader.Contract(),
		TokenID:       tokenID,
		TokenURI:      tokenURI,
		ContentHash:   hex.EncodeToString(hash[:]),
		LastRefreshAt: now,
		CreatedAt:     now,
	}
	rug.Static, rug.Dynamic = normalize(doc, owner)

	return rug, nil
}

// TotalSupply returns the live mint count for the bound contract.
func (f *Fetcher) TotalSupply(ctx context.Context) (uint64, error) {
	supply, err := f.reader.TotalSupply(ctx)
	if err != nil {
		return 0, fmt.Errorf("total supply: %w", err)
	}
	return supply, nil
}

// Contract returns the bound contract reference.
func (f *Fetcher) Contract() domain.ContractRef {
	return f.reader.Contract()
}

// normalize splits the decoded document into the static and dynamic
// sub-records. Dynamic trait names are peeled out of the attributes array;
// everything else is a static trait.
func normalize(doc *MetadataDocument, owner string) (domain.StaticData, domain.DynamicData) {
	static := domain.StaticData{
		Owner:        owner,
		Name:         doc.Name,
		Description:  doc.Description,
		Image:        doc.Image,
		AnimationURL: doc.AnimationURL,
		Attributes:   make(map[string]string),
	}
	dynamic := domain.DynamicData{Owner: owner}

	for _, attr := range doc.Attributes {
		if attr.TraitType == "" {
			continue
		}
		val := attr.ValueString()

		switch attr.TraitType {
		case traitDirtLevel:
			dynamic.DirtLevel = atoiOrZero(val)
		case traitAgingLevel:
			dynamic.AgingLevel = atoiOrZero(val)
		case traitMaintenanceCount:
			dynamic.MaintenanceCount = atoiOrZero(val)
		case traitCleaningCount:
			dynamic.CleaningCount = atoiOrZero(val)
		case traitRestorationCount:
			dynamic.RestorationCount = atoiOrZero(val)
		case traitLastMaintenance:
			dynamic.LastMaintenanceAt = unixOrZero(val)
		case traitLastCleaned:
			dynamic.LastCleanedAt = unixOrZero(val)
		case traitLastRestored:
			if t := unixOrZero(val); !t.IsZero() {
				dynamic.LastRestoredAt = &t
			}
		default:
			static.Attributes[attr.TraitType] = val
		}
	}

	return static, dynamic
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func unixOrZero(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}
	}
	return time.Unix(n, 0).UTC()
}
