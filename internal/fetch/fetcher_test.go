package fetch

import (
	"context"
	"errors"
	"testing"

	"github.com/innovinitylabs/onchain-rug-sub004/internal/core/domain"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/infra/chain/evm"
)

var readerContract = domain.NewContractRef(11011, "0x1234567890abcdef1234567890abcdef12345678")

type mockReader struct {
	owner     string
	ownerErr  error
	tokenURI  string
	uriErr    error
	supply    uint64
	supplyErr error
}

func (m *mockReader) Contract() domain.ContractRef { return readerContract }

func (m *mockReader) OwnerOf(ctx context.Context, tokenID uint64) (string, error) {
	return m.owner, m.ownerErr
}

func (m *mockReader) TokenURI(ctx context.Context, tokenID uint64) (string, error) {
	return m.tokenURI, m.uriErr
}

func (m *mockReader) TotalSupply(ctx context.Context) (uint64, error) {
	return m.supply, m.supplyErr
}

const fullDoc = `{
	"name": "OnchainRug #7",
	"description": "Ages onchain.",
	"image": "data:text/html;base64,PGh0bWw+PC9odG1sPg==",
	"animation_url": "data:text/html;base64,PGh0bWw+PC9odG1sPg==",
	"attributes": [
		{"trait_type": "Palette", "value": "Desert"},
		{"trait_type": "Weave Pattern", "value": "Herringbone"},
		{"trait_type": "Dirt Level", "value": 2},
		{"trait_type": "Aging Level", "value": 5},
		{"trait_type": "Maintenance Count", "value": 3},
		{"trait_type": "Cleaning Count", "value": 1},
		{"trait_type": "Restoration Count", "value": 1},
		{"trait_type": "Last Cleaned", "value": 1754900000}
	]
}`

func TestFetchRugSplitsStaticAndDynamic(t *testing.T) {
	reader := &mockReader{
		owner:    "0xabcdef0123456789abcdef0123456789abcdef01",
		tokenURI: "data:application/json;base64," + b64(fullDoc),
	}
	f := NewFetcher(reader)

	rug, err := f.FetchRug(context.Background(), 7)
	if err != nil {
		t.Fatalf("FetchRug failed: %v", err)
	}

	if rug.TokenID != 7 || rug.Contract != readerContract {
		t.Errorf("identity = %d/%v", rug.TokenID, rug.Contract)
	}
	if rug.Static.Name != "OnchainRug #7" {
		t.Errorf("name = %q", rug.Static.Name)
	}
	if rug.Static.Owner != reader.owner || rug.Dynamic.Owner != reader.owner {
		t.Error("owner must be present on both sub-records")
	}

	// Aging traits are peeled out of the static attribute map.
	if rug.Dynamic.DirtLevel != 2 || rug.Dynamic.AgingLevel != 5 {
		t.Errorf("dirt/aging = %d/%d, want 2/5", rug.Dynamic.DirtLevel, rug.Dynamic.AgingLevel)
	}
	if rug.Dynamic.MaintenanceCount != 3 || rug.Dynamic.CleaningCount != 1 || rug.Dynamic.RestorationCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/1/1",
			rug.Dynamic.MaintenanceCount, rug.Dynamic.CleaningCount, rug.Dynamic.RestorationCount)
	}
	if rug.Dynamic.LastCleanedAt.IsZero() {
		t.Error("Last Cleaned timestamp not parsed")
	}
	if _, ok := rug.Static.Attributes["Dirt Level"]; ok {
		t.Error("dynamic trait leaked into static attributes")
	}
	if rug.Static.Attributes["Palette"] != "Desert" || rug.Static.Attributes["Weave Pattern"] != "Herringbone" {
		t.Errorf("static attributes = %v", rug.Static.Attributes)
	}

	if rug.ContentHash == "" || len(rug.ContentHash) != 64 {
		t.Errorf("content hash = %q, want sha256 hex", rug.ContentHash)
	}
	if rug.TokenURI == "" {
		t.Error("tokenURI must be carried on the record")
	}
}

func TestFetchRugHashIsStable(t *testing.T) {
	reader := &mockReader{
		owner:    "0xabcdef0123456789abcdef0123456789abcdef01",
		tokenURI: "data:application/json;base64," + b64(fullDoc),
	}
	f := NewFetcher(reader)
	ctx := context.Background()

	a, err := f.FetchRug(ctx, 7)
	if err != nil {
		t.Fatalf("FetchRug failed: %v", err)
	}
	b, err := f.FetchRug(ctx, 7)
	if err != nil {
		t.Fatalf("FetchRug failed: %v", err)
	}
	if a.ContentHash != b.ContentHash {
		t.Error("identical documents must hash identically")
	}
}

func TestFetchRugErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		reader *mockReader
		want   domain.FetchErrorKind
	}{
		{"owner not found", &mockReader{ownerErr: evm.ErrTokenNotFound}, domain.FetchNotFound},
		{"owner transient", &mockReader{ownerErr: errors.New("all providers failed")}, domain.FetchTransient},
		{"uri not found", &mockReader{owner: "0xaaa", uriErr: evm.ErrTokenNotFound}, domain.FetchNotFound},
		{"uri transient", &mockReader{owner: "0xaaa", uriErr: errors.New("timeout")}, domain.FetchTransient},
		{"undecodable uri", &mockReader{owner: "0xaaa", tokenURI: "https://example.com/x.json"}, domain.FetchDecode},
		{"corrupt document", &mockReader{owner: "0xaaa", tokenURI: "data:application/json;base64,@@@"}, domain.FetchDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFetcher(tt.reader)
			_, err := f.FetchRug(context.Background(), 7)
			if err == nil {
				t.Fatal("expected error")
			}
			if kind := domain.FetchKind(err); kind != tt.want {
				t.Errorf("kind = %v, want %v", kind, tt.want)
			}
		})
	}
}

func TestTotalSupplyPassthrough(t *testing.T) {
	f := NewFetcher(&mockReader{supply: 1234})
	supply, err := f.TotalSupply(context.Background())
	if err != nil {
		t.Fatalf("TotalSupply failed: %v", err)
	}
	if supply != 1234 {
		t.Errorf("supply = %d, want 1234", supply)
	}

	f = NewFetcher(&mockReader{supplyErr: errors.New("rpc down")})
	if _, err := f.TotalSupply(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
