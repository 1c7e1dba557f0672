package evm

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/innovinitylabs/onchain-rug-sub004/internal/core/domain"
)

// Function selectors for the collection contract's read surface.
const (
	selOwnerOf     = "0x6352211e" // ownerOf(uint256)
	selTokenURI    = "0xc87b56dd" // tokenURI(uint256)
	selTotalSupply = "0x18160ddd" // totalSupply()
)

// ErrTokenNotFound is returned when the contract reverts an existence/owner
// check, i.e. the token was never minted or has been burned.
var ErrTokenNotFound = errors.New("token does not exist")

// Caller issues raw JSON-RPC calls. Implemented by rpc.Client.
type Caller interface {
	Call(ctx context.Context, method string, params []any) (any, error)
}

// Reader reads the collection contract's view functions over eth_call.
type Reader struct {
	contract domain.ContractRef
	client   Caller
}

// NewReader creates a contract reader bound to one deployed collection.
func NewReader(contract domain.ContractRef, client Caller) *Reader {
	return &Reader{contract: contract, client: client}
}

// Contract returns the bound contract reference.
func (r *Reader) Contract() domain.ContractRef {
	return r.contract
}

// OwnerOf returns the current owner address. Reverts map to ErrTokenNotFound.
func (r *Reader) OwnerOf(ctx context.Context, tokenID uint64) (string, error) {
	result, err := r.ethCall(ctx, selOwnerOf+encodeUint256(tokenID))
	if err != nil {
		if isRevert(err) {
			return "", ErrTokenNotFound
		}
		return "", err
	}
	owner, err := decodeAddress(result)
	if err != nil {
		return "", fmt.Errorf("decode ownerOf result: %w", err)
	}
	if owner == "0x0000000000000000000000000000000000000000" {
		return "", ErrTokenNotFound
	}
	return owner, nil
}

// TokenURI returns the raw onchain metadata URI for a token.
func (r *Reader) TokenURI(ctx context.Context, tokenID uint64) (string, error) {
	result, err := r.ethCall(ctx, selTokenURI+encodeUint256(tokenID))
	if err != nil {
		if isRevert(err) {
			return "", ErrTokenNotFound
		}
		return "", err
	}
	uri, err := decodeString(result)
	if err != nil {
		return "", fmt.Errorf("decode tokenURI result: %w", err)
	}
	return uri, nil
}

// TotalSupply returns the current number of minted tokens. It is queried
// fresh on every pagination and batch run; minting moves it.
func (r *Reader) TotalSupply(ctx context.Context) (uint64, error) {
	result, err := r.ethCall(ctx, selTotalSupply)
	if err != nil {
		return 0, err
	}
	return parseHexUint(result)
}

func (r *Reader) ethCall(ctx context.Context, data string) (string, error) {
	params := []any{
		map[string]any{
			"to":   r.contract.Address,
			"data": data,
		},
		"latest",
	}
	result, err := r.client.Call(ctx, "eth_call", params)
	if err != nil {
		return "", err
	}
	hexStr, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("invalid eth_call response type %T", result)
	}
	return hexStr, nil
}

func isRevert(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "execution reverted") || strings.Contains(s, "-32000")
}

// encodeUint256 left-pads a uint64 to a 32-byte ABI word.
func encodeUint256(v uint64) string {
	return fmt.Sprintf("%064x", v)
}

// decodeAddress extracts an address from a single 32-byte return word.
func decodeAddress(result string) (string, error) {
	clean := strings.TrimPrefix(result, "0x")
	if len(clean) < 64 {
		return "", fmt.Errorf("short address word: %d chars", len(clean))
	}
	return strings.ToLower("0x" + clean[24:64]), nil
}

// decodeString decodes an ABI-encoded dynamic string return value:
// word 0 is the data offset, the word at that offset is the byte length,
// the bytes follow.
func decodeString(result string) (string, error) {
	clean := strings.TrimPrefix(result, "0x")
	if len(clean) < 128 {
		return "", fmt.Errorf("short string return: %d chars", len(clean))
	}

	offset, err := parseHexUint(clean[:64])
	if err != nil {
		return "", fmt.Errorf("invalid offset word: %w", err)
	}
	lenPos := offset * 2
	if uint64(len(clean)) < lenPos+64 {
		return "", fmt.Errorf("offset %d past end of data", offset)
	}

	length, err := parseHexUint(clean[lenPos : lenPos+64])
	if err != nil {
		return "", fmt.Errorf("invalid length word: %w", err)
	}
	dataStart := lenPos + 64
	dataEnd := dataStart + length*2
	if uint64(len(clean)) < dataEnd {
		return "", fmt.Errorf("string data truncated: need %d chars, have %d", dataEnd, len(clean))
	}

	raw, err := hex.DecodeString(clean[dataStart:dataEnd])
	if err != nil {
		return "", fmt.Errorf("invalid string bytes: %w", err)
	}
	return string(raw), nil
}

func parseHexUint(hexStr string) (uint64, error) {
	n := new(big.Int)
	if _, ok := n.SetString(strings.TrimPrefix(hexStr, "0x"), 16); !ok {
		return 0, fmt.Errorf("invalid hex: %s", hexStr)
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("value overflows uint64: %s", hexStr)
	}
	return n.Uint64(), nil
}
