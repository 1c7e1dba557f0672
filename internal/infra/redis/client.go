package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/innovinitylabs/onchain-rug-sub004/internal/core/domain"
)

// Client wraps Redis operations for the metadata cache.
//
// Every rug is projected into four independently expiring sub-keys (static,
// dynamic, tokenuri, hash). Writes across the four keys are not transactional;
// readers tolerate partial records.
type Client struct {
	rdb *redis.Client
	ttl TTLConfig
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// TTLConfig holds the expiry for each sub-key family.
type TTLConfig struct {
	Static   time.Duration
	Dynamic  time.Duration
	TokenURI time.Duration
	Page     time.Duration
	Inflight time.Duration
	Lease    time.Duration
}

// NewClient creates a new Redis client.
func NewClient(cfg Config, ttl TTLConfig) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb, ttl: ttl}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks connectivity, used by the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Universal exposes the underlying client for components that need raw
// commands (the rate governor's sorted-set window).
func (c *Client) Universal() redis.UniversalClient {
	return c.rdb
}

// Key helpers. Format: rug:{family}:{chainId}:{contract}:{tokenId}
func staticKey(ct domain.ContractRef, tokenID uint64) string {
	return fmt.Sprintf("rug:static:%d:%s:%d", ct.ChainID, ct.Address, tokenID)
}

func dynamicKey(ct domain.ContractRef, tokenID uint64) string {
	return fmt.Sprintf("rug:dynamic:%d:%s:%d", ct.ChainID, ct.Address, tokenID)
}

func tokenURIKey(ct domain.ContractRef, tokenID uint64) string {
	return fmt.Sprintf("rug:tokenuri:%d:%s:%d", ct.ChainID, ct.Address, tokenID)
}

func hashKey(ct domain.ContractRef, tokenID uint64) string {
	return fmt.Sprintf("rug:hash:%d:%s:%d", ct.ChainID, ct.Address, tokenID)
}

func pageKey(ct domain.ContractRef, page int) string {
	return fmt.Sprintf("rug:collection:%d:%s:page:%d", ct.ChainID, ct.Address, page)
}

func cursorKey(ct domain.ContractRef) string {
	return fmt.Sprintf("rug:refresh-offset:%d:%s", ct.ChainID, ct.Address)
}

func inflightKey(ct domain.ContractRef, tokenID uint64) string {
	return fmt.Sprintf("rug:inflight:%d:%s:%d", ct.ChainID, ct.Address, tokenID)
}

func leaseKey(ct domain.ContractRef) string {
	return fmt.Sprintf("rug:batch-lease:%d:%s", ct.ChainID, ct.Address)
}

// SaveRug writes all four sub-keys with their respective TTLs. The write is
// pipelined but not atomic; a concurrent reader may observe new static data
// next to old dynamic data.
func (c *Client) SaveRug(ctx context.Context, rug *domain.Rug) error {
	staticJSON, err := json.Marshal(rug.Static)
	if err != nil {
		return fmt.Errorf("marshal static: %w", err)
	}
	dynamicJSON, err := json.Marshal(rug.Dynamic)
	if err != nil {
		return fmt.Errorf("marshal dynamic: %w", err)
	}

	pipe := c.rdb.Pipeline()
	pipe.Set(ctx, staticKey(rug.Contract, rug.TokenID), staticJSON, c.ttl.Static)
	pipe.Set(ctx, dynamicKey(rug.Contract, rug.TokenID), dynamicJSON, c.ttl.Dynamic)
	if rug.TokenURI != "" {
		pipe.Set(ctx, tokenURIKey(rug.Contract, rug.TokenID), rug.TokenURI, c.ttl.TokenURI)
	}
	if rug.ContentHash != "" {
		pipe.Set(ctx, hashKey(rug.Contract, rug.TokenID), rug.ContentHash, c.ttl.Static)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec failed: %w", err)
	}
	return nil
}

// GetHash returns the stored content hash, or "" when absent.
func (c *Client) GetHash(ctx context.Context, ct domain.ContractRef, tokenID uint64) (string, error) {
	val, err := c.rdb.Get(ctx, hashKey(ct, tokenID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get hash failed: %w", err)
	}
	return val, nil
}

// GetView reads all four sub-keys of one token in a single MGET and assembles
// a partial view from whatever is present.
func (c *Client) GetView(ctx context.Context, ct domain.ContractRef, tokenID uint64) (domain.PartialView, error) {
	views, err := c.MGetViews(ctx, ct, []uint64{tokenID})
	if err != nil {
		return domain.PartialView{TokenID: tokenID}, err
	}
	return views[0], nil
}

// MGetViews batch-reads the four sub-keys for every token id in one MGET.
// Results align 1:1 with ids; absent sub-keys leave the field nil/empty.
func (c *Client) MGetViews(ctx context.Context, ct domain.ContractRef, ids []uint64) ([]domain.PartialView, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(ids)*4)
	for _, id := range ids {
		keys = append(keys,
			staticKey(ct, id), dynamicKey(ct, id), tokenURIKey(ct, id), hashKey(ct, id))
	}

	raw, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget failed: %w", err)
	}

	views := make([]domain.PartialView, len(ids))
	for i, id := range ids {
		view := domain.PartialView{TokenID: id}
		base := i * 4

		if s, ok := raw[base].(string); ok {
			var static domain.StaticData
			if err := json.Unmarshal([]byte(s), &static); err == nil {
				view.Static = &static
			}
		}
		if s, ok := raw[base+1].(string); ok {
			var dynamic domain.DynamicData
			if err := json.Unmarshal([]byte(s), &dynamic); err == nil {
				view.Dynamic = &dynamic
			}
		}
		if s, ok := raw[base+2].(string); ok {
			view.TokenURI = s
		}
		if s, ok := raw[base+3].(string); ok {
			view.Hash = s
		}

		if view.Static == nil {
			view.Missing = append(view.Missing, "static")
		}
		if view.Dynamic == nil {
			view.Missing = append(view.Missing, "dynamic")
		}
		if view.TokenURI == "" {
			view.Missing = append(view.Missing, "tokenUri")
		}
		if view.Hash == "" {
			view.Missing = append(view.Missing, "hash")
		}
		views[i] = view
	}
	return views, nil
}

// DeleteDynamic evicts the dynamic sub-key so the next read observes the
// freshly refreshed state instead of a stale aging snapshot.
func (c *Client) DeleteDynamic(ctx context.Context, ct domain.ContractRef, tokenID uint64) error {
	return c.rdb.Del(ctx, dynamicKey(ct, tokenID)).Err()
}

// GetPage returns a cached collection page, or nil on miss.
func (c *Client) GetPage(ctx context.Context, ct domain.ContractRef, page int) (*domain.Page, error) {
	val, err := c.rdb.Get(ctx, pageKey(ct, page)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get page failed: %w", err)
	}
	var p domain.Page
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil, fmt.Errorf("unmarshal page: %w", err)
	}
	return &p, nil
}

// SavePage caches a fully assembled collection page with a short TTL.
func (c *Client) SavePage(ctx context.Context, ct domain.ContractRef, p *domain.Page) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal page: %w", err)
	}
	return c.rdb.Set(ctx, pageKey(ct, p.Page), data, c.ttl.Page).Err()
}

// GetCursor returns the persisted refresh offset. A missing cursor reads as 0,
// which creates it lazily on the first scheduler run.
func (c *Client) GetCursor(ctx context.Context, ct domain.ContractRef) (uint64, error) {
	val, err := c.rdb.Get(ctx, cursorKey(ct)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get cursor failed: %w", err)
	}
	return strconv.ParseUint(val, 10, 64)
}

// SetCursor persists the refresh offset. No TTL: the cursor survives until
// advanced or reset.
func (c *Client) SetCursor(ctx context.Context, ct domain.ContractRef, offset uint64) error {
	return c.rdb.Set(ctx, cursorKey(ct), strconv.FormatUint(offset, 10), 0).Err()
}

// DeleteCursor removes the cursor (admin reset).
func (c *Client) DeleteCursor(ctx context.Context, ct domain.ContractRef) error {
	return c.rdb.Del(ctx, cursorKey(ct)).Err()
}

// TryMarkInflight sets the short-TTL refresh dedupe marker for a token.
// Returns false when another refresh already holds it.
func (c *Client) TryMarkInflight(ctx context.Context, ct domain.ContractRef, tokenID uint64) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, inflightKey(ct, tokenID), "1", c.ttl.Inflight).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}

// ClearInflight releases the dedupe marker after a refresh completes.
func (c *Client) ClearInflight(ctx context.Context, ct domain.ContractRef, tokenID uint64) error {
	return c.rdb.Del(ctx, inflightKey(ct, tokenID)).Err()
}

// AcquireLease attempts to take the best-effort batch-run lease. A failed
// acquisition means another replica is mid-run; the trigger is skipped, not
// queued.
func (c *Client) AcquireLease(ctx context.Context, ct domain.ContractRef) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, leaseKey(ct), "locked", c.ttl.Lease).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}

// ReleaseLease releases the batch-run lease.
func (c *Client) ReleaseLease(ctx context.Context, ct domain.ContractRef) error {
	return c.rdb.Del(ctx, leaseKey(ct)).Err()
}
