package rpc

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedProvider struct {
	name    string
	results []any
	errs    []error
	calls   int
}

func (p *scriptedProvider) Call(ctx context.Context, method string, params []any) (any, error) {
	i := p.calls
	p.calls++
	if i >= len(p.errs) {
		i = len(p.errs) - 1
	}
	if p.errs[i] != nil {
		return nil, p.errs[i]
	}
	return p.results[i], nil
}

func (p *scriptedProvider) GetName() string { return p.name }

var fastRetry = RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    time.Millisecond,
	MaxDelay:        5 * time.Millisecond,
	BackoffMultiple: 2.0,
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorAction
	}{
		{"parse error", errors.New("rpc error -32700: parse error"), ActionFatal},
		{"invalid request", errors.New("rpc error -32600: invalid request"), ActionFatal},
		{"method not found", errors.New("rpc error -32601: method not found"), ActionFatal},
		{"invalid params", errors.New("rpc error -32602: invalid params"), ActionFatal},
		{"execution reverted", errors.New("rpc error -32000: execution reverted"), ActionFatal},
		{"rate limited", errors.New("rate limited (429), retry after: 2"), ActionFailover},
		{"forbidden", errors.New("ip blocked (403)"), ActionFailover},
		{"quota exceeded", errors.New("monthly quota exceeded"), ActionFailover},
		{"network timeout", errors.New("dial tcp: i/o timeout"), ActionRetry},
		{"http 500", errors.New("http 500: internal server error"), ActionRetry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCallWithRetryRecoversFromTransientError(t *testing.T) {
	p := &scriptedProvider{
		name:    "primary",
		results: []any{nil, "0x01"},
		errs:    []error{errors.New("i/o timeout"), nil},
	}

	result, err := CallWithRetry(context.Background(), p, "eth_call", nil, fastRetry)
	if err != nil {
		t.Fatalf("CallWithRetry failed: %v", err)
	}
	if result != "0x01" {
		t.Errorf("result = %v, want 0x01", result)
	}
	if p.calls != 2 {
		t.Errorf("calls = %d, want 2", p.calls)
	}
}

func TestCallWithRetryStopsOnFatal(t *testing.T) {
	p := &scriptedProvider{
		name: "primary",
		errs: []error{errors.New("rpc error -32000: execution reverted")},
	}

	_, err := CallWithRetry(context.Background(), p, "eth_call", nil, fastRetry)
	if err == nil {
		t.Fatal("expected error")
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1 (fatal errors must not retry)", p.calls)
	}
}

func TestCallWithRetryFailoverReturnsImmediately(t *testing.T) {
	p := &scriptedProvider{
		name: "primary",
		errs: []error{errors.New("rate limited (429), retry after: 10")},
	}

	_, err := CallWithRetry(context.Background(), p, "eth_call", nil, fastRetry)
	if err == nil {
		t.Fatal("expected error")
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1 (throttled provider must fail over, not retry)", p.calls)
	}
}

func TestCallWithRetryExhaustsAttempts(t *testing.T) {
	p := &scriptedProvider{
		name: "primary",
		errs: []error{errors.New("i/o timeout")},
	}

	_, err := CallWithRetry(context.Background(), p, "eth_call", nil, fastRetry)
	if err == nil {
		t.Fatal("expected error")
	}
	if p.calls != fastRetry.MaxAttempts {
		t.Errorf("calls = %d, want %d", p.calls, fastRetry.MaxAttempts)
	}
}

func TestClientFailsOverAcrossProviders(t *testing.T) {
	broken := &scriptedProvider{
		name: "primary",
		errs: []error{errors.New("rate limited (429), retry after: 10")},
	}
	healthy := &scriptedProvider{
		name:    "fallback",
		results: []any{"0x02"},
		errs:    []error{nil},
	}

	c := NewClient(11011, []Provider{broken, healthy})
	c.retry = fastRetry

	result, err := c.Call(context.Background(), "eth_call", nil)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if result != "0x02" {
		t.Errorf("result = %v, want 0x02", result)
	}
}

func TestClientStopsOnFatal(t *testing.T) {
	reverting := &scriptedProvider{
		name: "primary",
		errs: []error{errors.New("rpc error -32000: execution reverted")},
	}
	fallback := &scriptedProvider{
		name:    "fallback",
		results: []any{"0x02"},
		errs:    []error{nil},
	}

	c := NewClient(11011, []Provider{reverting, fallback})
	c.retry = fastRetry

	_, err := c.Call(context.Background(), "eth_call", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if fallback.calls != 0 {
		t.Error("a contract revert must not fail over; the call would revert everywhere")
	}
}

func TestClientNoProviders(t *testing.T) {
	c := NewClient(11011, nil)
	if _, err := c.Call(context.Background(), "eth_call", nil); err == nil {
		t.Fatal("expected error with no providers")
	}
}
