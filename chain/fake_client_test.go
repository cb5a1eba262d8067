package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

var (
	playGameAddr   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenStoreAddr = common.HexToAddress("0x2222222222222222222222222222222222222222")
	aliceAddr      = common.HexToAddress("0xAbCdEf0123456789aBcDeF0123456789AbCdEf01")
	bobAddr        = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

func newTestDecoder(t *testing.T) *Decoder {
	t.Helper()
	d, err := NewDecoder(DecoderConfig{
		PlayGame:     playGameAddr,
		TokenStore:   tokenStoreAddr,
		GTDecimals:   18,
		USDTDecimals: 6,
	})
	require.NoError(t, err)
	return d
}

func units(n int64, decimals int) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}

func addrTopic(a common.Address) common.Hash {
	return common.BytesToHash(a.Bytes())
}

func buildLog(t *testing.T, d *Decoder, name string, contract common.Address, block uint64, index uint, topics []common.Hash, values ...interface{}) types.Log {
	t.Helper()
	ev := d.abi.Events[name]
	data, err := ev.Inputs.NonIndexed().Pack(values...)
	require.NoError(t, err)
	return types.Log{
		Address:     contract,
		Topics:      append([]common.Hash{ev.ID}, topics...),
		Data:        data,
		BlockNumber: block,
		Index:       index,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block*1000 + uint64(index))),
	}
}

func purchaseLog(t *testing.T, d *Decoder, block uint64, index uint) types.Log {
	return buildLog(t, d, EventPurchase, tokenStoreAddr, block, index,
		[]common.Hash{addrTopic(aliceAddr)}, units(1, 6), units(1, 18))
}

type fakeSubscription struct {
	errCh chan error
	once  sync.Once
	done  chan struct{}
}

func (s *fakeSubscription) Err() <-chan error { return s.errCh }

func (s *fakeSubscription) Unsubscribe() {
	s.once.Do(func() { close(s.done) })
}

// fakeClient serves logs from memory
type fakeClient struct {
	mu         sync.Mutex
	head       uint64
	logs       []types.Log
	failures   int
	alwaysFail bool
	queries    [][2]uint64
	subErr     error
	liveCh     chan<- types.Log
	sub        *fakeSubscription
	subscribed chan struct{}
	attempts   []time.Time
}

func newFakeClient(head uint64, logs ...types.Log) *fakeClient {
	return &fakeClient{
		head:       head,
		logs:       logs,
		subscribed: make(chan struct{}, 8),
	}
}

func (c *fakeClient) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head, nil
}

func (c *fakeClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.alwaysFail {
		return nil, errors.New("upstream unavailable")
	}
	if c.failures > 0 {
		c.failures--
		return nil, errors.New("temporary failure")
	}

	from, to := q.FromBlock.Uint64(), q.ToBlock.Uint64()
	c.queries = append(c.queries, [2]uint64{from, to})

	var out []types.Log
	for _, lg := range c.logs {
		if lg.BlockNumber >= from && lg.BlockNumber <= to {
			out = append(out, lg)
		}
	}
	return out, nil
}

func (c *fakeClient) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.attempts = append(c.attempts, time.Now())
	if c.subErr != nil {
		return nil, c.subErr
	}
	c.liveCh = ch
	c.sub = &fakeSubscription{errCh: make(chan error, 1), done: make(chan struct{})}
	c.subscribed <- struct{}{}
	return c.sub, nil
}

func (c *fakeClient) Close() {}

func (c *fakeClient) setHead(head uint64, logs ...types.Log) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head = head
	c.logs = append(c.logs, logs...)
}

func (c *fakeClient) subscribeAttempts() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Time(nil), c.attempts...)
}

func (c *fakeClient) recordedQueries() [][2]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][2]uint64(nil), c.queries...)
}

type recordingObserver struct {
	mu      sync.Mutex
	skipped map[string]int
	errors  int
	next    uint64
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{skipped: map[string]int{}}
}

func (o *recordingObserver) ObserveCursor(next, head uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.next = next
}

func (o *recordingObserver) ObserveSourceError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errors++
}

func (o *recordingObserver) ObserveSkippedLog(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.skipped[reason]++
}
