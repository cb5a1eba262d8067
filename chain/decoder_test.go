package chain

import (
	"strings"
	"testing"

	"gamestake/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoder_MatchLifecycleEvents(t *testing.T) {
	d := newTestDecoder(t)
	matchID := common.HexToHash("0xABCDEF")
	alice, bob := strings.ToLower(aliceAddr.Hex()), strings.ToLower(bobAddr.Hex())

	tests := []struct {
		name   string
		event  string
		topics []common.Hash
		amount int64
		check  func(t *testing.T, rec models.EventRecord)
	}{
		{
			name:   "match created",
			event:  EventMatchCreated,
			topics: []common.Hash{matchID, addrTopic(aliceAddr), addrTopic(bobAddr)},
			amount: 5,
			check: func(t *testing.T, rec models.EventRecord) {
				require.Equal(t, models.EventKindMatchCreated, rec.Kind)
				assert.Equal(t, matchID.Hex(), rec.MatchCreated.MatchID)
				assert.Equal(t, alice, rec.MatchCreated.Player1)
				assert.Equal(t, bob, rec.MatchCreated.Player2)
				assert.True(t, rec.MatchCreated.Stake.Equal(decimal.NewFromInt(5)))
			},
		},
		{
			name:   "staked",
			event:  EventStaked,
			topics: []common.Hash{matchID, addrTopic(bobAddr)},
			amount: 5,
			check: func(t *testing.T, rec models.EventRecord) {
				require.Equal(t, models.EventKindStaked, rec.Kind)
				assert.Equal(t, bob, rec.Staked.Player)
				assert.True(t, rec.Staked.Amount.Equal(decimal.NewFromInt(5)))
			},
		},
		{
			name:   "settled",
			event:  EventSettled,
			topics: []common.Hash{matchID, addrTopic(aliceAddr)},
			amount: 10,
			check: func(t *testing.T, rec models.EventRecord) {
				require.Equal(t, models.EventKindSettled, rec.Kind)
				assert.Equal(t, alice, rec.Settled.Winner)
				assert.True(t, rec.Settled.TotalPayout.Equal(decimal.NewFromInt(10)))
			},
		},
		{
			name:   "refunded",
			event:  EventRefunded,
			topics: []common.Hash{matchID, addrTopic(aliceAddr), addrTopic(bobAddr)},
			amount: 5,
			check: func(t *testing.T, rec models.EventRecord) {
				require.Equal(t, models.EventKindRefunded, rec.Kind)
				assert.Equal(t, alice, rec.Refunded.Player1)
				assert.True(t, rec.Refunded.Stake.Equal(decimal.NewFromInt(5)))
			},
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg := buildLog(t, d, tt.event, playGameAddr, 42, uint(i), tt.topics, units(tt.amount, 18))

			rec, err := d.Decode(lg)
			require.NoError(t, err)
			assert.Equal(t, models.BlockOrder{Block: 42, LogIndex: uint(i)}, rec.Order)
			assert.Equal(t, lg.TxHash.Hex(), rec.Identity.TxHash)
			assert.Equal(t, uint(i), rec.Identity.LogIndex)
			tt.check(t, rec)
		})
	}
}

func TestDecoder_Purchase(t *testing.T) {
	d := newTestDecoder(t)
	lg := buildLog(t, d, EventPurchase, tokenStoreAddr, 7, 3,
		[]common.Hash{addrTopic(aliceAddr)}, units(250, 6), units(1000, 18))

	rec, err := d.Decode(lg)
	require.NoError(t, err)
	require.Equal(t, models.EventKindTokenPurchase, rec.Kind)
	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", rec.Purchase.Buyer)
	assert.True(t, rec.Purchase.USDTAmount.Equal(decimal.NewFromInt(250)))
	assert.True(t, rec.Purchase.GTOut.Equal(decimal.NewFromInt(1000)))
}

func TestDecoder_Rejects(t *testing.T) {
	d := newTestDecoder(t)
	matchID := common.HexToHash("0x01")

	t.Run("missing topics", func(t *testing.T) {
		lg := buildLog(t, d, EventStaked, playGameAddr, 1, 0, []common.Hash{matchID}, units(1, 18))
		_, err := d.Decode(lg)
		assert.ErrorIs(t, err, ErrMalformedLog)
	})

	t.Run("truncated data", func(t *testing.T) {
		lg := buildLog(t, d, EventStaked, playGameAddr, 1, 0, []common.Hash{matchID, addrTopic(bobAddr)}, units(1, 18))
		lg.Data = lg.Data[:10]
		_, err := d.Decode(lg)
		assert.ErrorIs(t, err, ErrMalformedLog)
	})

	t.Run("unknown topic", func(t *testing.T) {
		lg := buildLog(t, d, EventStaked, playGameAddr, 1, 0, []common.Hash{matchID, addrTopic(bobAddr)}, units(1, 18))
		lg.Topics[0] = common.HexToHash("0xdeadbeef")
		_, err := d.Decode(lg)
		assert.ErrorIs(t, err, ErrUnknownEvent)
	})

	t.Run("wrong contract", func(t *testing.T) {
		lg := buildLog(t, d, EventPurchase, playGameAddr, 1, 0, []common.Hash{addrTopic(aliceAddr)}, units(1, 6), units(1, 18))
		_, err := d.Decode(lg)
		assert.ErrorIs(t, err, ErrUnknownEvent)
	})

	t.Run("no topics", func(t *testing.T) {
		lg := buildLog(t, d, EventStaked, playGameAddr, 1, 0, nil, units(1, 18))
		lg.Topics = nil
		_, err := d.Decode(lg)
		assert.ErrorIs(t, err, ErrMalformedLog)
	})
}

func TestTopics(t *testing.T) {
	parsed, err := ContractABI()
	require.NoError(t, err)

	playGame, tokenStore := Topics(parsed)
	assert.Len(t, playGame, 4)
	require.Len(t, tokenStore, 1)
	assert.Equal(t, parsed.Events[EventPurchase].ID, tokenStore[0])
}
