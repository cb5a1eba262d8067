package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"gamestake/events"
	"gamestake/models"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSession struct {
	mock.Mock
}

func (m *MockSession) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	args := m.Called(channelID, embed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*discordgo.Message), args.Error(1)
}

func TestBot_PostsAlertsToChannel(t *testing.T) {
	sender := new(MockSession)
	posted := make(chan *discordgo.MessageEmbed, 1)
	sender.On("ChannelMessageSendEmbed", "alerts", mock.Anything).
		Run(func(args mock.Arguments) { posted <- args.Get(1).(*discordgo.MessageEmbed) }).
		Return(&discordgo.Message{}, nil)

	b := &Bot{config: Config{AlertChannelID: "alerts"}, sender: sender}
	bus := events.NewBus()
	b.subscribeAlerts(bus)

	bus.Emit(context.Background(), events.ConsistencyAlertEvent{
		Category: events.AlertCategoryMissingParent,
		MatchID:  "0x09",
		Kind:     models.EventKindStaked,
		Reason:   "no predecessor within horizon",
	})

	select {
	case embed := <-posted:
		assert.Equal(t, "⚠️ Consistency alert", embed.Title)
		assert.Equal(t, "`0x09`", embed.Fields[0].Value)
	case <-time.After(2 * time.Second):
		t.Fatal("alert was not posted")
	}
	sender.AssertExpectations(t)
}

func TestBot_PostAlertError(t *testing.T) {
	sender := new(MockSession)
	sender.On("ChannelMessageSendEmbed", "alerts", mock.Anything).Return(nil, errors.New("missing access"))

	b := &Bot{config: Config{AlertChannelID: "alerts"}, sender: sender}
	err := b.postAlert(events.ConsistencyAlertEvent{Category: events.AlertCategoryConflict})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing access")
}

func TestCommandDefinitions(t *testing.T) {
	cmds := commandDefinitions()
	require.Len(t, cmds, 3)

	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"leaderboard", "player", "recent"}, names)

	limit := cmds[0].Options[0]
	assert.Equal(t, "limit", limit.Name)
	assert.False(t, limit.Required)
	assert.Equal(t, float64(100), limit.MaxValue)
	assert.True(t, cmds[1].Options[0].Required)
}
