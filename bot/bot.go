package bot

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"gamestake/bot/features/leaderboard"
	"gamestake/events"
	"gamestake/service"

	"github.com/bwmarrin/discordgo"
)

// Config holds bot configuration
type Config struct {
	Token          string
	GuildID        string
	AlertChannelID string
}

// session is the part of discordgo.Session the bot calls outside interactions
type session interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type Bot struct {
	config      Config
	session     *discordgo.Session
	sender      session
	leaderboard *leaderboard.Feature
	commands    []*discordgo.ApplicationCommand
}

func New(config Config, leaderboardService service.LeaderboardService, eventBus *events.Bus) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds

	bot := &Bot{
		config:      config,
		session:     dg,
		sender:      dg,
		leaderboard: leaderboard.NewFeature(leaderboardService),
	}

	// Register slash command handlers
	dg.AddHandler(bot.handleCommands)

	// Open websocket connection
	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands with Discord
	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	if config.AlertChannelID != "" && eventBus != nil {
		bot.subscribeAlerts(eventBus)
		log.WithField("channelID", config.AlertChannelID).Info("Consistency alerts will be posted to Discord")
	}

	return bot, nil
}

func (b *Bot) Close() error {
	b.unregisterCommands()
	return b.session.Close()
}

// Run keeps the bot connected until ctx is cancelled
func (b *Bot) Run(ctx context.Context) error {
	<-ctx.Done()
	return b.Close()
}

func (b *Bot) subscribeAlerts(eventBus *events.Bus) {
	eventBus.Subscribe(events.EventTypeConsistencyAlert, func(ctx context.Context, event events.Event) {
		alert, ok := event.(events.ConsistencyAlertEvent)
		if !ok {
			return
		}
		if err := b.postAlert(alert); err != nil {
			log.WithFields(log.Fields{
				"category": alert.Category,
				"matchID":  alert.MatchID,
				"error":    err,
			}).Error("Failed to post consistency alert to Discord")
		}
	})
}

func (b *Bot) postAlert(alert events.ConsistencyAlertEvent) error {
	embed := leaderboard.BuildAlertEmbed(alert, time.Now())
	_, err := b.sender.ChannelMessageSendEmbed(b.config.AlertChannelID, embed)
	return err
}

// handleCommands routes slash commands to their feature
func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "leaderboard":
		b.leaderboard.HandleLeaderboard(s, i)
	case "player":
		b.leaderboard.HandlePlayer(s, i)
	case "recent":
		b.leaderboard.HandleRecent(s, i)
	}
}
