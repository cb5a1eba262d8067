package bot

import (
	"fmt"

	"gamestake/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

func limitOption(what string) *discordgo.ApplicationCommandOption {
	minValue := 1.0
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "limit",
		Description: fmt.Sprintf("Number of %s to show (default %d)", what, service.DefaultLimit),
		Required:    false,
		MinValue:    &minValue,
		MaxValue:    float64(service.MaxLimit),
	}
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "leaderboard",
			Description: "Display the top players by GT won",
			Options:     []*discordgo.ApplicationCommandOption{limitOption("players")},
		},
		{
			Name:        "player",
			Description: "Display statistics for a wallet",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "address",
					Description: "Wallet address (0x...)",
					Required:    true,
				},
			},
		},
		{
			Name:        "recent",
			Description: "Display the most recent matches",
			Options:     []*discordgo.ApplicationCommandOption{limitOption("matches")},
		},
	}
}

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	for _, cmd := range commandDefinitions() {
		created, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.config.GuildID, cmd)
		if err != nil {
			return fmt.Errorf("cannot create '%s' command: %w", cmd.Name, err)
		}
		b.commands = append(b.commands, created)
	}
	return nil
}

func (b *Bot) unregisterCommands() {
	for _, cmd := range b.commands {
		if err := b.session.ApplicationCommandDelete(b.session.State.User.ID, b.config.GuildID, cmd.ID); err != nil {
			log.WithError(err).WithField("command", cmd.Name).Warn("Failed to remove slash command")
		}
	}
	b.commands = nil
}
