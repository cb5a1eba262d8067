package leaderboard

import (
	"context"
	"errors"
	"time"

	"gamestake/bot/common"
	"gamestake/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Feature answers the read-only leaderboard commands
type Feature struct {
	service service.LeaderboardService
	now     func() time.Time
}

// NewFeature creates a new leaderboard feature instance
func NewFeature(svc service.LeaderboardService) *Feature {
	return &Feature{service: svc, now: time.Now}
}

// HandleLeaderboard handles /leaderboard [limit]
func (f *Feature) HandleLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate) {
	limit := common.IntOption(i.ApplicationCommandData().Options, "limit", service.DefaultLimit)

	board, err := f.service.Leaderboard(context.Background(), limit)
	if err != nil {
		log.WithError(err).Error("Error getting leaderboard")
		common.RespondWithError(s, i, "Unable to retrieve the leaderboard. Please try again.")
		return
	}

	if err := common.RespondWithEmbed(s, i, BuildLeaderboardEmbed(board, f.now()), false); err != nil {
		log.WithError(err).Error("Error responding to leaderboard command")
	}
}

// HandlePlayer handles /player <address>
func (f *Feature) HandlePlayer(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	address := common.StringOption(i.ApplicationCommandData().Options, "address")

	view, err := f.service.PlayerStats(ctx, address)
	if errors.Is(err, service.ErrInvalidAddress) {
		common.RespondWithError(s, i, "That is not a valid wallet address.")
		return
	}
	if err != nil {
		log.WithError(err).WithField("address", address).Error("Error getting player stats")
		common.RespondWithError(s, i, "Unable to retrieve player statistics. Please try again.")
		return
	}

	embed := BuildPlayerEmbed(view, f.service.Status(ctx), f.now())
	if err := common.RespondWithEmbed(s, i, embed, false); err != nil {
		log.WithError(err).Error("Error responding to player command")
	}
}

// HandleRecent handles /recent [limit]
func (f *Feature) HandleRecent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	limit := common.IntOption(i.ApplicationCommandData().Options, "limit", service.DefaultLimit)

	recent, err := f.service.RecentMatches(context.Background(), limit)
	if err != nil {
		log.WithError(err).Error("Error getting recent matches")
		common.RespondWithError(s, i, "Unable to retrieve recent matches. Please try again.")
		return
	}

	if err := common.RespondWithEmbed(s, i, BuildRecentEmbed(recent, f.now()), false); err != nil {
		log.WithError(err).Error("Error responding to recent command")
	}
}
