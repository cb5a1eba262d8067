package leaderboard

import (
	"fmt"
	"strings"
	"time"

	"gamestake/bot/common"
	"gamestake/events"
	"gamestake/models"

	"github.com/bwmarrin/discordgo"
)

// BuildLeaderboardEmbed creates the ranked players embed
func BuildLeaderboardEmbed(board *models.Leaderboard, now time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:     "🏆 GameStake Leaderboard 🏆",
		Color:     common.ColorPrimary,
		Timestamp: now.Format(time.RFC3339),
		Footer:    statusFooter(board.Status, board.TotalPlayers, board.TotalMatches),
	}

	if len(board.Entries) == 0 {
		embed.Description = "No settled matches yet"
		return embed
	}

	var lines []string
	for _, entry := range board.Entries {
		lines = append(lines, fmt.Sprintf("%s `%s` - **%s GT** (%d/%d, %s)",
			medal(entry.Rank),
			common.ShortAddress(entry.Address),
			common.FormatAmount(entry.TotalGTWon),
			entry.Wins, entry.MatchesPlayed,
			common.FormatPercent(entry.WinRate)))
	}
	embed.Description = strings.Join(lines, "\n")
	return embed
}

// BuildPlayerEmbed creates the single player stats embed
func BuildPlayerEmbed(view *models.PlayerView, status models.IngestionStatus, now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:     "📊 Stats for " + common.ShortAddress(view.Address),
		Color:     common.ColorPrimary,
		Timestamp: now.Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "🎮 Matches",
				Value: fmt.Sprintf("Played: **%d**\nWins: **%d** (%s)",
					view.MatchesPlayed, view.Wins, common.FormatPercent(view.WinRate)),
				Inline: true,
			},
			{
				Name: "💰 Tokens",
				Value: fmt.Sprintf("Won: **%s GT**\nPurchased: **%s GT**",
					common.FormatAmount(view.TotalGTWon),
					common.FormatAmount(view.TokensPurchased)),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: view.Address + " · " + statusText(status)},
	}
}

// BuildRecentEmbed lists the most recently updated matches
func BuildRecentEmbed(recent *models.RecentMatches, now time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:     "🕒 Recent Matches",
		Color:     common.ColorPrimary,
		Timestamp: now.Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: statusText(recent.Status)},
	}

	if len(recent.Matches) == 0 {
		embed.Description = "No matches yet"
		return embed
	}

	var lines []string
	for _, m := range recent.Matches {
		lines = append(lines, matchLine(m))
	}
	embed.Description = strings.Join(lines, "\n")
	return embed
}

// BuildAlertEmbed describes a rejected event for the operator channel
func BuildAlertEmbed(alert events.ConsistencyAlertEvent, now time.Time) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Category", Value: string(alert.Category), Inline: true},
		{Name: "Event", Value: string(alert.Kind), Inline: true},
		{Name: "Position", Value: alert.Order.String(), Inline: true},
		{Name: "Transaction", Value: fmt.Sprintf("`%s` log %d", alert.Identity.TxHash, alert.Identity.LogIndex)},
		{Name: "Reason", Value: alert.Reason},
	}
	if alert.MatchID != "" {
		fields = append([]*discordgo.MessageEmbedField{{Name: "Match", Value: "`" + alert.MatchID + "`"}}, fields...)
	}

	color := common.ColorDanger
	if alert.Category == events.AlertCategoryResourceLimit {
		color = common.ColorWarning
	}

	return &discordgo.MessageEmbed{
		Title:       "⚠️ Consistency alert",
		Description: "An event was not applied and needs manual reconciliation.",
		Color:       color,
		Timestamp:   now.Format(time.RFC3339),
		Fields:      fields,
	}
}

func matchLine(m *models.MatchRecord) string {
	players := "`" + common.ShortAddress(m.Player1) + "`"
	if m.Player2 != "" {
		players += " vs `" + common.ShortAddress(m.Player2) + "`"
	}

	switch m.Status {
	case models.MatchStatusSettled:
		payout := ""
		if m.Payout != nil {
			payout = " for **" + common.FormatAmount(*m.Payout) + " GT**"
		}
		return fmt.Sprintf("✅ %s - won by `%s`%s", players, common.ShortAddress(m.Winner), payout)
	case models.MatchStatusRefunded:
		return fmt.Sprintf("↩️ %s - refunded", players)
	default:
		return fmt.Sprintf("⏳ %s - %s, stake %s GT", players, m.Status, common.FormatAmount(m.Stake))
	}
}

func medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", rank)
	}
}

func statusText(status models.IngestionStatus) string {
	text := fmt.Sprintf("Block %d · %s", status.LastBlock, status.State)
	if status.State != models.IngestionStateHealthy && status.LastError != "" {
		text += " · " + status.LastError
	}
	return text
}

func statusFooter(status models.IngestionStatus, players, matches int) *discordgo.MessageEmbedFooter {
	return &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("%d players · %d matches · %s", players, matches, statusText(status)),
	}
}
