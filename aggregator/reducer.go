package aggregator

import (
	"sort"
	"time"

	"gamestake/events"
	"gamestake/models"
)

// State is the write view the reducer folds events into. store.Tx implements it.
type State interface {
	Match(matchID string) (*models.MatchRecord, bool)
	PutMatch(m *models.MatchRecord)
	Player(address string) *models.PlayerStats
	PutPlayer(p *models.PlayerStats)
	MarkProcessed(id models.Identity, order models.BlockOrder)
	Publish(e events.Event)
}

type action int

const (
	actionApply action = iota
	actionStale
	actionBuffer
	actionReject
)

type verdict struct {
	action action
	reason string
}

func apply() verdict               { return verdict{action: actionApply} }
func stale(reason string) verdict  { return verdict{action: actionStale, reason: reason} }
func buffer(reason string) verdict { return verdict{action: actionBuffer, reason: reason} }
func reject(reason string) verdict { return verdict{action: actionReject, reason: reason} }

// classify decides what a match event does to the current record. It has no side effects.
func classify(rec *models.MatchRecord, exists bool, ev models.EventRecord) verdict {
	if !exists {
		if ev.Kind == models.EventKindMatchCreated {
			return apply()
		}
		return buffer("match not observed yet")
	}

	// A different winner contradicts settlement no matter when it arrives
	if ev.Kind == models.EventKindSettled && rec.Status == models.MatchStatusSettled &&
		rec.Winner != ev.Settled.Winner {
		return reject("match already settled with winner " + rec.Winner)
	}

	if !rec.LastOrder.Less(ev.Order) {
		return stale("behind last applied order " + rec.LastOrder.String())
	}

	switch ev.Kind {
	case models.EventKindMatchCreated:
		return reject("match already created")

	case models.EventKindStaked:
		switch rec.Status {
		case models.MatchStatusCreated:
			if !canStake(rec, ev.Staked.Player) {
				return reject("staker is not a participant")
			}
			return apply()
		case models.MatchStatusStaked:
			if rec.HasStaked(ev.Staked.Player) {
				return stale("stake leg already recorded")
			}
			if !canStake(rec, ev.Staked.Player) {
				return reject("staker is not a participant")
			}
			return apply()
		default:
			return reject("stake on " + string(rec.Status) + " match")
		}

	case models.EventKindSettled:
		switch rec.Status {
		case models.MatchStatusCreated:
			return buffer("settlement before stake")
		case models.MatchStatusStaked:
			if !rec.IsParticipant(ev.Settled.Winner) {
				return reject("winner is not a participant")
			}
			if rec.Opponent(ev.Settled.Winner) == "" {
				return reject("match has no opponent to credit a loss to")
			}
			return apply()
		case models.MatchStatusSettled:
			return stale("settlement already applied")
		default:
			return reject("settlement of refunded match")
		}

	case models.EventKindRefunded:
		switch rec.Status {
		case models.MatchStatusCreated, models.MatchStatusStaked:
			return apply()
		case models.MatchStatusRefunded:
			return stale("refund already applied")
		default:
			return reject("refund of settled match")
		}
	}

	return reject("unsupported event kind")
}

func canStake(rec *models.MatchRecord, player string) bool {
	return rec.IsParticipant(player) || (!rec.HasPlayer2() && player != rec.Player1)
}

// recordLeg adds a stake leg. Leg sets are order-independent, so a late leg is
// still recorded even though it moves no status.
func recordLeg(rec *models.MatchRecord, player string) bool {
	if rec.HasStaked(player) || !canStake(rec, player) {
		return false
	}
	if !rec.HasPlayer2() && player != rec.Player1 {
		rec.Player2 = player
	}
	rec.StakedBy = append(rec.StakedBy, player)
	sort.Strings(rec.StakedBy)
	return true
}

// transition applies an accepted match event to state
func transition(st State, rec *models.MatchRecord, ev models.EventRecord, now time.Time) {
	switch ev.Kind {
	case models.EventKindMatchCreated:
		p := ev.MatchCreated
		rec = &models.MatchRecord{
			MatchID:      p.MatchID,
			Player1:      p.Player1,
			Player2:      p.Player2,
			Stake:        p.Stake,
			Status:       models.MatchStatusCreated,
			CreatedOrder: ev.Order,
			CreatedAt:    now,
		}
		if rec.Player2 == models.ZeroAddress {
			rec.Player2 = ""
		}

	case models.EventKindStaked:
		recordLeg(rec, ev.Staked.Player)
		rec.Status = models.MatchStatusStaked

	case models.EventKindSettled:
		p := ev.Settled
		payout := p.TotalPayout
		loser := rec.Opponent(p.Winner)
		rec.Status = models.MatchStatusSettled
		rec.Winner = p.Winner
		rec.Payout = &payout

		winner := st.Player(p.Winner)
		winner.Wins++
		winner.MatchesPlayed++
		winner.TotalGTWon = winner.TotalGTWon.Add(payout)
		st.PutPlayer(winner)

		loserStats := st.Player(loser)
		loserStats.MatchesPlayed++
		st.PutPlayer(loserStats)

		st.Publish(events.MatchSettledEvent{
			MatchID: rec.MatchID,
			Winner:  p.Winner,
			Loser:   loser,
			Payout:  payout,
		})

	case models.EventKindRefunded:
		rec.Status = models.MatchStatusRefunded
	}

	rec.LastOrder = ev.Order
	if now.After(rec.UpdatedAt) {
		rec.UpdatedAt = now
	}
	st.PutMatch(rec)
	st.MarkProcessed(ev.Identity, ev.Order)
	st.Publish(events.MatchUpdatedEvent{
		Match:    rec.Clone(),
		Cause:    ev.Kind,
		Identity: ev.Identity,
	})
}

// purchase credits a token store purchase; it never touches matches
func purchase(st State, ev models.EventRecord) {
	p := ev.Purchase
	stats := st.Player(p.Buyer)
	stats.TokensPurchased = stats.TokensPurchased.Add(p.GTOut)
	st.PutPlayer(stats)
	st.MarkProcessed(ev.Identity, ev.Order)
	st.Publish(events.TokensPurchasedEvent{
		Buyer:      p.Buyer,
		USDTAmount: p.USDTAmount,
		GTOut:      p.GTOut,
	})
}
