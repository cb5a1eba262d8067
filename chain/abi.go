package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const gameStakeABI = `[
  {"type":"event","name":"MatchCreated","anonymous":false,"inputs":[
    {"name":"matchId","type":"bytes32","indexed":true},
    {"name":"player1","type":"address","indexed":true},
    {"name":"player2","type":"address","indexed":true},
    {"name":"stake","type":"uint256","indexed":false}]},
  {"type":"event","name":"Staked","anonymous":false,"inputs":[
    {"name":"matchId","type":"bytes32","indexed":true},
    {"name":"player","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false}]},
  {"type":"event","name":"Settled","anonymous":false,"inputs":[
    {"name":"matchId","type":"bytes32","indexed":true},
    {"name":"winner","type":"address","indexed":true},
    {"name":"totalPayout","type":"uint256","indexed":false}]},
  {"type":"event","name":"Refunded","anonymous":false,"inputs":[
    {"name":"matchId","type":"bytes32","indexed":true},
    {"name":"player1","type":"address","indexed":true},
    {"name":"player2","type":"address","indexed":true},
    {"name":"stake","type":"uint256","indexed":false}]},
  {"type":"event","name":"Purchase","anonymous":false,"inputs":[
    {"name":"buyer","type":"address","indexed":true},
    {"name":"usdtAmount","type":"uint256","indexed":false},
    {"name":"gtOut","type":"uint256","indexed":false}]}
]`

// Event names as declared by the contracts
const (
	EventMatchCreated = "MatchCreated"
	EventStaked       = "Staked"
	EventSettled      = "Settled"
	EventRefunded     = "Refunded"
	EventPurchase     = "Purchase"
)

// ContractABI is the parsed event ABI of both contracts
func ContractABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(gameStakeABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse contract ABI: %w", err)
	}
	return parsed, nil
}

// Topics returns the topic0 hashes of the PlayGame and TokenStore events
func Topics(parsed abi.ABI) (playGame []common.Hash, tokenStore []common.Hash) {
	for _, name := range []string{EventMatchCreated, EventStaked, EventSettled, EventRefunded} {
		playGame = append(playGame, parsed.Events[name].ID)
	}
	tokenStore = append(tokenStore, parsed.Events[EventPurchase].ID)
	return playGame, tokenStore
}
