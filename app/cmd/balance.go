package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/bobylevd/lol-balancer/app/balance"
	"github.com/bobylevd/lol-balancer/app/event"
)

// Balance is a command to balance a roster file offline, without
// touching the Riot API or the store.
type Balance struct {
	CommonOpts

	File string `long:"file" short:"f" env:"ROSTER_FILE" description:"JSON file with the list of players, stdin if empty"`

	out io.Writer
	in  io.Reader
}

// Execute runs the command.
func (b *Balance) Execute([]string) error {
	if b.out == nil {
		b.out = os.Stdout
	}

	rd := b.in
	if rd == nil {
		rd = os.Stdin
	}
	if b.File != "" {
		f, err := os.Open(b.File)
		if err != nil {
			return fmt.Errorf("open roster file: %w", err)
		}
		defer f.Close()
		rd = f
	}

	var players []balance.Player
	if err := json.NewDecoder(rd).Decode(&players); err != nil {
		return fmt.Errorf("decode roster: %w", err)
	}

	// tiers and divisions in the file are free-form
	for i := range players {
		players[i].Tier = balance.ParseTier(string(players[i].Tier))
		players[i].Division = balance.ParseDivision(string(players[i].Division))
	}

	log.Printf("[DEBUG] balancing %d players from %q", len(players), b.File)

	res, err := balance.BalanceRoster(players)
	if err != nil {
		return fmt.Errorf("balance roster: %w", err)
	}

	_, err = fmt.Fprintf(b.out, "%s\nteam1: %d, team2: %d, difference: %d\n",
		event.RosterTable(res.Apply(players)), res.Team1Score, res.Team2Score, res.Diff())
	return err
}
