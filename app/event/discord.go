package event

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/bobylevd/lol-balancer/app/balance"
	"github.com/bobylevd/lol-balancer/app/riot"
	"github.com/bobylevd/lol-balancer/app/store"
)

// Discord is a handler for Discord commands.
type Discord struct {
	Token          string
	AdminIDs       []string
	Service        *store.Service
	HandlerTimeout time.Duration
	se             *discordgo.Session
}

// Run runs the Discord handler.
// Blocking call.
func (d *Discord) Run(ctx context.Context) error {
	if d.HandlerTimeout == 0 {
		d.HandlerTimeout = 15 * time.Second
	}

	se, err := discordgo.New(fmt.Sprintf("Bot %s", d.Token))
	if err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	d.se = se
	d.se.Identify.Intents = discordgo.IntentGuildMessages | discordgo.IntentMessageContent
	d.se.AddHandler(d.onMessage)

	log.Printf("[INFO] opening discord session")
	if err := d.se.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	<-ctx.Done()

	log.Printf("[WARN] stopping bot with reason: %v", context.Cause(ctx))
	if err := d.se.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}

	return nil
}

type command func(ctx context.Context, args []string) (reply string, err error)

func (d *Discord) onMessage(s *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author.ID == s.State.User.ID {
		return // ignore messages from the bot
	}

	log.Printf("[DEBUG] received message from %s: %s", msg.ChannelID, msg.Content)

	cmd, args, ok := d.route(msg.Author.ID, msg.Content)
	if !ok {
		return // do nothing
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.HandlerTimeout)
	defer cancel()

	replyTo := &discordgo.MessageReference{MessageID: msg.ID, ChannelID: msg.ChannelID}
	reply, err := cmd(ctx, args)
	if err != nil {
		log.Printf("[WARN] failed to execute command: %v", err)
		reply = "failed to execute command, check logs"
	}
	if _, err = s.ChannelMessageSendReply(msg.ChannelID, reply, replyTo); err != nil {
		log.Printf("[WARN] failed to send message: %v", err)
	}
}

// route picks the command for the message, mutating commands are
// available to admins only.
func (d *Discord) route(authorID, content string) (command, []string, bool) {
	content = strings.TrimSpace(content)
	if content == "" || !strings.HasPrefix(content, "!") {
		return nil, nil, false
	}

	fields := strings.Fields(content)
	args := fields[1:] // first word is the command itself

	admin := d.isAdmin(authorID)
	switch fields[0] {
	case "!add":
		return d.add, args, true
	case "!remove":
		return d.remove, args, admin
	case "!move":
		return d.move, args, admin
	case "!balance":
		return d.balance, args, admin
	case "!clear":
		return d.clear, args, admin
	case "!roster":
		return d.roster, args, true
	case "!ping":
		return d.ping, args, true
	case "!help":
		return d.help, args, true
	default:
		return nil, nil, false
	}
}

func (d *Discord) add(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "usage: !add <GameName#TagLine>", nil
	}

	sum, err := d.Service.Register(ctx, strings.Join(args, " "))
	if err != nil {
		if msg, ok := userError(err); ok {
			return msg, nil
		}
		return "", fmt.Errorf("register summoner: %w", err)
	}

	return fmt.Sprintf("%s added to the roster", sum.RiotID()), nil
}

func (d *Discord) remove(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "usage: !remove <GameName#TagLine>", nil
	}

	riotID := strings.Join(args, " ")
	if err := d.Service.Remove(ctx, riotID); err != nil {
		if msg, ok := userError(err); ok {
			return msg, nil
		}
		return "", fmt.Errorf("remove summoner: %w", err)
	}

	return fmt.Sprintf("%s removed from the roster", riotID), nil
}

func (d *Discord) move(ctx context.Context, args []string) (string, error) {
	if len(args) < 2 {
		return "usage: !move <GameName#TagLine> <team1|team2>", nil
	}

	team, err := balance.ParseTeam(args[len(args)-1])
	if err != nil {
		return "team must be team1 or team2", nil
	}

	riotID := strings.Join(args[:len(args)-1], " ")
	if err := d.Service.Move(ctx, riotID, team); err != nil {
		if msg, ok := userError(err); ok {
			return msg, nil
		}
		return "", fmt.Errorf("move summoner: %w", err)
	}

	return fmt.Sprintf("%s moved to %s", riotID, team), nil
}

func (d *Discord) balance(ctx context.Context, _ []string) (string, error) {
	res, entries, err := d.Service.Balance(ctx)
	if err != nil {
		if msg, ok := userError(err); ok {
			return msg, nil
		}
		return "", fmt.Errorf("balance teams: %w", err)
	}

	return fmt.Sprintf("```\n%s\n```\nteam1: %d, team2: %d, difference: %d",
		RosterTable(players(entries)), res.Team1Score, res.Team2Score, res.Diff()), nil
}

func (d *Discord) roster(ctx context.Context, _ []string) (string, error) {
	entries, err := d.Service.Roster(ctx)
	if err != nil {
		return "", fmt.Errorf("list roster: %w", err)
	}

	if len(entries) == 0 {
		return "roster is empty", nil
	}

	return "```\n" + RosterTable(players(entries)) + "\n```", nil
}

func (d *Discord) clear(ctx context.Context, _ []string) (string, error) {
	if err := d.Service.Clear(ctx); err != nil {
		return "", fmt.Errorf("clear roster: %w", err)
	}
	return "roster cleared", nil
}

func (d *Discord) isAdmin(discordID string) bool {
	for _, id := range d.AdminIDs {
		if discordID == id {
			return true
		}
	}
	return false
}

func (d *Discord) ping(context.Context, []string) (string, error) { return "pong!", nil }

func (d *Discord) help(context.Context, []string) (reply string, err error) {
	return `
!add <GameName#TagLine> - add a summoner to the roster
!remove <GameName#TagLine> - admins only, remove a summoner from the roster
!move <GameName#TagLine> <team1|team2> - admins only, move a summoner to the team
!balance - admins only, split the roster into two balanced teams
!clear - admins only, remove everybody from the roster
!roster - show the roster
!ping - pong!
!help - this message
	`, nil
}

// userError translates expected errors into replies.
func userError(err error) (string, bool) {
	switch {
	case errors.Is(err, store.ErrBadRiotID):
		return "riot id must be in form of GameName#TagLine", true
	case errors.Is(err, store.ErrAlreadyExists):
		return "summoner is already in the roster", true
	case errors.Is(err, store.ErrNotFound), errors.Is(err, riot.ErrNotFound):
		return "summoner not found", true
	case errors.Is(err, riot.ErrRateLimited):
		return "riot api rate limit exceeded, try again later", true
	case errors.Is(err, riot.ErrUpstream):
		return "riot api is unavailable, try again later", true
	case errors.Is(err, balance.ErrEmptyRoster):
		return "roster is empty", true
	case errors.Is(err, balance.ErrRosterTooLarge):
		return fmt.Sprintf("too many players, at most %d can be balanced", balance.MaxRosterSize), true
	default:
		return "", false
	}
}

func players(entries []store.Entry) []balance.Player {
	res := make([]balance.Player, len(entries))
	for i, e := range entries {
		res[i] = e.Player()
	}
	return res
}
