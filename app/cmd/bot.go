package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/bobylevd/lol-balancer/app/event"
)

// Bot is a command to run discord bot.
type Bot struct {
	CommonOpts
	RosterOpts

	Token    string   `long:"token"    env:"TOKEN"     description:"Discord bot token" required:"true"`
	AdminIDs []string `long:"admin-id" env:"ADMIN_IDS" description:"Admin discords IDs" env-delim:","`
}

// Execute runs the command.
func (b *Bot) Execute([]string) error {
	ctx, cancel := context.WithCancelCause(context.Background())
	go catchSignal(cancel)

	r, err := b.makeRoster(ctx)
	if err != nil {
		return err
	}
	defer r.Close()

	disc := &event.Discord{
		Token:    b.Token,
		AdminIDs: b.AdminIDs,
		Service:  r.service,
	}

	ewg, ctx := errgroup.WithContext(ctx)
	ewg.Go(func() error {
		log.Printf("[INFO] starting bot %s", b.Version)
		return disc.Run(ctx)
	})
	ewg.Go(func() error {
		<-ctx.Done()
		log.Printf("[INFO] stopping bot")
		return nil
	})

	if err := ewg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// catchSignal invokes graceful termination on SIGINT or SIGTERM.
func catchSignal(cancel context.CancelCauseFunc) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	sig := <-stop
	log.Printf("[WARN] caught signal: %s", sig)
	cancel(fmt.Errorf("caught signal: %s", sig))
}
