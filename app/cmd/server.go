package cmd

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobylevd/lol-balancer/app/event"
	"github.com/bobylevd/lol-balancer/app/server"
)

// Server is a command to run the HTTP API, optionally along with the
// discord bot over the same roster.
type Server struct {
	CommonOpts
	RosterOpts

	Addr           string        `long:"addr"            env:"ADDR"            description:"listen address"  default:":8080"`
	RequestTimeout time.Duration `long:"request-timeout" env:"REQUEST_TIMEOUT" description:"request timeout" default:"30s"`

	Token    string   `long:"token"    env:"TOKEN"     description:"Discord bot token, bot is not started if empty"`
	AdminIDs []string `long:"admin-id" env:"ADMIN_IDS" description:"Admin discords IDs" env-delim:","`
}

// Execute runs the command.
func (s *Server) Execute([]string) error {
	ctx, cancel := context.WithCancelCause(context.Background())
	go catchSignal(cancel)

	r, err := s.makeRoster(ctx)
	if err != nil {
		return err
	}
	defer r.Close()

	srv := &server.Server{
		Addr:           s.Addr,
		Service:        r.service,
		Icons:          r.riot,
		RequestTimeout: s.RequestTimeout,
	}

	ewg, ctx := errgroup.WithContext(ctx)
	ewg.Go(func() error {
		log.Printf("[INFO] starting server %s", s.Version)
		return srv.Run(ctx)
	})

	if s.Token != "" {
		disc := &event.Discord{Token: s.Token, AdminIDs: s.AdminIDs, Service: r.service}
		ewg.Go(func() error { return disc.Run(ctx) })
	}

	if err := ewg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
