// Package server exposes the roster over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"

	"github.com/bobylevd/lol-balancer/app/balance"
	"github.com/bobylevd/lol-balancer/app/riot"
	"github.com/bobylevd/lol-balancer/app/store"
)

// IconResolver makes profile icon URLs.
type IconResolver interface {
	IconURL(ctx context.Context, iconID int) string
}

// Server is a JSON HTTP API over the roster.
type Server struct {
	Addr           string
	Service        *store.Service
	Icons          IconResolver
	RequestTimeout time.Duration

	metrics *metrics
}

// Run starts the server and blocks until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] http server listening on %s", s.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Printf("[WARN] stopping http server with reason: %v", context.Cause(ctx))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	return nil
}

// Handler returns the router with all routes set up.
func (s *Server) Handler() http.Handler {
	if s.RequestTimeout == 0 {
		s.RequestTimeout = 30 * time.Second
	}
	if s.metrics == nil {
		s.metrics = newMetrics()
	}

	router := mux.NewRouter()
	router.Use(s.logRequests, s.timeout)

	router.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := router.PathPrefix("/").Subrouter()
	api.Use(jsonContentType)
	api.HandleFunc("/health", s.health).Methods(http.MethodGet)
	api.HandleFunc("/summoners", s.listSummoners).Methods(http.MethodGet)
	api.HandleFunc("/summoners", s.addSummoner).Methods(http.MethodPost)
	api.HandleFunc("/summoners/{riotID}", s.removeSummoner).Methods(http.MethodDelete)
	api.HandleFunc("/summoners/{riotID}/team", s.moveSummoner).Methods(http.MethodPut)
	api.HandleFunc("/balance", s.balance).Methods(http.MethodPost)
	api.HandleFunc("/clear", s.clear).Methods(http.MethodPost)

	return router
}

type summonerView struct {
	PUUID        string `json:"puuid"`
	GameName     string `json:"game_name"`
	TagLine      string `json:"tag_line"`
	Team         string `json:"team"`
	Rank         string `json:"rank"`
	Tier         string `json:"tier"`
	Division     string `json:"division,omitempty"`
	LeaguePoints int64  `json:"league_points"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	WinRate      int    `json:"win_rate"`
	Level        int64  `json:"level"`
	IconURL      string `json:"icon_url,omitempty"`
	Score        int64  `json:"score"`
}

type balanceView struct {
	Team1      []string       `json:"team1"`
	Team2      []string       `json:"team2"`
	Team1Score int64          `json:"team1_score"`
	Team2Score int64          `json:"team2_score"`
	Diff       int64          `json:"diff"`
	Summoners  []summonerView `json:"summoners"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listSummoners(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Service.Roster(r.Context())
	if err != nil {
		writeError(w, fmt.Errorf("list roster: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, s.views(r.Context(), entries))
}

func (s *Server) addSummoner(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RiotID   string `json:"riot_id"`
		GameName string `json:"game_name"`
		TagLine  string `json:"tag_line"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorView{Error: "malformed request body"})
		return
	}

	riotID := req.RiotID
	if riotID == "" {
		riotID = req.GameName + "#" + req.TagLine
	}

	sum, err := s.Service.Register(r.Context(), riotID)
	if err != nil {
		writeError(w, fmt.Errorf("register summoner: %w", err))
		return
	}

	writeJSON(w, http.StatusCreated, summonerView{
		PUUID:    sum.PUUID,
		GameName: sum.GameName,
		TagLine:  sum.TagLine,
		Team:     string(sum.Team),
	})
}

func (s *Server) removeSummoner(w http.ResponseWriter, r *http.Request) {
	if err := s.Service.Remove(r.Context(), mux.Vars(r)["riotID"]); err != nil {
		writeError(w, fmt.Errorf("remove summoner: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) moveSummoner(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Team string `json:"team"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorView{Error: "malformed request body"})
		return
	}

	team, err := balance.ParseTeam(req.Team)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorView{Error: err.Error()})
		return
	}

	if err := s.Service.Move(r.Context(), mux.Vars(r)["riotID"], team); err != nil {
		writeError(w, fmt.Errorf("move summoner: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	res, entries, err := s.Service.Balance(r.Context())
	if err != nil {
		s.metrics.balances.WithLabelValues("error").Inc()
		writeError(w, fmt.Errorf("balance: %w", err))
		return
	}

	s.metrics.balances.WithLabelValues("ok").Inc()
	s.metrics.balanceDuration.Observe(time.Since(start).Seconds())
	s.metrics.balanceDiff.Set(float64(res.Diff()))

	writeJSON(w, http.StatusOK, balanceView{
		Team1:      res.Team1,
		Team2:      res.Team2,
		Team1Score: res.Team1Score,
		Team2Score: res.Team2Score,
		Diff:       res.Diff(),
		Summoners:  s.views(r.Context(), entries),
	})
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	if err := s.Service.Clear(r.Context()); err != nil {
		writeError(w, fmt.Errorf("clear: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) views(ctx context.Context, entries []store.Entry) []summonerView {
	res := make([]summonerView, 0, len(entries))
	for _, e := range entries {
		v := summonerView{
			PUUID:        e.PUUID,
			GameName:     e.GameName,
			TagLine:      e.TagLine,
			Team:         string(e.Team),
			Rank:         e.Player().Rank(),
			Tier:         string(e.Rank.Tier),
			Division:     string(e.Rank.Division),
			LeaguePoints: e.Rank.LeaguePoints,
			Wins:         e.Rank.Wins,
			Losses:       e.Rank.Losses,
			WinRate:      e.Rank.WinRate(),
			Level:        e.Rank.Level,
			Score:        e.Score(),
		}
		if s.Icons != nil {
			v.IconURL = s.Icons.IconURL(ctx, e.Rank.ProfileIconID)
		}
		res = append(res, v)
	}
	return res
}

type errorView struct {
	Error string `json:"error"`
}

// writeError maps the error to the response status, unexpected errors
// are logged and hidden from the client.
func writeError(w http.ResponseWriter, err error) {
	status, msg := http.StatusInternalServerError, "internal error"

	switch {
	case errors.Is(err, store.ErrBadRiotID):
		status, msg = http.StatusBadRequest, store.ErrBadRiotID.Error()
	case errors.Is(err, store.ErrAlreadyExists):
		status, msg = http.StatusConflict, "summoner already exists"
	case errors.Is(err, store.ErrNotFound), errors.Is(err, riot.ErrNotFound):
		status, msg = http.StatusNotFound, "summoner not found"
	case errors.Is(err, riot.ErrForbidden):
		status, msg = http.StatusForbidden, "invalid riot api key"
	case errors.Is(err, riot.ErrRateLimited):
		status, msg = http.StatusTooManyRequests, "rate limit exceeded, try again later"
	case errors.Is(err, balance.ErrEmptyRoster):
		status, msg = http.StatusUnprocessableEntity, balance.ErrEmptyRoster.Error()
	case errors.Is(err, balance.ErrRosterTooLarge):
		status, msg = http.StatusUnprocessableEntity, balance.ErrRosterTooLarge.Error()
	case errors.Is(err, riot.ErrUpstream), errors.Is(err, gobreaker.ErrOpenState):
		status, msg = http.StatusBadGateway, "riot api is unavailable"
	default:
		log.Printf("[ERROR] %v", err)
	}

	writeJSON(w, status, errorView{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[WARN] failed to write response: %v", err)
	}
}
