package main

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/bestballhq/draftengine/internal/compliance"
	"github.com/bestballhq/draftengine/internal/draft/engine"
	"github.com/bestballhq/draftengine/internal/draft/gateway"
	"github.com/bestballhq/draftengine/internal/draft/publisher"
	"github.com/bestballhq/draftengine/internal/draft/repository"
	"github.com/bestballhq/draftengine/internal/draft/state"
	"github.com/bestballhq/draftengine/internal/rankings"
)

type Services struct {
	Engine  *engine.Engine
	Handler *gateway.Handler
	Manager *gateway.ConnectionManager
	Ticker  *gateway.TimerTicker

	natsPub *publisher.NATSPublisher
}

func setupServices(ctx context.Context, config *Config, pool *pgxpool.Pool) (*Services, error) {
	clk := clockwork.NewRealClock()

	// Wire up dependency injection chain: state store, then engine, then gateway.
	store := state.NewStore(clk)
	rankingsStore := rankings.NewStore()

	manager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())

	pubs := []publisher.Publisher{manager}
	var natsPub *publisher.NATSPublisher
	if config.Events.NatsEnabled {
		var err error
		natsPub, err = publisher.NewNATSPublisher(ctx, config.Events.NatsURL)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, natsPub)
		log.Printf("Connected to NATS: %s", config.Events.NatsURL)
	} else {
		pubs = append(pubs, publisher.LogPublisher{})
	}

	var repo engine.Repository
	if pool != nil {
		repo = repository.New(pool)
	}

	eng := engine.New(engine.Config{
		Store:     store,
		Rankings:  rankingsStore,
		Gate:      compliance.AllowAll{},
		Publisher: publisher.NewMulti(pubs...),
		Repo:      repo,
		Clock:     clk,
	})

	handler := gateway.NewHandler(eng, manager)
	ticker := gateway.NewTimerTicker(eng, manager, clk)

	return &Services{
		Engine:  eng,
		Handler: handler,
		Manager: manager,
		Ticker:  ticker,
		natsPub: natsPub,
	}, nil
}

func (s *Services) Close() {
	s.Engine.Stop()
	if s.natsPub != nil {
		s.natsPub.Close()
	}
}
