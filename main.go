package main

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	classifyx "viajero/agent/classify"
	dispatchx "viajero/agent/dispatch"
	geox "viajero/agent/geo"
	llmx "viajero/agent/llm"
	mcpx "viajero/agent/mcp"
	"viajero/agent/orchestrator"
	statex "viajero/agent/state"
	tripsx "viajero/agent/trips"
	historyx "viajero/history"
	configx "viajero/pkg/config"
	logx "viajero/pkg/logger"
	serverx "viajero/server"
)

type AppConfig struct {
	Debug        bool   `envconfig:"DEBUG"`
	StoreBackend string `envconfig:"STORE_BACKEND" split_words:"true" default:"file"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("")
	logx.Init(logx.Config{Debug: appCfg.Debug, PrettyFormat: appCfg.Debug})

	store := mustStore(appCfg.StoreBackend)

	llmCfg := configx.MustNew[llmx.Config]("OPENAI")
	llmClient, err := llmx.NewClient(*llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("llm client init failed")
	}

	mcpCfg := configx.MustNew[mcpx.Config]("MCP")
	flightAgent, err := mcpx.NewFlightAgent(mcpCfg.FlightURL, mcpCfg.Timeout)
	if err != nil {
		log.Fatal().Err(err).Msg("flight agent init failed")
	}
	hotelAgent, err := mcpx.NewHotelAgent(mcpCfg.HotelURL, mcpCfg.Timeout)
	if err != nil {
		log.Fatal().Err(err).Msg("hotel agent init failed")
	}
	destinationAgent, err := mcpx.NewDestinationAgent(mcpCfg.DestinationURL, mcpCfg.Timeout)
	if err != nil {
		log.Fatal().Err(err).Msg("destination agent init failed")
	}
	budgetAgent, err := mcpx.NewBudgetAgent(mcpCfg.CalcURL, mcpCfg.Timeout)
	if err != nil {
		log.Fatal().Err(err).Msg("budget agent init failed")
	}

	resolver := geox.NewResolver()
	dispatchCfg := configx.MustNew[dispatchx.Config]("VIAJERO")
	dispatcher := dispatchx.NewDispatcher(*dispatchCfg, resolver, llmClient,
		flightAgent, hotelAgent, destinationAgent, budgetAgent)

	classifier := classifyx.NewService(llmClient, store)
	contexts := statex.NewContextManager(store)
	ledger := tripsx.NewLedger(store, resolver)

	orch, err := orchestrator.New(classifier, contexts, dispatcher, ledger, resolver, llmClient)
	if err != nil {
		log.Fatal().Err(err).Msg("orchestrator init failed")
	}

	var hist *historyx.Store
	historyCfg := configx.MustNew[historyx.Config]("HISTORY")
	if strings.TrimSpace(historyCfg.DSN) != "" {
		hist, err = historyx.NewStore(*historyCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("history store init failed")
		}
		if err := hist.EnsureSchema(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("history schema init failed")
		}
		defer hist.Close()
	}

	srv, err := serverx.New(orch, ledger, hist)
	if err != nil {
		log.Fatal().Err(err).Msg("server init failed")
	}

	serverCfg := configx.MustNew[serverx.Config]("SERVER")
	router := srv.Router(*serverCfg)
	log.Info().Str("addr", serverCfg.Addr).Msg("servidor iniciado")
	if err := router.Run(serverCfg.Addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func mustStore(backend string) statex.Store {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "upstash":
		cfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		store, err := statex.NewUpstashRedisStore(*cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("upstash store init failed")
		}
		return store
	default:
		cfg := configx.MustNew[statex.FileStoreConfig]("STORE_FILE")
		store, err := statex.NewFileStore(*cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("file store init failed")
		}
		return store
	}
}
