package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/wnt/empyreal/client"
	"github.com/wnt/empyreal/internal/config"
	"github.com/wnt/empyreal/internal/database"
	"github.com/wnt/empyreal/internal/logger"
	"github.com/wnt/empyreal/internal/queue"
	"github.com/wnt/empyreal/internal/worker"
	"github.com/wnt/empyreal/types"
)

func main() {
	envFile := flag.String("envFile", ".env", "Path to .env file")
	tokenAddr := flag.String("token", "", "Queue every pair of this token before starting")
	pairAddr := flag.String("pair", "", "Queue a single pair before starting")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No .env file found at %s, using environment variables", *envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateSync(); err != nil {
		log.Fatalf("Invalid sync configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel)
	network := types.Network(cfg.ChainID)
	if !network.Supported() {
		l.Warn().Str("network", network.String()).Msg("Network is not officially supported")
	}

	c, err := cfg.NewClient(logger.WithComponent(l, "api"))
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to create API client")
	}

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to connect to database")
	}

	q, err := queue.NewClient(cfg.RedisURL, l)
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to connect to queue")
	}
	defer q.Close()

	ctx, stop := signal.NotifyContext(client.WithClient(context.Background(), c), os.Interrupt, syscall.SIGTERM)
	defer stop()

	protocol := types.NewUniswapV2(network)
	if err := seed(ctx, q, protocol, *tokenAddr, *pairAddr, l); err != nil {
		l.Fatal().Err(err).Msg("Failed to seed the pair queue")
	}

	server := serveMetrics(cfg.MetricsPort, l)

	manager := worker.NewManager(ctx, cfg, q, database.NewStore(db), protocol, l)
	if err := manager.Start(); err != nil {
		l.Fatal().Err(err).Msg("Failed to start worker manager")
	}

	<-ctx.Done()
	l.Info().Msg("Shutdown signal received")

	if err := manager.Stop(); err != nil {
		l.Error().Err(err).Msg("Failed to stop worker manager")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("Failed to stop metrics server")
	}

	l.Info().Msg("History sync stopped")
}

// seed queues the requested pair and every pair of the requested token
func seed(ctx context.Context, q *queue.Client, protocol *types.UniswapV2, tokenAddr, pairAddr string, l zerolog.Logger) error {
	if pairAddr != "" {
		if !common.IsHexAddress(pairAddr) {
			return errors.New("-pair is not an address")
		}
		if err := q.PushPair(ctx, common.HexToAddress(pairAddr).Hex(), 0); err != nil {
			return err
		}
	}

	if tokenAddr == "" {
		return nil
	}
	if !common.IsHexAddress(tokenAddr) {
		return errors.New("-token is not an address")
	}

	token, err := types.LoadToken(ctx, common.HexToAddress(tokenAddr), protocol.Network())
	if err != nil {
		return err
	}
	pairs, err := protocol.Pairs(ctx, token)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		// Older pairs first
		if err := q.PushPair(ctx, p.Address.Hex(), float64(p.BlockNumber)); err != nil {
			return err
		}
	}

	l.Info().Str("token", token.String()).Int("pairs", len(pairs)).Msg("Queued token pairs")
	return nil
}

func serveMetrics(port string, l zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		l.Info().Str("addr", server.Addr).Msg("Serving metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	return server
}
