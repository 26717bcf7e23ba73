package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/wnt/empyreal/client"
	"github.com/wnt/empyreal/internal/config"
	"github.com/wnt/empyreal/internal/logger"
	"github.com/wnt/empyreal/types"
)

const usage = `Usage: empyreal [-envFile .env] <command> [args]

Commands:
  ping                 check that the API is reachable
  app                  show the application bound to the API key
  token <address>      look up a token and its security report
  routes <address>     price a token through its WETH/USDC routes
  pairs <address>      list the pairs of a token with their liquidity
  history <pair>       print the swap history of a pair
`

func main() {
	envFile := flag.String("envFile", ".env", "Path to .env file")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No .env file found at %s, using environment variables", *envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	l := logger.New(cfg.LogLevel)

	c, err := cfg.NewClient(logger.WithComponent(l, "cli"))
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to create API client")
	}

	ctx, cancel := context.WithTimeout(client.WithClient(context.Background(), c), 2*time.Minute)
	defer cancel()

	if err := run(ctx, types.Network(cfg.ChainID), flag.Args(), os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		l.Fatal().Err(err).Msg("Command failed")
	}
}

var errUsage = errors.New("usage")

// run executes one command against the client carried by ctx
func run(ctx context.Context, network types.Network, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "ping":
		return ping(ctx, out)
	case "app":
		return showApp(ctx, out)
	}

	if len(rest) != 1 || !common.IsHexAddress(rest[0]) {
		return errUsage
	}
	address := common.HexToAddress(rest[0])

	switch cmd {
	case "token":
		return showToken(ctx, network, address, out)
	case "routes":
		return showRoutes(ctx, network, address, out)
	case "pairs":
		return showPairs(ctx, network, address, out)
	case "history":
		return showHistory(ctx, network, address, out)
	default:
		return errUsage
	}
}

func ping(ctx context.Context, out io.Writer) error {
	c, err := client.Require(ctx)
	if err != nil {
		return err
	}
	start := time.Now()
	payload, err := c.Infra.Ping(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ %s answered in %s\n", c.BaseURL(), time.Since(start).Round(time.Millisecond))
	fmt.Fprintln(out, string(payload))
	return nil
}

func showApp(ctx context.Context, out io.Writer) error {
	app, err := types.LoadApplication(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, app.String())
	return printJSON(out, app.ApplicationRecord)
}

func showToken(ctx context.Context, network types.Network, address common.Address, out io.Writer) error {
	token, err := types.LoadToken(ctx, address, network)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token.String())
	if err := printJSON(out, token.TokenRecord); err != nil {
		return err
	}

	report, err := token.Security(ctx)
	if err != nil {
		// Not every token has a report
		if errors.Is(err, client.ErrNotFound) {
			fmt.Fprintln(out, "No security report")
			return nil
		}
		return err
	}
	fmt.Fprintln(out, strings.Repeat("=", 80))
	return printJSON(out, report)
}

func showRoutes(ctx context.Context, network types.Network, address common.Address, out io.Writer) error {
	routes, err := types.NewUniswapV2(network).Price(ctx, address)
	if err != nil {
		return err
	}
	if len(routes) == 0 {
		fmt.Fprintln(out, "📭 No routes found")
		return nil
	}
	for _, r := range routes {
		fmt.Fprintln(out, r.String())
	}
	return nil
}

func showPairs(ctx context.Context, network types.Network, address common.Address, out io.Writer) error {
	token, err := types.LoadToken(ctx, address, network)
	if err != nil {
		return err
	}
	pairs, err := types.NewUniswapV2(network).Pairs(ctx, token)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		fmt.Fprintln(out, "📭 No pairs found")
		return nil
	}

	liquidity, err := types.LoadLiquidity(ctx, pairs, nil)
	if err != nil {
		return err
	}
	for i, p := range pairs {
		fmt.Fprintf(out, "%s  %s  %s\n", p.Address.Hex(), p.String(), liquidity[i].String())
	}
	return nil
}

func showHistory(ctx context.Context, network types.Network, address common.Address, out io.Writer) error {
	pair, err := types.NewUniswapV2(network).PairInfo(ctx, address)
	if err != nil {
		return err
	}
	history, err := pair.SwapHistory(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, pair.String())
	fmt.Fprintln(out, strings.Repeat("=", 80))
	for _, iv := range history.Intervals {
		fmt.Fprintf(out, "%s  open=%g close=%g min=%g max=%g txs=%d\n",
			iv.Start.Format(time.RFC3339), iv.Open, iv.Close, iv.Min, iv.Max, iv.TxCount)
	}
	return nil
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
