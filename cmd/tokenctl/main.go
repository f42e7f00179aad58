// tokenctl deploys and administers a token hosted by a ledger node.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/urfave/cli.v1"

	"github.com/sheikh-saqib/custom-token-ledger/internal/client"
	"github.com/sheikh-saqib/custom-token-ledger/internal/config"
	"github.com/sheikh-saqib/custom-token-ledger/internal/logging"
	"github.com/sheikh-saqib/custom-token-ledger/internal/operator"
	"github.com/sheikh-saqib/custom-token-ledger/internal/signer"
)

var (
	app = cli.NewApp()

	networkFlag = cli.StringFlag{
		Name:  "network",
		Usage: "target network (local, mainnet, sepolia, unichain)",
	}
	rpcFlag = cli.StringFlag{
		Name:  "rpc",
		Usage: "node endpoint, overrides <NETWORK>_RPC_URL",
	}
	keyFlag = cli.StringFlag{
		Name:  "key",
		Usage: "operator private key (0x...), defaults to WALLET_PRIVATE_KEY",
	}
	envFileFlag = cli.StringFlag{
		Name:  "env",
		Value: ".env",
		Usage: "dotenv file to load before reading the environment",
	}
	timeoutFlag = cli.DurationFlag{
		Name:  "timeout",
		Value: 2 * time.Minute,
		Usage: "how long to wait for a transaction to be confirmed",
	}

	operatorConfig *config.Operator
)

func init() {
	app.Name = filepath.Base(os.Args[0])
	app.Usage = "deploy and administer a taxed token"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{networkFlag, rpcFlag, keyFlag, envFileFlag, timeoutFlag}
	app.Commands = []cli.Command{
		deployCommand,
		enableTradingCommand,
		setTaxFeeCommand,
		setTaxWalletCommand,
		setTxLimitCommand,
		setWalletLimitCommand,
		renounceOwnershipCommand,
		transferCommand,
		balanceCommand,
		infoCommand,
	}
	sort.Sort(cli.CommandsByName(app.Commands))
	app.Before = beforeAction
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func beforeAction(ctx *cli.Context) error {
	if err := config.LoadEnv(ctx.GlobalString(envFileFlag.Name)); err != nil {
		return err
	}
	operatorConfig = config.LoadOperator()
	logger, _ := logging.New(operatorConfig.LogLevel, "")
	slog.SetDefault(logger)
	return nil
}

// session is the per-command state: prompts, the chosen node and, once
// needed, the operator key.
type session struct {
	*operator.Session
	cli     *cli.Context
	network string
	client  *client.Client
}

func newSession(ctx *cli.Context) (*session, error) {
	s := &session{
		Session: &operator.Session{
			Prompter: operator.NewTerminalPrompter(),
			Out:      os.Stdout,
			Config:   operatorConfig,
		},
		cli: ctx,
	}

	network, err := s.Network(ctx.GlobalString(networkFlag.Name))
	if err != nil {
		s.Close()
		return nil, err
	}
	endpoint, err := s.Endpoint(network, ctx.GlobalString(rpcFlag.Name))
	if err != nil {
		s.Close()
		return nil, err
	}
	c, err := client.New(endpoint)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.network, s.client = network, c
	slog.Debug("using node", "network", network, "endpoint", endpoint)
	return s, nil
}

func (s *session) signer() (*signer.Signer, error) {
	return s.Signer(s.cli.GlobalString(keyFlag.Name))
}

// context bounds a command by the --timeout flag.
func (s *session) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.cli.GlobalDuration(timeoutFlag.Name))
}

func (s *session) Close() error {
	return s.Prompter.Close()
}
