package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"gopkg.in/urfave/cli.v1"

	"github.com/sheikh-saqib/custom-token-ledger/internal/models"
	"github.com/sheikh-saqib/custom-token-ledger/internal/operator"
	"github.com/sheikh-saqib/custom-token-ledger/internal/units"
)

var (
	deployCommand = cli.Command{
		Name:   "deploy",
		Usage:  "deploy the token and record it in the deployment log",
		Action: deployAction,
		Flags: []cli.Flag{
			cli.StringFlag{Name: "name", Usage: "token name"},
			cli.StringFlag{Name: "symbol", Usage: "token symbol"},
			cli.StringFlag{Name: "supply", Usage: "initial supply in whole tokens"},
			cli.StringFlag{Name: "tax", Usage: "tax percentage (0-10)"},
			cli.StringFlag{Name: "tax-wallet", Usage: "address receiving the tax"},
			cli.StringFlag{Name: "max-tx", Usage: "max transaction amount in whole tokens"},
			cli.StringFlag{Name: "max-wallet", Usage: "max wallet amount in whole tokens"},
			cli.StringFlag{Name: "decimals", Usage: "token decimals (usually 18)"},
		},
	}
	enableTradingCommand = cli.Command{
		Name:   "enable-trading",
		Usage:  "open transfers to every holder",
		Action: ownerAction(models.KindEnableTrading),
	}
	renounceOwnershipCommand = cli.Command{
		Name:   "renounce-ownership",
		Usage:  "give up ownership for good",
		Action: ownerAction(models.KindRenounceOwnership),
	}
	setTaxFeeCommand = cli.Command{
		Name:   "set-tax-fee",
		Usage:  "change the transfer tax percentage",
		Action: setTaxFeeAction,
		Flags:  []cli.Flag{cli.StringFlag{Name: "percentage", Usage: "new tax percentage (0-10)"}},
	}
	setTaxWalletCommand = cli.Command{
		Name:   "set-tax-wallet",
		Usage:  "change the address receiving the tax",
		Action: setTaxWalletAction,
		Flags:  []cli.Flag{cli.StringFlag{Name: "wallet", Usage: "new tax wallet address"}},
	}
	setTxLimitCommand = cli.Command{
		Name:   "set-tx-limit",
		Usage:  "change the max transaction amount",
		Action: limitAction(models.KindSetMaxTxAmount, "Enter the new max transaction amount: "),
		Flags:  []cli.Flag{cli.StringFlag{Name: "amount", Usage: "whole tokens"}},
	}
	setWalletLimitCommand = cli.Command{
		Name:   "set-wallet-limit",
		Usage:  "change the max wallet amount",
		Action: limitAction(models.KindSetMaxWalletAmount, "Enter the new max wallet amount: "),
		Flags:  []cli.Flag{cli.StringFlag{Name: "amount", Usage: "whole tokens"}},
	}
	transferCommand = cli.Command{
		Name:   "transfer",
		Usage:  "send tokens from the operator account",
		Action: transferAction,
		Flags: []cli.Flag{
			cli.StringFlag{Name: "to", Usage: "recipient address"},
			cli.StringFlag{Name: "amount", Usage: "amount in tokens, fractions allowed"},
		},
	}
	balanceCommand = cli.Command{
		Name:   "balance",
		Usage:  "show the balance of an account",
		Action: balanceAction,
		Flags:  []cli.Flag{cli.StringFlag{Name: "account", Usage: "account address"}},
	}
	infoCommand = cli.Command{
		Name:   "info",
		Usage:  "show the token configuration",
		Action: infoAction,
	}
)

func deployAction(ctx *cli.Context) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	prompts := []struct {
		flag     string
		question string
		validate operator.Validator
	}{
		{"name", "Enter the token name: ", operator.ValidateRequired},
		{"symbol", "Enter the token symbol: ", operator.ValidateRequired},
		{"supply", "Enter the initial supply (must be a positive number): ", operator.ValidateInitialSupply},
		{"tax", "Enter the tax percentage (0-10): ", operator.ValidateTaxPercentage},
		{"tax-wallet", "Enter the tax wallet address: ", operator.ValidateAddress},
		{"max-tx", "Enter the max transaction amount: ", operator.ValidateWholeAmount},
		{"max-wallet", "Enter the max wallet amount: ", operator.ValidateWholeAmount},
		{"decimals", "Enter the token decimals (usually 18): ", operator.ValidateDecimals},
	}
	in := make(map[string]string, len(prompts))
	for _, p := range prompts {
		if in[p.flag], err = s.Ask(ctx.String(p.flag), p.question, p.validate); err != nil {
			return err
		}
	}

	params := &models.DeployParams{
		Name:      in["name"],
		Symbol:    in["symbol"],
		TaxWallet: common.HexToAddress(in["tax-wallet"]),
	}
	if params.InitialSupply, err = units.ParseWhole(in["supply"]); err != nil {
		return err
	}
	if params.MaxTxAmount, err = units.ParseWhole(in["max-tx"]); err != nil {
		return err
	}
	if params.MaxWalletAmount, err = units.ParseWhole(in["max-wallet"]); err != nil {
		return err
	}
	// both already validated as uint8
	taxValue, _ := strconv.ParseUint(in["tax"], 10, 8)
	decimalsValue, _ := strconv.ParseUint(in["decimals"], 10, 8)
	params.TaxPercentage, params.Decimals = uint8(taxValue), uint8(decimalsValue)

	sg, err := s.signer()
	if err != nil {
		return err
	}
	cctx, cancel := s.context()
	defer cancel()

	fmt.Fprintln(s.Out, "Deploying token...")
	receipt, err := operator.Execute(cctx, s.client, sg, models.Operation{Kind: models.KindDeploy, Deploy: params}, s.Out)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.Out, "Deployed to: %s\n", receipt.Contract.Hex())

	rec := operator.DeploymentRecord{
		CreationDate:    time.Now().UTC(),
		Network:         s.network,
		TokenName:       params.Name,
		TokenSymbol:     params.Symbol,
		InitialSupply:   in["supply"],
		TaxPercentage:   in["tax"],
		TaxWallet:       params.TaxWallet,
		MaxTxAmount:     in["max-tx"],
		MaxWalletAmount: in["max-wallet"],
		Decimals:        in["decimals"],
		ContractAddress: receipt.Contract,
		DeployerAddress: sg.Address(),
		TransactionHash: receipt.TxHash,
		BlockNumber:     receipt.BlockNumber,
	}
	if err := operator.RecordDeployment(s.Config.DeploymentLog, rec); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(s.Out, "Deployment details saved to %s\n", s.Config.DeploymentLog)
	return nil
}

// ownerAction runs an operation that takes no arguments.
func ownerAction(kind models.Kind) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()
		return submit(s, models.Operation{Kind: kind})
	}
}

func setTaxFeeAction(ctx *cli.Context) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	v, err := s.Ask(ctx.String("percentage"), "Enter the new tax percentage (0-10): ", operator.ValidateTaxPercentage)
	if err != nil {
		return err
	}
	p, _ := strconv.ParseUint(v, 10, 8)
	tax := uint8(p)
	return submit(s, models.Operation{Kind: models.KindSetTaxPercentage, TaxPercentage: &tax})
}

func setTaxWalletAction(ctx *cli.Context) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	v, err := s.Ask(ctx.String("wallet"), "Enter the new tax wallet address: ", operator.ValidateAddress)
	if err != nil {
		return err
	}
	wallet := common.HexToAddress(v)
	return submit(s, models.Operation{Kind: models.KindSetTaxWallet, Wallet: &wallet})
}

func limitAction(kind models.Kind, question string) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		v, err := s.Ask(ctx.String("amount"), question, operator.ValidateWholeAmount)
		if err != nil {
			return err
		}
		amount, err := units.ParseWhole(v)
		if err != nil {
			return err
		}
		return submit(s, models.Operation{Kind: kind, Amount: amount})
	}
}

func transferAction(ctx *cli.Context) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	to, err := s.Ask(ctx.String("to"), "Enter the recipient address: ", operator.ValidateAddress)
	if err != nil {
		return err
	}
	v, err := s.Ask(ctx.String("amount"), "Enter the amount: ", operator.ValidateAmount)
	if err != nil {
		return err
	}

	cctx, cancel := s.context()
	defer cancel()
	info, err := s.client.Info(cctx)
	if err != nil {
		return err
	}
	amount, err := units.Parse(v, info.Decimals)
	if err != nil {
		return err
	}
	recipient := common.HexToAddress(to)
	return submit(s, models.Operation{Kind: models.KindTransfer, To: &recipient, Amount: amount})
}

func balanceAction(ctx *cli.Context) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	v, err := s.Ask(ctx.String("account"), "Enter the account address: ", operator.ValidateAddress)
	if err != nil {
		return err
	}
	cctx, cancel := s.context()
	defer cancel()
	bal, err := s.client.Balance(cctx, common.HexToAddress(v))
	if err != nil {
		return err
	}
	fmt.Fprintf(s.Out, "%s %s (%s smallest units)\n", bal.Formatted, bal.Symbol, bal.Balance.Dec())
	return nil
}

func infoAction(ctx *cli.Context) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	cctx, cancel := s.context()
	defer cancel()
	info, err := s.client.Info(cctx)
	if err != nil {
		return err
	}
	rows := [][2]string{
		{"Contract", info.Contract.Hex()},
		{"Name", info.Name},
		{"Symbol", info.Symbol},
		{"Decimals", strconv.Itoa(int(info.Decimals))},
		{"Total supply", units.Format(info.TotalSupply, info.Decimals)},
		{"Owner", info.Owner.Hex()},
		{"Tax", fmt.Sprintf("%d%% to %s", info.TaxPercentage, info.TaxWallet.Hex())},
		{"Max transaction", units.Format(info.MaxTxAmount, info.Decimals)},
		{"Max wallet", units.Format(info.MaxWalletAmount, info.Decimals)},
		{"Trading enabled", strconv.FormatBool(info.TradingEnabled)},
		{"Block", strconv.FormatUint(info.BlockNumber, 10)},
	}
	rec, err := operator.FindDeployment(s.Config.DeploymentLog, s.network, info.Contract)
	if err != nil {
		return err
	}
	if rec != nil {
		rows = append(rows,
			[2]string{"Deployed", rec.CreationDate.Format(time.RFC3339)},
			[2]string{"Deploy tx", rec.TransactionHash.Hex()},
		)
	}
	label := color.New(color.Bold)
	for _, r := range rows {
		fmt.Fprintf(s.Out, "%s %s\n", label.Sprintf("%-16s", r[0]+":"), r[1])
	}
	return nil
}

func submit(s *session, op models.Operation) error {
	sg, err := s.signer()
	if err != nil {
		return err
	}
	cctx, cancel := s.context()
	defer cancel()
	_, err = operator.Execute(cctx, s.client, sg, op, s.Out)
	return err
}
