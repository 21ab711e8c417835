package main

import (
	"context"

	"github.com/spf13/cobra"

	"ammLedger/internal/amm"
	"ammLedger/internal/replay"
)

func newPoolCmd() *cobra.Command {
	poolCmd := &cobra.Command{
		Use:   "pool",
		Short: "Create and inspect pools",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a pool for an asset pair",
		RunE:  runPoolInit,
	}
	initCmd.Flags().String("caller", "", "initializer address")
	initCmd.Flags().Uint64("seed", 0, "pool seed")
	initCmd.Flags().Uint16("fee-bps", 30, "swap fee in basis points")
	initCmd.Flags().String("authority", "", "optional pool authority address")
	initCmd.Flags().String("asset-x", "", "asset x address")
	initCmd.Flags().String("asset-y", "", "asset y address")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show pool state",
		RunE:  runPoolShow,
	}
	showCmd.Flags().Uint64("seed", 0, "pool seed")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Verify pool invariants against the ledger",
		RunE:  runPoolCheck,
	}
	checkCmd.Flags().Uint64("seed", 0, "pool seed")

	poolCmd.AddCommand(initCmd, showCmd, checkCmd)
	return poolCmd
}

func runPoolInit(cmd *cobra.Command, _ []string) error {
	caller, err := addressFlag(cmd, "caller")
	if err != nil {
		return err
	}
	assetX, err := addressFlag(cmd, "asset-x")
	if err != nil {
		return err
	}
	assetY, err := addressFlag(cmd, "asset-y")
	if err != nil {
		return err
	}
	rawAuthority, _ := cmd.Flags().GetString("authority")
	authority, err := replay.ParseOptionalAddress(rawAuthority)
	if err != nil {
		return err
	}
	seed, _ := cmd.Flags().GetUint64("seed")
	fee, _ := cmd.Flags().GetUint16("fee-bps")

	s, err := openSession(cmd, nil, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signalContext()
	defer stop()

	state, err := s.engine.Initialize(ctx, caller, amm.InitializeParams{
		Seed:      seed,
		FeeBps:    fee,
		Authority: authority,
		AssetX:    assetX,
		AssetY:    assetY,
	})
	if err != nil && !amm.IsCommitted(err) {
		return err
	}
	if printErr := printJSON(cmd.OutOrStdout(), state); printErr != nil {
		return printErr
	}
	return err
}

func runPoolShow(cmd *cobra.Command, _ []string) error {
	seed, _ := cmd.Flags().GetUint64("seed")

	s, err := openSession(cmd, nil, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	state, err := s.engine.Pool(context.Background(), seed)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), state)
}

func runPoolCheck(cmd *cobra.Command, _ []string) error {
	seed, _ := cmd.Flags().GetUint64("seed")

	s, err := openSession(cmd, nil, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.engine.CheckInvariants(context.Background(), seed); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]interface{}{"seed": seed, "ok": true})
}

func newDepositCmd() *cobra.Command {
	depositCmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit both assets and mint LP units",
		RunE:  runDeposit,
	}
	depositCmd.Flags().String("caller", "", "depositor address")
	depositCmd.Flags().Uint64("seed", 0, "pool seed")
	depositCmd.Flags().Uint64("lp-amount", 0, "LP units to mint")
	depositCmd.Flags().Uint64("max-x", 0, "maximum asset x to contribute")
	depositCmd.Flags().Uint64("max-y", 0, "maximum asset y to contribute")
	return depositCmd
}

func runDeposit(cmd *cobra.Command, _ []string) error {
	caller, err := addressFlag(cmd, "caller")
	if err != nil {
		return err
	}
	seed, _ := cmd.Flags().GetUint64("seed")
	lp, _ := cmd.Flags().GetUint64("lp-amount")
	maxX, _ := cmd.Flags().GetUint64("max-x")
	maxY, _ := cmd.Flags().GetUint64("max-y")

	s, err := openSession(cmd, nil, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signalContext()
	defer stop()

	out, err := s.engine.Deposit(ctx, caller, seed, lp, maxX, maxY)
	if err != nil && !amm.IsCommitted(err) {
		return err
	}
	if printErr := printJSON(cmd.OutOrStdout(), out); printErr != nil {
		return printErr
	}
	return err
}

func newSwapCmd() *cobra.Command {
	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap one pool asset for the other",
		RunE:  runSwap,
	}
	swapCmd.Flags().String("caller", "", "trader address")
	swapCmd.Flags().Uint64("seed", 0, "pool seed")
	swapCmd.Flags().Uint64("amount-in", 0, "input amount")
	swapCmd.Flags().Uint64("min-amount-out", 0, "minimum acceptable output")
	swapCmd.Flags().Bool("x-to-y", true, "sell asset x for asset y (false sells y for x)")
	return swapCmd
}

func runSwap(cmd *cobra.Command, _ []string) error {
	caller, err := addressFlag(cmd, "caller")
	if err != nil {
		return err
	}
	seed, _ := cmd.Flags().GetUint64("seed")
	amountIn, _ := cmd.Flags().GetUint64("amount-in")
	minOut, _ := cmd.Flags().GetUint64("min-amount-out")
	xToY, _ := cmd.Flags().GetBool("x-to-y")

	s, err := openSession(cmd, nil, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signalContext()
	defer stop()

	out, err := s.engine.Swap(ctx, caller, seed, amountIn, minOut, xToY)
	if err != nil && !amm.IsCommitted(err) {
		return err
	}
	if printErr := printJSON(cmd.OutOrStdout(), out); printErr != nil {
		return printErr
	}
	return err
}

func newWithdrawCmd() *cobra.Command {
	withdrawCmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Burn LP units for both pool assets",
		RunE:  runWithdraw,
	}
	withdrawCmd.Flags().String("caller", "", "LP holder address")
	withdrawCmd.Flags().Uint64("seed", 0, "pool seed")
	withdrawCmd.Flags().Uint64("lp-amount", 0, "LP units to burn")
	withdrawCmd.Flags().Uint64("min-x", 0, "minimum asset x to receive")
	withdrawCmd.Flags().Uint64("min-y", 0, "minimum asset y to receive")
	return withdrawCmd
}

func runWithdraw(cmd *cobra.Command, _ []string) error {
	caller, err := addressFlag(cmd, "caller")
	if err != nil {
		return err
	}
	seed, _ := cmd.Flags().GetUint64("seed")
	lp, _ := cmd.Flags().GetUint64("lp-amount")
	minX, _ := cmd.Flags().GetUint64("min-x")
	minY, _ := cmd.Flags().GetUint64("min-y")

	s, err := openSession(cmd, nil, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signalContext()
	defer stop()

	out, err := s.engine.Withdraw(ctx, caller, seed, lp, minX, minY)
	if err != nil && !amm.IsCommitted(err) {
		return err
	}
	if printErr := printJSON(cmd.OutOrStdout(), out); printErr != nil {
		return printErr
	}
	return err
}

func newQuoteCmd() *cobra.Command {
	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price an instruction against committed reserves without executing it",
	}

	swapCmd := &cobra.Command{
		Use:  "swap",
		RunE: runQuoteSwap,
	}
	swapCmd.Flags().Uint64("seed", 0, "pool seed")
	swapCmd.Flags().Uint64("amount-in", 0, "input amount")
	swapCmd.Flags().Bool("x-to-y", true, "sell asset x for asset y")

	depositCmd := &cobra.Command{
		Use:  "deposit",
		RunE: runQuoteDeposit,
	}
	depositCmd.Flags().Uint64("seed", 0, "pool seed")
	depositCmd.Flags().Uint64("lp-amount", 0, "LP units to mint")
	depositCmd.Flags().Uint64("max-x", 0, "maximum asset x")
	depositCmd.Flags().Uint64("max-y", 0, "maximum asset y")

	withdrawCmd := &cobra.Command{
		Use:  "withdraw",
		RunE: runQuoteWithdraw,
	}
	withdrawCmd.Flags().Uint64("seed", 0, "pool seed")
	withdrawCmd.Flags().Uint64("lp-amount", 0, "LP units to burn")

	quoteCmd.AddCommand(swapCmd, depositCmd, withdrawCmd)
	return quoteCmd
}

func runQuoteSwap(cmd *cobra.Command, _ []string) error {
	seed, _ := cmd.Flags().GetUint64("seed")
	amountIn, _ := cmd.Flags().GetUint64("amount-in")
	xToY, _ := cmd.Flags().GetBool("x-to-y")

	s, err := openSession(cmd, nil, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	out, err := s.engine.QuoteSwap(context.Background(), seed, amountIn, xToY)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]interface{}{"amount_in": amountIn, "amount_out": out, "x_to_y": xToY})
}

func runQuoteDeposit(cmd *cobra.Command, _ []string) error {
	seed, _ := cmd.Flags().GetUint64("seed")
	lp, _ := cmd.Flags().GetUint64("lp-amount")
	maxX, _ := cmd.Flags().GetUint64("max-x")
	maxY, _ := cmd.Flags().GetUint64("max-y")

	s, err := openSession(cmd, nil, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	x, y, err := s.engine.QuoteDeposit(context.Background(), seed, lp, maxX, maxY)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]interface{}{"lp_amount": lp, "amount_x": x, "amount_y": y})
}

func runQuoteWithdraw(cmd *cobra.Command, _ []string) error {
	seed, _ := cmd.Flags().GetUint64("seed")
	lp, _ := cmd.Flags().GetUint64("lp-amount")

	s, err := openSession(cmd, nil, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	x, y, err := s.engine.QuoteWithdraw(context.Background(), seed, lp)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]interface{}{"lp_amount": lp, "amount_x": x, "amount_y": y})
}
