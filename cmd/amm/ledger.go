package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammLedger/internal/ledger"
)

func newAssetCmd() *cobra.Command {
	assetCmd := &cobra.Command{
		Use:   "asset",
		Short: "Create and mint ledger assets",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register an asset with its mint authority",
		RunE:  runAssetCreate,
	}
	createCmd.Flags().String("asset", "", "asset address")
	createCmd.Flags().String("issuer", "", "mint authority address")
	createCmd.Flags().Uint8("decimals", 6, "asset decimals")

	mintCmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint asset units to an owner",
		RunE:  runAssetMint,
	}
	mintCmd.Flags().String("asset", "", "asset address")
	mintCmd.Flags().String("issuer", "", "mint authority address")
	mintCmd.Flags().String("to", "", "recipient address")
	mintCmd.Flags().Uint64("amount", 0, "amount in base units")

	assetCmd.AddCommand(createCmd, mintCmd)
	return assetCmd
}

func runAssetCreate(cmd *cobra.Command, _ []string) error {
	asset, err := addressFlag(cmd, "asset")
	if err != nil {
		return err
	}
	issuer, err := addressFlag(cmd, "issuer")
	if err != nil {
		return err
	}
	decimals, _ := cmd.Flags().GetUint8("decimals")

	s, err := openSession(cmd, nil, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signalContext()
	defer stop()

	err = s.store.Update(ctx, func(tx *ledger.Tx) error {
		return tx.CreateAsset(asset, issuer, decimals)
	})
	if err != nil {
		return err
	}
	s.logger.Info("asset created", zap.String("asset", asset.Hex()), zap.String("issuer", issuer.Hex()), zap.Uint8("decimals", decimals))
	return nil
}

func runAssetMint(cmd *cobra.Command, _ []string) error {
	asset, err := addressFlag(cmd, "asset")
	if err != nil {
		return err
	}
	issuer, err := addressFlag(cmd, "issuer")
	if err != nil {
		return err
	}
	to, err := addressFlag(cmd, "to")
	if err != nil {
		return err
	}
	amount, _ := cmd.Flags().GetUint64("amount")

	s, err := openSession(cmd, nil, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signalContext()
	defer stop()

	err = s.store.Update(ctx, func(tx *ledger.Tx) error {
		return tx.Mint(ledger.Signer(issuer), asset, to, amount)
	})
	if err != nil {
		return err
	}
	s.logger.Info("asset minted", zap.String("asset", asset.Hex()), zap.String("to", to.Hex()), zap.Uint64("amount", amount))
	return nil
}

func newBalanceCmd() *cobra.Command {
	balanceCmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the balance of an owner in an asset",
		RunE:  runBalance,
	}
	balanceCmd.Flags().String("owner", "", "owner address")
	balanceCmd.Flags().String("asset", "", "asset address")
	return balanceCmd
}

func runBalance(cmd *cobra.Command, _ []string) error {
	owner, err := addressFlag(cmd, "owner")
	if err != nil {
		return err
	}
	asset, err := addressFlag(cmd, "asset")
	if err != nil {
		return err
	}

	s, err := openSession(cmd, nil, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	var out struct {
		Owner    string `json:"owner"`
		Asset    string `json:"asset"`
		Balance  uint64 `json:"balance"`
		Decimals uint8  `json:"decimals"`
	}
	err = s.store.View(context.Background(), func(r ledger.Reader) error {
		info, err := r.Asset(asset)
		if err != nil {
			return err
		}
		bal, err := r.Balance(owner, asset)
		if err != nil {
			return err
		}
		out.Balance = bal
		out.Decimals = info.Decimals
		return nil
	})
	if err != nil {
		return err
	}
	out.Owner = owner.Hex()
	out.Asset = asset.Hex()
	return printJSON(cmd.OutOrStdout(), out)
}
