package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/innovinitylabs/onchain-rug-sub004/internal/core/config"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/core/domain"
	redisclient "github.com/innovinitylabs/onchain-rug-sub004/internal/infra/redis"
)

var resetCursorCmd = &cobra.Command{
	Use:   "reset-cursor [chain_id] [contract]",
	Short: "Reset the batch refresh cursor so the next run starts from token 0",
	Args:  cobra.ExactArgs(2),
	Run:   runResetCursor,
}

func init() {
	rootCmd.AddCommand(resetCursorCmd)
}

func runResetCursor(cmd *cobra.Command, args []string) {
	chainID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Printf("Invalid chain id: %v\n", err)
		os.Exit(1)
	}
	contract := domain.NewContractRef(chainID, args[1])

	cfg, err := config.Load(cfgPath)
	if err != nil {
		initLogger(slog.LevelInfo)
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	initLogger(slog.LevelInfo)

	rdb, err := redisclient.NewClient(cfg.Redis, redisclient.TTLConfig{})
	if err != nil {
		slog.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = rdb.Close()
	}()

	if err := rdb.DeleteCursor(context.Background(), contract); err != nil {
		slog.Error("Failed to reset cursor", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully reset refresh cursor for %s\n", contract)
}
