package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jobforge/jobforge/internal/logger"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the search ledger: last run, call budget and run history",
	Run: func(cmd *cobra.Command, _ []string) {
		status(cmd)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().Bool("raw", false, "print the raw ledger JSON")
}

func status(cmd *cobra.Command) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	var ledgerCfg *LedgerConfig
	var callCap int
	if config != nil {
		ledgerCfg = config.Ledger
		if config.Search != nil {
			callCap = config.Search.Limits.PeriodCallCap
		}
	}

	ledger, err := ledgerStore(ledgerCfg).Read(context.Background())
	if err != nil {
		logger.Fatal("reading the ledger", zap.Error(err))
	}

	if cmd.Flag("raw").Value.String() == "true" {
		pretty, _ := json.MarshalIndent(ledger, "", "  ")
		fmt.Println(string(pretty))
		return
	}

	if ledger.LastRun.IsZero() {
		fmt.Println("no search runs recorded yet")
		return
	}

	fmt.Printf("last run:    %s (%s ago)\n", ledger.LastRun.Format(time.RFC3339), time.Since(ledger.LastRun).Round(time.Second))
	if callCap > 0 {
		fmt.Printf("calls used:  %d of %d (%d remaining)\n", ledger.CallsUsed, callCap, callCap-ledger.CallsUsed)
	} else {
		fmt.Printf("calls used:  %d\n", ledger.CallsUsed)
	}

	fmt.Printf("runs:        %d\n", len(ledger.Runs))
	for _, run := range ledger.Runs {
		fmt.Printf("  %s  calls=%-3d found=%-3d matched=%d\n",
			run.Timestamp.Format(time.RFC3339), run.Calls, run.Found, run.Matched)
	}
}
