// Command analyzer runs the minute analysis pass standalone, for deployments
// that keep the comprehensive analyzer out of the engine process.
package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/finsig/sentimentd/config"
	"github.com/finsig/sentimentd/database"
	"github.com/finsig/sentimentd/news"
	"github.com/finsig/sentimentd/sentiment"
	"github.com/finsig/sentimentd/shared/zaplogger"
)

func main() {
	var once bool
	var intervalSecs int

	rootCmd := &cobra.Command{
		Use:   "analyzer",
		Short: "Runs the minute sentiment analysis pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(once, time.Duration(intervalSecs)*time.Second)
		},
	}
	rootCmd.Flags().BoolVar(&once, "once", false, "run one pass and exit")
	rootCmd.Flags().IntVar(&intervalSecs, "interval", 60, "seconds between passes")

	if err := rootCmd.Execute(); err != nil {
		zaplogger.Error("analyzer failed", zaplogger.Fields{"error": err.Error()})
		os.Exit(1)
	}
}

func run(once bool, interval time.Duration) error {
	defer zaplogger.Sync()

	cfg, err := config.Get()
	if err != nil {
		return err
	}
	zaplogger.SetLogLevel(cfg.ServerLogLevel)

	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		return err
	}

	analyzer := sentiment.NewAnalyzer(
		cfg.InstrumentSymbol,
		sentiment.NewRepository(db),
		news.NewRepository(db),
		cfg.SnapshotFreshSeconds(),
	)

	if once {
		return analyzer.RunOnce(time.Now())
	}

	zaplogger.Info("Analyzer running", zaplogger.Fields{
		"symbol":   cfg.InstrumentSymbol,
		"interval": interval.String(),
	})
	for {
		if err := analyzer.RunOnce(time.Now()); err != nil {
			zaplogger.Error("Minute analysis failed", zaplogger.Fields{"error": err.Error()})
		}
		time.Sleep(interval)
	}
}
