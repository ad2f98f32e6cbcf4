/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cli

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"resonant/internal/api"
	"resonant/internal/runner"
	"resonant/internal/timer"
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("name", "n", "resonant", "Runner name")
	runCmd.Flags().StringP("addr", "a", "localhost", "Address to listen on")
	runCmd.Flags().IntP("port", "p", 5555, "Port to listen on")
	runCmd.Flags().String("db", "memory", "Event store type [\"memory\", \"persistent\"]")
	runCmd.Flags().Float64("stability-threshold", 0.95, "Per-task admission threshold")
	runCmd.Flags().Float64("max-load", 0, "Hold dispatch above this 1-minute load average (0 disables)")
	runCmd.Flags().Duration("tick", 100*time.Millisecond, "Loop tick")
	runCmd.Flags().String("precision", "high", "Timer precision [\"high\", \"medium\", \"low\"]")

	viper.BindPFlags(runCmd.Flags())
	viper.SetEnvPrefix("resonant")
	viper.AutomaticEnv()

	viper.SetConfigName("resonant")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("unable to read config file: %v", err)
		}
	}
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run command to start the scheduler loop.",
	Long: `resonant run command.

The run command starts the scheduling loop and serves the inspection API.`,
	Run: func(cmd *cobra.Command, args []string) {
		name := viper.GetString("name")
		db := viper.GetString("db")

		rnr, err := runner.New(name, db)
		if err != nil {
			log.Fatal(err)
		}
		rnr.Scheduler.SetStabilityThreshold(viper.GetFloat64("stability-threshold"))
		rnr.MaxLoad = viper.GetFloat64("max-load")
		if p := timer.ParsePrecision(viper.GetString("precision")); p != rnr.Timer.Precision() {
			rnr.Timer = timer.NewWithPrecision(p)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		go rnr.Run(ctx, viper.GetDuration("tick"))
		go rnr.CollectStats(ctx, 15*time.Second)

		a := api.Api{
			Address: viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Runner:  rnr,
		}
		log.Printf("starting %s API on %s:%d", name, a.Address, a.Port)
		if err := a.Start(); err != nil {
			log.Fatal(err)
		}
	},
}
