package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"hackohio/quizd/internal/config"
)

var (
	v          = config.New()
	configFile string
	verbose    bool
	logger     = slog.Default()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "quizd",
	Short:         "Quiz and feedback front-end for an external JSON worker",
	Long:          `Serve quiz and feedback generation over HTTP, delegating the work to an external process spoken to over stdin/stdout.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
		if configFile != "" {
			v.SetConfigFile(configFile)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a quizd YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	rootCmd.PersistentFlags().String("worker", "", "Path to the worker entry point")
	rootCmd.PersistentFlags().StringSlice("candidates", nil, "Executables to try, in order")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Per-run worker timeout (0 disables)")
	_ = v.BindPFlag("worker.path", rootCmd.PersistentFlags().Lookup("worker"))
	_ = v.BindPFlag("worker.candidates", rootCmd.PersistentFlags().Lookup("candidates"))
	_ = v.BindPFlag("worker.timeout", rootCmd.PersistentFlags().Lookup("timeout"))

	rootCmd.AddCommand(serveCmd, invokeCmd, smokeCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("quizd failed", slog.Any("error", err))
		os.Exit(1)
	}
}
