package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"lunio/internal/config"
	"lunio/internal/index"
	"lunio/internal/logger"
)

var indexCmd = &cobra.Command{
	Use:   "index [root]",
	Short: "Run a one-shot index scan of root and print the resulting file count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		log, err := newDaemonLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Close()

		idxSvc, err := index.Open(cfg.DataDir, log, 8)
		if err != nil {
			return fmt.Errorf("opening index: %w", err)
		}
		defer idxSvc.Close()

		count, err := idxSvc.Scan(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("scanning %s: %w", args[0], err)
		}
		fmt.Printf("indexed %d files under %s\n", count, args[0])
		return nil
	},
}

func newDaemonLogger(cfg config.Config) (*logger.Logger, error) {
	return logger.New(logger.Config{
		Level:           logger.ParseLevel(cfg.Logging.Level),
		LogDir:          cfg.Logging.Dir,
		FileName:        "luniod.log",
		MaxFileSize:     20 * 1024 * 1024,
		MaxBackups:      10,
		ConsoleOutput:   cfg.Logging.ConsoleOutput,
		ConsoleColor:    cfg.Logging.ConsoleColor,
		AsyncBufferSize: 1000,
		BatchSize:       20,
		FlushInterval:   200,
	})
}
