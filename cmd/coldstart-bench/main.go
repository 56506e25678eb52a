package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/streamfold/coldstart-bench/cmd/coldstart-bench/cmds"
)

func init() {
	logger := zap.Must(zap.NewProduction())
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger = zap.Must(zap.NewDevelopment())
	}
	zap.ReplaceGlobals(logger)
}

func main() {
	root := cmds.NewRootCmd()
	if err := root.Execute(); err != nil {
		zap.L().Fatal("Failed to execute root command", zap.Error(err))
	}
	os.Exit(0)
}
