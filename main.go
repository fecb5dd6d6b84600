package main

import (
	"os"

	_ "github.com/nosan/embedded-cassandra-sub005/cmd"
	"github.com/nosan/embedded-cassandra-sub005/cmd/root"
	"github.com/nosan/embedded-cassandra-sub005/internal/logger"
)

func main() {
	if err := root.RootCmd.Execute(); err != nil {
		logger.Fatal(err)
	}
	os.Exit(0)
}
