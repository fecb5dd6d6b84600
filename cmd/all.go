package cmd

import (
	_ "github.com/nosan/embedded-cassandra-sub005/cmd/node"
	_ "github.com/nosan/embedded-cassandra-sub005/cmd/root"
	_ "github.com/nosan/embedded-cassandra-sub005/cmd/run"
	_ "github.com/nosan/embedded-cassandra-sub005/cmd/server"
)
