package main

import (
	"context"
	"os"

	"evcal/internal/commands"
	appLog "evcal/internal/log"
)

func main() {
	if err := commands.New().ExecuteContext(context.Background()); err != nil {
		appLog.Error("evcal failed", err)
		os.Exit(1)
	}
}
