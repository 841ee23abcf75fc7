package main

import (
	"context"
	"os"

	"github.com/klabast/wb-services/dday-bot/internal/commands"
)

func main() {
	if err := commands.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
