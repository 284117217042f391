package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/tmx-tools/tmx-downloader/internal/config"
	"github.com/tmx-tools/tmx-downloader/internal/tui"
)

func main() {
	_ = godotenv.Load()

	settings, err := config.Load(config.DefaultPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := tui.Run(settings); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
