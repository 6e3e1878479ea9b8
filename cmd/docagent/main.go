package main

import (
	"github.com/joho/godotenv"

	"docagent/internal/cli"
)

func main() {
	// API keys may come from a local .env file; a missing file is fine.
	_ = godotenv.Load()

	cli.Execute()
}
