package main

import (
	"github.com/joho/godotenv"

	"finrag/internal/cli"
)

func main() {
	// Load provider credentials from .env when present.
	_ = godotenv.Load()

	cli.Execute()
}
