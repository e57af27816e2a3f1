package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"tradelens/internal/cli"
)

func main() {
	// API keys come from the environment; a .env file is optional.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: error loading .env file: %v", err)
	}

	cli.Execute()
}
