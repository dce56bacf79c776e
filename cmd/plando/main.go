package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"plando/internal/cli"
)

var Version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to load .env: %v", err)
	}

	if err := cli.Execute(Version); err != nil {
		os.Exit(1)
	}
}
