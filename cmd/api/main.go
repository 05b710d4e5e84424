package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "insuite-api",
	Short: "Inventory and sales tracking API",
	RunE:  runServe,
}

func main() {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using environment")
	}
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
