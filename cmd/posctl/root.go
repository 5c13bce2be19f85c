package main

import (
	"database/sql"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/mattn/go-sqlite3"
)

var (
	dbPath string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "", "cashu-pos.db", "path to the quote database")
}

var rootCmd = &cobra.Command{
	Use:   "posctl",
	Short: "cashu pos CLI",
	Run: func(cmd *cobra.Command, args []string) {
	},
}

func openDB() (*sql.DB, error) {
	return sql.Open("sqlite3", dbPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
