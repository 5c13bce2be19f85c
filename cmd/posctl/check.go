package main

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check <quote-id>",
	Short: "show a single quote",
	Args:  cobra.ExactArgs(1),
	RunE:  doCheck,
}

func doCheck(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	var (
		amount    uint64
		unit      string
		state     string
		createdAt string
		updatedAt string
	)

	const query = `SELECT amount, unit, state, created_at, updated_at FROM quote WHERE id=?`
	err = db.QueryRow(query, args[0]).Scan(&amount, &unit, &state, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("quote %s not found", args[0])
	}
	if err != nil {
		return fmt.Errorf("query quote: %w", err)
	}

	fmt.Printf("id:      %s\n", args[0])
	fmt.Printf("amount:  %d %s\n", amount, unit)
	fmt.Printf("state:   %s\n", state)
	fmt.Printf("created: %s\n", createdAt)
	fmt.Printf("updated: %s\n", updatedAt)

	return nil
}
