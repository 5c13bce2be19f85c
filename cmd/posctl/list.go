package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	listState string
	listLimit int
)

func init() {
	listCmd.Flags().StringVarP(&listState, "state", "", "", "filter by state: Unpaid or Paid")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "max quotes to list")

	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list quotes from the pos database",
	RunE:  doList,
}

func doList(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	query := `SELECT id, amount, unit, state, created_at FROM quote`
	params := []any{}
	if listState != "" {
		query += ` WHERE state=?`
		params = append(params, listState)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	params = append(params, listLimit)

	rows, err := db.Query(query, params...)
	if err != nil {
		return fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	fmt.Printf("ID\tAmount\tUnit\tState\tCreated\n")

	for rows.Next() {
		var (
			id        string
			amount    uint64
			unit      string
			state     string
			createdAt string
		)
		if err := rows.Scan(&id, &amount, &unit, &state, &createdAt); err != nil {
			return fmt.Errorf("scan quote: %w", err)
		}

		fmt.Printf("%s\t%d\t%s\t%s\t%s\n", id, amount, unit, state, createdAt)
	}

	return rows.Err()
}
