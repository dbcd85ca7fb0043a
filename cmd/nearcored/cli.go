package main

import (
	"context"
	"fmt"
	"os"

	"nearcore/internal/store"
)

// RunCLI handles subcommand execution. Returns true if a subcommand was
// handled, mirroring the teacher's server/cli.go dispatch shape.
func RunCLI(args []string, dbPath string) bool {
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "version":
		fmt.Printf("nearcored %s\n", Version)
		return true
	case "events":
		return cliEvents(args[1:], dbPath)
	default:
		return false
	}
}

func cliEvents(args []string, dbPath string) bool {
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: nearcored events <client-id> [limit]\n")
		os.Exit(1)
	}
	clientID := args[0]
	limit := 20
	if len(args) > 1 {
		if n, err := parseLimit(args[1]); err == nil {
			limit = n
		}
	}

	st, err := store.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	events, err := st.RecentEvents(context.Background(), clientID, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(events) == 0 {
		fmt.Println("No events found.")
		return true
	}
	for _, ev := range events {
		fmt.Printf("  [%s] %s endpoint=%s detail=%s\n", ev.Timestamp.Format("2006-01-02T15:04:05"), ev.Event, ev.EndpointID, ev.Detail)
	}
	return true
}

func parseLimit(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}
