package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vst-systems/gm-controller/db"
)

func main() {
	var dbPath, command, key, value string
	var limit int
	flag.StringVar(&dbPath, "db", "data/gm.db", "Path to the SQLite database file")
	flag.StringVar(&command, "cmd", "", "Command to run: get-setting, set-setting, recent-cycles")
	flag.StringVar(&key, "key", "", "Setting key")
	flag.StringVar(&value, "value", "", "Setting value for set-setting")
	flag.IntVar(&limit, "limit", 10, "Number of cycle events to show")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help || command == "" {
		fmt.Println("\nUsage of gm-debug:")
		fmt.Println("  -db string\tPath to the SQLite database file (default 'data/gm.db')")
		fmt.Println("  -cmd string\tCommand to run: get-setting, set-setting, recent-cycles")
		fmt.Println("  -key string\tSetting key")
		fmt.Println("  -value string\tSetting value for set-setting")
		fmt.Println("  -limit int\tNumber of cycle events to show")
		os.Exit(0)
	}

	conn, err := db.Open(dbPath)
	if err != nil {
		fmt.Printf("Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	switch command {
	case "get-setting":
		if key == "" {
			fmt.Println("Error: key is required")
			os.Exit(1)
		}
		val, ok, err := db.GetSetting(conn, key)
		if err != nil {
			fmt.Printf("Command failed: %v\n", err)
			os.Exit(1)
		}
		if !ok {
			fmt.Printf("%s is not set\n", key)
			os.Exit(0)
		}
		fmt.Printf("%s = %s\n", key, val)
	case "set-setting":
		if key == "" {
			fmt.Println("Error: key is required")
			os.Exit(1)
		}
		if err := db.PutSetting(conn, key, value); err != nil {
			fmt.Printf("Command failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s = %s\n", key, value)
	case "recent-cycles":
		events, err := db.RecentCycleEvents(conn, limit)
		if err != nil {
			fmt.Printf("Command failed: %v\n", err)
			os.Exit(1)
		}
		for _, e := range events {
			fmt.Printf("%s\t%s\n", e.StartedAt.Format("2006-01-02 15:04:05"), e.Sequence)
		}
	default:
		fmt.Println("Invalid command")
		os.Exit(1)
	}
}
