package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/arena.tracker/internal/arena/capture"
	"github.com/banshee-data/arena.tracker/internal/config"
	"github.com/banshee-data/arena.tracker/internal/fsutil"
	"github.com/banshee-data/arena.tracker/internal/timeutil"
	"github.com/banshee-data/arena.tracker/internal/version"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	env, err := config.LoadEnv(".env")
	if err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{
		fs:     fsutil.OSFileSystem{},
		open:   capture.Open,
		clock:  timeutil.RealClock{},
		stdout: os.Stdout,
		env:    env,
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "track":
		err = a.handleTrack(ctx, args)
	case "batch":
		err = a.handleBatch(ctx, args)
	case "runs":
		err = a.handleRuns(ctx, args)
	case "version":
		fmt.Println(version.String("arena"))
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s: %v", command, err)
	}
}

func printUsage() {
	fmt.Println(`arena - subject tracking for fixed-camera arena videos

Usage: arena <command> [options]

Commands:
  track      Track the subject through one video
  batch      Track every video in a directory and pool the bin summaries
  runs       List runs stored in the database
  version    Show arena version
  help       Show this help message

Common Flags:
  --config <file>      Tracking configuration (JSON); defaults apply when omitted
  --db <file>          SQLite database to store runs in (optional)
  --out <dir>          Directory for CSV and plot outputs (default: .)
  --plots              Also write trace/heatmap PNGs and an HTML bin chart

Environment:
  ARENA_CONFIG, ARENA_DB and ARENA_OUT provide defaults for the flags
  above and may be set in a .env file in the working directory.

Examples:
  # Track one video with a config that defines two regions
  arena track --config config/example.arena.json --video trial1.avi --plots

  # Track every .mp4 in a directory and store the runs
  arena batch --config config/example.arena.json --dir videos --ext mp4 --db arena.db

  # List the ten most recent runs
  arena runs --db arena.db --limit 10`)
}
