package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/thatsimonsguy/irrigation-controller/db"
	"github.com/thatsimonsguy/irrigation-controller/internal/config"
	"github.com/thatsimonsguy/irrigation-controller/system/startup"
)

func main() {
	DebugCLI()
}

func DebugCLI() {
	var dbPath, command, configFile, olderThan string
	var limit int
	flag.StringVar(&dbPath, "db", "data/irrigation.db", "Path to the SQLite database file")
	flag.StringVar(&command, "cmd", "", "Command to run: recent-dispatches, pipe-totals, low-power-history, prune-dispatches, write-boot-script, run-boot-script")
	flag.IntVar(&limit, "limit", 20, "Number of records to show")
	flag.StringVar(&olderThan, "older-than", "720h", "Age cutoff for prune-dispatches")
	flag.StringVar(&configFile, "config-file", "config.json", "Controller config file for write-boot-script and run-boot-script")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help || command == "" {
		fmt.Println("\nUsage of irrigation-debug:")
		fmt.Println("  -db string\tPath to the SQLite database file (default 'data/irrigation.db')")
		fmt.Println("  -cmd string\tCommand to run: recent-dispatches, pipe-totals, low-power-history, prune-dispatches, write-boot-script, run-boot-script")
		fmt.Println("  -limit int\tNumber of records to show (default 20)")
		fmt.Println("  -older-than duration\tAge cutoff for prune-dispatches (default 720h)")
		fmt.Println("  -config-file string\tController config file for write-boot-script and run-boot-script")
		fmt.Println("  -help\tShow this help message")
		os.Exit(0)
	}

	var err error
	switch command {
	case "recent-dispatches":
		err = db.RecentDispatchesCLI(os.Stdout, dbPath, limit)
	case "pipe-totals":
		err = db.PipeTotalsCLI(os.Stdout, dbPath)
	case "low-power-history":
		err = db.LowPowerHistoryCLI(os.Stdout, dbPath, limit)
	case "prune-dispatches":
		var age time.Duration
		age, err = time.ParseDuration(olderThan)
		if err == nil {
			err = db.PruneDispatchesCLI(os.Stdout, dbPath, age)
		}
	case "write-boot-script":
		err = writeBootScript(configFile)
	case "run-boot-script":
		err = runBootScript(configFile)
	default:
		fmt.Println("Invalid command")
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Command %s failed: %v\n", command, err)
		os.Exit(1)
	}
	fmt.Printf("Command %s completed successfully\n", command)
}

func writeBootScript(configFile string) error {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return err
	}
	if err := startup.WriteStartupScript(cfg.BootScriptPath, cfg.ValveList()); err != nil {
		return err
	}
	if cfg.OSServicePath != "" {
		if err := startup.InstallStartupService(cfg.BootScriptPath, cfg.OSServicePath); err != nil {
			return err
		}
	}
	if cfg.MainServicePath != "" && cfg.OSServicePath != "" {
		binary, err := os.Executable()
		if err != nil {
			return err
		}
		binary = filepath.Join(filepath.Dir(binary), "irrigation-controller")
		if err := startup.InstallIrrigationService(cfg.MainServicePath, cfg.OSServicePath, binary, configFile); err != nil {
			return err
		}
	}
	return nil
}

// runBootScript drives every valve closed by hand, the same way the boot unit does.
func runBootScript(configFile string) error {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.BootScriptPath); err != nil {
		return fmt.Errorf("boot script not found, run write-boot-script first: %w", err)
	}
	return startup.RunStartupScript(cfg.BootScriptPath)
}
