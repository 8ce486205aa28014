package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nanocore-vm/nanocore/api"
	"github.com/nanocore-vm/nanocore/config"
	"github.com/nanocore-vm/nanocore/debugger"
	"github.com/nanocore-vm/nanocore/loader"
	"github.com/nanocore-vm/nanocore/vm"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		debugMode   = flag.Bool("debug", false, "Print each instruction's PC and break on armed addresses")
		apiServer   = flag.Bool("api-server", false, "Start HTTP API server mode")
		listenAddr  = flag.String("listen", "", "API server listen address (used with -api-server, overrides config)")
		memorySize  = flag.Uint64("memory-size", 0, "VM memory size in bytes (used with -memory-size, overrides config)")
		maxInstr    = flag.Uint64("max-instructions", 0, "Maximum instructions before run stops (0 = unbounded)")
		entryAddr   = flag.Uint64("entry", 0, "Entry point / load address (default: 0x10000)")
		breakAddrs  = flag.String("break", "", "Comma-separated breakpoint addresses (hex with 0x prefix or decimal)")
		verboseMode = flag.Bool("verbose", false, "Verbose output")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("NanoCore %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("Commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("Built: %s\n", Date)
		}
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.API.ListenAddress = *listenAddr
	}
	if *memorySize != 0 {
		cfg.Execution.DefaultMemorySize = *memorySize
	}
	if *maxInstr != 0 {
		cfg.Execution.MaxInstructions = *maxInstr
	}

	if *apiServer {
		runAPIServer(cfg)
		return
	}

	if flag.NArg() == 0 {
		printHelp()
		os.Exit(0)
	}

	programFile := flag.Arg(0)
	if _, err := os.Stat(programFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: File not found: %s\n", programFile)
		os.Exit(1)
	}

	loadAddr := *entryAddr
	if loadAddr == 0 {
		loadAddr = vm.DefaultLoadAddress
	}

	machine, err := vm.New(cfg.Execution.DefaultMemorySize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating VM: %v\n", err)
		os.Exit(1)
	}

	if *verboseMode {
		fmt.Printf("Loading program: %s (memory_size=%d, load address=0x%X)\n",
			programFile, cfg.Execution.DefaultMemorySize, loadAddr)
	}

	if err := loader.LoadFile(machine, programFile, loadAddr); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	dbg := debugger.NewDebugger(machine)
	if err := armBreakpoints(dbg, *breakAddrs); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -break: %v\n", err)
		os.Exit(1)
	}

	if *debugMode || *breakAddrs != "" {
		runWithDebugger(machine, dbg, cfg, *debugMode || *verboseMode)
	} else {
		runDirect(machine, cfg, *verboseMode)
	}
}

// runDirect executes the loaded program to completion using the Core's
// own Run loop, with no host-side single-stepping (spec §6.1, vm_run).
func runDirect(machine *vm.VM, cfg *config.Config, verbose bool) {
	if verbose {
		fmt.Println("Starting execution...")
	}

	event := machine.Run(cfg.Execution.MaxInstructions)

	if verbose {
		fmt.Println("Execution complete")
		fmt.Printf("Event: %s\n", event)
		fmt.Printf("PC: 0x%X\n", machine.CPU.PC)
		fmt.Printf("Instructions retired: %d\n", machine.CPU.PerfCounters[vm.PerfInstructionsRetired])
	}

	if event == vm.EventException {
		os.Exit(1)
	}
}

// runWithDebugger single-steps the program, printing PC and event after
// each step when verbose, reporting every stop ShouldBreak detects, and
// returning at the first breakpoint the Core reports (spec §6.5,
// supplemented debugger control layer over the Core's plain Step/Run).
func runWithDebugger(machine *vm.VM, dbg *debugger.Debugger, cfg *config.Config, verbose bool) {
	dbg.Running = true
	var count uint64

	for dbg.Running {
		if stop, reason := dbg.ShouldBreak(); stop {
			fmt.Printf("Stopped at PC=0x%X (%s)\n", machine.CPU.PC, reason)
		}

		event := machine.Step()

		if verbose {
			fmt.Printf("PC=0x%X event=%s\n", machine.CPU.PC, event)
		}

		switch event {
		case vm.EventHalted:
			fmt.Println("Program halted")
			return
		case vm.EventBreakpoint:
			fmt.Printf("Breakpoint hit at PC=0x%X\n", machine.CPU.PC)
			return
		case vm.EventException:
			fmt.Fprintf(os.Stderr, "Exception at PC=0x%X\n", machine.CPU.PC)
			os.Exit(1)
		}

		count++
		if cfg.Execution.MaxInstructions > 0 && count >= cfg.Execution.MaxInstructions {
			fmt.Println("Instruction limit reached")
			return
		}
	}
}

func armBreakpoints(dbg *debugger.Debugger, spec string) error {
	if spec == "" {
		return nil
	}
	for _, tok := range splitComma(spec) {
		addr, err := parseAddress(tok)
		if err != nil {
			return fmt.Errorf("invalid address %q: %w", tok, err)
		}
		if _, err := dbg.Arm(addr, false, ""); err != nil {
			return fmt.Errorf("arming 0x%X: %w", addr, err)
		}
	}
	return nil
}

func splitComma(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func parseAddress(s string) (uint64, error) {
	var addr uint64
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		if _, err := fmt.Sscanf(s, "0x%X", &addr); err != nil {
			return 0, err
		}
		return addr, nil
	}
	if _, err := fmt.Sscanf(s, "%d", &addr); err != nil {
		return 0, err
	}
	return addr, nil
}

// runAPIServer starts the HTTP+WebSocket embedding front-end (spec §6.6)
// and blocks until it receives a shutdown signal or its parent process
// dies.
func runAPIServer(cfg *config.Config) {
	server := api.NewServer(cfg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var shutdownOnce sync.Once
	performShutdown := func() {
		shutdownOnce.Do(func() {
			fmt.Println("\nShutting down API server...")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
				os.Exit(1)
			}

			fmt.Println("API server stopped")
			os.Exit(0)
		})
	}

	monitor := api.NewProcessMonitor(performShutdown)
	monitor.Start()

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "API server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-sigChan
	performShutdown()
}

func printHelp() {
	fmt.Printf(`NanoCore %s

Usage: nanocore [options] <program-file>
       nanocore -api-server [-listen ADDR]

Options:
  -help                Show this help message
  -version             Show version information
  -api-server          Start HTTP API server mode (no program file required)
  -listen ADDR         API server listen address (default: from config, 127.0.0.1:7777)
  -memory-size N       VM memory size in bytes (default: from config)
  -max-instructions N  Maximum instructions before run stops (0 = unbounded)
  -entry ADDR          Load address / entry point (default: 0x10000)
  -break ADDRS         Comma-separated breakpoint addresses (hex 0x.. or decimal)
  -debug               Single-step and print PC/event for every instruction
  -verbose             Verbose output

Examples:
  # Start the API server
  nanocore -api-server
  nanocore -api-server -listen 127.0.0.1:9000

  # Run a program directly
  nanocore program.bin

  # Run with a breakpoint and single-step tracing
  nanocore -debug -break 0x10008 program.bin

For design notes, see DESIGN.md and SPEC_FULL.md in the source tree.
`, Version)
}
