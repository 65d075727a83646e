package main

import (
	"fmt"
	"os"

	"github.com/ironsheep/docscan-mcp/internal/config"
	"github.com/ironsheep/docscan-mcp/internal/logging"
	"github.com/ironsheep/docscan-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("docscan-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("docscan-mcp - MCP server for scanning photographed documents")
			fmt.Println()
			fmt.Println("Usage: docscan-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables (also read from .env or $DOCSCAN_ENV_FILE):")
			fmt.Println("  DOCSCAN_LOG_LEVEL=debug       Log level (default: info)")
			fmt.Println("  DOCSCAN_LOG_FILE=path         Also log JSON to a rotated file")
			fmt.Println("  DOCSCAN_OUTPUT_DIR=path       Where generated images go (default: temp dir)")
			fmt.Println("  DOCSCAN_DETECT_HEIGHT=500     Detection resolution, 0 for full size")
			fmt.Println("  DOCSCAN_BLOCK_SIZE=11         Local threshold neighbourhood")
			fmt.Println("  DOCSCAN_OCR_LANGUAGE=eng      Tesseract language")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "docscan-mcp: %v\n", err)
		os.Exit(2)
	}

	// Logs go to stderr (stdout is for MCP protocol)
	logger, closer, err := logging.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "docscan-mcp: %v\n", err)
		os.Exit(2)
	}
	defer closer.Close()

	logger.Debug().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("commit", GitCommit).
		Msg("starting docscan-mcp")

	srv := server.New(cfg, logger, Version)
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("server error")
		closer.Close()
		os.Exit(1)
	}
}
