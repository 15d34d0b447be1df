// Command movementmemory-mcp serves the movement memory MCP tools over stdio,
// reading from a remote server's REST API.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/movementmemory/internal/mcp"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", os.Getenv("MOVEMEM_SERVER_URL"), "server URL (e.g. https://movemem.tail1234.ts.net)")
	flag.Parse()

	// stdout carries the protocol
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" {
		fmt.Fprintln(os.Stderr, "Usage: movementmemory-mcp -server <URL>")
		os.Exit(1)
	}

	s := mcp.New(mcp.NewHTTPClient(*serverURL), Version, log)
	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp stdio server stopped", "error", err)
		os.Exit(1)
	}
}
