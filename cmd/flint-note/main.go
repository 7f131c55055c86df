// Package main implements the flint-note MCP server: a typed, indexed
// Markdown vault exposed over the Model Context Protocol.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/taigrr/flint-note/internal/logging"
	"github.com/taigrr/flint-note/internal/registry"
	"github.com/taigrr/flint-note/internal/workspace"
)

var ws *workspace.Workspace

func main() {
	checkWorkspaceFlags(os.Args[1:])

	var workspacePath string
	cmd := &cobra.Command{
		Use:   "flint-note",
		Short: "MCP server for typed, indexed Markdown vaults",
		Long: `flint-note is a Model Context Protocol (MCP) server over a local
knowledge base of Markdown notes with structured front-matter,
organized by note type. It maintains a hybrid full-text, metadata,
and link-graph index, and exposes tools to create, update, rename,
link, and search notes.`,
		Example: `flint-note --workspace ~/notes`,
		Args:    cobra.NoArgs,
		RunE:    runServer,
	}
	cmd.Flags().StringVar(&workspacePath, "workspace", "", "path to the workspace (vault) root")
	cmd.Flags().StringVar(&workspacePath, "workspace-path", "", "path to the workspace (vault) root")
	cmd.Flags().Lookup("workspace-path").Hidden = true

	if err := fang.Execute(
		context.Background(),
		cmd,
		fang.WithVersion(version),
		fang.WithoutCompletions(),
		fang.WithoutManpage(),
	); err != nil {
		os.Exit(1)
	}
}

// checkWorkspaceFlags rejects a workspace flag with no value before cobra
// parses, so the message names what is missing.
func checkWorkspaceFlags(args []string) {
	for i, arg := range args {
		if arg != "--workspace" && arg != "--workspace-path" {
			continue
		}
		if i+1 >= len(args) || len(args[i+1]) == 0 || args[i+1][0] == '-' {
			fmt.Fprintf(os.Stderr, "%s requires a path argument\n", arg)
			os.Exit(1)
		}
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	workspacePath, _ := cmd.Flags().GetString("workspace")
	if workspacePath == "" {
		workspacePath, _ = cmd.Flags().GetString("workspace-path")
	}
	if workspacePath == "" {
		if reg, err := registry.Open(); err == nil {
			if _, entry, ok, err := reg.Current(); err == nil && ok {
				workspacePath = entry.Path
			}
		}
	}
	if workspacePath == "" {
		var err error
		workspacePath, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
	}

	var err error
	ws, err = workspace.Open(cmd.Context(), workspacePath)
	if err != nil {
		return fmt.Errorf("open workspace: %w", err)
	}
	defer ws.Close()

	logging.Init(logging.Config{
		Level: logging.Level(ws.Cfg.MCPServer.LogLevel),
		JSON:  ws.Cfg.MCPServer.LogFile != "",
	})

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "flint-note",
		Version: version,
	}, nil)

	registerTools(server)

	if err := server.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("error running server: %w", err)
	}

	return nil
}
