package main

import (
	"fmt"
	"os"

	"github.com/cjgv1809/Chat-with-PDF/internal/cli"
	"github.com/cjgv1809/Chat-with-PDF/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "docchatd",
		Short: "Chat with your documents",
		Long:  "docchat server and tools for ingesting documents and asking questions about them",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.MigrateCmd())
	rootCmd.AddCommand(admin.IngestCmd())
	rootCmd.AddCommand(admin.AskCmd())
	rootCmd.AddCommand(admin.DeleteNamespaceCmd())
	rootCmd.AddCommand(admin.LocalCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
