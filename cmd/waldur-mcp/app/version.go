package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/logger"
	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/versions"
)

// newVersionCmd creates a new version command
func newVersionCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the version of waldur-mcp",
		Long:  `Display detailed version information, including version number, git commit, build date, and Go version.`,
		Run: func(_ *cobra.Command, _ []string) {
			info := versions.GetVersionInfo()

			if jsonOutput {
				out, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					logger.Errorf("Error encoding version info: %v", err)
					return
				}
				fmt.Println(string(out))
				return
			}

			fmt.Printf("waldur-mcp %s\n", info.Version)
			fmt.Printf("Commit: %s\n", info.Commit)
			fmt.Printf("Built: %s\n", info.BuildDate)
			fmt.Printf("Go version: %s\n", info.GoVersion)
			fmt.Printf("Platform: %s\n", info.Platform)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version information as JSON")

	return cmd
}
