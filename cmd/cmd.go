// cmd.go - Haupt-CLI Setup und Root Command
// Hauptfunktionen: NewCLI, appendEnvDocs
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/containerd/console"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ollama/rollout/envconfig"
	"github.com/ollama/rollout/logutil"
)

// appendEnvDocs - Fuegt Umgebungsvariablen-Dokumentation zum Command hinzu
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	if runtime.GOOS == "windows" && term.IsTerminal(int(os.Stdout.Fd())) {
		console.ConsoleFromFile(os.Stdin) //nolint:errcheck
	}

	rootCmd := &cobra.Command{
		Use:           "rollout",
		Short:         "Attention rollout saliency maps for vision transformers",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			slog.SetDefault(logutil.NewLogger(cmd.ErrOrStderr(), envconfig.LogLevel()))
		},
		Run: func(cmd *cobra.Command, args []string) {
			if version, _ := cmd.Flags().GetBool("version"); version {
				versionHandler(cmd, args)
				return
			}

			cmd.Print(cmd.UsageString())
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	// Commands erstellen
	renderCmd := newRenderCmd()
	inspectCmd := newInspectCmd()
	convertCmd := newConvertCmd()
	serveCmd := newServeCmd()
	formatsCmd := newFormatsCmd()

	// Environment-Dokumentation hinzufuegen
	envVars := envconfig.AsMap()

	for _, cmd := range []*cobra.Command{renderCmd, inspectCmd, convertCmd, serveCmd} {
		switch cmd {
		case renderCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{
				envVars["ROLLOUT_DEBUG"],
				envVars["ROLLOUT_IMAGE"],
				envVars["ROLLOUT_FORMAT"],
				envVars["ROLLOUT_INPUT_SIZE"],
				envVars["ROLLOUT_PATCH_SIZE"],
				envVars["ROLLOUT_HEATMAP"],
			})
		case serveCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{
				envVars["ROLLOUT_DEBUG"],
				envVars["ROLLOUT_HOST"],
				envVars["ROLLOUT_ORIGINS"],
				envVars["ROLLOUT_INPUT_SIZE"],
				envVars["ROLLOUT_PATCH_SIZE"],
				envVars["ROLLOUT_MAX_UPLOAD"],
			})
		default:
			appendEnvDocs(cmd, []envconfig.EnvVar{envVars["ROLLOUT_DEBUG"], envVars["ROLLOUT_FORMAT"]})
		}
	}

	rootCmd.AddCommand(
		renderCmd,
		inspectCmd,
		convertCmd,
		serveCmd,
		formatsCmd,
	)

	return rootCmd
}
