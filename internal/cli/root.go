package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// flagValues holds the raw values of the global flags.
type flagValues struct {
	remoteURL      string
	branch         string
	targetPath     string
	credentialPath string
	knownHosts     string
	remoteName     string
	hardReset      bool
	configFile     string
	timeout        time.Duration
	lock           bool
	pause          string
	jsonOutput     bool
	verbose        bool
	quiet          bool
	logFormat      string
}

var (
	flags flagValues

	// Colors for help output sections
	groupTitleColor   = color.New(color.FgCyan, color.Bold)
	sectionTitleColor = color.New(color.FgBlue, color.Bold)
)

// rootCmd is the root command for deploysync. Without a subcommand it runs
// a sync.
var rootCmd = &cobra.Command{
	Use:     "deploysync",
	Version: "dev",
	Short:   "Clone or update a private repository with a deploy key",
	Long: `deploysync keeps a local working copy of one branch of a private git
repository up to date, authenticating with a dedicated SSH key only.

An absent or empty target is cloned. An existing working copy is fast-forwarded
to the remote tip; with --hard-reset it is reset to the remote tip, discarding
local commits and modifications. Diverged histories are never merged.`,
	Args:          cobra.NoArgs,
	RunE:          runSync,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// customHelpFunc returns a custom help function that colors group titles
func customHelpFunc(cmd *cobra.Command, args []string) {
	var help strings.Builder

	if cmd.Long != "" {
		help.WriteString(cmd.Long)
		help.WriteString("\n\n")
	}

	help.WriteString(sectionTitleColor.Sprint("Usage:"))
	help.WriteString("\n")
	fmt.Fprintf(&help, "  %s\n\n", cmd.UseLine())

	for _, group := range cmd.Groups() {
		help.WriteString(groupTitleColor.Sprint(group.Title))
		help.WriteString("\n")

		for _, c := range cmd.Commands() {
			if c.GroupID == group.ID && !c.Hidden {
				fmt.Fprintf(&help, "  %-11s %s\n", c.Name(), c.Short)
			}
		}
		help.WriteString("\n")
	}

	hasUngrouped := false
	for _, c := range cmd.Commands() {
		if c.GroupID == "" && !c.Hidden {
			if !hasUngrouped {
				help.WriteString(sectionTitleColor.Sprint("Additional Commands:"))
				help.WriteString("\n")
				hasUngrouped = true
			}
			fmt.Fprintf(&help, "  %-11s %s\n", c.Name(), c.Short)
		}
	}
	if hasUngrouped {
		help.WriteString("\n")
	}

	if cmd.HasAvailableLocalFlags() || cmd.HasAvailablePersistentFlags() {
		help.WriteString(sectionTitleColor.Sprint("Flags:"))
		help.WriteString("\n")
		help.WriteString(cmd.LocalFlags().FlagUsages())
		help.WriteString(cmd.InheritedFlags().FlagUsages())
		help.WriteString("\n")
	}

	fmt.Fprintf(&help, "Use \"%s [command] --help\" for more information about a command.\n", cmd.CommandPath())

	fmt.Fprint(cmd.OutOrStdout(), help.String())
}

func init() {
	rootCmd.SetHelpFunc(customHelpFunc)

	// Sync parameters
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.remoteURL, "remote-url", "", "Remote repository URL (default from config)")
	pf.StringVarP(&flags.branch, "branch", "b", "", "Branch to track (default \"main\")")
	pf.StringVarP(&flags.targetPath, "target-path", "t", "", "Local working copy (default \"~/deploysync/repo\")")
	pf.StringVarP(&flags.credentialPath, "credential-path", "i", "", "Private key file (default \"~/.ssh/deploysync_ed25519\")")
	pf.StringVar(&flags.knownHosts, "known-hosts", "", "known_hosts file to use instead of the user's")
	pf.StringVar(&flags.remoteName, "remote-name", "", "Name of the remote in the working copy (default \"origin\")")
	pf.BoolVar(&flags.hardReset, "hard-reset", false, "Discard local commits and changes to match the remote")

	// Behavior
	pf.StringVar(&flags.configFile, "config", "", "Config file (default \"~/.deploysync/config.yaml\")")
	pf.DurationVar(&flags.timeout, "timeout", 0, "Abort the run after this long (0 waits forever)")
	pf.BoolVar(&flags.lock, "lock", false, "Hold an advisory lock over the target for the run")
	pf.StringVar(&flags.pause, "pause", PauseAuto, "Wait for Enter after an error: auto, always or never")

	// Output
	pf.BoolVar(&flags.jsonOutput, "json", false, "Output in JSON format")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Log debug detail")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "Log warnings and errors only")
	pf.StringVar(&flags.logFormat, "log-format", "console", "Progress log format: console or json")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "synchronization",
		Title: "Synchronization:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "cli-tooling",
		Title: "CLI & Tooling:",
	})

	syncCmd.GroupID = "synchronization"
	checkCmd.GroupID = "synchronization"
	configCmd.GroupID = "synchronization"
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(configCmd)

	versionCmd := &cobra.Command{
		Use:     "version",
		Short:   "Print the deploysync version",
		Args:    cobra.NoArgs,
		GroupID: "cli-tooling",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), rootCmd.Version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	helpCmd := &cobra.Command{
		Use:     "help [command]",
		Short:   "Help about any command",
		GroupID: "cli-tooling",
		Run: func(cmd *cobra.Command, args []string) {
			target, _, err := cmd.Root().Find(args)
			if err != nil || target == nil {
				target = cmd.Root()
			}
			_ = target.Help()
		},
	}
	rootCmd.SetHelpCommand(helpCmd)

	completionCmd := &cobra.Command{
		Use:     "completion",
		Short:   "Generate the autocompletion script for the specified shell",
		GroupID: "cli-tooling",
		Long: `Generate the autocompletion script for deploysync for the specified shell.
See each sub-command's help for details on how to use the generated script.`,
	}
	completionCmd.AddCommand(&cobra.Command{
		Use:                   "bash",
		Short:                 "Generate the autocompletion script for bash",
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenBashCompletion(cmd.OutOrStdout())
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:                   "zsh",
		Short:                 "Generate the autocompletion script for zsh",
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenZshCompletion(cmd.OutOrStdout())
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:                   "fish",
		Short:                 "Generate the autocompletion script for fish",
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:                   "powershell",
		Short:                 "Generate the autocompletion script for powershell",
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
		},
	})
	rootCmd.AddCommand(completionCmd)
}

// Execute executes the root command. An interrupt cancels the running git
// step.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
