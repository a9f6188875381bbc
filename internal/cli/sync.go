package cli

import (
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Clone or update the working copy (default command)",
	Long: `Clone the remote branch into the target path, or update an existing working
copy: check out the branch, fetch it with the deploy key, then fast-forward.

With --hard-reset the local branch is reset to the fetched remote tip instead,
discarding local commits and uncommitted changes.

Exit status is 2 for a failed precondition (git missing, unreadable key),
3 when the remote cannot be reached or authenticated, and 4 when the local
branch cannot be fast-forwarded.`,
	Example: `  deploysync sync --remote-url git@github.com:acme/site.git --branch production
  deploysync --hard-reset --target-path /srv/site
  deploysync sync --lock --timeout 5m --json`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(cmd.Context(), cfg)
	defer cancel()

	if cfg.HardReset {
		PrintWarning(cmd.ErrOrStderr(), "hard reset requested, local changes in "+cfg.TargetPath+" will be discarded")
	}

	result, err := newSyncer(cfg, logger).Synchronize(ctx, newRequest(cfg))
	if err != nil {
		return err
	}

	if flags.jsonOutput {
		return outputJSON(cmd.OutOrStdout(), result)
	}
	PrintSuccess(cmd.OutOrStdout(), completionLine(result))
	return nil
}
