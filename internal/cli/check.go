package cli

import (
	"github.com/spf13/cobra"

	"github.com/danieljhkim/deploysync/internal/sync"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the preconditions without changing anything",
	Long: `Verify that git is installed and the credential file is readable, then report
whether the target path is absent, a plain directory, or a working copy.

Nothing is created and the remote is not contacted.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

// checkOutput is the JSON form of a check. Action is what the next sync
// would report on success.
type checkOutput struct {
	TargetPath string      `json:"targetPath"`
	State      sync.State  `json:"state"`
	Action     sync.Action `json:"action"`
}

func runCheck(cmd *cobra.Command, args []string) error {
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

	state, err := newSyncer(cfg, logger).Check(ctx, newRequest(cfg))
	if err != nil {
		return err
	}

	action := nextAction(state, cfg.HardReset)

	if flags.jsonOutput {
		return outputJSON(cmd.OutOrStdout(), checkOutput{
			TargetPath: cfg.TargetPath,
			State:      state,
			Action:     action,
		})
	}

	out := cmd.OutOrStdout()
	PrintSuccess(out, "Preconditions passed")
	PrintField(out, "target", cfg.TargetPath)
	PrintField(out, "state", string(state))
	PrintField(out, "next sync", string(action))
	return nil
}

// nextAction is the action a sync of a target in state would take.
func nextAction(state sync.State, hardReset bool) sync.Action {
	switch {
	case !state.IsRepo():
		return sync.ActionCloned
	case hardReset:
		return sync.ActionHardReset
	}
	return sync.ActionFastForwarded
}
