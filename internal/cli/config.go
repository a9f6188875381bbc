package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/deploysync/internal/config"
)

var configWrite bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration",
	Long: `Print the configuration a sync would use, after applying the config file,
DEPLOYSYNC_* environment variables and flags on top of the built-in defaults.

The YAML output is a valid config file. With --write it is saved to the
config file instead (--config, DEPLOYSYNC_CONFIG, or ~/.deploysync/config.yaml).`,
	Example: `  deploysync config --remote-url git@github.com:acme/site.git --branch production --write`,
	Args:    cobra.NoArgs,
	RunE:    runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configWrite, "write", false, "Save the resolved configuration to the config file")
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if configWrite {
		opts, err := loadOptions()
		if err != nil {
			return err
		}
		path, _ := config.FilePath(opts)
		if err := cfg.Save(opts.FS, path); err != nil {
			return err
		}
		PrintSuccess(out, "Wrote configuration to "+path)
		return nil
	}

	if flags.jsonOutput {
		return outputJSON(out, cfg)
	}

	data, err := cfg.YAML()
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	if cfg.File != "" {
		fmt.Fprintf(out, "# loaded from %s\n", cfg.File)
	}
	_, err = out.Write(data)
	return err
}
