package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/travelrag/configs"
	"github.com/Aman-CERP/travelrag/internal/config"
	apperrors "github.com/Aman-CERP/travelrag/internal/errors"
	"github.com/Aman-CERP/travelrag/internal/output"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Show, create and restore configuration files.

Configuration precedence (lowest to highest):
  1. Built-in defaults
  2. User config ($XDG_CONFIG_HOME/travelrag/config.yaml)
  3. Project config (.travelrag.yaml)
  4. Environment variables (TRAVELRAG_*)`,
		Example: `  travelrag config show
  travelrag config init
  travelrag config init --user --force
  travelrag config restore`,
	}

	cmd.AddCommand(newConfigShowCmd(root))
	cmd.AddCommand(newConfigInitCmd(root))
	cmd.AddCommand(newConfigPathCmd(root))
	cmd.AddCommand(newConfigRestoreCmd(root))

	return cmd
}

func newConfigShowCmd(root *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long:  `Show the configuration after merging all sources. API keys are masked.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			redacted := cfg.Redacted()
			if jsonOutput {
				return output.New(cmd.OutOrStdout()).JSON(redacted)
			}
			data, err := yaml.Marshal(redacted)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigInitCmd(root *rootOptions) *cobra.Command {
	var force, user, effective bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a commented configuration file",
		Long: `Write the commented configuration template to .travelrag.yaml in the
project directory, or to the user config with --user. --effective writes
the current merged configuration instead, freezing environment overrides
into the file. An existing file is kept unless --force is given, in which
case it is backed up first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := filepath.Join(root.dir, config.ProjectConfigName)
			template := configs.ProjectConfigTemplate
			if user {
				path = config.GetUserConfigPath()
				template = configs.UserConfigTemplate
			}

			write := func(p string) error { return os.WriteFile(p, template, 0o644) }
			if effective {
				cfg, err := loadConfig(root)
				if err != nil {
					return err
				}
				write = cfg.WriteYAML
			}
			return runConfigInit(cmd, path, force, write)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file (a backup is kept)")
	cmd.Flags().BoolVar(&user, "user", false, "Write the user config instead of the project config")
	cmd.Flags().BoolVar(&effective, "effective", false, "Write the merged configuration instead of the template")

	return cmd
}

func runConfigInit(cmd *cobra.Command, path string, force bool, write func(string) error) error {
	out := output.New(cmd.OutOrStdout())

	if _, err := os.Stat(path); err == nil {
		if !force {
			return apperrors.New(apperrors.ErrCodeConfigInvalid, fmt.Sprintf("config already exists at %s", path), nil).
				WithSuggestion("use --force to overwrite (the current file is backed up)")
		}
		backup, err := config.BackupConfig(path)
		if err != nil {
			return err
		}
		if backup != "" {
			out.Statusf("", "Backed up existing config to %s", backup)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := write(path); err != nil {
		return err
	}
	out.Successf("Created %s", path)
	return nil
}

func newConfigPathCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print configuration file paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project := config.FindProjectConfig(root.dir)
			if project == "" {
				project = "(none)"
			}
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "user:    %s\n", config.GetUserConfigPath())
			_, err := fmt.Fprintf(w, "project: %s\n", project)
			return err
		},
	}
}

func newConfigRestoreCmd(root *rootOptions) *cobra.Command {
	var user bool

	cmd := &cobra.Command{
		Use:   "restore [backup-file]",
		Short: "Restore a configuration backup",
		Long: `Replace the config file with a backup made by 'config init --force'.
Without an argument the newest backup is used. The current file is itself
backed up first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(root.dir, config.ProjectConfigName)
			if user {
				path = config.GetUserConfigPath()
			}

			var backup string
			if len(args) == 1 {
				backup = args[0]
			} else {
				backups, err := config.ListBackups(path)
				if err != nil {
					return err
				}
				if len(backups) == 0 {
					return apperrors.New(apperrors.ErrCodeConfigNotFound, fmt.Sprintf("no backups of %s", path), nil)
				}
				backup = backups[0]
			}

			if err := config.RestoreConfig(path, backup); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("Restored %s from %s", path, backup)
			return nil
		},
	}

	cmd.Flags().BoolVar(&user, "user", false, "Restore the user config instead of the project config")

	return cmd
}
