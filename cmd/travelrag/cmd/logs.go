package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/travelrag/internal/logging"
)

func newLogsCmd() *cobra.Command {
	var (
		opts    logging.TailOptions
		pattern string
		path    string
		raw     bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log entries",
		Long:  `Print the last entries of the travelrag log file, optionally filtered by level or pattern.`,
		Example: `  travelrag logs
  travelrag logs -n 100 --level warn
  travelrag logs --grep rerank_degraded`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if pattern != "" {
				re, err := regexp.Compile(pattern)
				if err != nil {
					return fmt.Errorf("invalid --grep pattern: %w", err)
				}
				opts.Pattern = re
			}
			entries, err := logging.Tail(path, opts)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, e := range entries {
				line := e.Format()
				if raw {
					line = e.Raw
				}
				if _, err := fmt.Fprintln(w, line); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.Lines, "lines", "n", 50, "Number of entries to show")
	cmd.Flags().StringVar(&opts.Level, "level", "", "Minimum level: debug, info, warn, error")
	cmd.Flags().StringVar(&pattern, "grep", "", "Only entries matching this regular expression")
	cmd.Flags().StringVar(&path, "file", logging.DefaultLogPath(), "Log file to read")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the JSON lines unchanged")

	return cmd
}
