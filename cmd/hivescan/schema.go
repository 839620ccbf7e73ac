package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/hivescan/pkg/config"
	"github.com/ajitpratap0/hivescan/pkg/logger"
	"github.com/ajitpratap0/hivescan/pkg/scanner"
)

func newSchemaCmd(v *viper.Viper) *cobra.Command {
	var jobFile string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the schema of the projected columns as JSON",
		Long: `Run a schema-only probe for the job and print the resolved columns.
The data file is not opened.

Example:
  hivescan schema --job orders.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd, v, jobFile)
		},
	}
	cmd.Flags().StringVarP(&jobFile, "job", "j", "", "Path to the job YAML file (required)")
	_ = cmd.MarkFlagRequired("job")
	return cmd
}

func runSchema(cmd *cobra.Command, v *viper.Viper, jobFile string) error {
	job, err := config.LoadJob(jobFile)
	if err != nil {
		return err
	}
	applyJobDefaults(v, job)
	cleanup, err := setupObservability(cmd.Context(), v, job)
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := scanner.New(job.ScanParameters(true), scanner.WithLogger(logger.Get()))
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Open(cmd.Context()); err != nil {
		return err
	}
	ts, err := s.TableSchema()
	if err != nil {
		return err
	}
	data, err := ts.JSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
