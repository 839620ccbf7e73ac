package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/hivescan/pkg/compression"
	"github.com/ajitpratap0/hivescan/pkg/inputformat"
	"github.com/ajitpratap0/hivescan/pkg/serde"
)

var version = "0.1.0"

// Global flag names. Each can also be set as HIVESCAN_<NAME>, with dashes
// turned into underscores, or in the job file.
const (
	flagLogLevel    = "log-level"
	flagLogFormat   = "log-format"
	flagMetricsAddr = "metrics-addr"
	flagTrace       = "trace"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("HIVESCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "hivescan",
		Short: "hivescan - scan Hive table files into typed batches",
		Long: `hivescan reads the data files of Hive tables stored in legacy row formats
(RCFile, delimited text, JSON lines, Avro containers) and emits typed columnar
batches, the way a query engine's scanner would.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String(flagLogLevel, "", "Log level (debug, info, warn, error); defaults to the job file, then info")
	pf.String(flagLogFormat, "", "Log encoding (json, console)")
	pf.String(flagMetricsAddr, "", "Serve Prometheus metrics on this address (e.g. :9090)")
	pf.Bool(flagTrace, false, "Export OpenTelemetry spans to stderr")
	_ = v.BindPFlags(pf)

	root.AddCommand(newVersionCmd(), newListCmd(), newScanCmd(v), newSchemaCmd(v))
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "hivescan v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// List command to show what can be scanned
func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered input formats, deserializers and codecs",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Input formats:")
			for _, name := range inputformat.Names() {
				printEntry(cmd, name, inputformat.Aliases(name))
			}
			fmt.Fprintln(out, "\nDeserializers:")
			for _, name := range serde.Names() {
				printEntry(cmd, name, serde.Aliases(name))
			}
			fmt.Fprintln(out, "\nCompression codecs:")
			for _, name := range compression.Names() {
				printEntry(cmd, name, nil)
			}
		},
	}
}

func printEntry(cmd *cobra.Command, name string, aliases []string) {
	if len(aliases) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", name)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  - %s (%s)\n", name, strings.Join(aliases, ", "))
}
