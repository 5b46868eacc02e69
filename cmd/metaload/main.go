package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cognicore/metaload/pkg/metaload/config"
	"github.com/cognicore/metaload/pkg/metaload/logging"
)

// app carries the settings shared by every command.
type app struct {
	v   *viper.Viper
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	a.v.SetEnvPrefix("metaload")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	root := &cobra.Command{
		Use: "metaload",

		Short: "Loads canonical entity names from a UMLS Metathesaurus release.",

		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.New(a.v.GetString("log-level"), a.v.GetString("log-format"), "metaload")
			if err != nil {
				return err
			}
			a.log = log
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Run configuration file (YAML).")
	flags.String("store-driver", "", "Destination store: sqlite or postgres.")
	flags.String("dsn", "", "Destination database path or connection string.")
	flags.StringSlice("category", nil, "Restrict the command to these categories.")
	flags.String("log-level", "info", "Log level: debug, info, warn or error.")
	flags.String("log-format", "json", "Log format: json or console.")

	for _, name := range []string{"config", "store-driver", "dsn", "category", "log-level", "log-format"} {
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		newImportCmd(a),
		newStatusCmd(a),
		newPurgeCmd(a),
		newCategoriesCmd(a),
	)
	return root
}

// loader builds a config.Loader from flags, environment and config file.
func (a *app) loader() *config.Loader {
	return &config.Loader{
		Path:              a.v.GetString("config"),
		SourceDir:         a.v.GetString("import.source-dir"),
		SemanticTypesPath: a.v.GetString("import.mrsty"),
		ConceptsPath:      a.v.GetString("import.mrconso"),
		StoreDriver:       a.v.GetString("store-driver"),
		StoreDSN:          a.v.GetString("dsn"),
		Parallelism:       a.v.GetInt("import.parallelism"),
		Only:              a.categories(),
	}
}

// categories returns the --category values. Environment values arrive as a
// single string, so every element is split on commas as well.
func (a *app) categories() []string {
	var out []string
	for _, item := range a.v.GetStringSlice("category") {
		for _, name := range strings.Split(item, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
