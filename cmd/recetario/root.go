package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/recetario/recetario/internal/config"
)

func newRootCmd() *cobra.Command {
	v := config.New()

	root := &cobra.Command{
		Use:   "recetario",
		Short: "Recetario: a GraphQL API for authors, recipes and ingredients",
		Long: `
Recetario serves a GraphQL API over three MongoDB collections: authors,
recipes and ingredients. Settings come from flags, RECETARIO_* environment
variables and an optional config file, in that order of precedence.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "",
		"Configuration file. Overridden by environment variables and flags.")

	root.AddCommand(
		newServeCmd(v),
		newSchemaCmd(),
		newVersionCmd(),
	)
	return root
}

// bindFlags maps each flag onto its viper key so that a flag set on the
// command line wins over the environment and the config file.
func bindFlags(cmd *cobra.Command, v *viper.Viper, keys map[string]string) {
	for flag, key := range keys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
}
