package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recetario/recetario/internal/recetario"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the GraphQL schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), recetario.Schema)
			return err
		},
	}
}
