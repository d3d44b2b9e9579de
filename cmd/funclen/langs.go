package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phyten/funclen/internal/pattern"
)

func newLangsCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "langs",
		Short: "List supported language identifiers",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			langs := pattern.Languages()
			if out, _ := cmd.Flags().GetString("output"); out == "json" {
				return json.NewEncoder(env.stdout).Encode(langs)
			}
			for _, l := range langs {
				fmt.Fprintln(env.stdout, l)
			}
			return nil
		},
	}
}
