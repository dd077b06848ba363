package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the category names the provider accepts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cats, err := loadCategories(cfg.Provider)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, name := range cats.Names() {
			path, _ := cats.Path(name)
			fmt.Fprintf(out, "%-20s %s\n", name, path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}
