package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var getPretty bool

var getCmd = &cobra.Command{
	Use:   "get <city> <category>",
	Short: "Fetch one city and category from Craigslist and print the collection",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initProvider(cfg, "get")
		if err != nil {
			return err
		}

		fc, err := env.Provider.GetData(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		if getPretty {
			enc.SetIndent("", "  ")
		}
		return eris.Wrap(enc.Encode(fc), "write collection")
	},
}

func init() {
	getCmd.Flags().BoolVar(&getPretty, "pretty", false, "indent the output")
	rootCmd.AddCommand(getCmd)
}
