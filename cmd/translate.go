package main

import (
	"encoding/json"
	"io"
	"math/rand/v2"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/listing-features/internal/objectid"
	"github.com/sells-group/listing-features/internal/translate"
)

var (
	translateIDField string
	translateSeed    uint64
	translatePretty  bool
)

var translateCmd = &cobra.Command{
	Use:   "translate [file|-]",
	Short: "Translate a saved map-search payload to GeoJSON on stdout",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("translate"); err != nil {
			return err
		}

		data, err := readInput(cmd, args)
		if err != nil {
			return err
		}

		idField := translateIDField
		if idField == "" {
			idField = cfg.Provider.IDField
		}

		var src objectid.Source
		if translateSeed != 0 {
			src = rand.New(rand.NewPCG(translateSeed, translateSeed))
		}

		fc, err := translate.Translate(data, translate.Options{
			IDField: idField,
			Source:  src,
			Logger:  zap.L(),
		})
		if err != nil {
			return eris.Wrap(err, "translate")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		if translatePretty {
			enc.SetIndent("", "  ")
		}
		if err := enc.Encode(fc); err != nil {
			return eris.Wrap(err, "write collection")
		}
		return nil
	},
}

// readInput reads the named file, or stdin when no file or "-" is given.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, eris.Wrap(err, "read stdin")
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", args[0])
	}
	return data, nil
}

func init() {
	translateCmd.Flags().StringVar(&translateIDField, "id-field", "", "property that carries the object id (default from config)")
	translateCmd.Flags().Uint64Var(&translateSeed, "seed", 0, "seed the id prefix draw for reproducible output")
	translateCmd.Flags().BoolVar(&translatePretty, "pretty", false, "indent the output")
	rootCmd.AddCommand(translateCmd)
}
