package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// newCreateCmd defines a new index's schema in data-dir. Field specs
// follow `name:kind[:dimensions[:metric]]`, e.g.:
//
//	ftctl create --field body:text --field color:tag --field price:numeric --field embedding:vector:128:cos
func newCreateCmd() *cobra.Command {
	var fieldSpecs []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Define a new index schema",
		Long: `Create writes a new schema.json to the data directory, describing
the fields this index will accept.

Each --field flag takes name:kind, where kind is one of text, tag,
numeric, or vector. Vector fields take two additional colon-separated
parameters: dimensions and an optional metric (cos or l2, default cos).

Examples:
  ftctl create --field body:text --field color:tag
  ftctl create --field body:text --field embedding:vector:128:cos`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, fieldSpecs)
		},
	}

	cmd.Flags().StringArrayVar(&fieldSpecs, "field", nil, "Field spec: name:kind[:dimensions[:metric]] (repeatable)")
	_ = cmd.MarkFlagRequired("field")

	return cmd
}

func runCreate(cmd *cobra.Command, fieldSpecs []string) error {
	sf := &schemaFile{}
	var nextBit uint64 = 1

	for _, spec := range fieldSpecs {
		parts := strings.Split(spec, ":")
		if len(parts) < 2 {
			return fmt.Errorf("invalid field spec %q, want name:kind[:dimensions[:metric]]", spec)
		}
		name, kind := parts[0], parts[1]

		f := schemaFieldFile{Name: name, Kind: kind}
		switch kind {
		case "text", "tag", "numeric":
			f.Bit = nextBit
			nextBit <<= 1
		case "vector":
			if len(parts) < 3 {
				return fmt.Errorf("vector field %q requires dimensions: name:vector:dimensions[:metric]", name)
			}
			dims, err := strconv.Atoi(parts[2])
			if err != nil {
				return fmt.Errorf("invalid dimensions for field %q: %w", name, err)
			}
			f.Dimensions = dims
			f.M = 16
			f.EfSearch = 64
			if len(parts) >= 4 {
				f.Metric = parts[3]
			}
		default:
			return fmt.Errorf("unknown field kind %q for field %q (want text, tag, numeric, or vector)", kind, name)
		}
		sf.Fields = append(sf.Fields, f)
	}

	if err := saveSchemaFile(dataDir, sf); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created schema with %d field(s) in %s\n", len(sf.Fields), schemaPath(dataDir))
	return nil
}
