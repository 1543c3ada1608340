package commands

import (
	"bytes"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/maekitalo/sertools/internal/protocol/bin"
	"github.com/maekitalo/sertools/internal/protocol/compose"
	"github.com/maekitalo/sertools/internal/protocol/json"
	"github.com/maekitalo/sertools/internal/protocol/sinfo"
)

var encodeTo string

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Read a lenient JSON value from stdin and write it as binary (or beautified JSON)",
	Long: `encode reads one JSON value (the lenient dialect of spec §4.4: bare keys,
comments, single-quoted strings all accepted) from stdin and re-emits it on
stdout, either in the self-describing binary wire format (the default) or
as beautified JSON — useful for round-tripping a hand-written fixture
through the binary codec before feeding it to a test server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}

		root := sinfo.New()
		parser := json.NewParser(bytes.NewReader(data))
		if err := parser.ParseValue(compose.NewTreeComposer(root)); err != nil {
			return err
		}

		dec := compose.NewTreeDecomposer(root)
		switch encodeTo {
		case "json":
			f := json.NewFormatter(os.Stdout)
			f.Beautify = true
			if err := dec.Format(f); err != nil {
				return err
			}
			return f.Flush()
		default:
			f := bin.NewFormatter(os.Stdout)
			if err := dec.Format(f); err != nil {
				return err
			}
			return f.Flush()
		}
	},
}

func init() {
	encodeCmd.Flags().StringVar(&encodeTo, "to", "binary", `output format: "binary" or "json"`)
}
