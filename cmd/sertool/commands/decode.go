package commands

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/maekitalo/sertools/internal/protocol/bin"
	"github.com/maekitalo/sertools/internal/protocol/compose"
	"github.com/maekitalo/sertools/internal/protocol/json"
	"github.com/maekitalo/sertools/internal/protocol/sinfo"
)

var (
	decodeFrom    string
	decodePretty  bool
	decodeHexdump bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Read a wire value from stdin and print it as JSON",
	Long: `decode reads one value (binary by default, or JSON with --from json) from
stdin, parses it into a SerializationInfo tree, and prints it as beautified
JSON. --pretty renders a top-level Object's members as a table instead
(cosmetic only, spec §1's non-goal on pretty-printing as a behavioral
contract — this flag never changes what was decoded, only how it's shown).
--hexdump prints a hexdump of the raw input bytes first, for debugging a
codec that otherwise has no textual fallback.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}

		if decodeHexdump {
			if err := bin.Dump(os.Stdout, data); err != nil {
				return err
			}
		}

		root := sinfo.New()
		composer := compose.NewTreeComposer(root)
		switch decodeFrom {
		case "json":
			if err := json.NewParser(bytes.NewReader(data)).ParseValue(composer); err != nil {
				return err
			}
		default:
			if err := bin.NewParser(bytes.NewReader(data)).ParseValue(composer); err != nil {
				return err
			}
		}

		if decodePretty && root.Category() == sinfo.CategoryObject {
			return printObjectTable(os.Stdout, root)
		}

		f := json.NewFormatter(os.Stdout)
		f.Beautify = true
		if err := compose.NewTreeDecomposer(root).Format(f); err != nil {
			return err
		}
		return f.Flush()
	},
}

// printObjectTable renders an Object node's top-level members as a table,
// one row per member, grounded on the teacher's internal/cli/output.PrintTable.
func printObjectTable(w io.Writer, node *sinfo.Info) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"member", "type", "value"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, m := range node.Members() {
		table.Append([]string{m.Name(), m.Category().String(), scalarPreview(m)})
	}
	table.Render()
	return nil
}

func scalarPreview(n *sinfo.Info) string {
	switch n.Category() {
	case sinfo.CategoryValue:
		s, err := n.Value().AsString()
		if err != nil {
			return fmt.Sprintf("<%s>", n.Value().Kind())
		}
		return s
	case sinfo.CategoryArray:
		return fmt.Sprintf("[%d elements]", len(n.Members()))
	case sinfo.CategoryObject:
		return fmt.Sprintf("{%d members}", len(n.Members()))
	default:
		return ""
	}
}

func init() {
	decodeCmd.Flags().StringVar(&decodeFrom, "from", "binary", `input format: "binary" or "json"`)
	decodeCmd.Flags().BoolVar(&decodePretty, "pretty", false, "render a top-level Object's members as a table")
	decodeCmd.Flags().BoolVar(&decodeHexdump, "hexdump", false, "print a hexdump of the raw input bytes first")
}
