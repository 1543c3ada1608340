package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/maekitalo/sertools/pkg/rpcclient"
)

var (
	callAddr       string
	callDomain     string
	callArgs       []string
	callResultType string
)

var callCmd = &cobra.Command{
	Use:   "call METHOD",
	Short: "Invoke a binary RPC method on a listening server",
	Long: `call opens (or reuses) a connection to a server speaking the binary RPC
wire protocol of spec §4.1's framing layer, sends METHOD with --arg values,
waits for the reply, and prints the decoded result (spec §8 scenario 6).
Each --arg is parsed as a number when it looks numeric, as a bool when
strconv.ParseBool accepts it ("true"/"false", "t", "FALSE", ...), and as a
string otherwise (e.g. repeated --arg 5 --arg foo).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		method := args[0]
		addr := callAddr
		if addr == "" {
			addr = cfg.RPC.Addr
		}
		domain := callDomain
		if domain == "" {
			domain = cfg.RPC.Domain
		}

		opts := []rpcclient.Option{
			rpcclient.WithConnectTimeout(cfg.RPC.ConnectTimeout),
			rpcclient.WithIOTimeout(cfg.RPC.IOTimeout),
		}
		if domain != "" {
			opts = append(opts, rpcclient.WithDomain(domain))
		}
		client := rpcclient.New(addr, opts...)
		defer client.Close()

		callArgsAny := make([]any, len(callArgs))
		for i, a := range callArgs {
			callArgsAny[i] = parseArg(a)
		}

		result, err := newResultHolder(callResultType)
		if err != nil {
			return err
		}

		ctx := context.Background()
		if err := client.Call(ctx, method, result, callArgsAny...); err != nil {
			return err
		}

		fmt.Println(printResult(result))
		return nil
	},
}

// parseArg converts one --arg string into a Go scalar following the same
// leniency the JSON parser applies to bare numeric literals (spec §4.4):
// int when it parses as one, float when it parses as one, bool for any
// form strconv.ParseBool accepts ("1"/"0" are already taken as ints),
// string otherwise.
func parseArg(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func newResultHolder(kind string) (any, error) {
	switch kind {
	case "", "string":
		return new(string), nil
	case "int":
		return new(int64), nil
	case "float":
		return new(float64), nil
	case "bool":
		return new(bool), nil
	default:
		return nil, fmt.Errorf("sertool: unknown --result-type %q (want string, int, float, or bool)", kind)
	}
}

func printResult(result any) string {
	switch v := result.(type) {
	case *string:
		return *v
	case *int64:
		return strconv.FormatInt(*v, 10)
	case *float64:
		return strconv.FormatFloat(*v, 'g', -1, 64)
	case *bool:
		return strconv.FormatBool(*v)
	default:
		return fmt.Sprintf("%v", result)
	}
}

func init() {
	callCmd.Flags().StringVar(&callAddr, "addr", "", "server address host:port (default: rpc.addr from config)")
	callCmd.Flags().StringVar(&callDomain, "domain", "", "RPC domain scope (default: rpc.domain from config)")
	callCmd.Flags().StringArrayVar(&callArgs, "arg", nil, "argument value, repeatable")
	callCmd.Flags().StringVar(&callResultType, "result-type", "string", "expected result type: string, int, float, or bool")
}
