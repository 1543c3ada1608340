// Command sertool is a small diagnostic CLI over the internal binary/JSON
// codecs and pkg/rpcclient: encode/decode values between the binary and JSON codecs,
// and fire a binary RPC call at a server, mirroring the teacher's
// cmd/dittofs entrypoint shape but sized to this repo's actual surface.
package main

import (
	"fmt"
	"os"

	"github.com/maekitalo/sertools/cmd/sertool/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
