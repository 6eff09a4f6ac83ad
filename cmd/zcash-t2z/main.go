// zcash-t2z builds, signs, and finalizes Zcash transactions that move
// transparent funds into shielded Orchard outputs, working on PCZT files
// at every step so the stages can run on different machines.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/suffix-labs/zcash-t2z/pkg/crypto"
	"github.com/suffix-labs/zcash-t2z/pkg/t2z"
	"github.com/suffix-labs/zcash-t2z/pkg/zip317"
	"github.com/suffix-labs/zcash-t2z/pkg/zip321"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	app := &cli.App{
		Name:    "zcash-t2z",
		Usage:   "Transparent-to-shielded Zcash transaction builder",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Description: `Builds a PCZT from a proposal file, computes sighashes for offline
signing, attaches signatures, combines partially signed copies, and
extracts the final v5 transaction for broadcast.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			feeCommand(),
			parseURICommand(),
			proposeCommand(),
			sighashCommand(),
			signCommand(),
			combineCommand(),
			extractCommand(),
			inspectCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(c *cli.Context) *slog.Logger {
	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func feeCommand() *cli.Command {
	return &cli.Command{
		Name:  "fee",
		Usage: "Compute the ZIP 317 conventional fee for a transaction shape",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "transparent-in", Usage: "Number of transparent inputs"},
			&cli.IntFlag{Name: "transparent-out", Usage: "Number of transparent outputs"},
			&cli.IntFlag{Name: "shielded-out", Usage: "Number of shielded outputs"},
		},
		Action: func(c *cli.Context) error {
			fee := zip317.Fee(c.Int("transparent-in"), c.Int("transparent-out"), c.Int("shielded-out"))
			fmt.Println(fee)
			return nil
		},
	}
}

func parseURICommand() *cli.Command {
	return &cli.Command{
		Name:      "parse-uri",
		Usage:     "Parse a ZIP 321 payment request URI",
		ArgsUsage: "<uri>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one URI argument")
			}
			pr, err := zip321.Parse(c.Args().First())
			if err != nil {
				return err
			}
			return printJSON(pr)
		},
	}
}

func sighashCommand() *cli.Command {
	return &cli.Command{
		Name:  "sighash",
		Usage: "Print the ZIP 244 signature digest for one input of a PCZT",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "pczt", Required: true, Usage: "PCZT file"},
			&cli.UintFlag{Name: "input", Usage: "Input index"},
		},
		Action: func(c *cli.Context) error {
			handle, err := readHandle(c.String("pczt"))
			if err != nil {
				return err
			}
			sighash, err := handle.Sighash(uint32(c.Uint("input")))
			if err != nil {
				return err
			}
			fmt.Println(hex.EncodeToString(sighash[:]))
			return nil
		},
	}
}

func signCommand() *cli.Command {
	return &cli.Command{
		Name:  "sign",
		Usage: "Sign one transparent input of a PCZT",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "pczt", Required: true, Usage: "PCZT file"},
			&cli.UintFlag{Name: "input", Usage: "Input index"},
			&cli.StringFlag{Name: "wif", Usage: "Private key in WIF format (reads WIF_KEY env when empty)", EnvVars: []string{"WIF_KEY"}},
			&cli.StringFlag{Name: "signature", Usage: "Externally produced 64-byte compact signature, hex"},
			&cli.StringFlag{Name: "out", Required: true, Usage: "Output PCZT file"},
		},
		Action: func(c *cli.Context) error {
			logger := newLogger(c)
			handle, err := readHandle(c.String("pczt"))
			if err != nil {
				return err
			}

			inputIndex := uint32(c.Uint("input"))
			switch {
			case c.String("signature") != "":
				sigBytes, err := hex.DecodeString(c.String("signature"))
				if err != nil || len(sigBytes) != 64 {
					return fmt.Errorf("signature must be 64 hex-encoded bytes")
				}
				var sig [64]byte
				copy(sig[:], sigBytes)
				handle, err = t2z.AppendSignature(handle, inputIndex, sig)
				if err != nil {
					return err
				}
			case c.String("wif") != "":
				key, err := crypto.ParsePrivateKeyWIF(c.String("wif"))
				if err != nil {
					return fmt.Errorf("parsing WIF key: %w", err)
				}
				handle, err = t2z.Sign(handle, inputIndex, key)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("either --wif or --signature is required")
			}

			logger.Info("input signed", "input", inputIndex)
			return writeHandle(handle, c.String("out"))
		},
	}
}

func combineCommand() *cli.Command {
	return &cli.Command{
		Name:      "combine",
		Usage:     "Merge partially signed copies of the same PCZT",
		ArgsUsage: "<pczt-file>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Required: true, Usage: "Output PCZT file"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("need at least two PCZT files")
			}
			handles := make([]*t2z.Handle, c.NArg())
			for i, path := range c.Args().Slice() {
				handle, err := readHandle(path)
				if err != nil {
					return err
				}
				handles[i] = handle
			}
			combined, err := t2z.Combine(handles...)
			if err != nil {
				return err
			}
			return writeHandle(combined, c.String("out"))
		},
	}
}

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:  "extract",
		Usage: "Finalize a fully signed PCZT and print the raw transaction",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "pczt", Required: true, Usage: "PCZT file"},
			&cli.StringFlag{Name: "out", Usage: "Write raw transaction bytes to this file instead of stdout"},
		},
		Action: func(c *cli.Context) error {
			logger := newLogger(c)
			handle, err := readHandle(c.String("pczt"))
			if err != nil {
				return err
			}
			txBytes, txid, err := t2z.FinalizeAndExtract(handle, nil)
			if err != nil {
				return err
			}
			logger.Info("transaction extracted", "txid", hex.EncodeToString(txid[:]), "size", len(txBytes))

			if out := c.String("out"); out != "" {
				return os.WriteFile(out, txBytes, 0o644)
			}
			fmt.Println(hex.EncodeToString(txBytes))
			return nil
		},
	}
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Decode a raw v5 transaction and print a summary",
		ArgsUsage: "<tx-file-or-hex>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected a transaction file or hex string")
			}
			txBytes, err := readTxBytes(c.Args().First())
			if err != nil {
				return err
			}
			tx, err := crypto.DecodeV5Tx(txBytes)
			if err != nil {
				return err
			}
			txid, err := tx.TxID()
			if err != nil {
				return err
			}

			summary := map[string]interface{}{
				"txid":                hex.EncodeToString(txid[:]),
				"version":             tx.Version & 0x7FFFFFFF,
				"consensus_branch_id": fmt.Sprintf("0x%08x", tx.ConsensusBranchID),
				"expiry_height":       tx.ExpiryHeight,
				"transparent_inputs":  len(tx.Inputs),
				"transparent_outputs": len(tx.Outputs),
				"orchard_actions":     len(tx.OrchardActions),
			}
			if len(tx.OrchardActions) > 0 {
				summary["orchard_value_balance"] = tx.OrchardValueBalance
			}
			return printJSON(summary)
		},
	}
}

func readHandle(path string) (*t2z.Handle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	handle, err := t2z.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return handle, nil
}

func writeHandle(handle *t2z.Handle, path string) error {
	data, err := handle.Serialize()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// readTxBytes accepts either a file of raw transaction bytes or a hex
// string on the command line.
func readTxBytes(arg string) ([]byte, error) {
	if data, err := os.ReadFile(arg); err == nil {
		if decoded, hexErr := hex.DecodeString(strings.TrimSpace(string(data))); hexErr == nil {
			return decoded, nil
		}
		return data, nil
	}
	decoded, err := hex.DecodeString(arg)
	if err != nil {
		return nil, fmt.Errorf("%s is neither a readable file nor valid hex", arg)
	}
	return decoded, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
