package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/suffix-labs/zcash-t2z/pkg/builder"
	"github.com/suffix-labs/zcash-t2z/pkg/consensus"
	"github.com/suffix-labs/zcash-t2z/pkg/request"
	"github.com/suffix-labs/zcash-t2z/pkg/t2z"
)

// proposalFile is the YAML schema for the propose command.
type proposalFile struct {
	Network       string `yaml:"network"`
	TargetHeight  uint32 `yaml:"target_height"`
	ChangeAddress string `yaml:"change_address"`

	Inputs []struct {
		TxID         string `yaml:"txid"`
		Vout         uint32 `yaml:"vout"`
		Value        uint64 `yaml:"value"`
		ScriptPubKey string `yaml:"script_pubkey"`
		Pubkey       string `yaml:"pubkey"`
		RedeemScript string `yaml:"redeem_script"`
	} `yaml:"inputs"`

	Payments []struct {
		Address string `yaml:"address"`
		Amount  uint64 `yaml:"amount"`
		Memo    string `yaml:"memo"`
	} `yaml:"payments"`
}

func proposeCommand() *cli.Command {
	return &cli.Command{
		Name:  "propose",
		Usage: "Build a balanced PCZT from a YAML proposal file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "Proposal YAML file"},
			&cli.StringFlag{Name: "out", Required: true, Usage: "Output PCZT file"},
		},
		Action: func(c *cli.Context) error {
			logger := newLogger(c)

			data, err := os.ReadFile(c.String("file"))
			if err != nil {
				return fmt.Errorf("reading proposal: %w", err)
			}
			var proposal proposalFile
			if err := yaml.Unmarshal(data, &proposal); err != nil {
				return fmt.Errorf("parsing proposal: %w", err)
			}

			req, utxos, err := proposal.build()
			if err != nil {
				return err
			}

			handle, change, err := t2z.Propose(req, utxos, builder.Options{
				ChangeAddress: proposal.ChangeAddress,
			})
			if err != nil {
				return err
			}

			if change != nil {
				logger.Info("proposal built", "payments", len(proposal.Payments),
					"inputs", len(utxos), "change", change.Value)
			} else {
				logger.Info("proposal built", "payments", len(proposal.Payments),
					"inputs", len(utxos), "change", 0)
			}
			return writeHandle(handle, c.String("out"))
		},
	}
}

func (pf *proposalFile) build() (*request.TransactionRequest, []builder.UTXO, error) {
	payments := make([]request.Payment, len(pf.Payments))
	for i, p := range pf.Payments {
		payments[i] = request.Payment{
			Address: p.Address,
			Amount:  p.Amount,
			Memo:    p.Memo,
		}
	}

	req, err := request.NewWithTargetHeight(payments, pf.TargetHeight)
	if err != nil {
		return nil, nil, err
	}

	switch pf.Network {
	case "", "main":
	case "test":
		if err := req.SetNetwork(consensus.TestNetwork); err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("unknown network %q (want main or test)", pf.Network)
	}

	utxos := make([]builder.UTXO, len(pf.Inputs))
	for i, in := range pf.Inputs {
		utxo := builder.UTXO{
			Vout:  in.Vout,
			Value: in.Value,
		}

		txid, err := hex.DecodeString(in.TxID)
		if err != nil || len(txid) != 32 {
			return nil, nil, fmt.Errorf("input %d: txid must be 32 hex-encoded bytes", i)
		}
		copy(utxo.TxID[:], txid)

		utxo.ScriptPubKey, err = hex.DecodeString(in.ScriptPubKey)
		if err != nil || len(utxo.ScriptPubKey) == 0 {
			return nil, nil, fmt.Errorf("input %d: invalid script_pubkey", i)
		}

		if in.Pubkey != "" {
			pubkey, err := hex.DecodeString(in.Pubkey)
			if err != nil || len(pubkey) != 33 {
				return nil, nil, fmt.Errorf("input %d: pubkey must be 33 hex-encoded bytes", i)
			}
			copy(utxo.Pubkey[:], pubkey)
		}

		if in.RedeemScript != "" {
			utxo.RedeemScript, err = hex.DecodeString(in.RedeemScript)
			if err != nil {
				return nil, nil, fmt.Errorf("input %d: invalid redeem_script", i)
			}
		}
		utxos[i] = utxo
	}

	return req, utxos, nil
}
