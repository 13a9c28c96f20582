package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gcbaptista/go-geocode-keys/internal/errors"
	"github.com/gcbaptista/go-geocode-keys/internal/termops"
	"github.com/gcbaptista/go-geocode-keys/internal/tilecode"
	"github.com/gcbaptista/go-geocode-keys/internal/utfgrid"
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Compute individual index keys",
	Long: `Compute individual index keys.

Subcommands:
  degens <term>         - Prefix keys and degenerate values of a term
  phrase <text>         - Phrase ID and cluster of a text
  zxy <id> <z/x/y>      - Tile ID of a local feature ID in a tile
  code <code>           - Feature key of a UTF grid character code
  grid-code <key>       - UTF grid character code of a feature key`,
}

var encodeDegensCmd = &cobra.Command{
	Use:   "degens <term>",
	Short: "Prefix keys and degenerate values of a term",
	Args:  cobra.ExactArgs(1),
	RunE:  runEncodeDegens,
}

var encodePhraseCmd = &cobra.Command{
	Use:   "phrase <text>...",
	Short: "Phrase ID and cluster of a text",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEncodePhrase,
}

var encodeZXYCmd = &cobra.Command{
	Use:   "zxy <id> <z/x/y>",
	Short: "Tile ID of a local feature ID in a tile",
	Args:  cobra.ExactArgs(2),
	RunE:  runEncodeZXY,
}

var encodeCodeCmd = &cobra.Command{
	Use:   "code <code>",
	Short: "Feature key of a UTF grid character code",
	Args:  cobra.ExactArgs(1),
	RunE:  runEncodeCode,
}

var encodeGridCodeCmd = &cobra.Command{
	Use:   "grid-code <key>",
	Short: "UTF grid character code of a feature key",
	Args:  cobra.ExactArgs(1),
	RunE:  runEncodeGridCode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	encodeCmd.AddCommand(encodeDegensCmd, encodePhraseCmd, encodeZXYCmd, encodeCodeCmd, encodeGridCodeCmd)
}

func newEncoder() (*termops.Encoder, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return termops.NewEncoder(cfg.Encoding, nil), nil
}

func runEncodeDegens(cmd *cobra.Command, args []string) error {
	enc, err := newEncoder()
	if err != nil {
		return err
	}
	degens := enc.Degens(args[0])
	for i := 0; i+1 < len(degens); i += 2 {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d\t%d\n", degens[i], degens[i+1], enc.DegenDistance(degens[i+1]))
	}
	return nil
}

func runEncodePhrase(cmd *cobra.Command, args []string) error {
	enc, err := newEncoder()
	if err != nil {
		return err
	}
	terms := enc.TermsOf(strings.Join(args, " "))
	if len(terms) == 0 {
		return fmt.Errorf("text yields no tokens")
	}
	phrase := enc.Phrase(terms)
	fmt.Fprintf(cmd.OutOrStdout(), "%d\tcluster %d\n", phrase, enc.Cluster(phrase))
	return nil
}

func runEncodeZXY(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid local id %q: %w", args[0], err)
	}
	coder := tilecode.NewCoder(cfg.Encoding)
	if id > coder.MaxLocalID() {
		return errors.NewTileRangeError(id, coder.MaxLocalID())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d\n", coder.ZXY(id, args[1]))
	return nil
}

func runEncodeCode(cmd *cobra.Command, args []string) error {
	code, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid code %q: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d\n", utfgrid.ResolveCode(code))
	return nil
}

func runEncodeGridCode(cmd *cobra.Command, args []string) error {
	key, err := strconv.Atoi(args[0])
	if err != nil || key < 0 {
		return fmt.Errorf("invalid key %q: must be a non-negative integer", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d\n", utfgrid.EncodeCode(key))
	return nil
}
