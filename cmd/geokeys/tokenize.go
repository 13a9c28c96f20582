package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gcbaptista/go-geocode-keys/internal/termops"
)

var (
	tokenizeCoerce bool
	tokenizeJSON   bool
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize <text>...",
	Short: "Show the tokens, term IDs and phrase ID of a text",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTokenize,
}

func init() {
	rootCmd.AddCommand(tokenizeCmd)
	tokenizeCmd.Flags().BoolVarP(&tokenizeCoerce, "coerce-numeric", "n", false, "Read \"<lon>,<lat>\" input as a coordinate pair")
	tokenizeCmd.Flags().BoolVar(&tokenizeJSON, "json", false, "Output as JSON")
}

type tokenizeOutput struct {
	Tokens  []string    `json:"tokens"`
	Terms   []uint32    `json:"terms"`
	Phrase  uint32      `json:"phrase,omitempty"`
	Cluster uint32      `json:"cluster,omitempty"`
	LonLat  *[2]float64 `json:"lonlat,omitempty"`
}

func runTokenize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	enc := termops.NewEncoder(cfg.Encoding, nil)

	q := enc.Normalizer().TokenizeQuery(strings.Join(args, " "), tokenizeCoerce)
	out := tokenizeOutput{Tokens: q.Tokens, Terms: enc.Terms(q.Tokens)}
	if q.IsLonLat() {
		out.LonLat = &[2]float64{q.LonLat[0], q.LonLat[1]}
	} else if len(out.Terms) > 0 {
		out.Phrase = enc.Phrase(out.Terms)
		out.Cluster = enc.Cluster(out.Phrase)
	}

	w := cmd.OutOrStdout()
	if tokenizeJSON {
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e.Encode(out)
	}

	if out.LonLat != nil {
		fmt.Fprintf(w, "lonlat\t%g,%g\n", out.LonLat[0], out.LonLat[1])
		return nil
	}
	for i, token := range out.Tokens {
		fmt.Fprintf(w, "%s\t%d\n", token, out.Terms[i])
	}
	if len(out.Terms) > 0 {
		fmt.Fprintf(w, "phrase\t%d\tcluster %d\n", out.Phrase, out.Cluster)
	}
	return nil
}
