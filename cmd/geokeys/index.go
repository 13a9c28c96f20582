package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gcbaptista/go-geocode-keys/model"
)

// IndexBatchSize is the number of records handed to the indexer at once.
const IndexBatchSize = 500

var (
	indexDataDir string
	indexFresh   bool
)

var indexCmd = &cobra.Command{
	Use:   "index <file>",
	Short: "Index match records into the data directory",
	Long: `Index match records from a JSON array or a JSON-lines file ("-" reads
stdin) and persist the index into the data directory.

Existing data is extended unless --fresh is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringVarP(&indexDataDir, "data-dir", "d", "", "Index data directory (overrides [index].data_dir)")
	indexCmd.Flags().BoolVar(&indexFresh, "fresh", false, "Ignore any persisted index")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if indexDataDir != "" {
		cfg.Index.DataDir = indexDataDir
	}

	l := newLogger(cfg, "index")
	svc, err := newService(cfg, l)
	if err != nil {
		return err
	}
	if !indexFresh {
		if err := svc.Restore(cfg.Index.DataDir); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	in := cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0]) // #nosec G304 -- path is the operator's argument
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()
		in = f
	}

	total := 0
	err = readRecords(in, func(batch []model.MatchRecord) error {
		if err := svc.AddRecords(batch); err != nil {
			return err
		}
		total += len(batch)
		l.Debug("Indexed batch", "records", total)
		return nil
	})
	if err != nil {
		return err
	}

	if err := svc.Persist(cfg.Index.DataDir); err != nil {
		return err
	}
	stats := svc.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d records (%d total, %d tokens) into %s\n",
		total, stats.Records, stats.Vocabulary, cfg.Index.DataDir)
	return nil
}

// readRecords streams records in batches of IndexBatchSize. Input starting
// with '[' is read as one JSON array, anything else as JSON lines.
func readRecords(r io.Reader, fn func([]model.MatchRecord) error) error {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}

	batch := make([]model.MatchRecord, 0, IndexBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := fn(batch)
		batch = make([]model.MatchRecord, 0, IndexBatchSize)
		return err
	}

	if first == '[' {
		dec := json.NewDecoder(br)
		if _, err := dec.Token(); err != nil {
			return fmt.Errorf("failed to read record array: %w", err)
		}
		for i := 0; dec.More(); i++ {
			var rec model.MatchRecord
			if err := dec.Decode(&rec); err != nil {
				return fmt.Errorf("failed to decode record %d: %w", i, err)
			}
			batch = append(batch, rec)
			if len(batch) == IndexBatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return flush()
	}

	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		var rec model.MatchRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to decode line %d: %w", line, err)
		}
		batch = append(batch, rec)
		if len(batch) == IndexBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read records: %w", err)
	}
	return flush()
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if b != ' ' && b != '\n' && b != '\r' && b != '\t' {
			return b, br.UnreadByte()
		}
	}
}
