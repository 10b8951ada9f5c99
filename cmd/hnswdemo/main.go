// Command hnswdemo is a minimal CLI harness exercising the facade
// end-to-end: insert vectors, search, and export/import a snapshot
// against a file-backed store.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/TFMV/hnsw"
	"github.com/TFMV/hnsw/db"
	"github.com/TFMV/hnsw/store"
	"github.com/spf13/cobra"
)

var (
	dbName   string
	dbDir    string
	dbDims   int
	dbMetric string
)

func main() {
	root := &cobra.Command{
		Use:   "hnswdemo",
		Short: "Exercise the embeddable HNSW vector database from the command line",
	}
	root.PersistentFlags().StringVar(&dbName, "name", "demo", "database name within the store directory")
	root.PersistentFlags().StringVar(&dbDir, "dir", "./hnswdemo-data", "directory backing the file store")
	root.PersistentFlags().IntVar(&dbDims, "dims", 4, "vector dimensionality")
	root.PersistentFlags().StringVar(&dbMetric, "metric", "cosine", "distance metric: euclidean, cosine, dotproduct")

	root.AddCommand(insertCmd(), searchCmd(), exportCmd(), importCmd(), listCmd())

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func openDB(ctx context.Context) (*db.DB, error) {
	st, err := store.NewFile(dbDir)
	if err != nil {
		return nil, err
	}
	d, err := db.New(db.Config{Name: dbName, Dims: dbDims, Metric: dbMetric}, st)
	if err != nil {
		return nil, err
	}
	if err := d.Init(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func parseVector(args []string) (hnsw.Vector, error) {
	v := make(hnsw.Vector, len(args))
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 32)
		if err != nil {
			return nil, fmt.Errorf("parsing component %d (%q): %w", i, a, err)
		}
		v[i] = float32(f)
	}
	return v, nil
}

func insertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insert <id> <component...>",
		Short: "Insert or upsert a vector by ID",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := openDB(ctx)
			if err != nil {
				return err
			}
			vec, err := parseVector(args[1:])
			if err != nil {
				return err
			}
			if err := d.Insert(ctx, args[0], vec, nil); err != nil {
				return err
			}
			fmt.Printf("inserted %q (size=%d)\n", args[0], d.Size())
			return nil
		},
	}
}

func searchCmd() *cobra.Command {
	var k int
	var ef int
	cmd := &cobra.Command{
		Use:   "search <component...>",
		Short: "Find the k nearest neighbors of a query vector",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := openDB(ctx)
			if err != nil {
				return err
			}
			vec, err := parseVector(args)
			if err != nil {
				return err
			}
			results, err := d.Search(vec, k, ef)
			if err != nil {
				return err
			}
			w := csv.NewWriter(os.Stdout)
			defer w.Flush()
			w.Write([]string{"id", "distance"})
			for _, r := range results {
				w.Write([]string{r.ID, strconv.FormatFloat(float64(r.Distance), 'f', 6, 32)})
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&k, "k", 10, "number of neighbors to return")
	cmd.Flags().IntVar(&ef, "ef", 50, "search-time candidate pool size")
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every live external ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range d.ListIDs() {
				fmt.Println(id)
			}
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the current snapshot as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			text, err := d.Export()
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the current state with a snapshot read from a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := openDB(ctx)
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := d.Import(ctx, string(raw)); err != nil {
				return err
			}
			fmt.Printf("imported snapshot (size=%d)\n", d.Size())
			return nil
		},
	}
}
