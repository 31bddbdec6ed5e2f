package main

import (
	"fmt"
	"time"

	"github.com/cuemby/warren/pkg/blob"
	"github.com/cuemby/warren/pkg/catalog"
	"github.com/cuemby/warren/pkg/datastore"
	"github.com/cuemby/warren/pkg/sats"
	"github.com/cuemby/warren/pkg/types"
	"github.com/spf13/cobra"
)

var (
	benchRows  int
	benchBatch int
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Insert synthetic rows against an in-memory datastore and report throughput",
	RunE:  runBench,
}

func init() {
	benchCmd.Flags().IntVar(&benchRows, "rows", 100_000, "total rows to insert")
	benchCmd.Flags().IntVar(&benchBatch, "batch", 1000, "rows per committed transaction")
}

func benchRowType() sats.AlgebraicType {
	return sats.Product(
		sats.Field("id", sats.U32()),
		sats.Field("payload", sats.String()),
	)
}

func runBench(cmd *cobra.Command, args []string) error {
	committed := catalog.NewCommittedState(types.NewDatabaseAddress())
	committed.BlobStore = blob.NewInMemoryStore()

	schema, err := committed.CreateTable("bench_rows", benchRowType(), nil)
	if err != nil {
		return fmt.Errorf("create bench table: %w", err)
	}

	ds := datastore.New(committed)

	if benchBatch <= 0 {
		benchBatch = 1
	}

	start := time.Now()
	inserted := 0
	for inserted < benchRows {
		tx := ds.BeginTx("bench")
		n := benchBatch
		if remaining := benchRows - inserted; n > remaining {
			n = remaining
		}
		for i := 0; i < n; i++ {
			row := sats.ProductOf(sats.U32Value(uint32(inserted+i)), sats.StringValue("row payload"))
			if _, err := tx.Insert(schema.TableId, row); err != nil {
				ds.Rollback(tx)
				return fmt.Errorf("insert: %w", err)
			}
		}
		if _, err := ds.Commit(tx); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		inserted += n
	}
	elapsed := time.Since(start)

	table, _ := committed.GetTable(schema.TableId)
	fmt.Printf("inserted %d rows in %d batches of %d\n", inserted, (benchRows+benchBatch-1)/benchBatch, benchBatch)
	fmt.Printf("elapsed:    %s\n", elapsed)
	fmt.Printf("throughput: %.0f rows/sec\n", float64(inserted)/elapsed.Seconds())
	fmt.Printf("final rows: %d\n", table.NumRows())
	return nil
}
