package indexer

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

type swapParquetRow struct {
	ID         string `parquet:"name=id, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Offer      string `parquet:"name=offer, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Proposal   string `parquet:"name=proposal, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Buyer      string `parquet:"name=buyer, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Seller     string `parquet:"name=seller, type=UTF8, encoding=PLAIN_DICTIONARY"`
	AssetA     string `parquet:"name=asset_a, type=UTF8, encoding=PLAIN_DICTIONARY"`
	AmountA    int64  `parquet:"name=amount_a, type=INT64"`
	AssetB     string `parquet:"name=asset_b, type=UTF8, encoding=PLAIN_DICTIONARY"`
	AmountB    int64  `parquet:"name=amount_b, type=INT64"`
	TxHash     string `parquet:"name=tx_hash, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Height     int64  `parquet:"name=height, type=INT64"`
	ExecutedAt string `parquet:"name=executed_at, type=UTF8, encoding=PLAIN_DICTIONARY"`
}

// ExportSwaps writes every recorded swap, in height order, to a parquet file
// at path and returns the number of rows written.
func (ix *Indexer) ExportSwaps(ctx context.Context, path string) (int, error) {
	var swaps []SwapRow
	if err := ix.db.WithContext(ctx).Order("height ASC").Find(&swaps).Error; err != nil {
		return 0, fmt.Errorf("indexer: load swaps: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("indexer: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(swapParquetRow), 1)
	if err != nil {
		file.Close()
		return 0, fmt.Errorf("indexer: parquet schema: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, swap := range swaps {
		row := &swapParquetRow{
			ID:         swap.ID.String(),
			Offer:      swap.Offer,
			Buyer:      swap.Buyer,
			Seller:     swap.Seller,
			AssetA:     swap.AssetA,
			AmountA:    int64(swap.AmountA),
			AssetB:     swap.AssetB,
			AmountB:    int64(swap.AmountB),
			TxHash:     swap.TxHash,
			Height:     int64(swap.Height),
			ExecutedAt: swap.ExecutedAt.UTC().Format(time.RFC3339),
		}
		if swap.Proposal != nil {
			row.Proposal = *swap.Proposal
		}
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			file.Close()
			return 0, fmt.Errorf("indexer: write parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return 0, fmt.Errorf("indexer: finalize parquet: %w", err)
	}
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("indexer: close parquet: %w", err)
	}
	return len(swaps), nil
}
