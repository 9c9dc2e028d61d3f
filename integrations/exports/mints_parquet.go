package exports

import (
	"fmt"
	"os"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"randomnft/integrations/indexer"
)

type mintParquetRow struct {
	AssetID   int64  `parquet:"name=asset_id, type=INT64"`
	RequestID int64  `parquet:"name=request_id, type=INT64"`
	Owner     string `parquet:"name=owner, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Category  int32  `parquet:"name=category, type=INT32"`
	URI       string `parquet:"name=uri, type=UTF8, encoding=PLAIN_DICTIONARY"`
	MintedAt  string `parquet:"name=minted_at, type=UTF8, encoding=PLAIN_DICTIONARY"`
}

// MintsParquet writes minted assets to a SNAPPY-compressed parquet file.
func MintsParquet(path string, assets []indexer.AssetRow) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("exports: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(mintParquetRow), 1)
	if err != nil {
		file.Close()
		return fmt.Errorf("exports: parquet schema: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, asset := range assets {
		row := &mintParquetRow{
			AssetID:   int64(asset.ID),
			RequestID: int64(asset.RequestID),
			Owner:     asset.Owner,
			Category:  int32(asset.Category),
			URI:       asset.URI,
			MintedAt:  mintedAt(asset),
		}
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			file.Close()
			return fmt.Errorf("exports: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return fmt.Errorf("exports: parquet flush: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("exports: close parquet file: %w", err)
	}
	return nil
}
