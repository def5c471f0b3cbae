package objectstore

import (
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"
)

// SnapshotRow mirrors the Parquet schema of an exported rate snapshot.
// Money is float64 in the Parquet representation and converted to decimal
// by the cache layer.
type SnapshotRow struct {
	Provider *string `parquet:"provider,optional"`
	Rate     float64 `parquet:"rate"`
	Date     string  `parquet:"date,optional"`
}

// EffectiveDate parses the row's date column. Snapshots carry ISO dates;
// anything unparseable falls back to the zero time rather than failing the
// whole refresh.
func (r SnapshotRow) EffectiveDate() time.Time {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, r.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}

// DecodeSnapshot reads all rows of a Parquet snapshot object.
func DecodeSnapshot(r io.ReaderAt, size int64) ([]SnapshotRow, error) {
	rows, err := parquet.Read[SnapshotRow](r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet rows: %w", err)
	}
	return rows, nil
}
