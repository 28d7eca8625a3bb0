// Package dataset reads and writes governance organization snapshots as CSV
// or XLSX and derives the public view of the golden dataset.
package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nyc-orr/governance-orgs/internal/model"
)

const utf8BOM = "\ufeff"

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	HasHeader  bool            // if true, first row is sent to HeaderCh instead of the row channel
	HeaderCh   chan<- []string // optional: receives the header row
	LazyQuotes bool
}

// StreamCSV reads CSV rows from r and sends them to a channel.
// Caller must consume the returned row channel. Both channels are closed
// when processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1

		first := true
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "dataset: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "dataset: read csv row")
				return
			}

			if first {
				first = false
				if len(record) > 0 {
					record[0] = strings.TrimPrefix(record[0], utf8BOM)
				}
				if opts.HasHeader {
					if opts.HeaderCh != nil {
						select {
						case opts.HeaderCh <- record:
						case <-ctx.Done():
							errCh <- eris.Wrap(ctx.Err(), "dataset: context cancelled sending header")
							return
						}
					}
					continue
				}
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "dataset: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadCSV loads a snapshot from a CSV file whose first row is the header.
func ReadCSV(ctx context.Context, path string) (*model.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	headerCh := make(chan []string, 1)
	rowCh, errCh := StreamCSV(ctx, f, CSVOptions{HasHeader: true, HeaderCh: headerCh})

	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", path)
	}

	var header []string
	select {
	case header = <-headerCh:
	default:
		return nil, eris.Errorf("dataset: %s has no header row", path)
	}

	snap, err := FromRows(header, rows)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: parse %s", path)
	}
	return snap, nil
}

// FromRows builds a snapshot from a header and data rows. Header cells are
// trimmed; short rows are padded with empty values, and cells beyond the
// header are dropped with a warning. Fully blank rows are skipped.
func FromRows(header []string, rows [][]string) (*model.Snapshot, error) {
	cols := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, eris.Errorf("dataset: header column %d is blank", i+1)
		}
		if seen[h] {
			return nil, eris.Errorf("dataset: duplicate header column %q", h)
		}
		seen[h] = true
		cols[i] = h
	}

	snap := &model.Snapshot{Header: cols, Records: make([]model.Record, 0, len(rows))}
	for n, row := range rows {
		if blankRow(row) {
			continue
		}
		if len(row) > len(cols) {
			zap.L().Warn("dataset: row has more cells than header, extra cells dropped",
				zap.Int("row", n+2),
				zap.Int("cells", len(row)),
				zap.Int("columns", len(cols)),
			)
		}
		rec := make(model.Record, len(cols))
		for i, col := range cols {
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		snap.Records = append(snap.Records, rec)
	}
	return snap, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Rows flattens the snapshot into header order.
func Rows(snap *model.Snapshot) [][]string {
	rows := make([][]string, 0, len(snap.Records))
	for _, rec := range snap.Records {
		row := make([]string, len(snap.Header))
		for i, col := range snap.Header {
			row[i] = rec[col]
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes the snapshot to path. The file is written to a temporary
// sibling and renamed into place, so readers never see a partial file.
func WriteCSV(path string, snap *model.Snapshot) error {
	return WriteTable(path, snap.Header, Rows(snap))
}

// WriteTable writes a plain header plus rows to path atomically.
func WriteTable(path string, header []string, rows [][]string) error {
	return writeAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return eris.Wrap(err, "dataset: write header")
		}
		if err := cw.WriteAll(rows); err != nil {
			return eris.Wrap(err, "dataset: write rows")
		}
		return nil
	})
}

func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "dataset: create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "dataset: create temp file for %s", path)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if err := write(tmp); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrapf(err, "dataset: write %s", path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrapf(err, "dataset: sync %s", path)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "dataset: close %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return eris.Wrapf(err, "dataset: rename into %s", path)
	}
	return nil
}
