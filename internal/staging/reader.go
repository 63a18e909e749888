package staging

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Snapshot is the raw contents of one staged file: the header row and the
// data rows as written. The loader's schema adapter interprets them.
type Snapshot struct {
	Path   string
	Header []string
	Rows   [][]string
}

// ReadSnapshot parses a staged CSV file. A file without a header row is
// malformed; a file with a header and no rows is a valid empty snapshot.
func ReadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	csvReader := csv.NewReader(f)

	header, err := csvReader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("snapshot %s has no header row", path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot header: %w", err)
	}

	var rows [][]string
	for {
		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading snapshot row: %w", err)
		}
		rows = append(rows, row)
	}

	return &Snapshot{Path: path, Header: header, Rows: rows}, nil
}
