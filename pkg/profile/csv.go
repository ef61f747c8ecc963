package profile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	doseerrors "dosekit/pkg/errors"
)

// ReadCSV reads a profile from two comma-separated columns: distance, dose.
// Lines starting with '#' are ignored, and a first row whose cells are not
// numeric is treated as a header.
func ReadCSV(r io.Reader) (Profile, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var dist, dose []float64
	for row := 0; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Profile{}, fmt.Errorf("read profile csv: %w", err)
		}
		if len(rec) < 2 {
			return Profile{}, doseerrors.InvalidArgument("profile csv row %d: want 2 columns, got %d", row+1, len(rec))
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		d, errD := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if errX != nil || errD != nil {
			if row == 0 {
				continue
			}
			return Profile{}, doseerrors.InvalidArgument("profile csv row %d: non-numeric value %q", row+1, rec)
		}
		dist = append(dist, x)
		dose = append(dose, d)
	}
	return New(dist, dose)
}
