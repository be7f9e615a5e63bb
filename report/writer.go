package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode encodes reports with RFC 3339 timestamps and canonical key order, so the
// same report always produces the same bytes.
var cborEncMode cbor.EncMode

// cborDecMode decodes reports written by WriteCBOR.
var cborDecMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	cborEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create report CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthAllowed,
	}
	cborDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create report CBOR decoder mode: %v", err))
	}
}

// WriteJSON writes the report as JSON, two-space indented when indent is true.
func (r *Report) WriteJSON(w io.Writer, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}

	return enc.Encode(r)
}

// WriteCBOR writes the report as CBOR.
func (r *Report) WriteCBOR(w io.Writer) error {
	return cborEncMode.NewEncoder(w).Encode(r)
}

// DecodeCBOR decodes a report written by WriteCBOR.
func DecodeCBOR(data []byte) (*Report, error) {
	var rep Report
	if err := cborDecMode.Unmarshal(data, &rep); err != nil {
		return nil, err
	}

	return &rep, nil
}

// WriteText writes a human-readable summary. verbose adds one line per result.
func (r *Report) WriteText(w io.Writer, verbose bool) error {
	var b strings.Builder

	fmt.Fprintf(&b, "\n=== Test Report ===\n")
	fmt.Fprintf(&b, "Generated: %s\n", r.Summary.GeneratedAt.Format(time.DateTime))

	for _, id := range r.Devices() {
		stats := r.DeviceStatistics[id]
		avg := "n/a"
		if stats.AvgMeasurement != nil {
			avg = fmt.Sprintf("%.4g", *stats.AvgMeasurement)
		}
		fmt.Fprintf(&b, "\n[%s] total=%d passed=%d failed=%d pass_rate=%.1f%% avg=%s\n",
			id, stats.TotalTests, stats.Passed, stats.Failed, stats.PassRate, avg)

		if !verbose {
			continue
		}

		for _, res := range r.DetailedResults {
			if res.DeviceID != id {
				continue
			}

			status := "PASS"
			if !res.Passed {
				status = "FAIL"
			}
			value := "-"
			if v, ok := res.Measurement(); ok {
				value = fmt.Sprintf("%g %s", v, res.Units)
			}
			fmt.Fprintf(&b, "    [%s] %s %s: %s\n", status, res.TestID, value, res.Notes)
		}
	}

	fmt.Fprintf(&b, "\n--- Summary ---\n")
	fmt.Fprintf(&b, "Total:   %d\n", r.Summary.TotalTests)
	fmt.Fprintf(&b, "Passed:  %d\n", r.Summary.Passed)
	fmt.Fprintf(&b, "Failed:  %d\n", r.Summary.Failed)
	fmt.Fprintf(&b, "Pass Rate: %.1f%%\n", r.Summary.PassRate)

	_, err := io.WriteString(w, b.String())

	return err
}

// SaveFile writes the report to path, as CBOR when the extension is ".cbor" and as
// indented JSON otherwise. Missing parent directories are created.
func (r *Report) SaveFile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("report: create directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".cbor") {
		err = r.WriteCBOR(f)
	} else {
		err = r.WriteJSON(f, true)
	}

	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}

	return nil
}
