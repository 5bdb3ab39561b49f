// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scandata

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ReadFile loads a whitespace-separated column scan file. Lines starting
// with '#' are comments; the first non-comment line names the columns.
// Recognized names (case-insensitive): h, k, l, e, temp, detector,
// monitor, time. h, k, l, e, and detector are required; a missing
// monitor column defaults to 1 per point, missing temp and time to 0.
func ReadFile(path string) (*Scan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading scan file: %w", err)
	}
	defer f.Close()

	var (
		header  []string
		columns map[string]int
		scan    = &Scan{}
		lineNo  int
	)

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if header == nil {
			header = fields
			columns = make(map[string]int, len(fields))
			for i, name := range fields {
				columns[strings.ToLower(name)] = i
			}
			for _, required := range []string{"h", "k", "l", "e", "detector"} {
				if _, ok := columns[required]; !ok {
					return nil, fmt.Errorf("scan file %s: missing required column %q", path, required)
				}
			}
			continue
		}

		if len(fields) != len(header) {
			return nil, fmt.Errorf("scan file %s line %d: %d values for %d columns", path, lineNo, len(fields), len(header))
		}
		row := make([]float64, len(fields))
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("scan file %s line %d: parsing %q: %w", path, lineNo, field, err)
			}
			row[i] = v
		}

		get := func(name string, def float64) float64 {
			if i, ok := columns[name]; ok {
				return row[i]
			}
			return def
		}
		scan.H = append(scan.H, get("h", 0))
		scan.K = append(scan.K, get("k", 0))
		scan.L = append(scan.L, get("l", 0))
		scan.E = append(scan.E, get("e", 0))
		scan.Temp = append(scan.Temp, get("temp", 0))
		scan.Detector = append(scan.Detector, get("detector", 0))
		scan.Monitor = append(scan.Monitor, get("monitor", 1))
		scan.Time = append(scan.Time, get("time", 0))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading scan file %s: %w", path, err)
	}
	if header == nil {
		return nil, fmt.Errorf("scan file %s: no header line", path)
	}
	if scan.Len() == 0 {
		return nil, fmt.Errorf("scan file %s: no data rows", path)
	}
	return scan, nil
}
