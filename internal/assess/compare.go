// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package assess

import (
	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/unicode/norm"
)

// Validation messages written to the log and the terminal.
const (
	ValidationSuccessMsg = "VALIDATION SUCCESSFUL!"
	ValidationFailedMsg  = "VALIDATION FAILED - Source and Destination folder counts do not match."
	ValidationFailedLine = "ERROR: " + ValidationFailedMsg
)

// Comparison is the outcome of comparing two reports.
type Comparison struct {
	Equal bool
	// Diff is a human readable (-source +destination) diff, empty when Equal.
	Diff string
}

// Compare reports whether a and b hold the same header and rows. Names are
// compared after NFC normalisation so decomposed and precomposed forms match.
func Compare(a, b Report) Comparison {
	na, nb := normalize(a), normalize(b)
	diff := cmp.Diff(na, nb)
	return Comparison{Equal: diff == "", Diff: diff}
}

func normalize(r Report) Report {
	out := Report{
		Header: make([]string, len(r.Header)),
		Rows:   make([]Row, len(r.Rows)),
	}
	for i, h := range r.Header {
		out.Header[i] = norm.NFC.String(h)
	}
	for i, row := range r.Rows {
		row.Name = norm.NFC.String(row.Name)
		out.Rows[i] = row
	}
	return out
}
