// Package report renders integration results as Markdown, JSON and plain
// text.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"mc-integrator/domain"
)

// Markdown writes the run summary: sample count, both values, the error
// between them, a link to the plot and the conclusions.
func Markdown(w io.Writer, r domain.Report, plotFile string) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Definite integral by the Monte Carlo method\n\n")
	fmt.Fprintf(&b, "Integral of f(x) = %s over [%g, %g].\n\n", r.Expression, r.Interval.A, r.Interval.B)
	fmt.Fprintf(&b, "- Number of random points (n): **%d**\n", r.Samples)
	fmt.Fprintf(&b, "- Monte Carlo result: **%.6f** (standard error %.2e, 95%% interval [%.6f, %.6f])\n",
		r.Estimate, r.StdError, r.CI95Low, r.CI95High)
	fmt.Fprintf(&b, "- Reference (%s quadrature): **%.6f**, error estimate **%.2e**\n",
		r.QuadratureMethod, r.Reference, r.ErrorBound)
	if r.RelativeErrorDefined {
		fmt.Fprintf(&b, "- Monte Carlo relative error: **%.4f%%**\n", r.RelativeError*100)
	} else {
		fmt.Fprintf(&b, "- Monte Carlo relative error: **undefined** (reference is zero), absolute error **%.2e**\n",
			r.AbsoluteError)
	}
	if r.Exact != nil {
		fmt.Fprintf(&b, "- Closed-form value: %.10f\n", *r.Exact)
	}
	fmt.Fprintf(&b, "- Seed: `%d`, workers: %d\n", r.Seed, r.Workers)

	if plotFile != "" {
		fmt.Fprintf(&b, "\n## Function and integration region\n\n")
		fmt.Fprintf(&b, "![](%s)\n", filepath.ToSlash(plotFile))
	}

	fmt.Fprintf(&b, "\n## Conclusions\n\n")
	fmt.Fprintf(&b, "- The Monte Carlo method gives an approximate result; its accuracy grows with the number of samples.\n")
	fmt.Fprintf(&b, "- Adaptive quadrature gives a very accurate value that serves as the reference.\n")
	fmt.Fprintf(&b, "- For n ≳ 10^5 the relative error drops to a few percent or less, but it still trails deterministic methods.\n")

	_, err := w.Write(b.Bytes())
	return err
}

// WriteMarkdown renders Markdown to path atomically.
func WriteMarkdown(path string, r domain.Report, plotFile string) error {
	var buf bytes.Buffer
	if err := Markdown(&buf, r, plotFile); err != nil {
		return err
	}
	return WriteFileAtomic(path, buf.Bytes())
}

// WriteJSON writes v as indented JSON to path atomically.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return WriteFileAtomic(path, append(data, '\n'))
}

// Console prints the short result summary shown after a run.
func Console(w io.Writer, r domain.Report) {
	fmt.Fprintf(w, "Monte Carlo: %.6f\n", r.Estimate)
	fmt.Fprintf(w, "Quad:        %.6f ± %.2e\n", r.Reference, r.ErrorBound)
	if r.RelativeErrorDefined {
		fmt.Fprintf(w, "Rel. error:  %.4f%%\n", r.RelativeError*100)
	} else {
		fmt.Fprintf(w, "Rel. error:  undefined (reference is zero), abs. error: %.2e\n", r.AbsoluteError)
	}
}
