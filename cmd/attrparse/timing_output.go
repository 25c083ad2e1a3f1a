package main

import (
	"fmt"
	"io"

	"attrparse/internal/observ"
)

func printTimings(out io.Writer, timer *observ.Timer) {
	if out == nil || timer == nil || len(timer.Report().Phases) == 0 {
		return
	}
	fmt.Fprint(out, timer.Summary())
}
