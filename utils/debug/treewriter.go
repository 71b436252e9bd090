// Package debug renders human readable views of book structure for listings
// and debug reports.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w: &strings.Builder{},
	}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

func (tw TreeWriter) indent(depth int) {
	for range depth {
		tw.w.WriteString("  ")
	}
}

func (tw TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// Field writes "label: value" with value quoted, empty values are left as is.
func (tw TreeWriter) Field(depth int, label, value string) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	if value != "" {
		tw.w.WriteString(strconv.Quote(value))
	}
	tw.w.WriteByte('\n')
}

// Paths writes slash separated paths as folder tree. Paths are expected to be
// sorted so files of a folder are adjacent. Non empty result of annotate is
// printed after file name.
func (tw TreeWriter) Paths(paths []string, annotate func(p string) string) {
	var open []string
	for _, p := range paths {
		dirs := strings.Split(p, "/")
		name := dirs[len(dirs)-1]
		dirs = dirs[:len(dirs)-1]

		common := 0
		for common < len(open) && common < len(dirs) && open[common] == dirs[common] {
			common++
		}
		for i := common; i < len(dirs); i++ {
			tw.Line(i, "%s/", dirs[i])
		}
		open = dirs

		if annotate != nil {
			if note := annotate(p); note != "" {
				tw.Line(len(dirs), "%s  [%s]", name, note)
				continue
			}
		}
		tw.Line(len(dirs), "%s", name)
	}
}
