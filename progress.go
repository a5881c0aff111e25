package main

import (
	"io"

	"github.com/cheggaaa/pb"
)

// barMonitor draws one progress bar per generator pass.
type barMonitor struct {
	out io.Writer
	bar *pb.ProgressBar
}

func newBarMonitor(out io.Writer) *barMonitor {
	return &barMonitor{out: out}
}

func (m *barMonitor) Begin(name string, total int) {
	m.bar = pb.New(total).Prefix(name + " ")
	m.bar.Output = m.out
	m.bar.ShowSpeed = true
	m.bar.Start()
}

func (m *barMonitor) Worked(n int) {
	if m.bar != nil {
		m.bar.Add(n)
	}
}

func (m *barMonitor) Done() {
	if m.bar != nil {
		m.bar.Finish()
		m.bar = nil
	}
}
