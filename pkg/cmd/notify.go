package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// consoleNotifier delivers the completion signal on the terminal. It
// prints what finished and what comes next, then asks whether to chain;
// auto-advance answers yes without prompting.
type consoleNotifier struct {
	in   *bufio.Reader
	out  io.Writer
	auto bool
}

func newConsoleNotifier(in io.Reader, out io.Writer, auto bool) *consoleNotifier {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &consoleNotifier{in: bufio.NewReader(in), out: out, auto: auto}
}

func (n *consoleNotifier) StageComplete(source, nextStage string) bool {
	fmt.Fprintf(n.out, "\n%s complete.\n", source)

	if n.auto {
		fmt.Fprintf(n.out, "Proceeding to %s.\n", nextStage)
		return true
	}

	fmt.Fprintf(n.out, "Proceed to %s? [y/N]: ", nextStage)
	line, err := n.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
