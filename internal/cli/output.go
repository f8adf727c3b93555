package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/raphaelgruber/onyx-admin/internal/metrics"
	"github.com/raphaelgruber/onyx-admin/internal/mutation"
	"github.com/raphaelgruber/onyx-admin/internal/popup"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --output.
const (
	formatTable = "table"
	formatYAML  = "yaml"
)

// stdin is shared by every prompt so buffered input is not lost between them.
var stdin = bufio.NewReader(os.Stdin)

// wantYAML reports whether results should be printed as YAML.
func wantYAML() bool {
	return outputFormat == formatYAML
}

// writeYAML encodes v with two-space indentation.
func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func printYAML(v any) error {
	return writeYAML(os.Stdout, v)
}

// printMetrics writes the request statistics of the session to stderr.
func printMetrics(snap metrics.Snapshot) {
	if len(snap.Operations) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "\n%-14s %6s %6s %9s %9s\n", "OPERATION", "COUNT", "ERRORS", "AVG(ms)", "MAX(ms)")
	for _, op := range snap.Operations {
		fmt.Fprintf(os.Stderr, "%-14s %6d %6d %9.1f %9d\n", op.Name, op.Count, op.Errors, op.AvgTimeMs, op.MaxTimeMs)
	}
}

// newSurface returns a popup surface that prints every message it shows.
func newSurface() *popup.Surface {
	var s *popup.Surface
	s = sess.Popups().New(func(spec *popup.Spec) {
		if spec != nil {
			fmt.Fprintln(os.Stderr, s.Render())
		}
	})
	return s
}

// confirm asks a yes/no question; anything but y or yes is a no.
func confirm(question string) (bool, error) {
	fmt.Printf("%s [y/N]: ", question)
	response, err := stdin.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read input: %w", err)
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

// prompt reads one line, returning def when the answer is empty.
func prompt(label, def string) (string, error) {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, err := stdin.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read input: %w", err)
	}
	if line = strings.TrimSpace(line); line == "" {
		return def, nil
	}
	return line, nil
}

// promptSecret reads a value without echoing it when stdin is a terminal.
func promptSecret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return prompt(label, "")
	}
	fmt.Printf("%s: ", label)
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// parseID parses a positive integer argument.
func parseID(what, arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", what, arg)
	}
	return id, nil
}

// orDash returns s, or "-" when it is empty.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// reportedError is a failure whose message a popup already printed.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

// reported marks err as shown. Validation failures are never shown by a
// popup, so they are returned as they are.
func reported(err error) error {
	if step := mutation.FailedStep(err); step == "" || step == mutation.StepValidate {
		return err
	}
	return &reportedError{err: err}
}

// Reported reports whether the message of err was already printed.
func Reported(err error) bool {
	var re *reportedError
	return errors.As(err, &re)
}
