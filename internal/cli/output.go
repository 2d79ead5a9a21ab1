package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"

	"github.com/dl-alexandre/zsync/internal/types"
	"github.com/dl-alexandre/zsync/internal/utils"
)

// OutputWriter handles CLI output formatting
type OutputWriter struct {
	format   types.OutputFormat
	quiet    bool
	verbose  bool
	traceID  string
	stdout   io.Writer
	stderr   io.Writer
	warnings []types.CLIWarning
}

// NewOutputWriter creates a new output writer
func NewOutputWriter(format types.OutputFormat, quiet, verbose bool) *OutputWriter {
	id := traceID
	if id == "" {
		id = uuid.New().String()
	}
	return &OutputWriter{
		format:   format,
		quiet:    quiet,
		verbose:  verbose,
		traceID:  id,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		warnings: []types.CLIWarning{},
	}
}

// AddWarning adds a warning to the output
func (w *OutputWriter) AddWarning(code, message, severity string) {
	w.warnings = append(w.warnings, types.CLIWarning{
		Code:     code,
		Message:  message,
		Severity: severity,
	})
}

// WriteSuccess writes a successful result
func (w *OutputWriter) WriteSuccess(command string, data interface{}) error {
	if w.format == types.OutputFormatJSON {
		return w.writeJSON(w.envelope(command, data, []types.CLIError{}))
	}
	for _, warning := range w.warnings {
		w.Log("Warning: %s", warning.Message)
	}
	return w.writeTable(data)
}

// WriteError writes an error result and returns it as an *utils.AppError so
// the process exit code reflects the failure.
func (w *OutputWriter) WriteError(command string, cliErr types.CLIError) error {
	errorReported = true
	if w.format == types.OutputFormatJSON {
		if err := w.writeJSON(w.envelope(command, nil, []types.CLIError{cliErr})); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(w.stderr, "Error: %s\n", cliErr.Message)
		if action, ok := cliErr.Context["suggestedAction"]; ok {
			fmt.Fprintf(w.stderr, "Hint: %v\n", action)
		}
	}
	return utils.NewAppError(cliErr)
}

func (w *OutputWriter) envelope(command string, data interface{}, errs []types.CLIError) types.CLIOutput {
	return types.CLIOutput{
		SchemaVersion: utils.SchemaVersion,
		TraceID:       w.traceID,
		Command:       command,
		Data:          data,
		Warnings:      w.warnings,
		Errors:        errs,
	}
}

func (w *OutputWriter) writeJSON(output types.CLIOutput) error {
	encoder := json.NewEncoder(w.stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func (w *OutputWriter) writeTable(data interface{}) error {
	if renderable, ok := data.(types.TableRenderable); ok {
		return w.renderTable(renderable.AsTableRenderer())
	}
	if renderer, ok := data.(types.TableRenderer); ok {
		return w.renderTable(renderer)
	}
	encoder := json.NewEncoder(w.stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (w *OutputWriter) renderTable(renderer types.TableRenderer) error {
	rows := renderer.Rows()
	if len(rows) == 0 {
		if !w.quiet {
			fmt.Fprintln(w.stdout, renderer.EmptyMessage())
		}
		return nil
	}

	table := tablewriter.NewWriter(w.stdout)
	table.SetHeader(renderer.Headers())
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, row := range rows {
		table.Append(row)
	}

	table.Render()
	return nil
}

// Log writes to stderr if not quiet
func (w *OutputWriter) Log(format string, args ...interface{}) {
	if !w.quiet {
		fmt.Fprintf(w.stderr, format+"\n", args...)
	}
}

// Verbose writes to stderr if verbose is enabled
func (w *OutputWriter) Verbose(format string, args ...interface{}) {
	if w.verbose {
		fmt.Fprintf(w.stderr, "[VERBOSE] "+format+"\n", args...)
	}
}
