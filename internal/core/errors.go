package core

import (
	"fmt"
	"strings"
)

// IssueTrackerURL is included in every report-a-bug message.
const IssueTrackerURL = "https://github.com/nbrun/nbrun/issues"

// ReconstructionError reports a synthetic file whose boundary markers
// no longer match the cells they were generated from. The message is
// part of the CLI contract.
type ReconstructionError struct {
	Path string
}

func (e *ReconstructionError) Error() string {
	return fmt.Sprintf("Error reconstructing %s", e.Path)
}

// RemapError reports a diagnostic referencing a synthetic position the
// position map cannot explain. This means the tool transformed the
// synthetic file in a way the marker scheme does not support; the user
// is invited to report it instead of getting a corrupted mapping.
type RemapError struct {
	Tool     string
	Notebook string
	Cause    string
}

func (e *RemapError) Error() string {
	return fmt.Sprintf("%s while parsing output from applying %s to %s", e.Cause, e.Tool, e.Notebook)
}

// MissingCommandError reports a tool that is not installed.
type MissingCommandError struct {
	Tool string
	Hint string
}

func (e *MissingCommandError) Error() string {
	return fmt.Sprintf("Command `%s` not found by nbrun.", e.Tool)
}

// NoInputError reports that no notebook was found under the given roots.
type NoInputError struct {
	Roots []string
}

func (e *NoInputError) Error() string {
	return fmt.Sprintf("No .ipynb notebooks found in given directories: %s", strings.Join(e.Roots, ", "))
}
