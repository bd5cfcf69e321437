// Package magic rewrites notebook-only syntax (line magics, cell
// magics, shell escapes, help syntax) into placeholder lines that a
// plain Python tool will accept, and restores the original text after
// the tool ran.
package magic

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/nbrun/nbrun/internal/helpers"
	"github.com/nbrun/nbrun/pkg/text"
)

// digestLength bounds the hash suffix of a placeholder.
const digestLength = 12

// Kind classifies a source line.
type Kind int

const (
	KindNone Kind = iota
	KindLineMagic
	KindCellMagic
	KindShellEscape
	KindHelp
	KindMagicAssign
)

var (
	regexCellMagic   = regexp.MustCompile(`^%%(\w+)`)
	regexLineMagic   = regexp.MustCompile(`^(\s*)%\w+`)
	regexShellEscape = regexp.MustCompile(`^(\s*)!`)
	regexMagicAssign = regexp.MustCompile(`^(\s*)([A-Za-z_]\w*(?:\s*,\s*[A-Za-z_]\w*)*\s*=\s*)[!%]`)
	regexHelp        = regexp.MustCompile(`^\s*[\w.]+\s*\?\??\s*$`)
)

// Classify detects the notebook-only syntax used by a line.
// Cell magics are only valid on the first line of a cell.
func Classify(line string, firstLine bool) Kind {
	switch {
	case firstLine && regexCellMagic.MatchString(line):
		return KindCellMagic
	case regexMagicAssign.MatchString(line):
		return KindMagicAssign
	case regexShellEscape.MatchString(line):
		return KindShellEscape
	case regexLineMagic.MatchString(line):
		return KindLineMagic
	case regexHelp.MatchString(line):
		return KindHelp
	default:
		return KindNone
	}
}

// CellMagicName returns the magic name of a cell magic header ("bash"
// for "%%bash"), or an empty string.
func CellMagicName(line string) string {
	m := regexCellMagic.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}

// Substitution identifies an encoded line for bug reports.
type Substitution struct {
	Cell int
	Line int
}

// Codec encodes and decodes magic lines for a single run.
//
// Substitution records are keyed by (cell, digest of the original
// text) so decoding stays unambiguous even when two cells contain
// identical magic text. The per-run token makes placeholders unique
// enough that no plausible user code collides with them.
type Codec struct {
	token   string
	subs    map[int]map[string]string
	flagged []Substitution
}

func NewCodec() *Codec {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return NewCodecWithToken(token)
}

// NewCodecWithToken fixes the placeholder token, for reproducible tests.
func NewCodecWithToken(token string) *Codec {
	return &Codec{
		token: token,
		subs:  make(map[int]map[string]string),
	}
}

func (c *Codec) prefix() string {
	return "nbrun_" + c.token + "_"
}

func (c *Codec) placeholder(line string) string {
	return c.prefix() + helpers.ShortHash([]byte(line), digestLength)
}

// EncodeLine rewrites one line of a cell.
// The result is lexically valid Python; the original text (including
// surrounding whitespace) is recorded so DecodeLine can restore it.
// Unsupported forms pass through unchanged and are flagged: the
// downstream tool may then fail to parse the cell, which is the
// reportable outcome, not silent corruption.
func (c *Codec) EncodeLine(cell, line int, content string) (string, bool) {
	kind := Classify(content, line == 0)
	if kind == KindNone {
		if regexCellMagic.MatchString(content) {
			// A cell magic past the first line is not valid notebook
			// syntax. Leave it for the tool to report.
			c.flagged = append(c.flagged, Substitution{Cell: cell, Line: line})
		}
		return content, false
	}

	var encoded string
	switch kind {
	case KindMagicAssign:
		m := regexMagicAssign.FindStringSubmatch(content)
		encoded = m[1] + m[2] + c.placeholder(content)
	case KindCellMagic:
		encoded = c.placeholder(content)
	default:
		encoded = text.Indentation(content) + c.placeholder(content)
	}

	c.record(cell, content)
	return encoded, true
}

func (c *Codec) record(cell int, content string) {
	if c.subs[cell] == nil {
		c.subs[cell] = make(map[string]string)
	}
	c.subs[cell][helpers.ShortHash([]byte(content), digestLength)] = content
}

// DecodeLine restores the original text of an encoded line.
// The placeholder is located by its unique prefix, so the lookup
// tolerates any reformatting the tool applied around it.
func (c *Codec) DecodeLine(cell int, content string) (string, bool) {
	i := strings.Index(content, c.prefix())
	if i < 0 {
		return content, false
	}
	digest := content[i+len(c.prefix()):]
	if len(digest) > digestLength {
		digest = digest[:digestLength]
	}
	original, ok := c.subs[cell][digest]
	if !ok {
		return content, false
	}
	return original, true
}

// Flagged lists the lines the codec could not encode.
func (c *Codec) Flagged() []Substitution {
	return c.flagged
}
