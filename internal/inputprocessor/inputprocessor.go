package inputprocessor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	log "github.com/sirupsen/logrus"
)

// maxFileBytes caps files read as submission text.
const maxFileBytes = 1 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var charReplacementMap = map[string]string{
	"\u2018": "'", "\u2019": "'", "\u201C": "\"", "\u201D": "\"",
	"\u2013": "-", "\u2014": "--", "\u2026": "...", "\u00a0": " ",
	"\u0091": "'", "\u0092": "'", "\u0093": "\"", "\u0094": "\"",
	"\u0096": "-", "\u0097": "--", "\u200b": "",
}

// Result holds normalised submission text and where it came from.
type Result struct {
	Body        string
	ContentType string
	FilePath    *string // set when the input was read from a file
	Metadata    map[string]interface{}
}

// Processor turns raw CLI/API input into text ready for classification.
type Processor interface {
	Process(ctx context.Context, input string) (Result, error)
}

// New creates the default processor. Inputs prefixed with "@" are read from
// the named file; everything else is treated as the text itself.
func New() Processor {
	return &defaultProcessor{policy: bluemonday.StrictPolicy()}
}

type defaultProcessor struct {
	policy *bluemonday.Policy
}

var std = &defaultProcessor{policy: bluemonday.StrictPolicy()}

func (p *defaultProcessor) Process(ctx context.Context, input string) (Result, error) {
	res := Result{Metadata: map[string]interface{}{}}

	raw := []byte(input)
	res.ContentType = "text/plain; charset=utf-8"
	res.Metadata["input_type"] = "raw"

	if path, ok := strings.CutPrefix(input, "@"); ok && path != "" {
		data, err := readFile(path)
		if err != nil {
			return res, err
		}
		absPath, pathErr := filepath.Abs(path)
		if pathErr != nil {
			log.Warnf("Failed to get absolute path for '%s': %v. Using original path.", path, pathErr)
			absPath = path
		}
		raw = data
		res.ContentType = http.DetectContentType(data)
		res.FilePath = &absPath
		res.Metadata["input_type"] = "file"
	}

	body, err := p.Normalize(raw)
	if err != nil {
		return res, err
	}
	res.Body = body
	return res, nil
}

// Normalize strips a BOM, repairs invalid UTF-8, removes markup, unescapes
// entities, folds typographic punctuation and collapses whitespace.
func (p *defaultProcessor) Normalize(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if bytes.IndexByte(raw, 0) >= 0 {
		return "", errors.New("input looks binary (contains NUL bytes)")
	}
	if !utf8.Valid(raw) {
		log.Warn("Input has invalid UTF-8, replacing invalid chars")
		raw = bytes.ToValidUTF8(raw, []byte(string(utf8.RuneError)))
	}

	// StrictPolicy escapes what it keeps, so unescape afterwards
	str := html.UnescapeString(p.policy.Sanitize(string(raw)))
	for bad, good := range charReplacementMap {
		str = strings.ReplaceAll(str, bad, good)
	}
	return strings.Join(strings.Fields(str), " "), nil
}

// Normalize runs the default processor's text normalisation.
func Normalize(s string) (string, error) {
	return std.Normalize([]byte(s))
}

func readFile(path string) ([]byte, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input '%s': %w", path, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("input '%s' is a directory, not a file", path)
	}
	if fi.Size() > maxFileBytes {
		return nil, fmt.Errorf("input '%s' is too large (%d bytes)", path, fi.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("permission denied reading file '%s': %w", path, err)
		}
		return nil, fmt.Errorf("failed to read file '%s': %w", path, err)
	}
	return data, nil
}

// Ensure defaultProcessor satisfies the Processor interface.
var _ Processor = (*defaultProcessor)(nil)
