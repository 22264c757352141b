// Package frontmatter reads and writes the markdown summaries produced by
// the pipeline stages: a YAML header between --- lines followed by a body.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const delim = "---"

// ErrNoHeader is returned when a document does not open with a --- line or
// the header is never closed.
var ErrNoHeader = errors.New("frontmatter: no --- header")

// Split separates a document into its raw YAML header and its body.
// CRLF line endings are accepted.
func Split(data []byte) (header, body []byte, err error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(data, []byte(delim+"\n")) {
		return nil, nil, fmt.Errorf("%w: missing opening line", ErrNoHeader)
	}
	rest := data[len(delim)+1:]

	var end int
	switch {
	case bytes.HasPrefix(rest, []byte(delim+"\n")) || bytes.Equal(rest, []byte(delim)):
		end = 0
	default:
		idx := bytes.Index(rest, []byte("\n"+delim))
		if idx < 0 {
			return nil, nil, fmt.Errorf("%w: missing closing line", ErrNoHeader)
		}
		end = idx + 1
	}
	header = rest[:end]
	body = rest[end+len(delim):]
	body = bytes.TrimPrefix(body, []byte("\n"))
	return header, body, nil
}

// Decode unmarshals the header of data into v and returns the body.
func Decode(data []byte, v any) (string, error) {
	header, body, err := Split(data)
	if err != nil {
		return "", err
	}
	if err := yaml.Unmarshal(header, v); err != nil {
		return "", fmt.Errorf("frontmatter: unmarshal: %w", err)
	}
	return string(body), nil
}

// Encode renders v as the YAML header followed by body.
func Encode(v any, body string) ([]byte, error) {
	header, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("frontmatter: marshal: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	buf.Write(header)
	buf.WriteString(delim + "\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// ReadFile decodes the header of the document at path into v.
func ReadFile(path string, v any) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	body, err := Decode(data, v)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return body, nil
}

// WriteFile encodes v and body and writes the result to path.
func WriteFile(path string, v any, body string) error {
	data, err := Encode(v, body)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
