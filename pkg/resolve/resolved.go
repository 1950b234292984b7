package resolve

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gopkg.in/yaml.v3"

	"ufwcfg/pkg/errors"
	"ufwcfg/pkg/selection"
)

// Resolved pairs a selection with the constants derived from it.
type Resolved struct {
	Selection selection.Selection `yaml:"selection" json:"selection"`
	Constants *Constants          `yaml:"constants" json:"constants"`
}

// New resolves sel and returns the pair.
func New(sel selection.Selection) (*Resolved, error) {
	c, err := Resolve(sel)
	if err != nil {
		return nil, err
	}
	return &Resolved{Selection: sel.Clone(), Constants: c}, nil
}

// Format names an encoding of a Resolved document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Marshal encodes r in the given format.
func (r *Resolved) Marshal(f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.MarshalIndent(r, "", "  ")
	case FormatYAML, "":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown format %q", f)
	}
}

// Unmarshal decodes a Resolved document. JSON is detected by a leading brace;
// anything else is read as YAML with unknown fields rejected.
func Unmarshal(data []byte) (*Resolved, error) {
	var r Resolved
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&r); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigType, "invalid resolved JSON: "+err.Error())
		}
		return &r, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigType, "invalid resolved YAML: "+err.Error())
	}
	return &r, nil
}

// Diff reports how two constant bundles differ, or "" when they match.
func Diff(want, got *Constants) string {
	return cmp.Diff(want, got, cmpopts.EquateEmpty())
}

// Reresolve decodes a Resolved document, resolves its selection again and
// fails with RESOLVE_MISMATCH when the result differs from the embedded
// constants.
func Reresolve(data []byte) (*Resolved, error) {
	r, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	fresh, err := Resolve(r.Selection)
	if err != nil {
		return nil, err
	}
	if diff := Diff(r.Constants, fresh); diff != "" {
		return nil, errors.New(errors.ErrResolveMismatch,
			"embedded constants differ from a fresh resolve (-embedded +fresh):\n"+diff)
	}
	return &Resolved{Selection: r.Selection, Constants: fresh}, nil
}

// Digest is a stable fingerprint of the constants: the hex SHA-256 of their
// JSON encoding. Two selections resolving to the same firmware share it.
func (c *Constants) Digest() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
