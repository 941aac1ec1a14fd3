// Package manifest reads the project manifest, config.yaml, which names the site and
// its document language and character set.
package manifest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/statique/internal/foundation/errors"
)

// FileName is the manifest file in the project root. The build never copies it:
// yaml is excluded by default.
const FileName = "config.yaml"

type Manifest struct {
	Title   string `yaml:"title"`
	Lang    string `yaml:"lang"`
	Charset string `yaml:"charset"`
}

// Load reads and validates the manifest in projectDir. A missing manifest is a
// not-found error; a malformed one is a config error.
func Load(projectDir string) (*Manifest, error) {
	path := filepath.Join(projectDir, FileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ferrors.NotFoundError("project manifest not found").WithContext("path", path).Build()
	}
	if err != nil {
		return nil, ferrors.ConfigError("failed to read project manifest").
			WithCause(err).WithContext("path", path).Build()
	}
	return Parse(data, path)
}

// Parse decodes and validates manifest bytes. source names the origin in errors.
func Parse(data []byte, source string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, ferrors.ConfigError("failed to parse project manifest").
			WithCause(err).WithContext("path", source).Build()
	}
	m.Title = strings.TrimSpace(m.Title)
	m.Lang = strings.TrimSpace(m.Lang)
	m.Charset = strings.TrimSpace(m.Charset)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that lang is a BCP 47 tag and charset an encoding known to HTML.
// Empty fields are allowed.
func (m *Manifest) Validate() error {
	if m.Lang != "" {
		if _, err := language.Parse(m.Lang); err != nil {
			return ferrors.ConfigError("manifest lang is not a valid language tag").
				WithCause(err).WithContext("lang", m.Lang).Build()
		}
	}
	if m.Charset != "" {
		if _, err := htmlindex.Get(m.Charset); err != nil {
			return ferrors.ConfigError("manifest charset is not a known encoding").
				WithCause(err).WithContext("charset", m.Charset).Build()
		}
	}
	return nil
}

// CanonicalCharset returns the WHATWG name of the manifest charset, or "utf-8" when unset.
func (m *Manifest) CanonicalCharset() string {
	if m.Charset == "" {
		return "utf-8"
	}
	enc, err := htmlindex.Get(m.Charset)
	if err != nil {
		return m.Charset
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		return m.Charset
	}
	return name
}
