// Package config holds the run configuration and the vocabulary injected
// into the graph assembler and image engine.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// ErrorPolicy decides what happens to a record that fails derivation
type ErrorPolicy string

const (
	// OnErrorSkip reports the record and continues
	OnErrorSkip ErrorPolicy = "skip"
	// OnErrorAbort stops the run on the first derivation error
	OnErrorAbort ErrorPolicy = "abort"
)

// DuplicatePolicy decides what happens when a work lists two source folders
type DuplicatePolicy string

const (
	// DuplicateFirstWins keeps the first folder and reports the second
	DuplicateFirstWins DuplicatePolicy = "first-wins"
	// DuplicateError aborts the run
	DuplicateError DuplicatePolicy = "error"
)

// Tables names the input files, relative to the input directory
type Tables struct {
	Works       string `yaml:"works"`
	Instances   string `yaml:"instances"`
	ImageGroups string `yaml:"imagegroups"`
	Images      string `yaml:"images"`
	Collections string `yaml:"collections"`
	Editions    string `yaml:"editions"` // optional
}

// Namespace binds a prefix to an IRI
type Namespace struct {
	Prefix string `yaml:"prefix"`
	IRI    string `yaml:"iri"`
}

// Vocabulary is the fixed set of namespaces and language tags of a run
type Vocabulary struct {
	Namespaces      []Namespace `yaml:"namespaces"`
	DefaultTitleTag string      `yaml:"defaulttitletag"`
	EnglishTag      string      `yaml:"englishtag"`
	EnglishMarker   string      `yaml:"englishmarker"`
	IIIFBase        string      `yaml:"iiifbase"`
	EDTFDatatype    string      `yaml:"edtfdatatype"`
}

// FormatPolicy holds the admissible image format rules
type FormatPolicy struct {
	MaxBytes        int64    `yaml:"maxbytes"`        // larger files are flagged toolarge
	ReportSizeBytes int64    `yaml:"reportsizebytes"` // larger files record their size
	TIFFExtensions  []string `yaml:"tiffextensions"`
	JPEGExtensions  []string `yaml:"jpegextensions"`
	TIFFCompression string   `yaml:"tiffcompression"`
}

// Config is the complete run configuration
type Config struct {
	InputDir         string          `yaml:"inputdir"`
	OutputDir        string          `yaml:"outputdir"`
	ImagesDir        string          `yaml:"imagesdir"`
	GraphFile        string          `yaml:"graphfile"`
	OptimizeCmd      string          `yaml:"optimizecmd"`
	ConvertCmd       string          `yaml:"convertcmd"`
	Workers          int             `yaml:"workers"`
	InferReverse     bool            `yaml:"inferreverse"`
	CheckReferences  bool            `yaml:"checkreferences"`
	OnError          ErrorPolicy     `yaml:"onerror"`
	DuplicateFolders DuplicatePolicy `yaml:"duplicatefolders"`
	DryRun           bool            `yaml:"dryrun"`
	Tables           Tables          `yaml:"tables"`
	Vocabulary       Vocabulary      `yaml:"vocabulary"`
	Formats          FormatPolicy    `yaml:"formats"`
}

// DefaultVocabulary returns the BDRC vocabulary
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Namespaces: []Namespace{
			{Prefix: "bdr", IRI: "http://purl.bdrc.io/resource/"},
			{Prefix: "bdo", IRI: "http://purl.bdrc.io/ontology/core/"},
			{Prefix: "bda", IRI: "http://purl.bdrc.io/admindata/"},
			{Prefix: "adm", IRI: "http://purl.bdrc.io/ontology/admin/"},
			{Prefix: "skos", IRI: "http://www.w3.org/2004/02/skos/core#"},
			{Prefix: "rdfs", IRI: "http://www.w3.org/2000/01/rdf-schema#"},
			{Prefix: "owl", IRI: "http://www.w3.org/2002/07/owl#"},
			{Prefix: "tmp", IRI: "http://purl.bdrc.io/ontology/tmp/"},
		},
		DefaultTitleTag: "sa-x-ewts",
		EnglishTag:      "en",
		EnglishMarker:   "@en",
		IIIFBase:        "https://iiif.bdrc.io/",
		EDTFDatatype:    "http://id.loc.gov/datatypes/edtf",
	}
}

// DefaultFormatPolicy returns the format rules used for scanned pages
func DefaultFormatPolicy() FormatPolicy {
	return FormatPolicy{
		MaxBytes:        400000,
		ReportSizeBytes: 1000000,
		TIFFExtensions:  []string{".tif", ".tiff"},
		JPEGExtensions:  []string{".jpg", ".jpeg"},
		TIFFCompression: "group4",
	}
}

// Default returns the configuration used when nothing is overridden
func Default() Config {
	return Config{
		InputDir:         "input",
		OutputDir:        "output",
		ImagesDir:        "images",
		GraphFile:        "GND.ttl",
		ConvertCmd:       "convert",
		Workers:          4,
		InferReverse:     true,
		OnError:          OnErrorSkip,
		DuplicateFolders: DuplicateFirstWins,
		Tables: Tables{
			Works:       "Catalog template - Works _ Texts.csv",
			Instances:   "Catalog template - Version _ Manuscript.csv",
			ImageGroups: "Catalog template - ImageGroup _ Scroll.csv",
			Images:      "Catalog template - Images.csv",
			Collections: "Catalog template - Collection.csv",
			Editions:    "Catalog template - Digital Edition.csv",
		},
		Vocabulary: DefaultVocabulary(),
		Formats:    DefaultFormatPolicy(),
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides directories and commands from GND_* environment variables
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("GND_INPUT_DIR"); v != "" {
		c.InputDir = v
	}
	if v := os.Getenv("GND_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("GND_IMAGES_DIR"); v != "" {
		c.ImagesDir = v
	}
	if v := os.Getenv("GND_OPTIMIZE_CMD"); v != "" {
		c.OptimizeCmd = v
	}
	if v := os.Getenv("GND_CONVERT_CMD"); v != "" {
		c.ConvertCmd = v
	}
	if v := os.Getenv("GND_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid GND_WORKERS %q: %w", v, err)
		}
		c.Workers = n
	}
	return nil
}

// Validate checks the configuration for values the pipeline cannot use
func (c Config) Validate() error {
	var errs []error

	if c.InputDir == "" {
		errs = append(errs, errors.New("input directory is required"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	switch c.OnError {
	case OnErrorSkip, OnErrorAbort:
	default:
		errs = append(errs, fmt.Errorf("unsupported error policy %q (skip or abort)", c.OnError))
	}
	switch c.DuplicateFolders {
	case DuplicateFirstWins, DuplicateError:
	default:
		errs = append(errs, fmt.Errorf("unsupported duplicate folder policy %q (first-wins or error)", c.DuplicateFolders))
	}
	if c.Tables.Works == "" || c.Tables.Instances == "" || c.Tables.ImageGroups == "" || c.Tables.Images == "" || c.Tables.Collections == "" {
		errs = append(errs, errors.New("all table names except editions are required"))
	}
	if err := c.Vocabulary.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Formats.MaxBytes <= 0 {
		errs = append(errs, errors.New("formats.maxbytes must be positive"))
	}

	return errors.Join(errs...)
}

// Validate checks that required prefixes are bound and language tags parse
func (v Vocabulary) Validate() error {
	var errs []error

	seen := make(map[string]bool, len(v.Namespaces))
	for _, ns := range v.Namespaces {
		if ns.Prefix == "" || ns.IRI == "" {
			errs = append(errs, fmt.Errorf("namespace %q has an empty prefix or IRI", ns.Prefix))
			continue
		}
		if !strings.HasSuffix(ns.IRI, "/") && !strings.HasSuffix(ns.IRI, "#") {
			errs = append(errs, fmt.Errorf("namespace %s IRI %q must end in / or #", ns.Prefix, ns.IRI))
		}
		seen[ns.Prefix] = true
	}
	for _, required := range []string{"bdr", "bdo", "bda", "adm", "skos", "rdfs", "owl", "tmp"} {
		if !seen[required] {
			errs = append(errs, fmt.Errorf("namespace prefix %s is not bound", required))
		}
	}

	for _, tag := range []string{v.DefaultTitleTag, v.EnglishTag} {
		if _, err := language.Parse(tag); err != nil {
			errs = append(errs, fmt.Errorf("invalid language tag %q: %w", tag, err))
		}
	}
	if v.EnglishMarker == "" {
		errs = append(errs, errors.New("vocabulary.englishmarker must not be empty"))
	}

	return errors.Join(errs...)
}

// IRI returns the namespace IRI bound to prefix, or "" when unbound
func (v Vocabulary) IRI(prefix string) string {
	for _, ns := range v.Namespaces {
		if ns.Prefix == prefix {
			return ns.IRI
		}
	}
	return ""
}
