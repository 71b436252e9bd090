package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	BookConfig struct {
		EpubVersion        EpubVersion `yaml:"epub_version" validate:"gte=0"`
		Layout             LayoutMode  `yaml:"layout" validate:"gte=0"`
		TransliterateNames bool        `yaml:"transliterate_names"`
		Title              string      `yaml:"title" validate:"required"`
		Language           string      `yaml:"language" validate:"required"`
	}

	ImportConfig struct {
		Workers          int  `yaml:"workers" validate:"gte=0"`
		IgnoreDuplicates bool `yaml:"ignore_duplicates"`
		ExtractMetadata  bool `yaml:"extract_metadata"`
		Mend             bool `yaml:"mend"`
	}

	WatchConfig struct {
		Enable        bool          `yaml:"enable"`
		SettleTimeout time.Duration `yaml:"settle_timeout" validate:"gte=0"`
	}

	PackConfig struct {
		FixZip       bool `yaml:"fix_zip"`
		NaturalOrder bool `yaml:"natural_order"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Book      BookConfig     `yaml:"book"`
		Import    ImportConfig   `yaml:"import"`
		Watch     WatchConfig    `yaml:"watch"`
		Pack      PackConfig     `yaml:"pack"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

var requiredOptions = []func(*gencfg.ProcessingOptions){}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// Only fields we defined are accepted
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if !process {
		return cfg, nil
	}
	if err := gencfg.Sanitize(cfg); err != nil {
		return nil, err
	}
	if err := gencfg.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfiguration expands configuration template to get defaults, then
// reads file at path (if any) on top of them and validates the result.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, true)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare returns expanded configuration template.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}
