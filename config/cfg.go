package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"flexcss/flexible"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TransformConfig struct {
		Desktop        bool      `yaml:"desktop"`
		BaseDpr        float64   `yaml:"base_dpr" validate:"gt=0"`
		RemUnit        float64   `yaml:"rem_unit" validate:"gt=0"`
		RemPrecision   int       `yaml:"rem_precision" validate:"min=1,max=15"`
		DprBuckets     []float64 `yaml:"dpr_buckets" validate:"min=1,dive,gt=0"`
		SelectorPrefix string    `yaml:"selector_prefix" validate:"oneof=html plain"`
	}

	OutputConfig struct {
		Suffix     string   `yaml:"suffix" validate:"excludesall=/\\"`
		Extensions []string `yaml:"extensions" validate:"min=1,dive,startswith=."`
	}

	Config struct {
		Version   int             `yaml:"version" validate:"eq=1"`
		Transform TransformConfig `yaml:"transform"`
		Output    OutputConfig    `yaml:"output"`
		Logging   LoggingConfig   `yaml:"logging"`
		Reporting ReporterConfig  `yaml:"reporting"`
	}
)

// Options converts transformation section to engine options.
func (conf *TransformConfig) Options() (flexible.Options, error) {
	prefixer, err := flexible.PrefixerByName(conf.SelectorPrefix)
	if err != nil {
		return flexible.Options{}, err
	}
	opts := flexible.Options{
		Desktop:      conf.Desktop,
		BaseDpr:      conf.BaseDpr,
		RemUnit:      conf.RemUnit,
		RemPrecision: conf.RemPrecision,
		DprBuckets:   append([]float64(nil), conf.DprBuckets...),
		Prefixer:     prefixer,
	}
	if err := opts.Validate(); err != nil {
		return flexible.Options{}, err
	}
	return opts, nil
}

// IsStylesheet reports whether file name has one of configured stylesheet
// extensions, case is ignored.
func (conf *OutputConfig) IsStylesheet(name string) bool {
	for _, ext := range conf.Extensions {
		if len(name) > len(ext) && strings.EqualFold(name[len(name)-len(ext):], ext) {
			return true
		}
	}
	return false
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, fmt.Errorf("failed to sanitize configuration: %w", err)
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, fmt.Errorf("failed to validate configuration: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
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

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
