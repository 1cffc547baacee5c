// Package config loads the sweep configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/peekknuf/dqsweep/internal/dataset"
	"github.com/peekknuf/dqsweep/internal/results"
)

// DefaultPath is where the CLI looks for the configuration.
const DefaultPath = "config.yaml"

var validate *validator.Validate

func init() {
	validate = validator.New()
	if err := validate.RegisterValidation("delimiter", validateDelimiter); err != nil {
		panic(fmt.Sprintf("register delimiter validation: %v", err))
	}
}

func validateDelimiter(fl validator.FieldLevel) bool {
	_, ok := dataset.ParseDelimiter(fl.Field().String())
	return ok
}

type Config struct {
	Folders  Folders  `yaml:"folders"`
	Run      Run      `yaml:"run"`
	Load     Loading  `yaml:"load"`
	Log      Log      `yaml:"log"`
	Journal  Journal  `yaml:"journal"`
	Analysis Analysis `yaml:"analysis"`
}

type Folders struct {
	Data    string `yaml:"data" validate:"required"`
	Results string `yaml:"results" validate:"required"`
}

type Run struct {
	ResultsFile  string    `yaml:"results_file" validate:"required"`
	Extension    string    `yaml:"extension" validate:"required"`
	Seed         uint64    `yaml:"seed"`
	Workers      int       `yaml:"workers" validate:"min=1,max=256"`
	ResumePolicy string    `yaml:"resume_policy" validate:"oneof=global combination off"`
	Fractions    []float64 `yaml:"fractions" validate:"min=1,dive,gte=0,lte=1"`
	Metrics      []string  `yaml:"metrics"`
	Errors       []string  `yaml:"errors"`
}

// Loading controls how batch files are parsed.
type Loading struct {
	Delimiter string   `yaml:"delimiter" validate:"delimiter"`
	NATokens  []string `yaml:"na_tokens"`
}

type Log struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
	File   string `yaml:"file"`
}

// Journal enables the batch checkpoint store when Dir is set.
type Journal struct {
	Dir string `yaml:"dir"`
}

type Analysis struct {
	Alpha float64 `yaml:"alpha" validate:"gt=0,lt=1"`
	// Output is where the significance table is written, relative to the
	// results folder.
	Output string `yaml:"output" validate:"required"`
}

// DefaultFractions are 0.05 to 0.95 in steps of 0.05.
func DefaultFractions() []float64 {
	out := make([]float64, 0, 19)
	for i := 1; i <= 19; i++ {
		out = append(out, float64(i*5)/100)
	}
	return out
}

// Default returns a configuration with every optional field filled in.
// The folders are left empty; they must come from the file or flags.
func Default() Config {
	return Config{
		Run: Run{
			ResultsFile:  "result.csv",
			Extension:    "csv",
			Workers:      1,
			ResumePolicy: string(results.PolicyGlobal),
			Fractions:    DefaultFractions(),
		},
		Load: Loading{
			Delimiter: ",",
			NATokens:  dataset.DefaultNATokens,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Analysis: Analysis{
			Alpha:  0.05,
			Output: "significance.csv",
		},
	}
}

// Load reads the file at path over the defaults. A missing file is not an
// error as long as flags supply the folders later; call Validate before use.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read the config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration and reports every invalid field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config."))
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s must be set", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", field, fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
}

// Prepare validates the configuration and creates the data and results
// folders when they do not exist.
func (c Config) Prepare() error {
	if err := c.Validate(); err != nil {
		return err
	}
	for _, dir := range []string{c.Folders.Data, c.Folders.Results} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create folder %s: %w", dir, err)
		}
	}
	return nil
}

// ResultsPath is the full path of the result table.
func (c Config) ResultsPath() string {
	return filepath.Join(c.Folders.Results, c.Run.ResultsFile)
}

// AnalysisPath is the full path of the significance table.
func (c Config) AnalysisPath() string {
	return filepath.Join(c.Folders.Results, c.Analysis.Output)
}

// LoadOptions converts the load section for the dataset loader.
func (c Config) LoadOptions() dataset.LoadOptions {
	delim, _ := dataset.ParseDelimiter(c.Load.Delimiter)
	return dataset.LoadOptions{
		Delimiter: delim,
		NATokens:  c.Load.NATokens,
		Root:      c.Folders.Data,
	}
}

// Policy is the parsed resume policy.
func (c Config) Policy() results.Policy {
	p, err := results.ParsePolicy(c.Run.ResumePolicy)
	if err != nil {
		return results.PolicyGlobal
	}
	return p
}
