package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"shelfline/internal/normalize"
)

// Config models shelfline.yml.
type Config struct {
	Input struct {
		Path      string `yaml:"path"`
		Delimiter string `yaml:"delimiter"`
		Table     string `yaml:"table"`
	} `yaml:"input"`
	Columns struct {
		Name            string `yaml:"name"`
		Quantity        string `yaml:"quantity"`
		MDD             string `yaml:"mdd"`
		ManufactureDate string `yaml:"manufacture_date"`
		ExpiryDate      string `yaml:"expiry_date"`
	} `yaml:"columns"`
	Normalize struct {
		Policy    normalize.Policy    `yaml:"policy"`
		DateOrder normalize.DateOrder `yaml:"date_order"`
	} `yaml:"normalize"`
	Report struct {
		Dir          string `yaml:"dir"`
		PriorityFile string `yaml:"priority_file"`
		DiscardFile  string `yaml:"discard_file"`
	} `yaml:"report"`
	Charts struct {
		BinWidth float64 `yaml:"bin_width"`
	} `yaml:"charts"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Input.Delimiter != "" && len([]rune(c.Input.Delimiter)) != 1 {
		return fmt.Errorf("config.input.delimiter must be a single character")
	}
	if !c.Normalize.Policy.Valid() {
		return fmt.Errorf("config.normalize.policy must be %q or %q", normalize.PolicyStripGrouping, normalize.PolicyCommaDecimal)
	}
	if !c.Normalize.DateOrder.Valid() {
		return fmt.Errorf("config.normalize.date_order must be dmy, mdy or ymd")
	}
	if c.Charts.BinWidth <= 0 {
		return fmt.Errorf("config.charts.bin_width must be positive")
	}
	if c.Report.PriorityFile == "" || c.Report.DiscardFile == "" {
		return fmt.Errorf("config.report.priority_file and discard_file are required")
	}
	if c.Report.PriorityFile == c.Report.DiscardFile {
		return fmt.Errorf("config.report worklist files must differ")
	}
	for col, v := range map[string]string{
		"name":             c.Columns.Name,
		"quantity":         c.Columns.Quantity,
		"mdd":              c.Columns.MDD,
		"manufacture_date": c.Columns.ManufactureDate,
		"expiry_date":      c.Columns.ExpiryDate,
	} {
		if v == "" {
			return fmt.Errorf("config.columns.%s is required", col)
		}
	}
	return nil
}

// Delimiter returns the input field delimiter as a rune.
func (c *Config) Delimiter() rune {
	if c.Input.Delimiter == "" {
		return ';'
	}
	return []rune(c.Input.Delimiter)[0]
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "shelfline.yml")
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with sl config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the workspace has no file.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `input:
  path: ""
  delimiter: ";"
  table: batches

columns:
  name: Name
  quantity: Quant
  mdd: MDD
  manufacture_date: Data Fab
  expiry_date: Data Val

normalize:
  policy: strip-grouping
  date_order: dmy

report:
  dir: .
  priority_file: priority_worklist.csv
  discard_file: discard_worklist.csv

charts:
  bin_width: 10

log:
  level: info
`
