package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Tasks    []Task   `yaml:"tasks"`
	Trials   int      `yaml:"trials"`
	Agent    Agent    `yaml:"agent"`
	Decision Decision `yaml:"decision"`
	Sandbox  Sandbox  `yaml:"sandbox"`
	Docker   Docker   `yaml:"docker"`
	Tracing  Tracing  `yaml:"tracing"`
	Secrets  Secrets  `yaml:"secrets"`
	Results  Results  `yaml:"results"`
	Pricing  Pricing  `yaml:"pricing"`
}

// Task is a single NL→SQL eval task. Snapshot is the source SQLite file
// each trial copies before touching it; ExpectedSQL is the reference query
// the candidate is validated against.
type Task struct {
	ID          string `yaml:"id"`
	Question    string `yaml:"question"`
	Snapshot    string `yaml:"snapshot"`
	ExpectedSQL string `yaml:"expected_sql"`
	SchemaDesc  string `yaml:"schema_desc"`
}

type Agent struct {
	MaxRetries   int           `yaml:"max_retries"`
	StepLimit    int           `yaml:"step_limit"`
	ToolTimeout  time.Duration `yaml:"tool_timeout"`
	TrialTimeout time.Duration `yaml:"trial_timeout"`
}

type Decision struct {
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	MaxTokens         int     `yaml:"max_tokens"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type Sandbox struct {
	Root string `yaml:"root"`
}

// Docker, when Image is set, routes execute_command through a disposable
// container with the sandbox bind-mounted instead of a host subprocess.
type Docker struct {
	Image       string  `yaml:"image"`
	CPULimit    float64 `yaml:"cpu_limit"`
	MemoryLimit int64   `yaml:"memory_limit"`
}

type Tracing struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Protocol     string `yaml:"protocol"`
	Insecure     bool   `yaml:"insecure"`
	ServiceName  string `yaml:"service_name"`
}

type Secrets struct {
	EnvFile string `yaml:"env_file"`
}

type Results struct {
	Dir string `yaml:"dir"`
}

type Pricing struct {
	File string `yaml:"file"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if len(cfg.Tasks) == 0 {
		return fmt.Errorf("no tasks defined")
	}
	seen := map[string]bool{}
	for i := range cfg.Tasks {
		t := &cfg.Tasks[i]
		if t.ID == "" {
			return fmt.Errorf("task %d: id is required", i)
		}
		if seen[t.ID] {
			return fmt.Errorf("task %q: duplicate id", t.ID)
		}
		seen[t.ID] = true
		if t.Question == "" {
			return fmt.Errorf("task %q: question is required", t.ID)
		}
		if t.Snapshot == "" {
			return fmt.Errorf("task %q: snapshot is required", t.ID)
		}
		if t.ExpectedSQL == "" {
			return fmt.Errorf("task %q: expected_sql is required", t.ID)
		}
	}
	// Resource checks run after the structural pass so a malformed task is
	// reported as such. A missing snapshot aborts the run up front instead
	// of surfacing as silently absent trials in the report.
	for i := range cfg.Tasks {
		t := &cfg.Tasks[i]
		if _, err := os.Stat(t.Snapshot); err != nil {
			return fmt.Errorf("task %q: snapshot %s: %w", t.ID, t.Snapshot, err)
		}
	}
	if cfg.Trials < 1 {
		return fmt.Errorf("trials must be at least 1")
	}
	if cfg.Agent.MaxRetries == 0 {
		cfg.Agent.MaxRetries = 3
	}
	if cfg.Agent.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if cfg.Agent.StepLimit == 0 {
		cfg.Agent.StepLimit = 40
	}
	if cfg.Agent.StepLimit < 0 {
		return fmt.Errorf("step_limit must not be negative")
	}
	if cfg.Agent.ToolTimeout == 0 {
		cfg.Agent.ToolTimeout = 30 * time.Second
	}
	if cfg.Agent.TrialTimeout == 0 {
		cfg.Agent.TrialTimeout = 10 * time.Minute
	}
	if cfg.Decision.Model == "" {
		cfg.Decision.Model = "gpt-4o"
	}
	if cfg.Decision.BaseURL == "" {
		cfg.Decision.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Decision.APIKeyEnv == "" {
		cfg.Decision.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Decision.MaxTokens == 0 {
		cfg.Decision.MaxTokens = 4096
	}
	if cfg.Results.Dir == "" {
		cfg.Results.Dir = "results"
	}
	return nil
}

// LoadEnvFile parses a KEY=VALUE env file into a map. Blank lines and
// #-comments are skipped.
func LoadEnvFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	env := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		s := strings.TrimSpace(line)
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		k, v, ok := strings.Cut(s, "=")
		if !ok {
			continue
		}
		env[strings.TrimSpace(k)] = strings.Trim(strings.TrimSpace(v), `"`)
	}
	return env, nil
}
