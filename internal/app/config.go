package app

import "errors"

// Config holds everything an App instance needs to run one pipeline
// invocation.
type Config struct {
	// PipelinePath points at an .hcl file or a directory of them.
	PipelinePath string

	// Branch and Commit describe the push event that triggered the run.
	// Commit may be empty, in which case the repository HEAD is used.
	Branch string
	Commit string

	// RepoPath is the checked-out source tree stages run in and tags are
	// moved in. Remote is where the rolling tag is pushed.
	RepoPath string
	Remote   string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int
	DryRun          bool

	// ToolchainEnvKey is the env var the toolchain channel is exported
	// under for stage processes.
	ToolchainEnvKey string
}

// NewConfig validates and normalizes a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, errors.New("Branch is a required configuration field and cannot be empty")
	}
	if cfg.RepoPath == "" {
		cfg.RepoPath = "."
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}

	return &cfg, nil
}
