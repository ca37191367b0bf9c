// Package config loads quizd settings from defaults, an optional quizd.yaml
// and the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"hackohio/quizd/internal/quiz"
	"hackohio/quizd/pkg/worker"
)

// Config aggregates configuration for the server.
type Config struct {
	Host     string         `mapstructure:"host"`
	Port     int            `mapstructure:"port"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Quiz     QuizConfig     `mapstructure:"quiz"`
	Feedback FeedbackConfig `mapstructure:"feedback"`
	Retry    RetryConfig    `mapstructure:"retry"`
}

type GRPCConfig struct {
	// Socket is a unix socket path; empty disables the gRPC listener.
	Socket string `mapstructure:"socket"`
}

type WorkerConfig struct {
	Path       string        `mapstructure:"path"`
	Candidates []string      `mapstructure:"candidates"`
	Argv       []string      `mapstructure:"argv"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Grace      time.Duration `mapstructure:"grace"`
}

type QuizConfig struct {
	Count    int `mapstructure:"count"`
	Attempts int `mapstructure:"attempts"`
}

type FeedbackConfig struct {
	Attempts int `mapstructure:"attempts"`
}

type RetryConfig struct {
	Delay time.Duration `mapstructure:"delay"`
}

// SetDefaults registers every key with its default value, which also makes
// each key visible to AutomaticEnv.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("port", 4010)
	v.SetDefault("grpc.socket", "")
	v.SetDefault("worker.path", "ai_worker.py")
	v.SetDefault("worker.candidates", []string{"python3", "python", "py"})
	v.SetDefault("worker.argv", worker.DefaultArgv)
	v.SetDefault("worker.timeout", time.Duration(0))
	v.SetDefault("worker.grace", 5*time.Second)
	v.SetDefault("quiz.count", 5)
	v.SetDefault("quiz.attempts", 3)
	v.SetDefault("feedback.attempts", 1)
	v.SetDefault("retry.delay", time.Duration(0))
}

// New returns a viper instance wired for quizd. Environment variables use
// the prefix "QUIZD" with dots replaced by underscores, so "worker.path"
// becomes "QUIZD_WORKER_PATH". PORT and HOST are read unprefixed.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigName("quizd")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("QUIZD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("host", "HOST", "QUIZD_HOST")
	_ = v.BindEnv("port", "PORT", "QUIZD_PORT")
	SetDefaults(v)
	return v
}

// Load reads the optional config file and decodes v into a Config.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// Comma-separated lists arrive from the environment as one string.
	cfg.Worker.Candidates = splitList(cfg.Worker.Candidates)
	cfg.Worker.Argv = splitList(cfg.Worker.Argv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if len(c.Worker.Candidates) == 0 {
		return fmt.Errorf("worker.candidates must not be empty")
	}
	if len(c.Worker.Argv) == 0 {
		return fmt.Errorf("worker.argv must not be empty")
	}
	if c.Worker.Timeout < 0 || c.Retry.Delay < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}

// CheckWorker reports a missing worker script. The server refuses to start
// without one; one-off commands may point the argv template elsewhere.
func (c *Config) CheckWorker() error {
	info, err := os.Stat(c.Worker.Path)
	if err != nil {
		return fmt.Errorf("worker script %q not found; set --worker or QUIZD_WORKER_PATH: %w", c.Worker.Path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("worker script %q is a directory", c.Worker.Path)
	}
	return nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// OrchestratorConfig converts the worker section for the orchestrator.
func (c *Config) OrchestratorConfig() worker.Config {
	return worker.Config{
		Candidates: worker.NewCandidates(c.Worker.Candidates...),
		WorkerPath: c.Worker.Path,
		Argv:       c.Worker.Argv,
		Timeout:    c.Worker.Timeout,
	}
}

func (c *Config) ChannelConfig() worker.ChannelConfig {
	return worker.ChannelConfig{TerminationGrace: c.Worker.Grace}
}

func (c *Config) QuizServiceConfig() quiz.Config {
	qc := quiz.DefaultConfig()
	qc.Count = c.Quiz.Count
	qc.Quiz = qc.Quiz.WithMaxAttempts(c.Quiz.Attempts).WithDelay(c.Retry.Delay)
	qc.Feedback = qc.Feedback.WithMaxAttempts(c.Feedback.Attempts).WithDelay(c.Retry.Delay)
	return qc
}
