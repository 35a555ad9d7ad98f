package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizard creates a wizard reading answers from in and writing prompts to out
func NewWizard(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run runs the interactive configuration wizard. Empty answers keep the default.
func (w *Wizard) Run() (*Config, error) {
	fmt.Fprintln(w.out, "=== clawspace Configuration Wizard ===")
	fmt.Fprintln(w.out)

	cfg := DefaultConfig()
	validator := NewValidator()

	dataDir, err := w.ask("Data directory [~/.clawspace]: ")
	if err != nil {
		return nil, err
	}
	cfg.DataDir = dataDir

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "picoclaw binary:")

	binPath, err := w.ask("Binary path (press Enter to use <app_root>/bin/picoclaw): ")
	if err != nil {
		return nil, err
	}
	cfg.Binary.Path = binPath

	for {
		constraint, err := w.ask("Minimum version constraint, e.g. >= 0.2.0 (press Enter to skip): ")
		if err != nil {
			return nil, err
		}
		if err := validator.ValidateMinVersion(constraint); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		cfg.Binary.MinVersion = constraint
		break
	}

	fmt.Fprintln(w.out)

	snapshots, err := w.confirm("Record file changes as git snapshots?", cfg.Snapshots.Enabled)
	if err != nil {
		return nil, err
	}
	cfg.Snapshots.Enabled = snapshots

	metrics, err := w.confirm("Enable the Prometheus metrics endpoint?", cfg.Metrics.Enabled)
	if err != nil {
		return nil, err
	}
	cfg.Metrics.Enabled = metrics

	if metrics {
		for {
			addr, err := w.ask(fmt.Sprintf("Metrics listen address [%s]: ", cfg.Metrics.Addr))
			if err != nil {
				return nil, err
			}
			if addr == "" {
				break
			}
			if err := validator.ValidateListenAddr(addr); err != nil {
				fmt.Fprintf(w.out, "Error: %v\n", err)
				continue
			}
			cfg.Metrics.Addr = addr
			break
		}
	}

	fmt.Fprintln(w.out)

	// Log Level
	fmt.Fprintln(w.out, "Logging:")
	level, err := w.ask("Log level (debug/info/warn/error) [info]: ")
	if err != nil {
		return nil, err
	}

	if level != "" {
		if err := validator.ValidateLogLevel(level); err != nil {
			fmt.Fprintf(w.out, "Warning: %v, using default (info)\n", err)
		} else {
			cfg.Logging.Level = level
		}
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete!")

	return cfg, nil
}

func (w *Wizard) ask(prompt string) (string, error) {
	fmt.Fprint(w.out, prompt)
	return w.readLine()
}

func (w *Wizard) confirm(question string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	answer, err := w.ask(fmt.Sprintf("%s (%s): ", question, hint))
	if err != nil {
		return false, err
	}

	switch strings.ToLower(answer) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// readLine returns the next trimmed line. A final line without a newline is
// still returned; EOF with nothing buffered is an error.
func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Save writes cfg to path as YAML or JSON depending on the extension
func Save(cfg *Config, path string) error {
	var (
		data []byte
		err  error
	)
	switch configType(path) {
	case "yaml":
		data, err = yaml.Marshal(cfg)
	default:
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
