// Package wtconfig loads the layered YAML configuration: a global file
// under XDG_CONFIG_HOME plus one optional file per ancestor directory up to
// the repository boundary, merged with strict last-wins-per-key semantics
// (arrays replace, they never concatenate).
//
// Uses spf13/viper to search project/XDG/home locations and bind defaults,
// but layers its own deep-merge and a strict gopkg.in/yaml.v3 decode pass
// on top, since viper's single-config-file model has no last-wins-per-key
// layering across multiple files and no unknown-key rejection.
package wtconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/vde-tools/worktree/internal/wterr"
)

const (
	toolDirName         = "worktree"
	projectConfigRelDir = ".vde/worktree"
	configFileName      = "config.yml"
)

// PathConfig is list.table.path.*.
type PathConfig struct {
	Truncate bool `yaml:"truncate"`
	MinWidth int  `yaml:"minWidth"`
}

// TableConfig is list.table.*.
type TableConfig struct {
	Columns []string   `yaml:"columns"`
	Path    PathConfig `yaml:"path"`
}

// ListConfig is list.*.
type ListConfig struct {
	Table TableConfig `yaml:"table"`
}

// FzfConfig is selector.cd.fzf.*.
type FzfConfig struct {
	ExtraArgs []string `yaml:"extraArgs"`
}

// SelectorCDConfig is selector.cd.*.
type SelectorCDConfig struct {
	Prompt        string    `yaml:"prompt"`
	Surface       string    `yaml:"surface"`
	TmuxPopupOpts string    `yaml:"tmuxPopupOpts"`
	Fzf           FzfConfig `yaml:"fzf"`
}

// SelectorConfig is selector.*.
type SelectorConfig struct {
	CD SelectorCDConfig `yaml:"cd"`
}

// PathsConfig is paths.*.
type PathsConfig struct {
	WorktreeRoot string `yaml:"worktreeRoot"`
}

// GitConfig is git.*.
type GitConfig struct {
	BaseBranch string `yaml:"baseBranch"`
	BaseRemote string `yaml:"baseRemote"`
}

// GithubConfig is github.*.
type GithubConfig struct {
	Enabled bool `yaml:"enabled"`
}

// HooksConfig is hooks.*.
type HooksConfig struct {
	Enabled   bool `yaml:"enabled"`
	TimeoutMs int  `yaml:"timeoutMs"`
}

// LocksConfig is locks.*.
type LocksConfig struct {
	TimeoutMs           int `yaml:"timeoutMs"`
	StaleLockTTLSeconds int `yaml:"staleLockTTLSeconds"`
}

// Config is the fully resolved, validated configuration.
type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	Git      GitConfig      `yaml:"git"`
	Github   GithubConfig   `yaml:"github"`
	Hooks    HooksConfig    `yaml:"hooks"`
	Locks    LocksConfig    `yaml:"locks"`
	List     ListConfig     `yaml:"list"`
	Selector SelectorConfig `yaml:"selector"`
}

var allowedColumns = map[string]bool{
	"branch": true, "dirty": true, "merged": true, "pr": true,
	"locked": true, "ahead": true, "behind": true, "path": true,
}

// Defaults returns the configuration's baked-in defaults, applied before
// any file is layered on top.
func Defaults() Config {
	return Config{
		Paths: PathsConfig{WorktreeRoot: ".worktree"},
		Git:   GitConfig{BaseBranch: "main", BaseRemote: "origin"},
		Hooks: HooksConfig{Enabled: true, TimeoutMs: 30000},
		Locks: LocksConfig{TimeoutMs: 10000, StaleLockTTLSeconds: 3600},
		List: ListConfig{Table: TableConfig{
			Columns: []string{"branch", "dirty", "merged", "pr", "locked", "ahead", "behind", "path"},
			Path:    PathConfig{Truncate: true, MinWidth: 40},
		}},
		Selector: SelectorConfig{CD: SelectorCDConfig{Prompt: "Select a worktree branch", Surface: "inline"}},
	}
}

// Load resolves the layered configuration for a run rooted at repoRoot with
// the process currently in cwd (cwd must be repoRoot or a descendant).
func Load(repoRoot, cwd string) (*Config, error) {
	var layers []map[string]any

	if globalPath, ok := globalConfigPath(); ok {
		m, err := readLayer(globalPath)
		if err != nil {
			return nil, err
		}
		if m != nil {
			layers = append(layers, m)
		}
	}

	dirs, err := ancestorDirsRootFirst(repoRoot, cwd)
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		path := filepath.Join(dir, projectConfigRelDir, configFileName)
		m, err := readLayer(path)
		if err != nil {
			return nil, err
		}
		if m != nil {
			layers = append(layers, m)
		}
	}

	merged := defaultsMap()
	for _, layer := range layers {
		merged = deepMerge(merged, layer)
	}

	out, err := yaml.Marshal(merged)
	if err != nil {
		return nil, wterr.Wrap(wterr.InternalError, "remarshalling merged config", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(out, &cfg); err != nil {
		return nil, wterr.Wrap(wterr.InvalidConfig, "decoding merged config", err)
	}

	if err := validate(&cfg, repoRoot); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultsMap() map[string]any {
	d := Defaults()
	b, _ := yaml.Marshal(d)
	var m map[string]any
	_ = yaml.Unmarshal(b, &m)
	return m
}

// readLayer parses path as a strict YAML config layer: unknown keys fail
// validation immediately with the offending file named in the error.
func readLayer(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, wterr.Wrap(wterr.InvalidConfig, "reading "+path, err)
	}

	if err := strictValidate(data, path); err != nil {
		return nil, err
	}

	// yaml.v3 (not viper) parses the layer into a map: viper's internal
	// settings map folds all keys to lowercase, which would collide our
	// camelCase schema (worktreeRoot, baseBranch, minWidth, ...). Viper's
	// concern here is candidate-path discovery (globalConfigPath), not
	// case-sensitive content parsing.
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, wterr.Wrap(wterr.InvalidConfig, "parsing "+path, err)
	}
	return m, nil
}

// strictValidate decodes data into Config with unknown-field rejection
// enabled, surfacing INVALID_CONFIG for any key outside the recognized
// schema.
func strictValidate(data []byte, path string) error {
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return wterr.Wrap(wterr.InvalidConfig, "unknown key in "+path, err)
	}
	return nil
}

func deepMerge(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		if bv, ok := out[k]; ok {
			if bm, ok1 := bv.(map[string]any); ok1 {
				if ov, ok2 := v.(map[string]any); ok2 {
					out[k] = deepMerge(bm, ov)
					continue
				}
			}
		}
		// Arrays and scalars replace outright; they never concatenate.
		out[k] = v
	}
	return out
}

// globalConfigPath locates the global config file, searching
// $XDG_CONFIG_HOME/worktree then ~/.config/worktree then ~/.worktree,
// driven through viper's AddConfigPath search rather than a hand-rolled
// stat loop.
func globalConfigPath() (string, bool) {
	v := viper.New()
	v.SetConfigName(strings.TrimSuffix(configFileName, filepath.Ext(configFileName)))
	v.SetConfigType("yaml")

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		v.AddConfigPath(filepath.Join(xdg, toolDirName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", toolDirName))
		v.AddConfigPath(filepath.Join(home, "."+toolDirName))
	}

	if err := v.ReadInConfig(); err != nil {
		return "", false
	}
	return v.ConfigFileUsed(), true
}

// ancestorDirsRootFirst returns repoRoot, then each directory on the path
// down to cwd, in root-to-leaf order so that the config nearest cwd wins
// the last-wins-per-key merge.
func ancestorDirsRootFirst(repoRoot, cwd string) ([]string, error) {
	rel, err := filepath.Rel(repoRoot, cwd)
	if err != nil {
		return nil, wterr.Wrap(wterr.InternalError, "resolving cwd relative to repo root", err)
	}
	if rel == "." || rel == "" {
		return []string{repoRoot}, nil
	}
	if strings.HasPrefix(rel, "..") {
		return []string{repoRoot}, nil
	}

	dirs := []string{repoRoot}
	cur := repoRoot
	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, seg)
		dirs = append(dirs, cur)
	}
	return dirs, nil
}

func validate(cfg *Config, repoRoot string) error {
	mw := cfg.List.Table.Path.MinWidth
	if mw < 8 || mw > 200 {
		return invalidConfig("list.table.path.minWidth", fmt.Sprintf("%d out of range [8,200]", mw))
	}

	cols := cfg.List.Table.Columns
	if len(cols) == 0 {
		return invalidConfig("list.table.columns", "must not be empty")
	}
	seen := make(map[string]bool, len(cols))
	for i, c := range cols {
		if !allowedColumns[c] {
			return invalidConfig(fmt.Sprintf("list.table.columns.%d", i), "unrecognized column "+c)
		}
		if seen[c] {
			return invalidConfig(fmt.Sprintf("list.table.columns.%d", i), "duplicate column "+c)
		}
		seen[c] = true
	}

	if cfg.Paths.WorktreeRoot != "" {
		p := cfg.Paths.WorktreeRoot
		if !filepath.IsAbs(p) {
			p = filepath.Join(repoRoot, p)
		}
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return invalidConfig("paths.worktreeRoot", "points to an existing non-directory")
		}
	}

	return nil
}

func invalidConfig(keyPath, reason string) error {
	return wterr.New(wterr.InvalidConfig, keyPath+": "+reason).
		WithDetails(map[string]any{"keyPath": keyPath, "reason": reason})
}
