package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"disk-janitor/internal/config"
)

// pathFlag collects repeated -path values of the form "path" or "label=path"
type pathFlag []config.TargetCfg

func (p *pathFlag) String() string {
	parts := make([]string, 0, len(*p))
	for _, t := range *p {
		parts = append(parts, t.Path)
	}
	return strings.Join(parts, ",")
}

func (p *pathFlag) Set(value string) error {
	t, err := parseTarget(value)
	if err != nil {
		return err
	}
	*p = append(*p, t)
	return nil
}

// parseTarget splits "label=path". A value whose text before '=' is itself
// an absolute path is taken as a bare path.
func parseTarget(value string) (config.TargetCfg, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return config.TargetCfg{}, fmt.Errorf("empty path")
	}
	if label, path, ok := strings.Cut(value, "="); ok && label != "" && !filepath.IsAbs(label) {
		return config.TargetCfg{Label: strings.TrimSpace(label), Path: strings.TrimSpace(path)}, nil
	}
	return config.TargetCfg{Path: value}, nil
}

// splitList parses a comma separated flag value, dropping blanks
func splitList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
