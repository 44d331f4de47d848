package config

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"git.home.luguber.info/inful/assetflow/internal/foundation/normalization"
)

// NormalizationResult captures adjustments & warnings from normalization pass.
type NormalizationResult struct{ Warnings []string }

// NormalizeConfig canonicalizes enumerated fields and path spellings prior to default application.
// It mutates the provided config in-place and returns a result describing any coercions.
func NormalizeConfig(c *Config) (*NormalizationResult, error) {
	if c == nil {
		return nil, fmt.Errorf("config nil")
	}
	res := &NormalizationResult{}

	c.Logging.Level = normalizeEnum(res, "logging.level", c.Logging.Level, logLevelNormalizer)
	c.Logging.Format = normalizeEnum(res, "logging.format", c.Logging.Format, logFormatNormalizer)
	c.Scripts.Target = normalizeEnum(res, "scripts.target", c.Scripts.Target, scriptTargetNormalizer)

	c.Paths.Source = cleanPath(c.Paths.Source)
	c.Paths.Temp = cleanPath(c.Paths.Temp)
	c.Paths.Output = cleanPath(c.Paths.Output)
	c.Scripts.Entry = cleanPath(c.Scripts.Entry)

	engines := make([]string, 0, len(c.Styles.Engines))
	for _, e := range c.Styles.Engines {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !slices.Contains(engines, e) {
			engines = append(engines, e)
		}
	}
	c.Styles.Engines = engines
	c.Name = strings.TrimSpace(c.Name)
	return res, nil
}

func normalizeEnum[T ~string](res *NormalizationResult, field string, value T, n *normalization.Normalizer[T]) T {
	raw := string(value)
	if strings.TrimSpace(raw) == "" {
		return value
	}
	parsed, err := n.Parse(raw)
	if err != nil {
		res.Warnings = append(res.Warnings, warnUnknown(field, raw, string(n.Default())))
		return n.Default()
	}
	if parsed != value {
		res.Warnings = append(res.Warnings, warnChanged(field, value, parsed))
	}
	return parsed
}

func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}

func warnChanged(field string, from, to any) string {
	return fmt.Sprintf("normalized %s from '%v' to '%v'", field, from, to)
}

func warnUnknown(field, value, def string) string {
	return fmt.Sprintf("unknown %s '%s', defaulting to %s", field, value, def)
}
