package signature

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/praetorian-inc/pktmatch/pkg/types"
)

// FilterConfig selects signatures by ID and category.
type FilterConfig struct {
	Include    []string // ID regexes; when set, a signature must match one
	Exclude    []string // ID regexes; a matching signature is dropped
	Categories []string // when set, a signature must carry one of these
}

// ParsePatterns splits a comma-separated list, trimming whitespace and
// dropping empty items.
func ParsePatterns(list string) []string {
	out := []string{}
	for _, p := range strings.Split(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Filter returns the signatures selected by config, preserving order.
// Include and category selection are applied before exclusion.
func Filter(sigs []*types.Signature, config FilterConfig) ([]*types.Signature, error) {
	include, err := compileAll(config.Include)
	if err != nil {
		return nil, err
	}
	exclude, err := compileAll(config.Exclude)
	if err != nil {
		return nil, err
	}

	result := make([]*types.Signature, 0, len(sigs))
	for _, s := range sigs {
		if len(include) > 0 && !matchesAny(s.ID, include) {
			continue
		}
		if len(config.Categories) > 0 && !hasCategory(s, config.Categories) {
			continue
		}
		if matchesAny(s.ID, exclude) {
			continue
		}
		result = append(result, s)
	}
	return result, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	regexes := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", p, err)
		}
		regexes = append(regexes, re)
	}
	return regexes, nil
}

func matchesAny(id string, regexes []*regexp.Regexp) bool {
	return slices.ContainsFunc(regexes, func(re *regexp.Regexp) bool {
		return re.MatchString(id)
	})
}

func hasCategory(s *types.Signature, categories []string) bool {
	return slices.ContainsFunc(s.Categories, func(c string) bool {
		return slices.Contains(categories, c)
	})
}
