// Package title composes short human readable headings for captures
// from competing metadata variants.
package title

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// isSpace matches the white space class of ECMAScript regular
// expressions, including no-break and zero width no-break spaces.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\ufeff'
}

const (
	punctuation = "-!?,.;:$#\u00ab\u201e`[({|\\/<>@~*&+=\u2014"
	closing     = "]})\u00bb'"
)

type splitVariant struct {
	index   int
	penalty int
}

// Truncate shortens text to about target runes, never below min and never
// above max. It prefers to cut at white space, then before punctuation,
// then after a closing bracket, and finally hard at target. The second
// result reports whether anything was removed.
func Truncate(text string, min, target, max int) (string, bool) {
	runes := []rune(text)
	if len(runes) <= target {
		return text, false
	}
	// Keep one more character: it may be a space that allows a cut at max.
	limit := max + 1
	if limit > len(runes) {
		limit = len(runes)
	}
	head := runes[:limit]
	leftSpread := absInt(target - min)
	if leftSpread < 1 {
		leftSpread = 1
	}
	rightSpread := absInt(max - target)
	if rightSpread < 1 {
		rightSpread = 1
	}

	best := func(indices []int) (int, bool) {
		var variants []splitVariant
		for _, index := range indices {
			if index < min {
				continue
			}
			var penalty int
			if index <= target {
				penalty = rightSpread * (target - index)
			} else {
				penalty = -leftSpread * (target - index)
			}
			variants = append(variants, splitVariant{index: index, penalty: penalty})
		}
		if len(variants) == 0 {
			return 0, false
		}
		sort.SliceStable(variants, func(i, j int) bool {
			return variants[i].penalty < variants[j].penalty
		})
		return variants[0].index, true
	}

	if index, ok := best(spaceRunStarts(head)); ok {
		return string(head[:index]), true
	}
	if len(runes) <= max {
		return text, false
	}
	if index, ok := best(indicesOf(head, punctuation)); ok {
		return string(head[:index]), true
	}
	if index, ok := best(indicesOf(head, closing)); ok {
		return string(head[:index+1]), true
	}
	return string(head[:target]), true
}

func spaceRunStarts(runes []rune) []int {
	var out []int
	for i, r := range runes {
		if isSpace(r) && (i == 0 || !isSpace(runes[i-1])) {
			out = append(out, i)
		}
	}
	return out
}

func indicesOf(runes []rune, set string) []int {
	var out []int
	for i, r := range runes {
		if strings.ContainsRune(set, r) {
			out = append(out, i)
		}
	}
	return out
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Component is one part of a composed title such as the author or the
// site name. Components shrink in proportion to their Target while
// Stiff is zero; stiff components give way afterwards, in proportion to
// Stiff. Values not longer than FlexThreshold are never shortened.
type Component struct {
	Value         string
	Min           int
	Target        int
	Stiff         int
	FlexThreshold int

	limit int
}

// Part is a component value after length limiting.
type Part struct {
	Text      string
	Truncated bool
}

// LimitComponentsLength distributes the sum of component targets between
// non-empty components and truncates the ones exceeding their share.
func LimitComponentsLength(components []Component) []Part {
	limited := limitComponentsLength(components)
	var parts []Part
	for _, c := range limited {
		if c.Value == "" {
			continue
		}
		text, truncated := Truncate(c.Value, c.Min, c.limit, c.limit)
		parts = append(parts, Part{Text: text, Truncated: truncated})
	}
	return parts
}

func limitComponentsLength(in []Component) []Component {
	components := append([]Component(nil), in...)
	targetSum := 0
	for _, c := range components {
		targetSum += c.Target
	}

	excess := float64(-targetSum)
	var unprocessed []*Component
	for i := range components {
		c := &components[i]
		if c.Value == "" {
			continue
		}
		c.limit = len([]rune(c.Value))
		if c.limit > targetSum {
			c.limit = targetSum
		}
		excess += float64(c.limit)
		if c.limit > c.FlexThreshold {
			unprocessed = append(unprocessed, c)
		}
	}
	if excess <= 0 {
		return components
	}

	// Flexible components first.
	for i := len(unprocessed); i > 0; i-- {
		invStiff := 0.0
		for _, c := range unprocessed {
			if c.Stiff == 0 {
				invStiff += 1 / float64(c.Target)
			}
		}
		if invStiff <= 0 {
			break
		}
		strain := excess / invStiff
		var rest []*Component
		constrained := false
		for _, c := range unprocessed {
			if c.Stiff == 0 && c.limit-ceilDiv(strain, c.Target) <= c.Min {
				constrained = true
				excess -= float64(c.limit - c.Min)
				c.limit = c.Min
			} else {
				rest = append(rest, c)
			}
		}
		unprocessed = rest
		if constrained {
			continue
		}
		rest = nil
		for _, c := range unprocessed {
			if c.Stiff != 0 {
				rest = append(rest, c)
				continue
			}
			delta := ceilDiv(strain, c.Target)
			c.limit -= delta
			excess -= float64(delta)
		}
		unprocessed = rest
	}
	if excess <= 0 {
		return components
	}

	var stiff []*Component
	for _, c := range unprocessed {
		if c.Stiff > 0 {
			stiff = append(stiff, c)
		}
	}
	unprocessed = stiff
	for i := len(unprocessed); i > 0; i-- {
		invStiff := 0.0
		for _, c := range unprocessed {
			invStiff += 1 / float64(c.Stiff)
		}
		if invStiff <= 0 {
			break
		}
		strain := excess / invStiff
		var rest []*Component
		constrained := false
		for _, c := range unprocessed {
			if c.limit-ceilDiv(strain, c.Stiff) < c.Min {
				constrained = true
				excess -= float64(c.limit - c.Min)
				c.limit = c.Min
			} else {
				rest = append(rest, c)
			}
		}
		unprocessed = rest
		if constrained {
			continue
		}
		for _, c := range unprocessed {
			delta := ceilDiv(strain, c.Stiff)
			c.limit -= delta
			excess -= float64(delta)
		}
		break
	}
	return components
}

func ceilDiv(strain float64, by int) int {
	return int(math.Ceil(strain / float64(by)))
}
