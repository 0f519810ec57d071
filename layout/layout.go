// Package layout fingerprints the structure of a rendered page so that
// upstream layout changes, which break absolute locators, show up in logs
// before they show up as missing fields.
package layout

import (
	"fmt"
	"hash/fnv"
	"math/bits"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// shingleSize is the number of consecutive structural tokens hashed together.
const shingleSize = 3

// skipped elements carry no layout; their children are ignored too.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Svg:      true,
}

// Fingerprint returns a 64-bit SimHash over the element structure of
// rawHTML. Text and attributes are ignored; each element contributes its
// tag name and depth, so moving a node between levels changes the hash.
func Fingerprint(rawHTML string) uint64 {
	tokens := structure(rawHTML)
	if len(tokens) == 0 {
		return 0
	}
	if len(tokens) < shingleSize {
		return simhash(tokens)
	}

	shingles := make([]string, 0, len(tokens)-shingleSize+1)
	for i := 0; i+shingleSize <= len(tokens); i++ {
		shingles = append(shingles, strings.Join(tokens[i:i+shingleSize], " "))
	}
	return simhash(shingles)
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Format renders a fingerprint as 16 lowercase hex digits.
func Format(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}

// Parse reads a fingerprint produced by Format.
func Parse(s string) (uint64, error) {
	fp, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(s), "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("layout: parse fingerprint %q: %w", s, err)
	}
	return fp, nil
}

// structure tokenizes rawHTML into "depth:tag" tokens in document order.
func structure(rawHTML string) []string {
	z := html.NewTokenizer(strings.NewReader(rawHTML))
	var (
		tokens    []string
		depth     int
		skipDepth int
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return tokens
		case html.StartTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if isVoid(a) {
				if skipDepth == 0 {
					tokens = append(tokens, strconv.Itoa(depth+1)+":"+string(name))
				}
				continue
			}
			depth++
			if skipDepth > 0 {
				continue
			}
			if skipped[a] {
				skipDepth = depth
				continue
			}
			tokens = append(tokens, strconv.Itoa(depth)+":"+string(name))
		case html.SelfClosingTagToken:
			if skipDepth > 0 {
				continue
			}
			name, _ := z.TagName()
			tokens = append(tokens, strconv.Itoa(depth+1)+":"+string(name))
		case html.EndTagToken:
			name, _ := z.TagName()
			if isVoid(atom.Lookup(name)) {
				continue
			}
			if skipDepth > 0 && depth == skipDepth {
				skipDepth = 0
			}
			if depth > 0 {
				depth--
			}
		}
	}
}

func isVoid(a atom.Atom) bool {
	switch a {
	case atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr, atom.Img,
		atom.Input, atom.Link, atom.Meta, atom.Source, atom.Track, atom.Wbr:
		return true
	}
	return false
}

func simhash(features []string) uint64 {
	var weights [64]int
	h := fnv.New64a()
	for _, f := range features {
		h.Reset()
		_, _ = h.Write([]byte(f))
		sum := h.Sum64()
		for i := 0; i < 64; i++ {
			if sum&(1<<uint(i)) != 0 {
				weights[i]++
			} else {
				weights[i]--
			}
		}
	}

	var fp uint64
	for i, w := range weights {
		if w > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}
