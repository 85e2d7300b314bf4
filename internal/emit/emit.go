// Package emit renders the locator table, page object and test script for a
// compiled flow.
package emit

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"scriptforge/internal/binding"
	"scriptforge/internal/framework"
	"scriptforge/internal/naming"
	"scriptforge/internal/symbol"
)

// File is one generated artifact. Path is relative to the framework root and
// slash separated.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ArtifactSet is the complete output of one compilation.
type ArtifactSet struct {
	Locators []File           `json:"locators"`
	Pages    []File           `json:"pages"`
	Tests    []File           `json:"tests"`
	TestData []binding.Column `json:"testDataMapping"`
}

// Files lists every artifact in locators, pages, tests order.
func (s ArtifactSet) Files() []File {
	out := make([]File, 0, len(s.Locators)+len(s.Pages)+len(s.Tests))
	out = append(out, s.Locators...)
	out = append(out, s.Pages...)
	return append(out, s.Tests...)
}

// Paths are the root-relative locations of the three artifacts.
type Paths struct {
	Locators string
	Page     string
	Test     string
}

// PathsFor places the artifacts for slug inside the profile's directories.
func PathsFor(p framework.Profile, slug string) Paths {
	class := pageBase(naming.Pascal(slug))
	if class == "" {
		class = "Generated"
	}
	return Paths{
		Locators: path.Join(p.Locators(), slug+".ts"),
		Page:     path.Join(p.Pages(), class+"Page.ts"),
		Test:     path.Join(p.Tests(), slug+".spec.ts"),
	}
}

// Input is everything the emitter needs. Refs and Bindings must be in step
// order.
type Input struct {
	// Title names the generated test suite and test case.
	Title       string
	OriginalURL string
	Paths       Paths
	Assets      framework.Assets
	Entries     []symbol.Entry
	Refs        []symbol.Ref
	Bindings    []binding.Binding
}

// Emit renders the artifact set. Output depends only on in.
func Emit(in Input) ArtifactSet {
	return ArtifactSet{
		Locators: []File{{Path: in.Paths.Locators, Content: renderLocators(in.Entries)}},
		Pages:    []File{{Path: in.Paths.Page, Content: renderPage(in)}},
		Tests:    []File{{Path: in.Paths.Test, Content: renderTest(in)}},
		TestData: binding.Summarize(in.Bindings),
	}
}

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
	nonIdentifier     = regexp.MustCompile(`[^A-Za-z0-9_$]+`)
)

// pageBase makes name usable as the start of a class identifier. Names
// beginning with a digit get a "Flow" prefix.
func pageBase(name string) string {
	if name != "" && name[0] >= '0' && name[0] <= '9' {
		return "Flow" + name
	}
	return name
}

// className is the page object class, taken from the page file name. Stems
// that are not identifiers keep their casing and lose the offending runes.
func className(p Paths) string {
	name := strings.TrimSuffix(path.Base(p.Page), path.Ext(p.Page))
	if identifierPattern.MatchString(name) {
		return name
	}
	if id := pageBase(nonIdentifier.ReplaceAllString(name, "")); id != "" {
		return id
	}
	return "GeneratedPage"
}

// relImport is the module specifier that from uses to import to. Both are
// root-relative slash paths.
func relImport(from, to string) string {
	rel, err := filepath.Rel(filepath.FromSlash(path.Dir(from)), filepath.FromSlash(to))
	if err != nil {
		return to
	}
	rel = path.Clean(filepath.ToSlash(rel))
	if !strings.HasPrefix(rel, ".") {
		rel = "./" + rel
	}
	return rel
}

// rootFrom is the relative path from file's directory back to the root.
func rootFrom(file string) string {
	dir := path.Dir(file)
	if dir == "." {
		return "."
	}
	return strings.TrimSuffix(strings.Repeat("../", strings.Count(dir, "/")+1), "/")
}

// comment flattens text onto a single script comment line.
func comment(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func ln(b *strings.Builder, format string, args ...any) {
	fmt.Fprintf(b, format, args...)
	b.WriteByte('\n')
}
