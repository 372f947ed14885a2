// Package lang defines the languages and build systems btar knows how to
// measure, and the detected-language record callers hand to the measurers.
package lang

import (
	"fmt"
	"strings"
)

// Language identifies a source language.
type Language string

const (
	Python     Language = "python"
	TypeScript Language = "typescript"
	JavaScript Language = "javascript"
	Go         Language = "go"
	Java       Language = "java"
	Kotlin     Language = "kotlin"
	Swift      Language = "swift"
	Ruby       Language = "ruby"
	PHP        Language = "php"
)

// All lists every supported language in canonical order.
var All = []Language{Python, TypeScript, JavaScript, Go, Java, Kotlin, Swift, Ruby, PHP}

// Typed reports whether the language has a type checker btar can run.
func (l Language) Typed() bool {
	switch l {
	case JavaScript, Ruby, PHP:
		return false
	}
	return true
}

// JSFamily reports whether the language uses the npm toolchain.
func (l Language) JSFamily() bool {
	return l == TypeScript || l == JavaScript
}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	for _, known := range All {
		if l == known {
			return true
		}
	}
	return false
}

// BuildSystem identifies how a project is built.
type BuildSystem string

const (
	Gradle BuildSystem = "gradle"
	Maven  BuildSystem = "maven"
	NPM    BuildSystem = "npm"
	GoMod  BuildSystem = "go-mod"
	None   BuildSystem = "none"
)

// Confidence is how sure the detector was about a language.
type Confidence string

const (
	High   Confidence = "high"
	Medium Confidence = "medium"
	Low    Confidence = "low"
)

// Detected is a language found in the analyzed directory.
type Detected struct {
	Language    Language    `json:"language" yaml:"language" mapstructure:"language"`
	Confidence  Confidence  `json:"confidence,omitempty" yaml:"confidence,omitempty" mapstructure:"confidence"`
	Markers     []string    `json:"markers,omitempty" yaml:"markers,omitempty" mapstructure:"markers"`
	BuildSystem BuildSystem `json:"buildSystem,omitempty" yaml:"build_system,omitempty" mapstructure:"build_system"`
	Android     bool        `json:"isAndroid,omitempty" yaml:"android,omitempty" mapstructure:"android"`
}

// UsesGradle reports whether the project builds with Gradle.
func (d Detected) UsesGradle() bool {
	return d.BuildSystem == Gradle
}

// DefaultBuildSystem returns the build system assumed for a language when
// none is given.
func DefaultBuildSystem(l Language) BuildSystem {
	switch l {
	case TypeScript, JavaScript:
		return NPM
	case Go:
		return GoMod
	case Java:
		return Maven
	}
	return None
}

// ParseSpec parses a language spec of the form "lang[:qualifier]" where the
// qualifier is a build system or "android" (which implies gradle).
//
//	go
//	java:gradle
//	kotlin:android
func ParseSpec(spec string) (Detected, error) {
	spec = strings.ToLower(strings.TrimSpace(spec))
	name, qualifier, _ := strings.Cut(spec, ":")

	l := Language(name)
	if !l.Valid() {
		return Detected{}, fmt.Errorf("unknown language %q", name)
	}

	d := Detected{
		Language:    l,
		Confidence:  High,
		BuildSystem: DefaultBuildSystem(l),
	}

	switch qualifier {
	case "":
	case "android":
		d.BuildSystem = Gradle
		d.Android = true
	default:
		bs := BuildSystem(qualifier)
		switch bs {
		case Gradle, Maven, NPM, GoMod, None:
			d.BuildSystem = bs
		default:
			return Detected{}, fmt.Errorf("unknown build system %q for %s", qualifier, name)
		}
	}
	return d, nil
}

// ParseSpecs parses a list of specs, also accepting comma-separated entries.
// Duplicate languages keep the first occurrence.
func ParseSpecs(specs []string) ([]Detected, error) {
	var out []Detected
	seen := make(map[Language]bool)
	for _, raw := range specs {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			d, err := ParseSpec(part)
			if err != nil {
				return nil, err
			}
			if seen[d.Language] {
				continue
			}
			seen[d.Language] = true
			out = append(out, d)
		}
	}
	return out, nil
}

// Names returns the language names of a detected list.
func Names(detected []Detected) []Language {
	out := make([]Language, 0, len(detected))
	for _, d := range detected {
		out = append(out, d.Language)
	}
	return out
}
