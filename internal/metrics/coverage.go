package metrics

import (
	"encoding/xml"
	"math"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/blackwell-systems/btar/internal/lang"
)

var vitestConfigs = []string{
	"vitest.config.ts",
	"vitest.config.js",
	"vitest.config.mts",
	"vitest.config.mjs",
}

// detectJSCoverage prefers vitest, then jest, then c8.
func detectJSCoverage(dir string) Profile {
	for _, name := range vitestConfigs {
		if fileExists(filepath.Join(dir, name)) {
			return vitestProfile
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil || !gjson.ValidBytes(data) {
		return c8Profile
	}
	pkg := gjson.ParseBytes(data)
	switch {
	case hasDependency(pkg, "vitest"):
		return vitestProfile
	case hasDependency(pkg, "jest"):
		return jestProfile
	}
	return c8Profile
}

func hasDependency(pkg gjson.Result, name string) bool {
	for _, section := range []string{"devDependencies", "dependencies"} {
		if pkg.Get(section + "." + name).Exists() {
			return true
		}
	}
	return false
}

// detectGradleCoverage picks JVM tests when a src/test tree exists, and
// instrumented tests for Android projects without one.
func detectGradleCoverage(dir string, d lang.Detected) Profile {
	switch {
	case fileExists(filepath.Join(dir, "src", "test")):
		return jacocoGradleProfile
	case d.Android:
		return jacocoAndroidProfile
	}
	return jacocoGradleTextProfile
}

// jacocoReport is the subset of a JaCoCo XML report btar reads.
type jacocoReport struct {
	XMLName  xml.Name        `xml:"report"`
	Counters []jacocoCounter `xml:"counter"`
}

type jacocoCounter struct {
	Type    string `xml:"type,attr"`
	Missed  int    `xml:"missed,attr"`
	Covered int    `xml:"covered,attr"`
}

// ParseJacoco returns the report-level line coverage of a JaCoCo XML report,
// rounded to one decimal. It reports false when the document is not a JaCoCo
// report or has no line counter.
func ParseJacoco(data []byte) (float64, bool) {
	var rep jacocoReport
	if err := xml.Unmarshal(data, &rep); err != nil {
		return 0, false
	}
	var line *jacocoCounter
	for i := range rep.Counters {
		if rep.Counters[i].Type == "LINE" {
			line = &rep.Counters[i]
		}
	}
	if line == nil {
		return 0, false
	}
	total := line.Missed + line.Covered
	if total == 0 {
		return 0, true
	}
	return math.Round(float64(line.Covered)/float64(total)*1000) / 10, true
}

// readReports returns the first positive coverage figure found in the
// profile's report files.
func readReports(dir string, reports []string) float64 {
	for _, rel := range reports {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		v, ok := ParseJacoco(data)
		if !ok {
			log.WithField("path", path).Debug("unreadable coverage report")
			continue
		}
		if v > 0 {
			return v
		}
	}
	return 0
}

// missingDevice reports whether an instrumented test run failed for lack
// of a device or emulator.
func missingDevice(stderr string) bool {
	return strings.Contains(stderr, "No connected devices") || strings.Contains(stderr, "DeviceException")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
