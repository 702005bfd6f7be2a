// Package discovery implements platform discovery (C8): it enumerates the
// platform's known install roots for the current OS family and selects the
// highest-versioned installation that actually carries a syntax help
// container.
package discovery

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
)

// syntaxHelpFile is the file every candidate version directory's bin/ must
// contain to qualify.
const syntaxHelpFile = "shcntx_ru.hbk"

var versionDirPattern = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+$`)

// Installation is an immutable discovered installation (§3).
type Installation struct {
	Version string
	BinPath string
}

// searchRoots returns the fixed per-OS-family install roots (§6.3).
func searchRoots() []string {
	if runtime.GOOS == "windows" {
		return []string{
			`C:\Program Files\1cv8`,
			`C:\Program Files (x86)\1cv8`,
		}
	}
	return []string{
		"/opt/1cv8",
		"/opt/1cv8/x86_64",
		"/usr/share/1cv8",
	}
}

// Find scans the fixed search roots for version directories that contain a
// bin/shcntx_ru.hbk, and returns the highest-versioned one. It returns
// ok=false, not an error, when nothing qualifies — platform absence is an
// expected, non-fatal outcome (§4.9 step 1).
func Find() (Installation, bool) {
	return find(searchRoots())
}

// FindIn scans an explicit list of install roots instead of the fixed
// per-OS-family defaults, for the --install-root CLI override.
func FindIn(roots []string) (Installation, bool) {
	return find(roots)
}

func find(roots []string) (Installation, bool) {
	var candidates []Installation

	for _, root := range roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() || !versionDirPattern.MatchString(entry.Name()) {
				continue
			}
			binPath := filepath.Join(root, entry.Name(), "bin")
			if _, err := os.Stat(filepath.Join(binPath, syntaxHelpFile)); err != nil {
				continue
			}
			candidates = append(candidates, Installation{Version: entry.Name(), BinPath: binPath})
		}
	}

	if len(candidates) == 0 {
		return Installation{}, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		return compareVersions(candidates[i].Version, candidates[j].Version) > 0
	})
	return candidates[0], true
}

// compareVersions orders two dotted-quadruple version strings numerically,
// component by component; it returns a positive number when a > b.
func compareVersions(a, b string) int {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < 4; i++ {
		na, _ := strconv.Atoi(pa[i])
		nb, _ := strconv.Atoi(pb[i])
		if na != nb {
			return na - nb
		}
	}
	return 0
}
