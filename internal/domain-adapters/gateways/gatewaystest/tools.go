package gatewaystest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ochairo/unipkg/internal/domain-adapters/gateways"
	"github.com/ochairo/unipkg/internal/external-adapters/plist"
)

// Toolchain simulates the macOS tools the pipeline drives. Archive and
// image contents are looked up by the input file's base name.
type Toolchain struct {
	// Contents maps an archive or image base name to the bundles it holds
	Contents map[string][]Bundle
	// VolumesDir is where simulated images get mounted
	VolumesDir string

	mu      sync.Mutex
	mounted map[string]bool
	seq     int
}

// NewToolchain creates a toolchain whose images mount below volumesDir
func NewToolchain(volumesDir string) *Toolchain {
	return &Toolchain{
		Contents:   make(map[string][]Bundle),
		VolumesDir: volumesDir,
		mounted:    make(map[string]bool),
	}
}

// Add declares the bundles inside an archive or image
func (tc *Toolchain) Add(name string, bundles ...Bundle) *Toolchain {
	tc.Contents[name] = append(tc.Contents[name], bundles...)
	return tc
}

// Install registers every simulated tool on r
func (tc *Toolchain) Install(r *Runner) *Runner {
	return r.
		Handle("ditto", tc.ditto).
		Handle("tar", tc.tar).
		Handle("bunzip2", tc.bunzip2).
		Handle("hdiutil", tc.hdiutil).
		Handle("pkgbuild", Pkgbuild).
		Handle("productbuild", Productbuild)
}

// Mounted lists mount points that were attached and not yet detached
func (tc *Toolchain) Mounted() []string {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	var out []string
	for mp, ok := range tc.mounted {
		if ok {
			out = append(out, mp)
		}
	}
	sort.Strings(out)
	return out
}

func (tc *Toolchain) expand(src, dest string) *gateways.ExecuteResult {
	bundles, ok := tc.Contents[filepath.Base(src)]
	if !ok {
		return Failed(1, fmt.Sprintf("cannot open %s: not an archive", src))
	}
	if err := os.MkdirAll(dest, 0750); err != nil {
		return Failed(1, err.Error())
	}
	for _, b := range bundles {
		if _, err := WriteBundle(dest, b); err != nil {
			return Failed(1, err.Error())
		}
	}
	return OK("")
}

// ditto -x -k <src> <dest>
func (tc *Toolchain) ditto(cmd gateways.Command) *gateways.ExecuteResult {
	if len(cmd.Args) != 4 || cmd.Args[0] != "-x" || cmd.Args[1] != "-k" {
		return Failed(64, "usage: ditto -x -k src dest")
	}
	return tc.expand(cmd.Args[2], cmd.Args[3])
}

// tar -xjf <src> -C <dest>
func (tc *Toolchain) tar(cmd gateways.Command) *gateways.ExecuteResult {
	if len(cmd.Args) != 4 || cmd.Args[0] != "-xjf" || cmd.Args[2] != "-C" {
		return Failed(64, "usage: tar -xjf src -C dest")
	}
	return tc.expand(cmd.Args[1], cmd.Args[3])
}

// bunzip2 <file.bz2>
func (tc *Toolchain) bunzip2(cmd gateways.Command) *gateways.ExecuteResult {
	if len(cmd.Args) != 1 {
		return Failed(64, "usage: bunzip2 file")
	}
	src := cmd.Args[0]
	res := tc.expand(src, filepath.Dir(src))
	if res.Success {
		_ = os.Remove(src)
	}
	return res
}

// hdiutil attach -nobrowse -readonly <image> | hdiutil detach <mountpoint>
func (tc *Toolchain) hdiutil(cmd gateways.Command) *gateways.ExecuteResult {
	if len(cmd.Args) == 0 {
		return Failed(64, "usage: hdiutil verb")
	}
	switch cmd.Args[0] {
	case "attach":
		image := cmd.Args[len(cmd.Args)-1]
		tc.mu.Lock()
		tc.seq++
		mp := filepath.Join(tc.VolumesDir, fmt.Sprintf("Volume %d", tc.seq))
		tc.mu.Unlock()

		if res := tc.expand(image, mp); !res.Success {
			return res
		}
		tc.mu.Lock()
		tc.mounted[mp] = true
		tc.mu.Unlock()
		return OK(fmt.Sprintf("/dev/disk%d          \tGUID_partition_scheme          \t\n/dev/disk%ds1        \tApple_HFS                      \t%s\n", tc.seq+3, tc.seq+3, mp))
	case "detach":
		if len(cmd.Args) != 2 {
			return Failed(64, "usage: hdiutil detach mountpoint")
		}
		tc.mu.Lock()
		defer tc.mu.Unlock()
		if !tc.mounted[cmd.Args[1]] {
			return Failed(1, "hdiutil: detach failed - No such file or directory")
		}
		delete(tc.mounted, cmd.Args[1])
		return OK(fmt.Sprintf("\"%s\" ejected.\n", filepath.Base(cmd.Args[1])))
	default:
		return Failed(64, "unsupported verb "+cmd.Args[0])
	}
}

// Pkgbuild simulates `pkgbuild --analyze` and component package builds
func Pkgbuild(cmd gateways.Command) *gateways.ExecuteResult {
	args := cmd.Args
	if len(args) == 4 && args[0] == "--analyze" && args[1] == "--root" {
		entries, err := filepath.Glob(filepath.Join(args[2], "Applications", "*.app"))
		if err != nil || len(entries) == 0 {
			return Failed(1, "no bundles found under root")
		}
		var components []map[string]interface{}
		for _, e := range entries {
			components = append(components, map[string]interface{}{
				"BundleHasStrictIdentifier": true,
				"BundleIsRelocatable":       true,
				"BundleIsVersionChecked":    true,
				"BundleOverwriteAction":     "upgrade",
				"RootRelativeBundlePath":    filepath.Join("Applications", filepath.Base(e)),
			})
		}
		if err := plist.WriteXML(args[3], components); err != nil {
			return Failed(1, err.Error())
		}
		return OK("pkgbuild: Adding top-level bundles\n")
	}
	return writeProduct(args, "pkgbuild")
}

// Productbuild simulates the final product archive build
func Productbuild(cmd gateways.Command) *gateways.ExecuteResult {
	return writeProduct(cmd.Args, "productbuild")
}

func writeProduct(args []string, tool string) *gateways.ExecuteResult {
	if len(args) == 0 || !strings.HasSuffix(args[len(args)-1], ".pkg") {
		return Failed(64, "usage: "+tool+" ... out.pkg")
	}
	out := args[len(args)-1]
	if err := os.WriteFile(out, []byte(tool+": "+strings.Join(args, " ")), 0600); err != nil {
		return Failed(1, err.Error())
	}
	return OK(tool + ": Wrote product to " + out + "\n")
}
