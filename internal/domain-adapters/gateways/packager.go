package gateways

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/ochairo/unipkg/internal/domain/entities"
	uerrors "github.com/ochairo/unipkg/internal/domain/errors"
	"github.com/ochairo/unipkg/internal/domain/interfaces"
	"github.com/ochairo/unipkg/internal/external-adapters/plist"
)

// SynthesisRequest holds the two validated bundles of a run
type SynthesisRequest struct {
	First     entities.ResolvedBundle
	Second    entities.ResolvedBundle
	OutputDir string
	WorkDir   string // parent of the synthesis scratch directory
}

// Packager builds the dual-payload installer with pkgbuild and productbuild
type Packager struct {
	runner       ToolRunner
	logger       interfaces.Logger
	fallbackDirs func() []string
}

// NewPackager creates a packager. fallbackDirs lists where the installer
// goes when the requested output directory is not writable; nil selects
// DefaultFallbackDirs.
func NewPackager(runner ToolRunner, fallbackDirs func() []string, logger interfaces.Logger) *Packager {
	if fallbackDirs == nil {
		fallbackDirs = DefaultFallbackDirs
	}
	return &Packager{
		runner:       runner,
		logger:       interfaces.OrNoOp(logger).Named("packager"),
		fallbackDirs: fallbackDirs,
	}
}

// DefaultFallbackDirs returns the user's Desktop, then home directory
func DefaultFallbackDirs() []string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return []string{os.TempDir()}
	}
	return []string{filepath.Join(home, "Desktop"), home}
}

type component struct {
	bundle  entities.ResolvedBundle
	root    string
	plist   string
	pkgID   string
	pkgFile string
}

// Synthesize produces <name>-<version>-universal.pkg. Intermediate files
// live in one scratch directory removed on return; a failed final build
// leaves no artifact in the output directory.
func (p *Packager) Synthesize(ctx context.Context, req SynthesisRequest) (*entities.PackageResult, error) {
	name := req.First.DisplayName
	if name == "" {
		name = DisplayName(req.First.BundlePath)
	}

	synthDir, err := os.MkdirTemp(req.WorkDir, "synthesis-*")
	if err != nil {
		return nil, uerrors.Wrap(err, uerrors.KindPackageCreationFailed, "failed to create synthesis directory")
	}
	defer func() {
		if err := os.RemoveAll(synthDir); err != nil {
			p.logger.Warn("failed to remove synthesis directory", interfaces.F("path", synthDir), interfaces.Err(err))
		}
	}()

	pkgDir := filepath.Join(synthDir, "packages")
	if err := os.MkdirAll(pkgDir, 0750); err != nil {
		return nil, uerrors.Wrap(err, uerrors.KindPackageCreationFailed, "failed to create package directory")
	}

	// 1-3. One non-relocatable component package per architecture
	components := make([]*component, 0, 2)
	for _, b := range []entities.ResolvedBundle{req.First, req.Second} {
		c, err := p.buildComponent(ctx, synthDir, pkgDir, name, b)
		if err != nil {
			return nil, err
		}
		components = append(components, c)
	}

	// 4. Distribution manifest with the runtime architecture check
	distPath := filepath.Join(synthDir, "distribution.xml")
	if err := writeDistribution(distPath, name, components); err != nil {
		return nil, uerrors.Wrap(err, uerrors.KindPackageCreationFailed, "failed to write distribution manifest")
	}

	// 5. Output location
	outDir, usedFallback, err := p.resolveOutputDir(req.OutputDir)
	if err != nil {
		return nil, err
	}
	artifact := entities.ArtifactName(name, req.First.Version)
	finalPath := filepath.Join(outDir, artifact)
	partialPath := filepath.Join(outDir, partialName(artifact))

	// 6-7. Final product. An existing installer is only ever replaced by a
	// complete build.
	res := p.runner.Run(ctx, Command{
		Name: "productbuild",
		Args: []string{"--distribution", distPath, "--package-path", pkgDir, partialPath},
	})
	if !res.Success {
		p.removePartial(partialPath)
		return nil, uerrors.Wrap(res.Err(), uerrors.KindPackageCreationFailed, "productbuild failed")
	}
	if info, err := os.Stat(partialPath); err != nil || info.IsDir() {
		p.removePartial(partialPath)
		return nil, uerrors.New(uerrors.KindPackageCreationFailed, "productbuild reported success but %s was not written", finalPath)
	}
	if err := os.Rename(partialPath, finalPath); err != nil {
		p.removePartial(partialPath)
		return nil, uerrors.Wrap(err, uerrors.KindPackageCreationFailed, "failed to move installer into %s", outDir)
	}

	p.logger.Info("installer written", interfaces.F("path", finalPath))
	return &entities.PackageResult{
		Path:         finalPath,
		Name:         name,
		Identifier:   req.First.Identifier,
		Version:      req.First.Version,
		UsedFallback: usedFallback,
	}, nil
}

func (p *Packager) buildComponent(ctx context.Context, synthDir, pkgDir, name string, b entities.ResolvedBundle) (*component, error) {
	arch := string(b.Slot.Expected())
	c := &component{
		bundle:  b,
		root:    filepath.Join(synthDir, "root-"+arch),
		plist:   filepath.Join(synthDir, arch+"-component.plist"),
		pkgID:   b.Identifier + "." + arch,
		pkgFile: fmt.Sprintf("%s-%s.pkg", name, arch),
	}

	// 1. Synthetic root holding one bundle at Applications/<name>.app
	if err := CopyTree(b.BundlePath, filepath.Join(c.root, "Applications", name+BundleSuffix)); err != nil {
		return nil, uerrors.Wrap(err, uerrors.KindPackageCreationFailed, "failed to stage %s payload", arch)
	}

	// 2. Component descriptor forced non-relocatable
	res := p.runner.Run(ctx, Command{
		Name: "pkgbuild",
		Args: []string{"--analyze", "--root", c.root, c.plist},
	})
	if !res.Success {
		return nil, uerrors.Wrap(res.Err(), uerrors.KindPackageCreationFailed, "pkgbuild --analyze failed for %s", arch)
	}
	if _, err := plist.MarkNonRelocatable(c.plist); err != nil {
		return nil, uerrors.Wrap(err, uerrors.KindPackageCreationFailed, "failed to update component plist for %s", arch)
	}

	// 3. Component package
	res = p.runner.Run(ctx, Command{
		Name: "pkgbuild",
		Args: []string{
			"--root", c.root,
			"--component-plist", c.plist,
			"--identifier", c.pkgID,
			"--version", b.Version,
			"--install-location", "/",
			filepath.Join(pkgDir, c.pkgFile),
		},
	})
	if !res.Success {
		return nil, uerrors.Wrap(res.Err(), uerrors.KindPackageCreationFailed, "pkgbuild failed for %s", arch)
	}

	p.logger.Debug("component package built", interfaces.F("package", c.pkgFile), interfaces.F("identifier", c.pkgID))
	return c, nil
}

// resolveOutputDir prefers dir and falls back to the first writable
// fallback directory.
func (p *Packager) resolveOutputDir(dir string) (string, bool, error) {
	err := ensureWritable(dir)
	if err == nil {
		return dir, false, nil
	}
	p.logger.Warn("output directory is not writable, falling back",
		interfaces.F("path", dir), interfaces.Err(err))

	for _, fallback := range p.fallbackDirs() {
		if err := ensureWritable(fallback); err == nil {
			p.logger.Warn("writing installer to fallback location", interfaces.F("path", fallback))
			return fallback, true, nil
		}
	}
	return "", false, uerrors.New(uerrors.KindPackageCreationFailed, "no writable output location (requested %s)", dir)
}

// partialName is the hidden in-progress name for an artifact
func partialName(artifact string) string {
	return "." + strings.TrimSuffix(artifact, ".pkg") + ".partial.pkg"
}

func (p *Packager) removePartial(path string) {
	if err := os.RemoveAll(path); err != nil {
		p.logger.Warn("failed to remove partial installer", interfaces.F("path", path), interfaces.Err(err))
	}
}

// ensureWritable creates dir and proves a file can be written into it
func ensureWritable(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("empty path")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}
	probe, err := os.CreateTemp(dir, ".unipkg-probe-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}

var distributionTemplate = template.Must(template.New("distribution").Funcs(template.FuncMap{
	"xml": xmlEscape,
}).Parse(`<?xml version="1.0" encoding="utf-8"?>
<installer-gui-script minSpecVersion="2">
    <title>{{xml .Title}}</title>
    <options customize="never" require-scripts="false" hostArchitectures="x86_64,arm64"/>
    <domains enable_localSystem="true"/>
    <script>
function is_apple_silicon() {
    return system.sysctl('machdep.cpu.brand_string').indexOf('Apple') != -1;
}
    </script>
    <choices-outline>
{{- range .Choices}}
        <line choice="{{.ID}}"/>
{{- end}}
    </choices-outline>
{{- range .Choices}}
    <choice id="{{.ID}}" title="{{xml .Title}}" visible="false" enabled="{{.Predicate}}" selected="{{.Predicate}}">
        <pkg-ref id="{{xml .PkgID}}"/>
    </choice>
{{- end}}
{{- range .Choices}}
    <pkg-ref id="{{xml .PkgID}}" version="{{xml .Version}}" onConclusion="none">{{xml .File}}</pkg-ref>
{{- end}}
</installer-gui-script>
`))

type distributionChoice struct {
	ID        string
	Title     string
	Predicate string
	PkgID     string
	Version   string
	File      string
}

func writeDistribution(path, title string, components []*component) error {
	data := struct {
		Title   string
		Choices []distributionChoice
	}{Title: title}

	for _, c := range components {
		predicate := "is_apple_silicon()"
		if c.bundle.Slot != entities.SlotFirst {
			predicate = "!is_apple_silicon()"
		}
		data.Choices = append(data.Choices, distributionChoice{
			ID:        "choice_" + string(c.bundle.Slot.Expected()),
			Title:     fmt.Sprintf("%s (%s)", title, c.bundle.Slot.Label()),
			Predicate: predicate,
			PkgID:     c.pkgID,
			Version:   c.bundle.Version,
			File:      c.pkgFile,
		})
	}

	var b strings.Builder
	if err := distributionTemplate.Execute(&b, data); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(b.String()), 0600)
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
