package orchestrators

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ochairo/unipkg/internal/domain-adapters/gateways"
	"github.com/ochairo/unipkg/internal/domain/entities"
	uerrors "github.com/ochairo/unipkg/internal/domain/errors"
	"github.com/ochairo/unipkg/internal/domain/interfaces"
	"github.com/ochairo/unipkg/internal/domain/interfaces/repositories"
	"github.com/ochairo/unipkg/internal/domain/services"
)

// State is a stage of a packaging run
type State string

const (
	StateIdle             State = "Idle"
	StateValidatingInputs State = "ValidatingInputs"
	StateProcessingFirst  State = "ProcessingFirst"
	StateProcessingSecond State = "ProcessingSecond"
	StateValidatingPair   State = "ValidatingPair"
	StateSynthesizing     State = "Synthesizing"
	StateDone             State = "Done"
	StateFailed           State = "Failed"
)

// SlotProcessor resolves one slot's input into a bundle in the working area
type SlotProcessor interface {
	Process(ctx context.Context, src entities.InputSource, slot entities.Slot, area *WorkingArea) (*entities.ResolvedBundle, error)
}

// Synthesizer builds the universal installer from two validated bundles
type Synthesizer interface {
	Synthesize(ctx context.Context, req gateways.SynthesisRequest) (*entities.PackageResult, error)
}

// ChecksumWriter writes a checksum sidecar for a file
type ChecksumWriter interface {
	GenerateSHA256(filePath string) (string, error)
}

// PackageOrchestratorConfig holds configuration for the orchestrator
type PackageOrchestratorConfig struct {
	WorkDir  string // parent of per-run working areas; system temp when empty
	Parallel bool   // process both slots concurrently
	Checksum bool   // write <artifact>.sha256
}

// PackageOrchestrator sequences input processing, pair validation and
// synthesis for one run at a time
type PackageOrchestrator struct {
	recipes     repositories.RecipeRepository
	pipeline    SlotProcessor
	synthesizer Synthesizer
	checksums   ChecksumWriter
	progress    interfaces.ProgressReporter
	logger      interfaces.Logger
	config      PackageOrchestratorConfig

	mu    sync.Mutex
	state State
}

// NewPackageOrchestrator creates a new package orchestrator. recipes,
// checksums and progress may be nil.
func NewPackageOrchestrator(
	recipes repositories.RecipeRepository,
	pipeline SlotProcessor,
	synthesizer Synthesizer,
	checksums ChecksumWriter,
	progress interfaces.ProgressReporter,
	logger interfaces.Logger,
	config PackageOrchestratorConfig,
) *PackageOrchestrator {
	if progress == nil {
		progress = interfaces.DiscardProgress
	}
	if checksums == nil {
		checksums = services.NewChecksumService()
	}
	return &PackageOrchestrator{
		recipes:     recipes,
		pipeline:    pipeline,
		synthesizer: synthesizer,
		checksums:   checksums,
		progress:    progress,
		logger:      interfaces.OrNoOp(logger).Named("orchestrator"),
		config:      config,
		state:       StateIdle,
	}
}

// State returns the current stage
func (o *PackageOrchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *PackageOrchestrator) enter(state State, message string) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()

	o.logger.Info("stage", interfaces.F("state", state))
	if message != "" {
		o.progress.Report(interfaces.ProgressEvent{Stage: string(state), Message: message})
	}
}

func (o *PackageOrchestrator) fail(err error) error {
	o.enter(StateFailed, "")
	o.logger.Error("packaging failed",
		interfaces.F("kind", uerrors.KindOf(err)),
		interfaces.Err(err))
	return err
}

// BuildFromRecipe loads a stored pair recipe and runs it. A non-empty
// outputDir overrides the recipe's output.
func (o *PackageOrchestrator) BuildFromRecipe(ctx context.Context, name, outputDir string) (*entities.PackageResult, error) {
	if o.recipes == nil {
		return nil, fmt.Errorf("no recipe repository configured")
	}
	recipe, err := o.recipes.GetRecipe(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	return o.BuildUniversalPackage(ctx, recipe.Request(outputDir))
}

// BuildUniversalPackage runs the whole workflow. The working area is
// removed on every exit path.
func (o *PackageOrchestrator) BuildUniversalPackage(ctx context.Context, req entities.PackageRequest) (*entities.PackageResult, error) {
	startTime := time.Now()

	// Step 1: Validate the request before any I/O
	o.enter(StateValidatingInputs, "")
	if err := services.ValidateRequest(req); err != nil {
		return nil, o.fail(err)
	}
	req.OutputDir = strings.TrimSpace(req.OutputDir)

	// Step 2: Working area, torn down on Done and Failed alike
	area, err := NewWorkingArea(o.config.WorkDir, o.logger)
	if err != nil {
		return nil, o.fail(uerrors.Wrap(err, uerrors.KindExtractionFailed, "cannot allocate working area"))
	}
	defer func() { _ = area.Close() }()

	// Step 3: Resolve both slots
	first, second, err := o.processSlots(ctx, req, area)
	if err != nil {
		return nil, o.fail(err)
	}

	// Step 4: Cross-validate
	o.enter(StateValidatingPair, "")
	if err := services.ValidatePair(first, second); err != nil {
		return nil, o.fail(err)
	}

	// Step 5: Synthesize
	o.enter(StateSynthesizing, "Building universal installer")
	result, err := o.synthesizer.Synthesize(ctx, gateways.SynthesisRequest{
		First:     *first,
		Second:    *second,
		OutputDir: req.OutputDir,
		WorkDir:   area.Root,
	})
	if err != nil {
		return nil, o.fail(err)
	}

	// Step 6: Optional checksum sidecar
	if o.config.Checksum {
		checksumPath, err := o.checksums.GenerateSHA256(result.Path)
		if err != nil {
			if rmErr := os.Remove(result.Path); rmErr != nil {
				o.logger.Warn("failed to remove installer", interfaces.F("path", result.Path), interfaces.Err(rmErr))
			}
			return nil, o.fail(uerrors.Wrap(err, uerrors.KindPackageCreationFailed, "failed to write checksum"))
		}
		result.ChecksumPath = checksumPath
	}

	o.enter(StateDone, "")
	o.logger.Info("installer ready",
		interfaces.F("path", result.Path),
		interfaces.F("duration", time.Since(startTime)))
	return result, nil
}

func (o *PackageOrchestrator) processSlots(
	ctx context.Context,
	req entities.PackageRequest,
	area *WorkingArea,
) (*entities.ResolvedBundle, *entities.ResolvedBundle, error) {
	if !o.config.Parallel {
		o.enter(StateProcessingFirst, processingMessage(entities.SlotFirst))
		first, err := o.pipeline.Process(ctx, req.First, entities.SlotFirst, area)
		if err != nil {
			return nil, nil, err
		}

		o.enter(StateProcessingSecond, processingMessage(entities.SlotSecond))
		second, err := o.pipeline.Process(ctx, req.Second, entities.SlotSecond, area)
		if err != nil {
			return nil, nil, err
		}
		return first, second, nil
	}

	// Both slots are independent until validation; the first failure
	// cancels the other and both scratch trees live in area.
	o.enter(StateProcessingFirst, processingMessage(entities.SlotFirst))
	o.enter(StateProcessingSecond, processingMessage(entities.SlotSecond))

	g, gctx := errgroup.WithContext(ctx)
	resolved := make([]*entities.ResolvedBundle, len(entities.Slots))
	for i, slot := range entities.Slots {
		g.Go(func() error {
			b, err := o.pipeline.Process(gctx, req.Source(slot), slot, area)
			if err != nil {
				return err
			}
			resolved[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return resolved[0], resolved[1], nil
}

func processingMessage(slot entities.Slot) string {
	return fmt.Sprintf("Processing %s input", slot.Label())
}
