package entities

// PairRecipe is a stored description of a universal packaging run
type PairRecipe struct {
	Name        string
	Description string
	Arm         InputSource
	Intel       InputSource
	Output      string
}

// Request converts the recipe into a PackageRequest. A non-empty outputDir
// overrides the recipe's output.
func (r *PairRecipe) Request(outputDir string) PackageRequest {
	if outputDir == "" {
		outputDir = r.Output
	}
	return PackageRequest{
		First:     r.Arm,
		Second:    r.Intel,
		OutputDir: outputDir,
	}
}
