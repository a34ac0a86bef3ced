package yaml

import (
	"testing"
)

// FuzzRecipeParser tests the YAML parser against random/malformed inputs
// to detect crashes, panics, or unexpected behavior.
//
// Run with: go test -fuzz=FuzzRecipeParser -fuzztime=30s
func FuzzRecipeParser(f *testing.F) {
	// Seed corpus with valid YAML examples
	f.Add([]byte(`name: foo
arm:
  source: Foo-arm64.zip
intel:
  source: Foo-x86_64.zip
`))

	f.Add([]byte(`name: foo
description: Foo desktop app
arm:
  source: https://example.com/Foo-arm64.dmg
  sha256: e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855
  signature: https://example.com/Foo-arm64.dmg.asc
intel:
  source: https://example.com/Foo-x86_64.dmg
output: dist
`))

	// Seed with edge cases
	f.Add([]byte(``))                            // Empty input
	f.Add([]byte(`name: ""` + "\n"))             // Empty name
	f.Add([]byte(`{}`))                          // Empty JSON-style YAML
	f.Add([]byte(`[]`))                          // Array instead of object
	f.Add([]byte(`name: test\n  bad`))           // Invalid indentation
	f.Add([]byte(`name: test\nname: duplicate`)) // Duplicate keys
	f.Add([]byte(`name: x\narm: [1, 2]`))        // Wrong shape for input

	parser := NewRecipeParser()

	f.Fuzz(func(t *testing.T, data []byte) {
		recipe, err := parser.Parse(data)
		if err == nil && recipe.Name == "" {
			t.Errorf("Parse() accepted a recipe without a name")
		}
	})
}
