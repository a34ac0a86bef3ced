package yaml

import (
	"testing"
)

func TestRecipeParser_Parse_Valid(t *testing.T) {
	parser := NewRecipeParser()
	yamlData := []byte(`name: foo
description: Foo desktop app
arm:
  source: https://example.com/Foo-arm64.zip
  sha256: " ABCDEF0123 "
  signature: https://example.com/Foo-arm64.zip.asc
intel:
  source: ./Foo-x86_64.zip
output: dist
`)

	recipe, err := parser.Parse(yamlData)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if recipe.Name != "foo" {
		t.Errorf("Name = %v, want foo", recipe.Name)
	}
	if recipe.Arm.Descriptor != "https://example.com/Foo-arm64.zip" {
		t.Errorf("Arm.Descriptor = %v", recipe.Arm.Descriptor)
	}
	if recipe.Arm.SHA256 != "abcdef0123" {
		t.Errorf("Arm.SHA256 = %q, want normalized lowercase digest", recipe.Arm.SHA256)
	}
	if recipe.Arm.Signature != "https://example.com/Foo-arm64.zip.asc" {
		t.Errorf("Arm.Signature = %v", recipe.Arm.Signature)
	}
	if recipe.Intel.Descriptor != "./Foo-x86_64.zip" {
		t.Errorf("Intel.Descriptor = %v", recipe.Intel.Descriptor)
	}
	if recipe.Intel.SHA256 != "" || recipe.Intel.Signature != "" {
		t.Errorf("Intel integrity fields should be empty, got %+v", recipe.Intel)
	}
}

func TestRecipeParser_Request_OutputOverride(t *testing.T) {
	recipe, err := NewRecipeParser().Parse([]byte("name: foo\narm:\n  source: a.zip\nintel:\n  source: b.zip\noutput: dist\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := recipe.Request("").OutputDir; got != "dist" {
		t.Errorf("Request(\"\").OutputDir = %v, want dist", got)
	}
	req := recipe.Request("/tmp/out")
	if req.OutputDir != "/tmp/out" {
		t.Errorf("Request(/tmp/out).OutputDir = %v", req.OutputDir)
	}
	if req.First.Descriptor != "a.zip" || req.Second.Descriptor != "b.zip" {
		t.Errorf("Request() inputs = %v / %v", req.First.Descriptor, req.Second.Descriptor)
	}
}

func TestRecipeParser_Parse_MissingName(t *testing.T) {
	parser := NewRecipeParser()
	yamlData := []byte(`description: Test package
arm:
  source: a.zip
`)

	_, err := parser.Parse(yamlData)
	if err == nil {
		t.Error("Parse() should return error for missing name")
	}
	if err != nil && err.Error() != "recipe must have a name" {
		t.Errorf("Parse() error = %v, want 'recipe must have a name'", err)
	}
}

func TestRecipeParser_Parse_InvalidYAML(t *testing.T) {
	parser := NewRecipeParser()
	yamlData := []byte(`name: test
  invalid: [broken yaml
`)

	_, err := parser.Parse(yamlData)
	if err == nil {
		t.Error("Parse() should return error for invalid YAML")
	}
}

func TestRecipeParser_ParseFile_NotFound(t *testing.T) {
	parser := NewRecipeParser()
	_, err := parser.ParseFile("/nonexistent/path/test.yml")
	if err == nil {
		t.Error("ParseFile() should return error for nonexistent file")
	}
}
