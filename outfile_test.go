package dezoomify

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveBulkOutputPathUsesSizeBasedExtensionPerItem(t *testing.T) {
	dir := t.TempDir()

	small, err := ResolveBulkOutputPath(dir, "item-a", "", Vec2d{X: 100, Y: 100}, 2000)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(small) != ".jpg" {
		t.Fatalf("a small image should get a .jpg extension, got %s", small)
	}

	large, err := ResolveBulkOutputPath(dir, "item-b", "", Vec2d{X: 50000, Y: 50000}, 2000)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(large) != ".png" {
		t.Fatalf("a large image exceeding maxDim should get a .png extension, got %s", large)
	}
}

func TestResolveBulkOutputPathExplicitBaseOverridesStemAndNumbers(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "bulk_test.jpg")

	first, err := ResolveBulkOutputPath(dir, "whatever-stem-the-item-computed", explicit, Vec2d{X: 100, Y: 100}, 2000)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(first) != "bulk_test_1.jpg" {
		t.Fatalf("first item should get the first numbered name off the explicit base, got %s", first)
	}

	second, err := ResolveBulkOutputPath(dir, "a-different-stem-for-the-next-item", explicit, Vec2d{X: 100, Y: 100}, 2000)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(second) != "bulk_test_2.jpg" {
		t.Fatalf("second item should get the next numbered name off the same explicit base, got %s", second)
	}
}

func TestResolveBulkOutputPathCreatesOutDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	path, err := ResolveBulkOutputPath(dir, "item", "", Vec2d{X: 10, Y: 10}, 2000)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatalf("expected the output directory to have been created: %v", err)
	}
}
