package scan_test

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"picname/internal/scan"
	"picname/internal/services"
)

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func collect(t *testing.T, l *scan.Listing) (eligible, skipped []string) {
	t.Helper()
	for entry, err := range l.Entries() {
		if err != nil {
			t.Fatalf("unexpected scan error: %v", err)
		}
		if entry.Eligible {
			eligible = append(eligible, entry.Name)
		} else {
			skipped = append(skipped, entry.Name)
		}
	}
	sort.Strings(eligible)
	sort.Strings(skipped)
	return eligible, skipped
}

func TestListingFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.jpg", "b.gif", "c.png")

	l, err := scan.New(imageExtensions).Open(dir)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if l.Dir() != dir {
		t.Fatalf("unexpected listing dir %q", l.Dir())
	}
	eligible, skipped := collect(t, l)

	if strings.Join(eligible, ",") != "a.jpg,c.png" {
		t.Fatalf("unexpected eligible files: %v", eligible)
	}
	if strings.Join(skipped, ",") != "b.gif" {
		t.Fatalf("unexpected skipped files: %v", skipped)
	}
}

func TestListingIsCaseInsensitiveAndLowercasesExtension(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "IMG_0001.JPG", "Scan.WebP")

	l, err := scan.New(imageExtensions).Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for entry, err := range l.Entries() {
		if err != nil {
			t.Fatal(err)
		}
		if !entry.Eligible {
			t.Fatalf("expected %s to be eligible", entry.Name)
		}
		if entry.Extension != strings.ToLower(entry.Extension) {
			t.Fatalf("expected lower-cased extension, got %q", entry.Extension)
		}
		if entry.Path != filepath.Join(dir, entry.Name) {
			t.Fatalf("unexpected path %q", entry.Path)
		}
		count++
	}
	if count != 2 {
		t.Fatalf("expected 2 entries, got %d", count)
	}
}

func TestListingDoesNotRecurse(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "top.png")
	nested := filepath.Join(dir, "album.png")
	if err := os.Mkdir(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, nested, "inner.png")

	l, err := scan.New(imageExtensions).Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	eligible, skipped := collect(t, l)
	if strings.Join(eligible, ",") != "top.png" {
		t.Fatalf("unexpected eligible files: %v", eligible)
	}
	if strings.Join(skipped, ",") != "album.png" {
		t.Fatalf("expected directory to be skipped, got %v", skipped)
	}
}

func TestListingIsSingleUse(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.png", "b.png")

	l, err := scan.New(imageExtensions).Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	first, _ := collect(t, l)
	second, _ := collect(t, l)
	if len(first) != 2 {
		t.Fatalf("expected 2 entries on first pass, got %v", first)
	}
	if len(second) != 0 {
		t.Fatalf("expected second pass to yield nothing, got %v", second)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close after exhaustion returned error: %v", err)
	}
}

func TestListingStopsEarly(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.png", "b.png", "c.png")

	l, err := scan.New(imageExtensions).Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	seen := 0
	for range l.Entries() {
		seen++
		break
	}
	if seen != 1 {
		t.Fatalf("expected to stop after one entry, got %d", seen)
	}
}

func TestOpenMissingDirectory(t *testing.T) {
	_, err := scan.New(imageExtensions).Open(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, services.ErrDirectoryNotFound) {
		t.Fatalf("expected ErrDirectoryNotFound, got %v", err)
	}
}

func TestOpenFileIsNotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.png")
	_, err := scan.New(imageExtensions).Open(filepath.Join(dir, "a.png"))
	if !errors.Is(err, services.ErrDirectoryNotFound) {
		t.Fatalf("expected ErrDirectoryNotFound, got %v", err)
	}
}

func TestCheckDir(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.png")
	if err := scan.CheckDir(dir); err != nil {
		t.Fatalf("CheckDir(%s): %v", dir, err)
	}
	for _, path := range []string{filepath.Join(dir, "missing"), filepath.Join(dir, "a.png")} {
		if err := scan.CheckDir(path); !errors.Is(err, services.ErrDirectoryNotFound) {
			t.Fatalf("CheckDir(%s): expected ErrDirectoryNotFound, got %v", path, err)
		}
	}
}

func TestScannerEligibleNormalizesAllowlist(t *testing.T) {
	s := scan.New([]string{"PNG", " .Jpg "})
	for name, want := range map[string]bool{
		"a.png":  true,
		"a.PNG":  true,
		"b.jpg":  true,
		"c.gif":  false,
		"noext":  false,
		".png":   true,
		"x.jpeg": false,
	} {
		if got := s.Eligible(name); got != want {
			t.Fatalf("Eligible(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNewWithoutExtensionsUsesDefaults(t *testing.T) {
	s := scan.New(nil)
	if !s.Eligible("photo.webp") || s.Eligible("clip.gif") {
		t.Fatal("expected default allowlist")
	}
}
