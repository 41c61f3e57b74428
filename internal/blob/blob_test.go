package blob

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
)

func TestStorageNamePattern(t *testing.T) {
	pattern := regexp.MustCompile(`^\d+-a\.wav$`)
	name := StorageName("a.wav")
	if !pattern.MatchString(name) {
		t.Errorf("StorageName(%q) = %q, want match for %s", "a.wav", name, pattern)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"a.wav", "a.wav"},
		{"photo.PNG", "photo.PNG"},
		{"../../etc/passwd", "passwd"},
		{"/absolute/path.png", "path.png"},
		{"dir\\windows\\note.txt", "note.txt"},
		{"..", "file"},
		{"", "file"},
		{".hidden", "hidden"},
	}
	for _, tc := range cases {
		if got := SanitizeName(tc.in); got != tc.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPublicPath(t *testing.T) {
	if got := PublicPath("123-a.wav"); got != "/uploads/123-a.wav" {
		t.Errorf("PublicPath = %q, want /uploads/123-a.wav", got)
	}
}

func TestDirStoreWriteAndReadBack(t *testing.T) {
	store := NewDirStore(filepath.Join(t.TempDir(), "uploads"))

	payload := []byte("0123456789")
	if err := store.Write("42-a.wav", payload); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(store.Dir(), "42-a.wav"))
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("stored %q, want %q", data, payload)
	}
}

func TestDirStoreRejectsEmptyName(t *testing.T) {
	store := NewDirStore(t.TempDir())
	if err := store.Write("  ", []byte("x")); err == nil {
		t.Error("expected error for blank name")
	}
}

func TestDirStoreConcurrentWrites(t *testing.T) {
	store := NewDirStore(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("%d-file.bin", i)
			if err := store.Write(name, []byte{byte(i)}); err != nil {
				t.Errorf("write %s: %v", name, err)
			}
		}(i)
	}
	wg.Wait()

	entries, err := os.ReadDir(store.Dir())
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 16 {
		t.Errorf("stored %d files, want 16", len(entries))
	}
}
