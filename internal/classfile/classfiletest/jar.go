package classfiletest

import (
	"archive/zip"
	"os"
	"path/filepath"
)

// WriteJar writes a zip archive holding the given classes under their
// artifact names, plus a manifest entry that is not a class.
func WriteJar(path string, classes ...Class) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(f)
	entries := []struct {
		name string
		data []byte
	}{{"META-INF/MANIFEST.MF", []byte("Manifest-Version: 1.0\n")}}
	for _, c := range classes {
		entries = append(entries, struct {
			name string
			data []byte
		}{c.Name + ".class", c.Bytes()})
	}
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			f.Close()
			return err
		}
		if _, err := w.Write(e.data); err != nil {
			f.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteClass writes c under dir at its artifact path.
func WriteClass(dir string, c Class) error {
	path := filepath.Join(dir, filepath.FromSlash(c.Name)+".class")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, c.Bytes(), 0o644)
}
