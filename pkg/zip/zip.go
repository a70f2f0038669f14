package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"mime"
	"time"
)

type Entry struct {
	Name     string
	MIME     string
	Data     []byte
	Modified time.Time
}

// Filename returns name with an extension guessed from the entry's MIME type
// when name has none.
func (e Entry) Filename() string {
	if e.MIME == "" {
		return e.Name
	}
	exts, _ := mime.ExtensionsByType(e.MIME)
	if len(exts) == 0 {
		return e.Name
	}
	return e.Name + exts[0]
}

// Archive packs entries into a zip. Empty entries are skipped.
func Archive(entries []Entry) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, e := range entries {
		if len(e.Data) == 0 {
			continue
		}
		hdr := &zip.FileHeader{Name: e.Filename(), Method: zip.Store, Modified: e.Modified}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, fmt.Errorf("zip: create %s: %w", hdr.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, fmt.Errorf("zip: write %s: %w", hdr.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
