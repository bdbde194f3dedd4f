package share

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
)

// HTTPDownloader writes the file as an attachment response.
type HTTPDownloader struct {
	W http.ResponseWriter
}

func (d HTTPDownloader) Save(_ context.Context, f File) error {
	h := d.W.Header()
	h.Set("Content-Type", f.MIMEType+"; charset=utf-8")
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	h.Set("Content-Length", strconv.Itoa(len(f.Data)))
	d.W.WriteHeader(http.StatusOK)
	_, err := d.W.Write(f.Data)
	return err
}

// FileDownloader writes the file into Dir.
type FileDownloader struct {
	Dir string
}

// Path is where Save puts f.
func (d FileDownloader) Path(f File) string {
	return filepath.Join(d.Dir, filepath.Base(f.Name))
}

func (d FileDownloader) Save(ctx context.Context, f File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.Dir != "" {
		if err := os.MkdirAll(d.Dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(d.Path(f), f.Data, 0o644)
}
