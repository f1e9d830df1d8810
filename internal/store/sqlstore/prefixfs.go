package sqlstore

import (
	"bytes"
	"io"
	"io/fs"
	"strings"
)

// TablePrefixPlaceholder marks table names in migration files. It is the
// same placeholder the host platform uses in its own install SQL.
const TablePrefixPlaceholder = "#__"

// PrefixFS returns a view of fsys in which every .sql file has
// TablePrefixPlaceholder replaced by prefix.
func PrefixFS(fsys fs.FS, prefix string) fs.FS {
	return prefixFS{fsys: fsys, prefix: prefix}
}

type prefixFS struct {
	fsys   fs.FS
	prefix string
}

func (p prefixFS) Open(name string) (fs.File, error) {
	f, err := p.fsys.Open(name)
	if err != nil || !strings.HasSuffix(name, ".sql") {
		return f, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	data = bytes.ReplaceAll(data, []byte(TablePrefixPlaceholder), []byte(p.prefix))
	return &memFile{Reader: bytes.NewReader(data), info: sizedInfo{FileInfo: info, size: int64(len(data))}}, nil
}

func (p prefixFS) ReadDir(name string) ([]fs.DirEntry, error) {
	return fs.ReadDir(p.fsys, name)
}

type memFile struct {
	*bytes.Reader
	info fs.FileInfo
}

func (f *memFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *memFile) Close() error               { return nil }

type sizedInfo struct {
	fs.FileInfo
	size int64
}

func (i sizedInfo) Size() int64 { return i.size }
