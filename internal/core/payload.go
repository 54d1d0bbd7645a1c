package core

import (
	"io"
	"os"
	"path/filepath"
)

// Payload is a single upload: the name the server will record and a way to
// produce its bytes. Directories become ZIP archives packed on the fly.
type Payload struct {
	Name    string
	Size    int64 // bytes on disk before packing
	Archive bool
	open    func() (io.ReadCloser, error)
}

// Open returns a fresh reader over the payload bytes.
func (p *Payload) Open() (io.ReadCloser, error) {
	return p.open()
}

// NewPayloads turns parsed paths into uploads. Files are sent as they are and
// each directory becomes one archive. With bundle set, several paths are
// packed together into a single archive.
func NewPayloads(paths []ParsedPath, bundle bool) ([]*Payload, error) {
	if bundle && len(paths) > 1 {
		tree, err := BuildFiletree(paths)
		if err != nil {
			return nil, err
		}
		p, err := archivePayload(tree)
		if err != nil {
			return nil, err
		}
		return []*Payload{p}, nil
	}

	payloads := make([]*Payload, 0, len(paths))
	for _, parsed := range paths {
		if parsed.Kind == PathFile {
			p, err := filePayload(parsed.FullPath)
			if err != nil {
				return nil, err
			}
			payloads = append(payloads, p)
			continue
		}

		tree, err := BuildFiletree([]ParsedPath{parsed})
		if err != nil {
			return nil, err
		}
		p, err := archivePayload(tree)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, p)
	}
	return payloads, nil
}

func filePayload(path string) (*Payload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &Payload{
		Name: filepath.Base(path),
		Size: info.Size(),
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

func archivePayload(tree *Filetree) (*Payload, error) {
	size, err := tree.GetUncompressedSize()
	if err != nil {
		return nil, err
	}
	return &Payload{
		Name:    tree.Root.Name() + ".zip",
		Size:    size,
		Archive: true,
		open: func() (io.ReadCloser, error) {
			pr, pw := io.Pipe()
			go func() {
				pw.CloseWithError(tree.WriteZip(pw))
			}()
			return pr, nil
		},
	}, nil
}
