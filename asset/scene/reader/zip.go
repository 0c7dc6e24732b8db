package reader

import (
	"archive/zip"
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"time"

	"github.com/achilleasa/qbvh/asset"
	"github.com/achilleasa/qbvh/asset/compiler/bvh"
	"github.com/achilleasa/qbvh/asset/scene"
	"github.com/achilleasa/qbvh/log"
)

const (
	dataFile = "scene.bin"
	tlasFile = "tlas.bin"
	blasFile = "blas.bin"
)

type zipSceneReader struct {
	logger log.Logger
}

// Create a new zip scene reader.
func newZipSceneReader() *zipSceneReader {
	return &zipSceneReader{
		logger: log.New("zip reader"),
	}
}

// Read compiled scene from zip file.
func (p *zipSceneReader) Read(sceneRes *asset.Resource) (*scene.Scene, error) {
	p.logger.Noticef(`parsing compiled scene from "%s"`, sceneRes.Path())
	start := time.Now()

	// zip package requires a reader implementing ReaderAt. To work around
	// this requirement we read the entire zip file into memory and create
	// a reader from the bytes package that implements ReaderAt
	data, err := io.ReadAll(sceneRes)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("zip reader: %v", err)
	}

	sc := &scene.Scene{}
	foundData := false
	for _, f := range zr.File {
		switch f.Name {
		case dataFile:
			foundData = true
			err = readEntry(f, func(r io.Reader) error {
				return gob.NewDecoder(r).Decode(sc)
			})
		case tlasFile:
			sc.TlasNodes, err = readNodes(f)
		case blasFile:
			sc.BlasNodes, err = readNodes(f)
		default:
			p.logger.Warningf("unknown file %s in scene zip file; skipping", f.Name)
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("zip reader: failed to load %s: %v", f.Name, err)
		}
	}

	if !foundData {
		return nil, fmt.Errorf("zip reader: missing %s", dataFile)
	}

	p.logger.Noticef("loaded scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return sc, nil
}

func readEntry(f *zip.File, fn func(io.Reader) error) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return fn(rc)
}

// Decode a zip entry containing raw node records.
func readNodes(f *zip.File) ([]bvh.Node, error) {
	var nodes []bvh.Node
	err := readEntry(f, func(r io.Reader) error {
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		nodes, err = bvh.DecodeNodes(data)
		return err
	})
	return nodes, err
}
