package writer

import (
	"archive/zip"
	"encoding/gob"
	"fmt"
	"os"
	"time"

	"github.com/achilleasa/qbvh/asset/compiler/bvh"
	"github.com/achilleasa/qbvh/asset/scene"
	"github.com/achilleasa/qbvh/log"
)

const (
	dataFile = "scene.bin"
	tlasFile = "tlas.bin"
	blasFile = "blas.bin"
)

type zipSceneWriter struct {
	logger    log.Logger
	sceneFile string
}

// Create a new zip scene writer
func newZipSceneWriter(sceneFile string) *zipSceneWriter {
	return &zipSceneWriter{
		logger:    log.New("zip writer"),
		sceneFile: sceneFile,
	}
}

// Write scene definition to zip file. Scene metadata and vertices are gob
// encoded while the node lists are stored as raw node records so they can
// be uploaded to a traversal kernel without any processing.
func (w *zipSceneWriter) Write(sc *scene.Scene) error {
	w.logger.Noticef(`writing compiled scene to "%s"`, w.sceneFile)
	start := time.Now()

	zipFile, err := os.Create(w.sceneFile)
	if err != nil {
		return err
	}
	defer zipFile.Close()

	zw := zip.NewWriter(zipFile)

	// Node lists are written separately.
	metadata := *sc
	metadata.TlasNodes = nil
	metadata.BlasNodes = nil

	cw, err := zw.Create(dataFile)
	if err != nil {
		return err
	}
	if err = gob.NewEncoder(cw).Encode(&metadata); err != nil {
		return fmt.Errorf("zip writer: could not encode scene: %v", err)
	}

	if err = writeNodes(zw, tlasFile, sc.TlasNodes); err != nil {
		return err
	}
	if err = writeNodes(zw, blasFile, sc.BlasNodes); err != nil {
		return err
	}

	if err = zw.Close(); err != nil {
		return err
	}

	w.logger.Noticef("wrote compiled scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return zipFile.Close()
}

func writeNodes(zw *zip.Writer, name string, nodes []bvh.Node) error {
	cw, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = cw.Write(bvh.EncodeNodes(nodes))
	return err
}
