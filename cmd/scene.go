package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/achilleasa/qbvh/asset/compiler"
	"github.com/achilleasa/qbvh/asset/compiler/bvh"
	"github.com/achilleasa/qbvh/asset/scene"
	"github.com/achilleasa/qbvh/asset/scene/reader"
	"github.com/achilleasa/qbvh/asset/scene/writer"
	"github.com/urfave/cli"
)

// Compile scene to binary format.
func CompileScene(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	opts, err := compilerOptions(ctx)
	if err != nil {
		return err
	}

	if ctx.NArg() == 0 {
		return errors.New("missing scene file argument")
	}

	for idx := 0; idx < ctx.NArg(); idx++ {
		sceneFile := ctx.Args().Get(idx)
		if !strings.HasSuffix(sceneFile, ".obj") {
			logger.Warningf("skipping unsupported file %s", sceneFile)
			continue
		}

		logger.Noticef("parsing and compiling scene: %s", sceneFile)
		sc, err := reader.ReadScene(sceneFile, opts)
		if err != nil {
			return err
		}

		// Display compiled scene info
		logger.Noticef("scene information:\n%s", sc.Stats())

		zipFile := strings.TrimSuffix(sceneFile, ".obj") + ".zip"
		err = writer.WriteScene(sc, zipFile)
		if err != nil {
			return err
		}
	}

	return nil
}

// Display compiled scene info.
func ShowSceneInfo(ctx *cli.Context) error {
	sc, err := loadCompiledScene(ctx)
	if err != nil {
		return err
	}

	// Stats walk the node lists so refuse to touch corrupted scenes.
	if err = sc.Verify(); err != nil {
		return cli.NewExitError(fmt.Sprintf("info: %v", err), 2)
	}

	// Display compiled scene info
	logger.Noticef("scene information:\n%s", sc.Stats())
	return nil
}

// Check the integrity of a compiled scene.
func VerifyScene(ctx *cli.Context) error {
	sc, err := loadCompiledScene(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	if err = sc.Verify(); err != nil {
		return cli.NewExitError(fmt.Sprintf("verify: %v", err), 2)
	}

	logger.Noticef(
		"verified %d TLAS nodes and %d BLAS nodes in %d ms",
		len(sc.TlasNodes), len(sc.BlasNodes), time.Since(start).Nanoseconds()/1e6,
	)
	return nil
}

func loadCompiledScene(ctx *cli.Context) (*scene.Scene, error) {
	if err := setupLogging(ctx); err != nil {
		return nil, err
	}

	if ctx.NArg() != 1 {
		return nil, errors.New("missing compiled scene zip file")
	}

	sceneFile := ctx.Args().First()
	if !strings.HasSuffix(sceneFile, ".zip") {
		return nil, errors.New("only compiled scene files with a .zip extension are supported")
	}

	return reader.ReadScene(sceneFile, compiler.DefaultOptions())
}

// Map compile command flags to compiler options.
func compilerOptions(ctx *cli.Context) (compiler.Options, error) {
	opts := compiler.DefaultOptions()

	heuristic, err := bvh.ParseSplitHeuristic(ctx.String("heuristic"))
	if err != nil {
		return opts, err
	}
	opts.Heuristic = heuristic

	if threshold := ctx.Int("parallel-threshold"); threshold > 0 {
		opts.ParallelThreshold = threshold
	}
	if workers := ctx.Int("workers"); workers > 0 {
		opts.Workers = workers
	}
	opts.CheckIntegrity = ctx.Bool("check")

	return opts, nil
}
