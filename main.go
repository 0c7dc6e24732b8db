package main

import (
	"fmt"
	"os"

	"github.com/achilleasa/qbvh/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "qbvh"
	app.Usage = "compile scenes into two-level 4-wide bounding volume hierarchies"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "set log level (debug, info, notice, warning, error)",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "compile text scene representation into a binary compressed format",
			Description: `
Parse a scene definition from a wavefront obj file, build a 4-wide BVH for each
mesh and a top-level BVH over the mesh instances and package the node lists in
a format that can be uploaded to a traversal kernel as-is.

The compiled scene is written to a zip archive next to each input file.`,
			ArgsUsage: "scene_file1.obj scene_file2.obj ...",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "heuristic",
					Value: "sah",
					Usage: "split heuristic for mesh trees (median, sah)",
				},
				cli.IntFlag{
					Name:  "parallel-threshold",
					Value: 4096,
					Usage: "meshes with more primitives than this are built using parallel branches",
				},
				cli.IntFlag{
					Name:  "workers",
					Usage: "max number of build goroutines (defaults to GOMAXPROCS)",
				},
				cli.BoolFlag{
					Name:  "check",
					Usage: "check the integrity of every tree after it is built",
				},
			},
			Action: cmd.CompileScene,
		},
		{
			Name:      "info",
			Usage:     "print compiled scene statistics",
			ArgsUsage: "scene_file.zip",
			Action:    cmd.ShowSceneInfo,
		},
		{
			Name:      "verify",
			Usage:     "check the integrity of a compiled scene",
			ArgsUsage: "scene_file.zip",
			Action:    cmd.VerifyScene,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
