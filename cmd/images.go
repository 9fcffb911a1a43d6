package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/phuslu/log"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"

	"github.com/alejones/Qwen2-VL-Finetune/dataset"
	"github.com/alejones/Qwen2-VL-Finetune/imageutil"
	"github.com/alejones/Qwen2-VL-Finetune/util/fileutil"
)

var imageFolder string
var jsonFile string
var copyDest string
var allSides bool

var dataPath string
var imageDir string
var copyMissing bool
var sourceDir string
var destDir string

var resizeDir string
var maxFileSize int64
var numWorkers int

var copyImagesCommand = &cli.Command{
	Name:  "copy-images",
	Usage: "Copy the images referenced by a dataset into an output folder",
	Description: `Copy-images copies each record's image file from the input folder to the
output folder, skipping files that are already copied. With --all-sides,
every file whose name contains the record's base token (the filename minus
its first and last underscore segments) is copied instead, so all captures
of the same item travel together.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "input-image-folder",
			Usage:       "Path to the folder holding the source images",
			Aliases:     []string{"i"},
			Destination: &imageFolder,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "json-file",
			Usage:       "Path to the dataset JSON file",
			Aliases:     []string{"j"},
			Destination: &jsonFile,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "output-folder",
			Usage:       "Path to the output folder",
			Aliases:     []string{"o"},
			Destination: &copyDest,
			Required:    true,
		},
		&cli.BoolFlag{
			Name:        "all-sides",
			Usage:       "Copy all related image files (e.g. _TO, _BM) for each image",
			Aliases:     []string{"a"},
			Destination: &allSides,
		},
	},
	Action: func(ctx *cli.Context) error {
		collection, err := dataset.Load(jsonFile)
		if err != nil {
			return err
		}
		if !collection.IsList {
			return fmt.Errorf("%s: expected a list of records", jsonFile)
		}
		if err := fileutil.CreateDir(copyDest); err != nil {
			return err
		}

		// With --all-sides the source folder is listed once up front and
		// matched in memory instead of globbing per record.
		var sourceNames []string
		if allSides {
			objects, err := fileutil.List(ctx.Context, imageFolder)
			if err != nil {
				return err
			}
			for _, object := range objects {
				if strings.EqualFold(filepath.Ext(object.Name()), ".jpg") {
					sourceNames = append(sourceNames, object.Name())
				}
			}
		}

		copied := make(map[string]struct{})
		bar := progressbar.Default(int64(len(collection.Records)), "copying images")

		for _, entry := range collection.Records {
			record, ok := entry.(dataset.Document)
			if !ok {
				_ = bar.Add(1)
				continue
			}
			ref, ok := dataset.ImageRefOf(record)
			if !ok || ref.Count() == 0 {
				_ = bar.Add(1)
				continue
			}
			name := ref.Names[0]

			if allSides {
				base := imageutil.RelatedBase(name)
				for _, candidate := range sourceNames {
					if !strings.Contains(candidate, base) {
						continue
					}
					src := fileutil.PathJoinSafe(imageFolder, candidate)
					if _, done := copied[src]; done {
						continue
					}
					if err := fileutil.CopyFile(ctx.Context, src, fileutil.PathJoinSafe(copyDest, candidate)); err != nil {
						log.Warn().Str("file", src).Err(err).Msg("copy failed")
						continue
					}
					copied[src] = struct{}{}
				}
			} else {
				src := fileutil.PathJoinSafe(imageFolder, name)
				exists, err := fileutil.FileExists(src)
				if err != nil {
					log.Warn().Str("file", src).Err(err).Msg("existence check failed")
					_ = bar.Add(1)
					continue
				}
				if !exists {
					log.Warn().Str("file", src).Msg("image not found")
					_ = bar.Add(1)
					continue
				}
				if _, done := copied[src]; !done {
					if err := fileutil.CopyFile(ctx.Context, src, fileutil.PathJoinSafe(copyDest, name)); err != nil {
						log.Warn().Str("file", src).Err(err).Msg("copy failed")
					} else {
						copied[src] = struct{}{}
					}
				}
			}
			_ = bar.Add(1)
		}

		log.Info().Int("copied", len(copied)).Str("folder", copyDest).Msg("copy complete")
		return nil
	},
}

var validateImagesCommand = &cli.Command{
	Name:  "validate-images",
	Usage: "Report dataset image references that are missing from the image directory",
	Description: `Validate-images collects every distinct image name the dataset references,
handling both single-name and list-of-names records, and reports the names
absent from the image directory. With --copy, each missing image is fetched
from the source directory into the destination directory; files absent from
the source too are reported separately.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "data",
			Usage:       "Path to the dataset JSON file",
			Destination: &dataPath,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "image-dir",
			Usage:       "Directory the dataset images are expected in",
			Destination: &imageDir,
			Required:    true,
		},
		&cli.BoolFlag{
			Name:        "copy",
			Usage:       "Copy missing images from --source-dir to --dest-dir",
			Destination: &copyMissing,
		},
		&cli.StringFlag{
			Name:        "source-dir",
			Usage:       "Directory to fetch missing images from",
			Destination: &sourceDir,
		},
		&cli.StringFlag{
			Name:        "dest-dir",
			Usage:       "Directory to copy missing images into",
			Destination: &destDir,
		},
	},
	Action: func(ctx *cli.Context) error {
		collection, err := dataset.Load(dataPath)
		if err != nil {
			return err
		}
		if !collection.IsList {
			return fmt.Errorf("%s: expected a list of records", dataPath)
		}
		log.Info().Str("file", dataPath).Int("entries", len(collection.Records)).Msg("loaded dataset")

		exists, err := fileutil.FileExists(imageDir)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("image directory %s does not exist", imageDir)
		}

		referenced := dataset.CollectImageNames(collection.Records)
		log.Info().Int("images", len(referenced)).Msg("unique image references")

		var missing []string
		for name := range referenced {
			ok, err := fileutil.FileExists(fileutil.PathJoinSafe(imageDir, name))
			if err != nil {
				return err
			}
			if !ok {
				missing = append(missing, name)
			}
		}
		sort.Strings(missing)

		if len(missing) == 0 {
			log.Info().Msg("all referenced images exist in the image directory")
		}
		for _, name := range missing {
			log.Warn().Str("image", name).Msg("missing from image directory")
		}

		copiedCount := 0
		if copyMissing && len(missing) > 0 {
			if sourceDir == "" || destDir == "" {
				return fmt.Errorf("--source-dir and --dest-dir are required with --copy")
			}
			exists, err := fileutil.FileExists(sourceDir)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("source directory %s does not exist", sourceDir)
			}
			if err := fileutil.CreateDir(destDir); err != nil {
				return err
			}

			var notFound []string
			for _, name := range missing {
				src := fileutil.PathJoinSafe(sourceDir, name)
				ok, err := fileutil.FileExists(src)
				if err != nil {
					return err
				}
				if !ok {
					notFound = append(notFound, name)
					continue
				}
				if err := fileutil.CopyFile(ctx.Context, src, fileutil.PathJoinSafe(destDir, name)); err != nil {
					log.Warn().Str("image", name).Err(err).Msg("copy failed")
					continue
				}
				copiedCount++
			}
			for _, name := range notFound {
				log.Warn().Str("image", name).Msg("missing from source directory too")
			}
			log.Info().Int("copied", copiedCount).Int("absent", len(notFound)).Msg("copy summary")
		}

		log.Info().
			Int("entries", len(collection.Records)).
			Int("referenced", len(referenced)).
			Int("missing", len(missing)).
			Msg("validation summary")
		return nil
	},
}

var resizeCommand = &cli.Command{
	Name:  "resize",
	Usage: "Re-encode JPEGs in a directory until each fits a size ceiling",
	Description: `Resize re-encodes every .jpg file in the directory at decreasing quality
until its size is at or under --max-size, replacing the file atomically.
Files that cannot be reduced are logged and left untouched. Files are
processed independently across a bounded worker pool.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "dir",
			Usage:       "Directory holding the .jpg files",
			Aliases:     []string{"d"},
			Destination: &resizeDir,
			Required:    true,
		},
		&cli.Int64Flag{
			Name:        "max-size",
			Usage:       "Maximum file size in bytes",
			Destination: &maxFileSize,
			Value:       500 * 1024,
		},
		&cli.IntFlag{
			Name:        "workers",
			Usage:       "Worker pool size (default: one per CPU)",
			Destination: &numWorkers,
		},
	},
	Action: func(ctx *cli.Context) error {
		return imageutil.CompressDir(ctx.Context, resizeDir, maxFileSize, numWorkers)
	},
}
