package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/phuslu/log"
	"github.com/urfave/cli/v2"

	"github.com/alejones/Qwen2-VL-Finetune/dataset"
	"github.com/alejones/Qwen2-VL-Finetune/util/fileutil"
)

var inputPath string
var outputPath string
var overwrite bool
var backup bool

var trainPct float64
var valPct float64
var testPct float64
var outputDir string
var seed int64

var testPath string
var updatedPath string

var normalizeCommand = &cli.Command{
	Name:  "normalize",
	Usage: "Convert serialized JSON strings in conversation values back into structured values",
	Description: `Normalize walks the "value" field of every conversation turn and replaces
strings that parse as JSON with the parsed structure. Strings that do not
parse are left unchanged. If --input is omitted, the dataset is read from
stdin and the result goes to stdout unless --output is given.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "input",
			Usage:       "Path to the input JSON file",
			Aliases:     []string{"i"},
			Destination: &inputPath,
		},
		&cli.StringFlag{
			Name:        "output",
			Usage:       "Path to the output JSON file",
			Aliases:     []string{"o"},
			Destination: &outputPath,
		},
		&cli.BoolFlag{
			Name:        "overwrite",
			Usage:       "Overwrite the output file if it exists",
			Aliases:     []string{"f"},
			Destination: &overwrite,
		},
	},
	Action: func(ctx *cli.Context) error {
		var collection *dataset.Collection

		if inputPath == "" {
			if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
				return fmt.Errorf("no input file given and nothing to read on stdin")
			}
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			collection, err = dataset.Decode(data)
			if err != nil {
				return fmt.Errorf("invalid JSON on stdin: %w", err)
			}
		} else {
			var err error
			collection, err = dataset.Load(inputPath)
			if err != nil {
				return err
			}
		}

		if outputPath != "" && !overwrite {
			exists, err := fileutil.FileExists(outputPath)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("output file %s already exists, use --overwrite to replace it", outputPath)
			}
		}

		normalized := dataset.Normalize(collection)

		if outputPath == "" {
			data, err := normalized.Encode()
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(append(data, '\n'))
			return err
		}
		if err := normalized.Save(outputPath); err != nil {
			return err
		}
		log.Info().Str("input", inputPath).Str("output", outputPath).Int("entries", normalized.Len()).Msg("normalized dataset")
		return nil
	},
}

var fixTagsCommand = &cli.Command{
	Name:  "fix-tags",
	Usage: "Reconcile <image> placeholder counts with each record's image list",
	Description: `For every record with both an image field and conversations, fix-tags makes
the number of <image> placeholders in each user turn match the number of
images the record declares. Corrected turns keep their text with all
placeholders moved to the front, one per image.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "input",
			Usage:       "Path to the input JSON file",
			Aliases:     []string{"i"},
			Destination: &inputPath,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "output",
			Usage:       "Path to the output JSON file (default: overwrite the input file)",
			Aliases:     []string{"o"},
			Destination: &outputPath,
		},
		&cli.BoolFlag{
			Name:        "backup",
			Usage:       "Write a .backup copy of the input file first",
			Destination: &backup,
		},
	},
	Action: func(ctx *cli.Context) error {
		collection, err := dataset.Load(inputPath)
		if err != nil {
			return err
		}
		if !collection.IsList {
			return fmt.Errorf("%s: expected a list of records", inputPath)
		}

		if backup {
			data, err := fileutil.ReadFileBytes(inputPath)
			if err != nil {
				return err
			}
			backupPath := inputPath + ".backup"
			if err := fileutil.WriteFileBytes(backupPath, data); err != nil {
				return err
			}
			log.Info().Str("file", backupPath).Msg("backup created")
		}

		fixed := &dataset.Collection{Records: dataset.FixImageTags(collection.Records), IsList: true}

		target := outputPath
		if target == "" {
			target = inputPath
		}
		if err := fixed.Save(target); err != nil {
			return err
		}
		log.Info().Str("file", target).Int("entries", fixed.Len()).Msg("wrote fixed dataset")
		return nil
	},
}

var splitCommand = &cli.Command{
	Name:  "split",
	Usage: "Filter a dataset and split it into train/val/test partitions",
	Description: `Split keeps the records whose "checked" and "use_in_training" fields are both
truthy, cleans each to {id, image, conversations}, shuffles them with the
given seed and writes train.json, val.json and test.json. The percentages
must sum to 100. The same seed always produces the same partitions.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "input",
			Usage:       "Path to the input JSON file",
			Aliases:     []string{"i"},
			Destination: &inputPath,
			Required:    true,
		},
		&cli.Float64Flag{
			Name:        "train-pct",
			Usage:       "Training set percentage",
			Destination: &trainPct,
			Value:       85.0,
		},
		&cli.Float64Flag{
			Name:        "val-pct",
			Usage:       "Validation set percentage",
			Destination: &valPct,
			Value:       0.0,
		},
		&cli.Float64Flag{
			Name:        "test-pct",
			Usage:       "Test set percentage",
			Destination: &testPct,
			Value:       15.0,
		},
		&cli.StringFlag{
			Name:        "output-dir",
			Usage:       "Output directory (default: directory of the input file)",
			Aliases:     []string{"d"},
			Destination: &outputDir,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "Random seed for reproducible splits",
			Destination: &seed,
			Value:       dataset.DefaultSeed,
		},
	},
	Action: func(ctx *cli.Context) error {
		collection, err := dataset.Load(inputPath)
		if err != nil {
			return err
		}
		if !collection.IsList {
			return fmt.Errorf("%s: expected a list of records", inputPath)
		}
		log.Info().Str("file", inputPath).Int("entries", len(collection.Records)).Msg("loaded dataset")

		filtered := dataset.Filter(collection.Records)
		log.Info().Int("entries", len(filtered)).Msg("kept records with checked and use_in_training set")
		if len(filtered) == 0 {
			return fmt.Errorf("no records match the filtering criteria")
		}

		percentages := dataset.Percentages{Train: trainPct, Val: valPct, Test: testPct}
		train, val, test, err := dataset.Split(filtered, percentages, seed)
		if err != nil {
			return err
		}

		dir := outputDir
		if dir == "" {
			dir = filepath.Dir(inputPath)
		}
		if err := fileutil.CreateDir(dir); err != nil {
			return err
		}

		partitions := []struct {
			name    string
			records []dataset.Document
		}{
			{"train.json", train},
			{"val.json", val},
			{"test.json", test},
		}
		for _, partition := range partitions {
			path := fileutil.PathJoinSafe(dir, partition.name)
			if err := dataset.SaveRecords(partition.records, path); err != nil {
				return err
			}
			log.Info().Str("file", path).Int("entries", len(partition.records)).Msg("wrote partition")
		}
		return nil
	},
}

var extractCommand = &cli.Command{
	Name:  "extract",
	Usage: "Extract records from an updated dataset by the ids of a reference set",
	Description: `Extract reads the ids of the reference file, pulls every record with a
matching id out of the updated file and writes them, cleaned to
{id, image, conversations}, to the output file. Reference ids absent from
the updated file are reported but do not fail the run.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "test",
			Usage:       "Path to the reference (test set) JSON file",
			Aliases:     []string{"t"},
			Destination: &testPath,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "updated",
			Usage:       "Path to the updated superset JSON file",
			Aliases:     []string{"u"},
			Destination: &updatedPath,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "output",
			Usage:       "Path to the output JSON file",
			Aliases:     []string{"o"},
			Destination: &outputPath,
			Required:    true,
		},
	},
	Action: func(ctx *cli.Context) error {
		reference, err := dataset.Load(testPath)
		if err != nil {
			return err
		}
		if !reference.IsList {
			return fmt.Errorf("%s: expected a list of records", testPath)
		}
		log.Info().Str("file", testPath).Int("entries", len(reference.Records)).Msg("loaded reference set")

		updated, err := dataset.Load(updatedPath)
		if err != nil {
			return err
		}
		if !updated.IsList {
			return fmt.Errorf("%s: expected a list of records", updatedPath)
		}
		log.Info().Str("file", updatedPath).Int("entries", len(updated.Records)).Msg("loaded updated dataset")

		ids := dataset.IDSet(reference.Records)
		matched, missing := dataset.ExtractByID(updated.Records, ids)

		for _, id := range missing {
			log.Warn().Str("id", id).Msg("reference id not found in updated file")
		}
		if len(missing) == 0 {
			log.Info().Msg("all reference ids found in updated file")
		}

		if err := dataset.SaveRecords(matched, outputPath); err != nil {
			return err
		}
		log.Info().Str("file", outputPath).Int("entries", len(matched)).Int("missing", len(missing)).Msg("wrote extracted records")
		return nil
	},
}

var envCommand = &cli.Command{
	Name:  "env",
	Usage: "Print runtime and environment diagnostics",
	Action: func(ctx *cli.Context) error {
		fmt.Printf("go version: %s\n", runtime.Version())
		fmt.Printf("platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Printf("cpus: %d\n", runtime.NumCPU())
		fmt.Printf("gomaxprocs: %d\n", runtime.GOMAXPROCS(0))
		for _, kv := range os.Environ() {
			if strings.HasPrefix(kv, "GO") {
				fmt.Println(kv)
			}
		}
		return nil
	},
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "vldata",
		Usage: "Prepare and audit vision-language training datasets",
		Commands: []*cli.Command{
			normalizeCommand,
			fixTagsCommand,
			splitCommand,
			extractCommand,
			copyImagesCommand,
			validateImagesCommand,
			resizeCommand,
			envCommand,
		},
	}
}

func main() {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.DefaultLogger.Writer = &log.ConsoleWriter{ColorOutput: true}
	}
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("vldata failed")
	}
}
