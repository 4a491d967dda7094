package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/twpayne/go-geomodels/wmmf"
)

func runImportIGRF(ctx context.Context, e *env, args []string) error {
	flagSet := newFlagSet(e, "import-igrf", "PATH")
	var outpath string
	flagSet.StringVar(&outpath, "o", "", "output path (default DATADIR/magnetic)")
	flagSet.StringVar(&outpath, "outpath", "", "output path (default DATADIR/magnetic)")
	force := flagSet.Bool("force", false, "overwrite existing files")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		flagSet.Usage()
		return fmt.Errorf("import-igrf: expected exactly one path, got %d", flagSet.NArg())
	}

	if outpath == "" {
		outpath = filepath.Join(e.dataDir(""), "magnetic")
		if err := os.MkdirAll(outpath, 0o777); err != nil {
			return err
		}
	}

	wmmData, err := wmmf.ImportIGRFText(ctx, flagSet.Arg(0))
	if err != nil {
		return err
	}
	name, err := wmmData.Save(outpath, *force)
	if err != nil {
		return err
	}
	e.logger.Info("imported",
		zap.String("name", wmmData.MetaData.Name),
		zap.String("path", name),
		zap.Float64s("years", wmmData.MetaData.Years()),
	)
	return nil
}
