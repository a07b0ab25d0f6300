// Package transform implements "transform" command: it finds stylesheets in
// files, directories and zip archives and writes their resolved versions.
package transform

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"flexcss/archive"
	"flexcss/css"
	"flexcss/flexible"
	"flexcss/state"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("transform")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	var desktop *bool
	switch {
	case cmd.Bool("desktop") && cmd.Bool("mobile"):
		return errors.New("--desktop and --mobile are mutually exclusive")
	case cmd.Bool("desktop"):
		desktop = new(bool)
		*desktop = true
	case cmd.Bool("mobile"):
		desktop = new(bool)
	}
	if err := env.PrepareOptions(desktop); err != nil {
		return fmt.Errorf("unable to prepare transformation options: %w", err)
	}

	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	cp := cmd.String("force-zip-cp")
	if len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil || env.CodePage == nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	mode := "mobile"
	if env.Options.Desktop {
		mode = "desktop"
	}
	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.String("mode", mode))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, log)
}

// process determines the input type (directory, archive, path inside archive
// or single file) and processes it accordingly.
func process(ctx context.Context, src, dst string, log *zap.Logger) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := processDir(ctx, head, dst, log); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArchive, err := isArchiveFile(head)
		if err != nil {
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArchive {
			// we need to look inside to see if path makes sense
			tail = strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			if err := processArchive(ctx, head, filepath.ToSlash(tail), "", dst, log); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}

		if len(tail) != 0 {
			return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}
		// explicitly named file is processed whatever its extension is
		if err := processFile(ctx, head, filepath.Base(head), dst, log); err != nil {
			log.Error("Unable to process file", zap.String("file", head), zap.Error(err))
			return err
		}
		break
	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	return nil
}

// processDir finds stylesheets and archives in directory tree and processes
// them in natural order of their paths. Failures of individual files are
// logged and do not stop processing.
func processDir(ctx context.Context, dir, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	var paths []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if info.Mode().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Sort(natural.StringSlice(paths))

	count := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))

		isArchive, err := isArchiveFile(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			continue
		}
		if isArchive {
			count++
			if err := processArchive(ctx, path, "", filepath.Dir(rel), dst, log); err != nil {
				log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
			}
			continue
		}

		if !env.Cfg.Output.IsStylesheet(path) {
			log.Debug("Skipping file, not recognized as stylesheet or archive", zap.String("file", path))
			continue
		}

		count++
		if err := processFile(ctx, path, rel, dst, log); err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		}
	}
	if count == 0 {
		log.Debug("Nothing to process", zap.String("dir", dir))
	}
	return nil
}

// processArchive walks all files inside archive, finds stylesheets under
// "pathIn" and processes them. When pathIn names a file exactly it is
// processed whatever its extension is.
func processArchive(ctx context.Context, arc, pathIn, pathOut, dst string, log *zap.Logger) (err error) {
	env := state.EnvFromContext(ctx)

	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("archive", arc), zap.String("path", pathIn))
		}
	}()

	return archive.Walk(arc, pathIn, func(arc string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if f.Name != pathIn && !env.Cfg.Output.IsStylesheet(f.Name) {
			log.Debug("Skipping file, not recognized as stylesheet", zap.String("archive", arc), zap.String("file", f.Name))
			return nil
		}
		count++

		pathInArchive := f.Name
		if cp := env.CodePage; cp != nil && f.NonUTF8 {
			// forcing zip file name encoding
			if n, err := cp.NewDecoder().String(pathInArchive); err == nil {
				pathInArchive = n
			} else {
				n, _ = ianaindex.IANA.Name(cp)
				log.Warn("Unable to convert archive name from specified encoding",
					zap.String("charset", n), zap.String("path", pathInArchive), zap.Error(err))
			}
		}
		if pathIn != "" && f.Name == pathIn {
			// requested file directly, do not replicate its location
			pathInArchive = path.Base(pathInArchive)
		}

		r, err := f.Open()
		if err != nil {
			log.Error("Unable to process file in archive",
				zap.String("archive", arc), zap.String("file", f.Name), zap.Error(err))
			return nil
		}
		defer r.Close()

		if err := processStylesheet(ctx, r, filepath.Join(pathOut, filepath.FromSlash(pathInArchive)), dst, log); err != nil {
			log.Error("Unable to process file in archive",
				zap.String("archive", arc), zap.String("file", f.Name), zap.Error(err))
		}
		return nil
	})
}

func processFile(ctx context.Context, path, src, dst string, log *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return processStylesheet(ctx, f, src, dst, log)
}

// processStylesheet transforms single stylesheet. "src" is part of the
// source path (always including file name) relative to the original path.
// When actual file was specified it will be just base file name. When looking
// inside archive or directory it will be relative path inside archive or
// directory. "dst" is the destination directory.
func processStylesheet(ctx context.Context, r io.Reader, src, dst string, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	var (
		outputName string
		stats      flexible.Stats
	)

	log.Info("Transformation starting", zap.String("from", src))
	defer func(start time.Time) {
		// one broken stylesheet must not stop the whole batch
		if r := recover(); r != nil {
			log.Error("Transformation ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("transformation panic: %v", r)
		} else if rerr == nil {
			log.Info("Transformation completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.Object("stats", stats))
		}
	}(time.Now())

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("unable to read stylesheet (%s): %w", src, err)
	}
	env.Rpt.StoreData(path.Join("sources", filepath.ToSlash(src)), data)

	if data, err = css.Decode(data); err != nil {
		return fmt.Errorf("unable to decode stylesheet (%s): %w", src, err)
	}
	sheet, err := css.NewParser(log).Parse(data, src)
	if err != nil {
		return fmt.Errorf("unable to parse stylesheet (%s): %w", src, err)
	}
	for _, w := range sheet.Warnings {
		log.Warn("Stylesheet problem", zap.String("file", src), zap.String("details", w))
	}
	if env.Rpt != nil {
		env.Rpt.StoreData(path.Join("trees", filepath.ToSlash(src)+".txt"), []byte(css.Dump(sheet)))
	}

	tr, err := flexible.New(env.Options, log)
	if err != nil {
		return err
	}
	stats = tr.Process(sheet)

	outputName = buildOutputPath(src, dst, env)
	if err := prepareOutput(outputName, env.Overwrite, log); err != nil {
		return err
	}
	if err := writeStylesheet(outputName, sheet); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}

	if err := env.Rpt.StoreCopy(path.Join("results", filepath.ToSlash(src)), outputName); err != nil {
		log.Warn("Unable to store result in debug report", zap.String("file", outputName), zap.Error(err))
	}
	return nil
}

// prepareOutput checks overwrite policy and makes sure output directory exists.
func prepareOutput(name string, overwrite bool, log *zap.Logger) error {
	if _, err := os.Stat(name); err == nil {
		if !overwrite {
			return fmt.Errorf("output file already exists: %s", name)
		}
		log.Warn("Overwriting existing file", zap.String("file", name))
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	return nil
}

func writeStylesheet(name string, sheet *css.Stylesheet) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	_, err = sheet.WriteTo(f)
	return err
}
