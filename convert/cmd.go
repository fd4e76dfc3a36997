package convert

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"lutconv/imgfile"
	"lutconv/lut"
	"lutconv/palette"
	"lutconv/parallel"

	"github.com/alecthomas/kong"
)

type CLICmd struct {
	Target string    `arg:"" optional:"" help:"PNG file or folder to scan recursively for PNG files" type:"path"`
	Out    string    `help:"Output folder. Defaults to <name>_processed next to a folder, or the folder of a single file." type:"path"`
	Hue    []float64 `help:"Also write lookup tables with the hue rotated by these degrees" placeholder:"DEG"`
	Pal    bool      `help:"Also write the palette as a RIFF PAL file" default:"false"`
	Layout Layout    `kong:"-"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	if c.Target == "" {
		return nil
	}

	target, err := filepath.Abs(c.Target)
	var info os.FileInfo
	if err == nil {
		if info, err = os.Stat(target); err == nil && !info.IsDir() && !info.Mode().IsRegular() {
			err = fmt.Errorf("not a file or directory")
		}
	}
	if err != nil {
		return fmt.Errorf("invalid target path %q: %w", c.Target, err)
	}
	c.Target = target

	if c.Out != "" {
		if c.Out, err = filepath.Abs(c.Out); err != nil {
			return fmt.Errorf("invalid output path %q: %w", c.Out, err)
		}
	}

	c.Layout = NewLayout(target, info.IsDir(), c.Out)
	return nil
}

func (c *CLICmd) Run(kctx *kong.Context, pool *parallel.Pool) error {
	if c.Target == "" {
		return kctx.PrintUsage(false)
	}
	return c.convert(pool)
}

func (c *CLICmd) convert(pool *parallel.Pool) error {
	files, err := c.Layout.Files()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		slog.Warn("no PNG files found", "dir", c.Layout.Root)
	}

	// Tables of an earlier run must not outlive a failure of this one.
	if err = removeTables(c.Layout, files); err != nil {
		return err
	}

	reg := palette.NewRegistry(palette.Width, palette.Height)
	written, err := encodeAll(c.Layout, files, lut.NewEncoder(reg, pool))
	if err != nil {
		discard(written)
		return err
	}

	table := lut.Materialize(reg)
	lutPath := c.Layout.LUTPath("default")
	if err = imgfile.Save(table, lutPath); err != nil {
		return fmt.Errorf("could not save lookup table: %w", err)
	}
	slog.Info("saved lookup table", "file", lutPath, "colors", reg.Len(),
		"width", table.Rect.Dx(), "height", table.Rect.Dy())

	for _, deg := range c.Hue {
		path := c.Layout.LUTPath("hue" + strconv.FormatFloat(deg, 'f', -1, 64))
		if err = imgfile.Save(lut.HueVariant(table, reg.Len(), deg), path); err != nil {
			return fmt.Errorf("could not save hue %g lookup table: %w", deg, err)
		}
		slog.Info("saved lookup table variant", "file", path, "hue", deg)
	}

	if c.Pal {
		path := c.Layout.PALPath()
		err = imgfile.WriteFile(path, func(w io.Writer) error {
			_, err := palette.WritePAL(w, reg.Colors())
			return err
		})
		if err != nil {
			return fmt.Errorf("could not save palette: %w", err)
		}
		slog.Info("saved palette", "file", path)
	}

	slog.Info("stats", "files", len(files), "colors", reg.Len(), "capacity", reg.Cap())
	return nil
}

// encodeAll converts files one after the other, stopping at the first
// failure. It returns the outputs written so far.
func encodeAll(l Layout, files []string, enc *lut.Encoder) ([]string, error) {
	var written []string
	for _, file := range files {
		logger := slog.Default().With("file", file)

		dest, err := l.OutputPath(file)
		if err != nil {
			return written, err
		}

		img, err := imgfile.Load(file)
		if err != nil {
			return written, err
		}

		encoded, err := enc.Encode(img)
		if err != nil {
			if errors.Is(err, palette.ErrCapacityExceeded) {
				logger.Error("too many colors for the lookup table", "error", err)
			}
			return written, fmt.Errorf("could not encode %q: %w", file, err)
		}

		if err = imgfile.Save(encoded, dest); err != nil {
			return written, fmt.Errorf("could not save %q: %w", dest, err)
		}
		written = append(written, dest)
		logger.Info("encoded", "to", dest)
	}

	return written, nil
}

func removeTables(l Layout, inputs []string) error {
	tables, err := l.Tables()
	if err != nil {
		return err
	}

	for _, p := range tables {
		if slices.Contains(inputs, p) {
			continue
		}
		slog.Debug("removing previous lookup table", "file", p)
		if err := os.Remove(p); err != nil {
			return fmt.Errorf("could not remove previous lookup table %q: %w", p, err)
		}
	}
	return nil
}

// discard removes the outputs of a failed run, which refer to a lookup table
// that will never be written.
func discard(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			slog.Error("could not remove output of failed run", "file", p, "error", err)
		}
	}
}
