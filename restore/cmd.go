package restore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"lutconv/imgfile"
	"lutconv/lut"
	"lutconv/palette"

	"github.com/alecthomas/kong"
)

type CLICmd struct {
	Encoded string `arg:"" help:"Encoded PNG image" type:"path"`
	Table   string `arg:"" help:"Lookup table PNG the image was encoded against" type:"path"`
	Out     string `help:"Destination file. Defaults to <name>_restored.png next to the encoded image." type:"path"`
	Rows    int    `help:"Row count of the palette grid used for encoding" default:"256"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	for _, p := range []*string{&c.Encoded, &c.Table} {
		path, err := filepath.Abs(*p)
		var info os.FileInfo
		if err == nil {
			if info, err = os.Stat(path); err == nil && !info.Mode().IsRegular() {
				err = fmt.Errorf("not a regular file")
			}
		}
		if err != nil {
			return fmt.Errorf("invalid image path %q: %w", *p, err)
		}
		*p = path
	}

	if c.Rows < 1 || c.Rows > palette.Height {
		return fmt.Errorf("invalid palette row count: %d", c.Rows)
	}

	if c.Out == "" {
		base := strings.TrimSuffix(c.Encoded, filepath.Ext(c.Encoded))
		c.Out = base + "_restored.png"
	}
	return nil
}

func (c *CLICmd) Run() error {
	logger := slog.Default().With("file", c.Encoded, "lut", c.Table)

	encoded, err := imgfile.Load(c.Encoded)
	if err != nil {
		return err
	}
	table, err := imgfile.Load(c.Table)
	if err != nil {
		return err
	}

	img, err := lut.Restore(encoded, table, c.Rows)
	if err != nil {
		return fmt.Errorf("could not restore %q: %w", c.Encoded, err)
	}

	if err = imgfile.Save(img, c.Out); err != nil {
		return fmt.Errorf("could not save %q: %w", c.Out, err)
	}
	logger.Info("restored", "to", c.Out)
	return nil
}
