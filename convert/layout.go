package convert

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Layout maps a conversion target to the files it reads and writes.
type Layout struct {
	// Root is the scanned folder, or the folder of a single file target.
	Root string
	// File is the single file target, empty for folders.
	File string
	// OutDir receives the encoded images and the lookup tables.
	OutDir string
	// Name is the target base name used for the lookup table files.
	Name string
}

// NewLayout builds the layout of an absolute target path. An empty out picks
// <name>_processed next to a folder target, or the folder of a file target.
func NewLayout(target string, isDir bool, out string) Layout {
	l := Layout{OutDir: out}
	if isDir {
		l.Root = target
		l.Name = filepath.Base(target)
		if l.OutDir == "" {
			l.OutDir = filepath.Join(filepath.Dir(target), l.Name+"_processed")
		}
	} else {
		l.Root = filepath.Dir(target)
		l.File = target
		l.Name = strings.TrimSuffix(filepath.Base(target), filepath.Ext(target))
		if l.OutDir == "" {
			l.OutDir = l.Root
		}
	}
	return l
}

// Files lists the PNG files to convert in lexical order. Folders are scanned
// recursively, skipping the output folder when it lives inside.
func (l Layout) Files() ([]string, error) {
	if l.File != "" {
		return []string{l.File}, nil
	}

	var files []string
	err := filepath.WalkDir(l.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != l.Root && path == l.OutDir {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && strings.EqualFold(filepath.Ext(path), ".png") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to scan folder %q: %w", l.Root, err)
	}

	return files, nil
}

// OutputPath returns where the encoded copy of src goes, keeping the folder
// structure below Root.
func (l Layout) OutputPath(src string) (string, error) {
	if l.File != "" {
		return filepath.Join(l.OutDir, l.Name+"_processed.png"), nil
	}

	rel, err := filepath.Rel(l.Root, src)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("file %q is outside of %q", src, l.Root)
	}
	return filepath.Join(l.OutDir, rel), nil
}

// LUTPath returns the path of the lookup table flavor, such as "default".
func (l Layout) LUTPath(flavor string) string {
	return filepath.Join(l.OutDir, fmt.Sprintf("%s_lut_%s.png", l.Name, flavor))
}

func (l Layout) PALPath() string {
	return filepath.Join(l.OutDir, l.Name+"_lut_default.pal")
}

// Tables lists the lookup tables and palette files of Name already present in
// OutDir.
func (l Layout) Tables() ([]string, error) {
	entries, err := os.ReadDir(l.OutDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("unable to read folder %q: %w", l.OutDir, err)
	}

	prefix, pal := l.Name+"_lut_", filepath.Base(l.PALPath())
	var res []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !strings.HasPrefix(name, prefix) {
			continue
		}
		if strings.EqualFold(filepath.Ext(name), ".png") || name == pal {
			res = append(res, filepath.Join(l.OutDir, name))
		}
	}
	return res, nil
}
