package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-ini/ini"
)

// Name is the name of the configuration file.
const Name = ".arkive"

// Loader can be used for loading .arkive configuration.
type Loader struct {
	cfg *ini.File
}

// Load will traverse the directory hierarchy upwards to find the first ".arkive" file available and load its contents
// into the Loader.
//
// The name of the .arkive file is returned, or empty string if there was none.
func (l *Loader) Load(ctx context.Context) (string, error) {
	cur, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		path := filepath.Join(cur, Name)

		fi, err := os.Stat(path)
		switch {
		case err == nil && !fi.IsDir():
			return path, l.LoadFile(path)
		case err == nil, os.IsNotExist(err):
			parent := filepath.Dir(cur)
			if parent == cur || parent == "." {
				l.cfg = ini.Empty()
				return "", nil
			}

			cur = parent
		default:
			return "", err
		}
	}
}

// LoadFile loads the given file into the Loader.
func (l *Loader) LoadFile(name string) (err error) {
	if l.cfg, err = ini.Load(name); err != nil {
		l.cfg = ini.Empty()
		return err
	}

	return nil
}

func (l *Loader) file() *ini.File {
	if l.cfg == nil {
		return ini.Empty()
	}

	return l.cfg
}

// DefaultLoader is the default Loader instance for package-level methods.
var DefaultLoader = &Loader{cfg: ini.Empty()}

// Load calls Loader.Load on the DefaultLoader instance.
func Load(ctx context.Context) (string, error) {
	return DefaultLoader.Load(ctx)
}
