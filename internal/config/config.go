// Package config loads the .arkive configuration file.
//
// An example file:
//
//	[backend]
//	prefer-embedded = true
//	workers = 4
//
//	[7z]
//	unarchiver = 7zz
//
//	[add]
//	recurse-directories = true
//	store-symlinks = true
//
//	[extract]
//	overwrite = false
package config

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nguyengg/arkive/backend"
)

// Settings is the content of the .arkive file.
type Settings struct {
	// PreferEmbedded tries the in-process backends before the command-line tools.
	PreferEmbedded bool
	// Workers is the number of archives processed concurrently by commands that accept several archives.
	Workers int `validate:"gte=0,lte=64"`

	Executables map[backend.Kind]Executables `validate:"dive"`

	Add     backend.AddOptions
	Extract backend.ExtractOptions
}

// Executables overrides the executables of one command-line backend.
type Executables struct {
	Archiver   string `validate:"omitempty,executable"`
	Unarchiver string `validate:"omitempty,executable"`
}

var defaultValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("executable", func(fl validator.FieldLevel) bool {
		_, err := exec.LookPath(fl.Field().String())
		return err == nil
	})
	return v
}

// Settings maps the loaded file into Settings and validates them.
func (l *Loader) Settings() (s Settings, err error) {
	cfg := l.file()

	sec := cfg.Section("backend")
	s.PreferEmbedded = sec.Key("prefer-embedded").MustBool(false)
	s.Workers = sec.Key("workers").MustInt(0)

	s.Executables = make(map[backend.Kind]Executables)
	for _, d := range backend.Descriptors() {
		sec, err := cfg.GetSection(d.Kind.String())
		if err != nil {
			continue
		}

		s.Executables[d.Kind] = Executables{
			Archiver:   sec.Key("archiver").String(),
			Unarchiver: sec.Key("unarchiver").String(),
		}
	}

	sec = cfg.Section("add")
	s.Add = backend.AddOptions{
		StoreFullPath:      sec.Key("store-full-path").MustBool(false),
		UpdateOnlyIfNewer:  sec.Key("update-only-if-newer").MustBool(false),
		RecurseDirectories: sec.Key("recurse-directories").MustBool(true),
		JunkDirectoryNames: sec.Key("junk-directory-names").MustBool(false),
		ForceMSDOSCase:     sec.Key("force-msdos-case").MustBool(false),
		ConvertLinefeeds:   sec.Key("convert-linefeeds").MustBool(false),
		StoreSymlinks:      sec.Key("store-symlinks").MustBool(false),
	}

	sec = cfg.Section("extract")
	s.Extract = backend.ExtractOptions{
		Overwrite: sec.Key("overwrite").MustBool(false),
		JunkPaths: sec.Key("junk-paths").MustBool(false),
	}

	if err = defaultValidator.Struct(s); err != nil {
		return s, formatValidationError(err)
	}

	return s, nil
}

// LoadSettings calls Loader.Settings on the DefaultLoader instance.
func LoadSettings() (Settings, error) {
	return DefaultLoader.Settings()
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s has %d invalid setting(s):", Name, len(validationErrs)))
	for _, fe := range validationErrs {
		sb.WriteString(fmt.Sprintf("\n  %s: failed '%s' validation", fe.Namespace(), fe.Tag()))
		if fe.Param() != "" {
			sb.WriteString(fmt.Sprintf(" (param: %s)", fe.Param()))
		}
		if v, ok := fe.Value().(string); ok && v != "" {
			sb.WriteString(fmt.Sprintf(` (value: "%s")`, v))
		}
	}

	return errors.New(sb.String())
}
