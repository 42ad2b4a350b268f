package cmd

import (
	"context"
	"fmt"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/arkive/internal"
	"github.com/nguyengg/arkive/internal/config"
	"go.uber.org/zap"
)

type Arkive struct {
	Debug    bool           `long:"debug" description:"log at debug level in development format"`
	LogLevel string         `long:"log-level" description:"minimum level of log messages" choice:"debug" choice:"info" choice:"warn" choice:"error" default:"info"`
	Config   flags.Filename `long:"config" description:"read settings from this file instead of the nearest .arkive"`

	List    List    `command:"list" alias:"l" description:"list the content of archives"`
	Add     Add     `command:"add" alias:"a" description:"add files to an archive, creating it if needed"`
	Delete  Delete  `command:"delete" alias:"rm" description:"delete members from an archive"`
	Extract Extract `command:"extract" alias:"x" description:"extract archives"`
	Create  Create  `command:"create" alias:"c" description:"create a new archive"`
	Test    Test    `command:"test" alias:"t" description:"test the integrity of archives"`
	Cat     Cat     `command:"cat" description:"write one member of an archive to stdout"`
}

// configurer is implemented by commands that embed Mixin.
type configurer interface {
	configure(logger *zap.Logger, settings config.Settings)
}

func NewParser() (*flags.Parser, error) {
	opts := &Arkive{}

	p := flags.NewNamedParser("arkive", flags.Default)
	if _, err := p.AddGroup("Global Options", "", opts); err != nil {
		return nil, err
	}

	p.CommandHandler = func(command flags.Commander, args []string) error {
		if command == nil {
			return nil
		}

		logger, err := internal.NewLogger(opts.Debug, opts.LogLevel)
		if err != nil {
			return err
		}
		defer func() {
			_ = logger.Sync()
		}()

		settings, err := loadSettings(logger, string(opts.Config))
		if err != nil {
			return err
		}

		if c, ok := command.(configurer); ok {
			c.configure(logger, settings)
		}

		return command.Execute(args)
	}

	return p, nil
}

func loadSettings(logger *zap.Logger, name string) (config.Settings, error) {
	l := &config.Loader{}

	if name != "" {
		if err := l.LoadFile(name); err != nil {
			return config.Settings{}, fmt.Errorf(`load config "%s" error: %w`, name, err)
		}

		return l.Settings()
	}

	name, err := l.Load(context.Background())
	if err != nil {
		return config.Settings{}, fmt.Errorf("load config error: %w", err)
	}
	if name != "" {
		logger.Debug("loaded config", zap.String("file", name))
	}

	return l.Settings()
}
