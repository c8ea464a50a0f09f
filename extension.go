package gpustate

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Masterminds/semver/v3"

	"github.com/gogpu/gpustate/backend"
)

// Extension is a setup step run against a device while it is created.
// Extensions that detect a missing capability return an error; the device
// reports it as a *backend.ExtensionCheckError.
type Extension interface {
	// Name identifies the extension in errors and logs.
	Name() string

	// Init runs the extension against a freshly created device.
	Init(d *Device) error
}

// ExtensionFunc adapts a function to the Extension interface.
func ExtensionFunc(name string, init func(d *Device) error) Extension {
	return funcExtension{name: name, init: init}
}

type funcExtension struct {
	name string
	init func(*Device) error
}

func (e funcExtension) Name() string          { return e.name }
func (e funcExtension) Init(d *Device) error { return e.init(d) }

// initExtensions runs every extension in order and stops at the first
// failure.
func initExtensions(d *Device, exts []Extension) error {
	for _, ext := range exts {
		if err := ext.Init(d); err != nil {
			var ece *backend.ExtensionCheckError
			if errors.As(err, &ece) {
				return err
			}
			return &backend.ExtensionCheckError{Extension: ext.Name(), Err: err}
		}
		d.log().Debug("gpustate: extension initialized", "extension", ext.Name())
	}
	return nil
}

// LoggerExtension hands a logger to the backend. It fails if the backend
// does not accept loggers.
type LoggerExtension struct {
	// Logger is passed to the backend. Nil selects the device logger.
	Logger *slog.Logger
}

// Name implements Extension.
func (LoggerExtension) Name() string { return "logger" }

// Init implements Extension.
func (e LoggerExtension) Init(d *Device) error {
	l := e.Logger
	if l == nil {
		l = d.log()
	}
	if !propagateLogger(d.backend, l) {
		return &backend.ExtensionCheckError{
			Extension: e.Name(),
			Reason:    fmt.Sprintf("backend %T does not accept a logger", d.backend),
		}
	}
	return nil
}

// VersionExtension checks the backend version against a semantic version
// constraint.
type VersionExtension struct {
	Constraint string
}

// Name implements Extension.
func (VersionExtension) Name() string { return "version" }

// Init implements Extension.
func (e VersionExtension) Init(d *Device) error {
	constraint, err := semver.NewConstraint(e.Constraint)
	if err != nil {
		return &backend.ExtensionCheckError{Extension: e.Name(), Reason: "invalid constraint", Err: err}
	}
	raw, err := d.Version()
	if err != nil {
		return &backend.ExtensionCheckError{Extension: e.Name(), Reason: "version query", Err: err}
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return &backend.ExtensionCheckError{Extension: e.Name(), Reason: fmt.Sprintf("unparsable version %q", raw), Err: err}
	}
	if !constraint.Check(v) {
		return &backend.ExtensionCheckError{
			Extension: e.Name(),
			Reason:    fmt.Sprintf("version %s does not satisfy %q", v, e.Constraint),
		}
	}
	return nil
}
