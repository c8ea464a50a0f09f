package gpustate

import (
	"log/slog"

	"github.com/gogpu/gpustate/backend"
)

// DeviceOption configures a Device during creation.
//
// Example:
//
//	dev, err := gpustate.NewDevice(b,
//	    gpustate.WithLogger(logger),
//	    gpustate.WithMinBackendVersion(">= 3.3"),
//	)
type DeviceOption func(*deviceOptions)

// deviceOptions holds optional configuration for Device creation.
type deviceOptions struct {
	logger     *slog.Logger
	extensions []Extension

	// Unit limits; applied only when the matching flag is set.
	maxTextureUnits          backend.Unit
	maxUniformBufferUnits    backend.Unit
	hasMaxTextureUnits       bool
	hasMaxUniformBufferUnits bool
}

// defaultDeviceOptions returns the default device options.
func defaultDeviceOptions() deviceOptions {
	return deviceOptions{
		logger: nil, // Falls back to the package logger
	}
}

// WithLogger sets the logger used by the device and passed to its backend.
// A nil logger keeps the package logger (see SetLogger).
func WithLogger(l *slog.Logger) DeviceOption {
	return func(o *deviceOptions) {
		o.logger = l
	}
}

// WithExtensions adds extensions initialized, in order, when the device is
// created. The first failing extension aborts creation.
func WithExtensions(exts ...Extension) DeviceOption {
	return func(o *deviceOptions) {
		o.extensions = append(o.extensions, exts...)
	}
}

// WithMinBackendVersion requires the backend version to satisfy a semantic
// version constraint such as ">= 3.3" or "^1.2".
func WithMinBackendVersion(constraint string) DeviceOption {
	return WithExtensions(VersionExtension{Constraint: constraint})
}

// WithMaxTextureUnits caps the texture units a layer session may use. The
// backend limit still applies when it is lower.
func WithMaxTextureUnits(n backend.Unit) DeviceOption {
	return func(o *deviceOptions) {
		o.maxTextureUnits = n
		o.hasMaxTextureUnits = true
	}
}

// WithMaxUniformBufferUnits caps the uniform-buffer units a layer session
// may use. The backend limit still applies when it is lower.
func WithMaxUniformBufferUnits(n backend.Unit) DeviceOption {
	return func(o *deviceOptions) {
		o.maxUniformBufferUnits = n
		o.hasMaxUniformBufferUnits = true
	}
}
