// Copyright © 2024 Ember Engine Contributors
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

// errors.go defines the engine's error kinds (§7). Constructors return
// (value, error) pairs; callers either propagate or log-and-continue on
// non-fatal paths such as a single failing texture in an asset.

import "fmt"

// Kind classifies an engine error. Kept as a small closed set so callers
// can switch on it without string matching.
type Kind int

const (
	KindOK Kind = iota
	KindNoMem
	KindInvalidArguments
	KindNotSupported
	KindInvalidTextureSize
	KindTextureNotLoaded
	KindFramebufferIncomplete
	KindInvalidShader
	KindShaderNotLoaded
	KindParseFailed
	KindInvalidFormat
	KindBufferOverrun
	KindBufferIncomplete
	KindNotFound
	KindPermissionDenied
	KindAlreadyLoaded
	KindLutNotLoaded
	KindInitializationFailed
	KindTooLarge
)

var kindNames = map[Kind]string{
	KindOK:                    "ok",
	KindNoMem:                 "nomem",
	KindInvalidArguments:      "invalid_arguments",
	KindNotSupported:          "not_supported",
	KindInvalidTextureSize:    "invalid_texture_size",
	KindTextureNotLoaded:      "texture_not_loaded",
	KindFramebufferIncomplete: "framebuffer_incomplete",
	KindInvalidShader:         "invalid_shader",
	KindShaderNotLoaded:       "shader_not_loaded",
	KindParseFailed:           "parse_failed",
	KindInvalidFormat:         "invalid_format",
	KindBufferOverrun:         "buffer_overrun",
	KindBufferIncomplete:      "buffer_incomplete",
	KindNotFound:              "not_found",
	KindPermissionDenied:      "permission_denied",
	KindAlreadyLoaded:         "already_loaded",
	KindLutNotLoaded:          "lut_not_loaded",
	KindInitializationFailed:  "initialization_failed",
	KindTooLarge:              "too_large",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Error wraps a Kind with the failing operation and an optional cause.
// Op is the dotted op name, eg "mesh.idxToLOD" or "pipeline.build".
type Error struct {
	Kind  Kind
	Op    string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// newErr builds an *Error. Kept short since it is called constantly from
// constructors and validation paths.
func newErr(op string, kind Kind, cause error) *Error {
	return &Error{Op: op, Kind: kind, Cause: cause}
}

// KindOf extracts the Kind from err, or KindOK if err is nil, or
// KindNotSupported if err is not one of ours.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind
	}
	return KindNotSupported
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
