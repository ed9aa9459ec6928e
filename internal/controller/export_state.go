package controller

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// ExportState is one of ExportIdle, ExportLoading, ExportSuccess or
// ExportError. The set is closed: only this package implements it.
type ExportState interface {
	exportState()
}

type ExportIdle struct{}

type ExportLoading struct{}

type ExportSuccess struct {
	Path string
}

type ExportError struct {
	Message string
}

func (ExportIdle) exportState()    {}
func (ExportLoading) exportState() {}
func (ExportSuccess) exportState() {}
func (ExportError) exportState()   {}

// Terminal reports whether s is a result the presentation should consume
// and then clear.
func Terminal(s ExportState) bool {
	switch s.(type) {
	case ExportSuccess, ExportError:
		return true
	default:
		return false
	}
}

const (
	EmptyExportMessage      = "There are no todos to export."
	PermissionExportMessage = "Permission is required to save the file."
	SpaceExportMessage      = "Not enough storage space to save the file."
	NoExporterMessage       = "Export is not available."
)

var permissionMarkers = []string{"permission", "권한"}

// exportErrorMessage turns an exporter failure into the message shown to
// the user. Besides fs.ErrPermission it inspects the error text, since
// exporters report platform failures as plain strings.
func exportErrorMessage(err error) string {
	msg := strings.ToLower(err.Error())
	if errors.Is(err, fs.ErrPermission) {
		return PermissionExportMessage
	}
	for _, marker := range permissionMarkers {
		if strings.Contains(msg, marker) {
			return PermissionExportMessage
		}
	}
	if strings.Contains(msg, "space") {
		return SpaceExportMessage
	}
	return fmt.Sprintf("Failed to save the file: %s", err.Error())
}
