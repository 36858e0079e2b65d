// Package pipeline implements the three-stage submission pipeline:
// Normalize (lossless canonicalization, never rejects), Validate
// (authoritative deterministic rejection with a structured error set), and
// Coerce (pure post-approval canonicalization). Stages iterate template
// field declaration order exclusively; no stage ranges over a Go map where
// ordering could leak into output.
package pipeline

import (
	"github.com/eforms/eforms/internal/config"
	"github.com/eforms/eforms/internal/template"
)

// Context carries the per-request inputs every stage needs: the validated
// template and the frozen config snapshot. It is constructed once per
// request and threaded explicitly; the pipeline holds no process state.
type Context struct {
	Template *template.Template
	Config   *config.Config
}

// UploadErrNoFile is the transport error code meaning "no file supplied";
// such items are dropped during normalization rather than rejected.
const UploadErrNoFile = 4

// RawUpload is one upload as handed over by the transport layer, before
// flattening and name sanitization.
type RawUpload struct {
	TmpName string
	Name    string
	Size    int64
	Error   int
}
