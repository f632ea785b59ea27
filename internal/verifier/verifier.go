// Package verifier is the thin decode-then-verify façade the external API
// surface (§6 Verify) calls: parse the proof bytes with internal/proofio,
// then run scheduler.Verifier's six deterministic checks (§4.8).
package verifier

import (
	"github.com/tinyzkp/engine/internal/air"
	"github.com/tinyzkp/engine/internal/domain"
	"github.com/tinyzkp/engine/internal/proofio"
	"github.com/tinyzkp/engine/internal/scheduler"
	"github.com/tinyzkp/engine/internal/srs"
)

// Result is the engine's external Verify response (§6): ok, or failed with
// the specific error Kind that caused it.
type Result struct {
	OK     bool
	Reason error
}

// Verify decodes proofBytes and checks it against d/s/spec under cfg,
// never panicking on malformed input — decode and check failures both
// surface as a failed Result, never an error return, since "malformed
// proof" is itself a valid verification outcome the caller must be able to
// render without special-casing.
func Verify(cfg scheduler.Config, d *domain.Domain, s *srs.SRS, spec air.Spec, proofBytes []byte) Result {
	proof, err := proofio.Decode(proofBytes)
	if err != nil {
		return Result{OK: false, Reason: err}
	}

	v := &scheduler.Verifier{Cfg: cfg, Domain: d, SRS: s, Spec: spec}
	if err := v.Verify(proof); err != nil {
		return Result{OK: false, Reason: err}
	}
	return Result{OK: true}
}
