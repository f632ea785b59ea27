// Package engine is the top-level entrypoint a host process (cmd/tinyzkp,
// or any embedder) calls: Plan a domain, Prove a witness against it, Verify
// a proof bytes blob. It wires internal/config, internal/logger,
// internal/srs, internal/scheduler, internal/proofio, and internal/verifier
// together the way a backend's top-level Setup/Prove/Verify trio wires its
// phases, without exposing any of those packages' internals to the caller.
package engine

import (
	"context"
	"os"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/tinyzkp/engine/internal/air"
	"github.com/tinyzkp/engine/internal/config"
	"github.com/tinyzkp/engine/internal/domain"
	"github.com/tinyzkp/engine/internal/logger"
	"github.com/tinyzkp/engine/internal/pcs"
	"github.com/tinyzkp/engine/internal/proofio"
	"github.com/tinyzkp/engine/internal/scheduler"
	"github.com/tinyzkp/engine/internal/srs"
	"github.com/tinyzkp/engine/internal/stream"
	"github.com/tinyzkp/engine/internal/verifier"
	"github.com/tinyzkp/engine/internal/zkerr"
)

// Engine bundles the loaded SRS and process configuration a host keeps
// resident across many Plan/Prove/Verify calls, so the SRS is read from
// disk once rather than per request.
type Engine struct {
	Cfg config.Config
	SRS *srs.SRS
}

// Open loads the SRS named by cfg and returns a ready Engine. Per §4.2, the
// SRS is validated structurally on load; pairing validation additionally
// runs when cfg.ValidatePairingOnLoad is set, since it is the expensive
// check of the two.
func Open(cfg config.Config) (*Engine, error) {
	log := logger.Logger("engine")
	start := time.Now()

	s, err := srs.Load(cfg.SrsG1Path, cfg.SrsG2Path, 0)
	if err != nil {
		return nil, err
	}
	if cfg.ValidatePairingOnLoad {
		if err := s.ValidatePairing(); err != nil {
			return nil, err
		}
	}

	log.Info().Dur("elapsed", time.Since(start)).Int("srs_degree", s.Degree()).Msg("srs loaded")
	return &Engine{Cfg: cfg, SRS: s}, nil
}

// PlanRequest is the §6 domain-plan query input. CachePath, if set, names a
// file holding a CBOR-encoded config.CachedPlan: a hit for the same
// (Rows, BBlk, K) skips re-deriving the FFT domain; a miss computes the
// plan normally and writes the cache file for next time.
type PlanRequest struct {
	Rows      uint64
	BBlk      uint64
	ZhC       fr.Element
	K         int
	CachePath string
}

// PlanResponse is the §6 domain-plan query output.
type PlanResponse struct {
	N              uint64
	OmegaHex       string
	BBlk           uint64
	MemoryHintTile uint64
	MemoryHintDom  uint64
	OmegaOK        bool
}

// Plan answers the §6 domain-plan query without running any proof: it
// reports how large a domain req would need. When e.SRS is set, a domain
// whose N exceeds e.SRS.Degree() is rejected with DomainTooLarge; with a
// nil e.SRS that capacity check is skipped.
func (e *Engine) Plan(req PlanRequest) (PlanResponse, error) {
	bBlkHint := req.BBlk
	if bBlkHint == 0 {
		switch e.Cfg.BBlkPolicy {
		case config.BBlkFixed:
			bBlkHint = e.Cfg.FixedBBlk
		default:
			bBlkHint = 0
		}
	}

	if req.CachePath != "" {
		if cached, ok := e.readPlanCache(req, bBlkHint); ok {
			return cached, nil
		}
	}

	d, err := domain.Plan(req.Rows, bBlkHint, req.ZhC, e.Cfg.MaxN)
	if err != nil {
		return PlanResponse{}, err
	}
	if e.SRS != nil && d.N > uint64(e.SRS.Degree()) {
		return PlanResponse{}, zkerr.New(zkerr.DomainTooLarge, "domain exceeds loaded SRS capacity")
	}

	hint := d.Hint()
	omegaOK := domain.Validate(d) == nil
	resp := PlanResponse{
		N:              d.N,
		OmegaHex:       d.Omega.String(),
		BBlk:           d.BBlk,
		MemoryHintTile: hint.TileElements,
		MemoryHintDom:  hint.DomainElements,
		OmegaOK:        omegaOK,
	}

	if req.CachePath != "" {
		e.writePlanCache(req, bBlkHint, resp)
	}
	return resp, nil
}

// readPlanCache looks for a cached plan matching req at req.CachePath,
// logging and ignoring (never failing the request on) any read/decode
// error or key mismatch — a cache is an optimization, not a source of
// truth.
func (e *Engine) readPlanCache(req PlanRequest, bBlkHint uint64) (PlanResponse, bool) {
	log := logger.Logger("engine")
	raw, err := os.ReadFile(req.CachePath)
	if err != nil {
		return PlanResponse{}, false
	}
	cached, err := config.DecodeCachedPlan(raw)
	if err != nil {
		log.Warn().Err(err).Str("path", req.CachePath).Msg("ignoring corrupt plan cache")
		return PlanResponse{}, false
	}
	if cached.ReqRows != req.Rows || cached.ReqBBlk != bBlkHint || cached.ReqK != req.K {
		return PlanResponse{}, false
	}
	return PlanResponse{N: cached.N, BBlk: cached.BBlk, OmegaHex: cached.OmegaHex, OmegaOK: true}, true
}

func (e *Engine) writePlanCache(req PlanRequest, bBlkHint uint64, resp PlanResponse) {
	log := logger.Logger("engine")
	cached := config.CachedPlan{
		ReqRows: req.Rows, ReqBBlk: bBlkHint, ReqK: req.K,
		N: resp.N, BBlk: resp.BBlk, OmegaHex: resp.OmegaHex,
	}
	raw, err := config.EncodeCachedPlan(cached)
	if err != nil {
		log.Warn().Err(err).Msg("encoding plan cache")
		return
	}
	if err := os.WriteFile(req.CachePath, raw, 0o644); err != nil {
		log.Warn().Err(err).Str("path", req.CachePath).Msg("writing plan cache")
	}
}

// ProveRequest bundles the inputs a Prove call needs beyond the witness
// stream itself.
type ProveRequest struct {
	Rows               uint64
	BBlk               uint64
	ZhC                fr.Element
	Spec               air.Spec
	ProtocolLabel      string
	EnableShiftOpening bool
	EnableLookups      bool
	// BasisWires selects how wire-column commitments are computed (§4.4's
	// "basis_wires"): pcs.BasisCoeff (the zero value) commits IFFT'd
	// monomial coefficients; pcs.BasisEval commits the streamed witness
	// evaluations directly against a precomputed Lagrange basis. Both
	// produce the identical commitment point, so a Verify call must be
	// given the same BasisWires the Prove call used only so the two
	// sides' bookkeeping agrees, never because the math differs.
	BasisWires pcs.Basis
}

// Prove plans a domain for req, runs the four-phase scheduler pipeline
// over rs, and returns the proof's binary encoding (internal/proofio),
// ready to hand to a verifier out of band.
func (e *Engine) Prove(ctx context.Context, req ProveRequest, rs stream.Restreamer) ([]byte, error) {
	log := logger.Logger("engine")

	d, err := domain.Plan(req.Rows, req.BBlk, req.ZhC, e.Cfg.MaxN)
	if err != nil {
		return nil, err
	}
	if d.N > uint64(e.SRS.Degree()) {
		return nil, zkerr.New(zkerr.DomainTooLarge, "domain exceeds loaded SRS capacity")
	}

	cfg := scheduler.Config{ProtocolLabel: req.ProtocolLabel, EnableShiftOpening: req.EnableShiftOpening, EnableLookups: req.EnableLookups, BasisWires: req.BasisWires}
	p := &scheduler.Prover{Cfg: cfg, Domain: d, SRS: e.SRS, Spec: req.Spec}

	start := time.Now()
	proof, err := p.Prove(ctx, rs)
	if err != nil {
		log.Error().Err(err).Msg("prove failed")
		return nil, err
	}
	log.Info().Dur("elapsed", time.Since(start)).Uint64("n", d.N).Msg("proof generated")

	return proofio.Encode(proof), nil
}

// VerifyRequest bundles the inputs a Verify call needs to reconstruct the
// same domain and protocol config the proof was produced under. The whole
// domain, N included, is replanned from Rows and BBlk; a proof whose N
// differs from the replanned N is rejected.
type VerifyRequest struct {
	Rows               uint64
	BBlk               uint64
	ZhC                fr.Element
	Spec               air.Spec
	ProtocolLabel      string
	EnableShiftOpening bool
	EnableLookups      bool
	BasisWires         pcs.Basis
}

// Verify decodes proofBytes and runs the verifier's six checks (§4.8)
// against a domain replanned from req, returning a verifier.Result rather
// than a bare error, since a failed verification is an expected outcome a
// caller renders directly, not an exceptional condition.
func (e *Engine) Verify(req VerifyRequest, proofBytes []byte) verifier.Result {
	d, err := domain.Plan(req.Rows, req.BBlk, req.ZhC, e.Cfg.MaxN)
	if err != nil {
		return verifier.Result{OK: false, Reason: err}
	}

	cfg := scheduler.Config{ProtocolLabel: req.ProtocolLabel, EnableShiftOpening: req.EnableShiftOpening, EnableLookups: req.EnableLookups, BasisWires: req.BasisWires}
	return verifier.Verify(cfg, d, e.SRS, req.Spec, proofBytes)
}
