// Package config loads the engine's environment-style configuration: SRS
// paths, domain size caps, tile-size policy, protocol toggles. There is no
// third-party config library in play here — gnark's own engine code
// configures itself with os.Getenv and build tags, never a config
// framework, and this package follows the same minimalism.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// BBlkPolicy selects how the domain planner derives a tile size when the
// caller does not supply one explicitly.
type BBlkPolicy int

const (
	// BBlkSqrt picks b_blk ≈ ⌈√N⌉ (the default).
	BBlkSqrt BBlkPolicy = iota
	// BBlkFixed uses a caller/operator-supplied constant tile size.
	BBlkFixed
	// BBlkAuto is accepted from the environment; Engine.Plan treats it the
	// same as BBlkSqrt.
	BBlkAuto
)

// Config is the engine's process-wide configuration, populated once at
// startup from the environment.
type Config struct {
	SrsG1Path string
	SrsG2Path string

	MaxN uint64

	BBlkPolicy  BBlkPolicy
	FixedBBlk   uint64
	EnableShift bool
	EnableLookups bool

	ValidatePairingOnLoad bool
}

// Default returns the engine's out-of-the-box configuration.
func Default() Config {
	return Config{
		SrsG1Path:             "G1.bin",
		SrsG2Path:             "G2.bin",
		MaxN:                  1 << 26,
		BBlkPolicy:            BBlkSqrt,
		EnableShift:           false,
		EnableLookups:         false,
		ValidatePairingOnLoad: false,
	}
}

// FromEnv overlays process environment variables onto Default(). Recognized
// variables: TINYZKP_SRS_G1_PATH, TINYZKP_SRS_G2_PATH, TINYZKP_MAX_N,
// TINYZKP_BBLK_POLICY (sqrt|fixed:<n>|auto), TINYZKP_ENABLE_SHIFT_OPENING,
// TINYZKP_ENABLE_LOOKUPS, TINYZKP_VALIDATE_PAIRING_ON_LOAD.
func FromEnv() Config {
	c := Default()

	if v := os.Getenv("TINYZKP_SRS_G1_PATH"); v != "" {
		c.SrsG1Path = v
	}
	if v := os.Getenv("TINYZKP_SRS_G2_PATH"); v != "" {
		c.SrsG2Path = v
	}
	if v := os.Getenv("TINYZKP_MAX_N"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.MaxN = n
		}
	}
	if v := os.Getenv("TINYZKP_BBLK_POLICY"); v != "" {
		switch {
		case v == "sqrt":
			c.BBlkPolicy = BBlkSqrt
		case v == "auto":
			c.BBlkPolicy = BBlkAuto
		case strings.HasPrefix(v, "fixed:"):
			if n, err := strconv.ParseUint(strings.TrimPrefix(v, "fixed:"), 10, 64); err == nil {
				c.BBlkPolicy = BBlkFixed
				c.FixedBBlk = n
			}
		}
	}
	c.EnableShift = boolEnv("TINYZKP_ENABLE_SHIFT_OPENING", c.EnableShift)
	c.EnableLookups = boolEnv("TINYZKP_ENABLE_LOOKUPS", c.EnableLookups)
	c.ValidatePairingOnLoad = boolEnv("TINYZKP_VALIDATE_PAIRING_ON_LOAD", c.ValidatePairingOnLoad)

	return c
}

// CachedPlan is a small, disk-cacheable record of a domain-plan query
// response (§6), keyed by the request that produced it so a repeat query
// for the same (rows, b_blk, k) triple can skip re-deriving the FFT
// domain. CBOR rather than JSON: constraint-system export artifacts in
// this codebase's lineage use CBOR throughout, and a plan cache is the
// same kind of small, versioned, binary-is-fine artifact.
type CachedPlan struct {
	ReqRows  uint64
	ReqBBlk  uint64
	ReqK     int
	N        uint64
	BBlk     uint64
	OmegaHex string
}

// EncodeCachedPlan serializes p to CBOR for disk storage.
func EncodeCachedPlan(p CachedPlan) ([]byte, error) {
	return cbor.Marshal(p)
}

// DecodeCachedPlan parses a CBOR-encoded CachedPlan previously produced by
// EncodeCachedPlan.
func DecodeCachedPlan(b []byte) (CachedPlan, error) {
	var p CachedPlan
	err := cbor.Unmarshal(b, &p)
	return p, err
}

func boolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
