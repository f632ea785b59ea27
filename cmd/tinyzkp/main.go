// Command tinyzkp is a thin CLI front end over internal/engine: plan a
// domain, prove a witness file, or verify a proof file. It follows gnark's
// own `ntrucli`-style dispatch (os.Args[1] subcommand, a per-subcommand
// flag.FlagSet) rather than a CLI framework, since nothing in this
// codebase's go.mod pulls in cobra/urfave for this kind of tool.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/tinyzkp/engine/internal/air"
	"github.com/tinyzkp/engine/internal/config"
	"github.com/tinyzkp/engine/internal/engine"
	"github.com/tinyzkp/engine/internal/pcs"
	"github.com/tinyzkp/engine/internal/stream"
)

func usage() {
	fmt.Println(`usage: tinyzkp <plan|prove|verify> [options]

Subcommands:
  plan     Report the domain a row/tile request would use.
           Flags:
             -rows  <uint>   logical row count (required)
             -bblk  <uint>   tile size hint (default: 0, meaning auto)
             -k     <int>    witness width (default: 1)

  prove    Prove a CSV witness file and write a proof file.
           Flags:
             -witness <path>  CSV file, one row per line, k fields per row (required)
             -out     <path>  proof output path (default: proof.bin)
             -bblk    <uint>  tile size hint (default: 0, meaning auto)
             -shift            enable the shifted-point opening
             -lookups          enable the lookup argument's Z_L accumulator
             -basis   <string> wire-commitment basis, "coeff" or "eval" (default: coeff)
             -label   <string> protocol label (default: tinyzkp.v1)

  verify   Verify a proof file against a row/witness-shape request.
           Flags:
             -proof <path>   proof file to verify (required)
             -rows  <uint>   logical row count used at proving time (required)
             -k     <int>    witness width used at proving time (required)
             -bblk  <uint>   tile size hint used at proving time (default: 0)
             -shift          the proof was produced with the shift opening enabled
             -lookups        the proof was produced with the lookup argument enabled
             -basis <string> wire-commitment basis the proof was produced with (default: coeff)
             -label <string> protocol label (default: tinyzkp.v1)`)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	switch os.Args[1] {
	case "plan":
		runPlan(os.Args[2:])
	case "prove":
		runProve(os.Args[2:])
	case "verify":
		runVerify(os.Args[2:])
	default:
		usage()
	}
}

func openEngine(cfg config.Config) *engine.Engine {
	e, err := engine.Open(cfg)
	if err != nil {
		log.Fatalf("open engine: %v", err)
	}
	return e
}

// parseBasis maps the -basis flag's string value to a pcs.Basis, matching
// proofio's on-wire "coeff"/"eval" basis tags (§4.4).
func parseBasis(s string) pcs.Basis {
	switch s {
	case "", "coeff":
		return pcs.BasisCoeff
	case "eval":
		return pcs.BasisEval
	default:
		log.Fatalf("unrecognized -basis %q (want \"coeff\" or \"eval\")", s)
		return pcs.BasisCoeff
	}
}

func runPlan(args []string) {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	rows := fs.Uint64("rows", 0, "logical row count")
	bBlk := fs.Uint64("bblk", 0, "tile size hint (0 = auto)")
	k := fs.Int("k", 1, "witness width")
	fs.Parse(args)

	if *rows == 0 {
		log.Fatal("plan: -rows is required and must be positive")
	}

	e := openEngine(config.FromEnv())
	resp, err := e.Plan(engine.PlanRequest{Rows: *rows, BBlk: *bBlk, K: *k})
	if err != nil {
		log.Fatalf("plan: %v", err)
	}

	fmt.Printf("n=%d b_blk=%d omega=%s omega_ok=%t memory_hint_tile=%d memory_hint_domain=%d\n",
		resp.N, resp.BBlk, resp.OmegaHex, resp.OmegaOK, resp.MemoryHintTile, resp.MemoryHintDom)
}

func runProve(args []string) {
	cfg := config.FromEnv()
	fs := flag.NewFlagSet("prove", flag.ExitOnError)
	witnessPath := fs.String("witness", "", "CSV witness file")
	out := fs.String("out", "proof.bin", "proof output path")
	bBlk := fs.Uint64("bblk", 0, "tile size hint (0 = auto)")
	shift := fs.Bool("shift", cfg.EnableShift, "enable the shifted-point opening")
	lookups := fs.Bool("lookups", cfg.EnableLookups, "enable the lookup argument's Z_L accumulator")
	basis := fs.String("basis", "coeff", `wire-commitment basis, "coeff" or "eval"`)
	label := fs.String("label", "tinyzkp.v1", "protocol label")
	fs.Parse(args)

	if *witnessPath == "" {
		log.Fatal("prove: -witness is required")
	}

	rows, k := readWitnessCSV(*witnessPath)
	rs := &stream.SliceRestreamer{Rows: rows}
	spec := air.WithCyclicSigma(k)

	e := openEngine(cfg)
	req := engine.ProveRequest{
		Rows:               uint64(len(rows)),
		BBlk:               *bBlk,
		Spec:               spec,
		ProtocolLabel:      *label,
		EnableShiftOpening: *shift,
		EnableLookups:      *lookups,
		BasisWires:         parseBasis(*basis),
	}
	proofBytes, err := e.Prove(context.Background(), req, rs)
	if err != nil {
		log.Fatalf("prove: %v", err)
	}

	if err := os.WriteFile(*out, proofBytes, 0o644); err != nil {
		log.Fatalf("prove: writing proof: %v", err)
	}
	fmt.Printf("proof written to %s (%d bytes)\n", *out, len(proofBytes))
}

func runVerify(args []string) {
	cfg := config.FromEnv()
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	proofPath := fs.String("proof", "", "proof file to verify")
	rows := fs.Uint64("rows", 0, "logical row count used at proving time")
	k := fs.Int("k", 0, "witness width used at proving time")
	bBlk := fs.Uint64("bblk", 0, "tile size hint used at proving time")
	shift := fs.Bool("shift", cfg.EnableShift, "the proof was produced with the shift opening enabled")
	lookups := fs.Bool("lookups", cfg.EnableLookups, "the proof was produced with the lookup argument enabled")
	basis := fs.String("basis", "coeff", "wire-commitment basis the proof was produced with")
	label := fs.String("label", "tinyzkp.v1", "protocol label")
	fs.Parse(args)

	if *proofPath == "" || *rows == 0 || *k == 0 {
		log.Fatal("verify: -proof, -rows, and -k are all required")
	}

	proofBytes, err := os.ReadFile(*proofPath)
	if err != nil {
		log.Fatalf("verify: reading proof: %v", err)
	}

	e := openEngine(cfg)
	spec := air.WithCyclicSigma(*k)
	res := e.Verify(engine.VerifyRequest{
		Rows:               *rows,
		BBlk:               *bBlk,
		Spec:               spec,
		ProtocolLabel:      *label,
		EnableShiftOpening: *shift,
		EnableLookups:      *lookups,
		BasisWires:         parseBasis(*basis),
	}, proofBytes)

	if !res.OK {
		fmt.Printf("verify: FAILED: %v\n", res.Reason)
		os.Exit(1)
	}
	fmt.Println("verify: ok")
}

// readWitnessCSV reads a CSV file of field-element rows (one row per line,
// decimal digits), returning the parsed rows and the common row width k.
func readWitnessCSV(path string) ([]stream.Row, int) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("reading witness: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		log.Fatalf("parsing witness CSV: %v", err)
	}
	if len(records) == 0 {
		log.Fatal("witness file has zero rows")
	}

	k := len(records[0])
	rows := make([]stream.Row, len(records))
	for i, rec := range records {
		if len(rec) != k {
			log.Fatalf("witness row %d: width %d disagrees with row 0's width %d", i, len(rec), k)
		}
		regs := make([]fr.Element, k)
		for j, field := range rec {
			regs[j].SetString(field)
		}
		rows[i] = stream.Row{Regs: regs}
	}
	return rows, k
}
