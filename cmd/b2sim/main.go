package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/profile"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/b2-runtime/abi"
	"github.com/wippyai/b2-runtime/callback"
	"github.com/wippyai/b2-runtime/internal/heap"
	"github.com/wippyai/b2-runtime/runtime"
	"github.com/wippyai/b2-runtime/script"
	"github.com/wippyai/b2-runtime/sim"
)

func main() {
	var (
		scenePath   = flag.String("scene", "", "Path to scene file (.toml, .yaml)")
		steps       = flag.Int("steps", -1, "Steps to run (default: scene step.count)")
		events      = flag.Bool("events", false, "Print every event")
		logLevel    = flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
		logFormat   = flag.String("log-format", "console", "Log format (console, json)")
		layout      = flag.Bool("layout", false, "Print native record layouts and exit")
		profMode    = flag.String("profile", "", "Profile the run (cpu, mem)")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	log, err := newLogger(*logLevel, *logFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	setLoggers(log)

	if *layout {
		if err := printLayout(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *scenePath == "" {
		fmt.Fprintln(os.Stderr, "Usage: b2sim -scene <file.toml> [-steps n] [-events]")
		fmt.Fprintln(os.Stderr, "       b2sim -scene <file.toml> -i  (interactive mode)")
		fmt.Fprintln(os.Stderr, "       b2sim -layout")
		os.Exit(1)
	}

	if stop := startProfile(*profMode); stop != nil {
		defer stop()
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*scenePath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*scenePath, *steps, *events); err != nil {
		log.Error("run failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level, format string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		cfg.EncoderConfig.ConsoleSeparator = "  "
		cfg.DisableCaller = true
		cfg.DisableStacktrace = true
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func setLoggers(l *zap.Logger) {
	sim.SetLogger(l.Named("sim"))
	heap.SetLogger(l.Named("heap"))
	callback.SetLogger(l.Named("callback"))
	runtime.SetLogger(l.Named("runtime"))
	script.SetLogger(l.Named("script"))
}

// startProfile returns the stop function, or nil when profiling is off.
func startProfile(mode string) func() {
	var opt func(*profile.Profile)
	switch mode {
	case "":
		return nil
	case "cpu":
		opt = profile.CPUProfile
	case "mem":
		opt = profile.MemProfileAllocs
	default:
		fmt.Fprintf(os.Stderr, "unknown profile mode %q, profiling disabled\n", mode)
		return nil
	}
	p := profile.Start(opt, profile.ProfilePath("."), profile.NoShutdownHook, profile.Quiet)
	return p.Stop
}

func run(path string, steps int, detail bool) error {
	s, err := openSession(context.Background(), path)
	if err != nil {
		return err
	}
	defer s.close()

	if steps < 0 {
		steps = s.scene.Step.Count
	}

	fmt.Printf("Scene: %s (%s)\n", s.scene.Name, path)
	fmt.Printf("Bodies: %d  Shapes: %d  Chains: %d\n", len(s.built.Bodies), len(s.built.Shapes), len(s.built.Chains))
	fmt.Printf("World: %s\n\n", s.world())

	for i := 0; i < steps; i++ {
		rep, err := s.advance(detail)
		if err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		for _, line := range rep.lines {
			fmt.Printf("[%4d] %s\n", rep.step, line)
		}
	}
	fmt.Printf("\nRan %d steps: %s\n", s.steps, s.totals)

	return printState(s)
}

func printState(s *session) error {
	bodies, err := s.bodies()
	if err != nil {
		return err
	}
	fmt.Printf("\nBodies:\n")
	for _, b := range bodies {
		fmt.Printf("  %-12s %-9s p=(%.3f, %.3f) v=(%.3f, %.3f)\n",
			b.name, b.typ, b.position.X(), b.position.Y(), b.velocity.X(), b.velocity.Y())
	}

	rays, err := s.rays()
	if err != nil {
		return err
	}
	if len(rays) > 0 {
		fmt.Printf("\nRays:\n")
	}
	for _, r := range rays {
		if !r.hit.Found {
			fmt.Printf("  %-12s miss (candidates=%d)\n", r.name, r.stats.Candidates)
			continue
		}
		fmt.Printf("  %-12s %s at (%.3f, %.3f) fraction=%.4f (candidates=%d filtered=%d)\n",
			r.name, r.target, r.hit.Hit.Point.X(), r.hit.Hit.Point.Y(), r.hit.Hit.Fraction,
			r.stats.Candidates, r.stats.Filtered)
	}

	movers, err := s.movers()
	if err != nil {
		return err
	}
	if len(movers) > 0 {
		fmt.Printf("\nMovers:\n")
	}
	for _, m := range movers {
		fmt.Printf("  %-12s %d planes\n", m.name, len(m.planes))
		for _, p := range m.planes {
			pl := p.Result.Plane
			fmt.Printf("    %s n=(%.3f, %.3f) push=%.4f\n", s.built.Name(p.Shape), pl.Normal.X(), pl.Normal.Y(), pl.Offset)
		}
	}
	return nil
}

func printLayout() error {
	v := abi.NewVerifier()
	fmt.Printf("%-28s %6s %6s  %s\n", "record", "size", "align", "fields")
	for _, e := range abi.Entries() {
		info := v.Layout(e)
		fmt.Printf("%-28s %6d %6d  %s\n", e.Name, info.Size, info.Align, fieldList(e, info))
	}
	if err := abi.VerifyAll(); err != nil {
		return err
	}
	fmt.Println("\nAll layouts match.")
	return nil
}

func fieldList(e abi.Entry, info abi.Info) string {
	rec, ok := e.Def.Kind.(*wit.Record)
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(rec.Fields))
	for _, f := range rec.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s@%d", f.Name, witTypeStr(f.Type), info.FieldOffs[f.Name]))
	}
	return strings.Join(parts, " ")
}

// witTypeStr names a native record field type for the layout table.
func witTypeStr(t wit.Type) string {
	switch v := t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		if tup, ok := v.Kind.(*wit.Tuple); ok && len(tup.Types) > 0 {
			return fmt.Sprintf("[%d]%s", len(tup.Types), witTypeStr(tup.Types[0]))
		}
		return "typedef"
	default:
		return fmt.Sprintf("%T", t)
	}
}
