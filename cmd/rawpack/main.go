package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/rawpack/structure"
)

func main() {
	var (
		formatStr  = flag.String("fmt", "", "Format string")
		presets    = flag.String("presets", "", "YAML file with named format presets")
		preset     = flag.String("preset", "", "Preset name to use from -presets")
		unpackFile = flag.String("unpack", "", "File to unpack ('-' for stdin)")
		packFile   = flag.String("pack", "", "File to write packed data to ('-' for stdout), JSON arguments on stdin")
		size       = flag.Bool("size", false, "Print the byte size of the format and exit")
		refs       = flag.String("refdata", "", "External reference values (comma-separated integers)")
		offset     = flag.Int64("offset", 0, "Offset to start unpacking from")
		unsafeRefs = flag.Bool("unsafe-references", false, "Allow references into indeterminate elements")
		verbose    = flag.Bool("v", false, "Verbose logging")
		inspect    = flag.Bool("i", false, "Interactive inspector (TUI)")
	)
	flag.Parse()

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		structure.SetLogger(logger)
	}

	format, err := resolveFormat(*formatStr, *presets, *preset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *inspect {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(format, *unpackFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if format == "" {
		fmt.Fprintln(os.Stderr, "Usage: rawpack -fmt <format> -unpack <file> [-refdata 1,2] [-offset n]")
		fmt.Fprintln(os.Stderr, "       rawpack -fmt <format> -pack <file>  (JSON argument array on stdin)")
		fmt.Fprintln(os.Stderr, "       rawpack -fmt <format> -size")
		fmt.Fprintln(os.Stderr, "       rawpack -fmt <format> -unpack <file> -i  (interactive inspector)")
		os.Exit(1)
	}

	refdata, err := parseRefdata(*refs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var opts []structure.Option
	if *unsafeRefs {
		opts = append(opts, structure.WithUnsafeReferences())
	}
	s, err := structure.New(format, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *size:
		n, err := s.Calcsize(refdata...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(n)

	case *unpackFile != "":
		if err := runUnpack(s, *unpackFile, *offset, refdata); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case *packFile != "":
		if err := runPack(s, *packFile, refdata); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "Error: one of -unpack, -pack, -size or -i is required")
		os.Exit(1)
	}
}

func resolveFormat(format, presetsFile, preset string) (string, error) {
	if presetsFile == "" {
		return format, nil
	}
	raw, err := os.ReadFile(presetsFile)
	if err != nil {
		return "", err
	}
	var table map[string]string
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return "", fmt.Errorf("parsing presets %s: %w", presetsFile, err)
	}
	if preset == "" {
		return "", fmt.Errorf("-presets given without -preset; available: %s", strings.Join(presetNames(table), ", "))
	}
	f, ok := table[preset]
	if !ok {
		return "", fmt.Errorf("preset %q not found in %s; available: %s", preset, presetsFile, strings.Join(presetNames(table), ", "))
	}
	return f, nil
}

func presetNames(table map[string]string) []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	return names
}

func parseRefdata(refs string) ([]int, error) {
	if refs == "" {
		return nil, nil
	}
	parts := strings.Split(refs, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid refdata value %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}

func runUnpack(s *structure.Struct, path string, offset int64, refdata []int) error {
	data, err := readInput(path)
	if err != nil {
		return err
	}
	values, end, err := s.UnpackFrom(data, offset, refdata...)
	if err != nil {
		return err
	}
	fmt.Println(renderValues(values, 0))
	fmt.Printf("-- %d of %d bytes consumed\n", end-offset, int64(len(data))-offset)
	return nil
}

func runPack(s *structure.Struct, path string, refdata []int) error {
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}
	var args []any
	if err := json.Unmarshal(raw, &args); err != nil {
		return fmt.Errorf("arguments must be a JSON array: %w", err)
	}
	packed, err := s.Pack(args, refdata...)
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = os.Stdout.Write(packed)
		return err
	}
	return os.WriteFile(path, packed, 0o644)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// renderValues prints a value tree one element per line, nested
// sub-sequences indented.
func renderValues(values []any, depth int) string {
	var b strings.Builder
	indent := strings.Repeat("  ", depth)
	for i, v := range values {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch t := v.(type) {
		case []any:
			fmt.Fprintf(&b, "%s[%d]:", indent, i)
			if len(t) > 0 {
				b.WriteByte('\n')
				b.WriteString(renderValues(t, depth+1))
			}
		case []byte:
			fmt.Fprintf(&b, "%s[%d]: %q", indent, i, t)
		default:
			fmt.Fprintf(&b, "%s[%d]: %v", indent, i, t)
		}
	}
	return b.String()
}
