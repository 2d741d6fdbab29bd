// s3dtool is a CLI utility for working with EverQuest S3D archives
// and the WLD world files inside them.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/eq-assets/internal/assets"
	"github.com/Faultbox/eq-assets/internal/config"
	"github.com/Faultbox/eq-assets/internal/logger"
	"github.com/Faultbox/eq-assets/internal/texture"
	"github.com/Faultbox/eq-assets/pkg/pfs"
	"github.com/Faultbox/eq-assets/pkg/wld"
)

func main() {
	// Global flags come before the command; flag parsing stops at the
	// first non-flag argument.
	config.ParseFlags()
	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "info":
		cmdInfo(cfg, args)
	case "list", "ls":
		cmdList(cfg, args)
	case "extract", "x":
		cmdExtract(cfg, args)
	case "pack":
		cmdPack(args)
	case "wld":
		cmdWld(cfg, args)
	case "textures":
		cmdTextures(cfg, args)
	case "query":
		cmdQuery(cfg, args)
	case "config":
		cmdConfig(cfg, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`s3dtool - EverQuest S3D archive utility

Usage:
  s3dtool [flags] <command> [options]

Commands:
  info <file.s3d>                     Show archive information
  list <file.s3d> [pattern]           List files (optional glob pattern)
  extract <file.s3d> <path> [output]  Extract file(s) to directory
  pack <dir> <file.s3d>               Pack a directory into an archive
  wld <file.s3d> [file.wld]           Summarize a world file's fragments
  textures <file.s3d> [output]        Export textures (see -webp)
  query <selector>                    Resolve an asset selector
  config init [path]                  Write the active config to disk

Flags (before the command):
  -config <path>      Config file to load
  -debug              Enable debug logging
  -workers <n>        Parallel decompression workers
  -export-dir <path>  Directory for exported assets
  -webp               Convert exported textures to WebP

Examples:
  s3dtool info gfaydark.s3d
  s3dtool list gfaydark.s3d "*.bmp"
  s3dtool extract gfaydark.s3d gfaydark.wld ./out
  s3dtool wld gfaydark.s3d
  s3dtool query "gfaydark.s3d#Mesh[GFAYDARK_DMSPRITEDEF]"`)
}

func openArchive(cfg *config.Config, path string) *pfs.Archive {
	archive, err := pfs.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	archive.Workers = cfg.Archives.Workers
	return archive
}

func cmdInfo(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: s3dtool info <file.s3d>")
		os.Exit(1)
	}

	archive := openArchive(cfg, args[0])
	files := archive.List()

	extCount := make(map[string]int)
	var totalSize uint64
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f))
		if ext == "" {
			ext = "(no ext)"
		}
		extCount[ext]++
		if e, ok := archive.Entry(f); ok {
			totalSize += uint64(e.Size)
		}
	}

	fmt.Printf("Archive: %s\n", args[0])
	fmt.Printf("Files:   %d\n", len(files))
	fmt.Printf("Size:    %.2f MB decompressed\n", float64(totalSize)/(1024*1024))
	fmt.Println()
	fmt.Println("Files by type:")

	type extStat struct {
		ext   string
		count int
	}
	var stats []extStat
	for ext, count := range extCount {
		stats = append(stats, extStat{ext, count})
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].count > stats[j].count
	})

	for _, s := range stats {
		fmt.Printf("  %-10s %d\n", s.ext, s.count)
	}
}

func cmdList(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N files (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: s3dtool list <file.s3d> [pattern]")
		os.Exit(1)
	}

	archive := openArchive(cfg, fs.Arg(0))
	files := archive.List()
	sort.Strings(files)

	pattern := ""
	if fs.NArg() > 1 {
		pattern = strings.ToLower(fs.Arg(1))
	}

	count := 0
	for _, f := range files {
		if pattern != "" {
			matched, _ := filepath.Match(pattern, strings.ToLower(f))
			if !matched && !strings.Contains(strings.ToLower(f), pattern) {
				continue
			}
		}
		fmt.Println(f)
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}

	if pattern != "" {
		fmt.Fprintf(os.Stderr, "\n(%d files matched)\n", count)
	}
}

func cmdExtract(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: s3dtool extract <file.s3d> <path> [output_dir]")
		os.Exit(1)
	}

	archivePath := fs.Arg(0)
	filePath := fs.Arg(1)
	outputDir := "."
	if fs.NArg() > 2 {
		outputDir = fs.Arg(2)
	}

	archive := openArchive(cfg, archivePath)

	if strings.Contains(filePath, "*") {
		extractPattern(archive, filePath, outputDir)
		return
	}

	if !archive.Contains(filePath) {
		fmt.Fprintf(os.Stderr, "File not found: %s\n", filePath)
		os.Exit(1)
	}

	data, err := archive.Read(filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	outputPath := filepath.Join(outputDir, filepath.Base(filePath))
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Extracted: %s (%d bytes)\n", outputPath, len(data))
}

func extractPattern(archive *pfs.Archive, pattern, outputDir string) {
	files := archive.List()
	pattern = strings.ToLower(pattern)

	extracted := 0
	for _, f := range files {
		matched, _ := filepath.Match(pattern, strings.ToLower(f))
		if !matched {
			continue
		}

		data, err := archive.Read(f)
		if err != nil {
			logger.Warn("skipping unreadable file", zap.String("file", f), zap.Error(err))
			continue
		}

		outputPath := filepath.Join(outputDir, f)
		if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
			continue
		}
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outputPath, err)
			continue
		}

		fmt.Printf("Extracted: %s\n", outputPath)
		extracted++
	}

	fmt.Fprintf(os.Stderr, "\nExtracted %d files\n", extracted)
}

func cmdPack(args []string) {
	fs := flag.NewFlagSet("pack", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: s3dtool pack <dir> <file.s3d>")
		os.Exit(1)
	}

	dir := fs.Arg(0)
	out := fs.Arg(1)

	w := pfs.NewWriter()
	count := 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		// Archive namespace is flat.
		w.Add(filepath.Base(rel), data)
		count++
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := w.WriteFile(out); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing archive: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Packed %d files into %s\n", count, out)
}

func cmdWld(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("wld", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: s3dtool wld <file.s3d> [file.wld]")
		os.Exit(1)
	}

	archive := openArchive(cfg, fs.Arg(0))

	wldName := ""
	if fs.NArg() > 1 {
		wldName = fs.Arg(1)
	} else {
		for _, f := range archive.List() {
			if strings.HasSuffix(strings.ToLower(f), ".wld") {
				wldName = f
				break
			}
		}
		if wldName == "" {
			fmt.Fprintln(os.Stderr, "No .wld file in archive")
			os.Exit(1)
		}
	}

	data, err := archive.Read(wldName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", wldName, err)
		os.Exit(1)
	}

	world, faults, err := wld.Load(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding %s: %v\n", wldName, err)
		os.Exit(1)
	}

	fmt.Printf("World:     %s\n", wldName)
	fmt.Printf("Version:   0x%08X\n", world.Version)
	fmt.Printf("Fragments: %d\n", world.FragmentCount())
	fmt.Println()

	counts := make(map[wld.Kind]int)
	for i := 1; i <= world.FragmentCount(); i++ {
		counts[world.At(i).Payload.Kind()]++
	}
	type kindStat struct {
		kind  wld.Kind
		count int
	}
	var stats []kindStat
	for k, c := range counts {
		stats = append(stats, kindStat{k, c})
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].count > stats[j].count
	})
	for _, s := range stats {
		fmt.Printf("  %-24s %d\n", s.kind, s.count)
	}

	if len(faults) > 0 {
		fmt.Fprintf(os.Stderr, "\n%d unresolved references:\n", len(faults))
		for _, f := range faults {
			fmt.Fprintf(os.Stderr, "  %s\n", f)
		}
	}
}

func cmdTextures(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("textures", flag.ExitOnError)
	webp := fs.Bool("webp", cfg.Export.WebP, "Convert textures to WebP")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: s3dtool textures <file.s3d> [output_dir]")
		os.Exit(1)
	}

	archive := openArchive(cfg, fs.Arg(0))
	outputDir := cfg.Export.Dir
	if fs.NArg() > 1 {
		outputDir = fs.Arg(1)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}

	exported := 0
	for _, f := range archive.List() {
		ext := strings.ToLower(filepath.Ext(f))
		if ext != ".bmp" && ext != ".tga" {
			continue
		}

		data, err := archive.Read(f)
		if err != nil {
			logger.Warn("skipping unreadable texture", zap.String("file", f), zap.Error(err))
			continue
		}

		if !*webp {
			outputPath := filepath.Join(outputDir, f)
			if err := os.WriteFile(outputPath, data, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outputPath, err)
				continue
			}
			exported++
			continue
		}

		img, err := texture.Decode(f, data)
		if err != nil {
			logger.Warn("skipping undecodable texture", zap.String("file", f), zap.Error(err))
			continue
		}
		outputPath := filepath.Join(outputDir, texture.WebPName(f))
		out, err := os.Create(outputPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", outputPath, err)
			continue
		}
		err = texture.EncodeWebP(out, img)
		out.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding %s: %v\n", outputPath, err)
			continue
		}
		exported++
	}

	fmt.Printf("Exported %d textures to %s\n", exported, outputDir)
}

func cmdConfig(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 1 || fs.Arg(0) != "init" {
		fmt.Fprintln(os.Stderr, "Usage: s3dtool config init [path]")
		os.Exit(1)
	}

	path := filepath.Join(config.ConfigDir(), "config.yaml")
	var err error
	if fs.NArg() > 1 {
		path = fs.Arg(1)
		err = cfg.SaveTo(path)
	} else {
		err = cfg.Save()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", path)
}

func cmdQuery(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: s3dtool query <selector>")
		os.Exit(1)
	}

	selector := fs.Arg(0)
	sel, err := assets.ParseSelector(selector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	m := assets.NewManager()
	defer m.Close()
	m.SetWorkers(cfg.Archives.Workers)
	for _, path := range cfg.Archives.Paths {
		if err := m.AddArchive(path); err != nil {
			logger.Warn("skipping configured archive", zap.String("path", path), zap.Error(err))
		}
	}
	if !m.HasArchive(sel.Container) {
		if err := m.AddArchive(sel.Container); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	res, err := m.Query(selector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if res.Fragment == nil {
		fmt.Printf("World with %d fragments", res.World.FragmentCount())
		if len(res.Faults) > 0 {
			fmt.Printf(" (%d unresolved references)", len(res.Faults))
		}
		fmt.Println()
		return
	}

	f := res.Fragment
	fmt.Printf("Fragment:  %d\n", f.Index)
	fmt.Printf("Kind:      %s\n", f.Payload.Kind())
	fmt.Printf("Name:      %s\n", f.Name)
	if f.Partial {
		fmt.Println("Partial:   yes (has unresolved references)")
	}

	switch p := f.Payload.(type) {
	case wld.Mesh:
		fmt.Printf("Vertices:  %d\n", len(p.RawVertices))
		fmt.Printf("Polygons:  %d\n", len(p.Polygons))
	case wld.Material:
		fmt.Printf("Textures:  %s\n", strings.Join(res.World.TextureNames(p), ", "))
	case wld.SkeletonHierarchy:
		fmt.Printf("Bones:     %d\n", len(p.Bones))
	}
}
