// Package zip packages build output into zip archives.
package zip

import (
	"archive/zip"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/vk/buildgridgo/internal/buildctx"
	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Directory adds the files under Source to the archive below Target.
// Include and Exclude are glob patterns matched against file names.
type Directory struct {
	Source    string   `bggo:"source"`
	Target    string   `bggo:"target,optional"`
	Recursive bool     `bggo:"recursive,optional"`
	Include   []string `bggo:"include,optional"`
	Exclude   []string `bggo:"exclude,optional"`
}

// Input defines the arguments for the zip action. Ignore holds gitignore
// style patterns; IgnoreFile names a file of them. Both apply to paths
// relative to each directory's source.
type Input struct {
	Destination string      `bggo:"destination"`
	Directories []Directory `bggo:"directories"`
	Ignore      []string    `bggo:"ignore,optional"`
	IgnoreFile  string      `bggo:"ignore_file,optional"`
}

// Output defines the data structure returned by the action.
type Output struct {
	Path  string   `mapstructure:"path"`
	Files []string `mapstructure:"files"`
}

type entry struct {
	name string
	src  string
}

// Package writes the archive. Entries are stored in lexical order and a
// duplicate entry name is an error.
func Package(ctx context.Context, _ *buildctx.Context, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx)
	if len(input.Directories) == 0 {
		return nil, errors.New("at least one directory is required")
	}

	patterns, err := ignorePatterns(input.Ignore, input.IgnoreFile)
	if err != nil {
		return nil, err
	}
	matcher := gitignore.NewMatcher(patterns)

	dest, err := filepath.Abs(input.Destination)
	if err != nil {
		return nil, err
	}

	var entries []entry
	seen := make(map[string]string)
	for _, dir := range input.Directories {
		found, err := collect(dir, matcher, dest)
		if err != nil {
			return nil, err
		}
		for _, e := range found {
			if prev, dup := seen[e.name]; dup {
				return nil, fmt.Errorf("archive entry %q would come from both %s and %s", e.name, prev, e.src)
			}
			seen[e.name] = e.src
			entries = append(entries, e)
		}
		logger.Debug("Collected directory", "source", dir.Source, "files", len(found))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	if err := writeArchive(ctx, dest, entries); err != nil {
		return nil, err
	}

	out := &Output{Path: input.Destination, Files: make([]string, len(entries))}
	for i, e := range entries {
		out.Files[i] = e.name
	}
	logger.Info("Created package", "path", input.Destination, "files", len(entries))
	return out, nil
}

func ignorePatterns(lines []string, file string) ([]gitignore.Pattern, error) {
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read ignore file: %w", err)
		}
		defer f.Close()
		sc := bufio.NewScanner(f)
		var fromFile []string
		for sc.Scan() {
			fromFile = append(fromFile, sc.Text())
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("failed to read ignore file %s: %w", file, err)
		}
		lines = append(fromFile, lines...)
	}

	var patterns []gitignore.Pattern
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return patterns, nil
}

func collect(dir Directory, matcher gitignore.Matcher, dest string) ([]entry, error) {
	root, err := filepath.Abs(dir.Source)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("package source: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("package source %s is not a directory", dir.Source)
	}

	var entries []entry
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		segments := strings.Split(filepath.ToSlash(rel), "/")

		if d.IsDir() {
			if !dir.Recursive || matcher.Match(segments, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if p == dest || !d.Type().IsRegular() || matcher.Match(segments, false) {
			return nil
		}
		if !selected(d.Name(), dir.Include, dir.Exclude) {
			return nil
		}
		entries = append(entries, entry{
			name: path.Join(filepath.ToSlash(dir.Target), filepath.ToSlash(rel)),
			src:  p,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir.Source, err)
	}
	return entries, nil
}

func selected(name string, include, exclude []string) bool {
	if len(include) > 0 && !matchAny(name, include) {
		return false
	}
	return !matchAny(name, exclude)
}

func matchAny(name string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := filepath.Match(g, name); ok {
			return true
		}
	}
	return false
}

func writeArchive(ctx context.Context, dest string, entries []entry) (err error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create package directory: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create package: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dest)
		}
	}()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addFile(zw, e); err != nil {
			return err
		}
	}
	return zw.Close()
}

func addFile(zw *zip.Writer, e entry) error {
	src, err := os.Open(e.src)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = e.name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("adding %s: %w", e.src, err)
	}
	return nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("zip", registry.Typed("Packages directories into a zip archive.", Package))
}
