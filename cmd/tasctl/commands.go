package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/annel0/tas-replay/internal/input"
	"github.com/annel0/tas-replay/internal/logging"
	"github.com/annel0/tas-replay/internal/record"
	"github.com/annel0/tas-replay/internal/storage"
	"github.com/annel0/tas-replay/internal/tas"
	"github.com/annel0/tas-replay/internal/tasfile"
)

// decodedFile запись, прочитанная из файла любого формата
type decodedFile struct {
	rec    *record.Record
	header *tasfile.Header
	size   int
}

// readRecord разбирает файл в формате, заданном флагом --legacy. Без флага
// файл всегда читается как контейнер, так что неверная сигнатура даёт
// ErrBadMagic, а не попытку разбора старого формата.
func readRecord(path string, legacy bool) (*decodedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := &decodedFile{rec: record.New(name, path, legacy), size: len(data)}

	if legacy {
		if err := tasfile.DecodeLegacy(data, out.rec); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return out, nil
	}

	hdr, err := tasfile.Decode(data, out.rec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	out.header = &hdr
	return out, nil
}

func totalTime(rec *record.Record) time.Duration {
	var ms float64
	for _, f := range rec.Frames() {
		ms += float64(f.DeltaTime)
	}
	return time.Duration(ms * float64(time.Millisecond))
}

func inspectFile(ctx context.Context, out io.Writer, path string, legacy bool) error {
	f, err := readRecord(path, legacy)
	if err != nil {
		return err
	}
	rec := f.rec

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "file\t%s\n", path)
	fmt.Fprintf(w, "size\t%d bytes\n", f.size)
	if f.header == nil {
		fmt.Fprintf(w, "format\tlegacy\n")
	} else {
		compression := "zlib"
		if f.header.Flags&record.FlagZstd != 0 {
			compression = "zstd"
		}
		fmt.Fprintf(w, "format\tcontainer v%d\n", f.header.Version)
		fmt.Fprintf(w, "flags\t0x%08x\n", uint32(f.header.Flags))
		fmt.Fprintf(w, "compression\t%s\n", compression)
		fmt.Fprintf(w, "checksum\t0x%08x\n", f.header.Checksum)
		fmt.Fprintf(w, "deterministic\t%v\n", f.header.Flags&record.FlagNonDeterministic == 0)
		fmt.Fprintf(w, "map\t%s\n", rec.MapName())
	}
	fmt.Fprintf(w, "frames\t%d\n", rec.FrameCount())
	fmt.Fprintf(w, "duration\t%v\n", totalTime(rec).Round(time.Millisecond))
	fmt.Fprintf(w, "sectors\t%d\n", rec.SectorCount())
	for _, s := range rec.Sectors() {
		fmt.Fprintf(w, "  sector %d\tframes %d..%d, %d objects\n", s.ID, s.FrameStart, s.FrameEnd, len(s.Objects))
	}

	var used input.KeyState
	for _, fr := range rec.Frames() {
		used |= fr.Input
	}
	fmt.Fprintf(w, "keys used\t%s\n", used)
	return w.Flush()
}

func verifyFiles(ctx context.Context, out io.Writer, paths []string, legacy bool) error {
	var failed int
	for _, p := range paths {
		f, err := readRecord(p, legacy)
		if err != nil {
			failed++
			fmt.Fprintf(out, "❌ %s: %s (%v)\n", p, tasfile.Reason(err), err)
			continue
		}
		fmt.Fprintf(out, "✅ %s: %d frames\n", p, f.rec.FrameCount())
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed verification", failed, len(paths))
	}
	return nil
}

// convertFile читает src только как запись старого формата
func convertFile(ctx context.Context, out io.Writer, src, dst string, zstd bool) error {
	f, err := readRecord(src, true)
	if err != nil {
		return err
	}

	rec := f.rec
	rec.SetLegacy(false)
	rec.SetPath(dst)
	rec.SetMapName(strings.TrimSuffix(filepath.Base(dst), filepath.Ext(dst)))
	if zstd {
		rec.AddFlag(record.FlagZstd)
	}
	if err := tasfile.Save(ctx, rec); err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ %s -> %s (%d frames)\n", src, dst, rec.FrameCount())
	return nil
}

func openCatalog(dir string) (storage.CatalogRepo, error) {
	if dir == "" {
		return nil, nil
	}
	bc, err := storage.NewBadgerCatalog(dir)
	if err != nil {
		return nil, err
	}
	return bc, nil
}

func listRecords(ctx context.Context, out io.Writer, dir, catalogDir string, legacy bool) error {
	catalog, err := openCatalog(catalogDir)
	if err != nil {
		return err
	}
	if catalog != nil {
		defer catalog.Close()
	}

	lib := tas.NewLibrary(dir, legacy, catalog, nil, logging.NewWriterLogger("tasctl", io.Discard))
	if err := lib.Refresh(ctx); err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMAP\tFRAMES\tSAVED")
	for _, e := range lib.Records() {
		if e.Meta == nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\n", e.Name)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", e.Name, e.Meta.MapName, e.Meta.Frames, e.Meta.SavedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func reindex(ctx context.Context, out io.Writer, dir, catalogDir string, legacy bool) error {
	if catalogDir == "" {
		return errors.New("не задан каталог индекса")
	}
	catalog, err := openCatalog(catalogDir)
	if err != nil {
		return err
	}
	defer catalog.Close()

	files, err := filepath.Glob(filepath.Join(dir, "*"+tasfile.Ext))
	if err != nil {
		return err
	}

	var indexed int
	for _, p := range files {
		f, err := readRecord(p, legacy)
		if err != nil {
			fmt.Fprintf(out, "⚠️ пропущен %s: %v\n", p, err)
			continue
		}
		fi, err := os.Stat(p)
		if err != nil {
			return err
		}
		entry := storage.RecordEntry{
			Name:    f.rec.Name(),
			Path:    p,
			MapName: f.rec.MapName(),
			Frames:  f.rec.FrameCount(),
			Sectors: f.rec.SectorCount(),
			Flags:   uint32(f.rec.Flags()),
			Legacy:  legacy,
			Size:    fi.Size(),
			SavedAt: fi.ModTime().UTC(),
		}
		if err := catalog.Put(ctx, entry); err != nil {
			return err
		}
		indexed++
	}
	fmt.Fprintf(out, "✅ проиндексировано %d из %d\n", indexed, len(files))
	return nil
}
