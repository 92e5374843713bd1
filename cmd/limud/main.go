// Command limud is the CLI for the Chumash reading core.
// It resolves sefarim through the tiered cache, searches the corpus,
// manages the persistent cache, imports XML sources, and serves the
// local diagnostics panel.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/torahstudy/limud/core/cachedb"
	"github.com/torahstudy/limud/core/loader"
	"github.com/torahstudy/limud/core/prefetch"
	"github.com/torahstudy/limud/core/search"
	"github.com/torahstudy/limud/core/store"
	"github.com/torahstudy/limud/core/torah"
	"github.com/torahstudy/limud/internal/devserver"
	"github.com/torahstudy/limud/internal/hebrew"
	"github.com/torahstudy/limud/internal/importer"
	"github.com/torahstudy/limud/internal/logging"
	"github.com/torahstudy/limud/internal/ref"
	"github.com/torahstudy/limud/internal/userdata"
)

const version = "0.1.0"

// CLI defines the command-line interface for limud.
var CLI struct {
	// Global flags
	DataDir string `name:"data-dir" help:"Directory containing sefer JSON assets" default:"data" type:"path"`
	BaseURL string `name:"base-url" help:"Fetch assets over HTTP from this base URL instead of data-dir"`
	HomeDir string `name:"home-dir" help:"Directory for the cache database and personal records" default:".limud" type:"path"`
	Debug   bool   `help:"Enable debug logging"`

	Read     ReadCmd     `cmd:"" help:"Read pesukim by reference (e.g. 'bereishit 3:15')"`
	Search   SearchCmd   `cmd:"" help:"Search the corpus"`
	Cache    CacheGroup  `cmd:"" help:"Persistent cache operations"`
	Prefetch PrefetchCmd `cmd:"" help:"Warm both cache tiers for the whole corpus"`
	Notes    NotesGroup  `cmd:"" help:"Personal notes"`
	Backup   BackupGroup `cmd:"" help:"Export/import personal study records"`
	Import   ImportCmd   `cmd:"" help:"Import Tanach XML sources into JSON assets"`
	Serve    ServeCmd    `cmd:"" help:"Start the local diagnostics server"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// CacheGroup contains persistent cache operations.
type CacheGroup struct {
	Stats   CacheStatsCmd   `cmd:"" help:"Show cache statistics for both tiers"`
	Clear   CacheClearCmd   `cmd:"" help:"Remove all persisted sefarim"`
	Preload CachePreloadCmd `cmd:"" help:"Preload all sefarim into the persistent cache"`
}

// NotesGroup contains personal note operations.
type NotesGroup struct {
	Add    NoteAddCmd    `cmd:"" help:"Add a note to a pasuk"`
	List   NoteListCmd   `cmd:"" help:"List notes"`
	Delete NoteDeleteCmd `cmd:"" help:"Delete a note by id"`
}

// BackupGroup contains backup operations for personal records.
type BackupGroup struct {
	Export BackupExportCmd `cmd:"" help:"Write all personal records to a backup file"`
	Import BackupImportCmd `cmd:"" help:"Replace personal records from a backup file"`
}

// newStore builds the document store from global flags.
func newStore() store.Store {
	if CLI.BaseURL != "" {
		return store.NewHTTPStore(strings.TrimRight(CLI.BaseURL, "/"), nil)
	}
	return store.NewFSStore(CLI.DataDir)
}

// newCacheDB opens the persistent cache under the home directory.
func newCacheDB() (*cachedb.SeferCache, error) {
	if err := os.MkdirAll(CLI.HomeDir, 0o755); err != nil {
		return nil, fmt.Errorf("create home dir: %w", err)
	}
	return cachedb.Open(filepath.Join(CLI.HomeDir, "cache.db"))
}

// newLoader wires the full tier stack.
func newLoader() (*loader.Loader, *cachedb.SeferCache, error) {
	db, err := newCacheDB()
	if err != nil {
		return nil, nil, err
	}
	return loader.New(db, newStore()), db, nil
}

func newUserdata() (*userdata.Store, error) {
	return userdata.Open(filepath.Join(CLI.HomeDir, "userdata"))
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ReadCmd prints pesukim for a reference.
type ReadCmd struct {
	Ref        string `arg:"" help:"Reference, e.g. 'bereishit 3:15' or 'shemot 2:1-10'"`
	Commentary bool   `help:"Include commentary questions and perushim"`
}

func (c *ReadCmd) Run() error {
	r, err := ref.Parse(c.Ref)
	if err != nil {
		return err
	}
	start, err := r.Start()
	if err != nil {
		return err
	}
	end, err := r.End()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	l, db, err := newLoader()
	if err != nil {
		return err
	}
	defer db.Close()

	sefer, err := l.Resolve(ctx, start.Sefer)
	if err != nil {
		return fmt.Errorf("could not load sefer (check data dir, or retry): %w", err)
	}

	printed := 0
	for _, p := range torah.Flatten(sefer) {
		if !inRange(p, start, end) {
			continue
		}
		fmt.Printf("%s %s:%s  %s\n", p.SeferName,
			hebrew.ToNumeral(p.Perek), hebrew.ToNumeral(p.PasukNum), p.Text)
		if c.Commentary {
			printCommentary(p)
		}
		printed++
	}
	if printed == 0 {
		return fmt.Errorf("no pesukim match %q", r.String())
	}
	return nil
}

// inRange reports whether a pasuk falls inside [start, end] where a
// zero perek/pasuk bound means "whole sefer"/"whole perek".
func inRange(p torah.FlatPasuk, start, end ref.Position) bool {
	if start.Perek == 0 {
		return true
	}
	after := p.Perek > start.Perek || (p.Perek == start.Perek && (start.Pasuk == 0 || p.PasukNum >= start.Pasuk))
	endPerek := end.Perek
	if endPerek == 0 {
		endPerek = start.Perek
	}
	before := p.Perek < endPerek || (p.Perek == endPerek && (end.Pasuk == 0 || p.PasukNum <= end.Pasuk))
	return after && before
}

func printCommentary(p torah.FlatPasuk) {
	for _, content := range p.Content {
		if content.Title != "" {
			fmt.Printf("    [%s]\n", content.Title)
		}
		for _, q := range content.Questions {
			fmt.Printf("    ? %s\n", q.Text)
			for _, perush := range q.Perushim {
				fmt.Printf("      %s: %s\n", perush.Mefaresh, perush.Text)
			}
		}
	}
}

// SearchCmd searches the corpus.
type SearchCmd struct {
	Query    string `arg:"" help:"Search query"`
	Sefer    int    `help:"Restrict to a sefer (1-5)"`
	Parsha   int    `help:"Restrict to a parsha id"`
	Perek    int    `help:"Restrict to a perek"`
	Mefaresh string `help:"Restrict perush matches to one mefaresh"`
	Type     string `help:"Search scope: all, pasuk, question, perush" enum:"all,pasuk,question,perush" default:"all"`
}

func (c *SearchCmd) Run() error {
	ctx, cancel := signalContext()
	defer cancel()

	l, db, err := newLoader()
	if err != nil {
		return err
	}
	defer db.Close()

	corpus := torah.FlattenAll(l.ResolveAll(ctx))
	if len(corpus) == 0 {
		return fmt.Errorf("no sefarim could be loaded")
	}

	results := search.Search(corpus, c.Query, search.Filters{
		Sefer:    c.Sefer,
		Parsha:   c.Parsha,
		Perek:    c.Perek,
		Mefaresh: c.Mefaresh,
		Scope:    search.Scope(c.Type),
	})
	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, p := range results {
		fmt.Printf("%2d. %s  %s\n", i+1, p.Ref(), p.Text)
	}
	return nil
}

// CacheStatsCmd shows statistics for both cache tiers.
type CacheStatsCmd struct{}

func (c *CacheStatsCmd) Run() error {
	ctx, cancel := signalContext()
	defer cancel()

	l, db, err := newLoader()
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.Stats(ctx)
	if err != nil {
		return err
	}
	mem := l.MemStats()
	fmt.Printf("Persistent cache: %d sefarim, %d bytes\n", stats.CachedCount, stats.TotalBytes)
	if stats.OldestMs > 0 {
		fmt.Printf("  oldest record:  %d ms epoch\n", stats.OldestMs)
	}
	fmt.Printf("Memory cache:     %d sefarim (%d hits, %d misses)\n", mem.Size, mem.Hits, mem.Misses)
	return nil
}

// CacheClearCmd removes all persisted sefarim.
type CacheClearCmd struct{}

func (c *CacheClearCmd) Run() error {
	ctx, cancel := signalContext()
	defer cancel()

	db, err := newCacheDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Clear(ctx); err != nil {
		return err
	}
	fmt.Println("Persistent cache cleared.")
	return nil
}

// CachePreloadCmd fills the persistent cache for the whole corpus.
type CachePreloadCmd struct{}

func (c *CachePreloadCmd) Run() error {
	ctx, cancel := signalContext()
	defer cancel()

	db, err := newCacheDB()
	if err != nil {
		return err
	}
	defer db.Close()

	err = db.PreloadAll(ctx, newStore(), func(current, total int) {
		fmt.Printf("Preloaded %d/%d\n", current, total)
	})
	return err
}

// PrefetchCmd warms both tiers, paced like the background scheduler.
type PrefetchCmd struct {
	Pacing int `help:"Pacing between loads in milliseconds" default:"1000"`
}

func (c *PrefetchCmd) Run() error {
	ctx, cancel := signalContext()
	defer cancel()

	l, db, err := newLoader()
	if err != nil {
		return err
	}
	defer db.Close()

	sched := prefetch.New(l,
		prefetch.WithSettleDelay(0),
		prefetch.WithPacing(time.Duration(c.Pacing)*time.Millisecond),
		prefetch.WithProgress(func(seferID, done, total int) {
			fmt.Printf("Prefetched sefer %d (%d/%d)\n", seferID, done, total)
		}),
	)
	sched.Start(ctx, 0)
	defer sched.Stop()

	select {
	case <-sched.Done():
	case <-ctx.Done():
	}
	return nil
}

// NoteAddCmd adds a note to a pasuk.
type NoteAddCmd struct {
	Pasuk   string `arg:"" help:"Pasuk id, e.g. '1:3:15' (sefer:perek:pasuk)"`
	Content string `arg:"" help:"Note text"`
}

func (c *NoteAddCmd) Run() error {
	ud, err := newUserdata()
	if err != nil {
		return err
	}
	note := ud.AddNote(c.Pasuk, c.Content)
	fmt.Printf("Added note %s\n", note.ID)
	return nil
}

// NoteListCmd lists notes, optionally for one pasuk.
type NoteListCmd struct {
	Pasuk string `help:"Only notes for this pasuk id"`
}

func (c *NoteListCmd) Run() error {
	ud, err := newUserdata()
	if err != nil {
		return err
	}
	notes := ud.Notes()
	if c.Pasuk != "" {
		notes = ud.NotesForPasuk(c.Pasuk)
	}
	if len(notes) == 0 {
		fmt.Println("No notes.")
		return nil
	}
	for _, n := range notes {
		fmt.Printf("%s  [%s]  %s\n", n.ID, n.PasukID, n.Content)
	}
	return nil
}

// NoteDeleteCmd deletes a note.
type NoteDeleteCmd struct {
	ID string `arg:"" help:"Note id"`
}

func (c *NoteDeleteCmd) Run() error {
	ud, err := newUserdata()
	if err != nil {
		return err
	}
	return ud.DeleteNote(c.ID)
}

// BackupExportCmd writes all personal records to a file.
type BackupExportCmd struct {
	Out string `arg:"" help:"Output path" type:"path"`
}

func (c *BackupExportCmd) Run() error {
	ud, err := newUserdata()
	if err != nil {
		return err
	}
	if err := ud.ExportToFile(c.Out); err != nil {
		return err
	}
	fmt.Printf("Exported personal records to %s\n", c.Out)
	return nil
}

// BackupImportCmd restores personal records from a file.
type BackupImportCmd struct {
	In string `arg:"" help:"Backup file path" type:"existingfile"`
}

func (c *BackupImportCmd) Run() error {
	ud, err := newUserdata()
	if err != nil {
		return err
	}
	if err := ud.ImportFromFile(c.In); err != nil {
		return err
	}
	fmt.Println("Personal records imported.")
	return nil
}

// ImportCmd converts Tanach XML sources into JSON assets.
type ImportCmd struct {
	Files []string `arg:"" help:"XML source files" type:"existingfile"`
	Out   string   `help:"Asset output directory" default:"data" type:"path"`
}

func (c *ImportCmd) Run() error {
	if err := os.MkdirAll(c.Out, 0o755); err != nil {
		return err
	}
	for _, file := range c.Files {
		sefer, err := importer.ImportFile(file)
		if err != nil {
			return err
		}
		path, err := importer.WriteAsset(c.Out, sefer)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %s -> %s (%d pesukim)\n", file, path, sefer.PasukCount())
	}
	return nil
}

// ServeCmd starts the diagnostics server and a background prefetch.
type ServeCmd struct {
	Port     int  `help:"Port to listen on" default:"8799"`
	Prefetch bool `help:"Run a background prefetch while serving" default:"true"`
}

func (c *ServeCmd) Run() error {
	ctx, cancel := signalContext()
	defer cancel()

	l, db, err := newLoader()
	if err != nil {
		return err
	}
	defer db.Close()

	srv := devserver.New(l, db, c.Port)
	if c.Prefetch {
		hub := srv.Hub()
		sched := prefetch.New(l, prefetch.WithProgress(func(seferID, done, total int) {
			hub.Broadcast(devserver.ProgressMessage{
				Type:      "progress",
				Operation: "prefetch",
				SeferID:   seferID,
				Done:      done,
				Total:     total,
			})
		}))
		sched.Start(ctx, 0)
		defer sched.Stop()
	}
	return srv.ListenAndServe(ctx)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("limud version %s\n", version)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("limud"),
		kong.Description("Chumash reading core - tiered cache, prefetch, and search"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	if CLI.Debug {
		logging.InitLogger(logging.LevelDebug, logging.FormatText)
	}
	devserver.Version = version
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
