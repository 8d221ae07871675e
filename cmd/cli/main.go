package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"recetas/internal/detail"
	"recetas/internal/events"
	"recetas/internal/export"
	"recetas/internal/favorites"
	"recetas/internal/filter"
	"recetas/internal/page"
	"recetas/internal/recipes"
	"recetas/internal/session"
	"recetas/internal/storage"
	"recetas/pkg/models"
	"recetas/pkg/utils"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// options are the global flags, defaulted from the config file and
// RECETAS_* variables.
type options struct {
	catalog   string
	page      string
	driver    string
	dataPath  string
	scope     string
	scopePath string
	asJSON    bool
}

type scopeData struct {
	Scope string `json:"scope"`
}

func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	cfg, err := utils.LoadConfig()
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	var opts options
	global := flag.NewFlagSet("recetas", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	global.SetInterspersed(false)
	global.StringVar(&opts.catalog, "catalog", cfg.Catalog, "catalog path or URL")
	global.StringVar(&opts.page, "page", cfg.Page, "host page HTML")
	global.StringVar(&opts.driver, "storage", cfg.Storage.Driver, "storage driver: sqlite, file or memory")
	global.StringVar(&opts.dataPath, "data", cfg.Storage.Path, "storage path")
	global.StringVar(&opts.scope, "scope", "", "browsing context (default: the saved one)")
	global.StringVar(&opts.scopePath, "scope-file", defaultScopePath(), "saved scope file")
	global.BoolVar(&opts.asJSON, "json", false, "print JSON")

	if err := global.Parse(args); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		printUsage(errOut)
		return 2
	}
	rest := global.Args()
	if len(rest) == 0 {
		printUsage(errOut)
		return 2
	}

	cmd, sub := rest[0], ""
	if len(rest) > 1 {
		sub = rest[1]
	}
	var subArgs []string
	if len(rest) > 2 {
		subArgs = rest[2:]
	}

	switch cmd {
	case "recipes":
		err = handleRecipes(ctx, opts, sub, subArgs, out)
	case "favorites":
		err = handleFavorites(ctx, opts, sub, subArgs, out)
	case "page":
		err = handlePage(ctx, opts, sub, subArgs, out)
	case "scope":
		err = handleScope(opts, sub, out)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		printUsage(errOut)
		return 2
	}

	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		var ue usageError
		if errors.As(err, &ue) {
			return 2
		}
		return 1
	}
	return 0
}

type usageError string

func (e usageError) Error() string { return string(e) }

func handleRecipes(ctx context.Context, opts options, sub string, args []string, out io.Writer) error {
	idx := recipes.NewIndex()
	if err := idx.Load(ctx, opts.catalog); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	switch sub {
	case "list":
		fs := flag.NewFlagSet("recipes list", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		category := fs.String("category", "", "category filter")
		q := fs.StringP("query", "q", "", "search text")
		if err := fs.Parse(args); err != nil {
			return usageError(err.Error())
		}

		sel := filter.FromQuery(*category)
		var items []models.Recipe
		for _, r := range idx.All() {
			if filter.Match(recipes.Card(r), sel, *q) {
				items = append(items, r)
			}
		}
		if opts.asJSON {
			return printJSON(out, items)
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, r := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Title, r.Category)
		}
		return tw.Flush()

	case "show", "title":
		if len(args) == 0 {
			return usageError("recipes " + sub + " requires an argument")
		}
		var (
			r  models.Recipe
			ok bool
		)
		if sub == "show" {
			r, ok = idx.GetByID(args[0])
		} else {
			r, ok = idx.GetByTitle(strings.Join(args, " "))
		}
		if !ok {
			return fmt.Errorf("recipe %q not found", strings.Join(args, " "))
		}
		if opts.asJSON {
			return printJSON(out, r)
		}
		v := detail.Build(ctx, idx, nil, events.RecipeOpen{Key: r.ID, Title: r.Title})
		printView(out, v)
		return nil

	case "categories":
		for _, c := range recipes.Categories(idx.All()) {
			fmt.Fprintln(out, c)
		}
		return nil

	default:
		return usageError("recipes list|show|title|categories")
	}
}

func handleFavorites(ctx context.Context, opts options, sub string, args []string, out io.Writer) error {
	scope, err := resolveScope(opts)
	if err != nil {
		return err
	}

	kv, err := storage.Open(opts.driver, opts.dataPath)
	if err != nil {
		return err
	}
	defer kv.Close()

	store := favorites.New(kv, scope, events.NewBus())

	switch sub {
	case "list":
		items := store.List(ctx)
		if opts.asJSON {
			return printJSON(out, items)
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, e := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Key, e.Title, e.Image)
		}
		return tw.Flush()

	case "toggle":
		fs := flag.NewFlagSet("favorites toggle", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		title := fs.String("title", "", "display title")
		image := fs.String("image", "", "display image")
		if err := fs.Parse(args); err != nil {
			return usageError(err.Error())
		}
		if fs.NArg() == 0 {
			return usageError("favorites toggle requires a key")
		}
		key := fs.Arg(0)

		meta := models.FavoriteMeta{Title: *title, Image: *image}
		if meta.Title == "" || meta.Image == "" {
			// display data from the catalog when it is reachable
			idx := recipes.NewIndex()
			if idx.Load(ctx, opts.catalog) == nil {
				if r, ok := idx.GetByID(key); ok {
					if meta.Title == "" {
						meta.Title = r.Title
					}
					if meta.Image == "" {
						meta.Image = r.Image
					}
				}
			}
		}

		on, err := store.Toggle(ctx, key, meta)
		if err != nil {
			return err
		}
		if on {
			fmt.Fprintf(out, "★ %s added (%d favorites)\n", key, store.Count(ctx))
		} else {
			fmt.Fprintf(out, "☆ %s removed (%d favorites)\n", key, store.Count(ctx))
		}
		return nil

	case "remove":
		if len(args) == 0 {
			return usageError("favorites remove requires a key")
		}
		removed, err := store.Remove(ctx, args[0])
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("%s is not a favorite", args[0])
		}
		fmt.Fprintf(out, "☆ %s removed\n", args[0])
		return nil

	case "clear":
		if err := store.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "favorites cleared")
		return nil

	case "export":
		if len(args) == 0 {
			return usageError("favorites export requires an output path (.csv or .xlsx)")
		}
		items := store.List(ctx)
		if err := export.SaveFile(args[0], items); err != nil {
			return err
		}
		fmt.Fprintf(out, "✅ exported %d favorites to %s\n", len(items), args[0])
		return nil

	default:
		return usageError("favorites list|toggle|remove|clear|export")
	}
}

func handlePage(ctx context.Context, opts options, sub string, args []string, out io.Writer) error {
	if sub != "cards" {
		return usageError("page cards")
	}

	fs := flag.NewFlagSet("page cards", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	category := fs.String("category", "", "category filter")
	q := fs.StringP("query", "q", "", "search text")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}

	p, err := page.ParseFile(opts.page)
	if err != nil {
		return err
	}

	var favs page.FavoriteChecker
	if scope, err := resolveScope(opts); err == nil {
		kv, err := storage.Open(opts.driver, opts.dataPath)
		if err != nil {
			return err
		}
		defer kv.Close()
		favs = favorites.New(kv, scope, nil)
	}

	states := page.Sync(ctx, p, favs, filter.FromQuery(*category), *q)
	if opts.asJSON {
		return printJSON(out, states)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, s := range states {
		if !s.Visible {
			continue
		}
		star := " "
		if s.Favorite {
			star = "★"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", star, s.ID, s.Title, s.Category)
	}
	return tw.Flush()
}

func handleScope(opts options, sub string, out io.Writer) error {
	switch sub {
	case "new":
		scope := session.NewScope()
		if err := saveScope(opts.scopePath, scope); err != nil {
			return err
		}
		fmt.Fprintln(out, scope)
		return nil
	case "show", "":
		scope, err := resolveScope(opts)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, scope)
		return nil
	default:
		return usageError("scope new|show")
	}
}

// resolveScope picks --scope, then the saved scope, and creates and saves a
// new one the first time.
func resolveScope(opts options) (string, error) {
	if opts.scope != "" {
		return opts.scope, nil
	}
	if s, err := readScope(opts.scopePath); err == nil && s != "" {
		return s, nil
	}
	scope := session.NewScope()
	if err := saveScope(opts.scopePath, scope); err != nil {
		return "", fmt.Errorf("save scope: %w", err)
	}
	return scope, nil
}

func defaultScopePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.recetas-scope.json"
	}
	return filepath.Join(home, ".recetas", "scope.json")
}

func saveScope(path, scope string) error {
	if scope == "" {
		return errors.New("empty scope")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(scopeData{Scope: scope}, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(data))
}

func readScope(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var sd scopeData
	if err := json.Unmarshal(b, &sd); err != nil {
		return "", err
	}
	return sd.Scope, nil
}

func printView(out io.Writer, v detail.View) {
	fmt.Fprintf(out, "%s (%s)\n", v.Title, v.Key)
	if v.Image != "" {
		fmt.Fprintln(out, v.Image)
	}

	fmt.Fprintln(out, "\nIngredientes:")
	if v.IngredientsNote != "" {
		fmt.Fprintln(out, "  "+v.IngredientsNote)
	}
	for _, in := range v.Ingredients {
		fmt.Fprintln(out, "  - "+in)
	}

	fmt.Fprintln(out, "\nPasos:")
	if v.StepsNote != "" {
		fmt.Fprintln(out, "  "+v.StepsNote)
	}
	for i, st := range v.Steps {
		fmt.Fprintf(out, "  %d. %s\n", i+1, st)
	}
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "recetas [flags] <command> [subcommand] [flags]")
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  recipes list|show|title|categories")
	fmt.Fprintln(w, "  favorites list|toggle|remove|clear|export")
	fmt.Fprintln(w, "  page cards")
	fmt.Fprintln(w, "  scope new|show")
	fmt.Fprintln(w, "flags:")
	fmt.Fprintln(w, "  --catalog, --page, --storage, --data, --scope, --scope-file, --json")
}
