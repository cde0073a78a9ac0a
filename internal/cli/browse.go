package cli

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pageza/recipelens/backend/internal/debounce"
	"github.com/pageza/recipelens/backend/internal/detail"
	"github.com/pageza/recipelens/backend/internal/exclusion"
	"github.com/pageza/recipelens/backend/internal/httpclient"
	"github.com/pageza/recipelens/backend/internal/recipeapi"
	"github.com/pageza/recipelens/backend/internal/search"
)

const browseHelp = `Commands:
  find <text>      search as you type; only the last query within the debounce window is sent
  page <n>         jump to a result page (also: next, prev)
  open <id>        load a recipe; a newer open cancels a slower one
  retry            reload the last recipe after an error
  show             print the recipe as currently displayed
  toggle <id>      select or deselect an ingredient for exclusion
  apply            exclude the selected ingredients and recalculate nutrition
  remove <id>      bring back an excluded ingredient
  reset            restore the original recipe
  quit             leave
`

func (a *app) browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Interactive search, detail and ingredient exclusion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b := newBrowser(a.api, cmd.OutOrStdout(), a.opts.Debounce, a.logger)
			return b.run(cmd.Context(), cmd.InOrStdin())
		},
	}
}

// browser is the interactive session. All state except output and the
// loader is owned by the run loop goroutine.
type browser struct {
	api    recipeapi.API
	logger *zap.Logger

	outMu sync.Mutex
	out   io.Writer

	debounce *debounce.Debouncer
	fire     chan struct{}
	current  search.State
	pages    int
	next     search.State
	dirty    bool

	loader  *detail.Loader
	started chan struct{}
	loads   sync.WaitGroup
	session *exclusion.Session
}

func newBrowser(api recipeapi.API, out io.Writer, delay time.Duration, logger *zap.Logger) *browser {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &browser{
		api:      api,
		logger:   logger,
		out:      out,
		debounce: debounce.New(delay),
		fire:     make(chan struct{}, 1),
		started:  make(chan struct{}),
		session:  exclusion.NewSession(api, nil),
	}
	b.loader = detail.NewLoader(api, b.onDetail)
	return b
}

func (b *browser) run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer b.debounce.Stop()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	b.printf("Type 'help' for commands.\n")
	for {
		select {
		case <-ctx.Done():
			b.stopLoads()
			return nil
		case <-b.fire:
			b.flushSearch(ctx)
		case line, ok := <-lines:
			if !ok {
				// End of scripted input: run what is still scheduled.
				b.flushSearch(ctx)
				b.loads.Wait()
				return nil
			}
			if b.handle(ctx, line) {
				b.stopLoads()
				return nil
			}
		}
	}
}

// handle runs one command line and reports whether the user asked to quit.
func (b *browser) handle(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	args := fields[1:]

	switch strings.ToLower(fields[0]) {
	case "find", "search":
		b.find(strings.Join(args, " "))
	case "page":
		if n, ok := b.intArg(args); ok {
			b.gotoPage(ctx, int(n))
		}
	case "next":
		b.gotoPage(ctx, b.current.Page+1)
	case "prev":
		b.gotoPage(ctx, b.current.Page-1)
	case "open":
		if id, ok := b.intArg(args); ok {
			b.open(ctx, id)
		}
	case "retry":
		b.retry(ctx)
	case "show":
		b.loads.Wait()
		b.showSession()
	case "toggle":
		if id, ok := b.intArg(args); ok {
			b.toggle(id)
		}
	case "apply":
		b.loads.Wait()
		b.report(b.session.Apply(ctx))
	case "remove":
		if id, ok := b.intArg(args); ok {
			b.loads.Wait()
			b.report(b.session.RemoveExclusion(ctx, id))
		}
	case "reset":
		b.loads.Wait()
		b.session.Reset()
		b.showSession()
	case "help":
		b.printf("%s", browseHelp)
	case "quit", "exit":
		return true
	default:
		b.printf("Unknown command %q. Type 'help' for commands.\n", fields[0])
	}
	return false
}

// find schedules a search. Blank queries are rejected without a request.
func (b *browser) find(text string) {
	if err := search.ValidateQuery(text); err != nil {
		b.debounce.Cancel()
		b.dirty = false
		b.printf("%s\n", capitalize(err.Error()))
		return
	}
	b.next = b.current.WithQuery(text)
	b.dirty = true
	b.debounce.Trigger(func() {
		select {
		case b.fire <- struct{}{}:
		default:
		}
	})
}

func (b *browser) flushSearch(ctx context.Context) {
	b.debounce.Cancel()
	if !b.dirty {
		return
	}
	b.dirty = false
	b.runSearch(ctx, b.next)
}

func (b *browser) gotoPage(ctx context.Context, n int) {
	b.flushSearch(ctx)
	if b.current.Query == "" {
		b.printf("Search for something first.\n")
		return
	}
	if n < 1 || (b.pages > 0 && n > b.pages) {
		b.printf("No page %d.\n", n)
		return
	}
	b.runSearch(ctx, b.current.WithPage(n))
}

func (b *browser) runSearch(ctx context.Context, state search.State) {
	resp, err := b.api.SearchRecipes(ctx, state.Query, state.Page, recipeapi.DefaultPageSize)
	if err != nil {
		if !httpclient.IsCanceled(err) {
			b.printf("Error: %s\n", httpclient.UserMessage(err))
		}
		return
	}

	b.current = state
	b.pages = resp.TotalPages
	if b.pages == 0 {
		b.pages = search.TotalPages(resp.TotalResults, recipeapi.DefaultPageSize)
	}
	b.logger.Debug("search finished", zap.String("state", state.Encode()), zap.Int("results", resp.TotalResults))

	b.write(func(w io.Writer) {
		fprintf(w, "Results for ?%s\n", state.Encode())
		printResults(w, state, resp)
	})
}

// open starts loading id and returns once the load has begun, so a later
// open always supersedes this one.
func (b *browser) open(ctx context.Context, id int64) {
	b.startLoad(func() (detail.State, error) { return b.loader.Load(ctx, id) })
}

// retry waits for the load in flight so its outcome is reported first.
func (b *browser) retry(ctx context.Context) {
	b.loads.Wait()
	if b.loader.State().ID == 0 {
		b.printf("Open a recipe first.\n")
		return
	}
	b.startLoad(func() (detail.State, error) { return b.loader.Retry(ctx) })
}

func (b *browser) startLoad(load func() (detail.State, error)) {
	b.loads.Add(1)
	go func() {
		defer b.loads.Done()
		state, err := load()
		if err == nil && state.Recipe != nil {
			b.session.Open(state.Recipe)
		}
	}()
	<-b.started
}

func (b *browser) onDetail(s detail.State) {
	switch {
	case s.Loading:
		b.printf("Loading recipe %d...\n", s.ID)
		b.started <- struct{}{}
	case s.Err != "":
		b.printf("Error: %s Type 'retry' to try again.\n", s.Err)
	case s.Recipe != nil:
		b.write(func(w io.Writer) { printRecipe(w, s.Recipe, nil) })
	}
}

func (b *browser) stopLoads() {
	b.loader.Cancel()
	b.loads.Wait()
}

func (b *browser) toggle(id int64) {
	b.loads.Wait()
	if err := b.session.Toggle(id); err != nil {
		b.printf("Error: %s\n", capitalize(err.Error()))
		return
	}

	state := b.session.Snapshot()
	names := make([]string, 0, len(state.Pending))
	for _, pid := range state.Pending {
		if ing, ok := state.Original.Ingredient(pid); ok {
			names = append(names, ing.Name)
		}
	}
	if len(names) == 0 {
		b.printf("Nothing selected.\n")
		return
	}
	b.printf("Selected: %s\n", strings.Join(names, ", "))
}

// report prints the outcome of an apply or remove. Failures leave the
// displayed recipe unchanged.
func (b *browser) report(err error) {
	state := b.session.Snapshot()
	switch {
	case err == nil:
		b.showSession()
	case state.Error != "":
		b.printf("Error: %s\n", state.Error)
	case httpclient.IsCanceled(err):
	default:
		b.printf("Error: %s\n", capitalize(err.Error()))
	}
}

func (b *browser) showSession() {
	state := b.session.Snapshot()
	if state.Recipe == nil {
		b.printf("Open a recipe first.\n")
		return
	}
	b.write(func(w io.Writer) { printRecipe(w, state.Recipe, state.Excluded) })
}

func (b *browser) intArg(args []string) (int64, bool) {
	if len(args) != 1 {
		b.printf("Expected one number.\n")
		return 0, false
	}
	n, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.printf("%q is not a number.\n", args[0])
		return 0, false
	}
	return n, true
}

func (b *browser) printf(format string, args ...any) {
	b.write(func(w io.Writer) { fprintf(w, format, args...) })
}

func (b *browser) write(fn func(io.Writer)) {
	b.outMu.Lock()
	defer b.outMu.Unlock()
	fn(b.out)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
