package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/and161185/libdesk/internal/model"
	"github.com/and161185/libdesk/internal/service"
	"github.com/and161185/libdesk/internal/ui"
	"github.com/spf13/cobra"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// fetchable reports whether a terminal user could open u.
func fetchable(u string) bool {
	pu, err := url.Parse(u)
	return err == nil && (pu.Scheme == "http" || pu.Scheme == "https") && pu.Host != ""
}

func bookQueryFlags(cmd *cobra.Command, q *service.BookQuery) {
	fl := cmd.Flags()
	fl.Float64Var(&q.Page, "page", 1, "page number, 1-based")
	fl.IntVar(&q.Size, "size", service.DefaultPageSize, "page size")
	fl.StringVarP(&q.Query, "query", "q", "", "search text")
	fl.StringVar(&q.SortBy, "sort", service.SortCreatedAt, "sort field: createdAt, title or author")
	fl.StringVar(&q.SortOrder, "order", service.OrderDesc, "sort order: asc or desc")
}

func newBooksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Browse the catalog",
	}
	cmd.AddCommand(
		newBooksListCmd(a),
		newBooksShowCmd(a),
		newBooksTotalCmd(a),
		newBooksDiscoverCmd(a),
		newBooksBrowseCmd(a),
	)
	return cmd
}

func newBooksListCmd(a *app) *cobra.Command {
	var q service.BookQuery
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := a.catalog.ListBooks(cmd.Context(), q)
			if err != nil {
				return err
			}
			if a.asJSON {
				printJSON(a.out, page)
				return nil
			}
			printBooks(a.out, page.Content)
			printPageInfo(a.out, page.Info)
			return nil
		},
	}
	bookQueryFlags(cmd, &q)
	return cmd
}

func newBooksShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show BOOK_ID",
		Short: "Show one book with its cover link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			b, err := a.catalog.GetBook(cmd.Context(), id)
			if err != nil {
				return err
			}
			cover := a.docs.Cover(cmd.Context(), b)
			if !fetchable(cover.URL) {
				cover.MarkFailed()
			}
			if a.asJSON {
				printJSON(a.out, struct {
					Book     model.Book `json:"book"`
					CoverURL string     `json:"coverUrl,omitempty"`
				}{b, cover.URL})
				return nil
			}
			printBook(a.out, b, cover)
			return nil
		},
	}
}

func newBooksTotalCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "total",
		Short: "Print the catalog size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.catalog.TotalBooks(cmd.Context())
			if err != nil {
				return err
			}
			if a.asJSON {
				printJSON(a.out, map[string]int64{"total": n})
				return nil
			}
			fmt.Fprintf(a.out, "%d books\n", n)
			return nil
		},
	}
}

func newBooksDiscoverCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Show the newest additions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			books, err := a.catalog.Discover(cmd.Context())
			if err != nil {
				return err
			}
			if a.asJSON {
				printJSON(a.out, books)
				return nil
			}
			printBooks(a.out, books)
			return nil
		},
	}
}

func newBooksBrowseCmd(a *app) *cobra.Command {
	var q service.BookQuery
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Page through the catalog interactively",
		Long: `Page through the catalog interactively.

Commands: n (next), p (previous), a page number, /text (search),
s FIELD [asc|desc] (sort), q (quit).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return browse(cmd.Context(), a, q)
		},
	}
	bookQueryFlags(cmd, &q)
	return cmd
}

type pageResult struct {
	ticket ui.Ticket
	query  service.BookQuery
	page   model.Page[model.Book]
	err    error
}

// browse keeps reading input while fetches are in flight; a response, page
// or failure, is shown only if no newer request was issued after it.
func browse(ctx context.Context, a *app, q service.BookQuery) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var epoch ui.Epoch
	results := make(chan pageResult, 4)
	fetch := func(q service.BookQuery) {
		t := epoch.Enter()
		go func() {
			page, err := a.catalog.FetchBooks(ctx, q)
			select {
			case results <- pageResult{ticket: t, query: q, page: page, err: err}:
			case <-ctx.Done():
			}
		}()
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			s, err := a.prompt.raw()
			if err != nil {
				return
			}
			select {
			case lines <- s:
			case <-ctx.Done():
				return
			}
		}
	}()

	shown := q
	var info model.PageInfo
	fetch(q)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-results:
			epoch.Apply(r.ticket, func() {
				if r.err != nil {
					a.notice.Notify(ui.Notice{Level: ui.LevelError, Message: service.Message(r.err)})
					fmt.Fprint(a.out, "> ")
					return
				}
				shown, info = r.query, r.page.Info
				printBooks(a.out, r.page.Content)
				printPageInfo(a.out, r.page.Info)
				fmt.Fprint(a.out, "> ")
			})
		case s, ok := <-lines:
			if !ok {
				return nil
			}
			next, quit, err := browseCommand(s, shown, info)
			if quit {
				return nil
			}
			if err != nil {
				fmt.Fprintln(a.out, err)
				continue
			}
			fetch(next)
		}
	}
}

var errBrowseInput = errors.New("n, p, a page number, /text, s FIELD [asc|desc] or q")

// browseCommand turns one line of input into the next query.
func browseCommand(s string, cur service.BookQuery, info model.PageInfo) (next service.BookQuery, quit bool, err error) {
	next = cur
	if next.Page < 1 {
		next.Page = 1
	}
	c := service.Controls(info)
	s = strings.TrimSpace(s)
	switch {
	case s == "q" || s == "quit":
		return cur, true, nil
	case s == "n":
		if c.NextDisabled {
			return cur, false, errors.New("already on the last page")
		}
		next.Page = float64(c.Current + 1)
	case s == "p":
		if c.PrevDisabled {
			return cur, false, errors.New("already on the first page")
		}
		next.Page = float64(c.Current - 1)
	case strings.HasPrefix(s, "/"):
		next.Query = strings.TrimPrefix(s, "/")
		next.Page = 1
	case strings.HasPrefix(s, "s "):
		f := strings.Fields(s)
		next.SortBy = f[1]
		if len(f) > 2 {
			next.SortOrder = f[2]
		}
		next.Page = 1
	default:
		n, perr := strconv.Atoi(s)
		if perr != nil {
			return cur, false, errBrowseInput
		}
		if c.Total > 0 && (n < 1 || n > c.Total) {
			return cur, false, fmt.Errorf("page must be between 1 and %d", c.Total)
		}
		next.Page = float64(n)
	}
	return next, false, nil
}
