package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/and161185/libdesk/internal/model"
	"github.com/and161185/libdesk/internal/service"
	"github.com/and161185/libdesk/internal/ui"
)

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// routeHint names the command that plays the role of an in-app route.
func routeHint(r ui.Route) string {
	switch r {
	case ui.RouteLogin:
		return "libdesk login"
	case ui.RouteDashboard, ui.RouteBorrows:
		return "libdesk borrow list"
	case ui.RouteAdmin:
		return "libdesk books total; libdesk membership total"
	}
	return "libdesk books list"
}

// follow carries out a navigation command: external URLs are printed for
// the user to open, in-app routes become a hint after the delay.
func (a *app) follow(ctx context.Context, nav ui.Navigation) error {
	if nav.External != "" {
		fmt.Fprintf(a.out, "Continue in your browser:\n  %s\n", nav.External)
		return nil
	}
	if nav.After > 0 {
		t := time.NewTimer(nav.After)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	if msg, ok := a.flash.Take(); ok {
		fmt.Fprintln(a.out, msg)
	}
	fmt.Fprintf(a.out, "Next: %s\n", routeHint(nav.To))
	return nil
}

func optInt(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}

func date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func availability(b model.Book) string {
	switch {
	case service.Borrowable(b):
		return "available"
	case service.Reservable(b):
		return "reservable"
	}
	return "unavailable"
}

func printBooks(w io.Writer, books []model.Book) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tGENRE\tCOPIES\tSTATUS")
	for _, b := range books {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s/%s\t%s\n",
			b.ID, b.Title, b.Author, b.Genre, optInt(b.AvailableCopies), optInt(b.TotalCopies), availability(b))
	}
	_ = tw.Flush()
}

func printBook(w io.Writer, b model.Book, cover service.Cover) {
	fmt.Fprintf(w, "#%d %s\n", b.ID, b.Title)
	fmt.Fprintf(w, "  author:    %s\n", b.Author)
	fmt.Fprintf(w, "  publisher: %s\n", b.Publisher)
	fmt.Fprintf(w, "  isbn:      %s\n", b.ISBN)
	fmt.Fprintf(w, "  genre:     %s\n", b.Genre)
	fmt.Fprintf(w, "  copies:    %s of %s (%s)\n", optInt(b.AvailableCopies), optInt(b.TotalCopies), availability(b))
	if cover.ShowImage() {
		fmt.Fprintf(w, "  cover:     %s\n", cover.URL)
	} else {
		fmt.Fprintln(w, "  cover:     (no image)")
	}
}

func printBorrows(w io.Writer, title string, borrows []model.Borrow, now time.Time) {
	if len(borrows) == 0 {
		return
	}
	fmt.Fprintln(w, title)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBOOK\tBORROWED\tDUE\tSTATE\tFINE")
	for _, b := range borrows {
		fine := "-"
		if b.HasFine() {
			fine = fmt.Sprintf("%.2f", *b.FineAmount)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, b.Book.Title, date(b.BorrowDate), date(b.DueDate), service.DueLabel(b, now), fine)
	}
	_ = tw.Flush()
}

func printBorrow(w io.Writer, b model.Borrow, now time.Time) {
	fmt.Fprintf(w, "Borrow #%d\n", b.ID)
	fmt.Fprintf(w, "  book:     #%d %s (%s)\n", b.Book.ID, b.Book.Title, b.Book.Author)
	fmt.Fprintf(w, "  member:   %s <%s>\n", b.User.Username, b.User.Email)
	fmt.Fprintf(w, "  borrowed: %s\n", date(b.BorrowDate))
	fmt.Fprintf(w, "  due:      %s (%s)\n", date(b.DueDate), service.DueLabel(b, now))
	if b.ReturnDate != nil {
		fmt.Fprintf(w, "  returned: %s\n", date(*b.ReturnDate))
	}
	if b.HasFine() {
		fmt.Fprintf(w, "  fine:     %.2f (pay with: libdesk fine pay %d)\n", *b.FineAmount, b.ID)
	}
}

func printMembership(w io.Writer, m *model.Membership) {
	if m == nil {
		fmt.Fprintln(w, "No membership yet. Create one with: libdesk membership create STUDENT|REGULAR|PREMIUM")
		return
	}
	fmt.Fprintf(w, "Membership #%d\n", m.ID)
	fmt.Fprintf(w, "  type:    %s\n", m.Type)
	fmt.Fprintf(w, "  status:  %s\n", m.Status)
	fmt.Fprintf(w, "  issued:  %s\n", date(m.DateOfIssue))
	fmt.Fprintf(w, "  expires: %s\n", date(m.ExpiryDate))
	fmt.Fprintf(w, "  limit:   %d books\n", m.BorrowingLimit)
}

func printReservations(w io.Writer, rs []model.Reservation) {
	if len(rs) == 0 {
		fmt.Fprintln(w, "No reservations.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBOOK\tRESERVED\tEXPIRES\tSTATUS")
	for _, r := range rs {
		exp := "-"
		if r.ExpiryDate != nil {
			exp = date(*r.ExpiryDate)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.BookTitle, date(r.ReservationDate), exp, r.Status)
	}
	_ = tw.Flush()
}

func printPageInfo(w io.Writer, info model.PageInfo) {
	c := service.Controls(info)
	if c.Total == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	fmt.Fprintf(w, "%s  (page %d of %d, %d total)\n", c.String(), c.Current, c.Total, info.TotalElements)
}
