package main

import (
	"context"
	"fmt"
	"time"

	"github.com/and161185/libdesk/internal/service"
	"github.com/and161185/libdesk/internal/ui"
	"github.com/spf13/cobra"
)

// DefaultLoanDays is the return date offered when none is given.
const DefaultLoanDays = 14

func newBorrowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "borrow",
		Short: "Borrow, list and return books",
	}
	cmd.AddCommand(
		newBorrowCreateCmd(a),
		newBorrowListCmd(a),
		newBorrowShowCmd(a),
		newBorrowReturnCmd(a),
	)
	return cmd
}

func parseDay(s string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("return date must be YYYY-MM-DD: %w", err)
	}
	return d, nil
}

func newBorrowCreateCmd(a *app) *cobra.Command {
	var returnDate string
	cmd := &cobra.Command{
		Use:   "create BOOK_ID",
		Short: "Borrow a copy of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			due := time.Now().AddDate(0, 0, DefaultLoanDays)
			if returnDate != "" {
				if due, err = parseDay(returnDate); err != nil {
					return err
				}
			}
			book, err := a.catalog.GetBook(cmd.Context(), id)
			if err != nil {
				return err
			}
			b, err := a.borrows.CreateBorrow(cmd.Context(), book, due)
			if err != nil {
				return err
			}
			if a.asJSON {
				printJSON(a.out, b)
				return nil
			}
			printBorrow(a.out, b, time.Now())
			return nil
		},
	}
	first, last := service.ReturnDateWindow(time.Now())
	cmd.Flags().StringVar(&returnDate, "return-date", "",
		fmt.Sprintf("return date YYYY-MM-DD, %s to %s (default in %d days)", date(first), date(last), DefaultLoanDays))
	return cmd
}

func newBorrowListCmd(a *app) *cobra.Command {
	var (
		page float64
		size int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your current loans and history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := a.borrows.ListBorrows(cmd.Context(), page, size)
			if err != nil {
				return err
			}
			if a.asJSON {
				printJSON(a.out, l)
				return nil
			}
			now := time.Now()
			if len(l.Current) == 0 && len(l.History) == 0 {
				fmt.Fprintln(a.out, "No borrows yet.")
				return nil
			}
			printBorrows(a.out, "Current loans", l.Current, now)
			printBorrows(a.out, "History", l.History, now)
			printPageInfo(a.out, l.Info)
			return nil
		},
	}
	cmd.Flags().Float64Var(&page, "page", 1, "page number, 1-based")
	cmd.Flags().IntVar(&size, "size", service.DefaultPageSize, "page size")
	return cmd
}

func newBorrowShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show BORROW_ID",
		Short: "Show one borrow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			b, err := a.borrows.GetBorrowDetail(cmd.Context(), id)
			if err != nil {
				return err
			}
			if a.asJSON {
				printJSON(a.out, b)
				return nil
			}
			printBorrow(a.out, b, time.Now())
			return nil
		},
	}
}

func newBorrowReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return BORROW_ID...",
		Short: "Return borrowed books",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var firstErr error
			for _, arg := range args {
				id, err := parseID(arg)
				if err == nil {
					_, err = a.borrows.ReturnBorrow(cmd.Context(), id)
				}
				if err != nil && firstErr == nil {
					firstErr = err
				}
			}
			return firstErr
		},
	}
}

func newFineCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fine",
		Short: "Settle overdue fines",
	}
	cmd.AddCommand(newFinePayCmd(a))
	return cmd
}

func newFinePayCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "pay BORROW_ID",
		Short: "Start an online payment for a fine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			b, err := a.borrows.GetBorrowDetail(cmd.Context(), id)
			if err != nil {
				return err
			}
			var c ui.Confirmer = a.prompt
			if yes {
				c = ui.ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
			}
			nav, err := a.borrows.PayFine(cmd.Context(), b, c)
			if err != nil {
				return err
			}
			if a.asJSON {
				printJSON(a.out, map[string]string{"paymentUrl": nav.External})
				return nil
			}
			return a.follow(cmd.Context(), nav)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
