package main

import (
	"fmt"
	"strings"

	"github.com/and161185/libdesk/internal/model"
	"github.com/and161185/libdesk/internal/service"
	"github.com/spf13/cobra"
)

func newMembershipCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "membership",
		Short: "Show or create your membership",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show your membership",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				m, err := a.memberships.MyMembership(cmd.Context())
				if err != nil {
					return err
				}
				if a.asJSON {
					printJSON(a.out, m)
					return nil
				}
				printMembership(a.out, m)
				if m != nil {
					rs := a.reservations.LoadReservationsQuietly(cmd.Context(), m.ID)
					fmt.Fprintf(a.out, "  reservations: %d\n", len(rs))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:       "create TYPE",
			Short:     "Create a STUDENT, REGULAR or PREMIUM membership",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{string(model.MembershipStudent), string(model.MembershipRegular), string(model.MembershipPremium)},
			RunE: func(cmd *cobra.Command, args []string) error {
				t, _ := service.ParseMembershipType(args[0])
				m, err := a.memberships.CreateMembership(cmd.Context(), t)
				if err != nil {
					return err
				}
				if a.asJSON {
					printJSON(a.out, m)
					return nil
				}
				printMembership(a.out, &m)
				return nil
			},
		},
		&cobra.Command{
			Use:   "total",
			Short: "Print the number of memberships",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				n, err := a.memberships.TotalMemberships(cmd.Context())
				if err != nil {
					return err
				}
				if a.asJSON {
					printJSON(a.out, map[string]int64{"total": n})
					return nil
				}
				fmt.Fprintf(a.out, "%d memberships\n", n)
				return nil
			},
		},
	)
	return cmd
}

// membershipID returns the caller's membership id, 0 when there is none.
func (a *app) membershipID(cmd *cobra.Command) (int64, error) {
	m, err := a.memberships.MyMembership(cmd.Context())
	if err != nil || m == nil {
		return 0, err
	}
	return m.ID, nil
}

func newReservationCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reservation",
		Aliases: []string{"reserve"},
		Short:   "Queue for books that are out",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List your reservations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				id, err := a.membershipID(cmd)
				if err != nil {
					return err
				}
				if id == 0 {
					if a.asJSON {
						printJSON(a.out, []model.Reservation{})
						return nil
					}
					printMembership(a.out, nil)
					return nil
				}
				rs, err := a.reservations.ListReservations(cmd.Context(), id)
				if err != nil {
					return err
				}
				if a.asJSON {
					printJSON(a.out, rs)
					return nil
				}
				printReservations(a.out, rs)
				return nil
			},
		},
		&cobra.Command{
			Use:   "candidates",
			Short: "List books that can be reserved",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				books, err := a.reservations.ReservableBooks(cmd.Context())
				if err != nil {
					return err
				}
				if a.asJSON {
					printJSON(a.out, books)
					return nil
				}
				if len(books) == 0 {
					fmt.Fprintln(a.out, "Every listed book can be borrowed right now.")
					return nil
				}
				printBooks(a.out, books)
				return nil
			},
		},
		&cobra.Command{
			Use:   "create BOOK_ID",
			Short: "Reserve a book",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				bookID, err := parseID(args[0])
				if err != nil {
					return err
				}
				book, err := a.catalog.GetBook(cmd.Context(), bookID)
				if err != nil {
					return err
				}
				id, err := a.membershipID(cmd)
				if err != nil {
					return err
				}
				r, err := a.reservations.CreateReservation(cmd.Context(), book, id)
				if err != nil {
					return err
				}
				if a.asJSON {
					printJSON(a.out, r)
					return nil
				}
				printReservations(a.out, []model.Reservation{r})
				return nil
			},
		},
	)
	return cmd
}

func newRateCmd(a *app) *cobra.Command {
	var f service.RatingForm
	cmd := &cobra.Command{
		Use:   "rate BOOK_ID",
		Short: "Rate a book from 1 to 5 stars",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			f.SetReview(strings.TrimSpace(f.Review))
			r, err := a.ratings.Submit(cmd.Context(), id, &f)
			if err != nil {
				return err
			}
			if a.asJSON {
				printJSON(a.out, r)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&f.Rating, "stars", "s", 0, "rating, 1 to 5")
	cmd.Flags().StringVarP(&f.Review, "review", "r", "", fmt.Sprintf("optional review, up to %d characters", service.MaxReviewRunes))
	return cmd
}
