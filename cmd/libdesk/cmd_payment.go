package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/and161185/libdesk/internal/service"
	"github.com/spf13/cobra"
)

var errPaymentNotSettled = errors.New("payment not settled")

// callbackQuery accepts either a bare query string or a full return URL.
func callbackQuery(arg string) (url.Values, error) {
	arg = strings.TrimSpace(arg)
	if i := strings.IndexByte(arg, '?'); i >= 0 {
		arg = arg[i+1:]
	}
	return url.ParseQuery(arg)
}

func newPaymentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Gateway payment helpers",
	}
	var noWait bool
	cb := &cobra.Command{
		Use:   "callback URL_OR_QUERY",
		Short: "Verify the redirect the payment gateway sent you back with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := callbackQuery(args[0])
			if err != nil {
				return fmt.Errorf("parse callback: %w", err)
			}
			p := service.ParseCallback(q)
			out := service.NewPaymentCallback(a.payments, a.log.Named("payment")).Run(cmd.Context(), p)

			if a.asJSON {
				printJSON(a.out, map[string]any{
					"state":         out.State.String(),
					"message":       out.Message,
					"pidx":          p.PIDX,
					"transactionId": p.TransactionID,
					"amount":        p.DisplayAmount(),
				})
			} else {
				if p.PIDX != "" {
					fmt.Fprintf(a.out, "Payment %s\n", p.PIDX)
				}
				if p.TransactionID != "" {
					fmt.Fprintf(a.out, "  transaction: %s\n", p.TransactionID)
				}
				if p.Amount > 0 {
					fmt.Fprintf(a.out, "  amount:      %.2f\n", p.DisplayAmount())
				}
				if out.State == service.CallbackSuccess {
					fmt.Fprintln(a.out, out.Message)
				}
			}

			next := out.Next
			if noWait {
				next.After = 0
			}
			if !a.asJSON {
				if err := a.follow(cmd.Context(), next); err != nil {
					return err
				}
			}
			if out.State != service.CallbackSuccess {
				return &service.UserError{Message: out.Message, Err: errPaymentNotSettled}
			}
			return nil
		},
	}
	cb.Flags().BoolVar(&noWait, "no-wait", false, "do not pause before suggesting the next step")
	cmd.AddCommand(cb)
	return cmd
}
