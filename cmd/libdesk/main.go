// Command libdesk is a terminal client for the library backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/and161185/libdesk/internal/bootstrap"
	"github.com/and161185/libdesk/internal/config"
	"github.com/and161185/libdesk/internal/errs"
	"github.com/and161185/libdesk/internal/repository/rest"
	"github.com/and161185/libdesk/internal/service"
	"github.com/and161185/libdesk/internal/session"
	"github.com/and161185/libdesk/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// app is everything a command needs, built once per invocation.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	store  session.Store
	close  func()
	notice *ui.Slot
	flash  *ui.Flash
	prompt *prompter
	out    io.Writer
	asJSON bool

	auth         *service.AuthServiceImpl
	catalog      *service.CatalogServiceImpl
	docs         *service.DocumentService
	borrows      *service.BorrowServiceImpl
	reservations *service.ReservationService
	memberships  *service.MembershipService
	ratings      *service.RatingService
	payments     *rest.PaymentRepo
}

// streams are the process's standard streams, swappable in tests.
type streams struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func (a *app) build(ctx context.Context, cfg *config.Config, s streams) error {
	log, err := bootstrap.NewCLILogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	store, closeStore, err := bootstrap.OpenStore(ctx, cfg.Session, log)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	a.store = store
	a.close = closeStore
	a.out = s.out
	a.flash = &ui.Flash{}
	a.prompt = newPrompter(s.in, s.out)
	a.notice = ui.NewSlot(func(n ui.Notice) {
		if n.Level == ui.LevelError {
			fmt.Fprintln(s.errOut, "error:", n.Message)
			return
		}
		fmt.Fprintln(s.out, n.Message)
	})

	// the 401 hook needs the auth service, which needs the client
	var auth *service.AuthServiceImpl
	client, err := bootstrap.NewClient(cfg, store, log, func(ctx context.Context) {
		if auth != nil {
			auth.HandleUnauthorized(ctx)
		}
	})
	if err != nil {
		closeStore()
		return err
	}

	books := rest.NewBookRepo(client)
	auth = service.NewAuthService(rest.NewAuthRepo(client), store, a.notice, a.flash, service.AuthOptions{
		RegisterRedirect:    cfg.UI.RegisterRedirectDelay,
		ClearOnUnauthorized: cfg.Session.ClearOnUnauthorized,
		Logger:              log.Named("auth"),
	})
	a.auth = auth
	a.payments = rest.NewPaymentRepo(client)
	a.catalog = service.NewCatalogService(books, a.notice)
	a.docs = service.NewDocumentService(rest.NewDocumentRepo(client))
	a.borrows = service.NewBorrowService(rest.NewBorrowRepo(client), a.payments, store, a.notice, nil)
	a.reservations = service.NewReservationService(rest.NewReservationRepo(client), books, a.notice, log.Named("reservations"))
	a.memberships = service.NewMembershipService(rest.NewMembershipRepo(client), store, a.notice, nil)
	a.ratings = service.NewRatingService(rest.NewRatingRepo(client), a.notice)
	return nil
}

func (a *app) shutdown() {
	if a.close != nil {
		a.close()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// newRootCmd builds the command tree. The app is filled in by the root's
// PersistentPreRunE, so subcommands can rely on it.
func newRootCmd(a *app, s streams) *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "libdesk",
		Short:         "Library client: catalog, borrows, reservations, memberships",
		Version:       fmt.Sprintf("%s (%s)", version, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(s.in)
	root.SetOut(s.out)
	root.SetErr(s.errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "config file (default ./libdesk.yaml or <config dir>/libdesk.yaml)")
	pf.String("api-url", "", "backend base URL")
	pf.String("session-backend", "", "session store: file, memory or postgres")
	pf.String("session-dir", "", "directory of the file session store")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&a.asJSON, "json", false, "print results as JSON")

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		v := config.New(cfgPath)
		for key, flag := range map[string]string{
			"api.base_url":    "api-url",
			"session.backend": "session-backend",
			"session.dir":     "session-dir",
			"log.level":       "log-level",
		} {
			if f := pf.Lookup(flag); f != nil && f.Changed {
				v.Set(key, f.Value.String())
			}
		}
		cfg, err := config.Load(v, cfgPath != "")
		if err != nil {
			return err
		}
		if err := a.build(cmd.Context(), cfg, s); err != nil {
			return err
		}
		// load once per invocation; store errors surface from the command itself
		if sess, err := a.store.Get(cmd.Context()); err == nil && sess != nil {
			cmd.SetContext(session.WithSession(cmd.Context(), *sess))
		}
		return nil
	}

	root.AddCommand(
		newRegisterCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newBooksCmd(a),
		newBorrowCmd(a),
		newFineCmd(a),
		newMembershipCmd(a),
		newReservationCmd(a),
		newRateCmd(a),
		newPaymentCmd(a),
	)
	return root
}

// run executes args and returns the exit code.
func run(ctx context.Context, args []string, s streams) int {
	a := &app{}
	defer a.shutdown()

	root := newRootCmd(a, s)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if errors.Is(err, errs.ErrDeclined) {
		fmt.Fprintln(s.out, "Canceled.")
		return 0
	}
	// flows already reported their failure through the notifier
	var ue *service.UserError
	isUser := errors.As(err, &ue)
	if a.notice != nil && a.notice.Shown() > 0 && (isUser || errors.Is(err, errs.ErrValidation)) {
		return 1
	}
	if isUser {
		fmt.Fprintln(s.errOut, "error:", ue.Message)
		return 1
	}
	fmt.Fprintln(s.errOut, "error:", err)
	return 1
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], streams{in: os.Stdin, out: os.Stdout, errOut: os.Stderr}))
}
