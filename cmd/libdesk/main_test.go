package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/and161185/libdesk/internal/model"
	"github.com/and161185/libdesk/internal/service"
	"github.com/and161185/libdesk/internal/session"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// fakeBackend answers a fixed set of paths and records the calls it saw.
type fakeBackend struct {
	srv *httptest.Server

	mu    sync.Mutex
	calls []string
}

func (fb *fakeBackend) seen() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]string(nil), fb.calls...)
}

func newFakeBackend(t *testing.T, routes map[string]string) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	fb.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		fb.mu.Lock()
		fb.calls = append(fb.calls, key)
		fb.mu.Unlock()
		body, ok := routes[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"success":false,"message":"not found"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(fb.srv.Close)
	return fb
}

type result struct {
	code   int
	out    string
	errOut string
}

func runCLI(t *testing.T, backend, dir, stdin string, args ...string) result {
	t.Helper()
	return runCLIFrom(t, backend, dir, strings.NewReader(stdin), args...)
}

func runCLIFrom(t *testing.T, backend, dir string, in io.Reader, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{
		"--api-url", backend,
		"--session-backend", "file",
		"--session-dir", dir,
		"--log-level", "error",
	}, args...)
	code := run(context.Background(), full, streams{in: in, out: &out, errOut: &errOut})
	return result{code: code, out: out.String(), errOut: errOut.String()}
}

func seedSession(t *testing.T, dir string) {
	t.Helper()
	err := session.NewFile(dir, "").Set(context.Background(), model.Session{
		Token:   "tok",
		Profile: model.Profile{ID: 7, Username: "alice", Roles: []string{model.RoleUser}},
	})
	require.NoError(t, err)
}

func signedToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return tok
}

func TestLoginStoresSessionAndWhoami(t *testing.T) {
	t.Parallel()
	tok := signedToken(t, "alice", time.Now().Add(time.Hour))
	fb := newFakeBackend(t, map[string]string{
		"POST /users/login": `{"success":true,"data":{"token":"` + tok + `","id":7,"username":"alice","email":"a@x.io","roles":["USER"]}}`,
	})
	dir := t.TempDir()

	res := runCLI(t, fb.srv.URL, dir, "", "login", "-u", "alice", "-p", "secret1")
	require.Equal(t, 0, res.code, res.errOut)
	require.Contains(t, res.out, service.MsgLoginSuccess)
	require.Contains(t, res.out, "Next: libdesk borrow list")

	res = runCLI(t, fb.srv.URL, dir, "", "whoami")
	require.Equal(t, 0, res.code, res.errOut)
	require.Contains(t, res.out, "alice (id 7)")
	require.Contains(t, res.out, "roles: USER")
	require.Contains(t, res.out, "token subject: alice")
	require.Contains(t, res.out, "valid until")

	res = runCLI(t, fb.srv.URL, dir, "", "logout")
	require.Equal(t, 0, res.code, res.errOut)
	require.Contains(t, res.out, "Next: libdesk login")

	res = runCLI(t, fb.srv.URL, dir, "", "whoami")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.errOut, "error:")
}

func TestLoginValidationReportedOnce(t *testing.T) {
	t.Parallel()
	fb := newFakeBackend(t, nil)

	res := runCLI(t, fb.srv.URL, t.TempDir(), "\n\n", "login")
	require.Equal(t, 1, res.code)
	require.Equal(t, 1, strings.Count(res.errOut, service.MsgUsernameRequired))
	require.Equal(t, 1, strings.Count(res.errOut, "error:"))
	require.Empty(t, fb.seen())
}

func TestBooksList(t *testing.T) {
	t.Parallel()
	fb := newFakeBackend(t, map[string]string{
		"GET /book": `{"success":true,"data":{"content":[
			{"id":1,"title":"Dune","author":"Herbert","totalCopies":3,"availableCopies":2,"isAvailable":true},
			{"id":2,"title":"Emma","author":"Austen","totalCopies":1,"availableCopies":0,"isAvailable":false}
		],"number":1,"size":2,"totalElements":14,"totalPages":7}}`,
	})
	dir := t.TempDir()
	seedSession(t, dir)

	res := runCLI(t, fb.srv.URL, dir, "", "books", "list", "--page", "2", "--size", "2")
	require.Equal(t, 0, res.code, res.errOut)
	require.Contains(t, res.out, "Dune")
	require.Contains(t, res.out, "available")
	require.Contains(t, res.out, "reservable")
	require.Contains(t, res.out, "page 2 of 7")
}

func TestFinePay(t *testing.T) {
	t.Parallel()
	routes := map[string]string{
		"GET /borrow/9":               `{"success":true,"data":{"id":9,"dueDate":"2024-01-01","isReturned":false,"fineAmount":50,"books":{"id":3,"title":"Dune"}}}`,
		"POST /api/payments/initiate": `{"success":true,"data":{"pidx":"px","payment_url":"https://gw.example/pay?pidx=px"}}`,
	}

	t.Run("confirmed", func(t *testing.T) {
		t.Parallel()
		fb := newFakeBackend(t, routes)
		dir := t.TempDir()
		seedSession(t, dir)

		res := runCLI(t, fb.srv.URL, dir, "", "fine", "pay", "9", "--yes")
		require.Equal(t, 0, res.code, res.errOut)
		require.Contains(t, res.out, "https://gw.example/pay?pidx=px")
	})

	t.Run("declined", func(t *testing.T) {
		t.Parallel()
		fb := newFakeBackend(t, routes)
		dir := t.TempDir()
		seedSession(t, dir)

		res := runCLI(t, fb.srv.URL, dir, "n\n", "fine", "pay", "9")
		require.Equal(t, 0, res.code, res.errOut)
		require.Contains(t, res.out, "Canceled.")
		require.NotContains(t, fb.seen(), "POST /api/payments/initiate")
	})
}

func TestBorrowCreateRejectsLateDate(t *testing.T) {
	t.Parallel()
	fb := newFakeBackend(t, map[string]string{
		"GET /book/3": `{"success":true,"data":{"id":3,"title":"Dune","totalCopies":2,"availableCopies":1,"isAvailable":true}}`,
	})
	dir := t.TempDir()
	seedSession(t, dir)

	late := time.Now().AddDate(0, 0, service.MaxLoanDays+5).Format("2006-01-02")
	res := runCLI(t, fb.srv.URL, dir, "", "borrow", "create", "3", "--return-date", late)
	require.Equal(t, 1, res.code)
	require.Contains(t, res.errOut, service.MsgReturnDateRange)
	require.NotContains(t, fb.seen(), "POST /borrow/create")
}

func TestPaymentCallback(t *testing.T) {
	t.Parallel()
	fb := newFakeBackend(t, map[string]string{
		"POST /api/payments/verify": `{"success":true,"data":{"pidx":"px","status":"Completed","total_amount":5000}}`,
	})
	dir := t.TempDir()
	seedSession(t, dir)

	res := runCLI(t, fb.srv.URL, dir, "", "payment", "callback", "--no-wait",
		"https://app.example/payment/callback?pidx=px&status=Completed&txnId=T1&amount=5000")
	require.Equal(t, 0, res.code, res.errOut)
	require.Contains(t, res.out, "transaction: T1")
	require.Contains(t, res.out, "50.00")
	require.Contains(t, res.out, service.MsgPaymentVerified)
	require.Contains(t, res.out, "Next: libdesk borrow list")

	res = runCLI(t, fb.srv.URL, dir, "", "payment", "callback", "--no-wait", "pidx=px&status=User+canceled")
	require.Equal(t, 1, res.code)
	require.Equal(t, "error: "+service.MsgPaymentCanceled+"\n", res.errOut)
}

func TestBrowseCommand(t *testing.T) {
	t.Parallel()
	cur := service.BookQuery{Page: 3, SortBy: service.SortTitle, SortOrder: service.OrderAsc}
	info := model.PageInfo{Page: 2, TotalPages: 4}

	next, quit, err := browseCommand("n", cur, info)
	require.NoError(t, err)
	require.False(t, quit)
	require.Equal(t, float64(4), next.Page)

	next, _, err = browseCommand("p", cur, info)
	require.NoError(t, err)
	require.Equal(t, float64(2), next.Page)

	next, _, err = browseCommand("/dune", cur, info)
	require.NoError(t, err)
	require.Equal(t, "dune", next.Query)
	require.Equal(t, float64(1), next.Page)

	next, _, err = browseCommand("s author desc", cur, info)
	require.NoError(t, err)
	require.Equal(t, service.SortAuthor, next.SortBy)
	require.Equal(t, service.OrderDesc, next.SortOrder)

	_, _, err = browseCommand("9", cur, info)
	require.Error(t, err)

	_, _, err = browseCommand("n", cur, model.PageInfo{Page: 3, TotalPages: 4})
	require.Error(t, err)

	_, quit, _ = browseCommand("q", cur, info)
	require.True(t, quit)
}

func TestCallbackQuery(t *testing.T) {
	t.Parallel()
	for _, in := range []string{
		"pidx=a&status=Completed",
		"https://host/payment/callback?pidx=a&status=Completed",
		"?pidx=a&status=Completed",
	} {
		q, err := callbackQuery(in)
		require.NoError(t, err, in)
		require.Equal(t, "a", q.Get("pidx"), in)
		require.Equal(t, "Completed", q.Get("status"), in)
	}
}

func TestTokenClaims(t *testing.T) {
	t.Parallel()
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	sub, got, ok := tokenClaims(signedToken(t, "bob", exp))
	require.True(t, ok)
	require.Equal(t, "bob", sub)
	require.True(t, got.Equal(exp))

	_, _, ok = tokenClaims("not-a-jwt")
	require.False(t, ok)
}
