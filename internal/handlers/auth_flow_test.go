// auth_flow_test.go contains handler integration tests for the Auth handler
// methods: LoginPage, LoginSubmit, TwoFASetupPage, TwoFAVerifyPage,
// TwoFAVerifySubmit, and Logout. Tests exercise real database and Valkey
// connections; they are skipped when those services are unavailable.
package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"

	"porteiro/internal/models"
	"porteiro/internal/session"
)

// loginPassword is the known password of the dedicated credentials user.
const loginPassword = "senha-de-teste-123"

// loginUser returns a user with a known password for credential tests,
// creating it on first use. TOTP is reset so every test starts from a
// clean enrollment state.
func loginUser(t *testing.T, env *testEnv) *models.User {
	t.Helper()

	const email = "login@porteiro.test"
	user, err := env.UserStore.FindByEmail(email)
	if err != nil {
		t.Fatalf("find login user: %v", err)
	}
	if user == nil {
		user, err = env.UserStore.Create(email, loginPassword, "Usuário de Login", models.RoleAdmin)
		if err != nil {
			t.Fatalf("create login user: %v", err)
		}
	}
	if err := env.UserStore.ResetTOTP(user.ID); err != nil {
		t.Fatalf("reset totp: %v", err)
	}
	return user
}

// sessionCookie extracts the session cookie from a recorded response, or
// nil when none was set.
func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// LoginPage
// --------------------------------------------------------------------------

// TestLoginPage_ReturnsHTML verifies that a GET to the login page returns
// HTTP 200 with HTML content when no session is present in the context.
func TestLoginPage_ReturnsHTML(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/login", nil)
	rec := httptest.NewRecorder()

	env.Auth.LoginPage(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	ct := rec.Header().Get("Content-Type")
	if !strings.Contains(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
}

// TestLoginPage_AuthenticatedRedirectsToDashboard verifies that a fully
// authenticated user (session with TwoFADone=true) is redirected to the
// admin dashboard with a 303 See Other status.
func TestLoginPage_AuthenticatedRedirectsToDashboard(t *testing.T) {
	env := newTestEnv(t)

	sess := testSession(uuid.New(), "admin@porteiro.test", "admin", true)
	req := httptest.NewRequest(http.MethodGet, "/admin/login", nil)
	req = req.WithContext(ctxWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()

	env.Auth.LoginPage(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/dashboard" {
		t.Errorf("Location: got %q, want /admin/dashboard", loc)
	}
}

// TestLoginPage_PartialSessionDoesNotRedirect verifies that a session that
// has not completed 2FA still sees the login page instead of being sent to
// the dashboard.
func TestLoginPage_PartialSessionDoesNotRedirect(t *testing.T) {
	env := newTestEnv(t)

	sess := testSession(uuid.New(), "editor@porteiro.test", "editor", false)
	req := httptest.NewRequest(http.MethodGet, "/admin/login", nil)
	req = req.WithContext(ctxWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()

	env.Auth.LoginPage(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
}

// --------------------------------------------------------------------------
// LoginSubmit
// --------------------------------------------------------------------------

// TestLoginSubmit_ValidCredentials verifies that valid credentials create a
// session and redirect to 2FA setup when the user has not enrolled yet.
func TestLoginSubmit_ValidCredentials(t *testing.T) {
	env := newTestEnv(t)
	user := loginUser(t, env)

	form := url.Values{}
	form.Set("email", user.Email)
	form.Set("password", loginPassword)

	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	env.Auth.LoginSubmit(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want %d (body: %s)", rec.Code, http.StatusSeeOther, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/2fa/setup" {
		t.Errorf("Location: got %q, want /admin/2fa/setup", loc)
	}
	cookie := sessionCookie(rec)
	if cookie == nil || cookie.Value == "" {
		t.Error("expected a session cookie to be set on successful login")
	}
}

// TestLoginSubmit_TOTPEnabledGoesToVerify verifies that a user with TOTP
// already enrolled is sent to the code entry page instead of setup.
func TestLoginSubmit_TOTPEnabledGoesToVerify(t *testing.T) {
	env := newTestEnv(t)
	user := loginUser(t, env)

	if err := env.UserStore.SetTOTPSecret(user.ID, "JBSWY3DPEHPK3PXP"); err != nil {
		t.Fatalf("set totp secret: %v", err)
	}
	if err := env.UserStore.EnableTOTP(user.ID); err != nil {
		t.Fatalf("enable totp: %v", err)
	}
	t.Cleanup(func() {
		env.UserStore.ResetTOTP(user.ID)
	})

	form := url.Values{}
	form.Set("email", user.Email)
	form.Set("password", loginPassword)

	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	env.Auth.LoginSubmit(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/2fa/verify" {
		t.Errorf("Location: got %q, want /admin/2fa/verify", loc)
	}
}

// TestLoginSubmit_InvalidPassword verifies that a wrong password re-renders
// the login form with an error and does not set a session cookie.
func TestLoginSubmit_InvalidPassword(t *testing.T) {
	env := newTestEnv(t)
	user := loginUser(t, env)

	form := url.Values{}
	form.Set("email", user.Email)
	form.Set("password", "senha-errada")

	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	env.Auth.LoginSubmit(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "E-mail ou senha inválidos.") {
		t.Error("expected invalid credentials message in response body")
	}
	if sessionCookie(rec) != nil {
		t.Error("no session cookie should be set on failed login")
	}
}

// TestLoginSubmit_NonexistentEmail verifies that an unknown e-mail produces
// the same error as a wrong password, so the form does not leak which
// addresses exist.
func TestLoginSubmit_NonexistentEmail(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{}
	form.Set("email", "ninguem@porteiro.test")
	form.Set("password", "tanto-faz")

	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	env.Auth.LoginSubmit(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "E-mail ou senha inválidos.") {
		t.Error("expected invalid credentials message in response body")
	}
}

// --------------------------------------------------------------------------
// TwoFASetupPage
// --------------------------------------------------------------------------

// TestTwoFASetupPage_NoSession verifies the setup page redirects to login
// when no session is present.
func TestTwoFASetupPage_NoSession(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/2fa/setup", nil)
	rec := httptest.NewRecorder()

	env.Auth.TwoFASetupPage(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/login" {
		t.Errorf("Location: got %q, want /admin/login", loc)
	}
}

// TestTwoFASetupPage_WithSession verifies that a logged-in user without
// TOTP gets a setup page containing the QR code image.
func TestTwoFASetupPage_WithSession(t *testing.T) {
	env := newTestEnv(t)
	user := loginUser(t, env)

	sess := testSession(user.ID, user.Email, string(user.Role), false)
	req := httptest.NewRequest(http.MethodGet, "/admin/2fa/setup", nil)
	req = req.WithContext(ctxWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()

	env.Auth.TwoFASetupPage(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	// The page embeds the QR code as a base64 PNG.
	if !strings.Contains(body, "data:image/png;base64,") && !strings.Contains(body, "QRCode") {
		t.Error("expected QR code data in the 2FA setup page response")
	}

	// The visit must have stored a pending secret for the user.
	fresh, err := env.UserStore.FindByID(user.ID)
	if err != nil || fresh == nil {
		t.Fatalf("reload user: %v", err)
	}
	if fresh.TOTPSecret == nil || *fresh.TOTPSecret == "" {
		t.Error("expected a TOTP secret to be stored after visiting setup")
	}
}

// TestTwoFASetupPage_AlreadyEnabled verifies that a user whose TOTP is
// fully enabled cannot re-enroll: the setup page must not mint a fresh
// secret for someone armed only with a password.
func TestTwoFASetupPage_AlreadyEnabled(t *testing.T) {
	env := newTestEnv(t)
	user := loginUser(t, env)

	if err := env.UserStore.SetTOTPSecret(user.ID, "JBSWY3DPEHPK3PXP"); err != nil {
		t.Fatalf("set totp secret: %v", err)
	}
	if err := env.UserStore.EnableTOTP(user.ID); err != nil {
		t.Fatalf("enable totp: %v", err)
	}
	t.Cleanup(func() {
		env.UserStore.ResetTOTP(user.ID)
	})

	sess := testSession(user.ID, user.Email, string(user.Role), false)
	req := httptest.NewRequest(http.MethodGet, "/admin/2fa/setup", nil)
	req = req.WithContext(ctxWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()

	env.Auth.TwoFASetupPage(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/2fa/verify" {
		t.Errorf("Location: got %q, want /admin/2fa/verify", loc)
	}

	// The enrolled secret must survive the attempt.
	fresh, err := env.UserStore.FindByID(user.ID)
	if err != nil || fresh == nil {
		t.Fatalf("reload user: %v", err)
	}
	if fresh.TOTPSecret == nil || *fresh.TOTPSecret != "JBSWY3DPEHPK3PXP" {
		t.Error("enrolled TOTP secret was overwritten by the setup page")
	}
}

// --------------------------------------------------------------------------
// TwoFAVerifyPage
// --------------------------------------------------------------------------

func TestTwoFAVerifyPage_NoSession(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/2fa/verify", nil)
	rec := httptest.NewRecorder()

	env.Auth.TwoFAVerifyPage(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/login" {
		t.Errorf("Location: got %q, want /admin/login", loc)
	}
}

func TestTwoFAVerifyPage_WithSession(t *testing.T) {
	env := newTestEnv(t)

	sess := testSession(uuid.New(), "editor@porteiro.test", "editor", false)
	req := httptest.NewRequest(http.MethodGet, "/admin/2fa/verify", nil)
	req = req.WithContext(ctxWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()

	env.Auth.TwoFAVerifyPage(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
}

// --------------------------------------------------------------------------
// TwoFAVerifySubmit
// --------------------------------------------------------------------------

func TestTwoFAVerifySubmit_NoSession(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{}
	form.Set("code", "123456")

	req := httptest.NewRequest(http.MethodPost, "/admin/2fa/verify", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	env.Auth.TwoFAVerifySubmit(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/login" {
		t.Errorf("Location: got %q, want /admin/login", loc)
	}
}

// TestTwoFAVerifySubmit_InvalidCode verifies that a wrong TOTP code
// re-renders the verify form with an error message.
func TestTwoFAVerifySubmit_InvalidCode(t *testing.T) {
	env := newTestEnv(t)
	user := loginUser(t, env)

	if err := env.UserStore.SetTOTPSecret(user.ID, "JBSWY3DPEHPK3PXP"); err != nil {
		t.Fatalf("set totp secret: %v", err)
	}
	if err := env.UserStore.EnableTOTP(user.ID); err != nil {
		t.Fatalf("enable totp: %v", err)
	}
	t.Cleanup(func() {
		env.UserStore.ResetTOTP(user.ID)
	})

	form := url.Values{}
	form.Set("code", "000000")

	sess := testSession(user.ID, user.Email, string(user.Role), false)
	req := httptest.NewRequest(http.MethodPost, "/admin/2fa/verify", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = req.WithContext(ctxWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()

	env.Auth.TwoFAVerifySubmit(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "Código inválido. Tente novamente.") {
		t.Error("expected invalid code message in response body")
	}
}

// TestTwoFAVerifySubmit_NoTOTPSecret verifies that a user without a stored
// secret is bounced back to the setup page.
func TestTwoFAVerifySubmit_NoTOTPSecret(t *testing.T) {
	env := newTestEnv(t)
	user := loginUser(t, env)

	form := url.Values{}
	form.Set("code", "123456")

	sess := testSession(user.ID, user.Email, string(user.Role), false)
	req := httptest.NewRequest(http.MethodPost, "/admin/2fa/verify", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = req.WithContext(ctxWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()

	env.Auth.TwoFAVerifySubmit(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/2fa/setup" {
		t.Errorf("Location: got %q, want /admin/2fa/setup", loc)
	}
}

// TestTwoFAVerifySubmit_ValidCode_CompletesLogin drives the whole happy
// path: a real session, a current TOTP code, enrollment flipped on and the
// session marked as fully verified.
func TestTwoFAVerifySubmit_ValidCode_CompletesLogin(t *testing.T) {
	env := newTestEnv(t)
	user := loginUser(t, env)

	const secret = "JBSWY3DPEHPK3PXP"
	if err := env.UserStore.SetTOTPSecret(user.ID, secret); err != nil {
		t.Fatalf("set totp secret: %v", err)
	}
	t.Cleanup(func() {
		env.UserStore.ResetTOTP(user.ID)
	})

	// A real session in Valkey, because a successful verification updates it.
	data := testSession(user.ID, user.Email, string(user.Role), false)
	createRec := httptest.NewRecorder()
	if _, err := env.Sessions.Create(context.Background(), createRec, data); err != nil {
		t.Fatalf("create session: %v", err)
	}
	cookie := sessionCookie(createRec)
	if cookie == nil {
		t.Fatal("session cookie not set by Create")
	}

	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatalf("generate totp code: %v", err)
	}

	form := url.Values{}
	form.Set("code", code)

	req := httptest.NewRequest(http.MethodPost, "/admin/2fa/verify", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	req = req.WithContext(ctxWithSession(req.Context(), data))
	rec := httptest.NewRecorder()

	env.Auth.TwoFAVerifySubmit(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want %d (body: %s)", rec.Code, http.StatusSeeOther, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/dashboard" {
		t.Errorf("Location: got %q, want /admin/dashboard", loc)
	}

	// First successful verification turns enrollment on.
	fresh, err := env.UserStore.FindByID(user.ID)
	if err != nil || fresh == nil {
		t.Fatalf("reload user: %v", err)
	}
	if !fresh.TOTPEnabled {
		t.Error("expected TOTP to be enabled after first successful verification")
	}

	// The stored session must now carry TwoFADone.
	check := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	check.AddCookie(cookie)
	stored, err := env.Sessions.Get(context.Background(), check)
	if err != nil || stored == nil {
		t.Fatalf("reload session: %v", err)
	}
	if !stored.TwoFADone {
		t.Error("expected session TwoFADone=true after verification")
	}
}

// --------------------------------------------------------------------------
// Logout
// --------------------------------------------------------------------------

// TestLogout_ClearsSessionAndRedirects verifies that logging out destroys
// the stored session, expires the cookie and redirects to the login page.
func TestLogout_ClearsSessionAndRedirects(t *testing.T) {
	env := newTestEnv(t)

	data := testSession(uuid.New(), "admin@porteiro.test", "admin", true)
	createRec := httptest.NewRecorder()
	if _, err := env.Sessions.Create(context.Background(), createRec, data); err != nil {
		t.Fatalf("create session: %v", err)
	}
	cookie := sessionCookie(createRec)
	if cookie == nil {
		t.Fatal("session cookie not set by Create")
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/logout", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()

	env.Auth.Logout(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/login" {
		t.Errorf("Location: got %q, want /admin/login", loc)
	}

	cleared := sessionCookie(rec)
	if cleared == nil || cleared.MaxAge >= 0 {
		t.Error("expected the session cookie to be expired on logout")
	}

	// The session must be gone from Valkey too.
	check := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	check.AddCookie(cookie)
	stored, err := env.Sessions.Get(context.Background(), check)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if stored != nil {
		t.Error("expected session to be destroyed on logout")
	}
}

// TestLogout_NoCookie verifies that logout without a session cookie still
// redirects cleanly to the login page.
func TestLogout_NoCookie(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/logout", nil)
	rec := httptest.NewRecorder()

	env.Auth.Logout(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/login" {
		t.Errorf("Location: got %q, want /admin/login", loc)
	}
}
