// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for the Porteiro server.
// Handlers are grouped by concern (admin, auth, public, api, jobs) and
// receive their dependencies through the handler struct.
package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"porteiro/internal/cache"
	"porteiro/internal/middleware"
	"porteiro/internal/models"
	"porteiro/internal/render"
	"porteiro/internal/session"
	"porteiro/internal/sitemode"
	"porteiro/internal/slug"
	"porteiro/internal/store"
)

// Admin groups all admin panel HTTP handlers and their dependencies.
type Admin struct {
	renderer   *render.Renderer
	sessions   *session.Store
	pageStore  *store.PageStore
	userStore  *store.UserStore
	gateEvents *store.GateEventStore
	modes      *sitemode.Service
	pageCache  *cache.PageCache
	siteID     string
}

// NewAdmin creates a new Admin handler group with the given dependencies.
func NewAdmin(renderer *render.Renderer, sessions *session.Store, pageStore *store.PageStore, userStore *store.UserStore, gateEvents *store.GateEventStore, modes *sitemode.Service, pageCache *cache.PageCache, siteID string) *Admin {
	return &Admin{
		renderer:   renderer,
		sessions:   sessions,
		pageStore:  pageStore,
		userStore:  userStore,
		gateEvents: gateEvents,
		modes:      modes,
		pageCache:  pageCache,
		siteID:     siteID,
	}
}

// Dashboard renders the admin dashboard with the gate status, page counts
// and the recent audit trail.
func (a *Admin) Dashboard(w http.ResponseWriter, r *http.Request) {
	settings := a.modes.Resolve(a.siteID)
	published, _ := a.pageStore.CountByStatus(a.siteID, models.PageStatusPublished)
	drafts, _ := a.pageStore.CountByStatus(a.siteID, models.PageStatusDraft)
	scheduled, _ := a.pageStore.CountByStatus(a.siteID, models.PageStatusScheduled)
	users, _ := a.userStore.List()

	events, err := a.gateEvents.Recent(a.siteID, 10)
	if err != nil {
		slog.Error("list gate events failed", "error", err)
	}

	// Switch links lead to an admin-only route, so editors don't get them.
	status := settings.Status()
	var switches []modeSwitch
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil && sess.Role == "admin" {
		switches = a.switchLinks(r, status)
	}

	a.renderer.Page(w, r, "dashboard", &render.PageData{
		Title:   "Painel",
		Section: "dashboard",
		Data: map[string]any{
			"Status":      status,
			"StatusLabel": statusLabel(status),
			"Switches":    switches,
			"Published":   published,
			"Drafts":      drafts,
			"Scheduled":   scheduled,
			"Users":       len(users),
			"Events":      events,
		},
	})
}

// --- Gate control ---

// GatePage renders the gate screen: current status, switch links and the
// placeholder text form.
func (a *Admin) GatePage(w http.ResponseWriter, r *http.Request) {
	a.renderGate(w, r, a.modes.Resolve(a.siteID), "", nil)
}

// GateSave persists the placeholder texts and the enabled/mode pair. Every
// field is sanitized on the way in, so the only failure left is storage.
func (a *Admin) GateSave(w http.ResponseWriter, r *http.Request) {
	input := sitemode.Input{
		Enabled:            r.FormValue("enabled"),
		Mode:               r.FormValue("mode"),
		TitleMaintenance:   r.FormValue("title_maintenance"),
		MessageMaintenance: r.FormValue("message_maintenance"),
		TitleDevelopment:   r.FormValue("title_development"),
		MessageDevelopment: r.FormValue("message_development"),
	}

	saved, err := a.modes.Save(a.siteID, input)
	if err != nil {
		slog.Error("gate settings save failed", "site", a.siteID, "error", err)
		a.renderGate(w, r, saved, "Não foi possível salvar. Tente novamente.", nil)
		return
	}

	sess := middleware.SessionFromCtx(r.Context())
	a.gateEvents.Log(a.siteID, sess.Email, store.GateActionSave, string(saved.Status()))

	a.renderGate(w, r, saved, "", []render.Flash{{Type: "success", Message: "Configurações salvas."}})
}

// renderGate shows the gate screen for the given settings record.
func (a *Admin) renderGate(w http.ResponseWriter, r *http.Request, settings sitemode.Settings, errMsg string, flashes []render.Flash) {
	status := settings.Status()
	data := map[string]any{
		"Status":      status,
		"StatusLabel": statusLabel(status),
		"Switches":    a.switchLinks(r, status),
		"Settings":    settings,
	}
	if errMsg != "" {
		data["Error"] = errMsg
	}

	a.renderer.Page(w, r, "gate", &render.PageData{
		Title:   "Manutenção",
		Section: "gate",
		Data:    data,
		Flashes: flashes,
	})
}

// ModeSwitch handles the status indicator links. The state change rides a
// GET, so it carries its own HMAC token instead of the form CSRF field.
// A bad token is rejected; an unknown target with a good token is ignored
// and redirected like a success, indistinguishable from a stale link.
func (a *Admin) ModeSwitch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target := q.Get("set_mode")
	site := q.Get("site")
	if site == "" {
		site = a.siteID
	}

	want := switchToken(middleware.CSRFTokenFromCtx(r.Context()), target, site)
	if !hmac.Equal([]byte(q.Get("token")), []byte(want)) {
		http.Error(w, "Invalid switch token", http.StatusForbidden)
		return
	}

	settings, applied, err := a.modes.Switch(site, target)
	if err != nil {
		slog.Error("mode switch failed", "site", site, "target", target, "error", err)
	}
	if applied {
		sess := middleware.SessionFromCtx(r.Context())
		a.gateEvents.Log(site, sess.Email, store.GateActionSwitch, string(settings.Status()))
		slog.Info("site mode switched", "site", site, "target", target, "actor", sess.Email)
	}

	http.Redirect(w, r, adminReferer(r), http.StatusSeeOther)
}

// modeSwitch is one link in the operator status indicator.
type modeSwitch struct {
	URL   string
	Label string
}

// switchLinks builds the mode-switch links for every state except the
// current one, each carrying its anti-forgery token.
func (a *Admin) switchLinks(r *http.Request, current sitemode.Status) []modeSwitch {
	csrfToken := middleware.CSRFTokenFromCtx(r.Context())

	var links []modeSwitch
	for _, t := range []struct {
		target sitemode.Target
		label  string
	}{
		{sitemode.TargetOnline, "Colocar no ar"},
		{sitemode.TargetMaintenance, "Ativar manutenção"},
		{sitemode.TargetDevelopment, "Ativar desenvolvimento"},
	} {
		if string(t.target) == string(current) {
			continue
		}
		links = append(links, modeSwitch{
			URL:   switchURL(csrfToken, string(t.target), a.siteID),
			Label: t.label,
		})
	}
	return links
}

// switchURL builds a mode-switch link with its token.
func switchURL(csrfToken, target, siteID string) string {
	q := url.Values{}
	q.Set("set_mode", target)
	q.Set("site", siteID)
	q.Set("token", switchToken(csrfToken, target, siteID))
	return "/admin/mode?" + q.Encode()
}

// switchToken derives the anti-forgery token for one switch action. Keying
// by the session's CSRF token scopes each link to the caller's session and
// to the action+site pair it was issued for.
func switchToken(csrfToken, target, siteID string) string {
	mac := hmac.New(sha256.New, []byte(csrfToken))
	mac.Write([]byte("set_mode:" + target + ":" + siteID))
	return hex.EncodeToString(mac.Sum(nil))
}

// adminReferer returns the path of the admin page that linked here with its
// query stripped, so a refresh after the redirect cannot replay the action.
func adminReferer(r *http.Request) string {
	if u, err := url.Parse(r.Referer()); err == nil &&
		strings.HasPrefix(u.Path, "/admin/") && u.Path != "/admin/mode" {
		return u.Path
	}
	return "/admin/dashboard"
}

// statusLabel translates a gate status for display.
func statusLabel(s sitemode.Status) string {
	switch s {
	case sitemode.StatusMaintenance:
		return "Em manutenção"
	case sitemode.StatusDevelopment:
		return "Em desenvolvimento"
	default:
		return "No ar"
	}
}

// --- Pages CRUD ---

// PagesList renders the pages management screen.
func (a *Admin) PagesList(w http.ResponseWriter, r *http.Request) {
	pages, err := a.pageStore.List(a.siteID)
	if err != nil {
		slog.Error("list pages failed", "error", err)
	}

	a.renderer.Page(w, r, "pages", &render.PageData{
		Title:   "Páginas",
		Section: "pages",
		Data:    map[string]any{"Pages": pages},
	})
}

// PageNew renders the new page form.
func (a *Admin) PageNew(w http.ResponseWriter, r *http.Request) {
	p := &models.Page{
		BodyFormat: models.BodyFormatMarkdown,
		Status:     models.PageStatusDraft,
	}
	a.renderPageForm(w, r, p, "", true, "")
}

// PageCreate handles the new page form submission.
func (a *Admin) PageCreate(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	p := &models.Page{
		SiteID:   a.siteID,
		AuthorID: sess.UserID,
	}
	publishAt := applyPageForm(p, r)

	if errMsg := a.checkPage(p, uuid.Nil); errMsg != "" {
		a.renderPageForm(w, r, p, publishAt, true, errMsg)
		return
	}

	created, err := a.pageStore.Create(p)
	if err != nil {
		slog.Error("create page failed", "error", err)
		a.renderPageForm(w, r, p, publishAt, true, "Não foi possível criar a página.")
		return
	}

	a.invalidatePageCache(r.Context(), created.Slug)
	http.Redirect(w, r, "/admin/pages", http.StatusSeeOther)
}

// PageEdit renders the edit form for a page.
func (a *Admin) PageEdit(w http.ResponseWriter, r *http.Request) {
	p := a.findPage(w, r)
	if p == nil {
		return
	}
	a.renderPageForm(w, r, p, formatPublishAt(p.PublishAt), false, "")
}

// PageUpdate handles the edit form submission.
func (a *Admin) PageUpdate(w http.ResponseWriter, r *http.Request) {
	p := a.findPage(w, r)
	if p == nil {
		return
	}

	oldSlug := p.Slug
	publishAt := applyPageForm(p, r)

	if errMsg := a.checkPage(p, p.ID); errMsg != "" {
		a.renderPageForm(w, r, p, publishAt, false, errMsg)
		return
	}

	if err := a.pageStore.Update(p); err != nil {
		slog.Error("update page failed", "error", err)
		a.renderPageForm(w, r, p, publishAt, false, "Não foi possível salvar a página.")
		return
	}

	a.invalidatePageCache(r.Context(), p.Slug)
	// A renamed slug leaves the old cached copy behind; purge it too.
	if oldSlug != "" && oldSlug != p.Slug {
		a.pageCache.InvalidatePage(r.Context(), cache.PageKey(a.siteID, oldSlug))
	}

	http.Redirect(w, r, "/admin/pages", http.StatusSeeOther)
}

// PageDelete handles page deletion.
func (a *Admin) PageDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	// Look up the slug before deleting so its cache entry can be purged.
	p, _ := a.pageStore.FindByID(id)

	if err := a.pageStore.Delete(id); err != nil {
		slog.Error("delete page failed", "error", err)
	} else if p != nil {
		a.invalidatePageCache(r.Context(), p.Slug)
	}

	http.Redirect(w, r, "/admin/pages", http.StatusSeeOther)
}

// findPage loads the page addressed by the id route parameter, writing the
// error response itself when the id is bad or the page is gone.
func (a *Admin) findPage(w http.ResponseWriter, r *http.Request) *models.Page {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return nil
	}

	p, err := a.pageStore.FindByID(id)
	if err != nil || p == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return nil
	}
	return p
}

// applyPageForm copies the submitted form fields onto p. The raw publish_at
// string comes back for redisplay when validation fails.
func applyPageForm(p *models.Page, r *http.Request) string {
	p.Title = strings.TrimSpace(r.FormValue("title"))
	p.Slug = strings.TrimSpace(r.FormValue("slug"))
	p.Body = r.FormValue("body")

	p.BodyFormat = models.BodyFormat(r.FormValue("body_format"))
	if p.BodyFormat != models.BodyFormatHTML {
		p.BodyFormat = models.BodyFormatMarkdown
	}

	switch status := models.PageStatus(r.FormValue("status")); status {
	case models.PageStatusScheduled, models.PageStatusPublished:
		p.Status = status
	default:
		p.Status = models.PageStatusDraft
	}

	if p.Slug == "" {
		p.Slug = slug.Generate(p.Title)
	}

	if metaDesc := strings.TrimSpace(r.FormValue("meta_description")); metaDesc != "" {
		p.MetaDescription = &metaDesc
	} else {
		p.MetaDescription = nil
	}

	publishAt := r.FormValue("publish_at")
	if t, err := time.ParseInLocation("2006-01-02T15:04", publishAt, time.Local); err == nil {
		p.PublishAt = &t
	} else {
		p.PublishAt = nil
	}
	return publishAt
}

// checkPage validates a filled page record. excludeID skips the page itself
// on the slug uniqueness check during edits.
func (a *Admin) checkPage(p *models.Page, excludeID uuid.UUID) string {
	if errMsg := validatePage(p.Title, p.Slug, p.Body); errMsg != "" {
		return errMsg
	}
	if errMsg := validateMeta(p.MetaDescription); errMsg != "" {
		return errMsg
	}
	if p.Status == models.PageStatusScheduled && p.PublishAt == nil {
		return "Informe a data de publicação para agendar."
	}

	taken, err := a.pageStore.SlugTaken(a.siteID, p.Slug, excludeID)
	if err != nil {
		slog.Error("slug check failed", "error", err)
		return "Não foi possível validar o slug. Tente novamente."
	}
	if taken {
		return "Já existe uma página com este slug."
	}
	return ""
}

// renderPageForm shows the page form, optionally with a validation error.
func (a *Admin) renderPageForm(w http.ResponseWriter, r *http.Request, p *models.Page, publishAt string, isNew bool, errMsg string) {
	title := "Editar página"
	action := "/admin/pages/" + p.ID.String()
	if isNew {
		title = "Nova página"
		action = "/admin/pages"
	}

	a.renderer.Page(w, r, "page_form", &render.PageData{
		Title:   title,
		Section: "pages",
		Data: map[string]any{
			"IsNew":     isNew,
			"Action":    action,
			"Page":      p,
			"PublishAt": publishAt,
			"Error":     errMsg,
		},
	})
}

// formatPublishAt renders a publish time for a datetime-local input.
func formatPublishAt(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format("2006-01-02T15:04")
}

// invalidatePageCache purges the cached copy of one page plus the home
// page, whose listing may include it.
func (a *Admin) invalidatePageCache(ctx context.Context, pageSlug string) {
	a.pageCache.InvalidatePage(ctx, cache.PageKey(a.siteID, pageSlug))
	a.pageCache.InvalidateHome(ctx, a.siteID)
}

// --- Users ---

// UsersList renders the user management page.
func (a *Admin) UsersList(w http.ResponseWriter, r *http.Request) {
	users, err := a.userStore.List()
	if err != nil {
		slog.Error("list users failed", "error", err)
	}

	a.renderer.Page(w, r, "users", &render.PageData{
		Title:   "Usuários",
		Section: "users",
		Data:    map[string]any{"Users": users},
	})
}

// UserNew renders the new user creation form.
func (a *Admin) UserNew(w http.ResponseWriter, r *http.Request) {
	a.renderer.Page(w, r, "user_form", &render.PageData{
		Title:   "Novo usuário",
		Section: "users",
		Data: map[string]any{
			"Email":       "",
			"DisplayName": "",
			"Role":        string(models.RoleEditor),
		},
	})
}

// UserCreate handles the new user form submission.
func (a *Admin) UserCreate(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	displayName := strings.TrimSpace(r.FormValue("display_name"))
	password := r.FormValue("password")
	role := models.Role(r.FormValue("role"))

	var errMsg string
	switch {
	case email == "":
		errMsg = "Informe o e-mail."
	case displayName == "":
		errMsg = "Informe o nome."
	case len(password) < 8:
		errMsg = "A senha precisa de pelo menos 8 caracteres."
	case role != models.RoleAdmin && role != models.RoleEditor:
		errMsg = "Papel inválido."
	}
	if errMsg == "" {
		if existing, _ := a.userStore.FindByEmail(email); existing != nil {
			errMsg = "Já existe um usuário com este e-mail."
		}
	}

	if errMsg != "" {
		a.renderer.Page(w, r, "user_form", &render.PageData{
			Title:   "Novo usuário",
			Section: "users",
			Data: map[string]any{
				"Error":       errMsg,
				"Email":       email,
				"DisplayName": displayName,
				"Role":        string(role),
			},
		})
		return
	}

	if _, err := a.userStore.Create(email, password, displayName, role); err != nil {
		slog.Error("create user failed", "error", err)
		a.renderer.Page(w, r, "user_form", &render.PageData{
			Title:   "Novo usuário",
			Section: "users",
			Data: map[string]any{
				"Error":       "Não foi possível criar o usuário.",
				"Email":       email,
				"DisplayName": displayName,
				"Role":        string(role),
			},
		})
		return
	}

	sess := middleware.SessionFromCtx(r.Context())
	slog.Info("user created", "admin", sess.Email, "new_user", email, "role", role)
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

// UserSetRole changes another user's role. Changing your own role is
// rejected, so the acting admin always stays an admin.
func (a *Admin) UserSetRole(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if targetID == sess.UserID {
		http.Error(w, "Cannot change your own role", http.StatusForbidden)
		return
	}

	role := models.Role(r.FormValue("role"))
	if role != models.RoleAdmin && role != models.RoleEditor {
		http.Error(w, "Invalid role", http.StatusBadRequest)
		return
	}

	if err := a.userStore.SetRole(targetID, role); err != nil {
		slog.Error("set role failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	slog.Info("role changed by admin", "admin", sess.Email, "target_user", targetID, "role", role)
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

// UserResetTwoFA resets another user's 2FA, forcing re-setup on next login.
func (a *Admin) UserResetTwoFA(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	// Cannot reset your own 2FA.
	if targetID == sess.UserID {
		http.Error(w, "Cannot reset your own 2FA", http.StatusForbidden)
		return
	}

	if err := a.userStore.ResetTOTP(targetID); err != nil {
		slog.Error("reset 2fa failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	slog.Info("2fa reset by admin", "admin", sess.Email, "target_user", targetID)
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}
