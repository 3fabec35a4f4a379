package handlers

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sethvargo/go-password/password"

	"scoredeck/internal/database"
	"scoredeck/models"
	"scoredeck/services/dashboard"
	"scoredeck/services/importer"
	"scoredeck/services/scoreboard"
	"scoredeck/services/scores"
	"scoredeck/services/session"
	"scoredeck/utils/search"
)

//go:embed templates/*
var pageTemplates embed.FS

const historyPageLimit = 10

// UIHandler serves the scoredeck pages: login, signup, dashboard, score
// table and CSV upload, all rendered from embedded templates.
type UIHandler struct {
	session   *session.Store
	scores    *scores.Store
	dashboard *dashboard.Service
	importer  *importer.Service
	client    *scoreboard.Client
	history   *database.ImportHistoryRepository

	dashboardTemplate *template.Template
	scoresTemplate    *template.Template
	uploadTemplate    *template.Template
	waitingTemplate   *template.Template
	loginTemplate     *template.Template
	signupTemplate    *template.Template
}

// NewUIHandler builds the page handler. history may be nil; the upload page
// then renders without the history panel.
func NewUIHandler(
	sess *session.Store,
	scoreStore *scores.Store,
	dash *dashboard.Service,
	imp *importer.Service,
	client *scoreboard.Client,
	history *database.ImportHistoryRepository,
) (*UIHandler, error) {
	funcMap := template.FuncMap{
		"percent": func(frac float64) int { return int(frac * 100) },
		"inc":     func(n int) int { return n + 1 },
		"dec":     func(n int) int { return n - 1 },
		"deref": func(p *int) int {
			if p == nil {
				return 0
			}
			return *p
		},
	}

	baseContent, err := pageTemplates.ReadFile("templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("read base template: %w", err)
	}

	// Pages share the base layout; login and signup stand alone.
	page := func(name string) (*template.Template, error) {
		content, err := pageTemplates.ReadFile("templates/" + name)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", name, err)
		}
		tmpl, err := template.New("page").Funcs(funcMap).Parse(string(baseContent))
		if err != nil {
			return nil, fmt.Errorf("parse base template: %w", err)
		}
		return tmpl.Parse(string(content))
	}
	standalone := func(name string) (*template.Template, error) {
		content, err := pageTemplates.ReadFile("templates/" + name)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", name, err)
		}
		return template.New(name).Funcs(funcMap).Parse(string(content))
	}

	h := &UIHandler{
		session:   sess,
		scores:    scoreStore,
		dashboard: dash,
		importer:  imp,
		client:    client,
		history:   history,
	}
	if h.dashboardTemplate, err = page("dashboard.html"); err != nil {
		return nil, err
	}
	if h.scoresTemplate, err = page("scores.html"); err != nil {
		return nil, err
	}
	if h.uploadTemplate, err = page("upload.html"); err != nil {
		return nil, err
	}
	if h.waitingTemplate, err = standalone("waiting.html"); err != nil {
		return nil, err
	}
	if h.loginTemplate, err = standalone("login.html"); err != nil {
		return nil, err
	}
	if h.signupTemplate, err = standalone("signup.html"); err != nil {
		return nil, err
	}
	return h, nil
}

// Register mounts all page routes on the router.
func (h *UIHandler) Register(r *mux.Router) {
	r.HandleFunc("/login", h.LoginPage).Methods(http.MethodGet)
	r.HandleFunc("/login", h.LoginSubmit).Methods(http.MethodPost)
	r.HandleFunc("/signup", h.SignupPage).Methods(http.MethodGet)
	r.HandleFunc("/signup", h.SignupSubmit).Methods(http.MethodPost)
	r.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)

	r.HandleFunc("/", h.RequireSession(h.Dashboard)).Methods(http.MethodGet)
	r.HandleFunc("/scores", h.RequireSession(h.ScoresPage)).Methods(http.MethodGet)
	r.HandleFunc("/upload", h.RequireSession(h.UploadPage)).Methods(http.MethodGet)
	r.HandleFunc("/upload", h.RequireSession(h.UploadSubmit)).Methods(http.MethodPost)
	r.HandleFunc("/upload/progress", h.RequireSession(h.UploadProgress)).Methods(http.MethodGet)
	r.HandleFunc("/avatar", h.RequireSession(h.AvatarSubmit)).Methods(http.MethodPost)
}

// RequireSession is the route guard. While the restore probe is still in
// flight it renders a neutral waiting page and never redirects, so a
// refreshing authenticated user is not bounced to login. Once settled,
// Anonymous redirects and Authenticated passes through.
func (h *UIHandler) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch h.session.Snapshot().State {
		case session.StateLoading:
			h.render(w, h.waitingTemplate, "waiting.html", nil)
		case session.StateAnonymous:
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		default:
			next(w, r)
		}
	}
}

// pageData is the shared shell state for pages behind the guard.
type pageData struct {
	Title  string
	Active string
	User   *models.User
}

func (h *UIHandler) shell(title, active string) pageData {
	return pageData{Title: title, Active: active, User: h.session.Snapshot().User}
}

type loginData struct {
	Error  string
	Notice string
}

// LoginPage renders the login form; a live session skips straight to the
// dashboard.
func (h *UIHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if h.session.Snapshot().State == session.StateAuthenticated {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, h.loginTemplate, "login.html", loginData{Notice: r.URL.Query().Get("notice")})
}

func (h *UIHandler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	_, err := h.session.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		h.render(w, h.loginTemplate, "login.html", loginData{Error: requestErrorMessage(err, "login failed")})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type signupData struct {
	Values    map[string]string
	Errors    map[string]string
	Error     string
	Suggested string
}

// SignupPage renders the signup form with a generated password suggestion.
func (h *UIHandler) SignupPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, h.signupTemplate, "signup.html", signupData{
		Values:    map[string]string{},
		Errors:    map[string]string{},
		Suggested: suggestPassword(),
	})
}

// SignupSubmit validates locally first; only an all-valid form produces a
// backend request.
func (h *UIHandler) SignupSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := signupForm{
		Username:        r.PostFormValue("username"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}

	if errs := validateSignup(form); len(errs) > 0 {
		h.render(w, h.signupTemplate, "signup.html", signupData{
			Values:    map[string]string{"username": form.Username, "email": form.Email},
			Errors:    errs,
			Suggested: suggestPassword(),
		})
		return
	}

	if _, err := h.client.Signup(r.Context(), form.request()); err != nil {
		h.render(w, h.signupTemplate, "signup.html", signupData{
			Values:    map[string]string{"username": form.Username, "email": form.Email},
			Errors:    map[string]string{},
			Error:     requestErrorMessage(err, "signup failed"),
			Suggested: suggestPassword(),
		})
		return
	}
	http.Redirect(w, r, "/login?notice=account+created", http.StatusSeeOther)
}

func (h *UIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Logout(r.Context()); err != nil {
		slog.Warn("logout request failed", "error", err)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

type dashboardData struct {
	pageData
	Overview *dashboard.Overview
	Error    string
}

// Dashboard renders the aggregate statistics panel and recent scores.
func (h *UIHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data := dashboardData{pageData: h.shell("Dashboard", "dashboard")}
	overview, err := h.dashboard.Load(r.Context())
	if err != nil {
		data.Error = requestErrorMessage(err, "failed to load statistics")
	} else {
		data.Overview = overview
	}
	h.render(w, h.dashboardTemplate, "base", data)
}

type scoresData struct {
	pageData
	Snap     scores.Snapshot
	Criteria scores.Criteria
	Query    string
	Levels   []int
	Styles   []models.PlayStyle
	Charts   []models.ChartType
	Clears   []models.ClearType
	HasPrev  bool
	HasNext  bool
}

// ScoresPage renders the filterable, paginated score table. The filter form
// funnels through SetCriteria, so a filter change always lands on page 0;
// pagination links carry both the filters and the target page.
func (h *UIHandler) ScoresPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria := scores.Criteria{
		PlayStyle: q.Get("playStyle"),
		Level:     q.Get("level"),
		ChartType: q.Get("chartType"),
		ClearType: q.Get("clearType"),
	}
	if criteria != h.scores.Criteria() {
		h.scores.SetCriteria(criteria)
	}
	if raw := q.Get("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil {
			h.scores.SetPage(page)
		}
	}

	snap := h.scores.Refresh(r.Context())

	// Local quick filter on the fetched page only; the backend knows no
	// title parameter.
	query := q.Get("q")
	if query != "" {
		filtered := snap.Items[:0:0]
		for _, sc := range snap.Items {
			if search.MatchesTitle(sc.Song.Title, query) {
				filtered = append(filtered, sc)
			}
		}
		snap.Items = filtered
	}

	data := scoresData{
		pageData: h.shell("Scores", "scores"),
		Snap:     snap,
		Criteria: criteria,
		Query:    query,
		Levels:   levelRange(),
		Styles:   []models.PlayStyle{models.PlayStyleSP, models.PlayStyleDP},
		Charts: []models.ChartType{
			models.ChartBeginner, models.ChartNormal, models.ChartHyper,
			models.ChartAnother, models.ChartLeggendaria,
		},
		Clears: []models.ClearType{
			models.ClearFailed, models.ClearAssist, models.ClearEasy, models.ClearNormal,
			models.ClearHard, models.ClearExHard, models.ClearFullCombo,
		},
		HasPrev: snap.Page > 0,
		HasNext: snap.Page < snap.TotalPages-1,
	}
	h.render(w, h.scoresTemplate, "base", data)
}

type uploadData struct {
	pageData
	Session importer.Snapshot
	History []database.ImportHistoryEntry
	Styles  []models.PlayStyle
}

// UploadPage renders the CSV import form with the current session state and
// the recent import history. The upload session belongs to a single
// interaction: navigating back discards a settled one, while an in-flight
// upload keeps its state so progress polling stays coherent.
func (h *UIHandler) UploadPage(w http.ResponseWriter, r *http.Request) {
	if h.importer.Snapshot().Status != importer.StatusUploading {
		h.importer.Reset()
	}
	h.render(w, h.uploadTemplate, "base", h.uploadPageData())
}

// UploadSubmit runs the pre-flight validation and, when it passes, exactly
// one upload request carrying the selected play style.
func (h *UIHandler) UploadSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, importer.MaxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(importer.MaxUploadSize); err != nil {
		http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	playStyle := models.PlayStyle(r.PostFormValue("playStyle"))
	if _, err := h.importer.Upload(r.Context(), header.Filename, header.Size, file, playStyle); err != nil {
		slog.Warn("csv import did not complete", "file", header.Filename, "error", err)
	}
	h.render(w, h.uploadTemplate, "base", h.uploadPageData())
}

// UploadProgress reports the active upload session as JSON for polling.
func (h *UIHandler) UploadProgress(w http.ResponseWriter, r *http.Request) {
	snap := h.importer.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   snap.Status,
		"progress": snap.Progress,
		"error":    snap.Err,
	})
}

// AvatarSubmit forwards a new avatar image to the backend.
func (h *UIHandler) AvatarSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(importer.MaxUploadSize); err != nil {
		http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := h.client.UploadAvatar(r.Context(), header.Filename, file); err != nil {
		slog.Warn("avatar upload failed", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *UIHandler) uploadPageData() uploadData {
	data := uploadData{
		pageData: h.shell("Import CSV", "upload"),
		Session:  h.importer.Snapshot(),
		Styles:   []models.PlayStyle{models.PlayStyleSP, models.PlayStyleDP},
	}
	if h.history != nil {
		entries, err := h.history.Recent(historyPageLimit)
		if err != nil {
			slog.Warn("loading import history failed", "error", err)
		} else {
			data.History = entries
		}
	}
	return data
}

func (h *UIHandler) render(w http.ResponseWriter, tmpl *template.Template, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("template render failed", "template", name, "error", err)
	}
}

func levelRange() []int {
	levels := make([]int, 12)
	for i := range levels {
		levels[i] = i + 1
	}
	return levels
}

func suggestPassword() string {
	// 16 chars, digits and symbols mixed in; an empty suggestion is fine
	// if generation ever fails.
	s, err := password.Generate(16, 4, 2, false, false)
	if err != nil {
		return ""
	}
	return s
}

func requestErrorMessage(err error, fallback string) string {
	var apiErr *scoreboard.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
