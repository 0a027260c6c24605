package handlers

import (
	"context"
	"errors"
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"networth/internal/auth"
	"networth/internal/models"
	"networth/internal/networth"
	"networth/internal/session"
	"networth/internal/storage"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// MinPasswordLength is the minimum accepted password length at signup.
	MinPasswordLength = 6
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db           *storage.DB
	codec        *session.Codec
	templateDir  string
	secureCookie bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *storage.DB, codec *session.Codec, templateDir string, secureCookie bool) *Handlers {
	return &Handlers{db: db, codec: codec, templateDir: templateDir, secureCookie: secureCookie}
}

// GetUserFromContext retrieves the authenticated user from request context.
// It returns nil for an anonymous request.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// WithIdentity resolves the session cookie to a user and stores it in the
// request context. A missing cookie, a tampered or malformed token, and a
// token for a user that no longer exists all resolve to anonymous; none of
// them fail the request.
func (h *Handlers) WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
			if userID, err := h.codec.Verify(cookie.Value); err == nil {
				if user, err := h.db.GetUserByID(userID); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), UserContextKey, user))
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser redirects anonymous requests to the login page. It must run
// inside WithIdentity.
func (h *Handlers) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserFromContext(r) == nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	// No MaxAge: the token carries no expiry, the cookie lives with the
	// browser session.
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// FieldDef maps a form field name to its display label.
type FieldDef struct {
	Field string
	Label string
}

var assetFields = []FieldDef{
	{"cash", "Cash / Savings"},
	{"investments", "Investments"},
	{"property_value", "Property"},
	{"vehicles", "Vehicles"},
	{"other_assets", "Other Assets"},
}

var liabilityFields = []FieldDef{
	{"mortgage", "Mortgage"},
	{"student_loans", "Student Loans"},
	{"credit_card", "Credit Card Debt"},
	{"car_loans", "Car Loans"},
	{"other_liabilities", "Other Liabilities"},
}

// LineItem is one labelled amount in the result breakdown.
type LineItem struct {
	Label  string
	Amount float64
}

// IndexViewModel holds data for the calculator page.
type IndexViewModel struct {
	User            *models.User
	AssetFields     []FieldDef
	LiabilityFields []FieldDef
	ShowResult      bool
	Saved           bool
	Assets          []LineItem
	Liabilities     []LineItem
	Result          networth.Result
}

// Home renders the calculator form.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, "index.html", IndexViewModel{
		User:            GetUserFromContext(r),
		AssetFields:     assetFields,
		LiabilityFields: liabilityFields,
	})
}

// Calculate handles a calculator submission. Anonymous users get their
// result back without persistence; authenticated users also get the
// calculation recorded in their history.
func (h *Handlers) Calculate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	assets := make(map[string]float64, len(assetFields))
	assetItems := make([]LineItem, 0, len(assetFields))
	for _, f := range assetFields {
		amount := formAmount(r, f.Field)
		assets[f.Label] = amount
		assetItems = append(assetItems, LineItem{Label: f.Label, Amount: amount})
	}

	liabilities := make(map[string]float64, len(liabilityFields))
	liabilityItems := make([]LineItem, 0, len(liabilityFields))
	for _, f := range liabilityFields {
		amount := formAmount(r, f.Field)
		liabilities[f.Label] = amount
		liabilityItems = append(liabilityItems, LineItem{Label: f.Label, Amount: amount})
	}

	result := networth.Compute(assets, liabilities)

	user := GetUserFromContext(r)
	if user != nil {
		if _, err := h.db.CreateCalculation(user, assets, liabilities, result); err != nil {
			log.Printf("CreateCalculation error: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	h.render(w, "index.html", IndexViewModel{
		User:            user,
		AssetFields:     assetFields,
		LiabilityFields: liabilityFields,
		ShowResult:      true,
		Saved:           user != nil,
		Assets:          assetItems,
		Liabilities:     liabilityItems,
		Result:          result,
	})
}

// formAmount reads a numeric form field, defaulting to 0 when the field is
// absent or not a number. Negative amounts pass through verbatim.
func formAmount(r *http.Request, name string) float64 {
	amount, _ := strconv.ParseFloat(strings.TrimSpace(r.FormValue(name)), 64)
	return amount
}

// SignupViewModel holds data for the signup page.
type SignupViewModel struct {
	User  *models.User
	Error string
	Name  string
	Email string
}

// SignupForm renders the signup page.
func (h *Handlers) SignupForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, "signup.html", SignupViewModel{User: GetUserFromContext(r)})
}

// Signup handles the signup form submission.
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, "signup.html", SignupViewModel{Error: "Invalid form submission"})
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	confirmPassword := r.FormValue("confirm_password")

	fail := func(message string) {
		h.render(w, "signup.html", SignupViewModel{Error: message, Name: name, Email: email})
	}

	if name == "" || email == "" || password == "" || confirmPassword == "" {
		fail("All fields are required.")
		return
	}
	if password != confirmPassword {
		fail("Passwords do not match.")
		return
	}
	if len(password) < MinPasswordLength {
		fail("Password must be at least 6 characters.")
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		fail("An error occurred. Please try again.")
		return
	}

	// The UNIQUE constraint on users.email decides duplicate signups, so a
	// concurrent signup race still produces exactly one account.
	user, err := h.db.CreateUser(name, email, hash)
	if errors.Is(err, storage.ErrEmailTaken) {
		fail("An account with this email already exists.")
		return
	}
	if err != nil {
		log.Printf("CreateUser error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	token, err := h.codec.Issue(user.ID)
	if err != nil {
		log.Printf("Failed to issue session token: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.setSessionCookie(w, token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// LoginViewModel holds data for the login page.
type LoginViewModel struct {
	User  *models.User
	Error string
	Email string
}

// LoginForm renders the login page.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login.html", LoginViewModel{User: GetUserFromContext(r)})
}

// Login handles the login form submission. Unknown email and wrong password
// produce the same message so accounts cannot be enumerated.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, "login.html", LoginViewModel{Error: "Invalid form submission"})
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	if email == "" || password == "" {
		h.render(w, "login.html", LoginViewModel{Error: "Email and password are required", Email: email})
		return
	}

	user, err := h.db.GetUserByEmail(email)
	if err != nil || !auth.CheckPassword(password, user.PasswordHash) {
		h.render(w, "login.html", LoginViewModel{Error: "Invalid email or password.", Email: email})
		return
	}

	token, err := h.codec.Issue(user.ID)
	if err != nil {
		log.Printf("Failed to issue session token: %v", err)
		h.render(w, "login.html", LoginViewModel{Error: "An error occurred. Please try again.", Email: email})
		return
	}

	h.setSessionCookie(w, token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout clears the session cookie and redirects home. Tokens are not
// revocable server-side; logout is purely a client-side effect.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// HistorySummary aggregates a user's saved calculations.
type HistorySummary struct {
	Count  int
	Latest float64
	Change float64
}

// HistoryViewModel holds data for the history page.
type HistoryViewModel struct {
	User         *models.User
	Calculations []models.Calculation
	Summary      *HistorySummary
}

// History renders the logged-in user's saved calculations, newest first.
// RequireUser guarantees an authenticated identity; the owner passed to the
// ledger always comes from the resolved session, never from request input.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	calculations, err := h.db.ListCalculations(user)
	if err != nil {
		log.Printf("ListCalculations error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var summary *HistorySummary
	if len(calculations) > 0 {
		latest := calculations[0].NetWorth
		oldest := calculations[len(calculations)-1].NetWorth
		summary = &HistorySummary{
			Count:  len(calculations),
			Latest: latest,
			Change: latest - oldest,
		}
	}

	h.render(w, "history.html", HistoryViewModel{
		User:         user,
		Calculations: calculations,
		Summary:      summary,
	})
}

func (h *Handlers) render(w http.ResponseWriter, viewName string, data any) {
	tmpl, err := template.ParseFiles(filepath.Join(h.templateDir, "base.html"), filepath.Join(h.templateDir, viewName))
	if err != nil {
		log.Printf("Template error: %v", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Template execution error: %v", err)
	}
}
