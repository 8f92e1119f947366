package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-logr/logr"

	"github.com/bryanwahyu/canscan/internal/application"
	appprofile "github.com/bryanwahyu/canscan/internal/application/profile"
	appscans "github.com/bryanwahyu/canscan/internal/application/scans"
	apptracker "github.com/bryanwahyu/canscan/internal/application/tracker"
	"github.com/bryanwahyu/canscan/internal/application/wizard"
	domai "github.com/bryanwahyu/canscan/internal/domain/ai"
	domprofile "github.com/bryanwahyu/canscan/internal/domain/profile"
	domain "github.com/bryanwahyu/canscan/internal/domain/scans"
	domtracker "github.com/bryanwahyu/canscan/internal/domain/tracker"
	"github.com/bryanwahyu/canscan/internal/metrics"
	"github.com/bryanwahyu/canscan/internal/middleware"
)

// errBadRequest marks malformed input caught by the handlers themselves.
var errBadRequest = errors.New("bad request")

type Deps struct {
	Scans    *appscans.Service
	Profiles *appprofile.Service
	Trackers *apptracker.Service
	Log      logr.Logger

	// Checks feed /health and /ready. Nil means an always-healthy report.
	Checks      middleware.Checks
	CORSOrigins []string
	// Limiter is optional; nil disables rate limiting.
	Limiter       *middleware.RateLimiter
	MaxImageBytes int64
}

type Router struct {
	scansSvc   *appscans.Service
	profileSvc *appprofile.Service
	trackerSvc *apptracker.Service
	log        logr.Logger
	maxBytes   int64
}

func NewRouter(d Deps) http.Handler {
	r := &Router{
		scansSvc:   d.Scans,
		profileSvc: d.Profiles,
		trackerSvc: d.Trackers,
		log:        d.Log,
		maxBytes:   d.MaxImageBytes,
	}
	if r.maxBytes <= 0 {
		r.maxBytes = 10 << 20
	}

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Logging(d.Log))
	mux.Use(middleware.Metrics)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))
	if d.Limiter != nil {
		mux.Use(middleware.RateLimit(d.Limiter))
	}

	mux.Get("/health", middleware.HealthHandler(d.Checks))
	mux.Get("/ready", middleware.ReadinessHandler(d.Checks))
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", metrics.Handler)
	mux.Get("/v1/symptoms", r.wrap(r.handleVocabulary))

	mux.Route("/v1/{owner}", func(rt chi.Router) {
		rt.Use(r.requireOwner)

		rt.Put("/profile", r.wrap(r.handleLogin))
		rt.Get("/profile", r.wrap(r.handleGetProfile))
		rt.Patch("/profile", r.wrap(r.handleUpdateProfile))
		rt.Delete("/profile", r.wrap(r.handleLogout))

		rt.Post("/sessions", r.wrap(r.handleStartSession))
		rt.Route("/sessions/{id}", func(st chi.Router) {
			st.Use(r.requireSessionID)
			st.Get("/", r.wrap(r.handleGetSession))
			st.Delete("/", r.wrap(r.handleDiscardSession))
			st.Post("/image", r.wrap(r.handleUploadImage))
			st.Post("/analyze", r.wrap(r.handleAnalyze))
			st.Post("/next", r.wrap(r.handleNext))
			st.Put("/symptoms", r.wrap(r.handleSetSymptoms))
			st.Post("/symptoms/toggle", r.wrap(r.handleToggleSymptom))
			st.Post("/back", r.wrap(r.handleBack))
			st.Post("/complete", r.wrap(r.handleComplete))
		})

		rt.Get("/results", r.wrap(r.handleListResults))
		rt.Delete("/results", r.wrap(r.handleClearResults))
		rt.Get("/results/latest", r.wrap(r.handleLatest))
		rt.Get("/results/summary", r.wrap(r.handleSummary))
		rt.Get("/results/export", r.wrap(r.handleExport))
		rt.Get("/results/{id}", r.wrap(r.handleGetResult))

		rt.Get("/medications", r.wrap(r.handleListMedications))
		rt.Post("/medications", r.wrap(r.handleAddMedication))
		rt.Delete("/medications/{id}", r.wrap(r.handleRemoveMedication))
		rt.Get("/allergies", r.wrap(r.handleListAllergies))
		rt.Post("/allergies", r.wrap(r.handleAddAllergy))
		rt.Delete("/allergies/{id}", r.wrap(r.handleRemoveAllergy))
		rt.Get("/symptom-entries", r.wrap(r.handleListSymptomEntries))
		rt.Post("/symptom-entries", r.wrap(r.handleAddSymptomEntry))
		rt.Delete("/symptom-entries/{id}", r.wrap(r.handleRemoveSymptomEntry))
		rt.Get("/trends", r.wrap(r.handleTrends))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				r.log.Error(err, "request failed", "method", req.Method, "path", req.URL.Path)
			}
			if status == http.StatusTooManyRequests {
				w.Header().Set("Retry-After", "60")
			}
			http.Error(w, err.Error(), status)
		}
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, appscans.ErrSessionNotFound),
		errors.Is(err, appscans.ErrResultNotFound),
		errors.Is(err, domtracker.ErrEntryNotFound),
		errors.Is(err, domprofile.ErrNoProfile):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrEmptyImage),
		errors.Is(err, domain.ErrNotAnImage),
		errors.Is(err, appscans.ErrInvalidQuery),
		errors.Is(err, domprofile.ErrInvalidProfile),
		errors.Is(err, domtracker.ErrInvalidEntry),
		errors.Is(err, wizard.ErrUnknownSymptom):
		return http.StatusBadRequest
	case errors.Is(err, wizard.ErrWrongStep),
		errors.Is(err, wizard.ErrNoImage),
		errors.Is(err, wizard.ErrAnalysisPending),
		errors.Is(err, wizard.ErrNoPreviousStep),
		errors.Is(err, wizard.ErrSessionComplete):
		return http.StatusConflict
	case errors.Is(err, application.ErrConfirmationRequired):
		return http.StatusPreconditionRequired
	case errors.Is(err, domai.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, domai.ErrAnalysisUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (r *Router) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if err := middleware.ValidateOwner(chi.URLParam(req, "owner")); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (r *Router) requireSessionID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if err := middleware.ValidateSessionID(chi.URLParam(req, "id")); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func decodeJSON(req *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(req.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

func owner(req *http.Request) string { return chi.URLParam(req, "owner") }

func recordID(req *http.Request) (string, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateRecordID(id); err != nil {
		return "", fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return id, nil
}

func confirmed(req *http.Request) bool {
	ok, _ := strconv.ParseBool(req.URL.Query().Get("confirm"))
	return ok
}

// GET /v1/symptoms
func (r *Router) handleVocabulary(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, map[string][]string{
		"screening": domain.Symptoms(),
		"diary":     domtracker.CommonSymptoms,
	})
}

//
// ==== PROFILE ====
//

// PUT /v1/{owner}/profile
func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) error {
	var p domprofile.UserProfile
	if err := decodeJSON(req, &p); err != nil {
		return err
	}
	saved, err := r.profileSvc.Login(req.Context(), owner(req), p)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, saved)
}

func (r *Router) handleGetProfile(w http.ResponseWriter, req *http.Request) error {
	p, err := r.profileSvc.Get(req.Context(), owner(req))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, p)
}

// PATCH /v1/{owner}/profile
func (r *Router) handleUpdateProfile(w http.ResponseWriter, req *http.Request) error {
	var u domprofile.ProfileUpdate
	if err := decodeJSON(req, &u); err != nil {
		return err
	}
	p, err := r.profileSvc.Update(req.Context(), owner(req), u)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, p)
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) error {
	if err := r.profileSvc.Logout(req.Context(), owner(req)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

//
// ==== SESSIONS ====
//

func sessionID(req *http.Request) domain.SessionID {
	return domain.SessionID(chi.URLParam(req, "id"))
}

// POST /v1/{owner}/sessions
func (r *Router) handleStartSession(w http.ResponseWriter, req *http.Request) error {
	snap, err := r.scansSvc.StartSession(req.Context(), owner(req))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, snap)
}

func (r *Router) handleGetSession(w http.ResponseWriter, req *http.Request) error {
	snap, err := r.scansSvc.Session(req.Context(), owner(req), sessionID(req))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, snap)
}

func (r *Router) handleDiscardSession(w http.ResponseWriter, req *http.Request) error {
	if err := r.scansSvc.DiscardSession(req.Context(), owner(req), sessionID(req)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /v1/{owner}/sessions/{id}/image
// Accepts a multipart form with an "image" file field, or the raw image as
// the body with ?name= for the file name.
func (r *Router) handleUploadImage(w http.ResponseWriter, req *http.Request) error {
	img, err := r.readImage(w, req)
	if err != nil {
		return err
	}
	snap, err := r.scansSvc.UploadImage(req.Context(), owner(req), sessionID(req), img)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, snap)
}

func (r *Router) readImage(w http.ResponseWriter, req *http.Request) (domain.Image, error) {
	// One extra byte so an oversized upload reaches Image.Validate.
	limit := r.maxBytes + 1
	mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		req.Body = http.MaxBytesReader(w, req.Body, limit+(1<<20))
		file, header, err := req.FormFile("image")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return domain.Image{}, domain.ErrImageTooLarge
			}
			return domain.Image{}, fmt.Errorf("%w: image field: %v", errBadRequest, err)
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, limit))
		if err != nil {
			return domain.Image{}, fmt.Errorf("%w: read image: %v", errBadRequest, err)
		}
		return domain.Image{Name: header.Filename, Data: data}, nil
	}

	data, err := io.ReadAll(io.LimitReader(req.Body, limit))
	if err != nil {
		return domain.Image{}, fmt.Errorf("%w: read image: %v", errBadRequest, err)
	}
	name := req.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}
	return domain.Image{Name: middleware.SanitizeString(name), Data: data}, nil
}

// POST /v1/{owner}/sessions/{id}/analyze?wait=true
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	wait, _ := strconv.ParseBool(req.URL.Query().Get("wait"))
	snap, err := r.scansSvc.Analyze(req.Context(), owner(req), sessionID(req), wait)
	if err != nil {
		return err
	}
	status := http.StatusOK
	if snap.Analyzing {
		status = http.StatusAccepted
	}
	return writeJSON(w, status, snap)
}

func (r *Router) handleNext(w http.ResponseWriter, req *http.Request) error {
	snap, err := r.scansSvc.Next(req.Context(), owner(req), sessionID(req))
	if err != nil {
		return err
	}
	status := http.StatusOK
	if snap.Analyzing {
		status = http.StatusAccepted
	}
	return writeJSON(w, status, snap)
}

// PUT /v1/{owner}/sessions/{id}/symptoms
// Body: {"symptoms": ["Chronic cough", ...]}
func (r *Router) handleSetSymptoms(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Symptoms []string `json:"symptoms"`
	}
	if err := decodeJSON(req, &body); err != nil {
		return err
	}
	snap, err := r.scansSvc.SetSymptoms(req.Context(), owner(req), sessionID(req), body.Symptoms)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, snap)
}

// POST /v1/{owner}/sessions/{id}/symptoms/toggle
// Body: {"symptom": "Chronic cough"}
func (r *Router) handleToggleSymptom(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Symptom string `json:"symptom"`
	}
	if err := decodeJSON(req, &body); err != nil {
		return err
	}
	snap, err := r.scansSvc.ToggleSymptom(req.Context(), owner(req), sessionID(req), body.Symptom)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, snap)
}

func (r *Router) handleBack(w http.ResponseWriter, req *http.Request) error {
	snap, err := r.scansSvc.Back(req.Context(), owner(req), sessionID(req))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, snap)
}

// POST /v1/{owner}/sessions/{id}/complete
func (r *Router) handleComplete(w http.ResponseWriter, req *http.Request) error {
	res, err := r.scansSvc.Complete(req.Context(), owner(req), sessionID(req))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, res)
}

//
// ==== RESULTS ====
//

// GET /v1/{owner}/results?search=&risk=&sort=&page=&page_size=
func (r *Router) handleListResults(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	query := appscans.HistoryQuery{
		Search: middleware.SanitizeString(q.Get("search")),
		Sort:   q.Get("sort"),
	}
	if v := q.Get("risk"); v != "" {
		level, err := domain.ParseRiskLevel(v)
		if err != nil {
			return fmt.Errorf("%w: %v", appscans.ErrInvalidQuery, err)
		}
		query.Risk = level
	}
	query.Page, _ = strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	query.PageSize = middleware.ValidateLimit(size)

	page, err := r.scansSvc.Paginate(req.Context(), owner(req), query)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, page)
}

// GET /v1/{owner}/results/latest?limit=
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.scansSvc.Latest(req.Context(), owner(req), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	sum, err := r.scansSvc.Summary(req.Context(), owner(req))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, sum)
}

// GET /v1/{owner}/results/export
func (r *Router) handleExport(w http.ResponseWriter, req *http.Request) error {
	data, err := r.scansSvc.Export(req.Context(), owner(req))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="canscan-results.json"`)
	_, err = w.Write(data)
	return err
}

func (r *Router) handleGetResult(w http.ResponseWriter, req *http.Request) error {
	id, err := recordID(req)
	if err != nil {
		return err
	}
	res, err := r.scansSvc.Get(req.Context(), owner(req), domain.ResultID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// DELETE /v1/{owner}/results?confirm=true
func (r *Router) handleClearResults(w http.ResponseWriter, req *http.Request) error {
	if err := r.scansSvc.ClearResults(req.Context(), owner(req), confirmed(req)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

//
// ==== TRACKERS ====
//

func (r *Router) handleListMedications(w http.ResponseWriter, req *http.Request) error {
	list, err := r.trackerSvc.Medications(req.Context(), owner(req))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

func (r *Router) handleAddMedication(w http.ResponseWriter, req *http.Request) error {
	var m domtracker.Medication
	if err := decodeJSON(req, &m); err != nil {
		return err
	}
	saved, err := r.trackerSvc.AddMedication(req.Context(), owner(req), m)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, saved)
}

// DELETE /v1/{owner}/medications/{id}?confirm=true
func (r *Router) handleRemoveMedication(w http.ResponseWriter, req *http.Request) error {
	id, err := recordID(req)
	if err != nil {
		return err
	}
	if err := r.trackerSvc.RemoveMedication(req.Context(), owner(req), id, confirmed(req)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (r *Router) handleListAllergies(w http.ResponseWriter, req *http.Request) error {
	list, err := r.trackerSvc.Allergies(req.Context(), owner(req))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

func (r *Router) handleAddAllergy(w http.ResponseWriter, req *http.Request) error {
	var a domtracker.Allergy
	if err := decodeJSON(req, &a); err != nil {
		return err
	}
	saved, err := r.trackerSvc.AddAllergy(req.Context(), owner(req), a)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, saved)
}

func (r *Router) handleRemoveAllergy(w http.ResponseWriter, req *http.Request) error {
	id, err := recordID(req)
	if err != nil {
		return err
	}
	if err := r.trackerSvc.RemoveAllergy(req.Context(), owner(req), id, confirmed(req)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (r *Router) handleListSymptomEntries(w http.ResponseWriter, req *http.Request) error {
	list, err := r.trackerSvc.SymptomEntries(req.Context(), owner(req))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

func (r *Router) handleAddSymptomEntry(w http.ResponseWriter, req *http.Request) error {
	var e domtracker.SymptomEntry
	if err := decodeJSON(req, &e); err != nil {
		return err
	}
	saved, err := r.trackerSvc.AddSymptomEntry(req.Context(), owner(req), e)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, saved)
}

func (r *Router) handleRemoveSymptomEntry(w http.ResponseWriter, req *http.Request) error {
	id, err := recordID(req)
	if err != nil {
		return err
	}
	if err := r.trackerSvc.RemoveSymptomEntry(req.Context(), owner(req), id, confirmed(req)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /v1/{owner}/trends?days=
func (r *Router) handleTrends(w http.ResponseWriter, req *http.Request) error {
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))
	t, err := r.trackerSvc.Trends(req.Context(), owner(req), middleware.ValidateDays(days))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, t)
}
