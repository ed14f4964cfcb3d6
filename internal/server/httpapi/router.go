// Package httpapi is the REST surface of the LMS backend, routed with
// gorilla/mux. Public routes cover login, the token refresh exchange, the
// public catalogue and media downloads; everything else requires a bearer
// access token.
package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/lms/internal/logging"
	"github.com/dmitrijs2005/lms/internal/server/auth"
	"github.com/dmitrijs2005/lms/internal/server/models"
	"github.com/dmitrijs2005/lms/internal/server/services"
	"github.com/gorilla/mux"
)

// UserAPI is the account side of the business layer.
type UserAPI interface {
	Login(ctx context.Context, email, password string) (*auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	CreateUser(ctx context.Context, email, password string) (*models.User, error)
	ChangePassword(ctx context.Context, email, current, next string) error
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// ContentAPI is the content side of the business layer.
type ContentAPI interface {
	Create(ctx context.Context, createdBy string, in services.ContentInput) (*models.Content, error)
	Get(ctx context.Context, id int64) (*models.Content, error)
	List(ctx context.Context) ([]*models.Content, error)
	ListPublic(ctx context.Context, limit int) ([]*models.Content, error)
	Update(ctx context.Context, id int64, in services.ContentInput) (*models.Content, error)
	Delete(ctx context.Context, id int64) error
	MediaURL(ctx context.Context, key string) (string, error)
}

type AnalyticsAPI interface {
	Overview(ctx context.Context) (*services.Overview, error)
}

// Deps bundles what the router needs.
type Deps struct {
	Users         UserAPI
	Contents      ContentAPI
	Analytics     AnalyticsAPI
	Verifier      TokenVerifier
	Logger        logging.Logger
	MaxUploadSize int64
	AllowedOrigin string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// Instrument wraps every matched route, typically with Prometheus metrics.
	Instrument mux.MiddlewareFunc
}

// Handlers implements the HTTP endpoints.
type Handlers struct {
	users         UserAPI
	contents      ContentAPI
	analytics     AnalyticsAPI
	logger        logging.Logger
	maxUploadSize int64
}

// NewRouter builds the complete handler tree, middleware included.
func NewRouter(d Deps) http.Handler {
	h := &Handlers{
		users:         d.Users,
		contents:      d.Contents,
		analytics:     d.Analytics,
		logger:        d.Logger.With("component", "http_api"),
		maxUploadSize: d.MaxUploadSize,
	}

	r := mux.NewRouter()
	if d.Instrument != nil {
		r.Use(d.Instrument)
	}

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/refresh", h.refresh).Methods(http.MethodPost)
	r.HandleFunc("/public/contents", h.listPublicContents).Methods(http.MethodGet)
	r.HandleFunc("/uploads/{key:.+}", h.media).Methods(http.MethodGet)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics).Methods(http.MethodGet)
	}

	p := r.NewRoute().Subrouter()
	p.Use(RequireBearer(d.Verifier))
	p.HandleFunc("/upload-content", h.uploadContent).Methods(http.MethodPost)
	p.HandleFunc("/get-contents", h.listContents).Methods(http.MethodGet)
	p.HandleFunc("/get-content/{id:[0-9]+}", h.getContent).Methods(http.MethodGet)
	p.HandleFunc("/update-content/{id:[0-9]+}", h.updateContent).Methods(http.MethodPut)
	p.HandleFunc("/delete-content/{id:[0-9]+}", h.deleteContent).Methods(http.MethodDelete)
	p.HandleFunc("/get-users", h.listUsers).Methods(http.MethodGet)
	p.HandleFunc("/create-user", h.createUser).Methods(http.MethodPost)
	p.HandleFunc("/change-password", h.changePassword).Methods(http.MethodPost)
	p.HandleFunc("/analytics/overview", h.overview).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})

	origin := d.AllowedOrigin
	if origin == "" {
		origin = "*"
	}

	var handler http.Handler = r
	handler = Recovery(h.logger)(handler)
	handler = Logging(h.logger)(handler)
	handler = CORS(origin)(handler)
	return handler
}

func (h *Handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "LMS API is running",
	})
}
