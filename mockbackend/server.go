package mockbackend

import (
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/jrsteele09/go-saverr/accounts"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	defaultAccessTokenTTL  = time.Hour
	defaultRefreshTokenTTL = 30 * 24 * time.Hour
	defaultCodeTTL         = 24 * time.Hour
	defaultHistoryDays     = 90

	// UniversalCode is accepted by every confirmation and reset step.
	UniversalCode = "123456"
)

// Server is an in-memory implementation of the Saverr backend API. All state
// lives behind a single lock.
type Server struct {
	mux    *http.ServeMux
	routes []string
	logger zerolog.Logger
	now    func() time.Time
	rng    *rand.Rand

	tokens      *tokenIssuer
	codeTTL     time.Duration
	historyDays int
	loginLimit  rate.Limit
	loginBurst  int

	lock         sync.Mutex
	users        map[string]*user // by normalized email
	codes        map[codeKey]issuedCode
	limiters     map[string]*rate.Limiter
	accounts     map[string][]accounts.LinkedAccount
	transactions map[string][]accounts.Transaction // by account ID
	failures     map[string]Failure
}

type Option func(*Server)

func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Server) {
		s.now = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAccessTokenTTL sets the lifetime reported as expires_in.
func WithAccessTokenTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.tokens.accessTTL = ttl
	}
}

func WithSigningKey(key []byte) Option {
	return func(s *Server) {
		s.tokens.key = key
	}
}

// WithLoginRate limits login attempts per email to limit per second with the given burst.
func WithLoginRate(limit rate.Limit, burst int) Option {
	return func(s *Server) {
		s.loginLimit = limit
		s.loginBurst = burst
	}
}

// WithSeed makes generated balances and transactions reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Server) {
		s.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

func New(options ...Option) *Server {
	s := &Server{
		mux:          http.NewServeMux(),
		logger:       log.Logger,
		now:          time.Now,
		rng:          rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		tokens:       newTokenIssuer(),
		codeTTL:      defaultCodeTTL,
		historyDays:  defaultHistoryDays,
		loginLimit:   rate.Every(12 * time.Second),
		loginBurst:   5,
		users:        make(map[string]*user),
		codes:        make(map[codeKey]issuedCode),
		limiters:     make(map[string]*rate.Limiter),
		accounts:     make(map[string][]accounts.LinkedAccount),
		transactions: make(map[string][]accounts.Transaction),
		failures:     make(map[string]Failure),
	}
	for _, option := range options {
		option(s)
	}
	s.logger = s.logger.With().Str("component", "mockbackend").Logger()
	s.tokens.now = s.now
	s.initRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Routes lists the registered route patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

// Failure is a canned error response returned by a route instead of its handler.
type Failure struct {
	Status  int
	Code    string
	Message string
}

// FailRoute makes pattern (e.g. "POST /accounts/{id}/sync") answer with f until
// ClearFailures is called.
func (s *Server) FailRoute(pattern string, f Failure) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.failures[pattern] = f
}

func (s *Server) ClearFailures() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.failures = make(map[string]Failure)
}

func (s *Server) failureFor(pattern string) (Failure, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	f, ok := s.failures[pattern]
	return f, ok
}
